package labs

// Attempt is the outcome of the backend + parse stage for one concept:
// either a validated artifact or the failure kind that routes to the fallback stage.
type Attempt struct {
	Artifact LabArtifact
	Kind     ErrorKind
	Err      error
}

func Succeeded(a LabArtifact) Attempt {
	return Attempt{Artifact: a}
}

func Failed(err error) Attempt {
	kind := KindOf(err)
	if kind == ErrorKindNone {
		kind = ErrorKindBackendUnavailable
	}
	return Attempt{Kind: kind, Err: err}
}

func (a Attempt) OK() bool { return a.Kind == ErrorKindNone }
