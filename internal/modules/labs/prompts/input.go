package prompts

// Input feeds the lab templates. Missing fields render empty strings (templates use missingkey=zero).
type Input struct {
	ConceptName       string
	ConceptDefinition string
	Topic             string
	TextEvidence      string

	// Personalization is the trimmed learner context; empty means none.
	Personalization string
	// ThemeHint names concrete entities for well-known personalization themes.
	ThemeHint string
}
