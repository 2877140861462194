package labs

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf_Wrapped(t *testing.T) {
	base := NewError(ErrorKindValidation, "parse", fmt.Errorf("hints out of range"))
	wrapped := fmt.Errorf("concept %q: %w", "CAP Theorem", base)
	if got := KindOf(wrapped); got != ErrorKindValidation {
		t.Fatalf("KindOf=%q", got)
	}
	if !errors.Is(wrapped, ErrValidation) {
		t.Fatalf("errors.Is(ErrValidation) = false")
	}
	if errors.Is(wrapped, ErrBackendUnavailable) {
		t.Fatalf("matched wrong sentinel")
	}
	if KindOf(fmt.Errorf("plain")) != ErrorKindNone {
		t.Fatalf("plain error should carry no kind")
	}
}

func TestFailed_DefaultsToBackendUnavailable(t *testing.T) {
	a := Failed(fmt.Errorf("dial tcp: refused"))
	if a.OK() || a.Kind != ErrorKindBackendUnavailable {
		t.Fatalf("attempt=%+v", a)
	}
	if !Succeeded(LabArtifact{Title: "x"}).OK() {
		t.Fatalf("success attempt not OK")
	}
}

func TestSummarize_Partition(t *testing.T) {
	results := []GenerationResult{
		{Concept: Concept{Name: "a"}, Success: true},
		{Concept: Concept{Name: "b"}, ErrorKind: ErrorKindBackendUnavailable},
		{Concept: Concept{Name: "c"}, ErrorKind: ErrorKindFilesystem},
	}
	s := Summarize("run", results, 5)
	if s.TotalRequested != 3 || s.SuccessfulCount != 1 || s.FailedCount != 2 {
		t.Fatalf("summary=%+v", s)
	}
	if s.SuccessfulCount+s.FailedCount != s.TotalRequested {
		t.Fatalf("partition broken")
	}
	for i, want := range []string{"a", "b", "c"} {
		if s.PerConcept[i].Concept != want {
			t.Fatalf("order[%d]=%q", i, s.PerConcept[i].Concept)
		}
	}
}

func TestTestCase_FlexibleValues(t *testing.T) {
	var tc TestCase
	if err := tc.UnmarshalJSON([]byte(`{"input": {"player": "ana", "score": 10}, "expected": 42}`)); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if tc.Input != `{"player":"ana","score":10}` || tc.Expected != "42" {
		t.Fatalf("tc=%+v", tc)
	}
}

func TestErrorKind_TriggersFallback(t *testing.T) {
	for kind, want := range map[ErrorKind]bool{
		ErrorKindNone:                  false,
		ErrorKindConfiguration:         false,
		ErrorKindBackendUnavailable:    true,
		ErrorKindInvalidResponseFormat: true,
		ErrorKindValidation:            true,
		ErrorKindFilesystem:            false,
	} {
		if got := kind.TriggersFallback(); got != want {
			t.Fatalf("%q: got %v", kind, got)
		}
	}
}
