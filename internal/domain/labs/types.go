package labs

import (
	"bytes"
	"encoding/json"
	"strings"
)

type ExerciseType string

const (
	ExerciseGuided      ExerciseType = "guided"
	ExerciseChallenge   ExerciseType = "challenge"
	ExerciseExploration ExerciseType = "exploration"
)

func (t ExerciseType) Valid() bool {
	switch t {
	case ExerciseGuided, ExerciseChallenge, ExerciseExploration:
		return true
	}
	return false
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

type ScaffoldingLevel string

const (
	ScaffoldingLow    ScaffoldingLevel = "low"
	ScaffoldingMedium ScaffoldingLevel = "medium"
	ScaffoldingHigh   ScaffoldingLevel = "high"
)

func (s ScaffoldingLevel) Valid() bool {
	switch s {
	case ScaffoldingLow, ScaffoldingMedium, ScaffoldingHigh:
		return true
	}
	return false
}

// Bounds every persisted LabArtifact must respect.
const (
	MinHints            = 0
	MaxHints            = 5
	MinSections         = 1
	MaxSections         = 3
	MinExercises        = 1
	MaxExercises        = 3
	MinEstimatedMinutes = 15
	MaxEstimatedMinutes = 180
)

// Concept is a knowledge-graph concept as read from the catalog. Name is its identity.
type Concept struct {
	Name         string `json:"name"`
	Definition   string `json:"definition"`
	TopicName    string `json:"topic"`
	TopicID      string `json:"topic_id,omitempty"`
	TextEvidence string `json:"text_evidence,omitempty"`
}

type ModelParameters struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// GenerationRequest is built once per attempt and discarded afterwards.
type GenerationRequest struct {
	Concept                Concept
	PersonalizationContext string
	Params                 ModelParameters

	System     string
	User       string
	SchemaName string
	Schema     map[string]any
}

// TestCase values are usually strings; non-string JSON values are kept in compact JSON form.
type TestCase struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
}

func (tc *TestCase) UnmarshalJSON(b []byte) error {
	var raw struct {
		Input    json.RawMessage `json:"input"`
		Expected json.RawMessage `json:"expected"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	in, err := flexString(raw.Input)
	if err != nil {
		return err
	}
	exp, err := flexString(raw.Expected)
	if err != nil {
		return err
	}
	tc.Input, tc.Expected = in, exp
	return nil
}

func flexString(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type Exercise struct {
	Type        ExerciseType `json:"type"`
	Hints       int          `json:"hints"`
	Description string       `json:"description"`
	StarterCode string       `json:"starter_code"`
	Solution    string       `json:"solution"`
	TestCases   []TestCase   `json:"test_cases"`
}

type LabSection struct {
	Concept            string           `json:"concept"`
	Title              string           `json:"title"`
	Difficulty         Difficulty       `json:"difficulty"`
	ScaffoldingLevel   ScaffoldingLevel `json:"scaffolding_level"`
	Exercises          []Exercise       `json:"exercises"`
	LearningObjectives []string         `json:"learning_objectives"`
	Background         string           `json:"background"`
}

type LabArtifact struct {
	Title                  string       `json:"title"`
	Topic                  string       `json:"topic"`
	Difficulty             Difficulty   `json:"difficulty"`
	EstimatedTimeMinutes   int          `json:"estimated_time"`
	Sections               []LabSection `json:"sections"`
	Prerequisites          []string     `json:"prerequisites"`
	Technologies           []string     `json:"technologies"`
	PersonalizationContext *string      `json:"personalization_context"`
}

// Personalization returns the artifact's personalization context, or "".
func (l LabArtifact) Personalization() string {
	if l.PersonalizationContext == nil {
		return ""
	}
	return strings.TrimSpace(*l.PersonalizationContext)
}

// ModelTemplate is recorded as model_used for artifacts from the fallback generator.
const ModelTemplate = "template"

type GenerationResult struct {
	Artifact               LabArtifact
	Concept                Concept
	SourceTopic            string
	ModelUsed              string
	PersonalizationApplied bool
	Success                bool
	ErrorKind              ErrorKind
	// Error is a human-readable description of the failure that produced ErrorKind.
	Error string
}

type ConceptOutcome struct {
	Concept              string     `json:"concept"`
	Topic                string     `json:"topic"`
	Title                string     `json:"title"`
	Difficulty           Difficulty `json:"difficulty"`
	EstimatedTimeMinutes int        `json:"estimated_time"`
	SectionCount         int        `json:"num_sections"`
	Success              bool       `json:"success"`
	ErrorKind            ErrorKind  `json:"error_kind,omitempty"`
	Error                string     `json:"error,omitempty"`
}
