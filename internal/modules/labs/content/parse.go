package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/neurobridge-labgen/internal/domain/labs"
)

// Parse turns raw backend text into a validated lab. Text that is not a JSON
// object of the right shape fails with InvalidResponseFormat; a well-formed
// lab that breaks an invariant fails with ValidationError.
func Parse(raw string) (labs.LabArtifact, error) {
	body, err := extractObject(raw)
	if err != nil {
		return labs.LabArtifact{}, labs.NewError(labs.ErrorKindInvalidResponseFormat, "parse", err)
	}

	var lab labs.LabArtifact
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&lab); err != nil {
		return labs.LabArtifact{}, labs.NewError(labs.ErrorKindInvalidResponseFormat, "parse", describeDecodeError(err))
	}
	normalize(&lab)

	if err := Validate(lab); err != nil {
		return labs.LabArtifact{}, labs.NewError(labs.ErrorKindValidation, "validate", err)
	}
	return lab, nil
}

// ParseAttempt packages Parse for the orchestrator's success/fallback switch.
func ParseAttempt(raw string) labs.Attempt {
	lab, err := Parse(raw)
	if err != nil {
		return labs.Failed(err)
	}
	return labs.Succeeded(lab)
}

// Issues returns the invariant violations carried by err, if any.
func Issues(err error) []Issue {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Issues
	}
	return nil
}

func extractObject(raw string) ([]byte, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, errors.New("empty response")
	}
	// Fences may legitimately appear inside string values (starter code,
	// solutions), so a document that is already valid JSON is taken as is.
	if json.Valid([]byte(s)) {
		return asObject(s)
	}
	unfenced := stripFences(s)
	if unfenced == "" {
		return nil, errors.New("empty response")
	}
	if json.Valid([]byte(unfenced)) {
		return asObject(unfenced)
	}
	// Prose around the object: keep the outermost braces.
	sawBraces := false
	for _, candidate := range []string{unfenced, s} {
		start := strings.IndexByte(candidate, '{')
		end := strings.LastIndexByte(candidate, '}')
		if start < 0 || end <= start {
			continue
		}
		sawBraces = true
		if obj := candidate[start : end+1]; json.Valid([]byte(obj)) {
			return []byte(obj), nil
		}
	}
	if !sawBraces {
		return nil, errors.New("response contains no JSON object")
	}
	return nil, errors.New("response is not valid JSON")
}

func asObject(s string) ([]byte, error) {
	if s[0] != '{' {
		return nil, errors.New("response is JSON but not an object")
	}
	return []byte(s), nil
}

func stripFences(s string) string {
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	rest := s[start+3:]
	// Skip the info string ("json") up to the first newline.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	} else {
		return strings.TrimSpace(strings.Trim(rest, "`"))
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

func describeDecodeError(err error) error {
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		field := te.Field
		if field == "" {
			field = "(root)"
		}
		return fmt.Errorf("field %s: expected %s, got JSON %s", field, te.Type, te.Value)
	}
	return err
}

func normalize(lab *labs.LabArtifact) {
	lab.Title = strings.TrimSpace(lab.Title)
	lab.Topic = strings.TrimSpace(lab.Topic)
	lab.Difficulty = labs.Difficulty(strings.ToLower(strings.TrimSpace(string(lab.Difficulty))))
	if lab.PersonalizationContext != nil && strings.TrimSpace(*lab.PersonalizationContext) == "" {
		lab.PersonalizationContext = nil
	}
	for i := range lab.Sections {
		s := &lab.Sections[i]
		s.Difficulty = labs.Difficulty(strings.ToLower(strings.TrimSpace(string(s.Difficulty))))
		s.ScaffoldingLevel = labs.ScaffoldingLevel(strings.ToLower(strings.TrimSpace(string(s.ScaffoldingLevel))))
		for j := range s.Exercises {
			ex := &s.Exercises[j]
			ex.Type = labs.ExerciseType(strings.ToLower(strings.TrimSpace(string(ex.Type))))
		}
	}
}
