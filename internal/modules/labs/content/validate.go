package content

import (
	"fmt"
	"strings"

	"github.com/yungbote/neurobridge-labgen/internal/domain/labs"
)

// Issue is one violated invariant, addressed by a JSON-ish path like "sections[1].exercises[0].hints".
type Issue struct {
	Field  string `json:"field"`
	Rule   string `json:"rule"`
	Detail string `json:"detail"`
}

type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", is.Field, is.Detail))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == labs.ErrValidation }

type checker struct {
	issues []Issue
}

func (c *checker) add(field, rule, format string, args ...any) {
	c.issues = append(c.issues, Issue{Field: field, Rule: rule, Detail: fmt.Sprintf(format, args...)})
}

func (c *checker) nonEmpty(field, v string) {
	if strings.TrimSpace(v) == "" {
		c.add(field, "required", "must not be empty")
	}
}

func (c *checker) between(field string, v, lo, hi int) {
	if v < lo || v > hi {
		c.add(field, "range", "%d outside [%d, %d]", v, lo, hi)
	}
}

// Validate checks every structural invariant of a lab and reports all
// violations at once. It returns nil or a *ValidationError.
func Validate(lab labs.LabArtifact) error {
	c := &checker{}
	c.nonEmpty("title", lab.Title)
	c.nonEmpty("topic", lab.Topic)
	if !lab.Difficulty.Valid() {
		c.add("difficulty", "enum", "%q is not easy|medium|hard", lab.Difficulty)
	}
	c.between("estimated_time", lab.EstimatedTimeMinutes, labs.MinEstimatedMinutes, labs.MaxEstimatedMinutes)
	c.between("sections.length", len(lab.Sections), labs.MinSections, labs.MaxSections)

	for i, s := range lab.Sections {
		p := fmt.Sprintf("sections[%d]", i)
		c.nonEmpty(p+".concept", s.Concept)
		c.nonEmpty(p+".title", s.Title)
		if !s.Difficulty.Valid() {
			c.add(p+".difficulty", "enum", "%q is not easy|medium|hard", s.Difficulty)
		}
		if !s.ScaffoldingLevel.Valid() {
			c.add(p+".scaffolding_level", "enum", "%q is not low|medium|high", s.ScaffoldingLevel)
		}
		c.between(p+".exercises.length", len(s.Exercises), labs.MinExercises, labs.MaxExercises)
		for j, ex := range s.Exercises {
			ep := fmt.Sprintf("%s.exercises[%d]", p, j)
			if !ex.Type.Valid() {
				c.add(ep+".type", "enum", "%q is not guided|challenge|exploration", ex.Type)
			}
			c.between(ep+".hints", ex.Hints, labs.MinHints, labs.MaxHints)
		}
	}

	if len(c.issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: c.issues}
}
