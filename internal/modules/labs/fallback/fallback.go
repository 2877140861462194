// Package fallback synthesizes a lab from concept data alone. Its output
// always passes content.Validate, so a concept never ends up without a lab.
package fallback

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yungbote/neurobridge-labgen/internal/domain/labs"
)

// Checked in order; the first keyword found in the name or definition wins.
var difficultyKeywords = []struct {
	keyword    string
	difficulty labs.Difficulty
}{
	{"database", labs.DifficultyMedium},
	{"algorithm", labs.DifficultyHard},
	{"system", labs.DifficultyHard},
	{"data", labs.DifficultyEasy},
	{"processing", labs.DifficultyMedium},
	{"analysis", labs.DifficultyMedium},
	{"storage", labs.DifficultyEasy},
	{"framework", labs.DifficultyMedium},
	{"model", labs.DifficultyHard},
	{"technique", labs.DifficultyMedium},
}

var baseMinutes = map[labs.Difficulty]int{
	labs.DifficultyEasy:   30,
	labs.DifficultyMedium: 45,
	labs.DifficultyHard:   60,
}

const minutesPerExtraSection = 15

func Difficulty(name, definition string) labs.Difficulty {
	n := strings.ToLower(name)
	d := strings.ToLower(definition)
	for _, k := range difficultyKeywords {
		if strings.Contains(n, k.keyword) || strings.Contains(d, k.keyword) {
			return k.difficulty
		}
	}
	switch l := utf8.RuneCountInString(definition); {
	case l > 200:
		return labs.DifficultyHard
	case l > 100:
		return labs.DifficultyMedium
	default:
		return labs.DifficultyEasy
	}
}

func EstimatedMinutes(d labs.Difficulty, sections int) int {
	base, ok := baseMinutes[d]
	if !ok {
		base = 45
	}
	if sections < 1 {
		sections = 1
	}
	return base + (sections-1)*minutesPerExtraSection
}

// Generate is pure and deterministic in (concept, personalization).
func Generate(concept labs.Concept, personalization string) labs.LabArtifact {
	name := strings.TrimSpace(concept.Name)
	if name == "" {
		name = "Untitled concept"
	}
	definition := strings.TrimSpace(concept.Definition)
	topic := strings.TrimSpace(concept.TopicName)
	if topic == "" {
		topic = "Unknown"
	}
	personalization = strings.TrimSpace(personalization)

	difficulty := Difficulty(name, definition)

	title := "Hands-On Lab: " + name
	if personalization != "" {
		title += " in " + titleCase(personalization)
	}

	background := definition
	if background == "" {
		background = "This lab introduces " + name + "."
	}

	sections := []labs.LabSection{{
		Concept:          name,
		Title:            "Exploring " + name,
		Difficulty:       difficulty,
		ScaffoldingLevel: labs.ScaffoldingMedium,
		Exercises:        coreExercises(name, difficulty, personalization),
		LearningObjectives: []string{
			"Understand the fundamentals of " + name,
			"Apply " + name + " in practical scenarios",
			"Implement solutions using " + name,
		},
		Background: background,
	}}
	if difficulty == labs.DifficultyHard {
		sections = append(sections, appliedSection(name, personalization))
	}

	prereqs := []string{"Basic programming knowledge"}
	if topic != "Unknown" {
		prereqs = append(prereqs, "Familiarity with "+topic)
	}

	var pc *string
	if personalization != "" {
		p := personalization
		pc = &p
	}

	return labs.LabArtifact{
		Title:                  title,
		Topic:                  topic,
		Difficulty:             difficulty,
		EstimatedTimeMinutes:   EstimatedMinutes(difficulty, len(sections)),
		Sections:               sections,
		Prerequisites:          prereqs,
		Technologies:           []string{"Python", "Jupyter Notebook"},
		PersonalizationContext: pc,
	}
}

func coreExercises(name string, difficulty labs.Difficulty, personalization string) []labs.Exercise {
	hints := 2
	if difficulty == labs.DifficultyEasy {
		hints = 3
	}
	out := []labs.Exercise{{
		Type:        labs.ExerciseGuided,
		Hints:       hints,
		Description: withScenario("Implement a basic example demonstrating "+name, personalization),
		StarterCode: fmt.Sprintf("# TODO: Implement %s\n# Your code here\n", name),
		Solution:    fmt.Sprintf("# Solution for %s\n# Implementation details\n", name),
		TestCases:   []labs.TestCase{{Input: "test_input", Expected: "expected_output"}},
	}}
	if difficulty != labs.DifficultyEasy {
		out = append(out, labs.Exercise{
			Type:        labs.ExerciseChallenge,
			Hints:       1,
			Description: withScenario("Apply "+name+" to solve a real-world problem", personalization),
			StarterCode: fmt.Sprintf("# Challenge: Advanced %s\n", name),
			Solution:    "# Advanced solution\n",
			TestCases:   []labs.TestCase{},
		})
	}
	return out
}

func appliedSection(name, personalization string) labs.LabSection {
	return labs.LabSection{
		Concept:          name,
		Title:            "Applying " + name,
		Difficulty:       labs.DifficultyHard,
		ScaffoldingLevel: labs.ScaffoldingLow,
		Exercises: []labs.Exercise{{
			Type:        labs.ExerciseExploration,
			Hints:       2,
			Description: withScenario("Explore the trade-offs of "+name+" by extending your earlier solution", personalization),
			StarterCode: fmt.Sprintf("# Exploration: %s trade-offs\n", name),
			Solution:    "# Open-ended: compare at least two approaches\n",
			TestCases:   []labs.TestCase{},
		}},
		LearningObjectives: []string{
			"Evaluate trade-offs when applying " + name,
		},
		Background: "Build on the first section and measure how design choices change behavior.",
	}
}

func withScenario(desc, personalization string) string {
	if personalization == "" {
		return desc + "."
	}
	return desc + " using a " + personalization + " scenario."
}

// titleCase upper-cases the first letter of each run of letters and lower-cases the rest.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToTitle(r))
			}
			prevLetter = true
			continue
		}
		prevLetter = false
		b.WriteRune(r)
	}
	return b.String()
}
