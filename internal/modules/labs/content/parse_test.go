package content

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-labgen/internal/domain/labs"
)

const validLab = `{
  "title": "Partition-Tolerant Leaderboards: CAP Theorem",
  "topic": "NoSQL",
  "difficulty": "medium",
  "estimated_time": 60,
  "sections": [{
    "concept": "CAP Theorem",
    "title": "Choosing consistency for a leaderboard",
    "difficulty": "medium",
    "scaffolding_level": "high",
    "learning_objectives": ["Explain the CAP trade-off"],
    "background": "Distributed stores pick two of three.",
    "exercises": [{
      "type": "guided",
      "hints": 3,
      "description": "Simulate a partition between two leaderboard replicas.",
      "starter_code": "def merge(a, b):\n    pass",
      "solution": "def merge(a, b):\n    return max(a, b)",
      "test_cases": [{"input": "merge(1, 2)", "expected": "2"}]
    }]
  }],
  "prerequisites": ["Python basics"],
  "technologies": ["Python", "Redis"],
  "personalization_context": "gaming",
  "model_notes": "unknown fields are ignored"
}`

func TestParse_Valid(t *testing.T) {
	lab, err := Parse(validLab)
	require.NoError(t, err)
	require.Equal(t, "NoSQL", lab.Topic)
	require.Equal(t, labs.DifficultyMedium, lab.Difficulty)
	require.Len(t, lab.Sections, 1)
	require.Equal(t, 3, lab.Sections[0].Exercises[0].Hints)
	require.Equal(t, "gaming", lab.Personalization())
}

func TestParse_FencedAndProse(t *testing.T) {
	codeFenceLab := strings.Replace(validLab,
		`"starter_code": "def merge(a, b):\n    pass"`,
		`"starter_code": "`+"```"+`python\ndef merge(a, b):\n    pass\n`+"```"+`"`, 1)
	require.NotEqual(t, validLab, codeFenceLab)

	for name, raw := range map[string]string{
		"fence inside a string":        codeFenceLab,
		"fence inside a fenced object": "```json\n" + codeFenceLab + "\n```",
		"fence inside, prose around":   "Here you go:\n" + codeFenceLab + "\nDone.",
		"fenced":                       "```json\n" + validLab + "\n```",
		"bare fence":                   "```\n" + validLab + "\n```",
		"prose around":                 "Here is your lab:\n" + validLab + "\nLet me know if you want changes.",
		"fence+prose":                  "Sure!\n```json\n" + validLab + "\n```\nEnjoy.",
	} {
		lab, err := Parse(raw)
		require.NoError(t, err, name)
		require.Contains(t, lab.Title, "CAP Theorem", name)
	}
}

func TestParse_MarshaledLabWithCodeFences(t *testing.T) {
	want, err := Parse(validLab)
	require.NoError(t, err)
	want.Sections[0].Exercises[0].StarterCode = "```python\nprint(1)\n```"
	want.Sections[0].Exercises[0].Solution = "```\nprint(2)\n```"

	raw, err := json.MarshalIndent(want, "", "  ")
	require.NoError(t, err)

	got, err := Parse(string(raw))
	require.NoError(t, err)
	require.Equal(t, want.Sections[0].Exercises[0].StarterCode, got.Sections[0].Exercises[0].StarterCode)
	require.Equal(t, want.Sections[0].Exercises[0].Solution, got.Sections[0].Exercises[0].Solution)
}

func TestParse_InvalidFormat(t *testing.T) {
	for name, raw := range map[string]string{
		"empty":       "   ",
		"prose":       "I'm sorry, I can't help with that.",
		"array":       `[{"title": "x"}]`,
		"truncated":   `{"title": "x", "sections": [`,
		"hints words": strings.Replace(validLab, `"hints": 3`, `"hints": "three"`, 1),
		"time string": strings.Replace(validLab, `"estimated_time": 60`, `"estimated_time": "an hour"`, 1),
	} {
		_, err := Parse(raw)
		require.Error(t, err, name)
		require.Equal(t, labs.ErrorKindInvalidResponseFormat, labs.KindOf(err), name)
		require.True(t, errors.Is(err, labs.ErrInvalidResponseFormat), name)
	}
}

func TestParse_HintsOutOfRange(t *testing.T) {
	raw := strings.Replace(validLab, `"hints": 3`, `"hints": 7`, 1)
	_, err := Parse(raw)
	require.Error(t, err)
	require.Equal(t, labs.ErrorKindValidation, labs.KindOf(err))
	require.True(t, errors.Is(err, labs.ErrValidation))

	issues := Issues(err)
	require.Len(t, issues, 1)
	require.Equal(t, "sections[0].exercises[0].hints", issues[0].Field)
	require.Equal(t, "range", issues[0].Rule)
}

func TestParse_FlexibleTestCases(t *testing.T) {
	raw := strings.Replace(validLab, `{"input": "merge(1, 2)", "expected": "2"}`, `{"input": [1, 2], "expected": 2}`, 1)
	lab, err := Parse(raw)
	require.NoError(t, err)
	tc := lab.Sections[0].Exercises[0].TestCases[0]
	require.Equal(t, "[1,2]", tc.Input)
	require.Equal(t, "2", tc.Expected)
}

func TestParse_NullPersonalization(t *testing.T) {
	raw := strings.Replace(validLab, `"personalization_context": "gaming"`, `"personalization_context": null`, 1)
	lab, err := Parse(raw)
	require.NoError(t, err)
	require.Nil(t, lab.PersonalizationContext)
}

func TestParseAttempt(t *testing.T) {
	ok := ParseAttempt(validLab)
	require.True(t, ok.OK())

	bad := ParseAttempt("not json")
	require.False(t, bad.OK())
	require.Equal(t, labs.ErrorKindInvalidResponseFormat, bad.Kind)
}
