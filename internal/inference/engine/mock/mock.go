package mock

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/neurobridge-labgen/internal/inference/engine"
)

// Engine answers offline. Schema-constrained requests get a small lab document
// built from the "Concept:" and "Personalization:" lines of the last user message.
type Engine struct{}

func New() *Engine {
	return &Engine{}
}

func (e *Engine) GenerateText(ctx context.Context, model string, messages []engine.Message, opts engine.GenerateOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	_ = model

	var user string
	for i := len(messages) - 1; i >= 0; i-- {
		if strings.EqualFold(messages[i].Role, "user") {
			user = messages[i].Content
			break
		}
	}

	if opts.JSONSchema != nil {
		b, err := json.Marshal(labDocument(user))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	if strings.TrimSpace(user) == "" {
		return "mock: ok", nil
	}
	return fmt.Sprintf("mock: %s", user), nil
}

func labDocument(prompt string) map[string]any {
	concept := promptField(prompt, "Concept:")
	if concept == "" {
		concept = "Concept"
	}
	topic := promptField(prompt, "Topic:")
	if topic == "" {
		topic = "Unknown"
	}
	personalization := promptField(prompt, "Personalization:")

	difficulties := []string{"easy", "medium", "hard"}
	h := sha256.Sum256([]byte(concept))
	difficulty := difficulties[int(h[0])%len(difficulties)]

	title := "Lab: " + concept
	var pc any
	if personalization != "" && !strings.EqualFold(personalization, "none") {
		title += " (" + personalization + ")"
		pc = personalization
	}

	return map[string]any{
		"title":          title,
		"topic":          topic,
		"difficulty":     difficulty,
		"estimated_time": 45,
		"sections": []any{
			map[string]any{
				"concept":           concept,
				"title":             "Working with " + concept,
				"difficulty":        difficulty,
				"scaffolding_level": "medium",
				"learning_objectives": []string{
					"Explain " + concept,
					"Apply " + concept + " in a small program",
				},
				"background": "Mock background for " + concept + ".",
				"exercises": []any{
					map[string]any{
						"type":         "guided",
						"hints":        2,
						"description":  "Implement a minimal example of " + concept + ".",
						"starter_code": "# TODO: implement",
						"solution":     "# reference solution",
						"test_cases":   []any{map[string]any{"input": "example", "expected": "result"}},
					},
				},
			},
		},
		"prerequisites":          []string{"Basic programming"},
		"technologies":           []string{"Python"},
		"personalization_context": pc,
	}
}

func promptField(prompt, prefix string) string {
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	return ""
}
