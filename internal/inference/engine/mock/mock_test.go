package mock

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/yungbote/neurobridge-labgen/internal/inference/engine"
)

func TestGenerateText_LabDocument(t *testing.T) {
	e := New()
	msgs := []engine.Message{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "Concept: CAP Theorem\nTopic: Distributed Systems\nPersonalization: gaming\n"},
	}
	opts := engine.GenerateOptions{JSONSchema: &engine.JSONSchema{Name: "personalized_lab"}}
	a, err := e.GenerateText(context.Background(), "mock", msgs, opts)
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	b, _ := e.GenerateText(context.Background(), "mock", msgs, opts)
	if a != b {
		t.Fatalf("mock output not deterministic")
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(a), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc["topic"] != "Distributed Systems" || doc["personalization_context"] != "gaming" {
		t.Fatalf("doc=%v", doc)
	}
}

func TestGenerateText_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().GenerateText(ctx, "mock", nil, engine.GenerateOptions{}); err == nil {
		t.Fatalf("expected context error")
	}
}
