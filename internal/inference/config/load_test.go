package config

import (
	"encoding/json"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDuration_JSONAndYAML(t *testing.T) {
	var j struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":"45s","b":1000000000}`), &j); err != nil {
		t.Fatalf("json: %v", err)
	}
	if j.A.Duration != 45*time.Second || j.B.Duration != time.Second {
		t.Fatalf("json=%+v", j)
	}

	var y struct {
		A Duration `yaml:"a"`
		B Duration `yaml:"b"`
	}
	if err := yaml.Unmarshal([]byte("a: 1m30s\nb: \"2s\"\n"), &y); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if y.A.Duration != 90*time.Second || y.B.Duration != 2*time.Second {
		t.Fatalf("yaml=%+v", y)
	}
	if err := yaml.Unmarshal([]byte("a: soon\n"), &y); err == nil {
		t.Fatalf("expected error for bad duration")
	}
}

func TestNormalizeModels(t *testing.T) {
	models := []ModelConfig{
		{ID: " gpt-4 ", Engine: EngineConfig{Type: "OpenAI_HTTP"}},
		{ID: "offline", Engine: EngineConfig{Type: "mock"}},
	}
	if err := NormalizeModels(models); err != nil {
		t.Fatalf("NormalizeModels: %v", err)
	}
	m := models[0]
	if m.ID != "gpt-4" || m.UpstreamModel != "gpt-4" {
		t.Fatalf("ids=%q/%q", m.ID, m.UpstreamModel)
	}
	if m.Engine.Type != EngineOAIHTTP || m.Engine.BaseURL != DefaultOpenAIBaseURL {
		t.Fatalf("engine=%+v", m.Engine)
	}
	if m.Engine.ChatCompletionsPath != "/v1/chat/completions" || m.Engine.JSONSchema.Mode != "auto" {
		t.Fatalf("defaults not applied: %+v", m.Engine)
	}
	if !m.Engine.RequiresAPIKey() {
		t.Fatalf("public endpoint should require an api key")
	}
	if models[1].Engine.RequiresAPIKey() {
		t.Fatalf("mock should not require a key")
	}
}

func TestNormalizeModels_Errors(t *testing.T) {
	cases := map[string][]ModelConfig{
		"empty":     nil,
		"no id":     {{Engine: EngineConfig{Type: "mock"}}},
		"duplicate": {{ID: "a", Engine: EngineConfig{Type: "mock"}}, {ID: "a", Engine: EngineConfig{Type: "mock"}}},
		"no type":   {{ID: "a"}},
		"bad type":  {{ID: "a", Engine: EngineConfig{Type: "grpc"}}},
		"bad mode":  {{ID: "a", Engine: EngineConfig{Type: "oai_http", JSONSchema: JSONSchemaConfig{Mode: "xml"}}}},
	}
	for name, models := range cases {
		if err := NormalizeModels(models); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
