package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/neurobridge-labgen/internal/app/config"
)

func TestApplyFlags_OnlyChanged(t *testing.T) {
	root := newRootCmd()
	batch, _, err := root.Find([]string{"batch"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if err := batch.ParseFlags([]string{"--model", "mock", "--concept-timeout", "30s", "--personalize", "music"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	f := &runFlags{model: "mock", conceptTimeout: 30 * time.Second, personalize: "music"}

	cfg := config.Default()
	cfg.Generation.Temperature = 0.2
	applyFlags(batch, f, cfg)

	if cfg.Generation.Model != "mock" || cfg.Pipeline.ConceptTimeout.Duration != 30*time.Second {
		t.Fatalf("model=%q timeout=%v", cfg.Generation.Model, cfg.Pipeline.ConceptTimeout.Duration)
	}
	if cfg.Generation.Personalization != "music" {
		t.Fatalf("personalization=%q", cfg.Generation.Personalization)
	}
	if cfg.Generation.Temperature != 0.2 {
		t.Fatalf("unchanged flag overwrote config: %v", cfg.Generation.Temperature)
	}
}

func TestValidatePaths(t *testing.T) {
	dir := t.TempDir()
	good := `{"title":"Lab","topic":"T","difficulty":"easy","estimated_time":30,
"sections":[{"concept":"C","title":"S","difficulty":"easy","scaffolding_level":"high",
"exercises":[{"type":"guided","hints":2,"description":"d","starter_code":"s","solution":"x","test_cases":[]}],
"learning_objectives":["o"],"background":"b"}],"prerequisites":[],"technologies":["Python"],"personalization_context":null}`
	bad := strings.Replace(good, `"hints":2`, `"hints":7`, 1)

	for name, body := range map[string]string{"Good": good, "Bad": bad} {
		p := filepath.Join(dir, name, "lab_content.json")
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	var out bytes.Buffer
	failed, err := validatePaths(&out, []string{dir})
	if err != nil {
		t.Fatalf("validatePaths: %v", err)
	}
	if failed != 1 {
		t.Fatalf("failed=%d\n%s", failed, out.String())
	}
	if !strings.Contains(out.String(), "sections[0].exercises[0].hints") {
		t.Fatalf("issue path missing:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "2 file(s) checked, 1 failed") {
		t.Fatalf("tally missing:\n%s", out.String())
	}
}
