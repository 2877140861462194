package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yungbote/neurobridge-labgen/internal/domain/labs"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LABGEN_CONFIG_PATH", "LOG_MODE", "LABGEN_OUTPUT_DIR", "LABGEN_CATALOG_PATH", "LABGEN_CATALOG_SOURCE",
		"LABGEN_CONCURRENCY", "LABGEN_CONCEPT_TIMEOUT", "OPENAI_MODEL", "OPENAI_API_KEY", "OPENAI_BASE_URL",
		"GEMINI_API_KEY", "NEO4J_URI", "REDIS_ADDR", "LABGEN_LEDGER_DSN", "OTEL_ENABLED",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "labgen.yaml")
	yamlDoc := `
catalog:
  path: export.json
output:
  dir: out
generation:
  model: mock
  temperature: 0.2
pipeline:
  concurrency: 2
  concept_timeout: 30s
models:
  - id: mock
    engine:
      type: mock
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("LABGEN_CONCURRENCY", "8")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Catalog.Path != "export.json" || cfg.Output.Dir != "out" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Pipeline.Concurrency != 8 {
		t.Fatalf("env override lost: concurrency=%d", cfg.Pipeline.Concurrency)
	}
	if cfg.Pipeline.ConceptTimeout.Duration != 30*time.Second {
		t.Fatalf("timeout=%v", cfg.Pipeline.ConceptTimeout.Duration)
	}
	if cfg.Generation.Temperature != 0.2 || len(cfg.Models) != 1 {
		t.Fatalf("generation=%+v models=%d", cfg.Generation, len(cfg.Models))
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if labs.KindOf(err) != labs.ErrorKindConfiguration {
		t.Fatalf("err=%v", err)
	}
}

func TestValidate_MissingAPIKey(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	err = cfg.Validate()
	if labs.KindOf(err) != labs.ErrorKindConfiguration {
		t.Fatalf("expected configuration error, got %v", err)
	}

	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, _ = Load("")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate with key: %v", err)
	}
	route, _ := cfg.Route()
	if route.Engine.APIKey != "sk-test" || route.Engine.BaseURL == "" {
		t.Fatalf("route=%+v", route)
	}
}

func TestValidate_Cases(t *testing.T) {
	clearEnv(t)
	cases := map[string]func(c *Config){
		"unknown model":      func(c *Config) { c.Generation.Model = "gpt-5" },
		"gemini without key": func(c *Config) { c.Generation.Model = "gemini" },
		"no catalog path":    func(c *Config) { c.Catalog.Path = "" },
		"neo4j without uri":  func(c *Config) { c.Catalog.Source = "neo4j" },
		"bad catalog source": func(c *Config) { c.Catalog.Source = "csv" },
		"zero concurrency":   func(c *Config) { c.Pipeline.Concurrency = 0 },
		"negative limit":     func(c *Config) { c.Pipeline.Limit = -1 },
		"bad admission":      func(c *Config) { c.Admission.Mode = "zookeeper" },
		"redis without addr": func(c *Config) { c.Admission.Mode = "redis"; c.Admission.RatePerSecond = 1 },
		"bad ledger":         func(c *Config) { c.Ledger.Driver = "mysql" },
		"summary path":       func(c *Config) { c.Output.SummaryFile = "../x.json" },
	}
	for name, mutate := range cases {
		cfg := Default()
		cfg.Generation.Model = "mock"
		mutate(cfg)
		if err := cfg.Validate(); labs.KindOf(err) != labs.ErrorKindConfiguration {
			t.Fatalf("%s: expected configuration error, got %v", name, err)
		}
	}

	cfg := Default()
	cfg.Generation.Model = "mock"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("mock defaults should validate: %v", err)
	}
}
