package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yungbote/neurobridge-labgen/internal/app/config"
	"github.com/yungbote/neurobridge-labgen/internal/domain/labs"
	"github.com/yungbote/neurobridge-labgen/internal/platform/logger"
)

const exportJSON = `{
  "theories": [
    {"topic": "NoSQL", "topic_id": "t1", "concepts": [
      {"name": "CAP Theorem", "definition": "Consistency, availability, partition tolerance."},
      {"name": "Sharding", "definition": "Horizontal partitioning of data."}
    ]},
    {"topic": "Algorithms", "concepts": [
      {"name": "Binary Search", "definition": "Halving search over sorted data."}
    ]}
  ]
}`

func mockConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "export.json")
	if err := os.WriteFile(catalogPath, []byte(exportJSON), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	cfg := config.Default()
	cfg.Generation.Model = "mock"
	cfg.Catalog.Path = catalogPath
	cfg.Output.Dir = filepath.Join(dir, "labs")
	cfg.Observability.MetricsTextfile = filepath.Join(dir, "metrics", "labgen.prom")
	cfg.Ledger.DSN = ":memory:"
	return cfg
}

func TestApp_RunBatchWithMockEngine(t *testing.T) {
	ctx := context.Background()
	cfg := mockConfig(t)
	a, err := New(ctx, logger.NewNop(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close(ctx)

	s, err := a.RunBatch(ctx, "gaming")
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if s.TotalRequested != 3 || s.SuccessfulCount != 3 {
		t.Fatalf("summary=%+v", s)
	}
	if s.PerConcept[2].Concept != "Binary Search" || s.PerConcept[2].Topic != "Algorithms" {
		t.Fatalf("order/topic: %+v", s.PerConcept[2])
	}

	b, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "CAP_Theorem", "lab_content.json"))
	if err != nil {
		t.Fatalf("read lab: %v", err)
	}
	var lab labs.LabArtifact
	if err := json.Unmarshal(b, &lab); err != nil {
		t.Fatalf("decode lab: %v", err)
	}
	if lab.Personalization() != "gaming" {
		t.Fatalf("personalization=%q", lab.Personalization())
	}

	prom, err := os.ReadFile(cfg.Observability.MetricsTextfile)
	if err != nil {
		t.Fatalf("metrics textfile: %v", err)
	}
	if !strings.Contains(string(prom), `labgen_concepts_total{outcome="success",error_kind="unknown"} 3`) {
		t.Fatalf("metrics:\n%s", prom)
	}
}

func TestApp_RunSingle(t *testing.T) {
	ctx := context.Background()
	cfg := mockConfig(t)
	a, err := New(ctx, logger.NewNop(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close(ctx)

	res, err := a.RunSingle(ctx, "sharding", "")
	if err != nil {
		t.Fatalf("RunSingle: %v", err)
	}
	if !res.Success || res.Concept.Name != "Sharding" || res.ModelUsed != "mock" {
		t.Fatalf("res=%+v", res)
	}

	_, err = a.RunSingle(ctx, "Quantum Sorting", "")
	if labs.KindOf(err) != labs.ErrorKindConfiguration {
		t.Fatalf("missing concept err=%v", err)
	}
}

func TestApp_ConfigurationErrors(t *testing.T) {
	ctx := context.Background()

	cfg := mockConfig(t)
	cfg.Generation.Model = "does-not-exist"
	if _, err := New(ctx, logger.NewNop(), cfg); labs.KindOf(err) != labs.ErrorKindConfiguration {
		t.Fatalf("unknown model err=%v", err)
	}

	cfg = mockConfig(t)
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "missing.json")
	a, err := New(ctx, logger.NewNop(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close(ctx)
	if _, err := a.RunBatch(ctx, ""); labs.KindOf(err) != labs.ErrorKindConfiguration {
		t.Fatalf("missing catalog err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Output.Dir, cfg.Output.SummaryFile)); !os.IsNotExist(err) {
		t.Fatalf("summary written for a run that never started")
	}
}

func TestPromptOptions_ConfiguredTemperature(t *testing.T) {
	for _, temp := range []float64{0, 0.7, 1.5} {
		cfg := config.Default()
		cfg.Generation.Temperature = temp
		a := &App{Cfg: cfg}
		opts := a.promptOptions()
		if opts.Temperature == nil || *opts.Temperature != temp {
			t.Fatalf("temperature %v -> %v", temp, opts.Temperature)
		}
	}
}
