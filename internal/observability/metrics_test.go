package observability

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/neurobridge-labgen/internal/domain/labs"
)

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveBackend("gpt-4", "200", time.Second)
	m.ObserveConcept(labs.GenerationResult{Success: true}, time.Second)
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
}

func TestMetrics_ConceptOutcomes(t *testing.T) {
	m := NewMetrics()
	m.ObserveConcept(labs.GenerationResult{Success: true, ModelUsed: "gpt-4"}, time.Second)
	m.ObserveConcept(labs.GenerationResult{ModelUsed: labs.ModelTemplate, ErrorKind: labs.ErrorKindValidation}, time.Second)
	m.ObserveConcept(labs.GenerationResult{ModelUsed: labs.ModelTemplate, ErrorKind: labs.ErrorKindValidation}, time.Second)
	m.ObserveConcept(labs.GenerationResult{ModelUsed: "gpt-4", ErrorKind: labs.ErrorKindFilesystem}, time.Second)

	if got := m.ConceptCount("success", labs.ErrorKindNone); got != 1 {
		t.Fatalf("success=%v", got)
	}
	if got := m.ConceptCount("fallback", labs.ErrorKindValidation); got != 2 {
		t.Fatalf("fallback=%v", got)
	}
	if got := m.ConceptCount("failed", labs.ErrorKindFilesystem); got != 1 {
		t.Fatalf("failed=%v", got)
	}
	if got := m.FallbackCount(labs.ErrorKindValidation); got != 2 {
		t.Fatalf("fallback_total=%v", got)
	}
}

func TestMetrics_StorageCollisionIsNotAFallback(t *testing.T) {
	m := NewMetrics()
	// A storage key collision carries the template artifact but never reached the backend.
	m.ObserveConcept(labs.GenerationResult{ModelUsed: labs.ModelTemplate, ErrorKind: labs.ErrorKindFilesystem}, time.Second)
	m.ObserveConcept(labs.GenerationResult{ModelUsed: labs.ModelTemplate, ErrorKind: labs.ErrorKindBackendUnavailable}, time.Second)

	if got := m.FallbackCount(labs.ErrorKindFilesystem); got != 0 {
		t.Fatalf("fallback_total{filesystem_error}=%v", got)
	}
	if got := m.ConceptCount("failed", labs.ErrorKindFilesystem); got != 1 {
		t.Fatalf("failed=%v", got)
	}
	if got := m.FallbackCount(labs.ErrorKindBackendUnavailable); got != 1 {
		t.Fatalf("fallback_total{backend_unavailable}=%v", got)
	}
}

func TestMetrics_TextfileExposition(t *testing.T) {
	m := NewMetrics()
	m.ObserveBackend("gpt-4", "200", 1500*time.Millisecond)
	m.ObserveBackend("gpt-4", "503", 200*time.Millisecond)

	path := filepath.Join(t.TempDir(), "metrics", "labgen.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	out := string(b)
	for _, want := range []string{
		"# TYPE labgen_backend_requests_total counter",
		`labgen_backend_requests_total{model="gpt-4",status="503"} 1`,
		`labgen_backend_requests_total{model="gpt-4",status="200"} 1`,
		`labgen_backend_latency_seconds_bucket{model="gpt-4",le="2.5"} 2`,
		`labgen_backend_latency_seconds_bucket{model="gpt-4",le="0.5"} 1`,
		`labgen_backend_latency_seconds_count{model="gpt-4"} 2`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	// Status label order is stable.
	if strings.Index(out, `status="200"`) > strings.Index(out, `status="503"`) {
		t.Fatalf("labels not sorted:\n%s", out)
	}
}

func TestLabelString_EmptyValueIsUnknown(t *testing.T) {
	got := labelString([]string{"outcome", "error_kind"}, []string{"success", ""})
	if got != `{outcome="success",error_kind="unknown"}` {
		t.Fatalf("got %s", got)
	}
	var buf bytes.Buffer
	c := NewCounterVec("x_total", "x", []string{"k"})
	c.Inc(`a"b`)
	if err := c.WritePrometheus(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), `x_total{k="a\"b"} 1`) {
		t.Fatalf("escaping: %s", buf.String())
	}
}
