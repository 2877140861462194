package observability

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/yungbote/neurobridge-labgen/internal/domain/labs"
)

// Metrics holds the counters for one process. A nil *Metrics is valid and
// records nothing, so callers never need to check whether metrics are on.
type Metrics struct {
	concepts        *CounterVec
	fallbacks       *CounterVec
	backendRequests *CounterVec
	backendLatency  *HistogramVec
	conceptDuration *HistogramVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		concepts: NewCounterVec(
			"labgen_concepts_total",
			"Concepts processed by outcome and error kind.",
			[]string{"outcome", "error_kind"},
		),
		fallbacks: NewCounterVec(
			"labgen_fallback_total",
			"Template fallbacks by triggering error kind.",
			[]string{"error_kind"},
		),
		backendRequests: NewCounterVec(
			"labgen_backend_requests_total",
			"Generative backend calls by model and status.",
			[]string{"model", "status"},
		),
		backendLatency: NewHistogramVec(
			"labgen_backend_latency_seconds",
			"Generative backend call latency in seconds by model.",
			[]string{"model"},
			[]float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 90, 120},
		),
		conceptDuration: NewHistogramVec(
			"labgen_concept_duration_seconds",
			"Wall time per concept from request build to persisted output.",
			[]string{"outcome"},
			nil,
		),
	}
}

// ObserveBackend records one backend call. status is an HTTP status code or a
// short failure label such as "timeout" (see httpx.StatusLabel).
func (m *Metrics) ObserveBackend(model, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.backendRequests.Inc(model, status)
	if dur > 0 {
		m.backendLatency.Observe(dur.Seconds(), model)
	}
}

func (m *Metrics) ObserveConcept(r labs.GenerationResult, dur time.Duration) {
	if m == nil {
		return
	}
	outcome := outcomeLabel(r)
	m.concepts.Inc(outcome, string(r.ErrorKind))
	if outcome == "fallback" {
		m.fallbacks.Inc(string(r.ErrorKind))
	}
	if dur > 0 {
		m.conceptDuration.Observe(dur.Seconds(), outcome)
	}
}

func (m *Metrics) ConceptCount(outcome string, kind labs.ErrorKind) float64 {
	if m == nil {
		return 0
	}
	return m.concepts.Value(outcome, string(kind))
}

func (m *Metrics) FallbackCount(kind labs.ErrorKind) float64 {
	if m == nil {
		return 0
	}
	return m.fallbacks.Value(string(kind))
}

func (m *Metrics) BackendCount(model, status string) float64 {
	if m == nil {
		return 0
	}
	return m.backendRequests.Value(model, status)
}

func outcomeLabel(r labs.GenerationResult) string {
	switch {
	case r.Success:
		return "success"
	case r.ModelUsed == labs.ModelTemplate && r.ErrorKind.TriggersFallback():
		return "fallback"
	default:
		return "failed"
	}
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []interface{ WritePrometheus(io.Writer) error }{
		m.concepts,
		m.fallbacks,
		m.backendRequests,
		m.backendLatency,
		m.conceptDuration,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

// WriteTextfile writes the exposition to path for the node-exporter textfile
// collector. The file is replaced atomically so the collector never reads a partial scrape.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("metrics textfile dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".labgen-metrics-*.prom")
	if err != nil {
		return fmt.Errorf("metrics textfile: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := m.WritePrometheus(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("metrics textfile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("metrics textfile: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
