package steps

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/neurobridge-labgen/internal/data/ledger"
	"github.com/yungbote/neurobridge-labgen/internal/domain/labs"
	"github.com/yungbote/neurobridge-labgen/internal/modules/labs/catalog"
	"github.com/yungbote/neurobridge-labgen/internal/modules/labs/output"
	"github.com/yungbote/neurobridge-labgen/internal/modules/labs/prompts"
	"github.com/yungbote/neurobridge-labgen/internal/observability"
	"github.com/yungbote/neurobridge-labgen/internal/platform/logger"
)

const (
	DefaultConcurrency   = 4
	DefaultProgressEvery = 10

	ModeBatch  = "batch"
	ModeSingle = "single"
)

// Invoker sends one request to the generative backend.
type Invoker interface {
	Invoke(ctx context.Context, req labs.GenerationRequest) (string, error)
}

// Store persists per-concept output and the run summary.
type Store interface {
	Persist(res labs.GenerationResult) (output.Paths, error)
	WriteSummary(s labs.BatchSummary) (string, error)
	SummaryFile() string
}

type PipelineDeps struct {
	Log     *logger.Logger
	Backend Invoker
	Output  Store

	// Optional hooks. Their failures are logged and never change an outcome.
	Ledger  ledger.Recorder
	Metrics *observability.Metrics
	Tracer  trace.Tracer
}

type PipelineOptions struct {
	Prompt        prompts.Options
	Concurrency   int
	ProgressEvery int
}

type Pipeline struct {
	log     *logger.Logger
	backend Invoker
	out     Store
	ledger  ledger.Recorder
	metrics *observability.Metrics
	tracer  trace.Tracer
	opts    PipelineOptions

	now   func() time.Time
	newID func() string
}

func NewPipeline(deps PipelineDeps, opts PipelineOptions) *Pipeline {
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.ProgressEvery < 1 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	if deps.Ledger == nil {
		deps.Ledger = ledger.Nop{}
	}
	if deps.Tracer == nil {
		deps.Tracer = observability.Tracer()
	}
	return &Pipeline{
		log:     deps.Log.With("service", "LabPipeline"),
		backend: deps.Backend,
		out:     deps.Output,
		ledger:  deps.Ledger,
		metrics: deps.Metrics,
		tracer:  deps.Tracer,
		opts:    opts,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// Run generates a lab for every concept (catalog order, truncated to limit
// when limit > 0) and writes the summary. The only error it returns is a
// summary write failure; per-concept failures are recorded in the summary.
//
// When ctx is canceled, concepts not yet started are skipped, in-flight ones
// fall back and are persisted, and the summary covers what completed.
func (p *Pipeline) Run(ctx context.Context, concepts []labs.Concept, personalization string, limit int) (labs.BatchSummary, error) {
	concepts = catalog.Limit(concepts, limit)
	runID := p.newID()
	started := p.now()

	ctx, span := p.tracer.Start(ctx, "labgen.run", trace.WithAttributes(
		attribute.String("labgen.run_id", runID),
		attribute.Int("labgen.concepts", len(concepts)),
	))
	defer span.End()

	log := p.log.With("run_id", runID)
	log.Info("Starting lab generation run",
		"concepts", len(concepts),
		"model", p.model(),
		"personalization", personalization,
		"concurrency", p.opts.Concurrency,
	)
	p.hook(log, "start run", p.ledger.StartRun(ctx, ledger.RunInfo{
		ID:              runID,
		Mode:            ModeBatch,
		Model:           p.model(),
		Personalization: personalization,
		CatalogSize:     len(concepts),
		StartedAt:       started,
	}))

	collisions := storageCollisions(concepts, p.out.SummaryFile())
	results := make([]labs.GenerationResult, len(concepts))
	completed := make([]bool, len(concepts))
	var done atomic.Int64

	var g errgroup.Group
	g.SetLimit(p.opts.Concurrency)
	for i := range concepts {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			var res labs.GenerationResult
			if reason, ok := collisions[i]; ok {
				res = p.collision(concepts[i], reason, personalization)
			} else {
				res = p.process(ctx, concepts[i], personalization)
			}
			results[i] = res
			completed[i] = true

			p.hook(log, "record result", p.ledger.RecordResult(context.WithoutCancel(ctx), runID, i, res))
			n := done.Add(1)
			log.Info("Concept finished",
				"concept", res.Concept.Name,
				"index", i,
				"success", res.Success,
				"error_kind", string(res.ErrorKind),
				"model", res.ModelUsed,
			)
			if n%int64(p.opts.ProgressEvery) == 0 {
				log.Info("Progress", "done", n, "total", len(concepts))
			}
			return nil
		})
	}
	_ = g.Wait()

	finished := make([]labs.GenerationResult, 0, len(concepts))
	for i, ok := range completed {
		if ok {
			finished = append(finished, results[i])
		}
	}
	summary := labs.Summarize(runID, finished, len(concepts))
	summary.StartedAt = started
	summary.FinishedAt = p.now()
	summary.Canceled = ctx.Err() != nil

	p.hook(log, "finish run", p.ledger.FinishRun(context.WithoutCancel(ctx), summary))
	span.SetAttributes(
		attribute.Int("labgen.successful", summary.SuccessfulCount),
		attribute.Int("labgen.failed", summary.FailedCount),
		attribute.Bool("labgen.canceled", summary.Canceled),
	)

	path, err := p.out.WriteSummary(summary)
	if err != nil {
		log.Error("Failed to write summary", "error", err)
		return summary, err
	}
	log.Info("Lab generation run finished",
		"total", summary.TotalRequested,
		"successful", summary.SuccessfulCount,
		"failed", summary.FailedCount,
		"canceled", summary.Canceled,
		"duration", summary.FinishedAt.Sub(started).String(),
		"summary", path,
	)
	return summary, nil
}

// RunSingle generates and persists one concept. No summary file is written.
func (p *Pipeline) RunSingle(ctx context.Context, concept labs.Concept, personalization string) labs.GenerationResult {
	runID := p.newID()
	started := p.now()
	log := p.log.With("run_id", runID)

	p.hook(log, "start run", p.ledger.StartRun(ctx, ledger.RunInfo{
		ID:              runID,
		Mode:            ModeSingle,
		Model:           p.model(),
		Personalization: personalization,
		CatalogSize:     1,
		StartedAt:       started,
	}))

	res := p.process(ctx, concept, personalization)

	bg := context.WithoutCancel(ctx)
	p.hook(log, "record result", p.ledger.RecordResult(bg, runID, 0, res))
	summary := labs.Summarize(runID, []labs.GenerationResult{res}, 1)
	summary.StartedAt = started
	summary.FinishedAt = p.now()
	summary.Canceled = ctx.Err() != nil
	p.hook(log, "finish run", p.ledger.FinishRun(bg, summary))

	log.Info("Concept finished",
		"concept", res.Concept.Name,
		"success", res.Success,
		"error_kind", string(res.ErrorKind),
		"model", res.ModelUsed,
	)
	return res
}

func (p *Pipeline) model() string {
	return p.opts.Prompt.Model
}

func (p *Pipeline) hook(log *logger.Logger, what string, err error) {
	if err != nil {
		log.Warn("Ledger hook failed", "hook", what, "error", err)
	}
}

// storageCollisions maps the index of every concept that cannot own its
// storage key to the reason: the key was taken by an earlier concept, or it
// names the summary file in the output directory.
func storageCollisions(concepts []labs.Concept, summaryFile string) map[int]string {
	owner := make(map[string]string, len(concepts))
	out := map[int]string{}
	for i, c := range concepts {
		key := output.StorageKey(c.Name)
		if key == summaryFile {
			out[i] = fmt.Sprintf("storage key collision with the summary file %q", summaryFile)
			continue
		}
		if prev, ok := owner[key]; ok {
			out[i] = fmt.Sprintf("storage key collision with %q", prev)
			continue
		}
		owner[key] = c.Name
	}
	return out
}

func (p *Pipeline) collision(c labs.Concept, reason, personalization string) labs.GenerationResult {
	err := &labs.Error{
		Kind:    labs.ErrorKindFilesystem,
		Op:      "persist",
		Concept: c.Name,
		Err:     errors.New(reason),
	}
	p.log.Warn("Skipping concept with colliding storage key", "concept", c.Name, "reason", reason, "key", output.StorageKey(c.Name))
	res := templateResult(c, personalization, err)
	p.metrics.ObserveConcept(res, 0)
	return res
}
