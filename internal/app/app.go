package app

import (
	"context"
	"fmt"

	"github.com/yungbote/neurobridge-labgen/internal/app/config"
	"github.com/yungbote/neurobridge-labgen/internal/domain/labs"
	"github.com/yungbote/neurobridge-labgen/internal/modules/labs/catalog"
	"github.com/yungbote/neurobridge-labgen/internal/modules/labs/steps"
	"github.com/yungbote/neurobridge-labgen/internal/observability"
	"github.com/yungbote/neurobridge-labgen/internal/platform/logger"
)

// App is one wired pipeline plus the resources it holds open.
type App struct {
	Log      *logger.Logger
	Cfg      *config.Config
	Catalog  catalog.Source
	Pipeline *steps.Pipeline
	Metrics  *observability.Metrics

	closers []func(context.Context) error
}

// New wires every component from a validated config. Any failure here is a
// configuration error: nothing has been generated yet.
func New(ctx context.Context, log *logger.Logger, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info("Wiring lab generator", "config", cfg.String())

	a := &App{Log: log, Cfg: cfg}
	if cfg.Observability.MetricsTextfile != "" {
		a.Metrics = observability.NewMetrics()
	}
	a.onClose(observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.Observability.OTelEnabled,
		ServiceName: cfg.Observability.ServiceName,
		Environment: cfg.Env,
	}))

	adapter, err := a.wireBackend(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	src, err := a.wireCatalog(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Catalog = src
	rec, err := a.wireLedger()
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.Pipeline = steps.NewPipeline(steps.PipelineDeps{
		Log:     log,
		Backend: adapter,
		Output:  a.wireOutput(),
		Ledger:  rec,
		Metrics: a.Metrics,
		Tracer:  observability.Tracer(),
	}, steps.PipelineOptions{
		Prompt:        a.promptOptions(),
		Concurrency:   cfg.Pipeline.Concurrency,
		ProgressEvery: cfg.Pipeline.ProgressEvery,
	})
	return a, nil
}

// LoadCatalog reads and normalizes the concept catalog. Failures are fatal
// configuration errors.
func (a *App) LoadCatalog(ctx context.Context) ([]labs.Concept, error) {
	return a.Catalog.Load(ctx)
}

func (a *App) RunBatch(ctx context.Context, personalization string) (labs.BatchSummary, error) {
	concepts, err := a.LoadCatalog(ctx)
	if err != nil {
		return labs.BatchSummary{}, err
	}
	defer a.flushMetrics()
	return a.Pipeline.Run(ctx, concepts, personalization, a.Cfg.Pipeline.Limit)
}

func (a *App) RunSingle(ctx context.Context, name, personalization string) (labs.GenerationResult, error) {
	concepts, err := a.LoadCatalog(ctx)
	if err != nil {
		return labs.GenerationResult{}, err
	}
	c, ok := catalog.Find(concepts, name)
	if !ok {
		return labs.GenerationResult{}, labs.Configurationf("concept %q not found in catalog", name)
	}
	defer a.flushMetrics()
	return a.Pipeline.RunSingle(ctx, c, personalization), nil
}

func (a *App) flushMetrics() {
	if err := a.Metrics.WriteTextfile(a.Cfg.Observability.MetricsTextfile); err != nil {
		a.Log.Warn("Failed to write metrics textfile", "path", a.Cfg.Observability.MetricsTextfile, "error", err)
	}
}

func (a *App) onClose(fn func(context.Context) error) {
	if fn != nil {
		a.closers = append(a.closers, fn)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.Log.Warn("Close failed", "error", fmt.Sprint(err))
		}
	}
	a.closers = nil
	a.Log.Sync()
}
