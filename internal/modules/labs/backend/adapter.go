package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/neurobridge-labgen/internal/domain/labs"
	"github.com/yungbote/neurobridge-labgen/internal/inference/admission"
	"github.com/yungbote/neurobridge-labgen/internal/inference/engine"
	"github.com/yungbote/neurobridge-labgen/internal/inference/router"
	"github.com/yungbote/neurobridge-labgen/internal/observability"
	"github.com/yungbote/neurobridge-labgen/internal/platform/httpx"
	"github.com/yungbote/neurobridge-labgen/internal/platform/logger"
)

const DefaultConceptTimeout = 90 * time.Second

type Options struct {
	// ConceptTimeout bounds admission wait plus the backend call.
	ConceptTimeout time.Duration
	Limiter        admission.Limiter
	Metrics        *observability.Metrics
	Tracer         trace.Tracer
}

type Adapter struct {
	log     *logger.Logger
	routes  *router.Router
	limiter admission.Limiter
	timeout time.Duration
	metrics *observability.Metrics
	tracer  trace.Tracer
}

func New(log *logger.Logger, routes *router.Router, opts Options) *Adapter {
	if opts.ConceptTimeout <= 0 {
		opts.ConceptTimeout = DefaultConceptTimeout
	}
	if opts.Limiter == nil {
		opts.Limiter = admission.Unlimited{}
	}
	if opts.Tracer == nil {
		opts.Tracer = observability.Tracer()
	}
	return &Adapter{
		log:     log.With("service", "BackendAdapter"),
		routes:  routes,
		limiter: opts.Limiter,
		timeout: opts.ConceptTimeout,
		metrics: opts.Metrics,
		tracer:  opts.Tracer,
	}
}

// Invoke sends one request to the route serving req.Params.Model and returns
// the raw response text. Every failure is a BackendUnavailable labs.Error.
func (a *Adapter) Invoke(ctx context.Context, req labs.GenerationRequest) (string, error) {
	model := strings.TrimSpace(req.Params.Model)
	ctx, span := a.tracer.Start(ctx, "labgen.backend", trace.WithAttributes(
		attribute.String("labgen.model", model),
		attribute.String("labgen.concept", req.Concept.Name),
	))
	defer span.End()

	route, ok := a.routes.RouteForModel(model)
	if !ok {
		err := a.unavailable(req, "route", fmt.Errorf("no route for model %q", model))
		span.SetStatus(codes.Error, "no route")
		return "", err
	}
	span.SetAttributes(attribute.String("labgen.engine", route.EngineType))

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	release, err := a.limiter.Acquire(ctx)
	if err != nil {
		a.metrics.ObserveBackend(model, httpx.StatusLabel(err), 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, "admission")
		return "", a.unavailable(req, "admission", err)
	}
	defer release()

	msgs := []engine.Message{
		{Role: "system", Content: req.System},
		{Role: "user", Content: req.User},
	}
	opts := engine.GenerateOptions{
		Temperature: req.Params.Temperature,
		MaxTokens:   req.Params.MaxTokens,
	}
	if req.Schema != nil {
		opts.JSONSchema = &engine.JSONSchema{Name: req.SchemaName, Schema: req.Schema, Strict: true}
	}

	start := time.Now()
	text, err := route.Engine.GenerateText(ctx, route.UpstreamModel, msgs, opts)
	dur := time.Since(start)
	a.metrics.ObserveBackend(model, httpx.StatusLabel(err), dur)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, httpx.StatusLabel(err))
		a.log.Warn("Backend call failed",
			"concept", req.Concept.Name,
			"model", model,
			"engine", route.EngineType,
			"duration_ms", dur.Milliseconds(),
			"error", err,
		)
		return "", a.unavailable(req, "generate", err)
	}
	a.log.Debug("Backend call succeeded",
		"concept", req.Concept.Name,
		"model", model,
		"duration_ms", dur.Milliseconds(),
		"bytes", len(text),
	)
	return text, nil
}

func (a *Adapter) unavailable(req labs.GenerationRequest, op string, err error) error {
	return &labs.Error{
		Kind:    labs.ErrorKindBackendUnavailable,
		Op:      "backend " + op,
		Concept: req.Concept.Name,
		Err:     err,
	}
}
