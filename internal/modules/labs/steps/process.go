package steps

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/neurobridge-labgen/internal/domain/labs"
	"github.com/yungbote/neurobridge-labgen/internal/modules/labs/content"
	"github.com/yungbote/neurobridge-labgen/internal/modules/labs/fallback"
	"github.com/yungbote/neurobridge-labgen/internal/modules/labs/prompts"
)

// process runs build, invoke, parse, fallback and persist for one concept.
// It always returns a result; no failure escapes it.
func (p *Pipeline) process(ctx context.Context, c labs.Concept, personalization string) labs.GenerationResult {
	start := time.Now()
	personalization = strings.TrimSpace(personalization)

	ctx, span := p.tracer.Start(ctx, "labgen.concept", trace.WithAttributes(
		attribute.String("labgen.concept", c.Name),
		attribute.String("labgen.topic", c.TopicName),
	))
	defer span.End()

	req := prompts.Build(c, personalization, p.opts.Prompt)
	attempt := p.attempt(ctx, req)

	var res labs.GenerationResult
	switch {
	case attempt.OK():
		lab := attempt.Artifact
		if lab.Personalization() == "" && personalization != "" {
			lab.PersonalizationContext = &personalization
		}
		res = labs.GenerationResult{
			Artifact:               lab,
			Concept:                c,
			SourceTopic:            c.TopicName,
			ModelUsed:              req.Params.Model,
			PersonalizationApplied: lab.Personalization() != "",
			Success:                true,
		}
	default:
		p.log.Warn("Generation failed; using template fallback",
			"concept", c.Name,
			"error_kind", string(attempt.Kind),
			"error", attempt.Err,
		)
		span.SetAttributes(attribute.String("labgen.fallback", string(attempt.Kind)))
		res = templateResult(c, personalization, attempt.Err)
		res.ErrorKind = attempt.Kind
	}

	if _, err := p.out.Persist(res); err != nil {
		p.log.Error("Failed to persist lab", "concept", c.Name, "error", err)
		res.Success = false
		res.ErrorKind = labs.ErrorKindFilesystem
		res.Error = err.Error()
	}

	if !res.Success {
		span.SetStatus(codes.Error, string(res.ErrorKind))
	}
	p.metrics.ObserveConcept(res, time.Since(start))
	return res
}

func (p *Pipeline) attempt(ctx context.Context, req labs.GenerationRequest) labs.Attempt {
	raw, err := p.backend.Invoke(ctx, req)
	if err != nil {
		return labs.Failed(err)
	}
	return content.ParseAttempt(raw)
}

// templateResult is the fallback outcome: a template artifact recorded as a
// failure of the given error's kind.
func templateResult(c labs.Concept, personalization string, cause error) labs.GenerationResult {
	lab := fallback.Generate(c, personalization)
	kind := labs.KindOf(cause)
	if kind == labs.ErrorKindNone {
		kind = labs.ErrorKindBackendUnavailable
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return labs.GenerationResult{
		Artifact:               lab,
		Concept:                c,
		SourceTopic:            c.TopicName,
		ModelUsed:              labs.ModelTemplate,
		PersonalizationApplied: lab.Personalization() != "",
		Success:                false,
		ErrorKind:              kind,
		Error:                  msg,
	}
}
