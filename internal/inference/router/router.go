package router

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/neurobridge-labgen/internal/inference/config"
	"github.com/yungbote/neurobridge-labgen/internal/inference/engine"
	"github.com/yungbote/neurobridge-labgen/internal/inference/engine/gemini"
	"github.com/yungbote/neurobridge-labgen/internal/inference/engine/mock"
	"github.com/yungbote/neurobridge-labgen/internal/inference/engine/oaihttp"
)

type Route struct {
	PublicModel   string
	UpstreamModel string
	EngineType    string
	Engine        engine.Engine
}

type Router struct {
	routes map[string]Route
}

// New builds one engine per configured model. Models must already be normalized.
func New(ctx context.Context, models []config.ModelConfig) (*Router, error) {
	r := &Router{routes: map[string]Route{}}
	for _, m := range models {
		id := strings.TrimSpace(m.ID)
		if id == "" {
			return nil, fmt.Errorf("model id required")
		}
		if _, exists := r.routes[id]; exists {
			return nil, fmt.Errorf("duplicate model id: %s", id)
		}

		var eng engine.Engine
		switch strings.ToLower(strings.TrimSpace(m.Engine.Type)) {
		case config.EngineMock:
			eng = mock.New()
		case "openai_http", config.EngineOAIHTTP:
			e, err := oaihttp.New(m.Engine)
			if err != nil {
				return nil, err
			}
			eng = e
		case config.EngineGemini:
			e, err := gemini.New(ctx, m.Engine)
			if err != nil {
				return nil, err
			}
			eng = e
		default:
			return nil, fmt.Errorf("unsupported engine type %q for model %q", m.Engine.Type, id)
		}

		upstream := strings.TrimSpace(m.UpstreamModel)
		if upstream == "" {
			upstream = id
		}

		r.routes[id] = Route{
			PublicModel:   id,
			UpstreamModel: upstream,
			EngineType:    m.Engine.Type,
			Engine:        eng,
		}
	}
	return r, nil
}

// NewStatic wraps prebuilt routes, keyed by PublicModel.
func NewStatic(routes ...Route) *Router {
	r := &Router{routes: map[string]Route{}}
	for _, rt := range routes {
		if rt.UpstreamModel == "" {
			rt.UpstreamModel = rt.PublicModel
		}
		r.routes[rt.PublicModel] = rt
	}
	return r
}

func (r *Router) ListModels() []string {
	out := make([]string, 0, len(r.routes))
	for id := range r.routes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *Router) RouteForModel(model string) (Route, bool) {
	route, ok := r.routes[strings.TrimSpace(model)]
	return route, ok
}
