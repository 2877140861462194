package app

import (
	"context"
	"strings"

	"github.com/yungbote/neurobridge-labgen/internal/app/config"
	"github.com/yungbote/neurobridge-labgen/internal/data/ledger"
	"github.com/yungbote/neurobridge-labgen/internal/domain/labs"
	infcfg "github.com/yungbote/neurobridge-labgen/internal/inference/config"
	"github.com/yungbote/neurobridge-labgen/internal/inference/admission"
	"github.com/yungbote/neurobridge-labgen/internal/inference/router"
	"github.com/yungbote/neurobridge-labgen/internal/modules/labs/backend"
	"github.com/yungbote/neurobridge-labgen/internal/modules/labs/catalog"
	"github.com/yungbote/neurobridge-labgen/internal/modules/labs/output"
	"github.com/yungbote/neurobridge-labgen/internal/modules/labs/prompts"
	"github.com/yungbote/neurobridge-labgen/internal/observability"
	"github.com/yungbote/neurobridge-labgen/internal/platform/neo4jdb"
	"github.com/yungbote/neurobridge-labgen/internal/platform/redisx"
)

// Only the selected route is built, so unused engines never need credentials.
func (a *App) wireBackend(ctx context.Context) (*backend.Adapter, error) {
	route, _ := a.Cfg.Route()
	rt, err := router.New(ctx, []infcfg.ModelConfig{route})
	if err != nil {
		return nil, labs.Configurationf("model route %q: %v", route.ID, err)
	}
	lim, err := a.wireAdmission(ctx)
	if err != nil {
		return nil, err
	}
	return backend.New(a.Log, rt, backend.Options{
		ConceptTimeout: a.Cfg.Pipeline.ConceptTimeout.Duration,
		Limiter:        lim,
		Metrics:        a.Metrics,
		Tracer:         observability.Tracer(),
	}), nil
}

func (a *App) wireAdmission(ctx context.Context) (admission.Limiter, error) {
	ac := a.Cfg.Admission
	lc := admission.Config{RatePerSecond: ac.RatePerSecond, Burst: ac.Burst, MaxInFlight: ac.MaxInFlight}
	switch ac.Mode {
	case config.AdmissionRedis:
		rdb, err := redisx.Dial(ctx, redisx.Config{Addr: ac.RedisAddr, Password: ac.RedisPassword, DB: ac.RedisDB})
		if err != nil {
			return nil, labs.Configurationf("admission redis: %v", err)
		}
		a.onClose(func(context.Context) error { return rdb.Close() })
		lim, err := admission.NewRedis(rdb, ac.KeyPrefix, lc)
		if err != nil {
			return nil, labs.Configurationf("%v", err)
		}
		a.Log.Info("Using shared redis admission", "addr", ac.RedisAddr, "rate_per_second", ac.RatePerSecond)
		return lim, nil
	default:
		if lc.RatePerSecond <= 0 && lc.MaxInFlight <= 0 {
			return admission.Unlimited{}, nil
		}
		return admission.NewLocal(lc), nil
	}
}

func (a *App) wireCatalog(ctx context.Context) (catalog.Source, error) {
	cc := a.Cfg.Catalog
	switch cc.Source {
	case config.CatalogSourceNeo4j:
		client, err := neo4jdb.New(ctx, a.Log, neo4jdb.Config{
			URI:      cc.Neo4j.URI,
			User:     cc.Neo4j.User,
			Password: cc.Neo4j.Password,
			Database: cc.Neo4j.Database,
		})
		if err != nil {
			return nil, labs.Configurationf("neo4j: %v", err)
		}
		a.onClose(client.Close)
		return catalog.NewNeo4jSource(a.Log, client, cc.Neo4j.Query), nil
	default:
		return catalog.NewFileSource(a.Log, cc.Path), nil
	}
}

func (a *App) wireLedger() (ledger.Recorder, error) {
	lc := a.Cfg.Ledger
	if strings.TrimSpace(lc.DSN) == "" {
		return ledger.Nop{}, nil
	}
	repo, err := ledger.Open(a.Log, ledger.Config{Driver: lc.Driver, DSN: lc.DSN})
	if err != nil {
		return nil, labs.Configurationf("%v", err)
	}
	a.onClose(func(context.Context) error { return repo.Close() })
	return repo, nil
}

func (a *App) wireOutput() *output.Organizer {
	return output.NewOrganizer(a.Log, a.Cfg.Output.Dir, a.Cfg.Output.SummaryFile)
}

func (a *App) promptOptions() prompts.Options {
	g := a.Cfg.Generation
	temperature := g.Temperature
	return prompts.Options{Model: g.Model, Temperature: &temperature, MaxTokens: g.MaxTokens}
}
