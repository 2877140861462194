package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/neurobridge-labgen/internal/domain/labs"
	infcfg "github.com/yungbote/neurobridge-labgen/internal/inference/config"
	"github.com/yungbote/neurobridge-labgen/internal/platform/envutil"
)

// Load builds the config from defaults, then the YAML file (explicit path,
// LABGEN_CONFIG_PATH, or ./config/labgen.yaml when present), then environment.
// Flag overrides are applied by the caller before Validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	cfgPath := strings.TrimSpace(path)
	if cfgPath == "" {
		cfgPath = envutil.String("LABGEN_CONFIG_PATH", "")
	}
	explicit := cfgPath != ""
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "labgen.yaml")
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
			}
		}
	}

	if cfgPath != "" {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, labs.Configurationf("read config %s: %v", cfgPath, err)
			}
		} else if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, labs.Configurationf("parse config %s: %v", cfgPath, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("LOG_MODE", cfg.Env)
	cfg.Output.Dir = envutil.String("LABGEN_OUTPUT_DIR", cfg.Output.Dir)
	cfg.Catalog.Path = envutil.String("LABGEN_CATALOG_PATH", cfg.Catalog.Path)
	cfg.Catalog.Source = envutil.String("LABGEN_CATALOG_SOURCE", cfg.Catalog.Source)
	cfg.Pipeline.Concurrency = envutil.Int("LABGEN_CONCURRENCY", cfg.Pipeline.Concurrency)
	cfg.Pipeline.ConceptTimeout.Duration = envutil.Duration("LABGEN_CONCEPT_TIMEOUT", cfg.Pipeline.ConceptTimeout.Duration)
	cfg.Generation.Model = envutil.String("OPENAI_MODEL", cfg.Generation.Model)
	cfg.Generation.Personalization = envutil.String("LABGEN_PERSONALIZATION", cfg.Generation.Personalization)

	cfg.Catalog.Neo4j.URI = envutil.String("NEO4J_URI", cfg.Catalog.Neo4j.URI)
	cfg.Catalog.Neo4j.User = envutil.String("NEO4J_USER", cfg.Catalog.Neo4j.User)
	cfg.Catalog.Neo4j.Password = envutil.String("NEO4J_PASSWORD", cfg.Catalog.Neo4j.Password)
	cfg.Catalog.Neo4j.Database = envutil.String("NEO4J_DATABASE", cfg.Catalog.Neo4j.Database)

	if addr := envutil.String("REDIS_ADDR", ""); addr != "" {
		cfg.Admission.RedisAddr = addr
	}
	cfg.Admission.Mode = envutil.String("LABGEN_ADMISSION_MODE", cfg.Admission.Mode)
	cfg.Admission.RatePerSecond = envutil.Float("LABGEN_RATE_PER_SECOND", cfg.Admission.RatePerSecond)
	cfg.Admission.MaxInFlight = envutil.Int("LABGEN_MAX_IN_FLIGHT", cfg.Admission.MaxInFlight)

	cfg.Ledger.DSN = envutil.String("LABGEN_LEDGER_DSN", cfg.Ledger.DSN)
	cfg.Ledger.Driver = envutil.String("LABGEN_LEDGER_DRIVER", cfg.Ledger.Driver)

	cfg.Observability.OTelEnabled = envutil.Bool("OTEL_ENABLED", cfg.Observability.OTelEnabled)
	cfg.Observability.MetricsTextfile = envutil.String("LABGEN_METRICS_TEXTFILE", cfg.Observability.MetricsTextfile)

	openAIKey := envutil.String("OPENAI_API_KEY", "")
	openAIBase := envutil.String("OPENAI_BASE_URL", "")
	geminiKey := envutil.String("GEMINI_API_KEY", "")
	for i := range cfg.Models {
		e := &cfg.Models[i].Engine
		switch strings.ToLower(strings.TrimSpace(e.Type)) {
		case infcfg.EngineOAIHTTP, "openai_http", "openai":
			if e.BaseURL == "" && openAIBase != "" {
				e.BaseURL = openAIBase
			}
			if e.APIKey == "" {
				e.APIKey = openAIKey
			}
		case infcfg.EngineGemini:
			if e.APIKey == "" {
				e.APIKey = geminiKey
			}
		}
	}
}

// Validate normalizes the config in place and reports the first setting that
// makes a run impossible. All failures are configuration errors.
func (c *Config) Validate() error {
	if err := infcfg.NormalizeModels(c.Models); err != nil {
		return labs.Configurationf("models: %v", err)
	}
	c.Generation.Model = strings.TrimSpace(c.Generation.Model)
	if c.Generation.Model == "" {
		c.Generation.Model = "gpt-4"
	}
	route, ok := c.Route()
	if !ok {
		return labs.Configurationf("no model route for %q", c.Generation.Model)
	}
	if route.Engine.RequiresAPIKey() && route.Engine.APIKey == "" {
		switch route.Engine.Type {
		case infcfg.EngineGemini:
			return labs.Configurationf("model %q: GEMINI_API_KEY is not set", route.ID)
		default:
			return labs.Configurationf("model %q: OPENAI_API_KEY is not set", route.ID)
		}
	}

	c.Catalog.Source = strings.ToLower(strings.TrimSpace(c.Catalog.Source))
	switch c.Catalog.Source {
	case "", CatalogSourceFile:
		c.Catalog.Source = CatalogSourceFile
		if strings.TrimSpace(c.Catalog.Path) == "" {
			return labs.Configurationf("catalog.path is required for the file source")
		}
	case CatalogSourceNeo4j:
		if strings.TrimSpace(c.Catalog.Neo4j.URI) == "" {
			return labs.Configurationf("catalog.neo4j.uri is required for the neo4j source")
		}
	default:
		return labs.Configurationf("unknown catalog.source %q", c.Catalog.Source)
	}

	if strings.TrimSpace(c.Output.Dir) == "" {
		return labs.Configurationf("output.dir is required")
	}
	if strings.TrimSpace(c.Output.SummaryFile) == "" {
		c.Output.SummaryFile = "generation_summary.json"
	}
	if strings.ContainsAny(c.Output.SummaryFile, `/\`) {
		return labs.Configurationf("output.summary_file must be a bare file name")
	}

	if c.Pipeline.Concurrency <= 0 {
		return labs.Configurationf("pipeline.concurrency must be positive, got %d", c.Pipeline.Concurrency)
	}
	if c.Pipeline.ConceptTimeout.Duration < 0 {
		return labs.Configurationf("pipeline.concept_timeout must not be negative")
	}
	if c.Pipeline.Limit < 0 {
		return labs.Configurationf("limit must not be negative, got %d", c.Pipeline.Limit)
	}
	if c.Pipeline.ProgressEvery <= 0 {
		c.Pipeline.ProgressEvery = 10
	}
	if c.Generation.MaxTokens < 0 {
		return labs.Configurationf("generation.max_tokens must not be negative")
	}

	c.Admission.Mode = strings.ToLower(strings.TrimSpace(c.Admission.Mode))
	switch c.Admission.Mode {
	case "", AdmissionLocal:
		c.Admission.Mode = AdmissionLocal
	case AdmissionRedis:
		if strings.TrimSpace(c.Admission.RedisAddr) == "" {
			return labs.Configurationf("admission.redis_addr is required for redis admission")
		}
		if c.Admission.RatePerSecond <= 0 {
			return labs.Configurationf("admission.rate_per_second must be positive for redis admission")
		}
	default:
		return labs.Configurationf("unknown admission.mode %q", c.Admission.Mode)
	}
	if c.Admission.RatePerSecond < 0 || c.Admission.MaxInFlight < 0 || c.Admission.Burst < 0 {
		return labs.Configurationf("admission limits must not be negative")
	}

	c.Ledger.Driver = strings.ToLower(strings.TrimSpace(c.Ledger.Driver))
	switch c.Ledger.Driver {
	case "", LedgerSQLite:
		c.Ledger.Driver = LedgerSQLite
	case LedgerPostgres:
	default:
		return labs.Configurationf("unknown ledger.driver %q", c.Ledger.Driver)
	}

	if c.Catalog.Source == CatalogSourceFile && c.Catalog.Path != "" {
		c.Catalog.Path = filepath.Clean(c.Catalog.Path)
	}
	return nil
}

func (c *Config) String() string {
	route, _ := c.Route()
	return fmt.Sprintf("model=%s engine=%s catalog=%s output=%s concurrency=%d",
		c.Generation.Model, route.Engine.Type, c.Catalog.Source, c.Output.Dir, c.Pipeline.Concurrency)
}
