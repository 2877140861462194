package config

import (
	"time"

	infcfg "github.com/yungbote/neurobridge-labgen/internal/inference/config"
)

const (
	CatalogSourceFile  = "file"
	CatalogSourceNeo4j = "neo4j"

	AdmissionLocal = "local"
	AdmissionRedis = "redis"

	LedgerSQLite   = "sqlite"
	LedgerPostgres = "postgres"
)

type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	// Query overrides the default theory/concept read. It must return
	// topic, topic_id, name, definition and text_evidence columns.
	Query string `yaml:"query"`
}

type CatalogConfig struct {
	Source string      `yaml:"source"`
	Path   string      `yaml:"path"`
	Neo4j  Neo4jConfig `yaml:"neo4j"`
}

type OutputConfig struct {
	Dir         string `yaml:"dir"`
	SummaryFile string `yaml:"summary_file"`
}

type GenerationConfig struct {
	Model           string  `yaml:"model"`
	Temperature     float64 `yaml:"temperature"`
	MaxTokens       int     `yaml:"max_tokens"`
	Personalization string  `yaml:"personalization"`
}

type PipelineConfig struct {
	Concurrency    int             `yaml:"concurrency"`
	ConceptTimeout infcfg.Duration `yaml:"concept_timeout"`
	ProgressEvery  int             `yaml:"progress_every"`
	// Limit caps how many catalog concepts a batch run processes; 0 means all.
	Limit int `yaml:"limit"`
}

type AdmissionConfig struct {
	Mode          string  `yaml:"mode"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
	MaxInFlight   int     `yaml:"max_in_flight"`
	RedisAddr     string  `yaml:"redis_addr"`
	RedisPassword string  `yaml:"redis_password"`
	RedisDB       int     `yaml:"redis_db"`
	KeyPrefix     string  `yaml:"key_prefix"`
}

type LedgerConfig struct {
	Driver string `yaml:"driver"`
	// DSN empty disables the ledger.
	DSN string `yaml:"dsn"`
}

type ObservabilityConfig struct {
	MetricsTextfile string `yaml:"metrics_textfile"`
	OTelEnabled     bool   `yaml:"otel_enabled"`
	ServiceName     string `yaml:"service_name"`
}

type Config struct {
	Env           string               `yaml:"env"`
	Catalog       CatalogConfig        `yaml:"catalog"`
	Output        OutputConfig         `yaml:"output"`
	Generation    GenerationConfig     `yaml:"generation"`
	Models        []infcfg.ModelConfig `yaml:"models"`
	Pipeline      PipelineConfig       `yaml:"pipeline"`
	Admission     AdmissionConfig      `yaml:"admission"`
	Ledger        LedgerConfig         `yaml:"ledger"`
	Observability ObservabilityConfig  `yaml:"observability"`
}

func Default() *Config {
	return &Config{
		Env: "development",
		Catalog: CatalogConfig{
			Source: CatalogSourceFile,
			Path:   "neo4j_export.json",
			Neo4j:  Neo4jConfig{User: "neo4j", Database: "neo4j"},
		},
		Output: OutputConfig{
			Dir:         "generated_labs",
			SummaryFile: "generation_summary.json",
		},
		Generation: GenerationConfig{
			Model:       "gpt-4",
			Temperature: 0.7,
			MaxTokens:   4096,
		},
		Models: []infcfg.ModelConfig{
			{ID: "gpt-4", Engine: infcfg.EngineConfig{Type: infcfg.EngineOAIHTTP}},
			{ID: "gemini", UpstreamModel: "gemini-2.0-flash", Engine: infcfg.EngineConfig{Type: infcfg.EngineGemini}},
			{ID: "mock", Engine: infcfg.EngineConfig{Type: infcfg.EngineMock}},
		},
		Pipeline: PipelineConfig{
			Concurrency:    4,
			ConceptTimeout: infcfg.Duration{Duration: 90 * time.Second},
			ProgressEvery:  10,
		},
		Admission: AdmissionConfig{
			Mode:      AdmissionLocal,
			KeyPrefix: "labgen:admission",
		},
		Ledger: LedgerConfig{Driver: LedgerSQLite},
		Observability: ObservabilityConfig{
			ServiceName: "neurobridge-labgen",
		},
	}
}

// Route returns the model route selected by Generation.Model.
func (c *Config) Route() (infcfg.ModelConfig, bool) {
	for _, m := range c.Models {
		if m.ID == c.Generation.Model {
			return m, true
		}
	}
	return infcfg.ModelConfig{}, false
}
