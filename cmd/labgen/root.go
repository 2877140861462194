package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-labgen/internal/app"
	"github.com/yungbote/neurobridge-labgen/internal/app/config"
	"github.com/yungbote/neurobridge-labgen/internal/platform/envutil"
	"github.com/yungbote/neurobridge-labgen/internal/platform/logger"
)

type runFlags struct {
	configPath     string
	catalogPath    string
	catalogSource  string
	outputDir      string
	personalize    string
	model          string
	temperature    float64
	maxTokens      int
	concurrency    int
	conceptTimeout time.Duration
}

func newRootCmd() *cobra.Command {
	f := &runFlags{}
	root := &cobra.Command{
		Use:           "labgen",
		Short:         "Generate hands-on labs from knowledge-graph concepts",
		Long:          `labgen turns concepts from a knowledge-graph export (or a live Neo4j graph) into validated, optionally personalized lab documents on disk.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "YAML config file (default: $LABGEN_CONFIG_PATH or ./config/labgen.yaml)")
	pf.StringVar(&f.catalogPath, "catalog", "", "knowledge-graph export JSON")
	pf.StringVar(&f.catalogSource, "catalog-source", "", "catalog source: file or neo4j")
	pf.StringVar(&f.outputDir, "output-dir", "", "directory for generated labs")
	pf.StringVar(&f.personalize, "personalize", "", "personalization theme, e.g. gaming")
	pf.StringVar(&f.model, "model", "", "model route id")
	pf.Float64Var(&f.temperature, "temperature", 0.7, "sampling temperature")
	pf.IntVar(&f.maxTokens, "max-tokens", 4096, "max output tokens")
	pf.IntVar(&f.concurrency, "concurrency", 4, "concepts processed in parallel")
	pf.DurationVar(&f.conceptTimeout, "concept-timeout", 90*time.Second, "per-concept backend timeout")

	root.AddCommand(newBatchCmd(f), newSingleCmd(f), newValidateCmd())
	return root
}

// loadConfig layers changed flags over defaults, file and environment.
func loadConfig(cmd *cobra.Command, f *runFlags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, f, cfg)
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, f *runFlags, cfg *config.Config) {
	changed := func(name string) bool { return cmd.Flags().Changed(name) }
	if changed("catalog") {
		cfg.Catalog.Path = f.catalogPath
	}
	if changed("catalog-source") {
		cfg.Catalog.Source = f.catalogSource
	}
	if changed("output-dir") {
		cfg.Output.Dir = f.outputDir
	}
	if changed("personalize") {
		cfg.Generation.Personalization = f.personalize
	}
	if changed("model") {
		cfg.Generation.Model = f.model
	}
	if changed("temperature") {
		cfg.Generation.Temperature = f.temperature
	}
	if changed("max-tokens") {
		cfg.Generation.MaxTokens = f.maxTokens
	}
	if changed("concurrency") {
		cfg.Pipeline.Concurrency = f.concurrency
	}
	if changed("concept-timeout") {
		cfg.Pipeline.ConceptTimeout.Duration = f.conceptTimeout
	}
}

func newLogger() (*logger.Logger, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// withApp builds the app, runs fn and always releases resources.
func withApp(ctx context.Context, cfg *config.Config, fn func(*app.App) error) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	a, err := app.New(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))
	return fn(a)
}
