package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/neurobridge-labgen/internal/domain/labs"
	"github.com/yungbote/neurobridge-labgen/internal/platform/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver string
	DSN    string
}

type RunInfo struct {
	ID              string
	Mode            string
	Model           string
	Personalization string
	CatalogSize     int
	StartedAt       time.Time
}

// Recorder keeps a durable history of runs next to the files on disk.
type Recorder interface {
	StartRun(ctx context.Context, run RunInfo) error
	RecordResult(ctx context.Context, runID string, position int, res labs.GenerationResult) error
	FinishRun(ctx context.Context, summary labs.BatchSummary) error
}

// Nop records nothing. It is used when no ledger DSN is configured.
type Nop struct{}

func (Nop) StartRun(context.Context, RunInfo) error { return nil }
func (Nop) RecordResult(context.Context, string, int, labs.GenerationResult) error { return nil }
func (Nop) FinishRun(context.Context, labs.BatchSummary) error { return nil }

type Repo struct {
	db  *gorm.DB
	log *logger.Logger
}

// Open connects and migrates the ledger tables.
func Open(baseLog *logger.Logger, cfg Config) (*Repo, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("ledger: empty dsn")
	}
	gormLog := gormLogger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gcfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	}

	var (
		db  *gorm.DB
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverSQLite:
		db, err = gorm.Open(sqlite.Open(dsn), gcfg)
		if err == nil {
			// One connection: sqlite serializes writers anyway, and ":memory:"
			// databases are per connection.
			if sqlDB, derr := db.DB(); derr == nil {
				sqlDB.SetMaxOpenConns(1)
			}
		}
	case DriverPostgres:
		db, err = gorm.Open(postgres.Open(dsn), gcfg)
	default:
		return nil, fmt.Errorf("ledger: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: connect: %w", err)
	}
	return NewRepo(db, baseLog)
}

// NewRepo wraps an existing connection and migrates the ledger tables.
func NewRepo(db *gorm.DB, baseLog *logger.Logger) (*Repo, error) {
	if err := db.AutoMigrate(&Run{}, &Record{}); err != nil {
		return nil, fmt.Errorf("ledger: migrate: %w", err)
	}
	return &Repo{db: db, log: baseLog.With("service", "LedgerRepo")}, nil
}

func (r *Repo) DB() *gorm.DB { return r.db }

func (r *Repo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *Repo) StartRun(ctx context.Context, run RunInfo) error {
	id, err := uuid.Parse(run.ID)
	if err != nil {
		return fmt.Errorf("ledger: run id: %w", err)
	}
	row := &Run{
		ID:              id,
		Mode:            run.Mode,
		Model:           run.Model,
		Personalization: run.Personalization,
		CatalogSize:     run.CatalogSize,
		StartedAt:       run.StartedAt,
	}
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repo) RecordResult(ctx context.Context, runID string, position int, res labs.GenerationResult) error {
	id, err := uuid.Parse(runID)
	if err != nil {
		return fmt.Errorf("ledger: run id: %w", err)
	}
	artifact, err := json.Marshal(res.Artifact)
	if err != nil {
		return fmt.Errorf("ledger: encode artifact: %w", err)
	}
	row := &Record{
		ID:            uuid.New(),
		RunID:         id,
		Position:      position,
		ConceptName:   res.Concept.Name,
		Topic:         res.SourceTopic,
		ModelUsed:     res.ModelUsed,
		Success:       res.Success,
		ErrorKind:     string(res.ErrorKind),
		Error:         res.Error,
		Title:         res.Artifact.Title,
		Difficulty:    string(res.Artifact.Difficulty),
		EstimatedTime: res.Artifact.EstimatedTimeMinutes,
		Sections:      len(res.Artifact.Sections),
		Artifact:      datatypes.JSON(artifact),
		CreatedAt:     time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repo) FinishRun(ctx context.Context, summary labs.BatchSummary) error {
	id, err := uuid.Parse(summary.RunID)
	if err != nil {
		return fmt.Errorf("ledger: run id: %w", err)
	}
	b, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("ledger: encode summary: %w", err)
	}
	finished := summary.FinishedAt
	res := r.db.WithContext(ctx).Model(&Run{}).Where("id = ?", id).Updates(map[string]interface{}{
		"total_requested": summary.TotalRequested,
		"successful":      summary.SuccessfulCount,
		"failed":          summary.FailedCount,
		"catalog_size":    summary.CatalogSize,
		"canceled":        summary.Canceled,
		"summary":         datatypes.JSON(b),
		"finished_at":     &finished,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("ledger: run %s not found", summary.RunID)
	}
	return nil
}

func (r *Repo) GetRun(ctx context.Context, runID string) (*Run, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, fmt.Errorf("ledger: run id: %w", err)
	}
	var out Run
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRecords returns a run's records in catalog order.
func (r *Repo) ListRecords(ctx context.Context, runID string) ([]Record, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, fmt.Errorf("ledger: run id: %w", err)
	}
	var out []Record
	if err := r.db.WithContext(ctx).Where("run_id = ?", id).Order("position ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
