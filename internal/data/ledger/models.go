package ledger

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Run is one batch or single invocation.
type Run struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Mode            string         `gorm:"column:mode;not null;index" json:"mode"`
	Model           string         `gorm:"column:model;not null" json:"model"`
	Personalization string         `gorm:"column:personalization" json:"personalization,omitempty"`
	CatalogSize     int            `gorm:"column:catalog_size;not null;default:0" json:"catalog_size"`
	TotalRequested  int            `gorm:"column:total_requested;not null;default:0" json:"total_requested"`
	Successful      int            `gorm:"column:successful;not null;default:0" json:"successful"`
	Failed          int            `gorm:"column:failed;not null;default:0" json:"failed"`
	Canceled        bool           `gorm:"column:canceled;not null;default:false" json:"canceled"`
	Summary         datatypes.JSON `gorm:"column:summary" json:"summary,omitempty"`
	StartedAt       time.Time      `gorm:"column:started_at;not null;index" json:"started_at"`
	FinishedAt      *time.Time     `gorm:"column:finished_at;index" json:"finished_at,omitempty"`
}

func (Run) TableName() string { return "lab_generation_run" }

// Record is the outcome for one concept within a run.
type Record struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RunID         uuid.UUID      `gorm:"type:uuid;column:run_id;not null;index" json:"run_id"`
	Position      int            `gorm:"column:position;not null" json:"position"`
	ConceptName   string         `gorm:"column:concept_name;not null;index" json:"concept_name"`
	Topic         string         `gorm:"column:topic" json:"topic"`
	ModelUsed     string         `gorm:"column:model_used;not null" json:"model_used"`
	Success       bool           `gorm:"column:success;not null;index" json:"success"`
	ErrorKind     string         `gorm:"column:error_kind;index" json:"error_kind,omitempty"`
	Error         string         `gorm:"column:error" json:"error,omitempty"`
	Title         string         `gorm:"column:title" json:"title"`
	Difficulty    string         `gorm:"column:difficulty" json:"difficulty"`
	EstimatedTime int            `gorm:"column:estimated_time" json:"estimated_time"`
	Sections      int            `gorm:"column:num_sections" json:"num_sections"`
	Artifact      datatypes.JSON `gorm:"column:artifact" json:"artifact,omitempty"`
	CreatedAt     time.Time      `gorm:"column:created_at;not null;index" json:"created_at"`
}

func (Record) TableName() string { return "lab_generation_record" }
