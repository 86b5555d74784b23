package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Batch status values.
const (
	BatchStatusRunning   = "running"
	BatchStatusCompleted = "completed"
	BatchStatusFailed    = "failed"
)

// ReconBatch is one reconciliation run over one input batch, with the
// aggregate counts reporting collaborators consume.
type ReconBatch struct {
	ID     string `gorm:"primaryKey;type:varchar(26)" json:"id"`
	Source string `gorm:"type:varchar(255);not null" json:"source"` // upload filename or inbox path
	Status string `gorm:"type:varchar(20);not null;index" json:"status"`

	// Populated when Status is failed
	FailedStage string `gorm:"type:varchar(30)" json:"failed_stage"`
	Error       string `gorm:"type:text" json:"error"`

	Columns      datatypes.JSONSlice[string] `gorm:"type:json" json:"columns"` // headers seen on the input
	TotalRecords int                         `json:"total_records"`
	DroppedRows  int                         `json:"dropped_rows"` // rows excluded by the normalizer
	MatchCount   int                         `json:"match_count"`
	BreakCount   int                         `json:"break_count"`
	AnomalyCount int                         `json:"anomaly_count"`

	ClassificationCounts datatypes.JSONType[map[string]int] `gorm:"type:json" json:"classification_counts"`

	Summary string `gorm:"type:text" json:"summary"` // executive summary text

	StartedAt  time.Time      `gorm:"not null;index" json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ReconBatch) TableName() string {
	return "recon_batches"
}
