package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ImportBatchStatusProcessing = "processing"
	ImportBatchStatusCompleted  = "completed"
	ImportBatchStatusFailed     = "failed"
)

// ImportBatch records one bank-statement import: how many rows landed and how
// many were dropped or skipped as duplicates.
type ImportBatch struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Filename      string     `json:"filename"`
	ImportedCount int        `json:"importedCount"`
	SkippedCount  int        `json:"skippedCount"`
	Status        string     `json:"status"`
	OperatorID    string     `json:"operatorId"`
	OperatorName  string     `json:"operatorName"`
	StartedAt     time.Time  `json:"startedAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}
