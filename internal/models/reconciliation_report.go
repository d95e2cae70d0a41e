package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ReconciliationReport is a daily snapshot. Rows are append-only and never
// mutated after creation.
type ReconciliationReport struct {
	ID                    uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ReportDate            time.Time       `gorm:"index" json:"reportDate"`
	TotalTransactions     int             `json:"totalTransactions"`
	MatchSuccessRate      float64         `json:"matchSuccessRate"`
	TotalAmount           decimal.Decimal `gorm:"type:decimal(18,4)" json:"totalAmount"`
	ExceptionTransactions datatypes.JSON  `json:"exceptionTransactions"`
	GeneratedAt           time.Time       `json:"generatedAt"`
}
