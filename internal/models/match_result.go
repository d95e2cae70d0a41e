package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type MatchType string

const (
	MatchTypeExact     MatchType = "exact"
	MatchTypeSuspected MatchType = "suspected"
	MatchTypeManual    MatchType = "manual"
)

type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusConfirmed MatchStatus = "confirmed"
	MatchStatusRejected  MatchStatus = "rejected"
)

// MatchResult links a bank transaction to an invoice. A transaction carries at
// most one non-rejected result at a time; an invoice may accumulate several
// confirmed results across partial payments.
type MatchResult struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BankTransactionID uuid.UUID       `gorm:"type:uuid;index" json:"bankTransactionId"`
	InvoiceID         uuid.UUID       `gorm:"type:uuid;index" json:"invoiceId"`
	MatchType         MatchType       `json:"matchType"`
	Confidence        float64         `json:"confidence"`
	AmountDifference  decimal.Decimal `gorm:"type:decimal(18,4)" json:"amountDifference"`
	Status            MatchStatus     `gorm:"index" json:"status"`
	ReviewedBy        string          `json:"reviewedBy,omitempty"`
	ReviewedByName    string          `json:"reviewedByName,omitempty"`
	ReviewedAt        *time.Time      `json:"reviewedAt,omitempty"`
	Comments          string          `json:"comments,omitempty"`
	Breakdown         datatypes.JSON  `json:"breakdown,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}
