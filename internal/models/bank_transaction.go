package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionStatusUnmatched    TransactionStatus = "unmatched"
	TransactionStatusMatched      TransactionStatus = "matched"
	TransactionStatusManualLinked TransactionStatus = "manual_linked"
	TransactionStatusFrozen       TransactionStatus = "frozen"
)

type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

type BankTransaction struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ImportBatchID     uuid.UUID         `gorm:"type:uuid;index" json:"importBatchId"`
	TransactionDate   time.Time         `gorm:"column:transaction_date" json:"transactionDate"`
	Amount            decimal.Decimal   `gorm:"type:decimal(18,4);index" json:"amount"`
	CounterpartyName  string            `json:"counterpartyName"`
	TransactionNumber string            `gorm:"uniqueIndex" json:"transactionNumber"`
	TransactionType   TransactionType   `json:"transactionType"`
	Description       string            `json:"description"`
	Remarks           string            `json:"remarks"`
	Status            TransactionStatus `gorm:"index" json:"status"`
	RelatedInvoiceID  *uuid.UUID        `gorm:"type:uuid" json:"relatedInvoiceId,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}
