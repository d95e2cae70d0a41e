package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AuditActionConfirmMatch = "confirm_match"
	AuditActionRejectMatch  = "reject_match"
	AuditActionManualLink   = "manual_link"
	AuditActionRedReverse   = "red_reverse"
)

// OperationAuditLog is an append-only trail of reviewer/operator actions.
type OperationAuditLog struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Action        string     `gorm:"index" json:"action"`
	InvoiceID     *uuid.UUID `gorm:"type:uuid;index" json:"invoiceId,omitempty"`
	TransactionID *uuid.UUID `gorm:"type:uuid;index" json:"transactionId,omitempty"`
	MatchResultID *uuid.UUID `gorm:"type:uuid" json:"matchResultId,omitempty"`
	PerformedBy   string     `json:"performedBy"`
	PerformedName string     `json:"performedName"`
	Reason        string     `json:"reason"`
	CreatedAt     time.Time  `json:"createdAt"`
}
