package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"invoice-reconciliation-backend/internal/apperr"
)

type InvoiceStatus string

const (
	InvoiceStatusIssued         InvoiceStatus = "issued"
	InvoiceStatusPendingPayment InvoiceStatus = "pending_payment"
	InvoiceStatusPartialPayment InvoiceStatus = "partial_payment"
	InvoiceStatusFullPayment    InvoiceStatus = "full_payment"
	InvoiceStatusOverdue15      InvoiceStatus = "overdue_15"
	InvoiceStatusOverdue30      InvoiceStatus = "overdue_30"
	InvoiceStatusCancelled      InvoiceStatus = "cancelled"
)

// OpenInvoiceStatuses are the states in which an invoice still expects money
// and may be the target of a match.
var OpenInvoiceStatuses = []InvoiceStatus{
	InvoiceStatusIssued,
	InvoiceStatusPendingPayment,
	InvoiceStatusPartialPayment,
	InvoiceStatusOverdue15,
	InvoiceStatusOverdue30,
}

type InvoiceMode string

const (
	InvoiceModeAuto   InvoiceMode = "auto"
	InvoiceModeManual InvoiceMode = "manual"
)

type InvoiceType string

const (
	InvoiceTypeNormal     InvoiceType = "normal"
	InvoiceTypeRedReverse InvoiceType = "red_reverse"
	InvoiceTypePartial    InvoiceType = "partial"
)

type WarningLevel string

const (
	WarningLevelNone    WarningLevel = "none"
	WarningLevelWarning WarningLevel = "warning_15"
	WarningLevelSerious WarningLevel = "serious_30"
)

type Invoice struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ContractID          uuid.UUID       `gorm:"type:uuid;index" json:"contractId"`
	ContractCode        string          `json:"contractCode"`
	ContractName        string          `json:"contractName"`
	ContractAmount      decimal.Decimal `gorm:"type:decimal(18,4)" json:"contractAmount"`
	InvoiceMode         InvoiceMode     `json:"invoiceMode"`
	RelatedProgressIDs  datatypes.JSON  `json:"relatedProgressIds,omitempty"`
	InvoiceNumber       string          `gorm:"uniqueIndex" json:"invoiceNumber"`
	InvoiceAmount       decimal.Decimal `gorm:"type:decimal(18,4)" json:"invoiceAmount"`
	InvoiceDate         time.Time       `json:"invoiceDate"`
	InvoiceType         InvoiceType     `json:"invoiceType"`
	PartialReason       string          `json:"partialReason,omitempty"`
	Status              InvoiceStatus   `gorm:"index" json:"status"`
	IssuedAt            time.Time       `json:"issuedAt"`
	IssuedBy            string          `json:"issuedBy"`
	ExpectedPaymentDate time.Time       `json:"expectedPaymentDate"`
	ActualPaymentDate   *time.Time      `json:"actualPaymentDate,omitempty"`
	PaidAmount          decimal.Decimal `gorm:"type:decimal(18,4)" json:"paidAmount"`
	RemainingAmount     decimal.Decimal `gorm:"type:decimal(18,4)" json:"remainingAmount"`
	WarningLevel        WarningLevel    `gorm:"index" json:"warningLevel"`
	CancelledBy         string          `json:"cancelledBy,omitempty"`
	CancelledByName     string          `json:"cancelledByName,omitempty"`
	CancelReason        string          `json:"cancelReason,omitempty"`
	CancelledAt         *time.Time      `json:"cancelledAt,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

// NewInvoiceInput carries everything issuance needs. Contract fields are
// denormalized onto the invoice for matching and display.
type NewInvoiceInput struct {
	ContractID          uuid.UUID
	ContractCode        string
	ContractName        string
	ContractAmount      decimal.Decimal
	InvoiceMode         InvoiceMode
	RelatedProgressIDs  datatypes.JSON
	InvoiceNumber       string
	InvoiceAmount       decimal.Decimal
	InvoiceDate         time.Time
	InvoiceType         InvoiceType
	PartialReason       string
	IssuedBy            string
	ExpectedPaymentDate time.Time
}

// NewInvoice validates the input and returns a pending_payment invoice with
// paid=0 and remaining=amount. Invalid type/reason combinations are rejected
// here so they never reach the store.
func NewInvoice(in NewInvoiceInput) (*Invoice, error) {
	if in.InvoiceNumber == "" {
		return nil, apperr.Validationf("invoice number is required")
	}
	if in.InvoiceAmount.LessThanOrEqual(decimal.Zero) {
		return nil, apperr.Validationf("invoice amount must be positive")
	}
	if in.ExpectedPaymentDate.IsZero() {
		return nil, apperr.Validationf("expected payment date is required")
	}
	switch in.InvoiceType {
	case InvoiceTypeNormal:
	case InvoiceTypePartial:
		if in.PartialReason == "" {
			return nil, apperr.Validationf("partial invoice requires a reason")
		}
	default:
		return nil, apperr.Validationf("invalid invoice type %q", in.InvoiceType)
	}
	mode := in.InvoiceMode
	if mode == "" {
		mode = InvoiceModeManual
	}
	if mode != InvoiceModeAuto && mode != InvoiceModeManual {
		return nil, apperr.Validationf("invalid invoice mode %q", mode)
	}

	now := time.Now()
	invoiceDate := in.InvoiceDate
	if invoiceDate.IsZero() {
		invoiceDate = now
	}

	return &Invoice{
		ID:                  uuid.New(),
		ContractID:          in.ContractID,
		ContractCode:        in.ContractCode,
		ContractName:        in.ContractName,
		ContractAmount:      in.ContractAmount,
		InvoiceMode:         mode,
		RelatedProgressIDs:  in.RelatedProgressIDs,
		InvoiceNumber:       in.InvoiceNumber,
		InvoiceAmount:       in.InvoiceAmount,
		InvoiceDate:         invoiceDate,
		InvoiceType:         in.InvoiceType,
		PartialReason:       in.PartialReason,
		Status:              InvoiceStatusPendingPayment,
		IssuedAt:            now,
		IssuedBy:            in.IssuedBy,
		ExpectedPaymentDate: in.ExpectedPaymentDate,
		PaidAmount:          decimal.Zero,
		RemainingAmount:     in.InvoiceAmount,
		WarningLevel:        WarningLevelNone,
		CreatedAt:           now,
	}, nil
}
