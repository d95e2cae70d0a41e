package invoice

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"invoice-reconciliation-backend/internal/apperr"
	"invoice-reconciliation-backend/internal/config"
	"invoice-reconciliation-backend/internal/models"
	"invoice-reconciliation-backend/internal/repository"
)

// Service owns the invoice state machine: issuance against contract ceilings,
// payment application, and red-reverse cancellation.
type Service struct {
	invoices  *repository.InvoiceRepository
	contracts *repository.ContractRepository
	audit     *repository.AuditLogRepository
	db        *gorm.DB
	cfg       config.InvoiceConfig
	log       *zap.Logger
}

func NewService(
	invoices *repository.InvoiceRepository,
	contracts *repository.ContractRepository,
	audit *repository.AuditLogRepository,
	cfg config.InvoiceConfig,
	log *zap.Logger,
) *Service {
	return &Service{
		invoices:  invoices,
		contracts: contracts,
		audit:     audit,
		db:        invoices.DB(),
		cfg:       cfg,
		log:       log,
	}
}

// ValidateInvoiceConditions checks that issuing `amount` against the contract
// would not push the total of non-cancelled invoices past the contract amount.
func (s *Service) ValidateInvoiceConditions(contractID uuid.UUID, amount decimal.Decimal) error {
	contract, err := s.contracts.GetByID(contractID)
	if err != nil {
		return err
	}
	issued, err := s.invoices.SumIssuedForContract(contractID)
	if err != nil {
		return err
	}
	if issued.Add(amount).GreaterThan(contract.Amount) {
		return apperr.Businessf(
			"invoiced total %s plus %s exceeds contract amount %s",
			issued.String(), amount.String(), contract.Amount.String())
	}
	return nil
}

type IssueInvoiceInput struct {
	ContractID          uuid.UUID
	InvoiceMode         models.InvoiceMode
	RelatedProgressIDs  []string
	InvoiceNumber       string
	InvoiceAmount       decimal.Decimal
	InvoiceDate         time.Time
	InvoiceType         models.InvoiceType
	PartialReason       string
	IssuedBy            string
	ExpectedPaymentDate time.Time
}

// IssueInvoice validates the request, enforces the contract ceiling, and
// creates the invoice in pending_payment.
func (s *Service) IssueInvoice(in IssueInvoiceInput) (*models.Invoice, error) {
	contract, err := s.contracts.GetByID(in.ContractID)
	if err != nil {
		return nil, err
	}

	var progressIDs []byte
	if len(in.RelatedProgressIDs) > 0 {
		progressIDs, err = marshalProgressIDs(in.RelatedProgressIDs)
		if err != nil {
			return nil, err
		}
	}

	inv, err := models.NewInvoice(models.NewInvoiceInput{
		ContractID:          contract.ID,
		ContractCode:        contract.ContractNumber,
		ContractName:        contract.ContractName,
		ContractAmount:      contract.Amount,
		InvoiceMode:         in.InvoiceMode,
		RelatedProgressIDs:  progressIDs,
		InvoiceNumber:       in.InvoiceNumber,
		InvoiceAmount:       in.InvoiceAmount,
		InvoiceDate:         in.InvoiceDate,
		InvoiceType:         in.InvoiceType,
		PartialReason:       in.PartialReason,
		IssuedBy:            in.IssuedBy,
		ExpectedPaymentDate: in.ExpectedPaymentDate,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.invoices.GetByNumber(in.InvoiceNumber); err == nil {
		return nil, apperr.Businessf("invoice number %s already exists", in.InvoiceNumber)
	} else if !apperr.IsNotFound(err) {
		return nil, err
	}

	if err := s.ValidateInvoiceConditions(contract.ID, in.InvoiceAmount); err != nil {
		return nil, err
	}

	if err := s.invoices.Create(inv); err != nil {
		return nil, err
	}
	s.log.Info("invoice issued",
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("contract_code", inv.ContractCode),
		zap.String("amount", inv.InvoiceAmount.String()))
	return inv, nil
}

// ProcessPayment applies a payment to an invoice as a single transaction.
func (s *Service) ProcessPayment(invoiceID uuid.UUID, amount decimal.Decimal, isPartial bool) (*models.Invoice, error) {
	var inv *models.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		inv, err = s.ApplyPayment(tx, invoiceID, amount, isPartial)
		return err
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// ApplyPayment runs the payment state transition on the given transaction
// handle. The matching engine calls this inside its own confirm/link
// transaction so the three-record update commits or rolls back as one unit.
// The update is guarded by the remaining amount read at the start, so a
// concurrent payment against the same invoice makes this attempt fail instead
// of double-applying.
func (s *Service) ApplyPayment(tx *gorm.DB, invoiceID uuid.UUID, amount decimal.Decimal, isPartial bool) (*models.Invoice, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperr.Validationf("payment amount must be positive")
	}

	var inv models.Invoice
	err := tx.First(&inv, "id = ?", invoiceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("invoice %s not found", invoiceID)
	}
	if err != nil {
		return nil, err
	}
	if inv.Status == models.InvoiceStatusCancelled {
		return nil, apperr.Businessf("invoice %s is cancelled", inv.InvoiceNumber)
	}
	if amount.GreaterThan(inv.RemainingAmount) {
		return nil, apperr.Businessf("payment %s exceeds remaining amount %s",
			amount.String(), inv.RemainingAmount.String())
	}

	newRemaining := inv.RemainingAmount.Sub(amount)
	settled := newRemaining.IsZero()
	if isPartial && settled {
		return nil, apperr.Validationf("payment declared partial but settles the invoice")
	}
	if !isPartial && !settled {
		return nil, apperr.Validationf("payment declared full but %s remains", newRemaining.String())
	}

	now := time.Now()
	updates := map[string]interface{}{
		"paid_amount":      inv.PaidAmount.Add(amount),
		"remaining_amount": newRemaining,
		"updated_at":       now,
	}
	if settled {
		updates["status"] = models.InvoiceStatusFullPayment
		updates["warning_level"] = models.WarningLevelNone
		updates["actual_payment_date"] = now
	} else {
		updates["status"] = models.InvoiceStatusPartialPayment
	}

	res := tx.Model(&models.Invoice{}).
		Where("id = ? AND status <> ? AND remaining_amount = ?",
			inv.ID, models.InvoiceStatusCancelled, inv.RemainingAmount).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperr.Businessf("invoice %s was modified concurrently", inv.InvoiceNumber)
	}

	if err := tx.First(&inv, "id = ?", inv.ID).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// RedReverse cancels an invoice from any non-cancelled state, recording
// operator and reason. Cancelled is terminal. Ledger amounts are kept as
// history unless red_reverse_restores_amounts is configured.
func (s *Service) RedReverse(invoiceID uuid.UUID, operatorID, operatorName, reason string) (*models.Invoice, error) {
	if reason == "" {
		return nil, apperr.Validationf("red-reverse reason is required")
	}

	var inv models.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.First(&inv, "id = ?", invoiceID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("invoice %s not found", invoiceID)
		}
		if err != nil {
			return err
		}
		if inv.Status == models.InvoiceStatusCancelled {
			return apperr.Businessf("invoice %s is already cancelled", inv.InvoiceNumber)
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":            models.InvoiceStatusCancelled,
			"warning_level":     models.WarningLevelNone,
			"cancelled_by":      operatorID,
			"cancelled_by_name": operatorName,
			"cancel_reason":     reason,
			"cancelled_at":      now,
			"updated_at":        now,
		}
		if s.cfg.RedReverseRestoresAmounts {
			updates["paid_amount"] = decimal.Zero
			updates["remaining_amount"] = decimal.Zero
		}

		res := tx.Model(&models.Invoice{}).
			Where("id = ? AND status <> ?", inv.ID, models.InvoiceStatusCancelled).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Businessf("invoice %s is already cancelled", inv.InvoiceNumber)
		}

		entry := &models.OperationAuditLog{
			ID:            uuid.New(),
			Action:        models.AuditActionRedReverse,
			InvoiceID:     &inv.ID,
			PerformedBy:   operatorID,
			PerformedName: operatorName,
			Reason:        reason,
			CreatedAt:     now,
		}
		if err := s.audit.CreateInTx(tx, entry); err != nil {
			return err
		}

		return tx.First(&inv, "id = ?", inv.ID).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice red-reversed",
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("operator", operatorName))
	return &inv, nil
}

func marshalProgressIDs(ids []string) ([]byte, error) {
	b, err := json.Marshal(ids)
	if err != nil {
		return nil, apperr.Validationf("invalid related progress ids: %v", err)
	}
	return b, nil
}

func (s *Service) GetInvoice(id uuid.UUID) (*models.Invoice, error) {
	return s.invoices.GetByID(id)
}

func (s *Service) ListInvoices(status models.InvoiceStatus) ([]models.Invoice, error) {
	return s.invoices.List(status)
}
