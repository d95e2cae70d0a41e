package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"invoice-reconciliation-backend/internal/apperr"
	"invoice-reconciliation-backend/internal/models"
)

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Expose DB for transactional service code
func (r *InvoiceRepository) DB() *gorm.DB {
	return r.db
}

func (r *InvoiceRepository) Create(inv *models.Invoice) error {
	return r.db.Create(inv).Error
}

func (r *InvoiceRepository) GetByID(id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.First(&invoice, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("invoice %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *InvoiceRepository) GetByNumber(number string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.First(&invoice, "invoice_number = ?", number).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("invoice %s not found", number)
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// List returns invoices, optionally filtered by status.
func (r *InvoiceRepository) List(status models.InvoiceStatus) ([]models.Invoice, error) {
	var invoices []models.Invoice
	q := r.db.Order("created_at ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Find(&invoices).Error
	return invoices, err
}

// ListOpen returns invoices still expecting payment, ordered so that earlier
// expected payment dates come first.
func (r *InvoiceRepository) ListOpen() ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.
		Where("status IN ?", models.OpenInvoiceStatuses).
		Order("expected_payment_date ASC").
		Find(&invoices).Error
	return invoices, err
}

// ListWithWarnings returns non-cancelled invoices carrying a warning level.
func (r *InvoiceRepository) ListWithWarnings() ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.
		Where("warning_level <> ?", models.WarningLevelNone).
		Where("status <> ?", models.InvoiceStatusCancelled).
		Order("expected_payment_date ASC").
		Find(&invoices).Error
	return invoices, err
}

// SumIssuedForContract sums the invoice amounts of all non-cancelled invoices
// against a contract. Summed in Go so decimal precision survives the driver.
func (r *InvoiceRepository) SumIssuedForContract(contractID uuid.UUID) (decimal.Decimal, error) {
	var invoices []models.Invoice
	err := r.db.
		Select("invoice_amount").
		Where("contract_id = ?", contractID).
		Where("status <> ?", models.InvoiceStatusCancelled).
		Find(&invoices).Error
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, inv := range invoices {
		sum = sum.Add(inv.InvoiceAmount)
	}
	return sum, nil
}
