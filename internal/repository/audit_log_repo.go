package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"invoice-reconciliation-backend/internal/models"
)

type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Create(entry *models.OperationAuditLog) error {
	return r.db.Create(entry).Error
}

// CreateInTx writes an entry on the caller's transaction handle so the audit
// row commits or rolls back with the operation it records.
func (r *AuditLogRepository) CreateInTx(tx *gorm.DB, entry *models.OperationAuditLog) error {
	return tx.Create(entry).Error
}

func (r *AuditLogRepository) ListByInvoice(invoiceID uuid.UUID) ([]models.OperationAuditLog, error) {
	var entries []models.OperationAuditLog
	err := r.db.
		Where("invoice_id = ?", invoiceID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}
