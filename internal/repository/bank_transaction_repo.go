package repository

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"invoice-reconciliation-backend/internal/apperr"
	"invoice-reconciliation-backend/internal/models"
)

type BankTransactionRepository struct {
	db *gorm.DB
}

func NewBankTransactionRepository(db *gorm.DB) *BankTransactionRepository {
	return &BankTransactionRepository{db: db}
}

func (r *BankTransactionRepository) DB() *gorm.DB {
	return r.db
}

func (r *BankTransactionRepository) Create(tx *models.BankTransaction) error {
	return r.db.Create(tx).Error
}

func (r *BankTransactionRepository) GetByID(id uuid.UUID) (*models.BankTransaction, error) {
	var tx models.BankTransaction
	err := r.db.First(&tx, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("bank transaction %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *BankTransactionRepository) ExistsByNumber(number string) (bool, error) {
	var count int64
	err := r.db.Model(&models.BankTransaction{}).
		Where("transaction_number = ?", number).
		Count(&count).Error
	return count > 0, err
}

func (r *BankTransactionRepository) ListUnmatched() ([]models.BankTransaction, error) {
	var txs []models.BankTransaction
	err := r.db.
		Where("status = ?", models.TransactionStatusUnmatched).
		Order("transaction_date ASC").
		Find(&txs).Error
	return txs, err
}

// List returns transactions, optionally filtered by status.
func (r *BankTransactionRepository) List(status models.TransactionStatus) ([]models.BankTransaction, error) {
	var txs []models.BankTransaction
	q := r.db.Order("transaction_date ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Find(&txs).Error
	return txs, err
}
