package repository

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"invoice-reconciliation-backend/internal/apperr"
	"invoice-reconciliation-backend/internal/models"
)

type MatchResultRepository struct {
	db *gorm.DB
}

func NewMatchResultRepository(db *gorm.DB) *MatchResultRepository {
	return &MatchResultRepository{db: db}
}

func (r *MatchResultRepository) DB() *gorm.DB {
	return r.db
}

func (r *MatchResultRepository) Create(m *models.MatchResult) error {
	return r.db.Create(m).Error
}

func (r *MatchResultRepository) GetByID(id uuid.UUID) (*models.MatchResult, error) {
	var m models.MatchResult
	err := r.db.First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("match result %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns match results, optionally filtered by status.
func (r *MatchResultRepository) List(status models.MatchStatus) ([]models.MatchResult, error) {
	var ms []models.MatchResult
	q := r.db.Order("created_at ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Find(&ms).Error
	return ms, err
}

// ActiveTransactionIDs returns the ids of transactions that already carry a
// non-rejected match result. Auto-matching must skip these.
func (r *MatchResultRepository) ActiveTransactionIDs() (map[uuid.UUID]bool, error) {
	var ms []models.MatchResult
	err := r.db.
		Select("bank_transaction_id").
		Where("status <> ?", models.MatchStatusRejected).
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	ids := make(map[uuid.UUID]bool, len(ms))
	for _, m := range ms {
		ids[m.BankTransactionID] = true
	}
	return ids, nil
}

func (r *MatchResultRepository) ListConfirmed() ([]models.MatchResult, error) {
	return r.List(models.MatchStatusConfirmed)
}
