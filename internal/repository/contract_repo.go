package repository

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"invoice-reconciliation-backend/internal/apperr"
	"invoice-reconciliation-backend/internal/models"
)

// ContractRepository is read-only from this service's point of view; contract
// rows are maintained by the contract-management system sharing the database.
type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

func (r *ContractRepository) GetByID(id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	err := r.db.First(&contract, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("contract %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &contract, nil
}
