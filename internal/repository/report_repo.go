package repository

import (
	"gorm.io/gorm"

	"invoice-reconciliation-backend/internal/models"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(report *models.ReconciliationReport) error {
	return r.db.Create(report).Error
}

func (r *ReportRepository) List() ([]models.ReconciliationReport, error) {
	var reports []models.ReconciliationReport
	err := r.db.Order("generated_at DESC").Find(&reports).Error
	return reports, err
}
