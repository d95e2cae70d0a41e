package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Contract is a read-only collaborator record. Contract management lives
// outside this service; invoice issuance only reads the amount ceiling.
type Contract struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ContractNumber string          `gorm:"uniqueIndex" json:"contractNumber"`
	ContractName   string          `json:"contractName"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,4)" json:"amount"`
	Status         string          `json:"status"`
}
