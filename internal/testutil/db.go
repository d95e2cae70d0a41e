package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"invoice-reconciliation-backend/internal/models"
)

// OpenDB returns an isolated in-memory database with the full schema. Each
// call uses a unique shared-cache name so the connection pool sees one
// database per test.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Contract{},
		&models.Invoice{},
		&models.BankTransaction{},
		&models.MatchResult{},
		&models.ImportBatch{},
		&models.OperationAuditLog{},
		&models.ReconciliationReport{},
	); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}
