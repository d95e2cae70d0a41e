package reconciliation_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"invoice-reconciliation-backend/internal/config"
	"invoice-reconciliation-backend/internal/models"
	"invoice-reconciliation-backend/internal/repository"
	"invoice-reconciliation-backend/internal/services/reconciliation"
	"invoice-reconciliation-backend/internal/testutil"
)

func newGenerator(t *testing.T) (*reconciliation.Generator, *gorm.DB) {
	t.Helper()
	db := testutil.OpenDB(t)
	gen := reconciliation.NewGenerator(
		repository.NewBankTransactionRepository(db),
		repository.NewMatchResultRepository(db),
		repository.NewReportRepository(db),
		config.ReportConfig{ExceptionTolerance: 0.01},
		zap.NewNop(),
	)
	return gen, db
}

func seedReportTx(t *testing.T, db *gorm.DB, number string, amount int64, status models.TransactionStatus) *models.BankTransaction {
	t.Helper()
	tx := &models.BankTransaction{
		ID:                uuid.New(),
		TransactionDate:   time.Now(),
		Amount:            decimal.NewFromInt(amount),
		TransactionNumber: number,
		TransactionType:   models.TransactionTypeCredit,
		Status:            status,
		CreatedAt:         time.Now(),
	}
	require.NoError(t, db.Create(tx).Error)
	return tx
}

func seedConfirmedMatch(t *testing.T, db *gorm.DB, txID uuid.UUID, difference int64) {
	t.Helper()
	require.NoError(t, db.Create(&models.MatchResult{
		ID:                uuid.New(),
		BankTransactionID: txID,
		InvoiceID:         uuid.New(),
		MatchType:         models.MatchTypeExact,
		Confidence:        100,
		AmountDifference:  decimal.NewFromInt(difference),
		Status:            models.MatchStatusConfirmed,
		CreatedAt:         time.Now(),
	}).Error)
}

func exceptionIDs(t *testing.T, report *models.ReconciliationReport) []string {
	t.Helper()
	var ids []string
	require.NoError(t, json.Unmarshal(report.ExceptionTransactions, &ids))
	return ids
}

func TestGenerateDailyReport(t *testing.T) {
	t.Run("snapshots counts, rate, and exceptions", func(t *testing.T) {
		gen, db := newGenerator(t)

		clean := seedReportTx(t, db, "RPT-1", 50000, models.TransactionStatusMatched)
		seedConfirmedMatch(t, db, clean.ID, 0)

		offBy := seedReportTx(t, db, "RPT-2", 49500, models.TransactionStatusMatched)
		seedConfirmedMatch(t, db, offBy.ID, 500)

		unmatched := seedReportTx(t, db, "RPT-3", 12000, models.TransactionStatusUnmatched)

		report, err := gen.GenerateDailyReport()
		require.NoError(t, err)

		assert.Equal(t, 3, report.TotalTransactions)
		assert.InDelta(t, 66.67, report.MatchSuccessRate, 0.01)
		assert.True(t, report.TotalAmount.Equal(decimal.NewFromInt(111500)))

		ids := exceptionIDs(t, report)
		assert.ElementsMatch(t, []string{offBy.ID.String(), unmatched.ID.String()}, ids)
	})

	t.Run("a difference within tolerance is not an exception", func(t *testing.T) {
		gen, db := newGenerator(t)

		tx := seedReportTx(t, db, "RPT-4", 50000, models.TransactionStatusMatched)
		seedConfirmedMatch(t, db, tx.ID, 0)

		report, err := gen.GenerateDailyReport()
		require.NoError(t, err)
		assert.Equal(t, 100.0, report.MatchSuccessRate)
		assert.Empty(t, exceptionIDs(t, report))
	})

	t.Run("empty ledger yields a zero report", func(t *testing.T) {
		gen, _ := newGenerator(t)

		report, err := gen.GenerateDailyReport()
		require.NoError(t, err)
		assert.Zero(t, report.TotalTransactions)
		assert.Zero(t, report.MatchSuccessRate)
		assert.True(t, report.TotalAmount.IsZero())
		assert.NotNil(t, exceptionIDs(t, report))
		assert.Empty(t, exceptionIDs(t, report))
	})

	t.Run("reports are append-only", func(t *testing.T) {
		gen, db := newGenerator(t)

		seedReportTx(t, db, "RPT-5", 10000, models.TransactionStatusUnmatched)
		first, err := gen.GenerateDailyReport()
		require.NoError(t, err)

		tx := seedReportTx(t, db, "RPT-6", 20000, models.TransactionStatusMatched)
		seedConfirmedMatch(t, db, tx.ID, 0)
		second, err := gen.GenerateDailyReport()
		require.NoError(t, err)

		assert.NotEqual(t, first.ID, second.ID)
		assert.Equal(t, 2, second.TotalTransactions)

		// The earlier snapshot is untouched by the new state.
		var got models.ReconciliationReport
		require.NoError(t, db.First(&got, "id = ?", first.ID).Error)
		assert.Equal(t, 1, got.TotalTransactions)
		assert.Zero(t, got.MatchSuccessRate)

		reports, err := gen.ListReports()
		require.NoError(t, err)
		assert.Len(t, reports, 2)
	})
}
