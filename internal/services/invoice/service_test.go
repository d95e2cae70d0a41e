package invoice_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"invoice-reconciliation-backend/internal/apperr"
	"invoice-reconciliation-backend/internal/config"
	"invoice-reconciliation-backend/internal/models"
	"invoice-reconciliation-backend/internal/repository"
	invoicesvc "invoice-reconciliation-backend/internal/services/invoice"
	"invoice-reconciliation-backend/internal/testutil"
)

func newService(t *testing.T, cfg config.InvoiceConfig) (*invoicesvc.Service, *gorm.DB) {
	t.Helper()
	db := testutil.OpenDB(t)
	svc := invoicesvc.NewService(
		repository.NewInvoiceRepository(db),
		repository.NewContractRepository(db),
		repository.NewAuditLogRepository(db),
		cfg,
		zap.NewNop(),
	)
	return svc, db
}

func defaultInvoiceConfig() config.InvoiceConfig {
	return config.InvoiceConfig{
		OverdueWarningDays: 15,
		OverdueSeriousDays: 30,
	}
}

func seedContract(t *testing.T, db *gorm.DB, amount int64) *models.Contract {
	t.Helper()
	contract := &models.Contract{
		ID:             uuid.New(),
		ContractNumber: "HT-2024-001",
		ContractName:   "华东厂房建设工程",
		Amount:         decimal.NewFromInt(amount),
		Status:         "active",
	}
	require.NoError(t, db.Create(contract).Error)
	return contract
}

func issueInvoice(t *testing.T, svc *invoicesvc.Service, contractID uuid.UUID, number string, amount int64) *models.Invoice {
	t.Helper()
	inv, err := svc.IssueInvoice(invoicesvc.IssueInvoiceInput{
		ContractID:          contractID,
		InvoiceNumber:       number,
		InvoiceAmount:       decimal.NewFromInt(amount),
		InvoiceType:         models.InvoiceTypeNormal,
		IssuedBy:            "op-1",
		ExpectedPaymentDate: time.Now().AddDate(0, 0, 30),
	})
	require.NoError(t, err)
	return inv
}

func TestIssueInvoice(t *testing.T) {
	svc, db := newService(t, defaultInvoiceConfig())
	contract := seedContract(t, db, 100000)

	t.Run("creates pending_payment invoice", func(t *testing.T) {
		inv := issueInvoice(t, svc, contract.ID, "INV-001", 50000)

		assert.Equal(t, models.InvoiceStatusPendingPayment, inv.Status)
		assert.True(t, inv.PaidAmount.IsZero())
		assert.True(t, inv.RemainingAmount.Equal(decimal.NewFromInt(50000)))
		assert.Equal(t, models.WarningLevelNone, inv.WarningLevel)
		assert.Equal(t, contract.ContractNumber, inv.ContractCode)
		assert.Equal(t, contract.ContractName, inv.ContractName)
	})

	t.Run("rejects duplicate invoice number", func(t *testing.T) {
		_, err := svc.IssueInvoice(invoicesvc.IssueInvoiceInput{
			ContractID:          contract.ID,
			InvoiceNumber:       "INV-001",
			InvoiceAmount:       decimal.NewFromInt(1000),
			InvoiceType:         models.InvoiceTypeNormal,
			ExpectedPaymentDate: time.Now().AddDate(0, 0, 30),
		})
		require.Error(t, err)
		assert.True(t, apperr.IsBusiness(err))
	})

	t.Run("rejects amount past contract ceiling", func(t *testing.T) {
		// 50000 already issued against a 100000 contract.
		_, err := svc.IssueInvoice(invoicesvc.IssueInvoiceInput{
			ContractID:          contract.ID,
			InvoiceNumber:       "INV-002",
			InvoiceAmount:       decimal.NewFromInt(60000),
			InvoiceType:         models.InvoiceTypeNormal,
			ExpectedPaymentDate: time.Now().AddDate(0, 0, 30),
		})
		require.Error(t, err)
		assert.True(t, apperr.IsBusiness(err))
	})

	t.Run("accepts amount exactly at ceiling", func(t *testing.T) {
		inv, err := svc.IssueInvoice(invoicesvc.IssueInvoiceInput{
			ContractID:          contract.ID,
			InvoiceNumber:       "INV-003",
			InvoiceAmount:       decimal.NewFromInt(50000),
			InvoiceType:         models.InvoiceTypeNormal,
			ExpectedPaymentDate: time.Now().AddDate(0, 0, 30),
		})
		require.NoError(t, err)
		assert.True(t, inv.RemainingAmount.Equal(decimal.NewFromInt(50000)))
	})

	t.Run("unknown contract is not found", func(t *testing.T) {
		_, err := svc.IssueInvoice(invoicesvc.IssueInvoiceInput{
			ContractID:          uuid.New(),
			InvoiceNumber:       "INV-004",
			InvoiceAmount:       decimal.NewFromInt(1000),
			InvoiceType:         models.InvoiceTypeNormal,
			ExpectedPaymentDate: time.Now().AddDate(0, 0, 30),
		})
		require.Error(t, err)
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestIssueInvoiceValidation(t *testing.T) {
	svc, db := newService(t, defaultInvoiceConfig())
	contract := seedContract(t, db, 100000)

	base := invoicesvc.IssueInvoiceInput{
		ContractID:          contract.ID,
		InvoiceNumber:       "INV-100",
		InvoiceAmount:       decimal.NewFromInt(1000),
		InvoiceType:         models.InvoiceTypeNormal,
		ExpectedPaymentDate: time.Now().AddDate(0, 0, 30),
	}

	tests := []struct {
		name   string
		mutate func(in *invoicesvc.IssueInvoiceInput)
	}{
		{"missing invoice number", func(in *invoicesvc.IssueInvoiceInput) { in.InvoiceNumber = "" }},
		{"zero amount", func(in *invoicesvc.IssueInvoiceInput) { in.InvoiceAmount = decimal.Zero }},
		{"negative amount", func(in *invoicesvc.IssueInvoiceInput) { in.InvoiceAmount = decimal.NewFromInt(-5) }},
		{"missing expected payment date", func(in *invoicesvc.IssueInvoiceInput) { in.ExpectedPaymentDate = time.Time{} }},
		{"partial type without reason", func(in *invoicesvc.IssueInvoiceInput) { in.InvoiceType = models.InvoiceTypePartial }},
		{"red_reverse type not issuable", func(in *invoicesvc.IssueInvoiceInput) { in.InvoiceType = models.InvoiceTypeRedReverse }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			_, err := svc.IssueInvoice(in)
			require.Error(t, err)
			assert.True(t, apperr.IsValidation(err), "expected validation error, got %v", err)
		})
	}

	t.Run("partial type with reason is accepted", func(t *testing.T) {
		in := base
		in.InvoiceType = models.InvoiceTypePartial
		in.PartialReason = "按进度部分开票"
		inv, err := svc.IssueInvoice(in)
		require.NoError(t, err)
		assert.Equal(t, models.InvoiceTypePartial, inv.InvoiceType)
	})
}

func TestProcessPayment(t *testing.T) {
	t.Run("full payment settles the invoice", func(t *testing.T) {
		svc, db := newService(t, defaultInvoiceConfig())
		contract := seedContract(t, db, 100000)
		inv := issueInvoice(t, svc, contract.ID, "INV-A", 50000)

		got, err := svc.ProcessPayment(inv.ID, decimal.NewFromInt(50000), false)
		require.NoError(t, err)

		assert.Equal(t, models.InvoiceStatusFullPayment, got.Status)
		assert.True(t, got.PaidAmount.Equal(decimal.NewFromInt(50000)))
		assert.True(t, got.RemainingAmount.IsZero())
		require.NotNil(t, got.ActualPaymentDate)
	})

	t.Run("partial payment leaves a remainder", func(t *testing.T) {
		svc, db := newService(t, defaultInvoiceConfig())
		contract := seedContract(t, db, 100000)
		inv := issueInvoice(t, svc, contract.ID, "INV-B", 50000)

		got, err := svc.ProcessPayment(inv.ID, decimal.NewFromInt(20000), true)
		require.NoError(t, err)

		assert.Equal(t, models.InvoiceStatusPartialPayment, got.Status)
		assert.True(t, got.PaidAmount.Equal(decimal.NewFromInt(20000)))
		assert.True(t, got.RemainingAmount.Equal(decimal.NewFromInt(30000)))
		assert.Nil(t, got.ActualPaymentDate)
	})

	t.Run("conserves money across a payment sequence", func(t *testing.T) {
		svc, db := newService(t, defaultInvoiceConfig())
		contract := seedContract(t, db, 100000)
		inv := issueInvoice(t, svc, contract.ID, "INV-C", 50000)
		total := decimal.NewFromInt(50000)

		for _, step := range []struct {
			amount  int64
			partial bool
		}{{10000, true}, {15000, true}, {25000, false}} {
			got, err := svc.ProcessPayment(inv.ID, decimal.NewFromInt(step.amount), step.partial)
			require.NoError(t, err)
			assert.True(t, got.PaidAmount.Add(got.RemainingAmount).Equal(total),
				"paid %s + remaining %s != %s", got.PaidAmount, got.RemainingAmount, total)
		}
	})

	t.Run("rejects payment above remaining amount", func(t *testing.T) {
		svc, db := newService(t, defaultInvoiceConfig())
		contract := seedContract(t, db, 100000)
		inv := issueInvoice(t, svc, contract.ID, "INV-D", 50000)

		_, err := svc.ProcessPayment(inv.ID, decimal.NewFromInt(60000), false)
		require.Error(t, err)
		assert.True(t, apperr.IsBusiness(err))

		// No partial mutation.
		got, err := svc.GetInvoice(inv.ID)
		require.NoError(t, err)
		assert.True(t, got.PaidAmount.IsZero())
		assert.Equal(t, models.InvoiceStatusPendingPayment, got.Status)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		svc, db := newService(t, defaultInvoiceConfig())
		contract := seedContract(t, db, 100000)
		inv := issueInvoice(t, svc, contract.ID, "INV-E", 50000)

		_, err := svc.ProcessPayment(inv.ID, decimal.Zero, true)
		require.Error(t, err)
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("rejects isPartial mismatch", func(t *testing.T) {
		svc, db := newService(t, defaultInvoiceConfig())
		contract := seedContract(t, db, 100000)
		inv := issueInvoice(t, svc, contract.ID, "INV-F", 50000)

		// Declared partial but settles.
		_, err := svc.ProcessPayment(inv.ID, decimal.NewFromInt(50000), true)
		require.Error(t, err)
		assert.True(t, apperr.IsValidation(err))

		// Declared full but leaves a remainder.
		_, err = svc.ProcessPayment(inv.ID, decimal.NewFromInt(10000), false)
		require.Error(t, err)
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("unknown invoice is not found", func(t *testing.T) {
		svc, _ := newService(t, defaultInvoiceConfig())
		_, err := svc.ProcessPayment(uuid.New(), decimal.NewFromInt(100), true)
		require.Error(t, err)
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestRedReverse(t *testing.T) {
	t.Run("cancels from full_payment and is terminal", func(t *testing.T) {
		svc, db := newService(t, defaultInvoiceConfig())
		contract := seedContract(t, db, 100000)
		inv := issueInvoice(t, svc, contract.ID, "INV-R1", 50000)
		_, err := svc.ProcessPayment(inv.ID, decimal.NewFromInt(50000), false)
		require.NoError(t, err)

		got, err := svc.RedReverse(inv.ID, "op-9", "王会计", "开票信息错误")
		require.NoError(t, err)
		assert.Equal(t, models.InvoiceStatusCancelled, got.Status)
		assert.Equal(t, "op-9", got.CancelledBy)
		assert.Equal(t, "王会计", got.CancelledByName)
		assert.Equal(t, "开票信息错误", got.CancelReason)
		require.NotNil(t, got.CancelledAt)

		// Ledger amounts stay as history by default.
		assert.True(t, got.PaidAmount.Equal(decimal.NewFromInt(50000)))
		assert.True(t, got.RemainingAmount.IsZero())

		// Terminal: a second red-reverse fails.
		_, err = svc.RedReverse(inv.ID, "op-9", "王会计", "再次红冲")
		require.Error(t, err)
		assert.True(t, apperr.IsBusiness(err))

		// Payments against a cancelled invoice fail.
		_, err = svc.ProcessPayment(inv.ID, decimal.NewFromInt(1), true)
		require.Error(t, err)
		assert.True(t, apperr.IsBusiness(err))
	})

	t.Run("writes an audit trail entry", func(t *testing.T) {
		svc, db := newService(t, defaultInvoiceConfig())
		contract := seedContract(t, db, 100000)
		inv := issueInvoice(t, svc, contract.ID, "INV-R2", 50000)

		_, err := svc.RedReverse(inv.ID, "op-9", "王会计", "合同作废")
		require.NoError(t, err)

		entries, err := repository.NewAuditLogRepository(db).ListByInvoice(inv.ID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, models.AuditActionRedReverse, entries[0].Action)
		assert.Equal(t, "合同作废", entries[0].Reason)
	})

	t.Run("rejects empty reason", func(t *testing.T) {
		svc, db := newService(t, defaultInvoiceConfig())
		contract := seedContract(t, db, 100000)
		inv := issueInvoice(t, svc, contract.ID, "INV-R3", 50000)

		_, err := svc.RedReverse(inv.ID, "op-9", "王会计", "")
		require.Error(t, err)
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("unknown invoice is not found", func(t *testing.T) {
		svc, _ := newService(t, defaultInvoiceConfig())
		_, err := svc.RedReverse(uuid.New(), "op-9", "王会计", "原因")
		require.Error(t, err)
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("restores amounts when configured", func(t *testing.T) {
		cfg := defaultInvoiceConfig()
		cfg.RedReverseRestoresAmounts = true
		svc, db := newService(t, cfg)
		contract := seedContract(t, db, 100000)
		inv := issueInvoice(t, svc, contract.ID, "INV-R4", 50000)
		_, err := svc.ProcessPayment(inv.ID, decimal.NewFromInt(20000), true)
		require.NoError(t, err)

		got, err := svc.RedReverse(inv.ID, "op-9", "王会计", "重新开票")
		require.NoError(t, err)
		assert.True(t, got.PaidAmount.IsZero())
		assert.True(t, got.RemainingAmount.IsZero())
	})

	t.Run("cancelled invoices free up the contract ceiling", func(t *testing.T) {
		svc, db := newService(t, defaultInvoiceConfig())
		contract := seedContract(t, db, 100000)
		inv := issueInvoice(t, svc, contract.ID, "INV-R5", 100000)

		_, err := svc.RedReverse(inv.ID, "op-9", "王会计", "金额有误")
		require.NoError(t, err)

		// The full ceiling is available again.
		_, err = svc.IssueInvoice(invoicesvc.IssueInvoiceInput{
			ContractID:          contract.ID,
			InvoiceNumber:       "INV-R6",
			InvoiceAmount:       decimal.NewFromInt(100000),
			InvoiceType:         models.InvoiceTypeNormal,
			ExpectedPaymentDate: time.Now().AddDate(0, 0, 30),
		})
		require.NoError(t, err)
	})
}
