package invoice_test

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-reconciliation-backend/internal/models"
	invoicesvc "invoice-reconciliation-backend/internal/services/invoice"
)

func issueInvoiceDue(t *testing.T, svc *invoicesvc.Service, input invoicesvc.IssueInvoiceInput) *models.Invoice {
	t.Helper()
	inv, err := svc.IssueInvoice(input)
	require.NoError(t, err)
	return inv
}

func TestCheckOverdueInvoices(t *testing.T) {
	svc, db := newService(t, defaultInvoiceConfig())
	contract := seedContract(t, db, 1000000)

	mkInput := func(number string, daysUntilDue int) invoicesvc.IssueInvoiceInput {
		return invoicesvc.IssueInvoiceInput{
			ContractID:          contract.ID,
			InvoiceNumber:       number,
			InvoiceAmount:       decimal.NewFromInt(10000),
			InvoiceType:         models.InvoiceTypeNormal,
			ExpectedPaymentDate: time.Now().AddDate(0, 0, daysUntilDue),
		}
	}

	current := issueInvoiceDue(t, svc, mkInput("OD-1", 10))
	warning := issueInvoiceDue(t, svc, mkInput("OD-2", -20))
	serious := issueInvoiceDue(t, svc, mkInput("OD-3", -40))
	partialSerious := issueInvoiceDue(t, svc, mkInput("OD-4", -40))
	_, err := svc.ProcessPayment(partialSerious.ID, decimal.NewFromInt(4000), true)
	require.NoError(t, err)

	updated, err := svc.CheckOverdueInvoices()
	require.NoError(t, err)
	assert.Equal(t, 3, updated)

	check := func(id interface{}, status models.InvoiceStatus, level models.WarningLevel) {
		var inv models.Invoice
		require.NoError(t, db.First(&inv, "id = ?", id).Error)
		assert.Equal(t, status, inv.Status, "invoice %s", inv.InvoiceNumber)
		assert.Equal(t, level, inv.WarningLevel, "invoice %s", inv.InvoiceNumber)
	}

	check(current.ID, models.InvoiceStatusPendingPayment, models.WarningLevelNone)
	check(warning.ID, models.InvoiceStatusOverdue15, models.WarningLevelWarning)
	check(serious.ID, models.InvoiceStatusOverdue30, models.WarningLevelSerious)
	check(partialSerious.ID, models.InvoiceStatusOverdue30, models.WarningLevelSerious)

	t.Run("idempotent with no elapsed time", func(t *testing.T) {
		updated, err := svc.CheckOverdueInvoices()
		require.NoError(t, err)
		assert.Zero(t, updated)

		check(warning.ID, models.InvoiceStatusOverdue15, models.WarningLevelWarning)
		check(serious.ID, models.InvoiceStatusOverdue30, models.WarningLevelSerious)
	})

	t.Run("reverts toward partial once settled enough", func(t *testing.T) {
		// Simulate the expected date being pushed out after a renegotiation.
		require.NoError(t, db.Model(&models.Invoice{}).
			Where("id = ?", partialSerious.ID).
			Update("expected_payment_date", time.Now().AddDate(0, 0, 10)).Error)

		_, err := svc.CheckOverdueInvoices()
		require.NoError(t, err)
		check(partialSerious.ID, models.InvoiceStatusPartialPayment, models.WarningLevelNone)
	})

	t.Run("cancelled invoices are left alone", func(t *testing.T) {
		_, err := svc.RedReverse(serious.ID, "op-1", "王会计", "作废")
		require.NoError(t, err)

		updated, err := svc.CheckOverdueInvoices()
		require.NoError(t, err)
		assert.Zero(t, updated)
		check(serious.ID, models.InvoiceStatusCancelled, models.WarningLevelNone)
	})
}

func TestWarningMessages(t *testing.T) {
	svc, db := newService(t, defaultInvoiceConfig())
	contract := seedContract(t, db, 1000000)

	issueInvoiceDue(t, svc, invoicesvc.IssueInvoiceInput{
		ContractID:          contract.ID,
		InvoiceNumber:       "WM-1",
		InvoiceAmount:       decimal.NewFromInt(10000),
		InvoiceType:         models.InvoiceTypeNormal,
		ExpectedPaymentDate: time.Now().AddDate(0, 0, -20),
	})
	issueInvoiceDue(t, svc, invoicesvc.IssueInvoiceInput{
		ContractID:          contract.ID,
		InvoiceNumber:       "WM-2",
		InvoiceAmount:       decimal.NewFromInt(10000),
		InvoiceType:         models.InvoiceTypeNormal,
		ExpectedPaymentDate: time.Now().AddDate(0, 0, 10),
	})

	_, err := svc.CheckOverdueInvoices()
	require.NoError(t, err)

	messages, err := svc.WarningMessages()
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.True(t, strings.Contains(messages[0], "WM-1"))
	assert.True(t, strings.Contains(messages[0], contract.ContractName))
	assert.True(t, strings.Contains(messages[0], "20"))

	// Recomputed fresh: a second call yields the same list.
	again, err := svc.WarningMessages()
	require.NoError(t, err)
	assert.Equal(t, messages, again)
}
