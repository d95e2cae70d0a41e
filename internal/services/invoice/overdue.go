package invoice

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"invoice-reconciliation-backend/internal/models"
)

// CheckOverdueInvoices re-derives status and warning level for every invoice
// still expecting payment. Status is derived from paid amount and days late
// only, never from retained history, so re-running with no elapsed time is a
// no-op. Returns the number of invoices updated.
func (s *Service) CheckOverdueInvoices() (int, error) {
	var invoices []models.Invoice
	err := s.db.
		Where("status IN ?", []models.InvoiceStatus{
			models.InvoiceStatusPendingPayment,
			models.InvoiceStatusPartialPayment,
			models.InvoiceStatusOverdue15,
			models.InvoiceStatusOverdue30,
		}).
		Find(&invoices).Error
	if err != nil {
		return 0, err
	}

	now := time.Now()
	updated := 0
	for _, inv := range invoices {
		status, level := s.deriveOverdueState(&inv, now)
		if status == inv.Status && level == inv.WarningLevel {
			continue
		}
		res := s.db.Model(&models.Invoice{}).
			Where("id = ?", inv.ID).
			Updates(map[string]interface{}{
				"status":        status,
				"warning_level": level,
				"updated_at":    now,
			})
		if res.Error != nil {
			return updated, res.Error
		}
		updated++
	}

	if updated > 0 {
		s.log.Info("overdue check applied", zap.Int("updated", updated))
	}
	return updated, nil
}

func (s *Service) deriveOverdueState(inv *models.Invoice, now time.Time) (models.InvoiceStatus, models.WarningLevel) {
	base := models.InvoiceStatusPendingPayment
	if inv.PaidAmount.GreaterThan(decimal.Zero) {
		base = models.InvoiceStatusPartialPayment
	}

	days := daysLate(inv.ExpectedPaymentDate, now)
	switch {
	case days >= s.cfg.OverdueSeriousDays:
		return models.InvoiceStatusOverdue30, models.WarningLevelSerious
	case days >= s.cfg.OverdueWarningDays:
		return models.InvoiceStatusOverdue15, models.WarningLevelWarning
	default:
		return base, models.WarningLevelNone
	}
}

// WarningMessages returns one human-readable line per invoice carrying a
// warning level, recomputed fresh on each call.
func (s *Service) WarningMessages() ([]string, error) {
	invoices, err := s.invoices.ListWithWarnings()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	messages := make([]string, 0, len(invoices))
	for _, inv := range invoices {
		messages = append(messages, fmt.Sprintf(
			"发票 %s(%s)已逾期 %d 天,剩余应收 %s",
			inv.InvoiceNumber, inv.ContractName,
			daysLate(inv.ExpectedPaymentDate, now),
			inv.RemainingAmount.String()))
	}
	return messages, nil
}

// daysLate counts whole calendar days between the expected payment date and
// now, ignoring time of day.
func daysLate(expected, now time.Time) int {
	e := time.Date(expected.Year(), expected.Month(), expected.Day(), 0, 0, 0, 0, time.UTC)
	n := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(n.Sub(e).Hours() / 24)
}
