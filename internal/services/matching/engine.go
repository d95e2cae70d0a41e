package matching

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"invoice-reconciliation-backend/internal/apperr"
	"invoice-reconciliation-backend/internal/config"
	"invoice-reconciliation-backend/internal/models"
	"invoice-reconciliation-backend/internal/repository"
	invoicesvc "invoice-reconciliation-backend/internal/services/invoice"
)

// Engine imports bank transactions, proposes transaction/invoice matches, and
// applies confirmed matches as payments through the invoice service.
type Engine struct {
	transactions *repository.BankTransactionRepository
	invoices     *repository.InvoiceRepository
	matches      *repository.MatchResultRepository
	invoiceSvc   *invoicesvc.Service
	scorer       Scorer
	cfg          config.MatchingConfig
	db           *gorm.DB
	log          *zap.Logger
}

func NewEngine(
	transactions *repository.BankTransactionRepository,
	invoices *repository.InvoiceRepository,
	matches *repository.MatchResultRepository,
	invoiceSvc *invoicesvc.Service,
	scorer Scorer,
	cfg config.MatchingConfig,
	log *zap.Logger,
) *Engine {
	return &Engine{
		transactions: transactions,
		invoices:     invoices,
		matches:      matches,
		invoiceSvc:   invoiceSvc,
		scorer:       scorer,
		cfg:          cfg,
		db:           transactions.DB(),
		log:          log,
	}
}

// TransactionRow is one raw statement row, as parsed out of an uploaded file.
type TransactionRow struct {
	TransactionDate   string
	Amount            string
	CounterpartyName  string
	TransactionNumber string
	TransactionType   string
	Description       string
	Remarks           string
}

// ImportBankTransactions creates unmatched transactions from statement rows.
// Rows with an unparseable date or non-positive amount are dropped, and rows
// whose transaction number already exists are skipped; neither aborts the
// batch.
func (e *Engine) ImportBankTransactions(rows []TransactionRow, filename, operatorID, operatorName string) (*models.ImportBatch, error) {
	now := time.Now()
	batch := &models.ImportBatch{
		ID:           uuid.New(),
		Filename:     filename,
		Status:       models.ImportBatchStatusProcessing,
		OperatorID:   operatorID,
		OperatorName: operatorName,
		StartedAt:    now,
		CreatedAt:    now,
	}
	if err := e.db.Create(batch).Error; err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, row := range rows {
		tx, ok := e.parseRow(batch.ID, row)
		if !ok {
			batch.SkippedCount++
			continue
		}
		if seen[tx.TransactionNumber] {
			batch.SkippedCount++
			continue
		}
		exists, err := e.transactions.ExistsByNumber(tx.TransactionNumber)
		if err != nil {
			e.failBatch(batch)
			return nil, err
		}
		if exists {
			e.log.Warn("duplicate transaction number skipped",
				zap.String("transaction_number", tx.TransactionNumber))
			batch.SkippedCount++
			continue
		}
		if err := e.transactions.Create(tx); err != nil {
			e.failBatch(batch)
			return nil, err
		}
		seen[tx.TransactionNumber] = true
		batch.ImportedCount++
	}

	completed := time.Now()
	batch.Status = models.ImportBatchStatusCompleted
	batch.CompletedAt = &completed
	if err := e.db.Model(&models.ImportBatch{}).
		Where("id = ?", batch.ID).
		Updates(map[string]interface{}{
			"imported_count": batch.ImportedCount,
			"skipped_count":  batch.SkippedCount,
			"status":         batch.Status,
			"completed_at":   completed,
		}).Error; err != nil {
		return nil, err
	}

	e.log.Info("bank transactions imported",
		zap.String("filename", filename),
		zap.Int("imported", batch.ImportedCount),
		zap.Int("skipped", batch.SkippedCount))
	return batch, nil
}

// failBatch marks the batch failed after a store error mid-import, recording
// whatever was committed before the error.
func (e *Engine) failBatch(batch *models.ImportBatch) {
	now := time.Now()
	batch.Status = models.ImportBatchStatusFailed
	batch.CompletedAt = &now
	if err := e.db.Model(&models.ImportBatch{}).
		Where("id = ?", batch.ID).
		Updates(map[string]interface{}{
			"imported_count": batch.ImportedCount,
			"skipped_count":  batch.SkippedCount,
			"status":         batch.Status,
			"completed_at":   now,
		}).Error; err != nil {
		e.log.Error("mark import batch failed", zap.Error(err))
	}
}

func (e *Engine) parseRow(batchID uuid.UUID, row TransactionRow) (*models.BankTransaction, bool) {
	if row.TransactionNumber == "" {
		return nil, false
	}

	date, err := parseDate(row.TransactionDate)
	if err != nil {
		return nil, false
	}

	amount, err := decimal.NewFromString(row.Amount)
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		return nil, false
	}

	txType := models.TransactionType(row.TransactionType)
	if txType == "" {
		txType = models.TransactionTypeCredit
	}
	if txType != models.TransactionTypeCredit && txType != models.TransactionTypeDebit {
		return nil, false
	}

	return &models.BankTransaction{
		ID:                uuid.New(),
		ImportBatchID:     batchID,
		TransactionDate:   date,
		Amount:            amount,
		CounterpartyName:  row.CounterpartyName,
		TransactionNumber: row.TransactionNumber,
		TransactionType:   txType,
		Description:       row.Description,
		Remarks:           row.Remarks,
		Status:            models.TransactionStatusUnmatched,
		CreatedAt:         time.Now(),
	}, true
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse("02-01-2006", s)
}

// PerformAutoMatching scores every unmatched transaction against every open
// invoice and records pending proposals. It never mutates invoices or
// transactions, and a transaction that already carries a non-rejected match
// is skipped, so re-running without intervening confirmations is a no-op.
// Returns the number of proposals created.
func (e *Engine) PerformAutoMatching() (int, error) {
	txs, err := e.transactions.ListUnmatched()
	if err != nil {
		return 0, err
	}
	active, err := e.matches.ActiveTransactionIDs()
	if err != nil {
		return 0, err
	}
	// Ordered by expected payment date, so on an exact confidence tie the
	// strict comparison below keeps the earliest-due invoice.
	invoices, err := e.invoices.ListOpen()
	if err != nil {
		return 0, err
	}

	created := 0
	for i := range txs {
		tx := &txs[i]
		if active[tx.ID] {
			continue
		}

		var best *models.Invoice
		var bestScore Score
		for j := range invoices {
			score := e.scorer.Score(tx, &invoices[j])
			if best == nil || score.Confidence > bestScore.Confidence {
				best = &invoices[j]
				bestScore = score
			}
		}
		if best == nil || bestScore.Confidence < e.cfg.SuspectedThreshold {
			continue
		}

		matchType := models.MatchTypeSuspected
		if bestScore.Confidence >= e.cfg.ExactThreshold {
			matchType = models.MatchTypeExact
		}

		breakdown, _ := json.Marshal(map[string]interface{}{
			"amount_score":    bestScore.AmountScore,
			"text_score":      bestScore.TextScore,
			"confidence":      bestScore.Confidence,
			"candidate_count": len(invoices),
		})

		m := &models.MatchResult{
			ID:                uuid.New(),
			BankTransactionID: tx.ID,
			InvoiceID:         best.ID,
			MatchType:         matchType,
			Confidence:        bestScore.Confidence,
			AmountDifference:  bestScore.AmountDifference,
			Status:            models.MatchStatusPending,
			Breakdown:         breakdown,
			CreatedAt:         time.Now(),
		}
		if err := e.matches.Create(m); err != nil {
			return created, err
		}
		created++
	}

	e.log.Info("auto-matching pass finished",
		zap.Int("transactions", len(txs)),
		zap.Int("proposals", created))
	return created, nil
}

// ConfirmMatchResult confirms a pending proposal and applies the payment.
// The match update, the transaction status flip, and the invoice payment land
// in one database transaction; the unmatched->matched flip is a
// compare-and-swap, so a concurrent confirmation of the same transaction
// fails instead of paying twice. Any other pending proposal for the same
// transaction is rejected as superseded.
func (e *Engine) ConfirmMatchResult(matchID uuid.UUID, reviewerID, reviewerName, comments string) (*models.MatchResult, error) {
	var m models.MatchResult
	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := loadMatch(tx, matchID, &m); err != nil {
			return err
		}
		if m.Status != models.MatchStatusPending {
			return apperr.Businessf("match %s is %s, not pending", m.ID, m.Status)
		}

		var bankTx models.BankTransaction
		if err := tx.First(&bankTx, "id = ?", m.BankTransactionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("bank transaction %s not found", m.BankTransactionID)
			}
			return err
		}

		now := time.Now()
		res := tx.Model(&models.MatchResult{}).
			Where("id = ? AND status = ?", m.ID, models.MatchStatusPending).
			Updates(map[string]interface{}{
				"status":           models.MatchStatusConfirmed,
				"reviewed_by":      reviewerID,
				"reviewed_by_name": reviewerName,
				"reviewed_at":      now,
				"comments":         comments,
				"updated_at":       now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Businessf("match %s is no longer pending", m.ID)
		}

		if err := casTransactionStatus(tx, bankTx.ID, models.TransactionStatusMatched, m.InvoiceID); err != nil {
			return err
		}
		if err := rejectSiblingPendings(tx, bankTx.ID, m.ID, now); err != nil {
			return err
		}

		var inv models.Invoice
		if err := tx.First(&inv, "id = ?", m.InvoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("invoice %s not found", m.InvoiceID)
			}
			return err
		}
		isPartial := bankTx.Amount.LessThan(inv.RemainingAmount)
		if _, err := e.invoiceSvc.ApplyPayment(tx, inv.ID, bankTx.Amount, isPartial); err != nil {
			return err
		}

		entry := &models.OperationAuditLog{
			ID:            uuid.New(),
			Action:        models.AuditActionConfirmMatch,
			InvoiceID:     &m.InvoiceID,
			TransactionID: &m.BankTransactionID,
			MatchResultID: &m.ID,
			PerformedBy:   reviewerID,
			PerformedName: reviewerName,
			Reason:        comments,
			CreatedAt:     now,
		}
		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		return tx.First(&m, "id = ?", m.ID).Error
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("match confirmed",
		zap.String("match_id", m.ID.String()),
		zap.String("reviewer", reviewerName))
	return &m, nil
}

// RejectMatchResult rejects a pending proposal. The bank transaction stays
// unmatched and the invoice is untouched; the transaction becomes eligible
// for matching again.
func (e *Engine) RejectMatchResult(matchID uuid.UUID, reviewerID, reviewerName, comments string) (*models.MatchResult, error) {
	var m models.MatchResult
	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := loadMatch(tx, matchID, &m); err != nil {
			return err
		}
		if m.Status != models.MatchStatusPending {
			return apperr.Businessf("match %s is %s, not pending", m.ID, m.Status)
		}

		now := time.Now()
		res := tx.Model(&models.MatchResult{}).
			Where("id = ? AND status = ?", m.ID, models.MatchStatusPending).
			Updates(map[string]interface{}{
				"status":           models.MatchStatusRejected,
				"reviewed_by":      reviewerID,
				"reviewed_by_name": reviewerName,
				"reviewed_at":      now,
				"comments":         comments,
				"updated_at":       now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Businessf("match %s is no longer pending", m.ID)
		}

		entry := &models.OperationAuditLog{
			ID:            uuid.New(),
			Action:        models.AuditActionRejectMatch,
			InvoiceID:     &m.InvoiceID,
			TransactionID: &m.BankTransactionID,
			MatchResultID: &m.ID,
			PerformedBy:   reviewerID,
			PerformedName: reviewerName,
			Reason:        comments,
			CreatedAt:     now,
		}
		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		return tx.First(&m, "id = ?", m.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ManualLink links an unmatched transaction to an invoice on an operator's
// say-so: a confidence-100 manual match created directly in confirmed state,
// with the payment applied in the same transaction. Any pending auto-match
// proposal for the transaction is rejected as superseded.
func (e *Engine) ManualLink(transactionID, invoiceID uuid.UUID, operatorID, operatorName, reason string) (*models.MatchResult, error) {
	if reason == "" {
		return nil, apperr.Validationf("manual link reason is required")
	}

	var m models.MatchResult
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var bankTx models.BankTransaction
		err := tx.First(&bankTx, "id = ?", transactionID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("bank transaction %s not found", transactionID)
		}
		if err != nil {
			return err
		}
		if bankTx.Status != models.TransactionStatusUnmatched {
			return apperr.Businessf("transaction %s is %s, not unmatched",
				bankTx.TransactionNumber, bankTx.Status)
		}

		var inv models.Invoice
		err = tx.First(&inv, "id = ?", invoiceID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("invoice %s not found", invoiceID)
		}
		if err != nil {
			return err
		}

		now := time.Now()
		m = models.MatchResult{
			ID:                uuid.New(),
			BankTransactionID: bankTx.ID,
			InvoiceID:         inv.ID,
			MatchType:         models.MatchTypeManual,
			Confidence:        100,
			AmountDifference:  bankTx.Amount.Sub(inv.RemainingAmount).Abs(),
			Status:            models.MatchStatusConfirmed,
			ReviewedBy:        operatorID,
			ReviewedByName:    operatorName,
			ReviewedAt:        &now,
			Comments:          reason,
			CreatedAt:         now,
		}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}

		if err := casTransactionStatus(tx, bankTx.ID, models.TransactionStatusManualLinked, inv.ID); err != nil {
			return err
		}
		if err := rejectSiblingPendings(tx, bankTx.ID, m.ID, now); err != nil {
			return err
		}

		isPartial := bankTx.Amount.LessThan(inv.RemainingAmount)
		if _, err := e.invoiceSvc.ApplyPayment(tx, inv.ID, bankTx.Amount, isPartial); err != nil {
			return err
		}

		entry := &models.OperationAuditLog{
			ID:            uuid.New(),
			Action:        models.AuditActionManualLink,
			InvoiceID:     &inv.ID,
			TransactionID: &bankTx.ID,
			MatchResultID: &m.ID,
			PerformedBy:   operatorID,
			PerformedName: operatorName,
			Reason:        reason,
			CreatedAt:     now,
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("transaction manually linked",
		zap.String("transaction_id", transactionID.String()),
		zap.String("invoice_id", invoiceID.String()),
		zap.String("operator", operatorName))
	return &m, nil
}

func (e *Engine) ListMatches(status models.MatchStatus) ([]models.MatchResult, error) {
	return e.matches.List(status)
}

func (e *Engine) ListTransactions(status models.TransactionStatus) ([]models.BankTransaction, error) {
	return e.transactions.List(status)
}

func loadMatch(tx *gorm.DB, id uuid.UUID, into *models.MatchResult) error {
	err := tx.First(into, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFoundf("match result %s not found", id)
	}
	return err
}

// rejectSiblingPendings rejects any other pending proposals for the same
// transaction once one match wins, so a transaction never carries more than
// one non-rejected match result.
func rejectSiblingPendings(tx *gorm.DB, txID, winnerID uuid.UUID, now time.Time) error {
	return tx.Model(&models.MatchResult{}).
		Where("bank_transaction_id = ? AND id <> ? AND status = ?",
			txID, winnerID, models.MatchStatusPending).
		Updates(map[string]interface{}{
			"status":     models.MatchStatusRejected,
			"comments":   "superseded by a confirmed match",
			"updated_at": now,
		}).Error
}

// casTransactionStatus flips a transaction from unmatched to the given
// terminal match state. RowsAffected==0 means another writer already
// transitioned it.
func casTransactionStatus(tx *gorm.DB, txID uuid.UUID, to models.TransactionStatus, invoiceID uuid.UUID) error {
	res := tx.Model(&models.BankTransaction{}).
		Where("id = ? AND status = ?", txID, models.TransactionStatusUnmatched).
		Updates(map[string]interface{}{
			"status":             to,
			"related_invoice_id": invoiceID,
			"updated_at":         time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.Businessf("transaction %s is no longer unmatched", txID)
	}
	return nil
}
