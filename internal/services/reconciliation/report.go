package reconciliation

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"invoice-reconciliation-backend/internal/config"
	"invoice-reconciliation-backend/internal/models"
	"invoice-reconciliation-backend/internal/repository"
)

// Generator produces append-only daily reconciliation snapshots.
type Generator struct {
	transactions *repository.BankTransactionRepository
	matches      *repository.MatchResultRepository
	reports      *repository.ReportRepository
	cfg          config.ReportConfig
	log          *zap.Logger
}

func NewGenerator(
	transactions *repository.BankTransactionRepository,
	matches *repository.MatchResultRepository,
	reports *repository.ReportRepository,
	cfg config.ReportConfig,
	log *zap.Logger,
) *Generator {
	return &Generator{
		transactions: transactions,
		matches:      matches,
		reports:      reports,
		cfg:          cfg,
		log:          log,
	}
}

// GenerateDailyReport snapshots the current totals: transaction count, match
// success rate, total amount, and the transactions that are still unmatched
// or whose confirmed match retains an amount difference above tolerance.
func (g *Generator) GenerateDailyReport() (*models.ReconciliationReport, error) {
	txs, err := g.transactions.List("")
	if err != nil {
		return nil, err
	}
	confirmed, err := g.matches.ListConfirmed()
	if err != nil {
		return nil, err
	}

	confirmedByTx := make(map[uuid.UUID]*models.MatchResult, len(confirmed))
	for i := range confirmed {
		confirmedByTx[confirmed[i].BankTransactionID] = &confirmed[i]
	}

	tolerance := decimal.NewFromFloat(g.cfg.ExceptionTolerance)
	totalAmount := decimal.Zero
	matched := 0
	var exceptionIDs []string

	for i := range txs {
		tx := &txs[i]
		totalAmount = totalAmount.Add(tx.Amount)

		m, ok := confirmedByTx[tx.ID]
		switch {
		case ok:
			matched++
			if m.AmountDifference.GreaterThan(tolerance) {
				exceptionIDs = append(exceptionIDs, tx.ID.String())
			}
		case tx.Status == models.TransactionStatusUnmatched:
			exceptionIDs = append(exceptionIDs, tx.ID.String())
		}
	}

	rate := 0.0
	if len(txs) > 0 {
		rate = float64(matched) / float64(len(txs)) * 100
	}

	if exceptionIDs == nil {
		exceptionIDs = []string{}
	}
	exceptions, err := json.Marshal(exceptionIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	report := &models.ReconciliationReport{
		ID:                    uuid.New(),
		ReportDate:            time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()),
		TotalTransactions:     len(txs),
		MatchSuccessRate:      rate,
		TotalAmount:           totalAmount,
		ExceptionTransactions: exceptions,
		GeneratedAt:           now,
	}
	if err := g.reports.Create(report); err != nil {
		return nil, err
	}

	g.log.Info("daily reconciliation report generated",
		zap.Int("transactions", report.TotalTransactions),
		zap.Float64("success_rate", report.MatchSuccessRate),
		zap.Int("exceptions", len(exceptionIDs)))
	return report, nil
}

func (g *Generator) ListReports() ([]models.ReconciliationReport, error) {
	return g.reports.List()
}
