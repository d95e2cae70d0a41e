package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"invoice-reconciliation-backend/internal/config"
	handler "invoice-reconciliation-backend/internal/handlers"
	"invoice-reconciliation-backend/internal/repository"
	invoicesvc "invoice-reconciliation-backend/internal/services/invoice"
	"invoice-reconciliation-backend/internal/services/matching"
	"invoice-reconciliation-backend/internal/services/reconciliation"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config, log *zap.Logger) {
	invoiceRepo := repository.NewInvoiceRepository(db)
	transactionRepo := repository.NewBankTransactionRepository(db)
	matchRepo := repository.NewMatchResultRepository(db)
	contractRepo := repository.NewContractRepository(db)
	reportRepo := repository.NewReportRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	invoiceService := invoicesvc.NewService(invoiceRepo, contractRepo, auditRepo, cfg.Invoice, log)
	engine := matching.NewEngine(
		transactionRepo, invoiceRepo, matchRepo, invoiceService,
		matching.NewAmountTextScorer(cfg.Matching.TextBoost),
		cfg.Matching, log,
	)
	generator := reconciliation.NewGenerator(transactionRepo, matchRepo, reportRepo, cfg.Report, log)

	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	matchingHandler := handler.NewMatchingHandler(engine)
	reportHandler := handler.NewReportHandler(generator)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Invoice lifecycle
	invoices := api.Group("/invoices")
	{
		invoices.POST("", invoiceHandler.Issue)
		invoices.GET("", invoiceHandler.List)
		invoices.GET("/warnings", invoiceHandler.Warnings)
		invoices.GET("/:id", invoiceHandler.Get)
		invoices.POST("/:id/payment", invoiceHandler.ProcessPayment)
		invoices.POST("/red-reverse", invoiceHandler.RedReverse)
		invoices.POST("/check-overdue", invoiceHandler.CheckOverdue)
	}

	// Bank transactions
	tx := api.Group("/transactions")
	{
		tx.POST("/upload", matchingHandler.Upload)
		tx.GET("", matchingHandler.ListTransactions)
		tx.POST("/:id/link", matchingHandler.ManualLink)
	}

	// Matching
	api.POST("/matching/run", matchingHandler.Run)
	matches := api.Group("/matches")
	{
		matches.GET("", matchingHandler.ListMatches)
		matches.POST("/:id/confirm", matchingHandler.Confirm)
		matches.POST("/:id/reject", matchingHandler.Reject)
	}

	// Reconciliation reports
	reports := api.Group("/reports")
	{
		reports.POST("/daily", reportHandler.Generate)
		reports.GET("", reportHandler.List)
	}
}
