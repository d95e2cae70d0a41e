package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"invoice-reconciliation-backend/internal/services/reconciliation"
)

type ReportHandler struct {
	generator *reconciliation.Generator
}

func NewReportHandler(g *reconciliation.Generator) *ReportHandler {
	return &ReportHandler{generator: g}
}

func (h *ReportHandler) Generate(c *gin.Context) {
	report, err := h.generator.GenerateDailyReport()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "report generated", "report": report})
}

func (h *ReportHandler) List(c *gin.Context) {
	reports, err := h.generator.ListReports()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": reports})
}
