package handler

import (
	"encoding/csv"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"invoice-reconciliation-backend/internal/models"
	"invoice-reconciliation-backend/internal/services/matching"
)

type MatchingHandler struct {
	engine *matching.Engine
}

func NewMatchingHandler(e *matching.Engine) *MatchingHandler {
	return &MatchingHandler{engine: e}
}

// Upload accepts a CSV bank statement. Expected columns:
// transaction_number, transaction_date, amount, counterparty_name,
// transaction_type, description, remarks. Malformed rows are skipped by the
// import, not fatal.
func (h *MatchingHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	// Skip header
	if _, err := reader.Read(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read CSV header"})
		return
	}

	var rows []matching.TransactionRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // skip malformed rows
		}
		if len(record) == 0 || strings.Join(record, "") == "" {
			continue
		}
		row := matching.TransactionRow{}
		for i, v := range record {
			v = strings.TrimSpace(v)
			switch i {
			case 0:
				row.TransactionNumber = v
			case 1:
				row.TransactionDate = v
			case 2:
				row.Amount = v
			case 3:
				row.CounterpartyName = v
			case 4:
				row.TransactionType = v
			case 5:
				row.Description = v
			case 6:
				row.Remarks = v
			}
		}
		rows = append(rows, row)
	}

	batch, err := h.engine.ImportBankTransactions(
		rows, header.Filename, c.PostForm("operatorId"), c.PostForm("operatorName"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"file":     header.Filename,
		"imported": batch.ImportedCount,
		"skipped":  batch.SkippedCount,
		"batch_id": batch.ID.String(),
	})
}

func (h *MatchingHandler) Run(c *gin.Context) {
	created, err := h.engine.PerformAutoMatching()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "auto-matching completed", "proposals": created})
}

func (h *MatchingHandler) ListMatches(c *gin.Context) {
	matches, err := h.engine.ListMatches(models.MatchStatus(c.Query("status")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": matches})
}

func (h *MatchingHandler) ListTransactions(c *gin.Context) {
	txs, err := h.engine.ListTransactions(models.TransactionStatus(c.Query("status")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": txs})
}

func (h *MatchingHandler) Confirm(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match ID"})
		return
	}

	var payload struct {
		ReviewerID   string `json:"reviewerId"`
		ReviewerName string `json:"reviewerName"`
		Comments     string `json:"comments"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	m, err := h.engine.ConfirmMatchResult(id, payload.ReviewerID, payload.ReviewerName, payload.Comments)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "match confirmed", "match": m})
}

func (h *MatchingHandler) Reject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match ID"})
		return
	}

	var payload struct {
		ReviewerID   string `json:"reviewerId"`
		ReviewerName string `json:"reviewerName"`
		Comments     string `json:"comments"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	m, err := h.engine.RejectMatchResult(id, payload.ReviewerID, payload.ReviewerName, payload.Comments)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "match rejected", "match": m})
}

func (h *MatchingHandler) ManualLink(c *gin.Context) {
	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	var payload struct {
		InvoiceID    string `json:"invoiceId"`
		OperatorID   string `json:"operatorId"`
		OperatorName string `json:"operatorName"`
		Reason       string `json:"reason"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	invoiceID, err := uuid.Parse(payload.InvoiceID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice ID"})
		return
	}

	m, err := h.engine.ManualLink(txID, invoiceID, payload.OperatorID, payload.OperatorName, payload.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transaction manually linked", "match": m})
}
