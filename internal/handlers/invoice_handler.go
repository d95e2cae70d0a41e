package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"invoice-reconciliation-backend/internal/apperr"
	"invoice-reconciliation-backend/internal/models"
	invoicesvc "invoice-reconciliation-backend/internal/services/invoice"
)

type InvoiceHandler struct {
	service *invoicesvc.Service
}

func NewInvoiceHandler(s *invoicesvc.Service) *InvoiceHandler {
	return &InvoiceHandler{service: s}
}

func (h *InvoiceHandler) Issue(c *gin.Context) {
	var payload struct {
		ContractID          string   `json:"contractId"`
		InvoiceMode         string   `json:"invoiceMode"`
		RelatedProgressIDs  []string `json:"relatedProgressIds"`
		InvoiceNumber       string   `json:"invoiceNumber"`
		InvoiceAmount       float64  `json:"invoiceAmount"`
		InvoiceDate         string   `json:"invoiceDate"`
		InvoiceType         string   `json:"invoiceType"`
		PartialReason       string   `json:"partialReason"`
		IssuedBy            string   `json:"issuedBy"`
		ExpectedPaymentDate string   `json:"expectedPaymentDate"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	contractID, err := uuid.Parse(payload.ContractID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract ID"})
		return
	}
	expected, err := time.Parse("2006-01-02", payload.ExpectedPaymentDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expected payment date, expected yyyy-mm-dd"})
		return
	}
	var invoiceDate time.Time
	if payload.InvoiceDate != "" {
		invoiceDate, err = time.Parse("2006-01-02", payload.InvoiceDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice date, expected yyyy-mm-dd"})
			return
		}
	}

	invoiceType := models.InvoiceType(payload.InvoiceType)
	if invoiceType == "" {
		invoiceType = models.InvoiceTypeNormal
	}

	inv, err := h.service.IssueInvoice(invoicesvc.IssueInvoiceInput{
		ContractID:          contractID,
		InvoiceMode:         models.InvoiceMode(payload.InvoiceMode),
		RelatedProgressIDs:  payload.RelatedProgressIDs,
		InvoiceNumber:       payload.InvoiceNumber,
		InvoiceAmount:       decimal.NewFromFloat(payload.InvoiceAmount),
		InvoiceDate:         invoiceDate,
		InvoiceType:         invoiceType,
		PartialReason:       payload.PartialReason,
		IssuedBy:            payload.IssuedBy,
		ExpectedPaymentDate: expected,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "invoice issued", "invoice": inv})
}

func (h *InvoiceHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice ID"})
		return
	}
	inv, err := h.service.GetInvoice(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *InvoiceHandler) List(c *gin.Context) {
	invoices, err := h.service.ListInvoices(models.InvoiceStatus(c.Query("status")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": invoices})
}

func (h *InvoiceHandler) ProcessPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice ID"})
		return
	}

	var payload struct {
		Amount    float64 `json:"amount"`
		IsPartial bool    `json:"isPartial"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	inv, err := h.service.ProcessPayment(id, decimal.NewFromFloat(payload.Amount), payload.IsPartial)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "payment applied", "invoice": inv})
}

// RedReverse preserves the upstream wire contract exactly: 400 with
// 缺少必要参数 when any field is missing, 404 with 开票记录不存在 when the
// invoice cannot be found, the updated invoice on success, and 500 with
// 红冲失败 for everything else.
func (h *InvoiceHandler) RedReverse(c *gin.Context) {
	var payload struct {
		OriginalInvoiceID string `json:"originalInvoiceId"`
		OperatorID        string `json:"operatorId"`
		OperatorName      string `json:"operatorName"`
		Reason            string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil ||
		payload.OriginalInvoiceID == "" || payload.OperatorID == "" ||
		payload.OperatorName == "" || payload.Reason == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少必要参数"})
		return
	}

	id, err := uuid.Parse(payload.OriginalInvoiceID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "开票记录不存在"})
		return
	}

	inv, err := h.service.RedReverse(id, payload.OperatorID, payload.OperatorName, payload.Reason)
	if err != nil {
		if apperr.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "开票记录不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "红冲失败"})
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *InvoiceHandler) CheckOverdue(c *gin.Context) {
	updated, err := h.service.CheckOverdueInvoices()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "overdue check completed", "updated": updated})
}

func (h *InvoiceHandler) Warnings(c *gin.Context) {
	messages, err := h.service.WarningMessages()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": messages})
}
