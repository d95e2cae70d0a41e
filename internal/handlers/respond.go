package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"invoice-reconciliation-backend/internal/apperr"
)

// writeError maps the error tiers onto HTTP statuses: bad input 400, business
// rule 409, missing record 404, anything else 500.
func writeError(c *gin.Context, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperr.KindBusiness:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
