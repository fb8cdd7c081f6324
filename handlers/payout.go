package handlers

import (
	"errors"
	"net/http"

	"fixify/models"
	"fixify/services/payout"
	"fixify/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// PayoutHandler exposes payout inspection and the manual re-drive.
type PayoutHandler struct {
	Engine payout.Engine
}

func NewPayoutHandler(engine payout.Engine) *PayoutHandler {
	return &PayoutHandler{Engine: engine}
}

// GetPayoutHandler handles GET /api/payouts/:id.
func (h *PayoutHandler) GetPayoutHandler(c *gin.Context) {
	id := c.Param("id")
	rec, err := h.Engine.GetByID(id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "payout not found"})
			return
		}
		utils.GetLogger().Error("Failed to fetch payout", zap.String("payoutId", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payout"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GetLeadPayoutHandler handles GET /api/leads/:id/payout.
func (h *PayoutHandler) GetLeadPayoutHandler(c *gin.Context) {
	leadID := c.Param("id")
	rec, err := h.Engine.GetByLead(leadID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no payout for this lead"})
			return
		}
		utils.GetLogger().Error("Failed to fetch lead payout", zap.String("leadId", leadID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payout"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// ListPayoutsHandler handles GET /api/payouts?status=&limit=.
func (h *PayoutHandler) ListPayoutsHandler(c *gin.Context) {
	payouts, err := h.Engine.ListByStatus(c.Query("status"), queryLimit(c, 50))
	if err != nil {
		utils.GetLogger().Error("Failed to list payouts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list payouts"})
		return
	}
	if payouts == nil {
		payouts = []models.PayoutRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"payouts": payouts})
}

// RetryPayoutHandler handles POST /api/payouts/:id/retry. Only terminally
// failed payouts can be re-armed.
func (h *PayoutHandler) RetryPayoutHandler(c *gin.Context) {
	id := c.Param("id")
	rec, err := h.Engine.RetryFailed(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, payout.ErrNotRetryable):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, mongo.ErrNoDocuments):
			c.JSON(http.StatusNotFound, gin.H{"error": "payout not found"})
		default:
			utils.GetLogger().Error("Failed to retry payout", zap.String("payoutId", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retry payout"})
		}
		return
	}
	c.JSON(http.StatusOK, rec)
}
