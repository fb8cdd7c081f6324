package handlers

import (
	"errors"
	"net/http"

	"fixify/models"
	"fixify/services/lead"
	"fixify/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LeadHandler exposes the per-lead lifecycle endpoints.
type LeadHandler struct {
	Svc lead.LeadService
}

func NewLeadHandler(svc lead.LeadService) *LeadHandler {
	return &LeadHandler{Svc: svc}
}

// GetLeadHandler handles GET /api/leads/:id.
func (h *LeadHandler) GetLeadHandler(c *gin.Context) {
	l, err := h.Svc.GetLead(c.Param("id"))
	if err != nil {
		c.JSON(leadErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, l)
}

// ListProviderLeadsHandler handles GET /api/providers/:id/leads?limit=.
func (h *LeadHandler) ListProviderLeadsHandler(c *gin.Context) {
	providerID := c.Param("id")
	leads, err := h.Svc.ListForProvider(providerID, queryLimit(c, 50))
	if err != nil {
		utils.GetLogger().Error("Failed to list provider leads",
			zap.String("providerId", providerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list leads"})
		return
	}
	if leads == nil {
		leads = []models.Lead{}
	}
	c.JSON(http.StatusOK, gin.H{"leads": leads})
}

// ViewLeadHandler handles POST /api/leads/:id/view.
func (h *LeadHandler) ViewLeadHandler(c *gin.Context) {
	var input struct {
		ProviderID string `json:"providerId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	l, err := h.Svc.View(c.Request.Context(), c.Param("id"), input.ProviderID)
	if err != nil {
		c.JSON(leadErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, l)
}

// AcceptLeadHandler handles POST /api/leads/:id/accept. First acceptance
// wins the request; later ones get 409.
func (h *LeadHandler) AcceptLeadHandler(c *gin.Context) {
	var input struct {
		ProviderID       string `json:"providerId" binding:"required"`
		QuotedPriceCents int64  `json:"quotedPriceCents" binding:"required,gt=0"`
		PaymentIntentRef string `json:"paymentIntentRef"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	l, err := h.Svc.Accept(c.Request.Context(), c.Param("id"), input.ProviderID, input.QuotedPriceCents, input.PaymentIntentRef)
	if err != nil {
		c.JSON(leadErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, l)
}

// DeclineLeadHandler handles POST /api/leads/:id/decline.
func (h *LeadHandler) DeclineLeadHandler(c *gin.Context) {
	var input struct {
		ProviderID string `json:"providerId" binding:"required"`
		Reason     string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	l, err := h.Svc.Decline(c.Request.Context(), c.Param("id"), input.ProviderID, input.Reason)
	if err != nil {
		c.JSON(leadErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, l)
}

// StartLeadHandler handles POST /api/leads/:id/start.
func (h *LeadHandler) StartLeadHandler(c *gin.Context) {
	var input struct {
		ProviderID string `json:"providerId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	l, err := h.Svc.Start(c.Request.Context(), c.Param("id"), input.ProviderID)
	if err != nil {
		c.JSON(leadErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, l)
}

// CompleteLeadHandler handles POST /api/leads/:id/complete.
func (h *LeadHandler) CompleteLeadHandler(c *gin.Context) {
	var input struct {
		ProviderID string `json:"providerId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	l, err := h.Svc.Complete(c.Request.Context(), c.Param("id"), input.ProviderID)
	if err != nil {
		c.JSON(leadErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, l)
}

// ApproveLeadHandler handles POST /api/leads/:id/approve. Approval is
// idempotent: repeating it returns the payout already on file.
func (h *LeadHandler) ApproveLeadHandler(c *gin.Context) {
	payout, err := h.Svc.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(leadErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payout": payout})
}

// CancelLeadHandler handles POST /api/leads/:id/cancel.
func (h *LeadHandler) CancelLeadHandler(c *gin.Context) {
	l, err := h.Svc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(leadErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, l)
}

// leadErrorStatus maps lead service errors onto HTTP status codes.
func leadErrorStatus(err error) int {
	switch {
	case errors.Is(err, lead.ErrLeadNotFound), errors.Is(err, lead.ErrRequestNotFound):
		return http.StatusNotFound
	case errors.Is(err, lead.ErrWrongProvider):
		return http.StatusForbidden
	case errors.Is(err, lead.ErrRequestTaken), errors.Is(err, lead.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, lead.ErrNoEligibleProviders):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
