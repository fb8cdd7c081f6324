package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"fixify/models"
	"fixify/services/lead"
	"fixify/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestHandler exposes the service request intake and management endpoints.
type RequestHandler struct {
	Svc lead.LeadService
}

func NewRequestHandler(svc lead.LeadService) *RequestHandler {
	return &RequestHandler{Svc: svc}
}

// CreateRequestHandler handles POST /api/requests. The request is stored
// either way; with nobody to match it parks unassigned.
func (h *RequestHandler) CreateRequestHandler(c *gin.Context) {
	logger := utils.GetLogger()
	var input models.CreateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	req, leads, err := h.Svc.CreateRequest(c.Request.Context(), input)
	if err != nil && !errors.Is(err, lead.ErrNoEligibleProviders) {
		logger.Error("Failed to create service request", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create service request"})
		return
	}

	if leads == nil {
		leads = []models.Lead{}
	}
	c.JSON(http.StatusCreated, gin.H{"request": req, "leads": leads})
}

// GetRequestHandler handles GET /api/requests/:id.
func (h *RequestHandler) GetRequestHandler(c *gin.Context) {
	id := c.Param("id")
	req, err := h.Svc.GetRequest(id)
	if err != nil {
		c.JSON(leadErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	leads, err := h.Svc.ListForRequest(id)
	if err != nil {
		utils.GetLogger().Error("Failed to list leads for request", zap.String("requestId", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list leads"})
		return
	}
	if leads == nil {
		leads = []models.Lead{}
	}
	c.JSON(http.StatusOK, gin.H{"request": req, "leads": leads})
}

// ListRequestsHandler handles GET /api/requests?status=&limit=.
func (h *RequestHandler) ListRequestsHandler(c *gin.Context) {
	status := c.Query("status")
	limit := queryLimit(c, 50)

	requests, err := h.Svc.ListRequests(status, limit)
	if err != nil {
		utils.GetLogger().Error("Failed to list service requests", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list service requests"})
		return
	}
	if requests == nil {
		requests = []models.ServiceRequest{}
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// ReassignRequestHandler handles POST /api/requests/:id/reassign. Only
// unassigned requests qualify; providers already offered a lead sit out.
func (h *RequestHandler) ReassignRequestHandler(c *gin.Context) {
	id := c.Param("id")
	leads, err := h.Svc.Reassign(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, lead.ErrNoEligibleProviders) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no eligible providers available", "leads": []models.Lead{}})
			return
		}
		c.JSON(leadErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leads": leads})
}

// CancelRequestHandler handles DELETE /api/requests/:id. The cascade
// cancels every live lead along with the request.
func (h *RequestHandler) CancelRequestHandler(c *gin.Context) {
	id := c.Param("id")
	cancelled, err := h.Svc.CancelRequest(c.Request.Context(), id)
	if err != nil {
		c.JSON(leadErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "request cancelled", "cancelledLeads": len(cancelled)})
}

// queryLimit parses the limit query parameter with a fallback.
func queryLimit(c *gin.Context, fallback int64) int64 {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
