package handlers

import (
	"errors"
	"net/http"

	"fixify/models"
	"fixify/services/notification"
	"fixify/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// NotificationHandler exposes the delivery ledger for inspection.
type NotificationHandler struct {
	Svc notification.NotificationService
}

func NewNotificationHandler(svc notification.NotificationService) *NotificationHandler {
	return &NotificationHandler{Svc: svc}
}

// GetNotificationHandler handles GET /api/notifications/:id. The record
// carries the full attempt ledger.
func (h *NotificationHandler) GetNotificationHandler(c *gin.Context) {
	id := c.Param("id")
	record, err := h.Svc.GetByID(id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		utils.GetLogger().Error("Failed to fetch notification", zap.String("recordId", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notification"})
		return
	}
	c.JSON(http.StatusOK, record)
}

// ListNotificationsHandler handles GET /api/notifications?status=&limit=.
func (h *NotificationHandler) ListNotificationsHandler(c *gin.Context) {
	records, err := h.Svc.ListByStatus(c.Query("status"), queryLimit(c, 50))
	if err != nil {
		utils.GetLogger().Error("Failed to list notifications", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notifications"})
		return
	}
	if records == nil {
		records = []models.NotificationRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": records})
}
