package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"fixify/config"
	"fixify/database/repository"
	"fixify/models"
	"fixify/services/subscription"
	"fixify/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ProviderHandler exposes provider onboarding and account endpoints.
type ProviderHandler struct {
	Repo  repository.ProviderRepository
	Plans subscription.PlanService
}

func NewProviderHandler(repo repository.ProviderRepository, plans subscription.PlanService) *ProviderHandler {
	return &ProviderHandler{Repo: repo, Plans: plans}
}

// RegisterProviderHandler handles POST /api/providers. New providers go
// live on the starter tier unless they name another plan.
func (h *ProviderHandler) RegisterProviderHandler(c *gin.Context) {
	logger := utils.GetLogger()
	var input struct {
		Name            string   `json:"name" binding:"required"`
		Email           string   `json:"email" binding:"required,email"`
		PhoneNumber     string   `json:"phoneNumber"`
		PostalCode      string   `json:"postalCode" binding:"required"`
		City            string   `json:"city"`
		Latitude        *float64 `json:"latitude"`
		Longitude       *float64 `json:"longitude"`
		ServiceRadiusKm float64  `json:"serviceRadiusKm"`
		Categories      []string `json:"categories" binding:"required,min=1"`
		Subcategories   []string `json:"subcategories"`
		PlanID          string   `json:"planId"`
		StripeAccountID string   `json:"stripeAccountId"`
		FCMToken        string   `json:"fcmToken"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	planID := input.PlanID
	if planID == "" {
		planID = models.TierStarter
	}

	now := time.Now()
	provider := &models.Provider{
		ID: uuid.New().String(),
		Profile: models.Profile{
			Name:        strings.TrimSpace(input.Name),
			Email:       strings.ToLower(strings.TrimSpace(input.Email)),
			PhoneNumber: strings.TrimSpace(input.PhoneNumber),
			Status:      models.ProviderStatusActive,
			PostalCode:  strings.TrimSpace(input.PostalCode),
			City:        strings.TrimSpace(input.City),
		},
		Categories:      normalizeCategories(input.Categories),
		Subcategories:   normalizeCategories(input.Subcategories),
		ServiceRadiusKm: input.ServiceRadiusKm,
		PlanID:          planID,
		FCMToken:        input.FCMToken,
		MemberSince:     now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if input.Latitude != nil && input.Longitude != nil {
		provider.Profile.LocationGeo = models.GeoPoint{
			Type:        "Point",
			Coordinates: []float64{*input.Longitude, *input.Latitude},
		}
	}
	if input.StripeAccountID != "" {
		provider.PaymentDetails = models.PaymentDetails{
			StripeAccountID: input.StripeAccountID,
			Currency:        config.AppConfig.DefaultCurrency,
			LastUpdated:     now,
		}
	}

	if err := h.Repo.Create(provider); err != nil {
		logger.Error("Failed to register provider", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register provider"})
		return
	}
	c.JSON(http.StatusCreated, provider)
}

// GetProviderHandler handles GET /api/providers/:id.
func (h *ProviderHandler) GetProviderHandler(c *gin.Context) {
	id := c.Param("id")
	provider, err := h.Repo.GetByID(id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "provider not found"})
			return
		}
		utils.GetLogger().Error("Failed to fetch provider", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch provider"})
		return
	}
	c.JSON(http.StatusOK, provider)
}

// ChangePlanHandler handles PUT /api/providers/:id/plan. The target plan
// must exist in the catalog.
func (h *ProviderHandler) ChangePlanHandler(c *gin.Context) {
	logger := utils.GetLogger()
	id := c.Param("id")
	var input struct {
		PlanID string `json:"planId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	plans, err := h.Plans.Snapshot(c.Request.Context())
	if err != nil {
		logger.Error("Failed to load subscription plans", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plans"})
		return
	}
	if _, ok := plans[input.PlanID]; !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown plan: " + input.PlanID})
		return
	}

	if _, err := h.Repo.GetByID(id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "provider not found"})
			return
		}
		logger.Error("Failed to fetch provider", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch provider"})
		return
	}
	if err := h.Repo.UpdatePlan(id, input.PlanID); err != nil {
		logger.Error("Failed to change plan", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to change plan"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "plan updated", "planId": input.PlanID})
}

// UpdateFCMTokenHandler handles PUT /api/providers/:id/fcm-token. An empty
// token switches the provider to email-only notifications.
func (h *ProviderHandler) UpdateFCMTokenHandler(c *gin.Context) {
	logger := utils.GetLogger()
	id := c.Param("id")
	var input struct {
		FCMToken string `json:"fcmToken"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	if _, err := h.Repo.GetByID(id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "provider not found"})
			return
		}
		logger.Error("Failed to fetch provider", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch provider"})
		return
	}
	if err := h.Repo.UpdateFCMToken(id, input.FCMToken); err != nil {
		logger.Error("Failed to update FCM token", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update FCM token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "FCM token updated"})
}

func normalizeCategories(in []string) []string {
	out := make([]string, 0, len(in))
	for _, cat := range in {
		cat = strings.ToLower(strings.TrimSpace(cat))
		if cat != "" {
			out = append(out, cat)
		}
	}
	return out
}
