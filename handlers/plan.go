package handlers

import (
	"net/http"
	"sort"

	"fixify/models"
	"fixify/services/subscription"
	"fixify/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PlanHandler serves the subscription plan catalog.
type PlanHandler struct {
	Svc subscription.PlanService
}

func NewPlanHandler(svc subscription.PlanService) *PlanHandler {
	return &PlanHandler{Svc: svc}
}

// ListPlansHandler handles GET /api/plans, cheapest tier first.
func (h *PlanHandler) ListPlansHandler(c *gin.Context) {
	snapshot, err := h.Svc.Snapshot(c.Request.Context())
	if err != nil {
		utils.GetLogger().Error("Failed to load subscription plans", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plans"})
		return
	}

	plans := make([]models.SubscriptionPlan, 0, len(snapshot))
	for _, p := range snapshot {
		plans = append(plans, p)
	}
	sort.Slice(plans, func(i, j int) bool {
		return tierRank(plans[i].Tier) < tierRank(plans[j].Tier)
	})
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

func tierRank(tier string) int {
	switch tier {
	case models.TierStarter:
		return 0
	case models.TierPro:
		return 1
	case models.TierElite:
		return 2
	default:
		return 3
	}
}
