package subscription

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fixify/database/repository"
	"fixify/models"
	"fixify/utils"

	"go.uber.org/zap"
)

// planCacheTTL bounds how stale ranking and payout reads of the catalog can be.
const planCacheTTL = time.Minute

// PlanService exposes read access to the subscription plan catalog.
type PlanService interface {
	Snapshot(ctx context.Context) (map[string]models.SubscriptionPlan, error)
	PlanFor(ctx context.Context, provider *models.Provider) models.SubscriptionPlan
	EnsureDefaults(ctx context.Context) error
}

// DefaultPlanService serves plans from Mongo behind a short-lived in-process
// cache. Plans change rarely; a stale window of a minute is acceptable.
type DefaultPlanService struct {
	Repo repository.PlanRepository

	mu      sync.RWMutex
	cached  map[string]models.SubscriptionPlan
	expires time.Time
}

// BaselinePlan is the fallback for providers with no plan on file or a plan ID
// that no longer resolves: no discount, no boost, platform default fee rate.
func BaselinePlan() models.SubscriptionPlan {
	return models.SubscriptionPlan{
		Name: "Baseline",
		Tier: models.TierStarter,
	}
}

// Snapshot returns the full catalog keyed by plan ID. Callers treat the
// returned map as read-only.
func (s *DefaultPlanService) Snapshot(ctx context.Context) (map[string]models.SubscriptionPlan, error) {
	s.mu.RLock()
	if time.Now().Before(s.expires) && s.cached != nil {
		defer s.mu.RUnlock()
		return s.cached, nil
	}
	s.mu.RUnlock()

	plans, err := s.Repo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription plans: %w", err)
	}

	byID := make(map[string]models.SubscriptionPlan, len(plans))
	for _, plan := range plans {
		byID[plan.ID] = plan
	}

	s.mu.Lock()
	s.cached = byID
	s.expires = time.Now().Add(planCacheTTL)
	s.mu.Unlock()

	return byID, nil
}

// PlanFor resolves a provider's plan, falling back to the baseline when the
// provider has none or references a plan that no longer exists.
func (s *DefaultPlanService) PlanFor(ctx context.Context, provider *models.Provider) models.SubscriptionPlan {
	if provider == nil || provider.PlanID == "" {
		return BaselinePlan()
	}
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		utils.GetLogger().Warn("plan lookup failed, using baseline",
			zap.String("providerId", provider.ID), zap.Error(err))
		return BaselinePlan()
	}
	plan, ok := snapshot[provider.PlanID]
	if !ok {
		utils.GetLogger().Warn("provider references unknown plan, using baseline",
			zap.String("providerId", provider.ID), zap.String("planId", provider.PlanID))
		return BaselinePlan()
	}
	return plan
}

// EnsureDefaults seeds the three stock tiers when the collection is empty so a
// fresh deployment ranks and prices sensibly out of the box.
func (s *DefaultPlanService) EnsureDefaults(ctx context.Context) error {
	count, err := s.Repo.Count()
	if err != nil {
		return fmt.Errorf("failed to count subscription plans: %w", err)
	}
	if count > 0 {
		return nil
	}
	if err := s.Repo.CreateMany(defaultPlans()); err != nil {
		return fmt.Errorf("failed to seed subscription plans: %w", err)
	}
	utils.GetLogger().Info("Seeded default subscription plans", zap.Int("count", len(defaultPlans())))

	s.mu.Lock()
	s.cached = nil
	s.expires = time.Time{}
	s.mu.Unlock()

	return nil
}

// defaultPlans returns the stock catalog. IDs equal tier names so seeded
// deployments get stable references.
func defaultPlans() []models.SubscriptionPlan {
	return []models.SubscriptionPlan{
		{
			ID:                  models.TierStarter,
			Name:                "Starter",
			Tier:                models.TierStarter,
			LeadDiscountPercent: 0,
			PriorityBoostPoints: 0,
		},
		{
			ID:                  models.TierPro,
			Name:                "Pro",
			Tier:                models.TierPro,
			LeadDiscountPercent: 20,
			PriorityBoostPoints: 3,
			AdvancedAnalytics:   true,
		},
		{
			ID:                  models.TierElite,
			Name:                "Elite",
			Tier:                models.TierElite,
			LeadDiscountPercent: 40,
			PriorityBoostPoints: 6,
			Featured:            true,
			AdvancedAnalytics:   true,
		},
	}
}
