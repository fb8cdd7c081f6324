package subscription

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"fixify/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

type fakePlanRepo struct {
	mu          sync.Mutex
	plans       []models.SubscriptionPlan
	getAllCalls int
	getAllErr   error
}

func (f *fakePlanRepo) GetByID(id string) (*models.SubscriptionPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.plans {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("failed to fetch plan with id %s: %w", id, mongo.ErrNoDocuments)
}

func (f *fakePlanRepo) GetAll() ([]models.SubscriptionPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getAllCalls++
	if f.getAllErr != nil {
		return nil, f.getAllErr
	}
	out := make([]models.SubscriptionPlan, len(f.plans))
	copy(out, f.plans)
	return out, nil
}

func (f *fakePlanRepo) Count() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.plans)), nil
}

func (f *fakePlanRepo) CreateMany(plans []models.SubscriptionPlan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plans = append(f.plans, plans...)
	return nil
}

func proPlan() models.SubscriptionPlan {
	return models.SubscriptionPlan{
		ID:                  models.TierPro,
		Name:                "Pro",
		Tier:                models.TierPro,
		LeadDiscountPercent: 20,
		PriorityBoostPoints: 3,
	}
}

func TestSnapshotCachesCatalog(t *testing.T) {
	repo := &fakePlanRepo{plans: []models.SubscriptionPlan{proPlan()}}
	svc := &DefaultPlanService{Repo: repo}

	first, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	require.Contains(t, first, models.TierPro)

	// Within the TTL the second read never touches the repository.
	_, err = svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.getAllCalls)
}

func TestSnapshotPropagatesRepoErrors(t *testing.T) {
	repo := &fakePlanRepo{getAllErr: errors.New("mongo down")}
	svc := &DefaultPlanService{Repo: repo}

	_, err := svc.Snapshot(context.Background())
	assert.Error(t, err)
}

func TestPlanForResolvesProviderPlan(t *testing.T) {
	repo := &fakePlanRepo{plans: []models.SubscriptionPlan{proPlan()}}
	svc := &DefaultPlanService{Repo: repo}

	plan := svc.PlanFor(context.Background(), &models.Provider{ID: "p-1", PlanID: models.TierPro})
	assert.Equal(t, models.TierPro, plan.Tier)
	assert.Equal(t, 20.0, plan.LeadDiscountPercent)
}

func TestPlanForFallsBackToBaseline(t *testing.T) {
	repo := &fakePlanRepo{plans: []models.SubscriptionPlan{proPlan()}}
	svc := &DefaultPlanService{Repo: repo}

	// No provider, no plan on file, unknown plan reference: all baseline.
	assert.Equal(t, models.TierStarter, svc.PlanFor(context.Background(), nil).Tier)
	assert.Equal(t, models.TierStarter, svc.PlanFor(context.Background(), &models.Provider{ID: "p-1"}).Tier)
	assert.Equal(t, models.TierStarter,
		svc.PlanFor(context.Background(), &models.Provider{ID: "p-1", PlanID: "retired-plan"}).Tier)

	baseline := BaselinePlan()
	assert.Zero(t, baseline.LeadDiscountPercent)
	assert.Zero(t, baseline.PriorityBoostPoints)
	assert.Nil(t, baseline.FeeRateOverride)
}

func TestPlanForFallsBackWhenCatalogUnavailable(t *testing.T) {
	repo := &fakePlanRepo{getAllErr: errors.New("mongo down")}
	svc := &DefaultPlanService{Repo: repo}

	plan := svc.PlanFor(context.Background(), &models.Provider{ID: "p-1", PlanID: models.TierPro})
	assert.Equal(t, models.TierStarter, plan.Tier)
}

func TestEnsureDefaultsSeedsEmptyCatalog(t *testing.T) {
	repo := &fakePlanRepo{}
	svc := &DefaultPlanService{Repo: repo}

	require.NoError(t, svc.EnsureDefaults(context.Background()))

	snapshot, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot, 3)

	starter := snapshot[models.TierStarter]
	assert.Zero(t, starter.LeadDiscountPercent)
	assert.Zero(t, starter.PriorityBoostPoints)
	assert.False(t, starter.Featured)

	pro := snapshot[models.TierPro]
	assert.Equal(t, 20.0, pro.LeadDiscountPercent)
	assert.Equal(t, 3.0, pro.PriorityBoostPoints)
	assert.True(t, pro.AdvancedAnalytics)

	elite := snapshot[models.TierElite]
	assert.Equal(t, 40.0, elite.LeadDiscountPercent)
	assert.Equal(t, 6.0, elite.PriorityBoostPoints)
	assert.True(t, elite.Featured)

	// None of the stock tiers overrides the platform fee rate.
	for id, plan := range snapshot {
		assert.Nil(t, plan.FeeRateOverride, id)
	}
}

func TestEnsureDefaultsLeavesExistingCatalogAlone(t *testing.T) {
	custom := proPlan()
	custom.LeadDiscountPercent = 55
	repo := &fakePlanRepo{plans: []models.SubscriptionPlan{custom}}
	svc := &DefaultPlanService{Repo: repo}

	require.NoError(t, svc.EnsureDefaults(context.Background()))

	snapshot, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.Equal(t, 55.0, snapshot[models.TierPro].LeadDiscountPercent)
}
