package lead

import (
	"context"
	"errors"
	"testing"
	"time"

	"fixify/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rankedFor(providers ...models.Provider) []RankedProvider {
	out := make([]RankedProvider, 0, len(providers))
	for i, p := range providers {
		out = append(out, RankedProvider{
			Provider:  p,
			Plan:      models.SubscriptionPlan{ID: p.PlanID, Tier: p.PlanID},
			Score:     float64(10 - i),
			CostCents: 1500,
		})
	}
	return out
}

func TestCreateRequestDistributesLeads(t *testing.T) {
	first := testProvider("p-1", "First")
	second := testProvider("p-2", "Second")
	env := newTestEnv(first, second)
	env.matcher.ranked = rankedFor(first, second)

	req, leads, err := env.svc.CreateRequest(context.Background(), models.CreateRequestInput{
		CustomerID:   "cust-1",
		ContactEmail: "customer@example.com",
		Category:     "  Plumbing ",
		PostalCode:   " 10001 ",
		City:         "New York",
	})
	require.NoError(t, err)

	// Input fields are normalized before anything is stored.
	assert.Equal(t, "plumbing", req.Category)
	assert.Equal(t, "10001", req.PostalCode)
	assert.Equal(t, "US", req.Country)
	assert.Equal(t, models.RequestStatusMatched, req.Status)

	require.Len(t, leads, 2)
	assert.Equal(t, "p-1", leads[0].ProviderID)
	assert.Equal(t, 1, leads[0].Rank)
	assert.Equal(t, 10.0, leads[0].Score)
	assert.Equal(t, "p-2", leads[1].ProviderID)
	assert.Equal(t, 2, leads[1].Rank)
	assert.Equal(t, int64(1500), leads[0].CostCents)
	assert.Equal(t, "USD", leads[0].Currency)

	// Dispatch succeeded, so both leads advanced to notified.
	for _, l := range leads {
		assert.Equal(t, models.LeadStatusNotified, l.Status)
		assert.Equal(t, models.LeadStatusNotified, env.store.leadStatus(l.ID))
		assert.NotNil(t, l.NotifiedAt)
	}

	offers := env.notifier.byType(models.NotifyNewLead)
	require.Len(t, offers, 2)
	assert.Equal(t, "p-1", offers[0].Recipient.ID)
	assert.Equal(t, "p-2", offers[1].Recipient.ID)
}

func TestCreateRequestParksWhenNobodyMatches(t *testing.T) {
	env := newTestEnv()
	env.matcher.err = ErrNoEligibleProviders

	req, leads, err := env.svc.CreateRequest(context.Background(), models.CreateRequestInput{
		CustomerID:   "cust-1",
		ContactEmail: "customer@example.com",
		Category:     "plumbing",
		PostalCode:   "10001",
	})
	assert.ErrorIs(t, err, ErrNoEligibleProviders)

	// The request itself survives, parked for a later reassignment.
	require.NotNil(t, req)
	assert.Empty(t, leads)
	assert.Equal(t, models.RequestStatusUnassigned, env.store.requestStatus(req.ID))

	msgs := env.notifier.byType(models.NotifyRequestUnassigned)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.RecipientCustomer, msgs[0].Recipient.Kind)
}

func TestCreateRequestPersistsResolvedCoordinates(t *testing.T) {
	p := testProvider("p-1", "One")
	env := newTestEnv(p)
	env.matcher.ranked = rankedFor(p)
	env.matcher.resolve = &models.GeoPoint{Type: "Point", Coordinates: []float64{-74.0060, 40.7128}}

	req, _, err := env.svc.CreateRequest(context.Background(), models.CreateRequestInput{
		CustomerID:   "cust-1",
		ContactEmail: "customer@example.com",
		Category:     "plumbing",
		PostalCode:   "10001",
	})
	require.NoError(t, err)
	require.NotNil(t, req.LocationGeo)
	assert.Equal(t, 1, env.requests.setGeoCalls)
}

func TestReassignExcludesPriorProviders(t *testing.T) {
	fresh := testProvider("p-2", "Fresh")
	env := newTestEnv(fresh)
	env.matcher.ranked = rankedFor(fresh)
	env.store.putRequest(testRequest("req-1", models.RequestStatusUnassigned))
	env.store.putLead(testLead("lead-1", "req-1", "p-1", models.LeadStatusDeclined, 1))

	leads, err := env.svc.Reassign(context.Background(), "req-1")
	require.NoError(t, err)

	_, excluded := env.matcher.lastExclude["p-1"]
	assert.True(t, excluded, "the provider that already declined must sit this round out")

	require.Len(t, leads, 1)
	assert.Equal(t, "p-2", leads[0].ProviderID)
	assert.Equal(t, models.RequestStatusMatched, env.store.requestStatus("req-1"))
}

func TestReassignRequiresUnassignedRequest(t *testing.T) {
	env := newTestEnv()
	env.store.putRequest(testRequest("req-1", models.RequestStatusMatched))

	_, err := env.svc.Reassign(context.Background(), "req-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = env.svc.Reassign(context.Background(), "no-such-request")
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestFailedOfferLeavesLeadCreated(t *testing.T) {
	p := testProvider("p-1", "One")
	env := newTestEnv(p)
	env.matcher.ranked = rankedFor(p)
	env.notifier.failTypes[models.NotifyNewLead] = errors.New("queue unavailable")

	_, leads, err := env.svc.CreateRequest(context.Background(), models.CreateRequestInput{
		CustomerID:   "cust-1",
		ContactEmail: "customer@example.com",
		Category:     "plumbing",
		PostalCode:   "10001",
	})
	require.NoError(t, err)
	require.Len(t, leads, 1)

	// The offer never went out, so the lead stays created for the sweep.
	assert.Equal(t, models.LeadStatusCreated, leads[0].Status)
	assert.Equal(t, models.LeadStatusCreated, env.store.leadStatus(leads[0].ID))
}

func TestRedriveStaleReoffers(t *testing.T) {
	env := newTestEnv(testProvider("p-1", "One"))
	env.store.putRequest(testRequest("req-1", models.RequestStatusMatched))

	stale := testLead("lead-1", "req-1", "p-1", models.LeadStatusCreated, 1)
	stale.CreatedAt = time.Now().Add(-2 * time.Hour)
	env.store.putLead(stale)

	// A second stuck lead pointing at a provider we cannot resolve is
	// skipped rather than aborting the sweep.
	orphan := testLead("lead-2", "req-1", "p-missing", models.LeadStatusCreated, 2)
	orphan.CreatedAt = time.Now().Add(-2 * time.Hour)
	env.store.putLead(orphan)

	redriven, err := env.svc.RedriveStale(context.Background(), time.Hour, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, redriven)

	assert.Equal(t, models.LeadStatusNotified, env.store.leadStatus("lead-1"))
	assert.Equal(t, models.LeadStatusCreated, env.store.leadStatus("lead-2"))
	assert.Len(t, env.notifier.byType(models.NotifyNewLead), 1)
}

func TestRedriveStaleIgnoresFreshLeads(t *testing.T) {
	env := newTestEnv(testProvider("p-1", "One"))
	env.store.putRequest(testRequest("req-1", models.RequestStatusMatched))
	env.store.putLead(testLead("lead-1", "req-1", "p-1", models.LeadStatusCreated, 1))

	redriven, err := env.svc.RedriveStale(context.Background(), time.Hour, 10)
	require.NoError(t, err)
	assert.Zero(t, redriven)
	assert.Equal(t, models.LeadStatusCreated, env.store.leadStatus("lead-1"))
}
