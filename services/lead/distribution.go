package lead

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fixify/config"
	requestRepo "fixify/database/repository/request"
	"fixify/models"
	"fixify/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// CreateRequest stores the customer's request and immediately distributes it.
func (s *DefaultLeadService) CreateRequest(ctx context.Context, input models.CreateRequestInput) (*models.ServiceRequest, []models.Lead, error) {
	country := strings.ToUpper(strings.TrimSpace(input.Country))
	if country == "" {
		country = config.AppConfig.GeocodeCountry
	}

	now := time.Now()
	req := &models.ServiceRequest{
		ID:           uuid.New().String(),
		CustomerID:   input.CustomerID,
		ContactEmail: input.ContactEmail,
		Category:     strings.ToLower(strings.TrimSpace(input.Category)),
		Subcategory:  strings.ToLower(strings.TrimSpace(input.Subcategory)),
		Description:  strings.TrimSpace(input.Description),
		PostalCode:   strings.TrimSpace(input.PostalCode),
		City:         strings.TrimSpace(input.City),
		Country:      country,
		Status:       models.RequestStatusOpen,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.RequestRepo.Create(req); err != nil {
		return nil, nil, fmt.Errorf("failed to store service request: %w", err)
	}

	leads, err := s.distribute(ctx, req, nil)
	if err != nil && !errors.Is(err, ErrNoEligibleProviders) {
		return nil, nil, err
	}
	return req, leads, err
}

// Reassign re-runs distribution for a parked request. Providers already
// offered one of its leads sit the new round out.
func (s *DefaultLeadService) Reassign(ctx context.Context, requestID string) ([]models.Lead, error) {
	req, err := s.GetRequest(requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestStatusUnassigned {
		return nil, fmt.Errorf("%w: request %s is %s, only unassigned requests can be redistributed",
			ErrInvalidTransition, requestID, req.Status)
	}

	previous, err := s.Repo.ListByRequest(requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list previous leads for request %s: %w", requestID, err)
	}
	exclude := make(map[string]struct{}, len(previous))
	for _, l := range previous {
		exclude[l.ProviderID] = struct{}{}
	}
	return s.distribute(ctx, req, exclude)
}

// distribute matches the request, creates leads in rank order, flips the
// request to matched and offers each lead to its provider. With nobody to
// offer to, the request parks as unassigned and the customer hears about it.
func (s *DefaultLeadService) distribute(ctx context.Context, req *models.ServiceRequest, exclude map[string]struct{}) ([]models.Lead, error) {
	hadGeo := req.LocationGeo != nil

	ranked, err := s.Matcher.MatchProviders(ctx, req, exclude)

	// Matching resolves missing coordinates on the fly; keep them.
	if !hadGeo && req.LocationGeo != nil {
		if geoErr := s.RequestRepo.SetGeo(req.ID, *req.LocationGeo); geoErr != nil {
			utils.GetLogger().Warn("Failed to persist request coordinates",
				zap.Error(geoErr), zap.String("requestId", req.ID))
		}
	}

	if errors.Is(err, ErrNoEligibleProviders) {
		s.parkUnassigned(ctx, req)
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("matching failed for request %s: %w", req.ID, err)
	}

	now := time.Now()
	created := make([]*models.Lead, 0, len(ranked))
	for i, rp := range ranked {
		created = append(created, &models.Lead{
			ID:               uuid.New().String(),
			ServiceRequestID: req.ID,
			ProviderID:       rp.Provider.ID,
			Category:         req.Category,
			CostCents:        rp.CostCents,
			Currency:         config.AppConfig.DefaultCurrency,
			Status:           models.LeadStatusCreated,
			Rank:             i + 1,
			Score:            rp.Score,
			PlanSnapshot:     snapshotOf(rp.Plan),
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}
	if err := s.Repo.CreateMany(created); err != nil {
		return nil, fmt.Errorf("failed to store leads for request %s: %w", req.ID, err)
	}

	from := []string{models.RequestStatusOpen, models.RequestStatusUnassigned}
	if err := s.RequestRepo.UpdateStatus(req.ID, from, models.RequestStatusMatched); err != nil {
		utils.GetLogger().Warn("Request did not flip to matched",
			zap.Error(err), zap.String("requestId", req.ID))
	} else {
		req.Status = models.RequestStatusMatched
	}

	out := make([]models.Lead, 0, len(created))
	for i, l := range created {
		s.offerLead(ctx, l, &ranked[i].Provider, req)
		out = append(out, *l)
	}
	return out, nil
}

// offerLead dispatches the new-lead notification and advances the lead to
// notified. A failed dispatch leaves it in created for the sweep to retry.
func (s *DefaultLeadService) offerLead(ctx context.Context, lead *models.Lead, provider *models.Provider, req *models.ServiceRequest) {
	if s.Notifier == nil {
		return
	}

	body := fmt.Sprintf("A new %s job near %s is waiting for your response.", req.Category, locationLabel(req))
	data := map[string]string{"leadId": lead.ID, "requestId": req.ID, "category": req.Category}
	if _, err := s.Notifier.Dispatch(ctx, providerRecipient(provider), models.NotifyNewLead, "New job lead", body, data); err != nil {
		utils.GetLogger().Error("Failed to dispatch lead offer",
			zap.Error(err), zap.String("leadId", lead.ID), zap.String("providerId", provider.ID))
		return
	}

	now := time.Now()
	err := s.Repo.UpdateStatus(lead.ID, []string{models.LeadStatusCreated}, models.LeadStatusNotified, bson.M{"notifiedAt": now})
	if err != nil {
		utils.GetLogger().Warn("Lead did not flip to notified",
			zap.Error(err), zap.String("leadId", lead.ID))
		return
	}
	lead.Status = models.LeadStatusNotified
	lead.NotifiedAt = &now
}

// RedriveStale re-offers leads stuck in created, oldest first. Returns how
// many advanced to notified.
func (s *DefaultLeadService) RedriveStale(ctx context.Context, olderThan time.Duration, limit int64) (int, error) {
	stale, err := s.Repo.ListStaleCreated(time.Now().Add(-olderThan), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale leads: %w", err)
	}

	redriven := 0
	for i := range stale {
		l := &stale[i]
		req, err := s.RequestRepo.GetByID(l.ServiceRequestID)
		if err != nil {
			utils.GetLogger().Error("Stale lead references unknown request",
				zap.String("leadId", l.ID), zap.Error(err))
			continue
		}
		provider, err := s.ProviderRepo.GetByID(l.ProviderID)
		if err != nil {
			utils.GetLogger().Error("Stale lead references unknown provider",
				zap.String("leadId", l.ID), zap.Error(err))
			continue
		}
		s.offerLead(ctx, l, provider, req)
		if l.Status == models.LeadStatusNotified {
			redriven++
		}
	}
	return redriven, nil
}

// parkUnassigned flips the request to unassigned and tells the customer.
// A conflict means it is already parked; no duplicate notification then.
func (s *DefaultLeadService) parkUnassigned(ctx context.Context, req *models.ServiceRequest) {
	from := []string{models.RequestStatusOpen, models.RequestStatusMatched}
	if err := s.RequestRepo.UpdateStatus(req.ID, from, models.RequestStatusUnassigned); err != nil {
		if !errors.Is(err, requestRepo.ErrStatusConflict) {
			utils.GetLogger().Error("Failed to park request as unassigned",
				zap.Error(err), zap.String("requestId", req.ID))
		}
		return
	}
	req.Status = models.RequestStatusUnassigned

	s.dispatch(ctx, customerRecipient(req), models.NotifyRequestUnassigned,
		"We're still looking",
		"No providers are available for your request right now. We'll keep looking and let you know.",
		map[string]string{"requestId": req.ID})
}

func snapshotOf(plan models.SubscriptionPlan) models.PlanSnapshot {
	return models.PlanSnapshot{
		PlanID:              plan.ID,
		Tier:                plan.Tier,
		LeadDiscountPercent: plan.LeadDiscountPercent,
		PriorityBoostPoints: plan.PriorityBoostPoints,
		Featured:            plan.Featured,
		FeeRateOverride:     plan.FeeRateOverride,
	}
}

func locationLabel(req *models.ServiceRequest) string {
	if req.City != "" {
		return req.City
	}
	return req.PostalCode
}
