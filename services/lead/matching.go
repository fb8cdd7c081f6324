package lead

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"fixify/config"
	"fixify/database/repository"
	"fixify/models"
	"fixify/services/geocode"
	"fixify/services/subscription"
	"fixify/utils"

	"go.uber.org/zap"
)

// MatchingService produces the ranked provider list for a service request.
// The exclude set drops providers that already hold a lead on the request
// (reassignment runs).
type MatchingService interface {
	MatchProviders(ctx context.Context, req *models.ServiceRequest, exclude map[string]struct{}) ([]RankedProvider, error)
}

// RankedProvider is one row of the ranking output: who, with what score,
// priced at what lead cost, under which plan snapshot.
type RankedProvider struct {
	Provider  models.Provider
	Plan      models.SubscriptionPlan
	Score     float64
	CostCents int64
}

// RankWeights collects every tunable the scoring formula reads, so ranking
// is a deterministic function of its inputs.
type RankWeights struct {
	RatingWeight       float64
	FeaturedBonus      float64
	SubcategoryBonus   float64
	RecentLeadsPenalty float64
	MaxLeads           int
	BaseLeadCostCents  int64
	MinLeadCostCents   int64
}

// WeightsFromConfig snapshots the scoring tunables from app configuration.
func WeightsFromConfig() RankWeights {
	return RankWeights{
		RatingWeight:       config.AppConfig.RatingWeight,
		FeaturedBonus:      config.AppConfig.FeaturedBonus,
		SubcategoryBonus:   config.AppConfig.SubcategoryBonus,
		RecentLeadsPenalty: config.AppConfig.RecentLeadsPenalty,
		MaxLeads:           config.AppConfig.MaxLeadsPerRequest,
		BaseLeadCostCents:  config.AppConfig.BaseLeadCostCents,
		MinLeadCostCents:   config.AppConfig.MinLeadCostCents,
	}
}

// DefaultMatchingService is the production implementation.
type DefaultMatchingService struct {
	ProviderRepo repository.ProviderRepository
	LeadRepo     repository.LeadRepository
	Plans        subscription.PlanService
	Geocoder     geocode.GeocodeService
}

// MatchProviders retrieves candidates for the request's category and ranks
// them. The request's coordinates are resolved on the fly when missing;
// geocoding trouble degrades to postal-code matching instead of failing.
func (s *DefaultMatchingService) MatchProviders(ctx context.Context, req *models.ServiceRequest, exclude map[string]struct{}) ([]RankedProvider, error) {
	if req.Category == "" {
		return nil, fmt.Errorf("service request %s has no category", req.ID)
	}

	if req.LocationGeo == nil && s.Geocoder != nil {
		point, err := s.Geocoder.Resolve(ctx, req.PostalCode, req.Country)
		if err != nil {
			if !errors.Is(err, geocode.ErrNotFound) {
				utils.GetLogger().Warn("Geocoding failed, matching on postal code",
					zap.String("requestId", req.ID), zap.Error(err))
			}
		} else {
			req.LocationGeo = point
		}
	}

	candidates, err := s.ProviderRepo.FindCandidates(repository.CandidateCriteria{Category: req.Category})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve candidate providers: %w", err)
	}
	if len(exclude) > 0 {
		kept := candidates[:0]
		for _, p := range candidates {
			if _, skip := exclude[p.ID]; !skip {
				kept = append(kept, p)
			}
		}
		candidates = kept
	}

	plans, err := s.Plans.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot subscription plans: %w", err)
	}

	ids := make([]string, 0, len(candidates))
	for _, p := range candidates {
		ids = append(ids, p.ID)
	}
	window := time.Duration(config.AppConfig.RecentLeadsWindowHrs) * time.Hour
	recent, err := s.LeadRepo.CountRecentByProviders(ids, time.Now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("failed to count recent leads: %w", err)
	}

	return Rank(req, candidates, plans, recent, WeightsFromConfig())
}

// Rank filters, scores, orders, and prices the candidate set. Pure: every
// input it scores by is a parameter.
//
// score = rating*ratingWeight + plan boost + featured bonus + subcategory
// bonus - recentLeads*penalty. Ties break by older MemberSince, then by ID,
// so equal-score runs order deterministically.
func Rank(
	req *models.ServiceRequest,
	candidates []models.Provider,
	plans map[string]models.SubscriptionPlan,
	recentCounts map[string]int,
	weights RankWeights,
) ([]RankedProvider, error) {
	type scoredProvider struct {
		Provider models.Provider
		Plan     models.SubscriptionPlan
		Score    float64
	}
	var scored []scoredProvider

	seen := make(map[string]bool, len(candidates))
	for _, p := range candidates {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true

		if p.Profile.Status != models.ProviderStatusActive {
			continue
		}
		if !containsFold(p.Categories, req.Category) {
			continue
		}
		if !servesLocation(req, &p) {
			continue
		}

		plan, ok := plans[p.PlanID]
		if !ok {
			plan = subscription.BaselinePlan()
		}

		score := p.Profile.Rating * weights.RatingWeight
		score += plan.PriorityBoostPoints
		if plan.Featured {
			score += weights.FeaturedBonus
		}
		if req.Subcategory != "" && containsFold(p.Subcategories, req.Subcategory) {
			score += weights.SubcategoryBonus
		}
		score -= float64(recentCounts[p.ID]) * weights.RecentLeadsPenalty

		scored = append(scored, scoredProvider{Provider: p, Plan: plan, Score: score})
	}

	if len(scored) == 0 {
		return nil, ErrNoEligibleProviders
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if !scored[i].Provider.MemberSince.Equal(scored[j].Provider.MemberSince) {
			return scored[i].Provider.MemberSince.Before(scored[j].Provider.MemberSince)
		}
		return scored[i].Provider.ID < scored[j].Provider.ID
	})

	limit := weights.MaxLeads
	if limit <= 0 || limit > len(scored) {
		limit = len(scored)
	}

	ranked := make([]RankedProvider, 0, limit)
	for _, sp := range scored[:limit] {
		ranked = append(ranked, RankedProvider{
			Provider:  sp.Provider,
			Plan:      sp.Plan,
			Score:     sp.Score,
			CostCents: LeadCost(weights.BaseLeadCostCents, sp.Plan.LeadDiscountPercent, weights.MinLeadCostCents),
		})
	}
	return ranked, nil
}

// LeadCost applies the plan discount to the base lead price, rounded to the
// nearest cent and floored at the configured minimum.
func LeadCost(baseCents int64, discountPercent float64, minCents int64) int64 {
	cost := int64(math.Round(float64(baseCents) * (1 - discountPercent/100)))
	if cost < minCents {
		cost = minCents
	}
	return cost
}

// servesLocation checks the provider's declared service radius against the
// request coordinates. When either side lacks coordinates it falls back to
// exact postal-code or city equality rather than dropping the candidate.
func servesLocation(req *models.ServiceRequest, p *models.Provider) bool {
	if req.LocationGeo != nil && p.ServiceRadiusKm > 0 {
		reqLng, reqLat, ok1 := pointCoords(req.LocationGeo)
		provLng, provLat, ok2 := pointCoords(&p.Profile.LocationGeo)
		if ok1 && ok2 {
			return haversine(reqLat, reqLng, provLat, provLng) <= p.ServiceRadiusKm
		}
	}
	if req.PostalCode != "" && strings.EqualFold(p.Profile.PostalCode, req.PostalCode) {
		return true
	}
	return req.City != "" && strings.EqualFold(p.Profile.City, req.City)
}

func pointCoords(point *models.GeoPoint) (lng, lat float64, ok bool) {
	if point == nil || len(point.Coordinates) != 2 {
		return 0, 0, false
	}
	return point.Coordinates[0], point.Coordinates[1], true
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}

// haversine calculates the great-circle distance (in km) between two lat/lon points.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
