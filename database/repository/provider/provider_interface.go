package providerRepo

import (
	"fixify/models"
)

// CandidateCriteria narrows the provider set handed to the ranking engine.
// The repo applies the cheap filters (status, category); the fine-grained
// geographic check against each provider's own radius happens in memory.
type CandidateCriteria struct {
	// Required service category (e.g., "plumbing").
	Category string
	// Cap on the number of candidates fetched.
	Limit int64
}

// ProviderRepository defines methods for provider data access.
type ProviderRepository interface {
	// GetByID retrieves a provider by its unique ID.
	GetByID(id string) (*models.Provider, error)
	// FindCandidates returns active providers offering the given category.
	FindCandidates(criteria CandidateCriteria) ([]models.Provider, error)
	// Create inserts a new provider record.
	Create(provider *models.Provider) error
	// UpdatePlan switches the provider's subscription tier.
	UpdatePlan(id, planID string) error
	// UpdateFCMToken stores the provider's current push token. An empty
	// token switches the provider to email-only delivery.
	UpdateFCMToken(id, token string) error
}
