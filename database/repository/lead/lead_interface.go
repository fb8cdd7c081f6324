package leadRepo

import (
	"context"
	"time"

	"fixify/models"

	"go.mongodb.org/mongo-driver/bson"
)

// AcceptParams carries everything the acceptance transaction needs.
type AcceptParams struct {
	LeadID           string
	QuotedPriceCents int64
	PaymentIntentRef string
	// Exclusive engages the winner gate on the service request and the
	// cancellation of sibling leads. When false, multiple acceptances on
	// the same request may coexist.
	Exclusive bool
}

// LeadRepository defines methods for lead data access.
type LeadRepository interface {
	// CreateMany inserts leads in rank order.
	CreateMany(leads []*models.Lead) error
	// GetByID retrieves a lead by its unique ID.
	GetByID(id string) (*models.Lead, error)
	// ListByRequest returns every lead of one service request.
	ListByRequest(requestID string) ([]models.Lead, error)
	// ListByProvider returns a provider's leads, newest first.
	ListByProvider(providerID string, limit int64) ([]models.Lead, error)
	// UpdateStatus conditionally moves a lead from one of the expected
	// statuses to the new one, applying extra field sets atomically.
	// A no-match reports ErrStatusConflict.
	UpdateStatus(id string, from []string, to string, set bson.M) error
	// CountRecentByProviders counts leads created per provider since the
	// given instant (fairness penalty input).
	CountRecentByProviders(providerIDs []string, since time.Time) (map[string]int, error)
	// AcceptExclusively runs the acceptance transaction: win the request,
	// accept the lead, cancel the non-terminal siblings. The cancelled
	// siblings are returned for follow-up notifications.
	AcceptExclusively(ctx context.Context, requestID string, params AcceptParams) ([]models.Lead, error)
	// CancelRequestCascade cancels the request and all its non-terminal
	// leads in one transaction, returning the leads that were cancelled.
	CancelRequestCascade(ctx context.Context, requestID string) ([]models.Lead, error)
	// ListStaleCreated returns leads stuck in created (their notification
	// enqueue never happened), oldest first.
	ListStaleCreated(olderThan time.Time, limit int64) ([]models.Lead, error)
}
