package payoutRepo

import (
	"context"
	"time"

	"fixify/models"
)

// PayoutRepository defines methods for payout data access.
type PayoutRepository interface {
	// GetByID retrieves a payout by its unique ID.
	GetByID(id string) (*models.PayoutRecord, error)
	// GetByLeadID retrieves the payout belonging to a lead, if any.
	GetByLeadID(leadID string) (*models.PayoutRecord, error)
	// ListByStatus returns recent payouts, optionally filtered by status.
	ListByStatus(status string, limit int64) ([]models.PayoutRecord, error)
	// ApproveLeadAndCreate moves the lead completed -> approved and inserts
	// the payout record in one transaction. The unique index on leadId is
	// the double-payout guard; a duplicate reports ErrDuplicatePayout.
	ApproveLeadAndCreate(ctx context.Context, payout *models.PayoutRecord) error
	// MarkProcessing conditionally claims a payout for a transfer attempt
	// (pending or failed, attempts below the bound) and increments the
	// attempt counter.
	MarkProcessing(id string) error
	// MarkFailed records a rejected transfer.
	MarkFailed(id, reason string) error
	// CompleteAndCloseLead finishes the payout and closes its lead in one
	// transaction.
	CompleteAndCloseLead(ctx context.Context, payoutID, transferID string) error
	// ResetForRetry re-arms a terminally failed payout for manual re-drive.
	ResetForRetry(id string) error
	// ListStuckProcessing surfaces payouts that claimed processing long ago
	// and never resolved.
	ListStuckProcessing(olderThan time.Time, limit int64) ([]models.PayoutRecord, error)
}
