package models

import "time"

// Lead states. Accepted/declined are the two RESPONDED outcomes; declined,
// closed and cancelled are terminal.
const (
	LeadStatusCreated    = "created"
	LeadStatusNotified   = "notified"
	LeadStatusViewed     = "viewed"
	LeadStatusAccepted   = "accepted"
	LeadStatusDeclined   = "declined"
	LeadStatusInProgress = "in_progress"
	LeadStatusCompleted  = "completed"
	LeadStatusApproved   = "approved"
	LeadStatusClosed     = "closed"
	LeadStatusCancelled  = "cancelled"
)

type Lead struct {
	ID               string       `bson:"id" json:"id"`                             // Unique lead identifier (UUID)
	ServiceRequestID string       `bson:"serviceRequestId" json:"serviceRequestId"` // Request this lead distributes
	ProviderID       string       `bson:"providerId" json:"providerId"`             // Provider the lead was offered to
	Category         string       `bson:"category" json:"category"`
	CostCents        int64        `bson:"costCents" json:"costCents"` // Price charged to the provider for this lead
	Currency         string       `bson:"currency" json:"currency"`
	Status           string       `bson:"status" json:"status"` // See LeadStatus* constants
	Rank             int          `bson:"rank" json:"rank"`     // Position in the matching run, 1-based
	Score            float64      `bson:"score" json:"score"`   // Ranking score at creation time
	PlanSnapshot     PlanSnapshot `bson:"planSnapshot" json:"planSnapshot"`
	QuotedPriceCents int64        `bson:"quotedPriceCents,omitempty" json:"quotedPriceCents,omitempty"` // Agreed job price, set at acceptance
	PaymentIntentRef string       `bson:"paymentIntentRef,omitempty" json:"paymentIntentRef,omitempty"` // Processor reference captured at acceptance
	DeclineReason    string       `bson:"declineReason,omitempty" json:"declineReason,omitempty"`
	CreatedAt        time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time    `bson:"updatedAt" json:"updatedAt"`
	NotifiedAt       *time.Time   `bson:"notifiedAt,omitempty" json:"notifiedAt,omitempty"`
	ViewedAt         *time.Time   `bson:"viewedAt,omitempty" json:"viewedAt,omitempty"`
	RespondedAt      *time.Time   `bson:"respondedAt,omitempty" json:"respondedAt,omitempty"`
	StartedAt        *time.Time   `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt      *time.Time   `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	ApprovedAt       *time.Time   `bson:"approvedAt,omitempty" json:"approvedAt,omitempty"`
	ClosedAt         *time.Time   `bson:"closedAt,omitempty" json:"closedAt,omitempty"`
	CancelledAt      *time.Time   `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
}
