package models

import "time"

// Payout states. Failed is retryable until Attempts reaches MaxAttempts,
// then terminal and surfaced for manual intervention.
const (
	PayoutStatusPending    = "pending"
	PayoutStatusProcessing = "processing"
	PayoutStatusCompleted  = "completed"
	PayoutStatusFailed     = "failed"
)

// PayoutRecord is created exactly once per lead, at approval. The platform
// fee is rounded and the provider share derived by subtraction, so
// ProviderCents + PlatformCents == TotalCents holds exactly.
type PayoutRecord struct {
	ID               string     `bson:"id" json:"id"`
	LeadID           string     `bson:"leadId" json:"leadId"` // Unique per lead, the double-payout guard
	ServiceRequestID string     `bson:"serviceRequestId" json:"serviceRequestId"`
	ProviderID       string     `bson:"providerId" json:"providerId"`
	TotalCents       int64      `bson:"totalCents" json:"totalCents"`       // Agreed job price
	ProviderCents    int64      `bson:"providerCents" json:"providerCents"` // TotalCents - PlatformCents
	PlatformCents    int64      `bson:"platformCents" json:"platformCents"` // round(TotalCents * FeeRate)
	FeeRate          float64    `bson:"feeRate" json:"feeRate"`
	Currency         string     `bson:"currency" json:"currency"`
	Status           string     `bson:"status" json:"status"` // See PayoutStatus* constants
	Attempts         int        `bson:"attempts" json:"attempts"`
	MaxAttempts      int        `bson:"maxAttempts" json:"maxAttempts"`
	TransferID       string     `bson:"transferId,omitempty" json:"transferId,omitempty"` // Processor transfer identifier
	LastError        string     `bson:"lastError,omitempty" json:"lastError,omitempty"`
	CapturedAt       *time.Time `bson:"capturedAt,omitempty" json:"capturedAt,omitempty"`
	TransferredAt    *time.Time `bson:"transferredAt,omitempty" json:"transferredAt,omitempty"`
	CreatedAt        time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time  `bson:"updatedAt" json:"updatedAt"`
}
