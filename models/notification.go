package models

import "time"

// Delivery states. The record is a pure delivery ledger: business logic
// creates it once, only the dispatcher mutates it afterwards.
const (
	NotificationStatusPending  = "pending"
	NotificationStatusSent     = "sent"
	NotificationStatusRetrying = "retrying"
	NotificationStatusFailed   = "failed"
)

// Delivery channels.
const (
	ChannelPush  = "push"
	ChannelEmail = "email"
)

// Recipient kinds.
const (
	RecipientCustomer = "customer"
	RecipientProvider = "provider"
)

// Message types, one per lifecycle transition that notifies somebody.
const (
	NotifyNewLead           = "new_lead"
	NotifyLeadAccepted      = "lead_accepted"
	NotifyLeadDeclined      = "lead_declined"
	NotifyWorkInProgress    = "work_in_progress"
	NotifyWorkCompleted     = "work_completed"
	NotifyWorkApproved      = "work_approved"
	NotifyLeadCancelled     = "lead_cancelled"
	NotifyRequestUnassigned = "request_unassigned"
	NotifyPayoutSent        = "payout_sent"
	NotifyPayoutFailed      = "payout_failed"
)

type Recipient struct {
	Kind     string `bson:"kind" json:"kind"` // "customer" or "provider"
	ID       string `bson:"id" json:"id"`
	Email    string `bson:"email,omitempty" json:"email,omitempty"`
	FCMToken string `bson:"fcmToken,omitempty" json:"-"` // push token, empty means email only
}

// DeliveryAttempt is one entry in the append-only attempt ledger.
type DeliveryAttempt struct {
	At      time.Time `bson:"at" json:"at"`
	Channel string    `bson:"channel" json:"channel"`
	OK      bool      `bson:"ok" json:"ok"`
	Error   string    `bson:"error,omitempty" json:"error,omitempty"`
}

type NotificationRecord struct {
	ID         string            `bson:"id" json:"id"`
	Recipient  Recipient         `bson:"recipient" json:"recipient"`
	Type       string            `bson:"type" json:"type"`       // See Notify* constants
	Channel    string            `bson:"channel" json:"channel"` // Preferred channel for this record
	Title      string            `bson:"title" json:"title"`
	Body       string            `bson:"body" json:"body"`
	Data       map[string]string `bson:"data,omitempty" json:"data,omitempty"` // leadId / requestId / payoutId references
	Status     string            `bson:"status" json:"status"`
	RetryCount int               `bson:"retryCount" json:"retryCount"`
	MaxRetries int               `bson:"maxRetries" json:"maxRetries"`
	LastError  string            `bson:"lastError,omitempty" json:"lastError,omitempty"`
	Attempts   []DeliveryAttempt `bson:"attempts" json:"attempts"`
	SentAt     *time.Time        `bson:"sentAt,omitempty" json:"sentAt,omitempty"`
	CreatedAt  time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time         `bson:"updatedAt" json:"updatedAt"`
}
