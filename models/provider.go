package models

import (
	"time"
)

// Provider account states. Only active providers are eligible for leads.
const (
	ProviderStatusActive    = "active"
	ProviderStatusPending   = "pending"
	ProviderStatusSuspended = "suspended"
)

// GeoPoint represents a GeoJSON Point.
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`               // Always "Point"
	Coordinates []float64 `bson:"coordinates" json:"coordinates"` // [longitude, latitude]
}

type Profile struct {
	Name        string   `bson:"name" json:"name"`
	Email       string   `bson:"email" json:"email,omitempty"`
	PhoneNumber string   `bson:"phoneNumber" json:"phoneNumber,omitempty"`
	Status      string   `bson:"status" json:"status"` // See ProviderStatus* constants
	Rating      float64  `bson:"rating" json:"rating,omitempty"`
	PostalCode  string   `bson:"postalCode" json:"postalCode"`
	City        string   `bson:"city" json:"city,omitempty"`
	LocationGeo GeoPoint `bson:"locationGeo" json:"locationGeo"`
}

type PaymentDetails struct {
	StripeAccountID string    `bson:"stripeAccountID,omitempty" json:"stripeAccountID,omitempty"` // Connected account transfers go to
	StripeVerified  bool      `bson:"stripeVerified" json:"stripeVerified"`
	Currency        string    `bson:"currency" json:"currency"` // e.g., "EUR"
	LastUpdated     time.Time `bson:"lastUpdated" json:"lastUpdated"`
}

type Provider struct {
	ID              string         `bson:"id" json:"id,omitempty"`
	Profile         Profile        `bson:"profile" json:"profile"`
	Categories      []string       `bson:"categories" json:"categories"`                           // Active service categories
	Subcategories   []string       `bson:"subcategories,omitempty" json:"subcategories,omitempty"` // Optional finer-grained skills
	ServiceRadiusKm float64        `bson:"serviceRadiusKm" json:"serviceRadiusKm"`                 // Coverage around Profile.LocationGeo
	PlanID          string         `bson:"planId" json:"planId"`                                   // Current subscription tier
	PaymentDetails  PaymentDetails `bson:"paymentDetails" json:"paymentDetails,omitzero"`
	FCMToken        string         `bson:"fcmToken,omitempty" json:"-"` // Push token, empty means email only
	CompletedJobs   int            `bson:"completedJobs" json:"completedJobs,omitempty"`
	MemberSince     time.Time      `bson:"memberSince" json:"memberSince"` // Account age, ranking tie-break
	CreatedAt       time.Time      `bson:"createdAt" json:"createdAt,omitzero"`
	UpdatedAt       time.Time      `bson:"updatedAt" json:"updatedAt,omitzero"`
}
