package models

import "time"

// Service request states. The request mirrors the coarse progress of its
// leads; the per-provider state machine lives on the Lead.
const (
	RequestStatusOpen       = "open"
	RequestStatusMatched    = "matched"
	RequestStatusUnassigned = "unassigned"
	RequestStatusAssigned   = "assigned"
	RequestStatusCompleted  = "completed"
	RequestStatusClosed     = "closed"
	RequestStatusCancelled  = "cancelled"
)

type ServiceRequest struct {
	ID                 string    `bson:"id" json:"id"`                                                 // Unique request identifier (UUID)
	CustomerID         string    `bson:"customerId" json:"customerId"`                                 // Customer who posted the request
	ContactEmail       string    `bson:"contactEmail" json:"contactEmail"`                             // Where customer-facing notifications go
	Category           string    `bson:"category" json:"category"`                                     // Resolved service category, e.g. "plumbing"
	Subcategory        string    `bson:"subcategory,omitempty" json:"subcategory,omitempty"`           // Optional finer grain, e.g. "boiler_repair"
	Description        string    `bson:"description,omitempty" json:"description,omitempty"`           // Free-text job description
	PostalCode         string    `bson:"postalCode" json:"postalCode"`                                 // Anchor for the geographic filter
	City               string    `bson:"city,omitempty" json:"city,omitempty"`                         // Fallback match when geocoding fails
	Country            string    `bson:"country,omitempty" json:"country,omitempty"`                   // ISO code for the geocoder, defaults from config
	LocationGeo        *GeoPoint `bson:"locationGeo,omitempty" json:"locationGeo,omitempty"`           // Resolved coordinates, best effort
	Status             string    `bson:"status" json:"status"`                                         // See RequestStatus* constants
	AssignedProviderID string    `bson:"assignedProviderId,omitempty" json:"assignedProviderId,omitempty"`
	AssignedLeadID     string    `bson:"assignedLeadId,omitempty" json:"assignedLeadId,omitempty"`
	CreatedAt          time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time `bson:"updatedAt" json:"updatedAt"`
}

// CreateRequestInput is the API payload for posting a new service request.
type CreateRequestInput struct {
	CustomerID   string `json:"customerId" binding:"required"`
	ContactEmail string `json:"contactEmail" binding:"required,email"`
	Category     string `json:"category" binding:"required"`
	Subcategory  string `json:"subcategory"`
	Description  string `json:"description"`
	PostalCode   string `json:"postalCode" binding:"required"`
	City         string `json:"city"`
	Country      string `json:"country"`
}
