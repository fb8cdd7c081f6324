package requestRepo

import (
	"fixify/models"
)

// ServiceRequestRepository defines methods for service request data access.
type ServiceRequestRepository interface {
	// Create inserts a new service request record.
	Create(req *models.ServiceRequest) error
	// GetByID retrieves a service request by its unique ID.
	GetByID(id string) (*models.ServiceRequest, error)
	// UpdateStatus conditionally moves a request between statuses.
	UpdateStatus(id string, from []string, to string) error
	// SetGeo stores the geocoded location for the request.
	SetGeo(id string, geo models.GeoPoint) error
	// ListByStatus returns recent requests, optionally filtered by status.
	ListByStatus(status string, limit int64) ([]models.ServiceRequest, error)
}
