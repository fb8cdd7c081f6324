package notificationRepo

import (
	"time"

	"fixify/models"
)

// NotificationRepository defines methods for the delivery ledger. Attempts
// are only ever appended; no method rewrites or removes past entries.
type NotificationRepository interface {
	// Create inserts a new pending notification record.
	Create(rec *models.NotificationRecord) error
	// GetByID retrieves a notification record by its unique ID.
	GetByID(id string) (*models.NotificationRecord, error)
	// ListByStatus returns recent records, optionally filtered by status.
	ListByStatus(status string, limit int64) ([]models.NotificationRecord, error)
	// RecordSuccess appends a successful attempt and finalizes the record.
	RecordSuccess(id string, attempt models.DeliveryAttempt) error
	// RecordRetry appends a failed attempt, bumps the retry counter and
	// marks the record retrying.
	RecordRetry(id string, attempt models.DeliveryAttempt) error
	// RecordFailure appends the final failed attempt and marks the record
	// terminally failed.
	RecordFailure(id string, attempt models.DeliveryAttempt) error
	// ListStalePending surfaces records whose delivery task never ran.
	ListStalePending(olderThan time.Time, limit int64) ([]models.NotificationRecord, error)
}
