package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fixify/models"
	"fixify/utils"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// sendTimeout bounds a single channel send.
const sendTimeout = 10 * time.Second

// Deliver runs one delivery attempt for the record and keeps the ledger
// honest: success finalizes the record, failure bumps the retry counter while
// attempts remain, and the attempt at the bound marks it terminally failed.
// Returning an error makes asynq reschedule; asynq.SkipRetry stops it.
func (s *DefaultNotificationService) Deliver(ctx context.Context, recordID string) error {
	record, err := s.Repo.GetByID(recordID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			utils.GetLogger().Warn("Delivery task references unknown notification record",
				zap.String("recordId", recordID))
			return nil
		}
		return fmt.Errorf("failed to load notification record %s: %w", recordID, err)
	}

	switch record.Status {
	case models.NotificationStatusSent, models.NotificationStatusFailed:
		// Terminal already; a duplicate or stale task has nothing to do.
		return nil
	}

	channel := s.channelFor(record)

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	sendErr := channel.Send(sendCtx, record)

	attempt := models.DeliveryAttempt{
		At:      time.Now(),
		Channel: channel.Name(),
		OK:      sendErr == nil,
	}
	if sendErr != nil {
		attempt.Error = sendErr.Error()
	}

	if sendErr == nil {
		if err := s.Repo.RecordSuccess(record.ID, attempt); err != nil {
			return fmt.Errorf("failed to record delivery success for %s: %w", record.ID, err)
		}
		return nil
	}

	if record.RetryCount < record.MaxRetries {
		if err := s.Repo.RecordRetry(record.ID, attempt); err != nil {
			return fmt.Errorf("failed to record delivery retry for %s: %w", record.ID, err)
		}
		return fmt.Errorf("notification %s delivery failed: %w", record.ID, sendErr)
	}

	if err := s.Repo.RecordFailure(record.ID, attempt); err != nil {
		return fmt.Errorf("failed to record delivery failure for %s: %w", record.ID, err)
	}
	utils.GetLogger().Error("Notification exhausted its retries",
		zap.String("recordId", record.ID),
		zap.String("type", record.Type),
		zap.Int("retryCount", record.RetryCount),
		zap.Error(sendErr))
	return fmt.Errorf("notification %s exhausted retries: %v: %w", record.ID, sendErr, asynq.SkipRetry)
}

// channelFor picks the transport the record was dispatched for, falling back
// to email when no push channel is wired.
func (s *DefaultNotificationService) channelFor(record *models.NotificationRecord) Channel {
	if record.Channel == models.ChannelPush && s.Push != nil {
		return s.Push
	}
	return s.Email
}
