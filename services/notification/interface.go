package notification

import (
	"context"
	"fmt"
	"time"

	"fixify/config"
	"fixify/database/repository"
	"fixify/models"
	"fixify/services/tasks"
	"fixify/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationService persists, queues, and delivers lifecycle messages.
// Dispatch never fails the calling transition on queue trouble: the pending
// record is the source of truth and a sweep requeues whatever got stranded.
type NotificationService interface {
	Dispatch(ctx context.Context, recipient models.Recipient, notifType, title, body string, data map[string]string) (*models.NotificationRecord, error)
	Deliver(ctx context.Context, recordID string) error
	// RedrivePending requeues delivery for records stuck in pending
	// (maintenance sweep).
	RedrivePending(ctx context.Context, olderThan time.Duration, limit int64) (int, error)
	GetByID(id string) (*models.NotificationRecord, error)
	ListByStatus(status string, limit int64) ([]models.NotificationRecord, error)
}

// DefaultNotificationService is the production implementation.
type DefaultNotificationService struct {
	Repo        repository.NotificationRepository
	Push        Channel
	Email       Channel
	AsynqClient tasks.Enqueuer
}

func NewDefaultNotificationService(
	repo repository.NotificationRepository,
	push Channel,
	email Channel,
	asynqClient tasks.Enqueuer,
) (*DefaultNotificationService, error) {
	if repo == nil || email == nil || asynqClient == nil {
		return nil, fmt.Errorf("notification service initialization error: repo, email channel or queue client is nil")
	}
	return &DefaultNotificationService{
		Repo:        repo,
		Push:        push,
		Email:       email,
		AsynqClient: asynqClient,
	}, nil
}

// Dispatch builds and persists a pending record, then enqueues its delivery
// task. Push is preferred when the recipient has an FCM token on file.
func (s *DefaultNotificationService) Dispatch(
	ctx context.Context,
	recipient models.Recipient,
	notifType, title, body string,
	data map[string]string,
) (*models.NotificationRecord, error) {
	channel := models.ChannelEmail
	if recipient.FCMToken != "" {
		channel = models.ChannelPush
	}

	now := time.Now()
	record := &models.NotificationRecord{
		ID:         uuid.New().String(),
		Recipient:  recipient,
		Type:       notifType,
		Channel:    channel,
		Title:      title,
		Body:       body,
		Data:       data,
		Status:     models.NotificationStatusPending,
		MaxRetries: config.AppConfig.NotifyMaxRetries,
		Attempts:   []models.DeliveryAttempt{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Repo.Create(record); err != nil {
		return nil, fmt.Errorf("failed to persist notification record: %w", err)
	}

	s.enqueueDelivery(record.ID, record.MaxRetries)
	return record, nil
}

// enqueueDelivery pushes the delivery task. Failures only log: the record is
// already pending and the stale-pending sweep will requeue it.
func (s *DefaultNotificationService) enqueueDelivery(recordID string, maxRetries int) {
	task, opts, err := tasks.NewDeliveryTask(recordID, maxRetries)
	if err == nil {
		_, err = s.AsynqClient.Enqueue(task, opts...)
	}
	if err != nil {
		utils.GetLogger().Error("Failed to enqueue notification delivery",
			zap.Error(err), zap.String("recordId", recordID))
	}
}

// Requeue re-enqueues delivery for an existing record, used by the sweep.
func (s *DefaultNotificationService) Requeue(recordID string, maxRetries int) {
	s.enqueueDelivery(recordID, maxRetries)
}

// RedrivePending requeues pending records whose delivery task got lost
// (enqueue failed, queue flushed). Returns how many were requeued.
func (s *DefaultNotificationService) RedrivePending(ctx context.Context, olderThan time.Duration, limit int64) (int, error) {
	stale, err := s.Repo.ListStalePending(time.Now().Add(-olderThan), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale notifications: %w", err)
	}
	for _, record := range stale {
		s.Requeue(record.ID, record.MaxRetries)
	}
	return len(stale), nil
}

func (s *DefaultNotificationService) GetByID(id string) (*models.NotificationRecord, error) {
	return s.Repo.GetByID(id)
}

func (s *DefaultNotificationService) ListByStatus(status string, limit int64) ([]models.NotificationRecord, error) {
	return s.Repo.ListByStatus(status, limit)
}
