package tasks

import (
	"encoding/json"

	"fixify/models"

	"github.com/hibiken/asynq"
)

const TypeNotificationDeliver = "notification:deliver"

// NewDeliveryTask builds the queue task that delivers one notification record.
// maxRetries bounds asynq's reschedules after the initial attempt.
func NewDeliveryTask(recordID string, maxRetries int) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(models.DeliveryPayload{RecordID: recordID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeNotificationDeliver, b)
	opts := []asynq.Option{asynq.MaxRetry(maxRetries)}

	return task, opts, nil
}
