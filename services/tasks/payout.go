package tasks

import (
	"encoding/json"

	"fixify/models"

	"github.com/hibiken/asynq"
)

const TypePayoutTransfer = "payout:transfer"

// NewTransferTask builds the queue task that moves money for one payout.
func NewTransferTask(payoutID string, maxRetries int) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(models.TransferPayload{PayoutID: payoutID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypePayoutTransfer, b)
	opts := []asynq.Option{asynq.MaxRetry(maxRetries)}

	return task, opts, nil
}
