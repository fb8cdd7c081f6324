package tasks

import "github.com/hibiken/asynq"

// Enqueuer is the slice of the asynq client we call, kept narrow for mocking.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}
