package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"fixify/config"
	"fixify/models"
	"fixify/services/lead"
	"fixify/services/notification"
	"fixify/services/payout"
	"fixify/services/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

const (
	sweepInterval = 5 * time.Minute
	sweepAge      = 10 * time.Minute
	sweepBatch    = 100
	sweepTimeout  = 2 * time.Minute
)

// InitWorkers runs the async delivery/settlement worker and the maintenance
// sweep in the background.
func InitWorkers(notifSvc notification.NotificationService, engine payout.Engine, leadSvc lead.LeadService) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
			RetryDelayFunc: retryDelay,
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeNotificationDeliver, handleDeliveryTask(notifSvc))
	mux.HandleFunc(tasks.TypePayoutTransfer, handleTransferTask(engine))

	// Start Redis health monitor
	go monitorRedisConnection()

	// Periodic redrive of work that fell out of the queue
	go runSweeps(notifSvc, engine, leadSvc)

	// Start async worker with retry logic
	go func() {
		log.Println("[Worker] 🚀 Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[Worker] ❌ Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[Worker] ❗ Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

// retryDelay doubles the configured base delay on every retry, capped at an
// hour.
func retryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	delay := time.Duration(config.AppConfig.NotifyRetryBaseSecs) * time.Second << n
	if delay <= 0 || delay > time.Hour {
		delay = time.Hour
	}
	return delay
}

func handleDeliveryTask(notifSvc notification.NotificationService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.DeliveryPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[DeliveryHandler] 🔴 Invalid payload: %v", err)
			return fmt.Errorf("invalid delivery payload: %v: %w", err, asynq.SkipRetry)
		}
		return notifSvc.Deliver(ctx, p.RecordID)
	}
}

func handleTransferTask(engine payout.Engine) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.TransferPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[TransferHandler] 🔴 Invalid payload: %v", err)
			return fmt.Errorf("invalid transfer payload: %v: %w", err, asynq.SkipRetry)
		}
		return engine.Transfer(ctx, p.PayoutID)
	}
}

// runSweeps periodically redrives stranded work: leads stuck in created,
// notifications stuck in pending, payouts parked mid transfer.
func runSweeps(notifSvc notification.NotificationService, engine payout.Engine, leadSvc lead.LeadService) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)

		if n, err := leadSvc.RedriveStale(ctx, sweepAge, sweepBatch); err != nil {
			log.Printf("[Sweep] ❌ Lead redrive failed: %v", err)
		} else if n > 0 {
			log.Printf("[Sweep] ♻️ Re-offered %d stale leads", n)
		}

		if n, err := notifSvc.RedrivePending(ctx, sweepAge, sweepBatch); err != nil {
			log.Printf("[Sweep] ❌ Notification redrive failed: %v", err)
		} else if n > 0 {
			log.Printf("[Sweep] ♻️ Requeued %d stranded notifications", n)
		}

		if n, err := engine.RedriveStuck(ctx, sweepAge, sweepBatch); err != nil {
			log.Printf("[Sweep] ❌ Payout redrive failed: %v", err)
		} else if n > 0 {
			log.Printf("[Sweep] ♻️ Requeued %d stranded payouts", n)
		}

		cancel()
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[Worker] ⚠️ Redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
