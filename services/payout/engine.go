package payout

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"fixify/config"
	"fixify/database/repository"
	payoutRepo "fixify/database/repository/payout"
	"fixify/models"
	"fixify/services/notification"
	"fixify/services/payment"
	"fixify/services/tasks"
	"fixify/utils"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

var (
	// ErrNotApprovable rejects approval of a lead that is not completed.
	ErrNotApprovable = errors.New("lead is not awaiting approval")
	// ErrNotRetryable rejects a manual re-drive of a payout that is not
	// terminally failed.
	ErrNotRetryable = errors.New("payout is not in a retryable state")
)

// Engine computes and settles provider payouts.
type Engine interface {
	// ApproveLead runs the approval transaction and returns the payout.
	// The boolean reports whether this call created it; repeated approvals
	// return the existing record unchanged.
	ApproveLead(ctx context.Context, leadID string) (*models.PayoutRecord, bool, error)
	// Transfer runs one settlement attempt for the payout (worker side).
	Transfer(ctx context.Context, payoutID string) error
	// RetryFailed re-arms a terminally failed payout and requeues it.
	RetryFailed(ctx context.Context, payoutID string) (*models.PayoutRecord, error)
	// RedriveStuck requeues payouts stranded in pending or processing
	// (maintenance sweep).
	RedriveStuck(ctx context.Context, olderThan time.Duration, limit int64) (int, error)
	GetByID(id string) (*models.PayoutRecord, error)
	GetByLead(leadID string) (*models.PayoutRecord, error)
	ListByStatus(status string, limit int64) ([]models.PayoutRecord, error)
}

// DefaultEngine is the production implementation.
type DefaultEngine struct {
	Repo         repository.PayoutRepository
	LeadRepo     repository.LeadRepository
	ProviderRepo repository.ProviderRepository
	Processor    payment.PaymentProcessor
	Notifier     notification.NotificationService
	AsynqClient  tasks.Enqueuer
}

// ComputeFor derives the payout amounts from an accepted lead. The platform
// fee is rounded to the nearest cent; the provider share is the remainder,
// so ProviderCents + PlatformCents always equals TotalCents exactly.
func ComputeFor(lead *models.Lead, defaultFeeRate float64, maxAttempts int) *models.PayoutRecord {
	feeRate := defaultFeeRate
	if lead.PlanSnapshot.FeeRateOverride != nil {
		feeRate = *lead.PlanSnapshot.FeeRateOverride
	}

	total := lead.QuotedPriceCents
	platform := int64(math.Round(float64(total) * feeRate))
	provider := total - platform

	now := time.Now()
	return &models.PayoutRecord{
		ID:               uuid.New().String(),
		LeadID:           lead.ID,
		ServiceRequestID: lead.ServiceRequestID,
		ProviderID:       lead.ProviderID,
		TotalCents:       total,
		ProviderCents:    provider,
		PlatformCents:    platform,
		FeeRate:          feeRate,
		Currency:         lead.Currency,
		Status:           models.PayoutStatusPending,
		MaxAttempts:      maxAttempts,
		CapturedAt:       lead.RespondedAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// ApproveLead moves the lead completed -> approved and creates its payout in
// one transaction, then enqueues the transfer. Approving twice returns the
// original payout without touching anything.
func (e *DefaultEngine) ApproveLead(ctx context.Context, leadID string) (*models.PayoutRecord, bool, error) {
	lead, err := e.LeadRepo.GetByID(leadID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load lead %s: %w", leadID, err)
	}

	switch lead.Status {
	case models.LeadStatusCompleted:
		// proceed
	case models.LeadStatusApproved, models.LeadStatusClosed:
		existing, err := e.Repo.GetByLeadID(leadID)
		if err != nil {
			return nil, false, fmt.Errorf("lead %s is approved but its payout could not be loaded: %w", leadID, err)
		}
		return existing, false, nil
	default:
		return nil, false, fmt.Errorf("%w: lead %s is %s", ErrNotApprovable, leadID, lead.Status)
	}

	if lead.QuotedPriceCents <= 0 {
		return nil, false, fmt.Errorf("lead %s has no agreed price to pay out", leadID)
	}

	payout := ComputeFor(lead, config.AppConfig.PlatformFeeRate, config.AppConfig.PayoutMaxAttempts)

	err = e.Repo.ApproveLeadAndCreate(ctx, payout)
	switch {
	case err == nil:
		e.enqueueTransfer(payout.ID)
		return payout, true, nil
	case errors.Is(err, payoutRepo.ErrDuplicatePayout), errors.Is(err, payoutRepo.ErrStatusConflict):
		// Lost a race with a concurrent approval; surface its result.
		existing, getErr := e.Repo.GetByLeadID(leadID)
		if getErr != nil || existing == nil {
			return nil, false, fmt.Errorf("%w: lead %s", ErrNotApprovable, leadID)
		}
		return existing, false, nil
	default:
		return nil, false, fmt.Errorf("approval transaction failed for lead %s: %w", leadID, err)
	}
}

// enqueueTransfer pushes the settlement task. Failures only log: stranded
// pending payouts are requeued by the sweep.
func (e *DefaultEngine) enqueueTransfer(payoutID string) {
	task, opts, err := tasks.NewTransferTask(payoutID, config.AppConfig.PayoutMaxAttempts)
	if err == nil {
		_, err = e.AsynqClient.Enqueue(task, opts...)
	}
	if err != nil {
		utils.GetLogger().Error("Failed to enqueue payout transfer",
			zap.Error(err), zap.String("payoutId", payoutID))
	}
}

// Transfer executes one settlement attempt. Claiming the payout increments
// its attempt counter atomically; the Stripe idempotency key (the payout ID)
// makes re-issuing the transfer after a crash or redelivery safe.
func (e *DefaultEngine) Transfer(ctx context.Context, payoutID string) error {
	payout, err := e.Repo.GetByID(payoutID)
	if err != nil {
		utils.GetLogger().Warn("Transfer task references unknown payout",
			zap.String("payoutId", payoutID), zap.Error(err))
		return nil
	}

	attempts := payout.Attempts
	switch payout.Status {
	case models.PayoutStatusCompleted:
		return nil
	case models.PayoutStatusProcessing:
		// A previous attempt claimed the payout and died between transfer
		// and completion. Re-issue under the same idempotency key.
	case models.PayoutStatusPending, models.PayoutStatusFailed:
		if payout.Status == models.PayoutStatusFailed && payout.Attempts >= payout.MaxAttempts {
			// Terminal; only a manual re-drive may revive it.
			return nil
		}
		if err := e.Repo.MarkProcessing(payoutID); err != nil {
			if errors.Is(err, payoutRepo.ErrStatusConflict) {
				return nil
			}
			return fmt.Errorf("failed to claim payout %s: %w", payoutID, err)
		}
		attempts = payout.Attempts + 1
	default:
		return nil
	}

	provider, err := e.ProviderRepo.GetByID(payout.ProviderID)
	if err != nil {
		return e.failAttempt(ctx, payout, attempts, fmt.Errorf("provider lookup failed: %w", err))
	}
	account := provider.PaymentDetails.StripeAccountID
	if account == "" {
		return e.failAttempt(ctx, payout, attempts, fmt.Errorf("provider %s has no payout account", provider.ID))
	}

	transferID, err := e.Processor.TransferToProvider(ctx, payment.TransferRequest{
		IdempotencyKey:  payout.ID,
		AmountCents:     payout.ProviderCents,
		Currency:        payout.Currency,
		DestinationAcct: account,
		LeadID:          payout.LeadID,
	})
	if err != nil {
		return e.failAttempt(ctx, payout, attempts, err)
	}

	if err := e.Repo.CompleteAndCloseLead(ctx, payoutID, transferID); err != nil {
		if errors.Is(err, payoutRepo.ErrStatusConflict) {
			// Another worker completed it concurrently.
			return nil
		}
		// The money moved; keep the task alive so completion converges.
		utils.GetLogger().Error("Transfer succeeded but completion failed",
			zap.String("payoutId", payoutID), zap.String("transferId", transferID), zap.Error(err))
		return fmt.Errorf("failed to finalize payout %s: %w", payoutID, err)
	}

	e.notifyProvider(ctx, provider, models.NotifyPayoutSent,
		"Payout on the way",
		fmt.Sprintf("Your payout of %s %.2f has been sent.", payout.Currency, float64(payout.ProviderCents)/100),
		map[string]string{"payoutId": payout.ID, "leadId": payout.LeadID})
	return nil
}

// failAttempt records a rejected transfer and decides between backoff retry
// and terminal failure.
func (e *DefaultEngine) failAttempt(ctx context.Context, payout *models.PayoutRecord, attempts int, cause error) error {
	if err := e.Repo.MarkFailed(payout.ID, cause.Error()); err != nil {
		utils.GetLogger().Error("Failed to record payout failure",
			zap.String("payoutId", payout.ID), zap.Error(err))
	}

	if attempts >= payout.MaxAttempts {
		utils.GetLogger().Error("Payout failed permanently",
			zap.String("payoutId", payout.ID), zap.Int("attempts", attempts), zap.Error(cause))
		if provider, err := e.ProviderRepo.GetByID(payout.ProviderID); err == nil {
			e.notifyProvider(ctx, provider, models.NotifyPayoutFailed,
				"Payout needs attention",
				"We could not transfer your payout. Our team has been notified; please verify your payout account details.",
				map[string]string{"payoutId": payout.ID, "leadId": payout.LeadID})
		}
		return fmt.Errorf("payout %s exhausted attempts: %v: %w", payout.ID, cause, asynq.SkipRetry)
	}
	return fmt.Errorf("payout %s transfer failed: %w", payout.ID, cause)
}

// RetryFailed resets a terminally failed payout and requeues its transfer.
func (e *DefaultEngine) RetryFailed(ctx context.Context, payoutID string) (*models.PayoutRecord, error) {
	if err := e.Repo.ResetForRetry(payoutID); err != nil {
		if errors.Is(err, payoutRepo.ErrStatusConflict) {
			return nil, ErrNotRetryable
		}
		return nil, fmt.Errorf("failed to reset payout %s: %w", payoutID, err)
	}
	e.enqueueTransfer(payoutID)
	return e.Repo.GetByID(payoutID)
}

// RedriveStuck requeues transfers for payouts stranded mid flight: pending
// records whose task got lost and processing records whose worker died.
// Returns how many were requeued.
func (e *DefaultEngine) RedriveStuck(ctx context.Context, olderThan time.Duration, limit int64) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	stuck, err := e.Repo.ListStuckProcessing(cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list stuck payouts: %w", err)
	}

	pending, err := e.Repo.ListByStatus(models.PayoutStatusPending, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending payouts: %w", err)
	}
	for _, p := range pending {
		if p.UpdatedAt.Before(cutoff) {
			stuck = append(stuck, p)
		}
	}

	for _, p := range stuck {
		e.enqueueTransfer(p.ID)
	}
	return len(stuck), nil
}

func (e *DefaultEngine) GetByID(id string) (*models.PayoutRecord, error) {
	return e.Repo.GetByID(id)
}

func (e *DefaultEngine) GetByLead(leadID string) (*models.PayoutRecord, error) {
	return e.Repo.GetByLeadID(leadID)
}

func (e *DefaultEngine) ListByStatus(status string, limit int64) ([]models.PayoutRecord, error) {
	return e.Repo.ListByStatus(status, limit)
}

func (e *DefaultEngine) notifyProvider(ctx context.Context, provider *models.Provider, notifType, title, body string, data map[string]string) {
	if e.Notifier == nil {
		return
	}
	recipient := models.Recipient{
		Kind:     models.RecipientProvider,
		ID:       provider.ID,
		Email:    provider.Profile.Email,
		FCMToken: provider.FCMToken,
	}
	if _, err := e.Notifier.Dispatch(ctx, recipient, notifType, title, body, data); err != nil {
		utils.GetLogger().Error("Failed to dispatch payout notification",
			zap.Error(err), zap.String("type", notifType), zap.String("providerId", provider.ID))
	}
}
