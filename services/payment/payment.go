package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/transfer"
	"go.uber.org/zap"
)

// --- Interfaces ---

// PaymentProcessor wraps the Stripe calls the lead lifecycle needs. Calls are
// issued outside database transactions; idempotency keys make retries safe.
type PaymentProcessor interface {
	CaptureIntent(ctx context.Context, paymentIntentRef string) error
	TransferToProvider(ctx context.Context, req TransferRequest) (string, error)
}

// TransferRequest describes a payout transfer to a provider's connected account.
type TransferRequest struct {
	IdempotencyKey  string // payout ID, so a retried transfer can never double-pay
	AmountCents     int64
	Currency        string
	DestinationAcct string // provider's Stripe connected account ID
	LeadID          string
}

// --- StripeProcessor Implementation ---

// StripeProcessor is the production implementation. stripe.Key is set once at
// startup from configuration.
type StripeProcessor struct {
	logger *zap.Logger
}

func NewStripeProcessor(logger *zap.Logger) *StripeProcessor {
	return &StripeProcessor{logger: logger}
}

// CaptureIntent captures a previously authorized payment intent. Stripe treats
// capturing an already-captured intent as an error, which callers tolerate on
// their retry paths.
func (p *StripeProcessor) CaptureIntent(ctx context.Context, paymentIntentRef string) error {
	if paymentIntentRef == "" {
		return fmt.Errorf("payment capture requires a payment intent reference")
	}

	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx

	pi, err := paymentintent.Capture(paymentIntentRef, params)
	if err != nil {
		return fmt.Errorf("failed to capture payment intent %s: %w", paymentIntentRef, err)
	}

	p.logger.Info("Captured payment intent",
		zap.String("paymentIntent", pi.ID),
		zap.Int64("amountCents", pi.Amount),
	)
	return nil
}

// TransferToProvider moves the provider's share of an approved job to their
// connected account and returns the Stripe transfer ID.
func (p *StripeProcessor) TransferToProvider(ctx context.Context, req TransferRequest) (string, error) {
	if req.DestinationAcct == "" {
		return "", fmt.Errorf("transfer requires a destination account")
	}
	if req.AmountCents <= 0 {
		return "", fmt.Errorf("invalid transfer amount %d", req.AmountCents)
	}

	params := &stripe.TransferParams{
		Amount:      stripe.Int64(req.AmountCents),
		Currency:    stripe.String(req.Currency),
		Destination: stripe.String(req.DestinationAcct),
	}
	params.Context = ctx
	if req.LeadID != "" {
		params.TransferGroup = stripe.String("lead_" + req.LeadID)
	}
	params.SetIdempotencyKey(req.IdempotencyKey)

	tr, err := transfer.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create transfer to %s: %w", req.DestinationAcct, err)
	}

	p.logger.Info("Created payout transfer",
		zap.String("transfer", tr.ID),
		zap.String("destination", req.DestinationAcct),
		zap.Int64("amountCents", req.AmountCents),
	)
	return tr.ID, nil
}
