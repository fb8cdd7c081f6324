package lead

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fixify/database/repository"
	"fixify/models"
	"fixify/services/notification"
	"fixify/services/payment"
	"fixify/services/payout"
	"fixify/utils"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// LeadService owns the lead lifecycle: distribution to providers, the
// per-provider state machine, and the request-level bookkeeping around it.
type LeadService interface {
	// CreateRequest stores the request and distributes it to matching
	// providers. ErrNoEligibleProviders means the request was created but
	// parked unassigned.
	CreateRequest(ctx context.Context, input models.CreateRequestInput) (*models.ServiceRequest, []models.Lead, error)
	// Reassign re-runs matching for an unassigned request, skipping
	// providers that already hold one of its leads.
	Reassign(ctx context.Context, requestID string) ([]models.Lead, error)
	// CancelRequest cancels the request and all its live leads, returning
	// the leads that were withdrawn.
	CancelRequest(ctx context.Context, requestID string) ([]models.Lead, error)

	// Provider-side transitions. Each verifies lead ownership first.
	View(ctx context.Context, leadID, providerID string) (*models.Lead, error)
	Accept(ctx context.Context, leadID, providerID string, quotedPriceCents int64, paymentIntentRef string) (*models.Lead, error)
	Decline(ctx context.Context, leadID, providerID, reason string) (*models.Lead, error)
	Start(ctx context.Context, leadID, providerID string) (*models.Lead, error)
	Complete(ctx context.Context, leadID, providerID string) (*models.Lead, error)

	// Customer-side transitions.
	Approve(ctx context.Context, leadID string) (*models.PayoutRecord, error)
	Cancel(ctx context.Context, leadID string) (*models.Lead, error)

	// RedriveStale re-offers leads whose original dispatch never happened
	// (maintenance sweep).
	RedriveStale(ctx context.Context, olderThan time.Duration, limit int64) (int, error)

	GetLead(id string) (*models.Lead, error)
	GetRequest(id string) (*models.ServiceRequest, error)
	ListRequests(status string, limit int64) ([]models.ServiceRequest, error)
	ListForRequest(requestID string) ([]models.Lead, error)
	ListForProvider(providerID string, limit int64) ([]models.Lead, error)
}

// DefaultLeadService is the production implementation.
type DefaultLeadService struct {
	Repo         repository.LeadRepository
	RequestRepo  repository.ServiceRequestRepository
	ProviderRepo repository.ProviderRepository
	Matcher      MatchingService
	Payouts      payout.Engine
	Processor    payment.PaymentProcessor
	Notifier     notification.NotificationService
}

// NewLeadService wires the lead service and validates its dependencies.
func NewLeadService(
	repo repository.LeadRepository,
	requestRepo repository.ServiceRequestRepository,
	providerRepo repository.ProviderRepository,
	matcher MatchingService,
	payouts payout.Engine,
	processor payment.PaymentProcessor,
	notifier notification.NotificationService,
) (LeadService, error) {
	if repo == nil {
		return nil, errors.New("lead repository is required")
	}
	if requestRepo == nil {
		return nil, errors.New("service request repository is required")
	}
	if providerRepo == nil {
		return nil, errors.New("provider repository is required")
	}
	if matcher == nil {
		return nil, errors.New("matching service is required")
	}
	if payouts == nil {
		return nil, errors.New("payout engine is required")
	}
	return &DefaultLeadService{
		Repo:         repo,
		RequestRepo:  requestRepo,
		ProviderRepo: providerRepo,
		Matcher:      matcher,
		Payouts:      payouts,
		Processor:    processor,
		Notifier:     notifier,
	}, nil
}

func (s *DefaultLeadService) GetLead(id string) (*models.Lead, error) {
	lead, err := s.Repo.GetByID(id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrLeadNotFound, id)
		}
		return nil, err
	}
	return lead, nil
}

func (s *DefaultLeadService) GetRequest(id string) (*models.ServiceRequest, error) {
	req, err := s.RequestRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, id)
		}
		return nil, err
	}
	return req, nil
}

func (s *DefaultLeadService) ListRequests(status string, limit int64) ([]models.ServiceRequest, error) {
	return s.RequestRepo.ListByStatus(status, limit)
}

func (s *DefaultLeadService) ListForRequest(requestID string) ([]models.Lead, error) {
	return s.Repo.ListByRequest(requestID)
}

func (s *DefaultLeadService) ListForProvider(providerID string, limit int64) ([]models.Lead, error) {
	return s.Repo.ListByProvider(providerID, limit)
}

// getOwnedLead loads the lead and verifies it belongs to the acting provider.
func (s *DefaultLeadService) getOwnedLead(leadID, providerID string) (*models.Lead, error) {
	lead, err := s.GetLead(leadID)
	if err != nil {
		return nil, err
	}
	if lead.ProviderID != providerID {
		return nil, fmt.Errorf("%w: lead %s", ErrWrongProvider, leadID)
	}
	return lead, nil
}

// dispatch fires a notification without letting delivery trouble surface to
// the caller.
func (s *DefaultLeadService) dispatch(ctx context.Context, recipient models.Recipient, notifType, title, body string, data map[string]string) {
	if s.Notifier == nil {
		return
	}
	if _, err := s.Notifier.Dispatch(ctx, recipient, notifType, title, body, data); err != nil {
		utils.GetLogger().Error("Failed to dispatch lead notification",
			zap.Error(err), zap.String("type", notifType), zap.String("recipientId", recipient.ID))
	}
}

// notifyProviderByID resolves the provider before dispatching. Lookup
// failures only log; notifications never block lifecycle progress.
func (s *DefaultLeadService) notifyProviderByID(ctx context.Context, providerID, notifType, title, body string, data map[string]string) {
	p, err := s.ProviderRepo.GetByID(providerID)
	if err != nil {
		utils.GetLogger().Error("Failed to load provider for notification",
			zap.Error(err), zap.String("providerId", providerID))
		return
	}
	s.dispatch(ctx, providerRecipient(p), notifType, title, body, data)
}

func customerRecipient(req *models.ServiceRequest) models.Recipient {
	return models.Recipient{
		Kind:  models.RecipientCustomer,
		ID:    req.CustomerID,
		Email: req.ContactEmail,
	}
}

func providerRecipient(p *models.Provider) models.Recipient {
	return models.Recipient{
		Kind:     models.RecipientProvider,
		ID:       p.ID,
		Email:    p.Profile.Email,
		FCMToken: p.FCMToken,
	}
}
