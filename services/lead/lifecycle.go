package lead

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fixify/config"
	leadRepo "fixify/database/repository/lead"
	requestRepo "fixify/database/repository/request"
	"fixify/models"
	"fixify/services/payout"
	"fixify/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// View marks a notified lead as seen. Every other state returns the lead
// unchanged: viewing is a read, repeating it must never error or regress.
func (s *DefaultLeadService) View(ctx context.Context, leadID, providerID string) (*models.Lead, error) {
	lead, err := s.getOwnedLead(leadID, providerID)
	if err != nil {
		return nil, err
	}
	if lead.Status != models.LeadStatusNotified {
		return lead, nil
	}

	now := time.Now()
	err = s.Repo.UpdateStatus(leadID, []string{models.LeadStatusNotified}, models.LeadStatusViewed, bson.M{"viewedAt": now})
	if err != nil && !errors.Is(err, leadRepo.ErrStatusConflict) {
		return nil, fmt.Errorf("failed to mark lead %s viewed: %w", leadID, err)
	}
	return s.GetLead(leadID)
}

// Accept locks in the agreed price and, with exclusivity on, wins the
// request: sibling leads are withdrawn and late acceptances report
// ErrRequestTaken. The lead fee capture runs after the transaction commits;
// a failed capture never undoes an acceptance.
func (s *DefaultLeadService) Accept(ctx context.Context, leadID, providerID string, quotedPriceCents int64, paymentIntentRef string) (*models.Lead, error) {
	if quotedPriceCents <= 0 {
		return nil, fmt.Errorf("%w: an agreed price is required to accept", ErrInvalidTransition)
	}
	lead, err := s.getOwnedLead(leadID, providerID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(lead.Status, models.LeadStatusAccepted) {
		return nil, fmt.Errorf("%w: lead %s is %s, it must be viewed before accepting",
			ErrInvalidTransition, leadID, lead.Status)
	}

	params := leadRepo.AcceptParams{
		LeadID:           leadID,
		QuotedPriceCents: quotedPriceCents,
		PaymentIntentRef: paymentIntentRef,
		Exclusive:        config.AppConfig.ExclusiveAcceptance,
	}
	siblings, err := s.Repo.AcceptExclusively(ctx, lead.ServiceRequestID, params)
	switch {
	case errors.Is(err, leadRepo.ErrRequestTaken):
		return nil, fmt.Errorf("%w: request %s", ErrRequestTaken, lead.ServiceRequestID)
	case errors.Is(err, leadRepo.ErrStatusConflict):
		return nil, fmt.Errorf("%w: lead %s changed state during acceptance", ErrInvalidTransition, leadID)
	case err != nil:
		return nil, fmt.Errorf("acceptance failed for lead %s: %w", leadID, err)
	}

	accepted, err := s.GetLead(leadID)
	if err != nil {
		return nil, err
	}

	if paymentIntentRef != "" && s.Processor != nil {
		if capErr := s.Processor.CaptureIntent(ctx, paymentIntentRef); capErr != nil {
			// The lead is already accepted; reconciliation picks this up.
			utils.GetLogger().Error("Lead fee capture failed",
				zap.Error(capErr), zap.String("leadId", leadID), zap.String("paymentIntent", paymentIntentRef))
		}
	}

	if req, reqErr := s.GetRequest(lead.ServiceRequestID); reqErr == nil {
		providerName := "A provider"
		if p, pErr := s.ProviderRepo.GetByID(providerID); pErr == nil && p.Profile.Name != "" {
			providerName = p.Profile.Name
		}
		s.dispatch(ctx, customerRecipient(req), models.NotifyLeadAccepted,
			"A provider accepted your request",
			fmt.Sprintf("%s accepted your %s request and will be in touch.", providerName, req.Category),
			map[string]string{"requestId": req.ID, "leadId": leadID, "providerId": providerID})
	}

	for i := range siblings {
		sib := siblings[i]
		if sib.Status == models.LeadStatusCreated {
			// That provider never heard about the lead.
			continue
		}
		s.notifyProviderByID(ctx, sib.ProviderID, models.NotifyLeadCancelled,
			"Lead no longer available",
			"Another provider accepted this job. The lead has been withdrawn.",
			map[string]string{"leadId": sib.ID, "requestId": sib.ServiceRequestID})
	}

	return accepted, nil
}

// Decline turns the lead down. Once no live lead remains, the request parks
// unassigned and the customer is told.
func (s *DefaultLeadService) Decline(ctx context.Context, leadID, providerID, reason string) (*models.Lead, error) {
	lead, err := s.getOwnedLead(leadID, providerID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(lead.Status, models.LeadStatusDeclined) {
		return nil, fmt.Errorf("%w: lead %s is %s, it must be viewed before declining",
			ErrInvalidTransition, leadID, lead.Status)
	}

	now := time.Now()
	set := bson.M{"respondedAt": now}
	if reason != "" {
		set["declineReason"] = reason
	}
	err = s.Repo.UpdateStatus(leadID, []string{models.LeadStatusViewed}, models.LeadStatusDeclined, set)
	if errors.Is(err, leadRepo.ErrStatusConflict) {
		return nil, fmt.Errorf("%w: lead %s changed state during decline", ErrInvalidTransition, leadID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decline lead %s: %w", leadID, err)
	}

	declined, err := s.GetLead(leadID)
	if err != nil {
		return nil, err
	}

	if req, reqErr := s.GetRequest(lead.ServiceRequestID); reqErr == nil {
		s.dispatch(ctx, customerRecipient(req), models.NotifyLeadDeclined,
			"A provider passed on your request",
			fmt.Sprintf("One of the matched providers passed on your %s request.", req.Category),
			map[string]string{"requestId": req.ID, "leadId": leadID})
		s.checkAllDeclined(ctx, req)
	}

	return declined, nil
}

// checkAllDeclined parks a matched request once every lead is terminal.
func (s *DefaultLeadService) checkAllDeclined(ctx context.Context, req *models.ServiceRequest) {
	if req.Status != models.RequestStatusMatched {
		return
	}
	leads, err := s.Repo.ListByRequest(req.ID)
	if err != nil {
		utils.GetLogger().Error("Failed to list leads after decline",
			zap.Error(err), zap.String("requestId", req.ID))
		return
	}
	for _, l := range leads {
		if !IsTerminal(l.Status) {
			return
		}
	}
	s.parkUnassigned(ctx, req)
}

// Start moves an accepted lead to in_progress.
func (s *DefaultLeadService) Start(ctx context.Context, leadID, providerID string) (*models.Lead, error) {
	lead, err := s.getOwnedLead(leadID, providerID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(lead.Status, models.LeadStatusInProgress) {
		return nil, fmt.Errorf("%w: lead %s is %s, only accepted leads can start",
			ErrInvalidTransition, leadID, lead.Status)
	}

	now := time.Now()
	err = s.Repo.UpdateStatus(leadID, []string{models.LeadStatusAccepted}, models.LeadStatusInProgress, bson.M{"startedAt": now})
	if errors.Is(err, leadRepo.ErrStatusConflict) {
		return nil, fmt.Errorf("%w: lead %s changed state", ErrInvalidTransition, leadID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to start lead %s: %w", leadID, err)
	}

	started, err := s.GetLead(leadID)
	if err != nil {
		return nil, err
	}
	if req, reqErr := s.GetRequest(lead.ServiceRequestID); reqErr == nil {
		s.dispatch(ctx, customerRecipient(req), models.NotifyWorkInProgress,
			"Work has started",
			fmt.Sprintf("Your provider has started the %s job.", req.Category),
			map[string]string{"requestId": req.ID, "leadId": leadID})
	}
	return started, nil
}

// Complete marks the work done from the provider's side. The customer now
// has to approve it to release the payout.
func (s *DefaultLeadService) Complete(ctx context.Context, leadID, providerID string) (*models.Lead, error) {
	lead, err := s.getOwnedLead(leadID, providerID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(lead.Status, models.LeadStatusCompleted) {
		return nil, fmt.Errorf("%w: lead %s is %s, only in-progress leads can complete",
			ErrInvalidTransition, leadID, lead.Status)
	}

	now := time.Now()
	err = s.Repo.UpdateStatus(leadID, []string{models.LeadStatusInProgress}, models.LeadStatusCompleted, bson.M{"completedAt": now})
	if errors.Is(err, leadRepo.ErrStatusConflict) {
		return nil, fmt.Errorf("%w: lead %s changed state", ErrInvalidTransition, leadID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to complete lead %s: %w", leadID, err)
	}

	completed, err := s.GetLead(leadID)
	if err != nil {
		return nil, err
	}
	if req, reqErr := s.GetRequest(lead.ServiceRequestID); reqErr == nil {
		s.dispatch(ctx, customerRecipient(req), models.NotifyWorkCompleted,
			"Work completed, please review",
			"Your provider marked the job complete. Approve it to release their payout.",
			map[string]string{"requestId": req.ID, "leadId": leadID})
	}
	return completed, nil
}

// Approve confirms the completed work and triggers the payout. Repeating an
// approval returns the payout already on file.
func (s *DefaultLeadService) Approve(ctx context.Context, leadID string) (*models.PayoutRecord, error) {
	rec, created, err := s.Payouts.ApproveLead(ctx, leadID)
	if err != nil {
		switch {
		case errors.Is(err, payout.ErrNotApprovable):
			return nil, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, fmt.Errorf("%w: %s", ErrLeadNotFound, leadID)
		}
		return nil, err
	}

	if created {
		s.notifyProviderByID(ctx, rec.ProviderID, models.NotifyWorkApproved,
			"Work approved",
			fmt.Sprintf("The customer approved the job. Your payout of %s %.2f is on its way.",
				rec.Currency, float64(rec.ProviderCents)/100),
			map[string]string{"leadId": leadID, "payoutId": rec.ID})
	}
	return rec, nil
}

// Cancel withdraws a single lead. Cancelling the winning lead releases the
// request back to unassigned; a payout already created keeps going.
func (s *DefaultLeadService) Cancel(ctx context.Context, leadID string) (*models.Lead, error) {
	lead, err := s.GetLead(leadID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(lead.Status, models.LeadStatusCancelled) {
		return nil, fmt.Errorf("%w: lead %s is already %s", ErrInvalidTransition, leadID, lead.Status)
	}

	from := []string{
		models.LeadStatusCreated,
		models.LeadStatusNotified,
		models.LeadStatusViewed,
		models.LeadStatusAccepted,
		models.LeadStatusInProgress,
		models.LeadStatusCompleted,
		models.LeadStatusApproved,
	}
	now := time.Now()
	if err := s.Repo.UpdateStatus(leadID, from, models.LeadStatusCancelled, bson.M{"cancelledAt": now}); err != nil {
		if errors.Is(err, leadRepo.ErrStatusConflict) {
			return nil, fmt.Errorf("%w: lead %s changed state during cancellation", ErrInvalidTransition, leadID)
		}
		return nil, fmt.Errorf("failed to cancel lead %s: %w", leadID, err)
	}

	switch lead.Status {
	case models.LeadStatusAccepted, models.LeadStatusInProgress, models.LeadStatusCompleted, models.LeadStatusApproved:
		// The winner is gone; release the request for redistribution.
		err := s.RequestRepo.UpdateStatus(lead.ServiceRequestID,
			[]string{models.RequestStatusAssigned}, models.RequestStatusUnassigned)
		if err != nil && !errors.Is(err, requestRepo.ErrStatusConflict) {
			utils.GetLogger().Error("Failed to release request after lead cancellation",
				zap.Error(err), zap.String("requestId", lead.ServiceRequestID))
		}
	}

	if lead.Status != models.LeadStatusCreated {
		s.notifyProviderByID(ctx, lead.ProviderID, models.NotifyLeadCancelled,
			"Lead cancelled",
			"The lead has been cancelled. No further action is needed.",
			map[string]string{"leadId": leadID, "requestId": lead.ServiceRequestID})
	}

	return s.GetLead(leadID)
}

// CancelRequest cancels the request and every live lead under it in one
// transaction, then notifies the providers that had been offered one.
func (s *DefaultLeadService) CancelRequest(ctx context.Context, requestID string) ([]models.Lead, error) {
	if _, err := s.GetRequest(requestID); err != nil {
		return nil, err
	}

	cancelled, err := s.Repo.CancelRequestCascade(ctx, requestID)
	if err != nil {
		if errors.Is(err, leadRepo.ErrStatusConflict) {
			return nil, fmt.Errorf("%w: request %s can no longer be cancelled", ErrInvalidTransition, requestID)
		}
		return nil, fmt.Errorf("failed to cancel request %s: %w", requestID, err)
	}

	for i := range cancelled {
		l := cancelled[i]
		if l.Status == models.LeadStatusCreated {
			continue
		}
		s.notifyProviderByID(ctx, l.ProviderID, models.NotifyLeadCancelled,
			"Job cancelled",
			fmt.Sprintf("The customer cancelled the %s request. No further action is needed.", l.Category),
			map[string]string{"leadId": l.ID, "requestId": requestID})
	}
	return cancelled, nil
}
