package lead

import (
	"context"
	"errors"
	"testing"

	"fixify/models"
	"fixify/services/payout"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestViewMarksNotifiedLead(t *testing.T) {
	env := newTestEnv(testProvider("p-1", "One"))
	env.store.putRequest(testRequest("req-1", models.RequestStatusMatched))
	env.store.putLead(testLead("lead-1", "req-1", "p-1", models.LeadStatusNotified, 1))

	lead, err := env.svc.View(context.Background(), "lead-1", "p-1")
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusViewed, lead.Status)
	assert.NotNil(t, lead.ViewedAt)
}

func TestViewIsIdempotent(t *testing.T) {
	env := newTestEnv(testProvider("p-1", "One"))
	env.store.putLead(testLead("lead-1", "req-1", "p-1", models.LeadStatusViewed, 1))

	lead, err := env.svc.View(context.Background(), "lead-1", "p-1")
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusViewed, lead.Status)

	// Viewing never regresses later states either.
	env.store.putLead(testLead("lead-2", "req-1", "p-1", models.LeadStatusAccepted, 2))
	lead, err = env.svc.View(context.Background(), "lead-2", "p-1")
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusAccepted, lead.Status)
}

func TestViewChecksOwnership(t *testing.T) {
	env := newTestEnv(testProvider("p-1", "One"))
	env.store.putLead(testLead("lead-1", "req-1", "p-1", models.LeadStatusNotified, 1))

	_, err := env.svc.View(context.Background(), "lead-1", "p-other")
	assert.ErrorIs(t, err, ErrWrongProvider)

	_, err = env.svc.View(context.Background(), "no-such-lead", "p-1")
	assert.ErrorIs(t, err, ErrLeadNotFound)
}

func TestAcceptWinsRequestAndCancelsSiblings(t *testing.T) {
	env := newTestEnv(testProvider("p-1", "Winner"), testProvider("p-2", "Second"), testProvider("p-3", "Third"))
	env.store.putRequest(testRequest("req-1", models.RequestStatusMatched))
	env.store.putLead(testLead("lead-1", "req-1", "p-1", models.LeadStatusViewed, 1))
	env.store.putLead(testLead("lead-2", "req-1", "p-2", models.LeadStatusNotified, 2))
	env.store.putLead(testLead("lead-3", "req-1", "p-3", models.LeadStatusCreated, 3))

	accepted, err := env.svc.Accept(context.Background(), "lead-1", "p-1", 25000, "pi_123")
	require.NoError(t, err)

	assert.Equal(t, models.LeadStatusAccepted, accepted.Status)
	assert.Equal(t, int64(25000), accepted.QuotedPriceCents)
	assert.Equal(t, "pi_123", accepted.PaymentIntentRef)
	assert.NotNil(t, accepted.RespondedAt)

	req, err := env.svc.GetRequest("req-1")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusAssigned, req.Status)
	assert.Equal(t, "p-1", req.AssignedProviderID)
	assert.Equal(t, "lead-1", req.AssignedLeadID)

	assert.Equal(t, models.LeadStatusCancelled, env.store.leadStatus("lead-2"))
	assert.Equal(t, models.LeadStatusCancelled, env.store.leadStatus("lead-3"))

	// The lead fee was captured after the acceptance committed.
	assert.Equal(t, []string{"pi_123"}, env.processor.captured)

	acceptedMsgs := env.notifier.byType(models.NotifyLeadAccepted)
	require.Len(t, acceptedMsgs, 1)
	assert.Equal(t, models.RecipientCustomer, acceptedMsgs[0].Recipient.Kind)
	assert.Equal(t, "cust-1", acceptedMsgs[0].Recipient.ID)

	// Only the sibling that actually heard about the lead gets the
	// withdrawal notice; lead-3 was never offered.
	cancelledMsgs := env.notifier.byType(models.NotifyLeadCancelled)
	require.Len(t, cancelledMsgs, 1)
	assert.Equal(t, "p-2", cancelledMsgs[0].Recipient.ID)
}

func TestAcceptLosesRaceForAssignedRequest(t *testing.T) {
	env := newTestEnv(testProvider("p-2", "Second"))
	req := testRequest("req-1", models.RequestStatusAssigned)
	req.AssignedProviderID = "p-1"
	env.store.putRequest(req)
	env.store.putLead(testLead("lead-2", "req-1", "p-2", models.LeadStatusViewed, 2))

	_, err := env.svc.Accept(context.Background(), "lead-2", "p-2", 20000, "")
	assert.ErrorIs(t, err, ErrRequestTaken)

	// The losing lead was not touched.
	assert.Equal(t, models.LeadStatusViewed, env.store.leadStatus("lead-2"))
	assert.Equal(t, models.RequestStatusAssigned, env.store.requestStatus("req-1"))
}

func TestAcceptRequiresViewedLead(t *testing.T) {
	env := newTestEnv(testProvider("p-1", "One"))
	env.store.putRequest(testRequest("req-1", models.RequestStatusMatched))
	env.store.putLead(testLead("lead-1", "req-1", "p-1", models.LeadStatusNotified, 1))

	_, err := env.svc.Accept(context.Background(), "lead-1", "p-1", 20000, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, models.LeadStatusNotified, env.store.leadStatus("lead-1"))
}

func TestAcceptRequiresPositivePrice(t *testing.T) {
	env := newTestEnv(testProvider("p-1", "One"))
	env.store.putLead(testLead("lead-1", "req-1", "p-1", models.LeadStatusViewed, 1))

	_, err := env.svc.Accept(context.Background(), "lead-1", "p-1", 0, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAcceptSurvivesCaptureFailure(t *testing.T) {
	env := newTestEnv(testProvider("p-1", "One"))
	env.processor.captureErr = errors.New("stripe is down")
	env.store.putRequest(testRequest("req-1", models.RequestStatusMatched))
	env.store.putLead(testLead("lead-1", "req-1", "p-1", models.LeadStatusViewed, 1))

	accepted, err := env.svc.Accept(context.Background(), "lead-1", "p-1", 25000, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusAccepted, accepted.Status)
}

func TestDeclineRecordsReason(t *testing.T) {
	env := newTestEnv(testProvider("p-1", "One"), testProvider("p-2", "Two"))
	env.store.putRequest(testRequest("req-1", models.RequestStatusMatched))
	env.store.putLead(testLead("lead-1", "req-1", "p-1", models.LeadStatusViewed, 1))
	env.store.putLead(testLead("lead-2", "req-1", "p-2", models.LeadStatusNotified, 2))

	declined, err := env.svc.Decline(context.Background(), "lead-1", "p-1", "fully booked")
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusDeclined, declined.Status)
	assert.Equal(t, "fully booked", declined.DeclineReason)
	assert.NotNil(t, declined.RespondedAt)

	// Another lead is still live, so the request stays matched.
	assert.Equal(t, models.RequestStatusMatched, env.store.requestStatus("req-1"))
	assert.Len(t, env.notifier.byType(models.NotifyLeadDeclined), 1)
	assert.Empty(t, env.notifier.byType(models.NotifyRequestUnassigned))
}

func TestDeclineLastLeadParksRequest(t *testing.T) {
	env := newTestEnv(testProvider("p-1", "One"))
	env.store.putRequest(testRequest("req-1", models.RequestStatusMatched))
	env.store.putLead(testLead("lead-1", "req-1", "p-1", models.LeadStatusViewed, 1))
	env.store.putLead(testLead("lead-2", "req-1", "p-2", models.LeadStatusDeclined, 2))

	_, err := env.svc.Decline(context.Background(), "lead-1", "p-1", "")
	require.NoError(t, err)

	assert.Equal(t, models.RequestStatusUnassigned, env.store.requestStatus("req-1"))
	unassignedMsgs := env.notifier.byType(models.NotifyRequestUnassigned)
	require.Len(t, unassignedMsgs, 1)
	assert.Equal(t, models.RecipientCustomer, unassignedMsgs[0].Recipient.Kind)
}

func TestDeclineRequiresViewedLead(t *testing.T) {
	env := newTestEnv(testProvider("p-1", "One"))
	env.store.putLead(testLead("lead-1", "req-1", "p-1", models.LeadStatusNotified, 1))

	_, err := env.svc.Decline(context.Background(), "lead-1", "p-1", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStartAndComplete(t *testing.T) {
	env := newTestEnv(testProvider("p-1", "One"))
	env.store.putRequest(testRequest("req-1", models.RequestStatusAssigned))
	env.store.putLead(testLead("lead-1", "req-1", "p-1", models.LeadStatusAccepted, 1))

	started, err := env.svc.Start(context.Background(), "lead-1", "p-1")
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusInProgress, started.Status)
	assert.NotNil(t, started.StartedAt)
	assert.Len(t, env.notifier.byType(models.NotifyWorkInProgress), 1)

	completed, err := env.svc.Complete(context.Background(), "lead-1", "p-1")
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)
	assert.Len(t, env.notifier.byType(models.NotifyWorkCompleted), 1)
}

func TestStartRequiresAcceptedLead(t *testing.T) {
	env := newTestEnv(testProvider("p-1", "One"))
	env.store.putLead(testLead("lead-1", "req-1", "p-1", models.LeadStatusViewed, 1))

	_, err := env.svc.Start(context.Background(), "lead-1", "p-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCompleteRequiresInProgressLead(t *testing.T) {
	env := newTestEnv(testProvider("p-1", "One"))
	env.store.putLead(testLead("lead-1", "req-1", "p-1", models.LeadStatusAccepted, 1))

	_, err := env.svc.Complete(context.Background(), "lead-1", "p-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApproveNotifiesOnFirstPayout(t *testing.T) {
	env := newTestEnv(testProvider("p-1", "One"))
	env.payouts.record = &models.PayoutRecord{
		ID:            "po-1",
		LeadID:        "lead-1",
		ProviderID:    "p-1",
		Currency:      "USD",
		ProviderCents: 22500,
	}
	env.payouts.created = true

	rec, err := env.svc.Approve(context.Background(), "lead-1")
	require.NoError(t, err)
	assert.Equal(t, "po-1", rec.ID)

	msgs := env.notifier.byType(models.NotifyWorkApproved)
	require.Len(t, msgs, 1)
	assert.Equal(t, "p-1", msgs[0].Recipient.ID)
}

func TestApproveRepeatReturnsExistingPayout(t *testing.T) {
	env := newTestEnv(testProvider("p-1", "One"))
	env.payouts.record = &models.PayoutRecord{ID: "po-1", LeadID: "lead-1", ProviderID: "p-1"}
	env.payouts.created = false

	rec, err := env.svc.Approve(context.Background(), "lead-1")
	require.NoError(t, err)
	assert.Equal(t, "po-1", rec.ID)
	assert.Empty(t, env.notifier.byType(models.NotifyWorkApproved))
}

func TestApproveErrorMapping(t *testing.T) {
	env := newTestEnv()
	env.payouts.err = payout.ErrNotApprovable
	_, err := env.svc.Approve(context.Background(), "lead-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	env.payouts.err = mongo.ErrNoDocuments
	_, err = env.svc.Approve(context.Background(), "lead-1")
	assert.ErrorIs(t, err, ErrLeadNotFound)
}

func TestCancelWinnerReleasesRequest(t *testing.T) {
	env := newTestEnv(testProvider("p-1", "One"))
	req := testRequest("req-1", models.RequestStatusAssigned)
	req.AssignedProviderID = "p-1"
	req.AssignedLeadID = "lead-1"
	env.store.putRequest(req)
	env.store.putLead(testLead("lead-1", "req-1", "p-1", models.LeadStatusInProgress, 1))

	cancelled, err := env.svc.Cancel(context.Background(), "lead-1")
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)

	assert.Equal(t, models.RequestStatusUnassigned, env.store.requestStatus("req-1"))
	msgs := env.notifier.byType(models.NotifyLeadCancelled)
	require.Len(t, msgs, 1)
	assert.Equal(t, "p-1", msgs[0].Recipient.ID)
}

func TestCancelUnofferedLeadStaysQuiet(t *testing.T) {
	env := newTestEnv(testProvider("p-1", "One"))
	env.store.putRequest(testRequest("req-1", models.RequestStatusMatched))
	env.store.putLead(testLead("lead-1", "req-1", "p-1", models.LeadStatusCreated, 1))

	cancelled, err := env.svc.Cancel(context.Background(), "lead-1")
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusCancelled, cancelled.Status)

	// No provider ever saw the lead, so nobody is notified and the
	// request keeps its state.
	assert.Empty(t, env.notifier.byType(models.NotifyLeadCancelled))
	assert.Equal(t, models.RequestStatusMatched, env.store.requestStatus("req-1"))
}

func TestCancelTerminalLeadFails(t *testing.T) {
	env := newTestEnv(testProvider("p-1", "One"))
	env.store.putLead(testLead("lead-1", "req-1", "p-1", models.LeadStatusClosed, 1))

	_, err := env.svc.Cancel(context.Background(), "lead-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, models.LeadStatusClosed, env.store.leadStatus("lead-1"))
}

func TestCancelRequestCascades(t *testing.T) {
	env := newTestEnv(testProvider("p-1", "One"), testProvider("p-2", "Two"), testProvider("p-3", "Three"))
	env.store.putRequest(testRequest("req-1", models.RequestStatusMatched))
	env.store.putLead(testLead("lead-1", "req-1", "p-1", models.LeadStatusViewed, 1))
	env.store.putLead(testLead("lead-2", "req-1", "p-2", models.LeadStatusNotified, 2))
	env.store.putLead(testLead("lead-3", "req-1", "p-3", models.LeadStatusCreated, 3))
	env.store.putLead(testLead("lead-4", "req-1", "p-4", models.LeadStatusDeclined, 4))

	cancelled, err := env.svc.CancelRequest(context.Background(), "req-1")
	require.NoError(t, err)
	require.Len(t, cancelled, 3)

	assert.Equal(t, models.RequestStatusCancelled, env.store.requestStatus("req-1"))
	for _, id := range []string{"lead-1", "lead-2", "lead-3"} {
		assert.Equal(t, models.LeadStatusCancelled, env.store.leadStatus(id), id)
	}
	// The already-declined lead keeps its terminal state.
	assert.Equal(t, models.LeadStatusDeclined, env.store.leadStatus("lead-4"))

	// Only providers that had been offered the lead hear about it.
	msgs := env.notifier.byType(models.NotifyLeadCancelled)
	require.Len(t, msgs, 2)
	var notified []string
	for _, m := range msgs {
		notified = append(notified, m.Recipient.ID)
	}
	assert.ElementsMatch(t, []string{"p-1", "p-2"}, notified)
}

func TestCancelRequestRejectsTerminalStates(t *testing.T) {
	env := newTestEnv()
	env.store.putRequest(testRequest("req-1", models.RequestStatusClosed))

	_, err := env.svc.CancelRequest(context.Background(), "req-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = env.svc.CancelRequest(context.Background(), "no-such-request")
	assert.ErrorIs(t, err, ErrRequestNotFound)
}
