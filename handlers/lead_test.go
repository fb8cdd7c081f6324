package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"fixify/models"
	"fixify/services/lead"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// stubLeadService lets each test plug in just the behavior it exercises;
// everything else answers with zero values.
type stubLeadService struct {
	createRequestFn func(ctx context.Context, input models.CreateRequestInput) (*models.ServiceRequest, []models.Lead, error)
	reassignFn      func(ctx context.Context, requestID string) ([]models.Lead, error)
	cancelRequestFn func(ctx context.Context, requestID string) ([]models.Lead, error)
	viewFn          func(ctx context.Context, leadID, providerID string) (*models.Lead, error)
	acceptFn        func(ctx context.Context, leadID, providerID string, quotedPriceCents int64, paymentIntentRef string) (*models.Lead, error)
	declineFn       func(ctx context.Context, leadID, providerID, reason string) (*models.Lead, error)
	startFn         func(ctx context.Context, leadID, providerID string) (*models.Lead, error)
	completeFn      func(ctx context.Context, leadID, providerID string) (*models.Lead, error)
	approveFn       func(ctx context.Context, leadID string) (*models.PayoutRecord, error)
	cancelFn        func(ctx context.Context, leadID string) (*models.Lead, error)
	getLeadFn       func(id string) (*models.Lead, error)
	getRequestFn    func(id string) (*models.ServiceRequest, error)
	listRequestsFn  func(status string, limit int64) ([]models.ServiceRequest, error)
	listForRequest  func(requestID string) ([]models.Lead, error)
	listForProvider func(providerID string, limit int64) ([]models.Lead, error)
}

func (s *stubLeadService) CreateRequest(ctx context.Context, input models.CreateRequestInput) (*models.ServiceRequest, []models.Lead, error) {
	if s.createRequestFn != nil {
		return s.createRequestFn(ctx, input)
	}
	return &models.ServiceRequest{}, nil, nil
}

func (s *stubLeadService) Reassign(ctx context.Context, requestID string) ([]models.Lead, error) {
	if s.reassignFn != nil {
		return s.reassignFn(ctx, requestID)
	}
	return nil, nil
}

func (s *stubLeadService) CancelRequest(ctx context.Context, requestID string) ([]models.Lead, error) {
	if s.cancelRequestFn != nil {
		return s.cancelRequestFn(ctx, requestID)
	}
	return nil, nil
}

func (s *stubLeadService) View(ctx context.Context, leadID, providerID string) (*models.Lead, error) {
	if s.viewFn != nil {
		return s.viewFn(ctx, leadID, providerID)
	}
	return &models.Lead{}, nil
}

func (s *stubLeadService) Accept(ctx context.Context, leadID, providerID string, quotedPriceCents int64, paymentIntentRef string) (*models.Lead, error) {
	if s.acceptFn != nil {
		return s.acceptFn(ctx, leadID, providerID, quotedPriceCents, paymentIntentRef)
	}
	return &models.Lead{}, nil
}

func (s *stubLeadService) Decline(ctx context.Context, leadID, providerID, reason string) (*models.Lead, error) {
	if s.declineFn != nil {
		return s.declineFn(ctx, leadID, providerID, reason)
	}
	return &models.Lead{}, nil
}

func (s *stubLeadService) Start(ctx context.Context, leadID, providerID string) (*models.Lead, error) {
	if s.startFn != nil {
		return s.startFn(ctx, leadID, providerID)
	}
	return &models.Lead{}, nil
}

func (s *stubLeadService) Complete(ctx context.Context, leadID, providerID string) (*models.Lead, error) {
	if s.completeFn != nil {
		return s.completeFn(ctx, leadID, providerID)
	}
	return &models.Lead{}, nil
}

func (s *stubLeadService) Approve(ctx context.Context, leadID string) (*models.PayoutRecord, error) {
	if s.approveFn != nil {
		return s.approveFn(ctx, leadID)
	}
	return &models.PayoutRecord{}, nil
}

func (s *stubLeadService) Cancel(ctx context.Context, leadID string) (*models.Lead, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, leadID)
	}
	return &models.Lead{}, nil
}

func (s *stubLeadService) RedriveStale(ctx context.Context, olderThan time.Duration, limit int64) (int, error) {
	return 0, nil
}

func (s *stubLeadService) GetLead(id string) (*models.Lead, error) {
	if s.getLeadFn != nil {
		return s.getLeadFn(id)
	}
	return &models.Lead{ID: id}, nil
}

func (s *stubLeadService) GetRequest(id string) (*models.ServiceRequest, error) {
	if s.getRequestFn != nil {
		return s.getRequestFn(id)
	}
	return &models.ServiceRequest{ID: id}, nil
}

func (s *stubLeadService) ListRequests(status string, limit int64) ([]models.ServiceRequest, error) {
	if s.listRequestsFn != nil {
		return s.listRequestsFn(status, limit)
	}
	return nil, nil
}

func (s *stubLeadService) ListForRequest(requestID string) ([]models.Lead, error) {
	if s.listForRequest != nil {
		return s.listForRequest(requestID)
	}
	return nil, nil
}

func (s *stubLeadService) ListForProvider(providerID string, limit int64) ([]models.Lead, error) {
	if s.listForProvider != nil {
		return s.listForProvider(providerID, limit)
	}
	return nil, nil
}

func leadRouter(svc lead.LeadService) *gin.Engine {
	h := NewLeadHandler(svc)
	r := gin.New()
	r.GET("/api/leads/:id", h.GetLeadHandler)
	r.POST("/api/leads/:id/view", h.ViewLeadHandler)
	r.POST("/api/leads/:id/accept", h.AcceptLeadHandler)
	r.POST("/api/leads/:id/decline", h.DeclineLeadHandler)
	r.POST("/api/leads/:id/approve", h.ApproveLeadHandler)
	r.GET("/api/providers/:id/leads", h.ListProviderLeadsHandler)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetLeadHandler(t *testing.T) {
	svc := &stubLeadService{
		getLeadFn: func(id string) (*models.Lead, error) {
			if id != "lead-1" {
				return nil, fmt.Errorf("%w: %s", lead.ErrLeadNotFound, id)
			}
			return &models.Lead{ID: id, Status: models.LeadStatusNotified}, nil
		},
	}
	r := leadRouter(svc)

	w := doJSON(t, r, http.MethodGet, "/api/leads/lead-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var got models.Lead
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "lead-1", got.ID)

	w = doJSON(t, r, http.MethodGet, "/api/leads/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestViewLeadHandlerValidatesInput(t *testing.T) {
	r := leadRouter(&stubLeadService{})

	w := doJSON(t, r, http.MethodPost, "/api/leads/lead-1/view", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestViewLeadHandlerMapsOwnership(t *testing.T) {
	svc := &stubLeadService{
		viewFn: func(ctx context.Context, leadID, providerID string) (*models.Lead, error) {
			return nil, fmt.Errorf("%w: lead %s", lead.ErrWrongProvider, leadID)
		},
	}
	r := leadRouter(svc)

	w := doJSON(t, r, http.MethodPost, "/api/leads/lead-1/view", gin.H{"providerId": "p-2"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAcceptLeadHandler(t *testing.T) {
	svc := &stubLeadService{
		acceptFn: func(ctx context.Context, leadID, providerID string, quoted int64, ref string) (*models.Lead, error) {
			return &models.Lead{ID: leadID, ProviderID: providerID, Status: models.LeadStatusAccepted, QuotedPriceCents: quoted}, nil
		},
	}
	r := leadRouter(svc)

	w := doJSON(t, r, http.MethodPost, "/api/leads/lead-1/accept",
		gin.H{"providerId": "p-1", "quotedPriceCents": 25000, "paymentIntentRef": "pi_123"})
	assert.Equal(t, http.StatusOK, w.Code)

	var got models.Lead
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, models.LeadStatusAccepted, got.Status)
	assert.Equal(t, int64(25000), got.QuotedPriceCents)
}

func TestAcceptLeadHandlerRejectsZeroPrice(t *testing.T) {
	r := leadRouter(&stubLeadService{})

	w := doJSON(t, r, http.MethodPost, "/api/leads/lead-1/accept",
		gin.H{"providerId": "p-1", "quotedPriceCents": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAcceptLeadHandlerReportsLostRace(t *testing.T) {
	svc := &stubLeadService{
		acceptFn: func(ctx context.Context, leadID, providerID string, quoted int64, ref string) (*models.Lead, error) {
			return nil, fmt.Errorf("%w: request req-1", lead.ErrRequestTaken)
		},
	}
	r := leadRouter(svc)

	w := doJSON(t, r, http.MethodPost, "/api/leads/lead-1/accept",
		gin.H{"providerId": "p-2", "quotedPriceCents": 20000})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeclineLeadHandlerMapsTransitionConflict(t *testing.T) {
	svc := &stubLeadService{
		declineFn: func(ctx context.Context, leadID, providerID, reason string) (*models.Lead, error) {
			return nil, fmt.Errorf("%w: lead %s is created", lead.ErrInvalidTransition, leadID)
		},
	}
	r := leadRouter(svc)

	w := doJSON(t, r, http.MethodPost, "/api/leads/lead-1/decline", gin.H{"providerId": "p-1"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestApproveLeadHandler(t *testing.T) {
	svc := &stubLeadService{
		approveFn: func(ctx context.Context, leadID string) (*models.PayoutRecord, error) {
			return &models.PayoutRecord{ID: "po-1", LeadID: leadID, ProviderCents: 22500, PlatformCents: 2500}, nil
		},
	}
	r := leadRouter(svc)

	w := doJSON(t, r, http.MethodPost, "/api/leads/lead-1/approve", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Payout models.PayoutRecord `json:"payout"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "po-1", got.Payout.ID)
	assert.Equal(t, int64(22500), got.Payout.ProviderCents)
}

func TestListProviderLeadsHandlerCoercesNil(t *testing.T) {
	r := leadRouter(&stubLeadService{})

	w := doJSON(t, r, http.MethodGet, "/api/providers/p-1/leads", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"leads": []}`, w.Body.String())
}

func TestLeadErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{lead.ErrLeadNotFound, http.StatusNotFound},
		{lead.ErrRequestNotFound, http.StatusNotFound},
		{lead.ErrWrongProvider, http.StatusForbidden},
		{lead.ErrRequestTaken, http.StatusConflict},
		{lead.ErrInvalidTransition, http.StatusConflict},
		{lead.ErrNoEligibleProviders, http.StatusUnprocessableEntity},
		{fmt.Errorf("mongo exploded"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, leadErrorStatus(tt.err), tt.err.Error())
		// Wrapped errors map identically.
		assert.Equal(t, tt.want, leadErrorStatus(fmt.Errorf("context: %w", tt.err)))
	}
}
