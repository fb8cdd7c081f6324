package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Service request endpoints
	CreateRequestHandler   gin.HandlerFunc
	GetRequestHandler      gin.HandlerFunc
	ListRequestsHandler    gin.HandlerFunc
	ReassignRequestHandler gin.HandlerFunc
	CancelRequestHandler   gin.HandlerFunc

	// Lead lifecycle endpoints
	GetLeadHandler           gin.HandlerFunc
	ListProviderLeadsHandler gin.HandlerFunc
	ViewLeadHandler          gin.HandlerFunc
	AcceptLeadHandler        gin.HandlerFunc
	DeclineLeadHandler       gin.HandlerFunc
	StartLeadHandler         gin.HandlerFunc
	CompleteLeadHandler      gin.HandlerFunc
	ApproveLeadHandler       gin.HandlerFunc
	CancelLeadHandler        gin.HandlerFunc

	// Payout endpoints
	GetPayoutHandler     gin.HandlerFunc
	GetLeadPayoutHandler gin.HandlerFunc
	ListPayoutsHandler   gin.HandlerFunc
	RetryPayoutHandler   gin.HandlerFunc

	// Provider endpoints
	RegisterProviderHandler gin.HandlerFunc
	GetProviderHandler      gin.HandlerFunc
	ChangePlanHandler       gin.HandlerFunc
	UpdateFCMTokenHandler   gin.HandlerFunc

	// Plan catalog
	ListPlansHandler gin.HandlerFunc

	// Notification ledger
	GetNotificationHandler   gin.HandlerFunc
	ListNotificationsHandler gin.HandlerFunc
}
