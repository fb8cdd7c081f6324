package routes

import (
	"net/http"
	"time"

	"fixify/handlers"
	"fixify/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterRequestRoutes registers service request endpoints.
func RegisterRequestRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/requests")
	{
		api.POST("", hb.CreateRequestHandler)
		api.GET("", hb.ListRequestsHandler)
		api.GET("/:id", hb.GetRequestHandler)
		api.POST("/:id/reassign", hb.ReassignRequestHandler)
		api.DELETE("/:id", hb.CancelRequestHandler)
	}
}

// RegisterLeadRoutes registers the lead lifecycle endpoints.
func RegisterLeadRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/leads")
	{
		api.GET("/:id", hb.GetLeadHandler)
		api.GET("/:id/payout", hb.GetLeadPayoutHandler)
		api.POST("/:id/view", hb.ViewLeadHandler)
		api.POST("/:id/accept", hb.AcceptLeadHandler)
		api.POST("/:id/decline", hb.DeclineLeadHandler)
		api.POST("/:id/start", hb.StartLeadHandler)
		api.POST("/:id/complete", hb.CompleteLeadHandler)
		api.POST("/:id/approve", hb.ApproveLeadHandler)
		api.POST("/:id/cancel", hb.CancelLeadHandler)
	}
}

// RegisterProviderRoutes registers provider account endpoints.
func RegisterProviderRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/providers")
	{
		api.POST("", hb.RegisterProviderHandler)
		api.GET("/:id", hb.GetProviderHandler)
		api.GET("/:id/leads", hb.ListProviderLeadsHandler)
		api.PUT("/:id/plan", hb.ChangePlanHandler)
		api.PUT("/:id/fcm-token", hb.UpdateFCMTokenHandler)
	}
}

// RegisterPayoutRoutes registers payout endpoints.
func RegisterPayoutRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/payouts")
	{
		api.GET("", hb.ListPayoutsHandler)
		api.GET("/:id", hb.GetPayoutHandler)
		api.POST("/:id/retry", hb.RetryPayoutHandler)
	}
}

// RegisterPlanRoutes registers the plan catalog endpoint.
func RegisterPlanRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/api/plans", hb.ListPlansHandler)
}

// RegisterNotificationRoutes registers the delivery ledger endpoints.
func RegisterNotificationRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/notifications")
	{
		api.GET("", hb.ListNotificationsHandler)
		api.GET("/:id", hb.GetNotificationHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Hi, I'm Fixify",
			"checks":  utils.GetHealthStatus(),
		})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	// Setup global middleware (e.g., CORS) here.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterRequestRoutes(r, hb)
	RegisterLeadRoutes(r, hb)
	RegisterProviderRoutes(r, hb)
	RegisterPayoutRoutes(r, hb)
	RegisterPlanRoutes(r, hb)
	RegisterNotificationRoutes(r, hb)
	RegisterHealthRoute(r)
}
