// File: fixify/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fixify/config"
	"fixify/cron"
	"fixify/database"
	leadRepoPkg "fixify/database/repository/lead"
	notificationRepoPkg "fixify/database/repository/notification"
	payoutRepoPkg "fixify/database/repository/payout"
	planRepoPkg "fixify/database/repository/plan"
	providerRepoPkg "fixify/database/repository/provider"
	requestRepoPkg "fixify/database/repository/request"
	"fixify/handlers"
	"fixify/middleware"
	"fixify/routes"
	"fixify/services/geocode"
	"fixify/services/lead"
	"fixify/services/notification"
	"fixify/services/payment"
	"fixify/services/payout"
	"fixify/services/subscription"
	"fixify/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.FirebaseInit()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())
	stripe.Key = config.AppConfig.StripeKey

	// repositories.
	provRepo := providerRepoPkg.NewMongoProviderRepo()
	reqRepo := requestRepoPkg.NewMongoRequestRepo()
	ldRepo := leadRepoPkg.NewMongoLeadRepo()
	payRepo := payoutRepoPkg.NewMongoPayoutRepo()
	notifRepo := notificationRepoPkg.NewMongoNotificationRepo()
	plnRepo := planRepoPkg.NewMongoPlanRepo()

	// Task queue client, shared by notification dispatch and payout transfers.
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})

	// services.
	planService := &subscription.DefaultPlanService{
		Repo: plnRepo,
	}
	if err := planService.EnsureDefaults(context.Background()); err != nil {
		logger.Sugar().Fatalf("main: failed to seed subscription plans: %v", err)
	}

	geocodeService := &geocode.GoogleGeocodeService{
		CacheClient: utils.GetCacheClient(),
	}

	matchingServiceInstance := &lead.DefaultMatchingService{
		ProviderRepo: provRepo,
		LeadRepo:     ldRepo,
		Plans:        planService,
		Geocoder:     geocodeService,
	}

	emailChannel, err := notification.NewSESChannel(context.Background(), config.AppConfig.AWSRegion, config.AppConfig.SESSender)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize SES channel: %v", err)
	}
	notificationService, err := notification.NewDefaultNotificationService(notifRepo, notification.FCMChannel{}, emailChannel, asynqClient)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize notification service: %v", err)
	}

	paymentProcessor := payment.NewStripeProcessor(logger)

	payoutEngine := &payout.DefaultEngine{
		Repo:         payRepo,
		LeadRepo:     ldRepo,
		ProviderRepo: provRepo,
		Processor:    paymentProcessor,
		Notifier:     notificationService,
		AsynqClient:  asynqClient,
	}

	leadService, err := lead.NewLeadService(ldRepo, reqRepo, provRepo, matchingServiceInstance, payoutEngine, paymentProcessor, notificationService)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize lead service: %v", err)
	}

	requestHandler := handlers.NewRequestHandler(leadService)
	leadHandler := handlers.NewLeadHandler(leadService)
	payoutHandler := handlers.NewPayoutHandler(payoutEngine)
	providerHandler := handlers.NewProviderHandler(provRepo, planService)
	planHandler := handlers.NewPlanHandler(planService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		// Service request endpoints.
		CreateRequestHandler:   requestHandler.CreateRequestHandler,
		GetRequestHandler:      requestHandler.GetRequestHandler,
		ListRequestsHandler:    requestHandler.ListRequestsHandler,
		ReassignRequestHandler: requestHandler.ReassignRequestHandler,
		CancelRequestHandler:   requestHandler.CancelRequestHandler,

		// Lead lifecycle endpoints.
		GetLeadHandler:           leadHandler.GetLeadHandler,
		ListProviderLeadsHandler: leadHandler.ListProviderLeadsHandler,
		ViewLeadHandler:          leadHandler.ViewLeadHandler,
		AcceptLeadHandler:        leadHandler.AcceptLeadHandler,
		DeclineLeadHandler:       leadHandler.DeclineLeadHandler,
		StartLeadHandler:         leadHandler.StartLeadHandler,
		CompleteLeadHandler:      leadHandler.CompleteLeadHandler,
		ApproveLeadHandler:       leadHandler.ApproveLeadHandler,
		CancelLeadHandler:        leadHandler.CancelLeadHandler,

		// Payout endpoints.
		GetPayoutHandler:     payoutHandler.GetPayoutHandler,
		GetLeadPayoutHandler: payoutHandler.GetLeadPayoutHandler,
		ListPayoutsHandler:   payoutHandler.ListPayoutsHandler,
		RetryPayoutHandler:   payoutHandler.RetryPayoutHandler,

		// Provider endpoints.
		RegisterProviderHandler: providerHandler.RegisterProviderHandler,
		GetProviderHandler:      providerHandler.GetProviderHandler,
		ChangePlanHandler:       providerHandler.ChangePlanHandler,
		UpdateFCMTokenHandler:   providerHandler.UpdateFCMTokenHandler,

		// Plan catalog.
		ListPlansHandler: planHandler.ListPlansHandler,

		// Notification ledger.
		GetNotificationHandler:   notificationHandler.GetNotificationHandler,
		ListNotificationsHandler: notificationHandler.ListNotificationsHandler,
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Background workers: queue consumers plus the redrive sweeps.
	cron.InitWorkers(notificationService, payoutEngine, leadService)

	utils.StartHealthMonitor([]*redis.Client{utils.GetCacheClient()}, database.MongoClient)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
