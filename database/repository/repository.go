package repository

import (
	leadRepo "fixify/database/repository/lead"
	notificationRepo "fixify/database/repository/notification"
	payoutRepo "fixify/database/repository/payout"
	planRepo "fixify/database/repository/plan"
	providerRepo "fixify/database/repository/provider"
	requestRepo "fixify/database/repository/request"
)

// Re-export the ServiceRequestRepository interface and constructor.
type ServiceRequestRepository = requestRepo.ServiceRequestRepository

var NewMongoRequestRepo = requestRepo.NewMongoRequestRepo

// Re-export the ProviderRepository interface and constructor.
type ProviderRepository = providerRepo.ProviderRepository

type CandidateCriteria = providerRepo.CandidateCriteria

var NewMongoProviderRepo = providerRepo.NewMongoProviderRepo

// Re-export the LeadRepository interface and constructor.
type LeadRepository = leadRepo.LeadRepository

type AcceptParams = leadRepo.AcceptParams

var NewMongoLeadRepo = leadRepo.NewMongoLeadRepo

// Re-export the PayoutRepository interface and constructor.
type PayoutRepository = payoutRepo.PayoutRepository

var NewMongoPayoutRepo = payoutRepo.NewMongoPayoutRepo

// Re-export the NotificationRepository interface and constructor.
type NotificationRepository = notificationRepo.NotificationRepository

var NewMongoNotificationRepo = notificationRepo.NewMongoNotificationRepo

// Re-export the PlanRepository interface and constructor.
type PlanRepository = planRepo.PlanRepository

var NewMongoPlanRepo = planRepo.NewMongoPlanRepo
