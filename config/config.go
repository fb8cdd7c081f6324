package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	DefaultCurrency   string `mapstructure:"DEFAULT_CURRENCY"`

	// Redis configuration. The queue DB backs asynq, the cache DB everything else.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Google Maps API Key (geocoding).
	GoogleAPIKey   string `mapstructure:"GOOGLE_API_KEY"`
	GeocodeCountry string `mapstructure:"GEOCODE_COUNTRY"`

	// Payment processor.
	StripeKey string `mapstructure:"STRIPE_KEY"`

	// Outbound email (SES).
	AWSRegion string `mapstructure:"AWS_REGION"`
	SESSender string `mapstructure:"SES_SENDER"`

	// Matching & ranking. Weights are tunables, not constants.
	MaxLeadsPerRequest   int     `mapstructure:"MAX_LEADS_PER_REQUEST"`
	BaseLeadCostCents    int64   `mapstructure:"BASE_LEAD_COST_CENTS"`
	MinLeadCostCents     int64   `mapstructure:"MIN_LEAD_COST_CENTS"`
	RatingWeight         float64 `mapstructure:"RATING_WEIGHT"`
	FeaturedBonus        float64 `mapstructure:"FEATURED_BONUS"`
	SubcategoryBonus     float64 `mapstructure:"SUBCATEGORY_BONUS"`
	RecentLeadsWindowHrs int     `mapstructure:"RECENT_LEADS_WINDOW_HRS"`
	RecentLeadsPenalty   float64 `mapstructure:"RECENT_LEADS_PENALTY"`
	ExclusiveAcceptance  bool    `mapstructure:"EXCLUSIVE_ACCEPTANCE"`

	// Payouts.
	PlatformFeeRate   float64 `mapstructure:"PLATFORM_FEE_RATE"`
	PayoutMaxAttempts int     `mapstructure:"PAYOUT_MAX_ATTEMPTS"`

	// Notification delivery.
	NotifyMaxRetries    int `mapstructure:"NOTIFY_MAX_RETRIES"`
	NotifyRetryBaseSecs int `mapstructure:"NOTIFY_RETRY_BASE_SECS"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("DEFAULT_CURRENCY", "USD")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 1)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("GOOGLE_API_KEY", "")
	viper.SetDefault("GEOCODE_COUNTRY", "US")
	viper.SetDefault("STRIPE_KEY", "")
	viper.SetDefault("AWS_REGION", "us-east-1")
	viper.SetDefault("SES_SENDER", "no-reply@fixify.app")
	viper.SetDefault("MAX_LEADS_PER_REQUEST", 3)
	viper.SetDefault("BASE_LEAD_COST_CENTS", 1500)
	viper.SetDefault("MIN_LEAD_COST_CENTS", 200)
	viper.SetDefault("RATING_WEIGHT", 2.0)
	viper.SetDefault("FEATURED_BONUS", 1.0)
	viper.SetDefault("SUBCATEGORY_BONUS", 0.5)
	viper.SetDefault("RECENT_LEADS_WINDOW_HRS", 72)
	viper.SetDefault("RECENT_LEADS_PENALTY", 0.5)
	viper.SetDefault("EXCLUSIVE_ACCEPTANCE", true)
	viper.SetDefault("PLATFORM_FEE_RATE", 0.10)
	viper.SetDefault("PAYOUT_MAX_ATTEMPTS", 3)
	viper.SetDefault("NOTIFY_MAX_RETRIES", 3)
	viper.SetDefault("NOTIFY_RETRY_BASE_SECS", 60)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
