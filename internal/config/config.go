package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Billing  BillingConfig
	Midtrans MidtransConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

// BillingConfig is the pricing policy. The markups directly determine revenue:
// a change here is a pricing-policy change, not a refactor, and must be recorded
// alongside the transactions it applied to.
type BillingConfig struct {
	UsageMarkup     decimal.Decimal // applied to externally attributed usage
	SelfUsageMarkup decimal.Decimal // applied to internally attributed ("self") usage
	ProcessingFee   decimal.Decimal // flat deduction from each confirmed purchase
	BalanceCacheTTL time.Duration
}

type MidtransConfig struct {
	ServerKey    string
	IsProduction bool
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "AgentHub"),
		},
		Billing: BillingConfig{
			UsageMarkup:     getEnvAsDecimal("BILLING_USAGE_MARKUP", "1.18"),
			SelfUsageMarkup: getEnvAsDecimal("BILLING_SELF_USAGE_MARKUP", "1.05"),
			ProcessingFee:   getEnvAsDecimal("BILLING_PROCESSING_FEE", "0"),
			BalanceCacheTTL: getEnvAsDuration("BALANCE_CACHE_TTL", 15*time.Minute),
		},
		Midtrans: MidtransConfig{
			ServerKey:    getEnv("MIDTRANS_SERVER_KEY", ""),
			IsProduction: getEnv("MIDTRANS_IS_PRODUCTION", "false") == "true",
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDecimal(key, fallback string) decimal.Decimal {
	strValue := getEnv(key, fallback)
	value, err := decimal.NewFromString(strValue)
	if err != nil {
		log.Printf("[WARN] Invalid decimal for %s=%q, using default %s", key, strValue, fallback)
		value, _ = decimal.NewFromString(fallback)
	}
	return value
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
