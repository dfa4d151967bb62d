package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	Stripe    StripeConfig
	Email     EmailConfig
	SMS       SMSConfig
	RateLimit RateLimitConfig
	Scheduler SchedulerConfig
}

// StripeConfig configures the payments processor client.
type StripeConfig struct {
	SecretKey      string
	WebhookSecret  string
	PlatformFeeBps int64

	// Hosted onboarding redirect targets for Connect express accounts.
	ConnectRefreshURL string
	ConnectReturnURL  string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

type SMSConfig struct {
	AccountSID string
	AuthToken  string
	From       string
}

type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	PaymentRate   float64
	PaymentBurst  int
}

type SchedulerConfig struct {
	Enabled             bool
	Interval            time.Duration
	ReleaseRetryAfter   time.Duration
	ConnectRefreshAfter time.Duration
	BatchSize           int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "rushr"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "rushr"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		Stripe: StripeConfig{
			SecretKey:         strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
			WebhookSecret:     strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", "")),
			PlatformFeeBps:    getenvInt64("PLATFORM_FEE_BPS", 1000),
			ConnectRefreshURL: getenv("STRIPE_CONNECT_REFRESH_URL", "https://rushr.app/pro/onboarding/refresh"),
			ConnectReturnURL:  getenv("STRIPE_CONNECT_RETURN_URL", "https://rushr.app/pro/onboarding/complete"),
		},
		Email: EmailConfig{
			SMTPHost:     getenv("SMTP_HOST", ""),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", "no-reply@rushr.app"),
		},
		SMS: SMSConfig{
			AccountSID: strings.TrimSpace(getenv("TWILIO_ACCOUNT_SID", "")),
			AuthToken:  strings.TrimSpace(getenv("TWILIO_AUTH_TOKEN", "")),
			From:       strings.TrimSpace(getenv("TWILIO_FROM", "")),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			RedisPassword: getenv("REDIS_PASSWORD", ""),
			PaymentRate:   getenvFloat("RATE_LIMIT_PAYMENT_RATE", 1),
			PaymentBurst:  getenvInt("RATE_LIMIT_PAYMENT_BURST", 5),
		},
		Scheduler: SchedulerConfig{
			Enabled:             getenvBool("SCHEDULER_ENABLED", true),
			Interval:            getenvDuration("SCHEDULER_INTERVAL", time.Minute),
			ReleaseRetryAfter:   getenvDuration("SCHEDULER_RELEASE_RETRY_AFTER", 5*time.Minute),
			ConnectRefreshAfter: getenvDuration("SCHEDULER_CONNECT_REFRESH_AFTER", 15*time.Minute),
			BatchSize:           getenvInt("SCHEDULER_BATCH_SIZE", 50),
		},
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
