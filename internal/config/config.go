package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string
	CORSMaxAge         time.Duration

	// Storage
	StoreBackend  string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	DatabaseURL   string

	// Report source
	ReportHomeURL      string
	ReportExtractorURL string
	ReportUserAgent    string
	ReportFetchTimeout time.Duration

	// Auth
	AdminAPIToken  string
	AdminJWTSecret string
	CronSecret     string

	// Telegram
	TelegramBotToken      string
	TelegramWebhookSecret string
	TelegramRatePerSecond float64

	// Web push (VAPID)
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	// Sync and fanout
	FanoutConcurrency int
	QueryCacheSize    int
	SyncInterval      time.Duration

	// Archive
	ArchiveBucket       string
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present; real env vars win.
func Load() *Config {
	loadDotEnv(".env")
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		CORSMaxAge:         getEnvAsDuration("CORS_MAX_AGE", 10*time.Minute),

		StoreBackend:  strings.ToLower(strings.TrimSpace(getEnv("STORE_BACKEND", "memory"))),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		ReportHomeURL:      getEnv("REPORT_HOME_URL", "https://www.kccg.me/"),
		ReportExtractorURL: getEnv("REPORT_EXTRACTOR_URL", "https://r.jina.ai/"),
		ReportUserAgent:    getEnv("REPORT_USER_AGENT", "kccg-slots-app/1.0"),
		ReportFetchTimeout: getEnvAsDuration("REPORT_FETCH_TIMEOUT", 45*time.Second),

		AdminAPIToken:  getEnv("ADMIN_API_TOKEN", ""),
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
		CronSecret:     getEnv("CRON_SECRET", ""),

		TelegramBotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramWebhookSecret: getEnv("TELEGRAM_WEBHOOK_SECRET", ""),
		TelegramRatePerSecond: getEnvAsFloat("TELEGRAM_RATE_PER_SECOND", 25),

		VAPIDPublicKey:  getEnv("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey: getEnv("VAPID_PRIVATE_KEY", ""),
		VAPIDSubject:    getEnv("VAPID_SUBJECT", "mailto:no-reply@example.com"),

		FanoutConcurrency: getEnvAsInt("FANOUT_CONCURRENCY", 8),
		QueryCacheSize:    getEnvAsInt("QUERY_CACHE_SIZE", 512),
		SyncInterval:      getEnvAsDuration("SYNC_INTERVAL", 0),

		ArchiveBucket:       getEnv("ARCHIVE_BUCKET", ""),
		AWSRegion:           getEnv("AWS_REGION", "eu-central-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// PushConfigured reports whether both VAPID keys are set.
func (c *Config) PushConfigured() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

func loadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		// A malformed .env should not stop the process; env vars still apply.
		_, _ = os.Stderr.WriteString("config: ignoring " + path + ": " + err.Error() + "\n")
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
