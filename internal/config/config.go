package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr        string
	LogLevel    string
	DatabaseURL string
	RedisURL    string

	// Admission gate: maximum in-flight requests per process.
	MaxConcurrent int

	// Usage log retention horizon for the cleanup endpoint default.
	Retention time.Duration

	// Bcrypt hash of the admin token guarding key issuance and cleanup.
	AdminTokenHash string

	OTLPEndpoint string

	// Optional AWS integrations.
	AWSRegion    string
	DBSecretName string
	SNSTopicARN  string

	ShutdownTimeout time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Addr:            getEnv("ADDR", ":8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		MaxConcurrent:   getIntEnv("MAX_CONCURRENT", 5),
		Retention:       getDurationEnv("RETENTION", 7*24*time.Hour),
		AdminTokenHash:  getEnv("ADMIN_TOKEN_HASH", ""),
		OTLPEndpoint:    getEnv("OTLP_ENDPOINT", ""),
		AWSRegion:       getEnv("AWS_REGION", ""),
		DBSecretName:    getEnv("DB_SECRET_NAME", ""),
		SNSTopicARN:     getEnv("SNS_TOPIC_ARN", ""),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
