package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	envVars := []string{
		"ADDR", "LOG_LEVEL", "DATABASE_URL", "REDIS_URL",
		"MAX_CONCURRENT", "RETENTION", "ADMIN_TOKEN_HASH",
		"OTLP_ENDPOINT", "AWS_REGION", "DB_SECRET_NAME", "SNS_TOPIC_ARN",
		"SHUTDOWN_TIMEOUT",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"Addr", cfg.Addr, ":8080"},
		{"LogLevel", cfg.LogLevel, "info"},
		{"DatabaseURL", cfg.DatabaseURL, ""},
		{"RedisURL", cfg.RedisURL, ""},
		{"AdminTokenHash", cfg.AdminTokenHash, ""},
		{"OTLPEndpoint", cfg.OTLPEndpoint, ""},
		{"AWSRegion", cfg.AWSRegion, ""},
		{"DBSecretName", cfg.DBSecretName, ""},
		{"SNSTopicARN", cfg.SNSTopicARN, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.expected)
			}
		})
	}

	if cfg.MaxConcurrent != 5 {
		t.Errorf("MaxConcurrent = %d, want 5", cfg.MaxConcurrent)
	}
	if cfg.Retention != 7*24*time.Hour {
		t.Errorf("Retention = %v, want 168h", cfg.Retention)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 30s", cfg.ShutdownTimeout)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	os.Setenv("ADDR", ":9090")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("DATABASE_URL", "postgres://localhost/kalori")
	os.Setenv("REDIS_URL", "redis://localhost:6379")
	os.Setenv("MAX_CONCURRENT", "10")
	os.Setenv("RETENTION", "72h")
	os.Setenv("SHUTDOWN_TIMEOUT", "5")
	defer func() {
		for _, v := range []string{"ADDR", "LOG_LEVEL", "DATABASE_URL", "REDIS_URL", "MAX_CONCURRENT", "RETENTION", "SHUTDOWN_TIMEOUT"} {
			os.Unsetenv(v)
		}
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q, want :9090", cfg.Addr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.DatabaseURL != "postgres://localhost/kalori" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.MaxConcurrent != 10 {
		t.Errorf("MaxConcurrent = %d, want 10", cfg.MaxConcurrent)
	}
	if cfg.Retention != 72*time.Hour {
		t.Errorf("Retention = %v, want 72h", cfg.Retention)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 5s", cfg.ShutdownTimeout)
	}
}
