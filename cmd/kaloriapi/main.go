package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kalori-makanan/kalori-api/internal/api"
	"github.com/kalori-makanan/kalori-api/internal/auth"
	"github.com/kalori-makanan/kalori-api/internal/config"
	"github.com/kalori-makanan/kalori-api/internal/domain"
	"github.com/kalori-makanan/kalori-api/internal/notifications"
	"github.com/kalori-makanan/kalori-api/internal/ratelimit"
	"github.com/kalori-makanan/kalori-api/internal/repository"
	"github.com/kalori-makanan/kalori-api/internal/secrets"
	"github.com/kalori-makanan/kalori-api/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	slog.Info("starting kalori-api", "addr", cfg.Addr, "version", "1.0.0")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := telemetry.Init(ctx, "kalori-api", cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to init telemetry", "error", err)
		os.Exit(1)
	}
	defer shutdownTelemetry(ctx)

	if cfg.DBSecretName != "" && cfg.AWSRegion != "" {
		store, err := secrets.NewAWSSecretsManager(ctx, cfg.AWSRegion)
		if err != nil {
			slog.Error("failed to init secrets manager", "error", err)
			os.Exit(1)
		}

		var sec secrets.DatabaseSecret
		if err := store.GetSecretJSON(ctx, cfg.DBSecretName, &sec); err != nil {
			slog.Error("failed to load database secret", "name", cfg.DBSecretName, "error", err)
			os.Exit(1)
		}
		if sec.DatabaseURL != "" {
			cfg.DatabaseURL = sec.DatabaseURL
		}
		if sec.AdminTokenHash != "" {
			cfg.AdminTokenHash = sec.AdminTokenHash
		}
		slog.Info("loaded secrets from AWS Secrets Manager", "name", cfg.DBSecretName)
	}

	var (
		keyRepo  repository.KeyRepository
		userRepo repository.UserRepository
		usageLog repository.UsageLog
		foodRepo repository.FoodRepository
		checkers []api.HealthChecker
	)

	if cfg.DatabaseURL != "" {
		db, err := repository.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := repository.Migrate(ctx, db); err != nil {
			slog.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}

		keyRepo = repository.NewPostgresKeyRepository(db)
		userRepo = repository.NewPostgresUserRepository(db)
		usageLog = repository.NewPostgresUsageLog(db)
		foodRepo = repository.NewPostgresFoodRepository(db)
		checkers = append(checkers, api.NewPostgresHealthChecker(db))
		slog.Info("using postgres storage")
	} else {
		users := repository.NewInMemoryUserRepository()
		seedDevUser(ctx, users)
		keyRepo = repository.NewInMemoryKeyRepository(users)
		userRepo = users
		usageLog = repository.NewInMemoryUsageLog()
		foodRepo = repository.NewInMemoryFoodRepository(nil, nil)
		slog.Warn("no DATABASE_URL set, using in-memory storage")
	}

	if cfg.RedisURL != "" {
		redisLog, err := repository.NewRedisUsageLog(cfg.RedisURL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisLog.Close()
		usageLog = redisLog
		checkers = append(checkers, api.NewRedisHealthCheckerWithClient(redisLog.Client()))
		slog.Info("using redis usage log", "url", cfg.RedisURL)
	}

	var notifier notifications.Notifier = notifications.NoopNotifier{}
	if cfg.SNSTopicARN != "" && cfg.AWSRegion != "" {
		snsNotifier, err := notifications.NewSNSNotifier(ctx, cfg.AWSRegion, cfg.SNSTopicARN)
		if err != nil {
			slog.Error("failed to init SNS notifier", "error", err)
			os.Exit(1)
		}
		notifier = snsNotifier
		slog.Info("rate-limit notifications enabled", "topic", cfg.SNSTopicARN)
	}

	adminGuard := auth.NewAdminGuard(cfg.AdminTokenHash)
	if !adminGuard.Enabled() {
		slog.Warn("ADMIN_TOKEN_HASH not set, admin endpoints are unprotected")
	}

	handler := api.NewHandler(api.HandlerConfig{
		Keys:      auth.NewKeyService(keyRepo, userRepo),
		Limiter:   ratelimit.NewLimiter(usageLog, ratelimit.DefaultWindows()),
		Gate:      ratelimit.NewGate(cfg.MaxConcurrent),
		Usage:     usageLog,
		Foods:     foodRepo,
		Admin:     adminGuard,
		Notifier:  notifier,
		Retention: cfg.Retention,
		Checkers:  checkers,
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func seedDevUser(ctx context.Context, users *repository.InMemoryUserRepository) {
	user := &domain.User{Email: "dev@example.com", Name: "Dev User"}
	if err := users.Create(ctx, user); err != nil {
		slog.Warn("failed to seed dev user", "error", err)
		return
	}
	slog.Info("seeded dev user", "user_id", user.ID, "email", user.Email)
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
