// cmd/dispatcher/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"notify-engine/internal/adapter"
	"notify-engine/internal/common/config"
	"notify-engine/internal/common/database"
	"notify-engine/internal/common/httpx"
	"notify-engine/internal/common/logger"
	"notify-engine/internal/dispatch"
	"notify-engine/internal/inbox"
	"notify-engine/internal/preference"
	"notify-engine/internal/routing"
	"notify-engine/internal/store"
	"notify-engine/internal/template"
)

// retryWithBackoff retries operation with exponential backoff. Infrastructure
// dependencies may come up after the dispatcher in orchestrated environments,
// so startup waits for them instead of crash-looping.
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = operation(); err == nil {
			if attempt > 1 {
				log.Info("Operation succeeded after retry",
					zap.String("operation", operationName),
					zap.Int("attempt", attempt))
			}
			return nil
		}

		if attempt < maxRetries {
			log.Warn("Operation failed, retrying",
				zap.String("operation", operationName),
				zap.Int("attempt", attempt),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("delay", delay),
				zap.Error(err))
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting notification dispatcher",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Postgres
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var connErr error
		pg, connErr = database.NewPostgres(cfg.Database.Postgres)
		if connErr != nil {
			return connErr
		}
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		defer pingCancel()
		return pg.Ping(pingCtx)
	}, 5, 2*time.Second, zapLog, "postgres connect")
	if err != nil {
		zapLog.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pg.Close()

	// Redis
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var connErr error
		rdb, connErr = database.NewRedis(cfg.Database.Redis)
		if connErr != nil {
			return connErr
		}
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		defer pingCancel()
		return rdb.Ping(pingCtx)
	}, 5, 2*time.Second, zapLog, "redis connect")
	if err != nil {
		zapLog.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer rdb.Close()

	pgStore := store.NewPostgresStore(pg.DB())
	st := store.NewCachingStore(pgStore, rdb.Client(),
		time.Duration(cfg.Database.Redis.CacheTTL)*time.Second, log)

	templates := template.NewService(st, log)
	resolver := routing.NewResolver(st, log)
	filter := preference.NewFilter(st, log)
	materializer := inbox.NewMaterializer(st, log)

	registry, err := buildRegistry(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("Failed to build adapter registry", zap.Error(err))
	}
	zapLog.Info("Adapter registry ready", zap.Any("channels", registry.Channels()))

	coordinator := dispatch.NewCoordinator(st, templates, resolver, filter,
		registry, materializer, log,
		config.GetDuration(cfg.Dispatch.SendTimeout),
		cfg.Dispatch.MaxConcurrentSends)

	poller := dispatch.NewPoller(st, coordinator, log,
		config.GetDuration(cfg.Dispatch.PollInterval),
		cfg.Dispatch.PollBatchSize)
	go poller.Run(ctx)

	// Health, readiness and metrics endpoints.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, pingCancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer pingCancel()
		if err := pg.Ping(pingCtx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status": "ready",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: cfg.App.MetricsAddr, Handler: mux}
	go func() {
		zapLog.Info("Serving health and metrics", zap.String("addr", cfg.App.MetricsAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Metrics server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	zapLog.Info("Shutdown signal received", zap.String("signal", sig.String()))

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Warn("Metrics server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Dispatcher stopped")
}

// buildRegistry wires one adapter per configured channel. Email prefers SES
// when enabled and falls back to plain SMTP; in_app is always available
// because it only needs the inbox store.
func buildRegistry(ctx context.Context, cfg *config.Config, log logger.Logger) (*adapter.Registry, error) {
	registry := adapter.NewRegistry()

	needsAWS := cfg.Integrations.AWS.SES.Enabled || cfg.Integrations.AWS.SNS.Enabled
	if needsAWS {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Integrations.AWS.Region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		if cfg.Integrations.AWS.SES.Enabled {
			registry.Register(adapter.NewSESEmailAdapter(
				ses.NewFromConfig(awsCfg), cfg.Integrations.AWS.SES.FromEmail, log))
		}
		if cfg.Integrations.AWS.SNS.Enabled {
			registry.Register(adapter.NewSMSAdapter(
				sns.NewFromConfig(awsCfg), cfg.Integrations.AWS.SNS.DefaultSMSSenderID, log))
		}
	}

	if !cfg.Integrations.AWS.SES.Enabled && cfg.Integrations.SMTP.Host != "" {
		registry.Register(adapter.NewSMTPEmailAdapter(
			cfg.Integrations.SMTP.Host, cfg.Integrations.SMTP.Port,
			cfg.Integrations.SMTP.Username, cfg.Integrations.SMTP.Password,
			cfg.Integrations.SMTP.DefaultFrom, log))
	}

	webhookClient := httpx.NewClient(config.GetDuration(cfg.Integrations.Webhook.Timeout))
	registry.Register(adapter.NewWebhookAdapter(webhookClient, cfg.Integrations.Webhook.UserAgent, log))
	registry.Register(adapter.NewInAppAdapter())

	return registry, nil
}
