// cmd/pipeline-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"loan-prequal/internal/api"
	"loan-prequal/internal/common/aws"
	"loan-prequal/internal/common/breaker"
	"loan-prequal/internal/common/config"
	"loan-prequal/internal/common/database"
	"loan-prequal/internal/common/logger"
	"loan-prequal/internal/common/messaging"
	"loan-prequal/internal/common/observability"
	"loan-prequal/internal/common/stage"
	"loan-prequal/internal/store"

	decide "loan-prequal/internal/workers/pipeline/decide-application"
	score "loan-prequal/internal/workers/pipeline/score-application"
	submit "loan-prequal/internal/workers/pipeline/submit-application"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog, err := logger.New(logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Output:  cfg.Logging.Output,
		Service: cfg.App.Name,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zapLog.Sync() }()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting pipeline manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(ctx, func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	appStore := store.NewPostgresStore(pg.DB, log)
	if cfg.Database.Postgres.EnsureSchema {
		if err := appStore.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("schema setup failed", zap.Error(err))
		}
	}

	// --- Init Redis (idempotency keys) ---
	var rdb *database.RedisClient
	if cfg.API.Enabled && cfg.API.IdempotencyTTL > 0 {
		rdb = database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(ctx, func() error { return rdb.Ping(ctx) }, 5, time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		zapLog.Info("Redis connected successfully")
	}

	// --- Init Kafka ---
	err = retryWithBackoff(ctx, func() error {
		return messaging.Ping(ctx, cfg.Kafka.Brokers)
	}, 10, 2*time.Second, zapLog, "Kafka connection")
	if err != nil {
		zapLog.Fatal("kafka unreachable after retries", zap.Error(err))
	}

	submitCfg := submit.LoadConfig(cfg)
	producer := messaging.NewProducer(messaging.NewWriter(cfg.Kafka), submitCfg.Retry, log)
	dlq := stage.NewDeadLetterPublisher(producer, cfg.Kafka.Topics.DeadLetter, log)

	// --- Stage workers ---
	var workers []*stage.Worker

	scoreCfg := score.LoadConfig(cfg)
	if scoreCfg.Enabled {
		h := score.NewHandler(scoreCfg, producer, score.RandomJitter, log)
		workers = append(workers, stage.NewWorker(
			stage.Options{TaskType: score.TaskType, Service: score.ServiceName, Timeout: scoreCfg.Timeout},
			messaging.NewReader(cfg.Kafka, scoreCfg.InputTopic, scoreCfg.ConsumerGroup),
			h, dlq, obs, log,
		))
	} else {
		zapLog.Info("worker disabled", zap.String("taskType", score.TaskType))
	}

	decideCfg := decide.LoadConfig(cfg)
	if decideCfg.Enabled {
		var notifier decide.Notifier = decide.NopNotifier{}
		if cfg.Notifications.SNS.Enabled {
			sns, err := aws.NewDecisionNotifier(ctx, cfg.Notifications.SNS.Region, cfg.Notifications.SNS.TopicARN, log)
			if err != nil {
				zapLog.Fatal("sns notifier init failed", zap.Error(err))
			}
			notifier = sns
		}
		cb := breaker.New(breaker.SettingsFromConfig(cfg.CircuitBreaker), log)
		h := decide.NewHandler(decideCfg, appStore, cb, notifier, log)
		workers = append(workers, stage.NewWorker(
			stage.Options{TaskType: decide.TaskType, Service: decide.ServiceName, Timeout: decideCfg.Timeout},
			messaging.NewReader(cfg.Kafka, decideCfg.InputTopic, decideCfg.ConsumerGroup),
			h, dlq, obs, log,
		))
	} else {
		zapLog.Info("worker disabled", zap.String("taskType", decide.TaskType))
	}

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *stage.Worker) {
			defer wg.Done()
			zapLog.Info("worker started", zap.String("taskType", w.TaskType()))
			if err := w.Run(ctx); err != nil {
				zapLog.Error("worker stopped with error", zap.String("taskType", w.TaskType()), zap.Error(err))
				stop()
			}
		}(w)
	}

	// --- HTTP server (API, health, metrics) ---
	var svc api.ApplicationService
	if cfg.API.Enabled {
		var idem submit.IdempotencyStore
		if rdb != nil {
			idem = submit.NewRedisIdempotency(rdb.Client, submitCfg.IdempotencyTTL)
		}
		svc = submit.NewService(submitCfg, appStore, producer, idem, log)
	} else {
		zapLog.Info("application API disabled, serving health and metrics only")
	}

	router := api.NewRouter(svc, api.Options{
		RequestTimeout: config.GetDuration(cfg.HTTP.RequestTimeout),
		Version:        cfg.App.Version,
		Checks: map[string]api.HealthCheck{
			"database": appStore.Ping,
			"kafka": func(ctx context.Context) error {
				return messaging.Ping(ctx, cfg.Kafka.Brokers)
			},
		},
	}, log)

	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.HTTP.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping workers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.HTTP.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		zapLog.Warn("workers did not drain before shutdown timeout")
	}

	if err := producer.Close(); err != nil {
		zapLog.Error("Error closing Kafka producer", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := pg.Close(); err != nil {
		zapLog.Error("Error closing PostgreSQL", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down observability", zap.Error(err))
	}

	zapLog.Info("Pipeline manager stopped gracefully")
}
