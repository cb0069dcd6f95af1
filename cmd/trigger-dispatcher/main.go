// cmd/trigger-dispatcher/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"merchant-triggers/internal/actions"
	"merchant-triggers/internal/actions/chat"
	"merchant-triggers/internal/actions/email"
	"merchant-triggers/internal/actions/notification"
	"merchant-triggers/internal/actions/sms"
	"merchant-triggers/internal/actions/webhook"
	"merchant-triggers/internal/activity"
	"merchant-triggers/internal/api"
	"merchant-triggers/internal/catalog"
	"merchant-triggers/internal/common/aws"
	"merchant-triggers/internal/common/camunda"
	"merchant-triggers/internal/common/config"
	"merchant-triggers/internal/common/database"
	httpclient "merchant-triggers/internal/common/http"
	"merchant-triggers/internal/common/logger"
	"merchant-triggers/internal/common/observability"
	"merchant-triggers/internal/dispatch"
	"merchant-triggers/internal/recipients"

	ft "merchant-triggers/internal/workers/triggers/fire-trigger"
	rfa "merchant-triggers/internal/workers/triggers/retry-failed-actions"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
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
			time.Sleep(delay)
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

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	zapLog.Info("Starting trigger dispatcher...", zap.String("environment", cfg.App.Environment))

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	checks := map[string]api.ReadinessCheck{"postgres": pg.Ping}

	// --- Redis profile cache (optional) ---
	var profiles recipients.Store = recipients.NewPostgresStore(pg.DB)
	if cfg.Dispatch.ProfileCacheTTL > 0 {
		var rdb *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		profiles = recipients.NewCachedStore(profiles, rdb.Client, time.Duration(cfg.Dispatch.ProfileCacheTTL)*time.Second, log)
		checks["redis"] = rdb.Ping
		zapLog.Info("Redis profile cache enabled", zap.Int("ttlSeconds", cfg.Dispatch.ProfileCacheTTL))
	}

	// --- Activity log, mirrored to Elasticsearch when enabled ---
	var activityLog activity.Log = activity.NewPostgresLog(pg.DB)
	if cfg.Activity.MirrorToElasticsearch {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		activityLog = activity.NewMirroredLog(activityLog, esClient, cfg.Activity.Index, log)
		zapLog.Info("Activity mirroring to Elasticsearch enabled", zap.String("index", cfg.Activity.Index))
	}

	// --- Catalog ---
	cat, err := buildCatalog(cfg, pg, log)
	if err != nil {
		zapLog.Fatal("catalog initialization failed", zap.Error(err))
	}

	// --- Executors ---
	execs, err := buildExecutors(ctx, cfg, pg, log)
	if err != nil {
		zapLog.Fatal("executor initialization failed", zap.Error(err))
	}
	registry, err := actions.NewRegistry(execs...)
	if err != nil {
		zapLog.Fatal("executor registry invalid", zap.Error(err))
	}

	svc := dispatch.NewService(dispatch.Config{
		Mode:                cfg.Dispatch.Mode,
		MaxParallel:         cfg.Dispatch.MaxParallel,
		ExecutorTimeout:     config.GetDuration(cfg.Dispatch.ExecutorTimeout),
		DefaultSlackChannel: cfg.Chat.DefaultChannel,
	}, dispatch.Dependencies{
		Catalog:       cat,
		Profiles:      profiles,
		Registry:      registry,
		Activity:      activityLog,
		Observability: obs,
		Logger:        log,
	})
	zapLog.Info("Dispatch service ready",
		zap.String("mode", cfg.Dispatch.Mode),
		zap.Strings("actionTypes", registry.Kinds()),
	)

	// --- Zeebe job workers ---
	var (
		zeebe   *camunda.Client
		workers []worker.JobWorker
	)
	if cfg.AnyWorkerEnabled() {
		zeebe, err = camunda.Connect(ctx, &camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		}, log)
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		checks["zeebe"] = zeebe.HealthCheck
		zapLog.Info("Zeebe client connected successfully")

		workers = startWorkers(cfg, zeebe, svc, log, zapLog)
	}

	// --- HTTP API, probes and metrics ---
	router := mux.NewRouter()
	api.SetupRoutes(router, api.New(svc, activityLog, checks, log))
	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Close()
		w.AwaitClose()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}

	zapLog.Info("Trigger dispatcher stopped gracefully")
}

func buildCatalog(cfg *config.Config, pg *database.PostgresClient, log logger.Logger) (catalog.Catalog, error) {
	switch cfg.Dispatch.CatalogSource {
	case "file":
		return catalog.LoadMemoryStore(cfg.Dispatch.CatalogPath, log)
	default:
		return catalog.NewPostgresStore(pg.DB, log), nil
	}
}

func buildExecutors(ctx context.Context, cfg *config.Config, pg *database.PostgresClient, log logger.Logger) ([]actions.Executor, error) {
	var mail email.Transport
	switch cfg.Email.Provider {
	case "smtp":
		mail = email.NewSMTPTransport(email.SMTPConfig{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
			UseTLS:   cfg.Email.UseTLS,
		})
	default:
		sesClient, err := aws.NewSESClient(ctx, cfg.Email.AWSRegion)
		if err != nil {
			return nil, fmt.Errorf("ses client: %w", err)
		}
		mail = email.NewSESTransport(sesClient)
	}

	var text sms.Transport
	switch cfg.SMS.Provider {
	case "sns":
		snsClient, err := aws.NewSNSClient(ctx, cfg.SMS.AWSRegion)
		if err != nil {
			return nil, fmt.Errorf("sns client: %w", err)
		}
		text = sms.NewSNSTransport(snsClient, cfg.SMS.SenderID)
	default:
		text = sms.NewSimulatedTransport(log)
	}

	webhookClient := httpclient.NewClient(config.GetDuration(cfg.Webhook.Timeout), cfg.Webhook.MaxResponseBytes)

	var chatTransport chat.Transport
	switch {
	case cfg.Chat.Provider == "slack" && cfg.Chat.BotToken != "":
		chatTransport = chat.NewSlackAPITransport(webhookClient, cfg.Chat.BotToken)
	case cfg.Chat.Provider == "slack":
		chatTransport = chat.NewSlackWebhookTransport(webhookClient, cfg.Chat.WebhookURL)
	default:
		chatTransport = chat.NewSimulatedTransport(log)
	}

	return []actions.Executor{
		email.NewExecutor(email.Config{
			FromAddress: cfg.Email.FromAddress,
			FromName:    cfg.Email.FromName,
			BrandName:   cfg.Email.BrandName,
		}, mail, log),
		sms.NewExecutor(text, log),
		webhook.NewExecutor(webhook.Config{
			BreakerFailures: cfg.Webhook.BreakerFailures,
			BreakerTimeout:  config.GetDuration(cfg.Webhook.BreakerTimeout),
		}, webhookClient, log),
		notification.NewExecutor(pg.DB, log),
		chat.NewExecutor(chatTransport, log),
	}, nil
}

func startWorkers(cfg *config.Config, zeebe *camunda.Client, svc *dispatch.Service, log logger.Logger, zapLog *zap.Logger) []worker.JobWorker {
	var workers []worker.JobWorker

	if wcfg := config.GetWorkerConfig(cfg, ft.TaskType); wcfg.Enabled {
		handler, err := ft.NewHandler(ft.HandlerOptions{
			AppConfig: cfg,
			Service:   svc,
			Logger:    log,
		})
		if err != nil {
			zapLog.Fatal("failed to create fire-trigger handler", zap.Error(err))
		}
		if jw := camunda.StartWorker(zeebe.Zeebe(), ft.TaskType, wcfg, handler.Handle, log); jw != nil {
			workers = append(workers, jw)
		}
	}

	if wcfg := config.GetWorkerConfig(cfg, rfa.TaskType); wcfg.Enabled {
		handler, err := rfa.NewHandler(rfa.HandlerOptions{
			AppConfig: cfg,
			Retrier:   dispatch.NewRetrier(svc),
			Logger:    log,
		})
		if err != nil {
			zapLog.Fatal("failed to create retry-failed-actions handler", zap.Error(err))
		}
		if jw := camunda.StartWorker(zeebe.Zeebe(), rfa.TaskType, wcfg, handler.Handle, log); jw != nil {
			workers = append(workers, jw)
		}
	}

	zapLog.Info("Job workers registered", zap.Int("count", len(workers)))
	return workers
}
