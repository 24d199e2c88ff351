package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/lead-analyzer/cmd/mainconfig"
	"github.com/wolfman30/lead-analyzer/internal/app/bootstrap"
	appconfig "github.com/wolfman30/lead-analyzer/internal/config"
	"github.com/wolfman30/lead-analyzer/internal/notify"
	"github.com/wolfman30/lead-analyzer/internal/observability/metrics"
	"github.com/wolfman30/lead-analyzer/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.UseMemoryQueue || cfg.NotifyQueueURL == "" {
		logger.Error("notify worker needs an SQS queue; set USE_MEMORY_QUEUE=false and NOTIFY_QUEUE_URL")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsConfig, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	tenants, err := appconfig.LoadTenants(cfg.NotifyRoutingPath)
	if err != nil {
		logger.Error("failed to load tenant routing", "error", err)
		os.Exit(1)
	}
	logger.Info("tenant routing loaded", "tenants", len(tenants.OrgIDs()), "path", cfg.NotifyRoutingPath)

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}
	pool, err := bootstrap.BuildPostgresPool(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	var marker notify.LeadMarker
	if pool != nil {
		defer pool.Close()
		marker = bootstrap.BuildLeadsRepository(pool, logger)
	}

	notifier := bootstrap.BuildNotifyService(cfg, tenants, &awsConfig, redisClient, metrics.NewLeadMetrics(nil), logger)
	pipeline := bootstrap.BuildNotificationPipeline(cfg, notifier, &awsConfig, redisClient, marker, logger)
	worker := pipeline.Worker

	worker.Start(ctx)
	logger.Info("notify worker started", "workers", cfg.WorkerCount, "queue_url", cfg.NotifyQueueURL)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down notify worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("notify worker stopped")
	case <-doneCtx.Done():
		logger.Error("notify worker shutdown timed out", "error", doneCtx.Err())
	}
}
