package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/lead-analyzer/cmd/mainconfig"
	"github.com/wolfman30/lead-analyzer/internal/api/router"
	"github.com/wolfman30/lead-analyzer/internal/app/bootstrap"
	"github.com/wolfman30/lead-analyzer/internal/audit"
	appconfig "github.com/wolfman30/lead-analyzer/internal/config"
	"github.com/wolfman30/lead-analyzer/internal/leads"
	"github.com/wolfman30/lead-analyzer/internal/observability/metrics"
	"github.com/wolfman30/lead-analyzer/internal/qualify"
	"github.com/wolfman30/lead-analyzer/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting lead-analyzer API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tenants, err := appconfig.LoadTenants(cfg.NotifyRoutingPath)
	if err != nil {
		logger.Error("failed to load tenant routing", "error", err)
		os.Exit(1)
	}
	logger.Info("tenant routing loaded", "tenants", len(tenants.OrgIDs()), "path", cfg.NotifyRoutingPath)

	awsCfg, err := loadAWS(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	pool, err := bootstrap.BuildPostgresPool(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}
	auditDB, err := bootstrap.BuildSQLDB(cfg)
	if err != nil {
		logger.Error("failed to open audit database", "error", err)
		os.Exit(1)
	}
	if auditDB != nil {
		defer auditDB.Close()
	}
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	metricsHandler, leadMetrics := setupMetrics()
	leadsRepo := bootstrap.BuildLeadsRepository(pool, logger)

	notifier := bootstrap.BuildNotifyService(cfg, tenants, awsCfg, redisClient, leadMetrics, logger)
	pipeline := bootstrap.BuildNotificationPipeline(cfg, notifier, awsCfg, redisClient, leadsRepo, logger)
	if pipeline.InProcess {
		pipeline.Worker.Start(ctx)
	}

	eventPublisher := bootstrap.BuildEventPublisher(cfg, logger)
	defer eventPublisher.Close()

	auditSvc := bootstrap.BuildAuditService(auditDB)

	svc := bootstrap.BuildQualifyService(bootstrap.QualifyDeps{
		Tenants:  tenants,
		Leads:    leadsRepo,
		Audit:    auditSvc,
		Events:   eventPublisher,
		Archiver: bootstrap.BuildArchiver(cfg, awsCfg, logger),
		Queue:    pipeline.Publisher,
		Recorder: leadMetrics,
	}, logger)

	// Setup router
	r := router.New(&router.Config{
		Logger:             logger,
		AnalyzeHandler:     qualify.NewHandler(svc, logger),
		StreamHandler:      qualify.NewStreamHandler(svc, logger),
		LeadsHandler:       leads.NewHandler(leadsRepo, logger),
		AuditHandler:       auditHandler(auditSvc, logger),
		MetricsHandler:     metricsHandler,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.HTTPRateLimitRPS,
		RateLimitBurst:     cfg.HTTPRateLimitBurst,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	cancel()
	if pipeline.InProcess {
		pipeline.Worker.Wait()
		if queued, inFlight := pipeline.Memory.Pending(); queued+inFlight > 0 {
			logger.Warn("dropping unsent notification jobs", "queued", queued, "in_flight", inFlight)
		}
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// loadAWS returns nil when nothing configured needs AWS.
func loadAWS(ctx context.Context, cfg *appconfig.Config) (*aws.Config, error) {
	if !mainconfig.NeedsAWS(cfg) {
		return nil, nil
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &awsCfg, nil
}

func setupMetrics() (http.Handler, *metrics.LeadMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewLeadMetrics(reg)
}

func auditHandler(svc *audit.Service, logger *logging.Logger) *audit.Handler {
	if svc == nil {
		return nil
	}
	return audit.NewHandler(svc, logger)
}
