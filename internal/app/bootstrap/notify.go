package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/lead-analyzer/internal/config"
	"github.com/wolfman30/lead-analyzer/internal/notify"
	"github.com/wolfman30/lead-analyzer/internal/ratelimit"
	"github.com/wolfman30/lead-analyzer/pkg/logging"
)

const memoryQueueBuffer = 256

// BuildEmailSender selects the email provider from EMAIL_PROVIDER, falling
// back to the logging stub when the chosen provider is not configured.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.EmailProvider {
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger); sender != nil {
			logger.Info("email provider configured", "provider", "sendgrid")
			return sender
		}
		logger.Warn("sendgrid selected but SENDGRID_API_KEY is empty; using stub email sender")
	case "ses":
		if awsCfg != nil {
			if sender := notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
				FromEmail:        cfg.EmailFrom,
				FromName:         cfg.EmailFromName,
				ConfigurationSet: cfg.SESConfigSet,
			}, logger); sender != nil {
				logger.Info("email provider configured", "provider", "ses")
				return sender
			}
		}
		logger.Warn("ses selected but aws config missing; using stub email sender")
	}
	return notify.NewStubEmailSender(logger)
}

// BuildNotifyService wires every configured channel into the dispatcher.
func BuildNotifyService(cfg *appconfig.Config, tenants notify.TenantStore, awsCfg *aws.Config, redisClient *redis.Client, recorder notify.Recorder, logger *logging.Logger) *notify.Service {
	opts := []notify.ServiceOption{
		notify.WithEmailSender(BuildEmailSender(cfg, awsCfg, logger)),
		notify.WithTelegram(notify.NewTelegramSender(cfg.TelegramBotToken, logger)),
		notify.WithWhatsApp(notify.NewWhatsAppSender(notify.WhatsAppConfig{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			From:       cfg.TwilioWhatsAppFrom,
		}, logger)),
	}
	if limiter := ratelimit.New(redisClient, cfg.WhatsAppRateLimit, cfg.WhatsAppRateWindow); limiter != nil {
		opts = append(opts, notify.WithWhatsAppLimiter(limiter))
	}
	if recorder != nil {
		opts = append(opts, notify.WithRecorder(recorder))
	}
	return notify.NewService(tenants, logger, opts...)
}

// BuildDeduper prefers the shared Redis marker so several instances agree.
func BuildDeduper(cfg *appconfig.Config, redisClient *redis.Client) notify.Deduper {
	if store := notify.NewRedisDedupeStore(redisClient, cfg.NotifyDedupeTTL); store != nil {
		return store
	}
	return notify.NewMemoryDedupeStore(cfg.NotifyDedupeTTL)
}

// NotificationPipeline is the queue producer and its consumer.
type NotificationPipeline struct {
	Publisher *notify.Publisher
	Worker    *notify.Worker
	// InProcess is true when the queue lives in memory, so the API must run
	// the worker itself.
	InProcess bool
	// Memory is set when InProcess is true.
	Memory *notify.MemoryQueue
}

// BuildNotificationPipeline connects the publisher and worker over SQS, or
// over an in-memory queue when USE_MEMORY_QUEUE is set or SQS is not configured.
func BuildNotificationPipeline(cfg *appconfig.Config, notifier notify.HotLeadNotifier, awsCfg *aws.Config, redisClient *redis.Client, marker notify.LeadMarker, logger *logging.Logger) NotificationPipeline {
	if logger == nil {
		logger = logging.Default()
	}
	workerOpts := []notify.WorkerOption{
		notify.WithWorkerCount(cfg.WorkerCount),
		notify.WithDeduper(BuildDeduper(cfg, redisClient)),
	}
	if marker != nil {
		workerOpts = append(workerOpts, notify.WithLeadMarker(marker))
	}

	if cfg.UseMemoryQueue || awsCfg == nil || cfg.NotifyQueueURL == "" {
		queue := notify.NewMemoryQueue(memoryQueueBuffer)
		logger.Info("notification queue configured", "backend", "memory")
		return NotificationPipeline{
			Publisher: notify.NewPublisher(queue, logger),
			Worker:    notify.NewWorker(notifier, queue, logger, workerOpts...),
			InProcess: true,
			Memory:    queue,
		}
	}

	queue := notify.NewSQSQueue(sqs.NewFromConfig(*awsCfg), cfg.NotifyQueueURL)
	logger.Info("notification queue configured", "backend", "sqs", "queue_url", cfg.NotifyQueueURL)
	return NotificationPipeline{
		Publisher: notify.NewPublisher(queue, logger),
		Worker:    notify.NewWorker(notifier, queue, logger, workerOpts...),
	}
}
