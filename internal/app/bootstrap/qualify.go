package bootstrap

import (
	"database/sql"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/wolfman30/lead-analyzer/internal/archive"
	"github.com/wolfman30/lead-analyzer/internal/audit"
	appconfig "github.com/wolfman30/lead-analyzer/internal/config"
	"github.com/wolfman30/lead-analyzer/internal/events"
	"github.com/wolfman30/lead-analyzer/internal/leads"
	"github.com/wolfman30/lead-analyzer/internal/qualify"
	"github.com/wolfman30/lead-analyzer/pkg/logging"
)

// BuildArchiver returns nil unless ARCHIVE_BUCKET and AWS are configured.
func BuildArchiver(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) *archive.TranscriptArchiver {
	if awsCfg == nil || cfg.ArchiveBucket == "" {
		return nil
	}
	client := s3.NewFromConfig(*awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.AWSEndpointOverride != ""
	})
	return archive.NewTranscriptArchiver(archive.NewStore(client, cfg.ArchiveBucket, logger), logger)
}

// BuildAuditService returns nil when the audit database is disabled.
func BuildAuditService(db *sql.DB) *audit.Service {
	if db == nil {
		return nil
	}
	return audit.NewService(db)
}

// BuildEventPublisher uses Kafka when brokers are set and logs events otherwise.
func BuildEventPublisher(cfg *appconfig.Config, logger *logging.Logger) events.Publisher {
	if p := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaLeadTopic, logger); p != nil {
		return p
	}
	return events.NewLogPublisher(logger)
}

// QualifyDeps are the collaborators built elsewhere in main.
type QualifyDeps struct {
	Tenants  qualify.TenantStore
	Leads    leads.Repository
	Audit    *audit.Service
	Events   events.Publisher
	Archiver *archive.TranscriptArchiver
	Queue    qualify.NotificationQueue
	Recorder qualify.Recorder
}

// BuildQualifyService assembles the analysis pipeline.
func BuildQualifyService(deps QualifyDeps, logger *logging.Logger) *qualify.Service {
	opts := []qualify.Option{
		qualify.WithArchiver(deps.Archiver),
	}
	if deps.Leads != nil {
		opts = append(opts, qualify.WithLeadsRepository(deps.Leads))
	}
	if deps.Audit != nil {
		opts = append(opts, qualify.WithAuditLogger(deps.Audit))
	}
	if deps.Events != nil {
		opts = append(opts, qualify.WithEventPublisher(deps.Events))
	}
	if deps.Queue != nil {
		opts = append(opts, qualify.WithNotificationQueue(deps.Queue))
	}
	if deps.Recorder != nil {
		opts = append(opts, qualify.WithRecorder(deps.Recorder))
	}
	return qualify.NewService(deps.Tenants, logger, opts...)
}
