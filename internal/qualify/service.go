// Package qualify runs the lead pipeline around the analyzer: persistence,
// audit, events, archival and hot-lead notification.
package qualify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/lead-analyzer/internal/analyzer"
	"github.com/wolfman30/lead-analyzer/internal/archive"
	"github.com/wolfman30/lead-analyzer/internal/audit"
	"github.com/wolfman30/lead-analyzer/internal/config"
	"github.com/wolfman30/lead-analyzer/internal/events"
	"github.com/wolfman30/lead-analyzer/internal/leads"
	"github.com/wolfman30/lead-analyzer/internal/notify"
	"github.com/wolfman30/lead-analyzer/pkg/logging"
)

var (
	ErrMissingOrgID        = errors.New("qualify: org id required")
	ErrMissingConversation = errors.New("qualify: conversation id required")
)

// TenantStore resolves per-organization analyzer settings.
type TenantStore interface {
	Get(ctx context.Context, orgID string) (*config.Tenant, error)
}

// AuditLogger records analysis snapshots.
type AuditLogger interface {
	Log(ctx context.Context, rec audit.Record) error
}

// Archiver stores transcripts of hot leads.
type Archiver interface {
	Archive(ctx context.Context, in archive.ArchiveInput)
}

// NotificationQueue hands hot leads to the notification workers.
type NotificationQueue interface {
	EnqueueHotLead(ctx context.Context, orgID, conversationID, leadID string, n *notify.LeadNotification) (string, error)
}

// Recorder receives analysis metrics.
type Recorder interface {
	ObserveAnalysis(classification string, score int)
	ObserveAnalyzeLatency(seconds float64)
}

// Request is one conversation snapshot to score.
type Request struct {
	OrgID          string
	ConversationID string
	Messages       []analyzer.Message
	LatestResponse string
}

// Result is what callers get back for a snapshot.
type Result struct {
	Analysis     *analyzer.LeadAnalysis   `json:"analysis"`
	Notification *notify.LeadNotification `json:"notification"`
	LeadID       string                   `json:"leadId,omitempty"`
	Notified     bool                     `json:"notified"`
}

// Service qualifies conversations. Every collaborator except the tenant
// store is optional; their failures are logged and never fail a request.
type Service struct {
	tenants  TenantStore
	leads    leads.Repository
	audit    AuditLogger
	events   events.Publisher
	archiver Archiver
	queue    NotificationQueue
	metrics  Recorder
	logger   *logging.Logger
	now      func() time.Time

	mu        sync.Mutex
	analyzers map[string]*analyzer.Analyzer
}

// Option wires an optional collaborator.
type Option func(*Service)

func WithLeadsRepository(repo leads.Repository) Option {
	return func(s *Service) { s.leads = repo }
}

func WithAuditLogger(a AuditLogger) Option {
	return func(s *Service) { s.audit = a }
}

func WithEventPublisher(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

func WithArchiver(a Archiver) Option {
	return func(s *Service) {
		if ta, ok := a.(*archive.TranscriptArchiver); ok && ta == nil {
			return
		}
		s.archiver = a
	}
}

func WithNotificationQueue(q NotificationQueue) Option {
	return func(s *Service) { s.queue = q }
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

// NewService builds the pipeline.
func NewService(tenants TenantStore, logger *logging.Logger, opts ...Option) *Service {
	if tenants == nil {
		panic("qualify: tenant store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		tenants:   tenants,
		logger:    logger,
		now:       time.Now,
		analyzers: make(map[string]*analyzer.Analyzer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze scores a snapshot without side effects beyond metrics. It backs
// the streaming preview while an assistant reply is still being produced.
func (s *Service) Analyze(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.OrgID) == "" {
		return nil, ErrMissingOrgID
	}
	analysis, err := s.analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	return &Result{
		Analysis:     analysis,
		Notification: notify.FormatLeadNotification(analysis, req.Messages, s.now()),
	}, nil
}

// Qualify scores a snapshot and runs the full pipeline.
func (s *Service) Qualify(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.OrgID) == "" {
		return nil, ErrMissingOrgID
	}
	if strings.TrimSpace(req.ConversationID) == "" {
		return nil, ErrMissingConversation
	}
	analysis, err := s.analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With("org_id", req.OrgID, "conversation_id", req.ConversationID)
	result := &Result{
		Analysis:     analysis,
		Notification: notify.FormatLeadNotification(analysis, req.Messages, s.now()),
	}

	var lead *leads.Lead
	if s.leads != nil && analysis.Info != nil {
		lead, err = s.leads.Upsert(ctx, &leads.UpsertLeadRequest{
			OrgID:          req.OrgID,
			ConversationID: req.ConversationID,
			Analysis:       analysis,
		})
		if err != nil {
			logger.Warn("failed to upsert lead", "error", err)
		} else {
			result.LeadID = lead.ID
		}
	}

	if s.audit != nil {
		rec := audit.NewRecord(req.OrgID, req.ConversationID, result.LeadID, analysis, len(req.Messages))
		if err := s.audit.Log(ctx, rec); err != nil {
			logger.Warn("failed to write analysis audit", "error", err)
		}
	}

	if s.events != nil {
		evt := events.LeadAnalyzedV1{
			OrgID:          req.OrgID,
			ConversationID: req.ConversationID,
			LeadID:         result.LeadID,
			IsHot:          analysis.IsHot,
			Score:          analysis.Score,
			Confidence:     analysis.Confidence,
			Classification: analysis.Classification(),
			Signals:        analysis.Signals.Active(),
			OccurredAt:     s.now().UTC(),
		}
		if err := s.events.PublishLeadAnalyzed(ctx, evt); err != nil {
			logger.Warn("failed to publish lead analyzed event", "error", err)
		}
	}

	if !analysis.IsHot {
		return result, nil
	}

	if s.archiver != nil {
		s.archiver.Archive(ctx, archive.ArchiveInput{
			OrgID:          req.OrgID,
			ConversationID: req.ConversationID,
			LeadID:         result.LeadID,
			Messages:       req.Messages,
			LatestResponse: req.LatestResponse,
			Analysis:       analysis,
		})
	}

	switch {
	case s.queue == nil || result.Notification == nil:
	case lead != nil && lead.NotifiedAt != nil:
		logger.Debug("hot lead already notified", "lead_id", lead.ID)
	default:
		jobID, err := s.queue.EnqueueHotLead(ctx, req.OrgID, req.ConversationID, result.LeadID, result.Notification)
		if err != nil {
			logger.Error("failed to enqueue hot lead notification", "error", err)
			break
		}
		result.Notified = true
		logger.Info("hot lead queued for notification", "job_id", jobID, "lead_id", result.LeadID, "score", analysis.Score)
	}

	return result, nil
}

func (s *Service) analyze(ctx context.Context, req Request) (*analyzer.LeadAnalysis, error) {
	start := s.now()
	an := s.analyzerFor(ctx, req.OrgID)
	analysis, err := an.Analyze(ctx, req.Messages, req.LatestResponse)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveAnalysis(analysis.Classification(), analysis.Score)
		s.metrics.ObserveAnalyzeLatency(s.now().Sub(start).Seconds())
	}
	return analysis, nil
}

// analyzerFor returns the tenant's analyzer, built once from its config.
func (s *Service) analyzerFor(ctx context.Context, orgID string) *analyzer.Analyzer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if an, ok := s.analyzers[orgID]; ok {
		return an
	}

	var opts []analyzer.Option
	tenant, err := s.tenants.Get(ctx, orgID)
	if err != nil {
		s.logger.Warn("tenant config unavailable, using defaults", "error", err, "org_id", orgID)
	} else {
		opts = append(opts,
			analyzer.WithServiceCatalog(tenant.Services),
			analyzer.WithNameExclusions(tenant.NameExclusions...),
		)
	}
	an := analyzer.New(s.logger, opts...)
	if err == nil {
		s.analyzers[orgID] = an
	}
	return an
}
