package qualify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/lead-analyzer/internal/analyzer"
	"github.com/wolfman30/lead-analyzer/internal/archive"
	"github.com/wolfman30/lead-analyzer/internal/audit"
	"github.com/wolfman30/lead-analyzer/internal/config"
	"github.com/wolfman30/lead-analyzer/internal/events"
	"github.com/wolfman30/lead-analyzer/internal/leads"
	"github.com/wolfman30/lead-analyzer/internal/notify"
	"github.com/wolfman30/lead-analyzer/pkg/logging"
)

type stubTenants struct {
	tenant *config.Tenant
	err    error
	calls  int
}

func (s *stubTenants) Get(context.Context, string) (*config.Tenant, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.tenant == nil {
		return &config.Tenant{}, nil
	}
	return s.tenant, nil
}

type stubAudit struct {
	records []audit.Record
	err     error
}

func (s *stubAudit) Log(_ context.Context, rec audit.Record) error {
	s.records = append(s.records, rec)
	return s.err
}

type stubEvents struct {
	events []events.LeadAnalyzedV1
}

func (s *stubEvents) PublishLeadAnalyzed(_ context.Context, evt events.LeadAnalyzedV1) error {
	s.events = append(s.events, evt)
	return nil
}

func (s *stubEvents) Close() error { return nil }

type stubArchiver struct {
	inputs []archive.ArchiveInput
}

func (s *stubArchiver) Archive(_ context.Context, in archive.ArchiveInput) {
	s.inputs = append(s.inputs, in)
}

type stubQueue struct {
	mu   sync.Mutex
	jobs []*notify.LeadNotification
	err  error
}

func (s *stubQueue) EnqueueHotLead(_ context.Context, _, _, _ string, n *notify.LeadNotification) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.jobs = append(s.jobs, n)
	return "job-1", nil
}

type stubRecorder struct {
	classes   []string
	latencies int
}

func (s *stubRecorder) ObserveAnalysis(classification string, _ int) {
	s.classes = append(s.classes, classification)
}

func (s *stubRecorder) ObserveAnalyzeLatency(float64) { s.latencies++ }

func hotConversation() []analyzer.Message {
	return []analyzer.Message{
		{Role: analyzer.RoleUser, Content: "Hola, me llamo Juan Pérez"},
		{Role: analyzer.RoleAssistant, Content: "Mucho gusto Juan, ¿en qué te ayudo?"},
		{Role: analyzer.RoleUser, Content: "mi correo es juan@example.com y mi teléfono 9513183885"},
		{Role: analyzer.RoleUser, Content: "necesito una página web urgente"},
	}
}

func coldConversation() []analyzer.Message {
	return []analyzer.Message{
		{Role: analyzer.RoleUser, Content: "hola, solo estoy viendo"},
	}
}

type pipeline struct {
	svc      *Service
	tenants  *stubTenants
	repo     *leads.InMemoryRepository
	audit    *stubAudit
	events   *stubEvents
	archiver *stubArchiver
	queue    *stubQueue
	metrics  *stubRecorder
}

func newPipeline() *pipeline {
	p := &pipeline{
		tenants:  &stubTenants{},
		repo:     leads.NewInMemoryRepository(),
		audit:    &stubAudit{},
		events:   &stubEvents{},
		archiver: &stubArchiver{},
		queue:    &stubQueue{},
		metrics:  &stubRecorder{},
	}
	p.svc = NewService(p.tenants, logging.Discard(),
		WithLeadsRepository(p.repo),
		WithAuditLogger(p.audit),
		WithEventPublisher(p.events),
		WithArchiver(p.archiver),
		WithNotificationQueue(p.queue),
		WithRecorder(p.metrics),
	)
	p.svc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return p
}

func TestQualify_HotLeadRunsFullPipeline(t *testing.T) {
	p := newPipeline()
	ctx := context.Background()

	res, err := p.svc.Qualify(ctx, Request{
		OrgID:          "org-1",
		ConversationID: "conv-1",
		Messages:       hotConversation(),
		LatestResponse: "Perfecto, te contactamos hoy.",
	})
	require.NoError(t, err)

	require.True(t, res.Analysis.IsHot)
	require.NotNil(t, res.Notification)
	assert.Equal(t, "Juan Pérez", res.Notification.Name)
	assert.NotEmpty(t, res.LeadID)
	assert.True(t, res.Notified)

	lead, err := p.repo.GetByID(ctx, "org-1", res.LeadID)
	require.NoError(t, err)
	assert.Equal(t, "juan@example.com", lead.Email)
	assert.True(t, lead.IsHot)

	require.Len(t, p.audit.records, 1)
	assert.Equal(t, res.LeadID, p.audit.records[0].LeadID)
	assert.Equal(t, len(hotConversation()), p.audit.records[0].MessageCount)

	require.Len(t, p.events.events, 1)
	assert.Equal(t, analyzer.ClassHot, p.events.events[0].Classification)
	assert.Equal(t, "conv-1", p.events.events[0].ConversationID)

	require.Len(t, p.archiver.inputs, 1)
	assert.Equal(t, "Perfecto, te contactamos hoy.", p.archiver.inputs[0].LatestResponse)

	require.Len(t, p.queue.jobs, 1)
	assert.Equal(t, []string{analyzer.ClassHot}, p.metrics.classes)
	assert.Equal(t, 1, p.metrics.latencies)
}

func TestQualify_ColdLeadSkipsNotification(t *testing.T) {
	p := newPipeline()

	res, err := p.svc.Qualify(context.Background(), Request{
		OrgID:          "org-1",
		ConversationID: "conv-2",
		Messages:       coldConversation(),
	})
	require.NoError(t, err)

	assert.False(t, res.Analysis.IsHot)
	assert.False(t, res.Notified)
	assert.Empty(t, p.archiver.inputs)
	assert.Empty(t, p.queue.jobs)
	assert.Len(t, p.audit.records, 1)
	assert.Len(t, p.events.events, 1)
}

func TestQualify_AlreadyNotifiedLeadIsNotRequeued(t *testing.T) {
	p := newPipeline()
	ctx := context.Background()
	req := Request{OrgID: "org-1", ConversationID: "conv-1", Messages: hotConversation()}

	first, err := p.svc.Qualify(ctx, req)
	require.NoError(t, err)
	require.True(t, first.Notified)
	require.NoError(t, p.repo.MarkNotified(ctx, "org-1", first.LeadID, time.Now()))

	second, err := p.svc.Qualify(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.LeadID, second.LeadID)
	assert.False(t, second.Notified)
	assert.Len(t, p.queue.jobs, 1)
}

func TestQualify_CollaboratorFailuresDoNotFail(t *testing.T) {
	p := newPipeline()
	p.audit.err = errors.New("db down")
	p.queue.err = errors.New("sqs down")

	res, err := p.svc.Qualify(context.Background(), Request{
		OrgID:          "org-1",
		ConversationID: "conv-1",
		Messages:       hotConversation(),
	})
	require.NoError(t, err)
	assert.True(t, res.Analysis.IsHot)
	assert.False(t, res.Notified)
}

func TestQualify_Validation(t *testing.T) {
	p := newPipeline()
	ctx := context.Background()

	_, err := p.svc.Qualify(ctx, Request{ConversationID: "c"})
	assert.ErrorIs(t, err, ErrMissingOrgID)

	_, err = p.svc.Qualify(ctx, Request{OrgID: "org-1"})
	assert.ErrorIs(t, err, ErrMissingConversation)

	_, err = p.svc.Qualify(ctx, Request{
		OrgID:          "org-1",
		ConversationID: "c",
		Messages:       []analyzer.Message{{Role: "system", Content: "x"}},
	})
	assert.ErrorIs(t, err, analyzer.ErrInvalidMessage)
}

func TestAnalyze_HasNoSideEffects(t *testing.T) {
	p := newPipeline()

	res, err := p.svc.Analyze(context.Background(), Request{OrgID: "org-1", Messages: hotConversation()})
	require.NoError(t, err)
	assert.True(t, res.Analysis.IsHot)
	assert.NotNil(t, res.Notification)
	assert.Empty(t, res.LeadID)

	assert.Empty(t, p.audit.records)
	assert.Empty(t, p.events.events)
	assert.Empty(t, p.queue.jobs)
	assert.Len(t, p.metrics.classes, 1)
}

func TestService_TenantCatalogIsUsedAndCached(t *testing.T) {
	p := newPipeline()
	p.tenants.tenant = &config.Tenant{
		Services: []analyzer.ServiceCategory{{Name: "Diseño de Logos", Keywords: []string{"logo"}}},
	}
	ctx := context.Background()
	req := Request{OrgID: "org-1", Messages: []analyzer.Message{{Role: analyzer.RoleUser, Content: "quiero un logo nuevo"}}}

	res, err := p.svc.Analyze(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, res.Analysis.Info)
	require.NotNil(t, res.Analysis.Info.Service)
	assert.Equal(t, "Diseño de Logos", *res.Analysis.Info.Service)

	_, err = p.svc.Analyze(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, p.tenants.calls)
}

func TestService_TenantErrorFallsBackToDefaults(t *testing.T) {
	p := newPipeline()
	p.tenants.err = errors.New("unknown org")

	res, err := p.svc.Analyze(context.Background(), Request{OrgID: "org-x", Messages: hotConversation()})
	require.NoError(t, err)
	assert.True(t, res.Analysis.IsHot)
}

func TestWithArchiver_IgnoresTypedNil(t *testing.T) {
	var ta *archive.TranscriptArchiver
	svc := NewService(&stubTenants{}, logging.Discard(), WithArchiver(ta))
	assert.Nil(t, svc.archiver)
}
