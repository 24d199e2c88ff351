package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/lead-analyzer/internal/config"
)

type mockEmailSender struct {
	mu     sync.Mutex
	sent   []EmailMessage
	failOn string
}

func (m *mockEmailSender) Send(_ context.Context, msg EmailMessage) error {
	if m.failOn != "" && msg.To == m.failOn {
		return errors.New("mock email error")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

type mockTelegram struct {
	sent []string
	err  error
}

func (m *mockTelegram) SendMessage(_ context.Context, chatID, _ string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, chatID)
	return nil
}

type mockWhatsApp struct {
	sent []string
}

func (m *mockWhatsApp) SendWhatsApp(_ context.Context, to, _ string) error {
	m.sent = append(m.sent, to)
	return nil
}

type mockTenants struct {
	tenant *config.Tenant
	err    error
}

func (m *mockTenants) Get(_ context.Context, orgID string) (*config.Tenant, error) {
	if m.err != nil {
		return nil, m.err
	}
	t := *m.tenant
	if t.Name == "" {
		t.Name = orgID
	}
	return &t, nil
}

type mockLimiter struct {
	allowed int
	calls   int
	err     error
}

func (m *mockLimiter) Allow(_ context.Context, key string) (bool, error) {
	m.calls++
	if m.err != nil {
		return false, m.err
	}
	return m.calls <= m.allowed, nil
}

type mockRecorder struct {
	outcomes map[string]int
	limited  int
}

func (m *mockRecorder) ObserveNotification(channel, status string) {
	if m.outcomes == nil {
		m.outcomes = map[string]int{}
	}
	m.outcomes[channel+":"+status]++
}

func (m *mockRecorder) ObserveRateLimited(string) { m.limited++ }

func allChannelsTenant() *config.Tenant {
	return &config.Tenant{
		Name: "Acme",
		Notifications: config.NotificationPrefs{
			EmailEnabled:       true,
			EmailRecipients:    []string{"ventas@acme.mx", " ", "director@acme.mx"},
			TelegramEnabled:    true,
			TelegramChatIDs:    []string{"-1001"},
			WhatsAppEnabled:    true,
			WhatsAppRecipients: []string{"5587654321"},
		},
	}
}

func testNotification() *LeadNotification {
	return FormatLeadNotification(hotAnalysis(), nil, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

func TestNotifyHotLead_AllChannels(t *testing.T) {
	email := &mockEmailSender{}
	tg := &mockTelegram{}
	wa := &mockWhatsApp{}
	rec := &mockRecorder{}
	svc := NewService(&mockTenants{tenant: allChannelsTenant()}, nil,
		WithEmailSender(email), WithTelegram(tg), WithWhatsApp(wa), WithRecorder(rec))

	err := svc.NotifyHotLead(context.Background(), "org-1", testNotification())
	require.NoError(t, err)

	require.Len(t, email.sent, 2)
	assert.Equal(t, "ventas@acme.mx", email.sent[0].To)
	assert.Contains(t, email.sent[0].Subject, "Juan Pérez")
	assert.Contains(t, email.sent[0].Body, "Nuevo lead caliente para Acme")
	assert.Equal(t, testNotification().Email, email.sent[0].ReplyTo)
	assert.Equal(t, "org-1", email.sent[0].Tags["org_id"])
	assert.Equal(t, []string{"-1001"}, tg.sent)
	assert.Equal(t, []string{"5587654321"}, wa.sent)
	assert.Equal(t, 2, rec.outcomes["email:sent"])
	assert.Equal(t, 1, rec.outcomes["telegram:sent"])
	assert.Equal(t, 1, rec.outcomes["whatsapp:sent"])
}

func TestNotifyHotLead_DisabledChannels(t *testing.T) {
	tenant := allChannelsTenant()
	tenant.Notifications.EmailEnabled = false
	tenant.Notifications.WhatsAppEnabled = false

	email := &mockEmailSender{}
	tg := &mockTelegram{}
	wa := &mockWhatsApp{}
	svc := NewService(&mockTenants{tenant: tenant}, nil, WithEmailSender(email), WithTelegram(tg), WithWhatsApp(wa))

	require.NoError(t, svc.NotifyHotLead(context.Background(), "org-1", testNotification()))
	assert.Empty(t, email.sent)
	assert.Empty(t, wa.sent)
	assert.Len(t, tg.sent, 1)
}

func TestNotifyHotLead_CollectsFailures(t *testing.T) {
	email := &mockEmailSender{failOn: "ventas@acme.mx"}
	tg := &mockTelegram{err: errors.New("telegram down")}
	wa := &mockWhatsApp{}
	rec := &mockRecorder{}
	svc := NewService(&mockTenants{tenant: allChannelsTenant()}, nil,
		WithEmailSender(email), WithTelegram(tg), WithWhatsApp(wa), WithRecorder(rec))

	err := svc.NotifyHotLead(context.Background(), "org-1", testNotification())
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "notify: 2 notification(s) failed"))
	assert.NotErrorIs(t, err, ErrNothingDelivered)

	// remaining recipients are still attempted
	assert.Len(t, email.sent, 1)
	assert.Len(t, wa.sent, 1)
	assert.Equal(t, 1, rec.outcomes["email:failed"])
	assert.Equal(t, 1, rec.outcomes["telegram:failed"])
}

func TestNotifyHotLead_WhatsAppRateLimited(t *testing.T) {
	tenant := allChannelsTenant()
	tenant.Notifications.WhatsAppRecipients = []string{"5587654321", "5511112222"}
	wa := &mockWhatsApp{}
	limiter := &mockLimiter{allowed: 1}
	rec := &mockRecorder{}
	svc := NewService(&mockTenants{tenant: tenant}, nil, WithWhatsApp(wa), WithWhatsAppLimiter(limiter), WithRecorder(rec))

	require.NoError(t, svc.NotifyHotLead(context.Background(), "org-1", testNotification()))
	assert.Equal(t, []string{"5587654321"}, wa.sent)
	assert.Equal(t, 1, rec.limited)
	assert.Equal(t, 1, rec.outcomes["whatsapp:rate_limited"])
}

func TestNotifyHotLead_LimiterErrorFailsOpen(t *testing.T) {
	wa := &mockWhatsApp{}
	svc := NewService(&mockTenants{tenant: allChannelsTenant()}, nil,
		WithWhatsApp(wa), WithWhatsAppLimiter(&mockLimiter{err: errors.New("redis down")}))

	require.NoError(t, svc.NotifyHotLead(context.Background(), "org-1", testNotification()))
	assert.Len(t, wa.sent, 1)
}

func TestNotifyHotLead_TenantError(t *testing.T) {
	svc := NewService(&mockTenants{err: errors.New("boom")}, nil)
	err := svc.NotifyHotLead(context.Background(), "org-1", testNotification())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get tenant config")
	assert.ErrorIs(t, err, ErrNothingDelivered)
}

func TestNotifyHotLead_AllFailedReportsNothingDelivered(t *testing.T) {
	tenant := allChannelsTenant()
	tenant.Notifications.EmailEnabled = false
	tenant.Notifications.WhatsAppEnabled = false
	svc := NewService(&mockTenants{tenant: tenant}, nil, WithTelegram(&mockTelegram{err: errors.New("telegram down")}))

	err := svc.NotifyHotLead(context.Background(), "org-1", testNotification())
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "notify: 1 notification(s) failed"))
	assert.ErrorIs(t, err, ErrNothingDelivered)
}

func TestNotifyHotLead_NilNotification(t *testing.T) {
	svc := NewService(&mockTenants{err: errors.New("not called")}, nil)
	assert.NoError(t, svc.NotifyHotLead(context.Background(), "org-1", nil))
}

func TestServiceOptions_IgnoreTypedNil(t *testing.T) {
	var sg *SendGridSender
	var tg *TelegramSender
	var wa *WhatsAppSender
	svc := NewService(&mockTenants{tenant: allChannelsTenant()}, nil, WithEmailSender(sg), WithTelegram(tg), WithWhatsApp(wa))
	assert.Nil(t, svc.email)
	assert.Nil(t, svc.telegram)
	assert.Nil(t, svc.whatsapp)

	require.NoError(t, svc.NotifyHotLead(context.Background(), "org-1", testNotification()))
}

func TestNewService_PanicsWithoutTenants(t *testing.T) {
	assert.Panics(t, func() { NewService(nil, nil) })
}
