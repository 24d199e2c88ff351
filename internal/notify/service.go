package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/lead-analyzer/internal/config"
	"github.com/wolfman30/lead-analyzer/pkg/logging"
)

var tracer = otel.Tracer("leadanalyzer/notify")

const (
	ChannelEmail    = "email"
	ChannelTelegram = "telegram"
	ChannelWhatsApp = "whatsapp"

	statusSent    = "sent"
	statusFailed  = "failed"
	statusLimited = "rate_limited"
)

// ErrNothingDelivered is wrapped when no recipient received the notification.
var ErrNothingDelivered = errors.New("notify: nothing delivered")

// TenantStore retrieves per-organization routing.
type TenantStore interface {
	Get(ctx context.Context, orgID string) (*config.Tenant, error)
}

// Limiter gates outbound sends per tenant.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Recorder receives notification outcome metrics.
type Recorder interface {
	ObserveNotification(channel, status string)
	ObserveRateLimited(channel string)
}

// Service fans hot-lead notifications out to every channel a tenant enabled.
type Service struct {
	tenants  TenantStore
	email    EmailSender
	telegram TelegramClient
	whatsapp WhatsAppClient
	limiter  Limiter
	metrics  Recorder
	logger   *logging.Logger
}

// ServiceOption wires optional channels and collaborators.
type ServiceOption func(*Service)

func WithEmailSender(sender EmailSender) ServiceOption {
	return func(s *Service) {
		if sender != nil && !isNilEmailSender(sender) {
			s.email = sender
		}
	}
}

func WithTelegram(client TelegramClient) ServiceOption {
	return func(s *Service) {
		if c, ok := client.(*TelegramSender); ok && c == nil {
			return
		}
		s.telegram = client
	}
}

func WithWhatsApp(client WhatsAppClient) ServiceOption {
	return func(s *Service) {
		if c, ok := client.(*WhatsAppSender); ok && c == nil {
			return
		}
		s.whatsapp = client
	}
}

// WithWhatsAppLimiter caps WhatsApp sends per tenant.
func WithWhatsAppLimiter(limiter Limiter) ServiceOption {
	return func(s *Service) {
		s.limiter = limiter
	}
}

func WithRecorder(recorder Recorder) ServiceOption {
	return func(s *Service) {
		s.metrics = recorder
	}
}

// NewService creates a notification service.
func NewService(tenants TenantStore, logger *logging.Logger, opts ...ServiceOption) *Service {
	if tenants == nil {
		panic("notify: tenant store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{tenants: tenants, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NotifyHotLead delivers n to every configured recipient of orgID. Every
// channel is attempted; failures are summarized in the returned error.
func (s *Service) NotifyHotLead(ctx context.Context, orgID string, n *LeadNotification) error {
	if n == nil {
		return nil
	}
	tenant, err := s.tenants.Get(ctx, orgID)
	if err != nil {
		s.logger.Error("notify: failed to get tenant config", "error", err, "org_id", orgID)
		return fmt.Errorf("notify: get tenant config: %w", errors.Join(err, ErrNothingDelivered))
	}

	ctx, span := tracer.Start(ctx, "notify.hot_lead")
	defer span.End()
	span.SetAttributes(attribute.String("leadanalyzer.org_id", orgID), attribute.Int("leadanalyzer.score", n.Score))

	prefs := tenant.Notifications
	var errs []error
	sent := 0

	if prefs.EmailEnabled && s.email != nil {
		subject := emailSubject(n, tenant.Name)
		body := emailBody(n, tenant.Name)
		for _, to := range cleanList(prefs.EmailRecipients) {
			err := s.email.Send(ctx, leadEmail(orgID, to, subject, body, n))
			s.record(ChannelEmail, err)
			if err != nil {
				s.logger.Error("notify: hot lead email failed", "error", err, "org_id", orgID, "to", to)
				errs = append(errs, err)
				continue
			}
			sent++
		}
	}

	if prefs.TelegramEnabled && s.telegram != nil {
		text := telegramText(n, tenant.Name)
		for _, chatID := range cleanList(prefs.TelegramChatIDs) {
			err := s.telegram.SendMessage(ctx, chatID, text)
			s.record(ChannelTelegram, err)
			if err != nil {
				s.logger.Error("notify: hot lead telegram failed", "error", err, "org_id", orgID, "chat_id", chatID)
				errs = append(errs, err)
				continue
			}
			sent++
		}
	}

	if prefs.WhatsAppEnabled && s.whatsapp != nil {
		body := whatsAppBody(n, tenant.Name)
		for _, to := range cleanList(prefs.WhatsAppRecipients) {
			if !s.allowWhatsApp(ctx, orgID) {
				continue
			}
			err := s.whatsapp.SendWhatsApp(ctx, to, body)
			s.record(ChannelWhatsApp, err)
			if err != nil {
				s.logger.Error("notify: hot lead whatsapp failed", "error", err, "org_id", orgID, "to", to)
				errs = append(errs, err)
				continue
			}
			sent++
		}
	}

	span.SetAttributes(attribute.Int("notify.sent", sent), attribute.Int("notify.failed", len(errs)))
	if len(errs) > 0 {
		failed := len(errs)
		if sent == 0 {
			errs = append(errs, ErrNothingDelivered)
		}
		err := fmt.Errorf("notify: %d notification(s) failed: %w", failed, errors.Join(errs...))
		span.RecordError(err)
		return err
	}
	s.logger.Info("notify: hot lead notifications sent", "org_id", orgID, "sent", sent)
	return nil
}

func (s *Service) allowWhatsApp(ctx context.Context, orgID string) bool {
	if s.limiter == nil {
		return true
	}
	ok, err := s.limiter.Allow(ctx, ChannelWhatsApp+":"+orgID)
	if err != nil {
		// fail open on limiter errors
		s.logger.Warn("notify: whatsapp rate limit check failed", "error", err, "org_id", orgID)
		return true
	}
	if !ok {
		s.logger.Warn("notify: whatsapp rate limit reached", "org_id", orgID)
		if s.metrics != nil {
			s.metrics.ObserveRateLimited(ChannelWhatsApp)
			s.metrics.ObserveNotification(ChannelWhatsApp, statusLimited)
		}
	}
	return ok
}

func (s *Service) record(channel string, err error) {
	if s.metrics == nil {
		return
	}
	status := statusSent
	if err != nil {
		status = statusFailed
	}
	s.metrics.ObserveNotification(channel, status)
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func isNilEmailSender(sender EmailSender) bool {
	switch v := sender.(type) {
	case *SendGridSender:
		return v == nil
	case *SESSender:
		return v == nil
	case *StubEmailSender:
		return v == nil
	}
	return false
}
