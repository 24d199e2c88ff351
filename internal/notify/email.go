package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/lead-analyzer/pkg/logging"
)

const defaultFromName = "Lead Analyzer"

// EmailSender delivers one operator email. SendGrid and SES both satisfy it.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is one hot-lead email to one operator. ReplyTo points at the
// lead so operators can answer from their inbox; Tags travel as provider
// metadata (SendGrid custom args, SES message tags).
type EmailMessage struct {
	To          string
	Subject     string
	Body        string
	HTML        string
	ReplyTo     string
	ReplyToName string
	Tags        map[string]string
}

// leadEmail builds the message sent to one recipient for n.
func leadEmail(orgID, to, subject, body string, n *LeadNotification) EmailMessage {
	msg := EmailMessage{
		To:      to,
		Subject: subject,
		Body:    body,
		Tags: map[string]string{
			"source":  SourceTag,
			"org_id":  orgID,
			"urgency": n.Urgency,
		},
	}
	if n.HasEmail() {
		msg.ReplyTo = n.Email
		if n.Name != notProvided {
			msg.ReplyToName = n.Name
		}
	}
	return msg
}

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// SendGridSender sends lead emails through the SendGrid v3 API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// NewSendGridSender returns nil without an API key.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return errors.New("notify: sendgrid client not configured")
	}

	ctx, span := tracer.Start(ctx, "notify.sendgrid.send")
	defer span.End()

	resp, err := s.client.SendWithContext(ctx, s.build(msg))
	if err != nil {
		span.RecordError(err)
		s.logger.Error("sendgrid send failed", "error", err, "to", msg.To)
		return fmt.Errorf("notify: sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		s.logger.Error("sendgrid rejected email", "status", resp.StatusCode, "body", resp.Body, "to", msg.To)
		return fmt.Errorf("notify: sendgrid returned status %d", resp.StatusCode)
	}

	s.logger.Info("lead email sent", "provider", "sendgrid", "to", msg.To, "status", resp.StatusCode)
	return nil
}

func (s *SendGridSender) build(msg EmailMessage) *mail.SGMailV3 {
	html := msg.HTML
	if html == "" {
		html = msg.Body
	}
	m := mail.NewSingleEmail(mail.NewEmail(s.fromName, s.fromEmail), msg.Subject, mail.NewEmail("", msg.To), msg.Body, html)
	if msg.ReplyTo != "" {
		m.SetReplyTo(mail.NewEmail(msg.ReplyToName, msg.ReplyTo))
	}
	for _, key := range sortedKeys(msg.Tags) {
		if v := msg.Tags[key]; v != "" {
			m.Personalizations[0].SetCustomArg(key, v)
		}
	}
	m.AddCategories(SourceTag)
	return m
}

// StubEmailSender logs instead of sending.
type StubEmailSender struct {
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	s.logger.Info("stub email sender: would send lead email", "to", msg.To, "subject", msg.Subject, "reply_to", msg.ReplyTo)
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var (
	_ EmailSender = (*SendGridSender)(nil)
	_ EmailSender = (*StubEmailSender)(nil)
)
