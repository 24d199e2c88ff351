package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/wolfman30/lead-analyzer/pkg/logging"
)

const sesCharset = "UTF-8"

// sesAPI is the slice of *sesv2.Client used here.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESConfig holds configuration for AWS SES.
type SESConfig struct {
	FromEmail string
	FromName  string
	// ConfigurationSet routes send events (bounces, deliveries) when set.
	ConfigurationSet string
}

// SESSender sends lead emails through SES v2.
type SESSender struct {
	client    sesAPI
	from      string
	configSet string
	logger    *logging.Logger
}

// NewSESSender returns nil for a nil or typed-nil client.
func NewSESSender(client sesAPI, cfg SESConfig, logger *logging.Logger) *SESSender {
	if client == nil {
		return nil
	}
	if c, ok := client.(*sesv2.Client); ok && c == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	return &SESSender{
		client:    client,
		from:      fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail),
		configSet: cfg.ConfigurationSet,
		logger:    logger,
	}
}

func (s *SESSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return errors.New("notify: SES client not configured")
	}

	ctx, span := tracer.Start(ctx, "notify.ses.send")
	defer span.End()

	out, err := s.client.SendEmail(ctx, s.input(msg))
	if err != nil {
		span.RecordError(err)
		s.logger.Error("SES send failed", "error", err, "to", msg.To)
		return fmt.Errorf("notify: SES send: %w", err)
	}

	s.logger.Info("lead email sent", "provider", "ses", "to", msg.To, "message_id", aws.ToString(out.MessageId))
	return nil
}

func (s *SESSender) input(msg EmailMessage) *sesv2.SendEmailInput {
	body := &types.Body{}
	if msg.Body != "" {
		body.Text = sesContent(msg.Body)
	}
	if msg.HTML != "" {
		body.Html = sesContent(msg.HTML)
	}

	in := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{Subject: sesContent(msg.Subject), Body: body},
		},
	}
	if s.configSet != "" {
		in.ConfigurationSetName = aws.String(s.configSet)
	}
	if msg.ReplyTo != "" {
		addr := msg.ReplyTo
		if msg.ReplyToName != "" {
			addr = fmt.Sprintf("%s <%s>", msg.ReplyToName, msg.ReplyTo)
		}
		in.ReplyToAddresses = []string{addr}
	}
	for _, key := range sortedKeys(msg.Tags) {
		if v := sesTagValue(msg.Tags[key]); v != "" {
			in.EmailTags = append(in.EmailTags, types.MessageTag{Name: aws.String(key), Value: aws.String(v)})
		}
	}
	return in
}

func sesContent(data string) *types.Content {
	return &types.Content{Data: aws.String(data), Charset: aws.String(sesCharset)}
}

// sesTagValue keeps the characters SES accepts in tag values: ASCII
// letters, digits, '_', '-', '.' and '@'.
func sesTagValue(v string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '_', r == '-', r == '.', r == '@':
			return r
		}
		return -1
	}, v)
}

var _ EmailSender = (*SESSender)(nil)
