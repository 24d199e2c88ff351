package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/lead-analyzer/pkg/logging"
)

const (
	defaultTwilioBaseURL = "https://api.twilio.com"
	whatsAppAttempts     = 3
)

// WhatsAppClient delivers a WhatsApp text to a phone number.
type WhatsAppClient interface {
	SendWhatsApp(ctx context.Context, to, body string) error
}

// WhatsAppSender posts WhatsApp messages using Twilio's Messages API.
type WhatsAppSender struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
	sleep      func(time.Duration)
	logger     *logging.Logger
}

// WhatsAppConfig holds Twilio credentials and the sending number.
type WhatsAppConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	BaseURL    string
}

// NewWhatsAppSender returns nil when credentials are missing.
func NewWhatsAppSender(cfg WhatsAppConfig, logger *logging.Logger) *WhatsAppSender {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultTwilioBaseURL
	}
	return &WhatsAppSender{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.From,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		sleep:      time.Sleep,
		logger:     logger,
	}
}

// SendWhatsApp dispatches a single message, retrying transient failures.
func (s *WhatsAppSender) SendWhatsApp(ctx context.Context, to, body string) error {
	if s == nil || s.accountSID == "" || s.authToken == "" {
		return errors.New("notify: twilio credentials missing")
	}
	if strings.TrimSpace(body) == "" {
		return errors.New("notify: whatsapp body required")
	}
	toAddr, err := whatsAppAddress(to)
	if err != nil {
		return fmt.Errorf("notify: whatsapp recipient %q: %w", to, err)
	}
	fromAddr, err := whatsAppAddress(s.from)
	if err != nil {
		return fmt.Errorf("notify: whatsapp sender %q: %w", s.from, err)
	}

	ctx, span := tracer.Start(ctx, "notify.whatsapp.send")
	defer span.End()
	span.SetAttributes(attribute.String("whatsapp.to", toAddr))

	payload := url.Values{}
	payload.Set("To", toAddr)
	payload.Set("From", fromAddr)
	payload.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.accountSID)

	var lastErr error
	for attempt := 1; attempt <= whatsAppAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
		if err != nil {
			lastErr = err
			break
		}
		req.SetBasicAuth(s.accountSID, s.authToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				s.logger.Info("twilio whatsapp sent", "to", toAddr, "sid", messageSID(respBody))
				return nil
			}
			lastErr = fmt.Errorf("notify: twilio send failed: %s", formatTwilioError(resp.StatusCode, respBody))
			// Don't retry non-rate-limit 4xx errors.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				break
			}
		}

		if attempt < whatsAppAttempts {
			s.sleep(time.Duration(200+rand.Intn(300)) * time.Millisecond)
		}
	}

	if lastErr != nil {
		span.RecordError(lastErr)
	}
	return lastErr
}

func messageSID(body []byte) string {
	var parsed struct {
		SID string `json:"sid"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	return parsed.SID
}

type twilioAPIError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func formatTwilioError(status int, body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return fmt.Sprintf("status %d", status)
	}
	var parsed twilioAPIError
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != 0 {
			return fmt.Sprintf("status %d code %d: %s", status, parsed.Code, parsed.Message)
		}
		return fmt.Sprintf("status %d: %s", status, parsed.Message)
	}
	return fmt.Sprintf("status %d: %s", status, string(body))
}

var _ WhatsAppClient = (*WhatsAppSender)(nil)
