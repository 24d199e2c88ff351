package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/lead-analyzer/pkg/logging"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

// TelegramClient delivers a text message to a chat.
type TelegramClient interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// TelegramSender posts messages through the Telegram Bot API.
type TelegramSender struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// TelegramOption customizes a TelegramSender.
type TelegramOption func(*TelegramSender)

// WithTelegramBaseURL points the sender at another Bot API host.
func WithTelegramBaseURL(baseURL string) TelegramOption {
	return func(s *TelegramSender) {
		if baseURL != "" {
			s.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithTelegramHTTPClient overrides the HTTP client.
func WithTelegramHTTPClient(client *http.Client) TelegramOption {
	return func(s *TelegramSender) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// NewTelegramSender returns nil when no bot token is configured.
func NewTelegramSender(token string, logger *logging.Logger, opts ...TelegramOption) *TelegramSender {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &TelegramSender{
		token:      token,
		baseURL:    defaultTelegramBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type telegramRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// SendMessage sends Markdown text to chatID.
func (s *TelegramSender) SendMessage(ctx context.Context, chatID, text string) error {
	if s == nil || s.token == "" {
		return errors.New("notify: telegram bot token missing")
	}
	if strings.TrimSpace(chatID) == "" {
		return errors.New("notify: telegram chat id required")
	}

	ctx, span := tracer.Start(ctx, "notify.telegram.send")
	defer span.End()
	span.SetAttributes(attribute.String("telegram.chat_id", chatID))

	payload, err := json.Marshal(telegramRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "Markdown",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("notify: encode telegram message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("notify: telegram send failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var parsed telegramResponse
	_ = json.Unmarshal(body, &parsed)
	if resp.StatusCode >= 300 || !parsed.OK {
		err := fmt.Errorf("notify: telegram returned status %d: %s", resp.StatusCode, parsed.Description)
		span.RecordError(err)
		s.logger.Error("telegram send failed", "status", resp.StatusCode, "chat_id", chatID, "description", parsed.Description)
		return err
	}

	s.logger.Info("telegram message sent", "chat_id", chatID)
	return nil
}

var _ TelegramClient = (*TelegramSender)(nil)
