package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTelegramSender_NilWithoutToken(t *testing.T) {
	assert.Nil(t, NewTelegramSender("  ", nil))
}

func TestTelegramSender_SendMessage(t *testing.T) {
	var got telegramRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer srv.Close()

	sender := NewTelegramSender("123:abc", nil, WithTelegramBaseURL(srv.URL), WithTelegramHTTPClient(srv.Client()))
	err := sender.SendMessage(context.Background(), "-1001", "*hola*")
	require.NoError(t, err)

	assert.Equal(t, "/bot123:abc/sendMessage", path)
	assert.Equal(t, "-1001", got.ChatID)
	assert.Equal(t, "*hola*", got.Text)
	assert.Equal(t, "Markdown", got.ParseMode)
	assert.True(t, got.DisableWebPagePreview)
}

func TestTelegramSender_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	sender := NewTelegramSender("123:abc", nil, WithTelegramBaseURL(srv.URL))
	err := sender.SendMessage(context.Background(), "-1001", "hola")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegramSender_OKFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"flood"}`))
	}))
	defer srv.Close()

	sender := NewTelegramSender("123:abc", nil, WithTelegramBaseURL(srv.URL))
	assert.Error(t, sender.SendMessage(context.Background(), "-1001", "hola"))
}

func TestTelegramSender_RequiresChatID(t *testing.T) {
	sender := NewTelegramSender("123:abc", nil)
	assert.Error(t, sender.SendMessage(context.Background(), " ", "hola"))
}
