package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWhatsAppSender(t *testing.T, handler http.HandlerFunc) *WhatsAppSender {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	sender := NewWhatsAppSender(WhatsAppConfig{
		AccountSID: "AC123",
		AuthToken:  "secret",
		From:       "+525512345678",
		BaseURL:    srv.URL,
	}, nil)
	require.NotNil(t, sender)
	sender.sleep = func(time.Duration) {}
	return sender
}

func TestNewWhatsAppSender_NilWithoutCredentials(t *testing.T) {
	assert.Nil(t, NewWhatsAppSender(WhatsAppConfig{AccountSID: "AC123"}, nil))
}

func TestWhatsAppSender_Send(t *testing.T) {
	var form map[string]string
	var user, pass string
	sender := newTestWhatsAppSender(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)
		user, pass, _ = r.BasicAuth()
		require.NoError(t, r.ParseForm())
		form = map[string]string{
			"To":   r.PostForm.Get("To"),
			"From": r.PostForm.Get("From"),
			"Body": r.PostForm.Get("Body"),
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
	})

	err := sender.SendWhatsApp(context.Background(), "55 8765 4321", "Lead caliente")
	require.NoError(t, err)
	assert.Equal(t, "AC123", user)
	assert.Equal(t, "secret", pass)
	assert.Equal(t, "whatsapp:+525587654321", form["To"])
	assert.Equal(t, "whatsapp:+525512345678", form["From"])
	assert.Equal(t, "Lead caliente", form["Body"])
}

func TestWhatsAppSender_RetriesServerErrors(t *testing.T) {
	var calls int32
	sender := newTestWhatsAppSender(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})

	require.NoError(t, sender.SendWhatsApp(context.Background(), "5587654321", "hola"))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWhatsAppSender_NoRetryOnClientError(t *testing.T) {
	var calls int32
	sender := newTestWhatsAppSender(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":63007,"message":"Channel not found","status":400}`))
	})

	err := sender.SendWhatsApp(context.Background(), "5587654321", "hola")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code 63007: Channel not found")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestWhatsAppSender_RetriesRateLimit(t *testing.T) {
	var calls int32
	sender := newTestWhatsAppSender(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	require.Error(t, sender.SendWhatsApp(context.Background(), "5587654321", "hola"))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWhatsAppSender_InvalidRecipient(t *testing.T) {
	sender := newTestWhatsAppSender(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	err := sender.SendWhatsApp(context.Background(), "12", "hola")
	require.ErrorIs(t, err, ErrInvalidPhone)
}

func TestFormatTwilioError(t *testing.T) {
	assert.Equal(t, "status 500", formatTwilioError(500, nil))
	assert.Equal(t, "status 401: Authenticate", formatTwilioError(401, []byte(`{"message":"Authenticate"}`)))
	assert.Equal(t, "status 502: bad gateway", formatTwilioError(502, []byte("bad gateway")))
}
