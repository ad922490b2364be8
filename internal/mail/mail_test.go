package mail

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linguahub/linguahub/pkg/httpclient"
)

func newTestSender(t *testing.T, url string) *APISender {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.Config{Timeout: 5 * time.Second, MaxRetries: 0}),
		httpclient.DefaultCircuitBreakerConfig("mail-test"),
		logger,
	)
	return NewAPISender(client, url, "test-key", "no-reply@linguahub.dev")
}

func TestVerificationMessage(t *testing.T) {
	msg := VerificationMessage("LinguaHub", "mina@example.com", "Mina", "123456", 10*time.Minute)

	assert.Equal(t, "mina@example.com", msg.To)
	assert.Contains(t, msg.Subject, "verify your email")
	assert.Contains(t, msg.HTML, "123456")
	assert.Contains(t, msg.HTML, "10 minutes")
}

func TestLoginCodeMessage(t *testing.T) {
	msg := LoginCodeMessage("LinguaHub", "mina@example.com", "Mina", "654321", 10*time.Minute)

	assert.Contains(t, msg.Subject, "login code")
	assert.Contains(t, msg.HTML, "654321")
}

func TestAPISenderSend(t *testing.T) {
	var got struct {
		From    string `json:"from"`
		To      string `json:"to"`
		Subject string `json:"subject"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := newTestSender(t, srv.URL)
	err := sender.Send(context.Background(), &Message{To: "mina@example.com", Subject: "hi", HTML: "<p>hi</p>"})

	require.NoError(t, err)
	assert.Equal(t, "no-reply@linguahub.dev", got.From)
	assert.Equal(t, "mina@example.com", got.To)
	assert.Equal(t, "hi", got.Subject)
}

func TestAPISenderSendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	sender := newTestSender(t, srv.URL)
	err := sender.Send(context.Background(), &Message{To: "mina@example.com"})

	assert.Error(t, err)
}

func TestLogSenderAlwaysSucceeds(t *testing.T) {
	sender := NewLogSender(slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, "mail-log", sender.Name())
	assert.NoError(t, sender.Send(context.Background(), &Message{To: "mina@example.com"}))
}
