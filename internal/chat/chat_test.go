package chat

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linguahub/linguahub/internal/domain"
	"github.com/linguahub/linguahub/pkg/httpclient"
)

const testSecret = "chat-api-secret-for-tests"

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hc := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.Config{Timeout: 5 * time.Second, MaxRetries: 0}),
		httpclient.DefaultCircuitBreakerConfig("chat-test"),
		logger,
	)
	return NewClient(hc, baseURL, "test-api-key", testSecret)
}

func TestTokenFor(t *testing.T) {
	c := newTestClient(t, "http://unused")

	tok, err := c.TokenFor("user-42")
	require.NoError(t, err)

	parsed, err := jwt.Parse(tok, func(token *jwt.Token) (any, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "user-42", claims["user_id"])
}

func TestUpsertUser(t *testing.T) {
	var got map[string]map[string]map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-api-key", r.URL.Query().Get("api_key"))
		assert.NotEmpty(t, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.UpsertUser(context.Background(), domain.PublicProfile{
		ID:        "user-42",
		Name:      "Mina",
		AvatarURL: "https://avatar.iran.liara.run/public/7.png",
	})

	require.NoError(t, err)
	assert.Equal(t, "Mina", got["users"]["user-42"]["name"])
	assert.Equal(t, "https://avatar.iran.liara.run/public/7.png", got["users"]["user-42"]["image"])
}

func TestUpsertUserErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.UpsertUser(context.Background(), domain.PublicProfile{ID: "user-42", Name: "Mina"})

	assert.Error(t, err)
}
