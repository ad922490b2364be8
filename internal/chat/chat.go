// Package chat integrates with the hosted chat provider: it mirrors user
// identities into the provider and mints client-side access tokens.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/linguahub/linguahub/internal/domain"
	"github.com/linguahub/linguahub/pkg/httpclient"
)

// Client talks to the chat provider's server-side API and mints client tokens.
type Client struct {
	http      *httpclient.CircuitBreakerClient
	baseURL   string
	apiKey    string
	apiSecret []byte
}

// NewClient creates a chat provider client.
func NewClient(http *httpclient.CircuitBreakerClient, baseURL, apiKey, apiSecret string) *Client {
	return &Client{
		http:      http,
		baseURL:   baseURL,
		apiKey:    apiKey,
		apiSecret: []byte(apiSecret),
	}
}

// UpsertUser creates or updates the user's identity in the chat provider so
// the chat UI can resolve names and avatars.
func (c *Client) UpsertUser(ctx context.Context, profile domain.PublicProfile) error {
	payload := map[string]any{
		"users": map[string]any{
			profile.ID: map[string]string{
				"id":    profile.ID,
				"name":  profile.Name,
				"image": profile.AvatarURL,
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal chat identity: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/users?api_key="+c.apiKey, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	serverToken, err := c.serverToken()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", serverToken)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("upsert chat user: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpclient.ParseResponseError(resp, "chat provider")
	}
	_ = resp.Body.Close()
	return nil
}

// TokenFor mints a client-side chat token for the user. The provider expects
// an HS256 JWT over the API secret carrying only the user ID; expiry is
// managed provider-side.
func (c *Client) TokenFor(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
	})
	signed, err := token.SignedString(c.apiSecret)
	if err != nil {
		return "", fmt.Errorf("sign chat token: %w", err)
	}
	return signed, nil
}

// serverToken mints the server-side token used to authenticate API calls.
func (c *Client) serverToken() (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"server": true,
	})
	signed, err := token.SignedString(c.apiSecret)
	if err != nil {
		return "", fmt.Errorf("sign chat server token: %w", err)
	}
	return signed, nil
}
