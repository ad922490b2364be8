// Package oauth verifies Google sign-in credentials against Google's
// tokeninfo endpoint.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	apperrors "github.com/linguahub/linguahub/pkg/errors"
	"github.com/linguahub/linguahub/pkg/httpclient"
)

// GoogleIdentity is the subset of tokeninfo claims the service uses.
type GoogleIdentity struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Audience      string `json:"aud"`
}

// GoogleVerifier validates Google ID tokens.
type GoogleVerifier struct {
	http         *httpclient.CircuitBreakerClient
	tokenInfoURL string
	clientID     string
}

// NewGoogleVerifier creates a verifier for the configured OAuth client.
func NewGoogleVerifier(http *httpclient.CircuitBreakerClient, tokenInfoURL, clientID string) *GoogleVerifier {
	return &GoogleVerifier{
		http:         http,
		tokenInfoURL: tokenInfoURL,
		clientID:     clientID,
	}
}

// Verify checks the ID token with Google and returns the verified identity.
// Tokens minted for another OAuth client or with an unverified email are rejected.
func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (*GoogleIdentity, error) {
	resp, err := v.http.Get(ctx, v.tokenInfoURL+"?id_token="+url.QueryEscape(idToken))
	if err != nil {
		return nil, fmt.Errorf("verify google token: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, apperrors.Unauthorized("google credential rejected")
	}
	defer func() { _ = resp.Body.Close() }()

	var identity GoogleIdentity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, fmt.Errorf("decode tokeninfo response: %w", err)
	}

	if v.clientID != "" && identity.Audience != v.clientID {
		return nil, apperrors.Unauthorized("google credential issued for another client")
	}
	if identity.EmailVerified != "true" {
		return nil, apperrors.Unauthorized("google account email not verified")
	}
	if identity.Email == "" {
		return nil, apperrors.Unauthorized("google credential carries no email")
	}

	return &identity, nil
}
