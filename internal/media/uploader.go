// Package media uploads user-submitted avatar images to the image storage API
// and hands back a public URL.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/linguahub/linguahub/pkg/errors"
	"github.com/linguahub/linguahub/pkg/httpclient"
)

// Uploader stores avatar images and returns their public URL.
type Uploader struct {
	http   *httpclient.CircuitBreakerClient
	url    string
	apiKey string
}

// NewUploader creates an uploader targeting the image storage API.
func NewUploader(http *httpclient.CircuitBreakerClient, url, apiKey string) *Uploader {
	return &Uploader{http: http, url: url, apiKey: apiKey}
}

// UploadDataURI stores an image supplied as a data URI (the format browsers
// produce from a file picker) and returns the hosted URL.
func (u *Uploader) UploadDataURI(ctx context.Context, userID, dataURI string) (string, error) {
	if !strings.HasPrefix(dataURI, "data:image/") {
		return "", apperrors.InvalidInput("avatar must be an image data URI")
	}

	payload := map[string]string{
		"file":      dataURI,
		"folder":    "avatars",
		"public_id": userID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal upload payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+u.apiKey)

	resp, err := u.http.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", httpclient.ParseResponseError(resp, "image storage API")
	}
	defer func() { _ = resp.Body.Close() }()

	var out struct {
		SecureURL string `json:"secure_url"`
		URL       string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if out.SecureURL != "" {
		return out.SecureURL, nil
	}
	if out.URL != "" {
		return out.URL, nil
	}
	return "", fmt.Errorf("image storage API returned no URL")
}
