package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/linguahub/linguahub/pkg/httpclient"
)

// APISender delivers mail through an HTTP delivery API. Requests go through
// a retrying client behind a circuit breaker so a flapping provider cannot
// stall the calling request path.
type APISender struct {
	client *httpclient.CircuitBreakerClient
	url    string
	apiKey string
	from   string
}

// NewAPISender creates a sender targeting the given delivery API endpoint.
func NewAPISender(client *httpclient.CircuitBreakerClient, url, apiKey, from string) *APISender {
	return &APISender{
		client: client,
		url:    url,
		apiKey: apiKey,
		from:   from,
	}
}

// Name returns the name of this sender.
func (s *APISender) Name() string {
	return "mail-api"
}

// Send posts the message to the delivery API.
func (s *APISender) Send(ctx context.Context, msg *Message) error {
	payload := struct {
		From string `json:"from"`
		*Message
	}{From: s.from, Message: msg}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpclient.ParseResponseError(resp, "mail delivery API")
	}
	_ = resp.Body.Close()
	return nil
}
