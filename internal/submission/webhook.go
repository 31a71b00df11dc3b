package submission

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
)

const (
	defaultWebhookTimeout = 8 * time.Second
	idempotencyHeader     = "Idempotency-Key"
)

// WebhookSink posts submissions as JSON to an HTTP endpoint.
type WebhookSink struct {
	endpoint string
	http     *http.Client
}

// NewWebhookSink constructs a sink for endpoint. A nil client gets a default timeout.
func NewWebhookSink(endpoint string, client *http.Client) (*WebhookSink, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("webhook sink: endpoint is required")
	}
	if client == nil {
		client = &http.Client{Timeout: defaultWebhookTimeout}
	}
	return &WebhookSink{endpoint: endpoint, http: client}, nil
}

func (s *WebhookSink) Name() string { return "webhook" }

// Deliver posts msg. Non-2xx responses are errors.
func (s *WebhookSink) Deliver(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("webhook sink: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("webhook sink: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(idempotencyHeader, msg.ID)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("webhook sink: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook sink: status %d: %s", resp.StatusCode, drainError(resp.Body))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func drainError(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 256))
	return strings.TrimSpace(string(b))
}
