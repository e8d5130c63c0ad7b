package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/crispydelights/storefront/pkg/httpclient"
)

// Poster is satisfied by httpclient.CircuitBreakerClient.
type Poster interface {
	Post(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error)
}

// WebhookPublisher POSTs each notification as JSON to a display relay.
type WebhookPublisher struct {
	client Poster
	url    string
}

// NewWebhookPublisher creates a publisher posting to url through client.
func NewWebhookPublisher(client Poster, url string) *WebhookPublisher {
	return &WebhookPublisher{client: client, url: url}
}

func (p *WebhookPublisher) Name() string { return "webhook" }

func (p *WebhookPublisher) Publish(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	resp, err := p.client.Post(ctx, p.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post notification webhook: %w", err)
	}
	if resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, "notification webhook")
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return nil
}
