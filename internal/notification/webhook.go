package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// WebhookChannel POSTs breaches as JSON to a fixed URL.
type WebhookChannel struct {
	client *resty.Client
	url    string
}

// NewWebhookChannel builds a channel with the given request timeout.
func NewWebhookChannel(url string, timeout time.Duration) *WebhookChannel {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "ticket-sla-service")
	return &WebhookChannel{client: client, url: url}
}

func (c *WebhookChannel) Notify(ctx context.Context, breach Breach) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("X-Event-Type", "sla_breached").
		SetBody(breach).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook post: unexpected status %d", resp.StatusCode())
	}
	return nil
}
