// Package notify posts workflow notifications to n8n webhooks.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/Skufu/repurpose/internal/agents"
)

// Webhook sends JSON notifications. The zero value is not usable; use New.
type Webhook struct {
	fetcher *agents.Fetcher
	logger  *zap.Logger
}

// New returns a Webhook that makes a single attempt per notification.
func New(timeout time.Duration, logger *zap.Logger) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Webhook{
		fetcher: agents.NewFetcher(&http.Client{Timeout: timeout}, agents.RetryConfig{}, nil, logger),
		logger:  logger,
	}
}

// Send POSTs payload as JSON to target. An empty target disables the
// notification. The webhook's response body is ignored.
func (w *Webhook) Send(ctx context.Context, target string, payload any) error {
	if target == "" {
		return nil
	}

	if err := w.fetcher.PostJSON(ctx, "notify", target, payload, nil); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	host := target
	if u, err := url.Parse(target); err == nil {
		host = u.Host
	}
	w.logger.Debug("notification delivered", zap.String("host", host))
	return nil
}
