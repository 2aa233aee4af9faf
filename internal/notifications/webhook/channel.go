// Package webhook implements the webhook alert delivery channel: platform
// detection (Slack vs generic), payload formatting, HMAC signing, and HTTP
// delivery with retry classification for the alert worker.
package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mediwatch/internal/config"
	"mediwatch/internal/types"
)

// maxResponseBodyRead limits how much of a response body is read for error
// messages and soft-failure detection.
const maxResponseBodyRead = 4096

// DeliveryError describes a failed webhook delivery and whether the worker
// should retry it.
type DeliveryError struct {
	StatusCode int
	Reason     string
	Retryable  bool

	// RetryAfter is the server-requested delay for 429 responses; zero
	// otherwise.
	RetryAfter time.Duration
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("webhook delivery failed (%d): %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("webhook delivery failed: %s", e.Reason)
}

// Compile-time assertion that Channel implements types.NotificationChannel.
var _ types.NotificationChannel = (*Channel)(nil)

// Channel delivers alert notifications over HTTPS webhooks.
type Channel struct {
	registry   *Registry
	signer     *Signer
	httpClient *http.Client
	cfg        config.WebhookConfig
	logger     *slog.Logger
	clock      types.Clock
}

// NewChannel creates a webhook channel from config.
func NewChannel(cfg config.WebhookConfig, logger *slog.Logger) *Channel {
	return NewChannelWithClient(cfg, &http.Client{Timeout: cfg.DefaultTimeout}, logger)
}

// NewChannelWithClient creates a webhook channel with a caller-supplied HTTP
// client, allowing tests to inject an httptest server client.
func NewChannelWithClient(cfg config.WebhookConfig, httpClient *http.Client, logger *slog.Logger) *Channel {
	return &Channel{
		registry:   NewRegistry(),
		signer:     NewSigner(cfg.SigningSecret.Unmask()),
		httpClient: httpClient,
		cfg:        cfg,
		logger:     logger,
		clock:      types.RealClock{},
	}
}

// SetClock overrides the clock for testing.
func (c *Channel) SetClock(clock types.Clock) {
	c.clock = clock
}

// Type returns the channel type identifier.
func (c *Channel) Type() types.ChannelType {
	return types.ChannelWebhook
}

// Format transforms the alert into a platform-specific payload. The platform
// is detected from the destination URL in config ("url") or forced via
// config["platform_override"].
func (c *Channel) Format(ctx context.Context, msg *types.AlertMessage, cfg map[string]any) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("webhook channel: message is nil")
	}

	url, _ := cfg["url"].(string)
	platform := c.registry.Detect(url, cfg)

	c.logger.InfoContext(ctx, "formatting webhook payload",
		"alert_id", msg.AlertID,
		"platform", string(platform),
	)

	return c.registry.Get(platform).Format(msg)
}

// Deliver POSTs the pre-formatted payload to the destination with signature
// headers. Destinations must be HTTPS.
//
// Response handling:
//   - 2xx: validate platform response body (Slack soft failures), success
//   - 429: retryable, carrying the Retry-After delay
//   - 410 Gone: permanent, the destination should be disabled
//   - other 4xx: permanent failure
//   - 5xx and network errors: retryable
func (c *Channel) Deliver(ctx context.Context, payload []byte, destination string) error {
	if !strings.HasPrefix(strings.ToLower(destination), "https://") {
		return &DeliveryError{Reason: "destination must use HTTPS", Retryable: false}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewReader(payload))
	if err != nil {
		return &DeliveryError{Reason: fmt.Sprintf("invalid request: %v", err), Retryable: false}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if sig := c.signer.Sign(payload, c.clock.Now()); sig != "" {
		req.Header.Set("X-MediWatch-Signature", sig)
		req.Header.Set("X-MediWatch-Event", "alert.emergency")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "webhook network error",
			"destination", destination, "error", err)
		return &DeliveryError{Reason: fmt.Sprintf("network_error: %v", err), Retryable: true}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyRead))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"), c.clock)
		c.logger.WarnContext(ctx, "webhook rate limited",
			"destination", destination, "retry_after_seconds", retryAfter.Seconds())
		return &DeliveryError{
			StatusCode: resp.StatusCode,
			Reason:     "rate_limited",
			Retryable:  true,
			RetryAfter: retryAfter,
		}

	case resp.StatusCode == http.StatusGone:
		c.logger.WarnContext(ctx, "webhook endpoint gone", "destination", destination)
		return &DeliveryError{StatusCode: resp.StatusCode, Reason: "endpoint_gone", Retryable: false}

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		platform := c.registry.Detect(destination, nil)
		if err := c.registry.Get(platform).ValidateResponse(resp.StatusCode, body); err != nil {
			// Soft failure, e.g. Slack HTTP 200 with an error body.
			c.logger.WarnContext(ctx, "webhook soft failure",
				"destination", destination, "status", resp.StatusCode, "error", err)
			return &DeliveryError{
				StatusCode: resp.StatusCode,
				Reason:     fmt.Sprintf("soft_failure: %v", err),
				Retryable:  true,
			}
		}
		c.logger.InfoContext(ctx, "webhook delivered",
			"destination", destination, "status", resp.StatusCode)
		return nil

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &DeliveryError{
			StatusCode: resp.StatusCode,
			Reason:     fmt.Sprintf("client_error: %s", truncateBody(body)),
			Retryable:  false,
		}

	default:
		return &DeliveryError{
			StatusCode: resp.StatusCode,
			Reason:     fmt.Sprintf("server_error: %s", truncateBody(body)),
			Retryable:  true,
		}
	}
}

// ShouldRetry reports whether a delivery error is transient. Unknown error
// types are assumed transient.
func (c *Channel) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Retryable
	}
	return true
}

// parseRetryAfter extracts the retry delay from a Retry-After header value,
// supporting both integer seconds and HTTP-date formats. Missing or
// unparseable headers default to 60 seconds.
func parseRetryAfter(header string, clock types.Clock) time.Duration {
	if header == "" {
		return 60 * time.Second
	}

	if seconds, err := strconv.ParseInt(header, 10, 64); err == nil {
		if seconds <= 0 {
			return time.Second
		}
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		delay := t.Sub(clock.Now())
		if delay <= 0 {
			return time.Second
		}
		return delay
	}

	return 60 * time.Second
}

// truncateBody shortens a response body for log and error messages.
func truncateBody(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
