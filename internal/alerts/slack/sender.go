// Package slack delivers alerts to a Slack Incoming Webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bissquit/apimonitor/internal/domain"
)

const defaultTimeout = 10 * time.Second

// Config holds Slack webhook sender configuration. The webhook URL is
// treated as a secret-bearing setting, not a per-alert field.
type Config struct {
	Enabled    bool
	WebhookURL string
	Timeout    time.Duration
}

// Sender implements alerts.Sender by POSTing to a Slack Incoming Webhook.
type Sender struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
}

// New builds a Sender. Returns an error if enabled but missing a webhook URL.
func New(config Config, logger *slog.Logger) (*Sender, error) {
	if config.Enabled && config.WebhookURL == "" {
		return nil, fmt.Errorf("slack sender: webhook URL is required when enabled")
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}, nil
}

// Channel implements alerts.Sender.
func (s *Sender) Channel() domain.AlertChannel { return domain.AlertChannelSlack }

// Send implements alerts.Sender.
func (s *Sender) Send(ctx context.Context, alert *domain.Alert) error {
	if !s.config.Enabled {
		s.logger.Warn("slack sender disabled, skipping delivery", "alert_id", alert.ID)
		return nil
	}

	payload := webhookPayload{
		Text: fmt.Sprintf("*%s*\n%s", alert.Title, alert.Message),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

type webhookPayload struct {
	Text string `json:"text"`
}
