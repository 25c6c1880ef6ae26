// Package email delivers alerts over SMTP, matching the MAIL_HOST/MAIL_PORT
// family of environment variables.
package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/bissquit/apimonitor/internal/domain"
)

// Config holds SMTP connection settings.
type Config struct {
	Enabled     bool
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	ToAddress   string
}

// Sender implements alerts.Sender via SMTP with opportunistic STARTTLS.
type Sender struct {
	config Config
	auth   smtp.Auth
	logger *slog.Logger
}

// New builds a Sender. Returns an error if enabled but missing required
// configuration.
func New(config Config, logger *slog.Logger) (*Sender, error) {
	if config.Enabled {
		if config.Host == "" {
			return nil, errors.New("email sender: host is required when enabled")
		}
		if config.FromAddress == "" {
			return nil, errors.New("email sender: from address is required when enabled")
		}
		if config.ToAddress == "" {
			return nil, errors.New("email sender: to address is required when enabled")
		}
	}
	if config.Port == 0 {
		config.Port = 587
	}
	if logger == nil {
		logger = slog.Default()
	}

	var auth smtp.Auth
	if config.Username != "" && config.Password != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}

	return &Sender{config: config, auth: auth, logger: logger}, nil
}

// Channel implements alerts.Sender.
func (s *Sender) Channel() domain.AlertChannel { return domain.AlertChannelEmail }

// Send implements alerts.Sender.
func (s *Sender) Send(ctx context.Context, alert *domain.Alert) error {
	if !s.config.Enabled {
		s.logger.Warn("email sender disabled, skipping delivery", "alert_id", alert.ID)
		return nil
	}
	return s.sendEmail(ctx, alert.Title, alert.Message)
}

func (s *Sender) sendEmail(ctx context.Context, subject, body string) error {
	msg := s.buildMessage(subject, body)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	defer func() { _ = conn.Close() }()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	defer func() { _ = client.Close() }()

	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsConfig := &tls.Config{ServerName: s.config.Host, MinVersion: tls.VersionTLS12}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if s.auth != nil {
		if err := client.Auth(s.auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	from := extractEmail(s.config.FromAddress)
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(extractEmail(s.config.ToAddress)); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}
	return client.Quit()
}

func (s *Sender) buildMessage(subject, body string) []byte {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", s.config.FromAddress))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", s.config.ToAddress))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return []byte(msg.String())
}

func extractEmail(address string) string {
	if idx := strings.Index(address, "<"); idx != -1 {
		if end := strings.Index(address, ">"); end > idx {
			return address[idx+1 : end]
		}
	}
	return address
}
