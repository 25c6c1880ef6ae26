// Package config loads the core's runtime configuration from environment
// variables (with an optional YAML file underneath), validating the
// result before the rest of the application starts.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/bissquit/apimonitor/internal/domain"
)

// envPrefix is the APIMON_-prefixed override namespace; bare names
// (DATABASE_URL, MAIL_HOST, ...) are also accepted for drop-in
// compatibility with existing deployments.
const envPrefix = "APIMON_"

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `koanf:"format" validate:"omitempty,oneof=json text"`
}

// DatabaseConfig holds the Postgres pool settings.
type DatabaseConfig struct {
	URL             string        `koanf:"url" validate:"required"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts"`
	MaxOpenConns    int32         `koanf:"max_open_conns"`
	MaxIdleConns    int32         `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

// ServerConfig holds the ambient ops HTTP surface settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
}

// SecretsConfig holds the Secret Store's key material.
type SecretsConfig struct {
	EncryptionSecret string `koanf:"encryption_secret" validate:"required"`
}

// MailConfig holds the EMAIL sink's SMTP settings.
type MailConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Host        string `koanf:"host" validate:"required_if=Enabled true"`
	Port        int    `koanf:"port"`
	Username    string `koanf:"username"`
	Password    string `koanf:"password"`
	FromAddress string `koanf:"from_address" validate:"required_if=Enabled true"`
	ToAddress   string `koanf:"to_address" validate:"required_if=Enabled true"`
}

// SlackConfig holds the SLACK sink's webhook settings.
type SlackConfig struct {
	Enabled    bool   `koanf:"enabled"`
	WebhookURL string `koanf:"webhook_url" validate:"required_if=Enabled true"`
}

// WebhookConfig holds the generic WEBHOOK sink's settings.
type WebhookConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url" validate:"required_if=Enabled true"`
}

// AlertsConfig holds the Alert Engine's policy gates and worker pool.
type AlertsConfig struct {
	FailureThreshold int           `koanf:"failure_threshold" validate:"min=1"`
	DedupWindow      time.Duration `koanf:"dedup_window"`
	NumWorkers       int           `koanf:"num_workers" validate:"min=1"`
	QueueSize        int           `koanf:"queue_size" validate:"min=1"`
	Mail             MailConfig    `koanf:"mail"`
	Slack            SlackConfig   `koanf:"slack"`
	Webhook          WebhookConfig `koanf:"webhook"`
}

// SchedulerConfig holds the admission scheduler's cadence and concurrency
// bound, set via the MAX_CONCURRENT_CHECKS env var.
type SchedulerConfig struct {
	TickInterval        time.Duration `koanf:"tick_interval"`
	MaxConcurrentChecks int           `koanf:"max_concurrent_checks" validate:"min=1"`
}

// RetentionConfig holds the three-tier sweeper's absolute windows and
// sweep cadence.
type RetentionConfig struct {
	CheckResultWindow time.Duration `koanf:"check_result_window"`
	AlertWindow       time.Duration `koanf:"alert_window"`
	PlanSweepInterval time.Duration `koanf:"plan_sweep_interval"`
}

// Config is the fully loaded, validated configuration for one core
// process.
type Config struct {
	Log       LogConfig       `koanf:"log"`
	Database  DatabaseConfig  `koanf:"database"`
	Server    ServerConfig    `koanf:"server"`
	Secrets   SecretsConfig   `koanf:"secrets"`
	Alerts    AlertsConfig    `koanf:"alerts"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Retention RetentionConfig `koanf:"retention"`
}

func defaults() *koanf.Koanf {
	k := koanf.New(".")
	_ = k.Load(confmap.Provider(map[string]interface{}{
		"log.level":                       "info",
		"log.format":                      "json",
		"database.connect_timeout":        "10s",
		"database.connect_attempts":       5,
		"database.max_open_conns":         20,
		"database.max_idle_conns":         5,
		"database.conn_max_lifetime":      "30m",
		"server.host":                     "0.0.0.0",
		"server.port":                     "8080",
		"server.metrics_port":             "9090",
		"server.read_timeout":             "10s",
		"server.read_header_timeout":      "5s",
		"server.write_timeout":            "10s",
		"server.idle_timeout":             "60s",
		"alerts.failure_threshold":        3,
		"alerts.dedup_window":             "15m",
		"alerts.num_workers":              5,
		"alerts.queue_size":               256,
		"alerts.mail.port":                587,
		"scheduler.tick_interval":         "1s",
		"scheduler.max_concurrent_checks": 20,
		"retention.check_result_window":   "720h",
		"retention.alert_window":          "2160h",
		"retention.plan_sweep_interval":   "6h",
	}, "."), nil)
	return k
}

// bareEnvAliases maps the bare env var names directly to the dotted koanf
// key they populate, for drop-in compatibility alongside the APIMON_-
// prefixed namespace.
var bareEnvAliases = map[string]string{
	"DATABASE_URL":          "database.url",
	"ENCRYPTION_SECRET":     "secrets.encryption_secret",
	"MAIL_HOST":             "alerts.mail.host",
	"MAIL_PORT":             "alerts.mail.port",
	"MAIL_USERNAME":         "alerts.mail.username",
	"MAIL_PASSWORD":         "alerts.mail.password",
	"FAILURE_THRESHOLD":     "alerts.failure_threshold",
	"DEDUP_WINDOW_MINUTES":  "alerts.dedup_window",
	"MAX_CONCURRENT_CHECKS": "scheduler.max_concurrent_checks",
}

// Load builds a Config by layering defaults, an optional YAML file at
// path (skipped if path is empty; a file that cannot be read is a
// domain.ConfigError), and environment variables, in that
// order — mirroring the teacher's practice of treating env as the final,
// highest-precedence layer. Validation failures and missing required
// fields both surface as a domain.ConfigError.
func Load(path string) (*Config, error) {
	k := defaults()

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, &domain.ConfigError{Field: path, Err: fmt.Errorf("load config file: %w", err)}
		}
	}

	// Bare-name compatibility layer for env vars used without the
	// APIMON_ prefix (DATABASE_URL, MAIL_HOST, ...). Loaded before the
	// prefixed layer so an APIMON_ override always wins.
	bare := map[string]interface{}{}
	for envName, key := range bareEnvAliases {
		value, ok := os.LookupEnv(envName)
		if !ok {
			continue
		}
		if key == "alerts.dedup_window" {
			value += "m"
		}
		bare[key] = value
	}
	if err := k.Load(confmap.Provider(bare, "."), nil); err != nil {
		return nil, &domain.ConfigError{Field: "environment", Err: fmt.Errorf("load bare environment names: %w", err)}
	}

	// Nesting uses a double underscore (APIMON_DATABASE__URL -> database.url);
	// a single underscore stays literal so snake_case leaf keys survive.
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		normalized := strings.ToLower(strings.TrimPrefix(key, envPrefix))
		normalized = strings.ReplaceAll(normalized, "__", ".")
		return normalized, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, &domain.ConfigError{Field: "environment", Err: fmt.Errorf("load environment: %w", err)}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, &domain.ConfigError{Field: "environment", Err: fmt.Errorf("unmarshal config: %w", err)}
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, &domain.ConfigError{Field: "environment", Err: fmt.Errorf("validate config: %w", err)}
	}

	return &cfg, nil
}
