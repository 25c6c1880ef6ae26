// Package app wires the core's components into one running process and
// manages its startup/shutdown lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bissquit/apimonitor/internal/alerts"
	alertsemail "github.com/bissquit/apimonitor/internal/alerts/email"
	alertsslack "github.com/bissquit/apimonitor/internal/alerts/slack"
	alertswebhook "github.com/bissquit/apimonitor/internal/alerts/webhook"
	"github.com/bissquit/apimonitor/internal/config"
	"github.com/bissquit/apimonitor/internal/domain"
	"github.com/bissquit/apimonitor/internal/incidents"
	"github.com/bissquit/apimonitor/internal/pkg/ctxlog"
	"github.com/bissquit/apimonitor/internal/pkg/httputil"
	"github.com/bissquit/apimonitor/internal/pkg/metrics"
	"github.com/bissquit/apimonitor/internal/prober"
	"github.com/bissquit/apimonitor/internal/retention"
	"github.com/bissquit/apimonitor/internal/scheduler"
	"github.com/bissquit/apimonitor/internal/secrets"
	"github.com/bissquit/apimonitor/internal/store"
	storepostgres "github.com/bissquit/apimonitor/internal/store/postgres"
	"github.com/bissquit/apimonitor/internal/version"
)

// App wires every component named in the runtime and owns its lifecycle:
// the admission scheduler, the alert delivery workers, the retention
// sweeper, and the two HTTP servers (ops surface + metrics).
type App struct {
	config *config.Config
	logger *slog.Logger
	db     *pgxpool.Pool

	store store.Store

	scheduler   *scheduler.Scheduler
	alertEngine *alerts.Engine
	sweeper     *retention.Sweeper

	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc

	runCancel context.CancelFunc
}

// New builds an App from cfg: connects to Postgres, constructs the secret
// store, prober, incident engine, alert engine and its senders, the
// scheduler and the retention sweeper, and assembles the ops HTTP surface.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)

	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer connectCancel()

	db, err := storepostgres.Connect(connectCtx, storepostgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    int(cfg.Database.MaxOpenConns),
		MaxIdleConns:    int(cfg.Database.MaxIdleConns),
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	secretStore, err := secrets.New(cfg.Secrets.EncryptionSecret)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init secret store: %w", err)
	}

	st := storepostgres.New(db)
	credentialResolver := store.NewCredentialResolver(st.Credentials(), secretStore)
	p := prober.New(nil, credentialResolver, logger)

	dispatcher, err := buildDispatcher(cfg.Alerts, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("build alert dispatcher: %w", err)
	}

	alertEngine := alerts.New(st.Alerts(), dispatcher, alerts.Config{
		Policy:     alerts.Policy{FailureThreshold: cfg.Alerts.FailureThreshold, DedupWindow: cfg.Alerts.DedupWindow},
		Channels:   enabledChannels(cfg.Alerts),
		NumWorkers: cfg.Alerts.NumWorkers,
		QueueSize:  cfg.Alerts.QueueSize,
	}, logger)

	incidentEngine := incidents.New(st, alertEngine, logger)

	sched := scheduler.New(st.Endpoints(), p, incidentEngine, scheduler.Config{
		TickInterval:        cfg.Scheduler.TickInterval,
		MaxConcurrentChecks: cfg.Scheduler.MaxConcurrentChecks,
	}, logger)

	sweeper := retention.New(st, nil, retention.Config{
		CheckResultWindow:  cfg.Retention.CheckResultWindow,
		AlertWindow:        cfg.Retention.AlertWindow,
		CheckResultSweepAt: retention.Clock{Hour: 3, Minute: 0},
		AlertSweepAt:       retention.Clock{Hour: 3, Minute: 30},
		PlanSweepInterval:  cfg.Retention.PlanSweepInterval,
	}, logger)

	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	a := &App{
		config:        cfg,
		logger:        logger,
		db:            db,
		store:         st,
		scheduler:     sched,
		alertEngine:   alertEngine,
		sweeper:       sweeper,
		metricsCancel: metricsCancel,
	}

	go a.collectDBMetrics(metricsCtx)

	a.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           a.setupRouter(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())
	a.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return a, nil
}

// buildDispatcher constructs a Sender for every channel the core ships.
// The EMAIL sender is always registered, even disabled, so the dispatcher
// always has a destination for it; SLACK/WEBHOOK register the same way and
// are simply skipped by enabledChannels when their Enabled flag is off.
func buildDispatcher(cfg config.AlertsConfig, logger *slog.Logger) (*alerts.Dispatcher, error) {
	emailSender, err := alertsemail.New(alertsemail.Config{
		Enabled:     cfg.Mail.Enabled,
		Host:        cfg.Mail.Host,
		Port:        cfg.Mail.Port,
		Username:    cfg.Mail.Username,
		Password:    cfg.Mail.Password,
		FromAddress: cfg.Mail.FromAddress,
		ToAddress:   cfg.Mail.ToAddress,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create email sender: %w", err)
	}

	slackSender, err := alertsslack.New(alertsslack.Config{
		Enabled:    cfg.Slack.Enabled,
		WebhookURL: cfg.Slack.WebhookURL,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create slack sender: %w", err)
	}

	webhookSender, err := alertswebhook.New(alertswebhook.Config{
		Enabled: cfg.Webhook.Enabled,
		URL:     cfg.Webhook.URL,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create webhook sender: %w", err)
	}

	return alerts.NewDispatcher(emailSender, slackSender, webhookSender), nil
}

// enabledChannels returns the channel set the alert engine should fan an
// accepted alert out to. EMAIL is always included; SLACK/WEBHOOK are added
// when their Enabled flag is set in the alerts configuration.
func enabledChannels(cfg config.AlertsConfig) []domain.AlertChannel {
	channels := []domain.AlertChannel{domain.AlertChannelEmail}
	if cfg.Slack.Enabled {
		channels = append(channels, domain.AlertChannelSlack)
	}
	if cfg.Webhook.Enabled {
		channels = append(channels, domain.AlertChannelWebhook)
	}
	return channels
}

// Run starts the scheduler, the alert delivery workers, the retention
// sweeper, and both HTTP servers. It blocks until the main server exits.
func (a *App) Run() error {
	runCtx, runCancel := context.WithCancel(context.Background())
	a.runCancel = runCancel

	a.alertEngine.Start(runCtx)
	go a.scheduler.Run(runCtx)
	go a.sweeper.Run(runCtx)

	go func() {
		a.logger.Info("starting metrics server", "host", a.config.Server.Host, "port", a.config.Server.MetricsPort)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server", "host", a.config.Server.Host, "port", a.config.Server.Port)
	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops both HTTP servers, the scheduler, the sweeper
// and drains the alert delivery workers before closing the database pool.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	a.metricsCancel()
	if a.runCancel != nil {
		a.runCancel()
	}

	a.scheduler.Stop()
	a.sweeper.Stop()
	a.alertEngine.Stop()

	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()
	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()
	wg.Wait()

	a.db.Close()
	return errors.Join(errs...)
}

func (a *App) collectDBMetrics(ctx context.Context) {
	metrics.RecordDBPoolMetrics(a.db)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.RecordDBPoolMetrics(a.db)
		case <-ctx.Done():
			return
		}
	}
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

func (a *App) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(httputil.MetricsMiddleware)
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	return r
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
