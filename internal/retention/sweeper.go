// Package retention implements the three scheduled sweeps that bound how
// long check results and alerts live in the State Store: a daily
// check-result sweep, a daily alert sweep, and a 6-hourly per-plan sweep
// that tightens the daily one wherever a project's plan demands a shorter
// horizon.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/bissquit/apimonitor/internal/pkg/metrics"
	"github.com/bissquit/apimonitor/internal/store"
	"golang.org/x/time/rate"
)

// PlanRetention names the shorter check-result retention window a
// project's plan may impose, supplied by the configuration provider. The
// core never hardcodes plan tiers; it only accepts this mapping as input
// and takes the stricter of the two horizons.
type PlanRetention struct {
	ProjectID string
	Window    time.Duration
}

// PlanRetentionSource supplies the current per-project plan windows. The
// configuration provider owns plan assignment; the core only consumes it.
type PlanRetentionSource interface {
	PlanRetentions(ctx context.Context) ([]PlanRetention, error)
}

// Config holds the absolute retention windows and sweep cadences.
type Config struct {
	CheckResultWindow  time.Duration // absolute cap, default 30 days
	AlertWindow        time.Duration // absolute cap, default 90 days
	CheckResultSweepAt Clock         // time-of-day the check-result sweep fires, default 03:00
	AlertSweepAt       Clock         // time-of-day the alert sweep fires, default 03:30
	PlanSweepInterval  time.Duration // default 6h
	PlanSweepRate      float64       // projects/sec paced against the store, default 5
}

// Clock is a time-of-day (hour, minute) the daily sweeps are anchored to.
type Clock struct {
	Hour, Minute int
}

// DefaultConfig mirrors the documented retention schedule: 03:00 daily
// check-result sweep, 03:30 daily alert sweep, 6-hourly per-plan sweep.
func DefaultConfig() Config {
	return Config{
		CheckResultWindow:  30 * 24 * time.Hour,
		AlertWindow:        90 * 24 * time.Hour,
		CheckResultSweepAt: Clock{Hour: 3, Minute: 0},
		AlertSweepAt:       Clock{Hour: 3, Minute: 30},
		PlanSweepInterval:  6 * time.Hour,
		PlanSweepRate:      5,
	}
}

// Sweeper runs the three retention tiers on self-re-arming tickers, the
// same style as the teacher's ticker-driven Worker.run rather than a
// cron-expression parser.
type Sweeper struct {
	store  store.Store
	plans  PlanRetentionSource
	config Config
	logger *slog.Logger

	stopCh      chan struct{}
	planLimiter *rate.Limiter
}

// New builds a Sweeper. plans may be nil, in which case the per-plan tier
// degenerates to a no-op (only the absolute caps apply).
func New(st store.Store, plans PlanRetentionSource, cfg Config, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PlanSweepRate <= 0 {
		cfg.PlanSweepRate = 5
	}
	return &Sweeper{
		store:       st,
		plans:       plans,
		config:      cfg,
		logger:      logger,
		stopCh:      make(chan struct{}),
		planLimiter: rate.NewLimiter(rate.Limit(cfg.PlanSweepRate), 1),
	}
}

// Run drives all three sweeps until ctx is cancelled or Stop is called.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("starting retention sweeper",
		"check_result_window", s.config.CheckResultWindow,
		"alert_window", s.config.AlertWindow,
		"plan_sweep_interval", s.config.PlanSweepInterval,
	)

	go s.runDaily(ctx, "check_results", s.config.CheckResultSweepAt, s.sweepCheckResults)
	go s.runDaily(ctx, "alerts", s.config.AlertSweepAt, s.sweepAlerts)
	go s.runPlanSweep(ctx)

	select {
	case <-ctx.Done():
	case <-s.stopCh:
	}
}

// Stop signals all three loops to exit on their next wakeup check.
func (s *Sweeper) Stop() {
	close(s.stopCh)
}

// runDaily re-arms itself to fire at the given clock every 24h, the
// "next 03:00"/"next 03:30" arithmetic named in the environment mapping.
func (s *Sweeper) runDaily(ctx context.Context, label string, at Clock, sweep func(context.Context)) {
	for {
		wait := s.untilNext(at)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.stopCh:
			timer.Stop()
			return
		case <-timer.C:
			s.logger.Info("running daily retention sweep", "target", label)
			sweep(ctx)
		}
	}
}

func (s *Sweeper) runPlanSweep(ctx context.Context) {
	ticker := time.NewTicker(s.config.PlanSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweepPlanRetention(ctx)
		}
	}
}

// untilNext computes the duration until the next occurrence of at,
// today or tomorrow.
func (s *Sweeper) untilNext(at Clock) time.Duration {
	now := time.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour, at.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}

func (s *Sweeper) sweepCheckResults(ctx context.Context) {
	horizon := time.Now().Add(-s.config.CheckResultWindow)
	deleted, err := s.store.CheckResults().DeleteOlderThan(ctx, horizon)
	if err != nil {
		s.logger.Error("check result sweep failed", "error", err)
		return
	}
	metrics.RetentionRowsDeletedTotal.WithLabelValues("check_results").Add(float64(deleted))
	s.logger.Info("swept check results", "deleted", deleted, "horizon", horizon)
}

func (s *Sweeper) sweepAlerts(ctx context.Context) {
	horizon := time.Now().Add(-s.config.AlertWindow)
	deleted, err := s.store.Alerts().DeleteOlderThan(ctx, horizon)
	if err != nil {
		s.logger.Error("alert sweep failed", "error", err)
		return
	}
	metrics.RetentionRowsDeletedTotal.WithLabelValues("alerts").Add(float64(deleted))
	s.logger.Info("swept alerts", "deleted", deleted, "horizon", horizon)
}

// sweepPlanRetention applies the stricter-cap-wins rule: for each project
// with a plan-imposed window shorter than the absolute cap, sweep that
// project's check results down to the plan's horizon.
func (s *Sweeper) sweepPlanRetention(ctx context.Context) {
	if s.plans == nil {
		return
	}
	plans, err := s.plans.PlanRetentions(ctx)
	if err != nil {
		s.logger.Error("failed to load plan retention windows", "error", err)
		return
	}

	for _, p := range plans {
		window := p.Window
		if window <= 0 || window >= s.config.CheckResultWindow {
			continue
		}
		if err := s.planLimiter.Wait(ctx); err != nil {
			return
		}
		horizon := time.Now().Add(-window)
		deleted, err := s.store.CheckResults().DeleteOlderThanForProject(ctx, p.ProjectID, horizon)
		if err != nil {
			s.logger.Error("plan retention sweep failed", "project_id", p.ProjectID, "error", err)
			continue
		}
		if deleted > 0 {
			metrics.RetentionRowsDeletedTotal.WithLabelValues("check_results").Add(float64(deleted))
			s.logger.Info("swept check results for plan", "project_id", p.ProjectID, "deleted", deleted, "window", window)
		}
	}
}
