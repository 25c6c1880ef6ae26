// Package scheduler drives the tick-based admission loop that selects due
// endpoints, bounds concurrent probing, and hands outcomes to the incident
// engine.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bissquit/apimonitor/internal/domain"
	"github.com/bissquit/apimonitor/internal/incidents"
	"github.com/bissquit/apimonitor/internal/pkg/metrics"
	"github.com/bissquit/apimonitor/internal/prober"
	"github.com/bissquit/apimonitor/internal/store"
)

// Config controls tick cadence and probe concurrency.
type Config struct {
	TickInterval        time.Duration
	MaxConcurrentChecks int
}

// DefaultConfig mirrors the scheduling defaults named in the configuration
// table: a 1s tick granularity is fine-grained enough that no endpoint with
// a 30s-3600s interval misses its due time by more than a tick.
func DefaultConfig() Config {
	return Config{TickInterval: time.Second, MaxConcurrentChecks: 20}
}

// Scheduler admits due endpoints for probing, one goroutine per admitted
// endpoint, bounded by a semaphore. An in-process in-flight set is the
// single chokepoint preventing the same endpoint from being probed twice
// concurrently.
type Scheduler struct {
	endpoints store.EndpointRepository
	prober    *prober.Prober
	incidents *incidents.Engine
	logger    *slog.Logger
	config    Config

	sem chan struct{}

	mu       sync.Mutex
	inFlight map[string]struct{}

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds a Scheduler.
func New(endpoints store.EndpointRepository, p *prober.Prober, engine *incidents.Engine, cfg Config, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.MaxConcurrentChecks <= 0 {
		cfg.MaxConcurrentChecks = 1
	}
	return &Scheduler{
		endpoints: endpoints,
		prober:    p,
		incidents: engine,
		logger:    logger,
		config:    cfg,
		sem:       make(chan struct{}, cfg.MaxConcurrentChecks),
		inFlight:  make(map[string]struct{}),
		stopCh:    make(chan struct{}),
	}
}

// Run drives the tick loop until ctx is cancelled or Stop is called. It
// blocks until all in-flight checks have drained.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("starting scheduler", "tick_interval", s.config.TickInterval, "max_concurrent_checks", s.config.MaxConcurrentChecks)

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return
		case <-s.stopCh:
			s.wg.Wait()
			return
		case <-ticker.C:
			s.runTick(ctx)
		}
	}
}

// Stop signals the tick loop to exit. Run's caller still observes the
// drain via Run's return.
func (s *Scheduler) Stop() {
	close(s.stopCh)
}

func (s *Scheduler) runTick(ctx context.Context) {
	due, err := s.endpoints.DueEndpoints(ctx, time.Now())
	if err != nil {
		s.logger.Error("failed to list due endpoints", "error", err)
		return
	}

	for i, ep := range due {
		if err := domain.ValidateInterval(ep.IntervalSeconds); err != nil {
			metrics.SchedulerEndpointsRejectedTotal.WithLabelValues("interval").Inc()
			s.logger.Warn("refusing to probe endpoint with out-of-range interval",
				"endpoint_id", ep.ID, "interval_seconds", ep.IntervalSeconds, "error", err)
			continue
		}
		if err := domain.ValidateTimeout(ep.TimeoutMillis); err != nil {
			metrics.SchedulerEndpointsRejectedTotal.WithLabelValues("timeout").Inc()
			s.logger.Warn("refusing to probe endpoint with out-of-range timeout",
				"endpoint_id", ep.ID, "timeout_millis", ep.TimeoutMillis, "error", err)
			continue
		}

		if !s.admit(ep.ID) {
			metrics.SchedulerTicksSkippedTotal.Inc()
			continue
		}

		select {
		case s.sem <- struct{}{}:
		case <-ctx.Done():
			s.release(ep.ID)
			return
		default:
			// Concurrency budget exhausted: admission-only backpressure, not a
			// queue. Leave the remainder for the next tick.
			s.release(ep.ID)
			metrics.SchedulerTicksSkippedTotal.Add(float64(len(due) - i))
			s.logger.Warn("tick exhausted concurrency budget, deferring remainder",
				"due", len(due), "dispatched", i, "max_concurrent_checks", s.config.MaxConcurrentChecks)
			return
		}

		s.wg.Add(1)
		go func(endpoint *domain.Endpoint) {
			defer s.wg.Done()
			defer func() { <-s.sem }()
			defer s.release(endpoint.ID)
			s.checkEndpoint(ctx, endpoint)
		}(ep)
	}
}

// admit reports whether endpointID may be probed now, marking it in-flight
// if so. It is the single chokepoint serializing probes per endpoint.
func (s *Scheduler) admit(endpointID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[endpointID]; busy {
		return false
	}
	s.inFlight[endpointID] = struct{}{}
	metrics.SchedulerActiveChecks.Set(float64(len(s.inFlight)))
	return true
}

func (s *Scheduler) release(endpointID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, endpointID)
	metrics.SchedulerActiveChecks.Set(float64(len(s.inFlight)))
}

func (s *Scheduler) checkEndpoint(ctx context.Context, endpoint *domain.Endpoint) {
	result := s.prober.Probe(ctx, endpoint)
	metrics.RecordProbe(string(result.Kind), time.Duration(result.LatencyMs)*time.Millisecond)

	if _, err := s.incidents.Record(ctx, endpoint, result); err != nil {
		s.logger.Error("failed to record check result", "endpoint_id", endpoint.ID, "error", err)
	}
}
