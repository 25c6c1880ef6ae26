package alerts

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bissquit/apimonitor/internal/domain"
	"github.com/bissquit/apimonitor/internal/pkg/metrics"
	"github.com/bissquit/apimonitor/internal/store"
)

// deliveryJob is the unit of work handed to the worker pool: an
// already-persisted Alert waiting on its sink.
type deliveryJob struct {
	alert *domain.Alert
}

// Engine implements incidents.AlertSink: it applies the threshold and dedup
// gates, persists the Alert row, and pushes accepted alerts onto a bounded
// worker pool for delivery so the caller (the Incident Engine, in turn the
// scheduler) is never blocked on sink I/O.
type Engine struct {
	repo       store.AlertRepository
	dispatcher *Dispatcher
	policy     Policy
	channels   []domain.AlertChannel
	logger     *slog.Logger

	jobs   chan deliveryJob
	wg     sync.WaitGroup
	config Config
}

// Config configures the Engine's worker pool and policy gates.
type Config struct {
	Policy     Policy
	Channels   []domain.AlertChannel
	NumWorkers int
	QueueSize  int
}

// DefaultConfig mirrors the proportions of the teacher's
// DefaultWorkerConfig, scaled down: this pool only ever carries alert
// deliveries, never the full notification fan-out the teacher's worker did.
func DefaultConfig() Config {
	return Config{
		Policy:     DefaultPolicy(),
		Channels:   []domain.AlertChannel{domain.AlertChannelEmail},
		NumWorkers: 5,
		QueueSize:  256,
	}
}

// New builds an Engine. Call Start before any alerts are produced and Stop
// during shutdown to drain in-flight deliveries.
func New(repo store.AlertRepository, dispatcher *Dispatcher, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	return &Engine{
		repo:       repo,
		dispatcher: dispatcher,
		policy:     cfg.Policy,
		channels:   cfg.Channels,
		logger:     logger,
		jobs:       make(chan deliveryJob, cfg.QueueSize),
		config:     cfg,
	}
}

// Start launches the delivery worker pool. Cancelling ctx stops each worker
// the next time it waits for a job; jobs still queued at that point may be
// left undelivered.
func (e *Engine) Start(ctx context.Context) {
	e.logger.Info("starting alert delivery workers", "workers", e.config.NumWorkers)
	for i := 0; i < e.config.NumWorkers; i++ {
		e.wg.Add(1)
		go e.runWorker(ctx, i)
	}
}

// Stop closes the job queue and waits for in-flight deliveries to finish.
func (e *Engine) Stop() {
	close(e.jobs)
	e.wg.Wait()
	e.logger.Info("alert delivery workers stopped")
}

func (e *Engine) runWorker(ctx context.Context, workerID int) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-e.jobs:
			if !ok {
				return
			}
			e.deliver(ctx, job.alert)
		}
	}
}

func (e *Engine) deliver(ctx context.Context, alert *domain.Alert) {
	err := e.dispatcher.Deliver(ctx, alert)
	delivered := err == nil
	reason := ""
	outcome := "delivered"
	if err != nil {
		outcome = "failed"
		reason = err.Error()
		e.logger.Error("alert delivery failed", "alert_id", alert.ID, "channel", alert.Channel, "error", err)
	}
	metrics.RecordAlertDelivery(string(alert.Channel), outcome)
	if markErr := e.repo.MarkDelivered(ctx, alert.ID, delivered, reason); markErr != nil {
		e.logger.Error("failed to record delivery outcome", "alert_id", alert.ID, "error", markErr)
	}
}

// HandleFailure implements incidents.AlertSink. It is the entry point for
// every non-success CheckResult the Incident Engine records.
func (e *Engine) HandleFailure(ctx context.Context, endpoint *domain.Endpoint, result domain.CheckResult, incidentID string) {
	if endpoint.ConsecutiveFailures < e.policy.FailureThreshold {
		return
	}

	kind := domain.AlertKindFromResult(result.Kind)

	incID := incidentID
	for _, channel := range e.channels {
		if e.deduped(ctx, endpoint.ID, kind, channel) {
			e.logger.Debug("alert suppressed by dedup window", "endpoint_id", endpoint.ID, "kind", kind, "channel", channel)
			continue
		}
		alert := &domain.Alert{
			EndpointID: endpoint.ID,
			IncidentID: &incID,
			Kind:       kind,
			Severity:   domain.SeverityForAlertKind(kind),
			Channel:    channel,
			Title:      buildTitle(kind, endpoint.Name),
			Message:    buildMessage(endpoint, kind, result),
		}
		e.persistAndEnqueue(ctx, alert)
	}
}

// HandleRecovery implements incidents.AlertSink. Recovery events bypass the
// threshold and dedup gates entirely.
func (e *Engine) HandleRecovery(ctx context.Context, endpoint *domain.Endpoint) {
	for _, channel := range e.channels {
		alert := &domain.Alert{
			EndpointID: endpoint.ID,
			IncidentID: nil,
			Kind:       domain.AlertKindEndpointRecovered,
			Severity:   domain.SeverityForAlertKind(domain.AlertKindEndpointRecovered),
			Channel:    channel,
			Title:      buildTitle(domain.AlertKindEndpointRecovered, endpoint.Name),
			Message:    buildMessage(endpoint, domain.AlertKindEndpointRecovered, domain.CheckResult{}),
		}
		e.persistAndEnqueue(ctx, alert)
	}
}

func (e *Engine) deduped(ctx context.Context, endpointID string, kind domain.AlertKind, channel domain.AlertChannel) bool {
	since := time.Now().Add(-e.policy.DedupWindow)
	recent, err := e.repo.RecentByKind(ctx, endpointID, kind, channel, since)
	if err != nil {
		e.logger.Error("dedup lookup failed, allowing alert through", "error", err)
		return false
	}
	return recent != nil
}

// persistAndEnqueue creates the Alert row (delivered=false) and only then
// hands it to the worker pool, per the persist-first-deliver-second rule.
func (e *Engine) persistAndEnqueue(ctx context.Context, alert *domain.Alert) {
	if err := e.repo.Create(ctx, alert); err != nil {
		e.logger.Error("failed to persist alert", "endpoint_id", alert.EndpointID, "error", err)
		return
	}
	select {
	case e.jobs <- deliveryJob{alert: alert}:
	default:
		e.logger.Warn("alert delivery queue full, alert left undelivered", "alert_id", alert.ID)
		if markErr := e.repo.MarkDelivered(ctx, alert.ID, false, "delivery queue full"); markErr != nil {
			e.logger.Error("failed to record delivery outcome", "alert_id", alert.ID, "error", markErr)
		}
	}
}
