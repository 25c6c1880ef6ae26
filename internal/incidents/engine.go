// Package incidents implements the per-endpoint state machine that turns a
// probe result into endpoint status transitions and incident lifecycle
// changes. It sits atop internal/store and feeds internal/alerts.
package incidents

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bissquit/apimonitor/internal/domain"
	"github.com/bissquit/apimonitor/internal/store"
)

// AlertSink receives the events the Incident Engine emits. internal/alerts
// implements this; delivery must never block the caller, so implementations
// are expected to hand off to their own worker pool.
type AlertSink interface {
	HandleFailure(ctx context.Context, endpoint *domain.Endpoint, result domain.CheckResult, incidentID string)
	HandleRecovery(ctx context.Context, endpoint *domain.Endpoint)
}

// Engine applies the state machine in a single method call per probe result.
// Callers (the scheduler) must serialize calls for the same endpoint; the
// engine does not itself guard against concurrent reentry.
type Engine struct {
	store  store.Store
	alerts AlertSink
	logger *slog.Logger
}

// New builds an Engine.
func New(st store.Store, alerts AlertSink, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: st, alerts: alerts, logger: logger}
}

// Record persists the check result and applies the transition for its
// outcome, returning the endpoint's status after the transition.
func (e *Engine) Record(ctx context.Context, endpoint *domain.Endpoint, result domain.CheckResult) (domain.EndpointStatus, error) {
	result.EndpointID = endpoint.ID
	if err := e.store.CheckResults().Append(ctx, &result); err != nil {
		return "", fmt.Errorf("append check result: %w", err)
	}

	if result.Success {
		return e.recordSuccess(ctx, endpoint)
	}
	return e.recordFailure(ctx, endpoint, result)
}

func (e *Engine) recordSuccess(ctx context.Context, endpoint *domain.Endpoint) (domain.EndpointStatus, error) {
	now := time.Now()
	next := now.Add(time.Duration(endpoint.IntervalSeconds) * time.Second)

	if err := e.store.Endpoints().UpdateCheckStatus(ctx, endpoint.ID, domain.EndpointStatusUp, now, next, 0); err != nil {
		return "", fmt.Errorf("update endpoint status: %w", err)
	}

	resolved, err := e.store.Incidents().ResolveOpen(ctx, endpoint.ID, now)
	if err != nil {
		return "", fmt.Errorf("resolve open incident: %w", err)
	}
	if resolved {
		e.logger.Debug("incident resolved", "endpoint_id", endpoint.ID)
		if e.alerts != nil {
			e.alerts.HandleRecovery(ctx, endpoint)
		}
	}

	return domain.EndpointStatusUp, nil
}

func (e *Engine) recordFailure(ctx context.Context, endpoint *domain.Endpoint, result domain.CheckResult) (domain.EndpointStatus, error) {
	now := time.Now()
	next := now.Add(time.Duration(endpoint.IntervalSeconds) * time.Second)

	status := statusForFailure(result.Kind)
	consecutive := endpoint.ConsecutiveFailures + 1

	if err := e.store.Endpoints().UpdateCheckStatus(ctx, endpoint.ID, status, now, next, consecutive); err != nil {
		return "", fmt.Errorf("update endpoint status: %w", err)
	}

	open, err := e.store.Incidents().OpenForEndpoint(ctx, endpoint.ID)
	if err != nil {
		return "", fmt.Errorf("look up open incident: %w", err)
	}

	var incidentID string
	if open == nil {
		inc, err := e.store.Incidents().CreateOpen(ctx, endpoint.ID, result.Kind, result.ErrorMessage)
		if err != nil {
			return "", fmt.Errorf("open incident: %w", err)
		}
		incidentID = inc.ID
	} else {
		if err := e.store.Incidents().IncrementFailures(ctx, open.ID, result.ErrorMessage); err != nil {
			return "", fmt.Errorf("increment incident failures: %w", err)
		}
		incidentID = open.ID
	}

	endpoint.ConsecutiveFailures = consecutive
	if e.alerts != nil {
		e.alerts.HandleFailure(ctx, endpoint, result, incidentID)
	}

	return status, nil
}

// statusForFailure derives the endpoint status a failing result produces.
// LATENCY_BREACH degrades the endpoint rather than marking it fully DOWN;
// every other failure kind is a hard DOWN.
func statusForFailure(kind domain.ResultKind) domain.EndpointStatus {
	if kind == domain.ResultLatencyBreach {
		return domain.EndpointStatusDegraded
	}
	return domain.EndpointStatusDown
}
