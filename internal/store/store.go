// Package store defines the persistence contracts the core runs against.
// Concrete implementations live in internal/store/postgres.
package store

import (
	"context"
	"time"

	"github.com/bissquit/apimonitor/internal/domain"
)

// FailureBreakdown counts check results of each non-success kind observed
// since a given instant, keyed by domain.ResultKind.
type FailureBreakdown map[domain.ResultKind]int

// EndpointRepository is the sole writer of Endpoint runtime fields once an
// endpoint has been admitted by the configuration provider.
type EndpointRepository interface {
	Get(ctx context.Context, id string) (*domain.Endpoint, error)
	DueEndpoints(ctx context.Context, now time.Time) ([]*domain.Endpoint, error)
	UpdateCheckStatus(ctx context.Context, id string, status domain.EndpointStatus, lastCheckAt time.Time, nextCheckAt time.Time, consecutiveFailures int) error
}

// CheckResultRepository persists and queries append-only probe records.
type CheckResultRepository interface {
	Append(ctx context.Context, r *domain.CheckResult) error
	LatestResult(ctx context.Context, endpointID string) (*domain.CheckResult, error)
	UptimePct(ctx context.Context, endpointID string, since time.Time) (float64, error)
	AvgLatency(ctx context.Context, endpointID string, since time.Time) (float64, error)
	FailureBreakdown(ctx context.Context, endpointID string, since time.Time) (FailureBreakdown, error)
	LastFailureAt(ctx context.Context, endpointID string) (*time.Time, error)
	DeleteOlderThan(ctx context.Context, horizon time.Time) (int64, error)
	// DeleteOlderThanForProject scopes the sweep to one project's endpoints,
	// backing the per-plan retention tier (stricter-cap-wins).
	DeleteOlderThanForProject(ctx context.Context, projectID string, horizon time.Time) (int64, error)
}

// IncidentRepository manages the per-endpoint incident lifecycle.
// OpenForEndpoint finds the open incident; CreateOpen inserts a new one and
// fails rather than producing a second non-RESOLVED incident for the same
// endpoint.
type IncidentRepository interface {
	OpenForEndpoint(ctx context.Context, endpointID string) (*domain.Incident, error)
	CreateOpen(ctx context.Context, endpointID string, kind domain.ResultKind, errorMessage string) (*domain.Incident, error)
	IncrementFailures(ctx context.Context, incidentID string, errorMessage string) error
	ResolveOpen(ctx context.Context, endpointID string, now time.Time) (bool, error)
}

// AlertRepository persists alerts and answers the dedup-window query the
// Alert Engine gates delivery on.
type AlertRepository interface {
	Create(ctx context.Context, a *domain.Alert) error
	MarkDelivered(ctx context.Context, id string, delivered bool, deliveryError string) error
	RecentByKind(ctx context.Context, endpointID string, kind domain.AlertKind, channel domain.AlertChannel, since time.Time) (*domain.Alert, error)
	Acknowledge(ctx context.Context, id string, now time.Time) error
	AcknowledgeAll(ctx context.Context, endpointID string, now time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, horizon time.Time) (int64, error)
}

// CredentialRepository persists encrypted credentials. Sealed values pass
// through untouched; only internal/secrets opens them.
type CredentialRepository interface {
	Get(ctx context.Context, id string) (*domain.Credential, error)
	InUse(ctx context.Context, id string) (bool, error)
}

// RetentionKind selects which table a sweep targets.
type RetentionKind string

const (
	RetentionCheckResults RetentionKind = "check_results"
	RetentionAlerts       RetentionKind = "alerts"
)

// Store aggregates the per-aggregate repositories the rest of the core
// depends on, mirroring the teacher's practice of handing a single facade
// to services rather than wiring four interfaces independently.
type Store interface {
	Endpoints() EndpointRepository
	CheckResults() CheckResultRepository
	Incidents() IncidentRepository
	Alerts() AlertRepository
	Credentials() CredentialRepository
}
