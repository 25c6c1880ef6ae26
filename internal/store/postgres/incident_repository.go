package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bissquit/apimonitor/internal/domain"
	"github.com/jackc/pgx/v5"
)

// IncidentRepository implements store.IncidentRepository.
type IncidentRepository struct {
	db querier
}

func (r *IncidentRepository) OpenForEndpoint(ctx context.Context, endpointID string) (*domain.Incident, error) {
	const query = `
		SELECT id, endpoint_id, state, failure_kind, started_at, resolved_at,
		       failed_check_count, last_error_message
		FROM incidents
		WHERE endpoint_id = $1 AND state != 'RESOLVED'
	`
	var inc domain.Incident
	err := r.db.QueryRow(ctx, query, endpointID).Scan(
		&inc.ID, &inc.EndpointID, &inc.State, &inc.FailureKind, &inc.StartedAt,
		&inc.ResolvedAt, &inc.FailedCheckCount, &inc.LastErrorMessage,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("open incident for endpoint: %w", err)
	}
	return &inc, nil
}

// CreateOpen inserts a new OPEN incident. The partial unique index
// idx_incidents_one_open_per_endpoint turns a concurrent double-open into a
// constraint violation rather than a silent duplicate, which is what makes
// I1 database-enforced rather than merely application-level.
func (r *IncidentRepository) CreateOpen(ctx context.Context, endpointID string, kind domain.ResultKind, errorMessage string) (*domain.Incident, error) {
	const query = `
		INSERT INTO incidents (endpoint_id, state, failure_kind, failed_check_count, last_error_message)
		VALUES ($1, 'OPEN', $2, 1, $3)
		RETURNING id, started_at
	`
	inc := &domain.Incident{
		EndpointID:       endpointID,
		State:            domain.IncidentOpen,
		FailureKind:      kind,
		FailedCheckCount: 1,
		LastErrorMessage: errorMessage,
	}
	if err := r.db.QueryRow(ctx, query, endpointID, kind, errorMessage).Scan(&inc.ID, &inc.StartedAt); err != nil {
		return nil, fmt.Errorf("create open incident: %w", err)
	}
	return inc, nil
}

func (r *IncidentRepository) IncrementFailures(ctx context.Context, incidentID string, errorMessage string) error {
	const query = `
		UPDATE incidents
		SET failed_check_count = failed_check_count + 1, last_error_message = $2
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, incidentID, errorMessage)
	if err != nil {
		return fmt.Errorf("increment incident failures: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrIncidentNotFound
	}
	return nil
}

// ResolveOpen resolves the endpoint's OPEN/ACKNOWLEDGED incident, if any, and
// reports whether a resolution actually happened.
func (r *IncidentRepository) ResolveOpen(ctx context.Context, endpointID string, now time.Time) (bool, error) {
	const query = `
		UPDATE incidents
		SET state = 'RESOLVED', resolved_at = $2
		WHERE endpoint_id = $1 AND state != 'RESOLVED'
	`
	tag, err := r.db.Exec(ctx, query, endpointID, now)
	if err != nil {
		return false, fmt.Errorf("resolve open incident: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
