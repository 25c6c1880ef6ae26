package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bissquit/apimonitor/internal/domain"
	"github.com/jackc/pgx/v5"
)

// EndpointRepository implements store.EndpointRepository.
type EndpointRepository struct {
	db querier
}

func (r *EndpointRepository) Get(ctx context.Context, id string) (*domain.Endpoint, error) {
	const query = `
		SELECT id, project_id, name, url, method, headers, request_body,
		       expected_status, interval_seconds, timeout_millis, max_latency_millis,
		       credential_id, enabled, status, last_check_at, next_check_at,
		       consecutive_failures, created_at, updated_at
		FROM endpoints
		WHERE id = $1
	`
	var ep domain.Endpoint
	err := r.db.QueryRow(ctx, query, id).Scan(
		&ep.ID, &ep.ProjectID, &ep.Name, &ep.URL, &ep.Method, &ep.Headers, &ep.RequestBody,
		&ep.ExpectedStatus, &ep.IntervalSeconds, &ep.TimeoutMillis, &ep.MaxLatencyMillis,
		&ep.CredentialID, &ep.Enabled, &ep.Status, &ep.LastCheckAt, &ep.NextCheckAt,
		&ep.ConsecutiveFailures, &ep.CreatedAt, &ep.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEndpointNotFound
		}
		return nil, fmt.Errorf("get endpoint: %w", err)
	}
	return &ep, nil
}

// DueEndpoints returns enabled endpoints whose next_check_at is unset or has
// already elapsed, oldest-created first.
func (r *EndpointRepository) DueEndpoints(ctx context.Context, now time.Time) ([]*domain.Endpoint, error) {
	const query = `
		SELECT id, project_id, name, url, method, headers, request_body,
		       expected_status, interval_seconds, timeout_millis, max_latency_millis,
		       credential_id, enabled, status, last_check_at, next_check_at,
		       consecutive_failures, created_at, updated_at
		FROM endpoints
		WHERE enabled = TRUE AND (next_check_at IS NULL OR next_check_at <= $1)
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("due endpoints: %w", err)
	}
	defer rows.Close()

	endpoints := make([]*domain.Endpoint, 0)
	for rows.Next() {
		var ep domain.Endpoint
		if err := rows.Scan(
			&ep.ID, &ep.ProjectID, &ep.Name, &ep.URL, &ep.Method, &ep.Headers, &ep.RequestBody,
			&ep.ExpectedStatus, &ep.IntervalSeconds, &ep.TimeoutMillis, &ep.MaxLatencyMillis,
			&ep.CredentialID, &ep.Enabled, &ep.Status, &ep.LastCheckAt, &ep.NextCheckAt,
			&ep.ConsecutiveFailures, &ep.CreatedAt, &ep.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan endpoint: %w", err)
		}
		endpoints = append(endpoints, &ep)
	}
	return endpoints, rows.Err()
}

// UpdateCheckStatus is the single logical row update the Incident Engine
// performs after every probe; the State Store is the sole writer of these
// runtime fields.
func (r *EndpointRepository) UpdateCheckStatus(ctx context.Context, id string, status domain.EndpointStatus, lastCheckAt time.Time, nextCheckAt time.Time, consecutiveFailures int) error {
	const query = `
		UPDATE endpoints
		SET status = $2, last_check_at = $3, next_check_at = $4,
		    consecutive_failures = $5, updated_at = now()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, status, lastCheckAt, nextCheckAt, consecutiveFailures)
	if err != nil {
		return fmt.Errorf("update endpoint check status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEndpointNotFound
	}
	return nil
}
