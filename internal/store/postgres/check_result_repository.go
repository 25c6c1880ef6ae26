package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bissquit/apimonitor/internal/domain"
	"github.com/bissquit/apimonitor/internal/store"
	"github.com/jackc/pgx/v5"
)

// CheckResultRepository implements store.CheckResultRepository.
type CheckResultRepository struct {
	db querier
}

func (r *CheckResultRepository) Append(ctx context.Context, res *domain.CheckResult) error {
	const query = `
		INSERT INTO check_results (endpoint_id, status_code, latency_ms, success, kind, error_message)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		res.EndpointID, res.StatusCode, res.LatencyMs, res.Success, res.Kind, res.ErrorMessage,
	).Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		return fmt.Errorf("append check result: %w", err)
	}
	return nil
}

func (r *CheckResultRepository) LatestResult(ctx context.Context, endpointID string) (*domain.CheckResult, error) {
	const query = `
		SELECT id, endpoint_id, status_code, latency_ms, success, kind, error_message, created_at
		FROM check_results
		WHERE endpoint_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	var res domain.CheckResult
	err := r.db.QueryRow(ctx, query, endpointID).Scan(
		&res.ID, &res.EndpointID, &res.StatusCode, &res.LatencyMs, &res.Success, &res.Kind, &res.ErrorMessage, &res.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest result: %w", err)
	}
	return &res, nil
}

func (r *CheckResultRepository) UptimePct(ctx context.Context, endpointID string, since time.Time) (float64, error) {
	const query = `
		SELECT
			COALESCE(100.0 * SUM(CASE WHEN success THEN 1 ELSE 0 END) / COUNT(*), 100.0)
		FROM check_results
		WHERE endpoint_id = $1 AND created_at >= $2
	`
	var pct float64
	if err := r.db.QueryRow(ctx, query, endpointID, since).Scan(&pct); err != nil {
		return 0, fmt.Errorf("uptime pct: %w", err)
	}
	return pct, nil
}

func (r *CheckResultRepository) AvgLatency(ctx context.Context, endpointID string, since time.Time) (float64, error) {
	const query = `
		SELECT COALESCE(AVG(latency_ms), 0)
		FROM check_results
		WHERE endpoint_id = $1 AND created_at >= $2
	`
	var avg float64
	if err := r.db.QueryRow(ctx, query, endpointID, since).Scan(&avg); err != nil {
		return 0, fmt.Errorf("avg latency: %w", err)
	}
	return avg, nil
}

func (r *CheckResultRepository) FailureBreakdown(ctx context.Context, endpointID string, since time.Time) (store.FailureBreakdown, error) {
	const query = `
		SELECT kind, COUNT(*)
		FROM check_results
		WHERE endpoint_id = $1 AND created_at >= $2 AND success = FALSE
		GROUP BY kind
	`
	rows, err := r.db.Query(ctx, query, endpointID, since)
	if err != nil {
		return nil, fmt.Errorf("failure breakdown: %w", err)
	}
	defer rows.Close()

	breakdown := make(store.FailureBreakdown)
	for rows.Next() {
		var kind domain.ResultKind
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan failure breakdown: %w", err)
		}
		breakdown[kind] = count
	}
	return breakdown, rows.Err()
}

func (r *CheckResultRepository) LastFailureAt(ctx context.Context, endpointID string) (*time.Time, error) {
	const query = `
		SELECT created_at
		FROM check_results
		WHERE endpoint_id = $1 AND success = FALSE
		ORDER BY created_at DESC
		LIMIT 1
	`
	var t time.Time
	err := r.db.QueryRow(ctx, query, endpointID).Scan(&t)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last failure at: %w", err)
	}
	return &t, nil
}

// DeleteOlderThan implements the retention_sweep write operation for
// check results: a plain parameterized DELETE ... WHERE created_at < $1.
func (r *CheckResultRepository) DeleteOlderThan(ctx context.Context, horizon time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM check_results WHERE created_at < $1`, horizon)
	if err != nil {
		return 0, fmt.Errorf("sweep check results: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteOlderThanForProject backs the per-plan retention tier: the same
// sweep, scoped to one project's endpoints via a subquery join.
func (r *CheckResultRepository) DeleteOlderThanForProject(ctx context.Context, projectID string, horizon time.Time) (int64, error) {
	const query = `
		DELETE FROM check_results
		WHERE created_at < $1
		AND endpoint_id IN (SELECT id FROM endpoints WHERE project_id = $2)
	`
	tag, err := r.db.Exec(ctx, query, horizon, projectID)
	if err != nil {
		return 0, fmt.Errorf("sweep check results for project: %w", err)
	}
	return tag.RowsAffected(), nil
}
