package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bissquit/apimonitor/internal/domain"
	"github.com/jackc/pgx/v5"
)

// AlertRepository implements store.AlertRepository.
type AlertRepository struct {
	db querier
}

func (r *AlertRepository) Create(ctx context.Context, a *domain.Alert) error {
	const query = `
		INSERT INTO alerts (endpoint_id, incident_id, kind, severity, channel, title, message, delivered, delivery_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		a.EndpointID, a.IncidentID, a.Kind, a.Severity, a.Channel, a.Title, a.Message, a.Delivered, a.DeliveryError,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	return nil
}

func (r *AlertRepository) MarkDelivered(ctx context.Context, id string, delivered bool, deliveryError string) error {
	const query = `UPDATE alerts SET delivered = $2, delivery_error = $3 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, delivered, deliveryError)
	if err != nil {
		return fmt.Errorf("mark alert delivered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlertNotFound
	}
	return nil
}

// RecentByKind backs the Alert Engine's dedup window: the most recent alert
// of the given kind and channel for the endpoint created on or after since,
// or nil.
func (r *AlertRepository) RecentByKind(ctx context.Context, endpointID string, kind domain.AlertKind, channel domain.AlertChannel, since time.Time) (*domain.Alert, error) {
	const query = `
		SELECT id, endpoint_id, incident_id, kind, severity, channel, title, message,
		       delivered, delivery_error, acknowledged, acknowledged_at, created_at
		FROM alerts
		WHERE endpoint_id = $1 AND kind = $2 AND channel = $3 AND created_at >= $4
		ORDER BY created_at DESC
		LIMIT 1
	`
	var a domain.Alert
	err := r.db.QueryRow(ctx, query, endpointID, kind, channel, since).Scan(
		&a.ID, &a.EndpointID, &a.IncidentID, &a.Kind, &a.Severity, &a.Channel, &a.Title, &a.Message,
		&a.Delivered, &a.DeliveryError, &a.Acknowledged, &a.AcknowledgedAt, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("recent alert by kind: %w", err)
	}
	return &a, nil
}

func (r *AlertRepository) Acknowledge(ctx context.Context, id string, now time.Time) error {
	const query = `UPDATE alerts SET acknowledged = TRUE, acknowledged_at = $2 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("acknowledge alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlertNotFound
	}
	return nil
}

// AcknowledgeAll applies the same update to every unacknowledged alert for
// an endpoint in one atomic statement.
func (r *AlertRepository) AcknowledgeAll(ctx context.Context, endpointID string, now time.Time) (int64, error) {
	const query = `
		UPDATE alerts
		SET acknowledged = TRUE, acknowledged_at = $2
		WHERE endpoint_id = $1 AND acknowledged = FALSE
	`
	tag, err := r.db.Exec(ctx, query, endpointID, now)
	if err != nil {
		return 0, fmt.Errorf("acknowledge all alerts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteOlderThan implements the alert side of the retention_sweep write
// operation, using its own horizon independent of check results.
func (r *AlertRepository) DeleteOlderThan(ctx context.Context, horizon time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM alerts WHERE created_at < $1`, horizon)
	if err != nil {
		return 0, fmt.Errorf("sweep alerts: %w", err)
	}
	return tag.RowsAffected(), nil
}
