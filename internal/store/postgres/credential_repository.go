package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/apimonitor/internal/domain"
	"github.com/jackc/pgx/v5"
)

// CredentialRepository implements store.CredentialRepository.
type CredentialRepository struct {
	db querier
}

func (r *CredentialRepository) Get(ctx context.Context, id string) (*domain.Credential, error) {
	const query = `
		SELECT id, project_id, name, type, sealed_value, sealed_username, header_name, created_at, updated_at
		FROM credentials
		WHERE id = $1
	`
	var cred domain.Credential
	err := r.db.QueryRow(ctx, query, id).Scan(
		&cred.ID, &cred.ProjectID, &cred.Name, &cred.Type, &cred.SealedValue,
		&cred.SealedUsername, &cred.HeaderName, &cred.CreatedAt, &cred.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return &cred, nil
}

// InUse reports whether at least one endpoint references the credential,
// backing the "cannot be deleted while referenced" invariant.
func (r *CredentialRepository) InUse(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM endpoints WHERE credential_id = $1)`
	var inUse bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&inUse); err != nil {
		return false, fmt.Errorf("check credential in use: %w", err)
	}
	return inUse, nil
}
