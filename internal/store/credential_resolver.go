package store

import (
	"context"
	"fmt"

	"github.com/bissquit/apimonitor/internal/secrets"
)

// CredentialResolver implements prober.CredentialResolver by combining a
// CredentialRepository lookup with a secrets store that opens the sealed
// value and projects it into the credential's auth header.
type CredentialResolver struct {
	credentials CredentialRepository
	secrets     *secrets.Store
}

// NewCredentialResolver builds a resolver bridging credential storage and
// the secret store's header projection.
func NewCredentialResolver(credentials CredentialRepository, secretStore *secrets.Store) *CredentialResolver {
	return &CredentialResolver{credentials: credentials, secrets: secretStore}
}

// ResolveAuthHeader loads the credential, opens its sealed value(s), and
// projects the result into the header the Prober should attach.
func (r *CredentialResolver) ResolveAuthHeader(ctx context.Context, credentialID string) (secrets.AuthHeader, error) {
	cred, err := r.credentials.Get(ctx, credentialID)
	if err != nil {
		return secrets.AuthHeader{}, fmt.Errorf("load credential: %w", err)
	}

	header, err := r.secrets.ProjectAuthHeader(cred)
	if err != nil {
		return secrets.AuthHeader{}, fmt.Errorf("project auth header: %w", err)
	}
	return header, nil
}
