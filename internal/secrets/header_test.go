package secrets

import (
	"testing"

	"github.com/bissquit/apimonitor/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestProjectAuthHeader_BasicAuth(t *testing.T) {
	store, err := New("header projection test secret")
	require.NoError(t, err)

	sealedValue, err := store.Seal("s3cret")
	require.NoError(t, err)
	sealedUsername, err := store.Seal("alice")
	require.NoError(t, err)

	cred := &domain.Credential{
		Type:           domain.CredentialBasicAuth,
		SealedValue:    sealedValue,
		SealedUsername: sealedUsername,
	}

	header, err := store.ProjectAuthHeader(cred)
	require.NoError(t, err)
	require.Equal(t, "Authorization", header.Name)
	require.Equal(t, "Basic YWxpY2U6czNjcmV0", header.Value)
}

func TestProjectAuthHeader_BearerToken(t *testing.T) {
	store, err := New("bearer projection test secret")
	require.NoError(t, err)

	sealed, err := store.Seal("tok_abc123")
	require.NoError(t, err)

	cred := &domain.Credential{Type: domain.CredentialBearerToken, SealedValue: sealed}
	header, err := store.ProjectAuthHeader(cred)
	require.NoError(t, err)
	require.Equal(t, "Authorization", header.Name)
	require.Equal(t, "Bearer tok_abc123", header.Value)
}

func TestProjectAuthHeader_APIKeyDefaultHeader(t *testing.T) {
	store, err := New("api key projection test secret")
	require.NoError(t, err)

	sealed, err := store.Seal("key-value")
	require.NoError(t, err)

	cred := &domain.Credential{Type: domain.CredentialAPIKey, SealedValue: sealed}
	header, err := store.ProjectAuthHeader(cred)
	require.NoError(t, err)
	require.Equal(t, domain.DefaultAPIKeyHeader, header.Name)
	require.Equal(t, "key-value", header.Value)
}

func TestProjectAuthHeader_APIKeyCustomHeader(t *testing.T) {
	store, err := New("custom header projection test secret")
	require.NoError(t, err)

	sealed, err := store.Seal("key-value")
	require.NoError(t, err)

	cred := &domain.Credential{Type: domain.CredentialAPIKey, SealedValue: sealed, HeaderName: "X-Custom-Key"}
	header, err := store.ProjectAuthHeader(cred)
	require.NoError(t, err)
	require.Equal(t, "X-Custom-Key", header.Name)
}
