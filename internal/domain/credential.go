package domain

import "time"

// CredentialType is the authentication scheme a credential projects.
type CredentialType string

// Supported credential types.
const (
	CredentialBearerToken CredentialType = "BEARER_TOKEN"
	CredentialAPIKey      CredentialType = "API_KEY"
	CredentialBasicAuth   CredentialType = "BASIC_AUTH"
)

// Credential is an encrypted secret plus the binding metadata needed to
// project it onto an outbound probe request. SealedValue and SealedUsername
// hold ciphertext produced by the secrets package; plaintext never reaches
// this struct outside of a single probe's call stack.
type Credential struct {
	ID             string
	ProjectID      string
	Name           string
	Type           CredentialType
	SealedValue    string
	SealedUsername string // only set for CredentialBasicAuth
	HeaderName     string // only meaningful for CredentialAPIKey
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DefaultAPIKeyHeader is used when a CredentialAPIKey has no HeaderName.
const DefaultAPIKeyHeader = "X-API-Key"
