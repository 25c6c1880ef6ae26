package secrets

import (
	"encoding/base64"
	"fmt"

	"github.com/bissquit/apimonitor/internal/domain"
)

// AuthHeader is the header name/value pair a credential projects onto an
// outbound probe request.
type AuthHeader struct {
	Name  string
	Value string
}

// ProjectAuthHeader opens cred's sealed value (and username, for
// BASIC_AUTH) and returns the header the prober should set, overwriting any
// conflicting custom header.
func (s *Store) ProjectAuthHeader(cred *domain.Credential) (AuthHeader, error) {
	value, err := s.Open(cred.SealedValue)
	if err != nil {
		return AuthHeader{}, err
	}

	switch cred.Type {
	case domain.CredentialBearerToken:
		return AuthHeader{Name: "Authorization", Value: "Bearer " + value}, nil

	case domain.CredentialAPIKey:
		name := cred.HeaderName
		if name == "" {
			name = domain.DefaultAPIKeyHeader
		}
		return AuthHeader{Name: name, Value: value}, nil

	case domain.CredentialBasicAuth:
		username, err := s.Open(cred.SealedUsername)
		if err != nil {
			return AuthHeader{}, err
		}
		token := base64.StdEncoding.EncodeToString([]byte(username + ":" + value))
		return AuthHeader{Name: "Authorization", Value: "Basic " + token}, nil

	default:
		return AuthHeader{}, &domain.CryptoError{Op: "project_auth_header", Err: fmt.Errorf("unsupported credential type %q", cred.Type)}
	}
}
