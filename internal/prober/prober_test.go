package prober

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bissquit/apimonitor/internal/domain"
	"github.com/bissquit/apimonitor/internal/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCredentialResolver struct {
	header secrets.AuthHeader
	err    error
}

func (f *fakeCredentialResolver) ResolveAuthHeader(ctx context.Context, credentialID string) (secrets.AuthHeader, error) {
	return f.header, f.err
}

func testEndpoint(url string) *domain.Endpoint {
	return &domain.Endpoint{
		ID:              "ep-1",
		URL:             url,
		Method:          domain.MethodGET,
		ExpectedStatus:  200,
		IntervalSeconds: 60,
		TimeoutMillis:   2000,
		Enabled:         true,
	}
}

func TestProbe_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(nil, nil, slog.Default())
	result := p.Probe(context.Background(), testEndpoint(srv.URL))

	assert.True(t, result.Success)
	assert.Equal(t, domain.ResultSuccess, result.Kind)
	assert.Equal(t, 200, result.StatusCode)
}

func TestProbe_StatusMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := New(nil, nil, slog.Default())
	result := p.Probe(context.Background(), testEndpoint(srv.URL))

	assert.False(t, result.Success)
	assert.Equal(t, domain.ResultStatusMismatch, result.Kind)
	assert.Equal(t, 404, result.StatusCode)
}

func TestProbe_AuthFailureWinsOverMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := New(nil, nil, slog.Default())
	result := p.Probe(context.Background(), testEndpoint(srv.URL))

	assert.Equal(t, domain.ResultAuthFailure, result.Kind)
}

func TestProbe_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := New(nil, nil, slog.Default())
	result := p.Probe(context.Background(), testEndpoint(srv.URL))

	assert.Equal(t, domain.ResultServerError, result.Kind)
}

func TestProbe_LatencyBreach(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(30 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ep := testEndpoint(srv.URL)
	maxLatency := 5
	ep.MaxLatencyMillis = &maxLatency

	p := New(nil, nil, slog.Default())
	result := p.Probe(context.Background(), ep)

	assert.False(t, result.Success)
	assert.Equal(t, domain.ResultLatencyBreach, result.Kind)
}

func TestProbe_ResponseWithinTimeoutSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ep := testEndpoint(srv.URL)
	ep.TimeoutMillis = 1000 // minimum accepted by endpoint bounds, still > 100ms sleep

	p := New(nil, nil, slog.Default())
	result := p.Probe(context.Background(), ep)
	assert.True(t, result.Success)
}

func TestProbe_TransportErrorUnreachable(t *testing.T) {
	ep := testEndpoint("http://127.0.0.1:1") // reserved, connection refused
	p := New(nil, nil, slog.Default())
	result := p.Probe(context.Background(), ep)

	assert.False(t, result.Success)
	assert.Equal(t, 0, result.StatusCode)
	assert.Contains(t, []domain.ResultKind{domain.ResultConnectionError, domain.ResultUnknownError}, result.Kind)
}

func TestProbe_CustomHeadersApplied(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Custom")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ep := testEndpoint(srv.URL)
	ep.Headers = `{"X-Custom":"hello"}`

	p := New(nil, nil, slog.Default())
	p.Probe(context.Background(), ep)
	assert.Equal(t, "hello", seen)
}

func TestProbe_MalformedHeadersIgnored(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ep := testEndpoint(srv.URL)
	ep.Headers = `not valid json`

	p := New(nil, nil, slog.Default())
	result := p.Probe(context.Background(), ep)
	assert.True(t, result.Success)
}

func TestProbe_CredentialHeaderOverwritesConflict(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	credID := "cred-1"
	ep := testEndpoint(srv.URL)
	ep.Headers = `{"Authorization":"Bearer wrong-token"}`
	ep.CredentialID = &credID

	resolver := &fakeCredentialResolver{header: secrets.AuthHeader{Name: "Authorization", Value: "Bearer correct-token"}}
	p := New(nil, resolver, slog.Default())
	result := p.Probe(context.Background(), ep)

	require.True(t, result.Success)
	assert.Equal(t, "Bearer correct-token", seen)
}

func TestProbe_CredentialResolutionFailureBecomesUnknownError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	credID := "cred-1"
	ep := testEndpoint(srv.URL)
	ep.CredentialID = &credID

	resolver := &fakeCredentialResolver{err: &domain.CryptoError{Op: "open", Err: assertErr{}}}
	p := New(nil, resolver, slog.Default())
	result := p.Probe(context.Background(), ep)

	assert.False(t, result.Success)
	assert.Equal(t, domain.ResultUnknownError, result.Kind)
	assert.Equal(t, 0, result.StatusCode)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestProbe_WriteMethodSendsJSONBody(t *testing.T) {
	var gotContentType string
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ep := testEndpoint(srv.URL)
	ep.Method = domain.MethodPOST
	ep.RequestBody = `{"ping":true}`

	p := New(nil, nil, slog.Default())
	p.Probe(context.Background(), ep)

	assert.Equal(t, "application/json", gotContentType)
	assert.Contains(t, gotBody, "ping")
}
