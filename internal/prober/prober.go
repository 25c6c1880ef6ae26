// Package prober executes individual HTTP checks against monitored
// endpoints and turns their outcome into a classified CheckResult.
package prober

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bissquit/apimonitor/internal/classify"
	"github.com/bissquit/apimonitor/internal/domain"
	"github.com/bissquit/apimonitor/internal/secrets"
)

// maxBodyBytes caps how much of a response body the prober will read before
// discarding the rest. Bodies are never retained beyond this read.
const maxBodyBytes = 1 << 20 // 1 MiB

// CredentialResolver looks up and opens the credential attached to an
// endpoint. Implemented by the store + secrets packages together.
type CredentialResolver interface {
	ResolveAuthHeader(ctx context.Context, credentialID string) (secrets.AuthHeader, error)
}

// Prober executes one HTTP check at a time per call, but is safe for
// concurrent invocation across endpoints: it shares one http.Client and
// its underlying connection pool.
type Prober struct {
	client     *http.Client
	credential CredentialResolver
	logger     *slog.Logger
}

// New builds a Prober around a shared *http.Client. Passing nil for client
// constructs a client with a connection pool sized for concurrent probing.
func New(client *http.Client, credential CredentialResolver, logger *slog.Logger) *Prober {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        512,
				MaxIdleConnsPerHost: 64,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{client: client, credential: credential, logger: logger}
}

// Probe executes one check against endpoint and never returns an error:
// every failure mode is captured as a CheckResult with success=false.
func (p *Prober) Probe(ctx context.Context, endpoint *domain.Endpoint) domain.CheckResult {
	logger := p.logger.With("endpoint_id", endpoint.ID, "url", endpoint.URL)
	logger.Debug("executing check")

	start := time.Now()

	req, err := p.buildRequest(ctx, endpoint, logger)
	if err != nil {
		// Credential could not be opened; never fatal, becomes UNKNOWN_ERROR.
		logger.Error("failed to build probe request", "error", err)
		return domain.CheckResult{
			EndpointID:   endpoint.ID,
			StatusCode:   0,
			LatencyMs:    time.Since(start).Milliseconds(),
			Success:      false,
			Kind:         domain.ResultUnknownError,
			ErrorMessage: domain.TruncateErrorMessage(err.Error()),
			CreatedAt:    time.Now(),
		}
	}

	deadline := time.Duration(endpoint.TimeoutMillis) * time.Millisecond
	reqCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()
	req = req.WithContext(reqCtx)

	resp, doErr := p.client.Do(req)
	latency := time.Since(start)

	var statusCode int
	var transportErr error
	if doErr != nil {
		transportErr = doErr
	} else {
		statusCode = resp.StatusCode
		drainAndClose(resp.Body)
	}

	kind := classify.Classify(classify.Input{
		ExpectedStatus: endpoint.ExpectedStatus,
		ActualStatus:   statusCode,
		LatencyMs:      latency.Milliseconds(),
		MaxLatencyMs:   endpoint.MaxLatencyMillis,
		TransportErr:   transportErr,
	})

	result := domain.CheckResult{
		EndpointID: endpoint.ID,
		StatusCode: statusCode,
		LatencyMs:  latency.Milliseconds(),
		Success:    classify.Success(kind),
		Kind:       kind,
		CreatedAt:  time.Now(),
	}
	if !result.Success {
		result.ErrorMessage = domain.TruncateErrorMessage(errorMessageFor(kind, endpoint, statusCode, transportErr, endpoint.TimeoutMillis))
	}

	logger.Debug("check completed", "kind", kind, "status_code", statusCode, "latency_ms", result.LatencyMs)
	return result
}

// buildRequest assembles the outbound http.Request: method, URL, custom
// headers, credential projection, and a JSON body for write methods.
func (p *Prober) buildRequest(ctx context.Context, endpoint *domain.Endpoint, logger *slog.Logger) (*http.Request, error) {
	var body io.Reader
	if isWriteMethod(endpoint.Method) && endpoint.RequestBody != "" {
		body = bytes.NewReader([]byte(endpoint.RequestBody))
	}

	req, err := http.NewRequestWithContext(ctx, string(endpoint.Method), endpoint.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for name, value := range parseHeaders(logger, endpoint.Headers) {
		req.Header.Set(name, value)
	}

	if endpoint.CredentialID != nil && p.credential != nil {
		header, err := p.credential.ResolveAuthHeader(ctx, *endpoint.CredentialID)
		if err != nil {
			return nil, fmt.Errorf("resolve credential: %w", err)
		}
		req.Header.Set(header.Name, header.Value)
	}

	return req, nil
}

func isWriteMethod(m domain.HTTPMethod) bool {
	return m == domain.MethodPOST || m == domain.MethodPUT || m == domain.MethodPATCH
}

// drainAndClose discards up to maxBodyBytes of the response body before
// closing it. Response bodies are never inspected or stored; draining
// merely lets the connection be reused.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxBodyBytes))
	_ = body.Close()
}

func errorMessageFor(kind domain.ResultKind, endpoint *domain.Endpoint, statusCode int, transportErr error, timeoutMs int) string {
	switch kind {
	case domain.ResultTimeout:
		return fmt.Sprintf("request timed out after %dms", timeoutMs)
	case domain.ResultSSLError:
		return fmt.Sprintf("SSL/TLS error: %s", transportErr)
	case domain.ResultConnectionError:
		return fmt.Sprintf("connection failed: %s", transportErr)
	case domain.ResultUnknownError:
		if transportErr != nil {
			return fmt.Sprintf("unexpected error: %s", transportErr)
		}
		return "unexpected error"
	case domain.ResultAuthFailure:
		return "authentication failed (401 Unauthorized)"
	case domain.ResultServerError:
		return fmt.Sprintf("server error: HTTP %d", statusCode)
	case domain.ResultStatusMismatch:
		return fmt.Sprintf("expected status %d but got %d", endpoint.ExpectedStatus, statusCode)
	case domain.ResultLatencyBreach:
		return "response time exceeded threshold"
	default:
		return fmt.Sprintf("check failed with status %d", statusCode)
	}
}
