// Package classify implements the pure decision table that turns a probe
// outcome into the closed ResultKind taxonomy.
package classify

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/bissquit/apimonitor/internal/domain"
)

// Input is everything the classifier needs to produce a ResultKind. It is
// deliberately a plain value type: classification has no side effects and
// no dependency on the prober or store.
type Input struct {
	ExpectedStatus int
	ActualStatus   int
	LatencyMs      int64
	MaxLatencyMs   *int
	TransportErr   error
}

// Classify is total over the input domain and evaluates the rules in a
// fixed precedence order: transport error, then 401, then 5xx, then status
// mismatch, then latency breach, then success.
//
// Timeouts are recognised structurally first (context.DeadlineExceeded or
// a net.Error reporting Timeout). Transport error text matching
// ("timeout", "ssl"/"certificate", "connection"/"refused") is the brittle
// fallback for the remaining modes, because net/http surfaces DNS, TLS and
// refusal failures as opaque *url.Error/*net.OpError text; see
// classifyTransportErr.
func Classify(in Input) domain.ResultKind {
	if in.TransportErr != nil {
		return classifyTransportErr(in.TransportErr)
	}

	if in.ActualStatus == 401 {
		return domain.ResultAuthFailure
	}

	if in.ActualStatus >= 500 {
		return domain.ResultServerError
	}

	if in.ActualStatus != in.ExpectedStatus {
		return domain.ResultStatusMismatch
	}

	if in.MaxLatencyMs != nil && in.LatencyMs > int64(*in.MaxLatencyMs) {
		return domain.ResultLatencyBreach
	}

	return domain.ResultSuccess
}

func classifyTransportErr(err error) domain.ResultKind {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return domain.ResultTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return domain.ResultTimeout
	case strings.Contains(msg, "ssl"), strings.Contains(msg, "certificate"):
		return domain.ResultSSLError
	case strings.Contains(msg, "connection"), strings.Contains(msg, "refused"):
		return domain.ResultConnectionError
	default:
		return domain.ResultUnknownError
	}
}

// Success reports whether kind represents a successful check.
func Success(kind domain.ResultKind) bool {
	return kind == domain.ResultSuccess
}
