package classify

import (
	"errors"
	"testing"

	"github.com/bissquit/apimonitor/internal/domain"
	"github.com/stretchr/testify/assert"
)

func intPtr(i int) *int { return &i }

func TestClassify_DecisionTable(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want domain.ResultKind
	}{
		{
			name: "transport timeout",
			in:   Input{TransportErr: errors.New("context deadline exceeded: timeout")},
			want: domain.ResultTimeout,
		},
		{
			name: "transport ssl",
			in:   Input{TransportErr: errors.New("x509: certificate has expired")},
			want: domain.ResultSSLError,
		},
		{
			name: "transport ssl keyword",
			in:   Input{TransportErr: errors.New("remote error: tls: bad SSL record")},
			want: domain.ResultSSLError,
		},
		{
			name: "transport connection refused",
			in:   Input{TransportErr: errors.New("dial tcp: connection refused")},
			want: domain.ResultConnectionError,
		},
		{
			name: "transport unknown",
			in:   Input{TransportErr: errors.New("something weird happened")},
			want: domain.ResultUnknownError,
		},
		{
			name: "auth failure wins over status mismatch",
			in:   Input{ExpectedStatus: 200, ActualStatus: 401, LatencyMs: 50, MaxLatencyMs: intPtr(100)},
			want: domain.ResultAuthFailure,
		},
		{
			name: "server error",
			in:   Input{ExpectedStatus: 200, ActualStatus: 503},
			want: domain.ResultServerError,
		},
		{
			name: "server error wins over status mismatch",
			in:   Input{ExpectedStatus: 201, ActualStatus: 500},
			want: domain.ResultServerError,
		},
		{
			name: "status mismatch",
			in:   Input{ExpectedStatus: 200, ActualStatus: 404},
			want: domain.ResultStatusMismatch,
		},
		{
			name: "latency breach wins over success",
			in:   Input{ExpectedStatus: 200, ActualStatus: 200, LatencyMs: 500, MaxLatencyMs: intPtr(400)},
			want: domain.ResultLatencyBreach,
		},
		{
			name: "latency within bound is success",
			in:   Input{ExpectedStatus: 200, ActualStatus: 200, LatencyMs: 50, MaxLatencyMs: intPtr(400)},
			want: domain.ResultSuccess,
		},
		{
			name: "no max latency configured is success",
			in:   Input{ExpectedStatus: 200, ActualStatus: 200, LatencyMs: 50000},
			want: domain.ResultSuccess,
		},
		{
			name: "plain success",
			in:   Input{ExpectedStatus: 200, ActualStatus: 200, LatencyMs: 10},
			want: domain.ResultSuccess,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.in)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.want == domain.ResultSuccess, Success(got))
		})
	}
}
