package incidents

import (
	"context"
	"testing"
	"time"

	"github.com/bissquit/apimonitor/internal/domain"
	"github.com/bissquit/apimonitor/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	kind       string
	incidentID string
	endpointID string
}

type fakeAlertSink struct {
	events []recordedEvent
}

func (f *fakeAlertSink) HandleFailure(ctx context.Context, endpoint *domain.Endpoint, result domain.CheckResult, incidentID string) {
	f.events = append(f.events, recordedEvent{kind: "failure:" + string(result.Kind), incidentID: incidentID, endpointID: endpoint.ID})
}

func (f *fakeAlertSink) HandleRecovery(ctx context.Context, endpoint *domain.Endpoint) {
	f.events = append(f.events, recordedEvent{kind: "recovery", endpointID: endpoint.ID})
}

func newTestEndpoint(st *memory.Store) *domain.Endpoint {
	ep := &domain.Endpoint{
		Name:            "test",
		URL:             "https://example.com",
		ExpectedStatus:  200,
		IntervalSeconds: 60,
		TimeoutMillis:   2000,
		Enabled:         true,
		Status:          domain.EndpointStatusUnknown,
	}
	st.PutEndpoint(ep)
	return ep
}

func TestEngine_FirstFailureOpensIncident(t *testing.T) {
	st := memory.New()
	ep := newTestEndpoint(st)
	sink := &fakeAlertSink{}
	e := New(st, sink, nil)

	status, err := e.Record(context.Background(), ep, domain.CheckResult{
		Kind:         domain.ResultConnectionError,
		ErrorMessage: "connection refused",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EndpointStatusDown, status)

	open, err := st.Incidents().OpenForEndpoint(context.Background(), ep.ID)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, 1, open.FailedCheckCount)
	assert.Equal(t, domain.ResultConnectionError, open.FailureKind)

	require.Len(t, sink.events, 1)
	assert.Equal(t, "failure:CONNECTION_ERROR", sink.events[0].kind)
}

func TestEngine_SecondFailureIncrementsSameIncident(t *testing.T) {
	st := memory.New()
	ep := newTestEndpoint(st)
	sink := &fakeAlertSink{}
	e := New(st, sink, nil)
	ctx := context.Background()

	_, err := e.Record(ctx, ep, domain.CheckResult{Kind: domain.ResultTimeout})
	require.NoError(t, err)

	ep.ConsecutiveFailures = 1
	_, err = e.Record(ctx, ep, domain.CheckResult{Kind: domain.ResultTimeout})
	require.NoError(t, err)

	open, err := st.Incidents().OpenForEndpoint(ctx, ep.ID)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, 2, open.FailedCheckCount)
	assert.Len(t, sink.events, 2)
}

func TestEngine_LatencyBreachDegradesInsteadOfDown(t *testing.T) {
	st := memory.New()
	ep := newTestEndpoint(st)
	e := New(st, nil, nil)

	status, err := e.Record(context.Background(), ep, domain.CheckResult{Kind: domain.ResultLatencyBreach})
	require.NoError(t, err)
	assert.Equal(t, domain.EndpointStatusDegraded, status)
}

func TestEngine_SuccessAfterFailureResolvesAndRecovers(t *testing.T) {
	st := memory.New()
	ep := newTestEndpoint(st)
	sink := &fakeAlertSink{}
	e := New(st, sink, nil)
	ctx := context.Background()

	_, err := e.Record(ctx, ep, domain.CheckResult{Kind: domain.ResultServerError})
	require.NoError(t, err)

	status, err := e.Record(ctx, ep, domain.CheckResult{Kind: domain.ResultSuccess, Success: true})
	require.NoError(t, err)
	assert.Equal(t, domain.EndpointStatusUp, status)

	open, err := st.Incidents().OpenForEndpoint(ctx, ep.ID)
	require.NoError(t, err)
	assert.Nil(t, open)

	require.Len(t, sink.events, 2)
	assert.Equal(t, "recovery", sink.events[1].kind)
}

func TestEngine_SuccessWithoutPriorIncidentDoesNotEmitRecovery(t *testing.T) {
	st := memory.New()
	ep := newTestEndpoint(st)
	sink := &fakeAlertSink{}
	e := New(st, sink, nil)

	_, err := e.Record(context.Background(), ep, domain.CheckResult{Kind: domain.ResultSuccess, Success: true})
	require.NoError(t, err)
	assert.Empty(t, sink.events)
}

func TestEngine_NextCheckAtAdvancesByInterval(t *testing.T) {
	st := memory.New()
	ep := newTestEndpoint(st)
	e := New(st, nil, nil)

	before := time.Now()
	_, err := e.Record(context.Background(), ep, domain.CheckResult{Kind: domain.ResultSuccess, Success: true})
	require.NoError(t, err)

	updated, err := st.Endpoints().Get(context.Background(), ep.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.NextCheckAt)
	assert.True(t, updated.NextCheckAt.After(before.Add(59*time.Second)))
}
