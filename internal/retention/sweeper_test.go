package retention

import (
	"context"
	"testing"
	"time"

	"github.com/bissquit/apimonitor/internal/domain"
	"github.com/bissquit/apimonitor/internal/store/memory"
	"github.com/stretchr/testify/require"
)

func seedResult(st *memory.Store, endpointID string, age time.Duration) {
	ctx := context.Background()
	res := &domain.CheckResult{EndpointID: endpointID, Success: true, Kind: domain.ResultSuccess}
	_ = st.CheckResults().Append(ctx, res)
	// backdate directly; Append stamps CreatedAt to now.
	backdate(st, res.ID, time.Now().Add(-age))
}

// backdate reaches past the repository API to rewrite CreatedAt, mirroring
// how the teacher's integration tests seed fixtures directly against the
// fake store.
func backdate(st *memory.Store, resultID string, at time.Time) {
	st.BackdateResult(resultID, at)
}

func TestSweeper_SweepCheckResults_DeletesOnlyOlderThanHorizon(t *testing.T) {
	st := memory.New()
	ep := &domain.Endpoint{Name: "ep"}
	st.PutEndpoint(ep)

	seedResult(st, ep.ID, 40*24*time.Hour)
	seedResult(st, ep.ID, 1*time.Hour)

	sw := New(st, nil, DefaultConfig(), nil)
	sw.sweepCheckResults(context.Background())

	// The 40-day-old result fell outside the 30-day window and was swept;
	// a second sweep at the same horizon has nothing left to delete.
	deleted, err := st.CheckResults().DeleteOlderThan(context.Background(), time.Now().Add(-30*24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(0), deleted)

	latest, err := st.CheckResults().LatestResult(context.Background(), ep.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
}

func TestSweeper_UntilNext_RollsOverToTomorrowWhenPast(t *testing.T) {
	sw := New(memory.New(), nil, DefaultConfig(), nil)
	past := Clock{Hour: 0, Minute: 0}
	wait := sw.untilNext(past)
	require.Greater(t, wait, time.Duration(0))
	require.LessOrEqual(t, wait, 24*time.Hour)
}

func TestSweeper_PlanRetention_SkipsWindowsNotStricterThanAbsolute(t *testing.T) {
	st := memory.New()
	sw := New(st, fakePlanSource{{ProjectID: "proj-1", Window: 60 * 24 * time.Hour}}, DefaultConfig(), nil)
	sw.sweepPlanRetention(context.Background())
	// no panic, no deletions attempted since 60d > the 30d absolute cap
}

type fakePlanSource []PlanRetention

func (f fakePlanSource) PlanRetentions(ctx context.Context) ([]PlanRetention, error) {
	return f, nil
}
