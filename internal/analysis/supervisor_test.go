package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/applicant-analyzer/internal/db"
	"github.com/jonathan/applicant-analyzer/internal/logger"
	"github.com/jonathan/applicant-analyzer/internal/types"
)

func newTestSupervisor(t *testing.T, sources *fakeSources, results *fakeResults, state *fakeState, dispatcher *fakeDispatcher) *supervisor {
	t.Helper()
	runID := uuid.New()
	state.lockOwner = runID.String()
	return &supervisor{
		runID:      runID,
		job:        sources.job,
		applicants: sources,
		dispatcher: dispatcher,
		writer:     db.NewBulkWriter(results, logger.NewNop()),
		state:      state,
		lockTTL:    time.Minute,
		logger:     logger.NewNop(),
	}
}

func testJob() *types.JobRequirements {
	return &types.JobRequirements{
		JobListingID:    uuid.New(),
		Title:           "Platform Engineer",
		Skills:          []string{"go", "postgres"},
		ExperienceYears: 5,
	}
}

func TestSupervisorCompletesAllApplicants(t *testing.T) {
	results := newFakeResults()
	sources := &fakeSources{job: testJob(), applicants: makeApplicants(10), results: results}
	state := &fakeState{}
	dispatcher := &fakeDispatcher{size: 4}

	sup := newTestSupervisor(t, sources, results, state, dispatcher)
	out := sup.run(context.Background())

	require.NoError(t, out.err)
	assert.Equal(t, types.RunStateCompleted, out.state)
	assert.Equal(t, 10, out.processed)
	assert.Len(t, results.rows, 10)
	// 10 applicants at wave size 4 take three waves.
	assert.Equal(t, 3, dispatcher.waves)
}

func TestSupervisorIsolatesApplicantFailures(t *testing.T) {
	applicants := makeApplicants(6)
	results := newFakeResults()
	sources := &fakeSources{job: testJob(), applicants: applicants, results: results}
	state := &fakeState{}
	dispatcher := &fakeDispatcher{
		size:    3,
		failing: map[uuid.UUID]bool{applicants[1]: true, applicants[4]: true},
	}

	sup := newTestSupervisor(t, sources, results, state, dispatcher)
	out := sup.run(context.Background())

	require.NoError(t, out.err)
	assert.Equal(t, types.RunStateCompleted, out.state)
	assert.Equal(t, 6, out.processed, "failed applicants still count as processed")

	assert.Equal(t, types.StatusUnprocessed, results.rows[applicants[1]].Status)
	assert.Equal(t, types.StatusUnprocessed, results.rows[applicants[4]].Status)
	assert.Equal(t, types.StatusAnalyzed, results.rows[applicants[0]].Status)
}

func TestSupervisorDoesNotRetryUnprocessedWithinRun(t *testing.T) {
	applicants := makeApplicants(4)
	results := newFakeResults()
	sources := &fakeSources{job: testJob(), applicants: applicants, results: results}
	state := &fakeState{}
	// Every applicant fails, so every row stays unprocessed and keeps being
	// listed as unanalyzed. The run must still terminate.
	dispatcher := &fakeDispatcher{
		size:    2,
		failing: map[uuid.UUID]bool{applicants[0]: true, applicants[1]: true, applicants[2]: true, applicants[3]: true},
	}

	sup := newTestSupervisor(t, sources, results, state, dispatcher)
	out := sup.run(context.Background())

	require.NoError(t, out.err)
	assert.Equal(t, types.RunStateCompleted, out.state)
	assert.Equal(t, 4, out.processed)
	assert.Equal(t, 2, dispatcher.waves, "each applicant attempted exactly once")
}

func TestSupervisorCancelsAtWaveBoundary(t *testing.T) {
	results := newFakeResults()
	sources := &fakeSources{job: testJob(), applicants: makeApplicants(10), results: results}
	state := &fakeState{}
	dispatcher := &fakeDispatcher{size: 4}
	dispatcher.beforeWave = func(wave int) {
		if wave == 2 {
			require.NoError(t, state.SetCancelled(context.Background(), ""))
		}
	}

	sup := newTestSupervisor(t, sources, results, state, dispatcher)
	out := sup.run(context.Background())

	require.NoError(t, out.err)
	assert.Equal(t, types.RunStateCancelled, out.state)
	// The flag went up during the second wave: both dispatched waves are
	// preserved, the third never starts.
	assert.Equal(t, 8, out.processed)
	assert.Len(t, results.rows, 8)
	assert.Equal(t, 2, dispatcher.waves)
}

func TestSupervisorCancelSkipsRemainingInWave(t *testing.T) {
	results := newFakeResults()
	sources := &fakeSources{job: testJob(), applicants: makeApplicants(6), results: results}
	state := &fakeState{}

	// Flag goes up while the wave is in flight: the pool skips applicants it
	// has not started, so the wave comes back short and the supervisor
	// transitions to cancelled without another list query.
	dispatcher := &fakeDispatcher{size: 6}
	calls := 0
	sup := newTestSupervisor(t, sources, results, state, dispatcher)

	// Wrap the dispatcher's cancelled polling by cancelling after three
	// applicants have been checked.
	inner := dispatcher
	sup.dispatcher = dispatchFunc{
		size: 6,
		fn: func(ctx context.Context, job *types.JobRequirements, ids []uuid.UUID, cancelled func() bool) []types.AnalysisResult {
			return inner.Dispatch(ctx, job, ids, func() bool {
				calls++
				if calls > 3 {
					return true
				}
				return cancelled()
			})
		},
	}

	out := sup.run(context.Background())

	require.NoError(t, out.err)
	assert.Equal(t, types.RunStateCancelled, out.state)
	assert.Equal(t, 3, out.processed)
	assert.Len(t, results.rows, 3)
}

func TestSupervisorFailsWhenPersistFails(t *testing.T) {
	results := newFakeResults()
	results.upsertErr = errors.New("connection refused")
	sources := &fakeSources{job: testJob(), applicants: makeApplicants(3), results: results}
	state := &fakeState{}

	sup := newTestSupervisor(t, sources, results, state, &fakeDispatcher{size: 4})
	sup.writer = db.NewBulkWriter(results, logger.NewNop()).WithBatchSize(2)

	out := sup.run(context.Background())

	assert.Equal(t, types.RunStateFailed, out.state)
	assert.True(t, IsRetryable(out.err))
	assert.Equal(t, 0, out.processed)
}

func TestSupervisorFailsWhenLockRenewalDenied(t *testing.T) {
	results := newFakeResults()
	sources := &fakeSources{job: testJob(), applicants: makeApplicants(8), results: results}
	state := &fakeState{renewDeny: true}

	sup := newTestSupervisor(t, sources, results, state, &fakeDispatcher{size: 4})
	out := sup.run(context.Background())

	assert.Equal(t, types.RunStateFailed, out.state)
	assert.ErrorIs(t, out.err, ErrLockLost)
	// The wave that was already persisted stays persisted.
	assert.Equal(t, 4, out.processed)
	assert.Len(t, results.rows, 4)
}

func TestSupervisorFailsWhenRenewalUnreachable(t *testing.T) {
	results := newFakeResults()
	sources := &fakeSources{job: testJob(), applicants: makeApplicants(2), results: results}
	state := &fakeState{renewErr: errors.New("i/o timeout")}

	sup := newTestSupervisor(t, sources, results, state, &fakeDispatcher{size: 4})
	out := sup.run(context.Background())

	assert.Equal(t, types.RunStateFailed, out.state)
	assert.ErrorIs(t, out.err, ErrLockLost)
}

func TestSupervisorTreatsCancelCheckErrorAsNotCancelled(t *testing.T) {
	results := newFakeResults()
	sources := &fakeSources{job: testJob(), applicants: makeApplicants(4), results: results}
	state := &fakeState{cancelErr: errors.New("i/o timeout")}

	sup := newTestSupervisor(t, sources, results, state, &fakeDispatcher{size: 2})
	out := sup.run(context.Background())

	require.NoError(t, out.err)
	assert.Equal(t, types.RunStateCompleted, out.state)
	assert.Equal(t, 4, out.processed)
}

func TestNextWave(t *testing.T) {
	ids := makeApplicants(5)

	tests := []struct {
		name      string
		remaining []uuid.UUID
		attempted []uuid.UUID
		cap       int
		want      []uuid.UUID
	}{
		{
			name:      "caps at pool size",
			remaining: ids,
			cap:       2,
			want:      ids[:2],
		},
		{
			name:      "skips attempted",
			remaining: ids,
			attempted: ids[:3],
			cap:       4,
			want:      ids[3:],
		},
		{
			name:      "empty when all attempted",
			remaining: ids,
			attempted: ids,
			cap:       4,
			want:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempted := make(map[uuid.UUID]bool)
			for _, id := range tt.attempted {
				attempted[id] = true
			}
			assert.Equal(t, tt.want, nextWave(tt.remaining, attempted, tt.cap))
		})
	}
}

// dispatchFunc adapts a function to the wave dispatcher contract.
type dispatchFunc struct {
	size int
	fn   func(ctx context.Context, job *types.JobRequirements, ids []uuid.UUID, cancelled func() bool) []types.AnalysisResult
}

func (d dispatchFunc) Size() int { return d.size }

func (d dispatchFunc) Dispatch(ctx context.Context, job *types.JobRequirements, ids []uuid.UUID, cancelled func() bool) []types.AnalysisResult {
	return d.fn(ctx, job, ids, cancelled)
}
