package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/applicant-analyzer/internal/db"
	"github.com/jonathan/applicant-analyzer/internal/types"
)

// fakeState is an in-memory RunStateStore with per-operation error hooks.
type fakeState struct {
	mu sync.Mutex

	lockOwner string
	cancelled bool
	progress  types.Progress
	hasProg   bool

	acquireErr error
	renewErr   error
	renewDeny  bool
	cancelErr  error
	incrErr    error
}

func (f *fakeState) TryAcquire(_ context.Context, _, runID string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.acquireErr != nil {
		return false, f.acquireErr
	}
	if f.lockOwner != "" {
		return false, nil
	}
	f.lockOwner = runID
	return true, nil
}

func (f *fakeState) Renew(_ context.Context, _, runID string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.renewErr != nil {
		return false, f.renewErr
	}
	if f.renewDeny || f.lockOwner != runID {
		return false, nil
	}
	return true, nil
}

func (f *fakeState) Release(_ context.Context, _, runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lockOwner == runID {
		f.lockOwner = ""
	}
	return nil
}

func (f *fakeState) SetCancelled(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = true
	return nil
}

func (f *fakeState) IsCancelled(_ context.Context, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		return false, f.cancelErr
	}
	return f.cancelled, nil
}

func (f *fakeState) ClearCancelled(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = false
	return nil
}

func (f *fakeState) InitProgress(_ context.Context, _ string, total int, startedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = types.Progress{Total: total, StartedAt: startedAt}
	f.hasProg = true
	return nil
}

func (f *fakeState) IncrProcessed(_ context.Context, _ string, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrErr != nil {
		return f.incrErr
	}
	f.progress.Processed += n
	return nil
}

func (f *fakeState) GetProgress(_ context.Context, _ string) (types.Progress, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.progress, f.hasProg, nil
}

func (f *fakeState) ClearProgress(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = types.Progress{}
	f.hasProg = false
	return nil
}

func (f *fakeState) locked() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lockOwner != ""
}

// fakeResults is an in-memory ResultStore keyed by applicant ID.
type fakeResults struct {
	mu sync.Mutex

	rows map[uuid.UUID]types.AnalysisResult
	runs []types.Run

	upsertErr  error
	upsertDone func()
}

func newFakeResults() *fakeResults {
	return &fakeResults{rows: make(map[uuid.UUID]types.AnalysisResult)}
}

func (f *fakeResults) UpsertResults(_ context.Context, results []types.AnalysisResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, r := range results {
		f.rows[r.ApplicantID] = r
	}
	if f.upsertDone != nil {
		f.upsertDone()
	}
	return nil
}

func (f *fakeResults) DeleteResultsForJob(_ context.Context, _ uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.rows))
	f.rows = make(map[uuid.UUID]types.AnalysisResult)
	return n, nil
}

func (f *fakeResults) ListResults(_ context.Context, _ uuid.UUID, _ db.ResultFilters) ([]types.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.AnalysisResult, 0, len(f.rows))
	for _, r := range f.rows {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeResults) CreateRun(_ context.Context, run types.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeResults) FinishRun(_ context.Context, runID uuid.UUID, state types.RunState, processed int, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.runs {
		if f.runs[i].ID == runID {
			now := time.Now().UTC()
			f.runs[i].State = state
			f.runs[i].Processed = processed
			f.runs[i].ErrorMessage = errorMessage
			f.runs[i].FinishedAt = &now
		}
	}
	return nil
}

func (f *fakeResults) GetLatestRun(_ context.Context, _ uuid.UUID) (*types.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.runs) == 0 {
		return nil, nil
	}
	run := f.runs[len(f.runs)-1]
	return &run, nil
}

func (f *fakeResults) analyzedIDs() map[uuid.UUID]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uuid.UUID]bool)
	for id, r := range f.rows {
		if r.Status == types.StatusAnalyzed {
			out[id] = true
		}
	}
	return out
}

func (f *fakeResults) latestRun() *types.Run {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.runs) == 0 {
		return nil
	}
	run := f.runs[len(f.runs)-1]
	return &run
}

// fakeSources serves the job and applicant collaborators. Applicants with an
// analyzed row in results are no longer listed as unanalyzed, mirroring the
// real store query.
type fakeSources struct {
	job        *types.JobRequirements
	applicants []uuid.UUID
	results    *fakeResults

	jobErr  error
	listErr error
}

func (f *fakeSources) FetchJobRequirements(_ context.Context, _ uuid.UUID) (*types.JobRequirements, error) {
	if f.jobErr != nil {
		return nil, f.jobErr
	}
	return f.job, nil
}

func (f *fakeSources) ListUnanalyzedApplicants(_ context.Context, _ uuid.UUID) ([]uuid.UUID, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	analyzed := f.results.analyzedIDs()
	var out []uuid.UUID
	for _, id := range f.applicants {
		if !analyzed[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeSources) FetchApplicantResumeText(_ context.Context, _ uuid.UUID) (string, error) {
	return "resume text", nil
}

// fakeDispatcher processes a wave inline. failing applicants get unprocessed
// rows; all others get analyzed rows. cancelled is polled before each
// applicant, matching the pool contract.
type fakeDispatcher struct {
	size    int
	failing map[uuid.UUID]bool

	// beforeWave runs at the start of each Dispatch call, after the first.
	// Used to flip the cancellation flag mid-run.
	waves      int
	beforeWave func(wave int)
}

func (f *fakeDispatcher) Size() int { return f.size }

func (f *fakeDispatcher) Dispatch(_ context.Context, job *types.JobRequirements, applicantIDs []uuid.UUID, cancelled func() bool) []types.AnalysisResult {
	f.waves++
	if f.beforeWave != nil {
		f.beforeWave(f.waves)
	}

	var results []types.AnalysisResult
	for _, id := range applicantIDs {
		if cancelled() {
			continue
		}
		if f.failing[id] {
			results = append(results, types.NewUnprocessedResult(id, job.JobListingID, "classification: model call failed"))
			continue
		}
		sub := types.SubScores{Education: 80, Skills: 90, Experience: 95, Supplemental: 70}
		results = append(results, types.NewAnalyzedResult(id, job.JobListingID, sub, 91, types.CategoryBestMatch, nil))
	}
	return results
}

func makeApplicants(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}
