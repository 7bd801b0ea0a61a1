package analysis

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the failure taxonomy surfaced to callers.
var (
	// ErrConflict means another run already holds the job's lock.
	ErrConflict = errors.New("analysis already running for this job")
	// ErrJobActive means the listing is still accepting applicants.
	ErrJobActive = errors.New("job listing is still active")
	// ErrNoApplicants means the job has nothing left to analyze.
	ErrNoApplicants = errors.New("job has no applicants to analyze")
	// ErrLockLost means TTL renewal failed mid-run; the run aborts to avoid
	// overlapping writers.
	ErrLockLost = errors.New("run lock lost")
	// ErrTransient marks infrastructure failures worth retrying by the caller.
	ErrTransient = errors.New("transient infrastructure failure")
)

// transientf wraps an error as retryable.
func transientf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTransient, fmt.Sprintf(format, args...))
}

// IsRetryable reports whether the caller may retry the operation later.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
