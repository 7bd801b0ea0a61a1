package types

import (
	"time"

	"github.com/google/uuid"
)

// RunState is the lifecycle state of one analysis run.
type RunState string

// Run lifecycle states. A run moves Idle → Running → one terminal state.
const (
	RunStateIdle      RunState = "idle"
	RunStateRunning   RunState = "running"
	RunStateCompleted RunState = "completed"
	RunStateCancelled RunState = "cancelled"
	RunStateFailed    RunState = "failed"
)

// Terminal reports whether the state ends a run.
func (s RunState) Terminal() bool {
	switch s {
	case RunStateCompleted, RunStateCancelled, RunStateFailed:
		return true
	default:
		return false
	}
}

// Run records one end-to-end execution of the supervisor loop for a job,
// from lock acquisition to release.
type Run struct {
	ID           uuid.UUID  `json:"id"`
	JobListingID uuid.UUID  `json:"job_listing_id"`
	State        RunState   `json:"state"`
	Processed    int        `json:"processed"`
	Total        int        `json:"total"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// Progress is the per-job counter polled by external collaborators while a
// run is in flight. Processed counts both analyzed and unprocessed applicants.
type Progress struct {
	Processed int       `json:"processed"`
	Total     int       `json:"total"`
	StartedAt time.Time `json:"started_at"`
}
