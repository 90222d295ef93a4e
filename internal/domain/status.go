package domain

import "time"

// RunState is the batch pipeline's lifecycle state.
type RunState string

const (
	StateIdle    RunState = "idle"
	StateRunning RunState = "running"
	StateSaving  RunState = "saving"
	StateDone    RunState = "done"
)

// StatusUpdate is one human-readable line emitted during a pipeline run,
// together with the run's progress percentage at that moment.
type StatusUpdate struct {
	RunID     string    `json:"run_id"`
	State     RunState  `json:"state"`
	Message   string    `json:"message"`
	Progress  int       `json:"progress"`
	Error     bool      `json:"error,omitempty"`
	EmittedAt time.Time `json:"emitted_at"`
}

// NewStatusUpdate stamps a status line with the package clock.
func NewStatusUpdate(runID string, state RunState, progress int, message string) StatusUpdate {
	return StatusUpdate{
		RunID:     runID,
		State:     state,
		Message:   message,
		Progress:  progress,
		EmittedAt: clock.Now().UTC(),
	}
}
