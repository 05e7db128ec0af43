package pipeline

import (
	"errors"
	"fmt"

	"tunegrab/internal/mediaid"
)

// State represents the lifecycle of a batch job.
type State string

const (
	StatePending          State = "pending"
	StateValidating       State = "validating"
	StateDuplicateSkipped State = "duplicate_skipped"
	StateAcquiring        State = "acquiring"
	StateFinalizing       State = "finalizing"
	StateCompleted        State = "completed"
	StateFailed           State = "failed"
	StateCancelled        State = "cancelled"
)

// ErrInvalidTransition is returned when a job is moved along an edge the
// state machine does not allow.
var ErrInvalidTransition = errors.New("invalid job state transition")

var allStates = []State{
	StatePending,
	StateValidating,
	StateDuplicateSkipped,
	StateAcquiring,
	StateFinalizing,
	StateCompleted,
	StateFailed,
	StateCancelled,
}

var forwardTransitions = map[State]State{
	StatePending:    StateValidating,
	StateAcquiring:  StateFinalizing,
	StateFinalizing: StateCompleted,
}

// States returns every known state in lifecycle order.
func States() []State {
	out := make([]State, len(allStates))
	copy(out, allStates)
	return out
}

// Terminal reports whether no further transition is allowed from s.
func (s State) Terminal() bool {
	switch s {
	case StateDuplicateSkipped, StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// CanTransition reports whether s may move to next. Failed and cancelled are
// reachable from every non-terminal state.
func (s State) CanTransition(next State) bool {
	if s.Terminal() {
		return false
	}
	if next == StateFailed || next == StateCancelled {
		return true
	}
	if s == StateValidating {
		return next == StateDuplicateSkipped || next == StateAcquiring
	}
	want, ok := forwardTransitions[s]
	return ok && want == next
}

// FailureKind classifies why a job failed.
type FailureKind string

const (
	KindNone               FailureKind = ""
	KindAcquisitionFailed  FailureKind = "acquisition_failed"
	KindFinalizationFailed FailureKind = "finalization_failed"
	KindCatalogFailed      FailureKind = "catalog_failed"
)

// Job is the coordinator's view of one accepted identifier.
type Job struct {
	ID         mediaid.ID  `json:"id"`
	Raw        string      `json:"raw"`
	State      State       `json:"state"`
	Percent    float64     `json:"percent"`
	Detail     string      `json:"detail,omitempty"`
	Kind       FailureKind `json:"failure_kind,omitempty"`
	Diagnostic string      `json:"diagnostic,omitempty"`
	LocalPath  string      `json:"local_path,omitempty"`
}

// Apply moves the job to next, enforcing the state machine.
func (j *Job) Apply(next State) error {
	if !j.State.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.State, next)
	}
	j.State = next
	return nil
}
