package models

import (
	"fmt"
	"time"
)

// ExecutionState represents the runtime state of a dispatched task.
type ExecutionState string

const (
	// ExecutionInitializing indicates the execution record was just created.
	ExecutionInitializing ExecutionState = "initializing"
	// ExecutionPreparingContext indicates memory context is being assembled.
	ExecutionPreparingContext ExecutionState = "preparing_context"
	// ExecutionExecuting indicates the agent is running.
	ExecutionExecuting ExecutionState = "executing"
	// ExecutionCompleted indicates the agent finished successfully.
	ExecutionCompleted ExecutionState = "completed"
	// ExecutionFailed indicates the agent failed or was denied.
	ExecutionFailed ExecutionState = "failed"
	// ExecutionTerminated indicates the execution was cancelled at shutdown.
	ExecutionTerminated ExecutionState = "terminated"
)

// Valid returns true if the state is a known value.
func (s ExecutionState) Valid() bool {
	switch s {
	case ExecutionInitializing, ExecutionPreparingContext, ExecutionExecuting,
		ExecutionCompleted, ExecutionFailed, ExecutionTerminated:
		return true
	default:
		return false
	}
}

// Terminal returns true if the state cannot transition further.
func (s ExecutionState) Terminal() bool {
	return s == ExecutionCompleted || s == ExecutionFailed || s == ExecutionTerminated
}

// rank orders states along the lifecycle so transitions stay monotonic.
func (s ExecutionState) rank() int {
	switch s {
	case ExecutionInitializing:
		return 0
	case ExecutionPreparingContext:
		return 1
	case ExecutionExecuting:
		return 2
	default:
		return 3
	}
}

// ExecutionRecord tracks one dispatched TaskRecord through its lifecycle.
type ExecutionRecord struct {
	// ID is the unique identifier for this execution.
	ID string `json:"id"`
	// Task is the task being executed. Read-only once dispatched.
	Task *TaskRecord `json:"task"`
	// State is the current lifecycle state.
	State ExecutionState `json:"state"`
	// WorkspacePath is the isolated working directory, if one was acquired.
	WorkspacePath string `json:"workspace_path,omitempty"`
	// StartedAt is when the execution was dispatched.
	StartedAt time.Time `json:"started_at"`
	// EndedAt is when the execution reached a terminal state.
	EndedAt *time.Time `json:"ended_at,omitempty"`
	// Result holds the structured agent output on success.
	Result map[string]any `json:"result,omitempty"`
	// Error describes the failure, if any.
	Error string `json:"error,omitempty"`
	// MemoryIDs lists memory records written as a side effect.
	MemoryIDs []string `json:"memory_ids,omitempty"`
}

// Transition advances the record to the given state. It rejects moves to an
// earlier lifecycle state and any move out of a terminal state.
func (e *ExecutionRecord) Transition(next ExecutionState) error {
	if !next.Valid() {
		return fmt.Errorf("invalid execution state %q", next)
	}
	if e.State.Terminal() {
		return fmt.Errorf("execution %s already terminal in state %q", e.ID, e.State)
	}
	if next.rank() < e.State.rank() {
		return fmt.Errorf("execution %s cannot move from %q back to %q", e.ID, e.State, next)
	}
	e.State = next
	if next.Terminal() {
		now := time.Now()
		e.EndedAt = &now
	}
	return nil
}

// Duration returns how long the execution ran, or zero if still in flight.
func (e *ExecutionRecord) Duration() time.Duration {
	if e.EndedAt == nil {
		return 0
	}
	return e.EndedAt.Sub(e.StartedAt)
}
