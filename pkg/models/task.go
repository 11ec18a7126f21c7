package models

import "time"

// TaskRecord is a unit of work submitted to the orchestrator.
type TaskRecord struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// AgentType is the role this task is routed to.
	AgentType AgentType `json:"agent_type"`
	// Description is the free-text statement of the work.
	Description string `json:"description"`
	// Project is the project the task belongs to.
	Project string `json:"project"`
	// Context carries arbitrary task inputs; keys under "file_paths" are
	// checked against the enforcement gate before execution.
	Context map[string]any `json:"context,omitempty"`
	// Dependencies lists task IDs that must complete before this task runs.
	Dependencies []string `json:"dependencies,omitempty"`
	// Priority orders queue draining; higher runs sooner. Defaults to 5.
	Priority int `json:"priority"`
	// Timeout bounds a single execution attempt.
	Timeout time.Duration `json:"timeout,omitempty"`
	// SubmittedAt is when the task entered the queue.
	SubmittedAt time.Time `json:"submitted_at"`
	// Sequence is the submission order, used as the FIFO tie-break among
	// equal priorities.
	Sequence int64 `json:"sequence"`
	// RetryCount is the number of times this task has been retried.
	RetryCount int `json:"retry_count,omitempty"`
	// BlockedReason explains why the task can no longer run, if set.
	BlockedReason string `json:"blocked_reason,omitempty"`
}

// FilePaths returns the file paths the task context references, if any.
func (t *TaskRecord) FilePaths() []string {
	raw, ok := t.Context["file_paths"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		paths := make([]string, 0, len(v))
		for _, p := range v {
			if s, ok := p.(string); ok {
				paths = append(paths, s)
			}
		}
		return paths
	default:
		return nil
	}
}
