package orchestrator

import "time"

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventTaskQueued indicates a task entered the queue.
	EventTaskQueued EventType = "task_queued"
	// EventTaskStarted indicates an execution was dispatched.
	EventTaskStarted EventType = "task_started"
	// EventTaskCompleted indicates an execution finished successfully.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed indicates an execution failed or was denied.
	EventTaskFailed EventType = "task_failed"
	// EventTaskBlocked indicates a task can no longer run.
	EventTaskBlocked EventType = "task_blocked"
	// EventRunDone indicates a parallel run drained or gave up.
	EventRunDone EventType = "run_done"
)

// Event is emitted by the orchestrator for progress tracking and the
// watch dashboard.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// TaskID is the ID of the related task, if applicable.
	TaskID string
	// ExecutionID is the ID of the related execution, if applicable.
	ExecutionID string
	// AgentType is the agent the task is routed to.
	AgentType string
	// Message provides additional context about the event.
	Message string
	// Error contains error details for failure events.
	Error error
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// emit sends an event without blocking; events are dropped when the
// subscriber falls behind, and the drop count is tracked. The mutex keeps
// sends ordered against the channel close in Shutdown.
func (o *Orchestrator) emit(event Event) {
	event.Timestamp = time.Now()
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.shutdown {
		return
	}
	select {
	case o.events <- event:
	default:
		o.droppedEvents.Add(1)
	}
}

// Events returns the channel carrying orchestrator progress events.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// DroppedEventCount returns the number of events dropped because the
// subscriber fell behind.
func (o *Orchestrator) DroppedEventCount() uint64 {
	return o.droppedEvents.Load()
}
