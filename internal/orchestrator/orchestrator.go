package orchestrator

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/squadronhq/squadron/internal/agent"
	"github.com/squadronhq/squadron/internal/enforce"
	"github.com/squadronhq/squadron/internal/memory"
	"github.com/squadronhq/squadron/internal/workspace"
	"github.com/squadronhq/squadron/pkg/models"
)

// defaultPriority is assigned to tasks submitted without one.
const defaultPriority = 5

// Memory is the slice of the memory gateway the orchestrator needs: context
// retrieval before execution and outcome persistence after.
type Memory interface {
	Retrieve(ctx context.Context, q memory.Query) memory.RetrieveResult
	Store(ctx context.Context, category models.MemoryCategory, content string, metadata map[string]any, project string, tags []string) memory.Result
}

// Gate validates task file access against the enforcement policy.
type Gate interface {
	ValidateAll(agentType models.AgentType, actions []enforce.Action) enforce.Result
}

// Workspaces provides isolated per-execution working directories.
type Workspaces interface {
	Acquire(executionID string) (*workspace.Scope, error)
	Release(scope *workspace.Scope) error
}

// Journal records executions to the local history store. Optional.
type Journal interface {
	RecordExecution(rec *models.ExecutionRecord) error
}

// Config carries everything the orchestrator needs. Executor, Memory, Gate,
// and Workspaces are required; Journal and Logger are optional.
type Config struct {
	// MaxParallel bounds concurrent task executions. Defaults to 5.
	MaxParallel int
	// MaxIterations bounds the parallel run loop. Defaults to 10.
	MaxIterations int
	// TaskTimeout bounds a single execution attempt when the task itself
	// carries no timeout. Zero means no bound.
	TaskTimeout time.Duration

	Executor   agent.Executor
	Memory     Memory
	Gate       Gate
	Workspaces Workspaces
	Journal    Journal
	Logger     *DebugLogger
}

// Orchestrator owns the task queue and runs tasks through their lifecycle:
// enforcement check, memory context, workspace isolation, agent execution,
// and outcome persistence.
type Orchestrator struct {
	cfg    Config
	sem    *semaphore.Weighted
	logger *DebugLogger

	mu     sync.Mutex
	seq    int64
	queue  []*models.TaskRecord
	active map[string]*models.ExecutionRecord
	// completed maps task ID to its finished execution. It grows without
	// bound over the life of the process.
	// TODO: evict completed entries once the history journal can serve
	// dependency lookups for long-running sessions.
	completed map[string]*models.ExecutionRecord

	events        chan Event
	droppedEvents atomic.Uint64
	shutdown      bool
}

// New creates an Orchestrator from config, applying defaults.
func New(cfg Config) *Orchestrator {
	if cfg.MaxParallel < 1 {
		cfg.MaxParallel = 5
	}
	if cfg.MaxIterations < 1 {
		cfg.MaxIterations = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = NopLogger()
	}
	return &Orchestrator{
		cfg:       cfg,
		sem:       semaphore.NewWeighted(int64(cfg.MaxParallel)),
		logger:    cfg.Logger,
		active:    make(map[string]*models.ExecutionRecord),
		completed: make(map[string]*models.ExecutionRecord),
		events:    make(chan Event, 100),
	}
}

// SubmitTask queues a task and returns its ID. Priority zero takes the
// default; the queue stays sorted by priority with submission order breaking
// ties.
func (o *Orchestrator) SubmitTask(agentType models.AgentType, description, project string, taskCtx map[string]any, dependencies []string, priority int) string {
	if priority == 0 {
		priority = defaultPriority
	}
	if priority < 1 {
		priority = 1
	}
	if priority > 10 {
		priority = 10
	}

	o.mu.Lock()
	o.seq++
	task := &models.TaskRecord{
		ID:           uuid.New().String(),
		AgentType:    agentType,
		Description:  description,
		Project:      project,
		Context:      taskCtx,
		Dependencies: append([]string(nil), dependencies...),
		Priority:     priority,
		SubmittedAt:  time.Now(),
		Sequence:     o.seq,
	}
	o.queue = append(o.queue, task)
	sortByPriority(o.queue)
	o.mu.Unlock()

	o.logger.Log("[submit] task %s for %s (priority %d): %s", task.ID, agentType, priority, description)
	o.emit(Event{Type: EventTaskQueued, TaskID: task.ID, AgentType: string(agentType), Message: description})
	return task.ID
}

// sortByPriority orders tasks by priority descending; the stable sort keeps
// submission order among equals.
func sortByPriority(tasks []*models.TaskRecord) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Priority != tasks[j].Priority {
			return tasks[i].Priority > tasks[j].Priority
		}
		return tasks[i].Sequence < tasks[j].Sequence
	})
}

// QueuedTasks returns a snapshot of the queue in dispatch order.
func (o *Orchestrator) QueuedTasks() []*models.TaskRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*models.TaskRecord(nil), o.queue...)
}

// Execution returns the finished execution for a task ID, if any.
func (o *Orchestrator) Execution(taskID string) (*models.ExecutionRecord, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec, ok := o.completed[taskID]
	return rec, ok
}

// Stats summarizes orchestrator state.
type Stats struct {
	AgentDefinitions int `json:"agent_definitions"`
	ActiveExecutions int `json:"active_executions"`
	QueuedTasks      int `json:"queued_tasks"`
	CompletedTasks   int `json:"completed_tasks"`
	MaxParallel      int `json:"max_parallel"`
}

// GetStats returns a snapshot of orchestrator state.
func (o *Orchestrator) GetStats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Stats{
		AgentDefinitions: len(agent.Definitions),
		ActiveExecutions: len(o.active),
		QueuedTasks:      len(o.queue),
		CompletedTasks:   len(o.completed),
		MaxParallel:      o.cfg.MaxParallel,
	}
}

// Shutdown marks in-flight executions terminated and stops accepting work.
// Queued tasks are left in place so a summary can still report them.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.shutdown {
		return
	}
	o.shutdown = true
	for _, exec := range o.active {
		if !exec.State.Terminal() {
			_ = exec.Transition(models.ExecutionTerminated)
		}
	}
	close(o.events)
	o.logger.Log("[shutdown] %d active executions terminated, %d tasks left queued", len(o.active), len(o.queue))
}
