package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/squadronhq/squadron/internal/agent"
	"github.com/squadronhq/squadron/internal/enforce"
	"github.com/squadronhq/squadron/internal/memory"
	"github.com/squadronhq/squadron/internal/workspace"
	"github.com/squadronhq/squadron/pkg/models"
)

type storedRecord struct {
	category models.MemoryCategory
	content  string
	metadata map[string]any
	tags     []string
}

type fakeMemory struct {
	mu     sync.Mutex
	stored []storedRecord
}

func (f *fakeMemory) Retrieve(_ context.Context, _ memory.Query) memory.RetrieveResult {
	return memory.RetrieveResult{Success: true}
}

func (f *fakeMemory) Store(_ context.Context, category models.MemoryCategory, content string, metadata map[string]any, _ string, tags []string) memory.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored = append(f.stored, storedRecord{category: category, content: content, metadata: metadata, tags: tags})
	return memory.Result{Success: true, RecordID: fmt.Sprintf("mem-%d", len(f.stored))}
}

func (f *fakeMemory) byCategory(c models.MemoryCategory) []storedRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storedRecord
	for _, r := range f.stored {
		if r.category == c {
			out = append(out, r)
		}
	}
	return out
}

type fakeExecutor struct {
	mu         sync.Mutex
	order      []string
	inFlight   atomic.Int64
	maxFlight  atomic.Int64
	failFor    map[string]bool
	delay      time.Duration
	violations []string
}

func (f *fakeExecutor) Run(ctx context.Context, inv agent.Invocation) (map[string]any, error) {
	cur := f.inFlight.Add(1)
	for {
		prev := f.maxFlight.Load()
		if cur <= prev || f.maxFlight.CompareAndSwap(prev, cur) {
			break
		}
	}
	defer f.inFlight.Add(-1)

	f.mu.Lock()
	f.order = append(f.order, inv.Task.Description)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.failFor[inv.Task.Description] {
		return nil, errors.New("agent logic failed")
	}
	return map[string]any{"status": "completed", "task_id": inv.Task.ID}, nil
}

func (f *fakeExecutor) ran() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

type fakeGate struct {
	denyPaths map[string]bool
}

func (f *fakeGate) ValidateAll(agentType models.AgentType, actions []enforce.Action) enforce.Result {
	var violations []enforce.Violation
	for _, action := range actions {
		if action.Type == enforce.ActionWrite && f.denyPaths[action.Path] {
			violations = append(violations, enforce.Violation{
				AgentType:   agentType,
				Action:      action.Type,
				Path:        action.Path,
				Severity:    enforce.SeverityHigh,
				Description: fmt.Sprintf("%s may not write %s", agentType, action.Path),
			})
		}
	}
	return enforce.Result{Allowed: len(violations) == 0, Violations: violations}
}

type fakeWorkspaces struct {
	mu       sync.Mutex
	acquired int
	released int
	failNext bool
}

func (f *fakeWorkspaces) Acquire(executionID string) (*workspace.Scope, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return nil, errors.New("worktree add failed")
	}
	f.acquired++
	return &workspace.Scope{ExecutionID: executionID, Path: "/tmp/scopes/" + executionID}, nil
}

func (f *fakeWorkspaces) Release(_ *workspace.Scope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released++
	return nil
}

func newTestOrchestrator(maxParallel int) (*Orchestrator, *fakeExecutor, *fakeMemory, *fakeWorkspaces) {
	executor := &fakeExecutor{failFor: map[string]bool{}}
	mem := &fakeMemory{}
	ws := &fakeWorkspaces{}
	o := New(Config{
		MaxParallel: maxParallel,
		Executor:    executor,
		Memory:      mem,
		Gate:        &fakeGate{},
		Workspaces:  ws,
	})
	return o, executor, mem, ws
}

func TestSubmitTaskDefaultsAndOrdering(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(2)

	lowID := o.SubmitTask(models.AgentEngineer, "low", "proj", nil, nil, 0)
	highA := o.SubmitTask(models.AgentQA, "high a", "proj", nil, nil, 9)
	highB := o.SubmitTask(models.AgentSecurity, "high b", "proj", nil, nil, 9)

	queue := o.QueuedTasks()
	if len(queue) != 3 {
		t.Fatalf("queue length = %d, want 3", len(queue))
	}
	if queue[0].ID != highA || queue[1].ID != highB {
		t.Errorf("equal priorities should keep submission order, got %s then %s", queue[0].Description, queue[1].Description)
	}
	if queue[2].ID != lowID {
		t.Errorf("lowest priority should drain last, got %s", queue[2].Description)
	}
	if queue[2].Priority != defaultPriority {
		t.Errorf("priority = %d, want default %d", queue[2].Priority, defaultPriority)
	}
}

func TestSubmitTaskClampsPriority(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(1)
	o.SubmitTask(models.AgentEngineer, "over", "proj", nil, nil, 99)
	o.SubmitTask(models.AgentEngineer, "under", "proj", nil, nil, -3)
	queue := o.QueuedTasks()
	if queue[0].Priority != 10 {
		t.Errorf("priority = %d, want clamp to 10", queue[0].Priority)
	}
	if queue[1].Priority != 1 {
		t.Errorf("priority = %d, want clamp to 1", queue[1].Priority)
	}
}

func TestRunParallelExecutionThreeTasks(t *testing.T) {
	o, executor, mem, ws := newTestOrchestrator(2)
	executor.delay = 10 * time.Millisecond

	t1 := o.SubmitTask(models.AgentEngineer, "implement feature", "proj", nil, nil, 9)
	o.SubmitTask(models.AgentQA, "test feature", "proj", nil, []string{t1}, 5)
	o.SubmitTask(models.AgentSecurity, "audit feature", "proj", nil, nil, 9)

	summary := o.RunParallelExecution(context.Background())

	if summary.TasksCompleted != 3 || summary.TasksFailed != 0 || summary.TasksRemaining != 0 {
		t.Fatalf("summary = %+v, want 3 completed, 0 failed, 0 remaining", summary)
	}
	if summary.Iterations != 2 {
		t.Errorf("iterations = %d, want 2", summary.Iterations)
	}
	if summary.Deadlocked {
		t.Error("run should not deadlock")
	}
	if got := executor.maxFlight.Load(); got > 2 {
		t.Errorf("max concurrent executions = %d, want <= 2", got)
	}

	// The dependent QA task runs in the second round, after both
	// independent tasks.
	order := executor.ran()
	if order[2] != "test feature" {
		t.Errorf("execution order = %v, want the dependent task last", order)
	}

	// Every execution persists a pattern record.
	if got := len(mem.byCategory(models.CategoryPattern)); got != 3 {
		t.Errorf("pattern records = %d, want 3", got)
	}
	if ws.acquired != 3 || ws.released != 3 {
		t.Errorf("workspaces acquired/released = %d/%d, want 3/3", ws.acquired, ws.released)
	}
}

func TestExecuteTaskGateDenialShortCircuits(t *testing.T) {
	executor := &fakeExecutor{failFor: map[string]bool{}}
	mem := &fakeMemory{}
	ws := &fakeWorkspaces{}
	o := New(Config{
		MaxParallel: 1,
		Executor:    executor,
		Memory:      mem,
		Gate:        &fakeGate{denyPaths: map[string]bool{"src/main.go": true}},
		Workspaces:  ws,
	})

	taskID := o.SubmitTask(models.AgentQA, "sneaky write", "proj",
		map[string]any{"file_paths": []string{"src/main.go"}}, nil, 5)
	exec := o.ExecuteTask(context.Background(), o.QueuedTasks()[0])

	if exec.State != models.ExecutionFailed {
		t.Errorf("state = %q, want failed", exec.State)
	}
	if !strings.Contains(exec.Error, "enforcement violation") {
		t.Errorf("error = %q, want enforcement violation", exec.Error)
	}
	if len(executor.ran()) != 0 {
		t.Error("executor should not run a denied task")
	}
	if ws.acquired != 0 {
		t.Error("denied task should not acquire a workspace")
	}
	if rec, ok := o.Execution(taskID); !ok || rec.State != models.ExecutionFailed {
		t.Error("denied task should still land in completed executions")
	}
}

func TestExecuteTaskPersistsErrorOnFailure(t *testing.T) {
	o, executor, mem, ws := newTestOrchestrator(1)
	executor.failFor["doomed"] = true

	o.SubmitTask(models.AgentEngineer, "doomed", "proj", nil, nil, 5)
	exec := o.ExecuteTask(context.Background(), o.QueuedTasks()[0])

	if exec.State != models.ExecutionFailed {
		t.Fatalf("state = %q, want failed", exec.State)
	}
	patterns := mem.byCategory(models.CategoryPattern)
	if len(patterns) != 1 {
		t.Fatalf("pattern records = %d, want 1", len(patterns))
	}
	if success, _ := patterns[0].metadata["success"].(bool); success {
		t.Error("pattern metadata should mark the execution unsuccessful")
	}
	errRecords := mem.byCategory(models.CategoryError)
	if len(errRecords) != 1 {
		t.Fatalf("error records = %d, want 1", len(errRecords))
	}
	if !strings.Contains(errRecords[0].content, "agent logic failed") {
		t.Errorf("error record missing failure detail: %s", errRecords[0].content)
	}
	if len(exec.MemoryIDs) != 2 {
		t.Errorf("memory IDs = %d, want 2", len(exec.MemoryIDs))
	}
	if ws.released != 1 {
		t.Error("workspace should be released after a failed execution")
	}
}

func TestExecuteTaskWorkspaceFailure(t *testing.T) {
	o, executor, _, ws := newTestOrchestrator(1)
	ws.failNext = true

	o.SubmitTask(models.AgentEngineer, "task", "proj", nil, nil, 5)
	exec := o.ExecuteTask(context.Background(), o.QueuedTasks()[0])

	if exec.State != models.ExecutionFailed {
		t.Errorf("state = %q, want failed", exec.State)
	}
	if !strings.Contains(exec.Error, "acquire workspace") {
		t.Errorf("error = %q, want workspace failure", exec.Error)
	}
	if len(executor.ran()) != 0 {
		t.Error("executor should not run without a workspace")
	}
}

func TestRunReportsDeadlockOnFailedDependency(t *testing.T) {
	o, executor, _, _ := newTestOrchestrator(2)
	executor.failFor["build"] = true

	t1 := o.SubmitTask(models.AgentEngineer, "build", "proj", nil, nil, 9)
	o.SubmitTask(models.AgentQA, "verify", "proj", nil, []string{t1}, 5)

	summary := o.RunParallelExecution(context.Background())

	if summary.TasksFailed != 1 {
		t.Errorf("failed = %d, want 1", summary.TasksFailed)
	}
	if !summary.Deadlocked {
		t.Error("run should report a deadlock when a dependency failed")
	}
	if summary.TasksRemaining != 1 {
		t.Errorf("remaining = %d, want 1", summary.TasksRemaining)
	}
	remaining := o.QueuedTasks()
	if len(remaining) != 1 || !strings.Contains(remaining[0].BlockedReason, "dependency failed") {
		t.Errorf("blocked reason = %q, want dependency failure", remaining[0].BlockedReason)
	}
}

func TestRunUnblocksDependentsOfEarlierExecutions(t *testing.T) {
	o, executor, _, _ := newTestOrchestrator(2)

	// t1 runs outside the loop; the later run must still count it as
	// satisfied for t2.
	t1 := o.SubmitTask(models.AgentEngineer, "prepare", "proj", nil, nil, 9)
	o.ExecuteTask(context.Background(), o.QueuedTasks()[0])
	o.mu.Lock()
	o.queue = nil
	o.mu.Unlock()

	o.SubmitTask(models.AgentQA, "verify", "proj", nil, []string{t1}, 5)
	summary := o.RunParallelExecution(context.Background())

	if summary.Deadlocked {
		t.Error("run must not deadlock on a dependency that already completed")
	}
	if summary.TasksCompleted != 1 || summary.TasksRemaining != 0 {
		t.Errorf("summary = %+v, want 1 completed, 0 remaining", summary)
	}
	if order := executor.ran(); len(order) != 2 || order[1] != "verify" {
		t.Errorf("execution order = %v, want verify to run in the loop", order)
	}
}

func TestFailedTaskEventCarriesError(t *testing.T) {
	o, executor, _, _ := newTestOrchestrator(1)
	executor.failFor["doomed"] = true

	o.SubmitTask(models.AgentEngineer, "doomed", "proj", nil, nil, 5)
	o.ExecuteTask(context.Background(), o.QueuedTasks()[0])
	o.Shutdown()

	var failed *Event
	for event := range o.Events() {
		if event.Type == EventTaskFailed {
			e := event
			failed = &e
		}
	}
	if failed == nil {
		t.Fatal("expected a task_failed event")
	}
	if failed.Error == nil || !strings.Contains(failed.Error.Error(), "agent logic failed") {
		t.Errorf("event error = %v, want the execution failure", failed.Error)
	}
	if failed.Message != "doomed" {
		t.Errorf("event message = %q, want the task description", failed.Message)
	}
}

func TestRunRejectsCircularDependencies(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(2)

	// Submit with placeholder deps, then wire the cycle directly since IDs
	// are only known after submission.
	a := o.SubmitTask(models.AgentEngineer, "a", "proj", nil, nil, 5)
	b := o.SubmitTask(models.AgentEngineer, "b", "proj", nil, []string{a}, 5)
	for _, task := range o.QueuedTasks() {
		if task.ID == a {
			task.Dependencies = []string{b}
		}
	}

	summary := o.RunParallelExecution(context.Background())

	if !summary.Deadlocked && summary.TasksFailed == 0 {
		t.Errorf("cycle should surface as rejection or deadlock, got %+v", summary)
	}
	if summary.TasksCompleted != 0 {
		t.Errorf("completed = %d, want 0", summary.TasksCompleted)
	}
	if len(summary.BlockedTasks) == 0 {
		t.Error("cycle members should be reported as blocked")
	}
}

func TestGetStats(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(3)
	o.SubmitTask(models.AgentEngineer, "queued", "proj", nil, nil, 5)

	stats := o.GetStats()
	if stats.QueuedTasks != 1 {
		t.Errorf("queued = %d, want 1", stats.QueuedTasks)
	}
	if stats.MaxParallel != 3 {
		t.Errorf("max parallel = %d, want 3", stats.MaxParallel)
	}
	if stats.AgentDefinitions != len(agent.Definitions) {
		t.Errorf("agent definitions = %d, want %d", stats.AgentDefinitions, len(agent.Definitions))
	}
}

func TestDroppedEventCount(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(1)

	// Nothing drains the channel, so everything past its capacity drops.
	for i := 0; i < 150; i++ {
		o.emit(Event{Type: EventTaskQueued})
	}
	if got := o.DroppedEventCount(); got != 50 {
		t.Errorf("dropped events = %d, want 50", got)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(1)
	o.Shutdown()
	o.Shutdown()

	// Events after shutdown are dropped, not sent on the closed channel.
	o.emit(Event{Type: EventTaskQueued})
}
