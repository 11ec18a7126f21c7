package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/squadronhq/squadron/internal/agent"
	"github.com/squadronhq/squadron/internal/enforce"
	"github.com/squadronhq/squadron/pkg/models"
)

// ExecuteTask runs one task through its full lifecycle and returns the
// finished execution record. The record is always terminal on return; errors
// surface through its State and Error fields rather than a return value.
func (o *Orchestrator) ExecuteTask(ctx context.Context, task *models.TaskRecord) *models.ExecutionRecord {
	exec := &models.ExecutionRecord{
		ID:        uuid.New().String(),
		Task:      task,
		State:     models.ExecutionInitializing,
		StartedAt: time.Now(),
	}

	o.mu.Lock()
	o.active[exec.ID] = exec
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.completed[task.ID] = exec
		delete(o.active, exec.ID)
		o.mu.Unlock()

		if o.cfg.Journal != nil {
			if err := o.cfg.Journal.RecordExecution(exec); err != nil {
				o.logger.Log("[execute] journal write failed for %s: %v", exec.ID, err)
			}
		}
		if exec.State == models.ExecutionCompleted {
			o.emit(Event{Type: EventTaskCompleted, TaskID: task.ID, ExecutionID: exec.ID, AgentType: string(task.AgentType), Message: task.Description})
		} else {
			var execErr error
			if exec.Error != "" {
				execErr = errors.New(exec.Error)
			}
			o.emit(Event{Type: EventTaskFailed, TaskID: task.ID, ExecutionID: exec.ID, AgentType: string(task.AgentType), Message: task.Description, Error: execErr})
		}
	}()

	// File access is validated before any resources are acquired; a denied
	// task fails without consuming a semaphore slot or a workspace.
	if violation, denied := o.checkEnforcement(task); denied {
		exec.Error = violation
		_ = exec.Transition(models.ExecutionFailed)
		o.logger.Log("[execute] task %s denied by enforcement gate: %s", task.ID, violation)
		return exec
	}

	if err := o.sem.Acquire(ctx, 1); err != nil {
		exec.Error = fmt.Sprintf("acquire execution slot: %v", err)
		_ = exec.Transition(models.ExecutionFailed)
		return exec
	}
	defer o.sem.Release(1)

	o.emit(Event{Type: EventTaskStarted, TaskID: task.ID, ExecutionID: exec.ID, AgentType: string(task.AgentType), Message: task.Description})

	_ = exec.Transition(models.ExecutionPreparingContext)
	memCtx := agent.PrepareContext(ctx, o.cfg.Memory, task.AgentType, task.Project, task.Description)
	if memCtx.Err != "" {
		o.logger.Log("[execute] task %s running with degraded memory context: %s", task.ID, memCtx.Err)
	}

	scope, err := o.cfg.Workspaces.Acquire(exec.ID)
	if err != nil {
		exec.Error = fmt.Sprintf("acquire workspace: %v", err)
		_ = exec.Transition(models.ExecutionFailed)
		o.persistOutcome(ctx, exec)
		return exec
	}
	defer func() {
		if err := o.cfg.Workspaces.Release(scope); err != nil {
			o.logger.Log("[execute] release workspace for %s: %v", exec.ID, err)
		}
	}()
	exec.WorkspacePath = scope.Path

	_ = exec.Transition(models.ExecutionExecuting)

	runCtx := ctx
	timeout := task.Timeout
	if timeout == 0 {
		timeout = o.cfg.TaskTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := o.cfg.Executor.Run(runCtx, agent.Invocation{
		Task:      task,
		Memory:    memCtx,
		Workspace: scope.Path,
	})
	if err != nil {
		exec.Error = err.Error()
		_ = exec.Transition(models.ExecutionFailed)
	} else {
		exec.Result = result
		_ = exec.Transition(models.ExecutionCompleted)
	}

	o.persistOutcome(ctx, exec)
	return exec
}

// checkEnforcement validates the task's declared file paths plus a coarse
// execute check against the gate. Returns a description and true on denial.
func (o *Orchestrator) checkEnforcement(task *models.TaskRecord) (string, bool) {
	actions := []enforce.Action{{Type: enforce.ActionExecute, Path: task.Description}}
	for _, path := range task.FilePaths() {
		actions = append(actions, enforce.Action{Type: enforce.ActionWrite, Path: path})
	}

	result := o.cfg.Gate.ValidateAll(task.AgentType, actions)
	if result.Allowed {
		return "", false
	}

	descriptions := make([]string, 0, len(result.Violations))
	for _, v := range result.Violations {
		descriptions = append(descriptions, v.Description)
	}
	return "enforcement violation: " + strings.Join(descriptions, "; "), true
}

// persistOutcome stores the execution as a pattern record, plus an error
// record on failure. Persistence failures are logged, never fatal.
func (o *Orchestrator) persistOutcome(ctx context.Context, exec *models.ExecutionRecord) {
	task := exec.Task
	success := exec.State == models.ExecutionCompleted

	resultJSON, _ := json.MarshalIndent(exec.Result, "", "  ")
	content := fmt.Sprintf(
		"Agent Execution Pattern - %s\n\nTask: %s\nProject: %s\nStatus: %s\nDuration: %.2fs\n\nResults: %s",
		task.AgentType, task.Description, task.Project, exec.State,
		exec.Duration().Seconds(), resultJSON,
	)

	res := o.cfg.Memory.Store(ctx, models.CategoryPattern, content, map[string]any{
		"agent_type":       string(task.AgentType),
		"execution_id":     exec.ID,
		"task_id":          task.ID,
		"success":          success,
		"duration_seconds": exec.Duration().Seconds(),
	}, task.Project, []string{"agent_execution", string(task.AgentType), "pattern"})
	if res.Success {
		exec.MemoryIDs = append(exec.MemoryIDs, res.RecordID)
	} else {
		o.logger.Log("[execute] pattern store failed for %s: %s", exec.ID, res.Error)
	}

	if success || exec.Error == "" {
		return
	}

	errContent := fmt.Sprintf(
		"Agent Execution Error - %s\n\nTask: %s\nProject: %s\nError: %s",
		task.AgentType, task.Description, task.Project, exec.Error,
	)
	errRes := o.cfg.Memory.Store(ctx, models.CategoryError, errContent, map[string]any{
		"agent_type":   string(task.AgentType),
		"execution_id": exec.ID,
		"task_id":      task.ID,
		"error_type":   "agent_execution_failure",
	}, task.Project, []string{"agent_error", string(task.AgentType), "failure"})
	if errRes.Success {
		exec.MemoryIDs = append(exec.MemoryIDs, errRes.RecordID)
	} else {
		o.logger.Log("[execute] error store failed for %s: %s", exec.ID, errRes.Error)
	}
}
