package orchestrator

import (
	"context"
	"sync"

	"github.com/squadronhq/squadron/internal/graph"
	"github.com/squadronhq/squadron/pkg/models"
)

// RunSummary reports the outcome of a parallel run.
type RunSummary struct {
	// Iterations is the number of dispatch rounds executed.
	Iterations int `json:"iterations"`
	// TasksCompleted counts executions that finished successfully.
	TasksCompleted int `json:"tasks_completed"`
	// TasksFailed counts executions that failed or were denied.
	TasksFailed int `json:"tasks_failed"`
	// TasksRemaining counts tasks still queued when the run ended.
	TasksRemaining int `json:"tasks_remaining"`
	// Deadlocked is true when queued tasks remained but none was ready.
	Deadlocked bool `json:"deadlocked"`
	// BlockedTasks lists task IDs that could not run, with the reason
	// recorded on each task.
	BlockedTasks []string `json:"blocked_tasks,omitempty"`
}

// RunParallelExecution drains the queue: each round it partitions queued
// tasks into ready and blocked against the run's dependency graph,
// dispatches up to MaxParallel ready tasks concurrently, and requeues the
// overflow. A round with queued tasks but nothing ready is a deadlock and
// ends the run.
func (o *Orchestrator) RunParallelExecution(ctx context.Context) RunSummary {
	var summary RunSummary

	g, rejected := o.buildRunGraph()
	summary.BlockedTasks = rejected
	summary.TasksFailed += len(rejected)

	o.logger.Log("[run] starting parallel execution with %d tasks queued", g.Size())
	if order, err := g.TopologicalSort(); err == nil {
		o.logger.Log("[run] dependency order: %v", order)
	}

	for summary.Iterations < o.cfg.MaxIterations {
		ready, blocked := o.partitionReady(g)
		if len(ready) == 0 && len(blocked) == 0 {
			break
		}
		summary.Iterations++

		if len(ready) == 0 {
			// Every queued task is waiting on something that will never
			// complete in this run.
			o.logger.Log("[run] no tasks ready with %d still queued, reporting deadlock", len(blocked))
			for _, task := range blocked {
				task.BlockedReason = blockedReason(g, task)
				summary.BlockedTasks = append(summary.BlockedTasks, task.ID)
				o.emit(Event{Type: EventTaskBlocked, TaskID: task.ID, AgentType: string(task.AgentType), Message: task.BlockedReason})
			}
			summary.Deadlocked = true
			o.requeue(blocked)
			break
		}

		dispatch := ready
		if len(dispatch) > o.cfg.MaxParallel {
			dispatch = dispatch[:o.cfg.MaxParallel]
			o.requeue(ready[o.cfg.MaxParallel:])
		}
		o.requeue(blocked)

		o.logger.Log("[run] iteration %d: dispatching %d tasks, %d blocked", summary.Iterations, len(dispatch), len(blocked))

		results := make([]*models.ExecutionRecord, len(dispatch))
		var wg sync.WaitGroup
		for i, task := range dispatch {
			wg.Add(1)
			go func(i int, task *models.TaskRecord) {
				defer wg.Done()
				results[i] = o.ExecuteTask(ctx, task)
			}(i, task)
		}
		wg.Wait()

		for _, exec := range results {
			if exec.State == models.ExecutionCompleted {
				summary.TasksCompleted++
				g.MarkComplete(exec.Task.ID)
				continue
			}
			summary.TasksFailed++
			g.MarkFailed(exec.Task.ID)
			if dependents := g.GetDependents(exec.Task.ID); len(dependents) > 0 {
				o.logger.Log("[run] task %s failed, dependents stay blocked: %v", exec.Task.ID, dependents)
			}
		}

		if ctx.Err() != nil {
			break
		}
	}

	o.mu.Lock()
	summary.TasksRemaining = len(o.queue)
	o.mu.Unlock()

	o.logger.Log("[run] finished: %d iterations, %d completed, %d failed, %d remaining",
		summary.Iterations, summary.TasksCompleted, summary.TasksFailed, summary.TasksRemaining)
	o.emit(Event{Type: EventRunDone})
	return summary
}

// buildRunGraph registers the queue on a fresh dependency graph, dropping
// tasks that close a cycle, and returns the graph with the rejected IDs.
// Executions that finished before this run seed the graph so their
// dependents are not re-blocked.
func (o *Orchestrator) buildRunGraph() (*graph.DependencyGraph, []string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	g := graph.New()
	g.SetDebugLog(o.logger.Log)

	var rejected []string
	var kept []*models.TaskRecord
	for _, task := range o.queue {
		if err := g.Add(task); err != nil {
			task.BlockedReason = "circular dependency"
			rejected = append(rejected, task.ID)
			o.logger.Log("[run] rejecting task %s: %v", task.ID, err)
			continue
		}
		kept = append(kept, task)
	}
	o.queue = kept

	for _, id := range rejected {
		g.MarkFailed(id)
	}
	for id, rec := range o.completed {
		if rec.State == models.ExecutionCompleted {
			g.MarkComplete(id)
		} else {
			g.MarkFailed(id)
		}
	}
	return g, rejected
}

// partitionReady empties the queue, splitting tasks into those the graph
// reports ready and those still waiting. Both slices preserve priority
// order.
func (o *Orchestrator) partitionReady(g *graph.DependencyGraph) (ready, blocked []*models.TaskRecord) {
	o.mu.Lock()
	queued := o.queue
	o.queue = nil
	o.mu.Unlock()

	for _, task := range queued {
		if g.Ready(task.ID) {
			ready = append(ready, task)
		} else {
			blocked = append(blocked, task)
		}
	}
	return ready, blocked
}

// requeue returns tasks to the queue and restores priority order.
func (o *Orchestrator) requeue(tasks []*models.TaskRecord) {
	if len(tasks) == 0 {
		return
	}
	o.mu.Lock()
	o.queue = append(o.queue, tasks...)
	sortByPriority(o.queue)
	o.mu.Unlock()
}

// blockedReason names the first unsatisfied dependency of a task. Failed
// dependencies take precedence since they can never be outwaited.
func blockedReason(g *graph.DependencyGraph, task *models.TaskRecord) string {
	pending, failed := g.BlockedBy(task.ID)
	if len(failed) > 0 {
		return "dependency failed: " + failed[0]
	}
	if len(pending) > 0 {
		return "waiting on dependency " + pending[0]
	}
	return "not ready"
}
