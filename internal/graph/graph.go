// Package graph provides a dependency graph for task scheduling.
package graph

import (
	"errors"
	"fmt"
	"sync"

	"github.com/squadronhq/squadron/pkg/models"
)

// ErrCycleDetected indicates a circular dependency was found in the task graph.
var ErrCycleDetected = errors.New("circular dependency detected")

// DependencyGraph is a directed acyclic graph of task dependencies.
// Tasks are nodes, and edges represent "blocked by" relationships.
type DependencyGraph struct {
	mu sync.RWMutex
	// nodes maps task ID to the task itself.
	nodes map[string]*models.TaskRecord
	// edges maps task ID to IDs of tasks it depends on (is blocked by).
	edges map[string][]string
	// completed tracks tasks that finished successfully. IDs outside the
	// graph may be marked too, so executions from before the graph was
	// built still satisfy dependencies.
	completed map[string]bool
	// failed tracks tasks that reached a failed terminal state. A failed
	// dependency never unblocks its dependents.
	failed map[string]bool
	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
}

// New creates a new empty dependency graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		nodes:     make(map[string]*models.TaskRecord),
		edges:     make(map[string][]string),
		completed: make(map[string]bool),
		failed:    make(map[string]bool),
		debugLog:  func(format string, args ...interface{}) {},
	}
}

// SetDebugLog sets the debug logging function.
func (g *DependencyGraph) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		g.debugLog = fn
	}
}

// Add registers a single task. Dependencies may reference tasks not yet
// added; readiness treats them as pending until they are marked terminal.
// Adding a task that closes a cycle returns ErrCycleDetected and leaves
// the graph unchanged.
func (g *DependencyGraph) Add(task *models.TaskRecord) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.debugLog("[graph.Add] adding task: id=%s agent=%s deps=%v", task.ID, task.AgentType, task.Dependencies)
	g.nodes[task.ID] = task
	g.edges[task.ID] = append([]string(nil), task.Dependencies...)

	if g.hasCycleLocked() {
		delete(g.nodes, task.ID)
		delete(g.edges, task.ID)
		return fmt.Errorf("task %s: %w", task.ID, ErrCycleDetected)
	}
	return nil
}

// hasCycleLocked detects back edges with a depth-first search over colored
// nodes. Assumes the lock is held.
func (g *DependencyGraph) hasCycleLocked() bool {
	// Color states: 0 = white (unvisited), 1 = gray (in progress), 2 = black (done).
	colors := make(map[string]int)
	for id := range g.nodes {
		colors[id] = 0
	}

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1

		for _, depID := range g.edges[id] {
			if _, exists := g.nodes[depID]; !exists {
				continue
			}
			switch colors[depID] {
			case 1:
				// Back edge.
				return true
			case 0:
				if visit(depID) {
					return true
				}
			}
		}

		colors[id] = 2
		return false
	}

	for id := range g.nodes {
		if colors[id] == 0 && visit(id) {
			return true
		}
	}
	return false
}

// TopologicalSort returns task IDs in an order where all dependencies
// come before the tasks that depend on them.
func (g *DependencyGraph) TopologicalSort() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.hasCycleLocked() {
		return nil, ErrCycleDetected
	}

	visited := make(map[string]bool)
	var result []string

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, depID := range g.edges[id] {
			if _, exists := g.nodes[depID]; exists {
				visit(depID)
			}
		}
		result = append(result, id)
	}

	for id := range g.nodes {
		visit(id)
	}
	return result, nil
}

// Ready reports whether a task's dependencies have all completed
// successfully. A task with a failed dependency is never ready.
func (g *DependencyGraph) Ready(taskID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, depID := range g.edges[taskID] {
		if !g.completed[depID] {
			return false
		}
	}
	return true
}

// MarkComplete records a successful terminal state for a task, unblocking
// its dependents. The ID does not need to be a node in the graph.
func (g *DependencyGraph) MarkComplete(taskID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.debugLog("[graph.MarkComplete] task %s complete", taskID)
	g.completed[taskID] = true
}

// MarkFailed records a failed terminal state for a task. Dependents stay
// blocked permanently.
func (g *DependencyGraph) MarkFailed(taskID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.debugLog("[graph.MarkFailed] task %s failed", taskID)
	g.failed[taskID] = true
}

// BlockedBy returns the IDs of unsatisfied dependencies for a task,
// splitting them into pending and failed.
func (g *DependencyGraph) BlockedBy(taskID string) (pending, failed []string) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, depID := range g.edges[taskID] {
		if g.completed[depID] {
			continue
		}
		if g.failed[depID] {
			failed = append(failed, depID)
		} else {
			pending = append(pending, depID)
		}
	}
	return pending, failed
}

// Size returns the number of tasks in the graph.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// GetDependents returns the IDs of tasks that depend on the given task.
func (g *DependencyGraph) GetDependents(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var dependents []string
	for id, deps := range g.edges {
		for _, depID := range deps {
			if depID == taskID {
				dependents = append(dependents, id)
				break
			}
		}
	}
	return dependents
}
