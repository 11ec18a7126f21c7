// Package workspace provides isolated per-execution working directories.
// In a git repository each execution gets its own worktree on a dedicated
// branch; outside a repository it degrades to a plain scratch directory.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/squadronhq/squadron/internal/git"
)

// worktreeDir is where execution worktrees live, relative to the project root.
const worktreeDir = ".squadron/worktrees"

// Scope is one isolated working directory. It is created before an
// execution starts and must be released when it ends, regardless of outcome.
type Scope struct {
	ExecutionID string
	Path        string
	// Branch is the dedicated git branch, empty for plain directories.
	Branch    string
	CreatedAt time.Time
}

// Manager acquires and releases execution scopes.
type Manager struct {
	projectRoot string
	baseDir     string
	git         git.Runner
	useGit      bool

	mu     sync.Mutex
	active map[string]*Scope
}

// NewManager creates a Manager for the given project root. Worktree
// isolation is used when the root is a git repository.
func NewManager(projectRoot string) (*Manager, error) {
	runner := git.NewRunner(projectRoot)
	return newManager(projectRoot, runner, runner.IsRepo())
}

// NewManagerWithRunner wires a custom git runner, for tests.
func NewManagerWithRunner(projectRoot string, runner git.Runner, useGit bool) (*Manager, error) {
	return newManager(projectRoot, runner, useGit)
}

func newManager(projectRoot string, runner git.Runner, useGit bool) (*Manager, error) {
	baseDir := filepath.Join(projectRoot, worktreeDir)
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace base dir: %w", err)
	}
	return &Manager{
		projectRoot: projectRoot,
		baseDir:     baseDir,
		git:         runner,
		useGit:      useGit,
		active:      make(map[string]*Scope),
	}, nil
}

// BaseDir returns the directory scopes are created under.
func (m *Manager) BaseDir() string { return m.baseDir }

// Acquire creates the isolated directory for an execution.
func (m *Manager) Acquire(executionID string) (*Scope, error) {
	if executionID == "" {
		return nil, fmt.Errorf("acquire workspace: empty execution id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.active[executionID]; ok {
		return nil, fmt.Errorf("acquire workspace: execution %s already has a scope", executionID)
	}

	scope := &Scope{
		ExecutionID: executionID,
		Path:        filepath.Join(m.baseDir, executionID),
		CreatedAt:   time.Now(),
	}

	if m.useGit {
		scope.Branch = "agent-" + executionID
		if err := m.git.WorktreeAddNewBranch(scope.Path, scope.Branch); err != nil {
			return nil, fmt.Errorf("acquire workspace for %s: %w", executionID, err)
		}
	} else {
		if err := os.MkdirAll(scope.Path, 0o755); err != nil {
			return nil, fmt.Errorf("acquire workspace for %s: %w", executionID, err)
		}
	}

	m.active[executionID] = scope
	return scope, nil
}

// Release tears down a scope. Worktree removal is forced so uncommitted
// agent output never blocks cleanup.
func (m *Manager) Release(scope *Scope) error {
	if scope == nil {
		return nil
	}

	m.mu.Lock()
	delete(m.active, scope.ExecutionID)
	m.mu.Unlock()

	if m.useGit && scope.Branch != "" {
		if err := m.git.WorktreeRemove(scope.Path, true); err != nil {
			return fmt.Errorf("release workspace %s: %w", scope.ExecutionID, err)
		}
		if exists, err := m.git.BranchExists(scope.Branch); err == nil && exists {
			if err := m.git.DeleteBranch(scope.Branch); err != nil {
				return fmt.Errorf("release workspace %s: %w", scope.ExecutionID, err)
			}
		}
		return nil
	}
	if err := os.RemoveAll(scope.Path); err != nil {
		return fmt.Errorf("release workspace %s: %w", scope.ExecutionID, err)
	}
	return nil
}

// Active returns the execution IDs holding scopes.
func (m *Manager) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	return ids
}

// PruneOrphans removes scope directories left behind by previous runs.
// Directories belonging to currently active executions are kept. Returns
// the number of scopes removed.
func (m *Manager) PruneOrphans() (int, error) {
	m.mu.Lock()
	activeIDs := make(map[string]bool, len(m.active))
	for id := range m.active {
		activeIDs[id] = true
	}
	m.mu.Unlock()

	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("prune workspaces: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || activeIDs[entry.Name()] {
			continue
		}
		path := filepath.Join(m.baseDir, entry.Name())
		if m.useGit {
			if err := m.git.WorktreeRemove(path, true); err != nil {
				// The worktree bookkeeping may already be gone; fall
				// back to removing the directory itself.
				if err := os.RemoveAll(path); err != nil {
					return removed, fmt.Errorf("prune workspace %s: %w", entry.Name(), err)
				}
			}
			branch := "agent-" + entry.Name()
			if exists, err := m.git.BranchExists(branch); err == nil && exists {
				_ = m.git.DeleteBranch(branch)
			}
		} else if err := os.RemoveAll(path); err != nil {
			return removed, fmt.Errorf("prune workspace %s: %w", entry.Name(), err)
		}
		removed++
	}

	if m.useGit {
		if err := m.git.WorktreePrune(); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// OrphanBranches lists leftover agent branches with no matching scope
// directory, parsed from the porcelain worktree listing.
func (m *Manager) OrphanBranches() ([]string, error) {
	if !m.useGit {
		return nil, nil
	}
	out, err := m.git.WorktreeListPorcelain()
	if err != nil {
		return nil, err
	}

	var orphans []string
	for _, line := range strings.Split(out, "\n") {
		branch, ok := strings.CutPrefix(line, "branch refs/heads/agent-")
		if !ok {
			continue
		}
		id := strings.TrimSpace(branch)
		if _, statErr := os.Stat(filepath.Join(m.baseDir, id)); os.IsNotExist(statErr) {
			orphans = append(orphans, "agent-"+id)
		}
	}
	return orphans, nil
}
