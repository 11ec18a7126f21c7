package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// fakeRunner records worktree operations without touching a real repo.
type fakeRunner struct {
	worktrees map[string]string // path -> branch
	branches  map[string]bool
	pruned    int
	failAdd   bool
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		worktrees: make(map[string]string),
		branches:  make(map[string]bool),
	}
}

func (f *fakeRunner) Run(args ...string) (string, error) { return "", nil }
func (f *fakeRunner) IsRepo() bool                       { return true }
func (f *fakeRunner) CurrentBranch() (string, error)     { return "main", nil }

func (f *fakeRunner) BranchExists(name string) (bool, error) {
	return f.branches[name], nil
}

func (f *fakeRunner) DeleteBranch(name string) error {
	if !f.branches[name] {
		return fmt.Errorf("branch %s not found", name)
	}
	delete(f.branches, name)
	return nil
}

func (f *fakeRunner) WorktreeAddNewBranch(path, branch string) error {
	if f.failAdd {
		return fmt.Errorf("worktree add failed")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return err
	}
	f.worktrees[path] = branch
	f.branches[branch] = true
	return nil
}

func (f *fakeRunner) WorktreeRemove(path string, force bool) error {
	if _, ok := f.worktrees[path]; !ok {
		return fmt.Errorf("worktree %s not found", path)
	}
	delete(f.worktrees, path)
	return os.RemoveAll(path)
}

func (f *fakeRunner) WorktreeListPorcelain() (string, error) {
	out := ""
	for path, branch := range f.worktrees {
		out += fmt.Sprintf("worktree %s\nbranch refs/heads/%s\n\n", path, branch)
	}
	return out, nil
}

func (f *fakeRunner) WorktreePrune() error {
	f.pruned++
	return nil
}

func TestAcquireCreatesWorktreeScope(t *testing.T) {
	root := t.TempDir()
	runner := newFakeRunner()
	mgr, err := NewManagerWithRunner(root, runner, true)
	if err != nil {
		t.Fatalf("NewManagerWithRunner: %v", err)
	}

	scope, err := mgr.Acquire("exec-1")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if scope.Branch != "agent-exec-1" {
		t.Errorf("branch = %q, want agent-exec-1", scope.Branch)
	}
	want := filepath.Join(root, ".squadron", "worktrees", "exec-1")
	if scope.Path != want {
		t.Errorf("path = %q, want %q", scope.Path, want)
	}
	if !runner.branches["agent-exec-1"] {
		t.Error("expected branch agent-exec-1 to exist")
	}
	if got := mgr.Active(); len(got) != 1 || got[0] != "exec-1" {
		t.Errorf("Active() = %v, want [exec-1]", got)
	}
}

func TestAcquireRejectsDuplicateAndEmptyID(t *testing.T) {
	mgr, err := NewManagerWithRunner(t.TempDir(), newFakeRunner(), true)
	if err != nil {
		t.Fatalf("NewManagerWithRunner: %v", err)
	}
	if _, err := mgr.Acquire(""); err == nil {
		t.Error("expected error for empty execution id")
	}
	if _, err := mgr.Acquire("exec-1"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := mgr.Acquire("exec-1"); err == nil {
		t.Error("expected error for duplicate execution id")
	}
}

func TestReleaseRemovesWorktreeAndBranch(t *testing.T) {
	runner := newFakeRunner()
	mgr, err := NewManagerWithRunner(t.TempDir(), runner, true)
	if err != nil {
		t.Fatalf("NewManagerWithRunner: %v", err)
	}
	scope, err := mgr.Acquire("exec-1")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if err := mgr.Release(scope); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if len(runner.worktrees) != 0 {
		t.Errorf("worktrees remaining: %v", runner.worktrees)
	}
	if runner.branches["agent-exec-1"] {
		t.Error("branch agent-exec-1 should be deleted")
	}
	if got := mgr.Active(); len(got) != 0 {
		t.Errorf("Active() = %v, want empty", got)
	}
}

func TestPlainDirectoryFallback(t *testing.T) {
	root := t.TempDir()
	mgr, err := NewManagerWithRunner(root, newFakeRunner(), false)
	if err != nil {
		t.Fatalf("NewManagerWithRunner: %v", err)
	}

	scope, err := mgr.Acquire("exec-2")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if scope.Branch != "" {
		t.Errorf("branch = %q, want empty for plain directory", scope.Branch)
	}
	if info, err := os.Stat(scope.Path); err != nil || !info.IsDir() {
		t.Fatalf("scope directory missing: %v", err)
	}

	if err := mgr.Release(scope); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(scope.Path); !os.IsNotExist(err) {
		t.Errorf("scope directory should be removed, stat err = %v", err)
	}
}

func TestPruneOrphansKeepsActiveScopes(t *testing.T) {
	root := t.TempDir()
	runner := newFakeRunner()
	mgr, err := NewManagerWithRunner(root, runner, true)
	if err != nil {
		t.Fatalf("NewManagerWithRunner: %v", err)
	}

	live, err := mgr.Acquire("live")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	// Stale directories from a previous run, one with worktree
	// bookkeeping and one without.
	stale := filepath.Join(mgr.BaseDir(), "stale-1")
	if err := runner.WorktreeAddNewBranch(stale, "agent-stale-1"); err != nil {
		t.Fatalf("WorktreeAddNewBranch: %v", err)
	}
	bare := filepath.Join(mgr.BaseDir(), "stale-2")
	if err := os.MkdirAll(bare, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	removed, err := mgr.PruneOrphans()
	if err != nil {
		t.Fatalf("PruneOrphans: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if _, err := os.Stat(live.Path); err != nil {
		t.Errorf("active scope should survive pruning: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale-1 should be removed")
	}
	if _, err := os.Stat(bare); !os.IsNotExist(err) {
		t.Error("stale-2 should be removed")
	}
	if runner.branches["agent-stale-1"] {
		t.Error("branch agent-stale-1 should be deleted")
	}
	if runner.pruned != 1 {
		t.Errorf("WorktreePrune calls = %d, want 1", runner.pruned)
	}
}

func TestOrphanBranches(t *testing.T) {
	runner := newFakeRunner()
	mgr, err := NewManagerWithRunner(t.TempDir(), runner, true)
	if err != nil {
		t.Fatalf("NewManagerWithRunner: %v", err)
	}

	// Branch exists in the worktree listing but its directory is gone.
	runner.worktrees["/somewhere/else"] = "agent-ghost"
	runner.branches["agent-ghost"] = true

	orphans, err := mgr.OrphanBranches()
	if err != nil {
		t.Fatalf("OrphanBranches: %v", err)
	}
	if len(orphans) != 1 || orphans[0] != "agent-ghost" {
		t.Errorf("orphans = %v, want [agent-ghost]", orphans)
	}
}
