// Package git wraps the git CLI for worktree-based workspace isolation.
package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// Runner is the subset of git operations workspace isolation needs.
// The interface exists so tests can substitute a fake.
type Runner interface {
	// Run executes an arbitrary git command and returns trimmed output.
	Run(args ...string) (string, error)
	// IsRepo reports whether the runner's directory is inside a git repository.
	IsRepo() bool
	// CurrentBranch returns the checked-out branch name.
	CurrentBranch() (string, error)
	// BranchExists reports whether a local branch exists.
	BranchExists(name string) (bool, error)
	// DeleteBranch force-deletes a local branch.
	DeleteBranch(name string) error
	// WorktreeAddNewBranch creates a worktree at path on a new branch.
	WorktreeAddNewBranch(path, branch string) error
	// WorktreeRemove removes the worktree at path, optionally forcing.
	WorktreeRemove(path string, force bool) error
	// WorktreeListPorcelain returns `git worktree list --porcelain` output.
	WorktreeListPorcelain() (string, error)
	// WorktreePrune drops stale worktree bookkeeping.
	WorktreePrune() error
}

// ExecRunner implements Runner by shelling out to git.
type ExecRunner struct {
	dir string
}

// NewRunner creates a runner rooted at the given repository path.
func NewRunner(dir string) *ExecRunner {
	return &ExecRunner{dir: dir}
}

func (r *ExecRunner) git(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

// Run executes an arbitrary git command and returns trimmed output.
func (r *ExecRunner) Run(args ...string) (string, error) {
	return r.git(args...)
}

// IsRepo reports whether the runner's directory is inside a git repository.
func (r *ExecRunner) IsRepo() bool {
	out, err := r.git("rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// CurrentBranch returns the checked-out branch name.
func (r *ExecRunner) CurrentBranch() (string, error) {
	return r.git("rev-parse", "--abbrev-ref", "HEAD")
}

// BranchExists reports whether a local branch exists.
func (r *ExecRunner) BranchExists(name string) (bool, error) {
	cmd := exec.Command("git", "show-ref", "--verify", "--quiet", "refs/heads/"+name)
	cmd.Dir = r.dir
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return false, nil
		}
		return false, fmt.Errorf("check branch %s: %w", name, err)
	}
	return true, nil
}

// DeleteBranch force-deletes a local branch.
func (r *ExecRunner) DeleteBranch(name string) error {
	_, err := r.git("branch", "-D", name)
	return err
}

// WorktreeAddNewBranch creates a worktree at path on a new branch.
func (r *ExecRunner) WorktreeAddNewBranch(path, branch string) error {
	_, err := r.git("worktree", "add", "-b", branch, path)
	return err
}

// WorktreeRemove removes the worktree at path, optionally forcing.
func (r *ExecRunner) WorktreeRemove(path string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)
	_, err := r.git(args...)
	return err
}

// WorktreeListPorcelain returns `git worktree list --porcelain` output.
func (r *ExecRunner) WorktreeListPorcelain() (string, error) {
	return r.git("worktree", "list", "--porcelain")
}

// WorktreePrune drops stale worktree bookkeeping.
func (r *ExecRunner) WorktreePrune() error {
	_, err := r.git("worktree", "prune")
	return err
}
