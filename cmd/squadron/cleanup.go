package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/squadronhq/squadron/internal/workspace"
)

var (
	cleanupForce  bool
	cleanupDryRun bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove orphaned agent worktrees",
	Long: `Clean up leftover agent worktrees and branches.

This command:
  - Lists worktrees under .squadron/worktrees with no active execution
  - Removes them along with their agent-* branches
  - Runs git worktree prune
  - Reports agent-* branches whose worktree is already gone

Use this after a crash or interrupted run to reclaim disk and branches.

Examples:
  squadron cleanup            # Interactive cleanup with confirmation
  squadron cleanup --force    # Skip confirmation prompt
  squadron cleanup --dry-run  # Show what would be removed`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().BoolVarP(&cleanupForce, "force", "f", false, "Skip confirmation prompt")
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Show what would be removed without removing")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	repoPath, err := findGitRoot(cwd)
	if err != nil {
		return fmt.Errorf("find git repository: %w", err)
	}

	manager, err := workspace.NewManager(repoPath)
	if err != nil {
		return fmt.Errorf("create workspace manager: %w", err)
	}

	orphans, err := listOrphanDirs(manager)
	if err != nil {
		return fmt.Errorf("list worktrees: %w", err)
	}

	if len(orphans) == 0 {
		fmt.Println("No orphaned worktrees found.")
	} else {
		fmt.Printf("Found %d orphaned worktree(s):\n", len(orphans))
		for _, dir := range orphans {
			fmt.Printf("  - %s\n", dir)
		}
		fmt.Println()

		if cleanupDryRun {
			fmt.Println("Dry run mode - no worktrees were removed.")
		} else if cleanupForce || confirm("Remove these worktrees? [y/N] ") {
			removed, err := manager.PruneOrphans()
			if err != nil {
				return fmt.Errorf("prune orphaned worktrees: %w", err)
			}
			fmt.Printf("Successfully removed %d orphaned worktree(s).\n", removed)
		} else {
			fmt.Println("Worktree cleanup cancelled.")
		}
	}

	// Branches can survive a manual worktree removal; report them so the
	// user can delete what the prune could not reach.
	branches, err := manager.OrphanBranches()
	if err != nil {
		return nil
	}
	if len(branches) > 0 {
		fmt.Printf("\nFound %d agent branch(es) without a worktree:\n", len(branches))
		for _, b := range branches {
			fmt.Printf("  - %s\n", b)
		}
		fmt.Println("Remove them with: git branch -D <branch>")
	}

	return nil
}

// listOrphanDirs returns worktree directories with no active execution.
func listOrphanDirs(manager *workspace.Manager) ([]string, error) {
	entries, err := os.ReadDir(manager.BaseDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	active := make(map[string]bool)
	for _, id := range manager.Active() {
		active[id] = true
	}

	var orphans []string
	for _, entry := range entries {
		if entry.IsDir() && !active[entry.Name()] {
			orphans = append(orphans, filepath.Join(manager.BaseDir(), entry.Name()))
		}
	}
	return orphans, nil
}

// confirm prompts for a yes/no answer on stdin.
func confirm(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

// findGitRoot finds the root of the git repository starting from the given directory.
func findGitRoot(startDir string) (string, error) {
	dir := startDir
	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a git repository")
		}
		dir = parent
	}
}
