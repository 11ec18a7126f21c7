package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

// CheckClaudeCLI verifies that the 'claude' CLI is available in PATH.
// Returns an error with installation instructions if not found.
func CheckClaudeCLI() error {
	_, err := exec.LookPath("claude")
	if err != nil {
		return fmt.Errorf("claude CLI not found in PATH\n\n" +
			"The claude-cli executor requires the Claude Code CLI.\n\n" +
			"Install it with:\n" +
			"  npm install -g @anthropic-ai/claude-code\n\n" +
			"Or use the direct API executor instead:\n" +
			"  squadron run --executor api \"your task\"")
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "squadron",
	Short: "Multi-agent task orchestration",
	Long: `Squadron decomposes tasks and routes them across specialized Claude
agents, each running in an isolated git worktree with memory-backed context.

Core capabilities:
- Decomposes work into prioritized, dependency-ordered subtasks
- Routes subtasks to specialized agent types (engineer, qa, security, ...)
- Enforces per-agent file access policies before any agent runs
- Prepares agent context from accumulated execution patterns
- Records every execution to a local history journal`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(versionCmd)
}
