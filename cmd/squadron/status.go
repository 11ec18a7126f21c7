package main

import (
	"context"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/squadronhq/squadron/internal/config"
	"github.com/squadronhq/squadron/internal/history"
	"github.com/squadronhq/squadron/internal/memory"
	"github.com/squadronhq/squadron/pkg/models"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent executions and agent statistics",
	Long: `Display recent agent executions from the local history journal.

Shows:
  - Memory service reachability
  - Recent executions with outcome and duration
  - Per-agent completion statistics`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 10, "Number of recent executions to show")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	displayMemoryStatus(cfg)
	fmt.Printf("Anthropic API key: %s\n", config.GetAPIKeySource(cfg))

	journalPath := cfg.History.Path
	if journalPath == "" {
		journalPath = history.DefaultPath()
	}
	if _, err := os.Stat(journalPath); os.IsNotExist(err) {
		fmt.Println("No execution history yet. Run 'squadron run <task>' to start.")
		return nil
	}

	journal, err := history.Open(journalPath)
	if err != nil {
		return fmt.Errorf("open history journal: %w", err)
	}
	defer journal.Close()

	entries, err := journal.ListRecent(statusLimit)
	if err != nil {
		return fmt.Errorf("list executions: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No execution history yet. Run 'squadron run <task>' to start.")
		return nil
	}

	fmt.Println("Recent executions:")
	for _, e := range entries {
		fmt.Printf("  %s %s [%s] %s (%s, %s ago)\n",
			stateGlyph(e.State),
			shortID(e.ID),
			e.AgentType,
			truncateLine(e.Description, 60),
			formatSeconds(e.DurationSeconds),
			formatDuration(time.Since(e.StartedAt)))
		if e.Error != "" {
			color.Red("      %s", truncateLine(e.Error, 70))
		}
	}

	stats, err := journal.StatsByAgent()
	if err != nil {
		return fmt.Errorf("aggregate agent stats: %w", err)
	}
	if len(stats) == 0 {
		return nil
	}

	fmt.Println()
	fmt.Println("Agent statistics:")
	for _, s := range stats {
		fmt.Printf("  %-14s %3d total  %s completed  %s failed  avg %s\n",
			s.AgentType,
			s.Total,
			color.GreenString("%3d", s.Completed),
			color.RedString("%3d", s.Failed),
			formatSeconds(s.AvgDuration))
	}
	return nil
}

// displayMemoryStatus probes the memory service and reports reachability.
func displayMemoryStatus(cfg *config.Config) {
	cfg.Memory.APIKey = config.MemoryServiceKey(cfg)
	gateway := memory.NewGateway(cfg.Memory)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := gateway.Connect(ctx); err != nil {
		color.Yellow("Memory service: unavailable (%s)", cfg.Memory.BaseURL())
	} else {
		stats := gateway.Statistics()
		fmt.Printf("Memory service: %s (%s, %s)\n",
			color.GreenString("connected"),
			cfg.Memory.BaseURL(),
			stats.AvgResponseTime.Round(time.Millisecond))
		gateway.Disconnect()
	}
	fmt.Println()
}

func stateGlyph(state models.ExecutionState) string {
	switch state {
	case models.ExecutionCompleted:
		return color.GreenString("✓")
	case models.ExecutionFailed:
		return color.RedString("✗")
	default:
		return "·"
	}
}

func formatSeconds(seconds float64) string {
	return formatDuration(time.Duration(seconds * float64(time.Second)))
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}

func truncateLine(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
