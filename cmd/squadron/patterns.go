package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/squadronhq/squadron/internal/config"
	"github.com/squadronhq/squadron/internal/memory"
	"github.com/squadronhq/squadron/pkg/models"
)

var (
	patternsCategory string
	patternsProject  string
	patternsTags     []string
	patternsLimit    int
)

var patternsCmd = &cobra.Command{
	Use:   "patterns [query]",
	Short: "Search stored execution patterns",
	Long: `Query the memory service for stored patterns.

Searches the given category (pattern, error, team, or project) with an
optional free-text query, tag filters, and project scope.

Examples:
  squadron patterns                          # Recent patterns
  squadron patterns "auth refactor"          # Text search
  squadron patterns --category error         # Past failures
  squadron patterns --tags agent_execution   # Filter by tag`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPatterns,
}

func init() {
	patternsCmd.Flags().StringVar(&patternsCategory, "category", "pattern", "Memory category: project, pattern, team, or error")
	patternsCmd.Flags().StringVar(&patternsProject, "project", "", "Restrict to one project")
	patternsCmd.Flags().StringSliceVar(&patternsTags, "tags", nil, "Require all listed tags")
	patternsCmd.Flags().IntVarP(&patternsLimit, "limit", "n", 10, "Maximum records to return")
}

func runPatterns(cmd *cobra.Command, args []string) error {
	category := models.MemoryCategory(patternsCategory)
	if !category.Valid() {
		return fmt.Errorf("unknown memory category %q: must be project, pattern, team, or error", patternsCategory)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Memory.Timeout)
	defer cancel()

	cfg.Memory.APIKey = config.MemoryServiceKey(cfg)
	gateway := memory.NewGateway(cfg.Memory)
	if err := gateway.Connect(ctx); err != nil {
		return fmt.Errorf("memory service unavailable at %s: %w", cfg.Memory.BaseURL(), err)
	}
	defer gateway.Disconnect()

	query := memory.Query{
		Category: category,
		Project:  patternsProject,
		Tags:     patternsTags,
		Limit:    patternsLimit,
	}
	if len(args) > 0 {
		query.Text = args[0]
	}

	result := gateway.Retrieve(ctx, query)
	if !result.Success {
		return fmt.Errorf("retrieve patterns: %s", result.Error)
	}

	if len(result.Records) == 0 {
		fmt.Println("No matching patterns found.")
		return nil
	}

	fmt.Printf("Found %d record(s) in %s:\n\n", len(result.Records), category)
	for _, rec := range result.Records {
		printPattern(rec)
	}
	return nil
}

func printPattern(rec models.PatternRecord) {
	header := shortID(rec.ID)
	if rec.Type != "" {
		header += " " + rec.Type
	}
	color.New(color.Bold).Println(header)

	if rate := rec.SuccessRate(); rate > 0 {
		fmt.Printf("  success rate: %.0f%%\n", rate*100)
	}
	if len(rec.Tags) > 0 {
		fmt.Printf("  tags: %s\n", strings.Join(rec.Tags, ", "))
	}
	if !rec.StoredAt.IsZero() {
		fmt.Printf("  stored: %s ago\n", formatDuration(time.Since(rec.StoredAt)))
	}
	printed := 0
	for _, line := range strings.Split(rec.Content, "\n") {
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		fmt.Printf("  %s\n", truncateLine(line, 76))
		if printed++; printed == 3 {
			break
		}
	}
	fmt.Println()
}
