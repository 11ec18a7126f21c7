package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/squadronhq/squadron/pkg/models"
)

// Invocation bundles everything an executor needs for one run: the task,
// its prepared memory context, and the isolated workspace it may write to.
type Invocation struct {
	Task      *models.TaskRecord
	Memory    *Context
	Workspace string
}

// Executor runs one agent task to completion. Implementations must respect
// context cancellation and return a structured result on success.
type Executor interface {
	Run(ctx context.Context, inv Invocation) (map[string]any, error)
}

// promptMemoryCap limits how many records of each bucket reach the prompt.
const promptMemoryCap = 3

// BuildPrompt renders an invocation into the prompt handed to the model or
// CLI. The role preamble comes from the agent definition; memory buckets are
// appended as short sections so the agent can lean on prior outcomes.
func BuildPrompt(inv Invocation) string {
	var b strings.Builder

	def, ok := Definitions[inv.Task.AgentType]
	if ok {
		fmt.Fprintf(&b, "You are the %s. %s.\n\n", def.Name, def.Description)
		fmt.Fprintf(&b, "Specializations: %s\n\n", strings.Join(def.Specializations, ", "))
	}

	fmt.Fprintf(&b, "Project: %s\n", inv.Task.Project)
	fmt.Fprintf(&b, "Task: %s\n", inv.Task.Description)

	if inv.Memory != nil {
		writePromptSection(&b, "Relevant patterns from past work", inv.Memory.Patterns)
		writePromptSection(&b, "Team standards", inv.Memory.TeamStandards)
		writePromptSection(&b, "Past failures to avoid", inv.Memory.HistoricalErrors)
		writePromptSection(&b, "Project decisions", inv.Memory.ProjectDecisions)
	}

	if inv.Workspace != "" {
		fmt.Fprintf(&b, "\nWork inside the current directory: %s\n", inv.Workspace)
	}
	return b.String()
}

func writePromptSection(b *strings.Builder, heading string, records []models.PatternRecord) {
	if len(records) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", heading)
	for i, rec := range records {
		if i == promptMemoryCap {
			break
		}
		fmt.Fprintf(b, "- %s\n", summarize(rec.Content))
	}
}

// summarize collapses a record body to its first non-empty line, truncated.
func summarize(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > 160 {
			return line[:157] + "..."
		}
		return line
	}
	return ""
}
