package agent

import (
	"context"
	"fmt"

	"github.com/squadronhq/squadron/internal/memory"
	"github.com/squadronhq/squadron/pkg/models"
)

// contextLimit caps the records retrieved per memory category.
const contextLimit = 5

// Retriever is the slice of the memory gateway context preparation needs.
type Retriever interface {
	Retrieve(ctx context.Context, q memory.Query) memory.RetrieveResult
}

// Context is the memory-augmented context handed to an executor alongside
// the task. Records are bucketed by category for direct access.
type Context struct {
	AgentType       models.AgentType
	Project         string
	TaskDescription string

	// RelevantMemories holds the raw retrieval result per category.
	RelevantMemories map[models.MemoryCategory][]models.PatternRecord

	Patterns         []models.PatternRecord
	TeamStandards    []models.PatternRecord
	HistoricalErrors []models.PatternRecord
	ProjectDecisions []models.PatternRecord

	Specializations []string
	ContextKeywords []string

	// Err records a retrieval failure; a Context with Err set is still
	// usable, just unaugmented.
	Err string
}

// MemoryCount returns the total number of records across all categories.
func (c *Context) MemoryCount() int {
	n := 0
	for _, records := range c.RelevantMemories {
		n += len(records)
	}
	return n
}

// PrepareContext assembles the memory context for one agent and task. Each
// category the agent's definition lists is queried separately; individual
// retrieval failures degrade the context rather than failing it.
func PrepareContext(ctx context.Context, retriever Retriever, agentType models.AgentType, project, description string) *Context {
	out := &Context{
		AgentType:        agentType,
		Project:          project,
		TaskDescription:  description,
		RelevantMemories: make(map[models.MemoryCategory][]models.PatternRecord),
	}

	def, ok := Definitions[agentType]
	if !ok {
		out.Err = fmt.Sprintf("unknown agent type %q", agentType)
		return out
	}
	out.Specializations = def.Specializations
	out.ContextKeywords = def.ContextKeywords

	for _, category := range def.MemoryCategories {
		res := retriever.Retrieve(ctx, memory.Query{
			Category: category,
			Text:     description,
			Project:  project,
			Limit:    contextLimit,
		})
		if !res.Success {
			out.Err = res.Error
			continue
		}
		if len(res.Records) == 0 {
			continue
		}
		out.RelevantMemories[category] = res.Records

		switch category {
		case models.CategoryPattern:
			out.Patterns = append(out.Patterns, res.Records...)
		case models.CategoryTeam:
			out.TeamStandards = append(out.TeamStandards, res.Records...)
		case models.CategoryError:
			out.HistoricalErrors = append(out.HistoricalErrors, res.Records...)
		case models.CategoryProject:
			out.ProjectDecisions = append(out.ProjectDecisions, res.Records...)
		}
	}
	return out
}
