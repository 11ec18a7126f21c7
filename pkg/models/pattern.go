package models

import "time"

// MemoryCategory partitions records stored in the memory service.
type MemoryCategory string

const (
	// CategoryProject holds project-scoped decisions and context.
	CategoryProject MemoryCategory = "project"
	// CategoryPattern holds reusable observations used for heuristic scoring.
	CategoryPattern MemoryCategory = "pattern"
	// CategoryTeam holds team standards and conventions.
	CategoryTeam MemoryCategory = "team"
	// CategoryError holds failure records for future avoidance.
	CategoryError MemoryCategory = "error"
)

// MemoryCategories lists every known category in a fixed order.
var MemoryCategories = []MemoryCategory{
	CategoryProject,
	CategoryPattern,
	CategoryTeam,
	CategoryError,
}

// Valid returns true if the category is a known value.
func (c MemoryCategory) Valid() bool {
	switch c {
	case CategoryProject, CategoryPattern, CategoryTeam, CategoryError:
		return true
	default:
		return false
	}
}

// PatternRecord is a stored observation used for future heuristic scoring:
// a decomposition, a workflow selection, or a task outcome.
type PatternRecord struct {
	// ID is the memory service identifier for this record.
	ID string `json:"id"`
	// Category is the memory category the record was stored under.
	Category MemoryCategory `json:"category"`
	// Type distinguishes kinds of patterns within a category,
	// e.g. "task_decomposition" or "workflow_selection".
	Type string `json:"type,omitempty"`
	// Content is the free-text body matched against queries.
	Content string `json:"content"`
	// Metadata carries type-specific fields: success_rate, average duration,
	// supporting-case counts, subtask lists.
	Metadata map[string]any `json:"metadata,omitempty"`
	// Tags filter retrieval.
	Tags []string `json:"tags,omitempty"`
	// Project is the project the record was stored for.
	Project string `json:"project,omitempty"`
	// StoredAt is when the record was created.
	StoredAt time.Time `json:"stored_at,omitempty"`
}

// SuccessRate reads the success_rate metadata field, clamped to [0,1].
// Records without one report 0.
func (p *PatternRecord) SuccessRate() float64 {
	return p.MetaFloat("success_rate")
}

// MetaFloat reads a numeric metadata field, tolerating int and float forms.
func (p *PatternRecord) MetaFloat(key string) float64 {
	raw, ok := p.Metadata[key]
	if !ok {
		return 0
	}
	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	default:
		return 0
	}
	return v
}

// MetaString reads a string metadata field, or "" when absent.
func (p *PatternRecord) MetaString(key string) string {
	if s, ok := p.Metadata[key].(string); ok {
		return s
	}
	return ""
}
