// Package decompose turns free-text task descriptions into weighted
// complexity classes and ordered subtask lists, adapting from historical
// decompositions when the pattern store has similar ones.
package decompose

import (
	"time"

	"github.com/squadronhq/squadron/pkg/models"
)

// Subtask is one unit of a decomposition.
type Subtask struct {
	// ID is positional within the decomposition ("subtask_01", ...).
	ID string `json:"id"`
	// Title is the short statement of the subtask.
	Title string `json:"title"`
	// Description expands on the title in the context of the original task.
	Description string `json:"description,omitempty"`
	// Complexity is estimated from the subtask's hour budget.
	Complexity models.Complexity `json:"complexity"`
	// EstimatedHours is the subtask's hour budget.
	EstimatedHours float64 `json:"estimated_hours"`
	// Dependencies lists subtask IDs that must finish first.
	Dependencies []string `json:"dependencies,omitempty"`
	// SkillsRequired lists inferred skills.
	SkillsRequired []string `json:"skills_required,omitempty"`
	// SuccessCriteria lists completion checks.
	SuccessCriteria []string `json:"success_criteria,omitempty"`
	// RiskLevel is one of low/medium/high.
	RiskLevel string `json:"risk_level"`
	// Priority orders queue draining, 1-10, higher first.
	Priority int `json:"priority"`
	// SuggestedAgent is the best-effort agent type for this subtask.
	SuggestedAgent models.AgentType `json:"suggested_agent"`
	// PatternConfidence reflects how strongly history supports this subtask.
	PatternConfidence float64 `json:"pattern_confidence"`
	// HistoricalSuccessRate carries the source pattern's outcome quality.
	HistoricalSuccessRate float64 `json:"historical_success_rate"`
	// SimilarTasks lists pattern IDs this subtask was adapted from.
	SimilarTasks []string `json:"similar_tasks,omitempty"`
}

// Decomposition is the full output of one Decompose call.
type Decomposition struct {
	// ID identifies this decomposition.
	ID string `json:"id"`
	// OriginalTask is the input description.
	OriginalTask string `json:"original_task"`
	// Project is the project context, if given.
	Project string `json:"project,omitempty"`
	// Complexity is the classified tier.
	Complexity models.Complexity `json:"complexity"`
	// Strategy is the selected decomposition strategy.
	Strategy models.Strategy `json:"strategy"`
	// Subtasks is the ordered subtask list.
	Subtasks []Subtask `json:"subtasks"`
	// TotalEstimatedHours sums the subtask hour budgets.
	TotalEstimatedHours float64 `json:"total_estimated_hours"`
	// Confidence is the aggregate confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// AdaptationNotes records how history influenced the result.
	AdaptationNotes string `json:"adaptation_notes,omitempty"`
	// SimilarDecompositions lists the pattern IDs consulted.
	SimilarDecompositions []string `json:"similar_decompositions,omitempty"`
	// CreatedAt is when the decomposition ran.
	CreatedAt time.Time `json:"created_at"`
	// Fallback marks a decomposition produced by the failure path.
	Fallback bool `json:"fallback,omitempty"`
}

// Metadata carries optional caller-supplied hints.
type Metadata struct {
	// EstimatedHours is the caller's hour ceiling for the whole task.
	EstimatedHours float64
	// RequiredSkills extends the inferred skill lists.
	RequiredSkills []string
}
