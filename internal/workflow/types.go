package workflow

import (
	"time"

	"github.com/squadronhq/squadron/pkg/models"
)

// Request describes a task that needs a workflow archetype assigned.
type Request struct {
	// Description is the task text to analyze.
	Description string
	// Complexity, when set, skips the decomposition-based classification.
	Complexity models.Complexity
	// Project scopes pattern lookups.
	Project string
	// Priority is one of low, medium, high, critical. Empty means medium.
	Priority string
	// Deadline, when non-zero, drives urgency assessment.
	Deadline time.Time
	// QualityRequirements is one of minimal, standard, high, critical.
	QualityRequirements string
	// ResourceConstraints carries flags such as cpu_intensive,
	// memory_intensive, lightweight, and limited_resources.
	ResourceConstraints map[string]bool
}

// Pattern is a historical workflow outcome loaded from the pattern store.
type Pattern struct {
	ID                  string
	WorkflowType        models.WorkflowType
	Keywords            []string
	MinComplexity       models.Complexity
	MaxComplexity       models.Complexity
	SuccessRate         float64
	AvgExecutionMinutes float64
	QualityScore        float64
	RecentUsageCount    int
	LastUsed            time.Time
	FailureReasons      []string
	SuccessFactors      []string
}

// analysis holds the derived characteristics of a request.
type analysis struct {
	complexity       models.Complexity
	keywords         []string
	urgency          string
	researchRequired bool
	collaboration    string
	riskLevel        string
	criticalPath     bool
	estimatedMinutes float64
}

// prediction is the expected outcome of running a task through one archetype.
type prediction struct {
	successRate     float64
	durationMinutes float64
	quality         float64
	confidence      float64
	patternCount    int
	riskFactors     []string
}

// SelectionStats is a snapshot of selector activity.
type SelectionStats struct {
	TotalSelections   int64   `json:"total_selections"`
	AverageConfidence float64 `json:"average_confidence"`
	PatternHitRate    float64 `json:"pattern_hit_rate"`
}
