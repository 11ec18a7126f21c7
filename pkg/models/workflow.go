package models

// WorkflowType is a fixed execution-shape archetype a task can be routed through.
type WorkflowType string

const (
	// WorkflowSimpleLinear executes one agent straight through.
	WorkflowSimpleLinear WorkflowType = "simple_linear"
	// WorkflowParallelMultiAgent fans work out across several agents at once.
	WorkflowParallelMultiAgent WorkflowType = "parallel_multi_agent"
	// WorkflowHierarchicalReview layers review stages over implementation.
	WorkflowHierarchicalReview WorkflowType = "hierarchical_review"
	// WorkflowIterativeRefinement loops implement-review cycles until done.
	WorkflowIterativeRefinement WorkflowType = "iterative_refinement"
	// WorkflowResearchDiscovery front-loads investigation before building.
	WorkflowResearchDiscovery WorkflowType = "research_discovery"
	// WorkflowCriticalPath sequences only the dependency-critical work.
	WorkflowCriticalPath WorkflowType = "critical_path"
	// WorkflowEmergencyFastTrack strips ceremony for urgent fixes.
	WorkflowEmergencyFastTrack WorkflowType = "emergency_fast_track"
)

// WorkflowTypes lists every archetype in a fixed order.
var WorkflowTypes = []WorkflowType{
	WorkflowSimpleLinear,
	WorkflowParallelMultiAgent,
	WorkflowHierarchicalReview,
	WorkflowIterativeRefinement,
	WorkflowResearchDiscovery,
	WorkflowCriticalPath,
	WorkflowEmergencyFastTrack,
}

// Valid returns true if the workflow type is a known value.
func (w WorkflowType) Valid() bool {
	for _, t := range WorkflowTypes {
		if w == t {
			return true
		}
	}
	return false
}

// RoutingStrategy is the objective function used to weight candidate archetypes.
type RoutingStrategy string

const (
	// RoutePerformance favors fast completion above all.
	RoutePerformance RoutingStrategy = "performance_optimized"
	// RouteQuality favors output quality and review depth.
	RouteQuality RoutingStrategy = "quality_optimized"
	// RouteResource favors low resource consumption.
	RouteResource RoutingStrategy = "resource_optimized"
	// RouteBalanced weighs all factors evenly.
	RouteBalanced RoutingStrategy = "balanced"
	// RouteLearning favors archetypes that generate new patterns.
	RouteLearning RoutingStrategy = "learning_optimized"
)

// Valid returns true if the routing strategy is a known value.
func (r RoutingStrategy) Valid() bool {
	switch r {
	case RoutePerformance, RouteQuality, RouteResource, RouteBalanced, RouteLearning:
		return true
	default:
		return false
	}
}

// WorkflowRecommendation is the immutable output of workflow selection.
type WorkflowRecommendation struct {
	// WorkflowType is the chosen archetype.
	WorkflowType WorkflowType `json:"workflow_type"`
	// Confidence is the selector's confidence in the choice, in [0,1].
	Confidence float64 `json:"confidence"`
	// Reasoning explains the choice in human-readable form.
	Reasoning string `json:"reasoning"`
	// PredictedSuccessRate is the expected success rate, in [0,1].
	PredictedSuccessRate float64 `json:"predicted_success_rate"`
	// EstimatedDuration is the predicted wall-clock duration in minutes.
	EstimatedDuration float64 `json:"estimated_duration"`
	// ResourceRequirements estimates agents, memory queries, and coordination load.
	ResourceRequirements map[string]any `json:"resource_requirements,omitempty"`
	// RoutingStrategy is the objective the selection was scored under.
	RoutingStrategy RoutingStrategy `json:"routing_strategy"`
	// SupportingPatterns lists the pattern IDs that informed the prediction.
	SupportingPatterns []string `json:"supporting_patterns,omitempty"`
	// FallbackOptions lists alternative archetypes, best first.
	FallbackOptions []WorkflowType `json:"fallback_options,omitempty"`
	// RiskFactors lists identified risks with the choice.
	RiskFactors []string `json:"risk_factors,omitempty"`
	// OptimizationOpportunities lists ways the execution could be improved.
	OptimizationOpportunities []string `json:"optimization_opportunities,omitempty"`
}
