package workflow

import (
	"time"

	"github.com/squadronhq/squadron/pkg/models"
)

// selectionRule maps task characteristics to candidate archetypes. A rule
// fires when any of its populated conditions matches.
type selectionRule struct {
	name           string
	complexities   []models.Complexity
	keywords       []string
	priorities     []string
	deadlineWithin time.Duration
	preferred      []models.WorkflowType
}

var selectionRules = []selectionRule{
	{
		name:         "trivial_simple",
		complexities: []models.Complexity{models.ComplexityTrivial, models.ComplexitySimple},
		preferred: []models.WorkflowType{
			models.WorkflowSimpleLinear,
			models.WorkflowEmergencyFastTrack,
		},
	},
	{
		name:         "medium_balanced",
		complexities: []models.Complexity{models.ComplexityMedium},
		preferred: []models.WorkflowType{
			models.WorkflowParallelMultiAgent,
			models.WorkflowHierarchicalReview,
			models.WorkflowIterativeRefinement,
		},
	},
	{
		name:         "complex_comprehensive",
		complexities: []models.Complexity{models.ComplexityComplex, models.ComplexityEpic},
		preferred: []models.WorkflowType{
			models.WorkflowHierarchicalReview,
			models.WorkflowResearchDiscovery,
			models.WorkflowCriticalPath,
		},
	},
	{
		name:     "research_discovery",
		keywords: []string{"research"},
		preferred: []models.WorkflowType{
			models.WorkflowResearchDiscovery,
			models.WorkflowIterativeRefinement,
		},
	},
	{
		name:           "urgent_fast_track",
		priorities:     []string{"high", "critical"},
		deadlineWithin: 24 * time.Hour,
		preferred: []models.WorkflowType{
			models.WorkflowEmergencyFastTrack,
			models.WorkflowSimpleLinear,
			models.WorkflowParallelMultiAgent,
		},
	},
}

// routingWeights weight the scoring factors per routing strategy.
type routingWeights struct {
	executionTime      float64
	successRate        float64
	resourceEfficiency float64
	quality            float64
	patternLearning    float64
}

var strategyWeights = map[models.RoutingStrategy]routingWeights{
	models.RoutePerformance: {executionTime: 0.4, successRate: 0.3, resourceEfficiency: 0.2, quality: 0.1},
	models.RouteQuality:     {quality: 0.4, successRate: 0.3, executionTime: 0.1, resourceEfficiency: 0.2},
	models.RouteResource:    {resourceEfficiency: 0.4, executionTime: 0.3, successRate: 0.2, quality: 0.1},
	models.RouteBalanced:    {successRate: 0.3, executionTime: 0.25, quality: 0.25, resourceEfficiency: 0.2},
	models.RouteLearning:    {patternLearning: 0.3, successRate: 0.25, quality: 0.25, executionTime: 0.2},
}

// keywordCategory groups trigger words under a workflow-relevant label.
type keywordCategory struct {
	category string
	words    []string
}

var keywordCategories = []keywordCategory{
	{"research", []string{"research", "investigate", "analyze", "explore", "study"}},
	{"implementation", []string{"implement", "build", "create", "develop", "code"}},
	{"design", []string{"design", "architect", "plan", "model", "structure"}},
	{"testing", []string{"test", "validate", "verify", "qa", "quality"}},
	{"integration", []string{"integrate", "connect", "merge", "combine"}},
	{"migration", []string{"migrate", "move", "transfer", "convert"}},
	{"optimization", []string{"optimize", "improve", "enhance", "performance"}},
	{"fix", []string{"fix", "bug", "issue", "error", "problem"}},
	{"deployment", []string{"deploy", "release", "launch", "publish"}},
	{"documentation", []string{"document", "doc", "readme", "guide"}},
}

// outcomeMultiplier scales a prediction's duration, success, and quality.
type outcomeMultiplier struct {
	duration float64
	success  float64
	quality  float64
}

var complexityMultipliers = map[models.Complexity]outcomeMultiplier{
	models.ComplexityTrivial: {duration: 0.5, success: 1.2, quality: 1.0},
	models.ComplexitySimple:  {duration: 0.8, success: 1.1, quality: 1.0},
	models.ComplexityMedium:  {duration: 1.0, success: 1.0, quality: 1.0},
	models.ComplexityComplex: {duration: 1.5, success: 0.9, quality: 1.1},
	models.ComplexityEpic:    {duration: 2.0, success: 0.8, quality: 1.2},
}

var workflowAdjustments = map[models.WorkflowType]outcomeMultiplier{
	models.WorkflowEmergencyFastTrack:  {duration: 0.7, success: 0.85, quality: 0.8},
	models.WorkflowResearchDiscovery:   {duration: 1.3, success: 0.9, quality: 1.2},
	models.WorkflowHierarchicalReview:  {duration: 1.2, success: 1.1, quality: 1.3},
	models.WorkflowParallelMultiAgent:  {duration: 0.8, success: 1.05, quality: 1.1},
}

var workflowRisks = map[models.WorkflowType][]string{
	models.WorkflowEmergencyFastTrack: {"Reduced testing may introduce bugs"},
	models.WorkflowParallelMultiAgent: {"Coordination overhead", "Integration challenges"},
	models.WorkflowResearchDiscovery:  {"Scope uncertainty", "Timeline unpredictability"},
	models.WorkflowCriticalPath:       {"Dependency bottlenecks"},
}

// resourceProfile is the base footprint of an archetype before complexity
// scaling.
type resourceProfile struct {
	agents       int
	cpu          string
	memory       string
	coordination string
}

var baseResources = map[models.WorkflowType]resourceProfile{
	models.WorkflowSimpleLinear:        {agents: 1, cpu: "low", memory: "low", coordination: "none"},
	models.WorkflowParallelMultiAgent:  {agents: 3, cpu: "medium", memory: "medium", coordination: "high"},
	models.WorkflowHierarchicalReview:  {agents: 4, cpu: "medium", memory: "medium", coordination: "high"},
	models.WorkflowIterativeRefinement: {agents: 2, cpu: "medium", memory: "low", coordination: "medium"},
	models.WorkflowResearchDiscovery:   {agents: 2, cpu: "low", memory: "low", coordination: "low"},
	models.WorkflowCriticalPath:        {agents: 4, cpu: "high", memory: "medium", coordination: "high"},
	models.WorkflowEmergencyFastTrack:  {agents: 1, cpu: "medium", memory: "low", coordination: "none"},
}

var resourceComplexityScale = map[models.Complexity]float64{
	models.ComplexityTrivial: 0.5,
	models.ComplexitySimple:  0.8,
	models.ComplexityMedium:  1.0,
	models.ComplexityComplex: 1.5,
	models.ComplexityEpic:    2.0,
}

var workflowOptimizations = map[models.WorkflowType][]string{
	models.WorkflowParallelMultiAgent: {
		"Consider task decomposition for better parallelization",
		"Use async coordination to reduce wait times",
	},
	models.WorkflowHierarchicalReview: {
		"Implement early feedback loops",
		"Use staged reviews to catch issues early",
	},
	models.WorkflowResearchDiscovery: {
		"Set clear research boundaries",
		"Use incremental discovery approach",
	},
}
