package decompose

import "github.com/squadronhq/squadron/pkg/models"

// complexityIndicator holds the detection pattern for one complexity tier.
type complexityIndicator struct {
	keywords          []string
	maxEstimatedHours float64
}

// complexityIndicators maps each tier to its keyword and hour-ceiling checks.
var complexityIndicators = map[models.Complexity]complexityIndicator{
	models.ComplexityTrivial: {
		keywords:          []string{"fix typo", "update text", "change color", "simple update"},
		maxEstimatedHours: 1,
	},
	models.ComplexitySimple: {
		keywords:          []string{"add button", "update function", "simple feature", "minor change"},
		maxEstimatedHours: 8,
	},
	models.ComplexityMedium: {
		keywords:          []string{"implement feature", "create component", "add integration", "refactor"},
		maxEstimatedHours: 24,
	},
	models.ComplexityComplex: {
		keywords:          []string{"design system", "architecture", "multi-service", "complex feature"},
		maxEstimatedHours: 80,
	},
	models.ComplexityEpic: {
		keywords:          []string{"platform", "migration", "complete rewrite", "major overhaul"},
		maxEstimatedHours: 200,
	},
}

// strategyPattern holds the affinity profile for one decomposition strategy.
type strategyPattern struct {
	bestFor              []string
	complexityPreference []models.Complexity
}

// strategyPatterns maps each strategy to its keyword affinities and
// preferred complexity tiers.
var strategyPatterns = map[models.Strategy]strategyPattern{
	models.StrategyLinear: {
		bestFor:              []string{"migration", "step-by-step", "sequential", "setup"},
		complexityPreference: []models.Complexity{models.ComplexitySimple, models.ComplexityMedium},
	},
	models.StrategyParallel: {
		bestFor:              []string{"independent features", "team work", "concurrent development"},
		complexityPreference: []models.Complexity{models.ComplexityMedium, models.ComplexityComplex},
	},
	models.StrategyHierarchical: {
		bestFor:              []string{"architecture", "system design", "complex features"},
		complexityPreference: []models.Complexity{models.ComplexityComplex, models.ComplexityEpic},
	},
	models.StrategyIterative: {
		bestFor:              []string{"agile development", "mvp", "iterative improvement"},
		complexityPreference: []models.Complexity{models.ComplexityMedium, models.ComplexityComplex},
	},
	models.StrategyExploratory: {
		bestFor:              []string{"research", "poc", "unknown territory", "investigation"},
		complexityPreference: []models.Complexity{models.ComplexityMedium, models.ComplexityComplex, models.ComplexityEpic},
	},
}

// baseTemplate is the synthesized subtask list for one complexity tier.
type baseTemplate struct {
	titles []string
	hours  []float64
}

// baseTemplates maps each tier to its fixed subtask template. Titles and
// hour budgets are parallel slices.
var baseTemplates = map[models.Complexity]baseTemplate{
	models.ComplexityTrivial: {
		titles: []string{"Execute the task"},
		hours:  []float64{1},
	},
	models.ComplexitySimple: {
		titles: []string{"Plan and design", "Implement", "Test and verify"},
		hours:  []float64{1, 4, 2},
	},
	models.ComplexityMedium: {
		titles: []string{
			"Requirements analysis", "Design and architecture",
			"Core implementation", "Integration", "Testing", "Documentation",
		},
		hours: []float64{2, 4, 8, 4, 4, 2},
	},
	models.ComplexityComplex: {
		titles: []string{
			"Research and analysis", "System design", "Component breakdown",
			"Core development", "Integration development", "Testing strategy",
			"Unit testing", "Integration testing", "Documentation",
			"Deployment planning", "Monitoring setup",
		},
		hours: []float64{4, 8, 6, 16, 12, 4, 8, 6, 4, 3, 3},
	},
	models.ComplexityEpic: {
		titles: []string{
			"Epic planning", "Architecture design", "Technology selection",
			"Phase 1 planning", "Phase 1 development", "Phase 1 testing",
			"Phase 2 planning", "Phase 2 development", "Phase 2 testing",
			"Integration planning", "System integration", "End-to-end testing",
			"Performance testing", "Security review", "Documentation",
			"Deployment strategy", "Monitoring and alerting", "Training",
			"Go-live planning", "Post-launch monitoring",
		},
		hours: []float64{
			8, 16, 8, 6, 24, 16, 6, 32, 20,
			8, 16, 12, 8, 6, 8, 6, 4, 4, 4, 8,
		},
	},
}

// complexityConfidence is the fixed per-tier confidence constant blended
// into a decomposition's aggregate confidence.
var complexityConfidence = map[models.Complexity]float64{
	models.ComplexityTrivial: 0.9,
	models.ComplexitySimple:  0.8,
	models.ComplexityMedium:  0.7,
	models.ComplexityComplex: 0.6,
	models.ComplexityEpic:    0.5,
}

// agentAssignments maps agent types to the keywords that suggest them.
// Checked in order; the first type with a matching keyword wins, and
// engineer is the default when nothing matches.
var agentAssignments = []struct {
	agent    models.AgentType
	keywords []string
}{
	{models.AgentResearcher, []string{
		"research", "investigate", "analyze", "study", "explore", "evaluation", "assessment",
		"literature review", "market research", "competitive analysis", "requirements gathering",
		"feasibility study", "discovery", "analysis", "examination", "survey",
	}},
	{models.AgentQA, []string{
		"test", "testing", "validate", "verification", "quality assurance", "qa",
		"unit test", "integration test", "e2e test", "acceptance test", "performance test",
		"load test", "security test", "regression test", "smoke test",
		"test case", "test plan", "test strategy", "automated testing",
	}},
	{models.AgentArchitect, []string{
		"design", "architecture", "system design", "technical design", "blueprint",
		"specification", "technical specification", "architecture review", "design pattern",
		"system architecture", "solution design", "technical planning", "scalability design",
	}},
	{models.AgentOperations, []string{
		"deploy", "deployment", "devops", "infrastructure", "ci/cd", "pipeline",
		"docker", "kubernetes", "aws", "cloud", "server", "environment",
		"monitoring", "logging", "alerting", "provisioning", "automation", "orchestration",
	}},
	{models.AgentSecurity, []string{
		"security", "secure", "authentication", "authorization", "encryption", "vulnerability",
		"security audit", "penetration test", "security review", "compliance", "privacy",
		"security scan", "threat analysis", "risk assessment", "security policy",
	}},
	{models.AgentPerformance, []string{
		"performance", "optimization", "profiling", "benchmarking",
		"performance tuning", "scalability", "latency", "throughput", "capacity planning",
		"performance monitoring", "bottleneck analysis", "memory optimization",
	}},
	{models.AgentUIUX, []string{
		"ui", "ux", "user interface", "user experience", "design system",
		"component library", "styling", "css", "responsive design", "accessibility",
		"usability", "wireframe", "mockup", "prototype", "user flow",
	}},
	{models.AgentData, []string{
		"etl", "data pipeline", "data processing", "analytics",
		"data warehouse", "data lake", "sql", "nosql", "mongodb", "postgresql",
		"data migration", "data modeling", "data transformation",
	}},
	{models.AgentEngineer, []string{
		"implement", "code", "develop", "build", "create", "program", "write code",
		"refactor", "optimize", "debug", "fix", "patch", "enhancement", "feature",
		"algorithm", "function", "method", "class", "module", "component", "api",
		"endpoint", "database", "integration", "backend", "frontend",
	}},
}
