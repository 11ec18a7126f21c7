// Package agent defines the agent roster and the executors that run tasks.
package agent

import "github.com/squadronhq/squadron/pkg/models"

// Definition describes one agent role: what it does, which memory categories
// feed its context, and the keywords its context searches prioritize.
type Definition struct {
	Name             string
	Description      string
	MemoryCategories []models.MemoryCategory
	Specializations  []string
	ContextKeywords  []string
}

// Definitions is the agent roster, keyed by agent type.
var Definitions = map[models.AgentType]Definition{
	models.AgentOrchestrator: {
		Name:             "Orchestrator Agent",
		Description:      "Coordinates multi-agent workflows and task distribution",
		MemoryCategories: []models.MemoryCategory{models.CategoryProject, models.CategoryPattern},
		Specializations:  []string{"workflow_coordination", "task_decomposition", "resource_allocation"},
		ContextKeywords:  []string{"coordination", "planning", "workflow", "orchestration"},
	},
	models.AgentArchitect: {
		Name:             "Architect Agent",
		Description:      "Designs system architecture and makes technical decisions",
		MemoryCategories: []models.MemoryCategory{models.CategoryProject, models.CategoryPattern},
		Specializations:  []string{"system_design", "architectural_patterns", "technology_selection"},
		ContextKeywords:  []string{"architecture", "design", "patterns", "scalability", "technical_decisions"},
	},
	models.AgentEngineer: {
		Name:             "Engineer Agent",
		Description:      "Implements features and writes production code",
		MemoryCategories: []models.MemoryCategory{models.CategoryPattern, models.CategoryTeam, models.CategoryError},
		Specializations:  []string{"feature_implementation", "code_development", "debugging"},
		ContextKeywords:  []string{"implementation", "coding", "features", "development", "programming"},
	},
	models.AgentQA: {
		Name:             "QA Agent",
		Description:      "Tests functionality and ensures quality standards",
		MemoryCategories: []models.MemoryCategory{models.CategoryError, models.CategoryPattern, models.CategoryTeam},
		Specializations:  []string{"testing", "quality_assurance", "bug_detection", "test_automation"},
		ContextKeywords:  []string{"testing", "quality", "bugs", "validation", "qa"},
	},
	models.AgentResearcher: {
		Name:             "Researcher Agent",
		Description:      "Investigates technologies and gathers requirements",
		MemoryCategories: []models.MemoryCategory{models.CategoryPattern, models.CategoryProject},
		Specializations:  []string{"technology_research", "requirements_analysis", "market_research"},
		ContextKeywords:  []string{"research", "analysis", "requirements", "investigation", "exploration"},
	},
	models.AgentOperations: {
		Name:             "Operations Agent",
		Description:      "Runs deployments and keeps environments healthy",
		MemoryCategories: []models.MemoryCategory{models.CategoryPattern, models.CategoryTeam},
		Specializations:  []string{"deployment_execution", "environment_management", "incident_response"},
		ContextKeywords:  []string{"operations", "deployment", "environments", "incidents", "runbooks"},
	},
	models.AgentSecurity: {
		Name:             "Security Engineer Agent",
		Description:      "Analyzes security vulnerabilities and implements security measures",
		MemoryCategories: []models.MemoryCategory{models.CategoryError, models.CategoryPattern, models.CategoryTeam},
		Specializations:  []string{"security_analysis", "vulnerability_assessment", "security_implementation"},
		ContextKeywords:  []string{"security", "vulnerabilities", "authentication", "authorization", "encryption"},
	},
	models.AgentPerformance: {
		Name:             "Performance Engineer Agent",
		Description:      "Optimizes performance and analyzes system bottlenecks",
		MemoryCategories: []models.MemoryCategory{models.CategoryPattern, models.CategoryError},
		Specializations:  []string{"performance_optimization", "bottleneck_analysis", "scalability_testing"},
		ContextKeywords:  []string{"performance", "optimization", "bottlenecks", "scalability", "speed"},
	},
	models.AgentDevOps: {
		Name:             "DevOps Engineer Agent",
		Description:      "Manages deployment pipelines and infrastructure",
		MemoryCategories: []models.MemoryCategory{models.CategoryPattern, models.CategoryTeam, models.CategoryError},
		Specializations:  []string{"ci_cd", "infrastructure", "deployment", "monitoring"},
		ContextKeywords:  []string{"deployment", "infrastructure", "devops", "ci_cd", "monitoring"},
	},
	models.AgentData: {
		Name:             "Data Engineer Agent",
		Description:      "Designs and implements data processing and storage solutions",
		MemoryCategories: []models.MemoryCategory{models.CategoryPattern, models.CategoryProject},
		Specializations:  []string{"data_modeling", "etl_pipelines", "data_storage", "analytics"},
		ContextKeywords:  []string{"data", "storage", "pipelines", "analytics", "databases"},
	},
	models.AgentUIUX: {
		Name:             "UI/UX Engineer Agent",
		Description:      "Designs user interfaces and user experience flows",
		MemoryCategories: []models.MemoryCategory{models.CategoryPattern, models.CategoryTeam},
		Specializations:  []string{"ui_design", "ux_design", "frontend_development", "user_research"},
		ContextKeywords:  []string{"ui", "ux", "frontend", "design", "user_experience"},
	},
	models.AgentCodeReview: {
		Name:             "Code Review Engineer Agent",
		Description:      "Performs comprehensive code reviews across security, performance, style, and testing",
		MemoryCategories: []models.MemoryCategory{models.CategoryPattern, models.CategoryTeam, models.CategoryError},
		Specializations:  []string{"code_review", "style_analysis", "security_review", "performance_review", "test_coverage"},
		ContextKeywords:  []string{"code_review", "style", "standards", "quality", "review", "analysis"},
	},
}
