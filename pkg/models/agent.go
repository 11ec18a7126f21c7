package models

// AgentType identifies the role a task is routed to. Each type carries an
// authorization profile consulted by the enforcement gate and a set of
// memory-category affinities used when preparing execution context.
type AgentType string

const (
	// AgentOrchestrator coordinates other agents and owns project management files.
	AgentOrchestrator AgentType = "orchestrator"
	// AgentArchitect produces designs, scaffolding, and API specifications.
	AgentArchitect AgentType = "architect"
	// AgentEngineer implements source code.
	AgentEngineer AgentType = "engineer"
	// AgentQA writes and runs tests.
	AgentQA AgentType = "qa"
	// AgentResearcher investigates and documents findings.
	AgentResearcher AgentType = "researcher"
	// AgentOperations handles deployment and infrastructure configuration.
	AgentOperations AgentType = "operations"
	// AgentSecurity audits and hardens code and configuration.
	AgentSecurity AgentType = "security"
	// AgentPerformance profiles and optimizes.
	AgentPerformance AgentType = "performance"
	// AgentDevOps maintains CI/CD and build tooling.
	AgentDevOps AgentType = "devops"
	// AgentData builds data pipelines and schemas.
	AgentData AgentType = "data"
	// AgentUIUX implements user-facing interfaces.
	AgentUIUX AgentType = "ui-ux"
	// AgentCodeReview reviews changes produced by other agents.
	AgentCodeReview AgentType = "code-review"
)

// AgentTypes lists every known agent type in a fixed order.
var AgentTypes = []AgentType{
	AgentOrchestrator,
	AgentArchitect,
	AgentEngineer,
	AgentQA,
	AgentResearcher,
	AgentOperations,
	AgentSecurity,
	AgentPerformance,
	AgentDevOps,
	AgentData,
	AgentUIUX,
	AgentCodeReview,
}

// Valid returns true if the agent type is a known value.
func (a AgentType) Valid() bool {
	for _, t := range AgentTypes {
		if a == t {
			return true
		}
	}
	return false
}
