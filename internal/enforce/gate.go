package enforce

import (
	"fmt"
	"sync"
	"time"

	"github.com/squadronhq/squadron/pkg/models"
)

// Action is one access a task wants to perform.
type Action struct {
	Type ActionType
	// Path is the file path for read/write actions, or the project
	// resource name for execute actions.
	Path string
}

// Violation records a denied action.
type Violation struct {
	AgentType   models.AgentType `json:"agent_type"`
	Action      ActionType       `json:"action"`
	Path        string           `json:"path"`
	Category    FileCategory     `json:"category"`
	Severity    Severity         `json:"severity"`
	Description string           `json:"description"`
	OccurredAt  time.Time        `json:"occurred_at"`
}

// Result is the outcome of a validation. Allowed is false if any
// violation was found; there is no override path.
type Result struct {
	Allowed    bool
	Violations []Violation
}

// Gate is the authorization check the orchestrator consults before every
// execution. Validation is pure; the gate only accumulates a violation
// log for reporting.
type Gate struct {
	mu         sync.Mutex
	policy     map[models.AgentType]permissions
	violations []Violation
	bySeverity map[Severity]int
}

// NewGate creates a Gate with the default agent policy.
func NewGate() *Gate {
	return &Gate{
		policy:     defaultPolicy(),
		bySeverity: make(map[Severity]int),
	}
}

// LoadPolicy merges per-agent overrides from a YAML policy file. The merged
// policy is built aside and swapped in whole, so a reload can run while
// validations are in flight.
func (g *Gate) LoadPolicy(path string) error {
	g.mu.Lock()
	merged := make(map[models.AgentType]permissions, len(g.policy))
	for agent, perms := range g.policy {
		merged[agent] = perms
	}
	g.mu.Unlock()

	if err := loadPolicyFile(path, merged); err != nil {
		return err
	}

	g.mu.Lock()
	g.policy = merged
	g.mu.Unlock()
	return nil
}

// Validate checks one action for one agent type. Denials are recorded in
// the gate's violation log.
func (g *Gate) Validate(agent models.AgentType, action Action) Result {
	violation, ok := g.check(agent, action)
	if ok {
		return Result{Allowed: true}
	}

	g.mu.Lock()
	g.violations = append(g.violations, violation)
	g.bySeverity[violation.Severity]++
	g.mu.Unlock()

	return Result{Allowed: false, Violations: []Violation{violation}}
}

// ValidateAll checks every action and aggregates violations. A single
// denial makes the whole result denied.
func (g *Gate) ValidateAll(agent models.AgentType, actions []Action) Result {
	result := Result{Allowed: true}
	for _, action := range actions {
		r := g.Validate(agent, action)
		if !r.Allowed {
			result.Allowed = false
			result.Violations = append(result.Violations, r.Violations...)
		}
	}
	return result
}

// check evaluates the policy without touching the log. Returns the
// violation and false when denied.
func (g *Gate) check(agent models.AgentType, action Action) (Violation, bool) {
	if !agent.Valid() {
		return Violation{
			AgentType:   agent,
			Action:      action.Type,
			Path:        action.Path,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("unknown agent type %q", agent),
			OccurredAt:  time.Now(),
		}, false
	}

	switch action.Type {
	case ActionRead, ActionExecute:
		// Reads and executes are unrestricted for known agent types;
		// only writes are category-gated.
		return Violation{}, true
	case ActionWrite:
	default:
		return Violation{
			AgentType:   agent,
			Action:      action.Type,
			Path:        action.Path,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("unknown action type %q", action.Type),
			OccurredAt:  time.Now(),
		}, false
	}

	category := Classify(action.Path)
	g.mu.Lock()
	perms := g.policy[agent]
	g.mu.Unlock()
	if perms.writable[category] {
		return Violation{}, true
	}

	severity := SeverityHigh
	description := fmt.Sprintf("%s agent is not authorized to write %s files: %s", agent, category, action.Path)
	if agent == models.AgentOrchestrator && category == CategorySourceCode {
		severity = SeverityCritical
		description = fmt.Sprintf("CRITICAL VIOLATION: orchestrator attempted to write source code: %s", action.Path)
	} else if category == CategoryUnknown {
		severity = SeverityMedium
		description = fmt.Sprintf("%s agent attempted to write unclassified file: %s", agent, action.Path)
	}

	return Violation{
		AgentType:   agent,
		Action:      action.Type,
		Path:        action.Path,
		Category:    category,
		Severity:    severity,
		Description: description,
		OccurredAt:  time.Now(),
	}, false
}

// Violations returns a copy of the accumulated violation log.
func (g *Gate) Violations() []Violation {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Violation, len(g.violations))
	copy(out, g.violations)
	return out
}

// Summary returns violation counts keyed by severity.
func (g *Gate) Summary() map[Severity]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[Severity]int, len(g.bySeverity))
	for k, v := range g.bySeverity {
		out[k] = v
	}
	return out
}
