package enforce

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/squadronhq/squadron/pkg/models"
)

// ActionType is the kind of access being validated.
type ActionType string

const (
	ActionRead    ActionType = "read"
	ActionWrite   ActionType = "write"
	ActionExecute ActionType = "execute"
)

// Severity grades a violation.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// permissions is the per-agent write allow-list. Reads are unrestricted
// and execute is permitted for every known agent type; only writes are
// category-gated.
type permissions struct {
	writable map[FileCategory]bool
}

func allow(categories ...FileCategory) permissions {
	m := make(map[FileCategory]bool, len(categories))
	for _, c := range categories {
		m[c] = true
	}
	return permissions{writable: m}
}

// defaultPolicy maps each agent type to the file categories it may write.
// The orchestrator manages, it never touches code; the engineer writes
// code, never project management files.
func defaultPolicy() map[models.AgentType]permissions {
	return map[models.AgentType]permissions{
		models.AgentOrchestrator: allow(CategoryProjectManagement, CategoryDocumentation),
		models.AgentArchitect:    allow(CategoryScaffolding, CategoryDocumentation),
		models.AgentEngineer:     allow(CategorySourceCode),
		models.AgentQA:           allow(CategoryTestFiles),
		models.AgentResearcher:   allow(CategoryResearchDocs, CategoryDocumentation),
		models.AgentOperations:   allow(CategoryConfiguration),
		models.AgentSecurity:     allow(CategoryDocumentation, CategoryResearchDocs),
		models.AgentPerformance:  allow(CategoryDocumentation, CategoryResearchDocs),
		models.AgentDevOps:       allow(CategoryConfiguration, CategoryScaffolding),
		models.AgentData:         allow(CategorySourceCode, CategoryConfiguration),
		models.AgentUIUX:         allow(CategorySourceCode, CategoryDocumentation),
		models.AgentCodeReview:   allow(CategoryDocumentation),
	}
}

// policyFile is the on-disk override format, loaded from a project's
// enforcement policy YAML.
type policyFile struct {
	Enforcement struct {
		Agents map[string]struct {
			Writable []string `yaml:"writable"`
		} `yaml:"agents"`
	} `yaml:"enforcement"`
}

// loadPolicyFile merges per-agent writable-category overrides from a YAML
// file into the given policy. Unknown agent types or categories are
// rejected rather than silently ignored.
func loadPolicyFile(path string, policy map[models.AgentType]permissions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("parse enforcement policy %s: %w", path, err)
	}

	for name, entry := range pf.Enforcement.Agents {
		agent := models.AgentType(name)
		if !agent.Valid() {
			return fmt.Errorf("enforcement policy %s: unknown agent type %q", path, name)
		}
		categories := make([]FileCategory, 0, len(entry.Writable))
		for _, c := range entry.Writable {
			cat := FileCategory(c)
			if !validCategory(cat) {
				return fmt.Errorf("enforcement policy %s: unknown file category %q", path, c)
			}
			categories = append(categories, cat)
		}
		policy[agent] = allow(categories...)
	}
	return nil
}

func validCategory(c FileCategory) bool {
	switch c {
	case CategorySourceCode, CategoryConfiguration, CategoryTestFiles,
		CategoryDocumentation, CategoryProjectManagement,
		CategoryScaffolding, CategoryResearchDocs:
		return true
	default:
		return false
	}
}
