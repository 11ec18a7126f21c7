package enforce

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/squadronhq/squadron/pkg/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want FileCategory
	}{
		{"main.py", CategorySourceCode},
		{"app.js", CategorySourceCode},
		{"internal/server/handler.go", CategorySourceCode},
		{"Dockerfile", CategoryConfiguration},
		{"config.yml", CategoryConfiguration},
		{"package.json", CategoryConfiguration},
		{"requirements.txt", CategoryConfiguration},
		{"deploy.sh", CategoryConfiguration},
		{"test_main.py", CategoryTestFiles},
		{"utils_test.go", CategoryTestFiles},
		{"app.test.js", CategoryTestFiles},
		{"component.spec.ts", CategoryTestFiles},
		{"tests/integration.py", CategoryTestFiles},
		{"README.md", CategoryDocumentation},
		{"CHANGELOG.md", CategoryDocumentation},
		{"notes.txt", CategoryDocumentation},
		{"CLAUDE.md", CategoryProjectManagement},
		{"BACKLOG.md", CategoryProjectManagement},
		{"trackdown/issue-001.md", CategoryProjectManagement},
		{"STATUS-REPORT.md", CategoryProjectManagement},
		{"api.template", CategoryScaffolding},
		{"templates/component.js", CategoryScaffolding},
		{"openapi.yml", CategoryScaffolding},
		{"swagger-spec.yml", CategoryScaffolding},
		{"research/analysis.md", CategoryResearchDocs},
		{"docs/research/tech-eval.md", CategoryResearchDocs},
		{"investigation/findings.md", CategoryResearchDocs},
		{"mystery.bin", CategoryUnknown},
	}
	for _, tt := range tests {
		if got := Classify(tt.path); got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestGateWritePolicy(t *testing.T) {
	g := NewGate()

	tests := []struct {
		agent   models.AgentType
		path    string
		allowed bool
	}{
		{models.AgentEngineer, "main.py", true},
		{models.AgentEngineer, "CLAUDE.md", false},
		{models.AgentQA, "test_main.py", true},
		{models.AgentQA, "main.py", false},
		{models.AgentOrchestrator, "BACKLOG.md", true},
		{models.AgentOrchestrator, "main.py", false},
		{models.AgentOperations, "config.yml", true},
		{models.AgentOperations, "main.py", false},
		{models.AgentResearcher, "research/analysis.md", true},
	}
	for _, tt := range tests {
		r := g.Validate(tt.agent, Action{Type: ActionWrite, Path: tt.path})
		if r.Allowed != tt.allowed {
			t.Errorf("Validate(%s, write %s).Allowed = %v, want %v", tt.agent, tt.path, r.Allowed, tt.allowed)
		}
	}
}

func TestGateOrchestratorSourceWriteIsCritical(t *testing.T) {
	g := NewGate()

	r := g.Validate(models.AgentOrchestrator, Action{Type: ActionWrite, Path: "main.py"})
	if r.Allowed {
		t.Fatal("orchestrator source write must be denied")
	}
	if len(r.Violations) != 1 {
		t.Fatalf("violations = %d, want 1", len(r.Violations))
	}
	if r.Violations[0].Severity != SeverityCritical {
		t.Errorf("severity = %q, want critical", r.Violations[0].Severity)
	}
}

func TestGateReadAndExecuteUnrestricted(t *testing.T) {
	g := NewGate()

	if r := g.Validate(models.AgentQA, Action{Type: ActionRead, Path: "main.py"}); !r.Allowed {
		t.Error("reads should be unrestricted")
	}
	if r := g.Validate(models.AgentEngineer, Action{Type: ActionExecute, Path: "billing"}); !r.Allowed {
		t.Error("execute should be permitted for known agent types")
	}
	if r := g.Validate(models.AgentType("intruder"), Action{Type: ActionExecute, Path: "billing"}); r.Allowed {
		t.Error("unknown agent types must be denied")
	}
}

func TestGateValidateAllAggregates(t *testing.T) {
	g := NewGate()

	r := g.ValidateAll(models.AgentQA, []Action{
		{Type: ActionWrite, Path: "parser_test.go"},
		{Type: ActionWrite, Path: "parser.go"},
		{Type: ActionWrite, Path: "config.yml"},
	})
	if r.Allowed {
		t.Fatal("mixed batch with denials must be denied as a whole")
	}
	if len(r.Violations) != 2 {
		t.Errorf("violations = %d, want 2", len(r.Violations))
	}

	summary := g.Summary()
	if summary[SeverityHigh] != 2 {
		t.Errorf("high severity count = %d, want 2", summary[SeverityHigh])
	}
	if got := len(g.Violations()); got != 2 {
		t.Errorf("violation log length = %d, want 2", got)
	}
}

func TestGateUnknownCategoryWrite(t *testing.T) {
	g := NewGate()

	r := g.Validate(models.AgentEngineer, Action{Type: ActionWrite, Path: "artifact.bin"})
	if r.Allowed {
		t.Fatal("writes to unclassified files must be denied")
	}
	if r.Violations[0].Severity != SeverityMedium {
		t.Errorf("severity = %q, want medium", r.Violations[0].Severity)
	}
}

func TestLoadPolicyOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	policy := `enforcement:
  agents:
    qa:
      writable:
        - test_files
        - source_code
`
	if err := os.WriteFile(path, []byte(policy), 0o644); err != nil {
		t.Fatal(err)
	}

	g := NewGate()
	if err := g.LoadPolicy(path); err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}
	if r := g.Validate(models.AgentQA, Action{Type: ActionWrite, Path: "main.py"}); !r.Allowed {
		t.Error("override should let qa write source code")
	}
	// Other agents keep the defaults.
	if r := g.Validate(models.AgentOrchestrator, Action{Type: ActionWrite, Path: "main.py"}); r.Allowed {
		t.Error("override must not loosen other agents")
	}
}

func TestLoadPolicyDuringValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	policy := `enforcement:
  agents:
    qa:
      writable: [test_files]
`
	if err := os.WriteFile(path, []byte(policy), 0o644); err != nil {
		t.Fatal(err)
	}

	g := NewGate()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			g.Validate(models.AgentEngineer, Action{Type: ActionWrite, Path: "main.go"})
		}
	}()
	for i := 0; i < 20; i++ {
		if err := g.LoadPolicy(path); err != nil {
			t.Errorf("LoadPolicy: %v", err)
		}
	}
	<-done
}

func TestLoadPolicyRejectsUnknownNames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	policy := `enforcement:
  agents:
    wizard:
      writable: [source_code]
`
	if err := os.WriteFile(path, []byte(policy), 0o644); err != nil {
		t.Fatal(err)
	}

	g := NewGate()
	if err := g.LoadPolicy(path); err == nil {
		t.Error("unknown agent type in policy must be rejected")
	}
}

func TestGlobMatch(t *testing.T) {
	tests := []struct {
		path, pattern string
		want          bool
	}{
		{"tests/integration.py", "**/tests/**", true},
		{"pkg/storage/tests/db.py", "**/tests/**", true},
		{"pkg/storage/db.py", "**/tests/**", false},
		{"templates/component.js", "templates/**", true},
		{"a/b/c.go", "a/*/c.go", true},
		{"a/b/c.go", "a/*.go", false},
		{"swagger-spec.yml", "swagger-*.yml", true},
	}
	for _, tt := range tests {
		if got := globMatch(tt.path, tt.pattern); got != tt.want {
			t.Errorf("globMatch(%q, %q) = %v, want %v", tt.path, tt.pattern, got, tt.want)
		}
	}
}
