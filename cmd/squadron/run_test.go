package main

import (
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/squadronhq/squadron/internal/config"
	"github.com/squadronhq/squadron/internal/enforce"
	"github.com/squadronhq/squadron/internal/orchestrator"
	"github.com/squadronhq/squadron/pkg/models"
)

func TestApplyConfigUpdateReloadsEnforcementPolicy(t *testing.T) {
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

	gate := enforce.NewGate()
	write := []enforce.Action{{Type: enforce.ActionWrite, Path: "src/main.go"}}
	if gate.ValidateAll(models.AgentQA, write).Allowed {
		t.Fatal("default policy should deny qa source writes")
	}

	cfg := config.Default()
	cfg.Enforcement.PolicyPath = path
	applyConfigUpdate(gate, orchestrator.NopLogger(), cfg)

	if !gate.ValidateAll(models.AgentQA, write).Allowed {
		t.Error("reloaded policy should let qa write source code")
	}
}

func TestApplyConfigUpdateKeepsPolicyOnBadFile(t *testing.T) {
	gate := enforce.NewGate()
	cfg := config.Default()
	cfg.Enforcement.PolicyPath = filepath.Join(t.TempDir(), "missing.yaml")

	applyConfigUpdate(gate, orchestrator.NopLogger(), cfg)

	write := []enforce.Action{{Type: enforce.ActionWrite, Path: "src/main.go"}}
	if !gate.ValidateAll(models.AgentEngineer, write).Allowed {
		t.Error("a failed reload must leave the previous policy in effect")
	}
}

func TestTruncateLineKeepsRuneBoundaries(t *testing.T) {
	got := truncateLine("署名付きリリースを検証する", 10)
	if !utf8.ValidString(got) {
		t.Errorf("truncateLine produced invalid UTF-8: %q", got)
	}
	if len(got) > 10 {
		t.Errorf("len(%q) = %d, want <= 10", got, len(got))
	}
}
