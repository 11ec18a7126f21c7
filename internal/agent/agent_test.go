package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/squadronhq/squadron/internal/memory"
	"github.com/squadronhq/squadron/pkg/models"
)

type fakeRetriever struct {
	byCategory map[models.MemoryCategory][]models.PatternRecord
	failOn     models.MemoryCategory
	queries    []memory.Query
}

func (f *fakeRetriever) Retrieve(_ context.Context, q memory.Query) memory.RetrieveResult {
	f.queries = append(f.queries, q)
	if q.Category == f.failOn && f.failOn != "" {
		return memory.RetrieveResult{Success: false, Error: "service unavailable"}
	}
	return memory.RetrieveResult{Success: true, Records: f.byCategory[q.Category]}
}

func TestDefinitionsCoverAllAgentTypes(t *testing.T) {
	for _, agentType := range models.AgentTypes {
		def, ok := Definitions[agentType]
		if !ok {
			t.Errorf("no definition for agent type %q", agentType)
			continue
		}
		if def.Name == "" || def.Description == "" {
			t.Errorf("%q: incomplete definition", agentType)
		}
		if len(def.MemoryCategories) == 0 {
			t.Errorf("%q: no memory categories", agentType)
		}
		for _, c := range def.MemoryCategories {
			if !c.Valid() {
				t.Errorf("%q: invalid memory category %q", agentType, c)
			}
		}
		if len(def.ContextKeywords) == 0 {
			t.Errorf("%q: no context keywords", agentType)
		}
	}
}

func TestPrepareContextBucketsByCategory(t *testing.T) {
	retriever := &fakeRetriever{
		byCategory: map[models.MemoryCategory][]models.PatternRecord{
			models.CategoryPattern: {
				{ID: "p1", Category: models.CategoryPattern, Content: "retry with backoff"},
				{ID: "p2", Category: models.CategoryPattern, Content: "table-driven tests"},
			},
			models.CategoryTeam: {
				{ID: "t1", Category: models.CategoryTeam, Content: "wrap errors with context"},
			},
			models.CategoryError: {
				{ID: "e1", Category: models.CategoryError, Content: "nil map write in handler"},
			},
		},
	}

	got := PrepareContext(context.Background(), retriever, models.AgentEngineer, "webapp", "Implement login endpoint")
	if got.Err != "" {
		t.Fatalf("unexpected error: %s", got.Err)
	}
	if len(got.Patterns) != 2 {
		t.Errorf("patterns = %d, want 2", len(got.Patterns))
	}
	if len(got.TeamStandards) != 1 {
		t.Errorf("team standards = %d, want 1", len(got.TeamStandards))
	}
	if len(got.HistoricalErrors) != 1 {
		t.Errorf("historical errors = %d, want 1", len(got.HistoricalErrors))
	}
	if len(got.ProjectDecisions) != 0 {
		t.Errorf("project decisions = %d, want 0", len(got.ProjectDecisions))
	}
	if got.MemoryCount() != 4 {
		t.Errorf("MemoryCount() = %d, want 4", got.MemoryCount())
	}

	// The engineer definition lists pattern, team, error, in that order,
	// one query per category with the standard limit.
	if len(retriever.queries) != 3 {
		t.Fatalf("queries = %d, want 3", len(retriever.queries))
	}
	for _, q := range retriever.queries {
		if q.Limit != contextLimit {
			t.Errorf("query limit = %d, want %d", q.Limit, contextLimit)
		}
		if q.Project != "webapp" {
			t.Errorf("query project = %q, want webapp", q.Project)
		}
	}
	if retriever.queries[0].Category != models.CategoryPattern {
		t.Errorf("first query category = %q, want pattern", retriever.queries[0].Category)
	}
}

func TestPrepareContextDegradesOnRetrievalFailure(t *testing.T) {
	retriever := &fakeRetriever{
		byCategory: map[models.MemoryCategory][]models.PatternRecord{
			models.CategoryTeam: {{ID: "t1", Content: "standard"}},
		},
		failOn: models.CategoryPattern,
	}

	got := PrepareContext(context.Background(), retriever, models.AgentEngineer, "webapp", "task")
	if got.Err == "" {
		t.Error("expected degraded context to record the retrieval error")
	}
	if len(got.TeamStandards) != 1 {
		t.Errorf("team standards = %d, want 1 despite pattern failure", len(got.TeamStandards))
	}
}

func TestPrepareContextUnknownAgent(t *testing.T) {
	got := PrepareContext(context.Background(), &fakeRetriever{}, models.AgentType("intruder"), "p", "t")
	if got.Err == "" {
		t.Error("expected error for unknown agent type")
	}
	if got.MemoryCount() != 0 {
		t.Errorf("MemoryCount() = %d, want 0", got.MemoryCount())
	}
}

func TestBuildPrompt(t *testing.T) {
	inv := Invocation{
		Task: &models.TaskRecord{
			ID:          "task-1",
			AgentType:   models.AgentQA,
			Description: "Write integration tests for the login flow",
			Project:     "webapp",
		},
		Memory: &Context{
			Patterns: []models.PatternRecord{
				{Content: "Use table-driven tests\nwith subtests"},
			},
			HistoricalErrors: []models.PatternRecord{
				{Content: "Flaky test from shared fixture state"},
			},
		},
		Workspace: "/tmp/work/exec-1",
	}

	prompt := BuildPrompt(inv)
	for _, want := range []string{
		"QA Agent",
		"Project: webapp",
		"Task: Write integration tests for the login flow",
		"Use table-driven tests",
		"Flaky test from shared fixture state",
		"/tmp/work/exec-1",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "with subtests") {
		t.Error("memory summaries should collapse to the first line")
	}
}

func TestBuildPromptCapsMemorySection(t *testing.T) {
	records := make([]models.PatternRecord, 6)
	for i := range records {
		records[i] = models.PatternRecord{Content: "pattern record body"}
	}
	prompt := BuildPrompt(Invocation{
		Task:   &models.TaskRecord{AgentType: models.AgentEngineer, Description: "d", Project: "p"},
		Memory: &Context{Patterns: records},
	})
	if got := strings.Count(prompt, "pattern record body"); got != promptMemoryCap {
		t.Errorf("prompt contains %d pattern lines, want %d", got, promptMemoryCap)
	}
}

func TestSummarize(t *testing.T) {
	long := strings.Repeat("x", 200)
	if got := summarize(long); len(got) != 160 || !strings.HasSuffix(got, "...") {
		t.Errorf("summarize(long) = %q (len %d)", got, len(got))
	}
	if got := summarize("\n\n  first line  \nsecond"); got != "first line" {
		t.Errorf("summarize = %q, want %q", got, "first line")
	}
	if got := summarize(""); got != "" {
		t.Errorf("summarize(empty) = %q", got)
	}
}
