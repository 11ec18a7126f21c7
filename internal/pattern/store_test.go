package pattern

import (
	"context"
	"testing"

	"github.com/squadronhq/squadron/internal/memory"
	"github.com/squadronhq/squadron/pkg/models"
)

// fakeMemory implements Memory with canned responses.
type fakeMemory struct {
	records    []models.PatternRecord
	failRead   bool
	lastStore  map[string]any
	lastQuery  memory.Query
	storeCalls int
}

func (f *fakeMemory) Store(ctx context.Context, category models.MemoryCategory, content string, metadata map[string]any, project string, tags []string) memory.Result {
	f.storeCalls++
	f.lastStore = map[string]any{
		"category": category,
		"content":  content,
		"metadata": metadata,
		"project":  project,
		"tags":     tags,
	}
	return memory.Result{Success: true, RecordID: "stored-1"}
}

func (f *fakeMemory) Retrieve(ctx context.Context, q memory.Query) memory.RetrieveResult {
	f.lastQuery = q
	if f.failRead {
		return memory.RetrieveResult{Success: false, Error: "service down"}
	}
	return memory.RetrieveResult{Success: true, Records: f.records}
}

func TestSimilarityDeterministic(t *testing.T) {
	a := "implement user authentication service with JWT tokens"
	b := "implemented authentication service for users using JWT"

	first := Similarity(a, b)
	for i := 0; i < 10; i++ {
		if got := Similarity(a, b); got != first {
			t.Fatalf("Similarity not deterministic: %v != %v", got, first)
		}
	}
	if first <= 0 || first > 1 {
		t.Errorf("Similarity = %v, want (0,1]", first)
	}
}

func TestSimilarityBounds(t *testing.T) {
	if got := Similarity("", "anything"); got != 0 {
		t.Errorf("Similarity with empty input = %v, want 0", got)
	}
	same := "refactor payment gateway retry logic"
	if got := Similarity(same, same); got != 1.0 {
		t.Errorf("Similarity(x, x) = %v, want 1.0", got)
	}
	if got := Similarity("database schema migration", "frontend button color styling"); got >= MinSimilarity {
		t.Errorf("unrelated texts scored %v, want < %v", got, MinSimilarity)
	}
}

func TestTokenizeFiltersStopWords(t *testing.T) {
	got := Tokenize("Fix the bug in the API and add a test")
	want := []string{"fix", "bug", "api", "add", "test"}
	if len(got) != len(want) {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tokenize[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFindSimilarOrdersByScore(t *testing.T) {
	mem := &fakeMemory{records: []models.PatternRecord{
		{ID: "far", Content: "migrate billing database to new schema"},
		{ID: "near", Content: "implement user authentication service with tokens"},
		{ID: "mid", Content: "implement session service"},
	}}
	store := NewStore(mem)

	got := store.FindSimilar(context.Background(), models.CategoryPattern,
		"implement user authentication service with tokens", nil, 5)

	if len(got) == 0 {
		t.Fatal("expected at least one similar record")
	}
	if got[0].Record.ID != "near" {
		t.Errorf("top record = %q, want near", got[0].Record.ID)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Similarity > got[i-1].Similarity {
			t.Errorf("result not sorted at %d: %v > %v", i, got[i].Similarity, got[i-1].Similarity)
		}
	}
	for _, s := range got {
		if s.Similarity < MinSimilarity {
			t.Errorf("record %q below threshold: %v", s.Record.ID, s.Similarity)
		}
	}
}

func TestFindSimilarTieBreaksByID(t *testing.T) {
	content := "identical pattern content words"
	mem := &fakeMemory{records: []models.PatternRecord{
		{ID: "b", Content: content},
		{ID: "a", Content: content},
	}}
	store := NewStore(mem)

	got := store.FindSimilar(context.Background(), models.CategoryPattern, content, nil, 5)
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].Record.ID != "a" || got[1].Record.ID != "b" {
		t.Errorf("tie order = [%s %s], want [a b]", got[0].Record.ID, got[1].Record.ID)
	}
}

func TestFindSimilarEmptyOnFailure(t *testing.T) {
	store := NewStore(&fakeMemory{failRead: true})
	got := store.FindSimilar(context.Background(), models.CategoryPattern, "anything at all", nil, 5)
	if got != nil {
		t.Errorf("expected nil on retrieval failure, got %v", got)
	}
}

func TestPersistTagsWithType(t *testing.T) {
	mem := &fakeMemory{}
	store := NewStore(mem)

	res := store.Persist(context.Background(), models.PatternRecord{
		Category: models.CategoryPattern,
		Type:     "task_decomposition",
		Content:  "decomposed X into 3 subtasks",
		Project:  "demo",
		Tags:     []string{"decomposition"},
		Metadata: map[string]any{"success_rate": 1.0},
	})
	if !res.Success {
		t.Fatalf("Persist failed: %s", res.Error)
	}

	tags, _ := mem.lastStore["tags"].([]string)
	found := false
	for _, tag := range tags {
		if tag == "task_decomposition" {
			found = true
		}
	}
	if !found {
		t.Errorf("tags %v missing pattern type", tags)
	}
	meta, _ := mem.lastStore["metadata"].(map[string]any)
	if meta["type"] != "task_decomposition" {
		t.Errorf("metadata.type = %v", meta["type"])
	}
}
