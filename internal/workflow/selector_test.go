package workflow

import (
	"context"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/squadronhq/squadron/internal/memory"
	"github.com/squadronhq/squadron/pkg/models"
)

type fakePatterns struct {
	records   []models.PatternRecord
	persisted []models.PatternRecord
	panicOn   bool
}

func (f *fakePatterns) Find(ctx context.Context, q memory.Query) []models.PatternRecord {
	if f.panicOn {
		panic("store unavailable")
	}
	return f.records
}

func (f *fakePatterns) Persist(ctx context.Context, p models.PatternRecord) memory.Result {
	f.persisted = append(f.persisted, p)
	return memory.Result{Success: true, RecordID: "rec-1"}
}

func patternRecord(id string, wt models.WorkflowType, successRate float64, lastUsed time.Time, keywords ...string) models.PatternRecord {
	kws := make([]any, len(keywords))
	for i, k := range keywords {
		kws[i] = k
	}
	return models.PatternRecord{
		ID:       id,
		Category: models.CategoryPattern,
		Metadata: map[string]any{
			"pattern_data": map[string]any{
				"workflow_type":      string(wt),
				"keywords":           kws,
				"min_complexity":     "trivial",
				"max_complexity":     "epic",
				"success_rate":       successRate,
				"avg_execution_time": 40.0,
				"quality_score":      0.8,
				"recent_usage_count": 4.0,
				"last_used":          lastUsed.Format(time.RFC3339),
			},
		},
	}
}

func TestSelectWorkflowUrgentNoHistory(t *testing.T) {
	s := NewSelector(&fakePatterns{}, nil)

	rec := s.SelectWorkflow(context.Background(), Request{
		Description: "Hotfix the payment outage",
		Priority:    "critical",
		Deadline:    time.Now().Add(time.Hour),
	})

	if rec.RoutingStrategy != models.RoutePerformance {
		t.Errorf("routing strategy = %q, want performance_optimized", rec.RoutingStrategy)
	}
	allowed := map[models.WorkflowType]bool{
		models.WorkflowEmergencyFastTrack: true,
		models.WorkflowSimpleLinear:       true,
		models.WorkflowParallelMultiAgent: true,
	}
	if !allowed[rec.WorkflowType] {
		t.Errorf("workflow type = %q, want one of the fast-track candidates", rec.WorkflowType)
	}
	// No supporting patterns means the default prediction.
	if rec.Confidence != 0.3 {
		t.Errorf("confidence = %v, want 0.3 without history", rec.Confidence)
	}
}

func TestSelectWorkflowWithHistory(t *testing.T) {
	lastUsed := time.Now().Add(-24 * time.Hour)
	store := &fakePatterns{
		records: []models.PatternRecord{
			patternRecord("pat-1", models.WorkflowParallelMultiAgent, 0.9, lastUsed, "implementation"),
			patternRecord("pat-2", models.WorkflowParallelMultiAgent, 0.85, lastUsed, "implementation"),
		},
	}
	s := NewSelector(store, nil)

	rec := s.SelectWorkflow(context.Background(), Request{
		Description: "Implement the billing feature",
		Project:     "billing",
	})

	if rec.WorkflowType != models.WorkflowParallelMultiAgent {
		t.Errorf("workflow type = %q, want parallel_multi_agent", rec.WorkflowType)
	}
	if len(rec.SupportingPatterns) != 2 {
		t.Errorf("supporting patterns = %v, want both pattern IDs", rec.SupportingPatterns)
	}
	if rec.PredictedSuccessRate <= 0.5 {
		t.Errorf("predicted success rate = %v, want above the default", rec.PredictedSuccessRate)
	}

	// The selection itself is stored for future weighting.
	if len(store.persisted) != 1 {
		t.Fatalf("persisted %d records, want 1", len(store.persisted))
	}
	if store.persisted[0].Type != "workflow_selection" {
		t.Errorf("persisted type = %q, want workflow_selection", store.persisted[0].Type)
	}
}

func TestSelectWorkflowRecoversFromPanic(t *testing.T) {
	s := NewSelector(&fakePatterns{panicOn: true}, nil)

	rec := s.SelectWorkflow(context.Background(), Request{
		Description: "research new cache layer",
	})

	if rec.WorkflowType != models.WorkflowResearchDiscovery {
		t.Errorf("workflow type = %q, want research_discovery fallback", rec.WorkflowType)
	}
	if rec.Confidence != 0.3 {
		t.Errorf("confidence = %v, want 0.3", rec.Confidence)
	}
}

func TestFallbackRecommendation(t *testing.T) {
	tests := []struct {
		req  Request
		want models.WorkflowType
	}{
		{Request{Description: "fix prod", Priority: "critical"}, models.WorkflowEmergencyFastTrack},
		{Request{Description: "research storage engines"}, models.WorkflowResearchDiscovery},
		{Request{Description: "rename a variable"}, models.WorkflowSimpleLinear},
	}
	for _, tt := range tests {
		rec := FallbackRecommendation(tt.req)
		if rec.WorkflowType != tt.want {
			t.Errorf("FallbackRecommendation(%q, %q) = %q, want %q",
				tt.req.Description, tt.req.Priority, rec.WorkflowType, tt.want)
		}
		if rec.Confidence != 0.3 {
			t.Errorf("fallback confidence = %v, want 0.3", rec.Confidence)
		}
	}
}

func TestAssessUrgency(t *testing.T) {
	now := time.Now()
	tests := []struct {
		req  Request
		want string
	}{
		{Request{Deadline: now.Add(time.Hour)}, "critical"},
		{Request{Deadline: now.Add(12 * time.Hour)}, "high"},
		{Request{Deadline: now.Add(48 * time.Hour)}, "medium"},
		{Request{Deadline: now.Add(200 * time.Hour)}, "low"},
		{Request{Priority: "critical"}, "critical"},
		{Request{Priority: "low"}, "low"},
		{Request{}, "medium"},
	}
	for _, tt := range tests {
		if got := assessUrgency(tt.req); got != tt.want {
			t.Errorf("assessUrgency(deadline=%v, priority=%q) = %q, want %q",
				tt.req.Deadline, tt.req.Priority, got, tt.want)
		}
	}
}

func TestDetermineStrategy(t *testing.T) {
	tests := []struct {
		req  Request
		a    analysis
		want models.RoutingStrategy
	}{
		{Request{}, analysis{urgency: "critical"}, models.RoutePerformance},
		{Request{QualityRequirements: "critical"}, analysis{urgency: "medium"}, models.RouteQuality},
		{Request{ResourceConstraints: map[string]bool{"limited_resources": true}}, analysis{urgency: "medium"}, models.RouteResource},
		{Request{Description: "build a poc for caching"}, analysis{urgency: "medium"}, models.RouteLearning},
		{Request{Description: "add pagination"}, analysis{urgency: "medium"}, models.RouteBalanced},
	}
	for _, tt := range tests {
		if got := determineStrategy(tt.req, tt.a); got != tt.want {
			t.Errorf("determineStrategy(%+v) = %q, want %q", tt.req, got, tt.want)
		}
	}
}

func TestExtractKeywords(t *testing.T) {
	got := extractKeywords("implement and test the migration script")
	want := map[string]bool{"implementation": true, "testing": true, "migration": true}
	if len(got) != len(want) {
		t.Fatalf("keywords = %v, want %v", got, want)
	}
	for _, kw := range got {
		if !want[kw] {
			t.Errorf("unexpected keyword %q", kw)
		}
	}
}

func TestIsRelevant(t *testing.T) {
	base := Pattern{
		MinComplexity: models.ComplexitySimple,
		MaxComplexity: models.ComplexityComplex,
		SuccessRate:   0.8,
		Keywords:      []string{"implementation", "testing"},
	}
	a := analysis{complexity: models.ComplexityMedium, keywords: []string{"implementation"}}

	if !isRelevant(base, a) {
		t.Error("expected pattern to be relevant")
	}

	outOfRange := base
	outOfRange.MaxComplexity = models.ComplexitySimple
	if isRelevant(outOfRange, a) {
		t.Error("complexity outside the pattern range should be filtered")
	}

	lowSuccess := base
	lowSuccess.SuccessRate = 0.2
	if isRelevant(lowSuccess, a) {
		t.Error("success rate below 0.3 should be filtered")
	}

	disjoint := base
	disjoint.Keywords = []string{"deployment", "fix", "research", "design"}
	if isRelevant(disjoint, a) {
		t.Error("keyword overlap below 20% should be filtered")
	}
}

func TestPatternWeight(t *testing.T) {
	now := time.Now()
	fresh := Pattern{SuccessRate: 1.0, RecentUsageCount: 10, LastUsed: now}
	if got := patternWeight(fresh, now); got < 0.99 || got > 1.0 {
		t.Errorf("weight of a fresh perfect pattern = %v, want ~1.0", got)
	}

	stale := fresh
	stale.LastUsed = now.Add(-300 * 24 * time.Hour)
	if got := patternWeight(stale, now); got >= patternWeight(fresh, now) {
		t.Errorf("stale pattern weight %v should be below fresh weight", got)
	}
}

func TestPredictionConfidence(t *testing.T) {
	now := time.Now()
	if got := predictionConfidence(nil, now); got != 0.3 {
		t.Errorf("confidence with no patterns = %v, want 0.3", got)
	}

	consistent := make([]Pattern, 5)
	for i := range consistent {
		consistent[i] = Pattern{SuccessRate: 0.8, LastUsed: now}
	}
	if got := predictionConfidence(consistent, now); got < 0.999 || got > 1.0 {
		t.Errorf("confidence with 5 fresh consistent patterns = %v, want ~1.0", got)
	}
}

func TestSelectOptimalTieBreak(t *testing.T) {
	pred := prediction{successRate: 0.8, durationMinutes: 30, quality: 0.8, confidence: 0.6, patternCount: 2}
	predictions := map[models.WorkflowType]prediction{
		models.WorkflowEmergencyFastTrack: pred,
		models.WorkflowCriticalPath:       pred,
	}

	got, _ := selectOptimal(predictions, models.RouteBalanced)
	if got != models.WorkflowCriticalPath {
		t.Errorf("tie broke to %q, want the lexicographically smallest critical_path", got)
	}
}

func TestSelectOptimalEmptyPredictions(t *testing.T) {
	got, pred := selectOptimal(nil, models.RouteBalanced)
	if got != models.WorkflowSimpleLinear {
		t.Errorf("empty predictions selected %q, want simple_linear", got)
	}
	if pred.confidence != 0.3 {
		t.Errorf("default confidence = %v, want 0.3", pred.confidence)
	}
}

func TestSelectorStats(t *testing.T) {
	s := NewSelector(&fakePatterns{}, nil)
	s.SelectWorkflow(context.Background(), Request{Description: "add pagination"})
	s.SelectWorkflow(context.Background(), Request{Description: "fix the login bug"})

	stats := s.Stats()
	if stats.TotalSelections != 2 {
		t.Errorf("total selections = %d, want 2", stats.TotalSelections)
	}
	if stats.AverageConfidence <= 0 {
		t.Errorf("average confidence = %v, want > 0", stats.AverageConfidence)
	}
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"plain ascii text", 11, "plain ascii"},
		// The cut lands inside the two-byte é when sliced by byte.
		{"corrigé la régression", 7, "corrig"},
		{"日本語のタスク", 7, "日本"},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.n)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) produced invalid UTF-8: %q", tt.in, tt.n, got)
		}
	}
}
