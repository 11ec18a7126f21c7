package workflow

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/squadronhq/squadron/internal/decompose"
	"github.com/squadronhq/squadron/internal/memory"
	"github.com/squadronhq/squadron/pkg/models"
)

// patternTags mark workflow selection records in the pattern store.
var patternTags = []string{"workflow_pattern", "routing", "selection"}

// Patterns is the slice of the pattern store the selector depends on.
type Patterns interface {
	Find(ctx context.Context, q memory.Query) []models.PatternRecord
	Persist(ctx context.Context, p models.PatternRecord) memory.Result
}

// Planner classifies task complexity when the caller does not supply one.
type Planner interface {
	Decompose(ctx context.Context, description, project string, meta *decompose.Metadata) decompose.Decomposition
}

// Selector routes tasks to workflow archetypes using historical patterns
// and heuristic selection rules.
type Selector struct {
	patterns Patterns
	planner  Planner
	debugLog func(format string, args ...interface{})
	now      func() time.Time

	mu              sync.Mutex
	totalSelections int64
	avgConfidence   float64
	patternHits     int64
}

// NewSelector creates a Selector. The planner may be nil, in which case
// requests without an explicit complexity are treated as medium.
func NewSelector(patterns Patterns, planner Planner) *Selector {
	return &Selector{
		patterns: patterns,
		planner:  planner,
		debugLog: func(format string, args ...interface{}) {},
		now:      time.Now,
	}
}

// SetDebugLog sets the debug logging function.
func (s *Selector) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		s.debugLog = fn
	}
}

// SelectWorkflow picks the archetype with the best predicted outcome under
// the request's routing objective. It never returns an error: any internal
// failure yields a priority-driven fallback with confidence 0.3. Score ties
// resolve to the lexicographically smallest archetype name.
func (s *Selector) SelectWorkflow(ctx context.Context, req Request) (rec models.WorkflowRecommendation) {
	defer func() {
		if r := recover(); r != nil {
			s.debugLog("[workflow] selection panicked: %v, using fallback", r)
			rec = FallbackRecommendation(req)
		}
	}()

	a := s.analyzeTask(ctx, req)
	if !a.complexity.Valid() {
		a.complexity = models.ComplexityMedium
	}

	patterns := s.loadPatterns(ctx, req, a)
	strategy := determineStrategy(req, a)
	candidates := s.matchCandidates(a, req, patterns)
	predictions := s.predict(candidates, a)
	chosen, pred := selectOptimal(predictions, strategy)

	rec = s.buildRecommendation(chosen, pred, predictions, candidates, strategy, a)
	s.persistSelection(ctx, req, rec)
	s.recordSelection(rec)

	s.debugLog("[workflow] selected %s (confidence %.2f, strategy %s)",
		rec.WorkflowType, rec.Confidence, rec.RoutingStrategy)
	return rec
}

// loadPatterns retrieves and filters relevant historical workflow patterns.
func (s *Selector) loadPatterns(ctx context.Context, req Request, a analysis) []Pattern {
	if s.patterns == nil {
		return nil
	}

	terms := append([]string{"workflow pattern", truncate(req.Description, 50), string(a.complexity)}, a.keywords...)
	records := s.patterns.Find(ctx, memory.Query{
		Category: models.CategoryPattern,
		Text:     strings.Join(terms, " "),
		Project:  req.Project,
		Tags:     patternTags,
		Limit:    15,
	})

	var patterns []Pattern
	for _, rec := range records {
		p, ok := parsePattern(rec)
		if ok && isRelevant(p, a) {
			patterns = append(patterns, p)
		}
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].SuccessRate != patterns[j].SuccessRate {
			return patterns[i].SuccessRate > patterns[j].SuccessRate
		}
		if patterns[i].RecentUsageCount != patterns[j].RecentUsageCount {
			return patterns[i].RecentUsageCount > patterns[j].RecentUsageCount
		}
		return patterns[i].ID < patterns[j].ID
	})
	if len(patterns) > 10 {
		patterns = patterns[:10]
	}
	return patterns
}

// determineStrategy picks the routing objective: urgency forces performance,
// critical quality requirements force quality, constrained resources force
// resource optimization, and experimental work routes to learning.
func determineStrategy(req Request, a analysis) models.RoutingStrategy {
	if a.urgency == "critical" || a.urgency == "high" {
		return models.RoutePerformance
	}
	if req.QualityRequirements == "critical" {
		return models.RouteQuality
	}
	if req.ResourceConstraints["limited_resources"] {
		return models.RouteResource
	}
	lower := strings.ToLower(req.Description)
	if strings.Contains(lower, "experiment") || strings.Contains(lower, "poc") {
		return models.RouteLearning
	}
	return models.RouteBalanced
}

// matchCandidates groups patterns by archetype and adds rule-selected
// archetypes with empty pattern lists.
func (s *Selector) matchCandidates(a analysis, req Request, patterns []Pattern) map[models.WorkflowType][]Pattern {
	candidates := make(map[models.WorkflowType][]Pattern)
	for _, p := range patterns {
		candidates[p.WorkflowType] = append(candidates[p.WorkflowType], p)
	}
	for _, wt := range applySelectionRules(a, req) {
		if _, ok := candidates[wt]; !ok {
			candidates[wt] = nil
		}
	}
	return candidates
}

// applySelectionRules returns every archetype preferred by a matching rule.
func applySelectionRules(a analysis, req Request) []models.WorkflowType {
	seen := make(map[models.WorkflowType]bool)
	var out []models.WorkflowType

	for _, rule := range selectionRules {
		applies := false
		for _, c := range rule.complexities {
			if a.complexity == c {
				applies = true
				break
			}
		}
		if !applies {
			for _, kw := range rule.keywords {
				for _, have := range a.keywords {
					if kw == have {
						applies = true
						break
					}
				}
			}
		}
		if !applies && len(rule.priorities) > 0 {
			for _, p := range rule.priorities {
				if req.Priority == p || a.urgency == p {
					applies = true
					break
				}
			}
		}
		if !applies && rule.deadlineWithin > 0 && !req.Deadline.IsZero() {
			if time.Until(req.Deadline) <= rule.deadlineWithin {
				applies = true
			}
		}
		if !applies {
			continue
		}
		for _, wt := range rule.preferred {
			if !seen[wt] {
				seen[wt] = true
				out = append(out, wt)
			}
		}
	}
	return out
}

// predict computes an outcome prediction per candidate archetype. Only
// archetypes with at least one supporting pattern are predicted; a fully
// pattern-less candidate set resolves to the simple-linear default in
// selectOptimal.
func (s *Selector) predict(candidates map[models.WorkflowType][]Pattern, a analysis) map[models.WorkflowType]prediction {
	now := s.now()
	predictions := make(map[models.WorkflowType]prediction, len(candidates))
	for wt, patterns := range candidates {
		if len(patterns) == 0 {
			continue
		}
		predictions[wt] = predictOutcome(wt, patterns, a, now)
	}
	return predictions
}

// selectOptimal scores predictions under the strategy's weights, multiplies
// by prediction confidence, and picks the highest. Ties resolve to the
// lexicographically smallest archetype name.
func selectOptimal(predictions map[models.WorkflowType]prediction, strategy models.RoutingStrategy) (models.WorkflowType, prediction) {
	if len(predictions) == 0 {
		return models.WorkflowSimpleLinear, prediction{
			successRate:     0.7,
			durationMinutes: 30,
			quality:         0.7,
			confidence:      0.3,
			riskFactors:     []string{"No historical patterns available"},
		}
	}

	weights, ok := strategyWeights[strategy]
	if !ok {
		weights = strategyWeights[models.RouteBalanced]
	}

	var best models.WorkflowType
	bestScore := math.Inf(-1)
	for _, wt := range models.WorkflowTypes {
		pred, ok := predictions[wt]
		if !ok {
			continue
		}
		timeScore := 1.0 - math.Min(pred.durationMinutes/180.0, 1.0)
		riskScore := 1.0 - float64(len(pred.riskFactors))/10.0
		score := weights.successRate*pred.successRate +
			weights.executionTime*timeScore +
			weights.quality*pred.quality +
			weights.resourceEfficiency*riskScore +
			weights.patternLearning*(float64(pred.patternCount)/10.0)
		score *= pred.confidence

		if score > bestScore || (score == bestScore && string(wt) < string(best)) {
			best = wt
			bestScore = score
		}
	}
	return best, predictions[best]
}

// buildRecommendation assembles the full recommendation with reasoning,
// fallbacks, resources, and optimization hints.
func (s *Selector) buildRecommendation(
	chosen models.WorkflowType,
	pred prediction,
	predictions map[models.WorkflowType]prediction,
	candidates map[models.WorkflowType][]Pattern,
	strategy models.RoutingStrategy,
	a analysis,
) models.WorkflowRecommendation {
	reasoning := []string{
		fmt.Sprintf("Selected %s workflow", chosen),
		fmt.Sprintf("Based on %d historical patterns", pred.patternCount),
		fmt.Sprintf("Predicted success rate: %.0f%%", pred.successRate*100),
		fmt.Sprintf("Strategy: %s", strategy),
	}
	if a.urgency == "critical" || a.urgency == "high" {
		reasoning = append(reasoning, "Optimized for urgency")
	}

	var fallbacks []models.WorkflowType
	for wt := range predictions {
		if wt != chosen {
			fallbacks = append(fallbacks, wt)
		}
	}
	sort.Slice(fallbacks, func(i, j int) bool {
		si, sj := predictions[fallbacks[i]].successRate, predictions[fallbacks[j]].successRate
		if si != sj {
			return si > sj
		}
		return string(fallbacks[i]) < string(fallbacks[j])
	})
	if len(fallbacks) > 2 {
		fallbacks = fallbacks[:2]
	}

	matched := candidates[chosen]
	supporting := make([]string, 0, 3)
	for i, p := range matched {
		if i == 3 {
			break
		}
		supporting = append(supporting, p.ID)
	}

	return models.WorkflowRecommendation{
		WorkflowType:              chosen,
		Confidence:                pred.confidence,
		Reasoning:                 strings.Join(reasoning, " | "),
		PredictedSuccessRate:      pred.successRate,
		EstimatedDuration:         pred.durationMinutes,
		ResourceRequirements:      estimateResources(chosen, a, pred),
		RoutingStrategy:           strategy,
		SupportingPatterns:        supporting,
		FallbackOptions:           fallbacks,
		RiskFactors:               pred.riskFactors,
		OptimizationOpportunities: optimizationOpportunities(chosen, a, matched),
	}
}

// FallbackRecommendation is the recommendation used when selection fails:
// urgent work fast-tracks, research work routes to discovery, everything
// else goes simple linear.
func FallbackRecommendation(req Request) models.WorkflowRecommendation {
	workflowType := models.WorkflowSimpleLinear
	duration := 30.0
	switch {
	case req.Priority == "critical" || req.Priority == "high":
		workflowType = models.WorkflowEmergencyFastTrack
		duration = 20
	case strings.Contains(strings.ToLower(req.Description), "research"):
		workflowType = models.WorkflowResearchDiscovery
		duration = 45
	}

	return models.WorkflowRecommendation{
		WorkflowType:         workflowType,
		Confidence:           0.3,
		Reasoning:            "Fallback selection due to analysis failure",
		PredictedSuccessRate: 0.6,
		EstimatedDuration:    duration,
		ResourceRequirements: map[string]any{"agents": 1, "cpu": "medium", "memory": "low"},
		RoutingStrategy:      models.RouteBalanced,
		RiskFactors:          []string{"Limited analysis available"},
		OptimizationOpportunities: []string{
			"Improve task description for better analysis",
		},
	}
}

// persistSelection stores the selection back to the pattern store for
// future learning, best-effort.
func (s *Selector) persistSelection(ctx context.Context, req Request, rec models.WorkflowRecommendation) {
	if s.patterns == nil {
		return
	}
	res := s.patterns.Persist(ctx, models.PatternRecord{
		Category: models.CategoryPattern,
		Type:     "workflow_selection",
		Content:  fmt.Sprintf("Workflow selection: %s for %s", rec.WorkflowType, truncate(req.Description, 100)),
		Project:  req.Project,
		Tags:     append(append([]string(nil), patternTags...), string(rec.WorkflowType), string(rec.RoutingStrategy)),
		Metadata: map[string]any{
			"workflow_type":          string(rec.WorkflowType),
			"confidence":             rec.Confidence,
			"routing_strategy":       string(rec.RoutingStrategy),
			"predicted_success_rate": rec.PredictedSuccessRate,
			"estimated_duration":     rec.EstimatedDuration,
		},
	})
	if !res.Success {
		s.debugLog("[workflow] persist selection failed: %s", res.Error)
	}
}

// recordSelection folds the recommendation into running statistics.
func (s *Selector) recordSelection(rec models.WorkflowRecommendation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalSelections++
	s.avgConfidence += (rec.Confidence - s.avgConfidence) / float64(s.totalSelections)
	if len(rec.SupportingPatterns) > 0 {
		s.patternHits++
	}
}

// Stats returns a snapshot of selection activity.
func (s *Selector) Stats() SelectionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := SelectionStats{
		TotalSelections:   s.totalSelections,
		AverageConfidence: s.avgConfidence,
	}
	if s.totalSelections > 0 {
		stats.PatternHitRate = float64(s.patternHits) / float64(s.totalSelections)
	}
	return stats
}

// truncate cuts a string to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
