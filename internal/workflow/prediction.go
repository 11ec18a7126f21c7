package workflow

import (
	"fmt"
	"math"
	"time"

	"github.com/squadronhq/squadron/pkg/models"
)

// parsePattern decodes a stored pattern record's pattern_data metadata into
// a Pattern. Records without pattern_data are skipped.
func parsePattern(rec models.PatternRecord) (Pattern, bool) {
	data, ok := rec.Metadata["pattern_data"].(map[string]any)
	if !ok || len(data) == 0 {
		return Pattern{}, false
	}

	p := Pattern{
		ID:                  rec.ID,
		WorkflowType:        models.WorkflowType(fieldString(data, "workflow_type", string(models.WorkflowSimpleLinear))),
		Keywords:            fieldStrings(data, "keywords"),
		MinComplexity:       models.Complexity(fieldString(data, "min_complexity", "simple")),
		MaxComplexity:       models.Complexity(fieldString(data, "max_complexity", "medium")),
		SuccessRate:         fieldFloat(data, "success_rate", 0.5),
		AvgExecutionMinutes: fieldFloat(data, "avg_execution_time", 30),
		QualityScore:        fieldFloat(data, "quality_score", 0.7),
		RecentUsageCount:    int(fieldFloat(data, "recent_usage_count", 0)),
		FailureReasons:      fieldStrings(data, "failure_reasons"),
		SuccessFactors:      fieldStrings(data, "success_factors"),
	}
	if !p.WorkflowType.Valid() {
		return Pattern{}, false
	}

	p.LastUsed = time.Now()
	if raw := fieldString(data, "last_used", ""); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			p.LastUsed = t
		}
	}
	return p, true
}

// isRelevant filters patterns: the task complexity must fall inside the
// pattern's range, keyword overlap must reach 20% when both sides have
// keywords, and the pattern's success rate must be at least 0.3.
func isRelevant(p Pattern, a analysis) bool {
	if a.complexity.Valid() && p.MinComplexity.Valid() && p.MaxComplexity.Valid() {
		idx := a.complexity.Ordinal()
		if idx < p.MinComplexity.Ordinal() || idx > p.MaxComplexity.Ordinal() {
			return false
		}
	}

	if len(a.keywords) > 0 && len(p.Keywords) > 0 {
		if jaccard(a.keywords, p.Keywords) < 0.2 {
			return false
		}
	}

	return p.SuccessRate >= 0.3
}

func jaccard(a, b []string) float64 {
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	union := len(set)
	intersection := 0
	for _, s := range b {
		if set[s] {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// patternWeight favors recently used, successful, frequently exercised
// patterns: 30-day exponential decay x 0.4, success rate x 0.4, usage
// frequency (capped at 10 uses) x 0.2.
func patternWeight(p Pattern, now time.Time) float64 {
	days := now.Sub(p.LastUsed).Hours() / 24
	if days < 0 {
		days = 0
	}
	timeWeight := math.Exp(-days / 30.0)
	usageWeight := math.Min(float64(p.RecentUsageCount)/10.0, 1.0)
	return timeWeight*0.4 + p.SuccessRate*0.4 + usageWeight*0.2
}

// predictOutcome aggregates a workflow type's patterns into a weighted
// outcome prediction, then adjusts for complexity, urgency, and the
// archetype's own bias.
func predictOutcome(workflowType models.WorkflowType, patterns []Pattern, a analysis, now time.Time) prediction {
	successRate, duration, quality := 0.5, 30.0, 0.7

	if len(patterns) > 0 {
		var totalWeight, sSum, dSum, qSum float64
		for _, p := range patterns {
			w := patternWeight(p, now)
			totalWeight += w
			sSum += p.SuccessRate * w
			dSum += p.AvgExecutionMinutes * w
			qSum += p.QualityScore * w
		}
		if totalWeight > 0 {
			successRate = sSum / totalWeight
			duration = dSum / totalWeight
			quality = qSum / totalWeight
		}
	}

	m, ok := complexityMultipliers[a.complexity]
	if !ok {
		m = complexityMultipliers[models.ComplexityMedium]
	}
	switch a.urgency {
	case "critical":
		m.duration *= 1.2
		m.success *= 0.9
	case "low":
		m.quality *= 1.1
	}
	if adj, ok := workflowAdjustments[workflowType]; ok {
		m.duration *= adj.duration
		m.success *= adj.success
		m.quality *= adj.quality
	}

	return prediction{
		successRate:     math.Min(successRate*m.success, 1.0),
		durationMinutes: duration * m.duration,
		quality:         math.Min(quality*m.quality, 1.0),
		confidence:      predictionConfidence(patterns, now),
		patternCount:    len(patterns),
		riskFactors:     riskFactors(workflowType, a, patterns),
	}
}

// predictionConfidence blends pattern count (0.4, saturating at 5),
// recency within 30 days (0.3), and success-rate consistency (0.3).
func predictionConfidence(patterns []Pattern, now time.Time) float64 {
	if len(patterns) == 0 {
		return 0.3
	}

	countConfidence := math.Min(float64(len(patterns))/5.0, 1.0)

	recent := 0
	for _, p := range patterns {
		if now.Sub(p.LastUsed) < 30*24*time.Hour {
			recent++
		}
	}
	recencyConfidence := float64(recent) / float64(len(patterns))

	consistency := 0.7
	if len(patterns) > 1 {
		rates := make([]float64, len(patterns))
		for i, p := range patterns {
			rates[i] = p.SuccessRate
		}
		consistency = 1.0 - stdev(rates)/0.5
		if consistency < 0 {
			consistency = 0
		}
	}

	return math.Min(countConfidence*0.4+recencyConfidence*0.3+consistency*0.3, 1.0)
}

// stdev is the sample standard deviation.
func stdev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}

// riskFactors lists concerns with running this task through this archetype.
func riskFactors(workflowType models.WorkflowType, a analysis, patterns []Pattern) []string {
	var risks []string

	if a.complexity == models.ComplexityComplex || a.complexity == models.ComplexityEpic {
		risks = append(risks, "High complexity may lead to scope creep")
	}
	if a.urgency == "critical" {
		risks = append(risks, "Time pressure may compromise quality")
	}

	failureCounts := make(map[string]int)
	var failureOrder []string
	for _, p := range patterns {
		for _, reason := range p.FailureReasons {
			if failureCounts[reason] == 0 {
				failureOrder = append(failureOrder, reason)
			}
			failureCounts[reason]++
		}
	}
	for _, reason := range failureOrder {
		if failureCounts[reason] >= 2 {
			risks = append(risks, fmt.Sprintf("Historical risk: %s", reason))
		}
	}

	risks = append(risks, workflowRisks[workflowType]...)
	return risks
}

// estimateResources scales an archetype's base footprint by task complexity.
func estimateResources(workflowType models.WorkflowType, a analysis, pred prediction) map[string]any {
	profile, ok := baseResources[workflowType]
	if !ok {
		profile = baseResources[models.WorkflowSimpleLinear]
	}

	agents := profile.agents
	if scale, ok := resourceComplexityScale[a.complexity]; ok && scale != 1.0 {
		agents = int(float64(profile.agents) * scale)
		if agents < 1 {
			agents = 1
		}
	}

	return map[string]any{
		"agents":                     agents,
		"cpu":                        profile.cpu,
		"memory":                     profile.memory,
		"coordination":               profile.coordination,
		"estimated_duration_minutes": pred.durationMinutes,
		"quality_target":             pred.quality,
	}
}

// optimizationOpportunities suggests execution improvements from successful
// pattern factors and archetype-specific playbooks.
func optimizationOpportunities(workflowType models.WorkflowType, a analysis, patterns []Pattern) []string {
	var opportunities []string

	factorCounts := make(map[string]int)
	var factorOrder []string
	for _, p := range patterns {
		if p.SuccessRate <= 0.8 {
			continue
		}
		for _, factor := range p.SuccessFactors {
			if factorCounts[factor] == 0 {
				factorOrder = append(factorOrder, factor)
			}
			factorCounts[factor]++
		}
	}
	for _, factor := range factorOrder {
		if factorCounts[factor] >= 2 {
			opportunities = append(opportunities, fmt.Sprintf("Apply successful pattern: %s", factor))
		}
	}

	opportunities = append(opportunities, workflowOptimizations[workflowType]...)

	if a.researchRequired {
		opportunities = append(opportunities, "Consider research phase before implementation")
	}
	if a.urgency == "critical" {
		opportunities = append(opportunities, "Focus on MVP approach to meet deadline")
	}
	return opportunities
}

// --- metadata field helpers ---

func fieldString(data map[string]any, key, def string) string {
	if s, ok := data[key].(string); ok && s != "" {
		return s
	}
	return def
}

func fieldFloat(data map[string]any, key string, def float64) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

func fieldStrings(data map[string]any, key string) []string {
	raw, ok := data[key].([]any)
	if !ok {
		if direct, ok := data[key].([]string); ok {
			return append([]string(nil), direct...)
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
