package workflow

import (
	"context"
	"strings"
	"time"
)

// analyzeTask derives keywords, urgency, risk, and complexity from a request.
// When the request does not carry a complexity, the planner's decomposition
// supplies it along with a duration estimate.
func (s *Selector) analyzeTask(ctx context.Context, req Request) analysis {
	a := analysis{
		complexity:    req.Complexity,
		collaboration: "medium",
		riskLevel:     "medium",
	}

	if !a.complexity.Valid() && s.planner != nil {
		dec := s.planner.Decompose(ctx, req.Description, req.Project, nil)
		a.complexity = dec.Complexity
		a.estimatedMinutes = dec.TotalEstimatedHours * 60
	}

	lower := strings.ToLower(req.Description)
	a.keywords = extractKeywords(lower)

	for _, indicator := range []string{"research", "investigate", "analyze", "explore", "poc", "feasibility"} {
		if strings.Contains(lower, indicator) {
			a.researchRequired = true
			break
		}
	}

	switch {
	case containsAny(lower, "team", "collaborate", "review", "discuss", "meeting"):
		a.collaboration = "high"
	case containsAny(lower, "solo", "individual"):
		a.collaboration = "low"
	}

	switch {
	case containsAny(lower, "critical", "production", "security", "migration", "major"):
		a.riskLevel = "high"
	case containsAny(lower, "simple", "minor", "small"):
		a.riskLevel = "low"
	}

	a.criticalPath = containsAny(lower, "depends on", "requires", "after", "before", "prerequisite")
	a.urgency = assessUrgency(req)
	return a
}

// extractKeywords maps the description onto workflow-relevant categories.
func extractKeywords(lowerDescription string) []string {
	var keywords []string
	for _, kc := range keywordCategories {
		for _, word := range kc.words {
			if strings.Contains(lowerDescription, word) {
				keywords = append(keywords, kc.category)
				break
			}
		}
	}
	return keywords
}

// assessUrgency classifies by remaining deadline, falling back to the
// request's priority level: under 4h is critical, under 24h high, under
// 72h medium.
func assessUrgency(req Request) string {
	if !req.Deadline.IsZero() {
		remaining := time.Until(req.Deadline)
		switch {
		case remaining < 4*time.Hour:
			return "critical"
		case remaining < 24*time.Hour:
			return "high"
		case remaining < 72*time.Hour:
			return "medium"
		default:
			return "low"
		}
	}
	switch req.Priority {
	case "critical", "high", "low":
		return req.Priority
	default:
		return "medium"
	}
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
