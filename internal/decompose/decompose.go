package decompose

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/squadronhq/squadron/internal/memory"
	"github.com/squadronhq/squadron/internal/pattern"
	"github.com/squadronhq/squadron/pkg/models"
)

// patternTag marks decomposition records in the pattern store.
const patternTag = "task_decomposition"

// Patterns is the slice of the pattern store the decomposer depends on.
type Patterns interface {
	FindSimilar(ctx context.Context, category models.MemoryCategory, queryText string, tags []string, limit int) []pattern.Scored
	Persist(ctx context.Context, p models.PatternRecord) memory.Result
}

// Decomposer classifies task complexity and produces ordered subtask lists.
type Decomposer struct {
	patterns Patterns
	debugLog func(format string, args ...interface{})
}

// New creates a Decomposer backed by the given pattern store.
func New(patterns Patterns) *Decomposer {
	return &Decomposer{
		patterns: patterns,
		debugLog: func(format string, args ...interface{}) {},
	}
}

// SetDebugLog sets the debug logging function.
func (d *Decomposer) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		d.debugLog = fn
	}
}

// Decompose runs the full pipeline: similar-task lookup, complexity
// classification, strategy selection, subtask generation, and confidence
// scoring. It never returns an error: any internal failure yields the
// fixed three-subtask fallback with confidence 0.3.
func (d *Decomposer) Decompose(ctx context.Context, description, project string, meta *Metadata) (result Decomposition) {
	defer func() {
		if r := recover(); r != nil {
			d.debugLog("[decompose] pipeline panicked: %v, using fallback", r)
			result = Fallback(description, project)
		}
	}()

	id := "decomp_" + uuid.New().String()
	d.debugLog("[decompose] %s: %.80s", id, description)

	var similar []pattern.Scored
	if d.patterns != nil {
		similar = d.patterns.FindSimilar(ctx, models.CategoryPattern, description, []string{patternTag}, 5)
	}

	complexity := classifyComplexity(description, similar, meta)
	strategy := selectStrategy(description, complexity, similar)
	subtasks := d.generateSubtasks(description, complexity, similar, meta)
	subtasks = applyStrategyAdjustments(subtasks, strategy)

	totalHours, confidence := decompositionMetrics(subtasks, similar, complexity)

	result = Decomposition{
		ID:                  id,
		OriginalTask:        description,
		Project:             project,
		Complexity:          complexity,
		Strategy:            strategy,
		Subtasks:            subtasks,
		TotalEstimatedHours: totalHours,
		Confidence:          confidence,
		AdaptationNotes:     adaptationNotes(similar, strategy),
		CreatedAt:           time.Now(),
	}
	for _, s := range similar {
		result.SimilarDecompositions = append(result.SimilarDecompositions, s.Record.ID)
	}

	d.persist(ctx, result)
	return result
}

// Fallback is the fixed three-subtask linear decomposition used when the
// pipeline fails.
func Fallback(description, project string) Decomposition {
	subtasks := []Subtask{
		{
			ID:             "subtask_01",
			Title:          "Plan and analyze",
			Description:    fmt.Sprintf("Plan and analyze requirements for: %s", description),
			Complexity:     models.ComplexitySimple,
			EstimatedHours: 2,
			Priority:       9,
			RiskLevel:      "low",
			SuggestedAgent: models.AgentEngineer,
		},
		{
			ID:             "subtask_02",
			Title:          "Implement solution",
			Description:    fmt.Sprintf("Implement the solution: %s", description),
			Complexity:     models.ComplexityMedium,
			EstimatedHours: 6,
			Dependencies:   []string{"subtask_01"},
			Priority:       8,
			RiskLevel:      "medium",
			SuggestedAgent: models.AgentEngineer,
		},
		{
			ID:             "subtask_03",
			Title:          "Test and verify",
			Description:    "Test the implementation and verify it meets requirements",
			Complexity:     models.ComplexitySimple,
			EstimatedHours: 2,
			Dependencies:   []string{"subtask_02"},
			Priority:       7,
			RiskLevel:      "low",
			SuggestedAgent: models.AgentQA,
		},
	}
	return Decomposition{
		ID:                  "decomp_" + uuid.New().String(),
		OriginalTask:        description,
		Project:             project,
		Complexity:          models.ComplexityMedium,
		Strategy:            models.StrategyLinear,
		Subtasks:            subtasks,
		TotalEstimatedHours: 10,
		Confidence:          0.3,
		AdaptationNotes:     "Fallback decomposition due to processing error",
		CreatedAt:           time.Now(),
		Fallback:            true,
	}
}

// classifyComplexity scores each tier by keyword matches (+0.2 each), the
// caller's hour ceiling (+0.3 when under the tier's maximum), and the most
// common complexity among similar tasks (+0.3). Ties resolve to the
// smallest tier.
func classifyComplexity(description string, similar []pattern.Scored, meta *Metadata) models.Complexity {
	lower := strings.ToLower(description)
	scores := make(map[models.Complexity]float64, len(complexityIndicators))

	for tier, indicator := range complexityIndicators {
		score := 0.0
		for _, kw := range indicator.keywords {
			if strings.Contains(lower, kw) {
				score += 0.2
			}
		}
		if meta != nil && meta.EstimatedHours > 0 && meta.EstimatedHours <= indicator.maxEstimatedHours {
			score += 0.3
		}
		scores[tier] = score
	}

	if common, ok := mostCommonComplexity(similar); ok {
		scores[common] += 0.3
	}

	best := models.Complexities[0]
	for _, tier := range models.Complexities[1:] {
		if scores[tier] > scores[best] {
			best = tier
		}
	}
	return best
}

// mostCommonComplexity finds the complexity tier most frequent among
// similar tasks' recorded outcomes.
func mostCommonComplexity(similar []pattern.Scored) (models.Complexity, bool) {
	counts := make(map[models.Complexity]int)
	for _, s := range similar {
		c := models.Complexity(s.Record.MetaString("complexity"))
		if c.Valid() {
			counts[c]++
		}
	}
	if len(counts) == 0 {
		return "", false
	}
	best := models.Complexity("")
	for _, tier := range models.Complexities {
		if counts[tier] > 0 && (best == "" || counts[tier] > counts[best]) {
			best = tier
		}
	}
	return best, true
}

// selectStrategy scores each strategy by keyword affinity (+0.3 each),
// complexity preference (+0.4), and historical success boost (outcome
// weight x 0.2). Ties resolve to the first highest scorer in enumeration
// order.
func selectStrategy(description string, complexity models.Complexity, similar []pattern.Scored) models.Strategy {
	lower := strings.ToLower(description)
	scores := make(map[models.Strategy]float64, len(strategyPatterns))

	for strategy, sp := range strategyPatterns {
		score := 0.0
		for _, kw := range sp.bestFor {
			if strings.Contains(lower, kw) {
				score += 0.3
			}
		}
		for _, pref := range sp.complexityPreference {
			if complexity == pref {
				score += 0.4
				break
			}
		}
		scores[strategy] = score
	}

	for _, s := range similar {
		strategy := models.Strategy(s.Record.MetaString("strategy"))
		if !strategy.Valid() {
			continue
		}
		switch s.Record.MetaString("outcome") {
		case "success":
			scores[strategy] += 1.0 * 0.2
		case "partial":
			scores[strategy] += 0.5 * 0.2
		}
	}

	best := models.Strategies[0]
	for _, strategy := range models.Strategies[1:] {
		if scores[strategy] > scores[best] {
			best = strategy
		}
	}
	if scores[best] == 0 {
		switch complexity {
		case models.ComplexityTrivial, models.ComplexitySimple:
			return models.StrategyLinear
		case models.ComplexityEpic:
			return models.StrategyHierarchical
		default:
			return models.StrategyParallel
		}
	}
	return best
}

// generateSubtasks adapts the most similar successful decomposition when
// one exists, falling back to the per-tier base template.
func (d *Decomposer) generateSubtasks(description string, complexity models.Complexity, similar []pattern.Scored, meta *Metadata) []Subtask {
	if len(similar) > 0 {
		if adapted := adaptFromHistory(description, similar); len(adapted) > 0 {
			return adapted
		}
	}
	return generateFromTemplate(description, complexity, meta)
}

// adaptFromHistory rebuilds the subtask list of the best similar successful
// task, substituting the current task's leading keyword into titles and
// carrying the similarity score forward as pattern confidence.
func adaptFromHistory(description string, similar []pattern.Scored) []Subtask {
	best := similar[0]
	for _, s := range similar {
		if s.Record.MetaString("outcome") == "success" {
			best = s
			break
		}
	}

	rawSubtasks, ok := best.Record.Metadata["subtasks"].([]any)
	if !ok || len(rawSubtasks) == 0 {
		return nil
	}

	histFirst := firstWord(best.Record.Content)
	currFirst := firstWord(description)
	successRate := 0.5
	if best.Record.MetaString("outcome") == "success" {
		successRate = 1.0
	}

	subtasks := make([]Subtask, 0, len(rawSubtasks))
	for i, raw := range rawSubtasks {
		fields, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		title, _ := fields["title"].(string)
		if title == "" {
			title = fmt.Sprintf("Subtask %d", i+1)
		}
		if histFirst != "" && currFirst != "" {
			title = strings.ReplaceAll(title, histFirst, currFirst)
		}
		desc, _ := fields["description"].(string)

		hours := metaFloat(fields, "estimated_hours", 4)
		complexity := models.Complexity(metaString(fields, "complexity"))
		if !complexity.Valid() {
			complexity = models.ComplexityMedium
		}

		st := Subtask{
			ID:                    fmt.Sprintf("subtask_%02d", i+1),
			Title:                 title,
			Description:           desc,
			Complexity:            complexity,
			EstimatedHours:        hours,
			Dependencies:          metaStrings(fields, "dependencies"),
			SkillsRequired:        metaStrings(fields, "skills_required"),
			SuccessCriteria:       metaStrings(fields, "success_criteria"),
			RiskLevel:             metaStringDefault(fields, "risk_level", "low"),
			Priority:              int(metaFloat(fields, "priority", 5)),
			PatternConfidence:     best.Similarity,
			HistoricalSuccessRate: successRate,
			SimilarTasks:          []string{best.Record.ID},
		}
		st.SuggestedAgent = AssignAgent(st.Title, st.Description, st.SkillsRequired)
		subtasks = append(subtasks, st)
	}
	return subtasks
}

// generateFromTemplate synthesizes subtasks from the fixed per-tier template.
func generateFromTemplate(description string, complexity models.Complexity, meta *Metadata) []Subtask {
	tpl, ok := baseTemplates[complexity]
	if !ok {
		tpl = baseTemplates[models.ComplexityMedium]
	}

	subtasks := make([]Subtask, 0, len(tpl.titles))
	for i, title := range tpl.titles {
		hours := tpl.hours[i]
		st := Subtask{
			ID:                    fmt.Sprintf("subtask_%02d", i+1),
			Title:                 customizeTitle(title, description),
			Description:           subtaskDescription(title, description),
			Complexity:            complexityForHours(hours),
			EstimatedHours:        hours,
			SkillsRequired:        inferSkills(title, meta),
			SuccessCriteria:       successCriteria(title),
			RiskLevel:             riskLevel(title),
			Priority:              subtaskPriority(i, len(tpl.titles)),
			PatternConfidence:     0.5,
			HistoricalSuccessRate: 0.75,
		}
		st.SuggestedAgent = AssignAgent(st.Title, st.Description, st.SkillsRequired)
		subtasks = append(subtasks, st)
	}
	return subtasks
}

// applyStrategyAdjustments reshapes dependencies and titles per strategy:
// linear chains each subtask to its predecessor, parallel strips all but
// critical dependencies, iterative groups three subtasks per sprint.
func applyStrategyAdjustments(subtasks []Subtask, strategy models.Strategy) []Subtask {
	switch strategy {
	case models.StrategyParallel:
		for i := range subtasks {
			var kept []string
			for _, dep := range subtasks[i].Dependencies {
				if strings.Contains(strings.ToLower(dep), "critical") {
					kept = append(kept, dep)
				}
			}
			subtasks[i].Dependencies = kept
		}
	case models.StrategyLinear:
		for i := 1; i < len(subtasks); i++ {
			prev := subtasks[i-1].ID
			found := false
			for _, dep := range subtasks[i].Dependencies {
				if dep == prev {
					found = true
					break
				}
			}
			if !found {
				subtasks[i].Dependencies = append(subtasks[i].Dependencies, prev)
			}
		}
	case models.StrategyIterative:
		for i := range subtasks {
			sprint := (i / 3) + 1
			subtasks[i].Title = fmt.Sprintf("Sprint %d: %s", sprint, subtasks[i].Title)
		}
	}
	return subtasks
}

// decompositionMetrics sums hours and computes aggregate confidence as the
// unweighted mean of average subtask pattern confidence, best historical
// similarity, and the per-tier confidence constant.
func decompositionMetrics(subtasks []Subtask, similar []pattern.Scored, complexity models.Complexity) (totalHours, confidence float64) {
	var factors []float64

	if len(subtasks) > 0 {
		sum := 0.0
		for _, st := range subtasks {
			totalHours += st.EstimatedHours
			sum += st.PatternConfidence
		}
		factors = append(factors, sum/float64(len(subtasks)))
	}
	if len(similar) > 0 {
		factors = append(factors, similar[0].Similarity)
	}
	if c, ok := complexityConfidence[complexity]; ok {
		factors = append(factors, c)
	} else {
		factors = append(factors, 0.5)
	}

	confidence = 0.5
	if len(factors) > 0 {
		sum := 0.0
		for _, f := range factors {
			sum += f
		}
		confidence = sum / float64(len(factors))
	}
	return totalHours, confidence
}

// AssignAgent suggests an agent type for a subtask via keyword lookup over
// its title, description, and skills. Engineer is the default.
func AssignAgent(title, description string, skills []string) models.AgentType {
	haystack := strings.ToLower(title + " " + description + " " + strings.Join(skills, " "))
	for _, entry := range agentAssignments {
		for _, kw := range entry.keywords {
			if strings.Contains(haystack, kw) {
				return entry.agent
			}
		}
	}
	return models.AgentEngineer
}

// persist writes the decomposition back to the pattern store, best-effort.
func (d *Decomposer) persist(ctx context.Context, dec Decomposition) {
	if d.patterns == nil {
		return
	}

	subtaskMeta := make([]any, 0, len(dec.Subtasks))
	for _, st := range dec.Subtasks {
		subtaskMeta = append(subtaskMeta, map[string]any{
			"title":           st.Title,
			"description":     st.Description,
			"complexity":      string(st.Complexity),
			"estimated_hours": st.EstimatedHours,
			"dependencies":    st.Dependencies,
			"skills_required": st.SkillsRequired,
			"risk_level":      st.RiskLevel,
			"priority":        st.Priority,
		})
	}

	res := d.patterns.Persist(ctx, models.PatternRecord{
		Category: models.CategoryPattern,
		Type:     patternTag,
		Content:  fmt.Sprintf("Task decomposition: %s", dec.OriginalTask),
		Project:  dec.Project,
		Tags:     []string{"decomposition", string(dec.Complexity), string(dec.Strategy)},
		Metadata: map[string]any{
			"complexity":            string(dec.Complexity),
			"strategy":              string(dec.Strategy),
			"subtask_count":         len(dec.Subtasks),
			"total_estimated_hours": dec.TotalEstimatedHours,
			"confidence":            dec.Confidence,
			"subtasks":              subtaskMeta,
		},
	})
	if !res.Success {
		d.debugLog("[decompose] persist failed: %s", res.Error)
	}
}

// adaptationNotes summarizes how history influenced the decomposition.
func adaptationNotes(similar []pattern.Scored, strategy models.Strategy) string {
	var notes []string
	if len(similar) > 0 {
		best := similar[0]
		notes = append(notes, fmt.Sprintf("Adapted from similar task (similarity: %.2f)", best.Similarity))
		switch best.Record.MetaString("outcome") {
		case "success":
			notes = append(notes, "Used successful historical pattern")
		case "partial":
			notes = append(notes, "Adapted from partially successful pattern")
		}
	} else {
		notes = append(notes, "Generated from base template (no similar history)")
	}
	notes = append(notes, fmt.Sprintf("Applied %s strategy adjustments", strategy))
	return strings.Join(notes, "; ")
}

// --- template helpers ---

func customizeTitle(base, description string) string {
	keywords := pattern.Tokenize(description)
	if strings.Contains(strings.ToLower(description), "implement") &&
		strings.Contains(strings.ToLower(base), "implementation") && len(keywords) > 0 {
		return fmt.Sprintf("%s - %s", base, keywords[0])
	}
	return base
}

func subtaskDescription(title, description string) string {
	descriptions := map[string]string{
		"plan and design":       fmt.Sprintf("Plan the approach and design solution for: %s", description),
		"requirements analysis": fmt.Sprintf("Analyze requirements and constraints for: %s", description),
		"core implementation":   fmt.Sprintf("Implement the main functionality: %s", description),
		"testing":               "Test the implementation to ensure it meets requirements",
		"documentation":         "Document the solution and usage instructions",
	}
	lower := strings.ToLower(title)
	for key, desc := range descriptions {
		if strings.Contains(lower, key) {
			return desc
		}
	}
	return fmt.Sprintf("Complete subtask: %s", title)
}

func complexityForHours(hours float64) models.Complexity {
	switch {
	case hours <= 1:
		return models.ComplexityTrivial
	case hours <= 4:
		return models.ComplexitySimple
	case hours <= 12:
		return models.ComplexityMedium
	case hours <= 32:
		return models.ComplexityComplex
	default:
		return models.ComplexityEpic
	}
}

func inferSkills(title string, meta *Metadata) []string {
	var skills []string
	lower := strings.ToLower(title)

	if strings.Contains(lower, "design") || strings.Contains(lower, "architecture") {
		skills = append(skills, "system_design", "architecture")
	}
	if strings.Contains(lower, "implement") || strings.Contains(lower, "development") {
		skills = append(skills, "programming", "development")
	}
	if strings.Contains(lower, "test") {
		skills = append(skills, "testing", "qa")
	}
	if strings.Contains(lower, "document") {
		skills = append(skills, "documentation", "technical_writing")
	}
	if meta != nil {
		skills = append(skills, meta.RequiredSkills...)
	}
	return dedupe(skills)
}

func successCriteria(title string) []string {
	var criteria []string
	lower := strings.ToLower(title)

	if strings.Contains(lower, "implement") {
		criteria = append(criteria, "Feature works as specified", "Code follows team standards")
	}
	if strings.Contains(lower, "test") {
		criteria = append(criteria, "All tests pass", "Coverage meets requirements")
	}
	if strings.Contains(lower, "design") {
		criteria = append(criteria, "Design reviewed and approved", "Design meets requirements")
	}
	if strings.Contains(lower, "document") {
		criteria = append(criteria, "Documentation is complete and clear")
	}
	return criteria
}

func riskLevel(title string) string {
	lower := strings.ToLower(title)
	for _, indicator := range []string{"integration", "migration", "architecture", "complex"} {
		if strings.Contains(lower, indicator) {
			return "high"
		}
	}
	for _, indicator := range []string{"implement", "development", "design"} {
		if strings.Contains(lower, indicator) {
			return "medium"
		}
	}
	return "low"
}

// subtaskPriority descends with position: earlier subtasks run sooner.
func subtaskPriority(index, total int) int {
	p := 10 - int(float64(index)/float64(total)*5)
	if p < 1 {
		p = 1
	}
	if p > 10 {
		p = 10
	}
	return p
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// --- metadata field helpers ---

func metaFloat(fields map[string]any, key string, def float64) float64 {
	switch v := fields[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

func metaString(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

func metaStringDefault(fields map[string]any, key, def string) string {
	if s := metaString(fields, key); s != "" {
		return s
	}
	return def
}

func metaStrings(fields map[string]any, key string) []string {
	raw, ok := fields[key].([]any)
	if !ok {
		if direct, ok := fields[key].([]string); ok {
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
