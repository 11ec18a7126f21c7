package models

// Complexity classifies a task into one of five ordered tiers.
type Complexity string

const (
	// ComplexityTrivial covers one-line fixes and text changes.
	ComplexityTrivial Complexity = "trivial"
	// ComplexitySimple covers small, well-understood changes.
	ComplexitySimple Complexity = "simple"
	// ComplexityMedium covers multi-part features.
	ComplexityMedium Complexity = "medium"
	// ComplexityComplex covers cross-cutting system work.
	ComplexityComplex Complexity = "complex"
	// ComplexityEpic covers platform-scale initiatives.
	ComplexityEpic Complexity = "epic"
)

// Complexities lists the tiers from smallest to largest.
var Complexities = []Complexity{
	ComplexityTrivial,
	ComplexitySimple,
	ComplexityMedium,
	ComplexityComplex,
	ComplexityEpic,
}

// Valid returns true if the complexity is a known tier.
func (c Complexity) Valid() bool {
	return c.Ordinal() >= 0
}

// Ordinal returns the tier's position from trivial (0) to epic (4),
// or -1 for an unknown value.
func (c Complexity) Ordinal() int {
	for i, t := range Complexities {
		if c == t {
			return i
		}
	}
	return -1
}

// AtMost reports whether c is no larger than other. Unknown values compare false.
func (c Complexity) AtMost(other Complexity) bool {
	a, b := c.Ordinal(), other.Ordinal()
	return a >= 0 && b >= 0 && a <= b
}

// Strategy shapes how a decomposition's subtasks relate to each other.
type Strategy string

const (
	// StrategyLinear chains subtasks one after another.
	StrategyLinear Strategy = "linear"
	// StrategyParallel runs independent subtasks concurrently.
	StrategyParallel Strategy = "parallel"
	// StrategyHierarchical nests subtasks under coordinating phases.
	StrategyHierarchical Strategy = "hierarchical"
	// StrategyIterative groups subtasks into repeated sprints.
	StrategyIterative Strategy = "iterative"
	// StrategyExploratory front-loads research before committing.
	StrategyExploratory Strategy = "exploratory"
)

// Strategies lists the strategies in scoring order; ties in strategy
// selection resolve to the first highest scorer in this order.
var Strategies = []Strategy{
	StrategyLinear,
	StrategyParallel,
	StrategyHierarchical,
	StrategyIterative,
	StrategyExploratory,
}

// Valid returns true if the strategy is a known value.
func (s Strategy) Valid() bool {
	for _, t := range Strategies {
		if s == t {
			return true
		}
	}
	return false
}
