package planner

import (
	"github.com/leengari/query-advisor/internal/domain/catalog"
	"github.com/leengari/query-advisor/internal/domain/query"
)

// Default selectivities for predicate shapes the statistics cannot
// resolve. Tunable approximations, not fixed truths.
const (
	defaultSelectivity       = 0.1
	defaultRangeSelectivity  = 1.0 / 3.0
	defaultPrefixSelectivity = 0.05
	defaultExistsSelectivity = 0.5
)

// Selectivity estimates the fraction of a table's rows satisfying the
// predicate. Conjunctions multiply branch fractions under an independence
// assumption; correlated columns are a documented estimation limitation,
// not auto-corrected. Disjunctions use inclusion-exclusion.
func Selectivity(t *catalog.Table, pred query.Predicate) float64 {
	if pred == nil {
		return 1.0
	}

	switch node := pred.(type) {
	case *query.Comparison:
		return comparisonSelectivity(t, node)
	case *query.FuncWrapped:
		// The wrapping function hides the column's distribution from the
		// statistics; fall back to the default guess.
		return defaultSelectivity
	case *query.And:
		sel := 1.0
		for _, child := range node.Preds {
			sel *= Selectivity(t, child)
		}
		return clampSelectivity(sel)
	case *query.Or:
		sel := 0.0
		for _, child := range node.Preds {
			s := Selectivity(t, child)
			sel = sel + s - sel*s
		}
		return clampSelectivity(sel)
	case *query.Exists:
		return defaultExistsSelectivity
	default:
		return defaultSelectivity
	}
}

func comparisonSelectivity(t *catalog.Table, c *query.Comparison) float64 {
	if c.RowDependent {
		return defaultSelectivity
	}

	col, ok := t.Column(c.Column)
	if !ok {
		return defaultSelectivity
	}

	notNull := 1.0 - col.NullFrac

	switch c.Operator {
	case query.OpEq:
		return clampSelectivity(equalitySelectivity(col, c.Value) * notNull)
	case query.OpNe:
		return clampSelectivity((1.0 - equalitySelectivity(col, c.Value)) * notNull)
	case query.OpIn:
		sel := 0.0
		for _, v := range c.Values {
			sel += equalitySelectivity(col, v)
		}
		return clampSelectivity(sel * notNull)
	case query.OpLt, query.OpLe, query.OpGt, query.OpGe:
		return clampSelectivity(defaultRangeSelectivity * notNull)
	case query.OpLike:
		if pattern, ok := c.Value.(string); ok && !hasLeadingWildcard(pattern) {
			return clampSelectivity(defaultPrefixSelectivity * notNull)
		}
		return clampSelectivity(defaultSelectivity * notNull)
	default:
		return defaultSelectivity
	}
}

func equalitySelectivity(col *catalog.Column, value interface{}) float64 {
	if freq, ok := col.MCVFrequency(value); ok {
		return freq
	}
	if col.DistinctCount > 0 {
		return 1.0 / float64(col.DistinctCount)
	}
	return defaultSelectivity
}

func hasLeadingWildcard(pattern string) bool {
	return len(pattern) > 0 && (pattern[0] == '%' || pattern[0] == '_')
}

func clampSelectivity(sel float64) float64 {
	if sel < 0.0001 {
		return 0.0001
	}
	if sel > 1.0 {
		return 1.0
	}
	return sel
}
