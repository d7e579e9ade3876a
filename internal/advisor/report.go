package advisor

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/leengari/query-advisor/internal/domain/query"
	"github.com/leengari/query-advisor/internal/plan"
	"github.com/leengari/query-advisor/internal/planner"
	"github.com/leengari/query-advisor/internal/planner/sargable"
	"github.com/leengari/query-advisor/internal/stats"
)

// Report is the outcome of one analysis: the winning plan plus the
// ordered advisory findings derived from it.
type Report struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	PlanText  string    `json:"plan"`
	Cost      float64   `json:"estimated_cost"`
	Rows      float64   `json:"estimated_rows"`
	Findings  []Finding `json:"findings"`
	Truncated bool      `json:"truncated,omitempty"`

	// Root is the winning plan tree. Result retains every candidate for
	// explain mode; nil otherwise.
	Root   plan.Node       `json:"-"`
	Result *planner.Result `json:"-"`
}

// buildFindings derives the ordered findings list from the plan result
// and the classifier's rejection reasons. It reads the snapshot and plan,
// never mutates them.
func buildFindings(snap *stats.Snapshot, q *query.Query, res *planner.Result, staleAfter time.Duration, now time.Time) []Finding {
	var findings []Finding

	// Join edges without any real strategy come first; they undermine the
	// confidence of everything else in the report.
	for _, step := range res.JoinSteps {
		if step.Infeasible != nil {
			findings = append(findings, Finding{
				Kind:      FindingNoFeasibleJoinStrategy,
				Table:     step.Edge.RightTable,
				Column:    step.Edge.RightColumn,
				Rationale: step.Infeasible.Reason + "; plan uses a low-confidence nested loop rescan estimate",
				Remediation: fmt.Sprintf("add an equality join key or an index on %s.%s",
					step.Edge.RightTable, step.Edge.RightColumn),
			})
		}
	}

	for _, table := range q.Tables {
		for _, rej := range sargable.Inspect(table, q.Filter(table)) {
			findings = append(findings, nonSargableFinding(rej))
		}
	}

	for _, table := range q.Tables {
		if f, ok := missingIndexFinding(table, q.Filter(table), res.ScanCandidates[table]); ok {
			findings = append(findings, f)
		}
	}

	findings = append(findings, unindexedForeignKeys(snap, q)...)

	for _, step := range res.JoinSteps {
		if nl, ok := step.Chosen.(*plan.NestedLoopNode); ok && step.Infeasible == nil {
			if step.OuterRows > 10*step.InnerRows && step.InnerRows > 0 {
				findings = append(findings, Finding{
					Kind:  FindingSuboptimalJoinOrder,
					Table: step.Edge.LeftTable,
					Rationale: fmt.Sprintf("nested loop drives with ~%.0f outer rows against ~%.0f inner rows on %s",
						step.OuterRows, step.InnerRows, nl.JoinColumn),
					Remediation: "reorder the joins so the smaller relation drives the loop",
				})
			}
		}
	}

	_ = plan.WalkTree(res.Root, func(n plan.Node) error {
		if hj, ok := n.(*plan.HashJoinNode); ok && hj.Spill {
			findings = append(findings, Finding{
				Kind:        FindingSpillRisk,
				Column:      hj.JoinColumn,
				Rationale:   "hash build side is estimated over the memory budget and will spill to disk",
				Remediation: "raise hash_mem_budget_bytes or shrink the build side with a more selective predicate",
			})
		}
		return nil
	})

	for _, table := range q.Tables {
		t, err := snap.Table(table)
		if err != nil {
			continue
		}
		if age := now.Sub(t.AnalyzedAt); age > staleAfter {
			findings = append(findings, Finding{
				Kind:        FindingStatisticsStale,
				Table:       table,
				Rationale:   fmt.Sprintf("statistics are %s old; estimates may be unreliable", age.Round(time.Hour)),
				Remediation: "refresh statistics for this table",
			})
		}
	}

	if res.Truncated {
		findings = append(findings, Finding{
			Kind:        FindingEnumerationTruncated,
			Rationale:   "join enumeration hit its work bound; the plan is best-effort, not exhaustive",
			Remediation: "raise max_join_steps or simplify the join graph",
		})
	}

	return findings
}

func nonSargableFinding(rej sargable.Rejection) Finding {
	f := Finding{
		Kind:      FindingNonSargablePredicate,
		Table:     rej.Table,
		Column:    rej.Column,
		Rationale: fmt.Sprintf("%s is not index-seekable: %s", rej.Pred.String(), rej.Reason),
	}

	switch rej.Reason {
	case sargable.ReasonFunctionOnColumn:
		f.Remediation = fmt.Sprintf("rewrite so %s stands alone on one side of the comparison, or create an expression index on %s(%s)",
			rej.Column, strings.ToLower(rej.Function), rej.Column)
	case sargable.ReasonLeadingWildcard:
		f.Remediation = "a leading wildcard cannot bound a seek range; anchor the pattern or use trigram indexing"
	case sargable.ReasonRowDependent:
		f.Remediation = "compare against a constant or pre-computed value so the operand is independent of the row"
	default:
		f.Remediation = "rewrite the predicate into a form that can bound an index seek"
	}

	return f
}

// missingIndexFinding fires when a table has seekable predicate shapes
// but no index accepts any of them, leaving only the sequential scan.
func missingIndexFinding(table string, filter query.Predicate, candidates []plan.Node) (Finding, bool) {
	if filter == nil {
		return Finding{}, false
	}
	for _, cand := range candidates {
		if _, ok := cand.(*plan.SeqScanNode); !ok {
			return Finding{}, false
		}
	}

	eqCols, rangeCols := seekableColumns(filter)
	if len(eqCols) == 0 && len(rangeCols) == 0 {
		return Finding{}, false
	}

	// Equality columns precede range columns in the suggested key.
	keyCols := append(append([]string{}, eqCols...), rangeCols...)
	ddl := fmt.Sprintf("CREATE INDEX idx_%s_%s ON %s (%s);",
		table, strings.Join(keyCols, "_"), table, strings.Join(keyCols, ", "))

	return Finding{
		Kind:        FindingMissingIndex,
		Table:       table,
		Column:      keyCols[0],
		Rationale:   fmt.Sprintf("predicate %s is index-seekable but no index on %s can serve it", filter.String(), table),
		Remediation: ddl,
	}, true
}

// seekableColumns splits the seekable conjuncts of a predicate into
// equality-bound and range-bound column lists, preserving first-use order.
func seekableColumns(pred query.Predicate) (eq, rng []string) {
	seen := make(map[string]bool)
	var walk func(p query.Predicate)
	walk = func(p query.Predicate) {
		switch node := p.(type) {
		case *query.Comparison:
			if node.RowDependent || seen[node.Column] {
				return
			}
			switch node.Operator {
			case query.OpEq, query.OpIn:
				seen[node.Column] = true
				eq = append(eq, node.Column)
			case query.OpLt, query.OpLe, query.OpGt, query.OpGe:
				seen[node.Column] = true
				rng = append(rng, node.Column)
			case query.OpLike:
				if pattern, ok := node.Value.(string); ok && len(pattern) > 0 && pattern[0] != '%' && pattern[0] != '_' {
					seen[node.Column] = true
					rng = append(rng, node.Column)
				}
			}
		case *query.And:
			for _, child := range node.Preds {
				walk(child)
			}
		case *query.Or:
			for _, child := range node.Preds {
				walk(child)
			}
		}
	}
	walk(pred)
	return eq, rng
}

// unindexedForeignKeys flags equi-join keys without a supporting index on
// their table. Join keys are almost always foreign keys; probing them
// without an index forces rescans or full hash builds.
func unindexedForeignKeys(snap *stats.Snapshot, q *query.Query) []Finding {
	var findings []Finding
	reported := make(map[string]bool)

	check := func(table, column string) {
		key := table + "." + column
		if reported[key] {
			return
		}
		t, err := snap.Table(table)
		if err != nil {
			return
		}
		if t.IndexLeadingOn(column) != nil {
			return
		}
		reported[key] = true
		findings = append(findings, Finding{
			Kind:        FindingUnindexedForeignKey,
			Table:       table,
			Column:      column,
			Rationale:   fmt.Sprintf("join key %s has no supporting index; every probe degrades to a rescan or full hash build", key),
			Remediation: fmt.Sprintf("CREATE INDEX idx_%s_%s ON %s (%s);", table, column, table, column),
		})
	}

	for _, edge := range q.Joins {
		if !edge.Equi() {
			continue
		}
		check(edge.LeftTable, edge.LeftColumn)
		check(edge.RightTable, edge.RightColumn)
	}

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Table != findings[j].Table {
			return findings[i].Table < findings[j].Table
		}
		return findings[i].Column < findings[j].Column
	})
	return findings
}
