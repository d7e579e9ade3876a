package planner

import (
	"math"

	"github.com/leengari/query-advisor/internal/domain/catalog"
	"github.com/leengari/query-advisor/internal/domain/query"
	"github.com/leengari/query-advisor/internal/plan"
	"github.com/leengari/query-advisor/internal/planner/sargable"
)

// scanCandidates constructs the feasible scan nodes for one table: the
// baseline sequential scan, one index (or index-only) scan per index the
// classifier accepts, and a bitmap scan for OR predicates whose branches
// each bind their own single-column index.
func (p *Planner) scanCandidates(t *catalog.Table, filter query.Predicate, referenced []string) []plan.Node {
	fullSel := Selectivity(t, filter)
	rows := float64(t.RowCount)

	seq := p.model.SeqScan(t, fullSel)
	candidates := []plan.Node{plan.NewSeqScan(t.Name, seq.Cost, seq.Rows)}

	if filter == nil {
		return candidates
	}

	outRows := rows * fullSel

	// Residual filter columns must also come out of the index, or every
	// candidate row needs a heap fetch to post-filter.
	needed := append(append([]string{}, referenced...), predicateColumns(filter)...)

	for _, idx := range t.Indexes {
		cls := sargable.Classify(filter, idx)
		if !cls.Sargable {
			continue
		}

		matching := rows * p.boundSelectivity(t, cls)
		capped := math.Min(outRows, matching)

		if len(referenced) > 0 && idx.Covers(needed) {
			est := p.model.IndexOnlyScan(t, matching, capped)
			candidates = append(candidates, plan.NewIndexOnlyScan(t.Name, idx.Name, cls.KeyPrefixLen, est.Cost, est.Rows))
		} else {
			est := p.model.IndexScan(t, matching, capped)
			candidates = append(candidates, plan.NewIndexScan(t.Name, idx.Name, cls.KeyPrefixLen, est.Cost, est.Rows))
		}
	}

	if or, ok := filter.(*query.Or); ok {
		if indexes, ok := sargable.BitmapCandidates(or, t); ok {
			matching := rows * fullSel
			est := p.model.BitmapScan(t, len(indexes), matching, matching)
			candidates = append(candidates, plan.NewBitmapScan(t.Name, indexes, est.Cost, est.Rows))
		}
	}

	return candidates
}

// boundSelectivity multiplies the selectivities of the key columns the
// classifier bound, under the usual independence assumption.
func (p *Planner) boundSelectivity(t *catalog.Table, cls sargable.Classification) float64 {
	sel := 1.0
	for _, bound := range cls.Bound {
		sel *= Selectivity(t, bound.Leaf)
	}
	return sel
}

// chooseScan picks the minimum-cost candidate. Ties break toward the
// lower estimated cardinality, then toward the stronger scan kind:
// index-only over index over bitmap over sequential.
func chooseScan(candidates []plan.Node) plan.Node {
	best := candidates[0]
	for _, cand := range candidates[1:] {
		if scanBeats(cand, best) {
			best = cand
		}
	}
	return best
}

func scanBeats(a, b plan.Node) bool {
	if a.Cost() != b.Cost() {
		return a.Cost() < b.Cost()
	}
	if a.Rows() != b.Rows() {
		return a.Rows() < b.Rows()
	}
	return scanKindRank(a) < scanKindRank(b)
}

func scanKindRank(n plan.Node) int {
	switch n.(type) {
	case *plan.IndexOnlyScanNode:
		return 0
	case *plan.IndexScanNode:
		return 1
	case *plan.BitmapScanNode:
		return 2
	case *plan.SeqScanNode:
		return 3
	default:
		return 4
	}
}
