package planner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leengari/query-advisor/internal/domain/catalog"
	"github.com/leengari/query-advisor/internal/domain/query"
	"github.com/leengari/query-advisor/internal/plan"
	"github.com/leengari/query-advisor/internal/stats"
)

// Planner assembles a whole-query plan bottom-up: feasible scans per
// table, then one greedy minimum-cost join choice per edge in the input
// join order. Greedy assembly bounds enumeration cost for wide join
// graphs; it is not an exhaustive permutation search.
type Planner struct {
	model    *CostModel
	snap     *stats.Snapshot
	maxSteps int
	logger   *slog.Logger

	steps int
}

// New creates a planner over one immutable statistics snapshot.
func New(model *CostModel, snap *stats.Snapshot, maxSteps int, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{model: model, snap: snap, maxSteps: maxSteps, logger: logger}
}

// NoFeasibleJoinError describes a join edge with no real strategy: no
// equality key for a hash join, no orderable key for a merge join, and no
// inner index for a nested loop probe.
type NoFeasibleJoinError struct {
	Edge   query.JoinEdge
	Reason string
}

func (e *NoFeasibleJoinError) Error() string {
	return fmt.Sprintf("no feasible join strategy for %s: %s", e.Edge.String(), e.Reason)
}

// JoinStep records one greedy join decision, retained for explain mode
// and for the advisor's findings.
type JoinStep struct {
	Edge          query.JoinEdge
	Chosen        plan.Node
	Candidates    []plan.Node
	OuterRows     float64
	InnerRows     float64
	LowConfidence bool
	Infeasible    *NoFeasibleJoinError
}

// Result is the outcome of planning one query.
type Result struct {
	Root           plan.Node
	ScanChoices    map[string]plan.Node
	ScanCandidates map[string][]plan.Node
	JoinSteps      []JoinStep

	// Truncated marks a best-effort plan: the step budget or deadline was
	// hit and remaining joins used fallback estimates.
	Truncated bool
}

// PlanQuery plans the query against the snapshot. Statistics lookup
// misses (unknown table or column) abort the analysis; an edge without a
// real join strategy downgrades to a low-confidence fallback step instead.
func (p *Planner) PlanQuery(ctx context.Context, q *query.Query) (*Result, error) {
	if err := p.validate(q); err != nil {
		return nil, err
	}

	result := &Result{
		ScanChoices:    make(map[string]plan.Node, len(q.Tables)),
		ScanCandidates: make(map[string][]plan.Node, len(q.Tables)),
	}

	for _, name := range q.Tables {
		t, err := p.snap.Table(name)
		if err != nil {
			return nil, err
		}
		candidates := p.scanCandidates(t, q.Filter(name), q.Referenced(name))
		p.steps += len(candidates)
		result.ScanCandidates[name] = candidates
		result.ScanChoices[name] = chooseScan(candidates)
	}

	if len(q.Joins) == 0 {
		if len(q.Tables) != 1 {
			return nil, fmt.Errorf("query references %d tables but has no join edges", len(q.Tables))
		}
		result.Root = result.ScanChoices[q.Tables[0]]
		return result, nil
	}

	joined := make(map[string]bool)
	var cur plan.Node

	for _, edge := range q.Joins {
		if ctx.Err() != nil || p.steps >= p.maxSteps {
			result.Truncated = true
		}

		left, right, cycle, err := p.orient(edge, cur, joined, result.ScanChoices)
		if err != nil {
			return nil, err
		}
		if cycle {
			// Both sides already joined: the edge is a residual filter on
			// the assembled tree, not a new join.
			result.JoinSteps = append(result.JoinSteps, JoinStep{Edge: edge, Chosen: cur})
			continue
		}

		var step JoinStep
		if result.Truncated {
			step = p.fallbackStep(edge, left, right)
		} else {
			step = p.joinStep(edge, left, right)
		}

		cur = step.Chosen
		joined[edge.LeftTable] = true
		joined[edge.RightTable] = true
		result.JoinSteps = append(result.JoinSteps, step)
	}

	result.Root = cur

	p.logger.Debug("plan assembled",
		slog.Int("tables", len(q.Tables)),
		slog.Int("join_steps", len(result.JoinSteps)),
		slog.Int("enumeration_steps", p.steps),
		slog.Bool("truncated", result.Truncated),
	)

	return result, nil
}

// orient resolves which plan inputs an edge combines: the tree built so
// far plus one new table scan, two fresh scans for the first edge, or a
// cycle edge whose tables are both already joined.
func (p *Planner) orient(edge query.JoinEdge, cur plan.Node, joined map[string]bool, scans map[string]plan.Node) (left, right plan.Node, cycle bool, err error) {
	leftScan, lok := scans[edge.LeftTable]
	rightScan, rok := scans[edge.RightTable]
	if !lok || !rok {
		return nil, nil, false, fmt.Errorf("join edge references table outside the query: %s", edge.String())
	}

	switch {
	case cur == nil:
		return leftScan, rightScan, false, nil
	case joined[edge.LeftTable] && joined[edge.RightTable]:
		return nil, nil, true, nil
	case joined[edge.LeftTable]:
		return cur, rightScan, false, nil
	case joined[edge.RightTable]:
		return leftScan, cur, false, nil
	default:
		return nil, nil, false, fmt.Errorf("join edge does not connect to the joined relations: %s", edge.String())
	}
}

// joinStep enumerates every feasible strategy for one edge and picks the
// minimum-cost candidate. Prerequisites: hash join needs an equality key,
// merge join needs both sides orderable by the join key (via index order
// or an explicit sort), nested loop needs an outer side compatible with
// the join kind. When only the degraded rescan nested loop is feasible
// the step is flagged low-confidence.
func (p *Planner) joinStep(edge query.JoinEdge, left, right plan.Node) JoinStep {
	leftEst := Estimate{Cost: left.Cost(), Rows: left.Rows()}
	rightEst := Estimate{Cost: right.Cost(), Rows: right.Rows()}
	leftDistinct := p.distinct(edge.LeftTable, edge.LeftColumn)
	rightDistinct := p.distinct(edge.RightTable, edge.RightColumn)
	outRows := p.model.JoinRows(edge.Kind, edge.Equi(), leftEst, rightEst, leftDistinct, rightDistinct)

	var candidates []plan.Node
	realStrategy := false

	// Nested loop, left side driving. Feasible for every kind except FULL,
	// which has no driving side.
	if edge.Kind != query.JoinFull {
		probe, indexName := p.probeCost(right, edge.RightTable, edge.RightColumn, rightEst)
		est := p.model.NestedLoop(leftEst, probe, outRows)
		candidates = append(candidates, plan.NewNestedLoop(left, right, edge.RightColumn, indexName, est.Cost, est.Rows))
		if indexName != "" {
			realStrategy = true
		}
	}

	// Swapped nested loop only preserves semantics for inner joins.
	if edge.Kind == query.JoinInner {
		probe, indexName := p.probeCost(left, edge.LeftTable, edge.LeftColumn, leftEst)
		est := p.model.NestedLoop(rightEst, probe, outRows)
		candidates = append(candidates, plan.NewNestedLoop(right, left, edge.LeftColumn, indexName, est.Cost, est.Rows))
		if indexName != "" {
			realStrategy = true
		}
	}

	if edge.Equi() {
		// Hash join: build on the smaller side.
		build, probe := left, right
		buildEst, probeEst := leftEst, rightEst
		joinCol := edge.LeftColumn
		if rightEst.Rows < leftEst.Rows {
			build, probe = right, left
			buildEst, probeEst = rightEst, leftEst
			joinCol = edge.RightColumn
		}
		est, spill := p.model.HashJoin(buildEst, probeEst, p.nodeWidth(build), outRows)
		candidates = append(candidates, plan.NewHashJoin(build, probe, joinCol, spill, est.Cost, est.Rows))
		realStrategy = true

		// Merge join: sort whichever side no index order already covers.
		sortLeft := !p.deliversOrder(left, edge.LeftColumn)
		sortRight := !p.deliversOrder(right, edge.RightColumn)
		mergeEst := p.model.MergeJoin(leftEst, rightEst, sortLeft, sortRight, outRows)
		candidates = append(candidates, plan.NewMergeJoin(left, right, edge.LeftColumn, sortLeft, sortRight, mergeEst.Cost, mergeEst.Rows))
	}

	p.steps += len(candidates)

	step := JoinStep{
		Edge:       edge,
		Candidates: candidates,
		OuterRows:  leftEst.Rows,
		InnerRows:  rightEst.Rows,
	}

	if len(candidates) == 0 {
		// FULL join over a non-equality predicate: nothing can run it.
		// Fall back to a rescan nested loop estimate, flagged.
		fallback := p.fallbackStep(edge, left, right)
		fallback.Infeasible = &NoFeasibleJoinError{
			Edge:   edge,
			Reason: "neither equality key nor orderable key",
		}
		return fallback
	}

	step.Chosen = chooseJoin(candidates)
	if !realStrategy && !edge.Equi() {
		// Only the degraded rescan nested loop was available.
		step.LowConfidence = true
		step.Infeasible = &NoFeasibleJoinError{
			Edge:   edge,
			Reason: "no inner index for the join predicate; estimate uses full rescans",
		}
	}

	return step
}

// fallbackStep builds the cheap nested-loop-without-index estimate used
// when the search is truncated or an edge has no feasible strategy.
func (p *Planner) fallbackStep(edge query.JoinEdge, left, right plan.Node) JoinStep {
	leftEst := Estimate{Cost: left.Cost(), Rows: left.Rows()}
	rightEst := Estimate{Cost: right.Cost(), Rows: right.Rows()}
	outRows := p.model.JoinRows(edge.Kind, edge.Equi(), leftEst, rightEst,
		p.distinct(edge.LeftTable, edge.LeftColumn), p.distinct(edge.RightTable, edge.RightColumn))

	est := p.model.NestedLoop(leftEst, rightEst.Cost, outRows)
	node := plan.NewNestedLoop(left, right, edge.RightColumn, "", est.Cost, est.Rows)
	p.steps++

	return JoinStep{
		Edge:          edge,
		Chosen:        node,
		Candidates:    []plan.Node{node},
		OuterRows:     leftEst.Rows,
		InnerRows:     rightEst.Rows,
		LowConfidence: true,
	}
}

// probeCost is the per-outer-row cost of reaching inner matches. With an
// inner index on the join key it is an index probe; without one every
// probe rescans the whole inner side.
func (p *Planner) probeCost(inner plan.Node, innerTable, innerColumn string, innerEst Estimate) (float64, string) {
	table := leafTable(inner)
	if table == "" || table != innerTable {
		// The inner side is an assembled subtree; every probe re-runs it.
		return innerEst.Cost, ""
	}

	t, err := p.snap.Table(table)
	if err != nil {
		return innerEst.Cost, ""
	}
	idx := t.IndexLeadingOn(innerColumn)
	if idx == nil {
		return innerEst.Cost, ""
	}

	matchPerProbe := float64(t.RowCount) / float64(maxInt64(p.distinct(table, innerColumn), 1))
	return p.model.IndexProbe(t, matchPerProbe), idx.Name
}

// deliversOrder reports whether a side already produces rows ordered by
// the join column, making its merge-join sort free.
func (p *Planner) deliversOrder(node plan.Node, column string) bool {
	switch n := node.(type) {
	case *plan.IndexScanNode:
		return p.indexLeadsOn(n.Table, n.Index, column)
	case *plan.IndexOnlyScanNode:
		return p.indexLeadsOn(n.Table, n.Index, column)
	case *plan.MergeJoinNode:
		return n.JoinColumn == column
	default:
		return false
	}
}

func (p *Planner) indexLeadsOn(table, index, column string) bool {
	t, err := p.snap.Table(table)
	if err != nil {
		return false
	}
	idx, ok := t.Index(index)
	return ok && idx.LeadingColumn() == column
}

// nodeWidth estimates the row width a subtree produces, for hash build
// sizing. Joins concatenate their inputs' widths.
func (p *Planner) nodeWidth(node plan.Node) int {
	if table := leafTable(node); table != "" {
		if t, err := p.snap.Table(table); err == nil {
			return t.AvgRowWidth
		}
		return 0
	}
	width := 0
	for _, child := range node.Children() {
		width += p.nodeWidth(child)
	}
	return width
}

func (p *Planner) distinct(table, column string) int64 {
	col, err := p.snap.ColumnStats(table, column)
	if err != nil {
		return 0
	}
	return col.DistinctCount
}

// validate resolves every table and column the query references against
// the snapshot. Lookup misses are fatal to the analysis.
func (p *Planner) validate(q *query.Query) error {
	for _, name := range q.Tables {
		t, err := p.snap.Table(name)
		if err != nil {
			return err
		}
		for _, col := range q.Referenced(name) {
			if _, ok := t.Column(col); !ok {
				return &catalog.UnknownColumnError{Table: name, Column: col}
			}
		}
		for _, col := range predicateColumns(q.Filter(name)) {
			if _, ok := t.Column(col); !ok {
				return &catalog.UnknownColumnError{Table: name, Column: col}
			}
		}
	}
	for _, edge := range q.Joins {
		if _, err := p.snap.ColumnStats(edge.LeftTable, edge.LeftColumn); err != nil {
			return err
		}
		if _, err := p.snap.ColumnStats(edge.RightTable, edge.RightColumn); err != nil {
			return err
		}
	}
	return nil
}

// chooseJoin picks the minimum-cost join candidate, tie-breaking toward
// the lower estimated output cardinality.
func chooseJoin(candidates []plan.Node) plan.Node {
	best := candidates[0]
	for _, cand := range candidates[1:] {
		if cand.Cost() < best.Cost() || (cand.Cost() == best.Cost() && cand.Rows() < best.Rows()) {
			best = cand
		}
	}
	return best
}

func leafTable(node plan.Node) string {
	switch n := node.(type) {
	case *plan.SeqScanNode:
		return n.Table
	case *plan.IndexScanNode:
		return n.Table
	case *plan.IndexOnlyScanNode:
		return n.Table
	case *plan.BitmapScanNode:
		return n.Table
	default:
		return ""
	}
}

func predicateColumns(pred query.Predicate) []string {
	var cols []string
	var walk func(p query.Predicate)
	walk = func(p query.Predicate) {
		switch node := p.(type) {
		case *query.Comparison:
			cols = append(cols, node.Column)
		case *query.FuncWrapped:
			cols = append(cols, node.Inner.Column)
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
	if pred != nil {
		walk(pred)
	}
	return cols
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
