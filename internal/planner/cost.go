package planner

import (
	"math"

	"github.com/leengari/query-advisor/internal/config"
	"github.com/leengari/query-advisor/internal/domain/catalog"
	"github.com/leengari/query-advisor/internal/domain/query"
)

// sortConstant scales the per-comparison operator cost of an explicit sort.
const sortConstant = 2.0

// Estimate pairs an estimated cost with an estimated output cardinality.
// Costs are unit-less relative weights, not milliseconds.
type Estimate struct {
	Cost float64
	Rows float64
}

// CostModel computes scan and join cost estimates from table statistics.
// The constants are an explicit value passed in at construction, never
// ambient process state, so concurrent analyses can run with different
// assumptions.
type CostModel struct {
	costs         config.CostConfig
	hashMemBudget int64
}

// NewCostModel builds a cost model from configuration.
func NewCostModel(cfg *config.Config) *CostModel {
	return &CostModel{
		costs:         cfg.Costs,
		hashMemBudget: cfg.HashMemBudgetBytes,
	}
}

// SeqScan estimates reading every heap page and testing every row.
func (cm *CostModel) SeqScan(t *catalog.Table, selectivity float64) Estimate {
	rows := float64(t.RowCount)
	cost := float64(t.Pages())*cm.costs.SeqPageCost + rows*cm.costs.CPUTupleCost
	return Estimate{Cost: cost, Rows: outputRows(rows * selectivity)}
}

// IndexScan estimates an index seek returning matchingRows, then fetching
// each matching row from the heap. outRows is the cardinality after any
// residual post-filtering; it never exceeds matchingRows.
func (cm *CostModel) IndexScan(t *catalog.Table, matchingRows, outRows float64) Estimate {
	cost := cm.indexDescent(t) + matchingRows*(cm.heapFetchPerRow(t)+cm.costs.CPUIndexTupleCost)
	return Estimate{Cost: cost, Rows: outputRows(outRows)}
}

// IndexOnlyScan is an index scan without the per-row heap-fetch term; the
// index covers every referenced column.
func (cm *CostModel) IndexOnlyScan(t *catalog.Table, matchingRows, outRows float64) Estimate {
	cost := cm.indexDescent(t) + matchingRows*cm.costs.CPUIndexTupleCost
	return Estimate{Cost: cost, Rows: outputRows(outRows)}
}

// BitmapScan estimates building row bitmaps from indexCount indexes and
// reading the matching heap pages in physical order. It pays index-scan
// build cost plus a sequential-like cost bounded by matching pages, not
// matching rows.
func (cm *CostModel) BitmapScan(t *catalog.Table, indexCount int, matchingRows, outRows float64) Estimate {
	build := float64(indexCount)*cm.indexDescent(t) + matchingRows*cm.costs.CPUIndexTupleCost
	pages := math.Min(matchingRows, float64(t.Pages()))
	cost := build + pages*cm.costs.SeqPageCost + matchingRows*cm.costs.CPUTupleCost
	return Estimate{Cost: cost, Rows: outputRows(outRows)}
}

// IndexProbe estimates one inner-side index lookup of a nested loop,
// returning matchPerProbe rows.
func (cm *CostModel) IndexProbe(t *catalog.Table, matchPerProbe float64) float64 {
	return cm.indexDescent(t) + matchPerProbe*(cm.heapFetchPerRow(t)+cm.costs.CPUIndexTupleCost)
}

// NestedLoop estimates outer-driven probing. innerPerProbe is either an
// index probe cost or, without a usable inner index, the full inner scan
// cost, which degrades quadratically and prices itself out accordingly.
func (cm *CostModel) NestedLoop(outer Estimate, innerPerProbe, outRows float64) Estimate {
	cost := outer.Cost + outer.Rows*innerPerProbe + outRows*cm.costs.CPUTupleCost
	return Estimate{Cost: cost, Rows: outputRows(outRows)}
}

// HashJoin estimates build+probe with a spill penalty proportional to how
// far the build side overruns the memory budget. The second return value
// reports whether a spill is expected.
func (cm *CostModel) HashJoin(build, probe Estimate, buildRowWidth int, outRows float64) (Estimate, bool) {
	cost := build.Cost + probe.Cost + build.Rows*cm.costs.CPUTupleCost

	spill := false
	buildBytes := build.Rows * float64(buildRowWidth)
	if budget := float64(cm.hashMemBudget); buildBytes > budget {
		// Partitioned spill to secondary storage: charge the build side
		// again in proportion to the excess.
		spill = true
		cost += build.Cost * (buildBytes - budget) / budget
	}

	return Estimate{Cost: cost, Rows: outputRows(outRows)}, spill
}

// MergeJoin estimates sorting whichever sides are not already delivered in
// join-key order, then a linear merge.
func (cm *CostModel) MergeJoin(left, right Estimate, sortLeft, sortRight bool, outRows float64) Estimate {
	cost := left.Cost + right.Cost + (left.Rows+right.Rows)*cm.costs.CPUTupleCost
	if sortLeft {
		cost += cm.sortCost(left.Rows)
	}
	if sortRight {
		cost += cm.sortCost(right.Rows)
	}
	return Estimate{Cost: cost, Rows: outputRows(outRows)}
}

// JoinRows estimates join output cardinality. Equi-joins divide the cross
// product by the larger join-key distinct count; general predicates fall
// back to a default fraction.
func (cm *CostModel) JoinRows(kind query.JoinKind, equi bool, left, right Estimate, leftDistinct, rightDistinct int64) float64 {
	cross := left.Rows * right.Rows

	var rows float64
	if equi {
		d := math.Max(float64(leftDistinct), float64(rightDistinct))
		if d < 1 {
			d = 1
		}
		rows = cross / d
	} else {
		rows = cross * defaultRangeSelectivity
	}

	matchFrac := 1.0
	if left.Rows > 0 {
		matchFrac = math.Min(1.0, rows/left.Rows)
	}

	switch kind {
	case query.JoinLeft:
		rows = math.Max(rows, left.Rows)
	case query.JoinRight:
		rows = math.Max(rows, right.Rows)
	case query.JoinFull:
		rows = math.Max(rows, math.Max(left.Rows, right.Rows))
	case query.JoinSemi:
		rows = left.Rows * matchFrac
	case query.JoinAnti:
		rows = left.Rows * (1.0 - matchFrac)
	}

	return outputRows(rows)
}

// indexDescent is the root-to-leaf cost of one index traversal.
func (cm *CostModel) indexDescent(t *catalog.Table) float64 {
	return cm.costs.RandomPageCost + math.Log2(float64(t.RowCount)+1)*cm.costs.CPUIndexTupleCost
}

// heapFetchPerRow amortizes random heap access over the rows per page,
// modeling partially correlated index order.
func (cm *CostModel) heapFetchPerRow(t *catalog.Table) float64 {
	rows := float64(t.RowCount)
	if rows < 1 {
		rows = 1
	}
	return cm.costs.RandomPageCost * float64(t.Pages()) / rows
}

// sortCost charges n*log2(n) key comparisons at the operator rate.
func (cm *CostModel) sortCost(rows float64) float64 {
	if rows < 2 {
		return 0
	}
	return rows * math.Log2(rows) * cm.costs.CPUOperatorCost * sortConstant
}

func outputRows(rows float64) float64 {
	if rows < 1 {
		return 1
	}
	return rows
}
