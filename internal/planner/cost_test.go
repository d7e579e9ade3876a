package planner

import (
	"testing"

	"github.com/leengari/query-advisor/internal/config"
	"github.com/leengari/query-advisor/internal/domain/catalog"
	"github.com/leengari/query-advisor/internal/domain/query"
)

func testModel() *CostModel {
	return NewCostModel(config.Default())
}

func ordersTable() *catalog.Table {
	return &catalog.Table{
		Name:        "orders",
		RowCount:    500000,
		AvgRowWidth: 120,
		Columns: []catalog.Column{
			{Name: "id", Type: "int", DistinctCount: 500000},
			{Name: "status", Type: "text", DistinctCount: 5},
		},
		Indexes: []*catalog.Index{
			{Name: "orders_pkey", KeyColumns: []string{"id"}, Unique: true},
		},
	}
}

func TestSeqScanCostGrowsWithTableSize(t *testing.T) {
	model := testModel()

	small := &catalog.Table{Name: "s", RowCount: 1000, AvgRowWidth: 100}
	large := &catalog.Table{Name: "l", RowCount: 1000000, AvgRowWidth: 100}

	if model.SeqScan(small, 1.0).Cost >= model.SeqScan(large, 1.0).Cost {
		t.Error("sequential scan cost must grow with table size")
	}
}

func TestScanCostOrdering(t *testing.T) {
	model := testModel()
	tbl := ordersTable()

	// 20% of the table matches the predicate.
	matching := float64(tbl.RowCount) * 0.2

	seq := model.SeqScan(tbl, 0.2)
	index := model.IndexScan(tbl, matching, matching)
	indexOnly := model.IndexOnlyScan(tbl, matching, matching)
	bitmap := model.BitmapScan(tbl, 1, matching, matching)

	if indexOnly.Cost >= index.Cost {
		t.Errorf("index-only (%v) must beat index scan (%v): no heap fetches", indexOnly.Cost, index.Cost)
	}
	if index.Cost >= seq.Cost {
		t.Errorf("index scan (%v) must beat seq scan (%v) at this selectivity", index.Cost, seq.Cost)
	}
	if bitmap.Cost <= index.Cost || bitmap.Cost >= seq.Cost {
		t.Errorf("bitmap scan (%v) should sit between index (%v) and seq (%v)", bitmap.Cost, index.Cost, seq.Cost)
	}
}

func TestIndexScanLosesAtHighSelectivity(t *testing.T) {
	model := testModel()
	tbl := ordersTable()

	matching := float64(tbl.RowCount) * 0.95
	seq := model.SeqScan(tbl, 0.95)
	index := model.IndexScan(tbl, matching, matching)

	if index.Cost <= seq.Cost {
		t.Errorf("near-full index scan (%v) must not beat seq scan (%v)", index.Cost, seq.Cost)
	}
}

func TestNestedLoopScalesWithOuterRows(t *testing.T) {
	model := testModel()

	probe := 5.0
	small := model.NestedLoop(Estimate{Cost: 100, Rows: 10}, probe, 10)
	large := model.NestedLoop(Estimate{Cost: 100, Rows: 10000}, probe, 10000)

	if small.Cost >= large.Cost {
		t.Error("nested loop cost must grow with outer cardinality")
	}
}

func TestHashJoinSpill(t *testing.T) {
	cfg := config.Default()
	cfg.HashMemBudgetBytes = 1 << 20 // 1 MiB
	model := NewCostModel(cfg)

	build := Estimate{Cost: 1000, Rows: 5000}
	probe := Estimate{Cost: 2000, Rows: 100000}

	fits, spillA := model.HashJoin(build, probe, 100, 100000) // 500 KB build
	over, spillB := model.HashJoin(build, probe, 1000, 100000) // 5 MB build

	if spillA {
		t.Error("build under the budget must not spill")
	}
	if !spillB {
		t.Error("build over the budget must spill")
	}
	if over.Cost <= fits.Cost {
		t.Error("spilling must cost more than an in-memory build")
	}
}

func TestMergeJoinSortCharges(t *testing.T) {
	model := testModel()

	left := Estimate{Cost: 500, Rows: 10000}
	right := Estimate{Cost: 800, Rows: 20000}

	presorted := model.MergeJoin(left, right, false, false, 10000)
	oneSort := model.MergeJoin(left, right, false, true, 10000)
	twoSorts := model.MergeJoin(left, right, true, true, 10000)

	if !(presorted.Cost < oneSort.Cost && oneSort.Cost < twoSorts.Cost) {
		t.Errorf("each explicit sort must add cost: %v, %v, %v",
			presorted.Cost, oneSort.Cost, twoSorts.Cost)
	}
}

func TestSortCostChargesOperatorRate(t *testing.T) {
	cheap := config.Default()
	expensive := config.Default()
	expensive.Costs.CPUOperatorCost = 10 * cheap.Costs.CPUOperatorCost

	left := Estimate{Cost: 500, Rows: 10000}
	right := Estimate{Cost: 800, Rows: 20000}

	cheapSort := NewCostModel(cheap).MergeJoin(left, right, true, false, 10000)
	pricySort := NewCostModel(expensive).MergeJoin(left, right, true, false, 10000)

	if cheapSort.Cost >= pricySort.Cost {
		t.Error("a higher operator rate must raise explicit sort cost")
	}

	// Presorted inputs pay no comparisons, so the rate is irrelevant.
	cheapMerge := NewCostModel(cheap).MergeJoin(left, right, false, false, 10000)
	pricyMerge := NewCostModel(expensive).MergeJoin(left, right, false, false, 10000)
	if cheapMerge.Cost != pricyMerge.Cost {
		t.Error("operator rate must not affect a sort-free merge")
	}
}

func TestJoinRows(t *testing.T) {
	model := testModel()

	left := Estimate{Rows: 10000}
	right := Estimate{Rows: 500000}

	inner := model.JoinRows(query.JoinInner, true, left, right, 10000, 10000)
	if inner != 500000 {
		t.Errorf("equi inner join: expected cross/distinct = 500000, got %v", inner)
	}

	leftJoin := model.JoinRows(query.JoinLeft, true, left, Estimate{Rows: 100}, 10000, 100)
	if leftJoin < left.Rows {
		t.Errorf("left join must preserve at least every outer row, got %v", leftJoin)
	}

	semi := model.JoinRows(query.JoinSemi, true, left, right, 10000, 10000)
	if semi > left.Rows {
		t.Errorf("semi join can at most emit every outer row once, got %v", semi)
	}

	anti := model.JoinRows(query.JoinAnti, true, left, right, 10000, 10000)
	if anti > left.Rows {
		t.Errorf("anti join can at most emit every outer row, got %v", anti)
	}
}

func TestEstimatesNeverReportZeroRows(t *testing.T) {
	model := testModel()
	tbl := &catalog.Table{Name: "t", RowCount: 100, AvgRowWidth: 50}

	est := model.SeqScan(tbl, 0.000001)
	if est.Rows < 1 {
		t.Errorf("row estimates floor at one, got %v", est.Rows)
	}
}
