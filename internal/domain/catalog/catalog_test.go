package catalog

import (
	"testing"
	"time"
)

func testTable() *Table {
	return &Table{
		Name:        "orders",
		RowCount:    500000,
		AvgRowWidth: 120,
		Columns: []Column{
			{Name: "id", Type: "int", DistinctCount: 500000},
			{Name: "status", Type: "text", DistinctCount: 5, MostCommon: []MCV{
				{Value: "shipped", Frequency: 0.6},
				{Value: "pending", Frequency: 0.2},
			}},
			{Name: "order_date", Type: "date", DistinctCount: 365},
		},
		Indexes: []*Index{
			{Name: "orders_pkey", KeyColumns: []string{"id"}, Unique: true},
			{Name: "idx_orders_status_date", KeyColumns: []string{"status", "order_date"}, IncludeColumns: []string{"amount"}},
		},
		AnalyzedAt: time.Now(),
	}
}

func TestPages(t *testing.T) {
	tbl := testTable()
	// 500000 rows * 120 bytes / 8192 bytes per page, rounded up.
	if got := tbl.Pages(); got != 7325 {
		t.Errorf("expected 7325 pages, got %d", got)
	}

	empty := &Table{Name: "empty"}
	if got := empty.Pages(); got != 1 {
		t.Errorf("empty table should occupy at least one page, got %d", got)
	}
}

func TestMCVFrequency(t *testing.T) {
	tbl := testTable()
	col, ok := tbl.Column("status")
	if !ok {
		t.Fatal("status column not found")
	}

	if freq, ok := col.MCVFrequency("shipped"); !ok || freq != 0.6 {
		t.Errorf("expected (0.6, true), got (%v, %v)", freq, ok)
	}
	if _, ok := col.MCVFrequency("cancelled"); ok {
		t.Error("cancelled is not a most-common value")
	}
}

func TestMCVFrequencyNumericRepresentations(t *testing.T) {
	// Histograms deserialized from JSON carry float64 values; operands
	// from the query side are int64.
	col := &Column{
		Name: "priority", Type: "int", DistinctCount: 10,
		MostCommon: []MCV{{Value: float64(5), Frequency: 0.4}},
	}

	tests := []struct {
		lookup interface{}
		hit    bool
	}{
		{int64(5), true},
		{int(5), true},
		{float64(5), true},
		{int64(6), false},
		{"5", false},
	}

	for _, tt := range tests {
		if _, ok := col.MCVFrequency(tt.lookup); ok != tt.hit {
			t.Errorf("MCVFrequency(%v %T): expected hit=%v, got %v", tt.lookup, tt.lookup, tt.hit, ok)
		}
	}
}

func TestIndexCovers(t *testing.T) {
	tbl := testTable()
	idx, ok := tbl.Index("idx_orders_status_date")
	if !ok {
		t.Fatal("index not found")
	}

	if !idx.Covers([]string{"status", "order_date", "amount"}) {
		t.Error("key and INCLUDE columns should be covered")
	}
	if idx.Covers([]string{"status", "id"}) {
		t.Error("id is not part of the index")
	}
}

func TestIndexLeadingOn(t *testing.T) {
	tbl := testTable()

	if idx := tbl.IndexLeadingOn("status"); idx == nil || idx.Name != "idx_orders_status_date" {
		t.Errorf("expected idx_orders_status_date, got %v", idx)
	}
	if idx := tbl.IndexLeadingOn("order_date"); idx != nil {
		t.Errorf("order_date is not a leading column, got %v", idx)
	}
}

func TestCloneIsDeep(t *testing.T) {
	tbl := testTable()
	cp := tbl.Clone()

	cp.Columns[1].MostCommon[0].Frequency = 0.99
	cp.Indexes[1].KeyColumns[0] = "mutated"

	if tbl.Columns[1].MostCommon[0].Frequency != 0.6 {
		t.Error("clone shares MCV storage with the original")
	}
	if tbl.Indexes[1].KeyColumns[0] != "status" {
		t.Error("clone shares index key storage with the original")
	}
}
