package planner

import (
	"math"
	"testing"

	"github.com/leengari/query-advisor/internal/domain/catalog"
	"github.com/leengari/query-advisor/internal/domain/query"
)

func statsTable() *catalog.Table {
	return &catalog.Table{
		Name:        "orders",
		RowCount:    500000,
		AvgRowWidth: 120,
		Columns: []catalog.Column{
			{Name: "id", Type: "int", DistinctCount: 500000},
			{Name: "status", Type: "text", DistinctCount: 5, MostCommon: []catalog.MCV{
				{Value: "shipped", Frequency: 0.6},
				{Value: "pending", Frequency: 0.2},
			}},
			{Name: "region", Type: "text", DistinctCount: 4},
			{Name: "email", Type: "text", DistinctCount: 4, NullFrac: 0.5},
		},
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComparisonSelectivity(t *testing.T) {
	tbl := statsTable()

	tests := []struct {
		name     string
		pred     query.Predicate
		expected float64
	}{
		{
			name:     "MCV equality uses histogram frequency",
			pred:     &query.Comparison{Column: "status", Operator: query.OpEq, Value: "shipped"},
			expected: 0.6,
		},
		{
			name:     "non-MCV equality falls back to 1/distinct",
			pred:     &query.Comparison{Column: "region", Operator: query.OpEq, Value: "east"},
			expected: 0.25,
		},
		{
			name:     "inequality is the complement",
			pred:     &query.Comparison{Column: "status", Operator: query.OpNe, Value: "shipped"},
			expected: 0.4,
		},
		{
			name:     "IN sums member selectivities",
			pred:     &query.Comparison{Column: "status", Operator: query.OpIn, Values: []interface{}{"shipped", "pending"}},
			expected: 0.8,
		},
		{
			name:     "range uses the default range fraction",
			pred:     &query.Comparison{Column: "id", Operator: query.OpGt, Value: int64(100)},
			expected: defaultRangeSelectivity,
		},
		{
			name:     "null fraction scales equality",
			pred:     &query.Comparison{Column: "email", Operator: query.OpEq, Value: "x"},
			expected: 0.25 * 0.5,
		},
		{
			name:     "anchored LIKE uses the prefix fraction",
			pred:     &query.Comparison{Column: "status", Operator: query.OpLike, Value: "ship%"},
			expected: defaultPrefixSelectivity,
		},
		{
			name:     "row-dependent operand gets the default guess",
			pred:     &query.Comparison{Column: "id", Operator: query.OpGt, RowDependent: true, OperandExpr: "other"},
			expected: defaultSelectivity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Selectivity(tbl, tt.pred)
			if !almostEqual(got, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestConjunctionMultipliesUnderIndependence(t *testing.T) {
	tbl := statsTable()
	pred := &query.And{Preds: []query.Predicate{
		&query.Comparison{Column: "status", Operator: query.OpEq, Value: "shipped"},
		&query.Comparison{Column: "region", Operator: query.OpEq, Value: "east"},
	}}

	if got := Selectivity(tbl, pred); !almostEqual(got, 0.6*0.25) {
		t.Errorf("expected %v, got %v", 0.6*0.25, got)
	}
}

func TestDisjunctionUsesInclusionExclusion(t *testing.T) {
	tbl := statsTable()
	pred := &query.Or{Preds: []query.Predicate{
		&query.Comparison{Column: "status", Operator: query.OpEq, Value: "shipped"},
		&query.Comparison{Column: "status", Operator: query.OpEq, Value: "pending"},
	}}

	expected := 0.6 + 0.2 - 0.6*0.2
	if got := Selectivity(tbl, pred); !almostEqual(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
}

func TestSelectivityClamping(t *testing.T) {
	tbl := statsTable()

	var preds []query.Predicate
	for i := 0; i < 10; i++ {
		preds = append(preds, &query.Comparison{Column: "email", Operator: query.OpEq, Value: i})
	}
	and := &query.And{Preds: preds}

	if got := Selectivity(tbl, and); got < 0.0001 {
		t.Errorf("selectivity must clamp at the floor, got %v", got)
	}
	if got := Selectivity(tbl, nil); got != 1.0 {
		t.Errorf("nil predicate selects everything, got %v", got)
	}
}
