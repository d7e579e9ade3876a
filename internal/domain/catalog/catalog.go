package catalog

import (
	"math"
	"time"
)

// PageSize is the assumed on-disk page size used to derive page counts
// from row counts and widths. Matches the common 8KB database page.
const PageSize = 8192

// MCV is one entry of a column's most-common-value histogram.
type MCV struct {
	Value     interface{} `json:"value"`
	Frequency float64     `json:"frequency"` // fraction of table rows, 0.0-1.0
}

// Column holds the per-column statistics the cost model reads.
type Column struct {
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	NullFrac      float64 `json:"null_frac"`      // fraction of NULL values, 0.0-1.0
	DistinctCount int64   `json:"distinct_count"` // estimated number of distinct values
	MostCommon    []MCV   `json:"most_common,omitempty"`
}

// MCVFrequency returns the histogram frequency for a value and true if the
// value is tracked as a most-common value. Numeric values compare by
// magnitude: JSON-loaded histograms store numbers as float64 while query
// operands arrive as int64.
func (c *Column) MCVFrequency(value interface{}) (float64, bool) {
	for _, mcv := range c.MostCommon {
		if mcvEqual(mcv.Value, value) {
			return mcv.Frequency, true
		}
	}
	return 0, false
}

func mcvEqual(a, b interface{}) bool {
	if a == b {
		return true
	}
	af, aok := toFloat64(a)
	bf, bok := toFloat64(b)
	return aok && bok && af == bf
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// Index describes an index over a table.
// Key column order matters: equality columns should precede range columns.
type Index struct {
	Name           string   `json:"name"`
	KeyColumns     []string `json:"key_columns"`
	IncludeColumns []string `json:"include_columns,omitempty"` // covering payload, not part of the seek key
	Unique         bool     `json:"unique"`
	Partial        string   `json:"partial,omitempty"` // predicate text restricting which rows are indexed
}

// Covers reports whether every referenced column is available from the
// index itself (key or INCLUDE), making an index-only scan possible.
func (idx *Index) Covers(columns []string) bool {
	for _, col := range columns {
		if !idx.HasColumn(col) {
			return false
		}
	}
	return true
}

// HasColumn reports whether the column appears in the key or INCLUDE list.
func (idx *Index) HasColumn(name string) bool {
	for _, key := range idx.KeyColumns {
		if key == name {
			return true
		}
	}
	for _, inc := range idx.IncludeColumns {
		if inc == name {
			return true
		}
	}
	return false
}

// LeadingColumn returns the first key column, or "" for an empty key.
func (idx *Index) LeadingColumn() string {
	if len(idx.KeyColumns) == 0 {
		return ""
	}
	return idx.KeyColumns[0]
}

// Table holds the statistics snapshot for one table.
// Row count and width only change via a statistics refresh; between
// refreshes a Table is treated as immutable.
type Table struct {
	Name        string    `json:"name"`
	RowCount    int64     `json:"row_count"`
	AvgRowWidth int       `json:"avg_row_width"` // bytes
	Columns     []Column  `json:"columns"`
	Indexes     []*Index  `json:"indexes,omitempty"`
	AnalyzedAt  time.Time `json:"analyzed_at"`
}

// Pages estimates the number of heap pages the table occupies.
func (t *Table) Pages() int64 {
	if t.RowCount == 0 || t.AvgRowWidth == 0 {
		return 1
	}
	pages := int64(math.Ceil(float64(t.RowCount) * float64(t.AvgRowWidth) / PageSize))
	if pages < 1 {
		pages = 1
	}
	return pages
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Index looks up an index by name.
func (t *Table) Index(name string) (*Index, bool) {
	for _, idx := range t.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return nil, false
}

// IndexLeadingOn returns the first index whose leading key column matches,
// or nil. Used for join-key lookups and merge-order checks.
func (t *Table) IndexLeadingOn(column string) *Index {
	for _, idx := range t.Indexes {
		if idx.LeadingColumn() == column {
			return idx
		}
	}
	return nil
}

// Clone returns a deep copy of the table. Snapshots clone tables so a
// statistics refresh never mutates data visible to an in-flight analysis.
func (t *Table) Clone() *Table {
	cp := &Table{
		Name:        t.Name,
		RowCount:    t.RowCount,
		AvgRowWidth: t.AvgRowWidth,
		AnalyzedAt:  t.AnalyzedAt,
	}
	cp.Columns = make([]Column, len(t.Columns))
	for i, col := range t.Columns {
		cp.Columns[i] = col
		cp.Columns[i].MostCommon = append([]MCV(nil), col.MostCommon...)
	}
	cp.Indexes = make([]*Index, len(t.Indexes))
	for i, idx := range t.Indexes {
		idxCopy := *idx
		idxCopy.KeyColumns = append([]string(nil), idx.KeyColumns...)
		idxCopy.IncludeColumns = append([]string(nil), idx.IncludeColumns...)
		cp.Indexes[i] = &idxCopy
	}
	return cp
}
