package query

import "fmt"

// JoinKind is the logical join type of an edge.
type JoinKind string

const (
	JoinInner JoinKind = "INNER"
	JoinLeft  JoinKind = "LEFT"
	JoinRight JoinKind = "RIGHT"
	JoinFull  JoinKind = "FULL"
	JoinSemi  JoinKind = "SEMI"
	JoinAnti  JoinKind = "ANTI"
)

// JoinEdge connects two relations of the join graph.
// Operator is OpEq for an equi-join; any other operator makes the edge a
// general (theta) join, which rules out hash strategies.
type JoinEdge struct {
	LeftTable   string
	LeftColumn  string
	RightTable  string
	RightColumn string
	Operator    Operator
	Kind        JoinKind
}

// Equi reports whether the edge joins on equality.
func (e *JoinEdge) Equi() bool { return e.Operator == OpEq }

func (e *JoinEdge) String() string {
	return fmt.Sprintf("%s %s JOIN %s ON %s.%s %s %s.%s",
		e.LeftTable, e.Kind, e.RightTable,
		e.LeftTable, e.LeftColumn, e.Operator, e.RightTable, e.RightColumn)
}

// Query is the normalized form of one query the advisor analyzes: the
// tables it touches, the columns each table must produce, per-table
// filter predicates, and the join edges in their input order.
type Query struct {
	Tables  []string
	Columns map[string][]string // referenced columns per table, drives covering checks
	Filters map[string]Predicate
	Joins   []JoinEdge
}

// Filter returns the filter predicate for a table, or nil.
func (q *Query) Filter(table string) Predicate {
	if q.Filters == nil {
		return nil
	}
	return q.Filters[table]
}

// Referenced returns the columns a table must produce, or nil when the
// query references the whole row.
func (q *Query) Referenced(table string) []string {
	if q.Columns == nil {
		return nil
	}
	return q.Columns[table]
}
