package catalog

import "fmt"

// UnknownTableError is returned when a statistics lookup names a table the
// snapshot does not contain. Fatal to the affected analysis.
type UnknownTableError struct {
	Table string
}

func (e *UnknownTableError) Error() string {
	return fmt.Sprintf("unknown table: %s", e.Table)
}

// UnknownColumnError is returned when a predicate or join references a
// column the snapshot does not track for its table.
type UnknownColumnError struct {
	Table  string
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column: %s.%s", e.Table, e.Column)
}
