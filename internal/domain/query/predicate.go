package query

import (
	"fmt"
	"strings"
)

// Operator is a comparison operator in a predicate leaf.
type Operator string

const (
	OpEq   Operator = "="
	OpNe   Operator = "!="
	OpLt   Operator = "<"
	OpLe   Operator = "<="
	OpGt   Operator = ">"
	OpGe   Operator = ">="
	OpLike Operator = "LIKE"
	OpIn   Operator = "IN"
)

// Predicate is the closed set of predicate tree nodes the advisor
// understands. The upstream parser/collaborator produces these; the
// advisor never sees raw SQL text.
type Predicate interface {
	predicateNode()
	String() string
}

// Comparison is a leaf predicate: column op operand.
// Value holds the constant operand. RowDependent marks an operand that
// references the row being tested (a column or expression), which makes
// the comparison unusable for an index seek.
type Comparison struct {
	Table        string
	Column       string
	Operator     Operator
	Value        interface{}
	Values       []interface{} // operands for IN
	RowDependent bool
	OperandExpr  string // textual form of a non-constant operand, for diagnostics
}

func (c *Comparison) predicateNode() {}

func (c *Comparison) String() string {
	col := c.Column
	if c.Table != "" {
		col = c.Table + "." + c.Column
	}
	if c.Operator == OpIn {
		parts := make([]string, len(c.Values))
		for i, v := range c.Values {
			parts[i] = formatOperand(v)
		}
		return fmt.Sprintf("%s IN (%s)", col, strings.Join(parts, ", "))
	}
	if c.RowDependent {
		return fmt.Sprintf("%s %s %s", col, c.Operator, c.OperandExpr)
	}
	return fmt.Sprintf("%s %s %s", col, c.Operator, formatOperand(c.Value))
}

// FuncWrapped wraps an inner comparison whose column side has a function,
// arithmetic expression, or type coercion applied to it (lower(col),
// COALESCE(col, x), col + 1, CAST(col AS ...)).
type FuncWrapped struct {
	Func  string
	Inner *Comparison
}

func (f *FuncWrapped) predicateNode() {}

func (f *FuncWrapped) String() string {
	col := f.Inner.Column
	if f.Inner.Table != "" {
		col = f.Inner.Table + "." + f.Inner.Column
	}
	operand := f.Inner.OperandExpr
	if !f.Inner.RowDependent {
		operand = formatOperand(f.Inner.Value)
	}
	return fmt.Sprintf("%s(%s) %s %s", f.Func, col, f.Inner.Operator, operand)
}

// And is a conjunction of predicates.
type And struct {
	Preds []Predicate
}

func (a *And) predicateNode() {}

func (a *And) String() string { return joinPreds(a.Preds, " AND ") }

// Or is a disjunction of predicates.
type Or struct {
	Preds []Predicate
}

func (o *Or) predicateNode() {}

func (o *Or) String() string { return joinPreds(o.Preds, " OR ") }

// Exists marks an EXISTS (subquery) predicate. Correlated subqueries
// re-evaluate per outer row and cannot drive an index seek.
type Exists struct {
	Correlated bool
	Subquery   string // textual form for diagnostics
}

func (e *Exists) predicateNode() {}

func (e *Exists) String() string {
	if e.Subquery != "" {
		return fmt.Sprintf("EXISTS (%s)", e.Subquery)
	}
	return "EXISTS (...)"
}

func joinPreds(preds []Predicate, sep string) string {
	parts := make([]string, len(preds))
	for i, p := range preds {
		parts[i] = p.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

func formatOperand(v interface{}) string {
	switch val := v.(type) {
	case string:
		return "'" + val + "'"
	case nil:
		return "NULL"
	default:
		return fmt.Sprintf("%v", val)
	}
}
