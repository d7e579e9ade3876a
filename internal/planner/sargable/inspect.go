package sargable

import (
	"strings"

	"github.com/leengari/query-advisor/internal/domain/query"
)

// Rejection records why a predicate (or part of one) cannot drive an
// index seek, independent of any particular index.
type Rejection struct {
	Table    string
	Column   string
	Function string // wrapping function name, when the reason is function-on-column
	Pred     query.Predicate
	Reason   string
}

// Inspect walks a predicate tree and reports every leaf whose shape rules
// out an index seek regardless of which indexes exist. The advisor turns
// these into non-SARGable findings with rewrite suggestions.
func Inspect(table string, pred query.Predicate) []Rejection {
	var out []Rejection

	var walk func(p query.Predicate)
	walk = func(p query.Predicate) {
		switch node := p.(type) {
		case *query.Comparison:
			if node.RowDependent {
				out = append(out, Rejection{
					Table: table, Column: node.Column, Pred: node, Reason: ReasonRowDependent,
				})
				return
			}
			if node.Operator == query.OpLike {
				if pattern, ok := node.Value.(string); !ok || strings.HasPrefix(pattern, "%") || strings.HasPrefix(pattern, "_") {
					out = append(out, Rejection{
						Table: table, Column: node.Column, Pred: node, Reason: ReasonLeadingWildcard,
					})
				}
			}
		case *query.FuncWrapped:
			out = append(out, Rejection{
				Table: table, Column: node.Inner.Column, Function: node.Func,
				Pred: node, Reason: ReasonFunctionOnColumn,
			})
		case *query.And:
			for _, child := range node.Preds {
				walk(child)
			}
		case *query.Or:
			for _, child := range node.Preds {
				walk(child)
			}
		case *query.Exists:
			if node.Correlated {
				out = append(out, Rejection{
					Table: table, Pred: node, Reason: "correlated subquery re-evaluates per row",
				})
			}
		}
	}
	if pred != nil {
		walk(pred)
	}

	return out
}
