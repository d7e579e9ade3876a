// Package sargable classifies predicates against candidate indexes:
// whether a predicate shape can drive an index seek (Search ARGument
// ABLE), and if so how much of the index key prefix it binds.
package sargable

import (
	"strings"

	"github.com/leengari/query-advisor/internal/domain/catalog"
	"github.com/leengari/query-advisor/internal/domain/query"
)

// AccessKind describes how the bound key prefix is used.
type AccessKind string

const (
	AccessEquality   AccessKind = "equality"
	AccessRange      AccessKind = "range"
	AccessPrefixLike AccessKind = "prefix_like"
)

// BoundColumn is one index key column bound by the predicate.
type BoundColumn struct {
	Column string
	Access AccessKind
	Leaf   *query.Comparison
}

// Classification is the result of matching a predicate against one index.
type Classification struct {
	Sargable     bool
	KeyPrefixLen int
	Access       AccessKind // access kind of the deepest bound column
	Bound        []BoundColumn
	Reason       string // rejection reason when not sargable
}

const (
	ReasonFunctionOnColumn = "function on column"
	ReasonLeadingWildcard  = "leading wildcard - operand cannot bound a seek range"
	ReasonRowDependent     = "operand depends on the row being tested"
	ReasonNoLeadingColumn  = "no usable predicate on leading index column"
	ReasonMixedDisjunction = "disjunction branches bind different index prefixes"
	ReasonPartialIndex     = "partial index predicate may exclude matching rows"
)

// Classify matches a predicate tree against a candidate index and reports
// the key prefix it can bind. Matching walks the index key columns in
// order: equality leaves extend the prefix, the first range or prefix-LIKE
// leaf consumes the seek and ends it. Key columns after a range-bound
// column are only post-filtered, never bound.
func Classify(pred query.Predicate, idx *catalog.Index) Classification {
	if pred == nil || idx == nil || len(idx.KeyColumns) == 0 {
		return Classification{Reason: ReasonNoLeadingColumn}
	}

	// A partial index only holds rows its own predicate admits. Without
	// proving the query predicate implies it, a seek could miss rows, so
	// partial indexes never bind.
	if idx.Partial != "" {
		return Classification{Reason: ReasonPartialIndex}
	}

	if or, ok := pred.(*query.Or); ok {
		return classifyDisjunction(or, idx)
	}

	leaves, rejections := seekableLeaves(pred)

	var bound []BoundColumn
	for _, keyCol := range idx.KeyColumns {
		if leaf := findEquality(leaves, keyCol); leaf != nil {
			bound = append(bound, BoundColumn{Column: keyCol, Access: AccessEquality, Leaf: leaf})
			continue
		}
		if leaf, access := findRange(leaves, keyCol); leaf != nil {
			bound = append(bound, BoundColumn{Column: keyCol, Access: access, Leaf: leaf})
		}
		// Only one range-bound column consumes the seek; stop either way.
		break
	}

	if len(bound) == 0 {
		return Classification{Reason: rejectionReason(rejections, idx.LeadingColumn())}
	}

	return Classification{
		Sargable:     true,
		KeyPrefixLen: len(bound),
		Access:       bound[len(bound)-1].Access,
		Bound:        bound,
	}
}

// classifyDisjunction accepts an OR only when every branch independently
// binds the same index prefix with the same access kind. Anything else is
// a full-scan driver (possibly a bitmap candidate, see BitmapCandidates).
func classifyDisjunction(or *query.Or, idx *catalog.Index) Classification {
	if len(or.Preds) == 0 {
		return Classification{Reason: ReasonNoLeadingColumn}
	}

	first := Classify(or.Preds[0], idx)
	if !first.Sargable {
		return first
	}
	for _, branch := range or.Preds[1:] {
		c := Classify(branch, idx)
		if !c.Sargable || c.KeyPrefixLen != first.KeyPrefixLen || c.Access != first.Access {
			return Classification{Reason: ReasonMixedDisjunction}
		}
	}
	return first
}

// BitmapCandidates reports whether each branch of a disjunction binds its
// own single-column index, enabling an OR-to-bitmap-union strategy, and
// returns the index names involved.
func BitmapCandidates(or *query.Or, table *catalog.Table) ([]string, bool) {
	if or == nil || len(or.Preds) < 2 {
		return nil, false
	}

	seen := make(map[string]bool)
	var indexes []string
	for _, branch := range or.Preds {
		found := ""
		for _, idx := range table.Indexes {
			if len(idx.KeyColumns) != 1 {
				continue
			}
			if c := Classify(branch, idx); c.Sargable {
				found = idx.Name
				break
			}
		}
		if found == "" {
			return nil, false
		}
		if !seen[found] {
			seen[found] = true
			indexes = append(indexes, found)
		}
	}
	return indexes, true
}

// seekableLeaves flattens conjunctions into the comparison leaves that can
// participate in a seek, collecting rejections for everything that cannot.
func seekableLeaves(pred query.Predicate) ([]*query.Comparison, []Rejection) {
	var leaves []*query.Comparison
	var rejections []Rejection

	var walk func(p query.Predicate)
	walk = func(p query.Predicate) {
		switch node := p.(type) {
		case *query.Comparison:
			if node.RowDependent {
				rejections = append(rejections, Rejection{
					Column: node.Column, Pred: node, Reason: ReasonRowDependent,
				})
				return
			}
			if node.Operator == query.OpLike {
				if pattern, ok := node.Value.(string); !ok || strings.HasPrefix(pattern, "%") || strings.HasPrefix(pattern, "_") {
					rejections = append(rejections, Rejection{
						Column: node.Column, Pred: node, Reason: ReasonLeadingWildcard,
					})
					return
				}
			}
			leaves = append(leaves, node)
		case *query.FuncWrapped:
			// The rewrite that moves the function to the constant side, if
			// one exists, is a different predicate this classifier would
			// need to receive. The wrapped form never binds.
			rejections = append(rejections, Rejection{
				Column: node.Inner.Column, Function: node.Func, Pred: node,
				Reason: ReasonFunctionOnColumn,
			})
		case *query.And:
			for _, child := range node.Preds {
				walk(child)
			}
		case *query.Or, *query.Exists:
			// Not a seekable conjunct in this position.
		}
	}
	walk(pred)

	return leaves, rejections
}

func findEquality(leaves []*query.Comparison, column string) *query.Comparison {
	for _, leaf := range leaves {
		if leaf.Column != column {
			continue
		}
		// IN is a batched equality seek and keeps the prefix usable.
		if leaf.Operator == query.OpEq || leaf.Operator == query.OpIn {
			return leaf
		}
	}
	return nil
}

func findRange(leaves []*query.Comparison, column string) (*query.Comparison, AccessKind) {
	for _, leaf := range leaves {
		if leaf.Column != column {
			continue
		}
		switch leaf.Operator {
		case query.OpLt, query.OpLe, query.OpGt, query.OpGe:
			return leaf, AccessRange
		case query.OpLike:
			return leaf, AccessPrefixLike
		}
	}
	return nil, AccessRange
}

func rejectionReason(rejections []Rejection, leadingColumn string) string {
	for _, r := range rejections {
		if r.Column == leadingColumn {
			return r.Reason
		}
	}
	return ReasonNoLeadingColumn
}
