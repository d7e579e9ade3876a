package plan

import (
	"fmt"
	"strings"
)

// Node is the base interface for all candidate plan nodes. The variant set
// is closed: SeqScan, IndexScan, IndexOnlyScan, BitmapScan, NestedLoop,
// HashJoin, MergeJoin. Nodes are built during enumeration and never
// mutated afterwards; re-evaluation rebuilds trees instead of patching.
type Node interface {
	// Children returns child nodes for tree walking
	Children() []Node

	// NodeType returns the type identifier (for debugging/logging)
	NodeType() string

	// Cost returns the estimated total cost of the node
	Cost() float64

	// Rows returns the estimated output cardinality
	Rows() float64

	// Describe returns a one-line human-readable summary
	Describe() string

	// Metadata returns attached metadata (never nil)
	Metadata() map[string]any
}

type base struct {
	cost     float64
	rows     float64
	metadata map[string]any
}

func (b *base) Cost() float64 { return b.cost }
func (b *base) Rows() float64 { return b.rows }

func (b *base) Metadata() map[string]any {
	if b.metadata == nil {
		b.metadata = make(map[string]any)
	}
	return b.metadata
}

// SeqScanNode reads every heap page of a table (leaf node).
type SeqScanNode struct {
	Table string
	base
}

func NewSeqScan(table string, cost, rows float64) *SeqScanNode {
	return &SeqScanNode{Table: table, base: base{cost: cost, rows: rows}}
}

func (n *SeqScanNode) Children() []Node { return nil }
func (n *SeqScanNode) NodeType() string { return "SEQ_SCAN" }
func (n *SeqScanNode) Describe() string {
	return fmt.Sprintf("SEQ_SCAN %s", n.Table)
}

// IndexScanNode seeks an index and fetches matching heap rows (leaf node).
type IndexScanNode struct {
	Table        string
	Index        string
	KeyPrefixLen int
	base
}

func NewIndexScan(table, index string, keyPrefixLen int, cost, rows float64) *IndexScanNode {
	return &IndexScanNode{
		Table:        table,
		Index:        index,
		KeyPrefixLen: keyPrefixLen,
		base:         base{cost: cost, rows: rows},
	}
}

func (n *IndexScanNode) Children() []Node { return nil }
func (n *IndexScanNode) NodeType() string { return "INDEX_SCAN" }
func (n *IndexScanNode) Describe() string {
	return fmt.Sprintf("INDEX_SCAN %s using %s (key prefix %d)", n.Table, n.Index, n.KeyPrefixLen)
}

// IndexOnlyScanNode answers the query from the index alone; the index
// covers every referenced column so no heap fetch happens (leaf node).
type IndexOnlyScanNode struct {
	Table        string
	Index        string
	KeyPrefixLen int
	base
}

func NewIndexOnlyScan(table, index string, keyPrefixLen int, cost, rows float64) *IndexOnlyScanNode {
	return &IndexOnlyScanNode{
		Table:        table,
		Index:        index,
		KeyPrefixLen: keyPrefixLen,
		base:         base{cost: cost, rows: rows},
	}
}

func (n *IndexOnlyScanNode) Children() []Node { return nil }
func (n *IndexOnlyScanNode) NodeType() string { return "INDEX_ONLY_SCAN" }
func (n *IndexOnlyScanNode) Describe() string {
	return fmt.Sprintf("INDEX_ONLY_SCAN %s using %s (key prefix %d)", n.Table, n.Index, n.KeyPrefixLen)
}

// BitmapScanNode builds row bitmaps from one or more indexes, ORs them
// together, and reads matching heap pages in physical order (leaf node).
type BitmapScanNode struct {
	Table   string
	Indexes []string
	base
}

func NewBitmapScan(table string, indexes []string, cost, rows float64) *BitmapScanNode {
	return &BitmapScanNode{Table: table, Indexes: indexes, base: base{cost: cost, rows: rows}}
}

func (n *BitmapScanNode) Children() []Node { return nil }
func (n *BitmapScanNode) NodeType() string { return "BITMAP_SCAN" }
func (n *BitmapScanNode) Describe() string {
	return fmt.Sprintf("BITMAP_SCAN %s using %s", n.Table, strings.Join(n.Indexes, ", "))
}

// NestedLoopNode probes the inner side once per outer row.
// InnerIndex names the inner-side index driving each probe; empty means a
// full inner rescan per probe, which degrades quadratically.
type NestedLoopNode struct {
	JoinColumn string
	InnerIndex string
	outer      Node
	inner      Node
	base
}

func NewNestedLoop(outer, inner Node, joinColumn, innerIndex string, cost, rows float64) *NestedLoopNode {
	return &NestedLoopNode{
		JoinColumn: joinColumn,
		InnerIndex: innerIndex,
		outer:      outer,
		inner:      inner,
		base:       base{cost: cost, rows: rows},
	}
}

func (n *NestedLoopNode) Outer() Node      { return n.outer }
func (n *NestedLoopNode) Inner() Node      { return n.inner }
func (n *NestedLoopNode) Children() []Node { return []Node{n.outer, n.inner} }
func (n *NestedLoopNode) NodeType() string { return "NESTED_LOOP" }
func (n *NestedLoopNode) Describe() string {
	if n.InnerIndex == "" {
		return "NESTED_LOOP (inner rescan)"
	}
	return fmt.Sprintf("NESTED_LOOP (inner probe via %s)", n.InnerIndex)
}

// HashJoinNode builds a hash table from the build side and probes it with
// the probe side. Spill marks a build side estimated over the memory budget.
type HashJoinNode struct {
	JoinColumn string
	Spill      bool
	build      Node
	probe      Node
	base
}

func NewHashJoin(build, probe Node, joinColumn string, spill bool, cost, rows float64) *HashJoinNode {
	return &HashJoinNode{
		JoinColumn: joinColumn,
		Spill:      spill,
		build:      build,
		probe:      probe,
		base:       base{cost: cost, rows: rows},
	}
}

func (n *HashJoinNode) Build() Node      { return n.build }
func (n *HashJoinNode) Probe() Node      { return n.probe }
func (n *HashJoinNode) Children() []Node { return []Node{n.build, n.probe} }
func (n *HashJoinNode) NodeType() string { return "HASH_JOIN" }
func (n *HashJoinNode) Describe() string {
	if n.Spill {
		return fmt.Sprintf("HASH_JOIN on %s (build exceeds memory budget, spill expected)", n.JoinColumn)
	}
	return fmt.Sprintf("HASH_JOIN on %s", n.JoinColumn)
}

// MergeJoinNode merges two inputs ordered by the join key. SortLeft and
// SortRight mark sides that need an explicit sort because no index already
// delivers the required order.
type MergeJoinNode struct {
	JoinColumn string
	SortLeft   bool
	SortRight  bool
	left       Node
	right      Node
	base
}

func NewMergeJoin(left, right Node, joinColumn string, sortLeft, sortRight bool, cost, rows float64) *MergeJoinNode {
	return &MergeJoinNode{
		JoinColumn: joinColumn,
		SortLeft:   sortLeft,
		SortRight:  sortRight,
		left:       left,
		right:      right,
		base:       base{cost: cost, rows: rows},
	}
}

func (n *MergeJoinNode) Left() Node       { return n.left }
func (n *MergeJoinNode) Right() Node      { return n.right }
func (n *MergeJoinNode) Children() []Node { return []Node{n.left, n.right} }
func (n *MergeJoinNode) NodeType() string { return "MERGE_JOIN" }
func (n *MergeJoinNode) Describe() string {
	sorts := ""
	switch {
	case n.SortLeft && n.SortRight:
		sorts = " (sort both sides)"
	case n.SortLeft:
		sorts = " (sort left side)"
	case n.SortRight:
		sorts = " (sort right side)"
	}
	return fmt.Sprintf("MERGE_JOIN on %s%s", n.JoinColumn, sorts)
}
