package advisor

import "fmt"

// FindingKind classifies one advisory observation.
type FindingKind string

const (
	FindingNonSargablePredicate   FindingKind = "non_sargable_predicate"
	FindingMissingIndex           FindingKind = "missing_index"
	FindingUnindexedForeignKey    FindingKind = "unindexed_foreign_key"
	FindingSuboptimalJoinOrder    FindingKind = "suboptimal_join_order"
	FindingSpillRisk              FindingKind = "spill_risk"
	FindingStatisticsStale        FindingKind = "statistics_stale"
	FindingNoFeasibleJoinStrategy FindingKind = "no_feasible_join_strategy"
	FindingEnumerationTruncated   FindingKind = "enumeration_truncated"
)

// Finding is one derived, read-only observation about the analyzed query:
// what is wrong (or risky), where, why, and what to do about it.
type Finding struct {
	Kind        FindingKind `json:"kind"`
	Table       string      `json:"table,omitempty"`
	Column      string      `json:"column,omitempty"`
	Rationale   string      `json:"rationale"`
	Remediation string      `json:"remediation,omitempty"`
}

func (f Finding) String() string {
	loc := f.Table
	if f.Column != "" {
		loc = f.Table + "." + f.Column
	}
	if loc != "" {
		return fmt.Sprintf("[%s] %s: %s", f.Kind, loc, f.Rationale)
	}
	return fmt.Sprintf("[%s] %s", f.Kind, f.Rationale)
}
