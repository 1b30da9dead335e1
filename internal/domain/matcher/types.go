package matcher

import (
	"github.com/eshaffer321/settlement-reconciler/internal/domain/money"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/records"
)

// Config holds matcher configuration
type Config struct {
	ToleranceMinorUnits int64 // Default: 1 (1 cent)
	MaxCombinationSize  int   // Max sources per combined match (default: 4)
	MaxSubsetsPerTarget int   // Subsets inspected before giving up on a target (default: 100000)
}

// DefaultMaxCombinationSize matches the business rule of at most 4 checks per invoice.
const DefaultMaxCombinationSize = 4

// DefaultMaxSubsetsPerTarget bounds the combinatorial search for one target.
const DefaultMaxSubsetsPerTarget = 100000

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		ToleranceMinorUnits: money.DefaultTolerance,
		MaxCombinationSize:  DefaultMaxCombinationSize,
		MaxSubsetsPerTarget: DefaultMaxSubsetsPerTarget,
	}
}

// Reason explains why a target was left unmatched when that is worth reporting.
type Reason string

const (
	// ReasonTooManyComponents: the remaining sources add up to the target but
	// there are more of them than MaxCombinationSize allows.
	ReasonTooManyComponents Reason = "too_many_components"

	// ReasonSearchAborted: the subset search hit MaxSubsetsPerTarget.
	ReasonSearchAborted Reason = "search_aborted"
)

// Flag records a reported reason for an unmatched target.
type Flag struct {
	TargetID string `json:"target_id"`
	Reason   Reason `json:"reason"`
}

// GroupResult contains the matches proposed for one counterparty group.
type GroupResult struct {
	Associations []records.Association
	Flags        []Flag
}
