package reconcile

import (
	"sort"

	"github.com/eshaffer321/settlement-reconciler/internal/domain/matcher"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/money"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/pool"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/records"
)

// InvalidReason explains why a record was rejected before matching.
type InvalidReason string

const (
	ReasonMissingID             InvalidReason = "missing_id"
	ReasonDuplicateID           InvalidReason = "duplicate_id"
	ReasonUnknownState          InvalidReason = "unknown_state"
	ReasonNonPositiveAmount     InvalidReason = "non_positive_amount"
	ReasonAmountOutOfRange      InvalidReason = "amount_out_of_range"
	ReasonCurrencyMismatch      InvalidReason = "currency_mismatch"
	ReasonMalformedCounterparty InvalidReason = "malformed_counterparty"

	// ReasonUnparseable marks records whose amount or date could not be
	// read before they reached the engine.
	ReasonUnparseable InvalidReason = "unparseable"
)

// InvalidRecord is a record rejected by input validation.
type InvalidRecord struct {
	ID     string        `json:"id"`
	Side   pool.Side     `json:"side"`
	Reason InvalidReason `json:"reason"`
	Detail string        `json:"detail,omitempty"`
}

// SkippedRecord is a record excluded from matching without being an error.
type SkippedRecord struct {
	ID   string    `json:"id"`
	Side pool.Side `json:"side"`
}

// Stats summarizes a run.
type Stats struct {
	ExactCount         int         `json:"exact_count"`
	CombinedCount      int         `json:"combined_count"`
	TotalMatchedAmount money.Money `json:"total_matched_amount"`

	// SkippedAlreadySettled lists consumed sources and settled targets found in the input.
	SkippedAlreadySettled []SkippedRecord `json:"skipped_already_settled"`

	// SkippedVoid lists void sources.
	SkippedVoid []string `json:"skipped_void"`

	InvalidRecords []InvalidRecord `json:"invalid_records"`

	// Flags carry the reason a target was left unmatched, when there is one.
	Flags []matcher.Flag `json:"flags"`
}

// Report is the result of one reconciliation run.
type Report struct {
	Associations     []records.Association `json:"associations"`
	UnmatchedSources []string              `json:"unmatched_sources"`
	UnmatchedTargets []string              `json:"unmatched_targets"`
	Stats            Stats                 `json:"stats"`
}

func newReport(currency string) *Report {
	return &Report{
		Associations:     make([]records.Association, 0),
		UnmatchedSources: make([]string, 0),
		UnmatchedTargets: make([]string, 0),
		Stats: Stats{
			TotalMatchedAmount:    money.Zero(currency),
			SkippedAlreadySettled: make([]SkippedRecord, 0),
			SkippedVoid:           make([]string, 0),
			InvalidRecords:        make([]InvalidRecord, 0),
			Flags:                 make([]matcher.Flag, 0),
		},
	}
}

// AddInvalid reports records rejected before the run, keeping the list
// ordered by side and id.
func (r *Report) AddInvalid(rejected ...InvalidRecord) {
	if len(rejected) == 0 {
		return
	}
	r.Stats.InvalidRecords = append(r.Stats.InvalidRecords, rejected...)
	sortInvalid(r.Stats.InvalidRecords)
}

func sortInvalid(invalid []InvalidRecord) {
	sort.SliceStable(invalid, func(i, j int) bool {
		a, b := invalid[i], invalid[j]
		if a.Side != b.Side {
			return a.Side < b.Side
		}
		return a.ID < b.ID
	})
}

// MatchedCount returns the number of associations.
func (r *Report) MatchedCount() int {
	return len(r.Associations)
}

// SkippedCount returns how many records were excluded as already settled or void.
func (r *Report) SkippedCount() int {
	return len(r.Stats.SkippedAlreadySettled) + len(r.Stats.SkippedVoid)
}

// FlagCount returns how many targets were flagged with the given reason.
func (r *Report) FlagCount(reason matcher.Reason) int {
	n := 0
	for _, f := range r.Stats.Flags {
		if f.Reason == reason {
			n++
		}
	}
	return n
}

// FlagFor returns the flag recorded for a target, if any.
func (r *Report) FlagFor(targetID string) (matcher.Flag, bool) {
	for _, f := range r.Stats.Flags {
		if f.TargetID == targetID {
			return f, true
		}
	}
	return matcher.Flag{}, false
}

// AssociationFor returns the association settling a target, if any.
func (r *Report) AssociationFor(targetID string) (records.Association, bool) {
	for _, a := range r.Associations {
		if a.TargetID == targetID {
			return a, true
		}
	}
	return records.Association{}, false
}
