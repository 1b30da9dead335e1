// Package records defines the values exchanged with the reconciliation engine:
// Sources (payment instruments), Targets (obligations) and the Associations
// linking them.
package records

import (
	"fmt"
	"strings"
	"time"

	"github.com/eshaffer321/settlement-reconciler/internal/domain/money"
)

// SourceState is the lifecycle state of a payment instrument.
type SourceState string

const (
	StateBlank    SourceState = "blank"
	StateFilled   SourceState = "filled"
	StateIssued   SourceState = "issued"
	StateConsumed SourceState = "consumed"
	StateVoid     SourceState = "void"
)

// ParseSourceState parses a state name, case-insensitively.
func ParseSourceState(s string) (SourceState, error) {
	state := SourceState(strings.ToLower(strings.TrimSpace(s)))
	switch state {
	case StateBlank, StateFilled, StateIssued, StateConsumed, StateVoid:
		return state, nil
	}
	return "", fmt.Errorf("unknown source state %q", s)
}

// Spendable reports whether an instrument in this state can settle an obligation.
func (s SourceState) Spendable() bool {
	return s != StateConsumed && s != StateVoid
}

// Source is an available payment instrument (a check, a tax receipt).
type Source struct {
	ID           string      `json:"id"`
	Counterparty string      `json:"counterparty"`
	Amount       money.Money `json:"amount"`
	IssuedDate   *time.Time  `json:"issued_date,omitempty"`
	State        SourceState `json:"state"`
}

// Target is an outstanding obligation (an invoice, a tax filing).
type Target struct {
	ID           string      `json:"id"`
	Counterparty string      `json:"counterparty"`
	Amount       money.Money `json:"amount"`
	DueDate      *time.Time  `json:"due_date,omitempty"`
	Settled      bool        `json:"settled"`
}

// Kind tells how an association was found.
type Kind string

const (
	KindExact    Kind = "exact"
	KindCombined Kind = "combined"
)

// Confidence grades how strongly an association signals true intent.
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// Association links one Target to the Sources that settle it.
type Association struct {
	TargetID      string      `json:"target_id"`
	SourceIDs     []string    `json:"source_ids"`
	MatchedAmount money.Money `json:"matched_amount"`
	Kind          Kind        `json:"kind"`
	Confidence    Confidence  `json:"confidence"`
}

// Date returns a pointer to a UTC midnight date. Convenience for building records.
func Date(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

// DateBefore orders optional dates: earlier first, missing dates last.
// The second result is false when both dates are equal or both missing.
func DateBefore(a, b *time.Time) (before bool, decided bool) {
	switch {
	case a == nil && b == nil:
		return false, false
	case a == nil:
		return false, true
	case b == nil:
		return true, true
	case a.Equal(*b):
		return false, false
	default:
		return a.Before(*b), true
	}
}
