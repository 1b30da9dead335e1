// Package resolver arbitrates the associations proposed by the matcher and
// checks the invariants a reconciliation result must hold.
//
// Groups are matched independently and no record belongs to two groups, so
// overlapping proposals cannot happen today. The resolver still verifies it:
// a violation means a programming defect and is reported as ErrInconsistent
// rather than silently producing a double-counted report.
package resolver

import (
	"errors"
	"fmt"

	"github.com/eshaffer321/settlement-reconciler/internal/domain/money"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/records"
)

// ErrInconsistent signals an internal consistency violation. It is fatal for the run.
var ErrInconsistent = errors.New("internal consistency error")

// Resolver validates proposed associations against the records of a run.
type Resolver struct {
	tolerance     int64
	maxComponents int
	sourceAmounts map[string]money.Money
	targetAmounts map[string]money.Money
}

// NewResolver creates a resolver for the eligible records of one run.
func NewResolver(sources []records.Source, targets []records.Target, tolerance int64, maxComponents int) *Resolver {
	r := &Resolver{
		tolerance:     tolerance,
		maxComponents: maxComponents,
		sourceAmounts: make(map[string]money.Money, len(sources)),
		targetAmounts: make(map[string]money.Money, len(targets)),
	}
	for _, s := range sources {
		r.sourceAmounts[s.ID] = s.Amount
	}
	for _, t := range targets {
		r.targetAmounts[t.ID] = t.Amount
	}
	return r
}

// Resolve accepts candidates in priority order and returns them once every
// invariant holds. Any overlap or conservation failure aborts with ErrInconsistent.
func (r *Resolver) Resolve(candidates []records.Association) ([]records.Association, error) {
	usedSources := make(map[string]string)
	usedTargets := make(map[string]bool)
	accepted := make([]records.Association, 0, len(candidates))

	for _, c := range candidates {
		if err := r.check(c); err != nil {
			return nil, err
		}

		if usedTargets[c.TargetID] {
			return nil, fmt.Errorf("%w: target %s appears in more than one association", ErrInconsistent, c.TargetID)
		}
		for _, id := range c.SourceIDs {
			if other, ok := usedSources[id]; ok {
				return nil, fmt.Errorf("%w: source %s settles both target %s and %s", ErrInconsistent, id, other, c.TargetID)
			}
		}

		usedTargets[c.TargetID] = true
		for _, id := range c.SourceIDs {
			usedSources[id] = c.TargetID
		}
		accepted = append(accepted, c)
	}

	return accepted, nil
}

// check verifies a single association in isolation.
func (r *Resolver) check(c records.Association) error {
	target, ok := r.targetAmounts[c.TargetID]
	if !ok {
		return fmt.Errorf("%w: association references unknown target %s", ErrInconsistent, c.TargetID)
	}

	n := len(c.SourceIDs)
	if n == 0 || (n > 1 && n > r.maxComponents) {
		return fmt.Errorf("%w: target %s has %d sources (limit %d)", ErrInconsistent, c.TargetID, n, r.maxComponents)
	}
	switch {
	case n == 1 && c.Kind != records.KindExact:
		return fmt.Errorf("%w: single-source association for %s has kind %s", ErrInconsistent, c.TargetID, c.Kind)
	case n > 1 && c.Kind != records.KindCombined:
		return fmt.Errorf("%w: multi-source association for %s has kind %s", ErrInconsistent, c.TargetID, c.Kind)
	}

	seen := make(map[string]bool, n)
	amounts := make([]money.Money, 0, n)
	for _, id := range c.SourceIDs {
		if seen[id] {
			return fmt.Errorf("%w: source %s repeated in association for %s", ErrInconsistent, id, c.TargetID)
		}
		seen[id] = true

		amount, ok := r.sourceAmounts[id]
		if !ok {
			return fmt.Errorf("%w: association for %s references unknown source %s", ErrInconsistent, c.TargetID, id)
		}
		amounts = append(amounts, amount)
	}

	sum, err := money.Sum(c.MatchedAmount.Currency, amounts...)
	if err != nil {
		return fmt.Errorf("%w: association for %s: %v", ErrInconsistent, c.TargetID, err)
	}
	if !sum.Equal(c.MatchedAmount) {
		return fmt.Errorf("%w: sources for %s sum to %s, association says %s", ErrInconsistent, c.TargetID, sum, c.MatchedAmount)
	}
	if !c.MatchedAmount.IsPositive() {
		return fmt.Errorf("%w: association for %s has non-positive amount %s", ErrInconsistent, c.TargetID, c.MatchedAmount)
	}
	if !c.MatchedAmount.EqualWithin(target, r.tolerance) {
		return fmt.Errorf("%w: matched %s is outside tolerance of target %s (%s)", ErrInconsistent, c.MatchedAmount, c.TargetID, target)
	}

	return nil
}
