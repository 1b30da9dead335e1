// Package matcher finds which Sources settle which Targets inside one
// counterparty group.
//
// The matcher uses strict, deterministic criteria:
//   - Amount must match within the tolerance (default 1 cent)
//   - A source or target is used at most once (pool reservations)
//   - Exact single matches are tried for every target before any combination
//
// Example usage:
//
//	m := matcher.NewMatcher(matcher.DefaultConfig())
//	for _, group := range p.GroupsByCounterparty() {
//		result := m.MatchGroup(group)
//		// result.Associations, result.Flags
//	}
package matcher

import (
	"sort"

	"github.com/eshaffer321/settlement-reconciler/internal/domain/pool"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/records"
)

// Matcher matches Targets with Sources
type Matcher struct {
	config Config
}

// NewMatcher creates a new matcher with the given config.
// Zero limits fall back to the defaults.
func NewMatcher(config Config) *Matcher {
	if config.MaxCombinationSize <= 0 {
		config.MaxCombinationSize = DefaultMaxCombinationSize
	}
	if config.MaxSubsetsPerTarget <= 0 {
		config.MaxSubsetsPerTarget = DefaultMaxSubsetsPerTarget
	}
	return &Matcher{
		config: config,
	}
}

// Config returns the effective configuration.
func (m *Matcher) Config() Config {
	return m.config
}

// MatchGroup proposes associations for one group and reserves the matched
// candidates. Exact matches are found for all targets first, then the
// remaining targets are tried against combinations of remaining sources.
func (m *Matcher) MatchGroup(group *pool.Group) GroupResult {
	result := GroupResult{}
	targets := byUrgency(group.Targets)

	// Pass 1: exact single matches
	for _, target := range targets {
		if target.Reserved() || !target.Amount.IsPositive() {
			continue
		}

		source := m.FindExact(target, group.Sources)
		if source == nil {
			continue
		}

		target.Reserve()
		source.Reserve()
		result.Associations = append(result.Associations, records.Association{
			TargetID:      target.ID,
			SourceIDs:     []string{source.ID},
			MatchedAmount: source.Amount,
			Kind:          records.KindExact,
			Confidence:    records.ConfidenceHigh,
		})
	}

	// Pass 2: combinations for whatever is left
	for _, target := range targets {
		if target.Reserved() || !target.Amount.IsPositive() {
			continue
		}

		subset, reason := m.FindCombination(target, available(group.Sources))
		if reason != "" {
			result.Flags = append(result.Flags, Flag{TargetID: target.ID, Reason: reason})
			continue
		}
		if subset == nil {
			continue
		}

		matched, err := sumOf(target.Amount.Currency, subset)
		if err != nil {
			continue
		}

		target.Reserve()
		ids := make([]string, 0, len(subset))
		for _, s := range subset {
			s.Reserve()
			ids = append(ids, s.ID)
		}

		result.Associations = append(result.Associations, records.Association{
			TargetID:      target.ID,
			SourceIDs:     ids,
			MatchedAmount: matched,
			Kind:          records.KindCombined,
			Confidence:    records.ConfidenceLow,
		})
	}

	return result
}

// FindExact finds the best single source for a target.
// Returns nil if no source is within tolerance.
//
// Among sources within tolerance the smallest difference wins, then the
// earliest issued date, then the lowest id.
func (m *Matcher) FindExact(target *pool.TargetCandidate, sources []*pool.SourceCandidate) *pool.SourceCandidate {
	var best *pool.SourceCandidate
	var bestDiff int64

	for _, s := range sources {
		// Skip if already used in this run
		if s.Reserved() || !s.Amount.IsPositive() {
			continue
		}

		if !s.Amount.EqualWithin(target.Amount, m.config.ToleranceMinorUnits) {
			continue
		}

		diff := s.Amount.Sub(target.Amount).Abs().Minor
		if best == nil || diff < bestDiff || (diff == bestDiff && issuedFirst(s, best)) {
			best = s
			bestDiff = diff
		}
	}

	return best
}

// byUrgency returns targets ordered earliest due date first, undated last,
// then by id.
func byUrgency(targets []*pool.TargetCandidate) []*pool.TargetCandidate {
	sorted := make([]*pool.TargetCandidate, len(targets))
	copy(sorted, targets)
	sort.SliceStable(sorted, func(i, j int) bool {
		if before, decided := records.DateBefore(sorted[i].DueDate, sorted[j].DueDate); decided {
			return before
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// issuedFirst orders sources by earliest issued date, undated last, then id.
func issuedFirst(a, b *pool.SourceCandidate) bool {
	if before, decided := records.DateBefore(a.IssuedDate, b.IssuedDate); decided {
		return before
	}
	return a.ID < b.ID
}

// available returns unreserved sources with a positive amount, ordered by id.
func available(sources []*pool.SourceCandidate) []*pool.SourceCandidate {
	out := make([]*pool.SourceCandidate, 0, len(sources))
	for _, s := range sources {
		if !s.Reserved() && s.Amount.IsPositive() {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}
