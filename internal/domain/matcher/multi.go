package matcher

import (
	"math"

	"github.com/eshaffer321/settlement-reconciler/internal/domain/money"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/pool"
)

// subsetSearch carries the state of one combination search for one target.
type subsetSearch struct {
	sources   []*pool.SourceCandidate
	want      int64
	tolerance int64
	ceiling   int64
	limit     int

	inspected int
	picked    []int
	found     bool
	aborted   bool
}

// FindCombination searches subsets of sources (already ordered by id) whose
// amounts sum to the target within tolerance. Subsets are tried by increasing
// size from 2 up to MaxCombinationSize, and lexicographically by position
// within a size; the first feasible subset wins.
//
// A non-empty Reason is returned when the target is left unmatched for a
// reportable cause (search aborted, or too many components).
func (m *Matcher) FindCombination(target *pool.TargetCandidate, sources []*pool.SourceCandidate) ([]*pool.SourceCandidate, Reason) {
	maxSize := m.config.MaxCombinationSize
	if maxSize > len(sources) {
		maxSize = len(sources)
	}

	search := &subsetSearch{
		sources:   sources,
		want:      target.Amount.Minor,
		tolerance: m.config.ToleranceMinorUnits,
		ceiling:   ceiling(target.Amount.Minor, m.config.ToleranceMinorUnits),
		limit:     m.config.MaxSubsetsPerTarget,
	}

	for size := 2; size <= maxSize; size++ {
		search.picked = search.picked[:0]
		search.walk(0, 0, size)

		if search.aborted {
			return nil, ReasonSearchAborted
		}
		if search.found {
			subset := make([]*pool.SourceCandidate, 0, size)
			for _, i := range search.picked {
				subset = append(subset, sources[i])
			}
			return subset, ""
		}
	}

	if len(sources) > m.config.MaxCombinationSize && m.allAddUp(target, sources) {
		return nil, ReasonTooManyComponents
	}

	return nil, ""
}

// ceiling is the largest sum that can still settle want, saturated at MaxInt64.
func ceiling(want, tolerance int64) int64 {
	if want > math.MaxInt64-tolerance {
		return math.MaxInt64
	}
	return want + tolerance
}

// walk extends the current pick with sources from start onwards.
// Amounts are positive, so a partial sum above the ceiling can be dropped
// without losing any feasible subset. sum never exceeds the ceiling, which
// keeps every partial sum inside int64.
func (s *subsetSearch) walk(start int, sum int64, size int) {
	if len(s.picked) == size {
		diff := sum - s.want
		if diff < 0 {
			diff = -diff
		}
		s.found = diff <= s.tolerance
		return
	}

	remaining := size - len(s.picked)
	for i := start; i <= len(s.sources)-remaining; i++ {
		amount := s.sources[i].Amount.Minor
		if amount > s.ceiling-sum {
			continue
		}
		next := sum + amount

		s.inspected++
		if s.inspected > s.limit {
			s.aborted = true
			return
		}

		s.picked = append(s.picked, i)
		s.walk(i+1, next, size)
		if s.found || s.aborted {
			return
		}
		s.picked = s.picked[:len(s.picked)-1]
	}
}

// allAddUp reports whether every remaining source together settles the target.
func (m *Matcher) allAddUp(target *pool.TargetCandidate, sources []*pool.SourceCandidate) bool {
	total, err := sumOf(target.Amount.Currency, sources)
	if err != nil {
		return false
	}
	return total.EqualWithin(target.Amount, m.config.ToleranceMinorUnits)
}

func sumOf(currency string, sources []*pool.SourceCandidate) (money.Money, error) {
	amounts := make([]money.Money, 0, len(sources))
	for _, s := range sources {
		amounts = append(amounts, s.Amount)
	}
	return money.Sum(currency, amounts...)
}
