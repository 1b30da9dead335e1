package reconcile

import (
	"sort"

	"github.com/eshaffer321/settlement-reconciler/internal/domain/money"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/pool"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/records"
)

// screened holds the records that passed the guard.
type screened struct {
	sources []records.Source
	targets []records.Target
}

// inferCurrency picks the currency of the first spendable source, or the
// first open target when there is no such source.
func inferCurrency(sources []records.Source, targets []records.Target) string {
	for _, s := range sources {
		if s.ID != "" && s.State.Spendable() && s.Amount.Currency != "" {
			return s.Amount.Currency
		}
	}
	for _, t := range targets {
		if t.ID != "" && !t.Settled && t.Amount.Currency != "" {
			return t.Amount.Currency
		}
	}
	return ""
}

// screen drops records that must not take part in matching and records why.
// Already consumed sources and settled targets are the caller's mistake but
// never fail the run; they are reported so repeated runs stay safe.
func screen(sources []records.Source, targets []records.Target, currency string, stats *Stats) screened {
	out := screened{
		sources: make([]records.Source, 0, len(sources)),
		targets: make([]records.Target, 0, len(targets)),
	}

	invalid := func(id string, side pool.Side, reason InvalidReason) {
		stats.InvalidRecords = append(stats.InvalidRecords, InvalidRecord{ID: id, Side: side, Reason: reason})
	}

	seen := make(map[string]bool, len(sources))
	for _, s := range sources {
		switch {
		case s.ID == "":
			invalid(s.ID, pool.SideSource, ReasonMissingID)
			continue
		case seen[s.ID]:
			invalid(s.ID, pool.SideSource, ReasonDuplicateID)
			continue
		}
		seen[s.ID] = true

		if _, err := records.ParseSourceState(string(s.State)); err != nil {
			invalid(s.ID, pool.SideSource, ReasonUnknownState)
			continue
		}

		switch {
		case s.State == records.StateConsumed:
			stats.SkippedAlreadySettled = append(stats.SkippedAlreadySettled, SkippedRecord{ID: s.ID, Side: pool.SideSource})
		case s.State == records.StateVoid:
			stats.SkippedVoid = append(stats.SkippedVoid, s.ID)
		case !s.Amount.IsPositive():
			invalid(s.ID, pool.SideSource, ReasonNonPositiveAmount)
		case s.Amount.Minor > money.MaxAmount:
			invalid(s.ID, pool.SideSource, ReasonAmountOutOfRange)
		case s.Amount.Currency != currency:
			invalid(s.ID, pool.SideSource, ReasonCurrencyMismatch)
		default:
			out.sources = append(out.sources, s)
		}
	}

	seen = make(map[string]bool, len(targets))
	for _, t := range targets {
		switch {
		case t.ID == "":
			invalid(t.ID, pool.SideTarget, ReasonMissingID)
			continue
		case seen[t.ID]:
			invalid(t.ID, pool.SideTarget, ReasonDuplicateID)
			continue
		}
		seen[t.ID] = true

		switch {
		case t.Settled:
			stats.SkippedAlreadySettled = append(stats.SkippedAlreadySettled, SkippedRecord{ID: t.ID, Side: pool.SideTarget})
		case !t.Amount.IsPositive():
			invalid(t.ID, pool.SideTarget, ReasonNonPositiveAmount)
		case t.Amount.Minor > money.MaxAmount:
			invalid(t.ID, pool.SideTarget, ReasonAmountOutOfRange)
		case t.Amount.Currency != currency:
			invalid(t.ID, pool.SideTarget, ReasonCurrencyMismatch)
		default:
			out.targets = append(out.targets, t)
		}
	}

	return out
}

// sortStats orders every stats list so reports compare byte for byte.
func sortStats(stats *Stats) {
	sort.SliceStable(stats.SkippedAlreadySettled, func(i, j int) bool {
		a, b := stats.SkippedAlreadySettled[i], stats.SkippedAlreadySettled[j]
		if a.Side != b.Side {
			return a.Side < b.Side
		}
		return a.ID < b.ID
	})
	sort.Strings(stats.SkippedVoid)
	sortInvalid(stats.InvalidRecords)
}
