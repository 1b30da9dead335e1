// Package reconcile runs one full reconciliation pass: it screens the input
// records, groups them by counterparty, matches each group and returns a
// Report of the proposed associations.
//
// A run is a pure function of its inputs. It performs no I/O and never
// modifies the records it is given; persisting the associations and marking
// records as consumed or settled is up to the caller.
//
// Example usage:
//
//	report, err := reconcile.Run(sources, targets, reconcile.DefaultOptions())
//	if err != nil {
//		// only internal consistency errors and bad options end up here
//	}
//	for _, a := range report.Associations {
//		// persist a
//	}
package reconcile

import (
	"fmt"
	"log/slog"

	"github.com/eshaffer321/settlement-reconciler/internal/domain/matcher"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/pool"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/records"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/resolver"
)

// Engine runs reconciliations with fixed options.
// It holds no per-run state besides a counterparty key cache and can be
// shared between goroutines.
type Engine struct {
	opts    Options
	matcher *matcher.Matcher
	keys    *pool.KeyCache
	logger  *slog.Logger
}

// NewEngine creates an engine. A nil logger discards engine logs.
func NewEngine(opts Options, logger *slog.Logger) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	m := matcher.NewMatcher(opts.matcherConfig())
	effective := m.Config()
	opts.MaxCombinationSize = effective.MaxCombinationSize
	opts.MaxSubsetsPerTarget = effective.MaxSubsetsPerTarget

	return &Engine{
		opts:    opts,
		matcher: m,
		keys:    pool.NewKeyCache(0),
		logger:  logger,
	}, nil
}

// Options returns the effective options, defaults filled in.
func (e *Engine) Options() Options {
	return e.opts
}

// Run reconciles one snapshot of sources and targets.
func Run(sources []records.Source, targets []records.Target, opts Options) (*Report, error) {
	e, err := NewEngine(opts, nil)
	if err != nil {
		return nil, err
	}
	return e.Run(sources, targets)
}

// Run reconciles one snapshot of sources and targets.
//
// Bad records, already-settled records and unmatched targets are reported in
// the Report. Only an internal consistency failure returns an error.
func (e *Engine) Run(sources []records.Source, targets []records.Target) (*Report, error) {
	currency := e.opts.Currency
	if currency == "" {
		currency = inferCurrency(sources, targets)
	}

	report := newReport(currency)
	eligible := screen(sources, targets, report.Stats.TotalMatchedAmount.Currency, &report.Stats)

	p, rejected := pool.BuildWithCache(eligible.sources, eligible.targets, e.keys)
	for _, r := range rejected {
		report.Stats.InvalidRecords = append(report.Stats.InvalidRecords, InvalidRecord{
			ID:     r.ID,
			Side:   r.Side,
			Reason: ReasonMalformedCounterparty,
		})
	}

	var candidates []records.Association
	for _, group := range p.GroupsByCounterparty() {
		result := e.matcher.MatchGroup(group)

		e.logger.Debug("Matched counterparty group",
			"counterparty", group.Key,
			"sources", len(group.Sources),
			"targets", len(group.Targets),
			"associations", len(result.Associations),
			"flags", len(result.Flags),
		)

		candidates = append(candidates, result.Associations...)
		report.Stats.Flags = append(report.Stats.Flags, result.Flags...)
	}

	cfg := e.matcher.Config()
	accepted, err := resolver.NewResolver(eligible.sources, eligible.targets, cfg.ToleranceMinorUnits, cfg.MaxCombinationSize).
		Resolve(candidates)
	if err != nil {
		e.logger.Error("Reconciliation aborted", "error", err)
		return nil, fmt.Errorf("reconciliation aborted: %w", err)
	}

	for _, a := range accepted {
		switch a.Kind {
		case records.KindExact:
			report.Stats.ExactCount++
		case records.KindCombined:
			report.Stats.CombinedCount++
		}
		total, err := report.Stats.TotalMatchedAmount.CheckedAdd(a.MatchedAmount)
		if err != nil {
			e.logger.Error("Reconciliation aborted", "error", err)
			return nil, fmt.Errorf("reconciliation aborted: matched total: %w", err)
		}
		report.Stats.TotalMatchedAmount = total
	}
	report.Associations = append(report.Associations, accepted...)
	report.UnmatchedSources = p.UnreservedSourceIDs()
	report.UnmatchedTargets = p.UnreservedTargetIDs()
	sortStats(&report.Stats)

	e.logger.Debug("Reconciliation complete",
		"currency", currency,
		"exact", report.Stats.ExactCount,
		"combined", report.Stats.CombinedCount,
		"unmatched_sources", len(report.UnmatchedSources),
		"unmatched_targets", len(report.UnmatchedTargets),
		"skipped", report.SkippedCount(),
		"invalid", len(report.Stats.InvalidRecords),
	)

	return report, nil
}
