package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/google/uuid"

	"github.com/eshaffer321/settlement-reconciler/internal/adapters/snapshot"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/reconcile"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/records"
	"github.com/eshaffer321/settlement-reconciler/internal/infrastructure/archive"
	"github.com/eshaffer321/settlement-reconciler/internal/infrastructure/storage"
)

var (
	// ErrRunInProgress is returned when a category already has a run going.
	ErrRunInProgress = errors.New("reconciliation already running for category")

	// ErrInvalidCategory is returned for empty or malformed category names.
	ErrInvalidCategory = errors.New("invalid category")
)

// categoryPattern keeps category names safe to use in collection names.
var categoryPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// RunRequest holds parameters for a stored reconciliation.
type RunRequest struct {
	Category string
	// Commit applies the associations: sources become consumed and targets settled.
	Commit bool
	// Options overrides the configured defaults when set.
	Options *reconcile.Options
}

// RunResult is the outcome of Reconcile.
type RunResult struct {
	RunID     string            `json:"run_id"`
	Category  string            `json:"category"`
	Committed bool              `json:"committed"`
	Report    *reconcile.Report `json:"report"`
}

// ImportResult summarizes an import.
type ImportResult struct {
	Category  string              `json:"category"`
	Sources   int                 `json:"sources"`
	Targets   int                 `json:"targets"`
	RowErrors []snapshot.RowError `json:"-"`
}

// ReconcileService runs reconciliations against stored records.
type ReconcileService struct {
	store    storage.Repository
	archiver archive.Archiver
	defaults reconcile.Options
	logger   *slog.Logger
	newRunID func() string

	// Category-level locking (only one run per category at a time)
	categoryLocks map[string]*sync.Mutex
	locksMutex    sync.Mutex
}

// NewReconcileService creates a new service. archiver may be nil.
func NewReconcileService(
	store storage.Repository,
	archiver archive.Archiver,
	defaults reconcile.Options,
	logger *slog.Logger,
) *ReconcileService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ReconcileService{
		store:         store,
		archiver:      archiver,
		defaults:      defaults,
		logger:        logger,
		newRunID:      uuid.NewString,
		categoryLocks: make(map[string]*sync.Mutex),
	}
}

// Archiving reports whether committed runs are copied to the archive.
func (s *ReconcileService) Archiving() bool {
	return s.archiver != nil
}

// Defaults returns the configured run options.
func (s *ReconcileService) Defaults() reconcile.Options {
	return s.defaults
}

// Preview reconciles the given records without touching storage.
func (s *ReconcileService) Preview(sources []records.Source, targets []records.Target, opts *reconcile.Options) (*reconcile.Report, error) {
	engine, err := reconcile.NewEngine(s.options(opts), s.logger.With("system", "engine"))
	if err != nil {
		return nil, err
	}
	return engine.Run(sources, targets)
}

// Reconcile runs the engine over a category's stored records and, when
// asked, commits the result. The run is recorded whatever the outcome.
func (s *ReconcileService) Reconcile(ctx context.Context, req RunRequest) (*RunResult, error) {
	if err := ValidateCategory(req.Category); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := s.options(req.Options)
	engine, err := reconcile.NewEngine(opts, s.logger.With("system", "engine", "category", req.Category))
	if err != nil {
		return nil, err
	}

	if !s.tryLockCategory(req.Category) {
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, req.Category)
	}
	defer s.unlockCategory(req.Category)

	runID := s.newRunID()
	if err := s.store.StartRun(runID, req.Category, opts); err != nil {
		return nil, fmt.Errorf("failed to record run start: %w", err)
	}

	s.logger.Info("Reconciliation started",
		"run_id", runID,
		"category", req.Category,
		"commit", req.Commit,
	)

	report, err := s.run(engine, req.Category)
	if err != nil {
		return nil, s.fail(runID, err)
	}

	committed := false
	if req.Commit && len(report.Associations) > 0 {
		if err := s.store.CommitReport(runID, req.Category, report); err != nil {
			return nil, s.fail(runID, fmt.Errorf("failed to commit run %s: %w", runID, err))
		}
		committed = true
	}

	if err := s.store.CompleteRun(runID, report, committed); err != nil {
		return nil, fmt.Errorf("failed to record run completion: %w", err)
	}

	if committed && s.archiver != nil {
		if err := s.archiver.Archive(ctx, runID, req.Category, report); err != nil {
			s.logger.Warn("Failed to archive run", "run_id", runID, "error", err)
		}
	}

	s.logger.Info("Reconciliation completed",
		"run_id", runID,
		"category", req.Category,
		"exact", report.Stats.ExactCount,
		"combined", report.Stats.CombinedCount,
		"matched", report.Stats.TotalMatchedAmount.String(),
		"unmatched_targets", len(report.UnmatchedTargets),
		"committed", committed,
	)

	return &RunResult{
		RunID:     runID,
		Category:  req.Category,
		Committed: committed,
		Report:    report,
	}, nil
}

func (s *ReconcileService) run(engine *reconcile.Engine, category string) (*reconcile.Report, error) {
	sources, err := s.store.ListSources(category)
	if err != nil {
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}
	targets, err := s.store.ListTargets(category)
	if err != nil {
		return nil, fmt.Errorf("failed to load targets: %w", err)
	}
	return engine.Run(sources, targets)
}

func (s *ReconcileService) fail(runID string, err error) error {
	s.logger.Error("Reconciliation failed", "run_id", runID, "error", err)
	if ferr := s.store.FailRun(runID, err.Error()); ferr != nil {
		s.logger.Error("Failed to record run failure", "run_id", runID, "error", ferr)
	}
	return err
}

// ImportSources stores sources for a category.
func (s *ReconcileService) ImportSources(category string, sources []records.Source) error {
	if err := ValidateCategory(category); err != nil {
		return err
	}
	if err := s.store.SaveSources(category, sources); err != nil {
		return fmt.Errorf("failed to import sources: %w", err)
	}
	s.logger.Info("Imported sources", "category", category, "count", len(sources))
	return nil
}

// ImportTargets stores targets for a category.
func (s *ReconcileService) ImportTargets(category string, targets []records.Target) error {
	if err := ValidateCategory(category); err != nil {
		return err
	}
	if err := s.store.SaveTargets(category, targets); err != nil {
		return fmt.Errorf("failed to import targets: %w", err)
	}
	s.logger.Info("Imported targets", "category", category, "count", len(targets))
	return nil
}

// ImportFiles loads CSV or XLSX snapshots and stores them. Either path may
// be empty. Rows that cannot be parsed are skipped and returned.
func (s *ReconcileService) ImportFiles(category, sourcesPath, targetsPath string) (*ImportResult, error) {
	if err := ValidateCategory(category); err != nil {
		return nil, err
	}
	result := &ImportResult{Category: category}

	if sourcesPath != "" {
		sources, rowErrors, err := snapshot.LoadSources(sourcesPath)
		if err != nil {
			return nil, err
		}
		if err := s.ImportSources(category, sources); err != nil {
			return nil, err
		}
		result.Sources = len(sources)
		result.RowErrors = append(result.RowErrors, rowErrors...)
	}

	if targetsPath != "" {
		targets, rowErrors, err := snapshot.LoadTargets(targetsPath)
		if err != nil {
			return nil, err
		}
		if err := s.ImportTargets(category, targets); err != nil {
			return nil, err
		}
		result.Targets = len(targets)
		result.RowErrors = append(result.RowErrors, rowErrors...)
	}

	for _, re := range result.RowErrors {
		s.logger.Warn("Skipped row", "category", category, "row", re.Row, "id", re.ID, "error", re.Err)
	}
	return result, nil
}

// options merges a request override with the defaults. Zero limits in an
// override fall back to the engine defaults, not the configured ones.
func (s *ReconcileService) options(override *reconcile.Options) reconcile.Options {
	if override == nil {
		return s.defaults
	}
	opts := *override
	if opts.Currency == "" {
		opts.Currency = s.defaults.Currency
	}
	return opts
}

// ValidateCategory checks that a category name is usable.
func ValidateCategory(category string) error {
	if !categoryPattern.MatchString(category) {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	return nil
}

// tryLockCategory attempts to acquire the lock for a category.
func (s *ReconcileService) tryLockCategory(category string) bool {
	s.locksMutex.Lock()
	defer s.locksMutex.Unlock()

	if _, exists := s.categoryLocks[category]; !exists {
		s.categoryLocks[category] = &sync.Mutex{}
	}

	return s.categoryLocks[category].TryLock()
}

// unlockCategory releases the lock for a category.
func (s *ReconcileService) unlockCategory(category string) {
	s.locksMutex.Lock()
	defer s.locksMutex.Unlock()

	if lock, exists := s.categoryLocks[category]; exists {
		lock.Unlock()
	}
}
