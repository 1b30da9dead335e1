package storage

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/eshaffer321/settlement-reconciler/internal/domain/reconcile"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/records"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps, making tests fast and isolated.
type MockRepository struct {
	mu           sync.Mutex
	sources      map[string]map[string]records.Source // category -> id
	targets      map[string]map[string]records.Target
	runs         map[string]*Run
	runOrder     []string
	associations map[string][]records.Association // run id

	// Hooks for test assertions
	SaveSourcesCalled  bool
	SaveTargetsCalled  bool
	StartRunCalled     bool
	CompleteRunCalled  bool
	FailRunCalled      bool
	CommitReportCalled bool
	LastFailMessage    string

	// Error injection for testing error paths
	SaveSourcesErr  error
	SaveTargetsErr  error
	ListSourcesErr  error
	ListTargetsErr  error
	StartRunErr     error
	CompleteRunErr  error
	CommitReportErr error
	GetRunErr       error
	ListRunsErr     error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		sources:      make(map[string]map[string]records.Source),
		targets:      make(map[string]map[string]records.Target),
		runs:         make(map[string]*Run),
		associations: make(map[string][]records.Association),
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// SaveSources upserts sources, keeping consumed sources consumed
func (m *MockRepository) SaveSources(category string, sources []records.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveSourcesCalled = true
	if m.SaveSourcesErr != nil {
		return m.SaveSourcesErr
	}
	if m.sources[category] == nil {
		m.sources[category] = make(map[string]records.Source)
	}
	for _, s := range sources {
		if old, ok := m.sources[category][s.ID]; ok && old.State == records.StateConsumed {
			s.State = records.StateConsumed
		}
		m.sources[category][s.ID] = s
	}
	return nil
}

// SaveTargets upserts targets, keeping settled targets settled
func (m *MockRepository) SaveTargets(category string, targets []records.Target) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveTargetsCalled = true
	if m.SaveTargetsErr != nil {
		return m.SaveTargetsErr
	}
	if m.targets[category] == nil {
		m.targets[category] = make(map[string]records.Target)
	}
	for _, t := range targets {
		if old, ok := m.targets[category][t.ID]; ok && old.Settled {
			t.Settled = true
		}
		m.targets[category][t.ID] = t
	}
	return nil
}

// ListSources returns the sources of a category ordered by id
func (m *MockRepository) ListSources(category string) ([]records.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListSourcesErr != nil {
		return nil, m.ListSourcesErr
	}
	out := make([]records.Source, 0, len(m.sources[category]))
	for _, s := range m.sources[category] {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListTargets returns the targets of a category ordered by id
func (m *MockRepository) ListTargets(category string) ([]records.Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListTargetsErr != nil {
		return nil, m.ListTargetsErr
	}
	out := make([]records.Target, 0, len(m.targets[category]))
	for _, t := range m.targets[category] {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CountRecords returns record counts for a category
func (m *MockRepository) CountRecords(category string) (*RecordCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := &RecordCounts{Category: category}
	for _, s := range m.sources[category] {
		switch s.State {
		case records.StateConsumed:
			counts.ConsumedSources++
		case records.StateVoid:
			counts.VoidSources++
		default:
			counts.OpenSources++
		}
	}
	for _, t := range m.targets[category] {
		if t.Settled {
			counts.SettledTargets++
		} else {
			counts.OpenTargets++
		}
	}
	return counts, nil
}

// StartRun records a running run
func (m *MockRepository) StartRun(runID, category string, opts reconcile.Options) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StartRunCalled = true
	if m.StartRunErr != nil {
		return m.StartRunErr
	}
	m.runs[runID] = &Run{
		ID:        runID,
		Category:  category,
		Status:    RunStatusRunning,
		Options:   opts,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}
	m.runOrder = append(m.runOrder, runID)
	return nil
}

// CompleteRun stores the report of a run
func (m *MockRepository) CompleteRun(runID string, report *reconcile.Report, committed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteRunCalled = true
	if m.CompleteRunErr != nil {
		return m.CompleteRunErr
	}
	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	run.Status = RunStatusCompleted
	run.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	run.Committed = committed
	run.ExactCount = report.Stats.ExactCount
	run.CombinedCount = report.Stats.CombinedCount
	run.MatchedMinor = report.Stats.TotalMatchedAmount.Minor
	run.Currency = report.Stats.TotalMatchedAmount.Currency
	run.UnmatchedSources = len(report.UnmatchedSources)
	run.UnmatchedTargets = len(report.UnmatchedTargets)
	run.SkippedCount = report.SkippedCount()
	run.InvalidCount = len(report.Stats.InvalidRecords)
	run.FlaggedCount = len(report.Stats.Flags)
	run.Report = report
	return nil
}

// FailRun marks a run as failed
func (m *MockRepository) FailRun(runID string, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailRunCalled = true
	m.LastFailMessage = message
	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	run.Status = RunStatusFailed
	run.ErrorMessage = message
	run.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	return nil
}

// ListRuns returns runs newest first, without reports
func (m *MockRepository) ListRuns(limit int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListRunsErr != nil {
		return nil, m.ListRunsErr
	}
	if limit <= 0 {
		limit = 50
	}
	out := make([]Run, 0)
	for i := len(m.runOrder) - 1; i >= 0 && len(out) < limit; i-- {
		run := *m.runs[m.runOrder[i]]
		run.Report = nil
		out = append(out, run)
	}
	return out, nil
}

// GetRun returns a run with its report
func (m *MockRepository) GetRun(runID string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetRunErr != nil {
		return nil, m.GetRunErr
	}
	run, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	copied := *run
	return &copied, nil
}

// CommitReport applies a report with the same conflict rules as Storage
func (m *MockRepository) CommitReport(runID, category string, report *reconcile.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CommitReportCalled = true
	if m.CommitReportErr != nil {
		return m.CommitReportErr
	}

	// validate everything first so a conflict writes nothing
	for _, a := range report.Associations {
		t, ok := m.targets[category][a.TargetID]
		if !ok || t.Settled {
			return fmt.Errorf("%w: target %s", ErrCommitConflict, a.TargetID)
		}
		for _, id := range a.SourceIDs {
			s, ok := m.sources[category][id]
			if !ok || !s.State.Spendable() {
				return fmt.Errorf("%w: source %s", ErrCommitConflict, id)
			}
		}
	}

	for _, a := range report.Associations {
		t := m.targets[category][a.TargetID]
		t.Settled = true
		m.targets[category][a.TargetID] = t
		for _, id := range a.SourceIDs {
			s := m.sources[category][id]
			s.State = records.StateConsumed
			m.sources[category][id] = s
		}
		m.associations[runID] = append(m.associations[runID], a)
	}
	return nil
}

// ListAssociations returns the associations committed by a run
func (m *MockRepository) ListAssociations(runID string) ([]records.Association, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append(make([]records.Association, 0), m.associations[runID]...), nil
}
