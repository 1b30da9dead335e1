package storage

import (
	"database/sql"
	"fmt"

	"github.com/eshaffer321/settlement-reconciler/internal/domain/money"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/records"
)

// SaveSources upserts sources in one transaction
func (s *Storage) SaveSources(category string, sources []records.Source) error {
	query := `
	INSERT INTO sources (category, id, counterparty, amount_minor, currency, issued_date, state, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (category, id) DO UPDATE SET
		counterparty = excluded.counterparty,
		amount_minor = excluded.amount_minor,
		currency = excluded.currency,
		issued_date = excluded.issued_date,
		state = CASE WHEN sources.state = 'consumed' THEN 'consumed' ELSE excluded.state END,
		updated_at = excluded.updated_at
	`

	return s.withTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(query)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		ts := now()
		for _, src := range sources {
			_, err := stmt.Exec(
				category,
				src.ID,
				src.Counterparty,
				src.Amount.Minor,
				src.Amount.Currency,
				formatDate(src.IssuedDate),
				string(src.State),
				ts,
			)
			if err != nil {
				return fmt.Errorf("failed to save source %s: %w", src.ID, err)
			}
		}
		return nil
	})
}

// SaveTargets upserts targets in one transaction
func (s *Storage) SaveTargets(category string, targets []records.Target) error {
	query := `
	INSERT INTO targets (category, id, counterparty, amount_minor, currency, due_date, settled, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (category, id) DO UPDATE SET
		counterparty = excluded.counterparty,
		amount_minor = excluded.amount_minor,
		currency = excluded.currency,
		due_date = excluded.due_date,
		settled = MAX(targets.settled, excluded.settled),
		updated_at = excluded.updated_at
	`

	return s.withTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(query)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		ts := now()
		for _, t := range targets {
			_, err := stmt.Exec(
				category,
				t.ID,
				t.Counterparty,
				t.Amount.Minor,
				t.Amount.Currency,
				formatDate(t.DueDate),
				t.Settled,
				ts,
			)
			if err != nil {
				return fmt.Errorf("failed to save target %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

// ListSources returns every source of a category ordered by id
func (s *Storage) ListSources(category string) ([]records.Source, error) {
	query := `
		SELECT id, counterparty, amount_minor, currency, issued_date, state
		FROM sources
		WHERE category = ?
		ORDER BY id
	`

	rows, err := s.db.Query(query, category)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]records.Source, 0)
	for rows.Next() {
		var (
			src      records.Source
			minor    int64
			currency string
			issued   sql.NullString
			state    string
		)
		if err := rows.Scan(&src.ID, &src.Counterparty, &minor, &currency, &issued, &state); err != nil {
			return nil, err
		}
		src.Amount = money.New(minor, currency)
		src.State = records.SourceState(state)
		if src.IssuedDate, err = parseDate(issued); err != nil {
			return nil, err
		}
		out = append(out, src)
	}

	return out, rows.Err()
}

// ListTargets returns every target of a category ordered by id
func (s *Storage) ListTargets(category string) ([]records.Target, error) {
	query := `
		SELECT id, counterparty, amount_minor, currency, due_date, settled
		FROM targets
		WHERE category = ?
		ORDER BY id
	`

	rows, err := s.db.Query(query, category)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]records.Target, 0)
	for rows.Next() {
		var (
			t        records.Target
			minor    int64
			currency string
			due      sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Counterparty, &minor, &currency, &due, &t.Settled); err != nil {
			return nil, err
		}
		t.Amount = money.New(minor, currency)
		if t.DueDate, err = parseDate(due); err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	return out, rows.Err()
}

// CountRecords returns open and closed record counts for a category
func (s *Storage) CountRecords(category string) (*RecordCounts, error) {
	counts := &RecordCounts{Category: category}

	err := s.db.QueryRow(`
	SELECT
		COUNT(CASE WHEN state NOT IN ('consumed', 'void') THEN 1 END),
		COUNT(CASE WHEN state = 'consumed' THEN 1 END),
		COUNT(CASE WHEN state = 'void' THEN 1 END)
	FROM sources
	WHERE category = ?
	`, category).Scan(&counts.OpenSources, &counts.ConsumedSources, &counts.VoidSources)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRow(`
	SELECT
		COUNT(CASE WHEN settled = 0 THEN 1 END),
		COUNT(CASE WHEN settled = 1 THEN 1 END)
	FROM targets
	WHERE category = ?
	`, category).Scan(&counts.OpenTargets, &counts.SettledTargets)
	if err != nil {
		return nil, err
	}

	return counts, nil
}

// withTx runs fn in a transaction and commits when it returns nil.
func (s *Storage) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
