package dto

import (
	"fmt"
	"time"

	"github.com/eshaffer321/settlement-reconciler/internal/domain/money"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/pool"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/reconcile"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/records"
)

// DateLayout is the format of every date field in requests.
const DateLayout = "2006-01-02"

// SourceRecord is a payment instrument as sent by clients.
// Amounts are decimal strings ("199.99") so no precision is lost in transit.
type SourceRecord struct {
	ID           string `json:"id"`
	Counterparty string `json:"counterparty"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	IssuedDate   string `json:"issued_date,omitempty"`
	State        string `json:"state,omitempty"` // defaults to "issued"
}

// TargetRecord is an obligation as sent by clients.
type TargetRecord struct {
	ID           string `json:"id"`
	Counterparty string `json:"counterparty"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	DueDate      string `json:"due_date,omitempty"`
	Settled      bool   `json:"settled,omitempty"`
}

// OptionsRequest overrides run options. Omitted fields keep the server defaults.
type OptionsRequest struct {
	Currency            string `json:"currency,omitempty"`
	ToleranceMinorUnits *int64 `json:"tolerance_minor_units,omitempty"`
	MaxCombinationSize  *int   `json:"max_combination_size,omitempty"`
	MaxSubsetsPerTarget *int   `json:"max_subsets_per_target,omitempty"`
}

// PreviewRequest is the request body for POST /api/reconcile/preview.
type PreviewRequest struct {
	Sources []SourceRecord  `json:"sources"`
	Targets []TargetRecord  `json:"targets"`
	Options *OptionsRequest `json:"options,omitempty"`
}

// RunRequest is the request body for POST /api/runs.
type RunRequest struct {
	Category string          `json:"category"`
	Commit   bool            `json:"commit"`
	Options  *OptionsRequest `json:"options,omitempty"`
}

// ImportSourcesRequest is the request body for POST /api/records/{category}/sources.
type ImportSourcesRequest struct {
	Sources []SourceRecord `json:"sources"`
}

// ImportTargetsRequest is the request body for POST /api/records/{category}/targets.
type ImportTargetsRequest struct {
	Targets []TargetRecord `json:"targets"`
}

// RunListParams represents query parameters for listing runs.
type RunListParams struct {
	Limit int `json:"limit"`
}

// DefaultRunListParams returns default values for run list params.
func DefaultRunListParams() RunListParams {
	return RunListParams{
		Limit: 20,
	}
}

// Apply merges the overrides into defaults. A nil request returns defaults.
func (o *OptionsRequest) Apply(defaults reconcile.Options) reconcile.Options {
	opts := defaults
	if o == nil {
		return opts
	}
	if o.Currency != "" {
		opts.Currency = o.Currency
	}
	if o.ToleranceMinorUnits != nil {
		opts.ToleranceMinorUnits = *o.ToleranceMinorUnits
	}
	if o.MaxCombinationSize != nil {
		opts.MaxCombinationSize = *o.MaxCombinationSize
	}
	if o.MaxSubsetsPerTarget != nil {
		opts.MaxSubsetsPerTarget = *o.MaxSubsetsPerTarget
	}
	return opts
}

// ToSource converts the record. Unknown states are passed through so the
// engine reports them as invalid instead of failing the whole request.
func (r SourceRecord) ToSource() (records.Source, error) {
	amount, err := money.Parse(r.Amount, r.Currency)
	if err != nil {
		return records.Source{}, err
	}
	issued, err := parseDate(r.IssuedDate)
	if err != nil {
		return records.Source{}, err
	}
	state := records.StateIssued
	if r.State != "" {
		state = records.SourceState(r.State)
		if parsed, err := records.ParseSourceState(r.State); err == nil {
			state = parsed
		}
	}
	return records.Source{
		ID:           r.ID,
		Counterparty: r.Counterparty,
		Amount:       amount,
		IssuedDate:   issued,
		State:        state,
	}, nil
}

// ToTarget converts the record.
func (r TargetRecord) ToTarget() (records.Target, error) {
	amount, err := money.Parse(r.Amount, r.Currency)
	if err != nil {
		return records.Target{}, err
	}
	due, err := parseDate(r.DueDate)
	if err != nil {
		return records.Target{}, err
	}
	return records.Target{
		ID:           r.ID,
		Counterparty: r.Counterparty,
		Amount:       amount,
		DueDate:      due,
		Settled:      r.Settled,
	}, nil
}

// ToSources converts a batch. Records that cannot be converted are left out
// and returned as unparseable, so one bad amount does not reject the rest.
func ToSources(in []SourceRecord) ([]records.Source, []reconcile.InvalidRecord) {
	out := make([]records.Source, 0, len(in))
	var rejected []reconcile.InvalidRecord
	for i, r := range in {
		s, err := r.ToSource()
		if err != nil {
			rejected = append(rejected, unparseable(r.ID, pool.SideSource, fmt.Sprintf("sources[%d]: %v", i, err)))
			continue
		}
		out = append(out, s)
	}
	return out, rejected
}

// ToTargets converts a batch the way ToSources does.
func ToTargets(in []TargetRecord) ([]records.Target, []reconcile.InvalidRecord) {
	out := make([]records.Target, 0, len(in))
	var rejected []reconcile.InvalidRecord
	for i, r := range in {
		t, err := r.ToTarget()
		if err != nil {
			rejected = append(rejected, unparseable(r.ID, pool.SideTarget, fmt.Sprintf("targets[%d]: %v", i, err)))
			continue
		}
		out = append(out, t)
	}
	return out, rejected
}

func unparseable(id string, side pool.Side, detail string) reconcile.InvalidRecord {
	return reconcile.InvalidRecord{
		ID:     id,
		Side:   side,
		Reason: reconcile.ReasonUnparseable,
		Detail: detail,
	}
}

func parseDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	d, err := time.Parse(DateLayout, v)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", v)
	}
	return &d, nil
}
