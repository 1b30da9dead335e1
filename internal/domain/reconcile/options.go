package reconcile

import (
	"errors"
	"fmt"

	"github.com/eshaffer321/settlement-reconciler/internal/domain/matcher"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/money"
)

// ErrInvalidOptions is returned when run options are out of range.
var ErrInvalidOptions = errors.New("invalid reconciliation options")

// Options tunes a single reconciliation run.
type Options struct {
	// Currency every record must be in. Empty means "use the currency of the
	// first spendable record".
	Currency string `json:"currency,omitempty" yaml:"currency"`

	// ToleranceMinorUnits is the allowed |sources - target| difference.
	ToleranceMinorUnits int64 `json:"tolerance_minor_units" yaml:"tolerance_minor_units"`

	// MaxCombinationSize caps the number of sources in a combined match (0 = default 4).
	MaxCombinationSize int `json:"max_combination_size,omitempty" yaml:"max_combination_size"`

	// MaxSubsetsPerTarget caps the subsets inspected for one target (0 = default).
	MaxSubsetsPerTarget int `json:"max_subsets_per_target,omitempty" yaml:"max_subsets_per_target"`
}

// DefaultOptions returns the standard run options: 1 cent tolerance and at
// most 4 sources per target.
func DefaultOptions() Options {
	return Options{
		ToleranceMinorUnits: money.DefaultTolerance,
		MaxCombinationSize:  matcher.DefaultMaxCombinationSize,
		MaxSubsetsPerTarget: matcher.DefaultMaxSubsetsPerTarget,
	}
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if o.ToleranceMinorUnits < 0 {
		return fmt.Errorf("%w: tolerance must not be negative (got %d)", ErrInvalidOptions, o.ToleranceMinorUnits)
	}
	if o.MaxCombinationSize < 0 {
		return fmt.Errorf("%w: max combination size must not be negative (got %d)", ErrInvalidOptions, o.MaxCombinationSize)
	}
	if o.MaxSubsetsPerTarget < 0 {
		return fmt.Errorf("%w: max subsets per target must not be negative (got %d)", ErrInvalidOptions, o.MaxSubsetsPerTarget)
	}
	return nil
}

// matcherConfig converts options to the matcher's configuration.
func (o Options) matcherConfig() matcher.Config {
	return matcher.Config{
		ToleranceMinorUnits: o.ToleranceMinorUnits,
		MaxCombinationSize:  o.MaxCombinationSize,
		MaxSubsetsPerTarget: o.MaxSubsetsPerTarget,
	}
}
