package cli

import (
	"github.com/spf13/cobra"

	"github.com/eshaffer321/settlement-reconciler/internal/domain/reconcile"
)

// optionFlags are the run option overrides shared by run and reconcile.
type optionFlags struct {
	Currency       string
	Tolerance      int64
	MaxCombination int
	MaxSubsets     int
}

func (f *optionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Currency, "currency", "", "Currency every record must be in (default from config)")
	cmd.Flags().Int64Var(&f.Tolerance, "tolerance", 0, "Allowed difference in minor units (default from config)")
	cmd.Flags().IntVar(&f.MaxCombination, "max-combination", 0, "Maximum sources combined for one target (default from config)")
	cmd.Flags().IntVar(&f.MaxSubsets, "max-subsets", 0, "Maximum subsets inspected per target (default from config)")
}

// apply overrides base with the flags the user actually set.
func (f *optionFlags) apply(cmd *cobra.Command, base reconcile.Options) reconcile.Options {
	opts := base
	if cmd.Flags().Changed("currency") {
		opts.Currency = f.Currency
	}
	if cmd.Flags().Changed("tolerance") {
		opts.ToleranceMinorUnits = f.Tolerance
	}
	if cmd.Flags().Changed("max-combination") {
		opts.MaxCombinationSize = f.MaxCombination
	}
	if cmd.Flags().Changed("max-subsets") {
		opts.MaxSubsetsPerTarget = f.MaxSubsets
	}
	return opts
}
