package cli

import (
	"github.com/spf13/cobra"

	"github.com/eshaffer321/settlement-reconciler/internal/application/service"
)

func newReconcileCommand(a *app) *cobra.Command {
	var (
		category string
		commit   bool
		asJSON   bool
		opts     optionFlags
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile a category's stored records",
		Long: `Runs the engine over the open records of a category. Without --commit
the run is recorded but no record changes state.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := a.open(cmd.Context(), commit)
			if err != nil {
				return err
			}
			defer deps.Close()

			runOpts := opts.apply(cmd, deps.service.Defaults())
			result, err := deps.service.Reconcile(cmd.Context(), service.RunRequest{
				Category: category,
				Commit:   commit,
				Options:  &runOpts,
			})
			if err != nil {
				return err
			}

			if asJSON {
				return PrintJSON(cmd.OutOrStdout(), result)
			}
			PrintRunSummary(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Record category, e.g. checks or f24")
	cmd.Flags().BoolVar(&commit, "commit", false, "Mark matched sources consumed and targets settled")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	opts.register(cmd)
	_ = cmd.MarkFlagRequired("category")

	return cmd
}
