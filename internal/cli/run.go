package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/settlement-reconciler/internal/adapters/snapshot"
	"github.com/eshaffer321/settlement-reconciler/internal/domain/reconcile"
)

func newRunCommand(a *app) *cobra.Command {
	var (
		sourcesPath string
		targetsPath string
		xlsxPath    string
		summary     bool
		kind        string
		opts        optionFlags
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile two snapshot files and print the report",
		Long: `Reads sources and targets from CSV or XLSX files, reconciles them and
prints the report as JSON. Nothing is stored.

With --kind checks the files are the check register and the supplier
invoices; with --kind f24 they are bank receipts and F24 filings. The output
then also carries the register summary and the register with the run applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sourcesPath == "" || targetsPath == "" {
				return errors.New("--sources and --targets are required")
			}

			set, err := loadRegister(kind, sourcesPath, targetsPath)
			if err != nil {
				return err
			}
			for _, re := range set.rowErrors {
				a.logger.Warn("Skipped row", "row", re.Row, "id", re.ID, "error", re.Err)
			}

			engine, err := reconcile.NewEngine(opts.apply(cmd, a.cfg.Reconciliation.Options()), a.logger.With("system", "engine"))
			if err != nil {
				return err
			}
			report, err := engine.Run(set.sources, set.targets)
			if err != nil {
				return err
			}

			if xlsxPath != "" {
				if err := snapshot.WriteReportXLSX(xlsxPath, report); err != nil {
					return err
				}
				a.logger.Info("Wrote report workbook", "path", xlsxPath)
			}

			var view *registerView
			if set.present != nil {
				view = set.present(report)
			}

			out := cmd.OutOrStdout()
			if summary {
				if view != nil {
					view.print(out)
				}
				PrintReportSummary(out, report)
				return nil
			}
			if view != nil {
				return PrintJSON(out, view)
			}
			return PrintJSON(out, report)
		},
	}

	cmd.Flags().StringVar(&sourcesPath, "sources", "", "Sources snapshot (.csv or .xlsx)")
	cmd.Flags().StringVar(&targetsPath, "targets", "", "Targets snapshot (.csv or .xlsx)")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Also write the report to this workbook")
	cmd.Flags().BoolVar(&summary, "summary", false, "Print a text summary instead of JSON")
	addKindFlag(cmd, &kind)
	opts.register(cmd)

	return cmd
}
