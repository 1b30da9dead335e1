package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/settlement-reconciler/internal/application/service"
)

func newImportCommand(a *app) *cobra.Command {
	var (
		category    string
		sourcesPath string
		targetsPath string
		kind        string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load snapshot files into the database",
		Long: `Upserts sources and targets into a category. Records already consumed
or settled in the database stay closed.

--kind checks and --kind f24 read register exports and default the category
to checks or f24.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sourcesPath == "" && targetsPath == "" {
				return errors.New("at least one of --sources or --targets is required")
			}

			if category == "" {
				category = defaultCategory(kind)
			}
			if category == "" {
				return errors.New("--category is required")
			}

			deps, err := a.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer deps.Close()

			var result *service.ImportResult
			if kind == kindRecords {
				result, err = deps.service.ImportFiles(category, sourcesPath, targetsPath)
			} else {
				result, err = importRegister(deps.service, kind, category, sourcesPath, targetsPath)
			}
			if err != nil {
				return err
			}

			counts, err := deps.store.CountRecords(category)
			if err != nil {
				return err
			}
			PrintImportSummary(cmd.OutOrStdout(), result, counts)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Record category, e.g. checks or f24")
	cmd.Flags().StringVar(&sourcesPath, "sources", "", "Sources snapshot (.csv or .xlsx)")
	cmd.Flags().StringVar(&targetsPath, "targets", "", "Targets snapshot (.csv or .xlsx)")
	addKindFlag(cmd, &kind)

	return cmd
}

// importRegister stores register exports converted to records.
func importRegister(svc *service.ReconcileService, kind, category, sourcesPath, targetsPath string) (*service.ImportResult, error) {
	if err := service.ValidateCategory(category); err != nil {
		return nil, err
	}
	set, err := loadRegister(kind, sourcesPath, targetsPath)
	if err != nil {
		return nil, err
	}

	result := &service.ImportResult{Category: category, RowErrors: set.rowErrors}
	if sourcesPath != "" {
		if err := svc.ImportSources(category, set.sources); err != nil {
			return nil, err
		}
		result.Sources = len(set.sources)
	}
	if targetsPath != "" {
		if err := svc.ImportTargets(category, set.targets); err != nil {
			return nil, err
		}
		result.Targets = len(set.targets)
	}
	return result, nil
}
