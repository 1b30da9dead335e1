// Package cli implements the reconciler command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/settlement-reconciler/internal/infrastructure/config"
	"github.com/eshaffer321/settlement-reconciler/internal/infrastructure/logging"
)

// app carries state shared by all subcommands.
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCommand builds the reconciler command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "reconciler",
		Short:         "Match payment instruments to the obligations they settle",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Configuration file path (default: ./config.yaml, then environment)")
	root.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "Enable verbose logging")

	root.AddCommand(
		newRunCommand(a),
		newImportCommand(a),
		newReconcileCommand(a),
		newServeCommand(a),
	)

	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) setup(logOut io.Writer) error {
	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	loggingCfg := cfg.Observability.Logging
	if a.verbose {
		loggingCfg.Level = "debug"
	}
	a.logger = logging.NewLoggerTo(logOut, loggingCfg).With("system", "cli")
	return nil
}

// loadConfig reads an explicit config file, or looks for one in the working
// directory and falls back to environment variables.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}

	for _, candidate := range []string{"config.yaml", "config.yml"} {
		if _, err := os.Stat(candidate); err == nil {
			return config.Load(candidate)
		}
	}
	return config.LoadFromEnv(), nil
}
