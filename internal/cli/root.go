package cli

import (
	"fmt"
	"os"

	"github.com/Dowwie/tasker/internal/config"
	"github.com/Dowwie/tasker/internal/logging"
	"github.com/Dowwie/tasker/internal/state"
	"github.com/Dowwie/tasker/internal/store"
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	verbose    bool
	dirFlag    string
	configPath string

	appConfig *config.Config
	layout    store.Layout
	engine    *state.Engine

	rootCmd = &cobra.Command{
		Use:   "tasker",
		Short: "Decomposes a specification into a dependency-ordered task graph and drives it to completion",
		Long: `tasker turns a specification document into a dependency-ordered graph of
small, independently verifiable tasks, then drives that graph to completion
one checkpointed batch at a time.

Planning happens in phases (ingestion, spec review, logical design, physical
design, task definition, validation, sequencing) gated by coverage and
quality checks. Execution hands each ready task to an external worker
process as a self-contained, checksum-sealed bundle, and commits only what
the worker reports back in a result file.

Run 'tasker <command> --help' for details on any subcommand.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file override")
	rootCmd.PersistentFlags().StringVar(&dirFlag, "dir", "", "Working directory (defaults to $TASKER_DIR or ./.tasker)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		root, err := store.ResolveRoot(firstNonEmpty(dirFlag, os.Getenv("TASKER_DIR")))
		if err != nil {
			return err
		}
		layout = store.NewLayout(root)

		cfg, err := config.Load(root)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		appConfig = cfg
		logging.SetupLevel(cfg.Logging.Level)

		engine = state.NewEngine(layout, cfg.Execution.ParseLockTimeout())
		return nil
	}

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(advanceCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(bundleCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(checkpointCmd)
	rootCmd.AddCommand(haltCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(checkHaltCmd)
	rootCmd.AddCommand(recordVerificationCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reportCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	return err
}
