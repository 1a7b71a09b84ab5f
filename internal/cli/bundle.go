package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Dowwie/tasker/internal/bundle"
	"github.com/Dowwie/tasker/internal/schema"
	"github.com/Dowwie/tasker/internal/state"
	"github.com/Dowwie/tasker/internal/store"
)

var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Generate, validate, and inspect task execution bundles",
}

func init() {
	bundleCmd.AddCommand(bundleGenerateCmd, bundleValidateCmd, bundleIntegrityCmd, bundleListCmd, bundleCleanCmd)
}

// constraintsPath returns the canonical location of the constraints
// document every bundle fingerprints alongside the capability and physical
// maps (§4.5 step 5).
func constraintsPath() string {
	return layout.ArtifactPath("constraints.md")
}

var bundleGenerateCmd = &cobra.Command{
	Use:   "generate <task-id>",
	Short: "Generate and write a bundle for a single task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		var b *bundle.Bundle
		err := engine.View(func(s *state.State) error {
			t, err := s.GetTask(id)
			if err != nil {
				return err
			}
			b, err = bundle.Generate(t, s.Tasks, layout, constraintsPath())
			return err
		})
		if err != nil {
			return err
		}
		if err := bundle.Write(b, layout); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "bundle written to %s\n", layout.BundlePath(id))
		return nil
	},
}

var bundleValidateCmd = &cobra.Command{
	Use:   "validate <task-id>",
	Short: "Schema-validate a previously written bundle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := schema.ValidateFile(schema.Bundle, layout.BundlePath(args[0])); err != nil {
			return err
		}
		_, err := bundle.Load(layout, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "bundle %s is valid\n", args[0])
		return nil
	},
}

var bundleIntegrityCmd = &cobra.Command{
	Use:   "integrity <task-id>",
	Short: "Re-checksum a bundle's referenced artifacts and dependencies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		b, err := bundle.Load(layout, id)
		if err != nil {
			return err
		}
		drifts, err := bundle.Verify(b, layout, constraintsPath())
		if err != nil {
			return err
		}
		if len(drifts) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "no drift detected for %s\n", id)
			return nil
		}
		for _, d := range drifts {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", d.Code, d.Detail, d.Path)
		}
		return bundle.FirstDriftError(id, drifts)
	},
}

var bundleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bundle files present under the bundles directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := store.ListDir(layout.BundlesDir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintln(cmd.OutOrStdout(), e)
		}
		return nil
	},
}

var bundleCleanCmd = &cobra.Command{
	Use:   "clean <task-id>",
	Short: "Remove a task's bundle and result files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		if err := store.RemoveIfExists(layout.BundlePath(id)); err != nil {
			return err
		}
		if err := store.RemoveIfExists(layout.ResultPath(id)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cleaned bundle artifacts for %s\n", id)
		return nil
	},
}
