package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/tidwall/jsonc"
	"github.com/tidwall/sjson"

	"github.com/Dowwie/tasker/internal/store"
)

var initInteractive bool

func init() {
	initCmd.Flags().BoolVar(&initInteractive, "interactive", false, "Prompt for the initial spec path and worker command")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new working directory and state document",
	RunE: func(cmd *cobra.Command, args []string) error {
		specPath := layout.SpecPath
		workerCommand := ""

		if initInteractive {
			var chosenSpec string
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("Path to the specification document").
						Value(&chosenSpec).
						Placeholder(specPath),
					huh.NewInput().
						Title("Worker command (leave blank to configure later)").
						Value(&workerCommand),
				),
			)
			if err := form.Run(); err != nil {
				return fmt.Errorf("init wizard: %w", err)
			}
			if chosenSpec != "" {
				specPath = chosenSpec
			}
		}

		if err := layout.EnsureDirs(); err != nil {
			return fmt.Errorf("creating working directory: %w", err)
		}

		if err := engine.Init(filepath.Dir(layout.Root)); err != nil {
			return err
		}

		if specPath != layout.SpecPath {
			data, err := os.ReadFile(specPath)
			if err == nil {
				_ = store.AtomicWriteFile(layout.SpecPath, data, 0644)
			}
		}

		if workerCommand != "" {
			cfgPath := filepath.Join(layout.Root, "tasker.jsonc")
			existing := []byte("{}")
			if data, err := os.ReadFile(cfgPath); err == nil {
				existing = jsonc.ToJSON(data)
			}
			updated, err := sjson.SetBytes(existing, "worker.command", strings.Fields(workerCommand))
			if err != nil {
				return fmt.Errorf("setting worker command: %w", err)
			}
			if err := os.WriteFile(cfgPath, updated, 0644); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}
		}

		style := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
		fmt.Fprintln(cmd.OutOrStdout(), style.Render("Initialized")+" tasker working directory at "+layout.Root)
		return nil
	},
}
