package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Dowwie/tasker/internal/supervisor"
)

var haltRequestedBy string

func init() {
	haltCmd.Flags().StringVar(&haltRequestedBy, "by", "operator", "Who requested the halt")
}

var haltCmd = &cobra.Command{
	Use:   "halt <reason>",
	Short: "Write the STOP sentinel and halt further dispatch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := supervisor.RequestHalt(engine, layout, args[0], haltRequestedBy); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "halted: %s\n", args[0])
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Remove the STOP sentinel and clear the halt block in state",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := supervisor.Resume(engine, layout); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "resumed")
		return nil
	},
}

var checkHaltCmd = &cobra.Command{
	Use:   "check-halt",
	Short: "Report whether execution is currently halted",
	RunE: func(cmd *cobra.Command, args []string) error {
		halted, reason := supervisor.CheckHalt(layout)
		if !halted {
			fmt.Fprintln(cmd.OutOrStdout(), "not halted")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "halted: %s\n", reason)
		os.Exit(1)
		return nil
	},
}
