package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Dowwie/tasker/internal/state"
	"github.com/Dowwie/tasker/internal/store"
	"github.com/Dowwie/tasker/internal/verification"
)

type doctorCheck struct {
	name string
	ok   bool
	note string
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run a battery of health checks against the working directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		var checks []doctorCheck

		checks = append(checks, checkLayout())
		checks = append(checks, checkStateDoc())
		checks = append(checks, checkLockAvailable())
		checks = append(checks, checkCalibrationDB())
		checks = append(checks, checkWorkerConfigured())
		checks = append(checks, checkHaltSentinel())

		okStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
		failStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))

		failures := 0
		for _, c := range checks {
			mark := okStyle.Render("ok")
			if !c.ok {
				mark = failStyle.Render("fail")
				failures++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s", mark, c.name)
			if c.note != "" {
				fmt.Fprintf(cmd.OutOrStdout(), ": %s", c.note)
			}
			fmt.Fprintln(cmd.OutOrStdout())
		}

		if failures > 0 {
			return fmt.Errorf("%d check(s) failed", failures)
		}
		return nil
	},
}

func checkLayout() doctorCheck {
	if err := layout.EnsureDirs(); err != nil {
		return doctorCheck{name: "working directory layout", ok: false, note: err.Error()}
	}
	return doctorCheck{name: "working directory layout", ok: true, note: layout.Root}
}

func checkStateDoc() doctorCheck {
	if !store.Exists(layout.StatePath) {
		return doctorCheck{name: "state document", ok: false, note: "not initialized, run 'tasker init'"}
	}
	var s state.State
	if err := store.ReadJSON(layout.StatePath, &s); err != nil {
		return doctorCheck{name: "state document", ok: false, note: "unreadable: " + err.Error()}
	}
	if err := state.Validate(&s); err != nil {
		return doctorCheck{name: "state document", ok: false, note: "invariant violation: " + err.Error()}
	}
	return doctorCheck{name: "state document", ok: true, note: fmt.Sprintf("phase=%s tasks=%d", s.Phase.Current, len(s.Tasks))}
}

func checkLockAvailable() doctorCheck {
	err := store.WithLock(layout.StatePath, 2*time.Second, func() error { return nil })
	if err != nil {
		return doctorCheck{name: "storage lock", ok: false, note: "could not acquire: " + err.Error()}
	}
	return doctorCheck{name: "storage lock", ok: true}
}

func checkCalibrationDB() doctorCheck {
	ledger, err := verification.Open(layout.CalibrationDB)
	if err != nil {
		return doctorCheck{name: "calibration database", ok: false, note: err.Error()}
	}
	defer ledger.Close()
	return doctorCheck{name: "calibration database", ok: true, note: layout.CalibrationDB}
}

func checkWorkerConfigured() doctorCheck {
	if appConfig == nil || len(appConfig.Worker.Command) == 0 {
		return doctorCheck{name: "worker command", ok: false, note: "no worker.command configured"}
	}
	return doctorCheck{name: "worker command", ok: true, note: appConfig.Worker.Command[0]}
}

func checkHaltSentinel() doctorCheck {
	if layout.IsHalted() {
		return doctorCheck{name: "halt sentinel", ok: true, note: "halted: " + layout.ReadStopReason()}
	}
	return doctorCheck{name: "halt sentinel", ok: true, note: "not halted"}
}
