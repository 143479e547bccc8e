package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"warden/internal/launcher"
)

func newLifecycleCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the configured daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withLauncher(func(l *launcher.Launcher) error {
				result, err := l.Start(cmd.Context())
				if err != nil {
					return err
				}
				if result.State == launcher.StartStateDisabled {
					fmt.Fprintln(stdout, "Service is disabled in configuration; nothing to start")
					return &exitError{code: exitDisabled}
				}
				if result.ClearedPidfile != "" {
					fmt.Fprintf(stdout, "Cleared %s\n", result.ClearedPidfile)
				}
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
				return nil
			})
		},
	}

	var stopForce bool
	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withLauncher(func(l *launcher.Launcher) error {
				result, err := l.Stop(cmd.Context(), launcher.StopOptions{Force: stopForce})
				switch {
				case errors.Is(err, launcher.ErrNotRunning):
					fmt.Fprintln(stdout, "Daemon is not running")
					return &exitError{code: exitNotRunning}
				case errors.Is(err, launcher.ErrStalePid):
					fmt.Fprintln(stdout, "Pidfile named an unrelated process; record cleared, nothing stopped")
					return &exitError{code: exitNotRunning}
				case err != nil:
					return err
				}
				if result.ClearedCorrupt {
					fmt.Fprintln(stdout, "Cleared corrupt pidfile; daemon is not running")
					return nil
				}
				if result.Forced {
					fmt.Fprintf(stdout, "Daemon killed (pid %d) after graceful stop timed out\n", result.PID)
				} else {
					fmt.Fprintf(stdout, "Daemon stopped (pid %d)\n", result.PID)
				}
				return nil
			})
		},
	}
	stopCmd.Flags().BoolVar(&stopForce, "force", false, "Clear a corrupt pidfile instead of refusing to act on it")

	var restartForce bool
	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the daemon (stop if running, then start)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withLauncher(func(l *launcher.Launcher) error {
				result, err := l.Restart(cmd.Context(), launcher.StopOptions{Force: restartForce})
				if err != nil {
					return err
				}
				if result.WasRunning {
					fmt.Fprintf(stdout, "Daemon stopped (pid %d)\n", result.Stop.PID)
				}
				if result.Start.State == launcher.StartStateDisabled {
					fmt.Fprintln(stdout, "Service is disabled in configuration; nothing to start")
					return &exitError{code: exitDisabled}
				}
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.Start.PID)
				return nil
			})
		},
	}
	restartCmd.Flags().BoolVar(&restartForce, "force", false, "Clear a corrupt pidfile instead of refusing to act on it")

	var follow bool
	var followInterval time.Duration
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Report daemon liveness from the pidfile",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			return ctx.withLauncher(func(l *launcher.Launcher) error {
				if follow {
					sigCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
					defer cancel()
					ch, err := l.Watch(sigCtx, followInterval)
					if err != nil {
						return err
					}
					for status := range ch {
						fmt.Fprintln(stdout, renderStatusLine("State", statusKindFor(status), describeStatus(status), colorize))
					}
					return nil
				}

				status := l.Status()
				for _, line := range statusReport(status, ctx.configValue(), colorize) {
					fmt.Fprintln(stdout, line)
				}
				switch status.State {
				case launcher.StateRunning:
					return nil
				case launcher.StateStopped:
					return &exitError{code: exitNotRunning}
				default:
					return &exitError{code: exitFailure}
				}
			})
		},
	}
	statusCmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep reporting state transitions until interrupted")
	statusCmd.Flags().DurationVar(&followInterval, "interval", 2*time.Second, "Liveness re-probe interval in follow mode")

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}
