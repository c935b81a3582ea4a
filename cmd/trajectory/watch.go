package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// newWatchCmd creates the watch command.
func newWatchCmd() *cobra.Command {
	var intentFlag string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Record changes in the foreground until interrupted",
		Long: `Watch a project and record a snapshot for every saved change.

Snapshots go to the shadow history in .trajectory/; the project's own git
repository is never touched. Stop with Ctrl-C.

Examples:
  trajectory watch                          # Record the current directory
  trajectory watch --path ~/src/app         # Record another project
  trajectory watch --intent "fix login bug" # Tag snapshots with an intent`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, intentFlag)
		},
	}
	cmd.Flags().StringVar(&intentFlag, "intent", "", "Intent attached to every snapshot")
	return cmd
}

func runWatch(cmd *cobra.Command, intent string) error {
	printer := newPrinter(cmd)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tr, session, err := openProject(cmd, true)
	if err != nil {
		printer.Error(err)
		return err
	}
	defer tr.Close()

	if intent != "" {
		session.Recorder.SetIntent(intent)
	}
	if !printer.IsJSON() {
		printer.Println("Recording changes in " + session.Root + " (Ctrl-C to stop)")
	}

	<-ctx.Done()

	return printer.Success(map[string]any{
		"root":    session.Root,
		"intent":  session.Recorder.Intent(),
		"message": "Stopped recording " + session.Root,
	})
}
