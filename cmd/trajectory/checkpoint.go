package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/gorewood/trajectory/internal/output"
	"github.com/gorewood/trajectory/internal/recorder"
)

// newCheckpointCmd creates the checkpoint command.
func newCheckpointCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkpoint <description>",
		Short: "Squash recent snapshots into one checkpoint",
		Long: `Squash the snapshots recorded since the last checkpoint into a single
checkpoint carrying the given description.

Only the shadow history in .trajectory/ is rewritten. Commit to the
project's own repository separately.

Examples:
  trajectory checkpoint "login form validates email"
  trajectory checkpoint "parser refactor done" --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckpoint(cmd, args[0])
		},
	}
}

func runCheckpoint(cmd *cobra.Command, description string) error {
	printer := newPrinter(cmd)
	if strings.TrimSpace(description) == "" {
		err := output.NewUserError("checkpoint description must not be empty")
		printer.Error(err)
		return err
	}

	tr, session, err := openProject(cmd, false)
	if err != nil {
		printer.Error(err)
		return err
	}
	defer tr.Close()

	status := session.Recorder.Consolidate(cmd.Context(), description)
	if msg, failed := strings.CutPrefix(status, recorder.ConsolidateErrorPrefix); failed {
		err := output.NewSystemError("consolidating: " + msg)
		printer.Error(err)
		return err
	}
	return printer.Success(map[string]any{
		"root":    session.Root,
		"message": status,
	})
}
