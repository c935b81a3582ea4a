package main

import (
	"github.com/spf13/cobra"

	"github.com/gorewood/trajectory/internal/git"
	"github.com/gorewood/trajectory/internal/output"
	"github.com/gorewood/trajectory/internal/trajectory"
)

// newHistoryCmd creates the history command.
func newHistoryCmd() *cobra.Command {
	var depthFlag int
	cmd := &cobra.Command{
		Use:   "history <file>",
		Short: "Show how a file evolved",
		Long: `Show the recent snapshots of a file, oldest first, each with its diff.

Snapshots that restore an earlier state of the file are marked
[Revert Detected].

Examples:
  trajectory history internal/app.go           # Last 5 snapshots
  trajectory history internal/app.go --depth 10
  trajectory history internal/app.go --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, args[0], depthFlag)
		},
	}
	cmd.Flags().IntVarP(&depthFlag, "depth", "d", trajectory.DefaultDepth, "Number of recent snapshots to show")
	return cmd
}

func runHistory(cmd *cobra.Command, file string, depth int) error {
	printer := newPrinter(cmd)
	if depth <= 0 {
		err := output.NewUserError("--depth must be positive")
		printer.Error(err)
		return err
	}

	tr, session, err := openProject(cmd, false)
	if err != nil {
		printer.Error(err)
		return err
	}
	defer tr.Close()

	report, err := session.Engine.File(cmd.Context(), absFile(file), depth)
	if err != nil {
		err = output.NewSystemErrorWithCause("reading file history", err)
		printer.Error(err)
		return err
	}
	if printer.IsJSON() {
		return printer.WriteJSON(report)
	}
	return printer.Markdown("file", report.Markdown())
}

// newFeedCmd creates the feed command.
func newFeedCmd() *cobra.Command {
	var (
		limitFlag int
		sinceFlag bool
	)
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show recent activity across the project",
		Long: `List recent snapshots across the whole project, one line each with the
files it touched.

Examples:
  trajectory feed                    # Last 20 snapshots
  trajectory feed --limit 50
  trajectory feed --since-checkpoint # Everything since the last checkpoint`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFeed(cmd, limitFlag, sinceFlag)
		},
	}
	cmd.Flags().IntVarP(&limitFlag, "limit", "n", trajectory.DefaultFeedLimit, "Maximum snapshots to list")
	cmd.Flags().BoolVar(&sinceFlag, "since-checkpoint", false, "List everything since the last checkpoint")
	return cmd
}

func runFeed(cmd *cobra.Command, limit int, sinceCheckpoint bool) error {
	printer := newPrinter(cmd)

	tr, session, err := openProject(cmd, false)
	if err != nil {
		printer.Error(err)
		return err
	}
	defer tr.Close()

	feed, err := session.Engine.Global(cmd.Context(), limit, sinceCheckpoint)
	if git.IsNoHistory(err) {
		feed, err = &trajectory.Feed{SinceCheckpoint: sinceCheckpoint, Items: []trajectory.FeedItem{}}, nil
	}
	if err != nil {
		err = output.NewSystemErrorWithCause("reading shadow history", err)
		printer.Error(err)
		return err
	}
	if printer.IsJSON() {
		return printer.WriteJSON(feed)
	}
	return printer.Markdown("feed", feed.Markdown())
}

// newSessionCmd creates the session command.
func newSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Summarize the most recent working session",
		Long: `Summarize the most recent working session: its time span, the files it
modified, how many snapshots it holds, and the latest intent.

A session ends wherever two consecutive snapshots are further apart than
the configured session_gap (default 1h).`,
		Args: cobra.NoArgs,
		RunE: runSession,
	}
}

func runSession(cmd *cobra.Command, _ []string) error {
	printer := newPrinter(cmd)

	tr, session, err := openProject(cmd, false)
	if err != nil {
		printer.Error(err)
		return err
	}
	defer tr.Close()

	summary, err := session.Engine.LastSession(cmd.Context())
	if git.IsNoHistory(err) {
		if printer.IsJSON() {
			return printer.WriteJSON(map[string]any{"commits": 0, "files": []string{}})
		}
		return printer.Markdown("session", trajectory.NoHistory)
	}
	if err != nil {
		err = output.NewSystemErrorWithCause("analyzing session history", err)
		printer.Error(err)
		return err
	}
	if printer.IsJSON() {
		return printer.WriteJSON(summary)
	}
	return printer.Markdown("session", summary.Markdown())
}
