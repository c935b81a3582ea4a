package main

import (
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/gorewood/trajectory/internal/config"
	"github.com/gorewood/trajectory/internal/git"
	"github.com/gorewood/trajectory/internal/output"
)

// statusResult holds the data for status output.
type statusResult struct {
	Root             string `json:"root"`
	ShadowDir        string `json:"shadow_dir"`
	Initialized      bool   `json:"initialized"`
	PendingSnapshots int    `json:"pending_snapshots"`
	LastCommit       string `json:"last_commit,omitempty"`
	LastCommitTime   string `json:"last_commit_time,omitempty"`
	Debounce         string `json:"debounce"`
	SessionGap       string `json:"session_gap"`
}

// newStatusCmd creates the status command.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show shadow history state",
		Long: `Show the state of a project's shadow history: whether it exists, the
latest snapshot, and how many snapshots the next checkpoint would squash.

Status never creates a shadow history.

Examples:
  trajectory status
  trajectory status --path ~/src/app
  trajectory status --json`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	printer := newPrinter(cmd)

	result, err := gatherStatus(cmd)
	if err != nil {
		printer.Error(err)
		return err
	}

	if printer.IsJSON() {
		return printer.WriteJSON(result)
	}
	printHumanStatus(printer, result)
	return nil
}

// gatherStatus collects status without bootstrapping an untracked project.
func gatherStatus(cmd *cobra.Command) (*statusResult, error) {
	root, err := projectRoot(cmd)
	if err != nil {
		return nil, err
	}
	settings, err := config.LoadForProject(root)
	if err != nil {
		return nil, output.NewUserErrorWithCause("invalid settings: "+err.Error(), err)
	}

	result := &statusResult{
		Root:       root,
		ShadowDir:  filepath.Join(root, config.ShadowDirName),
		Debounce:   time.Duration(settings.Debounce).String(),
		SessionGap: time.Duration(settings.SessionGap).String(),
	}
	if !shadowExists(root) {
		return result, nil
	}
	result.Initialized = true

	tr, session, err := openProject(cmd, false)
	if err != nil {
		return nil, err
	}
	defer tr.Close()

	ctx := cmd.Context()
	last, err := session.Recorder.Store().Log(ctx, git.LogOptions{MaxCount: 1})
	if git.IsNoHistory(err) {
		return result, nil
	}
	if err != nil {
		return nil, output.NewSystemErrorWithCause("reading shadow history", err)
	}
	if len(last) > 0 {
		result.LastCommit = last[0].Subject
		result.LastCommitTime = last[0].Date.Format(time.RFC3339)
	}

	pending, err := session.Recorder.PendingSnapshots(ctx)
	if err != nil {
		return nil, output.NewSystemErrorWithCause("counting snapshots", err)
	}
	result.PendingSnapshots = pending
	return result, nil
}

// printHumanStatus outputs status in human-readable format.
func printHumanStatus(printer *output.Printer, status *statusResult) {
	printer.Section("Project")
	printer.KeyValue("Root", status.Root)
	printer.KeyValue("Debounce", status.Debounce)
	printer.KeyValue("Session Gap", status.SessionGap)

	printer.Section("Shadow History")
	printer.KeyValue("Directory", status.ShadowDir)
	printer.KeyValue("Initialized", formatBool(status.Initialized))
	if status.LastCommit != "" {
		printer.KeyValue("Last Commit", status.LastCommit)
	}
	printer.KeyValue("Pending Snapshots", strconv.Itoa(status.PendingSnapshots))
}

// formatBool returns a human-readable boolean string.
func formatBool(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
