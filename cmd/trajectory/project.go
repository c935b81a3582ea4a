package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gorewood/trajectory/internal/config"
	"github.com/gorewood/trajectory/internal/output"
	"github.com/gorewood/trajectory/internal/recorder"
	"github.com/gorewood/trajectory/internal/tracker"
)

func newPrinter(cmd *cobra.Command) *output.Printer {
	return output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), output.IsTTY(cmd.OutOrStdout())).
		WithStderr(cmd.ErrOrStderr())
}

// newLogger builds a text logger on stderr. Stdout carries command output,
// or the MCP transport under serve. --log-level overrides the configured level.
func newLogger(cmd *cobra.Command, settings config.Settings) (*slog.Logger, error) {
	level := settings.SlogLevel()
	if name := stringFlag(cmd, "log-level"); name != "" {
		parsed, err := config.ParseLevel(name)
		if err != nil {
			return nil, output.NewUserErrorWithCause(err.Error(), err)
		}
		level = parsed
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})), nil
}

// projectRoot resolves --path, defaulting to the working directory.
func projectRoot(cmd *cobra.Command) (string, error) {
	path := stringFlag(cmd, "path")
	if path == "" {
		path = "."
	}
	return recorder.ResolveRoot(path)
}

// openProject binds a tracker to the project named by --path, using that
// project's settings. Callers must Close the returned tracker.
func openProject(cmd *cobra.Command, watch bool) (*tracker.Tracker, *tracker.Session, error) {
	root, err := projectRoot(cmd)
	if err != nil {
		return nil, nil, err
	}
	settings, err := config.LoadForProject(root)
	if err != nil {
		return nil, nil, output.NewUserErrorWithCause("invalid settings: "+err.Error(), err)
	}
	logger, err := newLogger(cmd, settings)
	if err != nil {
		return nil, nil, err
	}

	tr := tracker.New(tracker.Options{Logger: logger, Settings: &settings, NoWatch: !watch})
	if _, err := tr.Configure(cmd.Context(), root); err != nil {
		return nil, nil, err
	}
	session, err := tr.Session()
	if err != nil {
		tr.Close()
		return nil, nil, err
	}
	return tr, session, nil
}

// absFile makes a command-line file argument absolute against the working
// directory, resolving symlinks the way project roots are resolved.
func absFile(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	// Deleted files still have history; resolve the parent instead.
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		return filepath.Join(dir, filepath.Base(abs))
	}
	return abs
}

// shadowExists reports whether root already has a shadow history.
func shadowExists(root string) bool {
	info, err := os.Stat(filepath.Join(root, config.ShadowDirName, ".git"))
	return err == nil && info.IsDir()
}
