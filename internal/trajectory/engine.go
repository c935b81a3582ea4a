// Package trajectory reconstructs narratives from the shadow history.
//
// Three read-only views are offered: the chronological story of one file
// with revert detection, a feed of recent activity across the project, and
// a summary of the most recent working session. Each view has a structured
// form (for JSON and tool output) and a markdown rendering.
package trajectory

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorewood/trajectory/internal/config"
	"github.com/gorewood/trajectory/internal/git"
	"github.com/gorewood/trajectory/internal/recorder"
)

// Defaults and safety caps for the queries.
const (
	DefaultDepth       = 5
	DefaultFeedLimit   = 20
	MaxCheckpointScan  = 1000
	MaxSessionLookback = 1000
)

// Source is the read side of a recorder. *recorder.Recorder implements it.
type Source interface {
	History(ctx context.Context, path string, maxCount int) ([]git.Commit, error)
	RelPath(path string) (string, bool)
	Store() recorder.Store
}

// Options configures an Engine.
type Options struct {
	// SessionGap is the idle time that separates two sessions.
	// Default: config.DefaultSessionGap.
	SessionGap time.Duration
	// Logger receives query diagnostics. Default: slog.Default().
	Logger *slog.Logger
}

// Engine answers trajectory queries. It never writes to the history and is
// safe for concurrent use.
type Engine struct {
	src        Source
	sessionGap time.Duration
	logger     *slog.Logger
}

// NewEngine returns an Engine reading from src.
func NewEngine(src Source, opts Options) *Engine {
	if opts.SessionGap <= 0 {
		opts.SessionGap = config.DefaultSessionGap
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{src: src, sessionGap: opts.SessionGap, logger: opts.Logger}
}

// SessionGap returns the idle gap used to split sessions.
func (e *Engine) SessionGap() time.Duration { return e.sessionGap }
