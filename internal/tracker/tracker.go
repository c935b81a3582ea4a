// Package tracker holds the project currently being recorded.
//
// A Tracker replaces process-wide globals: it owns the active Recorder,
// Engine and Watcher, and swaps them as a unit when a different project is
// configured. Tool handlers and CLI commands receive a Tracker explicitly.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorewood/trajectory/internal/config"
	"github.com/gorewood/trajectory/internal/output"
	"github.com/gorewood/trajectory/internal/recorder"
	"github.com/gorewood/trajectory/internal/trajectory"
	"github.com/gorewood/trajectory/internal/watcher"
)

// ErrNotConfigured is returned by Session before any project is configured.
var ErrNotConfigured = errors.New("no project configured")

// NotConfiguredMessage tells a caller how to get out of the not-configured state.
const NotConfiguredMessage = "Project not configured. Call configure_project with the absolute path " +
	"of the project directory to start recording its trajectory."

// Session is the set of components bound to one tracked project.
type Session struct {
	Root     string
	Settings config.Settings
	Recorder *recorder.Recorder
	Engine   *trajectory.Engine
	// Watcher is nil when the tracker was built without watching.
	Watcher *watcher.Watcher
}

// Options configures a Tracker.
type Options struct {
	// Logger is passed to every component. Default: slog.Default().
	Logger *slog.Logger

	// Settings overrides the per-project settings normally read by
	// config.LoadForProject.
	Settings *config.Settings

	// NoWatch skips starting a filesystem watcher. One-shot CLI commands
	// use it to query or checkpoint without recording.
	NoWatch bool
}

// Tracker owns the currently tracked project. It is safe for concurrent use.
type Tracker struct {
	opts Options

	mu      sync.Mutex
	current *Session
}

// New returns a Tracker with no project configured.
func New(opts Options) *Tracker {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Tracker{opts: opts}
}

// Configure starts tracking the project at path. Configuring the project
// already being tracked is a no-op. Switching projects stops the previous
// watcher before the new one starts.
func (t *Tracker) Configure(ctx context.Context, path string) (string, error) {
	root, err := recorder.ResolveRoot(path)
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current != nil {
		if t.current.Root == root {
			return fmt.Sprintf("Already tracking project at %s.", root), nil
		}
		t.opts.Logger.Info("switching tracked project", "from", t.current.Root, "to", root)
		t.stopLocked()
	}

	session, err := t.open(ctx, root)
	if err != nil {
		return "", err
	}
	t.current = session

	if session.Watcher == nil {
		return fmt.Sprintf("Successfully configured project at %s.", root), nil
	}
	return fmt.Sprintf("Successfully configured project at %s. Recording changes.", root), nil
}

func (t *Tracker) open(ctx context.Context, root string) (*Session, error) {
	var settings config.Settings
	if t.opts.Settings != nil {
		settings = *t.opts.Settings
	} else {
		loaded, err := config.LoadForProject(root)
		if err != nil {
			return nil, output.NewUserErrorWithCause("invalid settings: "+err.Error(), err)
		}
		settings = loaded
	}
	logger := t.opts.Logger.With("project", root)

	rec, err := recorder.Open(ctx, root, recorder.Options{Logger: logger})
	if err != nil {
		return nil, err
	}
	session := &Session{
		Root:     rec.Root(),
		Settings: settings,
		Recorder: rec,
		Engine:   trajectory.NewEngine(rec, trajectory.Options{SessionGap: time.Duration(settings.SessionGap), Logger: logger}),
	}
	if t.opts.NoWatch {
		return session, nil
	}

	w, err := watcher.New(rec.Root(), rec, watcher.Options{
		Debounce:       time.Duration(settings.Debounce),
		IgnorePatterns: settings.IgnorePatterns,
		Logger:         logger,
	})
	if err != nil {
		return nil, output.NewUserErrorWithCause(err.Error(), err)
	}
	// The watcher outlives the request that configured it.
	if err := w.Start(context.WithoutCancel(ctx)); err != nil {
		return nil, output.NewSystemErrorWithCause("starting watcher", err)
	}
	session.Watcher = w
	return session, nil
}

// Session returns the active project's components, or ErrNotConfigured.
func (t *Tracker) Session() (*Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return nil, ErrNotConfigured
	}
	return t.current, nil
}

// Close stops recording. The Tracker returns to the not-configured state.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Tracker) stopLocked() {
	if t.current == nil {
		return
	}
	if t.current.Watcher != nil {
		t.current.Watcher.Stop()
	}
	t.current = nil
}
