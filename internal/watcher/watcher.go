// Package watcher turns filesystem events under a project root into
// debounced snapshot requests.
//
// Each changed file gets its own timer. Further events for the same file
// re-arm the timer, so a burst of saves collapses into one snapshot of the
// final content. Different files snapshot independently and may do so
// concurrently.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"github.com/gorewood/trajectory/internal/config"
)

// Capture is the snapshot side of the pipeline. *recorder.Recorder
// implements it.
type Capture interface {
	CreateSnapshot(ctx context.Context, path string)
	IsIgnored(ctx context.Context, path string) bool
}

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period a file must see before it is
	// snapshotted. Default: config.DefaultDebounce.
	Debounce time.Duration

	// IgnorePatterns are glob patterns matched against file basenames.
	// Default: config.DefaultIgnorePatterns.
	IgnorePatterns []string

	// Logger receives watch diagnostics. Default: slog.Default().
	Logger *slog.Logger
}

// pending is one armed debounce timer. Entries are compared by pointer so
// a superseded callback can tell it is no longer current.
type pending struct {
	timer *time.Timer
}

// Watcher observes a project tree and requests snapshots of changed files.
//
// # Thread Safety
//
// Safe for concurrent use. Start may be called once; Stop any number of times.
type Watcher struct {
	root     string
	capture  Capture
	debounce time.Duration
	patterns []glob.Glob
	logger   *slog.Logger

	mu       sync.Mutex
	pending  map[string]*pending
	started  bool
	stopped  bool
	fsw      *fsnotify.Watcher
	loopDone chan struct{}
	inflight sync.WaitGroup

	// dirs holds every directory added to fsnotify. A removed directory
	// can no longer be stat'ed, so its events are recognized from here.
	dirMu sync.Mutex
	dirs  map[string]struct{}
}

// New returns a Watcher for root. Call Start to begin watching.
// Returns an error when an ignore pattern does not compile.
func New(root string, capture Capture, opts Options) (*Watcher, error) {
	if capture == nil {
		return nil, errors.New("watcher requires a capture target")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = config.DefaultDebounce
	}
	if opts.IgnorePatterns == nil {
		opts.IgnorePatterns = config.DefaultIgnorePatterns
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	patterns := make([]glob.Glob, 0, len(opts.IgnorePatterns))
	for _, p := range opts.IgnorePatterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
		patterns = append(patterns, g)
	}

	return &Watcher{
		root:     filepath.Clean(root),
		capture:  capture,
		debounce: opts.Debounce,
		patterns: patterns,
		logger:   opts.Logger,
		pending:  make(map[string]*pending),
		dirs:     make(map[string]struct{}),
	}, nil
}

// Start registers the tree with fsnotify and begins processing events in
// the background. Events stop being processed when ctx is canceled or Stop
// is called; Stop must still be called to release resources.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return errors.New("watcher already stopped")
	}
	if w.started {
		return errors.New("watcher already started")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating filesystem watcher: %w", err)
	}
	w.fsw = fsw
	if err := w.watchTree(ctx, w.root, false); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watching %s: %w", w.root, err)
	}

	w.started = true
	w.loopDone = make(chan struct{})
	go w.loop(ctx)

	w.logger.Info("watching for changes", "root", w.root, "debounce", w.debounce)
	return nil
}

// Stop cancels every armed timer, closes the event source, and waits for
// the event loop and any snapshot already in progress to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	for path, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, path)
	}
	fsw, done := w.fsw, w.loopDone
	w.mu.Unlock()

	if fsw != nil {
		if err := fsw.Close(); err != nil {
			w.logger.Warn("closing filesystem watcher", "error", err)
		}
	}
	if done != nil {
		<-done
	}
	w.inflight.Wait()
	w.logger.Info("watcher stopped", "root", w.root)
}

// Pending returns the number of files waiting for their debounce timer.
func (w *Watcher) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.loopDone)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("filesystem watch error", "error", err)
		}
	}
}

// handle filters one fsnotify event and arms a timer for relevant files.
func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	path := event.Name
	if w.reserved(path) {
		return
	}
	if (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) && w.forgetDir(path) {
		return
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		if event.Has(fsnotify.Create) && !w.capture.IsIgnored(ctx, path) {
			if err := w.watchTree(ctx, path, true); err != nil {
				w.logger.Warn("failed to watch new directory", "path", path, "error", err)
			}
		}
		return
	}

	if w.matchesPattern(path) || w.capture.IsIgnored(ctx, path) {
		return
	}
	w.logger.Debug("change detected", "path", path, "op", event.Op.String())
	w.schedule(ctx, path)
}

// watchTree adds dir and its subdirectories to fsnotify. When arm is set,
// files already present are scheduled too; they may have been written
// before the directory was being watched.
func (w *Watcher) watchTree(ctx context.Context, dir string, arm bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if path != dir && w.reserved(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			if arm && !w.matchesPattern(path) && !w.capture.IsIgnored(ctx, path) {
				w.schedule(ctx, path)
			}
			return nil
		}
		if path != dir && w.capture.IsIgnored(ctx, path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return err
		}
		w.addDir(path)
		return nil
	})
}

func (w *Watcher) addDir(dir string) {
	w.dirMu.Lock()
	w.dirs[dir] = struct{}{}
	w.dirMu.Unlock()
}

// forgetDir drops dir and everything below it from the watched set.
// It reports whether dir itself was a watched directory.
func (w *Watcher) forgetDir(dir string) bool {
	w.dirMu.Lock()
	defer w.dirMu.Unlock()
	if _, ok := w.dirs[dir]; !ok {
		return false
	}
	prefix := dir + string(filepath.Separator)
	for d := range w.dirs {
		if d == dir || strings.HasPrefix(d, prefix) {
			delete(w.dirs, d)
		}
	}
	return true
}

// reserved reports whether path is outside the root or inside a git or
// shadow-history directory.
func (w *Watcher) reserved(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part == ".git" || part == config.ShadowDirName {
			return true
		}
	}
	return false
}

func (w *Watcher) matchesPattern(path string) bool {
	base := filepath.Base(path)
	for _, g := range w.patterns {
		if g.Match(base) {
			return true
		}
	}
	return false
}

// schedule arms (or re-arms) the debounce timer for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if prev, ok := w.pending[path]; ok {
		prev.timer.Stop()
	}
	p := &pending{}
	w.pending[path] = p
	p.timer = time.AfterFunc(w.debounce, func() { w.fire(ctx, path, p) })
}

// fire runs when a debounce timer expires. The snapshot happens outside the
// lock so new events are never blocked behind git.
func (w *Watcher) fire(ctx context.Context, path string, p *pending) {
	w.mu.Lock()
	if w.stopped || w.pending[path] != p {
		w.mu.Unlock()
		return
	}
	delete(w.pending, path)
	w.inflight.Add(1)
	w.mu.Unlock()

	defer w.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("snapshot panicked", "path", path, "panic", r)
		}
	}()
	w.capture.CreateSnapshot(ctx, path)
}
