// Package recorder captures file changes into a shadow git history.
//
// A Recorder owns one shadow history per project root: snapshots of single
// files tagged with the current intent, and consolidation of the most
// recent run of snapshots into a checkpoint.
package recorder

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gorewood/trajectory/internal/config"
	"github.com/gorewood/trajectory/internal/git"
	"github.com/gorewood/trajectory/internal/output"
)

// Store is the version-control capability the recorder is built on.
// Paths are relative to the work tree and use forward slashes.
// *git.Repo is the production implementation.
type Store interface {
	Init(ctx context.Context) error
	IsDirty(ctx context.Context, path string) (bool, error)
	HasChanges(ctx context.Context) (bool, error)
	Add(ctx context.Context, paths ...string) error
	AddAll(ctx context.Context) error
	Commit(ctx context.Context, message string) error
	ResetSoft(ctx context.Context, n int) error
	DeleteHead(ctx context.Context) error
	IsIgnored(ctx context.Context, path string) (bool, error)
	Log(ctx context.Context, opts git.LogOptions) ([]git.Commit, error)
	CommitTimes(ctx context.Context, maxCount int) ([]time.Time, error)
	ShowFile(ctx context.Context, sha, path string) ([]byte, error)
	DiffFile(ctx context.Context, fromSHA, toSHA, path string) (string, error)
}

// Options configures a Recorder. The zero value is ready to use.
type Options struct {
	// Store overrides the shadow git repository (tests).
	Store Store
	// Logger receives capture diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
	// Now overrides the wall clock used in commit subjects.
	Now func() time.Time
}

// Recorder creates snapshots and checkpoints in a project's shadow history.
// It is safe for concurrent use; concurrent commits are serialized by the
// store's own locking.
type Recorder struct {
	root      string
	shadowDir string
	store     Store
	logger    *slog.Logger
	now       func() time.Time

	mu     sync.RWMutex
	intent string
}

// Open prepares the shadow history for the project at root, creating it on
// first use and preserving its log on every later open.
func Open(ctx context.Context, root string, opts Options) (*Recorder, error) {
	resolved, err := ResolveRoot(root)
	if err != nil {
		return nil, err
	}

	rec := &Recorder{
		root:      resolved,
		shadowDir: filepath.Join(resolved, config.ShadowDirName),
		store:     opts.Store,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if rec.logger == nil {
		rec.logger = slog.Default()
	}
	if rec.now == nil {
		rec.now = time.Now
	}
	if rec.store == nil {
		rec.store = git.NewRepo(filepath.Join(rec.shadowDir, ".git"), resolved)
	}

	if err := ensureGitignore(resolved, rec.logger); err != nil {
		return nil, err
	}
	if err := rec.store.Init(ctx); err != nil {
		return nil, output.NewSystemErrorWithCause("initializing shadow history at "+rec.shadowDir, err)
	}

	rec.logger.Debug("shadow history ready", "root", resolved, "shadow_dir", rec.shadowDir)
	return rec, nil
}

// ResolveRoot returns the absolute, symlink-free form of a project directory.
// Returns a user error when the path does not exist or is not a directory.
func ResolveRoot(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", output.NewUserError("project path must not be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", output.NewUserErrorWithCause("invalid project path: "+path, err)
	}
	info, err := os.Stat(abs)
	if errors.Is(err, os.ErrNotExist) {
		return "", output.NewUserError("target path does not exist: " + abs)
	}
	if err != nil {
		return "", output.NewSystemErrorWithCause("cannot access "+abs, err)
	}
	if !info.IsDir() {
		return "", output.NewUserError("target path is not a directory: " + abs)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", output.NewSystemErrorWithCause("resolving "+abs, err)
	}
	return resolved, nil
}

// Root returns the tracked project root.
func (r *Recorder) Root() string { return r.root }

// ShadowDir returns the reserved directory holding the shadow history.
func (r *Recorder) ShadowDir() string { return r.shadowDir }

// Store returns the underlying version store for read-only queries.
func (r *Recorder) Store() Store { return r.store }

// SetIntent replaces the label attached to every later snapshot.
// Past snapshots keep the intent they were recorded with.
func (r *Recorder) SetIntent(intent string) {
	r.mu.Lock()
	r.intent = strings.TrimSpace(intent)
	r.mu.Unlock()
	r.logger.Info("intent set", "intent", intent)
}

// Intent returns the current intent, or "" when none is set.
func (r *Recorder) Intent() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.intent
}

// RelPath maps path (absolute, or relative to the project root) to a
// work-tree-relative, slash-separated path. A path spelled through a
// symlink to the root (the root itself is stored resolved) is accepted.
// ok is false when the path resolves outside the project root.
func (r *Recorder) RelPath(path string) (rel string, ok bool) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(r.root, abs)
	}
	abs = filepath.Clean(abs)

	if rel, ok := relWithin(r.root, abs); ok {
		return rel, true
	}
	return relWithin(r.root, resolveSymlinks(abs))
}

func relWithin(root, abs string) (string, bool) {
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// resolveSymlinks evaluates symlinks in abs. A deleted file still has
// history, so its parent directory is resolved instead.
func resolveSymlinks(abs string) string {
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		return filepath.Join(dir, filepath.Base(abs))
	}
	return abs
}

// InShadowDir reports whether path lies inside the reserved shadow directory.
func (r *Recorder) InShadowDir(path string) bool {
	rel, ok := r.RelPath(path)
	if !ok {
		return false
	}
	return rel == config.ShadowDirName || strings.HasPrefix(rel, config.ShadowDirName+"/")
}

// IsIgnored reports whether the project's ignore rules exclude path.
// Failures to ask are logged and treated as not ignored.
func (r *Recorder) IsIgnored(ctx context.Context, path string) bool {
	rel, ok := r.RelPath(path)
	if !ok {
		return true
	}
	ignored, err := r.store.IsIgnored(ctx, rel)
	if err != nil {
		r.logger.Warn("failed to check ignore status", "path", path, "error", err)
		return false
	}
	return ignored
}

// History returns up to maxCount commits touching path, most recent first.
// A path outside the project root yields an empty result, as does an
// empty history.
func (r *Recorder) History(ctx context.Context, path string, maxCount int) ([]git.Commit, error) {
	rel, ok := r.RelPath(path)
	if !ok {
		r.logger.Error("path is not within project root", "path", path, "root", r.root)
		return nil, nil
	}

	commits, err := r.store.Log(ctx, git.LogOptions{MaxCount: maxCount, Path: rel})
	if git.IsNoHistory(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return commits, nil
}
