package recorder

import (
	"context"

	"github.com/gorewood/trajectory/internal/git"
)

// CreateSnapshot commits the current state of a single file as a Snapshot.
//
// Nothing is recorded when the file has no staged, unstaged, or untracked
// change. Failures are logged and swallowed: a missed snapshot must never
// stop the capture pipeline, and lock contention heals on the next event.
func (r *Recorder) CreateSnapshot(ctx context.Context, path string) {
	rel, ok := r.RelPath(path)
	if !ok {
		r.logger.Error("refusing to snapshot path outside project root", "path", path, "root", r.root)
		return
	}
	if r.InShadowDir(path) {
		return
	}

	if err := r.snapshot(ctx, path, rel); err != nil {
		if git.IsLockContention(err) {
			r.logger.Warn("shadow history busy, snapshot skipped", "path", path, "error", err)
			return
		}
		r.logger.Error("snapshot failed", "path", path, "error", err)
	}
}

func (r *Recorder) snapshot(ctx context.Context, path, rel string) error {
	dirty, err := r.store.IsDirty(ctx, rel)
	if err != nil {
		return err
	}
	if !dirty {
		r.logger.Debug("no change to capture", "path", path)
		return nil
	}

	if err := r.store.Add(ctx, rel); err != nil {
		return err
	}
	msg := SnapshotMessage(r.now(), r.Intent(), path)
	if err := r.store.Commit(ctx, msg); err != nil {
		return err
	}
	r.logger.Info("snapshot recorded", "path", rel, "intent", r.Intent())
	return nil
}
