package recorder

import (
	"context"
	"fmt"
	"strings"

	"github.com/gorewood/trajectory/internal/config"
	"github.com/gorewood/trajectory/internal/git"
)

// ConsolidateErrorPrefix starts every status Consolidate returns on failure.
const ConsolidateErrorPrefix = "Error consolidating: "

// Consolidation status messages.
const (
	nothingToConsolidate = "Nothing to consolidate: no changes since the last checkpoint."
	consolidatedFormat   = "Successfully consolidated: '%s' (squashed %d snapshots). " +
		"This rewrote the shadow repository (%s) ONLY; commit to your project's own repository separately."
	consolidateErrFormat = ConsolidateErrorPrefix + "%v"
)

// Consolidate squashes the run of Snapshots at the head of the history into
// one Checkpoint carrying description, together with every other pending
// change in the work tree. It returns a human-readable status and never
// fails: store errors become an "Error consolidating" status.
func (r *Recorder) Consolidate(ctx context.Context, description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return fmt.Sprintf(consolidateErrFormat, "a checkpoint description is required")
	}

	squashed, committed, err := r.consolidate(ctx, description)
	if err != nil {
		r.logger.Error("consolidate failed", "description", description, "error", err)
		return fmt.Sprintf(consolidateErrFormat, err)
	}
	if !committed {
		r.logger.Info("nothing to consolidate")
		return nothingToConsolidate
	}
	r.logger.Info("checkpoint recorded", "description", description, "squashed", squashed)
	return fmt.Sprintf(consolidatedFormat, description, squashed, config.ShadowDirName)
}

func (r *Recorder) consolidate(ctx context.Context, description string) (int, bool, error) {
	commits, err := r.store.Log(ctx, git.LogOptions{})
	if err != nil && !git.IsNoHistory(err) {
		return 0, false, err
	}

	k := leadingSnapshots(commits)
	switch {
	case k == 0:
	case k == len(commits):
		// The run reaches the root: there is no parent to rewind to, so the
		// branch ref is dropped and the next commit becomes the new root.
		if err := r.store.DeleteHead(ctx); err != nil {
			return 0, false, err
		}
	default:
		if err := r.store.ResetSoft(ctx, k); err != nil {
			return 0, false, err
		}
	}

	pending, err := r.store.HasChanges(ctx)
	if err != nil {
		return k, false, err
	}
	if !pending {
		return k, false, nil
	}

	if err := r.store.AddAll(ctx); err != nil {
		return k, false, err
	}
	if err := r.store.Commit(ctx, CheckpointMessage(r.now(), description)); err != nil {
		return k, false, err
	}
	return k, true, nil
}

// PendingSnapshots reports how many Snapshots the next Consolidate would absorb.
func (r *Recorder) PendingSnapshots(ctx context.Context) (int, error) {
	commits, err := r.store.Log(ctx, git.LogOptions{})
	if git.IsNoHistory(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return leadingSnapshots(commits), nil
}

// leadingSnapshots counts consecutive Snapshots from the newest commit,
// stopping at the first commit of any other kind.
func leadingSnapshots(newestFirst []git.Commit) int {
	k := 0
	for _, c := range newestFirst {
		if !IsSnapshot(c.Subject) {
			break
		}
		k++
	}
	return k
}
