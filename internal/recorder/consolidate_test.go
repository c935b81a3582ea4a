package recorder

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gorewood/trajectory/internal/output"
)

const (
	snap = "[SNAPSHOT] 10:00:00 - Snapshot of /p/a.go"
	ckpt = "[CHECKPOINT] 09:00:00 - earlier work"
)

func TestConsolidate_SquashesLeadingRun(t *testing.T) {
	tests := []struct {
		name        string
		history     []string // oldest first
		wantReset   []int
		wantDeleted bool
		wantCommits int
	}{
		{
			name:        "run after checkpoint",
			history:     []string{ckpt, snap, snap, snap},
			wantReset:   []int{3},
			wantCommits: 2,
		},
		{
			name:        "run stops at manual commit",
			history:     []string{snap, "manual commit", snap},
			wantReset:   []int{1},
			wantCommits: 3,
		},
		{
			name:        "whole history is snapshots",
			history:     []string{snap, snap},
			wantDeleted: true,
			wantCommits: 1,
		},
		{
			name:        "legacy checkpoint is a boundary",
			history:     []string{"[CONSOLIDATE] 08:00:00 - old", snap},
			wantReset:   []int{1},
			wantCommits: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			store := newFakeStore()
			store.seed(tt.history...)
			rec := openFake(t, store, &logs)

			status := rec.Consolidate(context.Background(), "feature done")
			if !strings.HasPrefix(status, "Successfully consolidated: 'feature done'") {
				t.Fatalf("status = %q", status)
			}
			if !strings.Contains(status, ".trajectory") {
				t.Errorf("status should name the shadow repository: %q", status)
			}
			if len(tt.wantReset) != len(store.resets) || (len(tt.wantReset) > 0 && tt.wantReset[0] != store.resets[0]) {
				t.Errorf("resets = %v, want %v", store.resets, tt.wantReset)
			}
			if store.headDeleted != tt.wantDeleted {
				t.Errorf("headDeleted = %v, want %v", store.headDeleted, tt.wantDeleted)
			}
			if len(store.commits) != tt.wantCommits {
				t.Errorf("commits after = %d, want %d", len(store.commits), tt.wantCommits)
			}
			if head := store.commits[0].Subject; head != "[CHECKPOINT] 14:05:09 - feature done" {
				t.Errorf("head = %q", head)
			}
		})
	}
}

func TestConsolidate_ReportsSquashCount(t *testing.T) {
	var logs bytes.Buffer
	store := newFakeStore()
	store.seed(ckpt, snap, snap)
	rec := openFake(t, store, &logs)

	status := rec.Consolidate(context.Background(), "two saves")
	if !strings.Contains(status, "(squashed 2 snapshots)") {
		t.Errorf("status = %q", status)
	}
}

func TestConsolidate_NothingPending(t *testing.T) {
	var logs bytes.Buffer
	store := newFakeStore()
	store.seed(ckpt)
	rec := openFake(t, store, &logs)

	status := rec.Consolidate(context.Background(), "again")
	if !strings.HasPrefix(status, "Nothing to consolidate") {
		t.Errorf("status = %q", status)
	}
	if len(store.commits) != 1 {
		t.Errorf("history changed: %d commits", len(store.commits))
	}
}

func TestConsolidate_IncludesUnsnapshottedChanges(t *testing.T) {
	var logs bytes.Buffer
	store := newFakeStore()
	store.seed(ckpt)
	store.dirty["deleted.go"] = true
	rec := openFake(t, store, &logs)

	status := rec.Consolidate(context.Background(), "cleanup")
	if !strings.Contains(status, "(squashed 0 snapshots)") {
		t.Errorf("status = %q", status)
	}
	if len(store.commits) != 2 {
		t.Errorf("commits = %d, want 2", len(store.commits))
	}
}

func TestConsolidate_EmptyHistory(t *testing.T) {
	var logs bytes.Buffer
	rec := openFake(t, newFakeStore(), &logs)

	status := rec.Consolidate(context.Background(), "first")
	if !strings.HasPrefix(status, "Nothing to consolidate") {
		t.Errorf("status = %q", status)
	}
}

func TestConsolidate_ErrorsBecomeStatus(t *testing.T) {
	var logs bytes.Buffer
	store := newFakeStore()
	store.seed(snap)
	store.commitErr = output.NewBusyError("git command failed: index.lock exists", errors.New("exit 128"))
	rec := openFake(t, store, &logs)

	status := rec.Consolidate(context.Background(), "blocked")
	if !strings.HasPrefix(status, "Error consolidating:") {
		t.Errorf("status = %q", status)
	}
	if !strings.Contains(logs.String(), "consolidate failed") {
		t.Errorf("failure not logged:\n%s", logs.String())
	}
}

func TestConsolidate_RequiresDescription(t *testing.T) {
	var logs bytes.Buffer
	store := newFakeStore()
	store.seed(snap)
	rec := openFake(t, store, &logs)

	status := rec.Consolidate(context.Background(), "   ")
	if !strings.HasPrefix(status, "Error consolidating:") {
		t.Errorf("status = %q", status)
	}
	if store.headDeleted {
		t.Error("history must not be rewritten without a description")
	}
}

func TestPendingSnapshots(t *testing.T) {
	var logs bytes.Buffer
	store := newFakeStore()
	rec := openFake(t, store, &logs)
	ctx := context.Background()

	if n, err := rec.PendingSnapshots(ctx); err != nil || n != 0 {
		t.Errorf("PendingSnapshots(empty) = %d, %v", n, err)
	}

	store.seed(snap, ckpt, snap, snap)
	if n, err := rec.PendingSnapshots(ctx); err != nil || n != 2 {
		t.Errorf("PendingSnapshots() = %d, %v; want 2", n, err)
	}
}

func TestCreateSnapshot_Fake(t *testing.T) {
	var logs bytes.Buffer
	store := newFakeStore()
	rec := openFake(t, store, &logs)
	ctx := context.Background()
	rec.SetIntent("  add parser  ")

	rec.CreateSnapshot(ctx, rec.Root()+"/clean.go")
	if len(store.commits) != 0 {
		t.Fatalf("clean file produced a commit")
	}

	store.dirty["pkg/a.go"] = true
	path := rec.Root() + "/pkg/a.go"
	rec.CreateSnapshot(ctx, path)
	if len(store.commits) != 1 {
		t.Fatalf("commits = %d, want 1", len(store.commits))
	}
	want := "[SNAPSHOT] 14:05:09 - add parser - Snapshot of " + path
	if got := store.commits[0].Subject; got != want {
		t.Errorf("subject = %q, want %q", got, want)
	}
	if len(store.added) != 1 || store.added[0] != "pkg/a.go" {
		t.Errorf("added = %v, want exactly [pkg/a.go]", store.added)
	}
}

func TestCreateSnapshot_SwallowsErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLevel string
	}{
		{"lock contention", output.NewBusyError("git command failed: index.lock", errors.New("exit 128")), "level=WARN"},
		{"other failure", output.NewSystemError("git command failed: bad object"), "level=ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			store := newFakeStore()
			store.dirty["a.go"] = true
			store.commitErr = tt.err
			rec := openFake(t, store, &logs)

			rec.CreateSnapshot(context.Background(), rec.Root()+"/a.go")
			if !strings.Contains(logs.String(), tt.wantLevel) {
				t.Errorf("expected %s record:\n%s", tt.wantLevel, logs.String())
			}
		})
	}
}

func TestCreateSnapshot_RejectsOutsideAndShadowPaths(t *testing.T) {
	var logs bytes.Buffer
	store := newFakeStore()
	store.dirty[".trajectory/config.yaml"] = true
	rec := openFake(t, store, &logs)
	ctx := context.Background()

	rec.CreateSnapshot(ctx, "/definitely/elsewhere.go")
	rec.CreateSnapshot(ctx, rec.Root()+"/.trajectory/config.yaml")
	if len(store.commits) != 0 {
		t.Errorf("unexpected commits: %v", store.commits)
	}
}
