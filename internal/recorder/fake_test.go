package recorder

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/gorewood/trajectory/internal/git"
)

// fakeStore is an in-memory Store. commits are kept newest first.
type fakeStore struct {
	commits     []git.Commit
	dirty       map[string]bool
	staged      bool
	ignored     map[string]bool
	commitErr   error
	dirtyErr    error
	resets      []int
	headDeleted bool
	added       []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{dirty: map[string]bool{}, ignored: map[string]bool{}}
}

// seed appends commits oldest first, as if they had been recorded in order.
func (f *fakeStore) seed(subjects ...string) {
	for _, s := range subjects {
		f.commits = append([]git.Commit{{Subject: s}}, f.commits...)
	}
}

func (f *fakeStore) Init(context.Context) error { return nil }

func (f *fakeStore) IsDirty(_ context.Context, path string) (bool, error) {
	if f.dirtyErr != nil {
		return false, f.dirtyErr
	}
	return f.dirty[path], nil
}

func (f *fakeStore) HasChanges(context.Context) (bool, error) {
	return f.staged || len(f.dirty) > 0, nil
}

func (f *fakeStore) Add(_ context.Context, paths ...string) error {
	for _, p := range paths {
		delete(f.dirty, p)
		f.added = append(f.added, p)
	}
	f.staged = true
	return nil
}

func (f *fakeStore) AddAll(context.Context) error {
	if len(f.dirty) > 0 {
		f.staged = true
	}
	f.dirty = map[string]bool{}
	return nil
}

func (f *fakeStore) Commit(_ context.Context, message string) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.commits = append([]git.Commit{{Subject: message}}, f.commits...)
	f.staged = false
	return nil
}

func (f *fakeStore) ResetSoft(_ context.Context, n int) error {
	f.resets = append(f.resets, n)
	f.commits = f.commits[n:]
	f.staged = true
	return nil
}

func (f *fakeStore) DeleteHead(context.Context) error {
	f.headDeleted = true
	f.commits = nil
	f.staged = true
	return nil
}

func (f *fakeStore) IsIgnored(_ context.Context, path string) (bool, error) {
	return f.ignored[path], nil
}

func (f *fakeStore) Log(_ context.Context, opts git.LogOptions) ([]git.Commit, error) {
	if len(f.commits) == 0 {
		return nil, git.ErrNoHistory
	}
	out := f.commits
	if opts.MaxCount > 0 && opts.MaxCount < len(out) {
		out = out[:opts.MaxCount]
	}
	return out, nil
}

func (f *fakeStore) CommitTimes(context.Context, int) ([]time.Time, error) {
	return nil, git.ErrNoHistory
}

func (f *fakeStore) ShowFile(context.Context, string, string) ([]byte, error) {
	return nil, nil
}

func (f *fakeStore) DiffFile(context.Context, string, string, string) (string, error) {
	return "", nil
}

// fixedClock returns a clock stopped at 14:05:09 local time.
func fixedClock() func() time.Time {
	at := time.Date(2026, 3, 2, 14, 5, 9, 0, time.Local)
	return func() time.Time { return at }
}

// newTestLogger returns a debug-level logger writing text records to buf.
func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// openFake opens a Recorder over a fake store in a fresh temp directory.
func openFake(t *testing.T, store *fakeStore, logs *bytes.Buffer) *Recorder {
	t.Helper()
	rec, err := Open(context.Background(), t.TempDir(), Options{
		Store:  store,
		Logger: newTestLogger(logs),
		Now:    fixedClock(),
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return rec
}
