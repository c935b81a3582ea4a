package trajectory

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorewood/trajectory/internal/git"
	"github.com/gorewood/trajectory/internal/recorder"
)

type fixture struct {
	rec    *recorder.Recorder
	engine *Engine
	logs   *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	if !git.Available() {
		t.Skip("git not installed")
	}
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	rec, err := recorder.Open(context.Background(), t.TempDir(), recorder.Options{Logger: logger})
	require.NoError(t, err)
	return &fixture{rec: rec, engine: NewEngine(rec, Options{Logger: logger}), logs: logs}
}

// save writes content to rel and snapshots it.
func (f *fixture) save(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(f.rec.Root(), rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	f.rec.CreateSnapshot(context.Background(), path)
	return path
}

func TestFile_RevertDetected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	path := f.save(t, "a.txt", "state A\n")
	f.save(t, "a.txt", "state B\n")
	f.save(t, "a.txt", "state A\n")

	report, err := f.engine.File(ctx, path, 10)
	require.NoError(t, err)
	require.Len(t, report.Entries, 3)

	first, second, third := report.Entries[0], report.Entries[1], report.Entries[2]
	assert.True(t, first.Initial)
	assert.Nil(t, first.RevertOf)
	assert.Nil(t, second.RevertOf)
	require.NotNil(t, third.RevertOf)
	assert.True(t, third.RevertOf.Equal(first.Time))

	assert.Equal(t, 1, second.Added)
	assert.Equal(t, 1, second.Deleted)
	assert.Contains(t, second.Diff, "+state B")

	md := f.engine.FileTrajectory(ctx, path, 10)
	assert.Equal(t, 1, strings.Count(md, RevertMarker))
	assert.Contains(t, md, "(Matches state from "+first.Time.Format(longStamp)+")")
	assert.Contains(t, md, InitialMarker)
	assert.True(t, strings.HasPrefix(md, "# Trajectory for "+path))
}

func TestFile_DistinctStatesHaveNoRevert(t *testing.T) {
	f := newFixture(t)

	f.save(t, "a.txt", "A\n")
	f.save(t, "a.txt", "B\n")
	f.save(t, "a.txt", "C\n")

	md := f.engine.FileTrajectory(context.Background(), "a.txt", 10)
	assert.NotContains(t, md, RevertMarker)
	assert.Equal(t, 3, strings.Count(md, "\n## "))
}

func TestFile_RevertReferencesMostRecentMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	path := f.save(t, "a.txt", "A\n")
	f.save(t, "a.txt", "B\n")
	f.save(t, "a.txt", "A\n")
	f.save(t, "a.txt", "B\n")
	f.save(t, "a.txt", "A\n")

	report, err := f.engine.File(ctx, path, 10)
	require.NoError(t, err)
	require.Len(t, report.Entries, 5)
	require.NotNil(t, report.Entries[4].RevertOf)
	assert.True(t, report.Entries[4].RevertOf.Equal(report.Entries[2].Time))
}

func TestFile_DepthLimitsToNewest(t *testing.T) {
	f := newFixture(t)

	path := f.save(t, "a.txt", "1\n")
	f.save(t, "a.txt", "2\n")
	f.save(t, "a.txt", "3\n")

	report, err := f.engine.File(context.Background(), path, 2)
	require.NoError(t, err)
	require.Len(t, report.Entries, 2)
	assert.False(t, report.Entries[0].Initial, "oldest kept entry still has a parent")
	assert.Contains(t, report.Entries[1].Diff, "+3")
}

func TestFile_DeletedFileHasNoFingerprint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	path := f.save(t, "a.txt", "A\n")
	require.NoError(t, os.Remove(path))
	f.rec.CreateSnapshot(ctx, path)
	f.save(t, "a.txt", "A\n")

	report, err := f.engine.File(ctx, path, 10)
	require.NoError(t, err)
	require.Len(t, report.Entries, 3)
	assert.Nil(t, report.Entries[1].RevertOf)
	assert.Equal(t, 1, report.Entries[1].Deleted)
	assert.NotNil(t, report.Entries[2].RevertOf)
}

func TestFile_NoHistoryOrOutsideRoot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.Equal(t, "No trajectory found for a.txt.", f.engine.FileTrajectory(ctx, "a.txt", 5))
	assert.Equal(t, "No trajectory found for ../escape.txt.", f.engine.FileTrajectory(ctx, "../escape.txt", 5))
}

func TestGlobal_EmptyHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.Equal(t, NoHistory, f.engine.GlobalTrajectory(ctx, 20, false))
	assert.Equal(t, NoHistory, f.engine.GlobalTrajectory(ctx, 0, true))
	assert.Equal(t, NoHistory, f.engine.SessionSummary(ctx))
}

func TestGlobal_Bounded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.save(t, "a.txt", "1")
	f.save(t, "dir/b.txt", "1")
	f.save(t, "a.txt", "2")

	feed, err := f.engine.Global(ctx, 2, false)
	require.NoError(t, err)
	require.Len(t, feed.Items, 2)
	assert.Equal(t, []string{"dir/b.txt"}, feed.Items[0].Files)
	assert.Equal(t, []string{"a.txt"}, feed.Items[1].Files)

	md := feed.Markdown()
	lines := strings.Split(md, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "# Global Trajectory (Last 2 commits)", lines[0])
	assert.Regexp(t, `^- \*\*\d{2}:\d{2}:\d{2}\*\*: \[SNAPSHOT\] .* \(Files: `+"`dir/b.txt`"+`\)$`, lines[1])
}

func TestGlobal_SinceCheckpoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.save(t, "a.txt", "1")
	f.save(t, "b.txt", "1")
	require.Contains(t, f.rec.Consolidate(ctx, "base"), "Successfully consolidated")

	assert.Equal(t, NoGlobalActivity, f.engine.GlobalTrajectory(ctx, 20, true))

	f.save(t, "c.txt", "1")
	f.save(t, "a.txt", "2")

	feed, err := f.engine.Global(ctx, 1, true)
	require.NoError(t, err)
	require.Len(t, feed.Items, 2, "limit is ignored in since-checkpoint mode")
	for _, item := range feed.Items {
		assert.False(t, recorder.IsCheckpoint(item.Message))
	}
	assert.Equal(t, []string{"c.txt"}, feed.Items[0].Files)

	md := feed.Markdown()
	assert.True(t, strings.HasPrefix(md, "# Global Trajectory (Since Last Checkpoint)"))
	assert.NotContains(t, md, "base")
}

func TestSessionSummary_RealHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.rec.SetIntent("tidy imports")

	f.save(t, "b.txt", "1")
	f.save(t, "a.txt", "1")

	s, err := f.engine.LastSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Commits)
	assert.Equal(t, []string{"a.txt", "b.txt"}, s.Files)
	assert.Equal(t, "tidy imports", s.Intent)

	md := f.engine.SessionSummary(ctx)
	assert.Contains(t, md, "# Last Session Summary")
	assert.Contains(t, md, "**Files Modified:** a.txt, b.txt")
	assert.Contains(t, md, "**Commit Count:** 2")
	assert.Contains(t, md, "**Latest Intent:** tidy imports")
}

// stubStore serves canned history. Methods not overridden panic through the
// nil embedded interface.
type stubStore struct {
	recorder.Store
	times   []time.Time
	commits []git.Commit
	err     error
}

func (s *stubStore) CommitTimes(context.Context, int) ([]time.Time, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.times) == 0 {
		return nil, git.ErrNoHistory
	}
	return s.times, nil
}

func (s *stubStore) Log(_ context.Context, opts git.LogOptions) ([]git.Commit, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.commits) == 0 {
		return nil, git.ErrNoHistory
	}
	if opts.MaxCount > 0 && opts.MaxCount < len(s.commits) {
		return s.commits[:opts.MaxCount], nil
	}
	return s.commits, nil
}

type stubSource struct{ store recorder.Store }

func (s stubSource) History(context.Context, string, int) ([]git.Commit, error) { return nil, nil }
func (s stubSource) RelPath(string) (string, bool) { return "", false }
func (s stubSource) Store() recorder.Store         { return s.store }

func TestLastSession_GapSplitsSession(t *testing.T) {
	t0 := time.Date(2026, 2, 1, 9, 0, 0, 0, time.Local)
	// Newest first: two commits ten seconds apart, preceded by an idle gap.
	times := []time.Time{t0.Add(3710 * time.Second), t0.Add(3700 * time.Second), t0}
	commits := []git.Commit{
		{Subject: "[SNAPSHOT] 10:01:50 - Snapshot of /p/b.go", Date: times[0], Files: []string{"b.go"}},
		{Subject: "[SNAPSHOT] 10:01:40 - parse - Snapshot of /p/a.go", Date: times[1], Files: []string{"a.go"}},
		{Subject: "[SNAPSHOT] 09:00:00 - Snapshot of /p/old.go", Date: times[2], Files: []string{"old.go"}},
	}
	engine := NewEngine(stubSource{&stubStore{times: times, commits: commits}}, Options{})

	s, err := engine.LastSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, s.Commits)
	assert.True(t, s.Start.Equal(times[1]))
	assert.True(t, s.End.Equal(times[0]))
	assert.Equal(t, []string{"a.go", "b.go"}, s.Files)
	assert.Equal(t, "parse", s.Intent)
}

func TestLastSession_StoreError(t *testing.T) {
	var logs bytes.Buffer
	engine := NewEngine(stubSource{&stubStore{err: errors.New("corrupt object")}}, Options{
		Logger: slog.New(slog.NewTextHandler(&logs, nil)),
	})

	assert.Equal(t, "Error analyzing session history: corrupt object", engine.SessionSummary(context.Background()))
	assert.Equal(t, "Error fetching global trajectory: corrupt object",
		engine.GlobalTrajectory(context.Background(), 5, false))
	assert.Contains(t, logs.String(), "level=ERROR")
}

func TestSessionLength(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0)
	at := func(offsets ...int) []time.Time {
		out := make([]time.Time, len(offsets))
		for i, o := range offsets {
			out[i] = t0.Add(time.Duration(o) * time.Second)
		}
		return out
	}

	tests := []struct {
		name  string
		times []time.Time
		want  int
	}{
		{"single commit", at(0), 1},
		{"no gap", at(300, 200, 100, 0), 4},
		{"gap exactly at threshold is same session", at(3600, 0), 2},
		{"gap before oldest", at(3710, 3700, 0), 2},
		{"gap right after newest", at(7300, 10, 0), 1},
		{"first gap wins", at(20000, 19990, 10000, 0), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sessionLength(tt.times, time.Hour))
		})
	}
}

func TestDiffStat(t *testing.T) {
	patch := strings.Join([]string{
		"diff --git a/a.txt b/a.txt",
		"index 1111111..2222222 100644",
		"--- a/a.txt",
		"+++ b/a.txt",
		"@@ -1,4 +1,3 @@",
		" keep",
		"-old one",
		"-old two",
		"+new one",
		" tail",
	}, "\n")

	added, deleted := diffStat(patch)
	assert.Equal(t, 1, added)
	assert.Equal(t, 2, deleted)

	added, deleted = diffStat("")
	assert.Zero(t, added)
	assert.Zero(t, deleted)
}
