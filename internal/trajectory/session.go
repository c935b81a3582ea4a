package trajectory

import (
	"context"
	"slices"
	"time"

	"github.com/gorewood/trajectory/internal/git"
	"github.com/gorewood/trajectory/internal/recorder"
)

// Session summarizes the most recent run of commits with no idle gap
// longer than the engine's session gap.
type Session struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Commits int       `json:"commits"`
	Files   []string  `json:"files"`
	Intent  string    `json:"intent,omitempty"`
}

// LastSession finds the latest session. Returns git.ErrNoHistory for an
// empty history.
func (e *Engine) LastSession(ctx context.Context) (*Session, error) {
	store := e.src.Store()

	times, err := store.CommitTimes(ctx, MaxSessionLookback)
	if err != nil {
		return nil, err
	}
	if len(times) == 0 {
		return nil, git.ErrNoHistory
	}

	count := sessionLength(times, e.sessionGap)
	commits, err := store.Log(ctx, git.LogOptions{MaxCount: count, WithFiles: true})
	if err != nil {
		return nil, err
	}
	if len(commits) == 0 {
		return nil, git.ErrNoHistory
	}

	s := &Session{
		Start:   commits[len(commits)-1].Date,
		End:     commits[0].Date,
		Commits: len(commits),
	}
	for _, c := range commits {
		s.Files = append(s.Files, c.Files...)
		if s.Intent == "" {
			s.Intent = recorder.SnapshotIntent(c.Subject)
		}
	}
	slices.Sort(s.Files)
	s.Files = slices.Compact(s.Files)
	return s, nil
}

// SessionSummary renders the latest session as markdown. An empty history
// and store failures are reported in the returned text.
func (e *Engine) SessionSummary(ctx context.Context) string {
	return e.RenderSession(e.LastSession(ctx))
}

// RenderSession renders the result of LastSession, reporting err in the text.
func (e *Engine) RenderSession(s *Session, err error) string {
	if git.IsNoHistory(err) {
		return NoHistory
	}
	if err != nil {
		e.logger.Error("failed to analyze session history", "error", err)
		return "Error analyzing session history: " + err.Error()
	}
	return s.Markdown()
}

// sessionLength returns how many of the newest-first timestamps belong to
// the latest session: everything up to the first adjacent pair further
// apart than gap. Without such a pair the whole window is one session.
func sessionLength(newestFirst []time.Time, gap time.Duration) int {
	for i := 0; i+1 < len(newestFirst); i++ {
		if newestFirst[i].Sub(newestFirst[i+1]) > gap {
			return i + 1
		}
	}
	return len(newestFirst)
}
