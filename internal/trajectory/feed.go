package trajectory

import (
	"context"
	"slices"
	"time"

	"github.com/gorewood/trajectory/internal/git"
	"github.com/gorewood/trajectory/internal/recorder"
)

// FeedItem is one commit in the global feed.
type FeedItem struct {
	SHA     string    `json:"sha"`
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
	Files   []string  `json:"files"`
}

// Feed is recent project-wide activity, oldest item first.
type Feed struct {
	SinceCheckpoint bool       `json:"since_checkpoint"`
	Items           []FeedItem `json:"items"`
}

// Global lists recent commits across the project. In bounded mode it
// returns the last limit commits. With sinceCheckpoint it returns every
// commit after the most recent Checkpoint, scanning at most
// MaxCheckpointScan commits. Returns git.ErrNoHistory for an empty history.
func (e *Engine) Global(ctx context.Context, limit int, sinceCheckpoint bool) (*Feed, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	if sinceCheckpoint {
		limit = MaxCheckpointScan
	}

	commits, err := e.src.Store().Log(ctx, git.LogOptions{MaxCount: limit, WithFiles: true})
	if err != nil {
		return nil, err
	}

	if sinceCheckpoint {
		if i := slices.IndexFunc(commits, func(c git.Commit) bool {
			return recorder.IsCheckpoint(c.Subject)
		}); i >= 0 {
			commits = commits[:i]
		}
	}

	feed := &Feed{SinceCheckpoint: sinceCheckpoint, Items: make([]FeedItem, 0, len(commits))}
	for _, c := range slices.Backward(commits) {
		feed.Items = append(feed.Items, FeedItem{
			SHA:     c.SHA,
			Time:    c.Date,
			Message: c.Message(),
			Files:   c.Files,
		})
	}
	return feed, nil
}

// GlobalTrajectory renders the global feed as markdown. An empty history
// and store failures are reported in the returned text.
func (e *Engine) GlobalTrajectory(ctx context.Context, limit int, sinceCheckpoint bool) string {
	return e.RenderGlobal(e.Global(ctx, limit, sinceCheckpoint))
}

// RenderGlobal renders the result of Global, reporting err in the text.
func (e *Engine) RenderGlobal(feed *Feed, err error) string {
	if git.IsNoHistory(err) {
		return NoHistory
	}
	if err != nil {
		e.logger.Error("failed to fetch global trajectory", "error", err)
		return "Error fetching global trajectory: " + err.Error()
	}
	return feed.Markdown()
}
