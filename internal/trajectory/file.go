package trajectory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sourcegraph/go-diff/diff"
)

// Entry is one commit in a file's narrative.
type Entry struct {
	SHA     string    `json:"sha"`
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
	Diff    string    `json:"diff,omitempty"`
	Initial bool      `json:"initial,omitempty"`
	Added   int       `json:"added"`
	Deleted int       `json:"deleted"`
	// RevertOf is the time of the most recent earlier commit whose file
	// content is identical to this one.
	RevertOf *time.Time `json:"revert_of,omitempty"`
}

// FileReport is a file's history, oldest entry first.
type FileReport struct {
	Path    string  `json:"path"`
	Entries []Entry `json:"entries"`
}

// File builds the narrative of the last depth commits touching path.
// A path outside the project or without history yields an empty report.
func (e *Engine) File(ctx context.Context, path string, depth int) (*FileReport, error) {
	if depth <= 0 {
		depth = DefaultDepth
	}
	report := &FileReport{Path: path}

	commits, err := e.src.History(ctx, path, depth)
	if err != nil {
		return nil, err
	}
	if len(commits) == 0 {
		return report, nil
	}
	rel, _ := e.src.RelPath(path)
	store := e.src.Store()

	// Fingerprint of file content -> time of the latest commit holding it.
	seen := make(map[uint64]time.Time)

	for _, c := range slices.Backward(commits) {
		entry := Entry{SHA: c.SHA, Time: c.Date, Message: c.Message()}

		if blob, err := store.ShowFile(ctx, c.SHA, rel); err == nil {
			sum := xxhash.Sum64(blob)
			if prev, ok := seen[sum]; ok {
				entry.RevertOf = &prev
			}
			seen[sum] = c.Date
		} else {
			e.logger.Debug("file absent at commit", "path", rel, "sha", c.Short, "error", err)
		}

		if c.IsRoot() {
			entry.Initial = true
		} else {
			patch, err := store.DiffFile(ctx, c.Parents[0], c.SHA, rel)
			if err != nil {
				e.logger.Warn("failed to diff commit", "path", rel, "sha", c.Short, "error", err)
			}
			entry.Diff = patch
			entry.Added, entry.Deleted = diffStat(patch)
		}
		report.Entries = append(report.Entries, entry)
	}
	return report, nil
}

// FileTrajectory renders the narrative of path as markdown. Failures are
// reported in the returned text.
func (e *Engine) FileTrajectory(ctx context.Context, path string, depth int) string {
	return e.RenderFile(e.File(ctx, path, depth))
}

// RenderFile renders the result of File, reporting err in the text.
func (e *Engine) RenderFile(report *FileReport, err error) string {
	if err != nil {
		e.logger.Error("file trajectory failed", "error", err)
		return "Error fetching file trajectory: " + err.Error()
	}
	return report.Markdown()
}

// diffStat counts added and deleted lines in a single-file unified diff.
func diffStat(patch string) (added, deleted int) {
	if strings.TrimSpace(patch) == "" {
		return 0, 0
	}
	fd, err := diff.ParseFileDiff([]byte(patch + "\n"))
	if err != nil {
		return 0, 0
	}
	for _, hunk := range fd.Hunks {
		for line := range strings.SplitSeq(string(hunk.Body), "\n") {
			switch {
			case strings.HasPrefix(line, "+"):
				added++
			case strings.HasPrefix(line, "-"):
				deleted++
			}
		}
	}
	return added, deleted
}
