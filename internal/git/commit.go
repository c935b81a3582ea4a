package git

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gorewood/trajectory/internal/output"
)

// Commit represents a git commit with its metadata.
type Commit struct {
	SHA     string    // Full 40-character SHA
	Short   string    // Abbreviated SHA (typically 7 chars)
	Parents []string  // Parent SHAs; empty for a root commit
	Subject string    // First line of commit message
	Body    string    // Rest of commit message (may be empty)
	Date    time.Time // Committer date
	Files   []string  // Paths touched, populated when LogOptions.WithFiles is set
}

// IsRoot reports whether the commit has no parent.
func (c Commit) IsRoot() bool {
	return len(c.Parents) == 0
}

// Message returns the full commit message.
func (c Commit) Message() string {
	if c.Body == "" {
		return c.Subject
	}
	return c.Subject + "\n\n" + c.Body
}

// LogOptions narrows a history walk.
type LogOptions struct {
	MaxCount  int    // Maximum commits to return; 0 means unlimited
	Path      string // Only commits touching this work-tree-relative path
	WithFiles bool   // Populate Commit.Files
}

// commitSeparator is used to delimit commits in log output.
const commitSeparator = "---COMMIT-BOUNDARY---"

// fieldSeparator is used to delimit fields within a commit.
const fieldSeparator = "---FIELD---"

// commitFieldCount is the number of formatted fields before the file list.
const commitFieldCount = 6

// logFormat renders each commit as boundary, fields, then a trailing field
// separator after which --name-only output (if any) follows.
var logFormat = commitSeparator + strings.Join([]string{
	"%H",  // Full SHA
	"%h",  // Short SHA
	"%P",  // Parent SHAs
	"%ct", // Committer timestamp
	"%s",  // Subject
	"%b",  // Body
}, fieldSeparator) + fieldSeparator

// Log walks history from HEAD, newest first.
// Returns ErrNoHistory when the repository has no commits.
func (r *Repo) Log(ctx context.Context, opts LogOptions) ([]Commit, error) {
	if !r.HasHead(ctx) {
		return nil, ErrNoHistory
	}

	args := []string{"log", "--pretty=format:" + logFormat}
	if opts.MaxCount > 0 {
		args = append(args, "--max-count="+strconv.Itoa(opts.MaxCount))
	}
	if opts.WithFiles {
		args = append(args, "--name-only")
	}
	args = append(args, "HEAD")
	if opts.Path != "" {
		args = append(args, "--", opts.Path)
	}

	out, err := r.Run(ctx, args...)
	if err != nil {
		return nil, output.NewSystemErrorWithCause("failed to read shadow history", err)
	}
	return parseCommits(out), nil
}

// CommitTimes returns committer timestamps from HEAD, newest first.
// It reads metadata only and is cheap even for long histories.
func (r *Repo) CommitTimes(ctx context.Context, maxCount int) ([]time.Time, error) {
	if !r.HasHead(ctx) {
		return nil, ErrNoHistory
	}

	args := []string{"log", "--format=%ct"}
	if maxCount > 0 {
		args = append(args, "--max-count="+strconv.Itoa(maxCount))
	}
	out, err := r.Run(ctx, args...)
	if err != nil {
		return nil, output.NewSystemErrorWithCause("failed to read commit timestamps", err)
	}

	var times []time.Time
	for line := range strings.SplitSeq(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ts, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			continue
		}
		times = append(times, time.Unix(ts, 0))
	}
	return times, nil
}

// ShowFile returns the exact content of path as recorded in commit sha.
// The returned error wraps a git failure when the path is absent at that commit.
func (r *Repo) ShowFile(ctx context.Context, sha, path string) ([]byte, error) {
	return r.runRaw(ctx, "cat-file", "blob", sha+":"+path)
}

// DiffFile returns the unified diff of path between two commits.
func (r *Repo) DiffFile(ctx context.Context, fromSHA, toSHA, path string) (string, error) {
	out, err := r.runRaw(ctx, "diff", "--no-color", "--no-ext-diff", fromSHA, toSHA, "--", path)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// parseCommits parses the custom formatted git log output into Commit structs.
func parseCommits(out string) []Commit {
	if out == "" {
		return nil
	}

	var commits []Commit
	for commitStr := range strings.SplitSeq(out, commitSeparator) {
		if strings.TrimSpace(commitStr) == "" {
			continue
		}
		if commit, ok := parseCommitFields(commitStr); ok {
			commits = append(commits, commit)
		}
	}
	return commits
}

// parseCommitFields parses a single commit string into a Commit struct.
// Returns the commit and true if successful, zero value and false otherwise.
func parseCommitFields(commitStr string) (Commit, bool) {
	fields := strings.SplitN(commitStr, fieldSeparator, commitFieldCount+1)
	if len(fields) < commitFieldCount {
		return Commit{}, false
	}

	timestamp, err := strconv.ParseInt(strings.TrimSpace(fields[3]), 10, 64)
	if err != nil {
		timestamp = 0
	}

	commit := Commit{
		SHA:     strings.TrimSpace(fields[0]),
		Short:   strings.TrimSpace(fields[1]),
		Parents: strings.Fields(fields[2]),
		Date:    time.Unix(timestamp, 0),
		Subject: strings.TrimSpace(fields[4]),
		Body:    strings.TrimSpace(fields[5]),
	}
	if len(fields) > commitFieldCount {
		commit.Files = parseFileList(fields[commitFieldCount])
	}
	return commit, true
}

// parseFileList splits --name-only output, dropping blank lines.
func parseFileList(raw string) []string {
	var files []string
	for line := range strings.SplitSeq(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files
}
