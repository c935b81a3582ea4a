package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorewood/trajectory/internal/output"
)

// Default identity for shadow commits when the user has none configured.
const (
	defaultUserName  = "trajectory"
	defaultUserEmail = "trajectory@localhost"
)

// Repo is a git repository whose object store lives apart from its work tree.
// Every command runs with explicit --git-dir and --work-tree, so the repository
// never interferes with a project repository sharing the same work tree.
type Repo struct {
	gitDir   string
	workTree string
}

// NewRepo returns a Repo for the given git directory and work tree.
// Both paths should be absolute.
func NewRepo(gitDir, workTree string) *Repo {
	return &Repo{gitDir: gitDir, workTree: workTree}
}

// GitDir returns the repository's git directory.
func (r *Repo) GitDir() string { return r.gitDir }

// WorkTree returns the repository's work tree.
func (r *Repo) WorkTree() string { return r.workTree }

// Exists reports whether the git directory has been initialized.
func (r *Repo) Exists() bool {
	info, err := os.Stat(filepath.Join(r.gitDir, "HEAD"))
	return err == nil && !info.IsDir()
}

// Init creates the git directory if needed and applies the work tree settings.
// Re-running Init on an existing repository keeps its history.
func (r *Repo) Init(ctx context.Context) error {
	if !r.Exists() {
		parent := filepath.Dir(r.gitDir)
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return output.NewSystemErrorWithCause("creating "+parent, err)
		}
		if _, err := run(ctx, parent, []string{"init", "--quiet", parent}); err != nil {
			return err
		}
	}

	settings := [][2]string{
		{"core.worktree", r.workTree},
		{"advice.addIgnoredFile", "false"},
		{"commit.gpgsign", "false"},
		{"core.quotepath", "false"},
	}
	for _, kv := range settings {
		if _, err := r.Run(ctx, "config", kv[0], kv[1]); err != nil {
			return err
		}
	}

	if err := r.excludeGitDir(); err != nil {
		return err
	}
	return r.ensureIdentity(ctx)
}

// excludeGitDir keeps the repository's own storage out of its work tree
// status, independent of the project's ignore files.
func (r *Repo) excludeGitDir() error {
	rel, err := filepath.Rel(r.workTree, filepath.Dir(r.gitDir))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return nil
	}
	pattern := "/" + filepath.ToSlash(rel) + "/"

	excludePath := filepath.Join(r.gitDir, "info", "exclude")
	data, err := os.ReadFile(excludePath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return output.NewSystemErrorWithCause("reading "+excludePath, err)
	}
	for line := range strings.SplitSeq(string(data), "\n") {
		if strings.TrimSpace(line) == pattern {
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(excludePath), 0o755); err != nil {
		return output.NewSystemErrorWithCause("creating "+filepath.Dir(excludePath), err)
	}
	content := string(data)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += pattern + "\n"
	if err := os.WriteFile(excludePath, []byte(content), 0o644); err != nil {
		return output.NewSystemErrorWithCause("writing "+excludePath, err)
	}
	return nil
}

// ensureIdentity sets a repo-local committer when git has none.
func (r *Repo) ensureIdentity(ctx context.Context) error {
	if name, err := r.Run(ctx, "config", "user.name"); err != nil || name == "" {
		if _, err := r.Run(ctx, "config", "user.name", defaultUserName); err != nil {
			return err
		}
	}
	if email, err := r.Run(ctx, "config", "user.email"); err != nil || email == "" {
		if _, err := r.Run(ctx, "config", "user.email", defaultUserEmail); err != nil {
			return err
		}
	}
	return nil
}

// Run executes a git command against the repository and returns trimmed stdout.
func (r *Repo) Run(ctx context.Context, args ...string) (string, error) {
	out, err := r.runRaw(ctx, args...)
	return strings.TrimSpace(string(out)), err
}

// runRaw executes a git command against the repository and returns raw stdout.
func (r *Repo) runRaw(ctx context.Context, args ...string) ([]byte, error) {
	// Paths are file names, never patterns: "x*.txt" must stage only itself.
	full := append([]string{"--literal-pathspecs", "--git-dir=" + r.gitDir, "--work-tree=" + r.workTree}, args...)
	return run(ctx, r.workTree, full)
}

// HasHead reports whether HEAD resolves to a commit.
func (r *Repo) HasHead(ctx context.Context) bool {
	_, err := r.Run(ctx, "rev-parse", "--verify", "--quiet", "HEAD")
	return err == nil
}

// IsDirty reports whether path has staged, unstaged, or untracked changes.
func (r *Repo) IsDirty(ctx context.Context, path string) (bool, error) {
	out, err := r.Run(ctx, "status", "--porcelain", "--untracked-files=all", "--", path)
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// HasChanges reports whether anything in the work tree or index differs from HEAD.
func (r *Repo) HasChanges(ctx context.Context) (bool, error) {
	out, err := r.Run(ctx, "status", "--porcelain", "--untracked-files=all")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// Add stages exactly the given paths.
func (r *Repo) Add(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return errors.New("add requires at least one path")
	}
	_, err := r.Run(ctx, append([]string{"add", "--"}, paths...)...)
	return err
}

// AddAll stages every change in the work tree, including deletions and new files.
func (r *Repo) AddAll(ctx context.Context) error {
	_, err := r.Run(ctx, "add", "-A")
	return err
}

// Commit records the index with the given message.
func (r *Repo) Commit(ctx context.Context, message string) error {
	_, err := r.Run(ctx, "commit", "--quiet", "--no-verify", "-m", message)
	return err
}

// ResetSoft moves HEAD back n commits, keeping their changes staged.
func (r *Repo) ResetSoft(ctx context.Context, n int) error {
	if n <= 0 {
		return fmt.Errorf("reset count must be positive, got %d", n)
	}
	_, err := r.Run(ctx, "reset", "--soft", "HEAD~"+strconv.Itoa(n))
	return err
}

// DeleteHead removes the current branch ref so the next commit becomes a new
// root. The index and work tree are untouched.
func (r *Repo) DeleteHead(ctx context.Context) error {
	_, err := r.Run(ctx, "update-ref", "-d", "HEAD")
	return err
}

// IsIgnored reports whether path is excluded by the work tree's ignore rules.
func (r *Repo) IsIgnored(ctx context.Context, path string) (bool, error) {
	_, err := r.Run(ctx, "check-ignore", "--quiet", "--", path)
	if err == nil {
		return true, nil
	}
	// check-ignore exits 1 when the path is not ignored.
	if exitStatus(err) == 1 {
		return false, nil
	}
	return false, err
}
