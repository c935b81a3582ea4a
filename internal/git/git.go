// Package git provides Git operations via exec for the trajectory recorder.
package git

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/gorewood/trajectory/internal/output"
)

// ErrNoHistory is returned by read operations when the shadow history has no commits yet.
var ErrNoHistory = errors.New("no history available")

// gitEnv pins the locale so stderr can be matched, and never prompts.
var gitEnv = []string{"LC_ALL=C", "GIT_TERMINAL_PROMPT=0"}

// Run executes a git command in the current directory.
// It captures stdout and returns it as a trimmed string.
func Run(args ...string) (string, error) {
	return RunContext(context.Background(), args...)
}

// RunContext executes a git command with the given context and arguments.
// It captures stdout and returns it as a trimmed string.
// Returns an *output.ExitError on failure with appropriate exit code.
func RunContext(ctx context.Context, args ...string) (string, error) {
	out, err := run(ctx, "", args)
	return strings.TrimSpace(string(out)), err
}

// Available reports whether a git executable is on PATH.
func Available() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// run executes git in dir and returns raw stdout.
func run(ctx context.Context, dir string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), gitEnv...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return nil, output.NewSystemError("git not found: ensure git is installed and in PATH")
		}

		errMsg := strings.TrimSpace(stderr.String())
		if errMsg == "" {
			errMsg = err.Error()
		}
		if isLockMessage(errMsg) {
			return nil, output.NewBusyError("git command failed: "+errMsg, err)
		}
		return nil, output.NewSystemErrorWithCause("git command failed: "+errMsg, err)
	}

	return stdout.Bytes(), nil
}

// isLockMessage matches git's complaint about a held index or ref lock.
func isLockMessage(msg string) bool {
	return strings.Contains(msg, "index.lock") ||
		(strings.Contains(msg, ".lock") && strings.Contains(msg, "File exists"))
}

// IsLockContention reports whether err came from git finding a lock held by
// a concurrent writer. Such failures are retryable.
func IsLockContention(err error) bool {
	var exitErr *output.ExitError
	return errors.As(err, &exitErr) && exitErr.Code == output.ExitBusy
}

// IsNoHistory reports whether err means the history has no commits yet.
func IsNoHistory(err error) bool {
	if errors.Is(err, ErrNoHistory) {
		return true
	}
	var exitErr *output.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	return strings.Contains(exitErr.Message, "does not have any commits yet") ||
		strings.Contains(exitErr.Message, "ambiguous argument 'HEAD'")
}

// exitStatus returns git's process exit code, or -1 when err is not an exit.
func exitStatus(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
