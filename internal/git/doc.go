// Package git provides Git operations via exec for the trajectory recorder.
//
// This package wraps git commands by shelling out to the git executable,
// capturing stdout/stderr and translating failures to *output.ExitError.
//
// # Shadow Repositories
//
// A Repo binds a git directory to a work tree that lives elsewhere:
//
//	repo := git.NewRepo("/proj/.trajectory/.git", "/proj")
//	err := repo.Init(ctx)              // idempotent, keeps existing history
//	dirty, err := repo.IsDirty(ctx, "src/main.go")
//	err = repo.Add(ctx, "src/main.go")
//	err = repo.Commit(ctx, "[SNAPSHOT] ...")
//
// # History
//
//	commits, err := repo.Log(ctx, git.LogOptions{MaxCount: 20, WithFiles: true})
//	times, err := repo.CommitTimes(ctx, 1000)
//	blob, err := repo.ShowFile(ctx, sha, "src/main.go")
//	patch, err := repo.DiffFile(ctx, parent, sha, "src/main.go")
//
// Read operations return ErrNoHistory for a repository without commits.
//
// # Error Handling
//
// Failures carry exit codes:
//   - ExitSystemError (2) for git failures and a missing git executable
//   - ExitBusy (3) when git found index.lock held by a concurrent writer
//
// IsLockContention and IsNoHistory classify errors without string matching
// at the call site.
package git
