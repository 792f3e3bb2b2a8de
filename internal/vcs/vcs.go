// Package vcs is the version-control collaborator used when a project is
// initialised and when an iteration is promoted to a commit. GitML only
// needs a handful of operations: create the repository, commit everything,
// and read or extend the ignore patterns.
package vcs

import "context"

// VCS is the version-control surface the iteration manager consumes.
type VCS interface {
	// IsRepository reports whether the project directory is already under
	// version control.
	IsRepository() bool
	Init(ctx context.Context) error
	// CommitAll stages every change and commits it, returning the new
	// revision id.
	CommitAll(ctx context.Context, message string) (string, error)
	IgnorePatterns() ([]string, error)
	AddIgnorePatterns(patterns []string) error
}

// Result is the outcome of a best-effort VCS call. Callers decide whether
// a failure matters; nothing is swallowed implicitly.
type Result struct {
	OK       bool
	Revision string
	Reason   string
}

// Try runs fn and folds its outcome into a Result.
func Try(fn func() (string, error)) Result {
	revision, err := fn()
	if err != nil {
		return Result{Reason: err.Error()}
	}
	return Result{OK: true, Revision: revision}
}
