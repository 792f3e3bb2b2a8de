package vcs

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory VCS for tests. Set CommitErr to make CommitAll fail.
type Fake struct {
	mu        sync.Mutex
	repo      bool
	ignores   []string
	Commits   []string
	CommitErr error
}

// NewFake returns a Fake that starts with the given ignore patterns.
func NewFake(ignores ...string) *Fake {
	return &Fake{ignores: ignores}
}

func (f *Fake) IsRepository() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.repo
}

func (f *Fake) Init(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repo = true
	return nil
}

func (f *Fake) CommitAll(ctx context.Context, message string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CommitErr != nil {
		return "", f.CommitErr
	}
	f.Commits = append(f.Commits, message)
	return fmt.Sprintf("rev%d", len(f.Commits)), nil
}

func (f *Fake) IgnorePatterns() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ignores...), nil
}

func (f *Fake) AddIgnorePatterns(patterns []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ignores = append(f.ignores, patterns...)
	return nil
}

var _ VCS = (*Fake)(nil)
var _ VCS = (*Git)(nil)
