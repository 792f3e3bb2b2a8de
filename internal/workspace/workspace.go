/*
PURPOSE:
  Protects in-progress files before an old iteration is restored.
  Stash moves every non-ignored top-level entry of the project into
  .gitml/.stash; Restore moves them back.

REQUIREMENTS:
  User-specified:
  - list / isEmpty / stash / restore.
  - Stash and restore are moves, not copies.

  Implementation-discovered:
  - Ignored entries are the tool's own files (.git, .gitml, .gitml.json,
    .gitignore); everything else counts as workspace content.
  - A second stash before a restore lands in the same directory. Entries
    with the same name cannot be merged and fail the stash.

ARCHITECTURE INTEGRATION:
  - Called by: internal/iteration (reuse gating, stash/restore commands)

ERROR HANDLING:
  - ErrNothingToStash, ErrNoStash, ErrEmptyStash for the informational cases.
  - Move failures are wrapped and returned; entries already moved stay moved.

USAGE:
  ws := workspace.New(root, stashDir, ignores)
  moved, err := ws.Stash()
*/

package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/daryltucker/gitml/internal/archive"
)

var (
	ErrNothingToStash = errors.New("empty workspace, nothing to stash")
	ErrNoStash        = errors.New("no stash found")
	ErrEmptyStash     = errors.New("nothing to restore, stash is empty")
)

// Workspace is the set of top-level entries of a project directory.
type Workspace struct {
	Root     string
	StashDir string
	ignores  *archive.Matcher
}

// New returns a workspace rooted at root. Top-level names matching any of
// ignores are never listed, stashed or restored over.
func New(root, stashDir string, ignores []string) *Workspace {
	return &Workspace{
		Root:     root,
		StashDir: stashDir,
		ignores:  archive.NewMatcher(ignores),
	}
}

// List returns the sorted names of non-ignored top-level entries.
func (w *Workspace) List() ([]string, error) {
	entries, err := os.ReadDir(w.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspace %s: %w", w.Root, err)
	}
	var names []string
	for _, entry := range entries {
		if w.ignores.Match(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// IsEmpty reports whether List is empty.
func (w *Workspace) IsEmpty() (bool, error) {
	names, err := w.List()
	if err != nil {
		return false, err
	}
	return len(names) == 0, nil
}

// Stash moves every listed entry into the stash directory and returns the
// moved names.
func (w *Workspace) Stash() ([]string, error) {
	names, err := w.List()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, ErrNothingToStash
	}
	if err := os.MkdirAll(w.StashDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create stash directory: %w", err)
	}

	moved := make([]string, 0, len(names))
	for _, name := range names {
		if err := move(filepath.Join(w.Root, name), filepath.Join(w.StashDir, name)); err != nil {
			return moved, fmt.Errorf("failed to stash %s: %w", name, err)
		}
		moved = append(moved, name)
	}
	return moved, nil
}

// Restore moves every stashed entry back into the project root and returns
// the restored names.
func (w *Workspace) Restore() ([]string, error) {
	entries, err := os.ReadDir(w.StashDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoStash
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stash: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrEmptyStash
	}

	restored := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if err := move(filepath.Join(w.StashDir, name), filepath.Join(w.Root, name)); err != nil {
			return restored, fmt.Errorf("failed to restore %s: %w", name, err)
		}
		restored = append(restored, name)
	}
	return restored, nil
}

// move renames src to dst, refusing to replace an existing dst.
func move(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("%s already exists", dst)
	}
	return os.Rename(src, dst)
}
