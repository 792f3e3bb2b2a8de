/*
PURPOSE:
  Copies project trees into artifact directories and back.
  ArchiveTree snapshots the project's code for an iteration, CopyDir
  duplicates an artifact directory on promotion, CopyContents merges a
  snapshot back into the project root on reuse.

REQUIREMENTS:
  User-specified:
  - Exclude caller-supplied glob patterns, matched against path segments.
  - If the source is a single file, copy the file.
  - An existing destination is never overwritten by ArchiveTree.

  Implementation-discovered:
  - The destination lives inside the source (.gitml/.iterations/<id>/code),
    so the walker skips the destination even if no pattern excludes it.
  - Symlinks are recreated as links, not followed, to avoid loops.

ARCHITECTURE INTEGRATION:
  - Called by: internal/iteration
  - Uses: match.go

ERROR HANDLING:
  - ArchiveTree wraps any I/O failure in *DegradedError. The caller logs it
    and keeps going; a save is never aborted because the code snapshot failed.
  - CopyDir/CopyContents return plain wrapped errors.

IMPLEMENTATION RULES:
  - Preserve file modes and modification times (copy2 semantics).

RELATED FILES:
  - internal/archive/artifact.go
*/

package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// DegradedError reports that a code snapshot could not be completed.
// The snapshot may be partial.
type DegradedError struct {
	Source string
	Err    error
}

func (e *DegradedError) Error() string {
	return fmt.Sprintf("code archival of %s failed: %v", e.Source, e.Err)
}

func (e *DegradedError) Unwrap() error { return e.Err }

// ArchiveTree copies src into dst, skipping every path matched by ignores.
// It is a no-op when dst already exists.
func ArchiveTree(src, dst string, ignores []string) error {
	if _, err := os.Lstat(dst); err == nil {
		return nil
	}

	info, err := os.Stat(src)
	if err != nil {
		return &DegradedError{Source: src, Err: err}
	}
	if !info.IsDir() {
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return &DegradedError{Source: src, Err: err}
		}
		if err := copyFile(src, dst, info); err != nil {
			return &DegradedError{Source: src, Err: err}
		}
		return nil
	}

	if err := copyTree(src, dst, NewMatcher(ignores)); err != nil {
		if errors.Is(err, syscall.ENOTDIR) {
			// src was swapped for a file mid-walk; copy what is there now.
			if info, statErr := os.Stat(src); statErr == nil && !info.IsDir() {
				if err := copyFile(src, dst, info); err == nil {
					return nil
				}
			}
		}
		return &DegradedError{Source: src, Err: err}
	}
	return nil
}

// CopyDir copies the whole tree at src to dst. dst must not exist.
func CopyDir(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("failed to copy %s: destination %s exists", src, dst)
	}
	if err := copyTree(src, dst, nil); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	return nil
}

// CopyContents merges the entries of src into the existing directory dst,
// overwriting files that are already present.
func CopyContents(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	for _, entry := range entries {
		from := filepath.Join(src, entry.Name())
		to := filepath.Join(dst, entry.Name())
		if err := copyTree(from, to, nil); err != nil {
			return fmt.Errorf("failed to restore %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func copyTree(src, dst string, matcher *Matcher) error {
	absDst, err := filepath.Abs(dst)
	if err != nil {
		return err
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if matcher.Match(filepath.ToSlash(rel)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if abs, err := filepath.Abs(path); err == nil && (abs == absDst || strings.HasPrefix(abs, absDst+string(filepath.Separator))) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			os.Remove(target)
			return os.Symlink(link, target)
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0700)
		case info.Mode().IsRegular():
			return copyFile(path, target, info)
		}
		// Sockets, devices and pipes have no place in a code snapshot.
		return nil
	})
}

func copyFile(src, dst string, info fs.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
