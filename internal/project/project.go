/*
PURPOSE:
  Owns the on-disk shape of a GitML project: the .gitml.json identity file,
  the .gitml/ metadata directory and everything under it. Creates, finds
  and removes projects.

REQUIREMENTS:
  User-specified:
  - `init` writes the project file, metadata directory, record stores, and
    puts the project under version control with GitML's ignore patterns.
  - `delete` removes the project file and metadata directory.

  Implementation-discovered:
  - The project root is resolved once per invocation (FindRoot) and passed
    explicitly to everything else. Nothing below the CLI searches upwards.
  - .gitml.json may carry comments (JSONC) when edited by hand.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli, internal/iteration, pkg/gitml
  - Uses: internal/store (Setup), internal/vcs

ERROR HANDLING:
  - ErrNoProject when no project is found.
  - ErrAborted when the user declines a confirmation.
  - The initial VCS commit is best-effort and reported as a vcs.Result.

RELATED FILES:
  - internal/project/layout.go
*/

package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/daryltucker/gitml/internal/model"
	"github.com/daryltucker/gitml/internal/store"
	"github.com/daryltucker/gitml/internal/vcs"
)

var (
	ErrNoProject = errors.New("no gitml project found")
	ErrAborted   = errors.New("aborted")
)

// Defaults used when the user leaves an init answer blank.
const (
	DefaultName   = "Project X"
	DefaultAuthor = "Anonymous"
)

// InitCommitMessage is the message of the commit created by Init.
const InitCommitMessage = "GitML project initialised."

// Config is the content of .gitml.json.
type Config struct {
	Name    string    `json:"name"`
	Author  string    `json:"author"`
	Created time.Time `json:"created,omitempty"`
}

// Exists reports whether root holds both the project file and directory.
func Exists(root string) bool {
	l := NewLayout(root)
	if _, err := os.Stat(l.ConfigFile()); err != nil {
		return false
	}
	info, err := os.Stat(l.Dir())
	return err == nil && info.IsDir()
}

// FindRoot walks from start up to the filesystem root and returns the
// closest directory that is a project.
func FindRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		if Exists(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoProject
		}
		dir = parent
	}
}

// ReadConfig parses the project file under root.
func ReadConfig(root string) (Config, error) {
	path := NewLayout(root).ConfigFile()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read project file %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse project file %s: %w", path, err)
	}
	return cfg, nil
}

// WriteConfig writes the project file under root.
func WriteConfig(root string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	path := NewLayout(root).ConfigFile()
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write project file %s: %w", path, err)
	}
	return nil
}

// Init creates a project at root. If one already exists the confirmer is
// asked whether to replace it; declining returns ErrAborted.
func Init(ctx context.Context, root string, cfg Config, v vcs.VCS, confirm Confirmer) (vcs.Result, error) {
	if Exists(root) {
		if !confirm.Confirm("A project already exists. Do you want to replace it?") {
			return vcs.Result{}, ErrAborted
		}
		if err := Remove(root); err != nil {
			return vcs.Result{}, err
		}
	}

	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.Author == "" {
		cfg.Author = DefaultAuthor
	}
	if cfg.Created.IsZero() {
		cfg.Created = time.Now().UTC()
	}

	l := NewLayout(root)
	if err := os.MkdirAll(l.Dir(), 0755); err != nil {
		return vcs.Result{}, fmt.Errorf("failed to create %s: %w", l.Dir(), err)
	}
	if err := WriteConfig(root, cfg); err != nil {
		return vcs.Result{}, err
	}
	if err := store.Setup(l.DataDir(), model.KindIteration, model.KindCommit); err != nil {
		return vcs.Result{}, err
	}
	for _, dir := range []string{l.IterationsDir(), l.CommitsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return vcs.Result{}, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	if err := v.Init(ctx); err != nil {
		return vcs.Result{}, fmt.Errorf("failed to initialise repository: %w", err)
	}
	if err := v.AddIgnorePatterns(GitIgnores); err != nil {
		return vcs.Result{}, fmt.Errorf("failed to write ignore patterns: %w", err)
	}
	return vcs.Try(func() (string, error) { return v.CommitAll(ctx, InitCommitMessage) }), nil
}

// Remove deletes the project file and metadata directory. The VCS
// repository and the user's files are left alone.
func Remove(root string) error {
	l := NewLayout(root)
	if err := os.Remove(l.ConfigFile()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", l.ConfigFile(), err)
	}
	if err := os.RemoveAll(l.Dir()); err != nil {
		return fmt.Errorf("failed to remove %s: %w", l.Dir(), err)
	}
	return nil
}

// Delete asks for confirmation and removes the project at root.
func Delete(root string, confirm Confirmer) error {
	if !confirm.Confirm(fmt.Sprintf("Deleting gitml on project: %s. Are you sure?", root)) {
		return ErrAborted
	}
	return Remove(root)
}
