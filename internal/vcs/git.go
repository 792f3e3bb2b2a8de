package vcs

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	gitDir         = ".git"
	ignoreFile     = ".gitignore"
	ignoreBanner   = "# Added by GitML"
	defaultBranch  = "master"
	fallbackAuthor = "GitML"
	fallbackEmail  = "gitml@localhost"
)

// Git drives the git CLI against one working tree. Every command is run
// as "git -C <dir> ...".
type Git struct {
	dir    string
	binary string
}

// NewGit returns a Git bound to dir. An empty binary means "git" on PATH.
func NewGit(dir, binary string) *Git {
	if binary == "" {
		binary = "git"
	}
	return &Git{dir: dir, binary: binary}
}

// Run executes a git command and returns stdout. Stderr is folded into the
// error on failure.
func (g *Git) Run(ctx context.Context, args ...string) (string, error) {
	return g.run(ctx, nil, args...)
}

func (g *Git) run(ctx context.Context, env []string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", g.dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, g.binary, fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr
	if len(env) > 0 {
		command.Env = append(os.Environ(), env...)
	}

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), g.dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func (g *Git) IsRepository() bool {
	info, err := os.Stat(filepath.Join(g.dir, gitDir))
	return err == nil && info.IsDir()
}

// Init creates the repository on the master branch. Existing repositories
// are left alone.
func (g *Git) Init(ctx context.Context) error {
	if g.IsRepository() {
		return nil
	}
	if _, err := g.Run(ctx, "init", "--quiet"); err != nil {
		return err
	}
	_, err := g.Run(ctx, "symbolic-ref", "HEAD", "refs/heads/"+defaultBranch)
	return err
}

// CommitAll stages everything (respecting .gitignore) and commits. Empty
// commits are allowed so every promotion leaves a revision behind.
func (g *Git) CommitAll(ctx context.Context, message string) (string, error) {
	if _, err := g.Run(ctx, "add", "-A"); err != nil {
		return "", err
	}
	if _, err := g.run(ctx, g.identityEnv(ctx), "commit", "--quiet", "--allow-empty", "-m", message); err != nil {
		return "", err
	}
	out, err := g.Run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// identityEnv supplies a committer identity when the user has none
// configured, so commits do not fail on fresh machines.
func (g *Git) identityEnv(ctx context.Context) []string {
	if out, err := g.Run(ctx, "config", "user.email"); err == nil && strings.TrimSpace(out) != "" {
		return nil
	}
	return []string{
		"GIT_AUTHOR_NAME=" + fallbackAuthor,
		"GIT_AUTHOR_EMAIL=" + fallbackEmail,
		"GIT_COMMITTER_NAME=" + fallbackAuthor,
		"GIT_COMMITTER_EMAIL=" + fallbackEmail,
	}
}

// IgnorePatterns returns the non-comment, non-blank lines of .gitignore.
func (g *Git) IgnorePatterns() ([]string, error) {
	return ReadIgnoreFile(filepath.Join(g.dir, ignoreFile))
}

// AddIgnorePatterns appends the patterns not already present to .gitignore
// under a GitML banner, creating the file if needed.
func (g *Git) AddIgnorePatterns(patterns []string) error {
	return AppendIgnoreFile(filepath.Join(g.dir, ignoreFile), patterns)
}

// ReadIgnoreFile parses a gitignore-style file. A missing file has no
// patterns.
func ReadIgnoreFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var patterns []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, scanner.Err()
}

// AppendIgnoreFile adds the missing patterns to path.
func AppendIgnoreFile(path string, patterns []string) error {
	existing, err := ReadIgnoreFile(path)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, p := range existing {
		have[p] = true
	}

	var block strings.Builder
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || have[p] {
			continue
		}
		have[p] = true
		block.WriteString(p + "\n")
	}
	if block.Len() == 0 {
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if _, err := fmt.Fprintf(f, "\n%s\n%s\n", ignoreBanner, block.String()); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
