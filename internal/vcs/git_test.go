package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIgnoreFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".gitignore")

	patterns, err := ReadIgnoreFile(path)
	require.NoError(t, err)
	assert.Empty(t, patterns)

	require.NoError(t, os.WriteFile(path, []byte("# build output\n*.pyc\n\n  data/  \n"), 0644))
	require.NoError(t, AppendIgnoreFile(path, []string{"*.pyc", ".gitml/.iterations", "!.gitml/.data/commit.json"}))

	patterns, err = ReadIgnoreFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"*.pyc", "data/", ".gitml/.iterations", "!.gitml/.data/commit.json"}, patterns)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), ignoreBanner)

	// Nothing new: file untouched.
	require.NoError(t, AppendIgnoreFile(path, []string{"*.pyc"}))
	again, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestTry(t *testing.T) {
	ok := Try(func() (string, error) { return "abc", nil })
	assert.True(t, ok.OK)
	assert.Equal(t, "abc", ok.Revision)

	failed := Try(func() (string, error) { return "", assert.AnError })
	assert.False(t, failed.OK)
	assert.Equal(t, assert.AnError.Error(), failed.Reason)
}

func TestGitCommitAll(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	ctx := context.Background()
	dir := t.TempDir()
	g := NewGit(dir, "")

	assert.False(t, g.IsRepository())
	require.NoError(t, g.Init(ctx))
	assert.True(t, g.IsRepository())
	require.NoError(t, g.Init(ctx), "init is idempotent")

	require.NoError(t, g.AddIgnorePatterns([]string{"*.secret"}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "k.secret"), []byte("k"), 0644))

	rev, err := g.CommitAll(ctx, "first")
	require.NoError(t, err)
	assert.Len(t, rev, 40)

	files, err := g.Run(ctx, "ls-files")
	require.NoError(t, err)
	assert.Contains(t, files, "a.txt")
	assert.NotContains(t, files, "k.secret")

	second, err := g.CommitAll(ctx, "empty")
	require.NoError(t, err)
	assert.NotEqual(t, rev, second)
}
