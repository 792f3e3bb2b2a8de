package gitml

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/gitml/internal/project"
	"github.com/daryltucker/gitml/internal/vcs"
)

type tree struct {
	Depth    int               `cbor:"depth" json:"depth"`
	Features []string          `cbor:"features" json:"features"`
	Labels   map[string]string `cbor:"labels" json:"labels"`
}

func initProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	_, err := project.Init(context.Background(), root, project.Config{Name: "embed"}, vcs.NewFake(), project.AlwaysNo)
	require.NoError(t, err)
	// No real repository: the default Git collaborator reads a missing
	// .gitignore as "no patterns", which is all Save needs.
	return root
}

func TestClientSaveLoad(t *testing.T) {
	root := initProject(t)
	nested := filepath.Join(root, "experiments")
	require.NoError(t, os.MkdirAll(nested, 0755))

	c, err := Open(nested)
	require.NoError(t, err)
	assert.Equal(t, root, c.Root())

	want := tree{Depth: 5, Features: []string{"age", "income"}, Labels: map[string]string{"0": "no"}}
	rec, warnings, err := c.Save(context.Background(),
		map[string]any{"max_depth": 5, "criterion": map[string]any{"name": "gini"}},
		map[string]any{"auc": 0.81},
		"first tree", want)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	var got tree
	require.NoError(t, c.Load(rec.ID, &got))
	assert.Equal(t, want, got)

	its, err := c.Iterations()
	require.NoError(t, err)
	require.Len(t, its, 1)
	assert.Equal(t, "first tree", its[0].Remarks)

	assert.ErrorIs(t, c.Load("missing", &got), ErrNotFound)
}

func TestClientSaveRejectsUnsupportedParams(t *testing.T) {
	c, err := Open(initProject(t))
	require.NoError(t, err)
	_, _, err = c.Save(context.Background(), map[string]any{"fn": func() {}}, nil, "", nil)
	assert.Error(t, err)
}

func TestOpenWithoutProject(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.ErrorIs(t, err, ErrNoProject)
}

func TestActions(t *testing.T) {
	a, err := ActionFromArgs([]string{"train"})
	require.NoError(t, err)
	assert.Equal(t, ActionRun, a.Name())
	rec, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, rec)

	_, err = NewAction("deploy")
	assert.Error(t, err)

	root := initProject(t)
	a, err = ActionFromArgs([]string{"train", "save"})
	require.NoError(t, err)
	a.open = func() (*Client, error) { return Open(root) }
	a.State().Set(map[string]any{"w": []float64{1, 2}}, map[string]any{"lr": 0.1}, map[string]any{"loss": 0.2}, "via action")

	rec, err = a.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "via action", rec.Remarks)
}

func TestCommitThroughClient(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	root := initProject(t)
	require.NoError(t, vcs.NewGit(root, "").Init(context.Background()))

	c, err := Open(root)
	require.NoError(t, err)
	rec, _, err := c.Save(context.Background(), nil, nil, "", map[string]any{"k": 1})
	require.NoError(t, err)

	committed, err := c.Commit(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, committed.ID)

	commits, err := c.Commits()
	require.NoError(t, err)
	require.Len(t, commits, 1)
}
