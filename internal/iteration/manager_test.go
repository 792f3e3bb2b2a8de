package iteration

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/gitml/internal/archive"
	"github.com/daryltucker/gitml/internal/model"
	"github.com/daryltucker/gitml/internal/project"
	"github.com/daryltucker/gitml/internal/vcs"
)

type classifier struct {
	Layers  []int     `cbor:"layers"`
	Weights []float64 `cbor:"weights"`
	Name    string    `cbor:"name"`
}

type fixture struct {
	root  string
	fake  *vcs.Fake
	m     *Manager
	clock time.Time
}

func newFixture(t *testing.T, vcsIgnores ...string) *fixture {
	t.Helper()
	root := t.TempDir()
	fake := vcs.NewFake(vcsIgnores...)
	_, err := project.Init(context.Background(), root, project.Config{Name: "test"}, fake, project.AlwaysNo)
	require.NoError(t, err)

	f := &fixture{root: root, fake: fake, clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	serializer, err := archive.NewCBORSerializer()
	require.NoError(t, err)

	f.m, err = New(root, Options{
		VCS:       fake,
		Artifacts: archive.ArtifactOptions{Serializer: serializer, Compression: archive.CompressionZstd},
		Logger:    slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		Lock:      true,
		Now: func() time.Time {
			f.clock = f.clock.Add(time.Minute)
			return f.clock
		},
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) write(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(f.root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func (f *fixture) save(t *testing.T, remarks string, mdl any) model.Record {
	t.Helper()
	res, err := f.m.Save(context.Background(), SaveInput{
		Params:  model.Values{"lr": model.Number(0.01), "net": model.Map(model.Values{"depth": model.Number(3)})},
		Metrics: model.Values{"acc": model.Number(0.9)},
		Remarks: remarks,
		Model:   mdl,
	})
	require.NoError(t, err)
	return res.Record
}

func tree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	require.NoError(t, filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		data, err := os.ReadFile(path)
		out[filepath.ToSlash(rel)] = string(data)
		return err
	}))
	return out
}

func TestNewRequiresProject(t *testing.T) {
	_, err := New(t.TempDir(), Options{VCS: vcs.NewFake()})
	assert.ErrorIs(t, err, project.ErrNoProject)
}

func TestSaveListShow(t *testing.T) {
	f := newFixture(t)
	f.write(t, "train.py", "fit()")

	rec := f.save(t, "baseline", classifier{Layers: []int{4, 2}})

	assert.Len(t, rec.ID, 32)
	assert.NotEmpty(t, rec.ModelDigest)
	assert.Equal(t, "cbor", rec.Serializer)

	records, err := f.m.List(model.KindIteration)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)

	shown, err := f.m.Show(rec.ID, model.KindIteration)
	require.NoError(t, err)
	if diff := cmp.Diff(rec, shown); diff != "" {
		t.Errorf("Show mismatch (-saved +shown):\n%s", diff)
	}

	_, err = f.m.Show(rec.ID, model.KindCommit)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, model.KindCommit, nf.Kind)

	code := tree(t, f.m.Layout().CodePath(model.KindIteration, rec.ID))
	assert.Equal(t, map[string]string{"train.py": "fit()"}, code)
}

func TestLoadModelRoundTrip(t *testing.T) {
	f := newFixture(t)
	want := classifier{Layers: []int{8, 4, 1}, Weights: []float64{0.25, -0.5}, Name: "mlp"}
	rec := f.save(t, "", want)

	var got classifier
	require.NoError(t, f.m.LoadModel(rec.ID, &got))
	assert.Equal(t, want, got)

	assert.ErrorIs(t, f.m.LoadModel("  ", &got), ErrInvalidID)
	assert.ErrorIs(t, f.m.LoadModel("deadbeef", &got), ErrNotFound)
}

func TestLoadModelDetectsTampering(t *testing.T) {
	f := newFixture(t)
	rec := f.save(t, "", classifier{Name: "a"})

	path := f.m.Layout().ModelPath(model.KindIteration, rec.ID)
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))

	var got classifier
	assert.ErrorIs(t, f.m.LoadModel(rec.ID, &got), archive.ErrDigestMismatch)
}

func TestSaveWithoutModel(t *testing.T) {
	f := newFixture(t)
	res, err := f.m.Save(context.Background(), SaveInput{Remarks: "metadata only"})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.ErrorIs(t, res.Warnings[0], ErrMissingModel)
	assert.Empty(t, res.Record.ModelDigest)
	assert.NotNil(t, res.Record.Params)

	var v any
	assert.ErrorIs(t, f.m.LoadModel(res.Record.ID, &v), ErrNotFound)

	records, err := f.m.List(model.KindIteration)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSaveExcludesIgnoredFiles(t *testing.T) {
	f := newFixture(t, "*.secret", "data/")
	f.write(t, "model.py", "net = Net()")
	f.write(t, "keys/api.secret", "token")
	f.write(t, "conf/train.secret", "pw")
	f.write(t, "data/big.bin", "0101")
	f.write(t, "src/util.py", "def f(): pass")

	rec := f.save(t, "", classifier{})

	code := tree(t, f.m.Layout().CodePath(model.KindIteration, rec.ID))
	for rel := range code {
		assert.False(t, strings.HasSuffix(rel, ".secret"), rel)
	}
	assert.Equal(t, map[string]string{
		"model.py":    "net = Net()",
		"src/util.py": "def f(): pass",
	}, code)
}

func TestListSortedNewestFirst(t *testing.T) {
	f := newFixture(t)
	first := f.save(t, "first", nil)
	second := f.save(t, "second", nil)
	third := f.save(t, "third", nil)

	records, err := f.m.List(model.KindIteration)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{third.ID, second.ID, first.ID},
		[]string{records[0].ID, records[1].ID, records[2].ID})
	for i := 1; i < len(records); i++ {
		assert.True(t, records[i-1].Timestamp.After(records[i].Timestamp))
	}

	commits, err := f.m.List(model.KindCommit)
	require.NoError(t, err)
	assert.Empty(t, commits)
}

func TestCommitPromotes(t *testing.T) {
	f := newFixture(t)
	f.write(t, "train.py", "v1")
	rec := f.save(t, "good run", classifier{Name: "v1"})

	l := f.m.Layout()
	before := tree(t, l.ArtifactDir(model.KindIteration, rec.ID))

	res, err := f.m.Commit(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.True(t, res.VCS.OK)
	assert.Equal(t, []string{project.InitCommitMessage, "Iteration " + rec.ID}, f.fake.Commits)

	_, err = f.m.Show(rec.ID, model.KindIteration)
	assert.ErrorIs(t, err, ErrNotFound)

	committed, err := f.m.Show(rec.ID, model.KindCommit)
	require.NoError(t, err)
	if diff := cmp.Diff(rec, committed); diff != "" {
		t.Errorf("commit record differs from iteration (-iteration +commit):\n%s", diff)
	}

	_, err = os.Stat(l.ArtifactDir(model.KindIteration, rec.ID))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, before, tree(t, l.ArtifactDir(model.KindCommit, rec.ID)))

	_, err = os.Stat(l.ArtifactDir(model.KindCommit, rec.ID) + ".tmp")
	assert.True(t, os.IsNotExist(err), "staging directory is renamed away")

	kind, _, err := f.m.Resolve(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.KindCommit, kind)
}

func TestCommitTwice(t *testing.T) {
	f := newFixture(t)
	rec := f.save(t, "", classifier{})

	_, err := f.m.Commit(context.Background(), rec.ID)
	require.NoError(t, err)
	l := f.m.Layout()
	before := tree(t, l.ArtifactDir(model.KindCommit, rec.ID))

	_, err = f.m.Commit(context.Background(), rec.ID)
	assert.ErrorIs(t, err, ErrAlreadyCommitted)

	commits, err := f.m.List(model.KindCommit)
	require.NoError(t, err)
	assert.Len(t, commits, 1)
	assert.Equal(t, before, tree(t, l.ArtifactDir(model.KindCommit, rec.ID)))
	assert.Len(t, f.fake.Commits, 2, "no VCS commit for the failed attempt")
}

func TestCommitUnknown(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.Commit(context.Background(), "0123456789abcdef")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, model.KindIteration, nf.Kind)

	_, err = f.m.Commit(context.Background(), "../escape")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestCommitVCSFailureIsReported(t *testing.T) {
	f := newFixture(t)
	rec := f.save(t, "", classifier{})
	f.fake.CommitErr = assert.AnError

	res, err := f.m.Commit(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.False(t, res.VCS.OK)
	assert.Contains(t, res.VCS.Reason, assert.AnError.Error())

	_, err = f.m.Show(rec.ID, model.KindCommit)
	assert.NoError(t, err)
}

func TestReuseRequiresEmptyWorkspace(t *testing.T) {
	f := newFixture(t)
	f.write(t, "train.py", "v1")
	rec := f.save(t, "", nil)

	for _, id := range []string{rec.ID, "unknown", ""} {
		_, err := f.m.Reuse(context.Background(), id)
		assert.ErrorIs(t, err, ErrWorkspaceNotEmpty, id)
	}
}

func TestStashThenReuse(t *testing.T) {
	f := newFixture(t)
	f.write(t, "train.py", "v1")
	f.write(t, "lib/model.py", "class A: pass")
	rec := f.save(t, "v1", classifier{Name: "v1"})
	_, err := f.m.Commit(context.Background(), rec.ID)
	require.NoError(t, err)

	f.write(t, "train.py", "v2")
	f.write(t, "notes.md", "scratch")
	before, err := f.m.Workspace().List()
	require.NoError(t, err)

	moved, err := f.m.Stash()
	require.NoError(t, err)
	assert.Equal(t, before, moved)

	kind, err := f.m.Reuse(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.KindCommit, kind)

	data, err := os.ReadFile(filepath.Join(f.root, "train.py"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
	_, err = os.Stat(filepath.Join(f.root, "lib", "model.py"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(f.root, "notes.md"))
	assert.True(t, os.IsNotExist(err))
}

func TestReuseUnknownAndMissingCode(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.Reuse(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	rec := f.save(t, "", nil)
	require.NoError(t, os.RemoveAll(f.m.Layout().CodePath(model.KindIteration, rec.ID)))
	_, err = f.m.Reuse(context.Background(), rec.ID)
	assert.ErrorIs(t, err, ErrNoCode)
}

func TestStashRestoreThroughManager(t *testing.T) {
	f := newFixture(t)
	_, err := f.m.Stash()
	assert.ErrorIs(t, err, ErrNothingToStash)
	_, err = f.m.Restore()
	assert.ErrorIs(t, err, ErrNoStash)

	f.write(t, "a.py", "a")
	_, err = f.m.Stash()
	require.NoError(t, err)
	restored, err := f.m.Restore()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py"}, restored)

	_, err = f.m.Restore()
	assert.ErrorIs(t, err, ErrEmptyStash)
}

func TestSettingsFileStaysInPlace(t *testing.T) {
	f := newFixture(t)
	f.write(t, project.SettingsFileName, "compression: zstd\n")

	names, err := f.m.Workspace().List()
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = f.m.Stash()
	assert.ErrorIs(t, err, ErrNothingToStash)
	assert.FileExists(t, filepath.Join(f.root, project.SettingsFileName))

	f.write(t, "train.py", "v1")
	rec := f.save(t, "", nil)
	assert.Equal(t, map[string]string{"train.py": "v1"},
		tree(t, f.m.Layout().CodePath(model.KindIteration, rec.ID)))

	_, err = f.m.Stash()
	require.NoError(t, err)
	_, err = f.m.Reuse(context.Background(), rec.ID)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(f.root, project.SettingsFileName))
	require.NoError(t, err)
	assert.Equal(t, "compression: zstd\n", string(data))
}

func TestLockIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lock")
	release, err := lockFile(path)
	require.NoError(t, err)

	_, err = lockFile(path)
	assert.ErrorIs(t, err, ErrLocked)

	release()
	again, err := lockFile(path)
	require.NoError(t, err)
	again()
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.m.Delete(), project.ErrAborted)
	assert.True(t, project.Exists(f.root))
}

func TestNewIDs(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := NewID()
		require.Len(t, id, 32)
		require.False(t, seen[id])
		seen[id] = true
	}
	assert.False(t, ValidID("a/b"))
	assert.False(t, ValidID(".."))
	assert.True(t, ValidID(NewID()))
}
