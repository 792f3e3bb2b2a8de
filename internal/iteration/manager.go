/*
PURPOSE:
  High-level manager that orchestrates the iteration lifecycle.
  save -> (optional) commit -> (optional) reuse, over the record stores,
  the artifact directories and the workspace.

REQUIREMENTS:
  User-specified:
  - save(params, metrics, remarks, model) records a new iteration.
  - commit(id) promotes an iteration: copy directory and record to the
    commit side, delete the iteration side, commit to the VCS.
  - reuse(id) restores an iteration's (or commit's) code into an empty workspace.
  - list/show/load.

  Implementation-discovered:
  - An id lives in at most one store, and its artifact directory lives
    under the matching root. Every step below keeps the two in lockstep
    or rolls back the half it already did.
  - Mutating operations hold an advisory lock on .gitml/.lock.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli, pkg/gitml
  - Uses: internal/store, internal/archive, internal/workspace, internal/vcs, internal/project

ERROR HANDLING:
  - Typed errors (errors.go) for every user-facing failure.
  - A missing model or a failed code snapshot does not abort a save; both
    come back as warnings on SaveResult and are logged.
  - The VCS commit after promotion is best-effort and comes back as a vcs.Result.

IMPLEMENTATION RULES:
  - Promotion order: copy dir (staged as <id>.tmp, then renamed) -> insert
    commit record -> remove iteration dir -> remove iteration record -> VCS commit.
  - No journal. If the process dies after the commit record is written but
    before the iteration side is removed, the id is visible in both stores
    and needs manual cleanup (remove .gitml/.iterations/<id> and its record).

USAGE:
  m, err := iteration.New(root, iteration.Options{VCS: vcs.NewGit(root, "")})
  res, err := m.Save(ctx, iteration.SaveInput{Params: p, Metrics: mt, Model: net})

RELATED FILES:
  - internal/iteration/errors.go
  - internal/project/layout.go
*/

package iteration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/daryltucker/gitml/internal/archive"
	"github.com/daryltucker/gitml/internal/model"
	"github.com/daryltucker/gitml/internal/output"
	"github.com/daryltucker/gitml/internal/project"
	"github.com/daryltucker/gitml/internal/store"
	"github.com/daryltucker/gitml/internal/vcs"
	"github.com/daryltucker/gitml/internal/workspace"
)

// Options configures a Manager. Zero values get sensible defaults.
type Options struct {
	VCS       vcs.VCS
	Artifacts archive.ArtifactOptions
	// ExtraIgnores are excluded from code snapshots in addition to the VCS
	// ignore patterns and project.ToolEntries.
	ExtraIgnores []string
	Confirm      project.Confirmer
	Logger       *slog.Logger
	// Lock enables the advisory project lock for mutating operations.
	Lock bool
	Now  func() time.Time
}

// Manager runs iteration operations against one project root.
type Manager struct {
	layout     project.Layout
	iterations *store.Store
	commits    *store.Store
	workspace  *workspace.Workspace
	opts       Options
}

// New returns a Manager for the project at root. root must already be
// resolved; New never searches for a project.
func New(root string, opts Options) (*Manager, error) {
	if !project.Exists(root) {
		return nil, fmt.Errorf("%w at %s", project.ErrNoProject, root)
	}
	if opts.VCS == nil {
		opts.VCS = vcs.NewGit(root, "")
	}
	if opts.Artifacts.Serializer == nil {
		s, err := archive.NewCBORSerializer()
		if err != nil {
			return nil, err
		}
		opts.Artifacts.Serializer = s
	}
	if opts.Confirm == nil {
		opts.Confirm = project.AlwaysNo
	}
	if opts.Logger == nil {
		opts.Logger = output.Logger
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}

	layout := project.NewLayout(root)
	return &Manager{
		layout:     layout,
		iterations: store.Open(store.PathFor(layout.DataDir(), model.KindIteration)),
		commits:    store.Open(store.PathFor(layout.DataDir(), model.KindCommit)),
		workspace:  workspace.New(root, layout.StashDir(), project.ToolEntries),
		opts:       opts,
	}, nil
}

// Root returns the project root.
func (m *Manager) Root() string { return m.layout.Root }

// Layout returns the project paths.
func (m *Manager) Layout() project.Layout { return m.layout }

// Workspace returns the project workspace.
func (m *Manager) Workspace() *workspace.Workspace { return m.workspace }

func (m *Manager) store(kind model.Kind) *store.Store {
	if kind == model.KindCommit {
		return m.commits
	}
	return m.iterations
}

func (m *Manager) lock() (func(), error) {
	if !m.opts.Lock {
		return func() {}, nil
	}
	return lockFile(m.layout.LockFile())
}

// SaveInput is everything recorded by Save.
type SaveInput struct {
	Params  model.Values
	Metrics model.Values
	Remarks string
	// Model is serialized with the configured serializer. nil saves a
	// metadata-only iteration.
	Model any
}

// SaveResult is the new record plus any non-fatal problems hit on the way
// (ErrMissingModel, *ArchiveDegradedError).
type SaveResult struct {
	Record   model.Record
	Warnings []error
}

// Save records a new iteration.
func (m *Manager) Save(ctx context.Context, in SaveInput) (SaveResult, error) {
	unlock, err := m.lock()
	if err != nil {
		return SaveResult{}, err
	}
	defer unlock()

	id := NewID()
	dir := m.layout.ArtifactDir(model.KindIteration, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return SaveResult{}, fmt.Errorf("failed to create iteration directory %s: %w", dir, err)
	}

	var result SaveResult
	rec := model.Record{
		ID:        id,
		Params:    in.Params,
		Metrics:   in.Metrics,
		Remarks:   in.Remarks,
		Timestamp: m.opts.Now(),
	}
	if rec.Params == nil {
		rec.Params = model.Values{}
	}
	if rec.Metrics == nil {
		rec.Metrics = model.Values{}
	}

	if in.Model == nil {
		m.opts.Logger.Warn("No model given for saving; recording metadata only", "id", id)
		result.Warnings = append(result.Warnings, ErrMissingModel)
	} else {
		digest, err := archive.SaveArtifact(m.layout.ModelPath(model.KindIteration, id), in.Model, m.opts.Artifacts)
		if err != nil {
			os.RemoveAll(dir)
			return SaveResult{}, err
		}
		rec.ModelDigest = digest
		rec.Serializer = m.opts.Artifacts.Serializer.Name()
	}

	ignores, err := m.codeIgnores()
	if err != nil {
		m.opts.Logger.Warn("Failed to read VCS ignore patterns", "error", err)
	}
	if err := archive.ArchiveTree(m.layout.Root, m.layout.CodePath(model.KindIteration, id), ignores); err != nil {
		m.opts.Logger.Warn("Code archival failed on save", "id", id, "error", err)
		result.Warnings = append(result.Warnings, err)
	}

	if err := m.iterations.Insert(rec); err != nil {
		os.RemoveAll(dir)
		return SaveResult{}, fmt.Errorf("failed to record iteration %s: %w", id, err)
	}

	m.opts.Logger.Info("Iteration saved", "id", id)
	result.Record = rec
	return result, nil
}

// codeIgnores is the union of VCS ignore patterns, the fixed tool entries
// and configured extras. Patterns are still returned if the VCS read fails.
func (m *Manager) codeIgnores() ([]string, error) {
	seen := map[string]bool{}
	var out []string
	add := func(patterns []string) {
		for _, p := range patterns {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	add(project.ToolEntries)
	add(m.opts.ExtraIgnores)
	vcsIgnores, err := m.opts.VCS.IgnorePatterns()
	add(vcsIgnores)
	return out, err
}

// CommitResult is the promoted record and the outcome of the VCS commit.
type CommitResult struct {
	Record model.Record
	VCS    vcs.Result
}

// Commit promotes iteration id to a commit.
func (m *Manager) Commit(ctx context.Context, id string) (CommitResult, error) {
	id = strings.TrimSpace(id)
	if !ValidID(id) {
		return CommitResult{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	unlock, err := m.lock()
	if err != nil {
		return CommitResult{}, err
	}
	defer unlock()

	iterDir := m.layout.ArtifactDir(model.KindIteration, id)
	commitDir := m.layout.ArtifactDir(model.KindCommit, id)

	if _, err := os.Stat(commitDir); err == nil {
		return CommitResult{}, fmt.Errorf("%w: %s", ErrAlreadyCommitted, id)
	}
	if _, err := os.Stat(iterDir); err != nil {
		return CommitResult{}, &NotFoundError{Kind: model.KindIteration, ID: id}
	}
	rec, ok, err := m.iterations.FindByID(id)
	if err != nil {
		return CommitResult{}, err
	}
	if !ok {
		return CommitResult{}, &NotFoundError{Kind: model.KindIteration, ID: id}
	}

	staging := commitDir + ".tmp"
	os.RemoveAll(staging)
	if err := archive.CopyDir(iterDir, staging); err != nil {
		os.RemoveAll(staging)
		return CommitResult{}, err
	}
	if err := os.Rename(staging, commitDir); err != nil {
		os.RemoveAll(staging)
		return CommitResult{}, fmt.Errorf("failed to move commit into place: %w", err)
	}

	if err := m.commits.Insert(rec); err != nil {
		os.RemoveAll(commitDir)
		return CommitResult{}, fmt.Errorf("failed to record commit %s: %w", id, err)
	}

	if err := os.RemoveAll(iterDir); err != nil {
		return CommitResult{}, fmt.Errorf("commit %s recorded but iteration directory %s could not be removed, remove it manually: %w", id, iterDir, err)
	}
	if _, err := m.iterations.RemoveByID(id); err != nil {
		return CommitResult{}, fmt.Errorf("commit %s recorded but iteration record could not be removed, remove it manually: %w", id, err)
	}

	result := CommitResult{Record: rec}
	result.VCS = vcs.Try(func() (string, error) {
		return m.opts.VCS.CommitAll(ctx, "Iteration "+id)
	})
	if !result.VCS.OK {
		m.opts.Logger.Warn("VCS commit failed", "id", id, "reason", result.VCS.Reason)
	}

	m.opts.Logger.Info("Iteration committed", "id", id, "revision", result.VCS.Revision)
	return result, nil
}

// Resolve finds id in the iteration store, then the commit store.
func (m *Manager) Resolve(id string) (model.Kind, model.Record, error) {
	for _, kind := range []model.Kind{model.KindIteration, model.KindCommit} {
		rec, ok, err := m.store(kind).FindByID(id)
		if err != nil {
			return "", model.Record{}, err
		}
		if ok {
			return kind, rec, nil
		}
	}
	return "", model.Record{}, &NotFoundError{ID: id}
}

// Reuse copies the code snapshot of id into the project root. The
// workspace must be empty; stash first.
func (m *Manager) Reuse(ctx context.Context, id string) (model.Kind, error) {
	unlock, err := m.lock()
	if err != nil {
		return "", err
	}
	defer unlock()

	empty, err := m.workspace.IsEmpty()
	if err != nil {
		return "", err
	}
	if !empty {
		return "", ErrWorkspaceNotEmpty
	}

	id = strings.TrimSpace(id)
	if !ValidID(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	kind, _, err := m.Resolve(id)
	if err != nil {
		return "", err
	}

	code := m.layout.CodePath(kind, id)
	if info, err := os.Stat(code); err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w for %s %s", ErrNoCode, kind, id)
	}
	if err := archive.CopyContents(code, m.layout.Root); err != nil {
		return "", err
	}

	m.opts.Logger.Info("Code restored", "id", id, "from", kind)
	return kind, nil
}

// List returns every record of kind, newest first.
func (m *Manager) List(kind model.Kind) ([]model.Record, error) {
	records, err := m.store(kind).All()
	if err != nil {
		return nil, err
	}
	model.SortByTimestamp(records)
	return records, nil
}

// Show returns the record id of kind.
func (m *Manager) Show(id string, kind model.Kind) (model.Record, error) {
	id = strings.TrimSpace(id)
	rec, ok, err := m.store(kind).FindByID(id)
	if err != nil {
		return model.Record{}, err
	}
	if !ok {
		return model.Record{}, &NotFoundError{Kind: kind, ID: id}
	}
	return rec, nil
}

// LoadModel decodes the model of iteration id into v, which must be a
// pointer. Only iterations are loadable; the digest recorded at save time
// is verified when the record is still present.
func (m *Manager) LoadModel(id string, v any) error {
	id = strings.TrimSpace(id)
	if !ValidID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	path := m.layout.ModelPath(model.KindIteration, id)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed loading model: %w", &NotFoundError{Kind: model.KindIteration, ID: id})
		}
		return fmt.Errorf("failed loading model: %w", err)
	}

	opts := m.opts.Artifacts
	if rec, ok, err := m.iterations.FindByID(id); err == nil && ok {
		opts.Digest = rec.ModelDigest
		if rec.Serializer != "" && rec.Serializer != opts.Serializer.Name() {
			s, err := archive.SerializerByName(rec.Serializer)
			if err != nil {
				return err
			}
			opts.Serializer = s
		}
	}
	return archive.LoadArtifact(path, v, opts)
}

// Stash moves the workspace into the stash directory.
func (m *Manager) Stash() ([]string, error) {
	unlock, err := m.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return m.workspace.Stash()
}

// Restore moves stashed entries back into the project root.
func (m *Manager) Restore() ([]string, error) {
	unlock, err := m.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return m.workspace.Restore()
}

// Delete removes the whole project (stores, artifacts, stash) after
// confirmation. The Manager is unusable afterwards.
func (m *Manager) Delete() error {
	return project.Delete(m.layout.Root, m.opts.Confirm)
}
