package project

import (
	"path/filepath"

	"github.com/daryltucker/gitml/internal/model"
)

const (
	// FileName is the project identity file at the project root.
	FileName = ".gitml.json"
	// DirName is the metadata directory at the project root.
	DirName = ".gitml"
	// SettingsFileName is the optional tool settings file at the project root.
	SettingsFileName = "gitml.yaml"
)

// ModelFileName and CodeDirName are the entries of an artifact directory.
const (
	ModelFileName = "model"
	CodeDirName   = "code"
)

// ToolEntries are top-level names that belong to GitML or the VCS. They are
// never archived, stashed or counted as workspace content.
var ToolEntries = []string{".git", DirName, ".gitignore", FileName, SettingsFileName}

// GitIgnores are added to the VCS ignore file on init. Iterations, the
// stash and the iteration store stay local; commits and the commit store
// are versioned.
var GitIgnores = []string{
	DirName + "/.data/*",
	"!" + DirName + "/.data/commit.json",
	DirName + "/.iterations",
	DirName + "/.stash",
	DirName + "/.lock",
}

// Layout resolves every path of a project from its root.
type Layout struct {
	Root string
}

func NewLayout(root string) Layout { return Layout{Root: root} }

func (l Layout) ConfigFile() string    { return filepath.Join(l.Root, FileName) }
func (l Layout) Dir() string           { return filepath.Join(l.Root, DirName) }
func (l Layout) DataDir() string       { return filepath.Join(l.Dir(), ".data") }
func (l Layout) IterationsDir() string { return filepath.Join(l.Dir(), ".iterations") }
func (l Layout) CommitsDir() string    { return filepath.Join(l.Dir(), ".commits") }
func (l Layout) StashDir() string      { return filepath.Join(l.Dir(), ".stash") }
func (l Layout) LockFile() string      { return filepath.Join(l.Dir(), ".lock") }

// ArtifactRoot returns the artifact-directory root for kind.
func (l Layout) ArtifactRoot(kind model.Kind) string {
	if kind == model.KindCommit {
		return l.CommitsDir()
	}
	return l.IterationsDir()
}

// ArtifactDir returns the artifact directory of id under kind's root.
func (l Layout) ArtifactDir(kind model.Kind, id string) string {
	return filepath.Join(l.ArtifactRoot(kind), id)
}

// ModelPath returns the model file of id under kind's root.
func (l Layout) ModelPath(kind model.Kind, id string) string {
	return filepath.Join(l.ArtifactDir(kind, id), ModelFileName)
}

// CodePath returns the code snapshot directory of id under kind's root.
func (l Layout) CodePath(kind model.Kind, id string) string {
	return filepath.Join(l.ArtifactDir(kind, id), CodeDirName)
}
