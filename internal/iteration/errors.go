package iteration

import (
	"errors"
	"fmt"

	"github.com/daryltucker/gitml/internal/archive"
	"github.com/daryltucker/gitml/internal/model"
	"github.com/daryltucker/gitml/internal/workspace"
)

var (
	// ErrNotFound matches every *NotFoundError via errors.Is.
	ErrNotFound          = errors.New("not found")
	ErrAlreadyCommitted  = errors.New("iteration is committed already")
	ErrWorkspaceNotEmpty = errors.New("workspace is not empty, stash your changes using 'gitml stash'")
	ErrNoCode            = errors.New("no code snapshot to restore")
	ErrInvalidID         = errors.New("invalid id")
	ErrLocked            = errors.New("another gitml command is running on this project")

	// ErrMissingModel is a warning: the iteration was saved without a model.
	ErrMissingModel = errors.New("no model given for saving")

	ErrNothingToStash = workspace.ErrNothingToStash
	ErrNoStash        = workspace.ErrNoStash
	ErrEmptyStash     = workspace.ErrEmptyStash
)

// ArchiveDegradedError is a warning: the code snapshot of a save failed
// and the iteration was recorded without a complete copy of the code.
type ArchiveDegradedError = archive.DegradedError

// NotFoundError reports an unknown id. Kind is empty when both stores
// were searched.
type NotFoundError struct {
	Kind model.Kind
	ID   string
}

func (e *NotFoundError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("no iteration or commit found with id %s", e.ID)
	}
	return fmt.Sprintf("invalid %s id %s", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
