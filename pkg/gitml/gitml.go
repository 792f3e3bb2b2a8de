// Package gitml is the embeddable entry point for training programs. It
// records iterations from inside the user's own code and loads saved
// models back:
//
//	action, err := gitml.ActionFromArgs(os.Args)
//	state := action.State()
//	state.Set(net, params, metrics, "added dropout")
//	res, err := action.Run(ctx) // saves when invoked as `prog save`
//
//	var net Net
//	err = gitml.Load(id, &net)
//
// Unlike the CLI, every failure comes back as a typed error; nothing here
// prints or exits.
package gitml

import (
	"context"
	"fmt"
	"os"

	"github.com/daryltucker/gitml/internal/config"
	"github.com/daryltucker/gitml/internal/iteration"
	"github.com/daryltucker/gitml/internal/model"
	"github.com/daryltucker/gitml/internal/output"
	"github.com/daryltucker/gitml/internal/project"
	"github.com/daryltucker/gitml/internal/vcs"
)

// Errors callers can match with errors.Is / errors.As.
var (
	ErrNoProject         = project.ErrNoProject
	ErrNotFound          = iteration.ErrNotFound
	ErrAlreadyCommitted  = iteration.ErrAlreadyCommitted
	ErrWorkspaceNotEmpty = iteration.ErrWorkspaceNotEmpty
	ErrMissingModel      = iteration.ErrMissingModel
	ErrInvalidID         = iteration.ErrInvalidID
	ErrLocked            = iteration.ErrLocked
)

type (
	NotFoundError        = iteration.NotFoundError
	ArchiveDegradedError = iteration.ArchiveDegradedError
	Record               = model.Record
)

// Client is a handle on one project.
type Client struct {
	manager *iteration.Manager
}

// Open finds the project containing dir (dir itself or the closest
// ancestor) and loads its settings.
func Open(dir string) (*Client, error) {
	root, err := project.FindRoot(dir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load("", root)
	if err != nil {
		return nil, err
	}
	artifacts, err := cfg.ArtifactOptions()
	if err != nil {
		return nil, err
	}
	m, err := iteration.New(root, iteration.Options{
		VCS:          vcs.NewGit(root, cfg.GitBinary),
		Artifacts:    artifacts,
		ExtraIgnores: cfg.ExtraIgnores,
		Logger:       output.Logger,
		Lock:         cfg.Lock,
	})
	if err != nil {
		return nil, err
	}
	return &Client{manager: m}, nil
}

// OpenCwd opens the project containing the working directory.
func OpenCwd() (*Client, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return Open(wd)
}

// Root returns the project root.
func (c *Client) Root() string { return c.manager.Root() }

// Save records an iteration. Params and metrics may nest maps; values must
// be numbers, strings or booleans. Warnings (missing model, degraded code
// snapshot) are returned alongside a successful record.
func (c *Client) Save(ctx context.Context, params, metrics map[string]any, remarks string, mdl any) (Record, []error, error) {
	p, err := model.ValuesFrom(params)
	if err != nil {
		return Record{}, nil, fmt.Errorf("params: %w", err)
	}
	m, err := model.ValuesFrom(metrics)
	if err != nil {
		return Record{}, nil, fmt.Errorf("metrics: %w", err)
	}
	res, err := c.manager.Save(ctx, iteration.SaveInput{Params: p, Metrics: m, Remarks: remarks, Model: mdl})
	if err != nil {
		return Record{}, nil, err
	}
	return res.Record, res.Warnings, nil
}

// Load decodes the model of iteration id into v (a pointer).
func (c *Client) Load(id string, v any) error {
	return c.manager.LoadModel(id, v)
}

// Commit promotes iteration id.
func (c *Client) Commit(ctx context.Context, id string) (Record, error) {
	res, err := c.manager.Commit(ctx, id)
	return res.Record, err
}

// Iterations lists saved iterations, newest first.
func (c *Client) Iterations() ([]Record, error) {
	return c.manager.List(model.KindIteration)
}

// Commits lists commits, newest first.
func (c *Client) Commits() ([]Record, error) {
	return c.manager.List(model.KindCommit)
}

// Load opens the project around the working directory and loads a model.
func Load(id string, v any) error {
	c, err := OpenCwd()
	if err != nil {
		return err
	}
	return c.Load(id, v)
}
