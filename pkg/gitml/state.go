package gitml

import (
	"context"
	"fmt"
	"strings"

	"github.com/daryltucker/gitml/internal/output"
)

// Action names accepted on the training program's command line.
const (
	ActionRun  = "run"
	ActionSave = "save"
)

// State is what a training program wants recorded.
type State struct {
	Model   any
	Params  map[string]any
	Metrics map[string]any
	Remarks string
}

// Set replaces the whole state.
func (s *State) Set(mdl any, params, metrics map[string]any, remarks string) *State {
	s.Model = mdl
	s.Params = params
	s.Metrics = metrics
	s.Remarks = remarks
	return s
}

// Action decides what happens to a State once training finishes: "run"
// only builds the model, "save" records it as an iteration.
type Action struct {
	name  string
	state State
	open  func() (*Client, error)
}

// NewAction returns an action by name. Empty means ActionRun.
func NewAction(name string) (*Action, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = ActionRun
	}
	if name != ActionRun && name != ActionSave {
		return nil, fmt.Errorf("unsupported gitml action: %q", name)
	}
	return &Action{name: name, open: OpenCwd}, nil
}

// ActionFromArgs picks the action from the first program argument, so
// `go run ./train save` records an iteration and `go run ./train` does not.
func ActionFromArgs(args []string) (*Action, error) {
	if len(args) > 1 {
		return NewAction(args[1])
	}
	return NewAction("")
}

// Name returns the action name.
func (a *Action) Name() string { return a.name }

// State returns the mutable state the program fills in.
func (a *Action) State() *State { return &a.state }

// Run performs the action. For ActionSave it returns the saved record.
func (a *Action) Run(ctx context.Context) (*Record, error) {
	if a.name != ActionSave {
		output.Logger.Info("Building your model..")
		return nil, nil
	}
	c, err := a.open()
	if err != nil {
		return nil, err
	}
	rec, warnings, err := c.Save(ctx, a.state.Params, a.state.Metrics, a.state.Remarks, a.state.Model)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		output.Logger.Warn("Iteration saved with warning", "id", rec.ID, "warning", w)
	}
	return &rec, nil
}
