/*
PURPOSE:
  Defines the root Cobra command for the GitML CLI.
  Handles global flags and the per-invocation project environment.

REQUIREMENTS:
  User-specified:
  - Provide a CLI interface over the iteration lifecycle.
  - Support global flags like --config, --dir, --yes and --format.

  Implementation-discovered:
  - Needs to expose an ExecuteContext() function for main.go.
  - Every command except init needs the resolved project root, the loaded
    config and a Manager; loadEnv builds them once per invocation.

ARCHITECTURE INTEGRATION:
  - Called by: cmd/gitml/main.go (ExecuteContext)
  - Calls: Child commands (init, ls, show, commit, delete, stash, restore, reuse, version)
  - Uses: internal/config, internal/iteration, internal/output, internal/project

ERROR HANDLING:
  - Returns error to main.go for exit code handling.
  - Informational endpoints (nothing to stash, no entries) print and return nil.

IMPLEMENTATION RULES:
  - Use `PersistentFlags()` for flags available to all subcommands.
  - Commands write to cmd.OutOrStdout() so tests can capture output.

USAGE:
  Called by main.go.

SELF-HEALING INSTRUCTIONS:
  - If adding new global flags, add them to init() and reset them in tests.

RELATED FILES:
  - cmd/gitml/main.go
  - internal/iteration/manager.go

MAINTENANCE:
  - Update when adding global configuration options.
*/

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/daryltucker/gitml/internal/config"
	"github.com/daryltucker/gitml/internal/iteration"
	"github.com/daryltucker/gitml/internal/output"
	"github.com/daryltucker/gitml/internal/project"
	"github.com/daryltucker/gitml/internal/vcs"
)

var (
	// cfgFile stores the path to the config file (if specified via flag)
	cfgFile string
	// dirFlag overrides the directory the project is searched from.
	dirFlag   string
	assumeYes bool
	formatArg string

	rootCmd = &cobra.Command{
		Use:   "gitml",
		Short: "Version machine-learning iterations alongside your code",
		Long: `GitML records each training run as an iteration: a snapshot of the code,
the serialized model, its parameters, metrics and remarks. Iterations can be
promoted to commits and their code restored into an empty workspace.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// ExecuteContext executes the root command with ctx as every command's context.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./gitml.yaml or ./.gitml/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&dirFlag, "dir", "C", "", "run as if started in this directory")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "answer yes to every confirmation")
	rootCmd.PersistentFlags().StringVarP(&formatArg, "format", "f", string(output.FormatTable), "output format: table, json, yaml or csv")
}

// errNoProject is what users see when no project encloses the directory.
var errNoProject = fmt.Errorf("%w. Use 'gitml init' to create one", project.ErrNoProject)

// env is everything a command needs about the current project.
type env struct {
	root    string
	cfg     *config.Config
	manager *iteration.Manager
	prompt  *prompter
	format  output.Format
}

func startDir() (string, error) {
	if dirFlag != "" {
		return filepath.Abs(dirFlag)
	}
	return os.Getwd()
}

// setup loads config for root and installs the configured logger.
func setup(cmd *cobra.Command, root string) (*config.Config, *prompter, error) {
	cfg, err := config.Load(cfgFile, root)
	if err != nil {
		return nil, nil, err
	}
	output.SetLogger(output.NewLogger(cmd.ErrOrStderr(), cfg.LogFormat, cfg.LogLevel))
	p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr(), assumeYes || cfg.AssumeYes)
	return cfg, p, nil
}

// loadEnv resolves the enclosing project and builds its Manager.
func loadEnv(cmd *cobra.Command) (*env, error) {
	format, err := output.ParseFormat(formatArg)
	if err != nil {
		return nil, err
	}
	start, err := startDir()
	if err != nil {
		return nil, err
	}
	root, err := project.FindRoot(start)
	if err != nil {
		if errors.Is(err, project.ErrNoProject) {
			return nil, errNoProject
		}
		return nil, err
	}

	cfg, prompt, err := setup(cmd, root)
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
		Confirm:      prompt,
		Logger:       output.Logger,
		Lock:         cfg.Lock,
	})
	if err != nil {
		return nil, err
	}
	return &env{root: root, cfg: cfg, manager: m, prompt: prompt, format: format}, nil
}
