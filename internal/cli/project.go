package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daryltucker/gitml/internal/output"
	"github.com/daryltucker/gitml/internal/project"
	"github.com/daryltucker/gitml/internal/vcs"
)

var (
	initName   string
	initAuthor string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a GitML project in the current directory",
	Long: `Creates .gitml.json and the .gitml metadata directory, initialises a git
repository if there is none, adds GitML's ignore patterns and commits.
If a project already exists you are asked whether to replace it.`,
	Example: `  gitml init
  gitml init --name "Churn model" --author ada --yes`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := startDir()
		if err != nil {
			return err
		}
		cfg, prompt, err := setup(cmd, root)
		if err != nil {
			return err
		}

		pc := project.Config{Name: initName, Author: initAuthor}
		if pc.Name == "" {
			pc.Name = prompt.Ask("Project name", project.DefaultName)
		}
		if pc.Author == "" {
			pc.Author = prompt.Ask("Author", project.DefaultAuthor)
		}

		res, err := project.Init(cmd.Context(), root, pc, vcs.NewGit(root, cfg.GitBinary), prompt)
		if errors.Is(err, project.ErrAborted) {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
		if err != nil {
			return err
		}
		if !res.OK {
			output.Logger.Warn("Initial commit skipped", "reason", res.Reason)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "GitML project initialised in %s\n", root)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove GitML from the project",
	Long: `Deletes .gitml.json and the .gitml directory with every iteration, commit
and stash in it. Your code and the git repository are left alone.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		err = e.manager.Delete()
		if errors.Is(err, project.ErrAborted) {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "GitML project deleted.")
		return nil
	},
}

// Version is set at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the GitML version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "gitml %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(initCmd, deleteCmd, versionCmd)

	initCmd.Flags().StringVar(&initName, "name", "", "project name (prompted when empty)")
	initCmd.Flags().StringVar(&initAuthor, "author", "", "author name (prompted when empty)")
}
