/*
PURPOSE:
  Defines the record commands: ls/list, show, commit (with its ls/list and
  show subcommands) and reuse.

REQUIREMENTS:
  User-specified:
  - List iterations and commits newest first, show one by id.
  - Promote an iteration to a commit.
  - Restore the code of an iteration or commit into an empty workspace.

  Implementation-discovered:
  - `commit ls` must not be read as "commit the iteration named ls"; the
    subcommands take precedence over the positional id.

ARCHITECTURE INTEGRATION:
  - Calls: internal/iteration.Manager
  - Uses: internal/output for rendering

ERROR HANDLING:
  - Empty listings print a message and succeed.
  - Everything else is returned to main.go.

USAGE:
  gitml ls --format json
  gitml commit 0190f1c2e4a57c3d9b1e2f3a4b5c6d7e
  gitml reuse 0190f1c2e4a57c3d9b1e2f3a4b5c6d7e

RELATED FILES:
  - internal/cli/root.go
  - internal/iteration/manager.go
*/

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daryltucker/gitml/internal/model"
	"github.com/daryltucker/gitml/internal/output"
	"github.com/daryltucker/gitml/internal/vcs"
)

func listRecords(cmd *cobra.Command, kind model.Kind) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	records, err := e.manager.List(kind)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No %s found.\n", kind.Plural())
		return nil
	}
	return output.Write(cmd.OutOrStdout(), e.format, capitalize(kind.Plural()), records)
}

func showRecord(cmd *cobra.Command, kind model.Kind, id string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	rec, err := e.manager.Show(id, kind)
	if err != nil {
		return err
	}
	return output.Write(cmd.OutOrStdout(), e.format, capitalize(string(kind)), []model.Record{rec})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var listCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List saved iterations, newest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listRecords(cmd, model.KindIteration)
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one iteration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showRecord(cmd, model.KindIteration, args[0])
	},
}

var commitCmd = &cobra.Command{
	Use:   "commit <id>",
	Short: "Promote an iteration to a commit",
	Long: `Moves the iteration's model, code snapshot and record to the commit side
and records the change in git. A commit cannot be committed again.`,
	Example: `  gitml commit 0190f1c2e4a57c3d9b1e2f3a4b5c6d7e
  gitml commit ls
  gitml commit show 0190f1c2e4a57c3d9b1e2f3a4b5c6d7e`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		res, err := e.manager.Commit(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Iteration committed : %s\n", res.Record.ID)
		reportVCS(cmd, res.VCS)
		return nil
	},
}

func reportVCS(cmd *cobra.Command, res vcs.Result) {
	if res.OK {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Warning: git commit skipped: %s\n", res.Reason)
}

var commitListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List commits, newest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listRecords(cmd, model.KindCommit)
	},
}

var commitShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one commit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showRecord(cmd, model.KindCommit, args[0])
	},
}

var reuseCmd = &cobra.Command{
	Use:   "reuse <id>",
	Short: "Restore the code of an iteration or commit",
	Long: `Copies the code snapshot of an iteration (or commit) into the project.
The workspace must be empty: run 'gitml stash' first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		kind, err := e.manager.Reuse(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Code restored from %s %s\n", kind, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd, showCmd, commitCmd, reuseCmd)
	commitCmd.AddCommand(commitListCmd, commitShowCmd)
}
