package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daryltucker/gitml/internal/workspace"
)

var stashCmd = &cobra.Command{
	Use:   "stash",
	Short: "Move the workspace aside so an iteration can be reused",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		if _, err := e.manager.Stash(); err != nil {
			if errors.Is(err, workspace.ErrNothingToStash) {
				fmt.Fprintln(cmd.OutOrStdout(), capitalize(err.Error())+".")
				return nil
			}
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Stashed successfully.")
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Move stashed files back into the workspace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		if _, err := e.manager.Restore(); err != nil {
			if errors.Is(err, workspace.ErrNoStash) || errors.Is(err, workspace.ErrEmptyStash) {
				fmt.Fprintln(cmd.OutOrStdout(), capitalize(err.Error())+".")
				return nil
			}
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Stash restored.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stashCmd, restoreCmd)
}
