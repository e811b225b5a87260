package cmd

import (
	"fmt"

	"github.com/brogergvhs/branchd/internal/config"
	"github.com/brogergvhs/branchd/internal/session"

	"github.com/spf13/cobra"
)

var flagResetSession bool

var configResetCmd = &cobra.Command{
	Use:   "reset [label]",
	Short: "Reset the current or the given config to default values",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			path string
			err  error
		)
		if len(args) == 1 {
			path, err = config.ConfigPathByLabel(args[0])
		} else {
			path, err = config.ActiveConfigPath()
		}
		if err != nil {
			return err
		}

		if err := config.SaveYAML(config.DefaultConfig(), path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reset config: %s\n", path)

		if flagResetSession {
			if err := session.NewStore(config.SessionFile()).Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cleared stored session.")
		}

		return nil
	},
}

func init() {
	configResetCmd.Flags().BoolVar(&flagResetSession, "session", false, "also delete the stored session cookies")
	configCmd.AddCommand(configResetCmd)
}
