package cmd

import (
	"fmt"
	"time"

	"github.com/brogergvhs/branchd/internal/config"
	"github.com/brogergvhs/branchd/internal/session"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the active profile: output layout, image handling and the story site selectors",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, used, err := config.LoadMerged(config.Options{
			IgnoreConfig: flagIgnoreConfig,
			Debug:        flagDebug,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Loaded config from:\n  %s\n\n", used)
		cfg.Print()

		fmt.Fprintf(out, "\nChapter pages:\n  title:   %s\n  content: %s\n  parent:  link text %q\n",
			cfg.Site.TitleSelector, cfg.Site.ContentSelector, cfg.Site.ParentLinkText)

		st, err := session.NewStore(config.SessionFile()).Load()
		switch {
		case err != nil:
			fmt.Fprintf(out, "\nSession: unreadable (%v)\n", err)
		case st.Empty():
			fmt.Fprintln(out, "\nSession: none")
		default:
			fmt.Fprintf(out, "\nSession: %d cookies, expires %s\n", len(st.Cookies), st.Expires.Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
