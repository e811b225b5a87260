package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/brogergvhs/branchd/internal/config"
	"github.com/brogergvhs/branchd/internal/session"
	"github.com/brogergvhs/branchd/internal/util"

	"github.com/spf13/cobra"
)

var (
	flagSessionURL        string
	flagSessionCookie     string
	flagSessionCookieFile string
	flagSessionReveal     bool
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the cookies kept between runs",
}

var sessionImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Store cookies copied from a browser for the host of --url",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := config.LoadMerged(config.Options{IgnoreConfig: flagIgnoreConfig, DefaultURL: flagSessionURL})
		if err != nil {
			return err
		}
		if cfg.DefaultURL == "" {
			return errors.New("missing --url and no default_url in config")
		}

		header, err := util.JoinCookies(flagSessionCookie, flagSessionCookieFile)
		if err != nil {
			return fmt.Errorf("read cookie file: %w", err)
		}

		st, err := session.Import(session.NewStore(config.SessionFile()), cfg.DefaultURL, header, cfg.SessionTTL)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Imported cookies, session holds %d (expires %s)\n",
			len(st.Cookies), st.Expires.Format(time.RFC3339))
		return nil
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List the stored cookies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := session.NewStore(config.SessionFile())
		st, err := store.Load()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if st.Empty() {
			fmt.Fprintf(out, "No session stored (or it expired): %s\n", store.Path)
			return nil
		}

		fmt.Fprintf(out, "Session file: %s\nExpires: %s\n\n", store.Path, st.Expires.Format(time.RFC3339))

		w := tabwriter.NewWriter(out, 0, 0, 4, ' ', 0)
		_, _ = fmt.Fprintln(w, "DOMAIN\tNAME\tVALUE")
		for _, c := range st.Cookies {
			value := c.Value
			if !flagSessionReveal {
				value = maskValue(value)
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", c.Domain, c.Name, value)
		}

		if err := w.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to flush table output: %v\n", err)
		}
		return nil
	},
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := session.NewStore(config.SessionFile())
		if err := store.Clear(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Removed session %s\n", store.Path)
		return nil
	},
}

// maskValue keeps the first and last two characters of long values.
func maskValue(v string) string {
	if len(v) <= 6 {
		return "******"
	}
	return v[:2] + "…" + v[len(v)-2:]
}

func init() {
	sessionImportCmd.Flags().StringVar(&flagSessionURL, "url", "", "any URL on the story site")
	sessionImportCmd.Flags().StringVar(&flagSessionCookie, "cookie", "", "cookie string, e.g. \"key=value; other=123\"")
	sessionImportCmd.Flags().StringVar(&flagSessionCookieFile, "cookie-file", "", "path to a text file with cookies (one header line)")

	sessionShowCmd.Flags().BoolVar(&flagSessionReveal, "reveal", false, "print cookie values unmasked")

	sessionCmd.AddCommand(sessionImportCmd, sessionShowCmd, sessionClearCmd)
	rootCmd.AddCommand(sessionCmd)
}
