package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/agentpark/internal/config"
	"github.com/teemow/agentpark/internal/google"
)

// newAuthorizer returns the loopback consent flow used by brief and auth.
func newAuthorizer(cfg config.Config, out io.Writer, openBrowser bool) *google.LocalServerAuthorizer {
	a := &google.LocalServerAuthorizer{
		Port: cfg.OAuthCallbackPort,
		Out:  out,
	}
	if openBrowser {
		a.OpenURL = google.OpenBrowser
	}
	return a
}

func newAuthCmd() *cobra.Command {
	var (
		force     bool
		noBrowser bool
	)

	cmd := &cobra.Command{
		Use:   "auth [calendar|gmail]",
		Short: "Authorize Google Calendar and Gmail access",
		Long: `Run the Google consent flow and cache the granted token, so later
briefings (and the server) can read the calendar and mailbox without
prompting. Without an argument both accounts are authorized.

Each account requests read-only access and is stored in its own token file.
A valid cached token is kept unless --force is set.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: google.Accounts(),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cfg, logger, err := loadConfig(configPath, debugMode, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			accounts := google.Accounts()
			if len(args) == 1 {
				if _, err := google.ScopesForAccount(args[0]); err != nil {
					return err
				}
				accounts = args
			}

			tokens, store, err := newTokenProvider(cfg, composerDeps{
				logger:     logger,
				authorizer: newAuthorizer(cfg, cmd.ErrOrStderr(), !noBrowser),
			})
			if err != nil {
				return err
			}

			for _, account := range accounts {
				if force {
					if err := store.Delete(account); err != nil {
						return err
					}
				}
				if _, err := tokens.GetTokenForAccount(ctx, account); err != nil {
					return fmt.Errorf("failed to authorize %s: %w", account, err)
				}
				path, _ := store.Path(account)
				fmt.Fprintf(cmd.OutOrStdout(), "Authorized %s (token cached in %s)\n", account, path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Discard the cached token and consent again")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Print the consent URL without opening a browser")

	return cmd
}
