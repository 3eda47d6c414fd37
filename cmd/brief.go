package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/agentpark/internal/briefing"
)

func newBriefCmd() *cobra.Command {
	var (
		asJSON    bool
		noConsent bool
		noBrowser bool
	)

	cmd := &cobra.Command{
		Use:   "brief",
		Short: "Print the morning briefing",
		Long: `Gather the weather, the top New York Times stories, today's calendar events
and recent package notifications, and print the briefing.

A source that is not configured or fails is replaced by a short fallback
line; the briefing itself always prints. When a Google token is missing
the consent page is opened once, unless --no-consent is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cfg, logger, err := loadConfig(configPath, debugMode, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			deps := composerDeps{logger: logger}
			if !noConsent {
				deps.authorizer = newAuthorizer(cfg, cmd.ErrOrStderr(), !noBrowser)
			}
			composer, err := newComposer(ctx, cfg, deps)
			if err != nil {
				return err
			}

			if asJSON {
				return writeBriefingJSON(cmd.OutOrStdout(), composer.Gather(ctx))
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), composer.Compose(ctx))
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the gathered sections as JSON instead of text")
	cmd.Flags().BoolVar(&noConsent, "no-consent", false, "Never run the Google consent flow; fall back instead")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Print the consent URL without opening a browser")

	return cmd
}

func writeBriefingJSON(w io.Writer, b briefing.Briefing) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("failed to encode briefing: %w", err)
	}
	return nil
}
