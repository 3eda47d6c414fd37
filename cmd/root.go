package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the agentpark application
var rootCmd = &cobra.Command{
	Use:   "agentpark",
	Short: "Composes a spoken morning briefing",
	Long: `agentpark gathers the weather at home, the top New York Times stories,
today's calendar events and recent package notifications into a single
briefing meant to be read aloud.

It can run as:
  - A CLI that prints the briefing (default)
  - An HTTP service (GET /morning-briefing)
  - An MCP (Model Context Protocol) server for voice assistants`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

var (
	configPath string
	debugMode  bool
)

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "agentpark version %s\n" .Version}}`)

	// If no subcommand is provided, print the briefing
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "brief")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/agentpark/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newBriefCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
