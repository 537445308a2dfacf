package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for darklight.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "darklight",
		Short: "Crawl and archive Tor onion services",
		Long: `darklight captures onion service pages through Tor, probes well-known
service ports, extracts relationships between services and stores the
results in a local document index.

By default darklight uses the Tor SOCKS proxy at 127.0.0.1:9050. Set
tor.proxy_address to "" to start an embedded Tor daemon instead.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json-log", false, "Write logs as JSON")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .darklight.yaml or $XDG_CONFIG_HOME/darklight/config.yaml)")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewShowCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
