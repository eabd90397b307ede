package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for sitearchive.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitearchive",
		Short: "Discover the pages of a website and archive their text",
		Long: `sitearchive crawls a website below a base address, lists every page it
finds, and saves the main text of the pages you choose as plain-text files.

Discovery stays inside the base address, follows links up to a fixed depth
and waits between requests. Extraction looks for the main content region of
each page, drops navigation and other noise, and writes one .txt file per
page into a fresh, timestamped session directory.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Only log warnings and show a progress spinner")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .sitearchive in current or home directory)")

	cmd.AddCommand(NewScrapeCmd())
	cmd.AddCommand(NewDiscoverCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHistoryCmd())
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
