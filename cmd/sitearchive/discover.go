package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewDiscoverCmd creates the discover command.
func NewDiscoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover [base-url...]",
		Short: "List the pages found below a base address without extracting them",
		Long: `Discover crawls each base address the same way scrape does and prints the
numbered list of pages it found. The numbers are the ones scrape accepts
with --select.

Examples:
  sitearchive discover https://docs.example.com/guide/
  sitearchive discover --depth 2 --json https://example.com/`,
		Args: cobra.ArbitraryArgs,
		RunE: runDiscoverCmd,
	}

	addCrawlFlags(cmd)
	addReportFlags(cmd)

	return cmd
}

func runDiscoverCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	opts, err := getReportOptions(cmd)
	if err != nil {
		return err
	}
	opts.showLinks = true

	logger := setupLogger(cmd)
	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	reports, err := discoverAll(ctx, cmd, cfg, logger)
	if werr := writeReports(cmd, opts, reports); werr != nil && err == nil {
		err = werr
	}
	return err
}
