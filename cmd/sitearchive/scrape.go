package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/nao1215/sitearchive/internal/config"
	"github.com/nao1215/sitearchive/internal/database"
	"github.com/nao1215/sitearchive/internal/model"
	"github.com/nao1215/sitearchive/internal/pipeline"
	"github.com/nao1215/sitearchive/internal/selection"
	"github.com/spf13/cobra"
)

// errNoInput is returned when stdin closes before a valid selection.
var errNoInput = errors.New("no selection entered")

// skipAnswer skips a base address at the selection prompt.
const skipAnswer = "none"

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [base-url...]",
		Short: "Discover the pages of a site and extract the ones you pick",
		Long: `Scrape discovers every page below each base address, asks which of them
to extract, and writes the main text of each chosen page to a .txt file in
a new session directory.

Discovery only follows links that start with the base address, up to
--depth hops away, and waits half of --delay before each request.
Extraction waits the full --delay before each page.

At the prompt, answer with page numbers and ranges ("1,3,5-7"), "all" or
an empty line for every page, or "none" to skip that base address.

Examples:
  # Discover and choose interactively
  sitearchive scrape https://docs.example.com/guide/

  # Extract everything without prompting
  sitearchive scrape --select all https://docs.example.com/guide/

  # Several sites at once, two discovered in parallel
  sitearchive scrape -n 2 https://a.example.com/ https://b.example.com/

  # Append to an existing session directory and keep a Markdown summary
  sitearchive scrape --existing-dir ./archive --summary-file https://example.com/`,
		Args: cobra.ArbitraryArgs,
		RunE: runScrapeCmd,
	}

	addCrawlFlags(cmd)
	addReportFlags(cmd)
	cmd.Flags().StringP("select", "s", "",
		`Pages to extract without prompting, e.g. "1,3,5-7" or "all"`)
	cmd.Flags().String("existing-dir", "",
		"Write artifacts into this directory instead of a new session directory")
	cmd.Flags().Bool("summary-file", false,
		"Also write summary.md into each session directory")
	cmd.Flags().Bool("no-history", false,
		"Do not record the session in the history database")

	return cmd
}

func runScrapeCmd(cmd *cobra.Command, args []string) error {
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
	expr, err := cmd.Flags().GetString("select")
	if err != nil {
		return err
	}
	existingDir, err := cmd.Flags().GetString("existing-dir")
	if err != nil {
		return err
	}
	summaryFile, err := cmd.Flags().GetBool("summary-file")
	if err != nil {
		return err
	}

	logger := setupLogger(cmd)
	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	db, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	reports, err := discoverAll(ctx, cmd, cfg, logger)
	if err != nil {
		_ = writeReports(cmd, opts, reports) //nolint:errcheck // the cancellation is the error to report
		return err
	}

	chosen, err := chooseAll(cmd, reports, expr, cmd.Flags().Changed("select"))
	if err != nil {
		return err
	}

	toExtract := make([]*model.SessionReport, 0, len(reports))
	for _, r := range reports {
		if len(chosen[r.BaseURL]) > 0 {
			toExtract = append(toExtract, r)
		}
	}

	if len(toExtract) > 0 {
		factory := func(baseURL string) (*pipeline.Pipeline, error) {
			configOpts := append(pipeline.ConfigOptions(cfg, baseURL),
				pipeline.WithPipelineChooser(pipeline.SelectLinks(chosen[baseURL])),
				pipeline.WithPipelineExistingDir(existingDir),
				pipeline.WithPipelineSummaryFile(summaryFile),
			)
			if db != nil {
				configOpts = append(configOpts, pipeline.WithPipelineRecorder(db))
			}
			return pipeline.DefaultPipeline([]pipeline.Option{pipeline.WithLogger(logger)}, configOpts...)
		}

		// Extraction writes into shared directories, so bases run one at a time.
		bp := pipeline.NewBatchProcessor(factory,
			pipeline.WithConcurrency(1),
			pipeline.WithBatchLogger(logger),
		)

		p := newProgress(cmd)
		p.Start(fmt.Sprintf("Extracting pages from %d site(s)...", len(toExtract)))
		err = bp.ProcessReports(ctx, toExtract)
		p.Stop()
	}

	opts.showLinks = false
	if werr := writeReports(cmd, opts, reports); werr != nil && err == nil {
		err = werr
	}
	return err
}

// validateConfig validates cfg but lets individual non-http targets through,
// since those are reported per target. It fails only when no target is usable.
func validateConfig(cfg *config.Config) error {
	valid := make([]string, 0, len(cfg.Targets))
	for _, t := range cfg.Targets {
		if config.IsHTTPAddress(t) {
			valid = append(valid, t)
		}
	}
	c := *cfg
	if len(valid) > 0 {
		c.Targets = valid
	}
	return c.Validate()
}

// openHistory opens the history database unless history is disabled.
func openHistory(cfg *config.Config, logger *slog.Logger) (*database.HistoryDB, error) {
	if cfg.DBDir == "" {
		return nil, nil
	}
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Debug("database opened", "path", db.Path())
	return db, nil
}

// discoverAll runs discovery for every target and returns one report per
// target in input order.
func discoverAll(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) ([]*model.SessionReport, error) {
	factory := func(baseURL string) (*pipeline.Pipeline, error) {
		configOpts := append(pipeline.ConfigOptions(cfg, baseURL), pipeline.WithPipelineDiscoverOnly(true))
		return pipeline.DefaultPipeline([]pipeline.Option{pipeline.WithLogger(logger)}, configOpts...)
	}
	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithBatchLogger(logger),
	)

	p := newProgress(cmd)
	p.Start(fmt.Sprintf("Discovering links on %d site(s)...", len(cfg.Targets)))
	defer p.Stop()

	var mu sync.Mutex
	done := 0
	return bp.ProcessBatchWithCallback(ctx, cfg.Targets, func(r *model.SessionReport, _ int) {
		mu.Lock()
		defer mu.Unlock()
		done++
		logger.Info("discovery finished", "url", r.BaseURL, "links", len(r.Links()), "done", done, "total", len(cfg.Targets))
	})
}

// chooseAll decides which links to extract for every report. With --select
// the same selection applies to every base address and an invalid one is
// an error; otherwise the user is prompted per base address.
func chooseAll(cmd *cobra.Command, reports []*model.SessionReport, expr string, useFlag bool) (map[string][]string, error) {
	chosen := make(map[string][]string, len(reports))
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	for _, r := range reports {
		links := r.Links()
		if r.Error != nil || len(links) == 0 {
			continue
		}

		if useFlag {
			selected, err := selection.Select(links, expr)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", r.BaseURL, err)
			}
			chosen[r.BaseURL] = selected
			continue
		}

		selected, err := promptSelection(in, out, r.BaseURL, links)
		if err != nil {
			return nil, err
		}
		chosen[r.BaseURL] = selected
	}
	return chosen, nil
}

// promptSelection lists links and reads a selection until it is valid.
// "none" returns an empty selection.
func promptSelection(in *bufio.Reader, out io.Writer, baseURL string, links []string) ([]string, error) {
	fmt.Fprintf(out, "\nFound %d page(s) under %s:\n", len(links), baseURL)
	for i, link := range links {
		fmt.Fprintf(out, "  %3d. %s\n", i+1, link)
	}

	for {
		fmt.Fprintf(out, "Pages to extract [1-%d, all, %s] (default all): ", len(links), skipAnswer)
		line, err := in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			if errors.Is(err, io.EOF) {
				return nil, errNoInput
			}
			return nil, err
		}

		answer := strings.TrimSpace(line)
		if strings.EqualFold(answer, skipAnswer) {
			return nil, nil
		}
		selected, err := selection.Select(links, answer)
		if err == nil {
			return selected, nil
		}
		fmt.Fprintf(out, "%v, try again\n", err)
	}
}
