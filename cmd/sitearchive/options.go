package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/nao1215/sitearchive/internal/config"
	applog "github.com/nao1215/sitearchive/internal/log"
	"github.com/nao1215/sitearchive/internal/model"
	"github.com/nao1215/sitearchive/internal/report"
	"github.com/spf13/cobra"
)

// addCrawlFlags registers the discovery and extraction flags shared by the
// commands that fetch pages. Defaults shown in help are the built-in
// defaults; environment variables apply when a flag is not given.
func addCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Duration("delay", config.DefaultPolitenessDelay,
		"Politeness delay before each extraction request (discovery waits half of it)")
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum number of link hops followed from the base address")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages fetched during discovery (0 = no limit)")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of base addresses discovered at the same time")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")
	cmd.Flags().String("proxy", "",
		`Send requests through a proxy: "host:port" (SOCKS5) or a socks5://, http:// URL`)
	cmd.Flags().StringP("output-dir", "O", "",
		"Root directory for session directories (default: $SCRAPER_OUTPUT_DIR or <tmp>/Web_Scrapes)")
}

// addReportFlags registers the report format flags.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")
}

// buildConfig creates a Config from defaults, the environment, the config
// file and the command flags, in that order. Only flags the user set
// override earlier sources.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	if err := config.ApplyEnv(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	cfg.ConfigFilePath = flagString(cmd, "config")
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		siteConfigs, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.SiteConfigs = siteConfigs
	} else if explicitConfigPath {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	flags := cmd.Flags()
	var err error
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("delay") {
		if cfg.PolitenessDelay, err = flags.GetDuration("delay"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("depth") {
		if cfg.MaxDepth, err = flags.GetInt("depth"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-pages") {
		if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("concurrency") {
		if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("user-agent") {
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-body-size") {
		if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("output-dir") {
		if cfg.OutputDir, err = flags.GetString("output-dir"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.Proxy, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("log-tail-size") {
		if cfg.LogTailSize, err = flags.GetInt("log-tail-size"); err != nil {
			return nil, err
		}
	}
	if flagBool(cmd, "no-history") {
		cfg.DBDir = ""
	}

	cfg.Verbose = flagBool(cmd, "verbose")
	cfg.Targets = config.ParseTargets(strings.Join(args, "\n"))

	return cfg, nil
}

// flagString returns a local or inherited string flag, or "" when the
// command does not have it.
func flagString(cmd *cobra.Command, name string) string {
	if f := cmd.Flag(name); f != nil {
		return f.Value.String()
	}
	return ""
}

// flagBool returns a local or inherited bool flag, or false when the
// command does not have it.
func flagBool(cmd *cobra.Command, name string) bool {
	f := cmd.Flag(name)
	return f != nil && f.Value.String() == "true"
}

// setupLogger creates the CLI logger. --quiet keeps only warnings so the
// spinner is readable.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	w := cmd.ErrOrStderr()
	if flagBool(cmd, "quiet") && !flagBool(cmd, "verbose") {
		h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn})
		return slog.New(applog.NewRedactingHandler(h))
	}
	return applog.NewLogger(w, flagBool(cmd, "verbose"))
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// progress is a spinner on stderr that is only shown with --quiet.
type progress struct {
	s *spinner.Spinner
}

func newProgress(cmd *cobra.Command) *progress {
	if !flagBool(cmd, "quiet") || flagBool(cmd, "verbose") {
		return &progress{}
	}
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
	return &progress{s: s}
}

func (p *progress) Start(msg string) {
	if p.s == nil {
		return
	}
	p.s.Suffix = " " + msg
	p.s.Start()
}

func (p *progress) Stop() {
	if p.s == nil {
		return
	}
	p.s.Stop()
}

// reportOptions selects the report format and destination.
type reportOptions struct {
	json      bool
	markdown  bool
	file      string
	showLinks bool
	verbose   bool
}

func getReportOptions(cmd *cobra.Command) (reportOptions, error) {
	var opts reportOptions
	var err error
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return opts, err
	}
	if opts.file, err = cmd.Flags().GetString("output"); err != nil {
		return opts, err
	}
	opts.verbose = flagBool(cmd, "verbose")
	return opts, nil
}

// openReportOutput returns the report destination and a function closing it.
func openReportOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// writeReports writes the session reports in the requested format. JSON
// output is a single array so it stays machine readable for several
// base addresses.
func writeReports(cmd *cobra.Command, opts reportOptions, reports []*model.SessionReport) error {
	out, closeFn, err := openReportOutput(cmd, opts.file)
	if err != nil {
		return err
	}
	defer closeFn() //nolint:errcheck // best effort on the error path

	if opts.json {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(reports); err != nil {
			return err
		}
		return closeFn()
	}

	var w report.Writer
	if opts.markdown {
		w = report.NewMarkdownWriter(out)
	} else {
		w = report.NewSimpleWriter(out,
			report.WithShowLinks(opts.showLinks),
			report.WithVerbose(opts.verbose),
		)
	}
	for _, r := range reports {
		if _, err := w.Write(r); err != nil {
			return err
		}
	}
	return closeFn()
}
