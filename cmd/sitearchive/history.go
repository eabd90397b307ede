package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/nao1215/sitearchive/internal/config"
	"github.com/nao1215/sitearchive/internal/database"
	"github.com/nao1215/sitearchive/internal/model"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is the number of sessions history list shows.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
// It reads the sessions recorded by scrape and serve.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show previously recorded extraction sessions",
		Long: `History reads the extraction sessions recorded in the history database.

Examples:
  # Most recent sessions
  sitearchive history list

  # Sessions of one base address
  sitearchive history list https://docs.example.com/guide/

  # Everything recorded for session 4
  sitearchive history show 4

  # The pages session 4 failed to extract, ready to retry
  sitearchive history failed 4`,
	}

	cmd.PersistentFlags().String("db-dir", "",
		"Directory holding the history database (default: XDG data directory)")

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryFailedCmd())
	return cmd
}

func newHistoryListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [base-url]",
		Short: "List recorded sessions, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHistoryListCmd,
	}
	cmd.Flags().IntP("limit", "l", defaultHistoryLimit, "Maximum number of sessions to list (0 = all)")
	cmd.Flags().BoolP("sites", "S", false, "List the recorded base addresses instead")
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show the report of a recorded session",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShowCmd,
	}
	addReportFlags(cmd)
	return cmd
}

func newHistoryFailedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "failed <id>",
		Short: "Print the addresses a session failed to extract, one per line",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryFailedCmd,
	}
}

// openHistoryDB opens the database named by --db-dir or the default one.
func openHistoryDB(cmd *cobra.Command) (*database.HistoryDB, error) {
	dir := flagString(cmd, "db-dir")
	if dir == "" {
		dir = config.XDGDataDir()
	}
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func parseSessionID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid session id %q: must be a positive integer", s)
	}
	return id, nil
}

func runHistoryListCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	sites, err := cmd.Flags().GetBool("sites")
	if err != nil {
		return err
	}

	db, err := openHistoryDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()

	if sites {
		bases, err := db.ListBaseURLs(cmd.Context())
		if err != nil {
			return err
		}
		if len(bases) == 0 {
			fmt.Fprintln(out, "No sessions recorded yet")
			return nil
		}
		fmt.Fprintf(out, "Recorded sites (%d):\n\n", len(bases))
		for _, b := range bases {
			fmt.Fprintf(out, "  • %s\n", b)
		}
		return nil
	}

	baseURL := ""
	if len(args) == 1 {
		baseURL = args[0]
	}
	records, err := db.ListSessions(cmd.Context(), baseURL, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No sessions recorded yet")
		return nil
	}

	fmt.Fprintf(out, "  %-6s  %-19s  %-9s  %-6s  %s\n", "ID", "Date", "Extracted", "Failed", "Base URL")
	for _, r := range records {
		fmt.Fprintf(out, "  %-6d  %-19s  %4d/%-4d  %-6d  %s\n",
			r.ID,
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.Succeeded, r.Attempted,
			r.Failed,
			r.BaseURL,
		)
	}
	return nil
}

func runHistoryShowCmd(cmd *cobra.Command, args []string) error {
	id, err := parseSessionID(args[0])
	if err != nil {
		return err
	}
	opts, err := getReportOptions(cmd)
	if err != nil {
		return err
	}
	opts.verbose = true

	db, err := openHistoryDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	r, err := db.GetSession(cmd.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("no session with id %d", id)
	}
	if err != nil {
		return err
	}
	return writeReports(cmd, opts, []*model.SessionReport{r})
}

func runHistoryFailedCmd(cmd *cobra.Command, args []string) error {
	id, err := parseSessionID(args[0])
	if err != nil {
		return err
	}

	db, err := openHistoryDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	urls, err := db.FailedURLs(cmd.Context(), id)
	if err != nil {
		return err
	}
	for _, u := range urls {
		fmt.Fprintln(cmd.OutOrStdout(), u)
	}
	return nil
}
