package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitearchive/internal/model"
)

// DBFileName is the name of the history database inside its directory.
const DBFileName = "sitearchive.db"

// ErrNotFound is returned when a session id does not exist.
var ErrNotFound = errors.New("session not found")

// HistoryDB stores every extraction session and the outcome of each page,
// so that past runs can be listed and failed pages retried.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite: mode=rw refuses to create the file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	schema := `
	-- One row per pipeline run for a base address
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		base_url TEXT NOT NULL,
		output_dir TEXT,
		created_at DATETIME NOT NULL,
		links_found INTEGER DEFAULT 0,
		attempted INTEGER DEFAULT 0,
		succeeded INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		cancelled INTEGER DEFAULT 0,
		error TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_base ON sessions(base_url);
	CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at);

	-- One row per extraction job
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		path TEXT,
		rule TEXT,
		reason TEXT,
		detail TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_pages_session ON pages(session_id);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// SessionRecord is the summary row of one stored session.
type SessionRecord struct {
	ID         int64
	BaseURL    string
	OutputDir  string
	CreatedAt  time.Time
	LinksFound int
	Attempted  int
	Succeeded  int
	Failed     int
	Cancelled  bool
	Error      string
}

// SaveSession stores a session report and its per-page results in one
// transaction and returns the new session id.
func (h *HistoryDB) SaveSession(ctx context.Context, report *model.SessionReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	var linksFound, attempted, succeeded, failed int
	if report.Discovery != nil {
		linksFound = len(report.Discovery.Links)
	}
	var results []model.ExtractionResult
	if report.Summary != nil {
		attempted = report.Summary.Attempted
		succeeded = report.Summary.Succeeded
		failed = report.Summary.FailedCount()
		results = report.Summary.Results
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
	INSERT INTO sessions (base_url, output_dir, created_at, links_found, attempted, succeeded, failed, cancelled, error, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.BaseURL,
		report.OutputDir,
		report.CreatedAt.UTC().Format(time.RFC3339Nano),
		linksFound,
		attempted,
		succeeded,
		failed,
		report.Cancelled,
		report.ErrorMessage,
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get session id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO pages (session_id, url, path, rule, reason, detail)
	VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		if _, err := stmt.ExecContext(ctx, id, r.URL, r.Path, r.Rule, string(r.Reason), r.Detail); err != nil {
			return 0, fmt.Errorf("failed to save page %s: %w", r.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit session: %w", err)
	}
	return id, nil
}

// ListSessions returns stored sessions, newest first. An empty baseURL
// lists every base address. limit <= 0 means no limit.
func (h *HistoryDB) ListSessions(ctx context.Context, baseURL string, limit int) ([]SessionRecord, error) {
	query := `
	SELECT id, base_url, output_dir, created_at, links_found, attempted, succeeded, failed, cancelled, error
	FROM sessions
	WHERE (? = '' OR base_url = ?)
	ORDER BY id DESC
	`
	args := []any{baseURL, baseURL}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	records := make([]SessionRecord, 0)
	for rows.Next() {
		var rec SessionRecord
		var outputDir, errMsg sql.NullString
		var createdAt string
		if err := rows.Scan(
			&rec.ID, &rec.BaseURL, &outputDir, &createdAt,
			&rec.LinksFound, &rec.Attempted, &rec.Succeeded, &rec.Failed,
			&rec.Cancelled, &errMsg,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		rec.OutputDir = outputDir.String
		rec.Error = errMsg.String
		rec.CreatedAt = parseTimestamp(createdAt)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// ListBaseURLs returns every base address with at least one session.
func (h *HistoryDB) ListBaseURLs(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT DISTINCT base_url FROM sessions ORDER BY base_url`)
	if err != nil {
		return nil, fmt.Errorf("failed to list base urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan base url: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// GetSession returns the full report stored for a session id.
func (h *HistoryDB) GetSession(ctx context.Context, id int64) (*model.SessionReport, error) {
	var reportJSON string
	err := h.db.QueryRowContext(ctx, `SELECT report_json FROM sessions WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var report model.SessionReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// GetPages returns the per-page results of a session in job order.
func (h *HistoryDB) GetPages(ctx context.Context, id int64) ([]model.ExtractionResult, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT url, path, rule, reason, detail FROM pages
	WHERE session_id = ?
	ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get pages: %w", err)
	}
	defer rows.Close()

	results := make([]model.ExtractionResult, 0)
	for rows.Next() {
		var r model.ExtractionResult
		var path, rule, reason, detail sql.NullString
		if err := rows.Scan(&r.URL, &path, &rule, &reason, &detail); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		r.Path = path.String
		r.Rule = rule.String
		r.Reason = model.Reason(reason.String)
		r.Detail = detail.String
		results = append(results, r)
	}
	return results, rows.Err()
}

// FailedURLs returns the addresses that failed in a session, in job order.
func (h *HistoryDB) FailedURLs(ctx context.Context, id int64) ([]string, error) {
	pages, err := h.GetPages(ctx, id)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0)
	for _, p := range pages {
		if !p.Succeeded() {
			urls = append(urls, p.URL)
		}
	}
	return urls, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp tries each of timestampFormats and returns the zero time
// if none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
