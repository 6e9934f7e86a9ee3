package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/gophermirror/internal/crawler"
)

// MirrorDB provides SQLite-based storage for mirror run history.
// It manages connection pooling and provides methods for saving and
// querying runs.
//
// Design decision: We use a single database file for all runs rather
// than one file per target. This keeps the history subcommand a single
// query and simplifies backup/restore operations.
type MirrorDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures MirrorDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a MirrorDB at the specified path.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*MirrorDB, error) {
	dbPath := filepath.Join(dbDir, "gophermirror.db")

	// Check if we should create the database or require it to exist
	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		// Ensure directory exists
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Build connection string
	// We use modernc.org/sqlite which uses a different connection string format.
	// When CreateIfNotExists is false, we use mode=rw to prevent creating new files.
	// When CreateIfNotExists is true, we use mode=rwc to allow creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	// SQLite doesn't benefit from multiple connections for writes,
	// but multiple readers can improve performance
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	mdb := &MirrorDB{
		db:     db,
		dbPath: dbPath,
	}

	// Enable WAL mode if requested
	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	// Create tables
	if err := mdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return mdb, nil
}

// Close closes the database connection.
func (mdb *MirrorDB) Close() error {
	return mdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (mdb *MirrorDB) createTables() error {
	schema := `
	-- Runs store one row per mirror invocation per target
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		start_url TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		fetched INTEGER NOT NULL DEFAULT 0,
		menus_fetched INTEGER NOT NULL DEFAULT 0,
		files_fetched INTEGER NOT NULL DEFAULT 0,
		saved INTEGER NOT NULL DEFAULT 0,
		skipped_existing INTEGER NOT NULL DEFAULT 0,
		skipped_visited INTEGER NOT NULL DEFAULT 0,
		filtered INTEGER NOT NULL DEFAULT 0,
		failures INTEGER NOT NULL DEFAULT 0,
		bytes_fetched INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_start_url ON runs(start_url);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Fetches store one row per resource attempt within a run
	CREATE TABLE IF NOT EXISTS fetches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		item_type TEXT,
		size INTEGER NOT NULL DEFAULT 0,
		sha256 TEXT,
		saved_path TEXT,
		status TEXT NOT NULL,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_fetches_run ON fetches(run_id);
	CREATE INDEX IF NOT EXISTS idx_fetches_url ON fetches(url);
	`

	_, err := mdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores a completed mirror run and its per-resource records.
// It returns the new run's database ID.
func (mdb *MirrorDB) SaveRun(ctx context.Context, result *crawler.Result) (int64, error) {
	tx, err := mdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	runQuery := `
	INSERT INTO runs (start_url, started_at, finished_at, fetched, menus_fetched,
		files_fetched, saved, skipped_existing, skipped_visited, filtered,
		failures, bytes_fetched)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := tx.ExecContext(ctx, runQuery,
		result.StartURL,
		result.StartedAt.UTC().Format(time.RFC3339),
		result.FinishedAt.UTC().Format(time.RFC3339),
		result.Fetched,
		result.MenusFetched,
		result.FilesFetched,
		result.Saved,
		result.SkippedExisting,
		result.SkippedVisited,
		result.Filtered,
		len(result.Failures),
		result.BytesFetched,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	fetchQuery := `
	INSERT INTO fetches (run_id, url, item_type, size, sha256, saved_path, status)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, url) DO UPDATE SET
		item_type = excluded.item_type,
		size = excluded.size,
		sha256 = excluded.sha256,
		saved_path = excluded.saved_path,
		status = excluded.status
	`

	for _, r := range result.Resources {
		if _, err := tx.ExecContext(ctx, fetchQuery,
			runID, r.URL, r.ItemType, r.Size, r.SHA256, r.SavedPath, r.Status,
		); err != nil {
			return 0, fmt.Errorf("failed to insert fetch record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	return runID, nil
}

// RunRecord is the stored summary of one mirror run.
type RunRecord struct {
	ID              int64
	StartURL        string
	StartedAt       time.Time
	FinishedAt      time.Time
	Fetched         int
	MenusFetched    int
	FilesFetched    int
	Saved           int
	SkippedExisting int
	SkippedVisited  int
	Filtered        int
	Failures        int
	BytesFetched    int64
}

// ListRuns returns stored runs, newest first. When startURL is non-empty
// only runs for that URL are returned.
func (mdb *MirrorDB) ListRuns(ctx context.Context, startURL string) ([]RunRecord, error) {
	query := `
	SELECT id, start_url, started_at, finished_at, fetched, menus_fetched,
		files_fetched, saved, skipped_existing, skipped_visited, filtered,
		failures, bytes_fetched
	FROM runs
	`
	args := make([]interface{}, 0)
	if startURL != "" {
		query += " WHERE start_url = ?"
		args = append(args, startURL)
	}
	query += " ORDER BY started_at DESC"

	rows, err := mdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunRecord
	for rows.Next() {
		var rec RunRecord
		var started, finished string

		if err := rows.Scan(
			&rec.ID,
			&rec.StartURL,
			&started,
			&finished,
			&rec.Fetched,
			&rec.MenusFetched,
			&rec.FilesFetched,
			&rec.Saved,
			&rec.SkippedExisting,
			&rec.SkippedVisited,
			&rec.Filtered,
			&rec.Failures,
			&rec.BytesFetched,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		// SQLite may return timestamps in different formats depending
		// on how the row was written
		rec.StartedAt = parseTimestamp(started)
		rec.FinishedAt = parseTimestamp(finished)
		results = append(results, rec)
	}

	return results, rows.Err()
}

// GetRun retrieves one run summary by its database ID.
// It returns nil when the run does not exist.
func (mdb *MirrorDB) GetRun(ctx context.Context, id int64) (*RunRecord, error) {
	query := `
	SELECT id, start_url, started_at, finished_at, fetched, menus_fetched,
		files_fetched, saved, skipped_existing, skipped_visited, filtered,
		failures, bytes_fetched
	FROM runs
	WHERE id = ?
	`

	var rec RunRecord
	var started, finished string

	err := mdb.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.StartURL,
		&started,
		&finished,
		&rec.Fetched,
		&rec.MenusFetched,
		&rec.FilesFetched,
		&rec.Saved,
		&rec.SkippedExisting,
		&rec.SkippedVisited,
		&rec.Filtered,
		&rec.Failures,
		&rec.BytesFetched,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	rec.StartedAt = parseTimestamp(started)
	rec.FinishedAt = parseTimestamp(finished)
	return &rec, nil
}

// FetchRecord is the stored record of one resource attempt within a run.
type FetchRecord struct {
	ID        int64
	RunID     int64
	URL       string
	ItemType  string
	Size      int64
	SHA256    string
	SavedPath string
	Status    string
}

// ListFetches returns the fetch records of one run in insertion order.
func (mdb *MirrorDB) ListFetches(ctx context.Context, runID int64) ([]FetchRecord, error) {
	query := `
	SELECT id, run_id, url, item_type, size, sha256, saved_path, status
	FROM fetches
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := mdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fetches: %w", err)
	}
	defer rows.Close()

	var results []FetchRecord
	for rows.Next() {
		var rec FetchRecord
		var itemType, sha, savedPath sql.NullString

		if err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&rec.URL,
			&itemType,
			&rec.Size,
			&sha,
			&savedPath,
			&rec.Status,
		); err != nil {
			return nil, fmt.Errorf("failed to scan fetch record: %w", err)
		}

		rec.ItemType = itemType.String
		rec.SHA256 = sha.String
		rec.SavedPath = savedPath.String
		results = append(results, rec)
	}

	return results, rows.Err()
}

// ListMirroredURLs returns the distinct start URLs present in the
// database, ordered alphabetically.
func (mdb *MirrorDB) ListMirroredURLs(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT start_url FROM runs
	ORDER BY start_url
	`

	rows, err := mdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list mirrored URLs: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan URL: %w", err)
		}
		urls = append(urls, u)
	}

	return urls, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	// Return zero time if no format matches
	return time.Time{}
}
