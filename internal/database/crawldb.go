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

	"github.com/nao1215/wordscan/internal/model"
)

// DBFileName is the name of the database file inside the data directory.
const DBFileName = "wordscan.db"

// CrawlDB stores finished crawl reports in SQLite.
// It never stores frontier or visited state: a stored run cannot be resumed.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so that the history command can
	// read while a scan writes.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per crawl run
	CREATE TABLE IF NOT EXISTS crawl_runs (
		id TEXT PRIMARY KEY,
		seed TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		pages_crawled INTEGER NOT NULL DEFAULT 0,
		pages_skipped INTEGER NOT NULL DEFAULT 0,
		urls_visited INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_seed ON crawl_runs(seed);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON crawl_runs(started_at);

	-- Ranked words of each run, rank 1 is the most frequent
	CREATE TABLE IF NOT EXISTS top_words (
		run_id TEXT NOT NULL REFERENCES crawl_runs(id) ON DELETE CASCADE,
		rank INTEGER NOT NULL,
		word TEXT NOT NULL,
		frequency INTEGER NOT NULL,
		PRIMARY KEY (run_id, rank)
	);

	CREATE INDEX IF NOT EXISTS idx_words_word ON top_words(word);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveReport stores a finished report and its ranked words.
// Saving a report with an existing ID replaces the earlier copy.
func (cdb *CrawlDB) SaveReport(ctx context.Context, report *model.CrawlReport) (err error) {
	if report == nil {
		return errors.New("report is nil")
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO crawl_runs (id, seed, started_at, finished_at, pages_crawled, pages_skipped, urls_visited, status, error, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		seed = excluded.seed,
		started_at = excluded.started_at,
		finished_at = excluded.finished_at,
		pages_crawled = excluded.pages_crawled,
		pages_skipped = excluded.pages_skipped,
		urls_visited = excluded.urls_visited,
		status = excluded.status,
		error = excluded.error,
		report_json = excluded.report_json
	`,
		report.ID,
		report.Seed,
		formatTimestamp(report.StartedAt),
		formatTimestamp(report.FinishedAt),
		report.PagesCrawled,
		report.PagesSkipped,
		report.URLsVisited,
		report.Status,
		report.Error,
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save crawl run: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM top_words WHERE run_id = ?`, report.ID); err != nil {
		return fmt.Errorf("failed to clear top words: %w", err)
	}

	for i, w := range report.TopWords {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO top_words (run_id, rank, word, frequency) VALUES (?, ?, ?, ?)`,
			report.ID, i+1, w.Word, w.Frequency,
		)
		if err != nil {
			return fmt.Errorf("failed to save top word %q: %w", w.Word, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit report: %w", err)
	}
	return nil
}

// GetReport retrieves a report by run ID.
// It returns nil without error when no run has that ID.
func (cdb *CrawlDB) GetReport(ctx context.Context, id string) (*model.CrawlReport, error) {
	var reportJSON string
	err := cdb.db.QueryRowContext(ctx, `SELECT report_json FROM crawl_runs WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl report: %w", err)
	}

	var report model.CrawlReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// RunSummary contains summary information about a stored run.
// It is used for listing history without loading full reports.
type RunSummary struct {
	ID           string    `json:"id"`
	Seed         string    `json:"seed"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	PagesCrawled int       `json:"pages_crawled"`
	PagesSkipped int       `json:"pages_skipped"`
	URLsVisited  int       `json:"urls_visited"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`

	// TopWord is the rank 1 word, empty when the run found none.
	TopWord string `json:"top_word,omitempty"`

	// TopFrequency is the count of TopWord.
	TopFrequency int `json:"top_frequency,omitempty"`
}

// ListRuns returns stored runs, newest first. An empty seed lists every run.
func (cdb *CrawlDB) ListRuns(ctx context.Context, seed string) ([]RunSummary, error) {
	query := `
	SELECT r.id, r.seed, r.started_at, r.finished_at, r.pages_crawled, r.pages_skipped,
	       r.urls_visited, r.status, r.error, w.word, w.frequency
	FROM crawl_runs r
	LEFT JOIN top_words w ON w.run_id = r.id AND w.rank = 1
	WHERE (? = '' OR r.seed = ?)
	ORDER BY r.started_at DESC
	`

	rows, err := cdb.db.QueryContext(ctx, query, seed, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunSummary
	for rows.Next() {
		var (
			s          RunSummary
			startedAt  string
			finishedAt sql.NullString
			errMsg     sql.NullString
			word       sql.NullString
			frequency  sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.Seed, &startedAt, &finishedAt, &s.PagesCrawled, &s.PagesSkipped,
			&s.URLsVisited, &s.Status, &errMsg, &word, &frequency); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		s.StartedAt = parseTimestamp(startedAt)
		s.FinishedAt = parseTimestamp(finishedAt.String)
		s.Error = errMsg.String
		s.TopWord = word.String
		s.TopFrequency = int(frequency.Int64)
		results = append(results, s)
	}

	return results, rows.Err()
}

// ListSeeds returns every seed with at least one stored run, sorted.
func (cdb *CrawlDB) ListSeeds(ctx context.Context) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, `SELECT DISTINCT seed FROM crawl_runs ORDER BY seed`)
	if err != nil {
		return nil, fmt.Errorf("failed to list seeds: %w", err)
	}
	defer rows.Close()

	var seeds []string
	for rows.Next() {
		var seed string
		if err := rows.Scan(&seed); err != nil {
			return nil, fmt.Errorf("failed to scan seed: %w", err)
		}
		seeds = append(seeds, seed)
	}

	return seeds, rows.Err()
}

// WordPoint is the position of a word in one run.
type WordPoint struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Rank      int       `json:"rank"`
	Frequency int       `json:"frequency"`
}

// WordHistory returns how word ranked in each run of seed, oldest first.
// Runs in which the word was not among the top words are omitted.
func (cdb *CrawlDB) WordHistory(ctx context.Context, seed, word string) ([]WordPoint, error) {
	query := `
	SELECT r.id, r.started_at, w.rank, w.frequency
	FROM top_words w
	JOIN crawl_runs r ON r.id = w.run_id
	WHERE r.seed = ? AND w.word = ?
	ORDER BY r.started_at ASC
	`

	rows, err := cdb.db.QueryContext(ctx, query, seed, word)
	if err != nil {
		return nil, fmt.Errorf("failed to get word history: %w", err)
	}
	defer rows.Close()

	var points []WordPoint
	for rows.Next() {
		var p WordPoint
		var startedAt string
		if err := rows.Scan(&p.RunID, &startedAt, &p.Rank, &p.Frequency); err != nil {
			return nil, fmt.Errorf("failed to scan word history: %w", err)
		}
		p.StartedAt = parseTimestamp(startedAt)
		points = append(points, p)
	}

	return points, rows.Err()
}

// formatTimestamp stores times as UTC RFC3339 with nanoseconds, which sorts
// lexically in chronological order. The zero time is stored as "".
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
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

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
