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

	"github.com/nao1215/siteaudit/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "siteaudit.db"

// AuditDB provides SQLite-based storage for audit results, job status and
// provider usage counters.
type AuditDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures AuditDB behavior.
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

// Open opens or creates an AuditDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, it returns
// ErrDatabaseNotFound.
func Open(dbDir string, opts Options) (*AuditDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file.
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

	adb := &AuditDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := adb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return adb, nil
}

// Path returns the database file path.
func (adb *AuditDB) Path() string {
	return adb.dbPath
}

// Close closes the database connection.
func (adb *AuditDB) Close() error {
	return adb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (adb *AuditDB) createTables() error {
	schema := `
	-- One row per finished audit job; the full result is kept as JSON
	CREATE TABLE IF NOT EXISTS audits (
		job_id TEXT PRIMARY KEY,
		site TEXT NOT NULL,
		started_at TEXT NOT NULL,
		completed_at TEXT,
		score REAL NOT NULL,
		category TEXT NOT NULL,
		incomplete INTEGER NOT NULL DEFAULT 0,
		page_count INTEGER NOT NULL DEFAULT 0,
		issue_groups INTEGER NOT NULL DEFAULT 0,
		result_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audits_site ON audits(site);
	CREATE INDEX IF NOT EXISTS idx_audits_started ON audits(started_at);

	-- Last known progress of every job
	CREATE TABLE IF NOT EXISTS job_status (
		job_id TEXT PRIMARY KEY,
		site TEXT NOT NULL,
		status TEXT NOT NULL,
		phase TEXT,
		pages_crawled INTEGER NOT NULL DEFAULT 0,
		max_pages INTEGER NOT NULL DEFAULT 0,
		percent REAL NOT NULL DEFAULT 0,
		error TEXT,
		updated_at TEXT NOT NULL
	);

	-- Provider usage, one counter per key and period
	CREATE TABLE IF NOT EXISTS usage_counters (
		key TEXT NOT NULL,
		period TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (key, period)
	);
	`

	_, err := adb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveAuditResult stores a result. Saving the same job again replaces it.
func (adb *AuditDB) SaveAuditResult(ctx context.Context, result *model.AuditResult) error {
	if result == nil {
		return ErrNilResult
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to serialize audit result: %w", err)
	}

	query := `
	INSERT INTO audits (job_id, site, started_at, completed_at, score, category, incomplete, page_count, issue_groups, result_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(job_id) DO UPDATE SET
		site = excluded.site,
		started_at = excluded.started_at,
		completed_at = excluded.completed_at,
		score = excluded.score,
		category = excluded.category,
		incomplete = excluded.incomplete,
		page_count = excluded.page_count,
		issue_groups = excluded.issue_groups,
		result_json = excluded.result_json
	`

	_, err = adb.db.ExecContext(ctx, query,
		result.JobID,
		result.Site,
		formatTimestamp(result.StartedAt),
		formatTimestamp(result.CompletedAt),
		result.Score,
		string(result.Category),
		result.Incomplete,
		len(result.Pages),
		len(result.IssueGroups),
		string(resultJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save audit result: %w", err)
	}
	return nil
}

// GetAuditResult retrieves the result of a job. It returns nil, nil when
// the job has no stored result.
func (adb *AuditDB) GetAuditResult(ctx context.Context, jobID string) (*model.AuditResult, error) {
	query := `SELECT result_json FROM audits WHERE job_id = ?`

	var resultJSON string
	err := adb.db.QueryRowContext(ctx, query, jobID).Scan(&resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit result: %w", err)
	}

	var result model.AuditResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse audit result: %w", err)
	}
	return &result, nil
}

// AuditSummary is the stored metadata of one audit. It is used for
// displaying history without loading the full result.
type AuditSummary struct {
	JobID       string
	Site        string
	StartedAt   time.Time
	CompletedAt time.Time
	Score       float64
	Category    model.ScoreCategory
	Incomplete  bool
	PageCount   int
	IssueGroups int
}

// ListAudits returns the audits of a site, most recent first. An empty
// site lists all audits. limit <= 0 means no limit.
func (adb *AuditDB) ListAudits(ctx context.Context, site string, limit int) ([]AuditSummary, error) {
	query := `
	SELECT job_id, site, started_at, completed_at, score, category, incomplete, page_count, issue_groups
	FROM audits
	WHERE (? = '' OR site = ?)
	ORDER BY started_at DESC, rowid DESC
	LIMIT ?
	`
	if limit <= 0 {
		limit = -1
	}

	rows, err := adb.db.QueryContext(ctx, query, site, site, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audits: %w", err)
	}
	defer rows.Close()

	var summaries []AuditSummary
	for rows.Next() {
		var (
			s         AuditSummary
			started   string
			completed sql.NullString
			category  string
		)
		if err := rows.Scan(&s.JobID, &s.Site, &started, &completed, &s.Score, &category,
			&s.Incomplete, &s.PageCount, &s.IssueGroups); err != nil {
			return nil, fmt.Errorf("failed to scan audit: %w", err)
		}
		s.StartedAt = parseTimestamp(started)
		if completed.Valid {
			s.CompletedAt = parseTimestamp(completed.String)
		}
		s.Category = model.ScoreCategory(category)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// SaveJobStatus stores the progress of a job, replacing the previous one.
func (adb *AuditDB) SaveJobStatus(ctx context.Context, progress model.JobProgress) error {
	query := `
	INSERT INTO job_status (job_id, site, status, phase, pages_crawled, max_pages, percent, error, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(job_id) DO UPDATE SET
		site = excluded.site,
		status = excluded.status,
		phase = excluded.phase,
		pages_crawled = excluded.pages_crawled,
		max_pages = excluded.max_pages,
		percent = excluded.percent,
		error = excluded.error,
		updated_at = excluded.updated_at
	`

	updated := progress.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := adb.db.ExecContext(ctx, query,
		progress.JobID,
		progress.Site,
		string(progress.Status),
		progress.Phase,
		progress.PagesCrawled,
		progress.MaxPages,
		progress.Percent,
		progress.Error,
		formatTimestamp(updated),
	)
	if err != nil {
		return fmt.Errorf("failed to save job status: %w", err)
	}
	return nil
}

// GetJobStatus retrieves the last stored progress of a job. It returns
// nil, nil for unknown jobs.
func (adb *AuditDB) GetJobStatus(ctx context.Context, jobID string) (*model.JobProgress, error) {
	query := `
	SELECT job_id, site, status, phase, pages_crawled, max_pages, percent, error, updated_at
	FROM job_status
	WHERE job_id = ?
	`

	var (
		p       model.JobProgress
		status  string
		phase   sql.NullString
		errText sql.NullString
		updated string
	)
	err := adb.db.QueryRowContext(ctx, query, jobID).Scan(&p.JobID, &p.Site, &status, &phase,
		&p.PagesCrawled, &p.MaxPages, &p.Percent, &errText, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job status: %w", err)
	}
	p.Status = model.JobStatus(status)
	p.Phase = phase.String
	p.Error = errText.String
	p.UpdatedAt = parseTimestamp(updated)
	return &p, nil
}

// timestampLayout has a fixed width so that stored timestamps sort
// chronologically as text.
const timestampLayout = "2006-01-02 15:04:05.000000000"

// formatTimestamp formats t in UTC. The zero time is stored as "".
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that may be stored.
// More specific formats come first.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
}

// parseTimestamp parses a stored timestamp as UTC. It returns the zero
// time when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
