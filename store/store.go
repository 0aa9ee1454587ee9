// Package store is the relational record store backed by SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jansaakshi/backend/model"
)

const defaultQueryTimeout = 15 * time.Second

// Options tune the store
type Options struct {
	// QueryTimeout bounds every store call
	QueryTimeout time.Duration
	MaxOpenConns int
}

// Store persists projects, meetings, accounts and citizen feedback
type Store struct {
	db      *sql.DB
	timeout time.Duration
}

// Open opens (creating if needed) the database at path and applies the schema
func Open(path string, opts Options) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen / 2)
	db.SetConnMaxLifetime(time.Hour)

	timeout := opts.QueryTimeout
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	s := &Store{db: db, timeout: timeout}

	ctx, cancel := s.withTimeout(context.Background())
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database answers
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return wrapErr(s.db.PingContext(ctx))
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// wrapErr marks timeouts and connection failures as ErrStoreUnavailable
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sql.ErrConnDone) ||
		strings.Contains(err.Error(), "database is locked") ||
		strings.Contains(err.Error(), "sql: database is closed") {
		return fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS city (
		city_id INTEGER PRIMARY KEY AUTOINCREMENT,
		city_name TEXT NOT NULL UNIQUE,
		lat REAL,
		lng REAL,
		zoom INTEGER
	);

	CREATE TABLE IF NOT EXISTS projects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		city_id INTEGER NOT NULL,
		ward_no TEXT,
		ward_name TEXT,
		ward_zone TEXT,
		project_name TEXT NOT NULL,
		summary TEXT,
		location_details TEXT,
		description TEXT,
		project_type TEXT,
		status TEXT,
		status_note TEXT,
		budget REAL,
		corporator_name TEXT,
		contractor_name TEXT,
		approval_date TEXT,
		start_date TEXT,
		expected_completion TEXT,
		actual_completion TEXT,
		delay_days INTEGER DEFAULT 0,
		source_pdf TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(city_id, project_name),
		FOREIGN KEY (city_id) REFERENCES city(city_id)
	);

	CREATE TABLE IF NOT EXISTS meetings (
		meeting_id TEXT PRIMARY KEY,
		city_id INTEGER NOT NULL,
		ward_no TEXT,
		ward_name TEXT,
		meet_date TEXT,
		meet_time TEXT,
		meet_type TEXT,
		venue TEXT,
		objective TEXT,
		attendees TEXT,
		projects_discussed TEXT,
		project_name TEXT,
		budget REAL,
		timeline TEXT,
		completion_date TEXT,
		contractor_name TEXT,
		source_pdf TEXT,
		created_at TEXT NOT NULL,
		FOREIGN KEY (city_id) REFERENCES city(city_id)
	);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		display_name TEXT,
		city_id INTEGER,
		ward_no TEXT,
		role TEXT NOT NULL DEFAULT 'user',
		created_at TEXT NOT NULL,
		FOREIGN KEY (city_id) REFERENCES city(city_id)
	);

	CREATE TABLE IF NOT EXISTS complaints (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		city_id INTEGER,
		user_id INTEGER,
		ward_no TEXT,
		category TEXT,
		description TEXT NOT NULL,
		location TEXT,
		citizen_name TEXT,
		citizen_phone TEXT,
		status TEXT NOT NULL DEFAULT 'submitted',
		admin_notes TEXT,
		created_at TEXT NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS follow_ups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		project_id INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(user_id, project_id),
		FOREIGN KEY (user_id) REFERENCES users(id),
		FOREIGN KEY (project_id) REFERENCES projects(id)
	);

	CREATE TABLE IF NOT EXISTS contractor_reviews (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		contractor_name TEXT NOT NULL,
		reviewer_id INTEGER NOT NULL,
		rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
		title TEXT,
		body TEXT,
		created_at TEXT NOT NULL,
		UNIQUE(contractor_name, reviewer_id),
		FOREIGN KEY (reviewer_id) REFERENCES users(id)
	);

	CREATE INDEX IF NOT EXISTS idx_projects_city_ward ON projects(city_id, ward_no);
	CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status);
	CREATE INDEX IF NOT EXISTS idx_meetings_city_date ON meetings(city_id, meet_date);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", model.DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likeArg builds a case-insensitive substring pattern for LIKE ... ESCAPE '\'
func likeArg(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(s))) + "%"
}

// anyLike returns "(LOWER(a) LIKE ? ESCAPE '\' OR LOWER(b) LIKE ? ...)" and
// the matching arguments
func anyLike(columns []string, value string) (string, []any) {
	parts := make([]string, len(columns))
	args := make([]any, len(columns))
	pattern := likeArg(value)
	for i, col := range columns {
		parts[i] = fmt.Sprintf(`LOWER(COALESCE(%s,'')) LIKE ? ESCAPE '\'`, col)
		args[i] = pattern
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}
