// Package catalog persists one record per converted book, backed by SQLite.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a conversion record does not exist.
var ErrNotFound = errors.New("conversion not found")

// Conversion is one completed (or failed) book conversion.
type Conversion struct {
	ID           int64     `json:"id"`
	SourceFile   string    `json:"source_file"`
	BookTitle    string    `json:"book_title"`
	OutputDir    string    `json:"output_dir"`
	ChapterCount int       `json:"chapter_count"`
	HasAggregate bool      `json:"has_aggregate"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Conversion statuses.
const (
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_file TEXT NOT NULL,
	book_title TEXT NOT NULL,
	output_dir TEXT NOT NULL,
	chapter_count INTEGER NOT NULL DEFAULT 0,
	has_aggregate INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversions_created_at ON conversions(created_at);
`

// Store manages conversion persistence.
type Store struct {
	db *sql.DB
}

// Open connects to the catalog database, applying pragmas and schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts a conversion and returns its ID.
func (s *Store) Record(ctx context.Context, c Conversion) (int64, error) {
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversions (
			source_file, book_title, output_dir, chapter_count,
			has_aggregate, status, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.SourceFile,
		c.BookTitle,
		c.OutputDir,
		c.ChapterCount,
		boolToInt(c.HasAggregate),
		c.Status,
		c.Error,
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert conversion: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Get returns a single conversion by ID.
func (s *Store) Get(ctx context.Context, id int64) (*Conversion, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source_file, book_title, output_dir, chapter_count,
			has_aggregate, status, error, created_at
		FROM conversions WHERE id = ?`, id)
	c, err := scanConversion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversion %d: %w", id, err)
	}
	return c, nil
}

// List returns all conversions, newest first.
func (s *Store) List(ctx context.Context) ([]Conversion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_file, book_title, output_dir, chapter_count,
			has_aggregate, status, error, created_at
		FROM conversions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	defer rows.Close()

	var out []Conversion
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversion: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Delete removes a conversion record.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete conversion %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversion(row rowScanner) (*Conversion, error) {
	var c Conversion
	var hasAggregate int
	var createdAt string
	err := row.Scan(&c.ID, &c.SourceFile, &c.BookTitle, &c.OutputDir,
		&c.ChapterCount, &hasAggregate, &c.Status, &c.Error, &createdAt)
	if err != nil {
		return nil, err
	}
	c.HasAggregate = hasAggregate != 0
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		c.CreatedAt = ts
	}
	return &c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
