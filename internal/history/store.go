package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one published book.
type Entry struct {
	ID          int64     `json:"id"`
	RunID       string    `json:"run_id"`
	Fingerprint string    `json:"fingerprint"`
	Source      string    `json:"source"`
	Label       string    `json:"label"`
	Author      string    `json:"author"`
	Title       string    `json:"title"`
	Destination string    `json:"destination"`
	ImportedAt  time.Time `json:"imported_at"`
}

// Store manages the import ledger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database and applies migrations.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts a published book. A zero ImportedAt is stamped with the current time.
func (s *Store) Record(ctx context.Context, entry Entry) (Entry, error) {
	if strings.TrimSpace(entry.Destination) == "" {
		return Entry{}, errors.New("history entry requires a destination")
	}
	if entry.ImportedAt.IsZero() {
		entry.ImportedAt = time.Now()
	}
	entry.ImportedAt = entry.ImportedAt.UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO imports (
            run_id, fingerprint, source, label, author, title, destination, imported_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.Fingerprint,
		entry.Source,
		entry.Label,
		entry.Author,
		entry.Title,
		entry.Destination,
		entry.ImportedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert history entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("history entry id: %w", err)
	}
	entry.ID = id
	return entry, nil
}

// Recent returns up to limit entries, newest first. A non-positive limit returns all entries.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, run_id, fingerprint, source, label, author, title, destination, imported_at
        FROM imports ORDER BY imported_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// SeenFingerprint returns the most recent entry for a source fingerprint.
// The boolean is false when the fingerprint was never published.
func (s *Store) SeenFingerprint(ctx context.Context, fingerprint string) (Entry, bool, error) {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return Entry{}, false, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, run_id, fingerprint, source, label, author, title, destination, imported_at
        FROM imports WHERE fingerprint = ? ORDER BY imported_at DESC, id DESC LIMIT 1`,
		fingerprint,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		entry    Entry
		imported string
	)
	if err := row.Scan(
		&entry.ID,
		&entry.RunID,
		&entry.Fingerprint,
		&entry.Source,
		&entry.Label,
		&entry.Author,
		&entry.Title,
		&entry.Destination,
		&imported,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan history entry: %w", err)
	}
	if ts, err := time.Parse(time.RFC3339Nano, imported); err == nil {
		entry.ImportedAt = ts
	}
	return entry, nil
}
