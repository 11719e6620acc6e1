package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one journaled resolution outcome.
type Record struct {
	ID            int64         `json:"id"`
	CorrelationID string        `json:"correlation_id,omitempty"`
	StorefrontID  int64         `json:"storefront_id"`
	CatalogID     int64         `json:"catalog_id,omitempty"`
	Title         string        `json:"title,omitempty"`
	Outcome       string        `json:"outcome"`
	Query         string        `json:"query,omitempty"`
	Duration      time.Duration `json:"duration_ns"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Outcome values stored in the journal.
const (
	OutcomeHit          = "hit"
	OutcomeCacheHit     = "cache_hit"
	OutcomeStaleServed  = "stale_served"
	OutcomeMiss         = "miss"
	OutcomeError        = "error"
	OutcomeImport       = "import"
	OutcomeImportEmpty  = "import_empty"
	OutcomeImportFailed = "import_failed"
)

const schema = `
CREATE TABLE IF NOT EXISTS lookups (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    correlation_id TEXT NOT NULL DEFAULT '',
    storefront_id INTEGER NOT NULL,
    catalog_id INTEGER NOT NULL DEFAULT 0,
    title TEXT NOT NULL DEFAULT '',
    outcome TEXT NOT NULL,
    query TEXT NOT NULL DEFAULT '',
    duration_ms INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_lookups_storefront ON lookups(storefront_id);
CREATE INDEX IF NOT EXISTS idx_lookups_created ON lookups(created_at);
`

// Store manages journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database and applies the
// schema.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
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

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Record inserts one resolution outcome.
func (s *Store) Record(ctx context.Context, rec Record) error {
	if s == nil || s.db == nil {
		return nil
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO lookups (
            correlation_id, storefront_id, catalog_id, title, outcome, query, duration_ms, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CorrelationID,
		rec.StorefrontID,
		rec.CatalogID,
		rec.Title,
		rec.Outcome,
		rec.Query,
		rec.Duration.Milliseconds(),
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert lookup record: %w", err)
	}
	return nil
}

// Recent returns the most recent records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, correlation_id, storefront_id, catalog_id, title, outcome, query, duration_ms, created_at
         FROM lookups ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query lookups: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec        Record
			durationMS int64
			createdAt  string
		)
		if err := rows.Scan(&rec.ID, &rec.CorrelationID, &rec.StorefrontID, &rec.CatalogID,
			&rec.Title, &rec.Outcome, &rec.Query, &durationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scan lookup record: %w", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		if parsed, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			rec.CreatedAt = parsed
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ByStorefrontID returns records for one app, newest first.
func (s *Store) ByStorefrontID(ctx context.Context, storefrontID int64, limit int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, correlation_id, storefront_id, catalog_id, title, outcome, query, duration_ms, created_at
         FROM lookups WHERE storefront_id = ? ORDER BY id DESC LIMIT ?`,
		storefrontID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query lookups: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec        Record
			durationMS int64
			createdAt  string
		)
		if err := rows.Scan(&rec.ID, &rec.CorrelationID, &rec.StorefrontID, &rec.CatalogID,
			&rec.Title, &rec.Outcome, &rec.Query, &durationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scan lookup record: %w", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		if parsed, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			rec.CreatedAt = parsed
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
