package progress

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is a Store persisted in a SQLite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the progress database at path.
// Use ":memory:" for a private in-memory database.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create progress directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// An in-memory database lives and dies with a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS progress (
		key TEXT PRIMARY KEY,
		done_at TIMESTAMP NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure progress schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// MarkDone records key as completed. Marking a key twice keeps the first
// completion time.
func (s *SQLite) MarkDone(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO progress (key, done_at) VALUES (?, ?)`,
		key, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark done: %w", err)
	}
	return nil
}

func (s *SQLite) IsDone(ctx context.Context, key string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM progress WHERE key = ?`, key).Scan(&n); err != nil {
		return false, fmt.Errorf("query progress: %w", err)
	}
	return n > 0, nil
}

// Keys returns the completed keys in lexical order.
func (s *SQLite) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM progress ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan progress key: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// Reset removes every completed key.
func (s *SQLite) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM progress`)
	return err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
