// Package duckdb persists evaluation runs, their results and the gene
// identifier mapping cache in DuckDB (queryable, append-only).
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for run results and cached mappings.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path, empty for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id VARCHAR PRIMARY KEY,
		command VARCHAR,
		started_at TIMESTAMP,
		inputs VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS mac_results (
		run_id VARCHAR,
		phenotype VARCHAR,
		db_name VARCHAR,
		weighted BOOLEAN,
		mac DOUBLE,
		p_value DOUBLE,
		exceeded BIGINT,
		samples BIGINT,
		PRIMARY KEY (run_id, phenotype, db_name, weighted)
	)`,
	`CREATE TABLE IF NOT EXISTS db_similarity (
		run_id VARCHAR,
		db1 VARCHAR,
		db2 VARCHAR,
		metric VARCHAR,
		score DOUBLE,
		PRIMARY KEY (run_id, db1, db2, metric)
	)`,
	`CREATE TABLE IF NOT EXISTS id_mappings (
		target VARCHAR,
		symbol VARCHAR,
		id VARCHAR,
		PRIMARY KEY (target, symbol)
	)`,
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
