package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Run describes one recorded CLI invocation.
type Run struct {
	ID        string
	Command   string
	StartedAt time.Time
	Inputs    []FileFingerprint
}

// StartRun records a new run and returns its id.
func (s *Store) StartRun(ctx context.Context, command string, inputs []FileFingerprint) (string, error) {
	encoded, err := json.Marshal(inputs)
	if err != nil {
		return "", fmt.Errorf("encode run inputs: %w", err)
	}
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, command, started_at, inputs) VALUES (?, ?, ?, ?)`,
		id, command, time.Now().UTC(), string(encoded)); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// GetRun returns the run with the given id, or nil when there is none.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, command, started_at, inputs FROM runs WHERE run_id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

// FindRun returns the most recent run of command whose inputs match the
// given fingerprints exactly, or nil when no such run exists.
func (s *Store) FindRun(ctx context.Context, command string, inputs []FileFingerprint) (*Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, command, started_at, inputs FROM runs
		WHERE command = ? ORDER BY started_at DESC`, command)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if sameInputs(r.Inputs, inputs) {
			return r, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return nil, nil
}

func sameInputs(a, b []FileFingerprint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Same(b[i]) {
			return false
		}
	}
	return true
}

func scanRun(row interface{ Scan(dest ...any) error }) (*Run, error) {
	var r Run
	var inputs string
	if err := row.Scan(&r.ID, &r.Command, &r.StartedAt, &inputs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(inputs), &r.Inputs); err != nil {
		return nil, fmt.Errorf("decode run inputs: %w", err)
	}
	return &r, nil
}
