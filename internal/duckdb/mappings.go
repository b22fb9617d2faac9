package duckdb

import (
	"context"
	"fmt"
	"strings"
)

// lookupChunk bounds the number of placeholders per lookup query.
const lookupChunk = 500

// LookupMappings returns the cached ids of symbols for a target identifier
// space. Symbols without a cached id are absent from the result.
func (s *Store) LookupMappings(ctx context.Context, target string, symbols []string) (map[string]string, error) {
	out := make(map[string]string)
	for start := 0; start < len(symbols); start += lookupChunk {
		chunk := symbols[start:min(start+lookupChunk, len(symbols))]

		args := make([]any, 0, len(chunk)+1)
		args = append(args, target)
		for _, sym := range chunk {
			args = append(args, sym)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")

		rows, err := s.db.QueryContext(ctx,
			`SELECT symbol, id FROM id_mappings WHERE target = ? AND symbol IN (`+placeholders+`)`,
			args...)
		if err != nil {
			return nil, fmt.Errorf("query mappings: %w", err)
		}
		for rows.Next() {
			var sym, id string
			if err := rows.Scan(&sym, &id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan mapping: %w", err)
			}
			out[sym] = id
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterate mappings: %w", err)
		}
	}
	return out, nil
}

// WriteMappings stores symbol -> id pairs for a target identifier space,
// replacing earlier entries.
func (s *Store) WriteMappings(ctx context.Context, target string, mapped map[string]string) error {
	if len(mapped) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO id_mappings (target, symbol, id) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare mapping insert: %w", err)
	}
	defer stmt.Close()

	for sym, id := range mapped {
		if _, err := stmt.ExecContext(ctx, target, sym, id); err != nil {
			return fmt.Errorf("insert mapping: %w", err)
		}
	}
	return tx.Commit()
}

// ClearMappings removes every cached identifier mapping.
func (s *Store) ClearMappings(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM id_mappings")
	return err
}
