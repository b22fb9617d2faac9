package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"
)

// MACResult is one persisted bootstrap outcome.
type MACResult struct {
	Phenotype string
	Database  string
	Weighted  bool
	MAC       float64
	PValue    float64
	Exceeded  int
	Samples   int
}

// macKey is the per-run key for deduplicating results before writing.
type macKey struct {
	phenotype, database string
	weighted            bool
}

// WriteMACResults batch-inserts results of a run using the Appender API.
// Duplicate (phenotype, database, weighted) entries keep the first one.
func (s *Store) WriteMACResults(ctx context.Context, runID string, results []MACResult) error {
	if len(results) == 0 {
		return nil
	}

	seen := make(map[macKey]bool, len(results))
	deduped := make([]MACResult, 0, len(results))
	for _, r := range results {
		k := macKey{r.Phenotype, r.Database, r.Weighted}
		if !seen[k] {
			seen[k] = true
			deduped = append(deduped, r)
		}
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "mac_results")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, r := range deduped {
		if err := appender.AppendRow(
			runID, r.Phenotype, r.Database, r.Weighted,
			r.MAC, r.PValue, int64(r.Exceeded), int64(r.Samples),
		); err != nil {
			return fmt.Errorf("append mac result: %w", err)
		}
	}

	return appender.Flush()
}

// MACResults returns the results of a run ordered by phenotype, database
// and weighting.
func (s *Store) MACResults(ctx context.Context, runID string) ([]MACResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		phenotype, db_name, weighted, mac, p_value, exceeded, samples
		FROM mac_results
		WHERE run_id = ?
		ORDER BY phenotype, db_name, weighted`, runID)
	if err != nil {
		return nil, fmt.Errorf("query mac results: %w", err)
	}
	defer rows.Close()

	var out []MACResult
	for rows.Next() {
		var r MACResult
		var exceeded, samples int64
		if err := rows.Scan(&r.Phenotype, &r.Database, &r.Weighted, &r.MAC, &r.PValue, &exceeded, &samples); err != nil {
			return nil, fmt.Errorf("scan mac result: %w", err)
		}
		r.Exceeded, r.Samples = int(exceeded), int(samples)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mac results: %w", err)
	}
	return out, nil
}

// DBSimilarity is one persisted database-to-database score.
type DBSimilarity struct {
	DB1    string
	DB2    string
	Metric string
	Score  float64
}

// WriteDBSimilarity stores database-to-database scores of a run.
func (s *Store) WriteDBSimilarity(ctx context.Context, runID string, scores []DBSimilarity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO db_similarity (run_id, db1, db2, metric, score) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare similarity insert: %w", err)
	}
	defer stmt.Close()

	for _, sc := range scores {
		if _, err := stmt.ExecContext(ctx, runID, sc.DB1, sc.DB2, sc.Metric, sc.Score); err != nil {
			return fmt.Errorf("insert similarity: %w", err)
		}
	}
	return tx.Commit()
}

// DBSimilarities returns the database-to-database scores of a run.
func (s *Store) DBSimilarities(ctx context.Context, runID string) ([]DBSimilarity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT db1, db2, metric, score
		FROM db_similarity WHERE run_id = ? ORDER BY db1, db2, metric`, runID)
	if err != nil {
		return nil, fmt.Errorf("query similarities: %w", err)
	}
	defer rows.Close()

	var out []DBSimilarity
	for rows.Next() {
		var sc DBSimilarity
		if err := rows.Scan(&sc.DB1, &sc.DB2, &sc.Metric, &sc.Score); err != nil {
			return nil, fmt.Errorf("scan similarity: %w", err)
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate similarities: %w", err)
	}
	return out, nil
}
