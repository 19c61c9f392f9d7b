package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"subtyper/internal/types"
)

// RunIndex records batch runs and their produced documents in SQLite so
// past annotation runs stay queryable without re-reading every document.
type RunIndex struct {
	db *sql.DB
}

// RunSummary is one row of the runs listing.
type RunSummary struct {
	ID        string
	StartedAt time.Time
	Mode      string
	Provider  string
	Model     string
	Records   int
	Degraded  int
}

const indexSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at DATETIME NOT NULL,
	mode TEXT NOT NULL,
	provider TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS hypotheses (
	run_id TEXT NOT NULL,
	cluster_id TEXT NOT NULL,
	subtype TEXT NOT NULL DEFAULT '',
	degraded INTEGER NOT NULL DEFAULT 0,
	path TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	PRIMARY KEY (run_id, cluster_id),
	FOREIGN KEY (run_id) REFERENCES runs(id)
);

CREATE INDEX IF NOT EXISTS idx_hypotheses_subtype ON hypotheses(subtype);
`

// OpenRunIndex opens (or creates) the index database at path.
func OpenRunIndex(path string) (*RunIndex, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run index: %w", err)
	}

	// Serialized access: the pipeline writes from bounded workers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(indexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate run index: %w", err)
	}

	return &RunIndex{db: db}, nil
}

// BeginRun records the start of a batch run.
func (ix *RunIndex) BeginRun(runID, mode, provider, model string) error {
	_, err := ix.db.Exec(
		`INSERT INTO runs (id, started_at, mode, provider, model) VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now().UTC(), mode, provider, model,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// RecordHypothesis indexes one produced document.
func (ix *RunIndex) RecordHypothesis(runID string, rec *types.HypothesisRecord, path string) error {
	degraded := 0
	if rec.Degraded() {
		degraded = 1
	}
	_, err := ix.db.Exec(
		`INSERT OR REPLACE INTO hypotheses (run_id, cluster_id, subtype, degraded, path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, rec.Cluster, rec.CandidateSubtype, degraded, path, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to index hypothesis for cluster %s: %w", rec.Cluster, err)
	}
	return nil
}

// ListRuns returns all runs, newest first, with per-run record counts.
func (ix *RunIndex) ListRuns() ([]RunSummary, error) {
	rows, err := ix.db.Query(`
		SELECT r.id, r.started_at, r.mode, r.provider, r.model,
		       COUNT(h.cluster_id), COALESCE(SUM(h.degraded), 0)
		FROM runs r
		LEFT JOIN hypotheses h ON h.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var rs RunSummary
		if err := rows.Scan(&rs.ID, &rs.StartedAt, &rs.Mode, &rs.Provider, &rs.Model, &rs.Records, &rs.Degraded); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, rs)
	}
	return runs, rows.Err()
}

// Close closes the underlying database.
func (ix *RunIndex) Close() error {
	return ix.db.Close()
}
