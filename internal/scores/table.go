package scores

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"subtyper/internal/types"
)

// Table maps a cluster id to its risk scores. Keys are normalized to
// strings so lookups match the marker-gene table's key type even when the
// upstream CSV carries integer cluster labels.
type Table map[string]types.RiskScore

// Lookup returns the scores for a cluster. A missing row yields all-zero
// scores (label "low") rather than an error: a cluster must never be
// skipped for lack of a score row.
func (t Table) Lookup(clusterID string) types.RiskScore {
	return t[clusterID]
}

// Score column names written by the upstream scoring step.
const (
	colCluster       = "cluster"
	colProliferation = "proliferation_score_scaled"
	colStemness      = "stemness_score_scaled"
	colImmune        = "immune_score_scaled"
	colPrognostic    = "prognostic_score_scaled"
)

// LoadCSV reads the scaled risk-score table. The cluster id column is the
// one named "cluster" when present, otherwise the first column. The four
// score columns are located by name.
func LoadCSV(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open risk-score table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read risk-score table: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("risk-score table %s is empty", path)
	}

	header := rows[0]
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(strings.ToLower(name))] = i
	}

	clusterCol := 0
	if i, ok := idx[colCluster]; ok {
		clusterCol = i
	}

	need := []string{colProliferation, colStemness, colImmune, colPrognostic}
	for _, name := range need {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("risk-score table missing column %q", name)
		}
	}

	parse := func(row []string, col string) (float64, error) {
		i := idx[col]
		if i >= len(row) {
			return 0, fmt.Errorf("short row: no value for %q", col)
		}
		return strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
	}

	table := make(Table, len(rows)-1)
	for n, row := range rows[1:] {
		if clusterCol >= len(row) {
			return nil, fmt.Errorf("risk-score table row %d: missing cluster id", n+2)
		}
		id := strings.TrimSpace(row[clusterCol])

		var rs types.RiskScore
		if rs.Proliferation, err = parse(row, colProliferation); err != nil {
			return nil, fmt.Errorf("risk-score table row %d: %w", n+2, err)
		}
		if rs.Stemness, err = parse(row, colStemness); err != nil {
			return nil, fmt.Errorf("risk-score table row %d: %w", n+2, err)
		}
		if rs.Immune, err = parse(row, colImmune); err != nil {
			return nil, fmt.Errorf("risk-score table row %d: %w", n+2, err)
		}
		if rs.Prognostic, err = parse(row, colPrognostic); err != nil {
			return nil, fmt.Errorf("risk-score table row %d: %w", n+2, err)
		}
		table[id] = rs
	}

	return table, nil
}
