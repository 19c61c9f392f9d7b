// Package articulation turns raw backend text into hypothesis records. The
// parser is strict: the response must be a single well-formed JSON object
// with a subtype from the closed set, or the degraded fallback is produced.
package articulation

import (
	"encoding/json"
	"strings"

	"subtyper/internal/types"
)

// Resolve parses raw completion text into a HypothesisRecord. It never
// fails: any deviation from the documented shape (trailing prose, markdown
// fences, single quotes, unknown subtype) yields the degraded record
// carrying the verbatim text for human triage.
func Resolve(raw, clusterID string, genes []string) *types.HypothesisRecord {
	trimmed := strings.TrimSpace(raw)

	var rec types.HypothesisRecord
	// json.Unmarshal rejects trailing non-whitespace, so prose around the
	// object fails closed here rather than being speculatively repaired.
	if err := json.Unmarshal([]byte(trimmed), &rec); err != nil {
		return degraded(raw, clusterID, genes)
	}

	if !types.ValidSubtype(rec.CandidateSubtype) {
		return degraded(raw, clusterID, genes)
	}

	// Fill identity fields the backend left out; echoed values win.
	if rec.Cluster == "" {
		rec.Cluster = clusterID
	}
	if len(rec.TopGenes) == 0 {
		rec.TopGenes = genes
	}
	// A successful record never carries raw text.
	rec.RawResponse = ""

	return &rec
}

// degraded builds the fallback record. This is the designed terminal
// handling for malformed backend output, not an error state.
func degraded(raw, clusterID string, genes []string) *types.HypothesisRecord {
	return &types.HypothesisRecord{
		Cluster:     clusterID,
		TopGenes:    genes,
		RawResponse: raw,
	}
}
