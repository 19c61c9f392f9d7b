package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"subtyper/internal/types"
)

// HypothesisWriter persists one JSON document per cluster into the output
// directory. Writes are keyed by cluster id, so concurrent workers never
// touch the same file.
type HypothesisWriter struct {
	dir string
}

// NewHypothesisWriter creates the output directory if absent. Failure here
// is fatal for the batch and must be reported before any processing begins.
func NewHypothesisWriter(dir string) (*HypothesisWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &HypothesisWriter{dir: dir}, nil
}

// Path returns the document path for a cluster id.
func (w *HypothesisWriter) Path(clusterID string) string {
	return filepath.Join(w.dir, fmt.Sprintf("cluster_%s_hypothesis.json", clusterID))
}

// Write persists the record for its cluster and returns the document path.
func (w *HypothesisWriter) Write(rec *types.HypothesisRecord) (string, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal hypothesis: %w", err)
	}

	path := w.Path(rec.Cluster)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write hypothesis: %w", err)
	}
	return path, nil
}

// ReadHypothesis loads a previously written document, used by triage.
func ReadHypothesis(path string) (*types.HypothesisRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hypothesis: %w", err)
	}
	var rec types.HypothesisRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse hypothesis %s: %w", path, err)
	}
	return &rec, nil
}

// ListHypotheses returns the paths of all hypothesis documents in dir.
func ListHypotheses(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "cluster_*_hypothesis.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list hypotheses: %w", err)
	}
	return paths, nil
}
