// Package store handles the pipeline's inputs and outputs: the marker-gene
// table, the per-cluster hypothesis documents, and the SQLite run index.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"subtyper/internal/types"
)

// LoadMarkers reads the marker-gene table: a JSON object mapping cluster id
// to the ordered list of top marker genes. Cluster order is made
// deterministic by sorting ids numerically when every id is an integer
// token, lexically otherwise.
func LoadMarkers(path string) ([]types.ClusterMarkerSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read marker-gene table: %w", err)
	}

	var byCluster map[string][]string
	if err := json.Unmarshal(data, &byCluster); err != nil {
		return nil, fmt.Errorf("failed to parse marker-gene table: %w", err)
	}

	ids := make([]string, 0, len(byCluster))
	for id := range byCluster {
		ids = append(ids, id)
	}
	sortClusterIDs(ids)

	sets := make([]types.ClusterMarkerSet, 0, len(ids))
	for _, id := range ids {
		sets = append(sets, types.ClusterMarkerSet{
			ClusterID: id,
			Genes:     byCluster[id],
		})
	}
	return sets, nil
}

// sortClusterIDs orders ids numerically when all parse as integers, so
// cluster "10" follows "9" rather than "1".
func sortClusterIDs(ids []string) {
	numeric := true
	nums := make(map[string]int, len(ids))
	for _, id := range ids {
		n, err := strconv.Atoi(id)
		if err != nil {
			numeric = false
			break
		}
		nums[id] = n
	}

	if numeric {
		sort.Slice(ids, func(i, j int) bool { return nums[ids[i]] < nums[ids[j]] })
		return
	}
	sort.Strings(ids)
}
