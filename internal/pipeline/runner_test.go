package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"subtyper/internal/scores"
	"subtyper/internal/store"
	"subtyper/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// go.opencensus.io (a transitive dependency of google.golang.org/genai)
		// starts a background worker in package init that can never be stopped.
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

// fakeClient returns canned responses keyed by cluster id. The prompt always
// embeds "cluster <id>:", which is what the lookup matches on.
type fakeClient struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     int
}

func (f *fakeClient) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for id, err := range f.errs {
		if strings.Contains(prompt, fmt.Sprintf("cluster %s:", id)) {
			return "", err
		}
	}
	for id, resp := range f.responses {
		if strings.Contains(prompt, fmt.Sprintf("cluster %s:", id)) {
			return resp, nil
		}
	}
	return "", errors.New("no canned response")
}

func validResponse(id, subtype string) string {
	return fmt.Sprintf(`{"Cluster": %q, "CandidateSubtype": %q, "TopGenes": ["ALB"], "SupportingEvidence": ["ALB marks hepatocytic differentiation."], "SuggestedExperiments": ["Confirm with IHC."]}`, id, subtype)
}

func testClusters(ids ...string) []types.ClusterMarkerSet {
	var sets []types.ClusterMarkerSet
	for _, id := range ids {
		sets = append(sets, types.ClusterMarkerSet{ClusterID: id, Genes: []string{"ALB"}})
	}
	return sets
}

func newTestRunner(t *testing.T, client *fakeClient) (*Runner, string) {
	t.Helper()
	dir := t.TempDir()
	w, err := store.NewHypothesisWriter(dir)
	require.NoError(t, err)
	return &Runner{
		Client: client,
		Mode:   types.ModeBasic,
		Scores: scores.Table{},
		Writer: w,
		Logger: zap.NewNop(),
	}, dir
}

func TestRunAllClustersSucceed(t *testing.T) {
	client := &fakeClient{responses: map[string]string{
		"0": validResponse("0", "fetal"),
		"1": validResponse("1", "embryonal"),
	}}
	r, dir := newTestRunner(t, client)

	res, err := r.Run(context.Background(), testClusters("0", "1"))
	require.NoError(t, err)
	require.Equal(t, 2, res.Total)
	require.Equal(t, 2, res.Succeeded)
	require.Equal(t, 0, res.Degraded)
	require.Equal(t, 0, res.Failed)
	require.NotEmpty(t, res.RunID)

	paths, err := store.ListHypotheses(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
}

func TestRunOneClusterFailsRestProceed(t *testing.T) {
	client := &fakeClient{
		responses: map[string]string{
			"0": validResponse("0", "fetal"),
			"2": validResponse("2", "mixed"),
		},
		errs: map[string]error{"1": errors.New("backend unavailable")},
	}
	r, dir := newTestRunner(t, client)

	res, err := r.Run(context.Background(), testClusters("0", "1", "2"))
	require.NoError(t, err)
	require.Equal(t, 2, res.Succeeded)
	require.Equal(t, 1, res.Failed)

	// No document for the failed cluster.
	_, statErr := os.Stat(filepath.Join(dir, "cluster_1_hypothesis.json"))
	require.True(t, os.IsNotExist(statErr))

	paths, err := store.ListHypotheses(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
}

func TestRunUnparseableResponseWritesDegraded(t *testing.T) {
	client := &fakeClient{responses: map[string]string{
		"0": "I believe this cluster is fetal, but I cannot produce JSON.",
	}}
	r, dir := newTestRunner(t, client)

	res, err := r.Run(context.Background(), testClusters("0"))
	require.NoError(t, err)
	require.Equal(t, 1, res.Degraded)
	require.Equal(t, 0, res.Failed)

	rec, err := store.ReadHypothesis(filepath.Join(dir, "cluster_0_hypothesis.json"))
	require.NoError(t, err)
	require.True(t, rec.Degraded())
	require.Equal(t, "0", rec.Cluster)
	require.Equal(t, []string{"ALB"}, rec.TopGenes)
	require.Equal(t, "I believe this cluster is fetal, but I cannot produce JSON.", rec.RawResponse)
}

func TestRunRecordsIndex(t *testing.T) {
	client := &fakeClient{responses: map[string]string{
		"0": validResponse("0", "fetal"),
		"1": "not json",
	}}
	r, _ := newTestRunner(t, client)

	ix, err := store.OpenRunIndex(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer ix.Close()
	r.Index = ix
	r.Provider = "openai"
	r.Model = "gpt-4"
	r.Mode = types.ModeScoredInterpreted

	res, err := r.Run(context.Background(), testClusters("0", "1"))
	require.NoError(t, err)

	runs, err := ix.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, res.RunID, runs[0].ID)
	require.Equal(t, "scored_interpreted", runs[0].Mode)
	require.Equal(t, 2, runs[0].Records)
	require.Equal(t, 1, runs[0].Degraded)
}

func TestRunBoundedWorkers(t *testing.T) {
	responses := make(map[string]string)
	var ids []string
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("%d", i)
		ids = append(ids, id)
		responses[id] = validResponse(id, "fetal")
	}
	client := &fakeClient{responses: responses}
	r, dir := newTestRunner(t, client)
	r.Workers = 4

	res, err := r.Run(context.Background(), testClusters(ids...))
	require.NoError(t, err)
	require.Equal(t, 8, res.Succeeded)
	require.Equal(t, 8, client.calls)

	paths, err := store.ListHypotheses(dir)
	require.NoError(t, err)
	require.Len(t, paths, 8)
}

func TestRunContextCancelled(t *testing.T) {
	client := &fakeClient{responses: map[string]string{"0": validResponse("0", "fetal")}}
	r, _ := newTestRunner(t, client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, testClusters("0"))
	require.Error(t, err)
}
