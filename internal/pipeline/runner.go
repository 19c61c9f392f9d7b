// Package pipeline drives the batch annotation loop: one completion per
// cluster, strict resolution of the response, one document per cluster.
package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"subtyper/internal/articulation"
	"subtyper/internal/perception"
	"subtyper/internal/prompt"
	"subtyper/internal/scores"
	"subtyper/internal/store"
	"subtyper/internal/types"
)

// Runner executes one batch run over a set of clusters. Cluster failures are
// isolated: a backend error for one cluster is logged and skipped, an
// unparseable response still produces a degraded document.
type Runner struct {
	Client perception.LLMClient
	Mode   types.Mode
	Scores scores.Table
	Writer *store.HypothesisWriter
	Index  *store.RunIndex // nil disables run indexing
	Logger *zap.Logger

	// Workers bounds concurrent completions. Zero or negative means
	// sequential, which keeps output timing reproducible.
	Workers int

	// Provider and Model are recorded as run metadata only.
	Provider string
	Model    string
}

// Result summarizes one batch run.
type Result struct {
	RunID     string
	Total     int
	Succeeded int
	Degraded  int
	Failed    int
}

// Run processes every cluster and returns the run summary. It returns an
// error only for run-level failures (context cancellation, index errors);
// per-cluster problems are reflected in the counts.
func (r *Runner) Run(ctx context.Context, clusters []types.ClusterMarkerSet) (*Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	res := &Result{
		RunID: uuid.NewString(),
		Total: len(clusters),
	}

	logger.Info("starting batch run",
		zap.String("run_id", res.RunID),
		zap.String("mode", string(r.Mode)),
		zap.Int("clusters", len(clusters)))

	if r.Index != nil {
		if err := r.Index.BeginRun(res.RunID, string(r.Mode), r.Provider, r.Model); err != nil {
			return nil, err
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for _, cluster := range clusters {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			rec, err := r.processCluster(gctx, logger, res.RunID, cluster)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				res.Failed++
			case rec.Degraded():
				res.Degraded++
			default:
				res.Succeeded++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, err
	}

	logger.Info("batch run complete",
		zap.String("run_id", res.RunID),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("degraded", res.Degraded),
		zap.Int("failed", res.Failed))
	return res, nil
}

// processCluster runs one cluster end to end. A non-nil error means no
// document was produced; a degraded record is not an error.
func (r *Runner) processCluster(ctx context.Context, logger *zap.Logger, runID string, cluster types.ClusterMarkerSet) (*types.HypothesisRecord, error) {
	clog := logger.With(zap.String("cluster", cluster.ClusterID))

	rs := r.Scores.Lookup(cluster.ClusterID)
	p := prompt.Build(r.Mode, cluster.ClusterID, cluster.Genes, rs)

	raw, err := r.Client.Complete(ctx, p)
	if err != nil {
		clog.Warn("completion failed, skipping cluster", zap.Error(err))
		return nil, err
	}

	rec := articulation.Resolve(raw, cluster.ClusterID, cluster.Genes)
	if rec.Degraded() {
		clog.Warn("response did not resolve, writing degraded record")
	}

	path, err := r.Writer.Write(rec)
	if err != nil {
		clog.Error("failed to write hypothesis", zap.Error(err))
		return nil, err
	}
	clog.Info("wrote hypothesis",
		zap.String("subtype", rec.CandidateSubtype),
		zap.Bool("degraded", rec.Degraded()),
		zap.String("path", path))

	if r.Index != nil {
		if err := r.Index.RecordHypothesis(runID, rec, path); err != nil {
			return nil, err
		}
	}
	return rec, nil
}
