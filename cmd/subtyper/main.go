package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"subtyper/internal/articulation"
	"subtyper/internal/config"
	"subtyper/internal/perception"
	"subtyper/internal/pipeline"
	"subtyper/internal/scores"
	"subtyper/internal/store"
	"subtyper/internal/types"
)

var (
	// Global flags
	verbose    bool
	configPath string
	timeout    time.Duration

	// Run flags
	modeFlag    string
	markersFlag string
	scoresFlag  string
	outputFlag  string
	workersFlag int
	retriesFlag int

	// Triage flags
	applyFlag bool

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "subtyper",
	Short: "subtyper - hepatoblastoma cluster subtype annotation",
	Long: `subtyper annotates single-cell tumor clusters with hepatoblastoma
subtype hypotheses.

Each cluster's top marker genes (optionally with normalized risk scores) are
assembled into a prompt, sent to a completion backend, and the response is
resolved into one JSON hypothesis document per cluster. Unparseable responses
still produce a degraded document carrying the raw response, so no cluster is
ever silently dropped.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// runCmd executes one batch annotation run
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Annotate every cluster in the marker-gene table",
	Long: `Runs the batch annotation pipeline over all clusters.

Modes:
  - basic:               prompt with marker genes only
  - scored_interpreted:  embed risk scores pre-labeled as "0.720 (high)"
  - scored_raw:          embed bare scores and let the backend interpret them

Scored modes read the per-cluster risk score table; clusters missing from the
table are annotated with zero scores rather than skipped.`,
	RunE: runBatch,
}

// triageCmd retries strict resolution on degraded documents
var triageCmd = &cobra.Command{
	Use:   "triage [output-dir]",
	Short: "Re-examine degraded documents for recoverable responses",
	Long: `Scans hypothesis documents in the output directory and, for each
degraded one, attempts to recover a valid record from JSON objects embedded in
the raw response (markdown fences, surrounding prose).

By default triage only reports what it would recover; pass --apply to rewrite
the recovered documents in place.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTriage,
}

// runsCmd lists past batch runs from the run index
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List past batch runs",
	RunE:  listRuns,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "subtyper.yaml", "Config file path")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Minute, "Operation timeout")

	runCmd.Flags().StringVarP(&modeFlag, "mode", "m", "", "Pipeline mode (basic, scored_interpreted, scored_raw)")
	runCmd.Flags().StringVar(&markersFlag, "markers", "", "Marker-gene table path (JSON)")
	runCmd.Flags().StringVar(&scoresFlag, "scores", "", "Risk score table path (CSV)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output directory for hypothesis documents")
	runCmd.Flags().IntVar(&workersFlag, "workers", 0, "Concurrent completions (default from config)")
	runCmd.Flags().IntVar(&retriesFlag, "retries", -1, "Retry attempts on transient backend errors; 0 disables retry")

	triageCmd.Flags().BoolVar(&applyFlag, "apply", false, "Rewrite recovered documents in place")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(triageCmd)
	rootCmd.AddCommand(runsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if modeFlag != "" {
		cfg.Pipeline.Mode = modeFlag
	}
	if markersFlag != "" {
		cfg.Pipeline.MarkersPath = markersFlag
	}
	if scoresFlag != "" {
		cfg.Pipeline.ScoresPath = scoresFlag
	}
	if outputFlag != "" {
		cfg.Pipeline.OutputDir = outputFlag
	}
	if workersFlag > 0 {
		cfg.Pipeline.Workers = workersFlag
	}
	if retriesFlag >= 0 {
		cfg.LLM.MaxRetries = retriesFlag
	}
	return cfg, nil
}

// runBatch executes one batch annotation run end to end.
func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	mode, err := types.ParseMode(cfg.Pipeline.Mode)
	if err != nil {
		return err
	}

	client, err := perception.NewClientFromConfig(cfg.ProviderConfig())
	if err != nil {
		return err
	}

	clusters, err := store.LoadMarkers(cfg.Pipeline.MarkersPath)
	if err != nil {
		return err
	}
	logger.Info("Loaded marker-gene table",
		zap.String("path", cfg.Pipeline.MarkersPath),
		zap.Int("clusters", len(clusters)))

	scoreTable := scores.Table{}
	if mode.Scored() {
		scoreTable, err = scores.LoadCSV(cfg.Pipeline.ScoresPath)
		if err != nil {
			return err
		}
		logger.Info("Loaded risk score table",
			zap.String("path", cfg.Pipeline.ScoresPath),
			zap.Int("clusters", len(scoreTable)))
	}

	writer, err := store.NewHypothesisWriter(cfg.Pipeline.OutputDir)
	if err != nil {
		return err
	}

	var index *store.RunIndex
	if cfg.Pipeline.IndexPath != "" {
		index, err = store.OpenRunIndex(cfg.Pipeline.IndexPath)
		if err != nil {
			return err
		}
		defer index.Close()
	}

	runner := &pipeline.Runner{
		Client:   client,
		Mode:     mode,
		Scores:   scoreTable,
		Writer:   writer,
		Index:    index,
		Logger:   logger,
		Workers:  cfg.Pipeline.Workers,
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
	}

	res, err := runner.Run(ctx, clusters)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s: %d clusters, %d succeeded, %d degraded, %d failed\n",
		res.RunID, res.Total, res.Succeeded, res.Degraded, res.Failed)
	fmt.Printf("Hypotheses written to %s\n", cfg.Pipeline.OutputDir)
	return nil
}

// runTriage re-examines degraded documents for recoverable responses.
func runTriage(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dir := cfg.Pipeline.OutputDir
	if len(args) == 1 {
		dir = args[0]
	}

	paths, err := store.ListHypotheses(dir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Printf("No hypothesis documents in %s\n", dir)
		return nil
	}

	writer, err := store.NewHypothesisWriter(dir)
	if err != nil {
		return err
	}

	var degraded, recovered int
	for _, path := range paths {
		rec, err := store.ReadHypothesis(path)
		if err != nil {
			logger.Warn("Skipping unreadable document", zap.String("path", path), zap.Error(err))
			continue
		}
		if !rec.Degraded() {
			continue
		}
		degraded++

		fixed, ok := articulation.Salvage(rec.RawResponse, rec.Cluster, rec.TopGenes)
		if !ok {
			fmt.Printf("cluster %s: unrecoverable\n", rec.Cluster)
			continue
		}
		recovered++

		if applyFlag {
			if _, err := writer.Write(fixed); err != nil {
				return err
			}
			fmt.Printf("cluster %s: recovered as %s (rewritten)\n", fixed.Cluster, fixed.CandidateSubtype)
		} else {
			fmt.Printf("cluster %s: recoverable as %s\n", fixed.Cluster, fixed.CandidateSubtype)
		}
	}

	fmt.Printf("%d documents, %d degraded, %d recoverable\n", len(paths), degraded, recovered)
	if recovered > 0 && !applyFlag {
		fmt.Println("Pass --apply to rewrite recovered documents.")
	}
	return nil
}

// listRuns prints past batch runs from the run index.
func listRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	index, err := store.OpenRunIndex(cfg.Pipeline.IndexPath)
	if err != nil {
		return err
	}
	defer index.Close()

	runs, err := index.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	for _, r := range runs {
		fmt.Printf("%s  %s  mode=%s provider=%s model=%s  records=%d degraded=%d\n",
			r.StartedAt.Format(time.RFC3339), r.ID, r.Mode, r.Provider, r.Model, r.Records, r.Degraded)
	}
	return nil
}
