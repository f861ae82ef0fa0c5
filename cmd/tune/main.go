package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/henrypygall05-byte/planning-engine-api/internal/feedback"
	"github.com/henrypygall05-byte/planning-engine-api/internal/pipeline"
	"github.com/henrypygall05-byte/planning-engine-api/internal/quality"
	"github.com/henrypygall05-byte/planning-engine-api/internal/tuner"
	"github.com/henrypygall05-byte/planning-engine-api/internal/weights"
)

// #region main

func main() {
	weightsPath := flag.String("weights", envOr("PLANENGINE_WEIGHTS", "config/relevance_weights.json"), "weights JSON path")
	feedbackPath := flag.String("feedback", envOr("PLANENGINE_FEEDBACK", "logs/feedback/feedback.jsonl"), "feedback log path")
	payloadPath := flag.String("payload", "", "per-run mode: payload JSON to score and tune from")
	batch := flag.Bool("batch", false, "batch mode: tune from the trailing feedback window")
	minRecords := flag.Int("min-records", tuner.DefaultMinRecords, "batch mode: minimum feedback records before acting")
	flag.Parse()

	if (*payloadPath == "" && !*batch) || (*payloadPath != "" && *batch) {
		fmt.Fprintln(os.Stderr, "usage: tune --payload payload.json")
		fmt.Fprintln(os.Stderr, "       tune --batch [--min-records N]")
		os.Exit(2)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	store := weights.NewStore(*weightsPath)
	log := feedback.NewLog(*feedbackPath)

	if *batch {
		res, err := tuner.Batch(store, log, *minRecords)
		if err != nil {
			logger.Fatal("batch tune", zap.Error(err))
		}
		logger.Info("batch tune finished",
			zap.Bool("changed", res.Changed),
			zap.Int("records", res.Records),
			zap.Bool("low_diversity", res.Diversity),
			zap.Bool("irrelevance", res.Irrelevance),
		)
		return
	}

	payload, err := pipeline.LoadPayload(*payloadPath)
	if err != nil {
		logger.Fatal("load payload", zap.Error(err))
	}
	report := quality.Score(payload.Policy.Citations, payload.Policy.Evidence)

	dec := ""
	if payload.Report != nil {
		dec = string(payload.Report.Decision)
	}
	cfg, err := tuner.PerRun(store, log, payload.Input.ProposalText, dec, report)
	if err != nil {
		logger.Fatal("per-run tune", zap.Error(err))
	}
	logger.Info("per-run tune finished",
		zap.Int("quality_score", report.QualityScore),
		zap.Int("weights_version", cfg.Version),
		zap.Bool("low_doc_diversity", report.Flags.LowDocDiversity),
		zap.Bool("irrelevance", report.Flags.Irrelevance),
	)
}

// #endregion main

// #region helpers

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
