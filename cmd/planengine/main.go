package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/henrypygall05-byte/planning-engine-api/internal/decision"
	"github.com/henrypygall05-byte/planning-engine-api/internal/evidence"
	"github.com/henrypygall05-byte/planning-engine-api/internal/feedback"
	"github.com/henrypygall05-byte/planning-engine-api/internal/pipeline"
	"github.com/henrypygall05-byte/planning-engine-api/internal/precedent"
	"github.com/henrypygall05-byte/planning-engine-api/internal/weights"
)

// #region main

func main() {
	proposal := flag.String("proposal", "", "proposal text to evaluate")
	fixturePath := flag.String("fixture", "", "path to a recorded retrieval fixture JSON")
	dbPath := flag.String("db", envOr("PLANENGINE_DB", ""), "path to precedents.db (enables precedent mode and audit log)")
	authority := flag.String("authority", "newcastle", "planning authority")
	docKeys := flag.String("doc-keys", "dap_2020,csucp_2015,nppf_2024", "comma-separated policy document keys")
	topK := flag.Int("top-k", 10, "max policy evidence items to retrieve")
	minScore := flag.Float64("min-score", 2.0, "min retrieval score")
	weightsPath := flag.String("weights", envOr("PLANENGINE_WEIGHTS", "config/relevance_weights.json"), "weights JSON path")
	feedbackPath := flag.String("feedback", envOr("PLANENGINE_FEEDBACK", "logs/feedback/feedback.jsonl"), "feedback log path")
	mode := flag.String("mode", "score_only", "decision mode: score_only | precedent")
	requirePrec := flag.Bool("require-precedent", false, "treat weak precedent retrieval as a hard stop")
	outPath := flag.String("out", "", "write payload JSON to this path instead of stdout")
	score := flag.Bool("score", false, "also score the payload and run the per-run tuner")
	flag.Parse()

	if *proposal == "" || *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: planengine --proposal \"...\" --fixture retrieval.json [--db precedents.db] [--mode precedent]")
		os.Exit(2)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	fixture, err := evidence.LoadFixture(*fixturePath)
	if err != nil {
		logger.Fatal("load fixture", zap.Error(err))
	}
	provider := evidence.NewFixtureProvider(fixture.Set)

	opts := pipeline.Options{Logger: logger}
	if *dbPath != "" {
		precStore, err := precedent.NewStore(*dbPath)
		if err != nil {
			logger.Fatal("open precedent db", zap.Error(err))
		}
		defer precStore.Close()
		opts.Precedents = precStore
		opts.AuditDB = precStore.DB()
	}

	p, err := pipeline.New(provider, weights.NewStore(*weightsPath), feedback.NewLog(*feedbackPath), opts)
	if err != nil {
		logger.Fatal("wire pipeline", zap.Error(err))
	}

	payload, err := p.Evaluate(context.Background(), pipeline.Request{
		ProposalText:     *proposal,
		Authority:        *authority,
		DocKeys:          splitKeys(*docKeys),
		TopK:             *topK,
		MinScore:         *minScore,
		Mode:             decision.Mode(*mode),
		RequirePrecedent: *requirePrec,
	})
	if err != nil {
		logger.Fatal("evaluate", zap.Error(err))
	}

	if *score && payload.OK {
		report, _, err := p.ScoreAndTune(payload)
		if err != nil {
			logger.Fatal("score and tune", zap.Error(err))
		}
		logger.Info("quality", zap.Int("score", report.QualityScore), zap.Strings("warnings", report.Warnings))
	}

	if *outPath != "" {
		if err := pipeline.WritePayload(*outPath, payload); err != nil {
			logger.Fatal("write payload", zap.Error(err))
		}
		logger.Info("payload written", zap.String("path", *outPath))
		return
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		logger.Fatal("marshal payload", zap.Error(err))
	}
	fmt.Println(string(data))
}

// #endregion main

// #region helpers

func splitKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
