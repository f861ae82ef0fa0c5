package tuner

import (
	"path/filepath"
	"testing"

	"github.com/henrypygall05-byte/planning-engine-api/internal/feedback"
	"github.com/henrypygall05-byte/planning-engine-api/internal/quality"
	"github.com/henrypygall05-byte/planning-engine-api/internal/weights"
)

func newFixtures(t *testing.T) (*weights.Store, *feedback.Log) {
	t.Helper()
	dir := t.TempDir()
	return weights.NewStore(filepath.Join(dir, "weights.json")),
		feedback.NewLog(filepath.Join(dir, "feedback.jsonl"))
}

func flaggedReport(flags quality.Flags) quality.Report {
	return quality.Report{QualityScore: 40, Flags: flags}
}

func near(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}

func TestPerRunNudgesDocBoostsOnLowDiversity(t *testing.T) {
	store, log := newFixtures(t)

	cfg, err := PerRun(store, log, "rear extension", "approve", flaggedReport(quality.Flags{LowDocDiversity: true}))
	if err != nil {
		t.Fatalf("PerRun: %v", err)
	}

	if got := cfg.DocBoost["nppf_2024"]; !near(got, 1.03) {
		t.Fatalf("expected nppf_2024 boost 1.03, got %f", got)
	}
	if got := cfg.DocBoost["dap_2020"]; !near(got, 1.02) {
		t.Fatalf("expected dap_2020 boost 1.02, got %f", got)
	}
	if got := cfg.DocBoost["csucp_2015"]; !near(got, 0.98) {
		t.Fatalf("expected csucp_2015 boost 0.98, got %f", got)
	}

	recs, err := log.Tail(0)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected one feedback record, got %d", len(recs))
	}
	if !recs[0].Flags.LowDocDiversity {
		t.Fatal("feedback record must carry the flags")
	}
}

func TestPerRunPenalizesWatchListOnIrrelevance(t *testing.T) {
	store, log := newFixtures(t)

	cfg, err := PerRun(store, log, "rear extension", "refuse", flaggedReport(quality.Flags{Irrelevance: true}))
	if err != nil {
		t.Fatalf("PerRun: %v", err)
	}

	if got := cfg.TopicPenalty["leisure"]; !near(got, 0.87) {
		t.Fatalf("expected leisure penalty 0.87, got %f", got)
	}
	if got := cfg.TopicPenalty["employment land"]; !near(got, 0.87) {
		t.Fatalf("expected employment land penalty 0.87, got %f", got)
	}
}

func TestPerRunRepeatedRunsStayInsideBounds(t *testing.T) {
	store, log := newFixtures(t)
	flags := quality.Flags{LowDocDiversity: true, Irrelevance: true}

	var cfg weights.Config
	var err error
	for i := 0; i < 50; i++ {
		cfg, err = PerRun(store, log, "rear extension", "approve", flaggedReport(flags))
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	if got := cfg.DocBoost["nppf_2024"]; got != weights.DocBoostMax {
		t.Fatalf("expected nppf_2024 pinned at %f, got %f", weights.DocBoostMax, got)
	}
	if got := cfg.DocBoost["csucp_2015"]; got != weights.DocBoostMin {
		t.Fatalf("expected csucp_2015 pinned at %f, got %f", weights.DocBoostMin, got)
	}
	for _, topic := range irrelevanceWatchList {
		if got := cfg.TopicPenalty[topic]; got != weights.TopicPenaltyMin {
			t.Fatalf("expected %s pinned at %f, got %f", topic, weights.TopicPenaltyMin, got)
		}
	}
}

func TestBatchNoOpBelowMinRecords(t *testing.T) {
	store, log := newFixtures(t)

	rec := feedback.NewRecord("p", "approve", 40, quality.Flags{Irrelevance: true}, weights.DefaultConfig())
	if err := log.Append(rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	res, err := Batch(store, log, 3)
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if res.Changed {
		t.Fatal("batch must not act below the record minimum")
	}
	if res.Records != 1 {
		t.Fatalf("expected 1 record counted, got %d", res.Records)
	}
}

func TestBatchAppliesCoarseAdjustments(t *testing.T) {
	store, log := newFixtures(t)

	flags := quality.Flags{LowDocDiversity: true, Irrelevance: true}
	for i := 0; i < 3; i++ {
		if err := log.Append(feedback.NewRecord("p", "approve", 40, flags, weights.DefaultConfig())); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	res, err := Batch(store, log, 3)
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if !res.Changed {
		t.Fatal("expected a weights write")
	}

	def := weights.DefaultConfig()
	if res.Weights.DocDiversityTarget != def.DocDiversityTarget+1 {
		t.Fatalf("expected diversity target %d, got %d", def.DocDiversityTarget+1, res.Weights.DocDiversityTarget)
	}
	if got := res.Weights.IrrelevancePenaltyPerHit; !near(got, 0.8) {
		t.Fatalf("expected penalty 0.8, got %f", got)
	}
	if got := res.Weights.TopicDivisors["leisure"]; !near(got, 2.2) {
		t.Fatalf("expected leisure divisor 2.2, got %f", got)
	}
	if got := res.Weights.TopicDivisors["nightlife"]; !near(got, 2.2) {
		t.Fatalf("expected nightlife divisor 2.2 from the 2.0 default, got %f", got)
	}
}

func TestBatchIdempotentAtCaps(t *testing.T) {
	store, log := newFixtures(t)

	flags := quality.Flags{LowDocDiversity: true}
	for i := 0; i < 3; i++ {
		if err := log.Append(feedback.NewRecord("p", "approve", 40, flags, weights.DefaultConfig())); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	// Drive the diversity target to its cap.
	var last BatchResult
	for i := 0; i < 5; i++ {
		res, err := Batch(store, log, 3)
		if err != nil {
			t.Fatalf("Batch run %d: %v", i, err)
		}
		last = res
	}
	if last.Changed {
		t.Fatal("expected no write once the target is capped")
	}
	if last.Weights.DocDiversityTarget != weights.DocDiversityMax {
		t.Fatalf("expected target pinned at %d, got %d", weights.DocDiversityMax, last.Weights.DocDiversityTarget)
	}

	cfg, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	version := cfg.Version
	if _, err := Batch(store, log, 3); err != nil {
		t.Fatalf("Batch: %v", err)
	}
	cfg, err = store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Version != version {
		t.Fatal("no-op batch must not bump the weights version")
	}
}

func TestBatchCleanWindowLeavesWeightsAlone(t *testing.T) {
	store, log := newFixtures(t)

	for i := 0; i < 4; i++ {
		if err := log.Append(feedback.NewRecord("p", "approve", 85, quality.Flags{}, weights.DefaultConfig())); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	res, err := Batch(store, log, 3)
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if res.Changed || res.Diversity || res.Irrelevance {
		t.Fatalf("clean window must be a no-op, got %+v", res)
	}
}
