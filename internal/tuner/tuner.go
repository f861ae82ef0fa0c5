// Package tuner closes the feedback loop: quality flags from scored reports
// adjust the persisted relevance weights, always through the store's
// single-writer update path, always inside the declared clamp bounds.
package tuner

import (
	"fmt"
	"reflect"

	"github.com/henrypygall05-byte/planning-engine-api/internal/feedback"
	"github.com/henrypygall05-byte/planning-engine-api/internal/quality"
	"github.com/henrypygall05-byte/planning-engine-api/internal/weights"
)

// #region per-run-constants

// diversityNudges are the per-run doc_boost adjustments applied when a report
// shows low document diversity: surface the national framework and the local
// development plan a little more, the older core strategy a little less.
var diversityNudges = []struct {
	DocKey string
	Delta  float64
}{
	{"nppf_2024", +0.03},
	{"dap_2020", +0.02},
	{"csucp_2015", -0.02},
}

// irrelevanceWatchList is the per-run topic_penalty watch-list: topics that
// keep leaking into residential triage get their multiplier pushed down.
var irrelevanceWatchList = []string{
	"leisure", "tourism", "nightclub", "employment land", "retail hierarchy",
}

const (
	perRunPenaltyStep   = 0.03
	defaultTopicPenalty = 0.90
	defaultDocBoost     = 1.0
)

// #endregion per-run-constants

// #region per-run
// PerRun applies the per-report weight adjustments for one scored report,
// persists them, and appends one feedback record. Returns the weights as
// written.
func PerRun(store *weights.Store, log *feedback.Log, proposal, decision string, report quality.Report) (weights.Config, error) {
	cfg, err := store.Update(func(c *weights.Config) {
		applyPerRun(c, report.Flags)
	})
	if err != nil {
		return weights.Config{}, fmt.Errorf("per-run tune: %w", err)
	}

	rec := feedback.NewRecord(proposal, decision, report.QualityScore, report.Flags, cfg)
	if err := log.Append(rec); err != nil {
		return cfg, fmt.Errorf("per-run tune: %w", err)
	}
	return cfg, nil
}

// applyPerRun mutates the config per the quality flags. Clamping happens in
// the store; values can never leave their bounds however often this runs.
func applyPerRun(c *weights.Config, flags quality.Flags) {
	if flags.LowDocDiversity {
		for _, n := range diversityNudges {
			cur, ok := c.DocBoost[n.DocKey]
			if !ok {
				cur = defaultDocBoost
			}
			c.DocBoost[n.DocKey] = cur + n.Delta
		}
	}
	if flags.Irrelevance {
		for _, topic := range irrelevanceWatchList {
			cur, ok := c.TopicPenalty[topic]
			if !ok {
				cur = defaultTopicPenalty
			}
			c.TopicPenalty[topic] = cur - perRunPenaltyStep
		}
	}
}

// #endregion per-run

// #region batch-constants

// DefaultMinRecords is the minimum feedback history before batch tuning acts.
const DefaultMinRecords = 3

// batchWindow bounds how many trailing records the batch tuner inspects.
const batchWindow = 10

// batchDivisorTopics are the divisor-style penalties bumped on recurring
// irrelevance.
var batchDivisorTopics = []string{"leisure", "tourism", "nightlife"}

const (
	batchPenaltyStep    = 0.1
	batchDivisorStep    = 0.2
	defaultTopicDivisor = 2.0
)

// #endregion batch-constants

// #region batch
// BatchResult reports what the batch tuner did.
type BatchResult struct {
	Changed     bool
	Records     int
	Diversity   bool // recurring low-diversity warnings seen
	Irrelevance bool // recurring irrelevance warnings seen
	Weights     weights.Config
}

// Batch inspects the trailing feedback window and applies the coarser
// adjustments: widen the diversity target, harden the irrelevance penalties.
// The weights file is written only when something actually changes.
func Batch(store *weights.Store, log *feedback.Log, minRecords int) (BatchResult, error) {
	if minRecords <= 0 {
		minRecords = DefaultMinRecords
	}

	total, err := log.Count()
	if err != nil {
		return BatchResult{}, fmt.Errorf("batch tune: %w", err)
	}
	if total < minRecords {
		return BatchResult{Records: total}, nil
	}

	window, err := log.Tail(batchWindow)
	if err != nil {
		return BatchResult{}, fmt.Errorf("batch tune: %w", err)
	}

	var lowDiversity, irrelevance bool
	for _, rec := range window {
		if rec.Flags.LowDocDiversity {
			lowDiversity = true
		}
		if rec.Flags.Irrelevance {
			irrelevance = true
		}
	}

	res := BatchResult{
		Records:     total,
		Diversity:   lowDiversity,
		Irrelevance: irrelevance,
	}
	if !lowDiversity && !irrelevance {
		return res, nil
	}

	cur, err := store.Load()
	if err != nil {
		return res, fmt.Errorf("batch tune: %w", err)
	}
	next := cloneConfig(cur)
	applyBatch(&next, lowDiversity, irrelevance)
	next.Clamp()
	if configEqual(cur, next) {
		// Already at the caps; repeated triggers stay idempotent.
		res.Weights = cur
		return res, nil
	}

	written, err := store.Update(func(c *weights.Config) {
		applyBatch(c, lowDiversity, irrelevance)
	})
	if err != nil {
		return res, fmt.Errorf("batch tune: %w", err)
	}
	res.Changed = true
	res.Weights = written
	return res, nil
}

// applyBatch mutates the config for recurring warnings.
func applyBatch(c *weights.Config, lowDiversity, irrelevance bool) {
	if lowDiversity {
		c.DocDiversityTarget++
	}
	if irrelevance {
		c.IrrelevancePenaltyPerHit += batchPenaltyStep
		for _, topic := range batchDivisorTopics {
			cur, ok := c.TopicDivisors[topic]
			if !ok {
				cur = defaultTopicDivisor
			}
			c.TopicDivisors[topic] = cur + batchDivisorStep
		}
	}
}

// #endregion batch

// #region helpers
// cloneConfig deep-copies a config so trial mutation cannot alias the maps.
func cloneConfig(c weights.Config) weights.Config {
	out := c
	out.DocBoost = copyMap(c.DocBoost)
	out.TopicPenalty = copyMap(c.TopicPenalty)
	out.TopicDivisors = copyMap(c.TopicDivisors)
	out.C3Keywords = append([]string(nil), c.C3Keywords...)
	return out
}

// configEqual compares everything except the version counter.
func configEqual(a, b weights.Config) bool {
	a.Version = 0
	b.Version = 0
	return reflect.DeepEqual(a, b)
}

func copyMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// #endregion helpers
