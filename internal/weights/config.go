package weights

// #region bounds
// Clamp bounds for every tunable value. Tuner writes must stay inside these
// no matter how many times they run.
const (
	DocBoostMin = 0.80
	DocBoostMax = 1.50

	TopicPenaltyMin = 0.50
	TopicPenaltyMax = 1.00

	TopicDivisorMin = 1.00
	TopicDivisorMax = 4.00

	IrrelevancePenaltyMax = 1.5

	DocDiversityMax = 3
)

// #endregion bounds

// #region config
// Config is the shared relevance-weights resource. Loaded at the start of a
// rerank or tuner invocation, mutated only by the tuners, persisted as JSON.
//
// TopicPenalty holds fractional multipliers in [0.50, 1.00] adjusted by the
// per-run tuner; TopicDivisors holds divisor-style penalties in [1.00, 4.00]
// adjusted by the batch tuner. The reranker consumes both.
type Config struct {
	Version                  int                `json:"version"`
	DocBoost                 map[string]float64 `json:"doc_boost"`
	TopicPenalty             map[string]float64 `json:"topic_penalty"`
	TopicDivisors            map[string]float64 `json:"topic_penalties"`
	DocDiversityTarget       int                `json:"doc_diversity_target"`
	MaxEvidenceItems         int                `json:"max_evidence_items"`
	C3KeywordBoost           float64            `json:"c3_keyword_boost"`
	C3Keywords               []string           `json:"c3_keywords"`
	IrrelevancePenaltyPerHit float64            `json:"irrelevance_penalty_per_hit"`
	MinScoreFloor            float64            `json:"min_score_floor"`
}

// DefaultConfig returns the explicit starting weights.
func DefaultConfig() Config {
	return Config{
		Version:      0,
		DocBoost:     map[string]float64{},
		TopicPenalty: map[string]float64{},
		TopicDivisors: map[string]float64{
			"leisure": 2.0,
			"tourism": 2.0,
			"retail":  1.5,
		},
		DocDiversityTarget: 2,
		MaxEvidenceItems:   10,
		C3KeywordBoost:     2.0,
		C3Keywords: []string{
			"dwellinghouse", "residential", "householder", "amenity",
			"privacy", "extension", "use class c3",
		},
		IrrelevancePenaltyPerHit: 0.7,
		MinScoreFloor:            0.1,
	}
}

// #endregion config

// #region clamp
// Clamp forces every value back inside its declared bounds. Idempotent:
// clamping an already-clamped config changes nothing.
func (c *Config) Clamp() {
	for k, v := range c.DocBoost {
		c.DocBoost[k] = clampF(v, DocBoostMin, DocBoostMax)
	}
	for k, v := range c.TopicPenalty {
		c.TopicPenalty[k] = clampF(v, TopicPenaltyMin, TopicPenaltyMax)
	}
	for k, v := range c.TopicDivisors {
		c.TopicDivisors[k] = clampF(v, TopicDivisorMin, TopicDivisorMax)
	}
	if c.DocDiversityTarget > DocDiversityMax {
		c.DocDiversityTarget = DocDiversityMax
	}
	if c.DocDiversityTarget < 1 {
		c.DocDiversityTarget = 1
	}
	if c.MaxEvidenceItems < 1 {
		c.MaxEvidenceItems = 1
	}
	if c.IrrelevancePenaltyPerHit > IrrelevancePenaltyMax {
		c.IrrelevancePenaltyPerHit = IrrelevancePenaltyMax
	}
	if c.IrrelevancePenaltyPerHit < 0 {
		c.IrrelevancePenaltyPerHit = 0
	}
	if c.MinScoreFloor < 0 {
		c.MinScoreFloor = 0
	}
}

// ensureMaps allocates nil maps so tuners can write without nil checks.
func (c *Config) ensureMaps() {
	if c.DocBoost == nil {
		c.DocBoost = map[string]float64{}
	}
	if c.TopicPenalty == nil {
		c.TopicPenalty = map[string]float64{}
	}
	if c.TopicDivisors == nil {
		c.TopicDivisors = map[string]float64{}
	}
}

func clampF(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// #endregion clamp
