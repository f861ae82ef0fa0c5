// Package rerank rescales evidence relevance under the persisted weights and
// enforces source-document diversity in the selected set.
package rerank

import (
	"sort"
	"strings"

	"github.com/henrypygall05-byte/planning-engine-api/internal/evidence"
	"github.com/henrypygall05-byte/planning-engine-api/internal/weights"
)

// #region result
// Result is the reranked evidence with citations rebuilt 1:1, in the same
// order as the evidence list.
type Result struct {
	Citations []evidence.Citation
	Evidence  []evidence.Item
	Scores    []float64 // rerank score per evidence item
}

// #endregion result

// #region score
// ScoreItem computes the reranked relevance of one evidence item:
//
//  1. start from the raw retrieval score
//  2. multiply by the per-document boost
//  3. boost linearly toward c3_keyword_boost as keyword hits go 0→3
//  4. apply topic penalties, both multiplicative and additive
//  5. clamp to the floor
//
// Pure function of (item, weights).
func ScoreItem(it evidence.Item, w weights.Config) float64 {
	text := strings.ToLower(it.Body())
	score := it.Score

	if boost, ok := w.DocBoost[it.DocKey]; ok {
		score *= boost
	}

	hits := 0
	for _, kw := range w.C3Keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			hits++
		}
	}
	if hits > 0 {
		frac := float64(hits) / 3.0
		if frac > 1.0 {
			frac = 1.0
		}
		score *= 1.0 + (w.C3KeywordBoost-1.0)*frac
	}

	penaltyHits := 0
	for topic, div := range w.TopicDivisors {
		if topic != "" && div > 0 && strings.Contains(text, strings.ToLower(topic)) {
			penaltyHits++
			score *= 1.0 / div
		}
	}
	for topic, mult := range w.TopicPenalty {
		if topic != "" && strings.Contains(text, strings.ToLower(topic)) {
			penaltyHits++
			score *= mult
		}
	}
	if penaltyHits > 0 {
		score -= float64(penaltyHits) * w.IrrelevancePenaltyPerHit
	}

	if score < w.MinScoreFloor {
		score = w.MinScoreFloor
	}
	return score
}

// #endregion score

// #region rerank
// Rerank scores every item, stable-sorts descending (ties keep retrieval
// order), then selects in two passes: first the best item per unseen doc_key
// until doc_diversity_target distinct documents are covered, then the rest in
// score order up to max_evidence_items. Citations are rebuilt to match the
// final evidence order exactly, reusing an existing citation for the same
// (doc_key, paragraph_ref) where one exists.
func Rerank(citations []evidence.Citation, items []evidence.Item, w weights.Config) Result {
	type scored struct {
		item  evidence.Item
		score float64
	}
	ranked := make([]scored, len(items))
	for i, it := range items {
		ranked[i] = scored{item: it, score: ScoreItem(it, w)}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].score > ranked[b].score
	})

	target := w.DocDiversityTarget
	maxItems := w.MaxEvidenceItems
	if maxItems <= 0 {
		maxItems = len(ranked)
	}

	picked := make([]bool, len(ranked))
	order := make([]int, 0, maxItems)

	// Diversity pass: highest-scoring item per unseen document.
	seenDocs := map[string]bool{}
	for i, r := range ranked {
		if len(seenDocs) >= target || len(order) >= maxItems {
			break
		}
		dk := r.item.DocKey
		if dk == "" || seenDocs[dk] {
			continue
		}
		seenDocs[dk] = true
		picked[i] = true
		order = append(order, i)
	}

	// Fill pass: remaining slots by score order.
	for i := range ranked {
		if len(order) >= maxItems {
			break
		}
		if picked[i] {
			continue
		}
		picked[i] = true
		order = append(order, i)
	}

	citMap := make(map[[2]string]evidence.Citation, len(citations))
	for _, c := range citations {
		citMap[[2]string{c.DocKey, c.ParagraphRef}] = c
	}

	res := Result{
		Citations: make([]evidence.Citation, 0, len(order)),
		Evidence:  make([]evidence.Item, 0, len(order)),
		Scores:    make([]float64, 0, len(order)),
	}
	for _, i := range order {
		it := ranked[i].item
		res.Evidence = append(res.Evidence, it)
		res.Scores = append(res.Scores, ranked[i].score)

		if c, ok := citMap[[2]string{it.DocKey, it.ParagraphRef}]; ok {
			res.Citations = append(res.Citations, c)
		} else {
			c := evidence.CitationFor(it)
			c.Score = ranked[i].score
			res.Citations = append(res.Citations, c)
		}
	}
	return res
}

// #endregion rerank
