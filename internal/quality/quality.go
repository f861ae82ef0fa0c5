// Package quality scores a rendered recommendation's evidential quality:
// document diversity of the citations, domain-term relevance of the top
// evidence, and off-topic contamination. The score is a 0-100 heuristic, not
// a calibrated probability.
package quality

import (
	"sort"
	"strings"

	"github.com/henrypygall05-byte/planning-engine-api/internal/evidence"
)

// #region vocabulary

// relevanceTerms is the fixed domain vocabulary for C3 residential triage.
var relevanceTerms = []string{
	"c3", "dwellinghouse", "dwelling", "residential", "housing", "amenity",
	"privacy", "outlook", "noise", "refuse", "cycle", "parking", "design",
	"character", "heritage", "conservation", "materials", "windows", "doors",
	"floor", "internal", "alterations", "change of use", "use class",
}

// offTopicTerms flag evidence that plainly belongs to another policy domain.
var offTopicTerms = []string{
	"leisure", "tourism", "nightclub", "cinema", "museum", "arena",
}

// topEvidenceWindow limits relevance scanning to the leading evidence items.
const topEvidenceWindow = 10

// #endregion vocabulary

// #region report
// Flags is the typed warning structure the tuners consume directly, replacing
// free-text phrase matching across the scorer/tuner boundary.
type Flags struct {
	LowDocDiversity bool `json:"low_doc_diversity"`
	LowRelevance    bool `json:"low_relevance"`
	Irrelevance     bool `json:"irrelevance"`
}

// Report is the derived, read-only quality assessment of one payload.
type Report struct {
	QualityScore    int      `json:"quality_score"`
	DocDiversity    int      `json:"doc_diversity"`
	DocKeys         []string `json:"doc_keys"`
	RelevanceHits   []int    `json:"relevance_hits"`
	IrrelevanceHits []int    `json:"irrelevance_hits"`
	Flags           Flags    `json:"flags"`
	Warnings        []string `json:"warnings"`
}

// #endregion report

// #region scorer
// Score assesses the citations and evidence behind a recommendation.
// Pure function.
func Score(citations []evidence.Citation, items []evidence.Item) Report {
	docKeys := map[string]bool{}
	for _, c := range citations {
		if c.DocKey != "" {
			docKeys[c.DocKey] = true
		}
	}
	keys := make([]string, 0, len(docKeys))
	for k := range docKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	docDiversity := len(keys)

	window := items
	if len(window) > topEvidenceWindow {
		window = window[:topEvidenceWindow]
	}

	relHits := make([]int, len(window))
	badHits := make([]int, len(window))
	relSum, badSum := 0, 0
	for i, it := range window {
		blob := strings.ToLower(it.Snippet + " " + it.Text)
		relHits[i] = termHits(blob, relevanceTerms)
		badHits[i] = termHits(blob, offTopicTerms)
		relSum += relHits[i]
		badSum += badHits[i]
	}

	score := 50
	score += minInt(30, relSum*2)
	score += minInt(10, docDiversity*3)
	score -= minInt(30, badSum*5)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	flags := Flags{
		LowDocDiversity: docDiversity < 2,
		LowRelevance:    relSum < 5,
		Irrelevance:     badSum >= 1,
	}

	var warnings []string
	if flags.LowDocDiversity {
		warnings = append(warnings, "low document diversity in top citations")
	}
	if flags.LowRelevance {
		warnings = append(warnings, "low relevance in top evidence; consider tuning retrieval")
	}
	if flags.Irrelevance {
		warnings = append(warnings, "irrelevance signals detected in evidence")
	}

	return Report{
		QualityScore:    score,
		DocDiversity:    docDiversity,
		DocKeys:         keys,
		RelevanceHits:   relHits,
		IrrelevanceHits: badHits,
		Flags:           flags,
		Warnings:        warnings,
	}
}

// #endregion scorer

// #region helpers
func termHits(text string, terms []string) int {
	hits := 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			hits++
		}
	}
	return hits
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// #endregion helpers
