// Package decision turns gated, reranked evidence into a bounded
// recommendation through a deterministic state machine. The engine is pure
// and total: well-formed inputs never error, and empty proposal text degrades
// to the lowest-confidence branch.
package decision

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/henrypygall05-byte/planning-engine-api/internal/evidence"
)

// #region phrase-sets

// harmPhrases in the proposal text mark elevated amenity risk.
var harmPhrases = []string{
	"loss of light", "overlooking", "overbearing", "unacceptable",
}

// refusalTiltTerms in a refused precedent's reasons tilt toward refusal.
var refusalTiltTerms = []string{
	"loss of daylight", "overbearing", "privacy", "overlooking",
}

// conditionTiltTerms in an approved precedent's conditions tilt toward
// a conditioned approval.
var conditionTiltTerms = []string{
	"materials", "obscure", "glazing", "plans",
}

const amenityRefusalReason = "The proposal would result in unacceptable harm to the residential amenity " +
	"of neighbouring occupiers by reason of loss of light / overbearing impact / loss of privacy, " +
	"contrary to the relevant Development Plan policies."

// insufficientConfidenceCap keeps an insufficient_evidence outcome from ever
// implying certainty.
const insufficientConfidenceCap = 0.25

// #endregion phrase-sets

// #region engine
// Engine evaluates proposals against one canonical threshold set.
type Engine struct {
	thresholds Thresholds
}

// NewEngine creates an engine with the given thresholds.
func NewEngine(t Thresholds) *Engine {
	return &Engine{thresholds: t}
}

// Evaluate runs the transition rules in order; the first matching rule wins.
func (e *Engine) Evaluate(in Input) Recommendation {
	issues := TagIssues(in.ProposalText)

	policyOK, policyAvg, policyReason := e.policyStrength(in.Gate, in.Evidence)
	caseOK, caseAvg, caseReason := e.caseStrength(in.Case)

	signals := Signals{
		PolicyAvgScore: policyAvg,
		PolicyCount:    len(in.Evidence),
		CaseAvgScore:   caseAvg,
		CaseReason:     caseReason,
	}

	// Rule 1: weak policy evidence is a hard stop in every mode.
	if !policyOK {
		return insufficient(
			fmt.Sprintf("policy_retrieval_weak:%s", policyReason),
			issues, signals,
			"Retrieval quality appears weak for drawing a conclusion; expand documents or improve retrieval filtering.",
		)
	}

	if in.Mode == ModeScoreOnly {
		return e.scoreOnly(in, issues, signals)
	}

	// Rule 2: a required but weak precedent retrieval is also a hard stop.
	if in.RequirePrecedent && !caseOK {
		return insufficient(
			fmt.Sprintf("precedent_retrieval_weak:%s", caseReason),
			issues, signals,
			"Precedent retrieval too weak to ground the recommendation.",
		)
	}

	// Rule 3: harm-flag scan of the proposal text.
	harmFlags := containsAny(strings.ToLower(in.ProposalText), harmPhrases)

	// Rule 4: precedent tilt from the top retrieved cases.
	tiltRefuse := false
	tiltConditions := true
	if caseOK && in.Case != nil {
		results := in.Case.Results
		if len(results) > e.thresholds.CaseTopN {
			results = results[:e.thresholds.CaseTopN]
		}
		for _, c := range results {
			switch ClassifyOutcome(c.Decision) {
			case OutcomeRefused:
				if containsAny(strings.ToLower(c.ReasonsText), refusalTiltTerms) {
					tiltRefuse = true
				}
			case OutcomeApproved:
				if containsAny(strings.ToLower(c.ConditionsText), conditionTiltTerms) {
					tiltConditions = true
				}
			}
		}
	}

	// Rule 5: refused precedents plus harm language in the proposal → refuse.
	if tiltRefuse && harmFlags {
		return Recommendation{
			Decision:            Refuse,
			Confidence:          scoreConfidence(policyAvg),
			Issues:              issues,
			DraftConditions:     []string{},
			DraftRefusalReasons: []string{amenityRefusalReason},
			Signals:             signals,
		}
	}

	// Rule 6: draft conditions deterministically from the proposal text.
	var conds []string
	if tiltConditions {
		conds = draftConditions(in.ProposalText)
	}
	dec := Approve
	if len(conds) > 0 {
		dec = ApproveWithConditions
	}
	return Recommendation{
		Decision:            dec,
		Confidence:          scoreConfidence(policyAvg),
		Issues:              issues,
		DraftConditions:     conds,
		DraftRefusalReasons: []string{},
		Signals:             signals,
	}
}

// #endregion engine

// #region score-only
// scoreOnly derives the decision purely from evidence score aggregates.
func (e *Engine) scoreOnly(in Input, issues []string, signals Signals) Recommendation {
	var sum, top float64
	for _, it := range in.Evidence {
		sum += it.Score
		if it.Score > top {
			top = it.Score
		}
	}
	avg := 0.0
	if len(in.Evidence) > 0 {
		avg = sum / float64(len(in.Evidence))
	}

	switch {
	case avg >= e.thresholds.StrongAvg && top >= e.thresholds.StrongTop:
		conds := draftConditions(in.ProposalText)
		rec := Recommendation{
			Decision:   ApproveWithConditions,
			Confidence: 0.70,
			Issues:     issues,
			ReasonsFor: []string{
				"Policy evidence indicates the proposal can be acceptable subject to detailed design and amenity safeguards.",
			},
			DraftConditions:     conds,
			DraftRefusalReasons: []string{},
			Signals:             signals,
		}
		return rec
	case avg < e.thresholds.WeakAvg:
		return insufficient(
			fmt.Sprintf("policy_retrieval_weak:%s", evidence.ReasonScoresTooLow),
			issues, signals,
			"Retrieval quality appears weak for drawing a conclusion; expand documents or improve retrieval filtering.",
		)
	default:
		return Recommendation{
			Decision:   NeedsOfficerReview,
			Confidence: 0.45,
			Issues:     issues,
			ReasonsAgainst: []string{
				"Policy evidence retrieved but requires officer judgement to weigh impacts and site context.",
				fmt.Sprintf("Main issues flagged: %s.", strings.Join(issues, ", ")),
			},
			DraftConditions:     []string{},
			DraftRefusalReasons: []string{},
			Signals:             signals,
		}
	}
}

// #endregion score-only

// #region strength
// policyStrength applies the canonical policy_ok check: gate passed, enough
// items, average of the top-N scores above the floor.
func (e *Engine) policyStrength(gate evidence.GateResult, items []evidence.Item) (bool, float64, string) {
	if !gate.OK {
		reason := string(gate.Reason)
		if reason == "" {
			reason = string(evidence.ReasonNoPolicyResults)
		}
		return false, 0, reason
	}
	avg := avgTopScores(items, e.thresholds.PolicyTopN)
	if len(items) < e.thresholds.MinPolicyResults {
		return false, avg, string(evidence.ReasonResultsTooFew)
	}
	if avg < e.thresholds.PolicyMinAvg {
		return false, avg, string(evidence.ReasonScoresTooLow)
	}
	return true, avg, "ok"
}

// caseStrength applies the parallel case_ok check for precedent evidence.
func (e *Engine) caseStrength(cs *CaseSet) (bool, float64, string) {
	if cs == nil {
		return false, 0, "precedents_not_enabled"
	}
	if !cs.OK {
		reason := cs.Reason
		if reason == "" {
			reason = "no_case_results"
		}
		return false, 0, reason
	}
	if len(cs.Results) < 1 {
		return false, 0, "case_results_too_few"
	}
	scores := make([]float64, len(cs.Results))
	for i, r := range cs.Results {
		scores[i] = r.Score
	}
	avg := avgTopFloats(scores, e.thresholds.CaseTopN)
	if avg < e.thresholds.CaseMinAvg {
		return false, avg, "case_scores_too_low"
	}
	return true, avg, "ok"
}

// #endregion strength

// #region helpers
// draftConditions builds the deterministic condition set from proposal
// keywords. The approved-plans condition is always present.
func draftConditions(proposalText string) []string {
	t := strings.ToLower(proposalText)
	conds := []string{
		"The development hereby approved shall be carried out in accordance with the approved plans and supporting documents.",
	}
	if strings.Contains(t, "materials") || strings.Contains(t, "match existing") {
		conds = append(conds,
			"External materials shall match the existing dwelling unless otherwise agreed in writing by the Local Planning Authority.")
	}
	if strings.Contains(t, "privacy") || strings.Contains(t, "overlooking") {
		conds = append(conds,
			"Any side-facing windows serving habitable rooms shall be obscure glazed and non-opening below 1.7m from finished floor level.")
	}
	return conds
}

// insufficient builds the capped-confidence hard-stop recommendation.
func insufficient(reason string, issues []string, signals Signals, against string) Recommendation {
	return Recommendation{
		Decision:            InsufficientEvidence,
		Confidence:          insufficientConfidenceCap,
		Reason:              reason,
		Issues:              issues,
		ReasonsAgainst:      []string{against},
		DraftConditions:     []string{},
		DraftRefusalReasons: []string{},
		Signals:             signals,
	}
}

// scoreConfidence maps an average evidence score onto [0,1], 2dp.
func scoreConfidence(avg float64) float64 {
	c := avg / 6.0
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return math.Round(c*100) / 100
}

// avgTopScores averages the top-N item scores.
func avgTopScores(items []evidence.Item, n int) float64 {
	scores := make([]float64, len(items))
	for i, it := range items {
		scores[i] = it.Score
	}
	return avgTopFloats(scores, n)
}

// avgTopFloats averages the N largest values.
func avgTopFloats(scores []float64, n int) float64 {
	if len(scores) == 0 {
		return 0
	}
	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	if n > len(sorted) {
		n = len(sorted)
	}
	var sum float64
	for _, s := range sorted[:n] {
		sum += s
	}
	return sum / float64(n)
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// #endregion helpers
