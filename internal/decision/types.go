package decision

import "github.com/henrypygall05-byte/planning-engine-api/internal/evidence"

// #region decision-enum
// Decision is the bounded recommendation vocabulary.
type Decision string

const (
	InsufficientEvidence  Decision = "insufficient_evidence"
	NeedsOfficerReview    Decision = "needs_officer_review"
	Approve               Decision = "approve"
	ApproveWithConditions Decision = "approve_with_conditions"
	Refuse                Decision = "refuse"
)

// #endregion decision-enum

// #region mode
// Mode selects the engine's operating branch.
type Mode string

const (
	// ModeScoreOnly derives the decision purely from evidence score
	// averages; no precedent input is consulted.
	ModeScoreOnly Mode = "score_only"
	// ModePrecedent runs the full transition set, tilting the outcome by
	// analogy to historic precedent decisions when they are supplied.
	ModePrecedent Mode = "precedent"
)

// #endregion mode

// #region case-result
// CaseResult is one historic precedent decision retrieved for the proposal.
type CaseResult struct {
	ApplicationRef string  `json:"application_ref"`
	Decision       string  `json:"decision"`
	ReasonsText    string  `json:"reasons_text,omitempty"`
	ConditionsText string  `json:"conditions_text,omitempty"`
	Score          float64 `json:"score"`
}

// CaseSet is the precedent retrieval block consumed in ModePrecedent.
type CaseSet struct {
	OK      bool         `json:"ok"`
	Reason  string       `json:"reason,omitempty"`
	Results []CaseResult `json:"results"`
}

// #endregion case-result

// #region input
// Input bundles everything the engine evaluates for one proposal.
type Input struct {
	ProposalText string
	Mode         Mode
	Gate         evidence.GateResult
	Evidence     []evidence.Item // reranked policy evidence
	Case         *CaseSet        // nil when precedents were not retrieved
	// RequirePrecedent makes a weak precedent retrieval a hard stop even
	// when policy evidence is strong.
	RequirePrecedent bool
}

// #endregion input

// #region signals
// Signals carries the score aggregates that fed the decision.
type Signals struct {
	PolicyAvgScore float64 `json:"policy_avg_score"`
	PolicyCount    int     `json:"policy_count"`
	CaseAvgScore   float64 `json:"case_avg_score"`
	CaseReason     string  `json:"case_reason,omitempty"`
}

// #endregion signals

// #region recommendation
// Recommendation is the engine's output. Created once per evaluation and
// never mutated after construction.
type Recommendation struct {
	Decision            Decision `json:"decision"`
	Confidence          float64  `json:"confidence"`
	Reason              string   `json:"reason,omitempty"`
	Issues              []string `json:"issues"`
	ReasonsFor          []string `json:"reasons_for,omitempty"`
	ReasonsAgainst      []string `json:"reasons_against,omitempty"`
	DraftConditions     []string `json:"draft_conditions"`
	DraftRefusalReasons []string `json:"draft_refusal_reasons"`
	Signals             Signals  `json:"signals"`
}

// #endregion recommendation

// #region thresholds
// Thresholds is the canonical evidence-strength cutoff set. The source
// material had several independently evolved sets; this is the one the whole
// engine uses.
type Thresholds struct {
	MinPolicyResults int     // minimum policy items for policy_ok
	PolicyTopN       int     // policy strength averages the top N scores
	PolicyMinAvg     float64 // policy_ok floor on that average
	CaseTopN         int     // case strength averages the top N scores
	CaseMinAvg       float64 // case_ok floor on that average

	// Score-only branch cutoffs.
	StrongAvg float64 // avg at or above → approve_with_conditions
	StrongTop float64 // together with top score at or above
	WeakAvg   float64 // avg below → insufficient_evidence
}

// DefaultThresholds returns the canonical cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinPolicyResults: 3,
		PolicyTopN:       6,
		PolicyMinAvg:     3.0,
		CaseTopN:         5,
		CaseMinAvg:       2.0,
		StrongAvg:        4.0,
		StrongTop:        4.5,
		WeakAvg:          2.5,
	}
}

// #endregion thresholds
