package evidence

// #region reasons
// Reason is the fixed vocabulary for gate failures.
type Reason string

const (
	ReasonNoPolicyResults Reason = "no_policy_results"
	ReasonResultsTooFew   Reason = "policy_results_too_few"
	ReasonScoresTooLow    Reason = "policy_scores_too_low"
	ReasonInsufficient    Reason = "insufficient_policy_evidence"
)

var knownReasons = map[Reason]bool{
	ReasonNoPolicyResults: true,
	ReasonResultsTooFew:   true,
	ReasonScoresTooLow:    true,
	ReasonInsufficient:    true,
}

// #endregion reasons

// #region gate-result
// GateResult is the outcome of the evidence-sufficiency gate.
// OK=false means no downstream component may produce anything other
// than an insufficient_evidence recommendation.
type GateResult struct {
	OK        bool       `json:"ok"`
	Reason    Reason     `json:"reason,omitempty"`
	Citations []Citation `json:"citations"`
	Evidence  []Item     `json:"evidence"`
}

// #endregion gate-result

// #region gate
// DefaultMinResults is the minimum item count for a set to ground an answer.
const DefaultMinResults = 3

// Require enforces the no-answer-without-citation contract: the set must be
// provider-ok and carry at least minResults items. Pure function.
func Require(set Set, minResults int) GateResult {
	if minResults <= 0 {
		minResults = DefaultMinResults
	}

	if !set.OK {
		return GateResult{
			OK:        false,
			Reason:    normalizeReason(set.Reason, ReasonNoPolicyResults),
			Citations: []Citation{},
			Evidence:  []Item{},
		}
	}

	if len(set.Items) < minResults {
		return GateResult{
			OK:        false,
			Reason:    normalizeReason(set.Reason, ReasonResultsTooFew),
			Citations: []Citation{},
			Evidence:  []Item{},
		}
	}

	citations := make([]Citation, len(set.Items))
	for i, it := range set.Items {
		citations[i] = CitationFor(it)
	}

	return GateResult{
		OK:        true,
		Citations: citations,
		Evidence:  set.Items,
	}
}

// normalizeReason keeps an upstream reason only when it belongs to the fixed
// vocabulary, otherwise falls back to the reason for this failure mode.
func normalizeReason(upstream string, fallback Reason) Reason {
	if r := Reason(upstream); knownReasons[r] {
		return r
	}
	if upstream != "" {
		return ReasonInsufficient
	}
	return fallback
}

// #endregion gate
