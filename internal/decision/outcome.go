package decision

import "strings"

// #region outcome
// Outcome classifies a historic decision string into the canonical vocabulary.
type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeRefused  Outcome = "refused"
	OutcomeUnknown  Outcome = "unknown"
)

// approvedSynonyms covers the wording councils use on decision notices.
var approvedSynonyms = []string{
	"approve", "approved", "grant", "granted", "permit", "permitted",
}

// ClassifyOutcome maps a free-text decision onto the canonical vocabulary.
// Refusal wins when both families somehow match ("refused permission").
func ClassifyOutcome(decisionText string) Outcome {
	d := strings.ToLower(decisionText)
	if d == "" {
		return OutcomeUnknown
	}
	if strings.Contains(d, "refus") {
		return OutcomeRefused
	}
	for _, s := range approvedSynonyms {
		if strings.Contains(d, s) {
			return OutcomeApproved
		}
	}
	return OutcomeUnknown
}

// #endregion outcome
