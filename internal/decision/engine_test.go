package decision

import (
	"strings"
	"testing"

	"github.com/henrypygall05-byte/planning-engine-api/internal/evidence"
)

func scoredItems(scores ...float64) []evidence.Item {
	items := make([]evidence.Item, len(scores))
	for i, s := range scores {
		items[i] = evidence.Item{
			DocKey:       "dap_2020",
			ParagraphRef: "P1",
			Score:        s,
			Text:         "residential amenity policy text",
		}
	}
	return items
}

func passingGate() evidence.GateResult {
	return evidence.GateResult{OK: true}
}

func TestScoreOnlyStrongEvidenceApprovesWithConditions(t *testing.T) {
	eng := NewEngine(DefaultThresholds())

	rec := eng.Evaluate(Input{
		ProposalText: "Single storey rear extension with materials to match existing",
		Mode:         ModeScoreOnly,
		Gate:         passingGate(),
		Evidence:     scoredItems(4.8, 4.4, 4.2, 4.0, 3.8, 4.0),
	})

	if rec.Decision != ApproveWithConditions {
		t.Fatalf("expected approve_with_conditions, got %s", rec.Decision)
	}
	if rec.Confidence != 0.70 {
		t.Fatalf("expected confidence 0.70, got %f", rec.Confidence)
	}
	if len(rec.DraftConditions) < 2 {
		t.Fatalf("expected approved-plans and materials conditions, got %v", rec.DraftConditions)
	}
}

func TestScoreOnlyWeakScoresAreInsufficient(t *testing.T) {
	eng := NewEngine(DefaultThresholds())

	// Below policy_min_avg: rule 1 fires before the score-only branch.
	rec := eng.Evaluate(Input{
		ProposalText: "Two storey side extension",
		Mode:         ModeScoreOnly,
		Gate:         passingGate(),
		Evidence:     scoredItems(2.0, 2.0, 2.0),
	})

	if rec.Decision != InsufficientEvidence {
		t.Fatalf("expected insufficient_evidence, got %s", rec.Decision)
	}
	if rec.Confidence != 0.25 {
		t.Fatalf("expected confidence cap 0.25, got %f", rec.Confidence)
	}
	if !strings.HasPrefix(rec.Reason, "policy_retrieval_weak:") {
		t.Fatalf("unexpected reason %q", rec.Reason)
	}
	if !strings.Contains(rec.Reason, string(evidence.ReasonScoresTooLow)) {
		t.Fatalf("reason should name the low-score cause, got %q", rec.Reason)
	}
}

func TestScoreOnlyMiddlingScoresNeedOfficerReview(t *testing.T) {
	eng := NewEngine(DefaultThresholds())

	rec := eng.Evaluate(Input{
		ProposalText: "Dormer roof extension",
		Mode:         ModeScoreOnly,
		Gate:         passingGate(),
		Evidence:     scoredItems(3.0, 3.0, 3.0, 3.0),
	})

	if rec.Decision != NeedsOfficerReview {
		t.Fatalf("expected needs_officer_review, got %s", rec.Decision)
	}
	if rec.Confidence != 0.45 {
		t.Fatalf("expected confidence 0.45, got %f", rec.Confidence)
	}
	if len(rec.ReasonsAgainst) == 0 {
		t.Fatal("expected reasons against for officer review")
	}
}

func TestGateFailureIsHardStop(t *testing.T) {
	eng := NewEngine(DefaultThresholds())

	rec := eng.Evaluate(Input{
		ProposalText: "Rear extension",
		Mode:         ModePrecedent,
		Gate:         evidence.GateResult{OK: false, Reason: evidence.ReasonResultsTooFew},
		Evidence:     scoredItems(5.0, 5.0),
	})

	if rec.Decision != InsufficientEvidence {
		t.Fatalf("expected insufficient_evidence, got %s", rec.Decision)
	}
	if rec.Reason != "policy_retrieval_weak:"+string(evidence.ReasonResultsTooFew) {
		t.Fatalf("unexpected reason %q", rec.Reason)
	}
}

func TestRequiredPrecedentMissingIsHardStop(t *testing.T) {
	eng := NewEngine(DefaultThresholds())

	rec := eng.Evaluate(Input{
		ProposalText:     "Rear extension",
		Mode:             ModePrecedent,
		Gate:             passingGate(),
		Evidence:         scoredItems(4.0, 4.0, 4.0),
		Case:             nil,
		RequirePrecedent: true,
	})

	if rec.Decision != InsufficientEvidence {
		t.Fatalf("expected insufficient_evidence, got %s", rec.Decision)
	}
	if !strings.HasPrefix(rec.Reason, "precedent_retrieval_weak:") {
		t.Fatalf("unexpected reason %q", rec.Reason)
	}
}

func TestRefusalTiltWithHarmLanguageRefuses(t *testing.T) {
	eng := NewEngine(DefaultThresholds())

	rec := eng.Evaluate(Input{
		ProposalText: "Two storey rear extension causing overlooking of neighbouring gardens",
		Mode:         ModePrecedent,
		Gate:         passingGate(),
		Evidence:     scoredItems(4.0, 4.0, 4.0),
		Case: &CaseSet{
			OK: true,
			Results: []CaseResult{
				{
					ApplicationRef: "2021/0001/HOU",
					Decision:       "Refused",
					ReasonsText:    "Unacceptable loss of daylight and overbearing impact",
					Score:          4.0,
				},
			},
		},
	})

	if rec.Decision != Refuse {
		t.Fatalf("expected refuse, got %s", rec.Decision)
	}
	if len(rec.DraftRefusalReasons) != 1 {
		t.Fatalf("expected one draft refusal reason, got %v", rec.DraftRefusalReasons)
	}
	if rec.Confidence <= 0.25 {
		t.Fatalf("refusal confidence should follow policy strength, got %f", rec.Confidence)
	}
}

func TestApprovedPrecedentsDraftConditions(t *testing.T) {
	eng := NewEngine(DefaultThresholds())

	rec := eng.Evaluate(Input{
		ProposalText: "Single storey rear extension, obscure glazing to side window for privacy",
		Mode:         ModePrecedent,
		Gate:         passingGate(),
		Evidence:     scoredItems(4.0, 4.0, 4.0),
		Case: &CaseSet{
			OK: true,
			Results: []CaseResult{
				{
					ApplicationRef: "2022/0107/HOU",
					Decision:       "Granted",
					ConditionsText: "Materials to match, obscure glazing condition",
					Score:          3.5,
				},
			},
		},
	})

	if rec.Decision != ApproveWithConditions {
		t.Fatalf("expected approve_with_conditions, got %s", rec.Decision)
	}
	found := false
	for _, c := range rec.DraftConditions {
		if strings.Contains(c, "obscure glazed") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an obscure-glazing condition, got %v", rec.DraftConditions)
	}
}

func TestEmptyProposalDegradesNotErrors(t *testing.T) {
	eng := NewEngine(DefaultThresholds())

	rec := eng.Evaluate(Input{
		ProposalText: "",
		Mode:         ModeScoreOnly,
		Gate:         passingGate(),
		Evidence:     scoredItems(3.0, 3.0, 3.0),
	})

	if rec.Decision != NeedsOfficerReview {
		t.Fatalf("expected needs_officer_review, got %s", rec.Decision)
	}
	if len(rec.Issues) != 1 || rec.Issues[0] != "general" {
		t.Fatalf("expected the general issue fallback, got %v", rec.Issues)
	}
}

func TestSignalsCarryScoreAggregates(t *testing.T) {
	eng := NewEngine(DefaultThresholds())

	rec := eng.Evaluate(Input{
		ProposalText: "Rear extension",
		Mode:         ModeScoreOnly,
		Gate:         passingGate(),
		Evidence:     scoredItems(4.0, 3.0, 5.0),
	})

	if rec.Signals.PolicyCount != 3 {
		t.Fatalf("expected policy count 3, got %d", rec.Signals.PolicyCount)
	}
	if rec.Signals.PolicyAvgScore != 4.0 {
		t.Fatalf("expected avg 4.0, got %f", rec.Signals.PolicyAvgScore)
	}
}

func TestTagIssues(t *testing.T) {
	cases := []struct {
		text string
		want []string
	}{
		{"Single storey rear extension with new parking space", []string{"householder", "highways"}},
		{"Works affecting a listed building within the conservation area", []string{"heritage"}},
		{"Crown reduction of protected tree covered by TPO", []string{"trees"}},
		{"Change of use of agricultural land", []string{"general"}},
	}
	for _, tc := range cases {
		got := TagIssues(tc.text)
		if len(got) != len(tc.want) {
			t.Fatalf("%q: expected %v, got %v", tc.text, tc.want, got)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("%q: expected %v, got %v", tc.text, tc.want, got)
			}
		}
	}
}

func TestClassifyOutcome(t *testing.T) {
	cases := []struct {
		text string
		want Outcome
	}{
		{"Approved with conditions", OutcomeApproved},
		{"Granted", OutcomeApproved},
		{"Refused", OutcomeRefused},
		{"Application Refused Permission", OutcomeRefused},
		{"Withdrawn", OutcomeUnknown},
		{"", OutcomeUnknown},
	}
	for _, tc := range cases {
		if got := ClassifyOutcome(tc.text); got != tc.want {
			t.Fatalf("%q: expected %s, got %s", tc.text, tc.want, got)
		}
	}
}
