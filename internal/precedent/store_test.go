package precedent

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/henrypygall05-byte/planning-engine-api/internal/decision"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "precedents.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *Store, apps ...Application) {
	t.Helper()
	for _, app := range apps {
		if _, err := s.Insert(app); err != nil {
			t.Fatalf("Insert %s: %v", app.ApplicationRef, err)
		}
	}
}

func TestInsertGeneratesRefAndUpserts(t *testing.T) {
	s := tempStore(t)

	app, err := s.Insert(Application{Proposal: "Single storey rear extension"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if !strings.HasPrefix(app.ApplicationRef, "GEN/") {
		t.Fatalf("expected a generated reference, got %q", app.ApplicationRef)
	}

	app.Decision = "Granted"
	if _, err := s.Insert(app); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := s.Get(app.ApplicationRef)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Decision != "Granted" {
		t.Fatalf("expected the upsert to overwrite, got %q", got.Decision)
	}
}

func TestListOrdersByDecidedDateDesc(t *testing.T) {
	s := tempStore(t)
	seed(t, s,
		Application{ApplicationRef: "2020/0001/HOU", Proposal: "porch", DecidedDate: "2020-03-01"},
		Application{ApplicationRef: "2023/0002/HOU", Proposal: "garage", DecidedDate: "2023-07-12"},
		Application{ApplicationRef: "2021/0003/HOU", Proposal: "dormer", DecidedDate: "2021-11-30"},
	)

	apps, err := s.List(10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(apps) != 3 {
		t.Fatalf("expected 3 applications, got %d", len(apps))
	}
	if apps[0].ApplicationRef != "2023/0002/HOU" || apps[2].ApplicationRef != "2020/0001/HOU" {
		t.Fatalf("unexpected order: %s ... %s", apps[0].ApplicationRef, apps[2].ApplicationRef)
	}
}

func TestSearchRanksByTokenOverlap(t *testing.T) {
	s := tempStore(t)
	seed(t, s,
		Application{
			ApplicationRef: "2022/0100/HOU",
			Proposal:       "Single storey rear extension to dwellinghouse",
			Decision:       "Granted",
			DecidedDate:    "2022-05-01",
		},
		Application{
			ApplicationRef: "2022/0101/HOU",
			Proposal:       "Two storey side extension",
			Decision:       "Refused",
			DecidedDate:    "2022-06-01",
		},
		Application{
			ApplicationRef: "2022/0102/FUL",
			Proposal:       "Change of use to nightclub",
			Decision:       "Refused",
			DecidedDate:    "2022-07-01",
		},
	)

	cases, err := s.Search("single storey rear extension", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !cases.OK {
		t.Fatalf("expected an OK case set, reason %q", cases.Reason)
	}
	if len(cases.Results) != 2 {
		t.Fatalf("expected 2 overlapping cases, got %d", len(cases.Results))
	}
	if cases.Results[0].ApplicationRef != "2022/0100/HOU" {
		t.Fatalf("expected the rear-extension case first, got %s", cases.Results[0].ApplicationRef)
	}
	if cases.Results[0].Score <= cases.Results[1].Score {
		t.Fatalf("scores must be descending: %f, %f", cases.Results[0].Score, cases.Results[1].Score)
	}
	if cases.Results[0].Score > 6.0 {
		t.Fatalf("scores map onto 0-6, got %f", cases.Results[0].Score)
	}
}

func TestSearchNoOverlapIsNotOK(t *testing.T) {
	s := tempStore(t)
	seed(t, s, Application{ApplicationRef: "2022/0200/FUL", Proposal: "Wind turbine installation"})

	cases, err := s.Search("rear extension dormer", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if cases.OK {
		t.Fatal("expected a not-OK case set")
	}
	if cases.Reason != "no_case_results" {
		t.Fatalf("unexpected reason %q", cases.Reason)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	s := tempStore(t)
	seed(t, s, Application{ApplicationRef: "2022/0300/HOU", Proposal: "Loft conversion"})

	cases, err := s.Search("the and of", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if cases.OK {
		t.Fatal("stopword-only queries must not match")
	}
}

func TestSummarizeBuckets(t *testing.T) {
	mk := func(decisions ...string) []decision.CaseResult {
		out := make([]decision.CaseResult, len(decisions))
		for i, d := range decisions {
			out[i] = decision.CaseResult{Decision: d}
		}
		return out
	}

	high := Summarize(mk("Granted", "Approved", "Granted", "Refused"))
	if high.Bucket != "high" || high.ApprovalRate != 0.75 {
		t.Fatalf("expected high/0.75, got %s/%f", high.Bucket, high.ApprovalRate)
	}

	medium := Summarize(mk("Granted", "Refused"))
	if medium.Bucket != "medium" {
		t.Fatalf("expected medium, got %s", medium.Bucket)
	}

	low := Summarize(mk("Refused", "Refused", "Granted"))
	if low.Bucket != "low" {
		t.Fatalf("expected low, got %s", low.Bucket)
	}

	empty := Summarize(nil)
	if empty.Total != 0 || empty.Bucket != "low" {
		t.Fatalf("expected an empty low summary, got %+v", empty)
	}

	withdrawn := Summarize(mk("Withdrawn", "Granted"))
	if withdrawn.ApprovalRate != 1.0 {
		t.Fatalf("undetermined outcomes must not dilute the rate, got %f", withdrawn.ApprovalRate)
	}
}

func TestTokenizeDropsStopwordsAndDedupes(t *testing.T) {
	toks := tokenize("Erection of a single storey rear extension, single storey")
	for _, tok := range toks {
		if tok == "erection" || tok == "of" || tok == "a" {
			t.Fatalf("stopword %q survived", tok)
		}
	}
	seen := map[string]bool{}
	for _, tok := range toks {
		if seen[tok] {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = true
	}
	if !seen["storey"] || !seen["extension"] {
		t.Fatalf("expected domain tokens, got %v", toks)
	}
}
