// Package precedent persists historic application decisions in SQLite and
// serves them as case evidence for the decision engine's precedent mode.
// Ranking is a deterministic term-overlap heuristic; a vector index can sit
// in front of this store without changing its callers.
package precedent

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/henrypygall05-byte/planning-engine-api/internal/decision"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS applications (
	application_ref TEXT PRIMARY KEY,
	proposal        TEXT NOT NULL,
	site_address    TEXT,
	decision        TEXT,
	reasons_text    TEXT,
	conditions_text TEXT,
	decided_date    TEXT,
	url             TEXT,
	created_at      TEXT NOT NULL
);
`

// #endregion schema

// #region application
// Application is one historic planning application with its determination.
type Application struct {
	ApplicationRef string
	Proposal       string
	SiteAddress    string
	Decision       string
	ReasonsText    string
	ConditionsText string
	DecidedDate    string
	URL            string
}

// #endregion application

// #region store
// Store manages the applications table.
type Store struct {
	db *sql.DB
}

// NewStore opens the SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open precedent db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion store

// #region insert
// Insert stores one application. A missing reference gets a generated one so
// test fixtures and manual loads never collide.
func (s *Store) Insert(app Application) (Application, error) {
	if app.ApplicationRef == "" {
		app.ApplicationRef = "GEN/" + uuid.New().String()
	}
	_, err := s.db.Exec(
		`INSERT INTO applications
		 (application_ref, proposal, site_address, decision, reasons_text, conditions_text, decided_date, url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(application_ref) DO UPDATE SET
		   proposal = excluded.proposal,
		   site_address = excluded.site_address,
		   decision = excluded.decision,
		   reasons_text = excluded.reasons_text,
		   conditions_text = excluded.conditions_text,
		   decided_date = excluded.decided_date,
		   url = excluded.url`,
		app.ApplicationRef, app.Proposal, app.SiteAddress, app.Decision,
		app.ReasonsText, app.ConditionsText, app.DecidedDate, app.URL,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return Application{}, fmt.Errorf("insert application: %w", err)
	}
	return app, nil
}

// #endregion insert

// #region get
// Get retrieves one application by reference.
func (s *Store) Get(ref string) (Application, error) {
	var app Application
	err := s.db.QueryRow(
		`SELECT application_ref, proposal, site_address, decision, reasons_text, conditions_text, decided_date, url
		 FROM applications WHERE application_ref = ?`, ref,
	).Scan(
		&app.ApplicationRef, &app.Proposal, &app.SiteAddress, &app.Decision,
		&app.ReasonsText, &app.ConditionsText, &app.DecidedDate, &app.URL,
	)
	if err != nil {
		return Application{}, fmt.Errorf("get application %s: %w", ref, err)
	}
	return app, nil
}

// List returns up to limit applications, most recently decided first.
func (s *Store) List(limit int) ([]Application, error) {
	rows, err := s.db.Query(
		`SELECT application_ref, proposal, site_address, decision, reasons_text, conditions_text, decided_date, url
		 FROM applications ORDER BY decided_date DESC, application_ref LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var apps []Application
	for rows.Next() {
		var app Application
		if err := rows.Scan(
			&app.ApplicationRef, &app.Proposal, &app.SiteAddress, &app.Decision,
			&app.ReasonsText, &app.ConditionsText, &app.DecidedDate, &app.URL,
		); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// #endregion get

// #region search
// Search ranks stored applications against the query by shared token count,
// breaking ties by decided date then reference for a stable order. Returns a
// case set shaped for the decision engine.
func (s *Store) Search(query string, k int) (decision.CaseSet, error) {
	if k <= 0 {
		k = 5
	}
	apps, err := s.List(1000)
	if err != nil {
		return decision.CaseSet{OK: false, Reason: "no_case_results"}, err
	}

	qTokens := tokenize(query)
	if len(qTokens) == 0 || len(apps) == 0 {
		return decision.CaseSet{OK: false, Reason: "no_case_results", Results: []decision.CaseResult{}}, nil
	}
	qSet := make(map[string]bool, len(qTokens))
	for _, t := range qTokens {
		qSet[t] = true
	}

	type hit struct {
		app     Application
		overlap int
	}
	var hits []hit
	for _, app := range apps {
		overlap := 0
		for _, t := range tokenize(app.Proposal) {
			if qSet[t] {
				overlap++
			}
		}
		if overlap > 0 {
			hits = append(hits, hit{app: app, overlap: overlap})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].overlap != hits[b].overlap {
			return hits[a].overlap > hits[b].overlap
		}
		if hits[a].app.DecidedDate != hits[b].app.DecidedDate {
			return hits[a].app.DecidedDate > hits[b].app.DecidedDate
		}
		return hits[a].app.ApplicationRef < hits[b].app.ApplicationRef
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	results := make([]decision.CaseResult, len(hits))
	for i, h := range hits {
		results[i] = decision.CaseResult{
			ApplicationRef: h.app.ApplicationRef,
			Decision:       h.app.Decision,
			ReasonsText:    h.app.ReasonsText,
			ConditionsText: h.app.ConditionsText,
			Score:          overlapScore(h.overlap, len(qTokens)),
		}
	}
	if len(results) == 0 {
		return decision.CaseSet{OK: false, Reason: "no_case_results", Results: []decision.CaseResult{}}, nil
	}
	return decision.CaseSet{OK: true, Results: results}, nil
}

// overlapScore maps token overlap onto the 0-6 scale the engine thresholds
// expect from the external similarity search.
func overlapScore(overlap, queryTokens int) float64 {
	if queryTokens == 0 {
		return 0
	}
	frac := float64(overlap) / float64(queryTokens)
	if frac > 1 {
		frac = 1
	}
	return frac * 6.0
}

// #endregion search

// #region summary
// ApprovalSummary aggregates outcomes over a set of case results.
type ApprovalSummary struct {
	Total        int     `json:"total"`
	Approved     int     `json:"approved"`
	Refused      int     `json:"refused"`
	ApprovalRate float64 `json:"approval_rate"`
	Bucket       string  `json:"bucket"` // "high" | "medium" | "low"
}

// Summarize computes the approval rate and its explainable bucket.
func Summarize(results []decision.CaseResult) ApprovalSummary {
	sum := ApprovalSummary{Total: len(results)}
	for _, r := range results {
		switch decision.ClassifyOutcome(r.Decision) {
		case decision.OutcomeApproved:
			sum.Approved++
		case decision.OutcomeRefused:
			sum.Refused++
		}
	}
	determined := sum.Approved + sum.Refused
	if determined > 0 {
		sum.ApprovalRate = float64(sum.Approved) / float64(determined)
	}
	switch {
	case sum.ApprovalRate >= 0.70:
		sum.Bucket = "high"
	case sum.ApprovalRate >= 0.45:
		sum.Bucket = "medium"
	default:
		sum.Bucket = "low"
	}
	return sum
}

// #endregion summary
