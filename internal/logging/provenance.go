// Package logging persists an audit row per proposal evaluation, so every
// recommendation can be traced back to its decision, confidence, and quality
// assessment.
package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS evaluation_log (
	id            TEXT PRIMARY KEY,
	run_id        TEXT NOT NULL,
	proposal      TEXT,
	authority     TEXT,
	mode          TEXT NOT NULL,
	decision      TEXT NOT NULL,
	confidence    REAL NOT NULL,
	reason        TEXT,
	quality_score INTEGER,
	created_at    TEXT NOT NULL
);
`

// EnsureSchema creates the evaluation_log table if needed.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate evaluation log: %w", err)
	}
	return nil
}

// #endregion schema

// #region entry
// EvaluationEntry is a single row in the evaluation_log table.
type EvaluationEntry struct {
	ID           string
	RunID        string
	Proposal     string
	Authority    string
	Mode         string
	Decision     string
	Confidence   float64
	Reason       string
	QualityScore *int // nil until the report has been scored
	CreatedAt    time.Time
}

// #endregion entry

// #region log-evaluation
// LogEvaluation writes a provenance row for one evaluated proposal.
func LogEvaluation(db *sql.DB, entry EvaluationEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var quality interface{}
	if entry.QualityScore != nil {
		quality = *entry.QualityScore
	}

	_, err := db.Exec(
		`INSERT INTO evaluation_log (id, run_id, proposal, authority, mode, decision, confidence, reason, quality_score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.RunID,
		nullIfEmpty(entry.Proposal),
		nullIfEmpty(entry.Authority),
		entry.Mode,
		entry.Decision,
		entry.Confidence,
		nullIfEmpty(entry.Reason),
		quality,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log evaluation: %w", err)
	}
	return nil
}

// #endregion log-evaluation

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
