// Package feedback maintains the append-only quality-feedback log the batch
// tuner reads. Records are newline-delimited JSON, write-once, never mutated.
package feedback

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/henrypygall05-byte/planning-engine-api/internal/quality"
	"github.com/henrypygall05-byte/planning-engine-api/internal/weights"
)

// #region record
// proposalExcerptLen bounds the stored proposal text per record.
const proposalExcerptLen = 240

// Record is one feedback log entry.
type Record struct {
	ID           string         `json:"id"`
	TS           time.Time      `json:"ts"`
	Proposal     string         `json:"proposal"`
	Decision     string         `json:"decision"`
	QualityScore int            `json:"quality_score"`
	Flags        quality.Flags  `json:"flags"`
	WeightsAfter weights.Config `json:"weights_after"`
}

// NewRecord builds a record with a fresh ID, UTC timestamp, and the proposal
// text truncated to an excerpt.
func NewRecord(proposal, decision string, score int, flags quality.Flags, after weights.Config) Record {
	if len(proposal) > proposalExcerptLen {
		proposal = proposal[:proposalExcerptLen]
	}
	return Record{
		ID:           uuid.New().String(),
		TS:           time.Now().UTC(),
		Proposal:     proposal,
		Decision:     decision,
		QualityScore: score,
		Flags:        flags,
		WeightsAfter: after,
	}
}

// #endregion record

// #region log
// Log is a mutex-guarded JSONL appender/reader over one file.
type Log struct {
	mu   sync.Mutex
	path string
}

// NewLog creates a log handle for the given path.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Path returns the log file location.
func (l *Log) Path() string { return l.path }

// Append writes one record as a single JSON line.
func (l *Log) Append(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir feedback dir: %w", err)
		}
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal feedback record: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open feedback log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append feedback: %w", err)
	}
	return nil
}

// Tail returns up to the last n records, oldest first. Unparseable lines are
// skipped rather than failing the whole read.
func (l *Log) Tail(n int) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open feedback log: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan feedback log: %w", err)
	}

	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}
	return records, nil
}

// Count returns the total number of parseable records.
func (l *Log) Count() (int, error) {
	recs, err := l.Tail(0)
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

// #endregion log
