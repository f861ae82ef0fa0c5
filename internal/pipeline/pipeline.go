// Package pipeline wires the evidence gate, reranker, decision engine,
// quality scorer, and weight tuner into the per-proposal evaluation flow and
// the per-report feedback loop.
package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/henrypygall05-byte/planning-engine-api/internal/decision"
	"github.com/henrypygall05-byte/planning-engine-api/internal/evidence"
	"github.com/henrypygall05-byte/planning-engine-api/internal/feedback"
	"github.com/henrypygall05-byte/planning-engine-api/internal/logging"
	"github.com/henrypygall05-byte/planning-engine-api/internal/precedent"
	"github.com/henrypygall05-byte/planning-engine-api/internal/quality"
	"github.com/henrypygall05-byte/planning-engine-api/internal/rerank"
	"github.com/henrypygall05-byte/planning-engine-api/internal/tuner"
	"github.com/henrypygall05-byte/planning-engine-api/internal/weights"
)

// #region request
// Request describes one proposal evaluation.
type Request struct {
	ProposalText     string
	Authority        string
	DocKeys          []string
	TopK             int
	MinScore         float64
	MinResults       int
	Mode             decision.Mode
	RequirePrecedent bool
	CaseTopK         int
}

// #endregion request

// #region payload
// InputBlock echoes the request in the payload for audit.
type InputBlock struct {
	ProposalText string   `json:"proposal_text"`
	Authority    string   `json:"authority"`
	DocKeys      []string `json:"doc_keys"`
}

// PolicyBlock carries the gated, reranked policy evidence and its citations.
type PolicyBlock struct {
	OK        bool                `json:"ok"`
	Reason    string              `json:"reason,omitempty"`
	Citations []evidence.Citation `json:"citations"`
	Evidence  []evidence.Item     `json:"evidence"`
}

// Payload is the recommendation payload handed to the external renderer.
type Payload struct {
	OK      bool                       `json:"ok"`
	Reason  string                     `json:"reason,omitempty"`
	RunID   string                     `json:"run_id,omitempty"`
	Input   InputBlock                 `json:"input"`
	Signals decision.Signals           `json:"signals"`
	Policy  PolicyBlock                `json:"policy"`
	Case    *decision.CaseSet          `json:"case,omitempty"`
	Report  *decision.Recommendation   `json:"report"`
	Summary *precedent.ApprovalSummary `json:"precedent_summary,omitempty"`
}

// #endregion payload

// #region pipeline
// Pipeline is the top-level coordinator for one deployment's stores.
type Pipeline struct {
	provider   evidence.Provider
	weights    *weights.Store
	feedback   *feedback.Log
	precedents *precedent.Store // nil when precedent mode is unavailable
	engine     *decision.Engine
	auditDB    *sql.DB // nil disables provenance rows
	logger     *zap.Logger
}

// Options configures optional pipeline collaborators.
type Options struct {
	Precedents *precedent.Store
	AuditDB    *sql.DB
	Logger     *zap.Logger
}

// New wires a pipeline. provider, weightsStore, and feedbackLog are required.
func New(provider evidence.Provider, weightsStore *weights.Store, feedbackLog *feedback.Log, opts Options) (*Pipeline, error) {
	if provider == nil {
		return nil, errors.New("pipeline: nil evidence provider")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.AuditDB != nil {
		if err := logging.EnsureSchema(opts.AuditDB); err != nil {
			return nil, err
		}
	}
	return &Pipeline{
		provider:   provider,
		weights:    weightsStore,
		feedback:   feedbackLog,
		precedents: opts.Precedents,
		engine:     decision.NewEngine(decision.DefaultThresholds()),
		auditDB:    opts.AuditDB,
		logger:     logger,
	}, nil
}

// #endregion pipeline

// #region evaluate
// Evaluate runs one proposal through gate, rerank, and the decision engine,
// and assembles the renderer payload.
func (p *Pipeline) Evaluate(ctx context.Context, req Request) (Payload, error) {
	if req.ProposalText == "" {
		return Payload{OK: false, Reason: "empty_proposal"}, nil
	}
	runID := uuid.New().String()

	if req.TopK <= 0 {
		req.TopK = 10
	}
	if req.CaseTopK <= 0 {
		req.CaseTopK = 5
	}

	set, err := p.provider.Retrieve(ctx, evidence.Query{
		Text:      req.ProposalText,
		Authority: req.Authority,
		DocKeys:   req.DocKeys,
		TopK:      req.TopK,
		MinScore:  req.MinScore,
	})
	if err != nil {
		return Payload{}, fmt.Errorf("retrieve evidence: %w", err)
	}

	gated := evidence.Require(set, req.MinResults)

	cfg, err := p.weights.Load()
	if err != nil {
		var malformed *weights.MalformedWeightsError
		if errors.As(err, &malformed) {
			p.logger.Warn("weights file malformed, using defaults",
				zap.String("path", p.weights.Path()),
				zap.Error(malformed))
		} else {
			return Payload{}, err
		}
	}

	policy := PolicyBlock{
		OK:        gated.OK,
		Reason:    string(gated.Reason),
		Citations: gated.Citations,
		Evidence:  gated.Evidence,
	}
	if gated.OK {
		ranked := rerank.Rerank(gated.Citations, gated.Evidence, cfg)
		policy.Citations = ranked.Citations
		policy.Evidence = ranked.Evidence
	}

	var caseSet *decision.CaseSet
	var summary *precedent.ApprovalSummary
	if req.Mode == decision.ModePrecedent && p.precedents != nil {
		cs, err := p.precedents.Search(req.ProposalText, req.CaseTopK)
		if err != nil {
			return Payload{}, fmt.Errorf("search precedents: %w", err)
		}
		caseSet = &cs
		if cs.OK {
			s := precedent.Summarize(cs.Results)
			summary = &s
		}
	}

	rec := p.engine.Evaluate(decision.Input{
		ProposalText:     req.ProposalText,
		Mode:             req.Mode,
		Gate:             gated,
		Evidence:         policy.Evidence,
		Case:             caseSet,
		RequirePrecedent: req.RequirePrecedent,
	})

	p.logger.Info("proposal evaluated",
		zap.String("run_id", runID),
		zap.String("mode", string(req.Mode)),
		zap.String("decision", string(rec.Decision)),
		zap.Float64("confidence", rec.Confidence),
		zap.Int("evidence", len(policy.Evidence)),
	)

	if p.auditDB != nil {
		entry := logging.EvaluationEntry{
			ID:         uuid.New().String(),
			RunID:      runID,
			Proposal:   req.ProposalText,
			Authority:  req.Authority,
			Mode:       string(req.Mode),
			Decision:   string(rec.Decision),
			Confidence: rec.Confidence,
			Reason:     rec.Reason,
			CreatedAt:  time.Now().UTC(),
		}
		if err := logging.LogEvaluation(p.auditDB, entry); err != nil {
			p.logger.Warn("provenance write failed", zap.Error(err))
		}
	}

	return Payload{
		OK:      true,
		RunID:   runID,
		Input:   InputBlock{ProposalText: req.ProposalText, Authority: req.Authority, DocKeys: req.DocKeys},
		Signals: rec.Signals,
		Policy:  policy,
		Case:    caseSet,
		Report:  &rec,
		Summary: summary,
	}, nil
}

// #endregion evaluate

// #region score-and-tune
// ScoreAndTune closes the feedback loop for one rendered payload: score its
// evidential quality, apply the per-run weight adjustments, and append the
// feedback record.
func (p *Pipeline) ScoreAndTune(payload Payload) (quality.Report, weights.Config, error) {
	report := quality.Score(payload.Policy.Citations, payload.Policy.Evidence)

	dec := ""
	if payload.Report != nil {
		dec = string(payload.Report.Decision)
	}
	cfg, err := tuner.PerRun(p.weights, p.feedback, payload.Input.ProposalText, dec, report)
	if err != nil {
		return report, weights.Config{}, err
	}

	p.logger.Info("report scored",
		zap.String("run_id", payload.RunID),
		zap.Int("quality_score", report.QualityScore),
		zap.Int("doc_diversity", report.DocDiversity),
		zap.Bool("low_doc_diversity", report.Flags.LowDocDiversity),
		zap.Bool("irrelevance", report.Flags.Irrelevance),
	)
	return report, cfg, nil
}

// #endregion score-and-tune
