package pipeline

import (
	"context"
	"log/slog"
	"time"

	"claims-orchestrator/internal/domain"
)

// Retriever is the slice of the gateway the corrective controller re-invokes
// when it widens a search.
type Retriever interface {
	Retrieve(ctx context.Context, sc *StageContext, sources []domain.SourceTag, k int) *domain.ResultSet
}

var _ Retriever = (*Gateway)(nil)

// QualityThresholds grade a ranked result set. The exact values are policy
// choices; they are injected configuration, not constants.
type QualityThresholds struct {
	// High: the top composite score must exceed this for a HIGH verdict.
	High float32
	// Middle: candidates below this are dropped by FILTER_LOW_SCORES, and
	// at least MinCandidates must clear it for HIGH.
	Middle float32
	// Low: a top score under this (or too few candidates) means LOW.
	Low float32
	// MinCandidates is the minimum acceptable candidate count.
	MinCandidates int
	// TopK bounds how many leading candidates the verdict inspects.
	TopK int
}

// ControllerConfig holds the corrective loop's retry parameters.
type ControllerConfig struct {
	Thresholds QualityThresholds
	// RetryKMultiplier widens k on the single expansion retry.
	RetryKMultiplier int
	// RetryLatencyBudget is the minimum remaining deadline required to
	// attempt the retry; with less left the controller surfaces the best
	// available set instead of blocking.
	RetryLatencyBudget time.Duration
}

// Controller runs the corrective-retrieval state machine over a ranked
// result set. Every path terminates in ACCEPTED or
// ACCEPTED_WITH_LOW_CONFIDENCE after at most one expansion retry.
type Controller struct {
	gateway Retriever
	ranker  *Ranker
	cfg     ControllerConfig
	logger  *slog.Logger
}

// NewController wires the controller over the gateway it may re-invoke.
func NewController(gateway Retriever, ranker *Ranker, cfg ControllerConfig, logger *slog.Logger) *Controller {
	return &Controller{
		gateway: gateway,
		ranker:  ranker,
		cfg:     cfg,
		logger:  logger,
	}
}

// decide is the verdict -> action transition table. Keeping it a pure
// function makes the termination bound auditable: EXPAND_SEARCH is only
// reachable when retried is false.
func decide(verdict domain.QualityVerdict, retried bool) domain.CorrectiveAction {
	switch verdict {
	case domain.VerdictHigh:
		return domain.ActionNone
	case domain.VerdictMedium:
		return domain.ActionFilterLowScores
	default:
		if retried {
			return domain.ActionVerifyAndSurface
		}
		return domain.ActionExpandSearch
	}
}

// Run evaluates the ranked set and applies corrective actions until a
// terminal state is reached. sc.Results is updated in place (and replaced
// when an expansion retry produced a better set).
func (c *Controller) Run(ctx context.Context, sc *StageContext) {
	retried := false

	for {
		rs := sc.Results
		rs.Verdict = c.evaluate(rs)
		action := decide(rs.Verdict, retried)

		c.logger.Info("corrective_step",
			slog.String("retrieval_id", sc.RetrievalID),
			slog.String("verdict", string(rs.Verdict)),
			slog.String("action", string(action)),
			slog.Int("candidate_count", len(rs.Candidates)),
			slog.Bool("retried", retried))

		switch action {
		case domain.ActionNone:
			// Accept as-is; the candidate set is not touched.
			rs.RecordAction(domain.ActionNone)
			rs.Outcome = domain.OutcomeAccepted
			return

		case domain.ActionFilterLowScores:
			rs.RecordAction(domain.ActionFilterLowScores)
			c.filterLowScores(rs)
			if len(rs.Candidates) >= c.cfg.Thresholds.MinCandidates {
				rs.Outcome = domain.OutcomeAccepted
				return
			}
			// Filtering thinned the set below the minimum: escalate.
			if retried {
				c.surface(sc)
				return
			}
			if !c.expand(ctx, sc) {
				c.surface(sc)
				return
			}
			retried = true

		case domain.ActionExpandSearch:
			if !c.expand(ctx, sc) {
				c.surface(sc)
				return
			}
			retried = true

		default: // verify and surface
			c.surface(sc)
			return
		}
	}
}

// evaluate computes a verdict from the top-k composite scores.
func (c *Controller) evaluate(rs *domain.ResultSet) domain.QualityVerdict {
	t := c.cfg.Thresholds

	if len(rs.Candidates) == 0 || len(rs.Candidates) < t.MinCandidates {
		return domain.VerdictLow
	}
	top := rs.TopScore()
	if top < t.Low {
		return domain.VerdictLow
	}

	window := len(rs.Candidates)
	if t.TopK > 0 && window > t.TopK {
		window = t.TopK
	}
	aboveMiddle := 0
	for _, candidate := range rs.Candidates[:window] {
		if candidate.Composite >= t.Middle {
			aboveMiddle++
		}
	}

	if top > t.High && aboveMiddle >= t.MinCandidates {
		return domain.VerdictHigh
	}
	return domain.VerdictMedium
}

func (c *Controller) filterLowScores(rs *domain.ResultSet) {
	kept := rs.Candidates[:0]
	for _, candidate := range rs.Candidates {
		if candidate.Composite >= c.cfg.Thresholds.Middle {
			kept = append(kept, candidate)
		}
	}
	rs.Candidates = kept
}

// expand re-invokes the gateway once with a widened k and, when the plan
// carries an optional document source, adds it. Returns false when the
// remaining latency budget forbids the retry.
func (c *Controller) expand(ctx context.Context, sc *StageContext) bool {
	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) < c.cfg.RetryLatencyBudget {
			c.logger.Warn("expansion_skipped_latency_budget",
				slog.String("retrieval_id", sc.RetrievalID),
				slog.Duration("remaining", time.Until(deadline)))
			return false
		}
	}

	widenedK := sc.SearchK * c.cfg.RetryKMultiplier
	if widenedK > sc.MaxSearchK {
		widenedK = sc.MaxSearchK
	}

	previous := sc.Results
	previous.RecordAction(domain.ActionExpandSearch)

	expanded := c.gateway.Retrieve(ctx, sc, sc.Plan.AllSources(), widenedK)
	expanded.Actions = append(previous.Actions, expanded.Actions...)
	c.ranker.Rank(expanded, sc.Intent, sc.Plan)

	// Keep whichever set is the best available.
	if len(expanded.Candidates) == 0 || expanded.TopScore() < previous.TopScore() {
		expanded.Candidates = previous.Candidates
	}
	sc.Results = expanded

	c.logger.Info("search_expanded",
		slog.String("retrieval_id", sc.RetrievalID),
		slog.Int("widened_k", widenedK),
		slog.Int("candidate_count", len(sc.Results.Candidates)))
	return true
}

// surface terminates with the best available set unmodified, tagged so the
// generation boundary can communicate low confidence.
func (c *Controller) surface(sc *StageContext) {
	rs := sc.Results
	rs.RecordAction(domain.ActionVerifyAndSurface)
	rs.Verdict = domain.VerdictLow
	rs.Outcome = domain.OutcomeAcceptedLowConfidence
}
