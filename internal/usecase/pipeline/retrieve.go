package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"claims-orchestrator/internal/domain"

	"golang.org/x/sync/errgroup"
)

// Gateway issues variant queries against the external indices and merges
// the raw candidate sets. Index failures degrade to an empty LOW result
// set; they are never raised to the caller.
type Gateway struct {
	claims   domain.ClaimIndex
	policies domain.PolicyIndex
	encoder  domain.VectorEncoder
	logger   *slog.Logger
}

// NewGateway wires the gateway over the two index capabilities and the
// embedding capability.
func NewGateway(claims domain.ClaimIndex, policies domain.PolicyIndex, encoder domain.VectorEncoder, logger *slog.Logger) *Gateway {
	return &Gateway{
		claims:   claims,
		policies: policies,
		encoder:  encoder,
		logger:   logger,
	}
}

// Retrieve fetches up to k candidates per (source, variant) pair, applies
// the intent's hard metadata filters, and merges duplicates keeping the
// best observed score. Results from different sources are tagged and
// concatenated in plan order, not pre-ranked.
func (g *Gateway) Retrieve(ctx context.Context, sc *StageContext, sources []domain.SourceTag, k int) *domain.ResultSet {
	rs := &domain.ResultSet{RetrievalID: sc.RetrievalID}

	texts := make([]string, len(sc.Variants))
	for i, v := range sc.Variants {
		texts[i] = v.Text
	}

	embedStart := time.Now()
	embeddings, err := g.encoder.Encode(ctx, texts)
	if err != nil || len(embeddings) != len(texts) {
		if err == nil {
			err = fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embeddings))
		}
		g.logger.Warn("variant_encoding_failed",
			slog.String("retrieval_id", sc.RetrievalID),
			slog.String("error", err.Error()))
		return g.degraded(rs)
	}
	g.logger.Info("variants_encoded",
		slog.String("retrieval_id", sc.RetrievalID),
		slog.Int("variant_count", len(texts)),
		slog.Int64("duration_ms", time.Since(embedStart).Milliseconds()))

	type hit struct {
		source  domain.SourceTag
		weight  float64
		results []domain.SearchResult
	}

	var (
		mu       sync.Mutex
		hits     []hit
		failures int
		searches int
	)

	searchStart := time.Now()
	group, gctx := errgroup.WithContext(ctx)
	for _, source := range sources {
		for i := range sc.Variants {
			searches++
			src, vector, weight := source, embeddings[i], sc.Variants[i].Weight
			group.Go(func() error {
				results, searchErr := g.search(gctx, src, vector, k)
				mu.Lock()
				defer mu.Unlock()
				if searchErr != nil {
					failures++
					g.logger.Warn("index_search_failed",
						slog.String("retrieval_id", sc.RetrievalID),
						slog.String("source", string(src)),
						slog.String("error", searchErr.Error()))
					return nil // degrade, never raise
				}
				hits = append(hits, hit{source: src, weight: weight, results: results})
				return nil
			})
		}
	}
	_ = group.Wait()

	if searches > 0 && failures == searches {
		return g.degraded(rs)
	}

	// Merge per source with duplicate suppression by item identity,
	// keeping the best raw score observed for a duplicate. The variant
	// weight is carried independently so a strong hit from a decayed
	// variant is not penalized at merge time.
	merged := make(map[domain.SourceTag]map[string]domain.Candidate)
	for _, h := range hits {
		bySource := merged[h.source]
		if bySource == nil {
			bySource = make(map[string]domain.Candidate)
			merged[h.source] = bySource
		}
		for _, res := range h.results {
			if h.source == domain.SourceClaims && !passesFilters(sc.Intent, res) {
				continue
			}
			candidate := domain.Candidate{
				ID:            res.ID,
				Source:        h.source,
				Content:       res.Content,
				Metadata:      res.Metadata,
				ClaimDate:     res.ClaimDate,
				RawScore:      res.Score,
				VariantWeight: h.weight,
			}
			if existing, ok := bySource[res.ID]; ok {
				if existing.RawScore > candidate.RawScore {
					candidate.RawScore = existing.RawScore
				}
				if existing.VariantWeight > candidate.VariantWeight {
					candidate.VariantWeight = existing.VariantWeight
				}
			}
			bySource[res.ID] = candidate
		}
	}

	for _, source := range sources {
		for _, candidate := range merged[source] {
			rs.Candidates = append(rs.Candidates, candidate)
		}
	}

	g.logger.Info("retrieval_completed",
		slog.String("retrieval_id", sc.RetrievalID),
		slog.Int("source_count", len(sources)),
		slog.Int("search_count", searches),
		slog.Int("failure_count", failures),
		slog.Int("candidate_count", len(rs.Candidates)),
		slog.Int64("duration_ms", time.Since(searchStart).Milliseconds()))

	return rs
}

func (g *Gateway) search(ctx context.Context, source domain.SourceTag, vector []float32, k int) ([]domain.SearchResult, error) {
	switch source {
	case domain.SourcePolicies:
		return g.policies.Search(ctx, vector, k)
	default:
		return g.claims.Search(ctx, vector, k)
	}
}

func (g *Gateway) degraded(rs *domain.ResultSet) *domain.ResultSet {
	rs.Candidates = nil
	rs.Verdict = domain.VerdictLow
	rs.RecordAction(domain.ActionRetrievalFailed)
	return rs
}

// passesFilters applies the intent's required metadata filters as a hard
// post-filter: failing candidates are dropped, never scored down. Filters
// only bind on the structured source; policy chunks carry no claim
// metadata.
func passesFilters(intent domain.Intent, res domain.SearchResult) bool {
	if intent.Status != nil {
		if !strings.EqualFold(res.Metadata["status"], string(*intent.Status)) {
			return false
		}
	}

	if intent.Temporal != nil {
		if len(intent.Temporal.Years) > 0 && !matchesYear(intent.Temporal.Years, res) {
			return false
		}
		if len(intent.Temporal.Quarters) > 0 && !matchesQuarter(intent.Temporal.Quarters, res) {
			return false
		}
	}

	if len(intent.Diseases) > 0 && !containsFoldAny(res.Metadata["disease"], intent.Diseases) {
		return false
	}

	if intent.Amount != nil {
		amount, err := strconv.ParseFloat(res.Metadata["amount"], 64)
		if err != nil || !compareAmount(amount, *intent.Amount) {
			return false
		}
	}

	return true
}

func matchesYear(years []int, res domain.SearchResult) bool {
	candidateYear := 0
	if !res.ClaimDate.IsZero() {
		candidateYear = res.ClaimDate.Year()
	} else if y, err := strconv.Atoi(res.Metadata["year"]); err == nil {
		candidateYear = y
	}
	for _, year := range years {
		if year == candidateYear {
			return true
		}
	}
	return false
}

func matchesQuarter(quarters []int, res domain.SearchResult) bool {
	candidateQuarter := 0
	if !res.ClaimDate.IsZero() {
		candidateQuarter = int(res.ClaimDate.Month()-1)/3 + 1
	} else if q, err := strconv.Atoi(res.Metadata["quarter"]); err == nil {
		candidateQuarter = q
	}
	for _, quarter := range quarters {
		if quarter == candidateQuarter {
			return true
		}
	}
	return false
}

func containsFoldAny(value string, terms []string) bool {
	lower := strings.ToLower(value)
	for _, term := range terms {
		if strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

func compareAmount(amount float64, threshold domain.AmountThreshold) bool {
	switch threshold.Comparator {
	case domain.AmountOver:
		return amount > threshold.Value
	case domain.AmountAtLeast:
		return amount >= threshold.Value
	case domain.AmountUnder:
		return amount < threshold.Value
	case domain.AmountAtMost:
		return amount <= threshold.Value
	default:
		return true
	}
}
