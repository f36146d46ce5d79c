package pipeline

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"claims-orchestrator/internal/domain"
)

// RankConfig holds the composite scoring knobs. Raw vector similarity alone
// is not precise enough for numeric/categorical filters, so exact metadata
// agreement must dominate once a minimum similarity floor is met.
type RankConfig struct {
	// SimilarityFloor gates every bonus: below it a candidate keeps its
	// raw score untouched.
	SimilarityFloor float32
	// FieldBonus is added once per exactly-matched metadata field.
	FieldBonus float32
	// RecencyBonusMax is the ceiling of the distance-decayed recency bonus.
	RecencyBonusMax float32
	// RecencyHalfLifeDays controls how fast the recency bonus decays.
	RecencyHalfLifeDays float64
	// SourceBonus is added to candidates from the plan's first source.
	SourceBonus float32
}

// Ranker reorders merged candidates by metadata-aware composite score.
type Ranker struct {
	cfg RankConfig
	now func() time.Time
}

// NewRanker builds a ranker; the clock is injected for deterministic tests.
func NewRanker(cfg RankConfig, now func() time.Time) *Ranker {
	return &Ranker{cfg: cfg, now: now}
}

// Rank recomputes every candidate's composite score in place and sorts the
// set. Ranking is deterministic: equal composites are broken by more recent
// date, then by lexicographic identifier.
func (r *Ranker) Rank(rs *domain.ResultSet, intent domain.Intent, plan domain.SourcePlan) {
	var prioritySource domain.SourceTag
	if len(plan.Steps) > 0 {
		prioritySource = plan.Steps[0].Source
	}

	for i := range rs.Candidates {
		rs.Candidates[i].Composite = r.composite(rs.Candidates[i], intent, prioritySource)
	}

	sort.SliceStable(rs.Candidates, func(i, j int) bool {
		a, b := rs.Candidates[i], rs.Candidates[j]
		if a.Composite != b.Composite {
			return a.Composite > b.Composite
		}
		if !a.ClaimDate.Equal(b.ClaimDate) {
			return a.ClaimDate.After(b.ClaimDate)
		}
		return a.ID < b.ID
	})
}

func (r *Ranker) composite(c domain.Candidate, intent domain.Intent, prioritySource domain.SourceTag) float32 {
	base := float32(float64(c.RawScore) * c.VariantWeight)
	if c.RawScore < r.cfg.SimilarityFloor {
		return base
	}

	score := base
	score += r.cfg.FieldBonus * float32(matchedFields(c, intent))
	score += r.recencyBonus(c, intent)
	if c.Source == prioritySource {
		score += r.cfg.SourceBonus
	}
	return score
}

// matchedFields counts exact metadata agreement on status, disease and year.
func matchedFields(c domain.Candidate, intent domain.Intent) int {
	matched := 0
	if intent.Status != nil && strings.EqualFold(c.Metadata["status"], string(*intent.Status)) {
		matched++
	}
	if len(intent.Diseases) > 0 && containsFoldAny(c.Metadata["disease"], intent.Diseases) {
		matched++
	}
	if intent.Temporal != nil && len(intent.Temporal.Years) > 0 {
		if year := candidateYear(c); year != 0 {
			for _, y := range intent.Temporal.Years {
				if y == year {
					matched++
					break
				}
			}
		}
	}
	return matched
}

// recencyBonus decays with distance from the reference time: the midpoint
// of the extracted temporal range when one exists, otherwise now.
func (r *Ranker) recencyBonus(c domain.Candidate, intent domain.Intent) float32 {
	if c.ClaimDate.IsZero() || r.cfg.RecencyBonusMax <= 0 {
		return 0
	}

	reference := r.now()
	if intent.Temporal != nil && len(intent.Temporal.Years) > 0 {
		reference = temporalMidpoint(intent.Temporal)
	}

	distanceDays := math.Abs(reference.Sub(c.ClaimDate).Hours() / 24)
	decay := math.Exp(-distanceDays / r.cfg.RecencyHalfLifeDays)
	return r.cfg.RecencyBonusMax * float32(decay)
}

func temporalMidpoint(tr *domain.TemporalRange) time.Time {
	latest := tr.Years[0]
	for _, y := range tr.Years[1:] {
		if y > latest {
			latest = y
		}
	}
	return time.Date(latest, time.July, 1, 0, 0, 0, 0, time.UTC)
}

func candidateYear(c domain.Candidate) int {
	if !c.ClaimDate.IsZero() {
		return c.ClaimDate.Year()
	}
	if y, err := strconv.Atoi(c.Metadata["year"]); err == nil {
		return y
	}
	return 0
}
