package usecase

import (
	"fmt"
	"time"

	"claims-orchestrator/internal/usecase/pipeline"
)

// PipelineConfig holds every tunable parameter of the retrieval decision
// pipeline. The threshold and bonus values are policy choices, so they are
// configuration with validated defaults rather than hard-coded constants.
type PipelineConfig struct {
	// SearchK is the per-(source, variant) candidate count on the first pass.
	SearchK int
	// MaxSearchK is the hard ceiling k can reach on the expansion retry.
	MaxSearchK int
	// RetryKMultiplier widens k on the single expansion retry.
	RetryKMultiplier int
	// MaxVariants caps query-expansion fan-out.
	MaxVariants int
	// SynonymDecay is the weight decay applied per expansion step.
	SynonymDecay float64
	// RetryLatencyBudget is the minimum remaining deadline required before
	// the controller attempts its one retry.
	RetryLatencyBudget time.Duration

	Thresholds pipeline.QualityThresholds
	Ranking    pipeline.RankConfig
}

// DefaultPipelineConfig returns the current defaults. These should be tuned
// against production traffic; treat them as starting points.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		SearchK:            10,
		MaxSearchK:         50,
		RetryKMultiplier:   2,
		MaxVariants:        5,
		SynonymDecay:       0.8,
		RetryLatencyBudget: 2 * time.Second,
		Thresholds: pipeline.QualityThresholds{
			High:          0.75,
			Middle:        0.45,
			Low:           0.30,
			MinCandidates: 3,
			TopK:          10,
		},
		Ranking: pipeline.RankConfig{
			SimilarityFloor:     0.25,
			FieldBonus:          0.15,
			RecencyBonusMax:     0.10,
			RecencyHalfLifeDays: 180,
			SourceBonus:         0.05,
		},
	}
}

// Validate checks the configuration values are coherent.
func (c PipelineConfig) Validate() error {
	if c.SearchK <= 0 {
		return fmt.Errorf("searchK must be positive, got %d", c.SearchK)
	}
	if c.MaxSearchK < c.SearchK {
		return fmt.Errorf("maxSearchK (%d) must be >= searchK (%d)", c.MaxSearchK, c.SearchK)
	}
	if c.RetryKMultiplier < 1 {
		return fmt.Errorf("retryKMultiplier must be >= 1, got %d", c.RetryKMultiplier)
	}
	if c.MaxVariants < 1 {
		return fmt.Errorf("maxVariants must be >= 1, got %d", c.MaxVariants)
	}
	if c.SynonymDecay <= 0 || c.SynonymDecay > 1 {
		return fmt.Errorf("synonymDecay must be in (0, 1], got %f", c.SynonymDecay)
	}
	t := c.Thresholds
	if !(t.Low <= t.Middle && t.Middle <= t.High) {
		return fmt.Errorf("thresholds must be ordered low <= middle <= high, got %f/%f/%f", t.Low, t.Middle, t.High)
	}
	if t.MinCandidates < 1 {
		return fmt.Errorf("minCandidates must be >= 1, got %d", t.MinCandidates)
	}
	if c.Ranking.RecencyHalfLifeDays <= 0 {
		return fmt.Errorf("recencyHalfLifeDays must be positive, got %f", c.Ranking.RecencyHalfLifeDays)
	}
	return nil
}
