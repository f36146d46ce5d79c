package pipeline

import (
	"claims-orchestrator/internal/domain"
)

// StageContext carries data between pipeline stages for one query.
type StageContext struct {
	// Input
	RetrievalID string
	Query       string

	// Stage outputs
	Intent   domain.Intent
	Plan     domain.SourcePlan
	Variants []domain.QueryVariant
	Results  *domain.ResultSet

	// Config values (set once at init)
	SearchK    int
	MaxSearchK int
}
