package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claims-orchestrator/internal/domain"
	"claims-orchestrator/internal/usecase/pipeline"
)

func TestRoute_PolicyNeverTouchesClaimsIndex(t *testing.T) {
	plan := pipeline.Route(domain.Intent{Category: domain.CategoryPolicy})

	require.Len(t, plan.Steps, 1)
	assert.Equal(t, domain.SourcePolicies, plan.Steps[0].Source)
	assert.True(t, plan.Steps[0].Required)
	assert.False(t, plan.DirectLookup)
}

func TestRoute_SpecificIsClaimsOnly(t *testing.T) {
	plan := pipeline.Route(domain.Intent{Category: domain.CategorySpecific})

	require.Len(t, plan.Steps, 1)
	assert.Equal(t, domain.SourceClaims, plan.Steps[0].Source)
	assert.False(t, plan.DirectLookup)
}

func TestRoute_DirectLookupCarriedThrough(t *testing.T) {
	plan := pipeline.Route(domain.Intent{
		Category:     domain.CategorySpecific,
		DirectLookup: true,
		ClaimID:      "CLM2024001",
	})

	assert.True(t, plan.DirectLookup)
	assert.Equal(t, []domain.SourceTag{domain.SourceClaims}, plan.RequiredSources())
}

func TestRoute_StatisticalAndGeneralAddOptionalPolicies(t *testing.T) {
	for _, category := range []domain.QueryCategory{domain.CategoryStatistical, domain.CategoryGeneral} {
		plan := pipeline.Route(domain.Intent{Category: category})

		assert.Equal(t, []domain.SourceTag{domain.SourceClaims}, plan.RequiredSources())
		assert.Equal(t, []domain.SourceTag{domain.SourceClaims, domain.SourcePolicies}, plan.AllSources())
		assert.True(t, plan.HasOptional())
	}
}
