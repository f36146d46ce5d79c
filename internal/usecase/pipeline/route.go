package pipeline

import "claims-orchestrator/internal/domain"

// Route decides which retrieval sources to consult for an intent, and in
// what order. Structured numeric/claim questions are answered from the
// claims index; the document index is reserved for policy language or as a
// fallback enrichment source so loosely-relevant prose does not dilute
// precise answers.
func Route(intent domain.Intent) domain.SourcePlan {
	switch intent.Category {
	case domain.CategoryPolicy:
		return domain.SourcePlan{
			Steps: []domain.SourcePlanStep{
				{Source: domain.SourcePolicies, Required: true},
			},
		}
	case domain.CategorySpecific:
		plan := domain.SourcePlan{
			Steps: []domain.SourcePlanStep{
				{Source: domain.SourceClaims, Required: true},
			},
		}
		// A direct identifier bypasses semantic retrieval; the claims
		// store is fetched by ID outside the ranking loop.
		plan.DirectLookup = intent.DirectLookup
		return plan
	default: // statistical, general
		return domain.SourcePlan{
			Steps: []domain.SourcePlanStep{
				{Source: domain.SourceClaims, Required: true},
				// Consulted only when claims-index quality comes back
				// medium or low.
				{Source: domain.SourcePolicies, Required: false},
			},
		}
	}
}
