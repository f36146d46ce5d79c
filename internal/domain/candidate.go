package domain

import "time"

// SourceTag identifies which index a candidate came from.
type SourceTag string

const (
	// SourceClaims is the structured claim-record index.
	SourceClaims SourceTag = "claims"
	// SourcePolicies is the unstructured policy-document index.
	SourcePolicies SourceTag = "policies"
)

// SourcePlanStep is one source to consult, in plan order.
type SourcePlanStep struct {
	Source   SourceTag
	Required bool
}

// SourcePlan is the ordered set of sources the router selected for a query.
// DirectLookup signals an identifier fetch that bypasses semantic retrieval.
type SourcePlan struct {
	Steps        []SourcePlanStep
	DirectLookup bool
}

// RequiredSources returns the sources consulted on the first retrieval pass.
func (p SourcePlan) RequiredSources() []SourceTag {
	var tags []SourceTag
	for _, step := range p.Steps {
		if step.Required {
			tags = append(tags, step.Source)
		}
	}
	return tags
}

// AllSources returns every source in plan order, optional ones included.
func (p SourcePlan) AllSources() []SourceTag {
	tags := make([]SourceTag, 0, len(p.Steps))
	for _, step := range p.Steps {
		tags = append(tags, step.Source)
	}
	return tags
}

// HasOptional reports whether the plan holds at least one optional source.
func (p SourcePlan) HasOptional() bool {
	for _, step := range p.Steps {
		if !step.Required {
			return true
		}
	}
	return false
}

// VariantOrigin records how a query variant was produced.
type VariantOrigin string

const (
	VariantOriginal        VariantOrigin = "original"
	VariantSynonymExpanded VariantOrigin = "synonym-expanded"
	VariantFilterNarrowed  VariantOrigin = "filter-narrowed"
)

// QueryVariant is one retrieval phrasing of the user query.
// Variants are produced fresh per query and never persisted.
type QueryVariant struct {
	Text   string
	Origin VariantOrigin
	Weight float64 // in [0,1]; the original query is always 1.0
}

// Candidate is a single retrieved item.
// RawScore is immutable once returned from retrieval; Composite is owned by
// the ranker and zero until ranking runs.
type Candidate struct {
	ID        string
	Source    SourceTag
	Content   string
	Metadata  map[string]string
	ClaimDate time.Time // zero for policy chunks
	RawScore  float32
	// VariantWeight is the weight of the best query variant that retrieved
	// this item; the ranker uses it to favor original-query hits.
	VariantWeight float64
	Composite     float32
}

// QualityVerdict grades a ranked result set.
type QualityVerdict string

const (
	VerdictHigh   QualityVerdict = "high"
	VerdictMedium QualityVerdict = "medium"
	VerdictLow    QualityVerdict = "low"
)

// CorrectiveAction is one step the corrective controller took on a result set.
type CorrectiveAction string

const (
	ActionNone             CorrectiveAction = "none"
	ActionFilterLowScores  CorrectiveAction = "filter_low_scores"
	ActionExpandSearch     CorrectiveAction = "expand_search"
	ActionVerifyAndSurface CorrectiveAction = "verify_and_surface"
	ActionDirectLookup     CorrectiveAction = "direct_lookup"
	ActionRetrievalFailed  CorrectiveAction = "retrieval_failed"
)

// Outcome is the terminal state of the corrective loop.
type Outcome string

const (
	OutcomeAccepted              Outcome = "accepted"
	OutcomeAcceptedLowConfidence Outcome = "accepted_with_low_confidence"
)

// ResultSet is the ordered candidate set for one query, together with its
// quality verdict and the log of corrective actions applied to it.
// It lives for a single query-answer cycle and is never persisted.
type ResultSet struct {
	RetrievalID string
	Candidates  []Candidate
	Verdict     QualityVerdict
	Actions     []CorrectiveAction
	Outcome     Outcome
}

// RecordAction appends a corrective action to the set's history.
func (rs *ResultSet) RecordAction(action CorrectiveAction) {
	rs.Actions = append(rs.Actions, action)
}

// TopScore returns the best composite score, or zero for an empty set.
func (rs *ResultSet) TopScore() float32 {
	if len(rs.Candidates) == 0 {
		return 0
	}
	return rs.Candidates[0].Composite
}
