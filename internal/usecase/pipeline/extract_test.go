package pipeline_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claims-orchestrator/internal/domain"
	"claims-orchestrator/internal/usecase/pipeline"
)

func fixedClock() time.Time {
	// 2024-05-15 sits in Q2.
	return time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)
}

func newTestExtractor() *pipeline.Extractor {
	return pipeline.NewExtractor(pipeline.DefaultVocabulary(), fixedClock)
}

func TestExtract_ClaimIDForcesDirectLookup(t *testing.T) {
	e := newTestExtractor()

	// A claim identifier wins even when aggregate vocabulary is present.
	intent := e.Extract("How many times was claim CLM2024001 resubmitted?")

	assert.Equal(t, domain.CategorySpecific, intent.Category)
	assert.True(t, intent.DirectLookup)
	assert.Equal(t, "CLM2024001", intent.ClaimID)
}

func TestExtract_ClaimIDCaseInsensitive(t *testing.T) {
	e := newTestExtractor()

	intent := e.Extract("status of clm2024001 please")

	assert.True(t, intent.DirectLookup)
	assert.Equal(t, "CLM2024001", intent.ClaimID)
}

func TestExtract_MultipleYearsAllKept(t *testing.T) {
	e := newTestExtractor()

	intent := e.Extract("compare claims from 2023 and 2024")

	require.NotNil(t, intent.Temporal)
	assert.ElementsMatch(t, []int{2023, 2024}, intent.Temporal.Years)
}

func TestExtract_QuarterMentions(t *testing.T) {
	e := newTestExtractor()

	intent := e.Extract("denied claims in Q2 2023")

	require.NotNil(t, intent.Temporal)
	assert.Equal(t, []int{2023}, intent.Temporal.Years)
	assert.Equal(t, []int{2}, intent.Temporal.Quarters)
}

func TestExtract_RelativePeriods(t *testing.T) {
	e := newTestExtractor()

	tests := []struct {
		name         string
		query        string
		wantYears    []int
		wantQuarters []int
	}{
		{"last quarter", "claims from last quarter", []int{2024}, []int{1}},
		{"this quarter", "claims from this quarter", []int{2024}, []int{2}},
		{"last year", "claims from last year", []int{2023}, nil},
		{"this year", "claims from this year", []int{2024}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := e.Extract(tt.query)
			require.NotNil(t, intent.Temporal)
			assert.Equal(t, tt.wantYears, intent.Temporal.Years)
			assert.Equal(t, tt.wantQuarters, intent.Temporal.Quarters)
		})
	}
}

func TestExtract_YearOutOfRangeIgnored(t *testing.T) {
	e := newTestExtractor()

	intent := e.Extract("claims referencing code 2099")

	assert.Nil(t, intent.Temporal)
}

func TestExtract_Status(t *testing.T) {
	e := newTestExtractor()

	tests := []struct {
		name  string
		query string
		want  *domain.ClaimStatus
	}{
		{"denied", "show denied claims", statusPtr(domain.StatusDenied)},
		{"partially approved not double counted", "partially approved claims for asthma", statusPtr(domain.StatusPartiallyApproved)},
		{"ambiguous unset", "approved versus denied claims", nil},
		{"absent", "claims for diabetes", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := e.Extract(tt.query)
			if tt.want == nil {
				assert.Nil(t, intent.Status)
			} else {
				require.NotNil(t, intent.Status)
				assert.Equal(t, *tt.want, *intent.Status)
			}
		})
	}
}

func TestExtract_Amount(t *testing.T) {
	e := newTestExtractor()

	tests := []struct {
		name           string
		query          string
		wantComparator domain.AmountComparator
		wantValue      float64
	}{
		{"over with k suffix", "claims over $5k", domain.AmountOver, 5000},
		{"more than", "claims more than 2500", domain.AmountOver, 2500},
		{"under", "claims under $300", domain.AmountUnder, 300},
		{"at least", "claims at least $1000", domain.AmountAtLeast, 1000},
		{"at most", "claims at most 750", domain.AmountAtMost, 750},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := e.Extract(tt.query)
			require.NotNil(t, intent.Amount)
			assert.Equal(t, tt.wantComparator, intent.Amount.Comparator)
			assert.Equal(t, tt.wantValue, intent.Amount.Value)
		})
	}
}

func TestExtract_CategoryPriority(t *testing.T) {
	e := newTestExtractor()

	tests := []struct {
		name  string
		query string
		want  domain.QueryCategory
	}{
		{"policy beats statistical", "what is the coverage rate for dialysis", domain.CategoryPolicy},
		{"statistical beats specific", "how many denied claims in 2023", domain.CategoryStatistical},
		{"specific vocabulary", "show me claims for diabetes", domain.CategorySpecific},
		{"concrete filter alone", "anything about diabetes in 2023", domain.CategorySpecific},
		{"unrecognized", "hello there", domain.CategoryGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := e.Extract(tt.query)
			assert.Equal(t, tt.want, intent.Category)
		})
	}
}

func TestExtract_DiseasesAndProcedures(t *testing.T) {
	e := newTestExtractor()

	intent := e.Extract("mri scan claims for diabetes and hypertension")

	assert.ElementsMatch(t, []string{"diabetes", "hypertension"}, intent.Diseases)
	assert.Equal(t, []string{"mri scan"}, intent.Procedures)
}

func TestExtract_DenialHint(t *testing.T) {
	e := newTestExtractor()

	intent := e.Extract("claims denied for missing documentation")

	assert.Equal(t, "missing documentation", intent.DenialHint)
}

func statusPtr(s domain.ClaimStatus) *domain.ClaimStatus {
	return &s
}
