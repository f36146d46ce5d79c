package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"claims-orchestrator/internal/domain"
	"claims-orchestrator/internal/usecase/pipeline"
)

// MockClaimIndex
type MockClaimIndex struct {
	mock.Mock
}

func (m *MockClaimIndex) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.SearchResult, error) {
	args := m.Called(ctx, queryVector, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SearchResult), args.Error(1)
}

func (m *MockClaimIndex) FetchByID(ctx context.Context, claimID string) (*domain.ClaimRecord, error) {
	args := m.Called(ctx, claimID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ClaimRecord), args.Error(1)
}

// MockPolicyIndex
type MockPolicyIndex struct {
	mock.Mock
}

func (m *MockPolicyIndex) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.SearchResult, error) {
	args := m.Called(ctx, queryVector, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SearchResult), args.Error(1)
}

// MockVectorEncoder
type MockVectorEncoder struct {
	mock.Mock
}

func (m *MockVectorEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockVectorEncoder) Version() string {
	return "mock-v1"
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func singleVariantContext() *pipeline.StageContext {
	return &pipeline.StageContext{
		RetrievalID: "ret-1",
		Query:       "denied claims",
		Variants: []domain.QueryVariant{
			{Text: "denied claims", Origin: domain.VariantOriginal, Weight: 1.0},
		},
		SearchK:    10,
		MaxSearchK: 50,
	}
}

func TestGatewayRetrieve_MergesBestRawScorePerDuplicate(t *testing.T) {
	claims := new(MockClaimIndex)
	policies := new(MockPolicyIndex)
	encoder := new(MockVectorEncoder)
	gateway := pipeline.NewGateway(claims, policies, encoder, testLogger())

	ctx := context.Background()
	sc := singleVariantContext()
	sc.Variants = append(sc.Variants, domain.QueryVariant{
		Text: "rejected claims", Origin: domain.VariantSynonymExpanded, Weight: 0.8,
	})

	vecA := []float32{0.1}
	vecB := []float32{0.2}
	encoder.On("Encode", mock.Anything, []string{"denied claims", "rejected claims"}).
		Return([][]float32{vecA, vecB}, nil)

	// The same claim comes back from both variants with different scores:
	// the decayed variant finds it with the higher raw score.
	claims.On("Search", mock.Anything, vecA, 10).Return([]domain.SearchResult{
		{ID: "CLM2024001", Content: "claim one", Score: 0.9},
	}, nil)
	claims.On("Search", mock.Anything, vecB, 10).Return([]domain.SearchResult{
		{ID: "CLM2024001", Content: "claim one", Score: 0.95},
	}, nil)

	rs := gateway.Retrieve(ctx, sc, []domain.SourceTag{domain.SourceClaims}, 10)

	require.Len(t, rs.Candidates, 1)
	// The best raw score survives even though it came from the decayed
	// variant, and the best variant weight is carried alongside it.
	assert.Equal(t, float32(0.95), rs.Candidates[0].RawScore)
	assert.Equal(t, 1.0, rs.Candidates[0].VariantWeight)
}

func TestGatewayRetrieve_EncoderFailureDegrades(t *testing.T) {
	claims := new(MockClaimIndex)
	policies := new(MockPolicyIndex)
	encoder := new(MockVectorEncoder)
	gateway := pipeline.NewGateway(claims, policies, encoder, testLogger())

	encoder.On("Encode", mock.Anything, mock.Anything).
		Return(nil, errors.New("embedder down"))

	rs := gateway.Retrieve(context.Background(), singleVariantContext(), []domain.SourceTag{domain.SourceClaims}, 10)

	assert.Empty(t, rs.Candidates)
	assert.Equal(t, domain.VerdictLow, rs.Verdict)
	assert.Contains(t, rs.Actions, domain.ActionRetrievalFailed)
	claims.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
}

func TestGatewayRetrieve_AllSearchesFailedDegrades(t *testing.T) {
	claims := new(MockClaimIndex)
	policies := new(MockPolicyIndex)
	encoder := new(MockVectorEncoder)
	gateway := pipeline.NewGateway(claims, policies, encoder, testLogger())

	vec := []float32{0.1}
	encoder.On("Encode", mock.Anything, mock.Anything).Return([][]float32{vec}, nil)
	claims.On("Search", mock.Anything, vec, 10).Return(nil, errors.New("index unavailable"))

	rs := gateway.Retrieve(context.Background(), singleVariantContext(), []domain.SourceTag{domain.SourceClaims}, 10)

	assert.Empty(t, rs.Candidates)
	assert.Equal(t, domain.VerdictLow, rs.Verdict)
	assert.Contains(t, rs.Actions, domain.ActionRetrievalFailed)
}

func TestGatewayRetrieve_PartialFailureTolerated(t *testing.T) {
	claims := new(MockClaimIndex)
	policies := new(MockPolicyIndex)
	encoder := new(MockVectorEncoder)
	gateway := pipeline.NewGateway(claims, policies, encoder, testLogger())

	vec := []float32{0.1}
	encoder.On("Encode", mock.Anything, mock.Anything).Return([][]float32{vec}, nil)
	claims.On("Search", mock.Anything, vec, 10).Return([]domain.SearchResult{
		{ID: "CLM2024002", Content: "claim two", Score: 0.8},
	}, nil)
	policies.On("Search", mock.Anything, vec, 10).Return(nil, errors.New("index unavailable"))

	rs := gateway.Retrieve(context.Background(), singleVariantContext(),
		[]domain.SourceTag{domain.SourceClaims, domain.SourcePolicies}, 10)

	require.Len(t, rs.Candidates, 1)
	assert.Equal(t, "CLM2024002", rs.Candidates[0].ID)
	assert.NotContains(t, rs.Actions, domain.ActionRetrievalFailed)
}

func TestGatewayRetrieve_HardFiltersOnClaimsOnly(t *testing.T) {
	claims := new(MockClaimIndex)
	policies := new(MockPolicyIndex)
	encoder := new(MockVectorEncoder)
	gateway := pipeline.NewGateway(claims, policies, encoder, testLogger())

	sc := singleVariantContext()
	denied := domain.StatusDenied
	sc.Intent = domain.Intent{
		Category: domain.CategoryStatistical,
		Status:   &denied,
		Temporal: &domain.TemporalRange{Years: []int{2023}},
	}

	vec := []float32{0.1}
	encoder.On("Encode", mock.Anything, mock.Anything).Return([][]float32{vec}, nil)
	claims.On("Search", mock.Anything, vec, 10).Return([]domain.SearchResult{
		{
			ID:        "CLM2023001",
			Metadata:  map[string]string{"status": "Denied"},
			ClaimDate: time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC),
			Score:     0.9,
		},
		{
			ID:        "CLM2023002",
			Metadata:  map[string]string{"status": "Approved"},
			ClaimDate: time.Date(2023, time.March, 2, 0, 0, 0, 0, time.UTC),
			Score:     0.95,
		},
		{
			ID:        "CLM2024003",
			Metadata:  map[string]string{"status": "Denied"},
			ClaimDate: time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC),
			Score:     0.85,
		},
	}, nil)
	// Policy chunks carry no claim metadata and must pass through untouched.
	policies.On("Search", mock.Anything, vec, 10).Return([]domain.SearchResult{
		{ID: "chunk-1", Content: "policy text", Score: 0.7},
	}, nil)

	rs := gateway.Retrieve(context.Background(), sc,
		[]domain.SourceTag{domain.SourceClaims, domain.SourcePolicies}, 10)

	require.Len(t, rs.Candidates, 2)
	assert.Equal(t, "CLM2023001", rs.Candidates[0].ID)
	assert.Equal(t, domain.SourceClaims, rs.Candidates[0].Source)
	assert.Equal(t, "chunk-1", rs.Candidates[1].ID)
	assert.Equal(t, domain.SourcePolicies, rs.Candidates[1].Source)
}
