package usecase_test

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
	"claims-orchestrator/internal/usecase"
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

// stubRetriever satisfies pipeline.Retriever with canned candidates.
type stubRetriever struct {
	calls  int
	result func(retrievalID string) *domain.ResultSet
}

func (s *stubRetriever) Retrieve(ctx context.Context, sc *pipeline.StageContext, sources []domain.SourceTag, k int) *domain.ResultSet {
	s.calls++
	return s.result(sc.RetrievalID)
}

func testClock() time.Time {
	return time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newPipelineUsecase(gateway pipeline.Retriever, claims domain.ClaimIndex) usecase.RetrieveRankedUsecase {
	cfg := usecase.DefaultPipelineConfig()
	vocab := pipeline.DefaultVocabulary()
	extractor := pipeline.NewExtractor(vocab, testClock)
	constructor := pipeline.NewConstructor(vocab.DenialSynonyms, cfg.SynonymDecay, cfg.MaxVariants)
	// A floor above every raw score keeps composites equal to the weighted
	// raw scores in these tests.
	cfg.Ranking = pipeline.RankConfig{SimilarityFloor: 1.1, RecencyHalfLifeDays: 180}
	ranker := pipeline.NewRanker(cfg.Ranking, testClock)
	controller := pipeline.NewController(gateway, ranker, pipeline.ControllerConfig{
		Thresholds:         cfg.Thresholds,
		RetryKMultiplier:   cfg.RetryKMultiplier,
		RetryLatencyBudget: cfg.RetryLatencyBudget,
	}, discardLogger())

	return usecase.NewRetrieveRankedUsecase(
		extractor, constructor, gateway, ranker, controller, claims, cfg, discardLogger())
}

func strongResult(retrievalID string) *domain.ResultSet {
	return &domain.ResultSet{
		RetrievalID: retrievalID,
		Candidates: []domain.Candidate{
			{ID: "CLM2023010", Source: domain.SourceClaims, RawScore: 0.9, VariantWeight: 1.0},
			{ID: "CLM2023011", Source: domain.SourceClaims, RawScore: 0.8, VariantWeight: 1.0},
			{ID: "CLM2023012", Source: domain.SourceClaims, RawScore: 0.8, VariantWeight: 1.0},
		},
	}
}

func TestRetrieveRanked_DirectLookupBypassesSemanticSearch(t *testing.T) {
	claims := new(MockClaimIndex)
	gateway := &stubRetriever{result: strongResult}
	uc := newPipelineUsecase(gateway, claims)

	claims.On("FetchByID", mock.Anything, "CLM2024001").Return(&domain.ClaimRecord{
		ClaimID:     "CLM2024001",
		Disease:     "diabetes",
		Procedure:   "lab tests",
		Status:      domain.StatusDenied,
		ClaimAmount: 450.00,
		ClaimDate:   time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC),
		Summary:     "Lab tests for diabetes, denied for missing documentation",
	}, nil)

	output, err := uc.Execute(context.Background(), usecase.RetrieveRankedInput{
		Query: "What happened to claim CLM2024001?",
	})

	require.NoError(t, err)
	assert.True(t, output.Intent.DirectLookup)
	require.Len(t, output.Result.Candidates, 1)
	assert.Equal(t, "CLM2024001", output.Result.Candidates[0].ID)
	assert.Equal(t, domain.VerdictHigh, output.Result.Verdict)
	assert.Equal(t, []domain.CorrectiveAction{domain.ActionDirectLookup}, output.Result.Actions)
	assert.Zero(t, gateway.calls)
}

func TestRetrieveRanked_DirectLookupMissFallsThrough(t *testing.T) {
	claims := new(MockClaimIndex)
	gateway := &stubRetriever{result: strongResult}
	uc := newPipelineUsecase(gateway, claims)

	claims.On("FetchByID", mock.Anything, "CLM2029999").Return(nil, nil)

	output, err := uc.Execute(context.Background(), usecase.RetrieveRankedInput{
		Query: "What happened to claim CLM2029999?",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, gateway.calls)
	assert.Equal(t, domain.OutcomeAccepted, output.Result.Outcome)
	assert.Len(t, output.Result.Candidates, 3)
}

func TestRetrieveRanked_DirectLookupErrorFallsThrough(t *testing.T) {
	claims := new(MockClaimIndex)
	gateway := &stubRetriever{result: strongResult}
	uc := newPipelineUsecase(gateway, claims)

	claims.On("FetchByID", mock.Anything, "CLM2024001").Return(nil, errors.New("db down"))

	output, err := uc.Execute(context.Background(), usecase.RetrieveRankedInput{
		Query: "Details for CLM2024001",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, gateway.calls)
	assert.NotEmpty(t, output.Result.Candidates)
}

func TestRetrieveRanked_EmptyQueryRejected(t *testing.T) {
	claims := new(MockClaimIndex)
	gateway := &stubRetriever{result: strongResult}
	uc := newPipelineUsecase(gateway, claims)

	_, err := uc.Execute(context.Background(), usecase.RetrieveRankedInput{Query: "   "})

	assert.Error(t, err)
	assert.Zero(t, gateway.calls)
}

func TestRetrieveRanked_SemanticPathAcceptsStrongSet(t *testing.T) {
	claims := new(MockClaimIndex)
	gateway := &stubRetriever{result: strongResult}
	uc := newPipelineUsecase(gateway, claims)

	output, err := uc.Execute(context.Background(), usecase.RetrieveRankedInput{
		Query: "denied claims for diabetes in 2023",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.CategorySpecific, output.Intent.Category)
	assert.Equal(t, domain.VerdictHigh, output.Result.Verdict)
	assert.Equal(t, domain.OutcomeAccepted, output.Result.Outcome)
	assert.Equal(t, 1, gateway.calls)
	claims.AssertNotCalled(t, "FetchByID", mock.Anything, mock.Anything)
}
