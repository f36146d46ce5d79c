package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"claims-orchestrator/internal/domain"
)

const maxHistoryMessages = 6

// AnswerQueryInput encapsulates the parameters that drive an answer request.
type AnswerQueryInput struct {
	Query   string
	History []domain.ChatMessage
}

// AnswerQueryOutput is the normalized answer response returned to API clients.
type AnswerQueryOutput struct {
	Answer        string
	Result        *domain.ResultSet
	Intent        domain.Intent
	LowConfidence bool
	Fallback      bool
	Reason        string
	Debug         AnswerDebug
}

// AnswerDebug surfaces metadata that aids troubleshooting.
type AnswerDebug struct {
	RetrievalID   string
	PromptVersion string
}

// AnswerQueryUsecase defines the contract for generating grounded answers
// over the retrieval decision pipeline.
type AnswerQueryUsecase interface {
	Execute(ctx context.Context, input AnswerQueryInput) (*AnswerQueryOutput, error)
}

type answerQueryUsecase struct {
	retrieve      RetrieveRankedUsecase
	promptBuilder PromptBuilder
	llmClient     domain.LLMClient
	cache         *lru.Cache[string, *AnswerQueryOutput]
	maxTokens     int
	promptVersion string
	logger        *slog.Logger
	tracer        trace.Tracer
}

// AnswerQueryOption customizes the usecase at construction time.
type AnswerQueryOption func(*answerQueryUsecase)

// WithAnswerCache enables an in-memory LRU over finished answers. Only
// history-free queries are cached; a conversation turn depends on its
// history and is never reused.
func WithAnswerCache(size int) AnswerQueryOption {
	return func(u *answerQueryUsecase) {
		cache, err := lru.New[string, *AnswerQueryOutput](size)
		if err != nil {
			u.logger.Warn("answer_cache_disabled", slog.String("error", err.Error()))
			return
		}
		u.cache = cache
	}
}

// NewAnswerQueryUsecase wires together the components needed to answer a query.
func NewAnswerQueryUsecase(
	retrieve RetrieveRankedUsecase,
	promptBuilder PromptBuilder,
	llmClient domain.LLMClient,
	maxTokens int,
	promptVersion string,
	logger *slog.Logger,
	opts ...AnswerQueryOption,
) AnswerQueryUsecase {
	u := &answerQueryUsecase{
		retrieve:      retrieve,
		promptBuilder: promptBuilder,
		llmClient:     llmClient,
		maxTokens:     maxTokens,
		promptVersion: promptVersion,
		logger:        logger,
		tracer:        otel.Tracer("claims-orchestrator/usecase"),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *answerQueryUsecase) Execute(ctx context.Context, input AnswerQueryInput) (*AnswerQueryOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	ctx, span := u.tracer.Start(ctx, "answer_query")
	defer span.End()

	cacheKey := strings.ToLower(query)
	cacheable := u.cache != nil && len(input.History) == 0
	if cacheable {
		if cached, ok := u.cache.Get(cacheKey); ok {
			u.logger.Info("answer_cache_hit", slog.String("retrieval_id", cached.Debug.RetrievalID))
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		}
	}

	retrieved, err := u.retrieve.Execute(ctx, RetrieveRankedInput{Query: query})
	if err != nil {
		return nil, fmt.Errorf("retrieval pipeline failed: %w", err)
	}

	result := retrieved.Result
	lowConfidence := result.Outcome == domain.OutcomeAcceptedLowConfidence
	span.SetAttributes(
		attribute.String("retrieval.id", result.RetrievalID),
		attribute.String("retrieval.verdict", string(result.Verdict)),
		attribute.Int("retrieval.candidate_count", len(result.Candidates)),
	)

	if len(result.Candidates) == 0 {
		return u.prepareFallback(retrieved, lowConfidence, "no candidates retrieved"), nil
	}

	prompt, err := u.promptBuilder.Build(PromptInput{
		Query:         query,
		PromptVersion: u.promptVersion,
		Candidates:    result.Candidates,
		LowConfidence: lowConfidence,
	})
	if err != nil {
		return u.prepareFallback(retrieved, lowConfidence, fmt.Sprintf("prompt build failed: %v", err)), nil
	}

	history := input.History
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}

	llmResp, err := u.llmClient.Generate(ctx, prompt, history, u.maxTokens)
	if err != nil {
		u.logger.Warn("generation_failed",
			slog.String("retrieval_id", result.RetrievalID),
			slog.String("error", err.Error()))
		return u.prepareFallback(retrieved, lowConfidence, fmt.Sprintf("llm generation failed: %v", err)), nil
	}
	if llmResp == nil || strings.TrimSpace(llmResp.Text) == "" {
		u.logger.Warn("generation_empty", slog.String("retrieval_id", result.RetrievalID))
		return u.prepareFallback(retrieved, lowConfidence, "empty llm response"), nil
	}

	output := &AnswerQueryOutput{
		Answer:        strings.TrimSpace(llmResp.Text),
		Result:        result,
		Intent:        retrieved.Intent,
		LowConfidence: lowConfidence,
		Debug: AnswerDebug{
			RetrievalID:   result.RetrievalID,
			PromptVersion: u.promptVersion,
		},
	}
	if cacheable {
		u.cache.Add(cacheKey, output)
	}
	return output, nil
}

// prepareFallback returns the degraded envelope. Generation trouble never
// becomes an error; the caller still receives the retrieved set.
func (u *answerQueryUsecase) prepareFallback(retrieved *RetrieveRankedOutput, lowConfidence bool, reason string) *AnswerQueryOutput {
	return &AnswerQueryOutput{
		Answer:        "",
		Result:        retrieved.Result,
		Intent:        retrieved.Intent,
		LowConfidence: lowConfidence,
		Fallback:      true,
		Reason:        reason,
		Debug: AnswerDebug{
			RetrievalID:   retrieved.Result.RetrievalID,
			PromptVersion: u.promptVersion,
		},
	}
}
