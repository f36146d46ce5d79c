package di

import (
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"claims-orchestrator/internal/adapter/llm"
	"claims-orchestrator/internal/adapter/repository"
	"claims-orchestrator/internal/domain"
	"claims-orchestrator/internal/infra/config"
	"claims-orchestrator/internal/infra/httpclient"
	"claims-orchestrator/internal/usecase"
	"claims-orchestrator/internal/usecase/pipeline"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	// Indices
	ClaimIndex  domain.ClaimIndex
	PolicyIndex domain.PolicyIndex

	// Usecases
	RetrieveUsecase usecase.RetrieveRankedUsecase
	AnswerUsecase   usecase.AnswerQueryUsecase
}

// NewApplicationComponents wires all dependencies from config and database pool.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, log *slog.Logger) *ApplicationComponents {
	// Indices
	claimIndex := repository.NewClaimIndexRepository(pool)
	policyIndex := repository.NewPolicyIndexRepository(pool)

	// Shared HTTP clients with connection pooling
	embedderHTTP := httpclient.NewPooledClient(time.Duration(cfg.Embedder.Timeout) * time.Second)
	groqHTTP := httpclient.NewPooledClient(time.Duration(cfg.Groq.Timeout) * time.Second)

	// External clients
	embedder := llm.NewOllamaEmbedder(cfg.Embedder.URL, cfg.Embedder.Model, embedderHTTP)
	generator := llm.NewGroqGenerator(cfg.Groq.URL, cfg.Groq.Model, cfg.Groq.APIKey,
		cfg.Groq.RequestsPerMinute, groqHTTP)

	// Pipeline config
	pipelineCfg := usecase.DefaultPipelineConfig()
	pipelineCfg.SearchK = cfg.Pipeline.SearchK
	pipelineCfg.MaxSearchK = cfg.Pipeline.MaxSearchK
	pipelineCfg.RetryKMultiplier = cfg.Pipeline.RetryKMultiplier
	pipelineCfg.MaxVariants = cfg.Pipeline.MaxVariants
	pipelineCfg.SynonymDecay = cfg.Pipeline.SynonymDecay
	pipelineCfg.RetryLatencyBudget = time.Duration(cfg.Pipeline.RetryLatencyBudget) * time.Millisecond

	// Pipeline stages
	vocab := pipeline.DefaultVocabulary()
	extractor := pipeline.NewExtractor(vocab, time.Now)
	constructor := pipeline.NewConstructor(vocab.DenialSynonyms, pipelineCfg.SynonymDecay, pipelineCfg.MaxVariants)
	gateway := pipeline.NewGateway(claimIndex, policyIndex, embedder, log)
	ranker := pipeline.NewRanker(pipelineCfg.Ranking, time.Now)
	controller := pipeline.NewController(gateway, ranker, pipeline.ControllerConfig{
		Thresholds:         pipelineCfg.Thresholds,
		RetryKMultiplier:   pipelineCfg.RetryKMultiplier,
		RetryLatencyBudget: pipelineCfg.RetryLatencyBudget,
	}, log)

	// Usecases
	retrieveUsecase := usecase.NewRetrieveRankedUsecase(
		extractor, constructor, gateway, ranker, controller,
		claimIndex, pipelineCfg, log,
	)

	promptBuilder := usecase.NewXMLPromptBuilder()
	answerUsecase := usecase.NewAnswerQueryUsecase(
		retrieveUsecase, promptBuilder, generator,
		cfg.Pipeline.MaxTokens, cfg.Pipeline.PromptVersion, log,
		usecase.WithAnswerCache(cfg.Cache.Size),
	)

	return &ApplicationComponents{
		ClaimIndex:      claimIndex,
		PolicyIndex:     policyIndex,
		RetrieveUsecase: retrieveUsecase,
		AnswerUsecase:   answerUsecase,
	}
}
