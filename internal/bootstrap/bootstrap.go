package bootstrap

import (
	"context"
	"fmt"

	httpadapter "github.com/dmarkin/fusionrag/internal/adapters/http"
	"github.com/dmarkin/fusionrag/internal/config"
	"github.com/dmarkin/fusionrag/internal/core/domain"
	"github.com/dmarkin/fusionrag/internal/core/ports"
	"github.com/dmarkin/fusionrag/internal/core/usecase"
	"github.com/dmarkin/fusionrag/internal/infrastructure/llm/ollama"
	natsqueue "github.com/dmarkin/fusionrag/internal/infrastructure/queue/nats"
	"github.com/dmarkin/fusionrag/internal/infrastructure/resilience"
	"github.com/dmarkin/fusionrag/internal/infrastructure/source"
	neo4jsource "github.com/dmarkin/fusionrag/internal/infrastructure/source/neo4j"
	pgsource "github.com/dmarkin/fusionrag/internal/infrastructure/source/postgres"
	qdrantsource "github.com/dmarkin/fusionrag/internal/infrastructure/source/qdrant"
	"github.com/dmarkin/fusionrag/internal/infrastructure/source/variant"
	"github.com/dmarkin/fusionrag/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Service ports.RetrievalService
	Metrics *metrics.HTTPServerMetrics
	Router  *httpadapter.Router

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	serverMetrics := metrics.NewHTTPServerMetrics("api")

	policy := resilience.DefaultConfig()
	policy.RateLimitRPS = cfg.SourceRateLimitRPS
	policy.RateLimitBurst = cfg.SourceRateLimitBurst
	executor := resilience.NewExecutor(policy)

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel)
	embedder := ollama.NewEmbedder(ollamaClient)
	rewriter := ollama.NewRewriter(ollamaClient)
	classifier := ollama.NewClassifier(ollamaClient)

	db, err := pgsource.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	lexical := pgsource.NewSource(db)
	if err := lexical.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	vector := qdrantsource.New(cfg.QdrantURL, cfg.QdrantCollection, embedder)

	closers := []func(){func() { _ = db.Close() }}
	observer := serverMetrics.FetchObserver("api")

	wrap := func(s ports.CandidateSource) ports.CandidateSource {
		return source.NewInstrumented(source.NewResilient(s, executor, nil), observer)
	}

	factual := []ports.CandidateSource{wrap(lexical), wrap(vector)}
	summarization := []ports.CandidateSource{wrap(vector), wrap(variant.New(vector, rewriter))}

	if cfg.Neo4jURI != "" {
		graph, err := neo4jsource.New(cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jIndex)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init neo4j source: %w", err)
		}
		closers = append(closers, func() { _ = graph.Close(context.Background()) })
		factual = append(factual, wrap(graph))
	}

	var delegate ports.QueryClassifier
	if cfg.RouterUseLLM {
		delegate = classifier
	}

	fallback, _ := domain.ParseQueryType(cfg.RouterFallbackType)
	router, err := usecase.NewRouter(usecase.Routes{
		domain.QueryTypeFactual:       factual,
		domain.QueryTypeSummarization: summarization,
	}, delegate, fallback)
	if err != nil {
		return nil, fmt.Errorf("init router: %w", err)
	}

	fusion, err := usecase.NewFusionEngine(cfg.FusionK)
	if err != nil {
		return nil, fmt.Errorf("init fusion engine: %w", err)
	}

	var critic usecase.Critic
	switch cfg.CriticStrategy {
	case "judgment":
		critic, err = usecase.NewJudgmentCritic(ollama.NewJudge(ollamaClient))
	default:
		critic, err = usecase.NewThresholdCritic(cfg.SufficiencyThreshold)
	}
	if err != nil {
		return nil, fmt.Errorf("init critic: %w", err)
	}

	controller, err := usecase.NewRefineController(fusion, critic, rewriter, usecase.RefineConfig{
		IterationBudget:  cfg.IterationBudget,
		PerSourceTimeout: cfg.PerSourceTimeout(),
		FetchLimit:       cfg.SourceFetchLimit,
		CriticTopN:       cfg.CriticTopN,
	})
	if err != nil {
		return nil, fmt.Errorf("init refinement controller: %w", err)
	}

	var events ports.EventPublisher
	if cfg.NATSURL != "" {
		publisher, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		closers = append(closers, publisher.Close)
		events = publisher
	}

	service, err := usecase.NewRetrieveUseCase(router, controller, events, cfg.TopKReturned)
	if err != nil {
		return nil, fmt.Errorf("init retrieve usecase: %w", err)
	}

	httpRouter := httpadapter.NewRouter(service, httpadapter.Options{
		MetricsHandler: serverMetrics.Handler(),
		Runs:           serverMetrics,
		ServiceName:    "api",
		RateLimitRPS:   cfg.APIRateLimitRPS,
		RateLimitBurst: cfg.APIRateLimitBurst,
		MaxConcurrent:  cfg.APIMaxConcurrent,
	})

	return &App{
		Config:  cfg,
		Service: service,
		Metrics: serverMetrics,
		Router:  httpRouter,

		closeFn: func() {
			for _, closeOne := range closers {
				closeOne()
			}
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
