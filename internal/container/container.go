// Package container implements dependency injection container setup
// Provides centralized configuration for services, repositories, and handlers
// This package is responsible for wiring up all dependencies and ensuring proper lifecycle management
package container

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"github.com/panjf2000/ants/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/fenwick-ai/ragengine/internal/application/repository"
	postgresRepo "github.com/fenwick-ai/ragengine/internal/application/repository/retriever/postgres"
	"github.com/fenwick-ai/ragengine/internal/application/service"
	"github.com/fenwick-ai/ragengine/internal/application/service/retriever"
	"github.com/fenwick-ai/ragengine/internal/config"
	"github.com/fenwick-ai/ragengine/internal/conversation"
	"github.com/fenwick-ai/ragengine/internal/enrich"
	"github.com/fenwick-ai/ragengine/internal/evaluate"
	"github.com/fenwick-ai/ragengine/internal/handler"
	"github.com/fenwick-ai/ragengine/internal/health"
	"github.com/fenwick-ai/ragengine/internal/models/embedding"
	"github.com/fenwick-ai/ragengine/internal/models/utils/ollama"
	"github.com/fenwick-ai/ragengine/internal/pipeline"
	"github.com/fenwick-ai/ragengine/internal/router"
	"github.com/fenwick-ai/ragengine/internal/search"
	"github.com/fenwick-ai/ragengine/internal/stream"
	"github.com/fenwick-ai/ragengine/internal/tracing"
	"github.com/fenwick-ai/ragengine/internal/types"
	"github.com/fenwick-ai/ragengine/internal/types/interfaces"
)

// BuildContainer constructs the dependency injection container
// Registers all components, services, repositories and handlers needed by the application
func BuildContainer(container *dig.Container) *dig.Container {
	// Register resource cleaner for proper cleanup of resources
	must(container.Provide(NewResourceCleaner, dig.As(new(interfaces.ResourceCleaner))))

	// Core infrastructure configuration
	must(container.Provide(config.LoadConfig))
	must(container.Provide(initTracer))
	must(container.Provide(initDatabase))
	must(container.Provide(initAntsPool))
	must(container.Provide(initRedisClient))

	// Register goroutine pool cleanup handler
	must(container.Invoke(registerPoolCleanup))

	// Retrieval engine registry and the composite engine the pipeline uses
	must(container.Provide(initRetrieveEngineRegistry))
	must(container.Provide(initCompositeEngine))

	// External service clients
	must(container.Provide(initOllamaService))
	must(container.Provide(initStreamManager))

	// Data repositories layer
	must(container.Provide(repository.NewCollectionRepository))
	must(container.Provide(repository.NewDocumentRepository))
	must(container.Provide(repository.NewPipelineConfigRepository))
	must(container.Provide(repository.NewPromptTemplateRepository))
	must(container.Provide(repository.NewSessionRepository))
	must(container.Provide(repository.NewMessageRepository))
	must(container.Provide(repository.NewModelRepository))

	// Business service layer
	must(container.Provide(embedding.NewBatchEmbedder))
	must(container.Provide(service.NewModelService))
	must(container.Provide(service.NewCollectionService))

	// Search pipeline and its public entry point
	must(container.Provide(initPipeline))
	must(container.Provide(initEvaluator))
	must(container.Provide(initEnricher))
	must(container.Provide(initSearchService))
	must(container.Provide(func(s *search.Service) conversation.Searcher { return s }))

	// Conversation orchestrator
	must(container.Provide(initContextService))
	must(container.Provide(initTokenizer))
	must(container.Provide(initTokenTracking))
	must(container.Provide(initConversationService))

	// Background evaluation jobs
	must(container.Provide(router.NewAsyncqClient))
	must(container.Provide(router.NewAsynqServer))
	must(container.Provide(initEvaluationQueue))
	must(container.Provide(func(q *evaluate.JobQueue) interfaces.EvaluationJobStore { return q }))
	must(container.Provide(evaluate.NewWorker))

	// Dependency health framework
	must(container.Provide(initHealthChecker))

	// HTTP handlers layer
	must(container.Provide(handler.NewSearchHandler))
	must(container.Provide(handler.NewCollectionHandler))
	must(container.Provide(handler.NewSessionHandler))
	must(container.Provide(handler.NewPipelineConfigHandler))
	must(container.Provide(handler.NewPromptTemplateHandler))
	must(container.Provide(handler.NewModelHandler))
	must(container.Provide(handler.NewEvaluationHandler))
	must(container.Provide(handler.NewHealthHandler))
	must(container.Provide(handler.NewSystemHandler))

	// Router configuration
	must(container.Provide(router.NewRouter))
	must(container.Invoke(router.RunAsynqServer))

	return container
}

// must is a helper function for error handling
// Panics if the error is not nil, useful for configuration steps that must succeed
func must(err error) {
	if err != nil {
		panic(err)
	}
}

// initTracer initializes the OpenTelemetry tracer.
func initTracer() (*tracing.Tracer, error) {
	return tracing.InitTracer()
}

// initDatabase initializes the database connection and migrates the
// engine's persisted entities.
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch os.Getenv("DB_DRIVER") {
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			os.Getenv("DB_HOST"),
			os.Getenv("DB_PORT"),
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_NAME"),
			"disable",
		)
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", os.Getenv("DB_DRIVER"))
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate database tables
	err = db.AutoMigrate(
		&types.Collection{},
		&types.PipelineConfig{},
		&types.PromptTemplate{},
		&types.Model{},
		&types.ConversationSession{},
		&types.ConversationMessage{},
		&types.File{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database tables: %v", err)
	}

	// Get underlying SQL DB object
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Configure connection pool parameters
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Duration(10) * time.Minute)

	return db, nil
}

// initRetrieveEngineRegistry registers the postgres/pgvector retrieval
// backend; RETRIEVE_DRIVER exists so deployments can opt out entirely.
func initRetrieveEngineRegistry(db *gorm.DB) (interfaces.RetrieveEngineRegistry, error) {
	registry := retriever.NewRetrieveEngineRegistry()
	if os.Getenv("RETRIEVE_DRIVER") == "none" {
		return registry, nil
	}
	repo := postgresRepo.NewPostgresRetrieveEngineRepository(db)
	if err := registry.Register(
		retriever.NewKVHybridRetrieveEngine(repo, types.PostgresRetrieverEngineType),
	); err != nil {
		return nil, fmt.Errorf("register postgres retrieve engine: %w", err)
	}
	return registry, nil
}

// initCompositeEngine builds the engine the retrieval stage queries,
// supporting both retriever types the postgres backend serves.
func initCompositeEngine(registry interfaces.RetrieveEngineRegistry) (*retriever.CompositeRetrieveEngine, error) {
	return retriever.NewCompositeRetrieveEngine(registry, []types.RetrieverEngineParams{
		{RetrieverEngineType: types.PostgresRetrieverEngineType, RetrieverType: types.VectorRetrieverType},
		{RetrieverEngineType: types.PostgresRetrieverEngineType, RetrieverType: types.KeywordsRetrieverType},
	})
}

// initAntsPool initializes the shared goroutine pool used by reranking
// batches and batch embedding.
func initAntsPool(cfg *config.Config) (*ants.Pool, error) {
	poolSize := os.Getenv("CONCURRENCY_POOL_SIZE")
	if poolSize == "" {
		poolSize = "5"
	}
	poolSizeInt, err := strconv.Atoi(poolSize)
	if err != nil {
		return nil, err
	}
	// Set up the pool with pre-allocation for better performance
	return ants.NewPool(poolSizeInt, ants.WithPreAlloc(true))
}

// registerPoolCleanup registers the goroutine pool for cleanup
func registerPoolCleanup(pool *ants.Pool, cleaner interfaces.ResourceCleaner) {
	cleaner.RegisterWithName("AntsPool", func() error {
		pool.Release()
		return nil
	})
}

// initRedisClient builds the shared redis client used by the evaluation job
// store; the stream manager and asynq hold their own connections.
func initRedisClient(cfg *config.Config, cleaner interfaces.ResourceCleaner) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	password := os.Getenv("REDIS_PASSWORD")
	db := 0
	if cfg.StreamManager != nil && cfg.StreamManager.Redis.Address != "" {
		addr = cfg.StreamManager.Redis.Address
		password = cfg.StreamManager.Redis.Password
		db = cfg.StreamManager.Redis.DB
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	cleaner.RegisterWithName("RedisClient", client.Close)
	return client
}

// initOllamaService initializes the Ollama client for locally served models.
func initOllamaService() (*ollama.OllamaService, error) {
	return ollama.GetOllamaService()
}

func initStreamManager(cfg *config.Config) (interfaces.StreamManager, error) {
	return stream.NewStreamManager(cfg.StreamManager)
}

func initPipeline(
	collections interfaces.CollectionRepository,
	pipelines interfaces.PipelineConfigRepository,
	templates interfaces.PromptTemplateRepository,
	messages interfaces.ConversationMessageRepository,
	models interfaces.ModelService,
	engine *retriever.CompositeRetrieveEngine,
	cleaner interfaces.ResourceCleaner,
	pool *ants.Pool,
	cfg *config.Config,
) *pipeline.Pipeline {
	return pipeline.Build(pipeline.Dependencies{
		Collections: collections,
		Pipelines:   pipelines,
		Templates:   templates,
		Messages:    messages,
		Models:      models,
		Engine:      engine,
		Cleaner:     cleaner,
		RerankPool:  pool,
		Conv:        cfg.Conversation,
		Rerank:      cfg.Rerank,
	})
}

func initEvaluator(cfg *config.Config, models interfaces.ModelService) interfaces.Evaluator {
	return evaluate.Build(cfg.Evaluation, models)
}

// initEnricher wires the MCP-style tool gateway when one is configured; a
// nil invoker leaves the enricher reporting the gateway as unavailable.
// The enricher gets its own pool sized by enrichment.max_concurrency so
// tool-call fan-out is bounded independently of the shared worker pool.
func initEnricher(cfg *config.Config, cleaner interfaces.ResourceCleaner) (*enrich.Enricher, error) {
	var invoker enrich.ToolInvoker
	if cfg.Enrichment != nil && cfg.Enrichment.GatewayURL != "" {
		invoker = enrich.NewHTTPToolInvoker(cfg.Enrichment.GatewayURL, cfg.Enrichment.GatewayTimeout)
	}

	maxConcurrent := 5
	if cfg.Enrichment != nil && cfg.Enrichment.MaxConcurrency > 0 {
		maxConcurrent = cfg.Enrichment.MaxConcurrency
	}
	pool, err := ants.NewPool(maxConcurrent)
	if err != nil {
		return nil, err
	}
	cleaner.RegisterWithName("EnrichmentPool", func() error {
		pool.Release()
		return nil
	})

	return enrich.NewEnricher(invoker, pool, cfg.Enrichment), nil
}

func initSearchService(
	p *pipeline.Pipeline,
	documents interfaces.DocumentMetadataLookup,
	evaluator interfaces.Evaluator,
	enricher *enrich.Enricher,
	cfg *config.Config,
) *search.Service {
	return search.New(p, documents, evaluator, enricher, cfg.Search)
}

func initContextService(
	messages interfaces.ConversationMessageRepository,
	cfg *config.Config,
	cleaner interfaces.ResourceCleaner,
) *conversation.ContextService {
	window := 10
	if cfg.Conversation != nil && cfg.Conversation.MaxRounds > 0 {
		window = cfg.Conversation.MaxRounds * 2
	}
	return conversation.NewContextService(messages, window, cleaner)
}

func initTokenizer(cleaner interfaces.ResourceCleaner) interfaces.Tokenizer {
	return conversation.NewWordEstimator(cleaner)
}

func initTokenTracking(cfg *config.Config) *conversation.TokenTrackingService {
	return conversation.NewTokenTrackingService(cfg.TokenTracking)
}

func initConversationService(
	sessions interfaces.ConversationRepository,
	messages interfaces.ConversationMessageRepository,
	searcher conversation.Searcher,
	models interfaces.ModelService,
	pipelines interfaces.PipelineConfigRepository,
	contextSvc *conversation.ContextService,
	tokenizer interfaces.Tokenizer,
	tracking *conversation.TokenTrackingService,
	cfg *config.Config,
) interfaces.ConversationService {
	return conversation.New(
		sessions, messages, searcher, models, pipelines,
		contextSvc, tokenizer, tracking, cfg.Conversation,
	)
}

func initEvaluationQueue(client *asynq.Client, rdb *redis.Client) *evaluate.JobQueue {
	return evaluate.NewJobQueue(client, rdb, "")
}

// initHealthChecker reads the performance profile override for adaptive
// timeouts; an unknown or unset profile means standard.
func initHealthChecker() *health.Checker {
	profile := health.RunnerProfile(os.Getenv("HEALTH_PROFILE"))
	switch profile {
	case health.ProfileFast, health.ProfileSlow:
	default:
		profile = health.ProfileStandard
	}
	return health.NewChecker(profile)
}
