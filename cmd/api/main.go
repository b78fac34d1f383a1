// @title           Document Chat RAG API
// @version         1.0
// @description     Upload documents, then chat with an LLM grounded in the retrieved passages. All work runs as asynchronous jobs polled via /status.

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/itdjship/chat-bot-app/internal/config"
	"github.com/itdjship/chat-bot-app/internal/data/redisstore"
	"github.com/itdjship/chat-bot-app/internal/data/store"
	"github.com/itdjship/chat-bot-app/internal/domain/jobmodel"
	"github.com/itdjship/chat-bot-app/internal/handlers"
	"github.com/itdjship/chat-bot-app/internal/job"
	"github.com/itdjship/chat-bot-app/internal/middleware"
	"github.com/itdjship/chat-bot-app/internal/rag"
	"github.com/itdjship/chat-bot-app/internal/rag/embedding"
	"github.com/itdjship/chat-bot-app/internal/rag/embedding/googleembedding"
	"github.com/itdjship/chat-bot-app/internal/rag/embedding/localembedding"
	"github.com/itdjship/chat-bot-app/internal/rag/ingest"
	"github.com/itdjship/chat-bot-app/internal/rag/llm"
	"github.com/itdjship/chat-bot-app/internal/rag/llm/gemini"
	"github.com/itdjship/chat-bot-app/internal/rag/vectorindex"
	"github.com/itdjship/chat-bot-app/internal/rag/vectorindex/memoryindex"
	"github.com/itdjship/chat-bot-app/internal/rag/vectorindex/pgindex"
	"github.com/itdjship/chat-bot-app/internal/rag/vectorindex/qdrantindex"
	"github.com/itdjship/chat-bot-app/internal/server"
	"github.com/itdjship/chat-bot-app/internal/worker"
	"github.com/itdjship/chat-bot-app/pkg/logger_i"
)

var (
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {
	logger_i.Init(config.IS_PROD, config.LOG_LEVEL_PROD)
	var logger = logger_i.NewLogger("main")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	flag.StringVar(&listenAddr, "listen-addr", cfg.ListenAddr, "server listen address")
	flag.Parse()

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//session and job state live in redis when it is up, in memory otherwise
	redisstore.Init(cfg.RedisAddr, cfg.RedisPassword)
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
	}
	if jobStore := store.GetRedisJobStore(serviceContext); jobStore != nil {
		serviceConfig.JobStore = jobStore
	} else {
		logger.Warn("Redis job store is offline, using in-memory store")
		serviceConfig.JobStore = store.InitInMemoryJobStore()
	}
	if sessionStore := store.GetRedisSessionStore(serviceContext); sessionStore != nil {
		serviceConfig.SessionStore = sessionStore
	} else {
		logger.Warn("Redis session store is offline, using in-memory store")
		serviceConfig.SessionStore = store.InitInMemorySessionStore()
	}
	jobService := job.InitJobService(serviceConfig)

	indexes, err := buildIndexProvider(serviceContext, cfg)
	if err != nil {
		logger.Error("Vector index backend failed to initialize", "backend", cfg.IndexBackend, "error", err)
		os.Exit(1)
	}

	embedder, err := buildEmbedder(serviceContext, cfg)
	if err != nil {
		logger.Error("Embedding provider failed to initialize", "provider", cfg.EmbeddingProvider, "error", err)
		os.Exit(1)
	}

	persona, err := llm.PersonaByName(cfg.Persona)
	if err != nil {
		logger.Error("Invalid persona", "error", err)
		os.Exit(1)
	}
	temperature := persona.Temperature
	if cfg.HasTemperature {
		temperature = cfg.Temperature
	}

	llmProvider, err := gemini.NewClient(serviceContext, cfg.GeminiModel, cfg.GeminiAPIKey, persona, temperature)
	if err != nil {
		logger.Error("LLM provider failed to initialize", "error", err)
		os.Exit(1)
	}

	chunker, err := ingest.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		logger.Error("Invalid chunking configuration", "error", err)
		os.Exit(1)
	}
	pipeline := ingest.NewPipeline(chunker, embedder)

	ragService := rag.NewService(indexes, llmProvider, embedder, pipeline, jobService.SessionStore, persona, cfg.TopK)

	middleware.Init(cfg.AuthToken)
	handlers.InitJobHandler(jobService, indexes)

	//init worker pool
	worker.InitServices(jobService, ragService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	logger.Info("Service started",
		"profile", cfg.EmbeddingProvider+"/"+cfg.IndexBackend,
		"persona", persona.Name)

	<-stopExecution
	logger.Info("Server stopped")
}

func buildIndexProvider(ctx context.Context, cfg *config.Config) (vectorindex.Provider, error) {
	switch cfg.IndexBackend {
	case config.IndexPostgres:
		store, err := pgindex.NewStore(ctx, cfg.PostgresDSN, cfg.PostgresTable, cfg.EmbeddingDim)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.IndexQdrant:
		store, err := qdrantindex.NewStore(ctx, cfg.QdrantHost, cfg.QdrantPort, cfg.QdrantUseTLS, cfg.QdrantCollection, cfg.EmbeddingDim)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return memoryindex.NewProvider(), nil
	}
}

func buildEmbedder(ctx context.Context, cfg *config.Config) (embedding.Embedder, error) {
	if cfg.EmbeddingProvider == config.EmbeddingLocal {
		return localembedding.NewClient(cfg.LocalEmbedBaseURL, cfg.LocalEmbedAPIKey, cfg.LocalEmbedModel), nil
	}
	client, err := googleembedding.NewClient(ctx, cfg.EmbeddingModel, cfg.GeminiAPIKey, cfg.EmbeddingDim)
	if err != nil {
		return nil, err
	}
	return client, nil
}
