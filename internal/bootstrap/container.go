package bootstrap

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"ai-edulab-be/internal/config"
	"ai-edulab-be/internal/controller"
	"ai-edulab-be/internal/pkg/logger"
	"ai-edulab-be/internal/repository/implementation"
	"ai-edulab-be/internal/repository/memory"
	"ai-edulab-be/internal/service"
	"ai-edulab-be/pkg/embedding"
	"ai-edulab-be/pkg/events"
	"ai-edulab-be/pkg/llm/factory"
	"ai-edulab-be/pkg/qgen"
	"ai-edulab-be/pkg/rag"
	"ai-edulab-be/pkg/retrieval"
	"ai-edulab-be/pkg/store"

	pktNats "ai-edulab-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// StreamTopic is the in-process pub/sub topic pipeline progress events
// are published on.
const StreamTopic = "PIPELINE_STREAM"

type Container struct {
	// Controllers
	AgentController controller.IAgentController

	// Infrastructure exposed for the server / shutdown path
	SysLogger logger.ILogger
	PubSub    *gochannel.GoChannel
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	pipelineLogger := initPipelineLogger()

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	sink := events.NewWatermillSink(pubSub, StreamTopic, pipelineLogger)

	// 3. Model Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.EmbeddingModel,
		)
		sysLogger.Info("Bootstrap", "Using embedding provider", map[string]interface{}{
			"provider": "ollama",
			"model":    cfg.Ai.EmbeddingModel,
		})
	} else {
		log.Fatalf("[FATAL] Unknown embedding provider: %s", cfg.Ai.EmbeddingProvider)
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	sysLogger.Info("Bootstrap", "Using LLM provider", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	// 4. Infrastructure
	// NATS audit stream; absence degrades to no audit trail
	var auditPub service.AuditPublisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		sysLogger.Warn("Bootstrap", "Failed to connect to NATS publisher", map[string]interface{}{"error": err.Error()})
	} else {
		auditPub = natsPub
	}

	// Redis answer cache; absence degrades to no caching
	var rdb *redis.Client
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		sysLogger.Warn("Bootstrap", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb = redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		sysLogger.Warn("Bootstrap", "Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
		rdb = nil
	}

	// 5. Repositories
	materialRepo := implementation.NewMaterialRepository(db)
	embeddingRepo := implementation.NewMaterialEmbeddingRepository(db)
	sessionRepo := implementation.NewGenerationSessionRepository(db)
	activeRepo := memory.NewSessionRepository()

	// 6. Pipelines
	searcher := retrieval.NewOrchestrator(embeddingProvider, embeddingRepo, materialRepo, pipelineLogger)

	ragPipeline, err := rag.NewPipeline(llmProvider, searcher, sink, pipelineLogger)
	if err != nil {
		log.Fatalf("[FATAL] Failed to compile RAG pipeline: %v", err)
	}

	// The agent streams through the persisting sink so each finished
	// question lands in the write-behind log as it is produced
	persistSink := service.NewPersistingSink(sink, sessionRepo, sysLogger)
	qgenAgent, err := qgen.NewAgent(llmProvider, persistSink, pipelineLogger)
	if err != nil {
		log.Fatalf("[FATAL] Failed to compile question-generation agent: %v", err)
	}

	// 7. Services
	defaults := store.PipelineConfig{
		MaxRetrievalAttempts:     cfg.Pipeline.MaxRetrievalAttempts,
		RelevanceThreshold:       cfg.Pipeline.RelevanceThreshold,
		TopK:                     cfg.Pipeline.TopK,
		EnableQueryRewriting:     cfg.Pipeline.EnableQueryRewriting,
		EnableHallucinationCheck: cfg.Pipeline.EnableHallucinationCheck,
		QuestionCount:            cfg.Pipeline.QuestionCount,
		MaxIterations:            cfg.Pipeline.MaxIterations,
		ShouldReflect:            cfg.Pipeline.ShouldReflect,
	}

	agentService := service.NewAgentService(
		ragPipeline,
		qgenAgent,
		materialRepo,
		sessionRepo,
		activeRepo,
		auditPub,
		rdb,
		time.Duration(cfg.Pipeline.AnswerCacheTTLSeconds)*time.Second,
		defaults,
		sysLogger,
	)

	return &Container{
		AgentController: controller.NewAgentController(agentService),
		SysLogger:       sysLogger,
		PubSub:          pubSub,
	}
}

func initPipelineLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "llm_pipeline.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[LLM-PIPELINE] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}
