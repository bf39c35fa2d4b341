package bootstrap

import (
	"context"
	"log"
	"time"

	"ai-redteam-be/internal/config"
	"ai-redteam-be/internal/controller"
	"ai-redteam-be/internal/entity"
	"ai-redteam-be/internal/pkg/logger"
	"ai-redteam-be/internal/repository/contract"
	repofactory "ai-redteam-be/internal/repository/factory"
	"ai-redteam-be/internal/repository/memory"
	"ai-redteam-be/internal/service"
	"ai-redteam-be/pkg/chunker"
	"ai-redteam-be/pkg/embedding"
	"ai-redteam-be/pkg/extract"
	"ai-redteam-be/pkg/guardrail"
	"ai-redteam-be/pkg/llm"
	llmfactory "ai-redteam-be/pkg/llm/factory"
	"ai-redteam-be/pkg/rag"
	vsfactory "ai-redteam-be/pkg/vectorstore/factory"

	pktNats "ai-redteam-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	HealthController   controller.IHealthController
	ModeController     controller.IModeController
	ChatController     controller.IChatController
	DocumentController controller.IDocumentController
	AnalysisController controller.IAnalysisController

	// Background Services (Exposed for main.go to run)
	AuditService service.IAuditService
}

// NewContainer wires every dependency. db may be nil unless the pgvector
// driver is selected; everything else runs without Postgres.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	auditLogger := logger.NewIsolatedLogger(cfg.App.AuditLogFilePath)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Guardrails
	var rules *guardrail.Ruleset
	if cfg.Guardrails.RulesetPath != "" {
		var err error
		rules, err = guardrail.LoadRuleset(cfg.Guardrails.RulesetPath)
		if err != nil {
			log.Fatalf("[FATAL] Failed to load guardrail ruleset: %v", err)
		}
		log.Printf("[INFO] Using guardrail ruleset: %s", cfg.Guardrails.RulesetPath)
	}
	analyzer, err := guardrail.NewAnalyzer(rules)
	if err != nil {
		log.Fatalf("[FATAL] Failed to compile guardrail rules: %v", err)
	}

	// 4. Model Providers
	embeddingProvider, err := embedding.NewProvider(
		cfg.Ai.EmbeddingProvider,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.EmbeddingModel,
		cfg.VectorStore.Dimension,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize Embedding Provider: %v", err)
	}
	log.Printf("[INFO] Using Embedding Provider: %s (%s)", cfg.Ai.EmbeddingProvider, cfg.Ai.EmbeddingModel)

	llmProvider, err := llmfactory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.HuggingFaceKey,
		time.Duration(cfg.Ai.LLMTimeoutSeconds)*time.Second,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// The health endpoint degrades gracefully when the provider has no probe.
	pinger, _ := llmProvider.(llm.Pinger)

	// 5. Vector Store
	vectorDriver := cfg.VectorStore.Driver
	if vectorDriver == "" {
		vectorDriver = "memory"
	}
	store, err := vsfactory.NewStore(vectorDriver, embeddingProvider, vsfactory.Options{
		DB:        db,
		QdrantURL: cfg.VectorStore.QdrantURL,
		QdrantKey: cfg.VectorStore.QdrantKey,
		Dimension: cfg.VectorStore.Dimension,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize vector store: %v", err)
	}
	log.Printf("[INFO] Using Vector Store: %s", vectorDriver)

	// 6. Conversation Storage
	// Redis is only dialed when the redis driver is selected.
	var redisClient *redis.Client
	if cfg.Conversations.Driver == "redis" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		redisClient = redis.NewClient(opt)
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
	}

	// One history store per mode keeps the four playgrounds isolated.
	ttl := time.Duration(cfg.Conversations.TTLMinutes) * time.Minute
	conversations := make(map[string]contract.ConversationRepository, 4)
	for _, mode := range []string{entity.ModeSimple, entity.ModeGuardrails, entity.ModeRag, entity.ModeMultiuser} {
		repo, err := repofactory.NewConversationRepository(cfg.Conversations.Driver, mode, ttl, redisClient)
		if err != nil {
			log.Fatalf("[FATAL] Failed to initialize conversation store for %s: %v", mode, err)
		}
		conversations[mode] = repo
	}

	// Only the document modes get a registry; uploads to other modes are
	// rejected by the service.
	registries := map[string]contract.DocumentRepository{
		entity.ModeRag:       memory.NewDocumentRepository(),
		entity.ModeMultiuser: memory.NewDocumentRepository(),
	}
	attemptRepo := memory.NewAttemptLogRepository()

	// 7. NATS (optional mirror for security events)
	var natsPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		}
	}

	// 8. RAG plumbing
	retriever := rag.NewRetriever(store, sysLogger)
	textChunker, err := chunker.New(cfg.Rag.ChunkSize, cfg.Rag.ChunkOverlap)
	if err != nil {
		log.Fatalf("[FATAL] Invalid chunker configuration: %v", err)
	}
	extractor := extract.New()

	// 9. Services
	publisherService := service.NewPublisherService(cfg.Events.Topic, pubSub, natsPub, sysLogger)
	auditService := service.NewAuditService(pubSub, cfg.Events.Topic, attemptRepo, auditLogger)

	chatService := service.NewChatService(
		llmProvider,
		cfg.Ai.LLMModel,
		analyzer,
		retriever,
		conversations,
		publisherService,
		cfg.Rag.TopK,
		cfg.Rag.SharedTopK,
		sysLogger,
	)

	documentService := service.NewDocumentService(
		extractor,
		textChunker,
		store,
		registries,
		publisherService,
		cfg.Rag.UploadDir,
		sysLogger,
	)

	analysisService := service.NewAnalysisService(analyzer, attemptRepo)

	// 10. Controllers
	return &Container{
		HealthController:   controller.NewHealthController(pinger),
		ModeController:     controller.NewModeController(chatService),
		ChatController:     controller.NewChatController(chatService),
		DocumentController: controller.NewDocumentController(documentService),
		AnalysisController: controller.NewAnalysisController(analysisService),

		AuditService: auditService,
	}
}
