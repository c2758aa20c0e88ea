package bootstrap

import (
	"context"
	"log"
	"time"

	"portfolio-ai-be/internal/config"
	"portfolio-ai-be/internal/controller"
	"portfolio-ai-be/internal/pkg/logger"
	"portfolio-ai-be/internal/repository/unitofwork"
	"portfolio-ai-be/internal/service"
	"portfolio-ai-be/internal/stream"
	"portfolio-ai-be/pkg/embedding"
	"portfolio-ai-be/pkg/genai"
	"portfolio-ai-be/pkg/rag/rephrase"
	"portfolio-ai-be/pkg/rag/search"

	pktNats "portfolio-ai-be/pkg/nats"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	DocumentController controller.IDocumentController
	ChatController     controller.IChatController

	// Shared infrastructure (exposed for main.go lifecycle management)
	Logger        logger.ILogger
	StreamHub     *stream.Hub
	NatsPublisher *pktNats.Publisher
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Infrastructure
	// NATS (optional, the app degrades to no domain events without it)
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}

	// Redis (optional, enables cross-instance log stream fan-out)
	var rdb *redis.Client
	if opt, err := redis.ParseURL(cfg.App.RedisURL); err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v", err)
	} else {
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
			rdb = nil
		}
	}

	// Processing-log stream hub
	hub := stream.NewHub(rdb, sysLogger)
	go func() {
		if err := hub.Run(context.Background()); err != nil {
			log.Printf("[ERROR] Stream hub stopped: %v", err)
		}
	}()

	// 3. AI Providers
	var embeddingProvider embedding.EmbeddingProvider = embedding.NewGeminiProvider(
		cfg.Keys.GoogleGemini,
		cfg.Ai.EmbeddingModel,
	)
	embeddingProvider = embedding.NewCachedProvider(embeddingProvider, 1*time.Hour)

	generator := genai.NewGeminiGenerator(cfg.Keys.GoogleGemini, cfg.Ai.GenerationModel)

	searcher := search.NewOrchestrator(embeddingProvider, sysLogger)
	rephraser := rephrase.NewRephraser(generator, sysLogger)

	// 4. Services
	documentService := service.NewDocumentService(
		uowFactory,
		embeddingProvider,
		hub,
		natsPub,
		sysLogger,
		cfg.Ai.EmbedConcurrency,
	)

	chatService := service.NewChatService(
		uowFactory,
		generator,
		searcher,
		rephraser,
		natsPub,
		sysLogger,
		cfg.Ai.RetrievalTopK,
		cfg.Ai.RephraseQueries,
	)

	// 5. Controllers
	return &Container{
		DocumentController: controller.NewDocumentController(documentService, hub, cfg.Keys.JWTSecret),
		ChatController:     controller.NewChatController(chatService),

		Logger:        sysLogger,
		StreamHub:     hub,
		NatsPublisher: natsPub,
	}
}
