package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/curdside/cheese-chat/internal/config"
	"github.com/curdside/cheese-chat/internal/core/ports"
	"github.com/curdside/cheese-chat/internal/core/usecase"
	"github.com/curdside/cheese-chat/internal/infrastructure/llm/ollama"
	"github.com/curdside/cheese-chat/internal/infrastructure/queue/nats"
	"github.com/curdside/cheese-chat/internal/infrastructure/repository/postgres"
	"github.com/curdside/cheese-chat/internal/infrastructure/resilience"
	"github.com/curdside/cheese-chat/internal/infrastructure/vector/qdrant"
	"github.com/curdside/cheese-chat/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Chat    ports.ChatService
	Metrics *metrics.ChatMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	catalogRepo := postgres.NewCatalogRepository(db, cfg.SuperlativeLimit*4)
	if err := catalogRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure catalog schema: %w", err)
	}
	conversationRepo := postgres.NewConversationRepository(db)
	if err := conversationRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure conversation schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	publisher, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init event publisher: %w", err)
	}

	vocabulary := config.DefaultVocabulary()
	if cfg.VocabularyPath != "" {
		vocabulary, err = config.LoadVocabulary(cfg.VocabularyPath)
		if err != nil {
			return nil, fmt.Errorf("load vocabulary: %w", err)
		}
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient)
	classifier := ollama.NewClassifier(ollamaClient)
	translator := ollama.NewTranslator(ollamaClient, cfg.FilterTemperature)
	generator := ollama.NewGenerator(ollamaClient, ollama.GenOptions{
		Temperature: cfg.AnswerTemperature,
		MaxTokens:   cfg.AnswerMaxTokens,
	}, cfg.HistoryWindow)

	vectorIndex := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, executor)

	chatMetrics := metrics.NewChatMetrics("cheese-chat")

	retriever := usecase.NewHybridRetriever(embedder, vectorIndex, catalogRepo, usecase.RetrieverConfig{
		TopK:             cfg.RetrievalTopK,
		SuperlativeLimit: cfg.SuperlativeLimit,
		BudgetPriceCap:   cfg.BudgetPriceCap,
		BackendTimeout:   time.Duration(cfg.BackendTimeoutSec) * time.Second,
		HistoryWindow:    cfg.HistoryWindow,
		Categories:       vocabulary.Categories,
	}, logger)

	composer := usecase.NewComposer(generator, time.Duration(cfg.ComposeTimeoutSec)*time.Second, logger)

	manager := usecase.NewSessionManager(usecase.SessionDeps{
		Classifier:      classifier,
		Translator:      translator,
		Retriever:       retriever,
		Composer:        composer,
		Store:           conversationRepo,
		Events:          publisher,
		Observer:        chatMetrics,
		ClassifyTimeout: time.Duration(cfg.ClassifyTimeoutSec) * time.Second,
		Logger:          logger,
	})

	return &App{
		Config:  cfg,
		Chat:    manager,
		Metrics: chatMetrics,

		closeFn: func() {
			publisher.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
