// Package bootstrap wires the query service. Both binaries share the same
// construction path; the worker simply ignores the ask pipeline it does not
// serve.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/khu-ai/regulation-assistant/internal/config"
	"github.com/khu-ai/regulation-assistant/internal/core/ports"
	"github.com/khu-ai/regulation-assistant/internal/core/usecase"
	"github.com/khu-ai/regulation-assistant/internal/infrastructure/graph/neo4j"
	"github.com/khu-ai/regulation-assistant/internal/infrastructure/llm/ollama"
	"github.com/khu-ai/regulation-assistant/internal/infrastructure/queue/nats"
	"github.com/khu-ai/regulation-assistant/internal/infrastructure/repository/postgres"
	"github.com/khu-ai/regulation-assistant/internal/infrastructure/resilience"
	"github.com/khu-ai/regulation-assistant/internal/infrastructure/vector/qdrant"
	"github.com/khu-ai/regulation-assistant/internal/interpret"
	"github.com/khu-ai/regulation-assistant/internal/ranking"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue      ports.MessageQueue
	IndexCache *qdrant.Cache
	ChunkStore ports.ChunkStore
	AskUC      ports.RegulationQueryService
	Relations  ports.RelationService

	closeFn func(context.Context)
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	chunkStore := postgres.NewChunkRepository(db)
	if err := chunkStore.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	var graph ports.RelationGraph
	var closeGraph func(context.Context)
	if cfg.Neo4jEnabled {
		g, err := neo4j.New(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jDatabase)
		if err != nil {
			queue.Close()
			_ = db.Close()
			return nil, fmt.Errorf("init relation graph: %w", err)
		}
		graph = g
		closeGraph = func(ctx context.Context) { _ = g.Close(ctx) }
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)

	indexCache := qdrant.NewCache(cfg.QdrantURL, cfg.QdrantCollectionPrefix, cfg.QdrantTimeout)
	retriever := usecase.NewCandidateRetriever(indexCache, cfg.RetrievalTimeout, logger)

	weights, err := cfg.RankWeights()
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("load ranking weights: %w", err)
	}
	ranker := ranking.New(ranking.Config{
		Weights:      weights,
		HalfLifeDays: cfg.RankHalfLifeDays,
		MMRLambda:    cfg.RankMMRLambda,
	})

	relations := usecase.NewRelationResolver(chunkStore, graph)

	askUC := usecase.NewAskUseCase(
		interpret.NewHeuristic(),
		interpret.NewGrammar(),
		embedder,
		retriever,
		ranker,
		relations,
		generator,
		logger,
	)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Queue:      queue,
		IndexCache: indexCache,
		ChunkStore: chunkStore,
		AskUC:      askUC,
		Relations:  relations,

		closeFn: func(ctx context.Context) {
			queue.Close()
			if closeGraph != nil {
				closeGraph(ctx)
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close(ctx context.Context) {
	if a.closeFn != nil {
		a.closeFn(ctx)
	}
}
