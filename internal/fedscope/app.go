package fedscope

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/fedscope/fedscope/internal/fedscope/biz"
	"github.com/fedscope/fedscope/internal/fedscope/handler"
	"github.com/fedscope/fedscope/internal/fedscope/store"
	"github.com/fedscope/fedscope/pkg/component/milvus"
	"github.com/fedscope/fedscope/pkg/infra/app"
	"github.com/fedscope/fedscope/pkg/llm"
	"github.com/fedscope/fedscope/pkg/llm/resilience"

	// Register LLM providers.
	_ "github.com/fedscope/fedscope/pkg/llm/ollama"
	_ "github.com/fedscope/fedscope/pkg/llm/openai"
)

const (
	appName        = "fedscope"
	appDescription = `Fed press conference analysis service.

Answers questions over ingested Federal Reserve press-conference
transcripts: retrieves relevant transcript chunks from Milvus, generates a
citation-backed answer, and classifies the monetary-policy sentiment as
Hawkish, Neutral or Dovish.`
)

// NewApp creates the analysis service application.
func NewApp() *app.App {
	opts := NewOptions()

	return app.NewApp(
		app.WithName(appName),
		app.WithShortDescription("Fed press conference analysis service"),
		app.WithDescription(appDescription),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return Run(opts)
		}),
	)
}

// Run runs the analysis service with the given options.
func Run(opts *Options) error {
	opts.Log.AddInitialField("service.name", appName)
	opts.Log.AddInitialField("service.version", app.GetVersion())
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting analysis service...")

	// A dead vector store at startup is fatal; every query needs it.
	milvusClient, err := milvus.New(opts.Milvus)
	if err != nil {
		return &store.ConnectivityError{Target: "milvus", Err: err}
	}
	defer func() { _ = milvusClient.Close(context.Background()) }()
	logger.Info("Milvus client initialized")

	vectorStore := store.NewMilvusStore(milvusClient)

	embedder, err := llm.NewEmbeddingProvider(opts.Embedding.Provider, opts.Embedding.ToConfigMap())
	if err != nil {
		return fmt.Errorf("failed to create embedding provider: %w", err)
	}
	// Query embeddings repeat across requests, cache them in-process.
	// Retries sit under the cache so only misses pay for them.
	cachedEmbedder := llm.NewCachedEmbeddingProvider(
		resilience.NewResilientEmbeddingProvider(embedder, nil, nil),
	)

	chat, err := llm.NewChatProvider(opts.Chat.Provider, opts.Chat.ToConfigMap())
	if err != nil {
		return fmt.Errorf("failed to create chat provider: %w", err)
	}
	resilientChat := resilience.NewResilientChatProvider(chat, nil, nil)
	logger.Infow("LLM providers initialized",
		"embedding", embedder.Name(),
		"chat", chat.Name(),
	)

	analyst, err := biz.NewAnalyst(vectorStore, cachedEmbedder, resilientChat, opts.Pipeline.AnalystConfig())
	if err != nil {
		return fmt.Errorf("failed to build analyst: %w", err)
	}

	analysisHandler := handler.NewAnalysisHandler(analyst)

	srv := NewServer(opts, analysisHandler)
	logger.Infow("analysis service is ready", "addr", opts.HTTPAddr)
	return srv.Run()
}
