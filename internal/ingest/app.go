package ingest

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/fedscope/fedscope/internal/fedscope/store"
	"github.com/fedscope/fedscope/internal/pkg/docload"
	"github.com/fedscope/fedscope/pkg/component/milvus"
	"github.com/fedscope/fedscope/pkg/infra/app"
	"github.com/fedscope/fedscope/pkg/llm"
	"github.com/fedscope/fedscope/pkg/llm/resilience"

	// Register LLM providers.
	_ "github.com/fedscope/fedscope/pkg/llm/ollama"
	_ "github.com/fedscope/fedscope/pkg/llm/openai"
)

const (
	appName        = "fedscope-ingest"
	appDescription = `Fed press conference transcript ingestion.

Chunks cleaned transcript documents under every configured chunking
parameter combination and ingests each combination into its own Milvus
collection. Existing collections are skipped; use --recreate to drop and
rebuild them.`
)

// NewApp creates the ingestion application.
func NewApp() *app.App {
	opts := NewOptions()

	return app.NewApp(
		app.WithName(appName),
		app.WithShortDescription("Fed press conference transcript ingestion"),
		app.WithDescription(appDescription),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return Run(opts)
		}),
	)
}

// Run runs the ingestion with the given options.
func Run(opts *Options) error {
	opts.Log.AddInitialField("service.name", appName)
	opts.Log.AddInitialField("service.version", app.GetVersion())
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting ingestion...")

	ctx := context.Background()

	docs, err := docload.LoadDirectory(opts.DataDir)
	if err != nil {
		return err
	}

	milvusClient, err := milvus.New(opts.Milvus)
	if err != nil {
		return &store.ConnectivityError{Target: "milvus", Err: err}
	}
	defer func() { _ = milvusClient.Close(ctx) }()

	vectorStore := store.NewMilvusStore(milvusClient)

	indexEmbedder, err := llm.NewEmbeddingProvider(opts.Embedding.Provider, opts.Embedding.ToConfigMap())
	if err != nil {
		return fmt.Errorf("failed to create embedding provider: %w", err)
	}
	// A transient embedding failure mid-grid would otherwise abandon a
	// partial collection; retry before giving up.
	resilientIndexEmbedder := resilience.NewResilientEmbeddingProvider(indexEmbedder, nil, nil)

	// The semantic splitter embeds every sentence, so it runs on a cheaper
	// model than the retrieval index. Its vectors never reach the store.
	var chunkEmbedder llm.EmbeddingProvider
	if len(opts.Percentiles) > 0 {
		provider, err := llm.NewEmbeddingProvider(opts.ChunkEmbedding.Provider, opts.ChunkEmbedding.ToConfigMap())
		if err != nil {
			return fmt.Errorf("failed to create chunk embedding provider: %w", err)
		}
		chunkEmbedder = resilience.NewResilientEmbeddingProvider(provider, nil, nil)
	}

	grid := opts.Grid()
	logger.Infow("ingestion grid built", "configurations", len(grid))

	pipeline := NewPipeline(vectorStore, resilientIndexEmbedder, chunkEmbedder, grid, opts.Recreate)
	if err := pipeline.Run(ctx, docs); err != nil {
		return err
	}

	infos, err := vectorStore.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("ingestion finished but listing collections failed: %w", err)
	}
	for _, info := range infos {
		logger.Infow("collection ready", "collection", info.Name, "size", info.Size)
	}

	logger.Info("Ingestion finished")
	return nil
}
