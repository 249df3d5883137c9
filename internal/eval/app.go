package eval

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/fedscope/fedscope/internal/fedscope/biz"
	"github.com/fedscope/fedscope/internal/fedscope/store"
	"github.com/fedscope/fedscope/internal/pkg/chunker"
	"github.com/fedscope/fedscope/internal/pkg/experiment"
	"github.com/fedscope/fedscope/internal/pkg/judge"
	"github.com/fedscope/fedscope/pkg/component/milvus"
	"github.com/fedscope/fedscope/pkg/infra/app"
	"github.com/fedscope/fedscope/pkg/llm"
	"github.com/fedscope/fedscope/pkg/llm/resilience"

	// Register LLM providers.
	_ "github.com/fedscope/fedscope/pkg/llm/ollama"
	_ "github.com/fedscope/fedscope/pkg/llm/openai"
)

const (
	appName        = "fedscope-eval"
	appDescription = `Fed press conference retrieval experiment sweep.

Runs the canonical evaluation queries against every (collection, k)
combination, scores each answer with an LLM judge, and records runs,
parameters, metrics, and per-query answer artifacts in a SQLite tracking
database.`

	// The candidate pool is fetched five times wider than the final
	// selection so the diversity re-ranker has room to work.
	fetchKMultiplier = 5

	diversityWeight = 0.7
)

// NewApp creates the evaluation application.
func NewApp() *app.App {
	opts := NewOptions()

	return app.NewApp(
		app.WithName(appName),
		app.WithShortDescription("Fed press conference retrieval experiment sweep"),
		app.WithDescription(appDescription),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return Run(opts)
		}),
	)
}

// Run runs the evaluation sweep with the given options.
func Run(opts *Options) error {
	opts.Log.AddInitialField("service.name", appName)
	opts.Log.AddInitialField("service.version", app.GetVersion())
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting evaluation sweep...")

	ctx := context.Background()

	milvusClient, err := milvus.New(opts.Milvus)
	if err != nil {
		return &store.ConnectivityError{Target: "milvus", Err: err}
	}
	defer func() { _ = milvusClient.Close(ctx) }()

	vectorStore := store.NewMilvusStore(milvusClient)

	collections := opts.Collections
	if len(collections) == 0 {
		collections, err = discoverCollections(ctx, vectorStore)
		if err != nil {
			return err
		}
	}
	if len(collections) == 0 {
		return fmt.Errorf("no collections to evaluate; run ingestion first")
	}
	logger.Infow("sweep configured",
		"collections", len(collections),
		"k_values", opts.KValues,
	)

	embedder, err := llm.NewEmbeddingProvider(opts.Embedding.Provider, opts.Embedding.ToConfigMap())
	if err != nil {
		return fmt.Errorf("failed to create embedding provider: %w", err)
	}
	// One cache shared across every run: the three canonical questions
	// repeat for each (collection, k) combination. Retries sit under the
	// cache so only misses pay for them.
	cachedEmbedder := llm.NewCachedEmbeddingProvider(
		resilience.NewResilientEmbeddingProvider(embedder, nil, nil),
	)

	chat, err := llm.NewChatProvider(opts.Chat.Provider, opts.Chat.ToConfigMap())
	if err != nil {
		return fmt.Errorf("failed to create chat provider: %w", err)
	}
	resilientChat := resilience.NewResilientChatProvider(chat, nil, nil)

	judgeChat, err := llm.NewChatProvider(opts.Judge.Provider, opts.Judge.ToConfigMap())
	if err != nil {
		return fmt.Errorf("failed to create judge provider: %w", err)
	}
	scorer := judge.NewScorer(resilience.NewResilientChatProvider(judgeChat, nil, nil))

	tracker, err := experiment.NewSQLiteTracker(opts.TrackerDSN, opts.ArtifactDir)
	if err != nil {
		return &store.ConnectivityError{Target: "experiment tracker", Err: err}
	}
	defer func() { _ = tracker.Close() }()

	factory := func(collection string, k int) (experiment.Analyzer, error) {
		return biz.NewAnalyst(vectorStore, cachedEmbedder, resilientChat, &biz.AnalystConfig{
			Collection:      collection,
			K:               k,
			FetchK:          k * fetchKMultiplier,
			DiversityWeight: diversityWeight,
		})
	}

	runner, err := experiment.NewRunner(factory, scorer, tracker, experiment.Config{
		Collections: collections,
		KValues:     opts.KValues,
		PacingFloor: opts.PacingFloor,
	})
	if err != nil {
		return err
	}

	summaries, err := runner.Run(ctx)
	for _, summary := range summaries {
		logger.Infow("run finished",
			"run_id", summary.RunID,
			"name", summary.Name,
			"overall_score", summary.OverallScore,
		)
	}
	if err != nil {
		return err
	}

	logger.Info("Evaluation sweep finished")
	return nil
}

// discoverCollections lists the store and keeps every collection whose name
// decodes as a chunking configuration. Foreign collections in a shared
// Milvus instance are skipped, not fatal.
func discoverCollections(ctx context.Context, vectorStore store.VectorStore) ([]string, error) {
	infos, err := vectorStore.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	var names []string
	for _, info := range infos {
		if _, err := chunker.ParseCollectionName(info.Name); err != nil {
			logger.Warnw("skipping collection with undecodable name",
				"collection", info.Name,
			)
			continue
		}
		names = append(names, info.Name)
	}
	return names, nil
}
