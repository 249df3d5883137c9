package ingest

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/fedscope/fedscope/internal/fedscope/metrics"
	"github.com/fedscope/fedscope/internal/fedscope/store"
	"github.com/fedscope/fedscope/internal/model"
	"github.com/fedscope/fedscope/internal/pkg/chunker"
	"github.com/fedscope/fedscope/pkg/llm"
)

// Pipeline chunks documents under every configured parameter combination
// and ingests each into its own collection.
type Pipeline struct {
	store         store.VectorStore
	indexEmbedder llm.EmbeddingProvider
	chunkEmbedder llm.EmbeddingProvider
	grid          []chunker.Params
	recreate      bool
	metrics       *metrics.PipelineMetrics
}

// NewPipeline creates an ingestion pipeline. The chunk embedder may be nil
// when the grid has no semantic configurations.
func NewPipeline(vectorStore store.VectorStore, indexEmbedder, chunkEmbedder llm.EmbeddingProvider, grid []chunker.Params, recreate bool) *Pipeline {
	return &Pipeline{
		store:         vectorStore,
		indexEmbedder: indexEmbedder,
		chunkEmbedder: chunkEmbedder,
		grid:          grid,
		recreate:      recreate,
		metrics:       metrics.Get(),
	}
}

// Run builds every collection in the grid, sequentially. The first
// ingestion failure aborts the run: a partial collection must be dropped
// before retrying, and continuing would hide that.
func (p *Pipeline) Run(ctx context.Context, docs []model.Document) error {
	if len(docs) == 0 {
		return fmt.Errorf("ingest: no documents to ingest")
	}

	for _, params := range p.grid {
		if err := p.runOne(ctx, params, docs); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) runOne(ctx context.Context, params chunker.Params, docs []model.Document) error {
	name := params.CollectionName()

	strategy, err := chunker.NewStrategy(params, p.chunkEmbedder)
	if err != nil {
		return err
	}

	chunks, err := strategy.Split(ctx, docs)
	if err != nil {
		return fmt.Errorf("ingest: chunking for collection %q: %w", name, err)
	}
	logger.Infow("chunked documents",
		"collection", name,
		"documents", len(docs),
		"chunks", len(chunks),
	)

	if p.recreate {
		if err := p.store.DropCollection(ctx, name); err != nil {
			logger.Warnw("drop before recreate failed, continuing",
				"collection", name,
				"error", err.Error(),
			)
		}
	}

	err = p.store.EnsureCollection(ctx, name, p.indexEmbedder, chunks)
	p.metrics.RecordIngestion(len(chunks), err)
	if err != nil {
		return err
	}
	return nil
}
