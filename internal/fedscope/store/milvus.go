package store

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"
	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/fedscope/fedscope/internal/model"
	"github.com/fedscope/fedscope/internal/pkg/textutil"
	milvuscomp "github.com/fedscope/fedscope/pkg/component/milvus"
	"github.com/fedscope/fedscope/pkg/llm"
)

// maxInsertBatch bounds rows per insert call, strictly below the store's
// single-request item limit.
const maxInsertBatch = 5460

const contentMaxLength = 65535

// milvusBackend is the slice of the Milvus component this store needs.
// Narrowed to an interface so retrieval logic is testable without a server.
type milvusBackend interface {
	HasCollection(ctx context.Context, name string) (bool, error)
	ListCollections(ctx context.Context) ([]string, error)
	CreateCollection(ctx context.Context, schema *milvuscomp.CollectionSchema) error
	Insert(ctx context.Context, collectionName string, data *milvuscomp.InsertData) ([]int64, error)
	Search(ctx context.Context, collectionName string, vector []float32, topK int, outputFields []string) ([]milvuscomp.SearchResult, error)
	DropCollection(ctx context.Context, collectionName string) error
	GetCollectionStats(ctx context.Context, collectionName string) (int64, error)
	Close(ctx context.Context) error
}

// MilvusStore implements VectorStore on a Milvus backend.
type MilvusStore struct {
	backend milvusBackend
}

// NewMilvusStore creates a store on an established Milvus client.
func NewMilvusStore(client *milvuscomp.Client) *MilvusStore {
	return &MilvusStore{backend: client}
}

var retrievalOutputFields = []string{"embedding", "content", "creation_date", "page", "total_pages"}

// EnsureCollection embeds and inserts chunks under the named collection.
// An existing collection short-circuits: ingestion is write-once, and
// re-running the pipeline with the same parameters must always be safe.
func (s *MilvusStore) EnsureCollection(ctx context.Context, name string, embedder llm.EmbeddingProvider, chunks []model.Chunk) error {
	exists, err := s.backend.HasCollection(ctx, name)
	if err != nil {
		return fmt.Errorf("store: checking collection %q: %w", name, err)
	}
	if exists {
		logger.Infow("collection already exists, skipping ingestion", "collection", name)
		return nil
	}
	if len(chunks) == 0 {
		return fmt.Errorf("store: no chunks to ingest into collection %q", name)
	}

	logger.Infow("ingesting collection",
		"collection", name,
		"chunks", len(chunks),
		"embedder", embedder.Name(),
	)

	created := false
	batchIndex := 0
	for start := 0; start < len(chunks); start += maxInsertBatch {
		end := start + maxInsertBatch
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		batchIndex++

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Content
		}
		embeddings, err := embedder.Embed(ctx, texts)
		if err != nil {
			return &IngestionError{Collection: name, Batch: batchIndex, Err: err}
		}
		if len(embeddings) != len(batch) {
			return &IngestionError{
				Collection: name,
				Batch:      batchIndex,
				Err:        fmt.Errorf("expected %d embeddings, got %d", len(batch), len(embeddings)),
			}
		}

		if !created {
			if err := s.backend.CreateCollection(ctx, collectionSchema(name, len(embeddings[0]))); err != nil {
				return &IngestionError{Collection: name, Batch: batchIndex, Err: err}
			}
			created = true
		}

		if _, err := s.backend.Insert(ctx, name, insertData(batch, embeddings)); err != nil {
			return &IngestionError{Collection: name, Batch: batchIndex, Err: err}
		}

		logger.Infow("ingested batch",
			"collection", name,
			"batch", batchIndex,
			"rows", len(batch),
		)
	}

	return nil
}

// Retrieve fetches FetchK nearest candidates and selects K by maximal
// marginal relevance. Deterministic given fixed embeddings.
func (s *MilvusStore) Retrieve(ctx context.Context, collection string, embedder llm.EmbeddingProvider, req RetrievalRequest) ([]model.Chunk, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	queryVec, err := embedder.EmbedSingle(ctx, req.Question)
	if err != nil {
		return nil, fmt.Errorf("store: embedding question: %w", err)
	}

	results, err := s.backend.Search(ctx, collection, queryVec, req.FetchK, retrievalOutputFields)
	if err != nil {
		return nil, fmt.Errorf("store: searching collection %q: %w", collection, err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(results))
	for i, r := range results {
		vectors[i] = r.Vector
	}

	selected := maxMarginalRelevance(queryVec, vectors, req.K, req.DiversityWeight)

	chunks := make([]model.Chunk, 0, len(selected))
	for _, idx := range selected {
		chunks = append(chunks, resultToChunk(results[idx]))
	}
	return chunks, nil
}

// ListCollections lists collections with their entity counts.
func (s *MilvusStore) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	names, err := s.backend.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: listing collections: %w", err)
	}

	infos := make([]CollectionInfo, 0, len(names))
	for _, name := range names {
		size, err := s.backend.GetCollectionStats(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("store: counting collection %q: %w", name, err)
		}
		infos = append(infos, CollectionInfo{Name: name, Size: size})
	}
	return infos, nil
}

// Count returns the number of chunks in a collection.
func (s *MilvusStore) Count(ctx context.Context, collection string) (int64, error) {
	return s.backend.GetCollectionStats(ctx, collection)
}

// DropCollection removes a collection entirely.
func (s *MilvusStore) DropCollection(ctx context.Context, collection string) error {
	return s.backend.DropCollection(ctx, collection)
}

// Close releases the backend connection.
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.backend.Close(ctx)
}

func collectionSchema(name string, dimension int) *milvuscomp.CollectionSchema {
	return &milvuscomp.CollectionSchema{
		Name:        name,
		Description: "Fed press conference transcript chunks",
		Dimension:   dimension,
		MetaFields: []milvuscomp.MetaField{
			{Name: "content", DataType: entity.FieldTypeVarChar, MaxLen: contentMaxLength},
			{Name: "creation_date", DataType: entity.FieldTypeVarChar, MaxLen: 64},
			{Name: "page", DataType: entity.FieldTypeInt64},
			{Name: "total_pages", DataType: entity.FieldTypeInt64},
		},
	}
}

func insertData(chunks []model.Chunk, embeddings [][]float32) *milvuscomp.InsertData {
	contents := make([]any, len(chunks))
	dates := make([]any, len(chunks))
	pages := make([]any, len(chunks))
	totals := make([]any, len(chunks))
	for i, chunk := range chunks {
		// The schema caps content; an over-length value fails the whole
		// insert batch.
		contents[i] = textutil.TruncateString(chunk.Content, contentMaxLength)
		dates[i] = chunk.Metadata.CreationDate
		pages[i] = int64(chunk.Metadata.Page)
		totals[i] = int64(chunk.Metadata.TotalPages)
	}

	return &milvuscomp.InsertData{
		Embeddings: embeddings,
		Metadata: map[string][]any{
			"content":       contents,
			"creation_date": dates,
			"page":          pages,
			"total_pages":   totals,
		},
	}
}

func resultToChunk(r milvuscomp.SearchResult) model.Chunk {
	chunk := model.Chunk{}
	if v, ok := r.Metadata["content"].(string); ok {
		chunk.Content = v
	}
	if v, ok := r.Metadata["creation_date"].(string); ok {
		chunk.Metadata.CreationDate = v
	}
	if v, ok := r.Metadata["page"].(int64); ok {
		chunk.Metadata.Page = int(v)
	}
	if v, ok := r.Metadata["total_pages"].(int64); ok {
		chunk.Metadata.TotalPages = int(v)
	}
	return chunk
}

var _ VectorStore = (*MilvusStore)(nil)
