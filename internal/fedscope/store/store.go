// Package store provides the vector store gateway: write-once collection
// ingestion and diversity-aware retrieval over chunked transcripts.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/fedscope/fedscope/internal/model"
	"github.com/fedscope/fedscope/pkg/llm"
)

// RetrievalRequest describes one retrieval. FetchK nearest candidates are
// fetched, then K of them are selected by relevance/diversity re-ranking.
type RetrievalRequest struct {
	Question string
	// K is the number of chunks to return.
	K int
	// FetchK is the candidate pool size, typically a multiple of K.
	FetchK int
	// DiversityWeight trades relevance against diversity in [0, 1]; higher
	// favors relevance.
	DiversityWeight float64
}

// Validate checks the request parameters.
func (r RetrievalRequest) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return fmt.Errorf("store: question is empty")
	}
	if r.K <= 0 {
		return fmt.Errorf("store: k must be positive, got %d", r.K)
	}
	if r.FetchK < r.K {
		return fmt.Errorf("store: fetch_k %d must be at least k %d", r.FetchK, r.K)
	}
	if r.DiversityWeight < 0 || r.DiversityWeight > 1 {
		return fmt.Errorf("store: diversity weight must be in [0, 1], got %g", r.DiversityWeight)
	}
	return nil
}

// CollectionInfo summarizes one collection.
type CollectionInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// VectorStore is the gateway to the vector database.
type VectorStore interface {
	// EnsureCollection ingests chunks into a named collection. If the
	// collection already exists the call is a no-op; ingestion is write-once.
	EnsureCollection(ctx context.Context, name string, embedder llm.EmbeddingProvider, chunks []model.Chunk) error

	// Retrieve returns chunks for the request, re-ranked by maximal
	// marginal relevance.
	Retrieve(ctx context.Context, collection string, embedder llm.EmbeddingProvider, req RetrievalRequest) ([]model.Chunk, error)

	// ListCollections lists collections with their sizes.
	ListCollections(ctx context.Context) ([]CollectionInfo, error)

	// Count returns the number of chunks in a collection.
	Count(ctx context.Context, collection string) (int64, error)

	// DropCollection removes a collection. The only recovery path for a
	// partially ingested collection is dropping and re-ingesting it.
	DropCollection(ctx context.Context, collection string) error

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}

// ConnectivityError is a backing service unreachable at startup. Fatal and
// never retried: nothing downstream can proceed without the service.
type ConnectivityError struct {
	Target string
	Err    error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("store: %s unreachable: %v", e.Target, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// IngestionError is a vector-store write failure mid-ingestion. The
// collection is left incomplete and is NOT retried automatically: the
// write-once check would treat the partial collection as done, so the
// caller must drop it before re-ingesting.
type IngestionError struct {
	Collection string
	Batch      int
	Err        error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("store: ingesting batch %d into collection %q: %v (collection is incomplete, drop it before retrying)",
		e.Batch, e.Collection, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}
