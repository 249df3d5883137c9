// Package chunker splits transcript documents into retrievable chunks.
// Each strategy derives a deterministic collection name from its parameters
// so that re-running ingestion with identical parameters is idempotent.
package chunker

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/fedscope/fedscope/internal/model"
	"github.com/fedscope/fedscope/pkg/llm"
)

// Method identifies a chunking strategy.
type Method string

const (
	MethodRecursive Method = "recursive_character"
	MethodSemantic  Method = "semantic_chunker"
)

// DefaultMinChunkSize is the floor below which semantic chunks are merged
// into their predecessor. It is not encoded in the collection name.
const DefaultMinChunkSize = 100

// Params describes one chunking configuration. Recursive splitting uses
// ChunkSize and OverlapPercent; semantic splitting uses Percentile and
// MinChunkSize.
type Params struct {
	Method         Method  `json:"method"`
	ChunkSize      int     `json:"chunk_size,omitempty"`
	OverlapPercent int     `json:"overlap_percent,omitempty"`
	Percentile     float64 `json:"percentile,omitempty"`
	MinChunkSize   int     `json:"min_chunk_size,omitempty"`
}

// Validate checks that the parameters are consistent for their method.
func (p Params) Validate() error {
	switch p.Method {
	case MethodRecursive:
		if p.ChunkSize <= 0 {
			return fmt.Errorf("chunker: chunk size must be positive, got %d", p.ChunkSize)
		}
		if p.OverlapPercent < 0 || p.OverlapPercent >= 100 {
			return fmt.Errorf("chunker: overlap percent must be in [0, 100), got %d", p.OverlapPercent)
		}
	case MethodSemantic:
		if p.Percentile <= 0 || p.Percentile > 100 {
			return fmt.Errorf("chunker: percentile must be in (0, 100], got %g", p.Percentile)
		}
		if p.MinChunkSize < 0 {
			return fmt.Errorf("chunker: min chunk size must be non-negative, got %d", p.MinChunkSize)
		}
	default:
		return fmt.Errorf("chunker: unknown method %q", p.Method)
	}
	return nil
}

// CollectionName derives the deterministic collection name for these
// parameters.
func (p Params) CollectionName() string {
	switch p.Method {
	case MethodSemantic:
		return fmt.Sprintf("Semantic_chunker_%sth_percentile", strconv.FormatFloat(p.Percentile, 'f', -1, 64))
	default:
		return fmt.Sprintf("Recursive_character_size-%d_overlap-%d", p.ChunkSize, p.OverlapPercent)
	}
}

var (
	recursiveNameRegex = regexp.MustCompile(`^Recursive_character_size-(\d+)_overlap-(\d+)$`)
	semanticNameRegex  = regexp.MustCompile(`^Semantic_chunker_(\d+(?:\.\d+)?)th_percentile$`)
)

// ParseCollectionName recovers the parameters encoded in a collection name.
// It is the exact inverse of CollectionName for valid parameters.
func ParseCollectionName(name string) (Params, error) {
	if m := recursiveNameRegex.FindStringSubmatch(name); m != nil {
		size, err := strconv.Atoi(m[1])
		if err != nil {
			return Params{}, fmt.Errorf("chunker: invalid chunk size in collection name %q: %w", name, err)
		}
		overlap, err := strconv.Atoi(m[2])
		if err != nil {
			return Params{}, fmt.Errorf("chunker: invalid overlap in collection name %q: %w", name, err)
		}
		return Params{
			Method:         MethodRecursive,
			ChunkSize:      size,
			OverlapPercent: overlap,
		}, nil
	}

	if m := semanticNameRegex.FindStringSubmatch(name); m != nil {
		percentile, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return Params{}, fmt.Errorf("chunker: invalid percentile in collection name %q: %w", name, err)
		}
		return Params{
			Method:       MethodSemantic,
			Percentile:   percentile,
			MinChunkSize: DefaultMinChunkSize,
		}, nil
	}

	return Params{}, fmt.Errorf("chunker: unrecognized collection name %q", name)
}

// Strategy splits documents into chunks. Implementations are pure given
// fixed inputs: the same documents and parameters always produce the same
// chunks.
type Strategy interface {
	// Split chunks the documents, preserving each source document's
	// metadata on every derived chunk.
	Split(ctx context.Context, docs []model.Document) ([]model.Chunk, error)

	// Params returns the strategy's parameters.
	Params() Params
}

// NewStrategy builds the strategy for the given parameters. The embedder is
// only used by the semantic method and may be nil for recursive splitting.
func NewStrategy(p Params, embedder llm.EmbeddingProvider) (Strategy, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	switch p.Method {
	case MethodSemantic:
		if embedder == nil {
			return nil, fmt.Errorf("chunker: semantic splitting requires an embedder")
		}
		return NewSemanticSplitter(embedder, p.Percentile, p.MinChunkSize), nil
	default:
		return NewRecursiveSplitter(p.ChunkSize, p.OverlapPercent), nil
	}
}
