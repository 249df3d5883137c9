package chunker

import (
	"context"
	"fmt"
	"strings"

	"github.com/fedscope/fedscope/internal/model"
	"github.com/fedscope/fedscope/internal/pkg/textutil"
	"github.com/fedscope/fedscope/pkg/llm"
)

// SemanticSplitter places chunk boundaries where the embedding distance
// between adjacent sentences spikes above a percentile of the distance
// distribution. A lighter embedding model than the retrieval index is fine
// here; the embeddings never leave this package.
type SemanticSplitter struct {
	embedder     llm.EmbeddingProvider
	percentile   float64
	minChunkSize int
}

// NewSemanticSplitter creates a semantic splitter. minChunkSize is a floor
// in characters; undersized chunks are merged into their predecessor.
func NewSemanticSplitter(embedder llm.EmbeddingProvider, percentile float64, minChunkSize int) *SemanticSplitter {
	if minChunkSize <= 0 {
		minChunkSize = DefaultMinChunkSize
	}
	return &SemanticSplitter{
		embedder:     embedder,
		percentile:   percentile,
		minChunkSize: minChunkSize,
	}
}

// Params returns the splitter parameters.
func (s *SemanticSplitter) Params() Params {
	return Params{
		Method:       MethodSemantic,
		Percentile:   s.percentile,
		MinChunkSize: s.minChunkSize,
	}
}

// Split chunks each document at semantic breakpoints, propagating its
// metadata to every derived chunk.
func (s *SemanticSplitter) Split(ctx context.Context, docs []model.Document) ([]model.Chunk, error) {
	if err := s.Params().Validate(); err != nil {
		return nil, err
	}

	var chunks []model.Chunk
	for _, doc := range docs {
		pieces, err := s.splitDocument(ctx, doc.Content)
		if err != nil {
			return nil, err
		}
		for _, piece := range pieces {
			chunks = append(chunks, model.Chunk{
				Content:  piece,
				Metadata: doc.Metadata,
			})
		}
	}
	return chunks, nil
}

func (s *SemanticSplitter) splitDocument(ctx context.Context, content string) ([]string, error) {
	sentences := textutil.SplitSentences(content)
	if len(sentences) == 0 {
		return nil, nil
	}
	if len(sentences) == 1 {
		return sentences, nil
	}

	embeddings, err := s.embedder.Embed(ctx, sentences)
	if err != nil {
		return nil, fmt.Errorf("chunker: embedding sentences: %w", err)
	}
	if len(embeddings) != len(sentences) {
		return nil, fmt.Errorf("chunker: expected %d sentence embeddings, got %d", len(sentences), len(embeddings))
	}

	// Distance between each adjacent sentence pair; a boundary goes wherever
	// the distance exceeds the configured percentile of the distribution.
	distances := make([]float64, len(sentences)-1)
	for i := 0; i < len(sentences)-1; i++ {
		distances[i] = 1 - textutil.CosineSimilarity(embeddings[i], embeddings[i+1])
	}
	threshold := textutil.Percentile(distances, s.percentile)

	var pieces []string
	var current []string
	for i, sentence := range sentences {
		current = append(current, sentence)
		if i < len(distances) && distances[i] > threshold {
			pieces = append(pieces, strings.Join(current, " "))
			current = nil
		}
	}
	if len(current) > 0 {
		pieces = append(pieces, strings.Join(current, " "))
	}

	return s.mergeUndersized(pieces), nil
}

// mergeUndersized folds chunks shorter than minChunkSize into the previous
// chunk. A leading undersized chunk merges forward instead.
func (s *SemanticSplitter) mergeUndersized(pieces []string) []string {
	if len(pieces) <= 1 {
		return pieces
	}

	var merged []string
	for _, piece := range pieces {
		if len([]rune(piece)) < s.minChunkSize && len(merged) > 0 {
			merged[len(merged)-1] = merged[len(merged)-1] + " " + piece
			continue
		}
		merged = append(merged, piece)
	}

	// A single leading runt has nothing behind it to merge into.
	if len(merged) > 1 && len([]rune(merged[0])) < s.minChunkSize {
		merged[1] = merged[0] + " " + merged[1]
		merged = merged[1:]
	}

	return merged
}
