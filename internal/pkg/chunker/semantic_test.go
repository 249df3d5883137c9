package chunker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedscope/fedscope/internal/model"
)

// topicEmbedder returns one of two fixed vectors depending on whether the
// sentence mentions inflation, so topic changes produce distance spikes.
type topicEmbedder struct {
	err   error
	calls int
}

func (e *topicEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if containsWord(text, "inflation") {
			out[i] = []float32{1, 0}
		} else {
			out[i] = []float32{0, 1}
		}
	}
	return out, nil
}

func (e *topicEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *topicEmbedder) Name() string { return "topic-stub" }

func containsWord(text, word string) bool {
	for i := 0; i+len(word) <= len(text); i++ {
		match := true
		for j := 0; j < len(word); j++ {
			c := text[i+j]
			if c >= 'A' && c <= 'Z' {
				c += 'a' - 'A'
			}
			if c != word[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func TestSemanticSplitter_BreaksAtTopicShift(t *testing.T) {
	embedder := &topicEmbedder{}
	splitter := NewSemanticSplitter(embedder, 50, 1)

	content := "Inflation ran hot in twenty twenty-one and stayed elevated for months. " +
		"Inflation expectations remained anchored throughout the year nonetheless. " +
		"The labor market recovered steadily as participation improved over time. " +
		"Employment gains were broad-based across every major industry sector."

	chunks, err := splitter.Split(context.Background(), []model.Document{{
		Content:  content,
		Metadata: testMetadata(),
	}})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[0].Content, "Inflation ran hot")
	assert.Contains(t, chunks[0].Content, "expectations remained anchored")
	assert.Contains(t, chunks[1].Content, "labor market recovered")
	for _, chunk := range chunks {
		assert.Equal(t, testMetadata(), chunk.Metadata)
	}
}

func TestSemanticSplitter_MinChunkSizeMergesRunts(t *testing.T) {
	embedder := &topicEmbedder{}
	// Every boundary fires, but the floor forces merges back together.
	splitter := NewSemanticSplitter(embedder, 50, 500)

	content := "Inflation was the story of the year. " +
		"The labor market told a different story. " +
		"Participation kept climbing through the fall."

	chunks, err := splitter.Split(context.Background(), []model.Document{{
		Content:  content,
		Metadata: testMetadata(),
	}})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Content, "Inflation was the story")
	assert.Contains(t, chunks[0].Content, "kept climbing through the fall")
}

func TestSemanticSplitter_SingleSentence(t *testing.T) {
	embedder := &topicEmbedder{}
	splitter := NewSemanticSplitter(embedder, 90, 1)

	chunks, err := splitter.Split(context.Background(), []model.Document{{
		Content:  "One lone sentence about policy.",
		Metadata: testMetadata(),
	}})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, embedder.calls, "single sentence needs no embedding call")
}

func TestSemanticSplitter_EmptyDocument(t *testing.T) {
	splitter := NewSemanticSplitter(&topicEmbedder{}, 90, 1)

	chunks, err := splitter.Split(context.Background(), []model.Document{{
		Content:  "",
		Metadata: testMetadata(),
	}})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSemanticSplitter_EmbeddingFailure(t *testing.T) {
	embedder := &topicEmbedder{err: errors.New("backend down")}
	splitter := NewSemanticSplitter(embedder, 90, 1)

	_, err := splitter.Split(context.Background(), []model.Document{{
		Content:  "First sentence here. Second sentence there.",
		Metadata: testMetadata(),
	}})
	assert.Error(t, err)
}

func TestSemanticSplitter_Params(t *testing.T) {
	splitter := NewSemanticSplitter(&topicEmbedder{}, 97.5, 0)
	params := splitter.Params()
	assert.Equal(t, MethodSemantic, params.Method)
	assert.Equal(t, DefaultMinChunkSize, params.MinChunkSize)
	assert.Equal(t, "Semantic_chunker_97.5th_percentile", params.CollectionName())
}
