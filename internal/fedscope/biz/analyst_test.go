package biz

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedscope/fedscope/internal/fedscope/store"
	"github.com/fedscope/fedscope/internal/model"
	"github.com/fedscope/fedscope/internal/pkg/chunker"
	"github.com/fedscope/fedscope/internal/pkg/structured"
	"github.com/fedscope/fedscope/pkg/llm"
)

type fakeStore struct {
	chunks      []model.Chunk
	err         error
	lastReq     store.RetrievalRequest
	lastColl    string
	collections []store.CollectionInfo
}

func (f *fakeStore) EnsureCollection(context.Context, string, llm.EmbeddingProvider, []model.Chunk) error {
	return nil
}

func (f *fakeStore) Retrieve(_ context.Context, collection string, _ llm.EmbeddingProvider, req store.RetrievalRequest) ([]model.Chunk, error) {
	f.lastColl = collection
	f.lastReq = req
	return f.chunks, f.err
}

func (f *fakeStore) ListCollections(context.Context) ([]store.CollectionInfo, error) {
	return f.collections, nil
}

func (f *fakeStore) Count(context.Context, string) (int64, error) { return 0, nil }
func (f *fakeStore) DropCollection(context.Context, string) error { return nil }
func (f *fakeStore) Close(context.Context) error                  { return nil }

type fakeChat struct {
	response   string
	err        error
	lastPrompt string
	lastSystem string
	lastStop   []string
	calls      int
}

func (f *fakeChat) Generate(_ context.Context, prompt, systemPrompt string, stop []string) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	f.lastSystem = systemPrompt
	f.lastStop = stop
	return f.response, f.err
}

func (f *fakeChat) Name() string { return "fake-chat" }

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (stubEmbedder) EmbedSingle(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (stubEmbedder) Name() string { return "stub" }

func transcriptChunk() model.Chunk {
	return model.Chunk{
		Content: "We expect inflation to be transitory.",
		Metadata: model.Metadata{
			CreationDate: "2021-06-16",
			Page:         4,
			TotalPages:   23,
		},
	}
}

func TestNewAnalystRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config *AnalystConfig
	}{
		{"empty collection", &AnalystConfig{K: 20, FetchK: 100, DiversityWeight: 0.7}},
		{"zero k", &AnalystConfig{Collection: "c", FetchK: 100, DiversityWeight: 0.7}},
		{"fetch narrower than k", &AnalystConfig{Collection: "c", K: 20, FetchK: 10, DiversityWeight: 0.7}},
		{"weight out of range", &AnalystConfig{Collection: "c", K: 20, FetchK: 100, DiversityWeight: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAnalyst(&fakeStore{}, stubEmbedder{}, &fakeChat{}, tt.config)
			assert.Error(t, err)
		})
	}
}

func TestAnalyzeUsesProductionDefaults(t *testing.T) {
	vs := &fakeStore{chunks: []model.Chunk{transcriptChunk()}}
	chat := &fakeChat{response: `{"answer": "Powell called inflation transitory [Date: 2021-06-16 | Page: 4 of 23].", "sentiment_classification": "Dovish", "key_evidence": "\"transitory\" [Date: 2021-06-16 | Page: 4 of 23]"}`}

	analyst, err := NewAnalyst(vs, stubEmbedder{}, chat, nil)
	require.NoError(t, err)

	result, err := analyst.Analyze(context.Background(), "What did Powell say about inflation?")
	require.NoError(t, err)

	assert.Equal(t, DefaultCollection, vs.lastColl)
	assert.Equal(t, 20, vs.lastReq.K)
	assert.Equal(t, 100, vs.lastReq.FetchK)
	assert.Equal(t, 0.7, vs.lastReq.DiversityWeight)

	assert.Equal(t, "Dovish", result.Analysis.Sentiment)
	assert.Contains(t, result.Analysis.Answer, "transitory")
	assert.Equal(t, structured.OutcomeStrict, result.ParseOutcome)
	assert.Equal(t, 1, result.Retrieved)
}

func TestAnalyzePassesStopSequencesAndSandwichesQuestion(t *testing.T) {
	vs := &fakeStore{chunks: []model.Chunk{transcriptChunk()}}
	chat := &fakeChat{response: `{"answer": "a", "sentiment_classification": "Neutral", "key_evidence": "e"}`}

	analyst, err := NewAnalyst(vs, stubEmbedder{}, chat, nil)
	require.NoError(t, err)

	question := "How did the framing of inflation shift during 2021?"
	_, err = analyst.Analyze(context.Background(), question)
	require.NoError(t, err)

	assert.Equal(t, []string{"Human:", "System:"}, chat.lastStop)
	assert.NotEmpty(t, chat.lastSystem)
	assert.Contains(t, chat.lastPrompt, "FRAGMENT [Date: 2021-06-16 | Page: 4 of 23]")

	first := strings.Index(chat.lastPrompt, question)
	last := strings.LastIndex(chat.lastPrompt, question)
	assert.Greater(t, last, first, "question appears before and after the context")
}

func TestAnalyzeRepairedResponse(t *testing.T) {
	vs := &fakeStore{chunks: []model.Chunk{transcriptChunk()}}
	chat := &fakeChat{response: `{"answer": "a", "sentiment_classification": "Hawkish", "key_evidence": "e",}`}

	analyst, err := NewAnalyst(vs, stubEmbedder{}, chat, nil)
	require.NoError(t, err)

	result, err := analyst.Analyze(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, structured.OutcomeRepaired, result.ParseOutcome)
	assert.Equal(t, "Hawkish", result.Analysis.Sentiment)
}

func TestAnalyzeUnparseableResponse(t *testing.T) {
	vs := &fakeStore{chunks: []model.Chunk{transcriptChunk()}}
	chat := &fakeChat{response: "I refuse to answer in JSON."}

	analyst, err := NewAnalyst(vs, stubEmbedder{}, chat, nil)
	require.NoError(t, err)

	_, err = analyst.Analyze(context.Background(), "q")

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "I refuse to answer in JSON.", genErr.Raw)

	var parseErr *structured.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestAnalyzeRetrievalFailure(t *testing.T) {
	vs := &fakeStore{err: errors.New("milvus unreachable")}
	chat := &fakeChat{}

	analyst, err := NewAnalyst(vs, stubEmbedder{}, chat, nil)
	require.NoError(t, err)

	_, err = analyst.Analyze(context.Background(), "q")
	assert.Error(t, err)
	assert.Zero(t, chat.calls, "no model call after a retrieval failure")
}

func TestAnalyzeModelFailure(t *testing.T) {
	vs := &fakeStore{chunks: []model.Chunk{transcriptChunk()}}
	chat := &fakeChat{err: errors.New("rate limited")}

	analyst, err := NewAnalyst(vs, stubEmbedder{}, chat, nil)
	require.NoError(t, err)

	_, err = analyst.Analyze(context.Background(), "q")
	assert.Error(t, err)
}

func TestAnalyzeEmptyRetrieval(t *testing.T) {
	vs := &fakeStore{}
	chat := &fakeChat{}

	analyst, err := NewAnalyst(vs, stubEmbedder{}, chat, nil)
	require.NoError(t, err)

	result, err := analyst.Analyze(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, structured.NotFound, result.Analysis.Answer)
	assert.Zero(t, chat.calls, "no model call with an empty context")
}

func TestAnalyzeChunkedTranscriptReachesPrompt(t *testing.T) {
	docs := []model.Document{
		{
			Content:  "Good afternoon. The economy continues to recover from the effects of the pandemic. Household spending is rising at an especially rapid pace this year.",
			Metadata: model.Metadata{CreationDate: "2021-06-16", Page: 0, TotalPages: 23},
		},
		{
			Content:  "Inflation has increased notably in recent months. The Committee views this as transitory, reflecting bottleneck effects that should fade as the economy reopens.",
			Metadata: model.Metadata{CreationDate: "2021-06-16", Page: 1, TotalPages: 23},
		},
		{
			Content:  "Conditions in the labor market have continued to improve. Demand for labor is very strong and job gains should pick up in coming months.",
			Metadata: model.Metadata{CreationDate: "2021-06-16", Page: 2, TotalPages: 23},
		},
	}

	chunks, err := chunker.NewRecursiveSplitter(500, 10).Split(context.Background(), docs)
	require.NoError(t, err)

	var hit []model.Chunk
	for _, chunk := range chunks {
		if strings.Contains(chunk.Content, "transitory") {
			hit = append(hit, chunk)
			break
		}
	}
	require.Len(t, hit, 1)

	vs := &fakeStore{chunks: hit}
	chat := &fakeChat{response: `{"Answer": "Transitory.", "Sentiment Classification": "Neutral", "Key Evidence": "[Date: 2021-06-16 | Page: 1 of 23]"}`}

	analyst, err := NewAnalyst(vs, stubEmbedder{}, chat, &AnalystConfig{
		Collection:      "Recursive_character_size-500_overlap-10",
		K:               1,
		FetchK:          5,
		DiversityWeight: 0.7,
	})
	require.NoError(t, err)

	_, err = analyst.Analyze(context.Background(), "what did the Committee call the inflation?")
	require.NoError(t, err)

	assert.Contains(t, chat.lastPrompt, "transitory")
	assert.Contains(t, chat.lastPrompt, "FRAGMENT [Date: 2021-06-16 | Page: 1 of 23]")
	assert.Equal(t, 1, vs.lastReq.K)
}
