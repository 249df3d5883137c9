package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(baseURL string) *Provider {
	return NewProviderWithConfig(&Config{
		BaseURL:     baseURL,
		EmbedModel:  "bge-large-en-v1.5",
		ChatModel:   "llama3.1:8b",
		Timeout:     5 * time.Second,
		MaxRetries:  1,
		Temperature: 0.25,
	})
}

func TestProvider_Generate_ForwardsStopAndTemperature(t *testing.T) {
	var gotReq generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(generateResponse{
			Model:    "llama3.1:8b",
			Response: "The tone shifted over the course of 2021.",
			Done:     true,
		})
	}))
	defer server.Close()

	provider := newTestProvider(server.URL)

	result, err := provider.Generate(context.Background(), "the question", "analyst instructions", []string{"Human:", "System:"})
	require.NoError(t, err)
	assert.Equal(t, "The tone shifted over the course of 2021.", result)

	assert.Equal(t, "the question", gotReq.Prompt)
	assert.Equal(t, "analyst instructions", gotReq.System)
	assert.False(t, gotReq.Stream)
	assert.Equal(t, []string{"Human:", "System:"}, gotReq.Options.Stop)
	assert.InDelta(t, 0.25, gotReq.Options.Temperature, 1e-9)
}

func TestProvider_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embed", r.URL.Path)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "bge-large-en-v1.5", req.Model)

		embeddings := make([][]float32, len(req.Input))
		for i := range req.Input {
			embeddings[i] = []float32{float32(i), float32(i)}
		}
		_ = json.NewEncoder(w).Encode(embedResponse{Model: req.Model, Embeddings: embeddings})
	}))
	defer server.Close()

	provider := newTestProvider(server.URL)

	embeddings, err := provider.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, embeddings, 3)
	assert.Equal(t, []float32{2, 2}, embeddings[2])
}

func TestProvider_Embed_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{1}}})
	}))
	defer server.Close()

	provider := newTestProvider(server.URL)

	_, err := provider.Embed(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

func TestProvider_Unreachable(t *testing.T) {
	provider := NewProviderWithConfig(&Config{
		BaseURL:    "http://127.0.0.1:1",
		Timeout:    500 * time.Millisecond,
		MaxRetries: 0,
	})

	_, err := provider.EmbedSingle(context.Background(), "text")
	assert.Error(t, err)
}

func TestNewProvider_Defaults(t *testing.T) {
	provider, err := NewProvider(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, ProviderName, provider.Name())
}
