package openai

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

const testAPIKey = "test-key"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "https://api.openai.com/v1", cfg.BaseURL)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbedModel)
	assert.Equal(t, "gpt-4o-mini", cfg.ChatModel)
	assert.Equal(t, 120*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.MaxRetries)
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name      string
		config    map[string]any
		wantError bool
	}{
		{
			name:      "valid config",
			config:    map[string]any{"api_key": testAPIKey},
			wantError: false,
		},
		{
			name: "custom config",
			config: map[string]any{
				"api_key":     testAPIKey,
				"base_url":    "http://localhost:8080/v1",
				"embed_model": "text-embedding-3-large",
				"chat_model":  "gpt-4o",
				"temperature": 0.25,
			},
			wantError: false,
		},
		{
			name:      "missing api_key",
			config:    map[string]any{},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(tt.config)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ProviderName, provider.Name())
		})
	}
}

func TestProvider_Generate(t *testing.T) {
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer "+testAPIKey, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		resp := map[string]any{
			"choices": []map[string]any{
				{
					"message":       map[string]string{"role": "assistant", "content": `{"sentiment": "hawkish"}`},
					"finish_reason": "stop",
				},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider := NewProviderWithConfig(&Config{
		BaseURL:     server.URL,
		APIKey:      testAPIKey,
		ChatModel:   "gpt-4o-mini",
		Timeout:     5 * time.Second,
		MaxRetries:  1,
		Temperature: 0.25,
	})

	result, err := provider.Generate(context.Background(), "the prompt", "the system prompt", []string{"Human:", "System:"})
	require.NoError(t, err)
	assert.Equal(t, `{"sentiment": "hawkish"}`, result)

	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "the system prompt", gotReq.Messages[0].Content)
	assert.Equal(t, "user", gotReq.Messages[1].Role)
	assert.Equal(t, []string{"Human:", "System:"}, gotReq.Stop)
	require.NotNil(t, gotReq.Temperature)
	assert.InDelta(t, 0.25, *gotReq.Temperature, 1e-9)
}

func TestProvider_Generate_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	provider := NewProviderWithConfig(&Config{
		BaseURL:    server.URL,
		APIKey:     testAPIKey,
		ChatModel:  "gpt-4o-mini",
		Timeout:    5 * time.Second,
		MaxRetries: 1,
	})

	_, err := provider.Generate(context.Background(), "prompt", "", nil)
	assert.Error(t, err)
}

func TestProvider_Embed_PreservesOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)

		// Return embeddings deliberately out of order.
		resp := map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float32{0.2, 0.2}},
				{"index": 0, "embedding": []float32{0.1, 0.1}},
			},
			"model": "text-embedding-3-small",
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider := NewProviderWithConfig(&Config{
		BaseURL:    server.URL,
		APIKey:     testAPIKey,
		EmbedModel: "text-embedding-3-small",
		Timeout:    5 * time.Second,
		MaxRetries: 1,
	})

	embeddings, err := provider.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, embeddings, 2)
	assert.Equal(t, []float32{0.1, 0.1}, embeddings[0])
	assert.Equal(t, []float32{0.2, 0.2}, embeddings[1])
}

func TestProvider_Embed_Empty(t *testing.T) {
	provider := NewProviderWithConfig(DefaultConfig())

	embeddings, err := provider.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, embeddings)
}
