// Package openai implements an LLM provider for the OpenAI API and
// OpenAI-compatible services such as Groq and LocalAI.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fedscope/fedscope/pkg/llm"
	"github.com/fedscope/fedscope/pkg/utils/httpclient"
	"github.com/fedscope/fedscope/pkg/utils/json"
)

// ProviderName identifies the OpenAI provider in the registry.
const ProviderName = "openai"

func init() {
	llm.RegisterProvider(ProviderName, NewProvider)
}

// Config holds OpenAI provider settings.
type Config struct {
	// BaseURL is the API base address. Point it at any OpenAI-compatible
	// endpoint to use a different backend.
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// APIKey authenticates requests.
	APIKey string `json:"api_key" mapstructure:"api_key"`

	// EmbedModel is the model used for embeddings.
	EmbedModel string `json:"embed_model" mapstructure:"embed_model"`

	// ChatModel is the model used for completions.
	ChatModel string `json:"chat_model" mapstructure:"chat_model"`

	// Timeout bounds each HTTP request.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries bounds transport-level retries.
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`

	// Temperature controls sampling randomness. Zero leaves the API default.
	Temperature float64 `json:"temperature" mapstructure:"temperature"`

	// MaxTokens caps the completion length. Zero leaves the API default.
	MaxTokens int `json:"max_tokens" mapstructure:"max_tokens"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "https://api.openai.com/v1",
		EmbedModel: "text-embedding-3-small",
		ChatModel:  "gpt-4o-mini",
		Timeout:    120 * time.Second,
		MaxRetries: 3,
	}
}

// Provider implements llm.Provider against an OpenAI-compatible API.
type Provider struct {
	config *Config
	client *httpclient.Client
}

// NewProvider creates an OpenAI provider from a config map.
func NewProvider(configMap map[string]any) (llm.Provider, error) {
	cfg := DefaultConfig()

	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
	}
	if v, ok := configMap["api_key"].(string); ok && v != "" {
		cfg.APIKey = v
	}
	if v, ok := configMap["embed_model"].(string); ok && v != "" {
		cfg.EmbedModel = v
	}
	if v, ok := configMap["chat_model"].(string); ok && v != "" {
		cfg.ChatModel = v
	}
	if v, ok := configMap["timeout"].(time.Duration); ok && v > 0 {
		cfg.Timeout = v
	}
	if v, ok := configMap["max_retries"].(int); ok && v > 0 {
		cfg.MaxRetries = v
	}
	if v, ok := configMap["temperature"].(float64); ok {
		cfg.Temperature = v
	}
	if v, ok := configMap["max_tokens"].(int); ok {
		cfg.MaxTokens = v
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: api_key is required")
	}

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig creates an OpenAI provider from structured config.
func NewProviderWithConfig(cfg *Config) *Provider {
	return &Provider{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout, cfg.MaxRetries),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return ProviderName
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// Embed generates embeddings for multiple texts.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := embeddingRequest{
		Model: p.config.EmbedModel,
		Input: texts,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &llm.InvocationError{Provider: ProviderName, Op: "embed", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, &llm.InvocationError{Provider: ProviderName, Op: "embed", Err: err}
	}
	p.setHeaders(req)

	var embedResp embeddingResponse
	if err := p.client.DoJSON(req, &embedResp); err != nil {
		return nil, &llm.InvocationError{Provider: ProviderName, Op: "embed", Err: err}
	}

	// The API may return items out of order, keyed by index.
	embeddings := make([][]float32, len(texts))
	for _, data := range embedResp.Data {
		if data.Index < len(embeddings) {
			embeddings[data.Index] = data.Embedding
		}
	}

	return embeddings, nil
}

// EmbedSingle generates an embedding for a single text.
func (p *Provider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, &llm.InvocationError{Provider: ProviderName, Op: "embed", Err: fmt.Errorf("no embedding returned")}
	}
	return embeddings[0], nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// Generate produces a completion for the prompt.
func (p *Provider) Generate(ctx context.Context, prompt, systemPrompt string, stop []string) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	reqBody := chatRequest{
		Model:    p.config.ChatModel,
		Messages: messages,
		Stream:   false,
	}
	if p.config.MaxTokens > 0 {
		reqBody.MaxTokens = p.config.MaxTokens
	}
	if p.config.Temperature > 0 {
		t := p.config.Temperature
		reqBody.Temperature = &t
	}
	if len(stop) > 0 {
		reqBody.Stop = stop
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", &llm.InvocationError{Provider: ProviderName, Op: "generate", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &llm.InvocationError{Provider: ProviderName, Op: "generate", Err: err}
	}
	p.setHeaders(req)

	var chatResp chatResponse
	if err := p.client.DoJSON(req, &chatResp); err != nil {
		return "", &llm.InvocationError{Provider: ProviderName, Op: "generate", Err: err}
	}

	if len(chatResp.Choices) == 0 {
		return "", &llm.InvocationError{Provider: ProviderName, Op: "generate", Err: fmt.Errorf("no completion returned")}
	}

	return chatResp.Choices[0].Message.Content, nil
}

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
}
