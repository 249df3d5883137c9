// Package ollama implements an LLM provider backed by a local Ollama server.
package ollama

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

const ProviderName = "ollama"

func init() {
	llm.RegisterProvider(ProviderName, NewProvider)
}

// Config holds Ollama provider settings.
type Config struct {
	BaseURL     string        `json:"base_url" mapstructure:"base_url"`
	EmbedModel  string        `json:"embed_model" mapstructure:"embed_model"`
	ChatModel   string        `json:"chat_model" mapstructure:"chat_model"`
	Timeout     time.Duration `json:"timeout" mapstructure:"timeout"`
	MaxRetries  int           `json:"max_retries" mapstructure:"max_retries"`
	Temperature float64       `json:"temperature" mapstructure:"temperature"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "http://localhost:11434",
		EmbedModel: "bge-large-en-v1.5",
		ChatModel:  "llama3.1:8b",
		Timeout:    120 * time.Second,
		MaxRetries: 3,
	}
}

// Provider implements llm.Provider against an Ollama server.
type Provider struct {
	config *Config
	client *httpclient.Client
}

// NewProvider creates an Ollama provider from a config map.
func NewProvider(configMap map[string]any) (llm.Provider, error) {
	cfg := DefaultConfig()

	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
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

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig creates an Ollama provider from structured config.
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

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed generates embeddings for multiple texts.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := embedRequest{
		Model: p.config.EmbedModel,
		Input: texts,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &llm.InvocationError{Provider: ProviderName, Op: "embed", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, &llm.InvocationError{Provider: ProviderName, Op: "embed", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	var embedResp embedResponse
	if err := p.client.DoJSON(req, &embedResp); err != nil {
		return nil, &llm.InvocationError{Provider: ProviderName, Op: "embed", Err: err}
	}

	if len(embedResp.Embeddings) != len(texts) {
		return nil, &llm.InvocationError{
			Provider: ProviderName,
			Op:       "embed",
			Err:      fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embedResp.Embeddings)),
		}
	}

	return embedResp.Embeddings, nil
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

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	System  string          `json:"system,omitempty"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64  `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate produces a completion for the prompt.
func (p *Provider) Generate(ctx context.Context, prompt, systemPrompt string, stop []string) (string, error) {
	reqBody := generateRequest{
		Model:  p.config.ChatModel,
		Prompt: prompt,
		Stream: false,
		System: systemPrompt,
		Options: generateOptions{
			Temperature: p.config.Temperature,
			Stop:        stop,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", &llm.InvocationError{Provider: ProviderName, Op: "generate", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", &llm.InvocationError{Provider: ProviderName, Op: "generate", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	var genResp generateResponse
	if err := p.client.DoJSON(req, &genResp); err != nil {
		return "", &llm.InvocationError{Provider: ProviderName, Op: "generate", Err: err}
	}

	return genResp.Response, nil
}
