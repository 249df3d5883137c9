// Package llm provides LLM provider configuration options.
package llm

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/fedscope/fedscope/pkg/options"
)

var _ options.IOptions = (*ProviderOptions)(nil)

// ProviderOptions configures one LLM provider instance. The same section is
// reused for the answer model, the judge model, and both embedding models,
// each under its own flag prefix.
type ProviderOptions struct {
	// Provider is the provider name (openai, ollama).
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL is the API base URL. For the openai provider this may point at
	// any OpenAI-compatible endpoint.
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey authenticates against providers that require one.
	APIKey string `json:"api-key" mapstructure:"api-key"`

	// Model is the model name to use.
	Model string `json:"model" mapstructure:"model"`

	// Temperature controls sampling randomness; 0 leaves the API default.
	Temperature float64 `json:"temperature" mapstructure:"temperature"`

	// Timeout is the per-request timeout.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries bounds retries of transient request failures.
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`
}

// NewProviderOptions creates default provider options.
func NewProviderOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:   "ollama",
		BaseURL:    "http://localhost:11434",
		Timeout:    120 * time.Second,
		MaxRetries: 3,
	}
}

// NewEmbeddingOptions creates defaults for the retrieval-index embedder.
func NewEmbeddingOptions() *ProviderOptions {
	opts := NewProviderOptions()
	opts.Model = "bge-large-en-v1.5"
	return opts
}

// NewChunkEmbeddingOptions creates defaults for the cheaper embedder used
// only for semantic-boundary detection at chunking time. Its vectors are
// never mixed with the retrieval index.
func NewChunkEmbeddingOptions() *ProviderOptions {
	opts := NewProviderOptions()
	opts.Model = "bge-small-en-v1.5"
	return opts
}

// NewChatOptions creates defaults for the answer model.
func NewChatOptions() *ProviderOptions {
	opts := NewProviderOptions()
	opts.Model = "llama3.1:8b"
	opts.Temperature = 0.25
	return opts
}

// NewJudgeOptions creates defaults for the judge model. The judge scores
// checklists, so it runs close to deterministic.
func NewJudgeOptions() *ProviderOptions {
	opts := NewProviderOptions()
	opts.Model = "qwen2.5:7b-instruct"
	opts.Temperature = 0.001
	return opts
}

// ToConfigMap converts the options into the map consumed by the provider
// factories.
func (o *ProviderOptions) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url":    o.BaseURL,
		"api_key":     o.APIKey,
		"embed_model": o.Model,
		"chat_model":  o.Model,
		"temperature": o.Temperature,
		"timeout":     o.Timeout,
		"max_retries": o.MaxRetries,
	}
}

// AddFlags adds flags for LLM provider options to the specified FlagSet.
// The prefix distinguishes the provider instances, e.g. "embedding" or
// "chat".
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Provider, options.Join(prefixes...)+"provider", o.Provider, "LLM provider (openai, ollama).")
	fs.StringVar(&o.BaseURL, options.Join(prefixes...)+"base-url", o.BaseURL, "LLM API base URL.")
	fs.StringVar(&o.APIKey, options.Join(prefixes...)+"api-key", o.APIKey, "LLM API key.")
	fs.StringVar(&o.Model, options.Join(prefixes...)+"model", o.Model, "LLM model name.")
	fs.Float64Var(&o.Temperature, options.Join(prefixes...)+"temperature", o.Temperature, "Sampling temperature (0 = API default).")
	fs.DurationVar(&o.Timeout, options.Join(prefixes...)+"timeout", o.Timeout, "LLM request timeout.")
	fs.IntVar(&o.MaxRetries, options.Join(prefixes...)+"max-retries", o.MaxRetries, "LLM maximum number of retries.")
}

// Validate validates the LLM provider options.
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Provider == "" {
		errs = append(errs, fmt.Errorf("provider is required"))
	}
	if o.BaseURL == "" {
		errs = append(errs, fmt.Errorf("base-url is required"))
	}
	if o.Model == "" {
		errs = append(errs, fmt.Errorf("model is required"))
	}
	if o.Provider == "openai" && o.APIKey == "" {
		errs = append(errs, fmt.Errorf("api-key is required for openai provider"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive"))
	}
	return errs
}

// Complete completes the LLM provider options with defaults.
func (o *ProviderOptions) Complete() error {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	return nil
}
