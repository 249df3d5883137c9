// Package llm provides a unified abstraction over LLM providers.
// Embedding and chat generation may use different providers and models.
package llm

import (
	"context"
	"fmt"
	"sync"
)

// EmbeddingProvider generates vector embeddings for text.
type EmbeddingProvider interface {
	// Embed generates embeddings for multiple texts. The result preserves
	// input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle generates an embedding for a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Name returns the provider name.
	Name() string
}

// ChatProvider generates text completions.
type ChatProvider interface {
	// Generate produces a completion for the prompt. The system prompt and
	// stop sequences may be empty.
	Generate(ctx context.Context, prompt, systemPrompt string, stop []string) (string, error)

	// Name returns the provider name.
	Name() string
}

// Provider supports both embeddings and chat generation.
type Provider interface {
	EmbeddingProvider
	ChatProvider
}

// InvocationError wraps a failed provider call with its origin.
type InvocationError struct {
	Provider string
	Op       string
	Err      error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("llm %s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// ProviderFactory creates a provider from a config map.
type ProviderFactory func(config map[string]any) (Provider, error)

var registry = &providerRegistry{
	providers: make(map[string]ProviderFactory),
}

type providerRegistry struct {
	mu        sync.RWMutex
	providers map[string]ProviderFactory
}

// RegisterProvider registers a provider factory under a name. Providers
// self-register in their package init.
func RegisterProvider(name string, factory ProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.providers[name] = factory
}

// NewProvider creates a provider instance by name.
func NewProvider(name string, config map[string]any) (Provider, error) {
	registry.mu.RLock()
	factory, ok := registry.providers[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}

	return factory(config)
}

// NewEmbeddingProvider creates an embedding provider instance by name.
func NewEmbeddingProvider(name string, config map[string]any) (EmbeddingProvider, error) {
	return NewProvider(name, config)
}

// NewChatProvider creates a chat provider instance by name.
func NewChatProvider(name string, config map[string]any) (ChatProvider, error) {
	return NewProvider(name, config)
}

// ListProviders lists all registered provider names.
func ListProviders() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	names := make([]string, 0, len(registry.providers))
	for name := range registry.providers {
		names = append(names, name)
	}

	return names
}
