package llm

import (
	"context"
	"crypto/sha256"
	"sync"
)

// CachedEmbeddingProvider wraps an EmbeddingProvider with an in-process
// cache keyed by text hash. Embeddings are deterministic for a fixed model,
// so repeated texts (evaluation queries re-embedded across a sweep) only
// hit the backend once.
type CachedEmbeddingProvider struct {
	provider EmbeddingProvider

	mu    sync.RWMutex
	cache map[[32]byte][]float32
}

// NewCachedEmbeddingProvider creates a caching wrapper around provider.
func NewCachedEmbeddingProvider(provider EmbeddingProvider) *CachedEmbeddingProvider {
	return &CachedEmbeddingProvider{
		provider: provider,
		cache:    make(map[[32]byte][]float32),
	}
}

// EmbedSingle generates an embedding for a single text, serving from cache
// when the text was embedded before.
func (c *CachedEmbeddingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	key := sha256.Sum256([]byte(text))

	c.mu.RLock()
	cached, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	embedding, err := c.provider.EmbedSingle(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = embedding
	c.mu.Unlock()

	return embedding, nil
}

// Embed generates embeddings for multiple texts, calling the backend only
// for texts not yet cached.
func (c *CachedEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	var missIndices []int
	var missTexts []string

	c.mu.RLock()
	for i, text := range texts {
		key := sha256.Sum256([]byte(text))
		if cached, ok := c.cache[key]; ok {
			embeddings[i] = cached
			continue
		}
		missIndices = append(missIndices, i)
		missTexts = append(missTexts, text)
	}
	c.mu.RUnlock()

	if len(missTexts) == 0 {
		return embeddings, nil
	}

	fresh, err := c.provider.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	for i, idx := range missIndices {
		embeddings[idx] = fresh[i]
		key := sha256.Sum256([]byte(missTexts[i]))
		c.cache[key] = fresh[i]
	}
	c.mu.Unlock()

	return embeddings, nil
}

// Name returns the wrapped provider name.
func (c *CachedEmbeddingProvider) Name() string {
	return c.provider.Name() + "-cached"
}

// Len reports the number of cached entries.
func (c *CachedEmbeddingProvider) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Clear drops all cached entries.
func (c *CachedEmbeddingProvider) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[[32]byte][]float32)
}

var _ EmbeddingProvider = (*CachedEmbeddingProvider)(nil)
