package domain

import "sync"

// RuntimeConfig tracks which optional services are available at runtime.
// Capability flags are updated when AI services change.
// Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	CacheBackend string // "redis" or "none"

	// Dynamic capability flags
	embeddingAvailable bool
	rerankAvailable    bool
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(cacheBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		CacheBackend: cacheBackend,
	}
}

// EmbeddingAvailable returns whether the embedding service is available
func (c *RuntimeConfig) EmbeddingAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingAvailable
}

// RerankAvailable returns whether the local rerank model is available
func (c *RuntimeConfig) RerankAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rerankAvailable
}

// SetEmbeddingAvailable updates the embedding availability flag
func (c *RuntimeConfig) SetEmbeddingAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embeddingAvailable = available
}

// SetRerankAvailable updates the rerank availability flag
func (c *RuntimeConfig) SetRerankAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rerankAvailable = available
}

// CanDoHybridSearch returns true if the vector leg of hybrid search is possible
func (c *RuntimeConfig) CanDoHybridSearch() bool {
	return c.EmbeddingAvailable()
}

// CanDoRerank returns true if second-pass reranking is possible
func (c *RuntimeConfig) CanDoRerank() bool {
	return c.RerankAvailable()
}
