package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidQuery indicates the search query failed input validation
	ErrInvalidQuery = errors.New("invalid search query")

	// ErrEmbeddingUnavailable indicates the embedding service could not
	// produce a query embedding
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrSearchUnavailable indicates the hybrid search store failed
	ErrSearchUnavailable = errors.New("search unavailable")

	// ErrCacheMiss indicates no cached entry exists for the key
	ErrCacheMiss = errors.New("cache miss")

	// ErrModelUnavailable indicates the rerank model failed to load
	ErrModelUnavailable = errors.New("rerank model unavailable")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates the AI service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")
)
