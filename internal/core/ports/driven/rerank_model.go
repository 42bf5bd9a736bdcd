package driven

import "context"

// RerankModel is a local sentence-embedding model used for second-pass
// reranking. Loading is expensive; implementations are loaded at most
// once per process and are safe for concurrent Encode calls after that.
type RerankModel interface {
	// Encode embeds the given texts into unit-normalized vectors
	Encode(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension size
	Dimensions() int

	// Close releases the model runtime
	Close() error
}

// RerankModelLoader constructs the rerank model on first use.
type RerankModelLoader func() (RerankModel, error)
