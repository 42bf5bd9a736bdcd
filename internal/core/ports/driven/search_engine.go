package driven

import (
	"context"

	"github.com/archivio-labs/archivio-search/internal/core/domain"
)

// HybridSearchRequest carries the scoping and ranking inputs for one
// hybrid store query. QueryText is already normalized by the query
// processor; QueryEmbedding is the embedded form of the same text.
// Limit/Offset override the pagination carried in Query so the
// orchestrator can over-fetch candidates for reranking.
type HybridSearchRequest struct {
	QueryText      string
	QueryEmbedding []float32
	FuzzyWords     []string
	Query          domain.SearchQuery
	Weights        domain.SearchWeights
	FuzzyThreshold float64
	MaxVectorDist  float64
	Limit          int
	Offset         int
}

// SearchEngine executes ranked queries against the chunk store.
// HybridSearch returns an explicit error on failure; callers branch to
// FallbackSearch rather than relying on recovery.
type SearchEngine interface {
	// HybridSearch computes full-text rank, vector cosine similarity and
	// trigram word similarity per chunk in a single store query, groups
	// matches by document and returns them ordered by combined score.
	HybridSearch(ctx context.Context, req HybridSearchRequest) ([]*domain.SearchResult, error)

	// FallbackSearch performs a plain case-insensitive substring match
	// with the same user/folder/archived scoping. It depends only on
	// string containment and must not fail on missing indexes.
	FallbackSearch(ctx context.Context, req HybridSearchRequest) ([]*domain.SearchResult, error)

	// HealthCheck verifies the backing store is reachable
	HealthCheck(ctx context.Context) error
}
