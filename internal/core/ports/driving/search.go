package driving

import (
	"context"

	"github.com/archivio-labs/archivio-search/internal/core/domain"
)

// SearchService handles document search operations
type SearchService interface {
	// Search runs the full pipeline: cache check, query processing,
	// hybrid search with fallback, optional rerank, pagination, cache
	// write. It returns an error only for invalid input; internal
	// failures degrade to an empty result list with metrics populated.
	Search(ctx context.Context, query domain.SearchQuery) (*domain.SearchResponse, error)
}
