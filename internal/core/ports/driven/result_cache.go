package driven

import (
	"context"
	"time"

	"github.com/archivio-labs/archivio-search/internal/core/domain"
)

// ResultCache stores serialized search result lists keyed by a
// deterministic fingerprint of the query. The cache is an optimization
// only: implementations must report domain.ErrCacheMiss on read failure
// and swallow write failures rather than propagating store errors.
type ResultCache interface {
	// Get returns the cached result list for the query, or
	// domain.ErrCacheMiss when no usable entry exists.
	Get(ctx context.Context, query domain.SearchQuery) ([]*domain.SearchResult, error)

	// Set stores the result list under the query's key with a TTL.
	// Empty result lists are never cached.
	Set(ctx context.Context, query domain.SearchQuery, results []*domain.SearchResult, ttl time.Duration) error
}
