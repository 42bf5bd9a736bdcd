package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/archivio-labs/archivio-search/internal/core/domain"
	"github.com/archivio-labs/archivio-search/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ResultCache = (*ResultCache)(nil)

const (
	// Key prefix for cached result lists
	resultCachePrefix = "search:results:"

	// payloadVersion guards against schema drift between deployments
	payloadVersion = 1
)

// ResultCache implements driven.ResultCache using Redis.
// Entries expire via Redis TTL; the ingestion pipeline never needs to
// invalidate them explicitly. Every store error is reported as a cache
// miss (reads) or swallowed (writes): an unavailable cache must never
// block the search path.
type ResultCache struct {
	client *redis.Client
}

// NewResultCache creates a new Redis-backed ResultCache
func NewResultCache(client *redis.Client) *ResultCache {
	return &ResultCache{client: client}
}

// cachePayload is the explicit serialization schema for cached entries.
type cachePayload struct {
	Version int                    `json:"version"`
	Results []*domain.SearchResult `json:"results"`
}

// Get returns the cached result list for the query, or
// domain.ErrCacheMiss when no usable entry exists.
func (c *ResultCache) Get(ctx context.Context, query domain.SearchQuery) ([]*domain.SearchResult, error) {
	data, err := c.client.Get(ctx, CacheKey(query)).Bytes()
	if err != nil {
		// redis.Nil and transport errors alike: treat as a miss
		return nil, domain.ErrCacheMiss
	}

	var payload cachePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, domain.ErrCacheMiss
	}
	if payload.Version != payloadVersion || len(payload.Results) == 0 {
		return nil, domain.ErrCacheMiss
	}

	return payload.Results, nil
}

// Set stores the result list under the query's key with a TTL.
// Empty result lists are never cached: the underlying corpus can change
// (new embeddings appear asynchronously), so "no results" must always
// be recomputed.
func (c *ResultCache) Set(ctx context.Context, query domain.SearchQuery, results []*domain.SearchResult, ttl time.Duration) error {
	if len(results) == 0 || ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(cachePayload{Version: payloadVersion, Results: results})
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	// Write failures are a no-op for the caller
	_ = c.client.Set(ctx, CacheKey(query), data, ttl).Err()
	return nil
}

// CacheKey derives the deterministic key for a query. Every field the
// engine honors is fingerprinted: two queries differing in any of them
// must never collide.
func CacheKey(query domain.SearchQuery) string {
	folder := "all"
	if query.FolderID != nil {
		folder = query.FolderID.String()
	}

	fingerprint := strings.Join([]string{
		query.UserID.String(),
		strings.ToLower(query.Query),
		folder,
		strconv.FormatBool(query.UnfiledOnly),
		strconv.FormatBool(query.IncludeArchived),
		strconv.Itoa(query.Limit),
		strconv.Itoa(query.Offset),
		strconv.FormatBool(query.Rerank),
		strconv.FormatFloat(query.MinScore, 'f', -1, 64),
		strings.Join(query.Filters.Tags, ","),
		strings.Join(query.Filters.FileTypes, ","),
		query.Filters.Status,
		formatDate(query.Filters.DateAfter),
		formatDate(query.Filters.DateBefore),
	}, "|")

	sum := sha256.Sum256([]byte(fingerprint))
	return resultCachePrefix + query.UserID.String() + ":" + hex.EncodeToString(sum[:])
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
