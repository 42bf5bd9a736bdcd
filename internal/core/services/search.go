package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/archivio-labs/archivio-search/internal/config"
	"github.com/archivio-labs/archivio-search/internal/core/domain"
	"github.com/archivio-labs/archivio-search/internal/core/ports/driven"
	"github.com/archivio-labs/archivio-search/internal/core/ports/driving"
	"github.com/archivio-labs/archivio-search/internal/runtime"
)

// Ensure searchService implements SearchService
var _ driving.SearchService = (*searchService)(nil)

// searchService implements the SearchService interface.
// The pipeline is linear: cache check, query processing, hybrid search
// (falling back to substring search on failure), optional rerank,
// pagination, metrics, cache write. Internal failures degrade to an
// empty result list; only input validation returns an error.
type searchService struct {
	engine   driven.SearchEngine
	cache    driven.ResultCache // may be nil (cache disabled)
	reranker *Reranker          // may be nil (rerank disabled)
	services *runtime.Services  // dynamic AI services
	cfg      *config.Config
	logger   *slog.Logger
}

// NewSearchService creates a new SearchService.
// The embedding service is accessed dynamically via runtime.Services.
func NewSearchService(
	engine driven.SearchEngine,
	cache driven.ResultCache,
	reranker *Reranker,
	services *runtime.Services,
	cfg *config.Config,
	logger *slog.Logger,
) driving.SearchService {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &searchService{
		engine:   engine,
		cache:    cache,
		reranker: reranker,
		services: services,
		cfg:      cfg,
		logger:   logger,
	}
}

// Search runs the full pipeline for one query.
func (s *searchService) Search(ctx context.Context, query domain.SearchQuery) (*domain.SearchResponse, error) {
	start := time.Now()

	query = query.WithDefaults()
	if err := query.Validate(); err != nil {
		return nil, err
	}

	// Normalize the rerank flag before the cache key is derived so that
	// a globally disabled reranker cannot split the key space.
	query.Rerank = query.Rerank && s.cfg.Rerank.Enabled && s.reranker != nil

	metrics := domain.NewSearchMetrics()

	// Step 1: cache check
	if cached, ok := s.cacheGet(ctx, query); ok {
		metrics.CacheHit = true
		metrics.Finalize(cached)
		metrics.TotalTimeMs = millisSince(start)
		return &domain.SearchResponse{Results: cached, Metrics: metrics}, nil
	}

	// Step 2: query processing
	intent := ProcessQuery(query.Query)

	// Step 3: hybrid search, falling back to substring search on failure
	results := s.runSearch(ctx, query, intent, metrics)

	// Step 4: rerank, best-effort. Step 3 fetched extra candidates at
	// offset zero; the final window is re-derived here.
	if query.Rerank && len(results) > 0 {
		rerankStart := time.Now()
		rctx, cancel := context.WithTimeout(ctx, s.cfg.Rerank.Timeout)
		results = s.reranker.Rerank(rctx, intent.Normalized, results, query.Offset+query.Limit, s.cfg.Rerank.MinSimilarity)
		cancel()
		metrics.RerankMs = millisSince(rerankStart)
		results = page(results, query.Offset, query.Limit)
	}
	// Step 5: with reranking disabled the engine already applied
	// offset/limit in step 3; nothing further to trim.

	// Step 6: metrics finalize
	metrics.Finalize(results)
	metrics.TotalTimeMs = millisSince(start)

	// Step 7: cache write, non-empty results only
	if len(results) > 0 {
		s.cachePut(ctx, query, results)
	}

	return &domain.SearchResponse{Results: results, Metrics: metrics}, nil
}

// runSearch embeds the query and executes the hybrid store query. Any
// failure along the way degrades to the fallback substring search; a
// fallback failure degrades to an empty result list. Errors never
// propagate past this point.
func (s *searchService) runSearch(ctx context.Context, query domain.SearchQuery, intent domain.QueryIntent, metrics *domain.SearchMetrics) []*domain.SearchResult {
	req := driven.HybridSearchRequest{
		QueryText:      intent.Normalized,
		FuzzyWords:     FuzzyWords(intent.Normalized),
		Query:          query,
		Weights:        s.cfg.Search.Weights,
		FuzzyThreshold: s.cfg.Search.FuzzyThreshold,
		MaxVectorDist:  s.cfg.Search.MaxVectorDistance,
		Limit:          query.Limit,
		Offset:         query.Offset,
	}
	if query.Rerank {
		// Over-fetch so the reranker has headroom to reorder.
		req.Offset = 0
		req.Limit = rerankFetchLimit(query, s.cfg.Rerank.MaxCandidates)
	}

	hybridStart := time.Now()
	defer func() {
		metrics.HybridSearchMs = millisSince(hybridStart)
	}()

	if embedding, ok := s.embedQuery(ctx, intent.Normalized); ok {
		req.QueryEmbedding = embedding

		qctx, cancel := context.WithTimeout(ctx, s.cfg.Search.QueryTimeout)
		results, err := s.engine.HybridSearch(qctx, req)
		cancel()
		if err == nil {
			return results
		}
		s.logger.Warn("hybrid search failed, using fallback", "query_id", metrics.QueryID, "error", err)
	}

	metrics.Degraded = true

	qctx, cancel := context.WithTimeout(ctx, s.cfg.Search.QueryTimeout)
	defer cancel()
	results, err := s.engine.FallbackSearch(qctx, req)
	if err != nil {
		s.logger.Error("fallback search failed", "query_id", metrics.QueryID, "error", err)
		return nil
	}
	return results
}

// embedQuery obtains the query embedding from the dynamically
// configured embedding service. A missing or failing service is not an
// error here; the caller takes the fallback path.
func (s *searchService) embedQuery(ctx context.Context, text string) ([]float32, bool) {
	embedder := s.services.EmbeddingService()
	if embedder == nil {
		return nil, false
	}

	ectx, cancel := context.WithTimeout(ctx, s.cfg.Search.EmbedTimeout)
	defer cancel()

	embedding, err := embedder.EmbedQuery(ectx, text)
	if err != nil {
		s.logger.Warn("query embedding failed", "error", err)
		return nil, false
	}
	return embedding, true
}

func (s *searchService) cacheGet(ctx context.Context, query domain.SearchQuery) ([]*domain.SearchResult, bool) {
	if s.cache == nil {
		return nil, false
	}
	cctx, cancel := context.WithTimeout(ctx, s.cfg.Cache.Timeout)
	defer cancel()

	results, err := s.cache.Get(cctx, query)
	if err != nil {
		return nil, false
	}
	return results, true
}

func (s *searchService) cachePut(ctx context.Context, query domain.SearchQuery, results []*domain.SearchResult) {
	if s.cache == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, s.cfg.Cache.Timeout)
	defer cancel()

	if err := s.cache.Set(cctx, query, results, s.cfg.Cache.TTL); err != nil {
		s.logger.Warn("cache write failed", "error", err)
	}
}

// rerankFetchLimit sizes the candidate fetch for reranking: twice the
// eventual window, bounded by the configured candidate cap and the hard
// inference cap.
func rerankFetchLimit(query domain.SearchQuery, maxCandidates int) int {
	limit := 2 * (query.Offset + query.Limit)
	if limit < maxCandidates {
		limit = maxCandidates
	}
	if limit > maxRerankCandidates {
		limit = maxRerankCandidates
	}
	return limit
}

// page applies offset/limit to an in-memory result slice.
func page(results []*domain.SearchResult, offset, limit int) []*domain.SearchResult {
	if offset >= len(results) {
		return nil
	}
	results = results[offset:]
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func millisSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
