package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/archivio-labs/archivio-search/internal/core/domain"
	"github.com/archivio-labs/archivio-search/internal/core/ports/driven"
)

const (
	// maxRerankCandidates bounds model-inference cost per query
	maxRerankCandidates = 100

	// rerank blend: final = originalWeight*score + rerankWeight*similarity
	rerankOriginalWeight = 0.4
	rerankModelWeight    = 0.6

	// snippets shorter than this carry too little signal; fall back to
	// title/filename as the representative text
	minSnippetChars = 20
)

// Reranker reorders hybrid-search candidates with a local
// sentence-embedding model. The model loads lazily on first use with
// single-flight semantics and is reused for the process lifetime.
// Reranking is best-effort: any failure returns the original candidates
// truncated to the requested size.
type Reranker struct {
	loader driven.RerankModelLoader
	logger *slog.Logger

	group singleflight.Group
	mu    sync.RWMutex
	model driven.RerankModel
}

// NewReranker creates a Reranker with a deferred model loader.
func NewReranker(loader driven.RerankModelLoader, logger *slog.Logger) *Reranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reranker{loader: loader, logger: logger}
}

// Rerank recomputes similarity between the query and each candidate's
// representative text, blends it with the original combined score,
// reorders and truncates to maxResults. Candidates below minSimilarity
// are dropped.
func (r *Reranker) Rerank(ctx context.Context, queryText string, candidates []*domain.SearchResult, maxResults int, minSimilarity float64) []*domain.SearchResult {
	if len(candidates) == 0 {
		return candidates
	}
	if len(candidates) > maxRerankCandidates {
		candidates = candidates[:maxRerankCandidates]
	}

	reranked, err := r.rerank(ctx, queryText, candidates, minSimilarity)
	if err != nil {
		r.logger.Warn("rerank skipped, returning original order", "error", err)
		return truncate(candidates, maxResults)
	}
	return truncate(reranked, maxResults)
}

func (r *Reranker) rerank(ctx context.Context, queryText string, candidates []*domain.SearchResult, minSimilarity float64) ([]*domain.SearchResult, error) {
	model, err := r.loadModel()
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(candidates)+1)
	texts = append(texts, queryText)
	for _, c := range candidates {
		texts = append(texts, representativeText(c))
	}

	embeddings, err := model.Encode(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("rerank inference: %w", err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("rerank inference: got %d embeddings for %d texts", len(embeddings), len(texts))
	}

	queryEmbedding := embeddings[0]
	retained := make([]*domain.SearchResult, 0, len(candidates))
	for i, c := range candidates {
		similarity := cosineSimilarity(queryEmbedding, embeddings[i+1])
		if similarity < minSimilarity {
			continue
		}
		blended := rerankOriginalWeight*c.Score + rerankModelWeight*similarity
		c.RerankScore = similarity
		c.Explanation = fmt.Sprintf("reranked: %.3f (hybrid %.3f, semantic %.3f)", blended, c.Score, similarity)
		c.Score = blended
		retained = append(retained, c)
	}

	sort.SliceStable(retained, func(i, j int) bool {
		return retained[i].Score > retained[j].Score
	})
	return retained, nil
}

// loadModel loads the model at most once per process. Concurrent first
// callers share a single load via singleflight.
func (r *Reranker) loadModel() (driven.RerankModel, error) {
	r.mu.RLock()
	model := r.model
	r.mu.RUnlock()
	if model != nil {
		return model, nil
	}

	v, err, _ := r.group.Do("load", func() (interface{}, error) {
		r.mu.RLock()
		cached := r.model
		r.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}
		if r.loader == nil {
			return nil, domain.ErrModelUnavailable
		}
		loaded, err := r.loader()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
		}
		r.mu.Lock()
		r.model = loaded
		r.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(driven.RerankModel), nil
}

// Close releases the loaded model, if any.
func (r *Reranker) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.model == nil {
		return nil
	}
	err := r.model.Close()
	r.model = nil
	return err
}

// representativeText picks the text the model scores for a candidate:
// the snippet when it is substantial, otherwise title-prefixed filename.
func representativeText(result *domain.SearchResult) string {
	if len(result.Snippet) > minSnippetChars {
		return result.Snippet
	}
	if result.Title != "" {
		return result.Title + " " + result.Filename
	}
	return result.Filename
}

func truncate(results []*domain.SearchResult, max int) []*domain.SearchResult {
	if max > 0 && len(results) > max {
		return results[:max]
	}
	return results
}

// cosineSimilarity computes similarity between two vectors. Returns 0
// for mismatched or zero-norm inputs.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
