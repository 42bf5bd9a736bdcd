package mocks

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/archivio-labs/archivio-search/internal/core/domain"
	"github.com/archivio-labs/archivio-search/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SearchEngine = (*MockSearchEngine)(nil)

// MockSearchEngine is an in-memory SearchEngine that mirrors the
// hybrid scoring shape: token overlap for full-text, embedding cosine
// for the vector leg, substring containment for the fuzzy leg.
// Results are grouped per document with deterministic ordering.
type MockSearchEngine struct {
	mu        sync.RWMutex
	documents map[uuid.UUID]*domain.Document
	chunks    map[uuid.UUID][]*domain.Chunk

	// HybridErr / FallbackErr force the corresponding call to fail
	HybridErr   error
	FallbackErr error
}

// NewMockSearchEngine creates an empty MockSearchEngine
func NewMockSearchEngine() *MockSearchEngine {
	return &MockSearchEngine{
		documents: make(map[uuid.UUID]*domain.Document),
		chunks:    make(map[uuid.UUID][]*domain.Chunk),
	}
}

// Add registers a document with its chunks
func (m *MockSearchEngine) Add(doc *domain.Document, chunks ...*domain.Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[doc.ID] = doc
	m.chunks[doc.ID] = append(m.chunks[doc.ID], chunks...)
}

func (m *MockSearchEngine) HealthCheck(_ context.Context) error {
	return nil
}

func (m *MockSearchEngine) HybridSearch(_ context.Context, req driven.HybridSearchRequest) ([]*domain.SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.HybridErr != nil {
		return nil, m.HybridErr
	}
	if len(req.QueryEmbedding) == 0 {
		return nil, errors.New("missing query embedding")
	}

	terms := strings.Fields(strings.ToLower(req.QueryText))

	var results []*domain.SearchResult
	for _, doc := range m.documents {
		if !m.inScope(doc, req.Query) {
			continue
		}

		var best *domain.MatchedChunk
		var matched []domain.MatchedChunk
		for _, chunk := range m.chunks[doc.ID] {
			content := strings.ToLower(chunk.Content)

			textRank := tokenOverlap(terms, content)
			vectorSim := cosine(req.QueryEmbedding, chunk.Embedding)
			fuzzy := fuzzySignal(req.FuzzyWords, strings.ToLower(doc.Filename), content)

			gate := textRank > 0 ||
				(vectorSim > 0 && 1-vectorSim < req.MaxVectorDist) ||
				(fuzzy >= req.FuzzyThreshold && req.FuzzyThreshold > 0)
			if !gate {
				continue
			}

			combined := req.Weights.FullText*textRank + req.Weights.Vector*vectorSim + req.Weights.Fuzzy*fuzzy
			mc := domain.MatchedChunk{
				ChunkIndex:       chunk.ChunkIndex,
				Score:            combined,
				VectorSimilarity: vectorSim,
				TextRank:         textRank,
				Snippet:          snippetOf(chunk.Content),
			}
			matched = append(matched, mc)
			if best == nil || mc.Score > best.Score {
				copied := mc
				best = &copied
			}
		}

		if best == nil || best.Score < req.Query.MinScore {
			continue
		}
		results = append(results, &domain.SearchResult{
			DocumentID:       doc.ID,
			Filename:         doc.Filename,
			Title:            doc.Title,
			Snippet:          best.Snippet,
			Score:            best.Score,
			VectorSimilarity: best.VectorSimilarity,
			TextRank:         best.TextRank,
			MatchedChunks:    matched,
			Tags:             doc.Tags,
			CreatedAt:        doc.CreatedAt,
			Explanation:      "matched",
		})
	}

	sortResults(results)
	return pageResults(results, req.Offset, req.Limit), nil
}

func (m *MockSearchEngine) FallbackSearch(_ context.Context, req driven.HybridSearchRequest) ([]*domain.SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FallbackErr != nil {
		return nil, m.FallbackErr
	}

	needle := strings.ToLower(req.QueryText)

	var results []*domain.SearchResult
	for _, doc := range m.documents {
		if !m.inScope(doc, req.Query) {
			continue
		}
		if !strings.Contains(strings.ToLower(doc.Filename), needle) &&
			!strings.Contains(strings.ToLower(doc.ExtractedText), needle) {
			continue
		}
		results = append(results, &domain.SearchResult{
			DocumentID:  doc.ID,
			Filename:    doc.Filename,
			Title:       doc.Title,
			Snippet:     snippetOf(doc.ExtractedText),
			Score:       0.5,
			Tags:        doc.Tags,
			CreatedAt:   doc.CreatedAt,
			Explanation: "matched by text search",
		})
	}

	sortResults(results)
	return pageResults(results, req.Offset, req.Limit), nil
}

func (m *MockSearchEngine) inScope(doc *domain.Document, query domain.SearchQuery) bool {
	if doc.UserID != query.UserID {
		return false
	}
	if query.FolderID != nil {
		if doc.FolderID == nil || *doc.FolderID != *query.FolderID {
			return false
		}
	} else if query.UnfiledOnly && doc.FolderID != nil {
		return false
	}
	if doc.Archived && !query.IncludeArchived {
		return false
	}
	return true
}

// tokenOverlap scores the fraction of query terms present in content
func tokenOverlap(terms []string, content string) float64 {
	if len(terms) == 0 {
		return 0
	}
	hits := 0
	for _, t := range terms {
		if strings.Contains(content, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

// fuzzySignal approximates word similarity by containment
func fuzzySignal(words []string, filename, content string) float64 {
	for _, w := range words {
		if strings.Contains(filename, w) || strings.Contains(content, w) {
			return 0.6
		}
	}
	return 0
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func snippetOf(text string) string {
	if len(text) > 150 {
		return text[:150]
	}
	return text
}

// sortResults orders by score descending with document id as a stable
// tiebreak so pagination is deterministic.
func sortResults(results []*domain.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocumentID.String() < results[j].DocumentID.String()
	})
}

func pageResults(results []*domain.SearchResult, offset, limit int) []*domain.SearchResult {
	if offset >= len(results) {
		return []*domain.SearchResult{}
	}
	results = results[offset:]
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
