package domain

import (
	"time"

	"github.com/google/uuid"
)

// Limit bounds enforced on every search request
const (
	MinSearchLimit = 1
	MaxSearchLimit = 100
)

// MaxKeyTerms bounds tokenization so a pathological query cannot
// explode into an unbounded tsquery.
const MaxKeyTerms = 10

// SearchQuery is the input contract for a search invocation.
// UserID is the hard scoping boundary: every underlying query filters by it.
type SearchQuery struct {
	Query           string     `json:"query"`
	UserID          uuid.UUID  `json:"user_id"`
	FolderID        *uuid.UUID `json:"folder_id,omitempty"`
	UnfiledOnly     bool       `json:"unfiled_only,omitempty"`
	Limit           int        `json:"limit"`
	Offset          int        `json:"offset"`
	IncludeArchived bool       `json:"include_archived,omitempty"`
	MinScore        float64    `json:"min_score,omitempty"`
	Rerank          bool       `json:"rerank,omitempty"`
	Filters         Filters    `json:"filters,omitempty"`
}

// Filters provides additional refinements carried through to the store.
// The hybrid core only guarantees folder/unfiled/archived/limit/offset/min-score;
// these are applied as extra predicates where the store supports them.
type Filters struct {
	Tags       []string   `json:"tags,omitempty"`
	FileTypes  []string   `json:"file_types,omitempty"`
	Status     string     `json:"status,omitempty"`
	DateAfter  *time.Time `json:"date_after,omitempty"`
	DateBefore *time.Time `json:"date_before,omitempty"`
}

// Validate checks the query against the input contract.
// An empty query is rejected outright: an empty tsquery and a zero-norm
// query embedding are degenerate and produce undefined ranking.
func (q *SearchQuery) Validate() error {
	if q.Query == "" {
		return ErrInvalidQuery
	}
	if q.UserID == uuid.Nil {
		return ErrInvalidQuery
	}
	if q.Offset < 0 {
		return ErrInvalidQuery
	}
	if q.Limit < MinSearchLimit || q.Limit > MaxSearchLimit {
		return ErrInvalidQuery
	}
	if q.MinScore < 0 {
		return ErrInvalidQuery
	}
	return nil
}

// WithDefaults returns a copy with the limit clamped into bounds.
// Zero limit means "use the default page size".
func (q SearchQuery) WithDefaults() SearchQuery {
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > MaxSearchLimit {
		q.Limit = MaxSearchLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// QueryIntent is the processed form of a raw query string.
// Created and discarded within a single search invocation.
type QueryIntent struct {
	Original     string   `json:"original"`
	Normalized   string   `json:"normalized"`
	ExactPhrases []string `json:"exact_phrases,omitempty"`
	KeyTerms     []string `json:"key_terms,omitempty"`
	Confidence   float64  `json:"confidence"`
}

// MatchedChunk records one matching chunk of a multi-chunk document hit.
type MatchedChunk struct {
	ChunkIndex       int     `json:"chunk_index"`
	Score            float64 `json:"score"`
	VectorSimilarity float64 `json:"vector_similarity"`
	TextRank         float64 `json:"text_rank"`
	Snippet          string  `json:"snippet,omitempty"`
}

// SearchResult is one document-level hit. When multiple chunks of the
// same document match, the highest-scoring chunk determines ranking and
// snippet; every match is still recorded in MatchedChunks.
type SearchResult struct {
	DocumentID       uuid.UUID      `json:"document_id"`
	Filename         string         `json:"filename"`
	Title            string         `json:"title,omitempty"`
	Snippet          string         `json:"snippet,omitempty"`
	Score            float64        `json:"score"`
	VectorSimilarity float64        `json:"vector_similarity"`
	TextRank         float64        `json:"text_rank"`
	RerankScore      float64        `json:"rerank_score"`
	MatchedChunks    []MatchedChunk `json:"matched_chunks,omitempty"`
	Tags             []string       `json:"tags,omitempty"`
	FolderName       string         `json:"folder_name,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	Explanation      string         `json:"explanation,omitempty"`
}

// SearchWeights configures the hybrid score blend. The weights are
// relative, used only for ordering; they are not required to sum to 1.
type SearchWeights struct {
	Vector   float64 `json:"vector" yaml:"vector"`
	FullText float64 `json:"fulltext" yaml:"fulltext"`
	Fuzzy    float64 `json:"fuzzy" yaml:"fuzzy"`
}

// DefaultSearchWeights returns the reference blend.
func DefaultSearchWeights() SearchWeights {
	return SearchWeights{
		Vector:   0.5,
		FullText: 0.3,
		Fuzzy:    0.2,
	}
}

// SearchMetrics is the per-query observability record. Created once per
// invocation, returned alongside results, never persisted.
type SearchMetrics struct {
	QueryID        string  `json:"query_id"`
	TotalTimeMs    float64 `json:"total_time_ms"`
	HybridSearchMs float64 `json:"hybrid_search_ms"`
	RerankMs       float64 `json:"rerank_ms"`
	ResultCount    int     `json:"result_count"`
	CacheHit       bool    `json:"cache_hit"`
	Degraded       bool    `json:"degraded"`
	AvgScore       float64 `json:"avg_score"`
	MaxScore       float64 `json:"max_score"`
}

// NewSearchMetrics creates a metrics record with a fresh query ID.
func NewSearchMetrics() *SearchMetrics {
	return &SearchMetrics{QueryID: uuid.New().String()}
}

// Finalize stamps the score aggregates for the final result slice.
func (m *SearchMetrics) Finalize(results []*SearchResult) {
	m.ResultCount = len(results)
	if len(results) == 0 {
		return
	}
	var sum, max float64
	for _, r := range results {
		sum += r.Score
		if r.Score > max {
			max = r.Score
		}
	}
	m.AvgScore = sum / float64(len(results))
	m.MaxScore = max
}

// SearchResponse bundles results with their metrics.
type SearchResponse struct {
	Results []*SearchResult `json:"results"`
	Metrics *SearchMetrics  `json:"metrics"`
}
