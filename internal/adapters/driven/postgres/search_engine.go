package postgres

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/archivio-labs/archivio-search/internal/core/domain"
	"github.com/archivio-labs/archivio-search/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SearchEngine = (*SearchEngine)(nil)

// maxCandidateChunks bounds the chunk rows fetched per hybrid query.
// Grouping and pagination happen over this fixed candidate pool so that
// successive pages of the same query see the same document ordering.
const maxCandidateChunks = 256

// fallbackScore is assigned to every fallback hit: substring matching
// carries no ranking signal.
const fallbackScore = 0.5

// SearchEngine implements driven.SearchEngine on PostgreSQL.
// The hybrid query computes cover-density text rank, pgvector cosine
// similarity and pg_trgm word similarity per chunk in one statement.
type SearchEngine struct {
	db *DB
}

// NewSearchEngine creates a new SearchEngine
func NewSearchEngine(db *DB) *SearchEngine {
	return &SearchEngine{db: db}
}

// HealthCheck verifies the backing store is reachable
func (e *SearchEngine) HealthCheck(ctx context.Context) error {
	return e.db.Ping(ctx)
}

// HybridSearch executes the combined-signal query and rolls chunk rows
// up to document results ordered by combined score.
func (e *SearchEngine) HybridSearch(ctx context.Context, req driven.HybridSearchRequest) ([]*domain.SearchResult, error) {
	if len(req.QueryEmbedding) == 0 {
		return nil, fmt.Errorf("%w: missing query embedding", domain.ErrSearchUnavailable)
	}

	q := newQueryBuilder()
	tsq := q.arg(req.QueryText)
	vec := q.arg(vectorLiteral(req.QueryEmbedding))

	fuzzyExpr, fuzzyPred := q.fuzzyClauses(req.FuzzyWords, req.FuzzyThreshold)

	combined := fmt.Sprintf(
		"%s * ts_rank_cd(c.content_tsv, q.tsq) + %s * (CASE WHEN c.embedding IS NULL THEN 0 ELSE 1 - (c.embedding <=> %s::vector) END) + %s * %s",
		q.arg(req.Weights.FullText), q.arg(req.Weights.Vector), vec, q.arg(req.Weights.Fuzzy), fuzzyExpr,
	)

	var sb strings.Builder
	sb.WriteString(`
		SELECT
			d.id,
			d.filename,
			COALESCE(d.title, ''),
			d.created_at,
			COALESCE(f.name, ''),
			COALESCE((
				SELECT array_agg(t.name ORDER BY t.name)
				FROM document_tags dt
				JOIN tags t ON t.id = dt.tag_id
				WHERE dt.document_id = d.id
			), '{}'),
			c.chunk_index,
			ts_rank_cd(c.content_tsv, q.tsq),
			CASE WHEN c.embedding IS NULL THEN 0 ELSE 1 - (c.embedding <=> ` + vec + `::vector) END,
			` + fuzzyExpr + `,
			` + combined + `,
			ts_headline('english', c.content, q.tsq,
				'StartSel=<mark>, StopSel=</mark>, MinWords=20, MaxWords=50')
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		LEFT JOIN folders f ON f.id = d.folder_id
		CROSS JOIN (SELECT websearch_to_tsquery('english', ` + tsq + `) AS tsq) q
		WHERE `)

	q.scopePredicates(&sb, req.Query)

	// Recall gate: a strong single signal is enough for admission; the
	// combined-score threshold does the precision filtering afterwards.
	sb.WriteString(" AND (c.content_tsv @@ q.tsq")
	sb.WriteString(" OR (c.embedding IS NOT NULL AND (c.embedding <=> " + vec + "::vector) < " + q.arg(req.MaxVectorDist) + ")")
	if fuzzyPred != "" {
		sb.WriteString(" OR " + fuzzyPred)
	}
	sb.WriteString(")")

	sb.WriteString(" ORDER BY " + combined + " DESC")
	sb.WriteString(" LIMIT " + strconv.Itoa(maxCandidateChunks))

	rows, err := e.db.QueryContext(ctx, sb.String(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSearchUnavailable, err)
	}
	defer rows.Close()

	byDoc := make(map[uuid.UUID]*domain.SearchResult)
	var order []uuid.UUID

	for rows.Next() {
		var (
			result domain.SearchResult
			chunk  domain.MatchedChunk
			tags   pq.StringArray
			fuzzy  float64
		)
		if err := rows.Scan(
			&result.DocumentID,
			&result.Filename,
			&result.Title,
			&result.CreatedAt,
			&result.FolderName,
			&tags,
			&chunk.ChunkIndex,
			&chunk.TextRank,
			&chunk.VectorSimilarity,
			&fuzzy,
			&chunk.Score,
			&chunk.Snippet,
		); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrSearchUnavailable, err)
		}
		result.Tags = tags

		existing, ok := byDoc[result.DocumentID]
		if !ok {
			existing = &result
			byDoc[result.DocumentID] = existing
			order = append(order, result.DocumentID)
		}
		existing.MatchedChunks = append(existing.MatchedChunks, chunk)

		// The best-scoring chunk is the document's representative.
		if !ok || chunk.Score > existing.Score {
			existing.Score = chunk.Score
			existing.TextRank = chunk.TextRank
			existing.VectorSimilarity = chunk.VectorSimilarity
			existing.Snippet = chunk.Snippet
			existing.Explanation = explainScores(chunk.TextRank, chunk.VectorSimilarity, fuzzy)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSearchUnavailable, err)
	}

	results := make([]*domain.SearchResult, 0, len(order))
	for _, id := range order {
		r := byDoc[id]
		if r.Score < req.Query.MinScore {
			continue
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return pageResults(results, req.Offset, req.Limit), nil
}

// FallbackSearch performs a case-insensitive substring match over
// filename and extracted text. It requires no indexes and is the safety
// net when the hybrid query cannot run.
func (e *SearchEngine) FallbackSearch(ctx context.Context, req driven.HybridSearchRequest) ([]*domain.SearchResult, error) {
	q := newQueryBuilder()
	pattern := q.arg("%" + req.QueryText + "%")

	var sb strings.Builder
	sb.WriteString(`
		SELECT
			d.id,
			d.filename,
			COALESCE(d.title, ''),
			d.created_at,
			COALESCE(f.name, ''),
			COALESCE((
				SELECT array_agg(t.name ORDER BY t.name)
				FROM document_tags dt
				JOIN tags t ON t.id = dt.tag_id
				WHERE dt.document_id = d.id
			), '{}'),
			COALESCE(d.extracted_text, '')
		FROM documents d
		LEFT JOIN folders f ON f.id = d.folder_id
		WHERE `)

	q.scopePredicates(&sb, req.Query)
	sb.WriteString(" AND (d.filename ILIKE " + pattern + " OR d.extracted_text ILIKE " + pattern + ")")
	sb.WriteString(" ORDER BY d.updated_at DESC, d.id")
	sb.WriteString(" LIMIT " + q.arg(req.Limit) + " OFFSET " + q.arg(req.Offset))

	rows, err := e.db.QueryContext(ctx, sb.String(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSearchUnavailable, err)
	}
	defer rows.Close()

	var results []*domain.SearchResult
	for rows.Next() {
		var (
			result domain.SearchResult
			tags   pq.StringArray
			text   string
		)
		if err := rows.Scan(
			&result.DocumentID,
			&result.Filename,
			&result.Title,
			&result.CreatedAt,
			&result.FolderName,
			&tags,
			&text,
		); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrSearchUnavailable, err)
		}
		result.Tags = tags
		result.Score = fallbackScore
		result.Snippet = fallbackSnippet(text, result.Filename, req.QueryText)
		result.Explanation = "matched by text search"
		results = append(results, &result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSearchUnavailable, err)
	}

	return results, nil
}

// queryBuilder accumulates positional SQL arguments.
type queryBuilder struct {
	args []interface{}
}

func newQueryBuilder() *queryBuilder {
	return &queryBuilder{}
}

// arg registers a value and returns its placeholder.
func (q *queryBuilder) arg(v interface{}) string {
	q.args = append(q.args, v)
	return "$" + strconv.Itoa(len(q.args))
}

// scopePredicates writes the user/folder/archive and refinement
// predicates shared by the hybrid and fallback queries. UserID scoping
// is unconditional: there is no cross-user search.
func (q *queryBuilder) scopePredicates(sb *strings.Builder, query domain.SearchQuery) {
	sb.WriteString("d.user_id = " + q.arg(query.UserID))

	switch {
	case query.FolderID != nil:
		sb.WriteString(" AND d.folder_id = " + q.arg(*query.FolderID))
	case query.UnfiledOnly:
		sb.WriteString(" AND d.folder_id IS NULL")
	}

	if !query.IncludeArchived {
		sb.WriteString(" AND NOT d.archived")
	}

	if len(query.Filters.FileTypes) > 0 {
		sb.WriteString(" AND d.file_type = ANY(" + q.arg(pq.Array(query.Filters.FileTypes)) + ")")
	}
	if query.Filters.Status != "" {
		sb.WriteString(" AND d.status = " + q.arg(query.Filters.Status))
	}
	if query.Filters.DateAfter != nil {
		sb.WriteString(" AND d.created_at >= " + q.arg(*query.Filters.DateAfter))
	}
	if query.Filters.DateBefore != nil {
		sb.WriteString(" AND d.created_at <= " + q.arg(*query.Filters.DateBefore))
	}
	if len(query.Filters.Tags) > 0 {
		sb.WriteString(` AND EXISTS (
			SELECT 1 FROM document_tags dt
			JOIN tags t ON t.id = dt.tag_id
			WHERE dt.document_id = d.id AND t.name = ANY(` + q.arg(pq.Array(query.Filters.Tags)) + `))`)
	}
}

// fuzzyClauses builds the greatest-word-similarity expression and the
// admission predicate for the fuzzy word set. A query with no words of
// length >= 3 disables the fuzzy leg: the expression is 0 and the
// predicate is dropped.
func (q *queryBuilder) fuzzyClauses(words []string, threshold float64) (expr, pred string) {
	if len(words) == 0 {
		return "0::float8", ""
	}

	sims := make([]string, 0, len(words)*2)
	for _, w := range words {
		p := q.arg(w)
		sims = append(sims,
			"word_similarity("+p+", d.filename)",
			"word_similarity("+p+", c.content)",
		)
	}

	expr = "GREATEST(" + strings.Join(sims, ", ") + ")::float8"
	pred = "(" + expr + " >= " + q.arg(threshold) + ")"
	return expr, pred
}

// vectorLiteral renders an embedding as a pgvector input literal.
func vectorLiteral(v []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

// explainScores summarizes which signals contributed to a hit.
func explainScores(textRank, vectorSim, fuzzy float64) string {
	var parts []string
	if textRank > 0 {
		parts = append(parts, fmt.Sprintf("full-text %.3f", textRank))
	}
	if vectorSim > 0 {
		parts = append(parts, fmt.Sprintf("semantic %.3f", vectorSim))
	}
	if fuzzy > 0 {
		parts = append(parts, fmt.Sprintf("fuzzy %.3f", fuzzy))
	}
	if len(parts) == 0 {
		return "matched"
	}
	return "matched via " + strings.Join(parts, ", ")
}

// fallbackSnippet extracts a window around the first occurrence of the
// query, or the head of the text, or the filename as a last resort.
func fallbackSnippet(text, filename, query string) string {
	if text == "" {
		return filename
	}

	idx := strings.Index(strings.ToLower(text), strings.ToLower(query))
	if idx < 0 {
		if len(text) > 150 {
			return text[:150] + "..."
		}
		return text
	}

	start := idx - 50
	if start < 0 {
		start = 0
	}
	end := idx + len(query) + 100
	if end > len(text) {
		end = len(text)
	}

	snippet := text[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(text) {
		snippet = snippet + "..."
	}
	return snippet
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
