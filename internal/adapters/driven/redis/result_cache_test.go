package redis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/archivio-labs/archivio-search/internal/core/domain"
)

func setupCache(t *testing.T) (*ResultCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewResultCache(client), mr
}

func sampleResults() []*domain.SearchResult {
	created := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	return []*domain.SearchResult{
		{
			DocumentID:       uuid.New(),
			Filename:         "Q3-Financial-Report.pdf",
			Title:            "Q3 Financial Report",
			Snippet:          "Q3 <mark>revenue</mark> grew twelve percent",
			Score:            0.87,
			VectorSimilarity: 0.91,
			TextRank:         0.42,
			MatchedChunks: []domain.MatchedChunk{
				{ChunkIndex: 0, Score: 0.87, VectorSimilarity: 0.91, TextRank: 0.42, Snippet: "Q3 revenue grew"},
				{ChunkIndex: 3, Score: 0.55, VectorSimilarity: 0.6, TextRank: 0.2},
			},
			Tags:        []string{"finance", "quarterly"},
			FolderName:  "Reports",
			CreatedAt:   created,
			Explanation: "strong semantic match",
		},
		{
			DocumentID: uuid.New(),
			Filename:   "notes.md",
			Score:      0.41,
			CreatedAt:  created,
		},
	}
}

func TestResultCache_RoundTrip(t *testing.T) {
	cache, _ := setupCache(t)
	ctx := context.Background()

	query := domain.SearchQuery{Query: "Q3 revenue", UserID: uuid.New(), Limit: 20}
	original := sampleResults()

	if err := cache.Set(ctx, query, original, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	cached, err := cache.Get(ctx, query)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(cached) != len(original) {
		t.Fatalf("got %d results, want %d", len(cached), len(original))
	}

	got, want := cached[0], original[0]
	if got.DocumentID != want.DocumentID {
		t.Errorf("DocumentID = %s, want %s", got.DocumentID, want.DocumentID)
	}
	if got.Filename != want.Filename || got.Title != want.Title || got.Snippet != want.Snippet {
		t.Errorf("text fields changed across round-trip: %+v", got)
	}
	if got.Score != want.Score || got.VectorSimilarity != want.VectorSimilarity || got.TextRank != want.TextRank {
		t.Errorf("score fields changed across round-trip: %+v", got)
	}
	if len(got.MatchedChunks) != 2 || got.MatchedChunks[1].ChunkIndex != 3 {
		t.Errorf("matched chunks changed across round-trip: %+v", got.MatchedChunks)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "finance" {
		t.Errorf("tags changed across round-trip: %v", got.Tags)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	if got.Explanation != want.Explanation {
		t.Errorf("Explanation = %q, want %q", got.Explanation, want.Explanation)
	}
}

func TestResultCache_MissOnAbsentKey(t *testing.T) {
	cache, _ := setupCache(t)

	_, err := cache.Get(context.Background(), domain.SearchQuery{Query: "nothing", UserID: uuid.New(), Limit: 20})
	if !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("Get = %v, want ErrCacheMiss", err)
	}
}

func TestResultCache_EmptyResultsNeverStored(t *testing.T) {
	cache, mr := setupCache(t)
	ctx := context.Background()

	query := domain.SearchQuery{Query: "nothing", UserID: uuid.New(), Limit: 20}
	if err := cache.Set(ctx, query, nil, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := cache.Set(ctx, query, []*domain.SearchResult{}, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if len(mr.Keys()) != 0 {
		t.Errorf("empty results were stored: keys = %v", mr.Keys())
	}
}

func TestResultCache_ZeroTTLNotStored(t *testing.T) {
	cache, mr := setupCache(t)

	query := domain.SearchQuery{Query: "something", UserID: uuid.New(), Limit: 20}
	if err := cache.Set(context.Background(), query, sampleResults(), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if len(mr.Keys()) != 0 {
		t.Errorf("entry stored with zero ttl: keys = %v", mr.Keys())
	}
}

func TestResultCache_EntriesExpire(t *testing.T) {
	cache, mr := setupCache(t)
	ctx := context.Background()

	query := domain.SearchQuery{Query: "Q3 revenue", UserID: uuid.New(), Limit: 20}
	if err := cache.Set(ctx, query, sampleResults(), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := cache.Get(ctx, query); err != nil {
		t.Fatalf("Get before expiry failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := cache.Get(ctx, query); !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("Get after expiry = %v, want ErrCacheMiss", err)
	}
}

func TestResultCache_CorruptEntryIsMiss(t *testing.T) {
	cache, mr := setupCache(t)

	query := domain.SearchQuery{Query: "Q3 revenue", UserID: uuid.New(), Limit: 20}
	mr.Set(CacheKey(query), "{not json")

	if _, err := cache.Get(context.Background(), query); !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("Get = %v, want ErrCacheMiss for corrupt entry", err)
	}
}

func TestResultCache_UnavailableServerIsMiss(t *testing.T) {
	cache, mr := setupCache(t)
	ctx := context.Background()

	query := domain.SearchQuery{Query: "Q3 revenue", UserID: uuid.New(), Limit: 20}
	if err := cache.Set(ctx, query, sampleResults(), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	mr.Close()

	if _, err := cache.Get(ctx, query); !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("Get against dead server = %v, want ErrCacheMiss", err)
	}
	// Writes against a dead server must not error either
	if err := cache.Set(ctx, query, sampleResults(), time.Minute); err != nil {
		t.Errorf("Set against dead server = %v, want nil", err)
	}
}

func TestCacheKey(t *testing.T) {
	userID := uuid.New()
	folderID := uuid.New()
	base := domain.SearchQuery{Query: "Q3 revenue", UserID: userID, Limit: 20}

	if CacheKey(base) != CacheKey(base) {
		t.Error("identical queries produced different keys")
	}
	if !strings.HasPrefix(CacheKey(base), "search:results:"+userID.String()+":") {
		t.Errorf("key missing user prefix: %s", CacheKey(base))
	}

	upper := base
	upper.Query = "q3 REVENUE"
	if CacheKey(upper) != CacheKey(base) {
		t.Error("query case changed the key")
	}

	dateAfter := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	variants := []domain.SearchQuery{
		{Query: "Q3 revenue", UserID: uuid.New(), Limit: 20},
		{Query: "Q4 revenue", UserID: userID, Limit: 20},
		{Query: "Q3 revenue", UserID: userID, FolderID: &folderID, Limit: 20},
		{Query: "Q3 revenue", UserID: userID, UnfiledOnly: true, Limit: 20},
		{Query: "Q3 revenue", UserID: userID, IncludeArchived: true, Limit: 20},
		{Query: "Q3 revenue", UserID: userID, Limit: 10},
		{Query: "Q3 revenue", UserID: userID, Limit: 20, Offset: 20},
		{Query: "Q3 revenue", UserID: userID, Limit: 20, Rerank: true},
		{Query: "Q3 revenue", UserID: userID, Limit: 20, MinScore: 0.5},
		{Query: "Q3 revenue", UserID: userID, Limit: 20, Filters: domain.Filters{Tags: []string{"finance"}}},
		{Query: "Q3 revenue", UserID: userID, Limit: 20, Filters: domain.Filters{FileTypes: []string{"pdf"}}},
		{Query: "Q3 revenue", UserID: userID, Limit: 20, Filters: domain.Filters{Status: "ready"}},
		{Query: "Q3 revenue", UserID: userID, Limit: 20, Filters: domain.Filters{DateAfter: &dateAfter}},
		{Query: "Q3 revenue", UserID: userID, Limit: 20, Filters: domain.Filters{DateBefore: &dateAfter}},
	}
	baseKey := CacheKey(base)
	seen := map[string]bool{baseKey: true}
	for i, variant := range variants {
		key := CacheKey(variant)
		if seen[key] {
			t.Errorf("variant %d collided with a previous key", i)
		}
		seen[key] = true
	}
}
