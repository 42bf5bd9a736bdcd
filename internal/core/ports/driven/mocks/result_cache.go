package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/archivio-labs/archivio-search/internal/core/domain"
	"github.com/archivio-labs/archivio-search/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ResultCache = (*MockResultCache)(nil)

// MockResultCache is an in-memory ResultCache. Entries round-trip
// through JSON so tests exercise real serialization behavior.
type MockResultCache struct {
	mu      sync.Mutex
	entries map[string][]byte

	// Unavailable makes Get report misses and Set a no-op
	Unavailable bool

	// Hits / Misses / Writes count cache operations
	Hits   int
	Misses int
	Writes int
}

// NewMockResultCache creates an empty MockResultCache
func NewMockResultCache() *MockResultCache {
	return &MockResultCache{entries: make(map[string][]byte)}
}

// Key derives the fingerprint key for a query, covering every field
// the engine honors.
func (m *MockResultCache) Key(query domain.SearchQuery) string {
	folder := "all"
	if query.FolderID != nil {
		folder = query.FolderID.String()
	}
	dateAfter, dateBefore := "", ""
	if query.Filters.DateAfter != nil {
		dateAfter = query.Filters.DateAfter.UTC().Format(time.RFC3339Nano)
	}
	if query.Filters.DateBefore != nil {
		dateBefore = query.Filters.DateBefore.UTC().Format(time.RFC3339Nano)
	}
	return strings.Join([]string{
		query.UserID.String(),
		strings.ToLower(query.Query),
		folder,
		fmt.Sprintf("%t|%t|%d|%d|%t|%g", query.UnfiledOnly, query.IncludeArchived, query.Limit, query.Offset, query.Rerank, query.MinScore),
		strings.Join(query.Filters.Tags, ","),
		strings.Join(query.Filters.FileTypes, ","),
		query.Filters.Status,
		dateAfter,
		dateBefore,
	}, "|")
}

func (m *MockResultCache) Get(_ context.Context, query domain.SearchQuery) ([]*domain.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Unavailable {
		m.Misses++
		return nil, domain.ErrCacheMiss
	}

	data, ok := m.entries[m.Key(query)]
	if !ok {
		m.Misses++
		return nil, domain.ErrCacheMiss
	}

	var results []*domain.SearchResult
	if err := json.Unmarshal(data, &results); err != nil {
		m.Misses++
		return nil, domain.ErrCacheMiss
	}
	m.Hits++
	return results, nil
}

func (m *MockResultCache) Set(_ context.Context, query domain.SearchQuery, results []*domain.SearchResult, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Unavailable || len(results) == 0 {
		return nil
	}

	data, err := json.Marshal(results)
	if err != nil {
		return err
	}
	m.entries[m.Key(query)] = data
	m.Writes++
	return nil
}

// Len returns the number of cached entries
func (m *MockResultCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
