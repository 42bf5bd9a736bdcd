package mocks

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/archivio-labs/archivio-search/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.EmbeddingService = (*MockEmbeddingService)(nil)

// MockEmbeddingService produces deterministic embeddings derived from
// the input text, so that identical texts embed identically and cosine
// similarity behaves sensibly in tests.
type MockEmbeddingService struct {
	mu         sync.Mutex
	dimensions int

	// FailAll makes every call return an error
	FailAll bool

	// Calls counts Embed/EmbedQuery invocations
	Calls int
}

// NewMockEmbeddingService creates a MockEmbeddingService with 32 dims
func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{dimensions: 32}
}

// DeterministicEmbedding maps text to a unit vector via character
// trigram hashing. Shared with MockRerankModel so mock embedder and
// mock reranker agree on similarity.
func DeterministicEmbedding(text string, dimensions int) []float32 {
	v := make([]float32, dimensions)
	runes := []rune(text)
	for i := 0; i+2 < len(runes); i++ {
		h := 0
		for _, r := range runes[i : i+3] {
			h = 31*h + int(r)
		}
		if h < 0 {
			h = -h
		}
		v[h%dimensions]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range v {
			v[i] *= scale
		}
	}
	return v
}

func (m *MockEmbeddingService) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.Calls++
	failAll := m.FailAll
	m.mu.Unlock()

	if failAll {
		return nil, errors.New("mock embedding failure")
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = DeterministicEmbedding(text, m.dimensions)
	}
	return embeddings, nil
}

func (m *MockEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := m.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

func (m *MockEmbeddingService) Dimensions() int {
	return m.dimensions
}

func (m *MockEmbeddingService) Model() string {
	return "mock-embedding"
}

func (m *MockEmbeddingService) HealthCheck(_ context.Context) error {
	if m.FailAll {
		return errors.New("mock embedding failure")
	}
	return nil
}

func (m *MockEmbeddingService) Close() error {
	return nil
}
