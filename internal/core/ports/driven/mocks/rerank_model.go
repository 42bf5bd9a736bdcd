package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/archivio-labs/archivio-search/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.RerankModel = (*MockRerankModel)(nil)

// MockRerankModel encodes texts with the same deterministic scheme as
// MockEmbeddingService, so rerank similarities line up with embeddings.
type MockRerankModel struct {
	mu         sync.Mutex
	dimensions int
	closed     bool

	// EncodeErr makes every Encode call fail
	EncodeErr error

	// EncodeCalls counts Encode invocations
	EncodeCalls int
}

// NewMockRerankModel creates a MockRerankModel with 32 dims
func NewMockRerankModel() *MockRerankModel {
	return &MockRerankModel{dimensions: 32}
}

func (m *MockRerankModel) Encode(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EncodeCalls++
	if m.EncodeErr != nil {
		return nil, m.EncodeErr
	}
	if m.closed {
		return nil, errors.New("model closed")
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = DeterministicEmbedding(text, m.dimensions)
	}
	return embeddings, nil
}

func (m *MockRerankModel) Dimensions() int {
	return m.dimensions
}

func (m *MockRerankModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
