package ai

import (
	"fmt"

	"github.com/archivio-labs/archivio-search/internal/core/domain"
	"github.com/archivio-labs/archivio-search/internal/core/ports/driven"
)

// Provider identifies an embedding backend
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
)

// EmbeddingSettings configures an embedding provider
type EmbeddingSettings struct {
	Provider Provider
	APIKey   string
	Model    string
	BaseURL  string
}

// IsConfigured reports whether the settings name a provider at all
func (s *EmbeddingSettings) IsConfigured() bool {
	return s != nil && s.Provider != ""
}

// Factory creates AI services based on configuration
type Factory struct{}

// NewFactory creates a new AI service factory
func NewFactory() *Factory {
	return &Factory{}
}

// CreateEmbeddingService creates an embedding service from settings.
// Returns (nil, nil) when no provider is configured: search then runs
// without the vector leg.
func (f *Factory) CreateEmbeddingService(settings *EmbeddingSettings) (driven.EmbeddingService, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case ProviderOpenAI:
		return NewOpenAIEmbedding(settings.APIKey, settings.Model, settings.BaseURL)
	case ProviderOllama:
		return NewOllamaEmbedding(settings.BaseURL, settings.Model)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
}
