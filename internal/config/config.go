// Package config provides configuration loading for the search core.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/archivio-labs/archivio-search/internal/core/domain"
)

// Config holds all tuning knobs for the search pipeline.
type Config struct {
	Search SearchConfig `yaml:"search"`
	Rerank RerankConfig `yaml:"rerank"`
	Cache  CacheConfig  `yaml:"cache"`
}

// SearchConfig holds hybrid-search scoring and gating settings.
// The recall gate (FuzzyThreshold, MaxVectorDistance) and the scoring
// threshold (per-query min_score) are independently tunable: the gate
// admits anything plausibly relevant, the score threshold does the
// final precision filtering.
type SearchConfig struct {
	Weights           domain.SearchWeights `yaml:"weights"`
	FuzzyThreshold    float64              `yaml:"fuzzy_threshold"`
	MaxVectorDistance float64              `yaml:"max_vector_distance"`
	EmbedTimeout      time.Duration        `yaml:"embed_timeout"`
	QueryTimeout      time.Duration        `yaml:"query_timeout"`
}

// RerankConfig holds second-pass reranking settings.
type RerankConfig struct {
	Enabled       bool          `yaml:"enabled"`
	ModelPath     string        `yaml:"model_path"`
	Dimensions    int           `yaml:"dimensions"`
	MaxTokens     int           `yaml:"max_tokens"`
	MaxCandidates int           `yaml:"max_candidates"`
	MinSimilarity float64       `yaml:"min_similarity"`
	Timeout       time.Duration `yaml:"timeout"`
}

// CacheConfig holds result-cache settings.
type CacheConfig struct {
	TTL     time.Duration `yaml:"ttl"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the reference configuration.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Load reads and parses the config file at path and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	zero := domain.SearchWeights{}
	if cfg.Search.Weights == zero {
		cfg.Search.Weights = domain.DefaultSearchWeights()
	}
	if cfg.Search.FuzzyThreshold == 0 {
		cfg.Search.FuzzyThreshold = 0.3
	}
	if cfg.Search.MaxVectorDistance == 0 {
		cfg.Search.MaxVectorDistance = 0.5
	}
	if cfg.Search.EmbedTimeout == 0 {
		cfg.Search.EmbedTimeout = 10 * time.Second
	}
	if cfg.Search.QueryTimeout == 0 {
		cfg.Search.QueryTimeout = 15 * time.Second
	}
	if cfg.Rerank.Dimensions == 0 {
		cfg.Rerank.Dimensions = 384
	}
	if cfg.Rerank.MaxTokens == 0 {
		cfg.Rerank.MaxTokens = 256
	}
	if cfg.Rerank.MaxCandidates == 0 {
		cfg.Rerank.MaxCandidates = 50
	}
	if cfg.Rerank.MinSimilarity == 0 {
		cfg.Rerank.MinSimilarity = 0.1
	}
	if cfg.Rerank.Timeout == 0 {
		cfg.Rerank.Timeout = 10 * time.Second
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 5 * time.Minute
	}
	if cfg.Cache.Timeout == 0 {
		cfg.Cache.Timeout = 2 * time.Second
	}
}
