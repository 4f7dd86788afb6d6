// Package embeddings turns transaction summaries and queries into vectors.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Provider names accepted by NewProvider.
const (
	ProviderFastEmbed = "fastembed"
	ProviderGemini    = "gemini"
	ProviderHash      = "hash"
)

// DefaultModel is the local sentence-transformers model used for summaries.
const DefaultModel = "sentence-transformers/all-MiniLM-L6-v2"

var (
	// ErrEmptyInput is returned when there is nothing to embed.
	ErrEmptyInput = errors.New("embeddings: empty input")
	// ErrEmbeddingFailed wraps provider-side failures.
	ErrEmbeddingFailed = errors.New("embeddings: embedding failed")
	// ErrInvalidConfig is returned for an unusable provider configuration.
	ErrInvalidConfig = errors.New("embeddings: invalid config")
)

// Provider generates document and query embeddings.
type Provider interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// Dimension returns the length of every vector the provider emits.
	Dimension() int
	// Model identifies the model, recorded in the index manifest.
	Model() string
	Close() error
}

// Config selects and configures a provider.
type Config struct {
	Provider  string
	Model     string
	CacheDir  string
	APIKey    string // gemini only
	Dimension int    // hash and gemini only; 0 means the provider default
}

// NewProvider creates the provider named in cfg.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderFastEmbed, "":
		model := cfg.Model
		if model == "" {
			model = DefaultModel
		}
		p, err := NewFastEmbedProvider(FastEmbedConfig{
			Model:    model,
			CacheDir: cfg.CacheDir,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case ProviderGemini:
		p, err := NewGeminiProvider(ctx, GeminiConfig{
			Model:     cfg.Model,
			APIKey:    cfg.APIKey,
			Dimension: cfg.Dimension,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case ProviderHash:
		return NewHashProvider(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
