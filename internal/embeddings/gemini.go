package embeddings

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const (
	defaultGeminiModel     = "text-embedding-004"
	defaultGeminiDimension = 768
	geminiBatchSize        = 100
)

// GeminiConfig holds configuration for the Gemini provider.
type GeminiConfig struct {
	Model string
	// APIKey is optional; when empty the client reads GOOGLE_API_KEY or the
	// Vertex AI environment variables.
	APIKey    string
	Dimension int
}

// GeminiProvider embeds text with the Gemini embeddings API.
type GeminiProvider struct {
	client    *genai.Client
	model     string
	dimension int
}

// NewGeminiProvider creates a Gemini API client.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	model := cfg.Model
	if model == "" || model == DefaultModel {
		model = defaultGeminiModel
	}
	dim := cfg.Dimension
	if dim == 0 {
		dim = defaultGeminiDimension
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &GeminiProvider{client: client, model: model, dimension: dim}, nil
}

// EmbedDocuments embeds texts as retrieval documents.
func (p *GeminiProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += geminiBatchSize {
		end := min(start+geminiBatchSize, len(texts))
		vecs, err := p.embed(ctx, texts[start:end], "RETRIEVAL_DOCUMENT")
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// EmbedQuery embeds a single retrieval query.
func (p *GeminiProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	vecs, err := p.embed(ctx, []string{text}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (p *GeminiProvider) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	dim := int32(p.dimension)
	resp, err := p.client.Models.EmbedContent(ctx, p.model, contents, &genai.EmbedContentConfig{
		TaskType:             taskType,
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmbeddingFailed, len(resp.Embeddings), len(texts))
	}

	vecs := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		vecs[i] = e.Values
	}
	return vecs, nil
}

// Dimension returns the requested output dimensionality.
func (p *GeminiProvider) Dimension() int { return p.dimension }

// Model returns the Gemini model name.
func (p *GeminiProvider) Model() string { return p.model }

// Close is a no-op; the client holds no resources.
func (p *GeminiProvider) Close() error { return nil }
