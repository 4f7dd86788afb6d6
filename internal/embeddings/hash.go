package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const (
	// HashModel is the model name recorded for the hash provider.
	HashModel            = "feature-hash-v1"
	defaultHashDimension = 384
)

// HashProvider is a deterministic bag-of-words embedder. Each token and
// token bigram is hashed into a signed bucket and the vector is L2
// normalised, so texts sharing words score a positive cosine similarity.
// It needs no model download and is used offline and in tests.
type HashProvider struct {
	dimension int
}

// NewHashProvider returns a hash embedder. dim <= 0 selects 384.
func NewHashProvider(dim int) *HashProvider {
	if dim <= 0 {
		dim = defaultHashDimension
	}
	return &HashProvider{dimension: dim}
}

// EmbedDocuments embeds each text.
func (p *HashProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = p.vector(t)
	}
	return out, nil
}

// EmbedQuery embeds a single text.
func (p *HashProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	return p.vector(text), nil
}

// Dimension returns the vector length.
func (p *HashProvider) Dimension() int { return p.dimension }

// Model returns HashModel.
func (p *HashProvider) Model() string { return HashModel }

// Close is a no-op.
func (p *HashProvider) Close() error { return nil }

func (p *HashProvider) vector(text string) []float32 {
	vec := make([]float32, p.dimension)
	tokens := tokenize(text)
	for i, tok := range tokens {
		p.add(vec, tok, 1)
		if i > 0 {
			p.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		// Texts without tokens still need a unit vector for cosine search.
		vec[0] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

func (p *HashProvider) add(vec []float32, token string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(token))
	sum := h.Sum64()
	idx := int(sum % uint64(p.dimension))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
