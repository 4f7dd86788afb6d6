package embeddings

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestHashProvider_Deterministic(t *testing.T) {
	p := NewHashProvider(64)
	a, err := p.EmbedQuery(context.Background(), "coffee at the corner cafe")
	require.NoError(t, err)
	b, err := p.EmbedQuery(context.Background(), "coffee at the corner cafe")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestHashProvider_UnitLength(t *testing.T) {
	p := NewHashProvider(0)
	assert.Equal(t, 384, p.Dimension())

	for _, text := range []string{"rent payment", "!!!", "On 2024-01-05, you spent $45.00"} {
		v, err := p.EmbedQuery(context.Background(), text)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, math.Sqrt(cosine(v, v)), 1e-5, text)
	}
}

func TestHashProvider_SharedWordsScoreHigher(t *testing.T) {
	p := NewHashProvider(256)
	ctx := context.Background()
	docs, err := p.EmbedDocuments(ctx, []string{
		"you spent $4.50 at starbucks coffee",
		"you received an income of $1000 from acme payroll",
	})
	require.NoError(t, err)
	q, err := p.EmbedQuery(ctx, "starbucks coffee")
	require.NoError(t, err)

	assert.Greater(t, cosine(q, docs[0]), cosine(q, docs[1]))
}

func TestHashProvider_EmptyInput(t *testing.T) {
	p := NewHashProvider(8)
	_, err := p.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)
	_, err = p.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestHashProvider_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHashProvider(8).EmbedQuery(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Provider: "HASH", Dimension: 32})
	require.NoError(t, err)
	assert.Equal(t, 32, p.Dimension())
	assert.Equal(t, HashModel, p.Model())
	assert.NoError(t, p.Close())

	_, err = NewProvider(context.Background(), Config{Provider: "word2vec"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
