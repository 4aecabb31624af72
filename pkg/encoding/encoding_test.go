package encoding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypermem/hypermem-go/pkg/classify"
	"github.com/hypermem/hypermem-go/pkg/codebook"
	"github.com/hypermem/hypermem-go/pkg/hdc"
)

// failingEmbedder always errors, for exercising the fallback chain.
type failingEmbedder struct {
	dim   int
	calls int
}

func (f *failingEmbedder) Embed(_ context.Context, _ string) ([]float64, error) {
	f.calls++
	return nil, errors.New("backend unavailable")
}

func (f *failingEmbedder) Dimensions() int { return f.dim }

// countingEmbedder wraps the hash embedder and counts invocations, for cache
// hit assertions.
type countingEmbedder struct {
	inner *HashEmbedder
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	c.calls++
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) Dimensions() int { return c.inner.Dimensions() }

func newTestNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

func TestHashEmbedderDeterministic(t *testing.T) {
	e := NewHashEmbedder(128, 42)
	ctx := context.Background()

	a, err := e.Embed(ctx, "the cat sat on the mat")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "the cat sat on the mat")
	require.NoError(t, err)

	assert.Equal(t, a, b, "same text must embed identically")
	assert.InDelta(t, 1.0, hdc.Norm(a), 1e-6)
}

func TestHashEmbedderDistinguishesTexts(t *testing.T) {
	e := NewHashEmbedder(128, 42)
	ctx := context.Background()

	a, err := e.Embed(ctx, "alpha")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "omega")
	require.NoError(t, err)

	assert.Less(t, hdc.CosineSimilarity(a, b), 0.99)
}

func TestHashEmbedderSharedTokens(t *testing.T) {
	e := NewHashEmbedder(256, 42)
	ctx := context.Background()

	full, err := e.Embed(ctx, "the cat sat on the mat")
	require.NoError(t, err)
	partial, err := e.Embed(ctx, "cat mat")
	require.NoError(t, err)
	unrelated, err := e.Embed(ctx, "quantum flux divergence")
	require.NoError(t, err)

	assert.Greater(t, hdc.CosineSimilarity(full, partial), hdc.CosineSimilarity(full, unrelated),
		"shared tokens should pull embeddings together")
}

func TestHashEmbedderEmptyInput(t *testing.T) {
	e := NewHashEmbedder(64, 1)
	ctx := context.Background()

	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := e.Embed(ctx, text)
		assert.ErrorIs(t, err, ErrEmptyInput, "input %q", text)
	}
}

func TestFallbackEmbedderEngages(t *testing.T) {
	primary := &failingEmbedder{dim: 64}
	fallback := NewHashEmbedder(64, 7)

	chain, err := NewFallbackEmbedder(primary, fallback, nil)
	require.NoError(t, err)

	embedding, err := chain.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, 1, primary.calls)
	assert.Len(t, embedding, 64)
}

func TestFallbackEmbedderEmptyInputNotRetried(t *testing.T) {
	primary := NewHashEmbedder(64, 1)
	fallback := NewHashEmbedder(64, 2)

	chain, err := NewFallbackEmbedder(primary, fallback, nil)
	require.NoError(t, err)

	_, err = chain.Embed(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestFallbackEmbedderDimensionCheck(t *testing.T) {
	_, err := NewFallbackEmbedder(NewHashEmbedder(64, 1), NewHashEmbedder(32, 1), nil)
	assert.Error(t, err)
}

func TestCachedEmbedder(t *testing.T) {
	counting := &countingEmbedder{inner: NewHashEmbedder(64, 3)}
	cached, err := NewCachedEmbedder(counting, 128)
	require.NoError(t, err)
	defer cached.Close()

	ctx := context.Background()
	a, err := cached.Embed(ctx, "repeated text")
	require.NoError(t, err)

	// Ristretto admits asynchronously; give the set a moment to land.
	time.Sleep(20 * time.Millisecond)

	b, err := cached.Embed(ctx, "repeated text")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 1, counting.calls, "second call should hit the cache")
}

func TestPipelineEncode(t *testing.T) {
	cb := codebook.New(64, 2048, 42)
	pipe, err := NewPipeline(cb, NewHashEmbedder(64, 42), nil, newTestNode(t))
	require.NoError(t, err)

	m, err := pipe.Encode(context.Background(), "the cat sat on the mat")
	require.NoError(t, err)

	assert.NotZero(t, m.ID)
	assert.Equal(t, 0, m.Layer)
	assert.Equal(t, 1.0, m.Wave.Amplitude)
	assert.Equal(t, "the cat sat on the mat", m.Content)
	assert.InDelta(t, 1.0, hdc.Norm(m.Vector), 1e-4)
	assert.NotEmpty(t, m.XiSignature)
	assert.False(t, m.Hallucinated)
}

func TestPipelineEncodeWithClassifier(t *testing.T) {
	cb := codebook.New(64, 2048, 42)
	pipe, err := NewPipeline(cb, NewHashEmbedder(64, 42), classify.NewHeuristic(), newTestNode(t))
	require.NoError(t, err)

	m, err := pipe.Encode(context.Background(), "my friend told me a story")
	require.NoError(t, err)

	assert.Equal(t, "social", m.Category)
	require.NotNil(t, m.Coordinates)
	assert.Equal(t, uint8(1), m.Coordinates.H2)

	// Social band is 1.0..1.4 Hz.
	assert.GreaterOrEqual(t, m.Wave.Frequency, 1.0)
	assert.Less(t, m.Wave.Frequency, 1.4)
}

func TestPipelineEncodeEmpty(t *testing.T) {
	cb := codebook.New(64, 1024, 1)
	pipe, err := NewPipeline(cb, NewHashEmbedder(64, 1), nil, newTestNode(t))
	require.NoError(t, err)

	_, err = pipe.Encode(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestPipelineDimensionMismatch(t *testing.T) {
	cb := codebook.New(64, 1024, 1)
	_, err := NewPipeline(cb, NewHashEmbedder(32, 1), nil, newTestNode(t))
	assert.Error(t, err)
}

func TestPipelineEncodeFeatures(t *testing.T) {
	cb := codebook.New(16, 1024, 1)
	pipe, err := NewPipeline(cb, nil, nil, newTestNode(t))
	require.NoError(t, err)

	features := []float64{1, 0, 0.5, 0, 0, 0.2, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}
	m, err := pipe.EncodeFeatures(features, "audio:clip-1")
	require.NoError(t, err)

	assert.Equal(t, "audio:clip-1", m.Content)
	assert.InDelta(t, 1.0, hdc.Norm(m.Vector), 1e-4)

	_, err = pipe.EncodeFeatures([]float64{1, 2}, "bad")
	assert.ErrorIs(t, err, codebook.ErrDimensionMismatch)
}
