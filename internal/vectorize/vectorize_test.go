package vectorize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftcode/astindex/internal/asterrors"
)

func TestStaticEmbedder_Deterministic(t *testing.T) {
	e := NewStaticEmbedder(128)
	v1, err := e.Embed(context.Background(), "func greet(name string) string")
	require.NoError(t, err)
	v2, err := e.Embed(context.Background(), "func greet(name string) string")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}

func TestStaticEmbedder_DifferentTextDiffers(t *testing.T) {
	e := NewStaticEmbedder(128)
	v1, err := e.Embed(context.Background(), "func greet() {}")
	require.NoError(t, err)
	v2, err := e.Embed(context.Background(), "class Account { balance int }")
	require.NoError(t, err)
	assert.NotEqual(t, v1, v2)
}

func TestStaticEmbedder_Dimensions(t *testing.T) {
	e := NewStaticEmbedder(256)
	v, err := e.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Len(t, v, 256)
	assert.Equal(t, 256, e.Dimensions())
}

func TestStaticEmbedder_DefaultsDimensionsWhenNonPositive(t *testing.T) {
	e := NewStaticEmbedder(0)
	assert.Equal(t, DefaultDimensions, e.Dimensions())
}

func TestStaticEmbedder_EmptyTextReturnsZeroVector(t *testing.T) {
	e := NewStaticEmbedder(64)
	v, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestStaticEmbedder_VectorIsUnitNormalized(t *testing.T) {
	e := NewStaticEmbedder(64)
	v, err := e.Embed(context.Background(), "func camelCaseName(snake_case_arg int) bool")
	require.NoError(t, err)

	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, sumSquares, 0.001)
}

func TestStaticEmbedder_EmbedBatch_MatchesIndividualEmbed(t *testing.T) {
	e := NewStaticEmbedder(64)
	texts := []string{"func a()", "func b()", ""}
	batch, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	for i, text := range texts {
		single, err := e.Embed(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}

func TestStaticEmbedder_EmbedBatch_Empty(t *testing.T) {
	e := NewStaticEmbedder(64)
	batch, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestStaticEmbedder_ClosedRejectsCalls(t *testing.T) {
	e := NewStaticEmbedder(64)
	require.NoError(t, e.Close())
	assert.False(t, e.Available(context.Background()))

	_, err := e.Embed(context.Background(), "text")
	assert.Error(t, err)
}

func TestStaticEmbedder_ModelName_ReflectsDimensions(t *testing.T) {
	e := NewStaticEmbedder(768)
	assert.Equal(t, "static768", e.ModelName())
}

func TestSplitCamelCase(t *testing.T) {
	cases := map[string][]string{
		"getUserName": {"get", "User", "Name"},
		"HTTPServer":  {"HTTP", "Server"},
		"simple":      {"simple"},
	}
	for input, want := range cases {
		assert.Equal(t, want, splitCamelCase(input))
	}
}

func TestCachedEmbedder_CachesRepeatedText(t *testing.T) {
	inner := NewStaticEmbedder(32)
	cached, err := NewCachedEmbedder(inner, 10)
	require.NoError(t, err)

	_, err = cached.Embed(context.Background(), "func foo()")
	require.NoError(t, err)
	assert.Equal(t, 1, cached.CacheLen())

	_, err = cached.Embed(context.Background(), "func foo()")
	require.NoError(t, err)
	assert.Equal(t, 1, cached.CacheLen())

	_, err = cached.Embed(context.Background(), "func bar()")
	require.NoError(t, err)
	assert.Equal(t, 2, cached.CacheLen())
}

func TestCachedEmbedder_BatchPartialHit(t *testing.T) {
	inner := NewStaticEmbedder(32)
	cached, err := NewCachedEmbedder(inner, 10)
	require.NoError(t, err)

	_, err = cached.Embed(context.Background(), "func foo()")
	require.NoError(t, err)

	results, err := cached.EmbedBatch(context.Background(), []string{"func foo()", "func baz()"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 2, cached.CacheLen())
}

func TestCachedEmbedder_PassthroughMethods(t *testing.T) {
	inner := NewStaticEmbedder(64)
	cached, err := NewCachedEmbedder(inner, 10)
	require.NoError(t, err)

	assert.Equal(t, inner.Dimensions(), cached.Dimensions())
	assert.Equal(t, inner.ModelName(), cached.ModelName())
	assert.True(t, cached.Available(context.Background()))
	assert.Same(t, inner, cached.Inner())
	require.NoError(t, cached.Close())
}

func TestNewEmbedder_StaticDefault(t *testing.T) {
	e, err := NewEmbedder(context.Background(), FactoryOptions{})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()
	assert.Equal(t, DefaultDimensions, e.Dimensions())
}

func TestNewEmbedder_UnknownModelReturnsEmbeddingKindError(t *testing.T) {
	_, err := NewEmbedder(context.Background(), FactoryOptions{Model: "does-not-exist"})
	require.Error(t, err)

	ae, ok := asterrors.AsASTError(err)
	require.True(t, ok)
	assert.Equal(t, asterrors.KindEmbedding, ae.Kind)
	require.NotEmpty(t, ae.Suggestions)
	assert.Contains(t, ae.Suggestions[0], "static")
}

func TestNewEmbedder_WithCacheWrapsInCachedEmbedder(t *testing.T) {
	e, err := NewEmbedder(context.Background(), FactoryOptions{Model: "static256", CacheSize: 10})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	_, ok := e.(*CachedEmbedder)
	assert.True(t, ok)
	assert.Equal(t, 256, e.Dimensions())
}
