package embed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInner struct {
	calls int
	vec   []float32
	err   error
}

func (f *fakeInner) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

type fakeCache struct {
	store   map[int64][]float32
	getErr  error
	putErr  error
	putKeys []int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: make(map[int64][]float32)}
}

func (f *fakeCache) Get(ctx context.Context, ids []int64) (map[int64][]float32, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := make(map[int64][]float32)
	for _, id := range ids {
		if vec, ok := f.store[id]; ok {
			out[id] = vec
		}
	}
	return out, nil
}

func (f *fakeCache) Put(ctx context.Context, id int64, embedding []float32) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.store[id] = embedding
	f.putKeys = append(f.putKeys, id)
	return nil
}

func TestCachedEmbedder_MissThenHit(t *testing.T) {
	inner := &fakeInner{vec: []float32{1, 2, 3}}
	cache := newFakeCache()
	e := NewCachedEmbedder(inner, cache)

	vec, err := e.EmbedItem(context.Background(), 7, "some title")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, vec)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, []int64{7}, cache.putKeys)

	// Second call is served from the cache.
	_, err = e.EmbedItem(context.Background(), 7, "some title")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedEmbedder_CacheFailureDegrades(t *testing.T) {
	inner := &fakeInner{vec: []float32{1}}
	cache := newFakeCache()
	cache.getErr = errors.New("table locked")
	cache.putErr = errors.New("table locked")
	e := NewCachedEmbedder(inner, cache)

	vec, err := e.EmbedItem(context.Background(), 1, "title")
	require.NoError(t, err, "cache trouble must not fail the embed")
	assert.Equal(t, []float32{1}, vec)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedEmbedder_ModelFailurePropagates(t *testing.T) {
	inner := &fakeInner{err: errors.New("model unreachable")}
	e := NewCachedEmbedder(inner, newFakeCache())

	_, err := e.EmbedItem(context.Background(), 1, "title")
	assert.Error(t, err)
}
