package cachesvc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	now := time.Now()
	core.NowFunc = func() time.Time { return now }
	defer func() { core.NowFunc = time.Now }()

	type entry struct {
		Name  string
		Count int
	}
	want := []entry{{Name: "Programming", Count: 2}}

	var got []entry
	found, err := cache.Get(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Set(ctx, "cats", want, time.Minute))
	require.NoError(t, cache.Set(ctx, "forever", want, 0))

	found, err = cache.Get(ctx, "cats", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)

	now = now.Add(2 * time.Minute)
	found, _ = cache.Get(ctx, "cats", &got)
	assert.False(t, found, "expired")
	found, _ = cache.Get(ctx, "forever", &got)
	assert.True(t, found)

	require.NoError(t, cache.Delete(ctx, "forever", "unknown"))
	found, _ = cache.Get(ctx, "forever", &got)
	assert.False(t, found)

	var wrongType int
	require.NoError(t, cache.Set(ctx, "cats", want, 0))
	_, err = cache.Get(ctx, "cats", &wrongType)
	assert.Error(t, err)
}
