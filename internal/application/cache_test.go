package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache() (*Cache, *memKV) {
	kv := newMemKV()
	return NewCache(kv, nil, nil), kv
}

func TestGetServesCachedValueWithoutBlockingOnNetwork(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache()
	ctx := context.Background()

	require.NoError(t, Put(ctx, c, "profile", "cached"))

	release := make(chan struct{})
	fetch := func(context.Context) (string, error) {
		<-release
		return "fresh", nil
	}

	start := time.Now()
	got, err := Get(ctx, c, "profile", false, fetch)
	require.NoError(t, err)
	assert.Equal(t, "cached", got)
	assert.Less(t, time.Since(start), time.Second, "cache-first read must not wait for the fetch")

	close(release)
	c.Flush()

	got, ok := Lookup[string](ctx, c, "profile")
	require.True(t, ok)
	assert.Equal(t, "fresh", got, "background refresh should land after release")
}

func TestGetForceDeduplicatesConcurrentFetches(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache()
	ctx := context.Background()

	var calls atomic.Int64
	release := make(chan struct{})
	fetch := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "value", nil
	}

	const readers = 8
	var wg sync.WaitGroup
	results := make([]string, readers)
	for i := range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := Get(ctx, c, "cards", true, fetch)
			require.NoError(t, err)
			results[i] = got
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load(), "concurrent forced reads must share one fetch")
	for _, got := range results {
		assert.Equal(t, "value", got)
	}
}

func TestBackgroundRefreshIsDeduplicatedPerKey(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache()
	ctx := context.Background()

	require.NoError(t, Put(ctx, c, "profile", "cached"))

	var calls atomic.Int64
	release := make(chan struct{})
	fetch := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "fresh", nil
	}

	for range 5 {
		_, err := Get(ctx, c, "profile", false, fetch)
		require.NoError(t, err)
	}

	close(release)
	c.Flush()
	assert.Equal(t, int64(1), calls.Load(), "only one background refresh may be in flight per key")
}

func TestStaleWriteNeverOverwritesNewerEntry(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache()
	ctx := context.Background()

	staleSeq := c.seq.Add(1)

	require.NoError(t, Put(ctx, c, "cards", "newer"))
	require.NoError(t, putSeq(ctx, c, "cards", "stale", staleSeq))

	got, ok := Lookup[string](ctx, c, "cards")
	require.True(t, ok)
	assert.Equal(t, "newer", got)
}

func TestFailedFetchSurfacesErrorOnMiss(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache()
	wantErr := errors.New("boom")

	_, err := Get(context.Background(), c, "profile", false, func(context.Context) (string, error) {
		return "", wantErr
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, wantErr))
}

func TestCorruptPersistedEntryIsDiscarded(t *testing.T) {
	t.Parallel()

	c, kv := newTestCache()
	ctx := context.Background()

	require.NoError(t, kv.Put(ctx, "cache/profile", []byte("not-json")))

	_, ok := Lookup[string](ctx, c, "profile")
	assert.False(t, ok)

	_, err := kv.Get(ctx, "cache/profile")
	assert.Error(t, err, "corrupt blob should have been dropped from the store")
}

func TestEntriesSurviveProcessRestart(t *testing.T) {
	t.Parallel()

	kv := newMemKV()
	ctx := context.Background()

	first := NewCache(kv, nil, nil)
	require.NoError(t, Put(ctx, first, "profile", "persisted"))

	second := NewCache(kv, nil, nil)
	got, ok := Lookup[string](ctx, second, "profile")
	require.True(t, ok)
	assert.Equal(t, "persisted", got)
}

func TestInvalidateAllRemovesEveryEntry(t *testing.T) {
	t.Parallel()

	c, kv := newTestCache()
	ctx := context.Background()

	require.NoError(t, Put(ctx, c, "profile", "a"))
	require.NoError(t, Put(ctx, c, "cards", "b"))
	require.NoError(t, kv.Put(ctx, "session/current", []byte("keep")))

	require.NoError(t, c.InvalidateAll(ctx))

	_, ok := Lookup[string](ctx, c, "profile")
	assert.False(t, ok)
	_, ok = Lookup[string](ctx, c, "cards")
	assert.False(t, ok)

	keys, err := kv.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"session/current"}, keys, "non-cache namespaces are untouched")
}

func TestKeysStripsTheCachePrefix(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache()
	ctx := context.Background()

	require.NoError(t, Put(ctx, c, "actions/travel", "a"))
	require.NoError(t, Put(ctx, c, "actions/dining", "b"))
	require.NoError(t, Put(ctx, c, "profile", "c"))

	keys, err := c.Keys(ctx, "actions/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"actions/travel", "actions/dining"}, keys)
}
