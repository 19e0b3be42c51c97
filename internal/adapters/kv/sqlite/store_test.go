package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/walletsync/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "walletsync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStorePutGetRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	want := []byte(`{"status":"idle"}`)
	require.NoError(t, store.Put(ctx, "cache/agent/state", want))

	got, err := store.Get(ctx, "cache/agent/state")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStorePutOverwritesExistingValue(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "cache/profile", []byte("old")))
	require.NoError(t, store.Put(ctx, "cache/profile", []byte("new")))

	got, err := store.Get(ctx, "cache/profile")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got)
}

func TestStoreGetMissingKeyIsNotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	_, err := store.Get(context.Background(), "session/current")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "cache/cards", []byte("x")))
	require.NoError(t, store.Delete(ctx, "cache/cards"))
	require.NoError(t, store.Delete(ctx, "cache/cards"))

	_, err := store.Get(ctx, "cache/cards")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStoreKeysFiltersByPrefix(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "cache/actions/travel", []byte("a")))
	require.NoError(t, store.Put(ctx, "cache/actions/dining", []byte("b")))
	require.NoError(t, store.Put(ctx, "session/current", []byte("c")))

	keys, err := store.Keys(ctx, "cache/actions/")
	require.NoError(t, err)
	assert.Equal(t, []string{"cache/actions/dining", "cache/actions/travel"}, keys)

	none, err := store.Keys(ctx, "missing/")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStoreRejectsEmptyKey(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	err := store.Put(context.Background(), "", []byte("x"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "store key is empty")
}
