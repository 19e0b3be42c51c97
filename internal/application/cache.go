package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bnema/walletsync/internal/domain"
	"github.com/bnema/walletsync/internal/ports"
)

const cacheKeyPrefix = "cache/"

// entry is the envelope stored per cache key. seq orders writes within this
// process and is not persisted; entries loaded from disk carry seq zero, so
// any fetch completed in this process supersedes them.
type entry struct {
	Value     json.RawMessage `json:"value"`
	FetchedAt time.Time       `json:"fetched_at"`

	seq uint64
}

// Cache is the typed read-through cache over the persistent store. Values
// are serialized JSON blobs; typed access goes through the package-level
// generic functions (methods cannot carry type parameters). Reads with an
// existing entry never touch the network: they return the stored value and
// at most schedule one background refresh per key.
type Cache struct {
	kv     ports.KVStore
	clock  ports.Clock
	logger *slog.Logger

	flight singleflight.Group
	seq    atomic.Uint64

	mu         sync.Mutex
	entries    map[string]entry
	loaded     map[string]bool
	refreshing map[string]bool

	background sync.WaitGroup
}

func NewCache(kv ports.KVStore, clock ports.Clock, logger *slog.Logger) *Cache {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{
		kv:         kv,
		clock:      clock,
		logger:     logger,
		entries:    make(map[string]entry),
		loaded:     make(map[string]bool),
		refreshing: make(map[string]bool),
	}
}

// Get returns the value for key. With an existing entry and force false it
// answers from the cache immediately and triggers a fire-and-forget refresh
// unless one is already in flight for the key. A miss or force true fetches
// synchronously; concurrent callers for the same key share one fetch.
func Get[T any](ctx context.Context, c *Cache, key string, force bool, fetch func(context.Context) (T, error)) (T, error) {
	if !force {
		if value, ok := Lookup[T](ctx, c, key); ok {
			refreshAsync(ctx, c, key, fetch)
			return value, nil
		}
	}

	result, err, _ := c.flight.Do(key, func() (any, error) {
		seq := c.seq.Add(1)
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if err := putSeq(ctx, c, key, value, seq); err != nil {
			c.logger.Warn("persist fetched entry failed", "key", key, "error", err)
		}
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

// Lookup returns the cached value for key without any fetching. A corrupt
// stored blob is discarded and reported as a miss.
func Lookup[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var zero T

	c.mu.Lock()
	ent, ok := c.lookupLocked(ctx, key)
	c.mu.Unlock()
	if !ok {
		return zero, false
	}

	var value T
	if err := json.Unmarshal(ent.Value, &value); err != nil {
		c.logger.Warn("discarding corrupt cache entry", "key", key, "error", err)
		if err := c.Invalidate(ctx, key); err != nil {
			c.logger.Warn("drop corrupt cache entry failed", "key", key, "error", err)
		}
		return zero, false
	}
	return value, true
}

// Put overwrites the entry for key and persists it immediately. Used by
// write reconciliation; a Put always supersedes fetches started earlier.
func Put[T any](ctx context.Context, c *Cache, key string, value T) error {
	return putSeq(ctx, c, key, value, c.seq.Add(1))
}

func putSeq[T any](ctx context.Context, c *Cache, key string, value T, seq uint64) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry %q: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.storeLocked(ctx, key, entry{Value: raw, FetchedAt: c.clock.Now(), seq: seq})
}

func refreshAsync[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error)) {
	c.mu.Lock()
	if c.refreshing[key] {
		c.mu.Unlock()
		return
	}
	c.refreshing[key] = true
	c.mu.Unlock()

	seq := c.seq.Add(1)
	bg := context.WithoutCancel(ctx)

	c.background.Add(1)
	go func() {
		defer c.background.Done()
		defer func() {
			c.mu.Lock()
			delete(c.refreshing, key)
			c.mu.Unlock()
		}()

		value, err := fetch(bg)
		if err != nil {
			// Stale data keeps being served; the next read retries.
			c.logger.Warn("background refresh failed", "key", key, "error", err)
			return
		}
		if err := putSeq(bg, c, key, value, seq); err != nil {
			c.logger.Warn("persist refreshed entry failed", "key", key, "error", err)
		}
	}()
}

// Flush waits for in-flight background refreshes to land. One-shot
// invocations call it on shutdown so cache-first reads' fire-and-forget
// reconciliation is not dropped at process exit.
func (c *Cache) Flush() {
	c.background.Wait()
}

// Invalidate removes the entry for key without fetching.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidateLocked(ctx, key)
}

// InvalidateAll removes every cached entry. Called on logout: a session
// boundary is also a cache invalidation boundary.
func (c *Cache) InvalidateAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
	c.loaded = make(map[string]bool)

	keys, err := c.kv.Keys(ctx, cacheKeyPrefix)
	if err != nil {
		return fmt.Errorf("list cache entries: %w", err)
	}
	var errs []error
	for _, key := range keys {
		if err := c.kv.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Keys lists cached keys with the given prefix, including entries persisted
// by a previous process.
func (c *Cache) Keys(ctx context.Context, prefix string) ([]string, error) {
	stored, err := c.kv.Keys(ctx, cacheKeyPrefix+prefix)
	if err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}

	keys := make([]string, 0, len(stored))
	for _, key := range stored {
		keys = append(keys, strings.TrimPrefix(key, cacheKeyPrefix))
	}
	return keys, nil
}

func (c *Cache) lookupLocked(ctx context.Context, key string) (entry, bool) {
	if !c.loaded[key] {
		c.loaded[key] = true
		data, err := c.kv.Get(ctx, cacheKeyPrefix+key)
		switch {
		case err == nil:
			var ent entry
			if unmarshalErr := json.Unmarshal(data, &ent); unmarshalErr != nil {
				c.logger.Warn("discarding corrupt persisted entry", "key", key, "error", unmarshalErr)
				_ = c.kv.Delete(ctx, cacheKeyPrefix+key)
			} else {
				c.entries[key] = ent
			}
		case !errors.Is(err, domain.ErrNotFound):
			c.logger.Warn("load persisted entry failed", "key", key, "error", err)
		}
	}

	ent, ok := c.entries[key]
	return ent, ok
}

// storeLocked applies the linearization rule: a write whose seq is not
// newer than the stored entry is dropped, so a slow refresh can never
// overwrite a more recent put.
func (c *Cache) storeLocked(ctx context.Context, key string, ent entry) error {
	if cur, ok := c.entries[key]; ok && cur.seq >= ent.seq {
		return nil
	}

	c.entries[key] = ent
	c.loaded[key] = true

	raw, err := json.Marshal(ent)
	if err != nil {
		return fmt.Errorf("encode cache envelope %q: %w", key, err)
	}
	if err := c.kv.Put(ctx, cacheKeyPrefix+key, raw); err != nil {
		return fmt.Errorf("persist cache entry %q: %w", key, err)
	}
	return nil
}

func (c *Cache) invalidateLocked(ctx context.Context, key string) error {
	delete(c.entries, key)
	delete(c.loaded, key)
	if err := c.kv.Delete(ctx, cacheKeyPrefix+key); err != nil {
		return fmt.Errorf("delete cache entry %q: %w", key, err)
	}
	return nil
}
