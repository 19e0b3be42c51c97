package application

import (
	"context"
	"encoding/json"
	"fmt"
)

// Mutate applies an optimistic local mutation: forward is applied to the
// cached value under key and the result published synchronously, before any
// network I/O, so readers observe the change immediately. remoteOp then
// performs the corresponding remote write. On failure the previous entry is
// restored atomically with respect to other readers and the error is
// propagated; the rollback is skipped if a newer write has already
// superseded the optimistic one.
func Mutate[T any](ctx context.Context, c *Cache, key string, forward func(T) T, remoteOp func(context.Context, T) error) (T, error) {
	var zero T

	c.mu.Lock()
	prev, existed := c.lookupLocked(ctx, key)

	var current T
	if existed {
		if err := json.Unmarshal(prev.Value, &current); err != nil {
			// Corrupt entry: mutate from the zero value and do not restore
			// the broken blob on rollback.
			existed = false
		}
	}

	next := forward(current)
	raw, err := json.Marshal(next)
	if err != nil {
		c.mu.Unlock()
		return zero, fmt.Errorf("encode mutated value %q: %w", key, err)
	}

	seq := c.seq.Add(1)
	if err := c.storeLocked(ctx, key, entry{Value: raw, FetchedAt: c.clock.Now(), seq: seq}); err != nil {
		c.mu.Unlock()
		return zero, err
	}
	c.mu.Unlock()

	if err := remoteOp(ctx, next); err != nil {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur.seq == seq {
			if existed {
				prev.seq = c.seq.Add(1)
				if storeErr := c.storeLocked(ctx, key, prev); storeErr != nil {
					c.logger.Warn("restore entry after failed mutation", "key", key, "error", storeErr)
				}
			} else {
				if dropErr := c.invalidateLocked(ctx, key); dropErr != nil {
					c.logger.Warn("drop entry after failed mutation", "key", key, "error", dropErr)
				}
			}
		}
		c.mu.Unlock()
		return current, err
	}

	return next, nil
}
