package ports

import "context"

// KVStore is durable local storage of opaque serialized blobs keyed by
// string. Get returns an error wrapping domain.ErrNotFound for a missing
// key. Keys lists every stored key with the given prefix.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}
