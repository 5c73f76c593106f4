package embcache

import (
	"context"
	"encoding/json"
	"fmt"
)

// hashStore is the consumer interface for the Redis backend (ISP).
type hashStore interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	Ping(ctx context.Context) error
}

// RedisBackend stores the cache in one Redis hash: field = cache key,
// value = entry JSON. Saves write only dirty entries.
type RedisBackend struct {
	store hashStore
	key   string
}

// NewRedisBackend creates a backend over the hash at key.
func NewRedisBackend(s hashStore, key string) *RedisBackend {
	return &RedisBackend{store: s, key: key}
}

// Name returns "redis".
func (r *RedisBackend) Name() string { return "redis" }

// Load reads every field of the hash. Undecodable fields are skipped by
// leaving them out of the result.
func (r *RedisBackend) Load(ctx context.Context) (map[string]Entry, error) {
	fields, err := r.store.HGetAll(ctx, r.key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", r.key, err)
	}
	out := make(map[string]Entry, len(fields))
	for k, v := range fields {
		var e Entry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			continue
		}
		out[k] = e
	}
	return out, nil
}

// Save writes dirty entries in a single HSET.
func (r *RedisBackend) Save(ctx context.Context, snapshot map[string]Entry, dirty []string) error {
	fields, err := encodeDirty(snapshot, dirty)
	if err != nil {
		return err
	}
	if err := r.store.HSet(ctx, r.key, fields); err != nil {
		return fmt.Errorf("save %s: %w", r.key, err)
	}
	return nil
}

// Ping checks Redis connectivity.
func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

func encodeDirty(snapshot map[string]Entry, dirty []string) (map[string]string, error) {
	out := make(map[string]string, len(dirty))
	for _, k := range dirty {
		e, ok := snapshot[k]
		if !ok {
			continue
		}
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("encode entry %s: %w", k, err)
		}
		out[k] = string(data)
	}
	return out, nil
}
