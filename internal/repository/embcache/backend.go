package embcache

import "context"

// Backend persists cache entries.
type Backend interface {
	// Load returns every persisted entry. A missing store is not an error.
	Load(ctx context.Context) (map[string]Entry, error)
	// Save persists entries. snapshot holds the full cache; dirty lists the keys
	// changed since the last successful save. Backends pick whichever they need.
	Save(ctx context.Context, snapshot map[string]Entry, dirty []string) error
	Ping(ctx context.Context) error
	Name() string
}

// MemoryBackend keeps nothing.
type MemoryBackend struct{}

// Load returns an empty set.
func (MemoryBackend) Load(context.Context) (map[string]Entry, error) { return map[string]Entry{}, nil }

// Save discards the entries.
func (MemoryBackend) Save(context.Context, map[string]Entry, []string) error { return nil }

// Ping always succeeds.
func (MemoryBackend) Ping(context.Context) error { return nil }

// Name returns "memory".
func (MemoryBackend) Name() string { return "memory" }
