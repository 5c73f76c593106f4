package embcache

import (
	"context"
	"encoding/json"
	"fmt"
)

// kvStore is the consumer interface for the Badger backend (ISP).
type kvStore interface {
	Scan(ctx context.Context, prefix string) (map[string][]byte, error)
	PutMulti(ctx context.Context, prefix string, items map[string][]byte) error
	Ping(ctx context.Context) error
}

// BadgerBackend stores one key per entry under prefix in an embedded Badger
// database. Saves write only dirty entries.
type BadgerBackend struct {
	store  kvStore
	prefix string
}

// NewBadgerBackend creates a backend over store.
func NewBadgerBackend(s kvStore, prefix string) *BadgerBackend {
	return &BadgerBackend{store: s, prefix: prefix}
}

// Name returns "badger".
func (b *BadgerBackend) Name() string { return "badger" }

// Load scans the prefix.
func (b *BadgerBackend) Load(ctx context.Context) (map[string]Entry, error) {
	raw, err := b.store.Scan(ctx, b.prefix)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	out := make(map[string]Entry, len(raw))
	for k, v := range raw {
		var e Entry
		if err := json.Unmarshal(v, &e); err != nil {
			continue
		}
		out[k] = e
	}
	return out, nil
}

// Save writes dirty entries in one write batch.
func (b *BadgerBackend) Save(ctx context.Context, snapshot map[string]Entry, dirty []string) error {
	fields, err := encodeDirty(snapshot, dirty)
	if err != nil {
		return err
	}
	items := make(map[string][]byte, len(fields))
	for k, v := range fields {
		items[k] = []byte(v)
	}
	if err := b.store.PutMulti(ctx, b.prefix, items); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// Ping checks that the database is open.
func (b *BadgerBackend) Ping(ctx context.Context) error {
	return b.store.Ping(ctx)
}
