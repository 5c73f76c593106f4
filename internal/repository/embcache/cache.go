package embcache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vibematch/internal/domain"
	"github.com/kailas-cloud/vibematch/internal/domain/text"
)

// Cache maps normalized text to embeddings. Reads run concurrently; writes are
// serialized. Store failures never surface to lookups: the cache drops to
// memory-only mode for the rest of the session instead.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]Entry
	dirty      map[string]struct{}
	persistent bool

	// flushMu keeps saves in order so an older snapshot never overwrites a newer one.
	flushMu sync.Mutex

	backend    Backend
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
	now        func() time.Time
}

// New creates an empty cache over backend. Call Open to load persisted entries.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"/"conflict"), passed explicitly.
func New(backend Backend, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	if backend == nil {
		backend = MemoryBackend{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	_, memOnly := backend.(MemoryBackend)
	return &Cache{
		entries:    make(map[string]Entry),
		dirty:      make(map[string]struct{}),
		persistent: !memOnly,
		backend:    backend,
		cacheTotal: cacheTotal,
		logger:     logger,
		now:        time.Now,
	}
}

// Open loads persisted entries. A failed or corrupt load leaves the cache
// empty and memory-only; invalid individual entries are skipped.
func (c *Cache) Open(ctx context.Context) {
	loaded, err := c.backend.Load(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.persistent = false
		c.logger.Warn("Embedding cache unreadable, continuing in memory-only mode",
			zap.String("backend", c.backend.Name()),
			zap.Error(err),
		)
		return
	}

	skipped := 0
	for k, e := range loaded {
		if err := e.Validate(); err != nil {
			skipped++
			c.logger.Debug("Skipping invalid cache entry", zap.String("key", k), zap.Error(err))
			continue
		}
		c.entries[k] = e
	}

	c.logger.Info("Embedding cache loaded",
		zap.String("backend", c.backend.Name()),
		zap.Int("entries", len(c.entries)),
		zap.Int("skipped", skipped),
	)
}

// Get looks up text. The text is normalized before hashing.
func (c *Cache) Get(s string) (Entry, bool) {
	return c.GetNormalized(text.Normalize(s))
}

// GetNormalized looks up text that is already normalized.
func (c *Cache) GetNormalized(normalized string) (Entry, bool) {
	key := Key(normalized)

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		c.inc("hit")
	} else {
		c.inc("miss")
	}
	return e, ok
}

// Lookup returns the cached vector of normalized text.
func (c *Cache) Lookup(normalized string) (domain.Vector, bool) {
	e, ok := c.GetNormalized(normalized)
	if !ok {
		return domain.Vector{}, false
	}
	return e.AsVector(), true
}

// Store caches v for normalized text with Put semantics.
func (c *Cache) Store(normalized string, v domain.Vector) {
	c.PutNormalized(normalized, v.Values, v.Source)
}

// Put stores a vector for text. Storing the same text with the same source
// again is a no-op; a different source replaces the entry and is reported as a
// conflict. The vector is copied.
func (c *Cache) Put(s string, vec []float32, src domain.Source) {
	c.PutNormalized(text.Normalize(s), vec, src)
}

// PutNormalized is Put for text that is already normalized.
func (c *Cache) PutNormalized(normalized string, vec []float32, src domain.Source) {
	key := Key(normalized)
	e := Entry{
		Vector:    append([]float32(nil), vec...),
		Dimension: len(vec),
		Source:    src,
		CreatedAt: c.now().UTC(),
		Text:      normalized,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.entries[key]; ok {
		if prev.Source == src {
			return
		}
		c.inc("conflict")
		c.logger.Warn("Embedding cache source conflict, replacing entry",
			zap.String("key", key),
			zap.String("old_source", string(prev.Source)),
			zap.String("new_source", string(src)),
		)
	}
	c.entries[key] = e
	c.dirty[key] = struct{}{}
}

// Flush persists entries written since the last flush. A save failure switches
// the cache to memory-only mode; the error is returned for the caller to log.
func (c *Cache) Flush(ctx context.Context) error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.Lock()
	if len(c.dirty) == 0 {
		c.mu.Unlock()
		return nil
	}
	if !c.persistent {
		clear(c.dirty)
		c.mu.Unlock()
		return nil
	}
	dirty := make([]string, 0, len(c.dirty))
	for k := range c.dirty {
		dirty = append(dirty, k)
	}
	sort.Strings(dirty)
	snapshot := make(map[string]Entry, len(c.entries))
	for k, e := range c.entries {
		snapshot[k] = e
	}
	clear(c.dirty)
	c.mu.Unlock()

	if err := c.backend.Save(ctx, snapshot, dirty); err != nil {
		c.mu.Lock()
		c.persistent = false
		c.mu.Unlock()
		c.logger.Warn("Embedding cache write failed, continuing in memory-only mode",
			zap.String("backend", c.backend.Name()),
			zap.Int("entries", len(dirty)),
			zap.Error(err),
		)
		return fmt.Errorf("flush embedding cache: %w", err)
	}

	c.logger.Debug("Embedding cache flushed",
		zap.String("backend", c.backend.Name()),
		zap.Int("entries", len(dirty)),
	)
	return nil
}

// Batch runs fn and then flushes, on every exit path including a panic in fn.
// The flush is not cancelled by ctx. Errors from fn and the flush are joined.
func (c *Cache) Batch(ctx context.Context, fn func() error) (err error) {
	defer func() {
		r := recover()
		flushErr := c.Flush(context.WithoutCancel(ctx))
		if r != nil {
			panic(r)
		}
		err = errors.Join(err, flushErr)
	}()
	return fn()
}

// Ping checks the backend. A memory-only cache is always healthy.
func (c *Cache) Ping(ctx context.Context) error {
	if !c.Persistent() {
		return nil
	}
	return c.backend.Ping(ctx)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Persistent reports whether writes still reach the backend.
func (c *Cache) Persistent() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.persistent
}

// Backend returns the name of the configured backend.
func (c *Cache) Backend() string { return c.backend.Name() }

func (c *Cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
