package vibematch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vibematch/internal/catalog"
	dbBadger "github.com/kailas-cloud/vibematch/internal/db/badger"
	dbRedis "github.com/kailas-cloud/vibematch/internal/db/redis"
	"github.com/kailas-cloud/vibematch/internal/domain"
	"github.com/kailas-cloud/vibematch/internal/domain/match"
	"github.com/kailas-cloud/vibematch/internal/domain/search/request"
	"github.com/kailas-cloud/vibematch/internal/domain/synthetic"
	"github.com/kailas-cloud/vibematch/internal/repository/embcache"
	embeddinguc "github.com/kailas-cloud/vibematch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/vibematch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/vibematch/internal/usecase/search"
	usageuc "github.com/kailas-cloud/vibematch/internal/usecase/usage"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultEmbedTimeout     = 10 * time.Second
	defaultCacheKey         = "vibematch:emb_cache"
)

// Client is the vibematch SDK entry point. It is safe for concurrent use;
// Load swaps the served catalog atomically.
type Client struct {
	cache     *embcache.Cache
	searchSvc *searchuc.Service
	healthSvc *healthuc.Service
	usageSvc  *usageuc.Service
	corpus    atomic.Pointer[searchuc.Corpus]
	topK      int
	th        match.Thresholds
	closers   []func()
	obs       *observer
}

// New creates a Client and opens its embedding cache. The provided context is
// used for the readiness check and the initial cache load.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		cacheDriver:  "memory",
		dimensions:   domain.DefaultVectorConfig().Dimensions,
		embedTimeout: defaultEmbedTimeout,
		topK:         3,
		fallback:     match.DefaultFallbackThreshold,
		goodHit:      match.DefaultGoodHitThreshold,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	th := match.Thresholds{Fallback: cfg.fallback, GoodHit: cfg.goodHit}
	if err := th.Validate(); err != nil {
		return nil, fmt.Errorf("vibematch: %w", err)
	}
	if cfg.topK < 1 || cfg.topK > request.MaxTopK {
		return nil, fmt.Errorf("vibematch: %w", domain.ErrInvalidTopK)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	c := &Client{topK: cfg.topK, th: th, obs: obs}
	backend, err := c.openBackend(ctx, cfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.wire(ctx, cfg, backend)
	return c, nil
}

func (c *Client) openBackend(ctx context.Context, cfg *clientConfig) (embcache.Backend, error) {
	switch cfg.cacheDriver {
	case "memory":
		return embcache.MemoryBackend{}, nil
	case "file":
		if cfg.cachePath == "" {
			return nil, errors.New("vibematch: file cache path required")
		}
		return embcache.NewFileBackend(cfg.cachePath), nil
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.addrs, Password: cfg.password})
		if err != nil {
			return c.memoryFallback(cfg.cacheDriver, err), nil
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return c.memoryFallback(cfg.cacheDriver, err), nil
		}
		c.closers = append(c.closers, s.Close)
		key := cfg.cacheKey
		if key == "" {
			key = defaultCacheKey
		}
		return embcache.NewRedisBackend(s, key), nil
	case "badger":
		s, err := dbBadger.Open(cfg.cachePath, false, nil)
		if err != nil {
			return c.memoryFallback(cfg.cacheDriver, err), nil
		}
		c.closers = append(c.closers, func() { _ = s.Close() })
		return embcache.NewBadgerBackend(s, defaultCacheKey+":"), nil
	}
	return nil, fmt.Errorf("vibematch: unknown cache driver %q", cfg.cacheDriver)
}

// memoryFallback keeps the client usable when the configured store cannot be reached.
func (c *Client) memoryFallback(driver string, err error) embcache.Backend {
	if c.obs.logger != nil {
		c.obs.logger.Warn("cache store unavailable, running memory-only", "driver", driver, "error", err)
	}
	return embcache.MemoryBackend{}
}

func (c *Client) wire(ctx context.Context, cfg *clientConfig, backend embcache.Backend) {
	c.cache = embcache.New(backend, nil, zap.NewNop())
	c.cache.Open(ctx)

	// Nil interface, not a typed nil, when no embedder is configured.
	var remote domain.Embedder
	if cfg.embedder != nil {
		remote = newEmbedderAdapter(cfg.embedder)
	}
	provider := embeddinguc.NewProvider(
		remote, c.cache, synthetic.New(cfg.dimensions), cfg.embedTimeout, zap.NewNop(),
	)

	c.searchSvc = searchuc.New(provider, searchuc.Options{
		MaxQueryLength: cfg.maxQueryLength,
		Hints:          cfg.hints,
	}, zap.NewNop())
	c.healthSvc = healthuc.New(c.cache, nil, func() healthuc.CorpusReporter {
		if corpus := c.corpus.Load(); corpus != nil {
			return corpus
		}
		return nil
	})
	c.usageSvc = usageuc.New(nil, c.cache, provider.RemoteEnabled())
}

// Close flushes the cache and releases storage connections.
func (c *Client) Close() {
	if c.cache != nil {
		_ = c.cache.Flush(context.Background())
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Ping checks the cache backend.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.cache.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Load embeds items and makes them the searched catalog. On error the
// previous catalog stays in place.
func (c *Client) Load(ctx context.Context, items []Item) (err error) {
	start := time.Now()
	degraded := false
	defer func() { c.obs.record("load", start, err, degraded) }()

	corpus, err := c.searchSvc.LoadCorpus(ctx, toDomainItems(items))
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	degraded = corpus.Degraded()
	c.corpus.Store(corpus)
	return nil
}

// Items returns the loaded catalog, or nil before Load.
func (c *Client) Items() []Item {
	corpus := c.corpus.Load()
	if corpus == nil {
		return nil
	}
	return fromDomainItems(corpus.Items())
}

// Vibes returns the sorted distinct tags of the loaded catalog.
func (c *Client) Vibes() []string {
	corpus := c.corpus.Load()
	if corpus == nil {
		return nil
	}
	return catalog.Vibes(corpus.Items())
}

// DefaultCatalog returns the built-in fashion catalog.
func DefaultCatalog() ([]Item, error) {
	items, err := catalog.Default()
	if err != nil {
		return nil, fmt.Errorf("vibematch: %w", err)
	}
	return fromDomainItems(items), nil
}

// embedderAdapter wraps the public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

// batchEmbedderAdapter also forwards batch calls when the public embedder batches.
type batchEmbedderAdapter struct {
	embedderAdapter
	batch BatchEmbedder
}

func newEmbedderAdapter(e Embedder) domain.Embedder {
	a := embedderAdapter{inner: e}
	if b, ok := e.(BatchEmbedder); ok {
		return &batchEmbedderAdapter{embedderAdapter: a, batch: b}
	}
	return &a
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

func (a *batchEmbedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	r, err := a.batch.BatchEmbed(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   r.Embeddings,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}
