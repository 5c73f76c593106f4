package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vibematch/internal/catalog"
	"github.com/kailas-cloud/vibematch/internal/config"
	dbBadger "github.com/kailas-cloud/vibematch/internal/db/badger"
	dbRedis "github.com/kailas-cloud/vibematch/internal/db/redis"
	"github.com/kailas-cloud/vibematch/internal/domain"
	"github.com/kailas-cloud/vibematch/internal/domain/synthetic"
	"github.com/kailas-cloud/vibematch/internal/metrics"
	budgetrepo "github.com/kailas-cloud/vibematch/internal/repository/budget"
	"github.com/kailas-cloud/vibematch/internal/repository/embcache"
	lcEmb "github.com/kailas-cloud/vibematch/internal/transport/langchain"
	openaiEmb "github.com/kailas-cloud/vibematch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/vibematch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/vibematch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/vibematch/internal/usecase/search"
	usageuc "github.com/kailas-cloud/vibematch/internal/usecase/usage"
)

// app is the assembled engine shared by every command.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	cache    *embcache.Cache
	provider *embeddinguc.Provider
	search   *searchuc.Service
	health   *healthuc.Service
	usage    *usageuc.Service
	corpus   atomic.Pointer[searchuc.Corpus]
	closers  []func()
}

// Close flushes the cache and releases storage connections in reverse order.
func (a *app) Close() {
	if a.cache != nil {
		if err := a.cache.Flush(context.Background()); err != nil {
			a.logger.Warn("Final cache flush failed", zap.Error(err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApp is the composition root: storage, cache, remote embedder chain,
// provider and search service. The catalog is not loaded here.
func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	a := &app{cfg: cfg, logger: logger}

	backend, budgetStore, err := a.openCacheBackend(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.cache = embcache.New(backend, metrics.EmbeddingCacheTotal, logger.Named("embcache"))
	a.cache.Open(ctx)

	remote, checker, budget, err := buildRemote(ctx, cfg.Embedding, budgetStore, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	timeout := time.Duration(cfg.Embedding.TimeoutSec) * time.Second
	a.provider = embeddinguc.NewProvider(
		remote, a.cache, synthetic.New(cfg.Embedding.Dimensions), timeout, logger.Named("embedding"),
	)
	a.search = searchuc.New(a.provider, searchuc.Options{
		MaxQueryLength: cfg.Search.MaxQueryLength,
		Hints:          cfg.Search.FallbackHints,
	}, logger.Named("search"))
	a.health = healthuc.New(a.cache, checker, func() healthuc.CorpusReporter {
		// A typed nil pointer must not reach the interface.
		if c := a.corpus.Load(); c != nil {
			return c
		}
		return nil
	})

	// Pass a nil interface, not a typed nil pointer, when no budget is set.
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetReader = budget
	}
	a.usage = usageuc.New(budgetReader, a.cache, a.provider.RemoteEnabled())

	logger.Info("Engine assembled",
		zap.String("cache", a.cache.Backend()),
		zap.Bool("cache_persistent", a.cache.Persistent()),
		zap.Int("cache_entries", a.cache.Len()),
		zap.String("embedding_driver", cfg.Embedding.Driver),
		zap.Bool("remote_enabled", a.provider.RemoteEnabled()),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)
	return a, nil
}

// loadCatalog embeds the configured catalog and publishes it as the served corpus.
func (a *app) loadCatalog(ctx context.Context) (*searchuc.Corpus, error) {
	items, err := catalog.Load(a.cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	c, err := a.search.LoadCorpus(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("embed catalog: %w", err)
	}
	a.corpus.Store(c)
	return c, nil
}

// openCacheBackend opens the storage behind the embedding cache. The redis
// store also persists budget counters; other drivers return a nil budget store.
// An unreachable store degrades to a memory-only backend.
func (a *app) openCacheBackend(ctx context.Context) (embcache.Backend, embeddinguc.BudgetStore, error) {
	cc := a.cfg.Cache
	switch cc.Driver {
	case config.CacheFile:
		return embcache.NewFileBackend(cc.Path), nil, nil

	case config.CacheRedis:
		store, err := dbRedis.NewStore(dbRedis.Config{Addrs: cc.Addrs, Password: cc.Password})
		if err != nil {
			return a.memoryFallback(cc.Driver, fmt.Errorf("create redis store: %w", err)), nil, nil
		}
		if err := store.WaitForReady(ctx, time.Duration(cc.ReadinessTimeout)*time.Second); err != nil {
			store.Close()
			return a.memoryFallback(cc.Driver, fmt.Errorf("redis not ready: %w", err)), nil, nil
		}
		a.closers = append(a.closers, store.Close)
		a.logger.Info("Connected to redis", zap.Strings("addrs", cc.Addrs))
		return embcache.NewRedisBackend(store, cc.Key), budgetrepo.New(store, 0, 0), nil

	case config.CacheBadger:
		store, err := dbBadger.Open(cc.Path, false, a.logger)
		if err != nil {
			return a.memoryFallback(cc.Driver, fmt.Errorf("open badger: %w", err)), nil, nil
		}
		a.closers = append(a.closers, func() {
			if err := store.Close(); err != nil {
				a.logger.Warn("Badger close failed", zap.Error(err))
			}
		})
		return embcache.NewBadgerBackend(store, cc.Key+":"), nil, nil

	case config.CacheMemory:
		return embcache.MemoryBackend{}, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown cache driver %q", cc.Driver)
}

func (a *app) memoryFallback(driver string, err error) embcache.Backend {
	a.logger.Warn("Cache store unavailable, running memory-only",
		zap.String("driver", driver),
		zap.Error(err),
	)
	return embcache.MemoryBackend{}
}

// buildRemote assembles the remote decorator chain: transport -> Instrumented.
// It returns a nil embedder when the driver runs offline and a nil tracker
// when no budget is configured.
func buildRemote(
	ctx context.Context,
	ec config.EmbeddingConfig,
	budgetStore embeddinguc.BudgetStore,
	logger *zap.Logger,
) (domain.Embedder, healthuc.EmbeddingChecker, *embeddinguc.BudgetTracker, error) {
	if !ec.RemoteEnabled() {
		logger.Info("Remote embedding disabled, using synthetic vectors", zap.String("driver", ec.Driver))
		return nil, nil, nil, nil
	}

	var (
		base    domain.Embedder
		checker healthuc.EmbeddingChecker
	)
	switch ec.Driver {
	case config.DriverOpenAI:
		e := openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     ec.APIKey,
			BaseURL:    ec.BaseURL,
			Model:      ec.Model,
			Dimensions: ec.RequestDimensions,
			Provider:   ec.Driver,
			Logger:     logger.Named("openai"),
		})
		base, checker = e, e
	case config.DriverLangchain:
		e, err := lcEmb.NewEmbedder(&lcEmb.Config{
			APIKey:   ec.APIKey,
			BaseURL:  ec.BaseURL,
			Model:    ec.Model,
			Provider: ec.Driver,
			Logger:   logger.Named("langchain"),
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create langchain embedder: %w", err)
		}
		base = e
	default:
		return nil, nil, nil, fmt.Errorf("unknown embedding driver %q", ec.Driver)
	}

	// Pass a nil interface, not a typed nil pointer, when no budget is set.
	var (
		budget  embeddinguc.BudgetChecker
		tracker *embeddinguc.BudgetTracker
	)
	bc := ec.Budget
	if bc.DailyTokenLimit > 0 || bc.MonthlyTokenLimit > 0 {
		action, err := embeddinguc.ParseBudgetAction(bc.Action)
		if err != nil {
			return nil, nil, nil, err
		}
		tracker = embeddinguc.NewBudgetTracker(
			ec.Driver, bc.DailyTokenLimit, bc.MonthlyTokenLimit, action, logger.Named("budget"),
		)
		if budgetStore != nil {
			tracker.WithStore(ctx, budgetStore)
		}
		budget = tracker
	}

	remote := embeddinguc.NewInstrumentedEmbedder(base, ec.Driver, ec.Model, budget, logger).
		WithMaxBatch(ec.MaxBatch)
	logger.Info("Remote embedder created",
		zap.String("driver", ec.Driver),
		zap.String("model", ec.Model),
		zap.Int("max_batch", ec.MaxBatch),
		zap.Bool("budget", budget != nil),
	)
	return remote, checker, tracker, nil
}
