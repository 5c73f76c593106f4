package vibematch

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	cacheDriver string // "memory" (default), "file", "redis", "badger"
	cachePath   string
	cacheKey    string
	addrs       []string
	password    string

	embedder     Embedder
	dimensions   int
	embedTimeout time.Duration

	topK           int
	fallback       float64
	goodHit        float64
	maxQueryLength int
	hints          []string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithFileCache persists embeddings to a JSON file at path.
func WithFileCache(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "file"
		c.cachePath = path
	})
}

// WithRedisCache stores embeddings in one Redis hash under key.
// An empty key selects "vibematch:emb_cache".
func WithRedisCache(addr, password, key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "redis"
		c.addrs = []string{addr}
		c.password = password
		c.cacheKey = key
	})
}

// WithBadgerCache stores embeddings in an embedded Badger database at dir.
func WithBadgerCache(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "badger"
		c.cachePath = dir
	})
}

// WithEmbedder sets the remote embedding provider.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithDimensions sets the synthetic vector length. Match it to the remote
// model so cached vectors from both sources stay comparable. Default: 1536.
func WithDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.dimensions = dim
	})
}

// WithEmbedTimeout bounds each remote embedding call. Default: 10s.
func WithEmbedTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedTimeout = d
	})
}

// WithDefaultTopK sets the number of matches returned when a search does not
// pass WithLimit. Default: 3, maximum 100.
func WithDefaultTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithDefaultThresholds sets the classifier thresholds in normalized score
// space. Defaults: 0.35 and 0.7.
func WithDefaultThresholds(fallback, goodHit float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.fallback = fallback
		c.goodHit = goodHit
	})
}

// WithMaxQueryLength bounds normalized queries in characters. Default: 512.
func WithMaxQueryLength(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxQueryLength = n
	})
}

// WithHints replaces the suggestions returned when nothing matches.
func WithHints(hints ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.hints = hints
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
