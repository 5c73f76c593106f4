package health

import "context"

// CachePinger checks the embedding cache backend.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks remote embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CorpusReporter reports whether a corpus is loaded and searchable.
type CorpusReporter interface {
	Len() int
}
