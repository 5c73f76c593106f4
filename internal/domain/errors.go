package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is the parent of every caller input error. Input errors are
// reported synchronously and are never retried.
var ErrInvalidInput = errors.New("invalid input")

var (
	// ErrEmptyQuery signals a query that normalizes to nothing.
	ErrEmptyQuery = fmt.Errorf("%w: empty query", ErrInvalidInput)
	// ErrQueryTooShort signals a query with fewer than MinQueryTokens words.
	ErrQueryTooShort = fmt.Errorf("%w: query too short", ErrInvalidInput)
	// ErrQueryTooLong signals a query over the configured character limit.
	ErrQueryTooLong = fmt.Errorf("%w: query too long", ErrInvalidInput)
	// ErrInvalidTopK signals topK outside [1, 100].
	ErrInvalidTopK = fmt.Errorf("%w: top_k must be between 1 and 100", ErrInvalidInput)
	// ErrInvalidThresholds signals thresholds outside 0 <= fallback <= good_hit <= 1.
	ErrInvalidThresholds = fmt.Errorf("%w: invalid thresholds", ErrInvalidInput)
	// ErrInvalidCatalog signals a catalog with missing or duplicate item IDs.
	ErrInvalidCatalog = fmt.Errorf("%w: invalid catalog", ErrInvalidInput)
)

var (
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrRemoteDisabled signals that no remote embedding provider is configured.
	ErrRemoteDisabled = errors.New("remote embedding disabled")
	// ErrCorpusNotLoaded signals a search against a nil or empty-handed corpus.
	ErrCorpusNotLoaded = errors.New("corpus not loaded")
)
