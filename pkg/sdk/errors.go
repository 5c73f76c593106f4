package vibematch

import "github.com/kailas-cloud/vibematch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidInput           = domain.ErrInvalidInput
	ErrEmptyQuery             = domain.ErrEmptyQuery
	ErrQueryTooShort          = domain.ErrQueryTooShort
	ErrQueryTooLong           = domain.ErrQueryTooLong
	ErrInvalidTopK            = domain.ErrInvalidTopK
	ErrInvalidThresholds      = domain.ErrInvalidThresholds
	ErrInvalidCatalog         = domain.ErrInvalidCatalog
	ErrCorpusNotLoaded        = domain.ErrCorpusNotLoaded
	ErrEmbeddingQuotaExceeded = domain.ErrEmbeddingQuotaExceeded
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
)
