package search

import (
	"context"

	"github.com/kailas-cloud/vibematch/internal/domain"
)

// EmbeddingProvider turns texts into source-tagged vectors.
type EmbeddingProvider interface {
	// EmbedMany never fails; degradation is reported on the batch.
	EmbedMany(ctx context.Context, texts []string) domain.EmbeddingBatch
	// Synthetic generates uncached synthetic vectors for normalized texts.
	Synthetic(normalized []string) []domain.Vector
}
