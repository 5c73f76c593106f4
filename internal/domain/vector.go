package domain

import "fmt"

// Source tags where a vector came from. Vectors from different sources live in
// different spaces and must never be compared with each other.
type Source string

const (
	// SourceRemote marks vectors produced by the external embedding service.
	SourceRemote Source = "remote"
	// SourceSynthetic marks vectors produced by the deterministic offline generator.
	SourceSynthetic Source = "synthetic"
)

// IsValid reports whether s is a known source.
func (s Source) IsValid() bool {
	return s == SourceRemote || s == SourceSynthetic
}

// ParseSource converts a persisted source tag.
func ParseSource(s string) (Source, error) {
	src := Source(s)
	if !src.IsValid() {
		return "", fmt.Errorf("unknown embedding source %q", s)
	}
	return src, nil
}

// Vector is an embedding together with its generation source.
type Vector struct {
	Values []float32
	Source Source
}

// Dim returns the vector dimensionality.
func (v Vector) Dim() int { return len(v.Values) }

// Comparable reports whether v and o share dimensionality and source.
func (v Vector) Comparable(o Vector) bool {
	return v.Source == o.Source && len(v.Values) == len(o.Values)
}

// CorpusVector is a catalog item's embedding, kept in catalog order.
type CorpusVector struct {
	ItemID string
	Vector Vector
}

// EmbeddingBatch is the order-preserving output of one EmbedMany call.
type EmbeddingBatch struct {
	Vectors []Vector
	// Degraded is set when any vector in the batch is synthetic, whether generated
	// now or served from the cache.
	Degraded bool
	// Status is a short human-readable description of how the batch was served.
	Status    string
	Cached    int
	Remote    int
	Synthetic int
}
