package embcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/kailas-cloud/vibematch/internal/domain"
)

// Entry is one cached embedding. Entries are never mutated once stored; a
// newer entry for the same key replaces the old one.
type Entry struct {
	Vector    []float32     `json:"vector"`
	Dimension int           `json:"dimension"`
	Source    domain.Source `json:"source"`
	CreatedAt time.Time     `json:"createdAt"`
	// Text is the normalized input, kept so persisted caches stay readable.
	Text string `json:"text,omitempty"`
}

// AsVector returns the entry as a source-tagged vector.
func (e Entry) AsVector() domain.Vector {
	return domain.Vector{Values: e.Vector, Source: e.Source}
}

// Validate checks an entry read from a backend.
func (e Entry) Validate() error {
	if !e.Source.IsValid() {
		return fmt.Errorf("unknown source %q", e.Source)
	}
	if e.Dimension <= 0 || len(e.Vector) != e.Dimension {
		return fmt.Errorf("dimension %d does not match vector length %d", e.Dimension, len(e.Vector))
	}
	return nil
}

// Key derives the cache key of normalized text.
func Key(normalized string) string {
	h := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(h[:])
}
