package request

import (
	"fmt"
	"unicode/utf8"

	"github.com/kailas-cloud/vibematch/internal/domain"
	"github.com/kailas-cloud/vibematch/internal/domain/match"
	"github.com/kailas-cloud/vibematch/internal/domain/text"
)

// Search parameter limits.
const (
	// DefaultMaxQueryLength bounds the normalized query length in characters.
	DefaultMaxQueryLength = 512
	DefaultTopK           = 3
	MaxTopK               = 100
)

// Request is a validated search query.
type Request struct {
	query      string
	tokens     []string
	topK       int
	thresholds match.Thresholds
}

// New normalizes and validates a query. maxLen <= 0 selects DefaultMaxQueryLength.
// Every returned error wraps domain.ErrInvalidInput.
func New(query string, topK int, thresholds match.Thresholds, maxLen int) (Request, error) {
	if maxLen <= 0 {
		maxLen = DefaultMaxQueryLength
	}

	normalized := text.Normalize(query)
	if normalized == "" {
		return Request{}, domain.ErrEmptyQuery
	}
	if n := utf8.RuneCountInString(normalized); n > maxLen {
		return Request{}, fmt.Errorf("%w (%d chars, max %d)", domain.ErrQueryTooLong, n, maxLen)
	}
	tokens := text.Tokens(normalized)
	if len(tokens) < domain.MinQueryTokens {
		return Request{}, fmt.Errorf("%w (need at least %d words)", domain.ErrQueryTooShort, domain.MinQueryTokens)
	}
	if topK < 1 || topK > MaxTopK {
		return Request{}, fmt.Errorf("%w, got %d", domain.ErrInvalidTopK, topK)
	}
	if err := thresholds.Validate(); err != nil {
		return Request{}, err
	}

	return Request{
		query:      normalized,
		tokens:     tokens,
		topK:       topK,
		thresholds: thresholds,
	}, nil
}

// Query returns the normalized query text.
func (r *Request) Query() string { return r.query }

// Tokens returns the whitespace-separated words of the query.
func (r *Request) Tokens() []string { return r.tokens }

// TopK returns the number of matches to return.
func (r *Request) TopK() int { return r.topK }

// Thresholds returns the classifier thresholds.
func (r *Request) Thresholds() match.Thresholds { return r.thresholds }
