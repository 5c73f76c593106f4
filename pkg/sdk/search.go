package vibematch

import (
	"context"
	"time"
)

// SearchOption overrides client defaults for one search.
type SearchOption func(*searchParams)

type searchParams struct {
	topK     int
	fallback float64
	goodHit  float64
}

// WithLimit sets the number of matches returned, between 1 and 100.
func WithLimit(k int) SearchOption {
	return func(p *searchParams) { p.topK = k }
}

// WithThresholds sets both classifier thresholds in normalized score space.
func WithThresholds(fallback, goodHit float64) SearchOption {
	return func(p *searchParams) {
		p.fallback = fallback
		p.goodHit = goodHit
	}
}

// Search ranks the loaded catalog against query. Input errors wrap
// ErrInvalidInput; searching before Load returns ErrCorpusNotLoaded. A remote
// embedder failure is not an error: the result is Degraded instead.
func (c *Client) Search(ctx context.Context, query string, opts ...SearchOption) (res Result, err error) {
	start := time.Now()
	defer func() { c.obs.record("search", start, err, res.Degraded) }()

	p := searchParams{topK: c.topK, fallback: c.th.Fallback, goodHit: c.th.GoodHit}
	for _, o := range opts {
		o(&p)
	}

	th := c.th
	th.Fallback, th.GoodHit = p.fallback, p.goodHit
	r, err := c.searchSvc.Search(ctx, query, c.corpus.Load(), p.topK, th)
	if err != nil {
		return Result{}, err
	}
	return fromDomainResult(r), nil
}
