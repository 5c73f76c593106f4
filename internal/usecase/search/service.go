package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vibematch/internal/domain"
	"github.com/kailas-cloud/vibematch/internal/domain/match"
	"github.com/kailas-cloud/vibematch/internal/domain/search/request"
	"github.com/kailas-cloud/vibematch/internal/domain/text"
	"github.com/kailas-cloud/vibematch/internal/metrics"
)

// DefaultHints are suggested to the user when nothing in the catalog matches.
var DefaultHints = []string{
	"minimal, streetwear, sustainable",
	"boho, earthy, festival vibes",
	"cozy, soft, loungewear comfort",
}

// Options configures a Service.
type Options struct {
	// MaxQueryLength bounds the normalized query in characters; 0 selects the default.
	MaxQueryLength int
	// Hints replace DefaultHints when non-empty.
	Hints []string
}

// Service embeds catalogs and answers free-text queries against them.
type Service struct {
	embed  EmbeddingProvider
	maxLen int
	hints  []string
	logger *zap.Logger
}

// New creates a search service.
func New(embed EmbeddingProvider, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	hints := opts.Hints
	if len(hints) == 0 {
		hints = DefaultHints
	}
	return &Service{
		embed:  embed,
		maxLen: opts.MaxQueryLength,
		hints:  append([]string(nil), hints...),
		logger: logger,
	}
}

// LoadCorpus validates items and embeds their normalized descriptions in one batch.
func (s *Service) LoadCorpus(ctx context.Context, items []domain.CatalogItem) (*Corpus, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items", domain.ErrInvalidCatalog)
	}

	c := &Corpus{
		items:      append([]domain.CatalogItem(nil), items...),
		byID:       make(map[string]int, len(items)),
		normalized: make([]string, len(items)),
	}
	for i, it := range items {
		id := strings.TrimSpace(it.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: item %d has an empty id", domain.ErrInvalidCatalog, i)
		}
		if _, dup := c.byID[id]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", domain.ErrInvalidCatalog, id)
		}
		norm := text.Normalize(it.Description)
		if norm == "" {
			return nil, fmt.Errorf("%w: item %q has an empty description", domain.ErrInvalidCatalog, id)
		}
		c.items[i].ID = id
		c.byID[id] = i
		c.normalized[i] = norm
	}

	batch := s.embed.EmbedMany(ctx, c.normalized)
	c.vectors = make([]domain.CorpusVector, len(items))
	for i, v := range batch.Vectors {
		c.vectors[i] = domain.CorpusVector{ItemID: c.items[i].ID, Vector: v}
	}
	c.source = dominantSource(c.vectors)
	c.degraded = batch.Degraded
	c.status = batch.Status

	metrics.CorpusItems.Set(float64(len(items)))
	s.logger.Info("Corpus loaded",
		zap.Int("items", len(items)),
		zap.String("source", string(c.source)),
		zap.Bool("degraded", c.degraded),
		zap.String("status", c.status),
	)
	return c, nil
}

// Search validates query, embeds it and ranks corpus against it. Input errors
// wrap domain.ErrInvalidInput and are returned before anything is embedded.
func (s *Service) Search(
	ctx context.Context, query string, corpus *Corpus, topK int, thresholds match.Thresholds,
) (match.Result, error) {
	req, err := request.New(query, topK, thresholds, s.maxLen)
	if err != nil {
		return match.Result{}, err
	}
	if corpus.Len() == 0 {
		return match.Result{}, domain.ErrCorpusNotLoaded
	}

	batch := s.embed.EmbedMany(ctx, []string{req.Query()})
	qv := batch.Vectors[0]
	degraded := batch.Degraded || corpus.degraded
	status := batch.Status

	vectors := corpus.vectors
	if qv.Source != corpus.source {
		// Rank in synthetic space; the cached corpus vectors stay untouched.
		degraded = true
		if qv.Source != domain.SourceSynthetic {
			qv = s.embed.Synthetic([]string{req.Query()})[0]
		}
		if corpus.source != domain.SourceSynthetic {
			vectors = s.reproject(corpus)
			status += "; corpus re-projected to synthetic space"
		}
		s.logger.Warn("Query and corpus embedded in different spaces, ranking synthetically",
			zap.String("corpus_source", string(corpus.source)),
		)
	}

	ranking, err := Rank(qv, vectors, req.TopK())
	if err != nil {
		return match.Result{}, fmt.Errorf("rank: %w", err)
	}
	if ranking.Excluded > 0 {
		metrics.RankingExcludedTotal.Add(float64(ranking.Excluded))
		s.logger.Warn("Corpus vectors excluded from ranking",
			zap.Int("excluded", ranking.Excluded),
			zap.Int("dim", qv.Dim()),
			zap.String("source", string(qv.Source)),
		)
	}

	for i := range ranking.Matches {
		m := &ranking.Matches[i]
		if it, ok := corpus.item(m.ItemID); ok {
			m.Name = it.Name
			m.Description = it.Description
			m.Tags = append([]string(nil), it.Tags...)
		}
	}

	verdict := match.Classify(ranking.Matches, req.Thresholds(), s.hints)
	res := match.Result{
		Query:    req.Query(),
		Matches:  ranking.Matches,
		Verdict:  verdict,
		Summary:  match.Summarize(ranking.Matches, req.Thresholds().GoodHit),
		Source:   qv.Source,
		Degraded: degraded,
		Excluded: ranking.Excluded,
		Status:   status,
	}

	metrics.SearchVerdictsTotal.WithLabelValues(string(verdict.Label), strconv.FormatBool(degraded)).Inc()
	if len(ranking.Matches) > 0 {
		metrics.SearchTopScore.Observe(verdict.TopScore)
	}
	s.logger.Debug("Search completed",
		zap.String("verdict", string(verdict.Label)),
		zap.Float64("top_score", verdict.TopScore),
		zap.Int("matches", len(ranking.Matches)),
		zap.Bool("degraded", degraded),
	)
	return res, nil
}

// reproject builds synthetic vectors for every corpus item.
func (s *Service) reproject(c *Corpus) []domain.CorpusVector {
	synth := s.embed.Synthetic(c.normalized)
	out := make([]domain.CorpusVector, len(synth))
	for i, v := range synth {
		out[i] = domain.CorpusVector{ItemID: c.items[i].ID, Vector: v}
	}
	return out
}
