package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vibematch/internal/domain"
	"github.com/kailas-cloud/vibematch/internal/domain/synthetic"
	"github.com/kailas-cloud/vibematch/internal/domain/text"
	"github.com/kailas-cloud/vibematch/internal/metrics"
)

// VectorCache is the cache contract of the provider. Keys are normalized text.
type VectorCache interface {
	Lookup(normalized string) (domain.Vector, bool)
	Store(normalized string, v domain.Vector)
	Batch(ctx context.Context, fn func() error) error
}

// Fallback reasons, used as metric labels and in status text.
const (
	reasonDisabled = "disabled"
	reasonQuota    = "quota"
	reasonError    = "error"
	reasonMismatch = "mismatch"
)

// Provider turns texts into source-tagged vectors. Cached vectors are reused;
// everything else goes to the remote embedder in one batch, and any remote
// failure falls back to the synthetic generator. EmbedMany never fails.
type Provider struct {
	remote  domain.BatchEmbedder
	synth   *synthetic.Generator
	cache   VectorCache
	timeout time.Duration
	logger  *zap.Logger
}

// NewProvider creates a provider. A nil remote runs fully offline; timeout <= 0
// leaves the remote call bounded only by ctx.
func NewProvider(
	remote domain.Embedder, cache VectorCache, synth *synthetic.Generator,
	timeout time.Duration, logger *zap.Logger,
) *Provider {
	p := &Provider{
		synth:   synth,
		cache:   cache,
		timeout: timeout,
		logger:  logger,
	}
	if remote != nil {
		p.remote = domain.AsBatchEmbedder(remote)
	}
	if p.synth == nil {
		p.synth = synthetic.New(0)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p
}

// RemoteEnabled reports whether a remote embedder is configured.
func (p *Provider) RemoteEnabled() bool { return p.remote != nil }

// EmbedMany returns one vector per text in input order. Texts are normalized
// first; duplicates are embedded once. Newly computed vectors are written
// through to the cache before returning.
func (p *Provider) EmbedMany(ctx context.Context, texts []string) domain.EmbeddingBatch {
	out := domain.EmbeddingBatch{Vectors: make([]domain.Vector, len(texts))}
	if len(texts) == 0 {
		out.Status = "No texts to embed"
		return out
	}

	var reason string
	err := p.cache.Batch(ctx, func() error {
		pending := make(map[string][]int)
		var order []string
		for i, t := range texts {
			n := text.Normalize(t)
			if v, ok := p.cache.Lookup(n); ok {
				out.Vectors[i] = v
				out.Cached++
				continue
			}
			if _, seen := pending[n]; !seen {
				order = append(order, n)
			}
			pending[n] = append(pending[n], i)
		}
		if len(order) == 0 {
			return nil
		}

		var vecs []domain.Vector
		vecs, reason = p.embedUncached(ctx, order)
		for j, n := range order {
			p.cache.Store(n, vecs[j])
			for _, i := range pending[n] {
				out.Vectors[i] = vecs[j]
				if vecs[j].Source == domain.SourceRemote {
					out.Remote++
				} else {
					out.Synthetic++
				}
			}
		}
		return nil
	})
	if err != nil {
		p.logger.Warn("Embedding cache flush failed", zap.Error(err))
	}

	for _, v := range out.Vectors {
		if v.Source == domain.SourceSynthetic {
			out.Degraded = true
			break
		}
	}
	if out.Degraded {
		domain.UsageFromContext(ctx).MarkSynthetic()
	}
	out.Status = statusText(out, reason)

	metrics.EmbeddingVectorsTotal.WithLabelValues("cached").Add(float64(out.Cached))
	metrics.EmbeddingVectorsTotal.WithLabelValues("remote").Add(float64(out.Remote))
	metrics.EmbeddingVectorsTotal.WithLabelValues("synthetic").Add(float64(out.Synthetic))

	p.logger.Debug("Embedded batch",
		zap.Int("texts", len(texts)),
		zap.Int("cached", out.Cached),
		zap.Int("remote", out.Remote),
		zap.Int("synthetic", out.Synthetic),
		zap.Bool("degraded", out.Degraded),
	)
	return out
}

// Synthetic generates uncached synthetic vectors for normalized texts.
func (p *Provider) Synthetic(normalized []string) []domain.Vector {
	raw := p.synth.Vectors(normalized)
	out := make([]domain.Vector, len(raw))
	for i, v := range raw {
		out[i] = domain.Vector{Values: v, Source: domain.SourceSynthetic}
	}
	return out
}

// embedUncached tries the remote once and falls back to synthetic vectors.
// The returned reason is empty when the remote served the batch.
func (p *Provider) embedUncached(ctx context.Context, normalized []string) ([]domain.Vector, string) {
	if p.remote == nil {
		return p.fallback(normalized, reasonDisabled, domain.ErrRemoteDisabled)
	}

	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	res, err := p.remote.BatchEmbed(callCtx, normalized)
	if err != nil {
		reason := reasonError
		if errors.Is(err, domain.ErrEmbeddingQuotaExceeded) {
			reason = reasonQuota
		}
		return p.fallback(normalized, reason, err)
	}
	if len(res.Embeddings) != len(normalized) {
		return p.fallback(normalized, reasonMismatch,
			fmt.Errorf("remote returned %d vectors for %d texts", len(res.Embeddings), len(normalized)))
	}
	dim := len(res.Embeddings[0])
	for _, e := range res.Embeddings {
		if dim == 0 || len(e) != dim {
			return p.fallback(normalized, reasonMismatch,
				fmt.Errorf("remote returned vectors of inconsistent dimension"))
		}
	}

	out := make([]domain.Vector, len(res.Embeddings))
	for i, e := range res.Embeddings {
		out[i] = domain.Vector{Values: e, Source: domain.SourceRemote}
	}
	return out, ""
}

func (p *Provider) fallback(normalized []string, reason string, cause error) ([]domain.Vector, string) {
	metrics.SyntheticFallbackTotal.WithLabelValues(reason).Inc()
	if reason == reasonDisabled {
		p.logger.Debug("Remote embedding disabled, generating synthetic vectors",
			zap.Int("texts", len(normalized)))
	} else {
		p.logger.Warn("Remote embedding failed, falling back to synthetic vectors",
			zap.String("reason", reason),
			zap.Int("texts", len(normalized)),
			zap.Error(cause),
		)
	}
	return p.Synthetic(normalized), reason
}

// statusText renders a one-line summary of how a batch was served.
func statusText(b domain.EmbeddingBatch, reason string) string {
	var parts []string
	if b.Remote > 0 {
		parts = append(parts, fmt.Sprintf("Embedded %d texts using remote API", b.Remote))
	}
	if b.Synthetic > 0 {
		why := "remote unavailable"
		switch reason {
		case reasonDisabled:
			why = "no API key set"
		case reasonQuota:
			why = "embedding budget exhausted"
		}
		parts = append(parts, fmt.Sprintf("Generated %d synthetic embeddings (%s)", b.Synthetic, why))
	}
	if b.Cached > 0 {
		parts = append(parts, fmt.Sprintf("Using %d cached embeddings", b.Cached))
	}
	return strings.Join(parts, "; ")
}
