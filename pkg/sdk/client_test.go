package vibematch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// letterEmbedder embeds text as a 26-dimensional letter histogram.
type letterEmbedder struct {
	calls      atomic.Int32
	batchCalls atomic.Int32
	err        error
}

func letters(text string) []float32 {
	v := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v
}

func (e *letterEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	e.calls.Add(1)
	if e.err != nil {
		return EmbeddingResult{}, e.err
	}
	return EmbeddingResult{Embedding: letters(text), TotalTokens: len(strings.Fields(text))}, nil
}

// batchLetterEmbedder adds a native batch endpoint.
type batchLetterEmbedder struct {
	letterEmbedder
}

func (e *batchLetterEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	e.batchCalls.Add(1)
	if e.err != nil {
		return BatchEmbeddingResult{}, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = letters(t)
	}
	return BatchEmbeddingResult{Embeddings: out, TotalTokens: len(texts)}, nil
}

func newLoaded(t *testing.T, opts ...Option) *Client {
	t.Helper()
	c, err := New(context.Background(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)

	items, err := DefaultCatalog()
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Load(context.Background(), items); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"thresholds", []Option{WithDefaultThresholds(0.8, 0.2)}},
		{"top k", []Option{WithDefaultTopK(0)}},
		{"top k above max", []Option{WithDefaultTopK(101)}},
		{"file cache without path", []Option{WithFileCache("")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(context.Background(), tt.opts...); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSearch_BeforeLoad(t *testing.T) {
	c, err := New(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	_, err = c.Search(context.Background(), "energetic urban chic")
	if !errors.Is(err, ErrCorpusNotLoaded) {
		t.Fatalf("err = %v, want ErrCorpusNotLoaded", err)
	}
	if c.Items() != nil || c.Vibes() != nil {
		t.Error("no catalog should be visible before Load")
	}
}

func TestSearch_Offline(t *testing.T) {
	c := newLoaded(t, WithDimensions(64))

	res, err := c.Search(context.Background(), "  Energetic\tURBAN   chic ", WithLimit(4))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Query != "energetic urban chic" {
		t.Errorf("query = %q", res.Query)
	}
	if len(res.Matches) != 4 || res.Summary.Total != 4 {
		t.Fatalf("got %d matches", len(res.Matches))
	}
	if !res.Degraded || res.Source != SourceSynthetic {
		t.Errorf("offline search should be degraded synthetic, got %+v", res)
	}
	for i, m := range res.Matches {
		if m.Rank != i+1 || m.Score < 0 || m.Score > 1 || m.Name == "" {
			t.Errorf("match %d = %+v", i, m)
		}
	}
	if res.Verdict.Fallback != 0.35 || res.Verdict.GoodHit != 0.7 {
		t.Errorf("verdict thresholds = %+v", res.Verdict)
	}
}

func TestSearch_InputErrors(t *testing.T) {
	c := newLoaded(t, WithDimensions(32))

	tests := []struct {
		query string
		opts  []SearchOption
		want  error
	}{
		{"   ", nil, ErrEmptyQuery},
		{"boho", nil, ErrQueryTooShort},
		{"boho vibes", []SearchOption{WithLimit(0)}, ErrInvalidTopK},
		{"boho vibes", []SearchOption{WithLimit(500)}, ErrInvalidTopK},
		{"boho vibes", []SearchOption{WithThresholds(0.9, 0.1)}, ErrInvalidThresholds},
	}
	for _, tt := range tests {
		_, err := c.Search(context.Background(), tt.query, tt.opts...)
		if !errors.Is(err, tt.want) || !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Search(%q) err = %v, want %v", tt.query, err, tt.want)
		}
	}
}

func TestSearch_RemoteEmbedder(t *testing.T) {
	emb := &batchLetterEmbedder{}
	c := newLoaded(t, WithEmbedder(emb))

	if got := emb.batchCalls.Load(); got != 1 {
		t.Errorf("catalog load made %d batch calls, want 1", got)
	}

	items := c.Items()
	res, err := c.Search(context.Background(), items[6].Description)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Degraded || res.Source != SourceRemote {
		t.Errorf("remote search should not be degraded: %+v", res)
	}
	if res.Matches[0].ItemID != items[6].ID || res.Matches[0].Score < 0.999 {
		t.Errorf("top match = %+v, want item %s", res.Matches[0], items[6].ID)
	}
	if res.Verdict.Label != VerdictStrong {
		t.Errorf("label = %q", res.Verdict.Label)
	}
}

func TestSearch_NonBatchEmbedder(t *testing.T) {
	emb := &letterEmbedder{}
	c := newLoaded(t, WithEmbedder(emb))

	if got := emb.calls.Load(); got != 10 {
		t.Errorf("Embed called %d times, want one per catalog item", got)
	}
	if _, ok := newEmbedderAdapter(emb).(*embedderAdapter); !ok {
		t.Error("plain embedder should not be wrapped as a batch embedder")
	}
	if _, err := c.Search(context.Background(), "cozy soft loungewear"); err != nil {
		t.Fatal(err)
	}
}

func TestSearch_RemoteFailureDegrades(t *testing.T) {
	emb := &batchLetterEmbedder{letterEmbedder{err: errors.New("connection refused")}}
	c := newLoaded(t, WithEmbedder(emb), WithDimensions(48))

	res, err := c.Search(context.Background(), "boho earthy festival")
	if err != nil {
		t.Fatalf("remote failure must not fail the search: %v", err)
	}
	if !res.Degraded || !strings.Contains(res.Status, "remote unavailable") {
		t.Errorf("result = %+v", res)
	}
	if len(res.Matches) != 3 {
		t.Errorf("got %d matches, want 3", len(res.Matches))
	}
}

func TestHealthAndVibes(t *testing.T) {
	c, err := New(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if h := c.Health(context.Background()); h.Status != "error" || h.Checks["corpus"] != "error" {
		t.Errorf("health before load = %+v", h)
	}

	items, _ := DefaultCatalog()
	if err := c.Load(context.Background(), items); err != nil {
		t.Fatal(err)
	}
	if h := c.Health(context.Background()); h.Status != "ok" {
		t.Errorf("health after load = %+v", h)
	}
	if v := c.Vibes(); len(v) == 0 || v[0] != "athletic" {
		t.Errorf("vibes = %v", v)
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestLoad_InvalidCatalogKeepsPrevious(t *testing.T) {
	c := newLoaded(t, WithDimensions(32))

	err := c.Load(context.Background(), []Item{{ID: "a", Description: "x"}, {ID: "a", Description: "y"}})
	if !errors.Is(err, ErrInvalidCatalog) {
		t.Fatalf("err = %v, want ErrInvalidCatalog", err)
	}
	if len(c.Items()) != 10 {
		t.Errorf("previous catalog should stay loaded, got %d items", len(c.Items()))
	}
}

func TestUsage(t *testing.T) {
	c := newLoaded(t, WithDimensions(32))

	r := c.Usage(context.Background(), PeriodMonth)
	if r.Period != PeriodMonth || r.RemoteEnabled {
		t.Errorf("report = %+v", r)
	}
	if r.Budget.TokensRemaining != -1 || r.Budget.IsExhausted {
		t.Errorf("budget = %+v", r.Budget)
	}
	if r.Cache != (CacheStatus{Backend: "memory", Entries: 10}) {
		t.Errorf("cache = %+v", r.Cache)
	}
	if got := c.Usage(context.Background(), "fortnight").Period; got != PeriodTotal {
		t.Errorf("unknown period reported as %q", got)
	}
}

func TestFileCache_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	first := newLoaded(t, WithFileCache(path), WithDimensions(32))
	first.Close()

	second, err := New(context.Background(), WithFileCache(path), WithDimensions(32))
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()

	r := second.Usage(context.Background(), PeriodDay)
	if !r.Cache.Persistent || r.Cache.Backend != "file" || r.Cache.Entries != 10 {
		t.Errorf("reopened cache = %+v", r.Cache)
	}
}

func TestBadgerCache(t *testing.T) {
	c := newLoaded(t, WithBadgerCache(t.TempDir()), WithDimensions(32))

	if r := c.Usage(context.Background(), PeriodDay); r.Cache.Backend != "badger" || r.Cache.Entries != 10 {
		t.Errorf("cache = %+v", r.Cache)
	}
}

func TestNew_UnreachableStoreRunsMemoryOnly(t *testing.T) {
	notDir := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(notDir, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		opt  Option
	}{
		{"redis", WithRedisCache("127.0.0.1:1", "", "")},
		{"badger", WithBadgerCache(filepath.Join(notDir, "db"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newLoaded(t, tt.opt, WithDimensions(32))

			r := c.Usage(context.Background(), PeriodDay)
			if r.Cache.Backend != "memory" || r.Cache.Persistent || r.Cache.Entries != 10 {
				t.Errorf("cache = %+v, want memory-only with 10 entries", r.Cache)
			}
			if _, err := c.Search(context.Background(), "boho earthy festival"); err != nil {
				t.Errorf("Search: %v", err)
			}
		})
	}
}

func TestPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newLoaded(t, WithPrometheus(reg), WithDimensions(32))

	if _, err := c.Search(context.Background(), "minimal streetwear sustainable"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Search(context.Background(), "x"); err == nil {
		t.Fatal("expected an input error")
	}

	ops := c.obs.metrics.operations
	if got := testutil.ToFloat64(ops.WithLabelValues("load", statusDegraded)); got != 1 {
		t.Errorf("degraded loads = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ops.WithLabelValues("search", statusDegraded)); got != 1 {
		t.Errorf("degraded searches = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ops.WithLabelValues("search", statusError)); got != 1 {
		t.Errorf("failed searches = %v, want 1", got)
	}

	// A second client on the same registry reuses the collectors.
	if _, err := New(context.Background(), WithPrometheus(reg)); err != nil {
		t.Fatalf("re-register: %v", err)
	}
}
