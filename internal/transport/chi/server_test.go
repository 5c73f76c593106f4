package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/vibematch/internal/catalog"
	"github.com/kailas-cloud/vibematch/internal/domain/match"
	"github.com/kailas-cloud/vibematch/internal/domain/synthetic"
	domusage "github.com/kailas-cloud/vibematch/internal/domain/usage"
	"github.com/kailas-cloud/vibematch/internal/repository/embcache"
	embeddinguc "github.com/kailas-cloud/vibematch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/vibematch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/vibematch/internal/usecase/search"
	usageuc "github.com/kailas-cloud/vibematch/internal/usecase/usage"
)

type testEnv struct {
	handler http.Handler
	corpus  *atomic.Pointer[searchuc.Corpus]
}

// newTestEnv wires an offline stack over the built-in catalog. With load=false
// the corpus pointer stays empty.
func newTestEnv(t *testing.T, load bool) testEnv {
	t.Helper()
	return newTestEnvWithLogger(t, load, zap.NewNop())
}

func newTestEnvWithLogger(t *testing.T, load bool, logger *zap.Logger) testEnv {
	t.Helper()
	cache := embcache.New(embcache.MemoryBackend{}, nil, zap.NewNop())
	provider := embeddinguc.NewProvider(nil, cache, synthetic.New(128), time.Second, zap.NewNop())
	search := searchuc.New(provider, searchuc.Options{}, zap.NewNop())

	var corpus atomic.Pointer[searchuc.Corpus]
	if load {
		items, err := catalog.Default()
		if err != nil {
			t.Fatal(err)
		}
		c, err := search.LoadCorpus(context.Background(), items)
		if err != nil {
			t.Fatal(err)
		}
		corpus.Store(c)
	}

	health := healthuc.New(cache, nil, func() healthuc.CorpusReporter { return corpus.Load() })
	srv := NewServer(search, health, &corpus, SearchDefaults{TopK: 3, Thresholds: match.DefaultThresholds()}, logger).
		WithUsage(usageuc.New(nil, cache, false))
	return testEnv{handler: srv.Routes(), corpus: &corpus}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&e); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return e
}

func TestSearch_OK(t *testing.T) {
	env := newTestEnv(t, true)

	rec := do(t, env.handler, http.MethodPost, "/v1/search", `{"query":"energetic urban chic"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Embedding-Degraded") != "true" {
		t.Error("offline search should set X-Embedding-Degraded")
	}
	if rec.Header().Get("X-Embedding-Tokens") != "" {
		t.Error("no remote call, no token header")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}

	var res match.Result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Matches) != 3 || !res.Degraded || res.Query != "energetic urban chic" {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Verdict.Thresholds != match.DefaultThresholds() {
		t.Errorf("thresholds = %+v", res.Verdict.Thresholds)
	}
}

func TestSearch_Overrides(t *testing.T) {
	env := newTestEnv(t, true)

	rec := do(t, env.handler, http.MethodPost, "/v1/search",
		`{"query":"cozy soft loungewear","top_k":5,"fallback_threshold":0.1,"good_hit_threshold":0.95}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var res match.Result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Matches) != 5 {
		t.Errorf("got %d matches, want 5", len(res.Matches))
	}
	if res.Verdict.Thresholds.Fallback != 0.1 || res.Verdict.Thresholds.GoodHit != 0.95 {
		t.Errorf("thresholds = %+v", res.Verdict.Thresholds)
	}
}

func TestSearch_InputErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"bad json", `{"query":`, CodeBadRequest},
		{"empty query", `{"query":"   "}`, CodeValidationFailed},
		{"one word", `{"query":"boho"}`, CodeValidationFailed},
		{"top k", `{"query":"boho vibes","top_k":0}`, CodeValidationFailed},
		{"top k above max", `{"query":"boho vibes","top_k":500}`, CodeValidationFailed},
		{"thresholds", `{"query":"boho vibes","fallback_threshold":0.9,"good_hit_threshold":0.2}`, CodeValidationFailed},
	}
	env := newTestEnv(t, true)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, env.handler, http.MethodPost, "/v1/search", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if e := decodeError(t, rec); e.Code != tt.code || e.Message == "" {
				t.Errorf("error = %+v, want code %q", e, tt.code)
			}
		})
	}
}

func TestSearch_CorpusNotLoaded(t *testing.T) {
	env := newTestEnv(t, false)

	rec := do(t, env.handler, http.MethodPost, "/v1/search", `{"query":"boho vibes"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if e := decodeError(t, rec); e.Code != CodeCorpusNotLoaded {
		t.Errorf("code = %q", e.Code)
	}
}

func TestCatalog(t *testing.T) {
	env := newTestEnv(t, true)

	rec := do(t, env.handler, http.MethodGet, "/v1/catalog", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp CatalogResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 10 || len(resp.Items) != 10 || resp.Items[1].Name != "Urban Streetwear Bomber" {
		t.Errorf("unexpected catalog: %+v", resp)
	}
}

func TestVibes(t *testing.T) {
	env := newTestEnv(t, true)

	rec := do(t, env.handler, http.MethodGet, "/v1/catalog/vibes", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp VibesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i := 1; i < len(resp.Vibes); i++ {
		if resp.Vibes[i-1] >= resp.Vibes[i] {
			t.Fatalf("vibes not sorted and unique: %v", resp.Vibes)
		}
	}
}

func TestCatalog_NotLoaded(t *testing.T) {
	env := newTestEnv(t, false)
	for _, path := range []string{"/v1/catalog", "/v1/catalog/vibes"} {
		if rec := do(t, env.handler, http.MethodGet, path, ""); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want 503", path, rec.Code)
		}
	}
}

func TestUsage(t *testing.T) {
	env := newTestEnv(t, true)

	rec := do(t, env.handler, http.MethodGet, "/v1/usage?period=month", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var report domusage.Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Period != domusage.PeriodMonth || report.RemoteEnabled {
		t.Errorf("unexpected report: %+v", report)
	}
	if report.Cache.Backend != "memory" || report.Cache.Entries != 10 {
		t.Errorf("cache = %+v", report.Cache)
	}
	if report.Budget.Remaining != -1 {
		t.Errorf("unlimited budget should report -1 remaining, got %d", report.Budget.Remaining)
	}

	if rec := do(t, env.handler, http.MethodGet, "/v1/usage?period=week", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad period status = %d, want 400", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, true)

	rec := do(t, env.handler, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var report healthuc.Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Status != healthuc.Healthy || report.Checks["cache"] != healthuc.CheckOK {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestHealth_NoCorpus(t *testing.T) {
	env := newTestEnv(t, false)
	if rec := do(t, env.handler, http.MethodGet, "/health", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, true)
	do(t, env.handler, http.MethodGet, "/health", "")

	rec := do(t, env.handler, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "vibematch_http_requests_total") {
		t.Error("expected HTTP metrics in the exposition")
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, true)
	rec := do(t, env.handler, http.MethodGet, "/v1/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if e := decodeError(t, rec); e.Code != CodeBadRequest {
		t.Errorf("code = %q", e.Code)
	}
}

func TestJSONRecoverer(t *testing.T) {
	h := jsonRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if e := decodeError(t, rec); e.Code != CodeInternalError {
		t.Errorf("code = %q", e.Code)
	}
}

func TestHandlerLogsCarryRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	env := newTestEnvWithLogger(t, true, zap.New(core))

	rec := do(t, env.handler, http.MethodPost, "/v1/search", `{"query":"boho"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	reqID := rec.Header().Get("X-Request-ID")

	rejected := logs.FilterMessage("request rejected").All()
	if len(rejected) != 1 {
		t.Fatalf("got %d rejection entries, want 1", len(rejected))
	}
	if got := rejected[0].ContextMap()["request_id"]; got != reqID {
		t.Errorf("request_id = %v, want %q", got, reqID)
	}

	do(t, env.handler, http.MethodPost, "/v1/search", `{"query":"energetic urban chic"}`)
	degraded := logs.FilterMessage("search served from synthetic vectors").All()
	if len(degraded) != 1 || degraded[0].ContextMap()["request_id"] == "" {
		t.Errorf("degraded search entries = %+v", degraded)
	}
}
