package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"

	gochi "github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vibematch/internal/catalog"
	"github.com/kailas-cloud/vibematch/internal/domain"
	"github.com/kailas-cloud/vibematch/internal/domain/match"
	domusage "github.com/kailas-cloud/vibematch/internal/domain/usage"
	logpkg "github.com/kailas-cloud/vibematch/internal/logger"
	"github.com/kailas-cloud/vibematch/internal/metrics"
	healthuc "github.com/kailas-cloud/vibematch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/vibematch/internal/usecase/search"
	usageuc "github.com/kailas-cloud/vibematch/internal/usecase/usage"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest       = "bad_request"
	CodeValidationFailed = "validation_failed"
	CodeCorpusNotLoaded  = "corpus_not_loaded"
	CodeInternalError    = "internal_error"
)

// maxBodyBytes bounds a search request body.
const maxBodyBytes = 64 << 10

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SearchRequest is the body of POST /v1/search. Omitted fields take the server
// defaults. top_k must be between 1 and 100.
type SearchRequest struct {
	Query             string   `json:"query"`
	TopK              *int     `json:"top_k,omitempty"`
	FallbackThreshold *float64 `json:"fallback_threshold,omitempty"`
	GoodHitThreshold  *float64 `json:"good_hit_threshold,omitempty"`
}

// CatalogResponse is the body of GET /v1/catalog.
type CatalogResponse struct {
	Items []domain.CatalogItem `json:"items"`
	Total int                  `json:"total"`
}

// VibesResponse is the body of GET /v1/catalog/vibes.
type VibesResponse struct {
	Vibes []string `json:"vibes"`
}

// SearchDefaults fill in omitted search parameters.
type SearchDefaults struct {
	TopK       int
	Thresholds match.Thresholds
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the vibematch HTTP API.
type Server struct {
	search        *searchuc.Service
	health        *healthuc.Service
	usage         *usageuc.Service
	corpus        *atomic.Pointer[searchuc.Corpus]
	defaults      SearchDefaults
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. corpus is read on every request so it
// can be swapped while serving.
func NewServer(
	search *searchuc.Service,
	health *healthuc.Service,
	corpus *atomic.Pointer[searchuc.Corpus],
	defaults SearchDefaults,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaults.TopK <= 0 {
		defaults.TopK = 3
	}
	if defaults.Thresholds == (match.Thresholds{}) {
		defaults.Thresholds = match.DefaultThresholds()
	}
	s := &Server{
		search:   search,
		health:   health,
		corpus:   corpus,
		defaults: defaults,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		inputErrorHandler,
		sentinelHandler(domain.ErrCorpusNotLoaded, http.StatusServiceUnavailable, CodeCorpusNotLoaded),
	}
	return s
}

// WithUsage enables GET /v1/usage.
func (s *Server) WithUsage(u *usageuc.Service) *Server {
	s.usage = u
	return s
}

// Routes builds the router with the standard middleware chain.
func (s *Server) Routes() http.Handler {
	r := gochi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.Post("/v1/search", s.Search)
	r.Get("/v1/catalog", s.Catalog)
	r.Get("/v1/catalog/vibes", s.Vibes)
	if s.usage != nil {
		r.Get("/v1/usage", s.Usage)
	}
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	return r
}

// Search handles POST /v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	topK := s.defaults.TopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	th := s.defaults.Thresholds
	if req.FallbackThreshold != nil {
		th.Fallback = *req.FallbackThreshold
	}
	if req.GoodHitThreshold != nil {
		th.GoodHit = *req.GoodHitThreshold
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.search.Search(ctx, req.Query, s.corpus.Load(), topK, th)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	if res.Degraded {
		logpkg.FromContext(ctx).Info("search served from synthetic vectors",
			zap.String("status", res.Status),
			zap.Int("excluded", res.Excluded),
		)
	}
	setEmbeddingHeaders(w, usage, res.Degraded)
	writeJSON(w, http.StatusOK, res)
}

// Catalog handles GET /v1/catalog.
func (s *Server) Catalog(w http.ResponseWriter, r *http.Request) {
	c := s.corpus.Load()
	if c.Len() == 0 {
		s.handleDomainError(w, r, domain.ErrCorpusNotLoaded)
		return
	}
	items := c.Items()
	writeJSON(w, http.StatusOK, CatalogResponse{Items: items, Total: len(items)})
}

// Vibes handles GET /v1/catalog/vibes.
func (s *Server) Vibes(w http.ResponseWriter, r *http.Request) {
	c := s.corpus.Load()
	if c.Len() == 0 {
		s.handleDomainError(w, r, domain.ErrCorpusNotLoaded)
		return
	}
	writeJSON(w, http.StatusOK, VibesResponse{Vibes: catalog.Vibes(c.Items())})
}

// Usage handles GET /v1/usage?period=day|month|total.
func (s *Server) Usage(w http.ResponseWriter, r *http.Request) {
	period, err := domusage.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.usage.GetReport(r.Context(), period))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage, degraded bool) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
	if degraded {
		w.Header().Set("X-Embedding-Degraded", "true")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// inputErrorHandler reports caller input errors with their full message; the
// text is built from validation details only.
func inputErrorHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrInvalidInput) {
		return false
	}
	writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

// handleDomainError logs through the request-scoped logger so entries carry request_id.
func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			logger.Debug("request rejected", zap.Error(err))
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
