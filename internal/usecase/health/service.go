package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the service answers but with reduced quality or durability.
	Degraded Status = "degraded"
	// Unhealthy indicates searches cannot be served.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service coordinates health checks.
type Service struct {
	cache     CachePinger
	embedding EmbeddingChecker
	corpus    func() CorpusReporter
}

// New creates a Service. embedding is nil when no remote provider is configured.
// corpus returns the currently served corpus, or nil before one is loaded.
func New(cache CachePinger, embedding EmbeddingChecker, corpus func() CorpusReporter) *Service {
	return &Service{cache: cache, embedding: embedding, corpus: corpus}
}

// Check runs health checks against all components. A failing cache or remote
// provider degrades the service; a missing corpus makes it unhealthy.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks["cache"] = result(s.cache.Ping(ctx))

	if s.embedding != nil {
		checks["embedding"] = result(s.embedding.HealthCheck(ctx))
	}

	if s.corpus != nil {
		if c := s.corpus(); c == nil || c.Len() == 0 {
			checks["corpus"] = CheckError
		} else {
			checks["corpus"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks["corpus"] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
