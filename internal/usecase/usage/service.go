package usage

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/vibematch/internal/domain/usage"
)

// Service handles usage reporting.
type Service struct {
	br            BudgetReader
	cache         CacheStats
	remoteEnabled bool
	now           func() time.Time
}

// New creates a Service. br can be nil (unlimited mode); cache can be nil.
func New(br BudgetReader, cache CacheStats, remoteEnabled bool) *Service {
	return &Service{br: br, cache: cache, remoteEnabled: remoteEnabled, now: time.Now}
}

// GetReport builds a usage report for the given period. PeriodTotal reports
// the monthly counters, the longest window the budget keeps.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	start, end := period.Bounds(s.now())
	r := domusage.Report{
		Period:        period,
		PeriodStart:   start,
		PeriodEnd:     end,
		RemoteEnabled: s.remoteEnabled,
		Budget:        domusage.Budget{Remaining: -1, ResetsAt: end},
	}

	if s.br != nil {
		b := &r.Budget
		if period == domusage.PeriodDay {
			b.Limit, b.Used, b.Remaining = s.br.DailyLimit(), s.br.DailyUsed(), s.br.RemainingDaily()
		} else {
			b.Limit, b.Used, b.Remaining = s.br.MonthlyLimit(), s.br.MonthlyUsed(), s.br.RemainingMonthly()
		}
		b.Exhausted = b.Limit > 0 && b.Remaining <= 0
	}

	if s.cache != nil {
		r.Cache = domusage.Cache{
			Backend:    s.cache.Backend(),
			Entries:    s.cache.Len(),
			Persistent: s.cache.Persistent(),
		}
	}
	return r
}
