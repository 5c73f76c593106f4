package vibematch

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/vibematch/internal/domain/usage"
)

// UsagePeriod is the aggregation granularity for usage reports.
type UsagePeriod string

// UsagePeriod constants.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodMonth UsagePeriod = "month"
	PeriodTotal UsagePeriod = "total"
)

// UsageReport describes the embedding cache and remote configuration for a
// time period. The SDK does not enforce a token budget, so Budget is always
// unlimited (TokensRemaining -1).
type UsageReport struct {
	Period        UsagePeriod
	PeriodStart   time.Time
	PeriodEnd     time.Time
	RemoteEnabled bool
	Budget        BudgetStatus
	Cache         CacheStatus
}

// BudgetStatus tracks token quota state.
type BudgetStatus struct {
	TokensLimit     int64
	TokensUsed      int64
	TokensRemaining int64
	IsExhausted     bool
	ResetsAt        time.Time
}

// CacheStatus describes the embedding cache.
type CacheStatus struct {
	Backend    string
	Entries    int
	Persistent bool
}

// Usage returns a usage report for the given period. An unknown period is
// reported as PeriodTotal.
// Observer always records success: the underlying use-case is in-memory
// and does not produce errors.
func (c *Client) Usage(ctx context.Context, period UsagePeriod) UsageReport {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, nil) }()

	p, err := domusage.ParsePeriod(string(period))
	if err != nil {
		p = domusage.PeriodTotal
	}
	r := c.usageSvc.GetReport(ctx, p)

	return UsageReport{
		Period:        UsagePeriod(r.Period),
		PeriodStart:   r.PeriodStart,
		PeriodEnd:     r.PeriodEnd,
		RemoteEnabled: r.RemoteEnabled,
		Budget: BudgetStatus{
			TokensLimit:     r.Budget.Limit,
			TokensUsed:      r.Budget.Used,
			TokensRemaining: r.Budget.Remaining,
			IsExhausted:     r.Budget.Exhausted,
			ResetsAt:        r.Budget.ResetsAt,
		},
		Cache: CacheStatus{
			Backend:    r.Cache.Backend,
			Entries:    r.Cache.Entries,
			Persistent: r.Cache.Persistent,
		},
	}
}
