package match

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/vibematch/internal/domain"
)

// Label is the match-quality verdict.
type Label string

const (
	// Strong means the top score reached the good-hit threshold.
	Strong Label = "strong"
	// Weak means matches exist but none reached the good-hit threshold.
	Weak Label = "weak"
	// Rejected means there was nothing to rank.
	Rejected Label = "rejected"
)

// Default thresholds in normalized score space.
const (
	DefaultFallbackThreshold = 0.35
	DefaultGoodHitThreshold  = 0.7
)

// Thresholds are the classifier's tuning inputs.
type Thresholds struct {
	Fallback float64 `json:"fallback"`
	GoodHit  float64 `json:"good_hit"`
}

// DefaultThresholds returns fallback=0.35, good_hit=0.7.
func DefaultThresholds() Thresholds {
	return Thresholds{Fallback: DefaultFallbackThreshold, GoodHit: DefaultGoodHitThreshold}
}

// Validate requires 0 <= fallback <= good_hit <= 1. NaN is rejected.
func (t Thresholds) Validate() error {
	if math.IsNaN(t.Fallback) || math.IsNaN(t.GoodHit) || t.Fallback < 0 || t.GoodHit > 1 || t.Fallback > t.GoodHit {
		return fmt.Errorf("%w: fallback=%.3f good_hit=%.3f", domain.ErrInvalidThresholds, t.Fallback, t.GoodHit)
	}
	return nil
}

// Verdict is the classifier output. It is data only; rendering belongs to the caller.
type Verdict struct {
	Label      Label      `json:"label"`
	TopScore   float64    `json:"top_score"`
	Thresholds Thresholds `json:"thresholds"`
	// NoMatch is set when the top score is below the fallback threshold. The
	// matches are still the best available and should be shown with a
	// "no strong match" message.
	NoMatch bool     `json:"no_match"`
	Hints   []string `json:"hints,omitempty"`
}

// Classify interprets ranked matches against thresholds. Both boundaries are
// inclusive on the upper side: TopScore == Fallback is not NoMatch, and
// TopScore == GoodHit is Strong.
func Classify(matches []RankedMatch, t Thresholds, hints []string) Verdict {
	v := Verdict{Label: Rejected, Thresholds: t}
	if len(matches) == 0 {
		return v
	}

	v.TopScore = matches[0].Score
	for _, m := range matches[1:] {
		if m.Score > v.TopScore {
			v.TopScore = m.Score
		}
	}

	switch {
	case v.TopScore >= t.GoodHit:
		v.Label = Strong
	case v.TopScore < t.Fallback:
		v.Label = Weak
		v.NoMatch = true
		v.Hints = hints
	default:
		v.Label = Weak
	}
	return v
}

// Summary aggregates the scores of a result set.
type Summary struct {
	AvgScore float64 `json:"avg_score"`
	TopScore float64 `json:"top_score"`
	GoodHits int     `json:"good_hits"`
	Total    int     `json:"total"`
}

// Summarize computes score statistics; GoodHits counts scores >= goodHit.
func Summarize(matches []RankedMatch, goodHit float64) Summary {
	if len(matches) == 0 {
		return Summary{}
	}
	var s Summary
	var sum float64
	for _, m := range matches {
		sum += m.Score
		if m.Score > s.TopScore {
			s.TopScore = m.Score
		}
		if m.Score >= goodHit {
			s.GoodHits++
		}
	}
	s.Total = len(matches)
	s.AvgScore = sum / float64(len(matches))
	return s
}
