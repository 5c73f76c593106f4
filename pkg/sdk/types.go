package vibematch

import (
	"github.com/kailas-cloud/vibematch/internal/domain"
	"github.com/kailas-cloud/vibematch/internal/domain/match"
)

// Item is one matchable catalog entry. Only Description is embedded.
type Item struct {
	ID          string
	Name        string
	Description string
	Tags        []string
}

// Source tags where a query vector came from.
type Source string

// Source constants.
const (
	SourceRemote    Source = "remote"
	SourceSynthetic Source = "synthetic"
)

// VerdictLabel is the match-quality verdict.
type VerdictLabel string

// VerdictLabel constants.
const (
	VerdictStrong   VerdictLabel = "strong"
	VerdictWeak     VerdictLabel = "weak"
	VerdictRejected VerdictLabel = "rejected"
)

// Match is one ranked catalog item. Score is cosine similarity mapped to [0,1].
type Match struct {
	ItemID      string
	Rank        int
	Cosine      float64
	Score       float64
	Name        string
	Description string
	Tags        []string
}

// Verdict classifies the best score against the thresholds used.
type Verdict struct {
	Label    VerdictLabel
	TopScore float64
	Fallback float64
	GoodHit  float64
	// NoMatch is set below the fallback threshold; Matches are still the
	// closest items and Hints suggest better queries.
	NoMatch bool
	Hints   []string
}

// Summary aggregates the scores of a result set.
type Summary struct {
	AvgScore float64
	TopScore float64
	GoodHits int
	Total    int
}

// Result is the outcome of one search.
type Result struct {
	Query    string
	Matches  []Match
	Verdict  Verdict
	Summary  Summary
	Source   Source
	Degraded bool
	// Excluded counts catalog vectors skipped for an incompatible embedding.
	Excluded int
	Status   string
}

func toDomainItems(items []Item) []domain.CatalogItem {
	out := make([]domain.CatalogItem, len(items))
	for i, it := range items {
		out[i] = domain.CatalogItem{
			ID:          it.ID,
			Name:        it.Name,
			Description: it.Description,
			Tags:        append([]string(nil), it.Tags...),
		}
	}
	return out
}

func fromDomainItems(items []domain.CatalogItem) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = Item{
			ID:          it.ID,
			Name:        it.Name,
			Description: it.Description,
			Tags:        append([]string(nil), it.Tags...),
		}
	}
	return out
}

func fromDomainResult(r match.Result) Result {
	matches := make([]Match, len(r.Matches))
	for i, m := range r.Matches {
		matches[i] = Match{
			ItemID:      m.ItemID,
			Rank:        m.Rank,
			Cosine:      m.Cosine,
			Score:       m.Score,
			Name:        m.Name,
			Description: m.Description,
			Tags:        m.Tags,
		}
	}
	return Result{
		Query:   r.Query,
		Matches: matches,
		Verdict: Verdict{
			Label:    VerdictLabel(r.Verdict.Label),
			TopScore: r.Verdict.TopScore,
			Fallback: r.Verdict.Thresholds.Fallback,
			GoodHit:  r.Verdict.Thresholds.GoodHit,
			NoMatch:  r.Verdict.NoMatch,
			Hints:    r.Verdict.Hints,
		},
		Summary: Summary{
			AvgScore: r.Summary.AvgScore,
			TopScore: r.Summary.TopScore,
			GoodHits: r.Summary.GoodHits,
			Total:    r.Summary.Total,
		},
		Source:   Source(r.Source),
		Degraded: r.Degraded,
		Excluded: r.Excluded,
		Status:   r.Status,
	}
}
