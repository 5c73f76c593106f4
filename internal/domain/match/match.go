// Package match holds the ranking output model and the threshold classifier.
package match

import "github.com/kailas-cloud/vibematch/internal/domain"

// RankedMatch is one scored catalog item.
type RankedMatch struct {
	ItemID string `json:"item_id"`
	// Rank is 1-based.
	Rank int `json:"rank"`
	// Cosine is the raw similarity in [-1, 1].
	Cosine float64 `json:"cosine"`
	// Score is (Cosine+1)/2, in [0, 1].
	Score       float64  `json:"score"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// NormalizeScore maps a cosine similarity onto [0, 1].
func NormalizeScore(cosine float64) float64 {
	s := (cosine + 1) / 2
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	}
	return s
}

// Result is the complete answer to one query. The caller owns it.
type Result struct {
	// Query is the normalized query text.
	Query   string        `json:"query"`
	Matches []RankedMatch `json:"matches"`
	Verdict Verdict       `json:"verdict"`
	Summary Summary       `json:"summary"`
	// Source is the embedding space the ranking was computed in.
	Source domain.Source `json:"source"`
	// Degraded is set when synthetic vectors were used because the remote failed.
	Degraded bool `json:"degraded"`
	// Excluded counts corpus vectors skipped for dimension or source mismatch.
	Excluded int    `json:"excluded"`
	Status   string `json:"status,omitempty"`
}
