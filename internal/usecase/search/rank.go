package search

import (
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/vibematch/internal/domain"
	"github.com/kailas-cloud/vibematch/internal/domain/match"
)

// Ranking is the output of Rank.
type Ranking struct {
	Matches []match.RankedMatch
	// Excluded counts corpus vectors whose dimension or source differs from the query.
	Excluded int
}

// Rank scores every comparable corpus vector against query by cosine
// similarity and returns the best topK, highest score first. Ties keep corpus
// order. Incomparable vectors are skipped and counted, never compared.
func Rank(query domain.Vector, corpus []domain.CorpusVector, topK int) (Ranking, error) {
	if topK < 1 {
		return Ranking{}, fmt.Errorf("%w, got %d", domain.ErrInvalidTopK, topK)
	}

	var r Ranking
	qNorm := norm(query.Values)
	scored := make([]match.RankedMatch, 0, len(corpus))
	for _, cv := range corpus {
		if !query.Comparable(cv.Vector) {
			r.Excluded++
			continue
		}
		cos := cosine(query.Values, cv.Vector.Values, qNorm)
		scored = append(scored, match.RankedMatch{
			ItemID: cv.ItemID,
			Cosine: cos,
			Score:  match.NormalizeScore(cos),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	for i := range scored {
		scored[i].Rank = i + 1
	}
	r.Matches = scored
	return r, nil
}

// cosine computes the similarity in float64. A zero-norm operand yields 0.
func cosine(q, v []float32, qNorm float64) float64 {
	if qNorm == 0 {
		return 0
	}
	var dot, vv float64
	for i := range q {
		dot += float64(q[i]) * float64(v[i])
		vv += float64(v[i]) * float64(v[i])
	}
	if vv == 0 {
		return 0
	}
	cos := dot / (qNorm * math.Sqrt(vv))
	// rounding can push the ratio just past ±1
	return math.Max(-1, math.Min(1, cos))
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}
