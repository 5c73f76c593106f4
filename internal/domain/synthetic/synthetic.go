// Package synthetic generates deterministic embedding vectors without any
// external service.
//
// A vector is the L2-normalized sum of pseudo-random unit components: one per
// word stem (seeded by the stem's hash) and one for the whole text. The same
// text always yields the same vector, different texts yield different vectors,
// and texts that share vocabulary end up with a positive cosine similarity,
// so rankings stay meaningful while the remote service is unavailable.
package synthetic

import (
	"math"
	"math/rand/v2"
	"runtime"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"github.com/surgebase/porter2"
	"golang.org/x/sync/errgroup"
)

// DefaultDim matches the dimensionality of text-embedding-ada-002.
const DefaultDim = 1536

const (
	// wholeTextWeight scales the component seeded by the full text relative to a single stem.
	wholeTextWeight = 0.5
	// parallelThreshold is the batch size above which generation fans out.
	parallelThreshold = 64
	// pcgStream is the fixed PCG stream selector; changing it changes every vector.
	pcgStream = 0x9e3779b97f4a7c15
)

// Generator produces synthetic vectors of a fixed dimensionality.
type Generator struct {
	dim int
}

// New creates a generator. dim <= 0 selects DefaultDim.
func New(dim int) *Generator {
	if dim <= 0 {
		dim = DefaultDim
	}
	return &Generator{dim: dim}
}

// Dim returns the generated vector length.
func (g *Generator) Dim() int { return g.dim }

// Vector returns the synthetic embedding of normalized text.
func (g *Generator) Vector(normalized string) []float32 {
	acc := make([]float64, g.dim)
	scratch := make([]float64, g.dim)

	for _, f := range Features(normalized) {
		g.addComponent(acc, scratch, "t:"+f, 1)
	}
	g.addComponent(acc, scratch, "s:"+normalized, wholeTextWeight)

	var sum float64
	for _, v := range acc {
		sum += v * v
	}
	norm := math.Sqrt(sum)

	out := make([]float32, g.dim)
	if norm == 0 {
		return out
	}
	for i, v := range acc {
		out[i] = float32(v / norm)
	}
	return out
}

// Vectors generates one vector per text, index-aligned with the input.
// Large batches are spread over GOMAXPROCS workers.
func (g *Generator) Vectors(texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	if len(texts) < parallelThreshold {
		for i, t := range texts {
			out[i] = g.Vector(t)
		}
		return out
	}

	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, t := range texts {
		eg.Go(func() error {
			out[i] = g.Vector(t)
			return nil
		})
	}
	_ = eg.Wait() // workers never fail
	return out
}

// addComponent adds weight * (unit gaussian vector seeded by feature) to acc.
func (g *Generator) addComponent(acc, scratch []float64, feature string, weight float64) {
	seed := xxhash.Sum64String(feature)
	rng := rand.New(rand.NewPCG(seed, pcgStream))

	var sum float64
	for i := 0; i < len(scratch); i += 2 {
		a, b := gaussianPair(rng)
		scratch[i] = a
		sum += a * a
		if i+1 < len(scratch) {
			scratch[i+1] = b
			sum += b * b
		}
	}
	if sum == 0 {
		return
	}
	scale := weight / math.Sqrt(sum)
	for i, v := range scratch {
		acc[i] += v * scale
	}
}

// gaussianPair draws two independent standard normals (Box-Muller). Uses only
// Float64 so the sequence is fixed by the PCG definition.
func gaussianPair(rng *rand.Rand) (float64, float64) {
	u1 := rng.Float64()
	for u1 == 0 {
		u1 = rng.Float64()
	}
	u2 := rng.Float64()
	r := math.Sqrt(-2 * math.Log(u1))
	theta := 2 * math.Pi * u2
	return r * math.Cos(theta), r * math.Sin(theta)
}

// Features extracts the word stems of normalized text. Punctuation splits words;
// ASCII words longer than two letters are Porter2-stemmed so that
// "festivals" and "festival" share a component.
func Features(normalized string) []string {
	words := strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := words[:0]
	for _, w := range words {
		if len(w) > 2 && isASCIILetters(w) {
			w = porter2.Stem(w)
		}
		out = append(out, w)
	}
	return out
}

func isASCIILetters(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}
