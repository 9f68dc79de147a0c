// Package vecmath holds the vector arithmetic shared by the vector indexes.
package vecmath

import (
	"math"
	"sort"

	"github.com/custodia-labs/fintweet/internal/core/ports/driven"
)

// Normalize returns an L2-normalised copy of v. A zero vector is copied
// unchanged, giving similarity 0 against everything.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		copy(out, v)
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

// Dot returns the inner product of two equal-length vectors. For normalised
// inputs this is their cosine similarity.
func Dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

// Better reports whether hit a ranks before hit b.
func Better(simA float64, seqA int64, simB float64, seqB int64) bool {
	if simA != simB {
		return simA > simB
	}
	return seqA < seqB
}

// SortHits orders hits by similarity descending, then seq ascending.
func SortHits(hits []driven.VectorHit) {
	sort.Slice(hits, func(i, j int) bool {
		return Better(hits[i].Similarity, hits[i].Seq, hits[j].Similarity, hits[j].Seq)
	})
}
