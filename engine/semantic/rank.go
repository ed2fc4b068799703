package semantic

import (
	"math"
	"sort"
)

// cosineSimilarity computes the cosine of the angle between a and b in
// float64 to keep ranking stable, returning 0 for zero-norm inputs.
func cosineSimilarity(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// rankResults orders candidates by descending score, breaking ties inside
// scoreEpsilon by ascending id, and truncates to k.
func rankResults(results []SearchResult, k int) []SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		di := float64(results[i].Score) - float64(results[j].Score)
		if math.Abs(di) <= scoreEpsilon {
			return results[i].ID < results[j].ID
		}
		return di > 0
	})
	if k >= 0 && len(results) > k {
		results = results[:k]
	}
	return results
}
