package compare

import (
	"math"

	"github.com/agnivade/levenshtein"
)

// CosineSimilarity measures directional alignment of two vectors. It returns
// 0 when either vector has zero norm, so degenerate inputs never produce NaN.
func CosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// EditSimilarity is the Levenshtein distance between two strings normalized
// by the longer rune length: 1 - d/max(len(s1), len(s2)). Two empty strings
// are identical and score 1.
func EditSimilarity(s1, s2 string) float64 {
	maxLen := len([]rune(s1))
	if l := len([]rune(s2)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(s1, s2)
	return 1 - float64(d)/float64(maxLen)
}
