package compare

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// TokenEmbedder exposes the minimal surface semantic scoring needs: a way to
// turn a text into per-token embedding vectors. Implementations decide which
// tokens receive vectors; tokens without one are dropped before scoring.
type TokenEmbedder interface {
	EmbedTokens(ctx context.Context, text string) ([]TokenVector, error)
	Close() error
	ModelID() string
}

// ErrNoEmbedder is returned when an advanced comparison is requested but no
// token embedder was configured on the comparer.
var ErrNoEmbedder = errors.New("compare: no token embedder configured")

const (
	powerIterations = 200
	powerTolerance  = 1e-12
)

// SemanticSimilarity compares two texts by the dominant direction of their
// token-embedding matrices. Each text is embedded token by token, the first
// right-singular vector of the resulting matrix is extracted, and the cosine
// of the two directions is returned. If either text yields no embeddable
// tokens the result is the defined fallback 0, not an error.
func SemanticSimilarity(ctx context.Context, embedder TokenEmbedder, text1, text2 string) (float64, error) {
	if embedder == nil {
		return 0, ErrNoEmbedder
	}
	m1, err := tokenMatrix(ctx, embedder, text1)
	if err != nil {
		return 0, fmt.Errorf("embed first text: %w", err)
	}
	m2, err := tokenMatrix(ctx, embedder, text2)
	if err != nil {
		return 0, fmt.Errorf("embed second text: %w", err)
	}
	if len(m1) == 0 || len(m2) == 0 {
		return 0, nil
	}
	return CosineSimilarity(dominantDirection(m1), dominantDirection(m2)), nil
}

func tokenMatrix(ctx context.Context, embedder TokenEmbedder, text string) ([][]float64, error) {
	tokens, err := embedder.EmbedTokens(ctx, text)
	if err != nil {
		return nil, err
	}
	rows := make([][]float64, 0, len(tokens))
	for _, tv := range tokens {
		if len(tv.Vector) == 0 {
			continue
		}
		row := make([]float64, len(tv.Vector))
		for i, x := range tv.Vector {
			row[i] = float64(x)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// dominantDirection computes the first right-singular vector of the row
// matrix via power iteration on AᵀA, iterating v ← Aᵀ(Av) without forming
// the Gram matrix. A single start can fix on a minor eigenvector when it
// happens to be orthogonal to the dominant direction, so the iteration runs
// from two deterministic starts (row mean and the heaviest-column basis
// vector) and keeps the direction with the larger ‖Av‖². The sign is
// canonicalized so the largest-magnitude component is positive, making the
// result deterministic. An all-zero matrix returns a zero vector, which
// cosine similarity maps to 0.
func dominantDirection(rows [][]float64) []float64 {
	dim := len(rows[0])
	mean := make([]float64, dim)
	for _, row := range rows {
		for i, x := range row {
			mean[i] += x
		}
	}
	best := powerIterate(rows, mean)
	alt := powerIterate(rows, heaviestColumnBasis(rows, dim))
	if singularEnergy(rows, alt) > singularEnergy(rows, best) {
		best = alt
	}
	canonicalizeSign(best)
	return best
}

// powerIterate runs the v ← Aᵀ(Av) iteration from the given start vector,
// returning a unit vector, or a zero vector when the start lies in the null
// space of the matrix.
func powerIterate(rows [][]float64, start []float64) []float64 {
	dim := len(start)
	v := make([]float64, dim)
	copy(v, start)
	if !normalize(v) {
		for i := range v {
			v[i] = 1
		}
		normalize(v)
	}
	w := make([]float64, dim)
	for iter := 0; iter < powerIterations; iter++ {
		for i := range w {
			w[i] = 0
		}
		for _, row := range rows {
			var dot float64
			for i, x := range row {
				dot += x * v[i]
			}
			for i, x := range row {
				w[i] += dot * x
			}
		}
		if !normalize(w) {
			return make([]float64, dim)
		}
		var agreement float64
		for i := range v {
			agreement += v[i] * w[i]
		}
		v, w = w, v
		if math.Abs(1-math.Abs(agreement)) < powerTolerance {
			break
		}
	}
	return v
}

// heaviestColumnBasis returns the basis vector of the column with the
// largest norm, a start guaranteed to have a component along the dominant
// direction unless that column is entirely zero.
func heaviestColumnBasis(rows [][]float64, dim int) []float64 {
	norms := make([]float64, dim)
	for _, row := range rows {
		for i, x := range row {
			norms[i] += x * x
		}
	}
	basis := make([]float64, dim)
	col := 0
	for i, n := range norms {
		if n > norms[col] {
			col = i
		}
	}
	basis[col] = 1
	return basis
}

// singularEnergy is ‖Av‖², the Rayleigh quotient of AᵀA for a unit vector v.
func singularEnergy(rows [][]float64, v []float64) float64 {
	var energy float64
	for _, row := range rows {
		var dot float64
		for i, x := range row {
			dot += x * v[i]
		}
		energy += dot * dot
	}
	return energy
}

// normalize scales v to unit length in place, reporting false for a zero vector.
func normalize(v []float64) bool {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return false
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] /= norm
	}
	return true
}

func canonicalizeSign(v []float64) {
	var peak float64
	var flip bool
	for _, x := range v {
		if a := math.Abs(x); a > peak {
			peak = a
			flip = x < 0
		}
	}
	if flip {
		for i := range v {
			v[i] = -v[i]
		}
	}
}
