package compare

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTextComparerEmptyCorpus(t *testing.T) {
	_, err := NewTextComparer(nil)
	require.ErrorIs(t, err, ErrEmptyCorpus)

	_, err = NewTextComparer([]string{})
	require.ErrorIs(t, err, ErrEmptyCorpus)
}

func TestCompareExactMatch(t *testing.T) {
	comparer, err := NewTextComparer([]string{"hello world"})
	require.NoError(t, err)

	res, err := comparer.Compare(context.Background(), "hello world", false)
	require.NoError(t, err)

	// Lexical and edit similarity are both 1, so 0.7*1 + 0.3*1 = 1.
	require.Equal(t, "hello world", res.Closest)
	require.InDelta(t, 1.0, res.Score, 1e-9)
	require.Empty(t, res.Similar)
}

func TestCompareDuplicateCandidates(t *testing.T) {
	comparer, err := NewTextComparer([]string{"alpha beta", "alpha beta"})
	require.NoError(t, err)

	res, err := comparer.Compare(context.Background(), "alpha beta", false)
	require.NoError(t, err)

	// Both candidates tie at the top; the first-seen one wins and the
	// duplicate is reported in similar by its own position.
	require.Equal(t, "alpha beta", res.Closest)
	require.Len(t, res.Similar, 1)
	require.Equal(t, 1, res.Similar[0].Position)
	require.InDelta(t, res.Score, res.Similar[0].Score, 1e-12)
}

func TestCompareSimilarListProperties(t *testing.T) {
	corpus := []string{
		"hello world",
		"hello world again",
		"completely unrelated gibberish qqq",
	}
	comparer, err := NewTextComparer(corpus)
	require.NoError(t, err)

	res, err := comparer.Compare(context.Background(), "hello world", false)
	require.NoError(t, err)
	require.Equal(t, "hello world", res.Closest)

	require.True(t, sort.SliceIsSorted(res.Similar, func(i, j int) bool {
		return res.Similar[i].Score > res.Similar[j].Score
	}))
	for _, m := range res.Similar {
		require.GreaterOrEqual(t, m.Score, float64(SimilarityThreshold))
		require.NotZero(t, m.Position, "closest candidate must never appear in similar")
		require.NotEqual(t, "completely unrelated gibberish qqq", m.Text)
	}
}

func TestCompareDegenerateVectorSpace(t *testing.T) {
	// A corpus of strings too short for any n-gram still works; lexical
	// similarity degenerates to 0 and the edit component carries the score.
	comparer, err := NewTextComparer([]string{"ab"})
	require.NoError(t, err)

	res, err := comparer.Compare(context.Background(), "ab", false)
	require.NoError(t, err)
	require.Equal(t, "ab", res.Closest)
	require.InDelta(t, 0.3, res.Score, 1e-9)
}

func TestCompareEmptyStringCorpus(t *testing.T) {
	comparer, err := NewTextComparer([]string{""})
	require.NoError(t, err)

	res, err := comparer.Compare(context.Background(), "", false)
	require.NoError(t, err)
	// Edit similarity of two empty strings is 1; lexical is 0.
	require.InDelta(t, 0.3, res.Score, 1e-9)
}

func TestCompareDeterministic(t *testing.T) {
	corpus := []string{"the quick brown fox", "the quick brown dog", "lazy dog sleeps"}
	comparer, err := NewTextComparer(corpus)
	require.NoError(t, err)

	first, err := comparer.Compare(context.Background(), "quick brown foxes", false)
	require.NoError(t, err)
	second, err := comparer.Compare(context.Background(), "quick brown foxes", false)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestCompareAdvancedWithoutEmbedder(t *testing.T) {
	comparer, err := NewTextComparer([]string{"hello world"})
	require.NoError(t, err)

	_, err = comparer.Compare(context.Background(), "hello", true)
	require.ErrorIs(t, err, ErrNoEmbedder)
}

func TestCompareAdvancedWithStubEmbedder(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"red":   {1, 0, 0},
		"apple": {0.2, 0.9, 0.1},
		"blue":  {0, 0, 1},
		"sky":   {0.1, 0.2, 0.9},
	}}
	comparer, err := NewTextComparer(
		[]string{"red apple", "blue sky"},
		WithTokenEmbedder(embedder),
	)
	require.NoError(t, err)

	res, err := comparer.Compare(context.Background(), "red apple", true)
	require.NoError(t, err)
	require.Equal(t, "red apple", res.Closest)
	require.InDelta(t, 1.0, res.Score, 1e-9)
}

func TestCompareAll(t *testing.T) {
	comparer, err := NewTextComparer([]string{"one", "two", "three"})
	require.NoError(t, err)

	results, err := comparer.CompareAll(context.Background(), []string{"one", "two"}, false)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "one", results[0].Closest)
	require.Equal(t, "two", results[1].Closest)
}

func TestComparerSize(t *testing.T) {
	comparer, err := NewTextComparer([]string{"a b c", "d e f"})
	require.NoError(t, err)
	require.Equal(t, 2, comparer.Size())
}
