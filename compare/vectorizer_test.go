package compare

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewVectorizerEmptyCorpus(t *testing.T) {
	_, err := NewVectorizer(nil)
	require.ErrorIs(t, err, ErrEmptyCorpus)
}

func TestCharNgrams(t *testing.T) {
	grams := charNgrams("hello")
	require.ElementsMatch(t, []string{"hel", "ell", "llo", "hell", "ello", "hello"}, grams)
}

func TestCharNgramsShortString(t *testing.T) {
	require.Empty(t, charNgrams("ab"))
	require.Empty(t, charNgrams(""))
}

func TestTransformIdenticalTextIsUnitSimilar(t *testing.T) {
	corpus := []string{"hello world", "goodbye moon"}
	v, err := NewVectorizer(corpus)
	require.NoError(t, err)

	a := v.Transform("hello world")
	b := v.Transform("hello world")
	require.InDelta(t, 1.0, CosineSimilarity(a, b), 1e-9)
}

func TestTransformIsCaseInsensitive(t *testing.T) {
	v, err := NewVectorizer([]string{"hello world"})
	require.NoError(t, err)

	a := v.Transform("Hello World")
	b := v.Transform("hello world")
	require.InDelta(t, 1.0, CosineSimilarity(a, b), 1e-9)
}

func TestTransformNoSharedNgrams(t *testing.T) {
	v, err := NewVectorizer([]string{"hello world"})
	require.NoError(t, err)

	vec := v.Transform("xyzxyz")
	for _, x := range vec {
		require.Zero(t, x)
	}
	require.Equal(t, 0.0, CosineSimilarity(vec, v.Transform("hello world")))
}

func TestVectorizerZeroFeatureSpace(t *testing.T) {
	// Strings too short for 3-grams build a space with no features; that is
	// a degenerate vector space, not a construction error.
	v, err := NewVectorizer([]string{"ab", ""})
	require.NoError(t, err)
	require.Zero(t, v.Dimension())
	require.Empty(t, v.Transform("ab"))
}

func TestTransformVectorsAreL2Normalized(t *testing.T) {
	v, err := NewVectorizer([]string{"hello world", "hello there"})
	require.NoError(t, err)

	vec := v.Transform("hello world")
	var sum float64
	for _, x := range vec {
		sum += x * x
	}
	require.InDelta(t, 1.0, sum, 1e-9)
}
