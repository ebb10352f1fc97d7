package compare

import (
	"errors"
	"math"
	"sort"
	"strings"
)

// Character n-gram lengths used as vector-space features.
const (
	minGram = 3
	maxGram = 5
)

// ErrEmptyCorpus is returned when a vector space or comparer is constructed
// from a corpus with no candidate texts.
var ErrEmptyCorpus = errors.New("compare: corpus contains no candidate texts")

// Vectorizer maps arbitrary strings into a TF-IDF weighted character n-gram
// space fitted once over a corpus. Immutable after construction and safe for
// concurrent Transform calls.
type Vectorizer struct {
	vocabulary map[string]int
	idf        []float64
}

// NewVectorizer fits the n-gram vocabulary and IDF weights over the corpus.
// A corpus made only of strings too short to produce n-grams yields a space
// with zero features; every Transform then returns a zero-length vector.
func NewVectorizer(corpus []string) (*Vectorizer, error) {
	if len(corpus) == 0 {
		return nil, ErrEmptyCorpus
	}
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, gram := range charNgrams(text) {
			if _, ok := seen[gram]; ok {
				continue
			}
			seen[gram] = struct{}{}
			df[gram]++
		}
	}
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	v := &Vectorizer{
		vocabulary: make(map[string]int, len(terms)),
		idf:        make([]float64, len(terms)),
	}
	n := float64(len(corpus))
	for i, term := range terms {
		v.vocabulary[term] = i
		// Smoothed IDF so terms present in every document keep a positive weight.
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return v, nil
}

// Dimension returns the number of n-gram features in the fitted space.
func (v *Vectorizer) Dimension() int {
	return len(v.idf)
}

// Transform maps text into the fitted space as an L2-normalized TF-IDF vector.
// Texts sharing no n-grams with the corpus produce an all-zero vector.
func (v *Vectorizer) Transform(text string) []float64 {
	vec := make([]float64, len(v.idf))
	for _, gram := range charNgrams(text) {
		if idx, ok := v.vocabulary[gram]; ok {
			vec[idx]++
		}
	}
	var sum float64
	for i, count := range vec {
		if count == 0 {
			continue
		}
		w := count * v.idf[i]
		vec[i] = w
		sum += w * w
	}
	if sum > 0 {
		norm := math.Sqrt(sum)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

// charNgrams extracts every contiguous rune n-gram of length minGram..maxGram.
// Text is lowercased first, so the lexical channel is case-insensitive.
func charNgrams(text string) []string {
	runes := []rune(strings.ToLower(text))
	if len(runes) < minGram {
		return nil
	}
	grams := make([]string, 0, len(runes)*(maxGram-minGram+1))
	for n := minGram; n <= maxGram; n++ {
		for i := 0; i+n <= len(runes); i++ {
			grams = append(grams, string(runes[i:i+n]))
		}
	}
	return grams
}
