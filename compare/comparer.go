package compare

import (
	"context"
	"fmt"
	"log"
	"sort"
)

// SimilarityThreshold is the fixed cutoff for the Similar list: candidates
// ranked below the closest match are reported only at or above this score.
const SimilarityThreshold = 0.7

// Blend weights for the combined score. Fixed design constants.
const (
	semanticWeight = 0.7
	editWeight     = 0.3
)

// TextComparer ranks a fixed corpus of candidate texts against query inputs.
// The corpus and its derived vector space are immutable after construction,
// so a comparer is safe for concurrent read-only use.
type TextComparer struct {
	texts      []string
	vectorizer *Vectorizer
	vectors    [][]float64
	embedder   TokenEmbedder
	logger     *log.Logger
}

// Option configures optional comparer collaborators.
type Option func(*TextComparer)

// WithTokenEmbedder injects the semantic embedding capability. Without it,
// advanced comparisons fail with ErrNoEmbedder.
func WithTokenEmbedder(embedder TokenEmbedder) Option {
	return func(c *TextComparer) {
		c.embedder = embedder
	}
}

// WithLogger attaches an optional logger for construction and batch progress.
func WithLogger(logger *log.Logger) Option {
	return func(c *TextComparer) {
		c.logger = logger
	}
}

// NewTextComparer builds the TF-IDF vector space over the candidate texts and
// precomputes one vector per candidate. Duplicates are allowed and keep their
// corpus positions. An empty corpus fails with ErrEmptyCorpus.
func NewTextComparer(texts []string, opts ...Option) (*TextComparer, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyCorpus
	}
	c := &TextComparer{
		texts: append([]string(nil), texts...),
	}
	for _, opt := range opts {
		opt(c)
	}
	vectorizer, err := NewVectorizer(c.texts)
	if err != nil {
		return nil, fmt.Errorf("fit vector space: %w", err)
	}
	c.vectorizer = vectorizer
	c.vectors = make([][]float64, len(c.texts))
	for i, text := range c.texts {
		c.vectors[i] = vectorizer.Transform(text)
	}
	c.logf("Indexed %d candidate texts (%d n-gram features)", len(c.texts), vectorizer.Dimension())
	return c, nil
}

// Size returns the number of candidate texts in the corpus.
func (c *TextComparer) Size() int {
	return len(c.texts)
}

// Compare scores every candidate against the input and returns the closest
// match plus the remaining candidates at or above SimilarityThreshold, in
// descending score order with ties kept in corpus order. When advanced is
// set the semantic component replaces the lexical one; a missing embedder
// surfaces as ErrNoEmbedder before any scoring happens.
func (c *TextComparer) Compare(ctx context.Context, input string, advanced bool) (Result, error) {
	if advanced && c.embedder == nil {
		return Result{}, ErrNoEmbedder
	}
	inputVec := c.vectorizer.Transform(input)
	matches := make([]Match, len(c.texts))
	for i, text := range c.texts {
		component := CosineSimilarity(inputVec, c.vectors[i])
		if advanced {
			sim, err := SemanticSimilarity(ctx, c.embedder, input, text)
			if err != nil {
				return Result{}, fmt.Errorf("semantic similarity against candidate %d: %w", i, err)
			}
			component = sim
		}
		matches[i] = Match{
			Text:     text,
			Score:    semanticWeight*component + editWeight*EditSimilarity(input, text),
			Position: i,
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	similar := make([]Match, 0, len(matches)-1)
	for _, m := range matches[1:] {
		if m.Score >= SimilarityThreshold {
			similar = append(similar, m)
		}
	}
	return Result{
		Closest: matches[0].Text,
		Score:   matches[0].Score,
		Similar: similar,
	}, nil
}

// CompareAll runs Compare for each input in order.
func (c *TextComparer) CompareAll(ctx context.Context, inputs []string, advanced bool) ([]Result, error) {
	results := make([]Result, len(inputs))
	for i, input := range inputs {
		res, err := c.Compare(ctx, input, advanced)
		if err != nil {
			return nil, fmt.Errorf("compare input %d: %w", i, err)
		}
		results[i] = res
	}
	return results, nil
}

// Close releases the embedder, if any.
func (c *TextComparer) Close() error {
	if c.embedder != nil {
		return c.embedder.Close()
	}
	return nil
}

func (c *TextComparer) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}
