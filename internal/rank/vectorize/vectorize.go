// Package vectorize turns tokenized query text into a sparse TF-IDF
// weighted vector over the hashed feature space.
//
// The weighting matches the offline index build exactly:
//
//	tf(b)  = log(1 + count(b))
//	idf(b) = max(0, log((N - Nb + 0.5) / (Nb + 0.5)))
//
// where count(b) is how many of the query's n-grams hashed into bucket
// b, N is the collection size, and Nb is bucket b's document frequency.
// Buckets whose clamped weight is exactly zero are pruned, so a query
// whose every bucket clamps to zero is indistinguishable from a query
// with no valid n-grams: strict mode rejects both as empty, lenient
// mode returns the zero vector for both.
package vectorize

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/harrier-search/harrier/internal/rank/hash"
	"github.com/harrier-search/harrier/internal/tokenize"
	apperrors "github.com/harrier-search/harrier/pkg/errors"
)

// Stats describes the loaded collection as the weighting formula needs
// it. *index.Index satisfies this.
type Stats interface {
	HashSize() uint32
	NgramOrder() int
	NumDocs() int
	DocFreq(bucket uint32) uint32
}

// SparseVector is a query's weighted feature vector: aligned bucket and
// weight slices, buckets ascending and unique, weights strictly
// positive. Absent buckets have weight zero.
type SparseVector struct {
	Buckets []uint32
	Weights []float64
}

// Len returns the number of nonzero entries.
func (v SparseVector) Len() int { return len(v.Buckets) }

// IsZero reports whether the vector has no nonzero entries.
func (v SparseVector) IsZero() bool { return len(v.Buckets) == 0 }

// TF is the smoothed term frequency log(1 + count).
func TF(count uint32) float64 {
	return math.Log1p(float64(count))
}

// IDF is the smoothed inverse document frequency, clamped at zero so
// buckets present in the majority of documents contribute nothing
// rather than a negative weight.
func IDF(numDocs int, docFreq uint32) float64 {
	n := float64(numDocs)
	nb := float64(docFreq)
	idf := math.Log((n - nb + 0.5) / (nb + 0.5))
	if idf < 0 {
		return 0
	}
	return idf
}

// Vectorizer hashes and weights query n-grams against one loaded
// collection. Safe for concurrent use when the tokenizer is.
type Vectorizer struct {
	stats  Stats
	tok    tokenize.Tokenizer
	strict bool
	logger *slog.Logger
}

// New returns a Vectorizer over the given collection. In strict mode a
// query with no weighted features fails with ErrEmptyQuery; otherwise
// it degrades to the zero vector with a logged diagnostic.
func New(stats Stats, tok tokenize.Tokenizer, strict bool) *Vectorizer {
	return &Vectorizer{
		stats:  stats,
		tok:    tok,
		strict: strict,
		logger: slog.Default().With("component", "vectorizer"),
	}
}

// Strict reports whether empty queries are errors.
func (v *Vectorizer) Strict() bool { return v.strict }

// FromText normalizes, tokenizes, and vectorizes raw query text.
func (v *Vectorizer) FromText(query string) (SparseVector, error) {
	tokens, err := v.tok.Tokenize(tokenize.Normalize(query))
	if err != nil {
		return SparseVector{}, fmt.Errorf("tokenizing query: %w", err)
	}
	return v.fromTokens(query, tokens)
}

// FromTokens vectorizes a query the caller has already tokenized. Each
// token is normalized the same way FromText normalizes the raw text.
func (v *Vectorizer) FromTokens(tokens []string) (SparseVector, error) {
	normed := make([]string, len(tokens))
	for i, tok := range tokens {
		normed[i] = tokenize.Normalize(tok)
	}
	return v.fromTokens("", normed)
}

func (v *Vectorizer) fromTokens(query string, tokens []string) (SparseVector, error) {
	grams := tokenize.NGrams(tokens, v.stats.NgramOrder(), true, tokenize.FilterStopNGrams)

	hashSize := v.stats.HashSize()
	counts := make(map[uint32]uint32, len(grams))
	for _, g := range grams {
		counts[hash.Bucket(g, hashSize)]++
	}

	numDocs := v.stats.NumDocs()
	vec := SparseVector{
		Buckets: make([]uint32, 0, len(counts)),
		Weights: make([]float64, 0, len(counts)),
	}
	for b, count := range counts {
		w := TF(count) * IDF(numDocs, v.stats.DocFreq(b))
		if w == 0 {
			continue
		}
		vec.Buckets = append(vec.Buckets, b)
		vec.Weights = append(vec.Weights, w)
	}
	sort.Sort(byBucket(vec))

	if vec.IsZero() {
		if v.strict {
			return SparseVector{}, fmt.Errorf("%w: %q", apperrors.ErrEmptyQuery, query)
		}
		v.logger.Warn("query has no weighted features, returning zero vector",
			"query", query,
			"ngrams", len(grams),
		)
	}
	return vec, nil
}

// byBucket sorts a SparseVector's aligned slices by bucket ascending.
type byBucket SparseVector

func (v byBucket) Len() int           { return len(v.Buckets) }
func (v byBucket) Less(i, j int) bool { return v.Buckets[i] < v.Buckets[j] }
func (v byBucket) Swap(i, j int) {
	v.Buckets[i], v.Buckets[j] = v.Buckets[j], v.Buckets[i]
	v.Weights[i], v.Weights[j] = v.Weights[j], v.Weights[i]
}
