// Package rank composes the retrieval pipeline: tokenizer, feature
// hasher, query vectorizer, similarity scorer, and top-k selector over
// one immutable document index.
package rank

import (
	"log/slog"

	"github.com/harrier-search/harrier/internal/rank/index"
	"github.com/harrier-search/harrier/internal/rank/score"
	"github.com/harrier-search/harrier/internal/rank/vectorize"
	"github.com/harrier-search/harrier/internal/tokenize"
)

// Config is the explicit configuration for a Ranker. There are no
// package-level defaults; everything the pipeline needs is decided here
// at construction time.
type Config struct {
	IndexPath        string
	Strict           bool
	NormalizeVectors bool
	Tokenizer        tokenize.Tokenizer
}

// Ranker owns a loaded index and answers ranking queries against it.
// Safe for concurrent use; multi-worker batches additionally require a
// concurrency-safe tokenizer.
type Ranker struct {
	idx    *index.Index
	vec    *vectorize.Vectorizer
	tok    tokenize.Tokenizer
	logger *slog.Logger
}

// New loads the index bundle at cfg.IndexPath and assembles the
// pipeline around it.
func New(cfg Config) (*Ranker, error) {
	idx, err := index.Load(cfg.IndexPath, cfg.NormalizeVectors)
	if err != nil {
		return nil, err
	}
	return NewWithIndex(idx, cfg.Tokenizer, cfg.Strict), nil
}

// NewWithIndex assembles a Ranker around an already-loaded index.
func NewWithIndex(idx *index.Index, tok tokenize.Tokenizer, strict bool) *Ranker {
	return &Ranker{
		idx:    idx,
		vec:    vectorize.New(idx, tok, strict),
		tok:    tok,
		logger: slog.Default().With("component", "ranker"),
	}
}

// Index exposes the loaded index for health checks and stats gauges.
func (r *Ranker) Index() *index.Index { return r.idx }

// Tokenizer returns the configured tokenizer collaborator.
func (r *Ranker) Tokenizer() tokenize.Tokenizer { return r.tok }

// ClosestDocs returns the top k documents for a raw text query as
// aligned id/score slices, scores non-increasing. Only documents
// sharing at least one hashed feature with the query appear, so fewer
// than k results is common. An all-zero query vector yields an empty
// result in lenient mode and ErrEmptyQuery in strict mode.
func (r *Ranker) ClosestDocs(query string, k int) ([]string, []float64, error) {
	vec, err := r.vec.FromText(query)
	if err != nil {
		return nil, nil, err
	}
	ids, scores := r.closest(vec, k)
	return ids, scores, nil
}

// ClosestDocsTokens is ClosestDocs for a query the caller has already
// tokenized.
func (r *Ranker) ClosestDocsTokens(tokens []string, k int) ([]string, []float64, error) {
	vec, err := r.vec.FromTokens(tokens)
	if err != nil {
		return nil, nil, err
	}
	ids, scores := r.closest(vec, k)
	return ids, scores, nil
}

func (r *Ranker) closest(vec vectorize.SparseVector, k int) ([]string, []float64) {
	top := score.TopK(score.Scores(vec, r.idx), k)
	ids := make([]string, len(top))
	scores := make([]float64, len(top))
	for i, ds := range top {
		ids[i] = r.idx.DocID(ds.Row)
		scores[i] = ds.Score
	}
	return ids, scores
}

// SimilarityWithDocument returns the scalar score between a raw text
// query and one named document: zero when they share no feature,
// ErrUnknownDocument when the id is not in the index.
func (r *Ranker) SimilarityWithDocument(query, docID string) (float64, error) {
	vec, err := r.vec.FromText(query)
	if err != nil {
		return 0, err
	}
	return score.ScoreDocument(vec, r.idx, docID)
}

// TextToSparseVector exposes the weighted query vector for diagnostics
// and testing.
func (r *Ranker) TextToSparseVector(query string) (vectorize.SparseVector, error) {
	return r.vec.FromText(query)
}

// TokensToSparseVector is TextToSparseVector for pre-tokenized input.
func (r *Ranker) TokensToSparseVector(tokens []string) (vectorize.SparseVector, error) {
	return r.vec.FromTokens(tokens)
}
