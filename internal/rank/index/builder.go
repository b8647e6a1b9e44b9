package index

import (
	"fmt"

	"github.com/harrier-search/harrier/internal/rank/hash"
	"github.com/harrier-search/harrier/internal/rank/vectorize"
	"github.com/harrier-search/harrier/internal/tokenize"
	apperrors "github.com/harrier-search/harrier/pkg/errors"
)

// Builder accumulates a corpus document by document and assembles the
// weighted matrix. It applies the same tokenizer, n-gram derivation,
// stopword filter, hashing, and TF-IDF formula as the query path, so a
// query and the index it runs against always agree on what a feature
// is. Not safe for concurrent use; building is a single offline pass.
type Builder struct {
	hashSize   uint32
	ngramOrder int
	tok        tokenize.Tokenizer

	ids      []string
	rows     map[string]int32
	counts   []map[uint32]uint32 // per document: bucket -> raw n-gram count
	docFreqs []uint32
}

// NewBuilder creates a Builder over an empty collection.
func NewBuilder(hashSize uint32, ngramOrder int, tok tokenize.Tokenizer) (*Builder, error) {
	if hashSize == 0 {
		return nil, fmt.Errorf("%w: hash size must be positive", apperrors.ErrInvalidInput)
	}
	if ngramOrder < 1 {
		return nil, fmt.Errorf("%w: ngram order must be >= 1", apperrors.ErrInvalidInput)
	}
	return &Builder{
		hashSize:   hashSize,
		ngramOrder: ngramOrder,
		tok:        tok,
		rows:       make(map[string]int32),
		docFreqs:   make([]uint32, hashSize),
	}, nil
}

// Add tokenizes and hashes one document's text and records its bucket
// counts. Document IDs must be unique; a document with no features is
// still a member of the collection (an all-zero column).
func (b *Builder) Add(docID, text string) error {
	if docID == "" {
		return fmt.Errorf("%w: empty document id", apperrors.ErrInvalidInput)
	}
	if _, dup := b.rows[docID]; dup {
		return fmt.Errorf("%w: duplicate document id %q", apperrors.ErrInvalidInput, docID)
	}

	tokens, err := b.tok.Tokenize(tokenize.Normalize(text))
	if err != nil {
		return fmt.Errorf("tokenizing document %q: %w", docID, err)
	}
	grams := tokenize.NGrams(tokens, b.ngramOrder, true, tokenize.FilterStopNGrams)

	counts := make(map[uint32]uint32, len(grams))
	for _, g := range grams {
		counts[hash.Bucket(g, b.hashSize)]++
	}
	for bucket := range counts {
		b.docFreqs[bucket]++
	}

	b.rows[docID] = int32(len(b.ids))
	b.ids = append(b.ids, docID)
	b.counts = append(b.counts, counts)
	return nil
}

// NumDocs returns the number of documents added so far.
func (b *Builder) NumDocs() int { return len(b.ids) }

// Build weights every document's bucket counts with the smoothed,
// clamped TF-IDF formula, prunes zero weights, and assembles the
// immutable Index. The Builder can keep accepting documents afterwards;
// each Build sees the collection as of the call.
func (b *Builder) Build() (*Index, error) {
	if len(b.ids) == 0 {
		return nil, fmt.Errorf("%w: no documents added", apperrors.ErrInvalidInput)
	}
	numDocs := len(b.ids)

	// Weight per document, counting surviving nonzeros per bucket for
	// the CSR row sizes in the same pass.
	weights := make([]map[uint32]float64, numDocs)
	rowLens := make([]uint64, b.hashSize)
	for d, counts := range b.counts {
		w := make(map[uint32]float64, len(counts))
		for bucket, count := range counts {
			tfidf := vectorize.TF(count) * vectorize.IDF(numDocs, b.docFreqs[bucket])
			if tfidf == 0 {
				continue
			}
			w[bucket] = tfidf
			rowLens[bucket]++
		}
		weights[d] = w
	}

	rowPtr := make([]uint64, b.hashSize+1)
	for i, n := range rowLens {
		rowPtr[i+1] = rowPtr[i] + n
	}
	nnz := rowPtr[b.hashSize]

	// Fill bucket-major, documents in row order so columns come out
	// ascending within each row.
	cols := make([]uint32, nnz)
	vals := make([]float64, nnz)
	next := make([]uint64, b.hashSize)
	copy(next, rowPtr[:b.hashSize])
	for d, w := range weights {
		for bucket, tfidf := range w {
			at := next[bucket]
			cols[at] = uint32(d)
			vals[at] = tfidf
			next[bucket] = at + 1
		}
	}
	rowsSeq := make([]int32, numDocs)
	for i := range rowsSeq {
		rowsSeq[i] = int32(i)
	}
	return New(Parts{
		HashSize:   b.hashSize,
		NgramOrder: b.ngramOrder,
		DocFreqs:   append([]uint32(nil), b.docFreqs...),
		RowPtr:     rowPtr,
		Cols:       cols,
		Vals:       vals,
		IDs:        append([]string(nil), b.ids...),
		Rows:       rowsSeq,
	}, false)
}
