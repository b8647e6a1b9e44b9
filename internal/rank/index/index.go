// Package index holds the immutable in-memory representation of the
// precomputed term-document matrix, its persisted bundle format, and the
// offline builder that produces it.
//
// The matrix is stored CSR-by-bucket: row b covers the documents that
// contain feature bucket b, so scoring a query walks exactly the rows of
// the query's buckets and never touches the rest of the index. After Load
// (or Build) the Index is never mutated and is safe to share across any
// number of concurrent queries without locking.
package index

import (
	"fmt"
	"math"

	apperrors "github.com/harrier-search/harrier/pkg/errors"
)

// Index is the loaded document collection: hashed feature space metadata,
// per-bucket document frequencies, the sparse weight matrix, and the
// bijection between external document IDs and internal row positions.
type Index struct {
	hashSize   uint32
	ngramOrder int

	docFreqs []uint32

	// CSR by bucket: the nonzeros of bucket b live at
	// cols[rowPtr[b]:rowPtr[b+1]] / vals[rowPtr[b]:rowPtr[b+1]],
	// columns ascending within each row.
	rowPtr []uint64
	cols   []uint32
	vals   []float64

	ids  []string         // row index -> external document ID
	rows map[string]int32 // external document ID -> row index
}

// Parts carries the raw decoded sections of a bundle (or the builder's
// output) into New. IDs and Rows are the two aligned dictionary
// sequences: Rows[i] is the internal row index of document IDs[i].
type Parts struct {
	HashSize   uint32
	NgramOrder int
	DocFreqs   []uint32
	RowPtr     []uint64
	Cols       []uint32
	Vals       []float64
	IDs        []string
	Rows       []int32
}

// New validates p and assembles the immutable Index. When normalize is
// set, every document column is scaled to unit L2 norm; zero columns are
// left untouched. All structural violations wrap ErrIndexLoad: a bundle
// that fails here is unusable, not partially usable.
func New(p Parts, normalize bool) (*Index, error) {
	if p.HashSize == 0 {
		return nil, fmt.Errorf("%w: hash size is zero", apperrors.ErrIndexLoad)
	}
	if p.NgramOrder < 1 {
		return nil, fmt.Errorf("%w: ngram order %d, want >= 1", apperrors.ErrIndexLoad, p.NgramOrder)
	}
	if len(p.DocFreqs) != int(p.HashSize) {
		return nil, fmt.Errorf("%w: %d doc freqs for hash size %d",
			apperrors.ErrIndexLoad, len(p.DocFreqs), p.HashSize)
	}
	if len(p.RowPtr) != int(p.HashSize)+1 {
		return nil, fmt.Errorf("%w: %d row pointers for hash size %d",
			apperrors.ErrIndexLoad, len(p.RowPtr), p.HashSize)
	}
	if p.RowPtr[0] != 0 {
		return nil, fmt.Errorf("%w: first row pointer is %d, want 0", apperrors.ErrIndexLoad, p.RowPtr[0])
	}
	for i := 1; i < len(p.RowPtr); i++ {
		if p.RowPtr[i] < p.RowPtr[i-1] {
			return nil, fmt.Errorf("%w: row pointers decrease at bucket %d", apperrors.ErrIndexLoad, i)
		}
	}
	nnz := p.RowPtr[len(p.RowPtr)-1]
	if uint64(len(p.Cols)) != nnz || uint64(len(p.Vals)) != nnz {
		return nil, fmt.Errorf("%w: row pointers cover %d nonzeros, have %d columns and %d values",
			apperrors.ErrIndexLoad, nnz, len(p.Cols), len(p.Vals))
	}
	if len(p.IDs) != len(p.Rows) {
		return nil, fmt.Errorf("%w: %d document ids but %d row indices",
			apperrors.ErrIndexLoad, len(p.IDs), len(p.Rows))
	}

	numDocs := len(p.IDs)
	rows := make(map[string]int32, numDocs)
	ids := make([]string, numDocs)
	seen := make([]bool, numDocs)
	for i, id := range p.IDs {
		row := p.Rows[i]
		if row < 0 || int(row) >= numDocs {
			return nil, fmt.Errorf("%w: document %q has row index %d, want [0, %d)",
				apperrors.ErrIndexLoad, id, row, numDocs)
		}
		if seen[row] {
			return nil, fmt.Errorf("%w: row index %d assigned twice", apperrors.ErrIndexLoad, row)
		}
		if _, dup := rows[id]; dup {
			return nil, fmt.Errorf("%w: duplicate document id %q", apperrors.ErrIndexLoad, id)
		}
		seen[row] = true
		rows[id] = row
		ids[row] = id
	}
	for _, c := range p.Cols {
		if int(c) >= numDocs {
			return nil, fmt.Errorf("%w: matrix column %d out of range for %d documents",
				apperrors.ErrIndexLoad, c, numDocs)
		}
	}

	vals := p.Vals
	if normalize {
		vals = normalizeColumns(p.Cols, p.Vals, numDocs)
	}

	return &Index{
		hashSize:   p.HashSize,
		ngramOrder: p.NgramOrder,
		docFreqs:   p.DocFreqs,
		rowPtr:     p.RowPtr,
		cols:       p.Cols,
		vals:       vals,
		ids:        ids,
		rows:       rows,
	}, nil
}

// normalizeColumns rescales values so each document column has unit L2
// norm. Two passes over the nonzeros; the input slice is not modified.
func normalizeColumns(cols []uint32, vals []float64, numDocs int) []float64 {
	norms := make([]float64, numDocs)
	for i, c := range cols {
		norms[c] += vals[i] * vals[i]
	}
	out := make([]float64, len(vals))
	for i, c := range cols {
		if n := norms[c]; n > 0 {
			out[i] = vals[i] / math.Sqrt(n)
		} else {
			out[i] = vals[i]
		}
	}
	return out
}

// HashSize returns the dimensionality of the hashed feature space.
func (x *Index) HashSize() uint32 { return x.hashSize }

// NgramOrder returns the n-gram order the index was built with. Queries
// must use the same order or their features will not line up.
func (x *Index) NgramOrder() int { return x.ngramOrder }

// NumDocs returns the number of documents in the collection.
func (x *Index) NumDocs() int { return len(x.ids) }

// NNZ returns the number of nonzero weights in the matrix.
func (x *Index) NNZ() int { return len(x.vals) }

// DocFreq returns the number of documents containing bucket b.
func (x *Index) DocFreq(b uint32) uint32 { return x.docFreqs[b] }

// Row returns the nonzeros of bucket b as aligned column/value slices.
// The slices alias the index's storage and must not be modified.
func (x *Index) Row(b uint32) (cols []uint32, vals []float64) {
	lo, hi := x.rowPtr[b], x.rowPtr[b+1]
	return x.cols[lo:hi], x.vals[lo:hi]
}

// DocID returns the external document ID at the given row.
func (x *Index) DocID(row int32) string { return x.ids[row] }

// RowOf returns the row index of the given external document ID.
func (x *Index) RowOf(docID string) (int32, bool) {
	row, ok := x.rows[docID]
	return row, ok
}
