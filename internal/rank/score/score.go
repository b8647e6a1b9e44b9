// Package score computes sparse query-document similarity and extracts
// the top-k highest scoring documents.
package score

import (
	"fmt"

	"github.com/harrier-search/harrier/internal/rank/index"
	"github.com/harrier-search/harrier/internal/rank/vectorize"
	apperrors "github.com/harrier-search/harrier/pkg/errors"
)

// DocScore pairs an internal document row with its inner-product score.
type DocScore struct {
	Row   int32
	Score float64
}

// Scores computes the inner product of q against every document column,
// returning an entry for exactly the documents that share at least one
// nonzero bucket with the query. Documents with no overlap are absent,
// not present with score zero. Pure function; the order of the returned
// slice is unspecified (TopK imposes the final order).
func Scores(q vectorize.SparseVector, idx *index.Index) []DocScore {
	acc := make(map[int32]float64)
	for i, b := range q.Buckets {
		w := q.Weights[i]
		cols, vals := idx.Row(b)
		for j, c := range cols {
			acc[int32(c)] += w * vals[j]
		}
	}
	out := make([]DocScore, 0, len(acc))
	for row, s := range acc {
		out = append(out, DocScore{Row: row, Score: s})
	}
	return out
}

// ScoreDocument returns the scalar similarity between q and one named
// document: zero when the document shares no bucket with the query, and
// ErrUnknownDocument when docID is not in the index.
func ScoreDocument(q vectorize.SparseVector, idx *index.Index, docID string) (float64, error) {
	row, ok := idx.RowOf(docID)
	if !ok {
		return 0, fmt.Errorf("%w: %q", apperrors.ErrUnknownDocument, docID)
	}
	col := uint32(row)
	var s float64
	for i, b := range q.Buckets {
		cols, vals := idx.Row(b)
		// Columns are ascending within a row, so the scan can stop as
		// soon as it passes the target document.
		for j, c := range cols {
			if c > col {
				break
			}
			if c == col {
				s += q.Weights[i] * vals[j]
				break
			}
		}
	}
	return s, nil
}
