package score

import (
	"errors"
	"math"
	"testing"

	"github.com/harrier-search/harrier/internal/rank/index"
	"github.com/harrier-search/harrier/internal/rank/vectorize"
	apperrors "github.com/harrier-search/harrier/pkg/errors"
)

// testIndex builds a hand-crafted collection: hash size 4, three
// documents.
//
//	bucket 0: doc 0 (0.5), doc 2 (1.5)
//	bucket 1: doc 1 (2.0)
//	bucket 2: doc 0 (1.0), doc 1 (1.0), doc 2 (1.0)
//	bucket 3: empty
func testIndex(t *testing.T) *index.Index {
	t.Helper()
	idx, err := index.New(index.Parts{
		HashSize:   4,
		NgramOrder: 1,
		DocFreqs:   []uint32{2, 1, 3, 0},
		RowPtr:     []uint64{0, 2, 3, 6, 6},
		Cols:       []uint32{0, 2, 1, 0, 1, 2},
		Vals:       []float64{0.5, 1.5, 2.0, 1.0, 1.0, 1.0},
		IDs:        []string{"doc-a", "doc-b", "doc-c"},
		Rows:       []int32{0, 1, 2},
	}, false)
	if err != nil {
		t.Fatalf("index.New: %v", err)
	}
	return idx
}

func TestScoresSparseProduct(t *testing.T) {
	idx := testIndex(t)
	q := vectorize.SparseVector{
		Buckets: []uint32{0, 1},
		Weights: []float64{2.0, 3.0},
	}
	got := Scores(q, idx)

	want := map[int32]float64{
		0: 2.0 * 0.5, // bucket 0 only
		1: 3.0 * 2.0, // bucket 1 only
		2: 2.0 * 1.5, // bucket 0 only
	}
	if len(got) != len(want) {
		t.Fatalf("Scores returned %d entries, want %d: %v", len(got), len(want), got)
	}
	for _, ds := range got {
		w, ok := want[ds.Row]
		if !ok {
			t.Errorf("unexpected document row %d in result", ds.Row)
			continue
		}
		if math.Abs(ds.Score-w) > 1e-12 {
			t.Errorf("score for row %d = %v, want %v", ds.Row, ds.Score, w)
		}
	}
}

func TestScoresOmitsNonOverlapping(t *testing.T) {
	idx := testIndex(t)
	// Bucket 1 touches only doc-b.
	q := vectorize.SparseVector{Buckets: []uint32{1}, Weights: []float64{1.0}}
	got := Scores(q, idx)
	if len(got) != 1 || got[0].Row != 1 {
		t.Fatalf("Scores = %v, want only row 1", got)
	}
	// Bucket 3 touches nothing.
	empty := Scores(vectorize.SparseVector{Buckets: []uint32{3}, Weights: []float64{1.0}}, idx)
	if len(empty) != 0 {
		t.Fatalf("Scores over empty bucket = %v, want empty", empty)
	}
	// The zero vector scores nothing.
	if got := Scores(vectorize.SparseVector{}, idx); len(got) != 0 {
		t.Fatalf("Scores of zero vector = %v, want empty", got)
	}
}

func TestScoreDocument(t *testing.T) {
	idx := testIndex(t)
	q := vectorize.SparseVector{
		Buckets: []uint32{0, 2},
		Weights: []float64{2.0, 1.0},
	}

	s, err := ScoreDocument(q, idx, "doc-a")
	if err != nil {
		t.Fatalf("ScoreDocument: %v", err)
	}
	if want := 2.0*0.5 + 1.0*1.0; math.Abs(s-want) > 1e-12 {
		t.Errorf("doc-a score = %v, want %v", s, want)
	}

	// doc-b shares only bucket 2 with this query.
	s, err = ScoreDocument(q, idx, "doc-b")
	if err != nil {
		t.Fatalf("ScoreDocument: %v", err)
	}
	if want := 1.0; math.Abs(s-want) > 1e-12 {
		t.Errorf("doc-b score = %v, want %v", s, want)
	}

	// No overlap at all scores zero, not an error.
	s, err = ScoreDocument(vectorize.SparseVector{Buckets: []uint32{3}, Weights: []float64{1}}, idx, "doc-a")
	if err != nil {
		t.Fatalf("ScoreDocument: %v", err)
	}
	if s != 0 {
		t.Errorf("no-overlap score = %v, want 0", s)
	}

	if _, err := ScoreDocument(q, idx, "missing"); !errors.Is(err, apperrors.ErrUnknownDocument) {
		t.Errorf("ScoreDocument(missing) = %v, want ErrUnknownDocument", err)
	}
}

// Bucket 0 holds columns {0, 2}: doc-b (column 1) sits in the gap
// between them, and doc-c is the row's last column. Both shapes must
// survive the early-exit scan over the ascending column list.
func TestScoreDocumentColumnGaps(t *testing.T) {
	idx := testIndex(t)
	q := vectorize.SparseVector{Buckets: []uint32{0}, Weights: []float64{2.0}}

	s, err := ScoreDocument(q, idx, "doc-b")
	if err != nil {
		t.Fatalf("ScoreDocument: %v", err)
	}
	if s != 0 {
		t.Errorf("doc-b score = %v, want 0 (absent from bucket 0)", s)
	}

	s, err = ScoreDocument(q, idx, "doc-c")
	if err != nil {
		t.Fatalf("ScoreDocument: %v", err)
	}
	if want := 2.0 * 1.5; math.Abs(s-want) > 1e-12 {
		t.Errorf("doc-c score = %v, want %v", s, want)
	}
}
