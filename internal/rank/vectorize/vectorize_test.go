package vectorize

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/harrier-search/harrier/internal/rank/hash"
	"github.com/harrier-search/harrier/internal/tokenize"
	apperrors "github.com/harrier-search/harrier/pkg/errors"
)

// fakeStats is a collection description with scripted document
// frequencies.
type fakeStats struct {
	hashSize   uint32
	ngramOrder int
	numDocs    int
	docFreqs   []uint32
}

func (f fakeStats) HashSize() uint32   { return f.hashSize }
func (f fakeStats) NgramOrder() int    { return f.ngramOrder }
func (f fakeStats) NumDocs() int       { return f.numDocs }
func (f fakeStats) DocFreq(b uint32) uint32 {
	if int(b) < len(f.docFreqs) {
		return f.docFreqs[b]
	}
	return 0
}

// uniformStats gives every bucket the same document frequency.
func uniformStats(hashSize uint32, ngramOrder, numDocs int, df uint32) fakeStats {
	freqs := make([]uint32, hashSize)
	for i := range freqs {
		freqs[i] = df
	}
	return fakeStats{hashSize: hashSize, ngramOrder: ngramOrder, numDocs: numDocs, docFreqs: freqs}
}

func TestIDFClampsAtZero(t *testing.T) {
	// df above half the collection makes the raw log negative.
	if got := IDF(10, 6); got != 0 {
		t.Errorf("IDF(10, 6) = %v, want 0", got)
	}
	if got := IDF(2, 2); got != 0 {
		t.Errorf("IDF(2, 2) = %v, want 0", got)
	}
	want := math.Log((10 - 2 + 0.5) / 2.5)
	if got := IDF(10, 2); math.Abs(got-want) > 1e-12 {
		t.Errorf("IDF(10, 2) = %v, want %v", got, want)
	}
}

func TestTFSmoothing(t *testing.T) {
	if got := TF(1); math.Abs(got-math.Log(2)) > 1e-12 {
		t.Errorf("TF(1) = %v, want ln 2", got)
	}
	if got := TF(0); got != 0 {
		t.Errorf("TF(0) = %v, want 0", got)
	}
}

func TestFromTokensWeights(t *testing.T) {
	stats := uniformStats(1<<20, 1, 10, 2)
	v := New(stats, tokenize.NewSimple(), true)

	vec, err := v.FromTokens([]string{"alpha", "alpha", "bravo"})
	if err != nil {
		t.Fatalf("FromTokens: %v", err)
	}
	if vec.Len() != 2 {
		t.Fatalf("Len = %d, want 2 (alpha, bravo)", vec.Len())
	}

	idf := IDF(10, 2)
	byBucket := map[uint32]float64{}
	for i, b := range vec.Buckets {
		byBucket[b] = vec.Weights[i]
	}
	alphaBucket := hash.Bucket("alpha", stats.hashSize)
	bravoBucket := hash.Bucket("bravo", stats.hashSize)
	if got, want := byBucket[alphaBucket], TF(2)*idf; math.Abs(got-want) > 1e-12 {
		t.Errorf("alpha weight = %v, want %v", got, want)
	}
	if got, want := byBucket[bravoBucket], TF(1)*idf; math.Abs(got-want) > 1e-12 {
		t.Errorf("bravo weight = %v, want %v", got, want)
	}

	for i := 1; i < vec.Len(); i++ {
		if vec.Buckets[i] <= vec.Buckets[i-1] {
			t.Fatalf("buckets not strictly ascending: %v", vec.Buckets)
		}
	}
	for _, w := range vec.Weights {
		if w <= 0 {
			t.Fatalf("non-positive weight materialized: %v", vec.Weights)
		}
	}
}

func TestFromTextDeterministic(t *testing.T) {
	v := New(uniformStats(1<<16, 2, 100, 3), tokenize.NewSimple(), true)
	first, err := v.FromText("Neural networks for ranking")
	if err != nil {
		t.Fatalf("FromText: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := v.FromText("Neural networks for ranking")
		if err != nil {
			t.Fatalf("FromText repeat: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("FromText not deterministic: %v vs %v", first, again)
		}
	}
}

func TestEmptyQueryStrict(t *testing.T) {
	v := New(uniformStats(1<<16, 2, 100, 3), tokenize.NewSimple(), true)
	_, err := v.FromText("the of and")
	if !errors.Is(err, apperrors.ErrEmptyQuery) {
		t.Errorf("strict empty query = %v, want ErrEmptyQuery", err)
	}
	_, err = v.FromText("")
	if !errors.Is(err, apperrors.ErrEmptyQuery) {
		t.Errorf("strict blank query = %v, want ErrEmptyQuery", err)
	}
}

func TestEmptyQueryLenient(t *testing.T) {
	v := New(uniformStats(1<<16, 2, 100, 3), tokenize.NewSimple(), false)
	vec, err := v.FromText("the of and")
	if err != nil {
		t.Fatalf("lenient empty query: %v", err)
	}
	if !vec.IsZero() {
		t.Errorf("lenient empty query vector = %v, want zero", vec)
	}
}

// A query whose every bucket has document frequency equal to the
// collection size weights to exactly zero everywhere: the clamp floors
// the IDF and pruning leaves an empty feature set, which strict mode
// treats identically to an empty query.
func TestAllClampedQueryIsEmpty(t *testing.T) {
	stats := fakeStats{
		hashSize:   8,
		ngramOrder: 1,
		numDocs:    2,
		docFreqs:   []uint32{2, 2, 1, 1, 2, 2, 1, 1},
	}

	// Select candidate tokens that land in the df == 2 buckets. The
	// hash is fixed, so the selection is deterministic.
	candidates := []string{
		"alpha", "bravo", "charlie", "delta", "echo", "foxtrot",
		"golf", "hotel", "india", "juliet", "kilo", "lima",
		"mike", "november", "oscar", "papa", "quebec", "romeo",
	}
	var clamped []string
	for _, tok := range candidates {
		if stats.docFreqs[hash.Bucket(tok, stats.hashSize)] == 2 {
			clamped = append(clamped, tok)
		}
	}
	if len(clamped) == 0 {
		t.Fatal("no candidate token hashes into a df==2 bucket; extend the candidate list")
	}

	strict := New(stats, tokenize.NewSimple(), true)
	if _, err := strict.FromTokens(clamped); !errors.Is(err, apperrors.ErrEmptyQuery) {
		t.Errorf("strict all-clamped query = %v, want ErrEmptyQuery", err)
	}

	lenient := New(stats, tokenize.NewSimple(), false)
	vec, err := lenient.FromTokens(clamped)
	if err != nil {
		t.Fatalf("lenient all-clamped query: %v", err)
	}
	if !vec.IsZero() {
		t.Errorf("lenient all-clamped vector = %v, want zero", vec)
	}

	// A df == 1 bucket survives: IDF(2, 1) = log(1.5/1.5) stays zero
	// too, so in this two-document collection every bucket clamps.
	// That is the documented behavior: in tiny collections only df=0
	// buckets could carry weight.
	if IDF(2, 1) != 0 {
		t.Errorf("IDF(2, 1) = %v, want 0", IDF(2, 1))
	}
}

func TestHashCollisionsCountTogether(t *testing.T) {
	// Hash size 1 forces every n-gram into bucket 0: buckets, not
	// distinct n-grams, are the unit of counting.
	stats := fakeStats{hashSize: 1, ngramOrder: 1, numDocs: 100, docFreqs: []uint32{5}}
	v := New(stats, tokenize.NewSimple(), true)
	vec, err := v.FromTokens([]string{"alpha", "bravo", "charlie"})
	if err != nil {
		t.Fatalf("FromTokens: %v", err)
	}
	if vec.Len() != 1 || vec.Buckets[0] != 0 {
		t.Fatalf("vector = %+v, want single bucket 0", vec)
	}
	want := TF(3) * IDF(100, 5)
	if math.Abs(vec.Weights[0]-want) > 1e-12 {
		t.Errorf("collided weight = %v, want %v", vec.Weights[0], want)
	}
}
