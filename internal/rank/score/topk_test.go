package score

import (
	"math/rand"
	"reflect"
	"sort"
	"testing"
)

func sortedDescending(entries []DocScore) []DocScore {
	out := append([]DocScore(nil), entries...)
	sort.Slice(out, func(i, j int) bool { return better(out[i], out[j]) })
	return out
}

func TestTopKSmallInput(t *testing.T) {
	entries := []DocScore{
		{Row: 2, Score: 1.0},
		{Row: 0, Score: 3.0},
		{Row: 1, Score: 2.0},
	}
	got := TopK(append([]DocScore(nil), entries...), 10)
	want := []DocScore{{Row: 0, Score: 3.0}, {Row: 1, Score: 2.0}, {Row: 2, Score: 1.0}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TopK(k > len) = %v, want %v", got, want)
	}

	if got := TopK(nil, 5); len(got) != 0 {
		t.Errorf("TopK(nil) = %v, want empty", got)
	}
	if got := TopK([]DocScore{{Row: 0, Score: 1}}, 0); got != nil {
		t.Errorf("TopK(k=0) = %v, want nil", got)
	}
	if got := TopK([]DocScore{{Row: 0, Score: 1}}, -3); got != nil {
		t.Errorf("TopK(k<0) = %v, want nil", got)
	}
}

func TestTopKSelectsLargest(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		m := 1 + rng.Intn(500)
		entries := make([]DocScore, m)
		for i := range entries {
			entries[i] = DocScore{Row: int32(i), Score: float64(rng.Intn(50))}
		}
		k := 1 + rng.Intn(m+10)

		want := sortedDescending(entries)
		if k < len(want) {
			want = want[:k]
		}
		got := TopK(append([]DocScore(nil), entries...), k)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("trial %d (m=%d, k=%d): TopK disagrees with full sort\ngot  %v\nwant %v",
				trial, m, k, got, want)
		}
	}
}

func TestTopKDescendingOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	entries := make([]DocScore, 1000)
	for i := range entries {
		entries[i] = DocScore{Row: int32(i), Score: rng.Float64()}
	}
	got := TopK(entries, 25)
	if len(got) != 25 {
		t.Fatalf("len = %d, want 25", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Fatalf("scores increase at %d: %v then %v", i, got[i-1].Score, got[i].Score)
		}
	}
}

// Equal scores break ties by ascending row, so identical inputs always
// produce identical output.
func TestTopKTieBreakDeterministic(t *testing.T) {
	entries := func() []DocScore {
		return []DocScore{
			{Row: 9, Score: 1.0}, {Row: 3, Score: 1.0}, {Row: 7, Score: 1.0},
			{Row: 1, Score: 1.0}, {Row: 5, Score: 1.0}, {Row: 2, Score: 2.0},
		}
	}
	want := []DocScore{{Row: 2, Score: 2.0}, {Row: 1, Score: 1.0}, {Row: 3, Score: 1.0}}
	first := TopK(entries(), 3)
	if !reflect.DeepEqual(first, want) {
		t.Fatalf("TopK = %v, want %v", first, want)
	}
	for i := 0; i < 10; i++ {
		if got := TopK(entries(), 3); !reflect.DeepEqual(got, first) {
			t.Fatalf("TopK not deterministic: %v vs %v", got, first)
		}
	}
}
