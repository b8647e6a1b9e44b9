package hash

import "testing"

// Reference values are the published MurmurHash3 x86 32-bit, seed 0
// digests. If these move, every persisted index becomes unreadable.
func TestBucketMatchesMurmur3Reference(t *testing.T) {
	tests := []struct {
		token string
		sum   uint32
	}{
		{"", 0x00000000},
		{"hello", 0x248bfa47},
		{"hello, world", 0x149bbb7f},
		{"19 Jan 2038 at 3:14:07 AM", 0xe31e8a70},
		{"The quick brown fox jumps over the lazy dog.", 0x2e4ff723},
	}
	const hashSize = 1 << 24
	for _, tt := range tests {
		got := Bucket(tt.token, hashSize)
		want := tt.sum % hashSize
		if got != want {
			t.Errorf("Bucket(%q, %d) = %d, want %d", tt.token, hashSize, got, want)
		}
	}
}

func TestBucketRange(t *testing.T) {
	tokens := []string{"a", "b", "ab", "the quick", "fox", "über", "東京"}
	for _, size := range []uint32{1, 2, 7, 8, 1 << 20} {
		for _, tok := range tokens {
			if b := Bucket(tok, size); b >= size {
				t.Fatalf("Bucket(%q, %d) = %d, out of range", tok, size, b)
			}
		}
	}
}

func TestBucketDeterministic(t *testing.T) {
	const size = 1 << 16
	for _, tok := range []string{"retrieval", "sparse matrix", ""} {
		first := Bucket(tok, size)
		for i := 0; i < 3; i++ {
			if got := Bucket(tok, size); got != first {
				t.Fatalf("Bucket(%q, %d) not deterministic: %d then %d", tok, size, first, got)
			}
		}
	}
}
