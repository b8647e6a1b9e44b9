package tokenize

import (
	"errors"
	"reflect"
	"testing"

	apperrors "github.com/harrier-search/harrier/pkg/errors"
)

func TestNGramsWindows(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		n      int
		want   []string
	}{
		{
			name:   "unigrams",
			tokens: []string{"a", "b", "c"},
			n:      1,
			want:   []string{"a", "b", "c"},
		},
		{
			name:   "bigrams include lower orders",
			tokens: []string{"a", "b", "c"},
			n:      2,
			want:   []string{"a", "a b", "b", "b c", "c"},
		},
		{
			name:   "order capped by length",
			tokens: []string{"a", "b"},
			n:      5,
			want:   []string{"a", "a b", "b"},
		},
		{
			name:   "empty tokens",
			tokens: nil,
			n:      2,
			want:   []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NGrams(tt.tokens, tt.n, false, nil)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NGrams(%v, %d) = %v, want %v", tt.tokens, tt.n, got, tt.want)
			}
		})
	}
}

func TestNGramsUncased(t *testing.T) {
	got := NGrams([]string{"Foo", "BAR"}, 1, true, nil)
	want := []string{"foo", "bar"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NGrams uncased = %v, want %v", got, want)
	}
}

func TestNGramsStopwordFilter(t *testing.T) {
	got := NGrams([]string{"the", "quick", "fox"}, 2, true, FilterStopNGrams)
	want := []string{"quick", "quick fox", "fox"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NGrams filtered = %v, want %v", got, want)
	}
}

// Punctuation tokens survive tokenization but poison every window they
// appear in, so no bigram ever spans punctuation.
func TestNGramsPunctuationBlocksWindows(t *testing.T) {
	got := NGrams([]string{"foo", "-", "bar"}, 2, true, FilterStopNGrams)
	want := []string{"foo", "bar"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NGrams across punctuation = %v, want %v", got, want)
	}
}

func TestFilterStopNGrams(t *testing.T) {
	tests := []struct {
		gram []string
		keep bool
	}{
		{[]string{"fox"}, true},
		{[]string{"the"}, false},
		{[]string{"The"}, false},
		{[]string{"quick", "fox"}, true},
		{[]string{"quick", "the"}, false},
		{[]string{"..."}, false},
		{[]string{"c++"}, true},
		{[]string{"3.14"}, true},
	}
	for _, tt := range tests {
		if got := FilterStopNGrams(tt.gram); got != tt.keep {
			t.Errorf("FilterStopNGrams(%v) = %v, want %v", tt.gram, got, tt.keep)
		}
	}
}

func TestSimpleTokenize(t *testing.T) {
	tok := NewSimple()
	got, err := tok.Tokenize("Hello, world!")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []string{"Hello", ",", "world", "!"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
	if !tok.Concurrent() {
		t.Error("Simple tokenizer must report Concurrent() == true")
	}
}

func TestSimpleTokenizeWhitespaceOnly(t *testing.T) {
	tok := NewSimple()
	got, err := tok.Tokenize("  \t\n ")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Tokenize whitespace = %v, want none", got)
	}
}

func TestNormalizeDecomposes(t *testing.T) {
	if got := Normalize("café"); got != "café" {
		t.Errorf("Normalize = %q, want %q", got, "café")
	}
	if got := Normalize("plain"); got != "plain" {
		t.Errorf("Normalize(plain) = %q", got)
	}
}

func TestNewTokenizer(t *testing.T) {
	if _, err := New("simple"); err != nil {
		t.Errorf("New(simple): %v", err)
	}
	if _, err := New(""); err != nil {
		t.Errorf("New(default): %v", err)
	}
	if _, err := New("process"); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("New(process) without command: err = %v, want ErrInvalidInput", err)
	}
	if _, err := New("nope"); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("New(nope): err = %v, want ErrInvalidInput", err)
	}
}
