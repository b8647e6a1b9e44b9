// Package tokenize supplies the tokenizer collaborators for the ranking
// pipeline. A Tokenizer splits normalized text into an ordered token
// sequence; n-gram derivation and stopword filtering are shared here so
// the query path and the offline index builder produce identical
// feature strings.
package tokenize

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	apperrors "github.com/harrier-search/harrier/pkg/errors"
)

// Tokenizer splits text into an ordered sequence of tokens.
// Implementations declare whether they tolerate concurrent callers; the
// batch dispatcher refuses multi-worker batches over a tokenizer that
// reports Concurrent() == false.
type Tokenizer interface {
	Tokenize(text string) ([]string, error)
	Concurrent() bool
}

// New returns the named tokenizer. Supported kinds are "simple"
// (Unicode word segmentation, the default) and "process" (external
// tokenizer subprocess; command required).
func New(kind string, command ...string) (Tokenizer, error) {
	switch kind {
	case "", "simple":
		return Simple{}, nil
	case "process":
		if len(command) == 0 {
			return nil, fmt.Errorf("%w: process tokenizer requires a command", apperrors.ErrInvalidInput)
		}
		return NewProcess(command[0], command[1:]...)
	default:
		return nil, fmt.Errorf("%w: unknown tokenizer kind %q", apperrors.ErrInvalidInput, kind)
	}
}

// Normalize applies Unicode canonical decomposition (NFD). The offline
// build normalizes corpus text the same way before tokenizing, so query
// text must pass through here before Tokenize or the hashed features
// will not line up.
func Normalize(text string) string {
	return norm.NFD.String(text)
}

// FilterFunc reports whether an n-gram, given as its window of tokens,
// should be kept.
type FilterFunc func(gram []string) bool

// NGrams derives every n-gram of order 1 through n from tokens, joined
// with single spaces, in window order. Tokens are lower-cased first
// when uncased is set. keep filters each window before joining; nil
// keeps everything.
func NGrams(tokens []string, n int, uncased bool, keep FilterFunc) []string {
	if n < 1 {
		n = 1
	}
	words := tokens
	if uncased {
		words = make([]string, len(tokens))
		for i, tok := range tokens {
			words[i] = strings.ToLower(tok)
		}
	}
	grams := make([]string, 0, len(words)*n)
	for s := 0; s < len(words); s++ {
		for e := s + 1; e <= len(words) && e-s <= n; e++ {
			window := words[s:e]
			if keep != nil && !keep(window) {
				continue
			}
			grams = append(grams, strings.Join(window, " "))
		}
	}
	return grams
}
