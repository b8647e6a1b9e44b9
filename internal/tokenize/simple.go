package tokenize

import (
	"strings"

	"github.com/clipperhouse/uax29/v2/words"
)

// Simple segments text into words per Unicode UAX #29. Whitespace
// segments are dropped; punctuation segments are kept so that the
// n-gram filter, not the tokenizer, decides which windows survive.
// Dropping punctuation here would fuse tokens across it and produce
// n-grams the index builder never saw. Safe for concurrent use.
type Simple struct{}

func NewSimple() Simple { return Simple{} }

func (Simple) Tokenize(text string) ([]string, error) {
	segs := words.FromString(text)
	var tokens []string
	for segs.Next() {
		tok := segs.Value()
		if strings.TrimSpace(tok) == "" {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

func (Simple) Concurrent() bool { return true }
