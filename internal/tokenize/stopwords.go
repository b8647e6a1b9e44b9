package tokenize

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"i": {}, "me": {}, "my": {}, "myself": {}, "we": {}, "our": {},
	"ours": {}, "ourselves": {}, "you": {}, "your": {}, "yours": {},
	"yourself": {}, "yourselves": {}, "he": {}, "him": {}, "his": {},
	"himself": {}, "she": {}, "her": {}, "hers": {}, "herself": {},
	"it": {}, "its": {}, "itself": {}, "they": {}, "them": {},
	"their": {}, "theirs": {}, "themselves": {}, "what": {},
	"which": {}, "who": {}, "whom": {}, "this": {}, "that": {},
	"these": {}, "those": {}, "am": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"have": {}, "has": {}, "had": {}, "having": {}, "do": {},
	"does": {}, "did": {}, "doing": {}, "a": {}, "an": {},
	"the": {}, "and": {}, "but": {}, "if": {}, "or": {},
	"because": {}, "as": {}, "until": {}, "while": {}, "of": {},
	"at": {}, "by": {}, "for": {}, "with": {}, "about": {},
	"against": {}, "between": {}, "into": {}, "through": {},
	"during": {}, "before": {}, "after": {}, "above": {},
	"below": {}, "to": {}, "from": {}, "up": {}, "down": {},
	"in": {}, "out": {}, "on": {}, "off": {}, "over": {},
	"under": {}, "again": {}, "further": {}, "then": {},
	"once": {}, "here": {}, "there": {}, "when": {}, "where": {},
	"why": {}, "how": {}, "all": {}, "any": {}, "both": {},
	"each": {}, "few": {}, "more": {}, "most": {}, "other": {},
	"some": {}, "such": {}, "no": {}, "nor": {}, "not": {},
	"only": {}, "own": {}, "same": {}, "so": {}, "than": {},
	"too": {}, "very": {}, "s": {}, "t": {}, "can": {},
	"will": {}, "just": {}, "don": {}, "should": {}, "now": {},
	"d": {}, "ll": {}, "m": {}, "o": {}, "re": {}, "ve": {},
	"y": {}, "ain": {}, "aren": {}, "couldn": {}, "didn": {},
	"doesn": {}, "hadn": {}, "hasn": {}, "haven": {}, "isn": {},
	"ma": {}, "mightn": {}, "mustn": {}, "needn": {}, "shan": {},
	"shouldn": {}, "wasn": {}, "weren": {}, "won": {},
	"wouldn": {}, "'ll": {}, "'re": {}, "'s": {}, "'ve": {},
	"amp": {},
}

// FilterStopNGrams keeps an n-gram only when none of its tokens is an
// English stopword or a pure punctuation run. This mirrors the filter
// the index builder applies, so a gram discarded here was never counted
// into doc_freqs either.
func FilterStopNGrams(gram []string) bool {
	for _, tok := range gram {
		if isStopToken(tok) {
			return false
		}
	}
	return true
}

func isStopToken(tok string) bool {
	if _, ok := stopWords[strings.ToLower(tok)]; ok {
		return true
	}
	return isPunctRun(tok)
}

// isPunctRun reports whether tok consists entirely of Unicode
// punctuation (category P). Empty tokens count as punctuation; real
// tokenizers never emit them.
func isPunctRun(tok string) bool {
	for _, r := range tok {
		if !unicode.IsPunct(r) {
			return false
		}
	}
	return true
}
