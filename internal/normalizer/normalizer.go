// Package normalizer maps raw extracted words to index terms. Indexing and
// query evaluation share this package so query terms always match the terms
// that were indexed.
package normalizer

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball"

	"github.com/webcrawl/webdex/internal/analyzer"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {},
}

// Normalizer turns raw words into (term, weight) pairs using a structural
// weight table. It is stateless after construction and safe for concurrent
// use.
type Normalizer struct {
	weights map[analyzer.Class]float64
}

// New builds a Normalizer from a class -> weight table. Classes missing from
// the table fall back to the body weight, or 1 if that is unset too.
func New(weights map[string]float64) *Normalizer {
	w := make(map[analyzer.Class]float64, len(weights))
	for class, weight := range weights {
		w[analyzer.Class(class)] = weight
	}
	if _, ok := w[analyzer.ClassBody]; !ok {
		w[analyzer.ClassBody] = 1
	}
	return &Normalizer{weights: w}
}

// Normalize lowercases, strips non-alphanumerics, drops stopwords, and stems
// the word. ok is false when the token normalizes to nothing and no term is
// emitted. The returned weight comes from the class table.
func (n *Normalizer) Normalize(rawWord string, class analyzer.Class) (term string, weight float64, ok bool) {
	term, ok = Term(rawWord)
	if !ok {
		return "", 0, false
	}
	weight, found := n.weights[class]
	if !found {
		weight = n.weights[analyzer.ClassBody]
	}
	return term, weight, true
}

// Term normalizes a single raw word with no structural context, as needed on
// the query side. ok is false for tokens that reduce to nothing.
func Term(rawWord string) (string, bool) {
	var b strings.Builder
	for _, r := range strings.ToLower(rawWord) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	w := b.String()
	if w == "" {
		return "", false
	}
	if _, isStop := stopWords[w]; isStop {
		return "", false
	}
	stemmed, err := snowball.Stem(w, "english", true)
	if err != nil || stemmed == "" {
		return "", false
	}
	return stemmed, true
}

// SplitWords splits raw text on non-alphanumeric boundaries. Splitting and
// normalization are separate steps so the builder can weight each word by
// the structural class of the run it came from.
func SplitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Tokenize splits raw text on non-alphanumeric boundaries and normalizes
// each token, dropping the ones that reduce to nothing.
func Tokenize(text string) []string {
	words := SplitWords(text)
	terms := make([]string, 0, len(words))
	for _, word := range words {
		if term, ok := Term(word); ok {
			terms = append(terms, term)
		}
	}
	return terms
}
