// Package parser turns a raw query string into a normalized query plan.
// Query terms go through the same normalizer as indexed terms, so a query
// word always matches the term it was indexed under.
package parser

import (
	"strings"

	"github.com/webcrawl/webdex/internal/normalizer"
	pkgerrors "github.com/webcrawl/webdex/pkg/errors"
)

// Mode is the boolean combination applied across query terms.
type Mode int

const (
	ModeAND Mode = iota
	ModeOR
)

func (m Mode) String() string {
	if m == ModeOR {
		return "OR"
	}
	return "AND"
}

// ParseMode maps a CLI/config mode string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AND", "":
		return ModeAND, nil
	case "OR":
		return ModeOR, nil
	default:
		return ModeAND, pkgerrors.Newf(pkgerrors.ErrConfig, "unknown search mode %q", s)
	}
}

// Plan is a parsed query: distinct normalized terms in first-seen order,
// with each term's occurrence count. Duplicate terms are deduplicated for
// retrieval, but every occurrence still multiplies that term's score
// contribution.
type Plan struct {
	Terms    []string
	Counts   map[string]int
	Mode     Mode
	RawQuery string
}

// Parse splits the query on whitespace, normalizes every token, and drops
// the ones that reduce to nothing. Uppercase AND/OR inside the query switch
// the combination mode, overriding the default.
func Parse(query string, defaultMode Mode) *Plan {
	plan := &Plan{
		Counts:   make(map[string]int),
		Mode:     defaultMode,
		RawQuery: query,
	}
	for _, word := range strings.Fields(query) {
		switch word {
		case "AND":
			plan.Mode = ModeAND
			continue
		case "OR":
			plan.Mode = ModeOR
			continue
		}
		for _, term := range normalizer.Tokenize(word) {
			if plan.Counts[term] == 0 {
				plan.Terms = append(plan.Terms, term)
			}
			plan.Counts[term]++
		}
	}
	return plan
}
