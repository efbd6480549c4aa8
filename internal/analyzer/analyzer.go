// Package analyzer extracts visible text from raw HTML and tags every text
// run with the class of HTML element it came from, so the normalizer can
// weight title and heading terms above plain body text.
package analyzer

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Class identifies the structural origin of a text run.
type Class string

const (
	ClassTitle   Class = "title"
	ClassHeading Class = "heading"
	ClassBold    Class = "bold"
	ClassBody    Class = "body"
)

// Run is one visible text node together with its structural class.
type Run struct {
	Class Class
	Text  string
}

// Extract parses HTML and returns the visible text runs in document order.
// Script, style, and non-title head content are not visible text. A parse
// failure is returned to the caller, which treats it as an ingestion skip.
func Extract(content string) ([]Run, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	var runs []Run
	walk(doc, ClassBody, &runs)
	return runs, nil
}

func walk(n *html.Node, class Class, runs *[]Run) {
	switch n.Type {
	case html.TextNode:
		if strings.TrimSpace(n.Data) != "" {
			*runs = append(*runs, Run{Class: class, Text: n.Data})
		}
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript:
			return
		case atom.Title:
			class = ClassTitle
		case atom.H1, atom.H2, atom.H3:
			class = ClassHeading
		case atom.B, atom.Strong:
			// The innermost significant ancestor wins: bold inside a
			// heading stays a heading.
			if class == ClassBody {
				class = ClassBold
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, class, runs)
	}
}
