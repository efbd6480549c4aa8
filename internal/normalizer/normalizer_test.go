package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webcrawl/webdex/internal/analyzer"
)

func TestTermLowercasesAndStems(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Running", "run"},
		{"Learning", "learn"},
		{"indexes", "index"},
		{"ACM", "acm"},
		{"42", "42"},
	}
	for _, tt := range tests {
		term, ok := Term(tt.raw)
		require.True(t, ok, "Term(%q)", tt.raw)
		assert.Equal(t, tt.want, term, "Term(%q)", tt.raw)
	}
}

func TestTermDiscardsEmptyAndStopwords(t *testing.T) {
	for _, raw := range []string{"", "...", "!!", "the", "And", "WITH"} {
		_, ok := Term(raw)
		assert.False(t, ok, "Term(%q) should emit nothing", raw)
	}
}

// Stemming must be idempotent so query terms normalized once match index
// terms normalized once.
func TestTermIdempotent(t *testing.T) {
	for _, raw := range []string{"machine", "learning", "engineering", "indexes", "searches"} {
		once, ok := Term(raw)
		require.True(t, ok)
		twice, ok := Term(once)
		require.True(t, ok)
		assert.Equal(t, once, twice, "stem(stem(%q))", raw)
	}
}

func TestNormalizeAppliesClassWeights(t *testing.T) {
	n := New(map[string]float64{
		"title":   6,
		"heading": 4,
		"body":    1,
	})

	term, weight, ok := n.Normalize("Machine", analyzer.ClassTitle)
	require.True(t, ok)
	assert.Equal(t, "machin", term)
	assert.Equal(t, 6.0, weight)

	_, weight, ok = n.Normalize("machine", analyzer.ClassHeading)
	require.True(t, ok)
	assert.Equal(t, 4.0, weight)

	_, weight, ok = n.Normalize("machine", analyzer.ClassBody)
	require.True(t, ok)
	assert.Equal(t, 1.0, weight)

	// Classes missing from the table fall back to the body weight.
	_, weight, ok = n.Normalize("machine", analyzer.ClassBold)
	require.True(t, ok)
	assert.Equal(t, 1.0, weight)

	_, _, ok = n.Normalize("??", analyzer.ClassTitle)
	assert.False(t, ok)
}

func TestTokenizeSplitsOnNonAlphanumerics(t *testing.T) {
	assert.Equal(t, []string{"state", "art"}, Tokenize("state-of-the-art!"))
	assert.Empty(t, Tokenize("  ... "))
	assert.Equal(t, []string{"c3po"}, Tokenize("c3po"))
}
