package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/webcrawl/webdex/pkg/errors"
)

func TestParseModeStrings(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"AND", ModeAND},
		{"and", ModeAND},
		{" Or ", ModeOR},
		{"", ModeAND},
	}
	for _, tt := range tests {
		mode, err := ParseMode(tt.in)
		require.NoError(t, err, "mode %q", tt.in)
		assert.Equal(t, tt.want, mode, "mode %q", tt.in)
	}

	_, err := ParseMode("XOR")
	assert.ErrorIs(t, err, pkgerrors.ErrConfig)
}

func TestParseNormalizesTerms(t *testing.T) {
	plan := Parse("Cristina Lopes", ModeAND)
	assert.Equal(t, []string{"cristina", "lope"}, plan.Terms)
	assert.Equal(t, ModeAND, plan.Mode)
	assert.Equal(t, "Cristina Lopes", plan.RawQuery)
}

func TestParseDropsStopwordsAndEmptyTokens(t *testing.T) {
	plan := Parse("the of !!!", ModeAND)
	assert.Empty(t, plan.Terms)
}

func TestParseDedupesButCountsOccurrences(t *testing.T) {
	plan := Parse("learning machine learning", ModeOR)
	assert.Equal(t, []string{"learn", "machin"}, plan.Terms, "first-seen order, deduplicated")
	assert.Equal(t, 2, plan.Counts["learn"])
	assert.Equal(t, 1, plan.Counts["machin"])
}

func TestParseOperatorOverridesDefaultMode(t *testing.T) {
	plan := Parse("machine OR learning", ModeAND)
	assert.Equal(t, ModeOR, plan.Mode)
	assert.Equal(t, []string{"machin", "learn"}, plan.Terms)

	plan = Parse("machine AND learning", ModeOR)
	assert.Equal(t, ModeAND, plan.Mode)

	// Lowercase "and" is an ordinary word, and a stopword at that.
	plan = Parse("machine and learning", ModeOR)
	assert.Equal(t, ModeOR, plan.Mode)
	assert.Equal(t, []string{"machin", "learn"}, plan.Terms)
}

func TestParseSplitsHyphenatedWords(t *testing.T) {
	plan := Parse("state-of-the-art", ModeAND)
	assert.Equal(t, []string{"state", "art"}, plan.Terms)
}
