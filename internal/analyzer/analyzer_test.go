package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html>
<head>
<title>Machine Learning</title>
<script>var hidden = "nope";</script>
</head>
<body>
<h1>Overview</h1>
<p>Plain text with <b>bold words</b> inside.</p>
<h2>Details <strong>matter</strong></h2>
<style>.x { color: red }</style>
</body>
</html>`

func TestExtractTagsRunsByClass(t *testing.T) {
	runs, err := Extract(page)
	require.NoError(t, err)

	byClass := make(map[Class][]string)
	for _, run := range runs {
		byClass[run.Class] = append(byClass[run.Class], run.Text)
	}

	assert.Equal(t, []string{"Machine Learning"}, byClass[ClassTitle])
	assert.Contains(t, byClass[ClassHeading], "Overview")
	assert.Contains(t, byClass[ClassBold], "bold words")
	assert.Contains(t, byClass[ClassBody], "Plain text with ")
}

// Bold nested inside a heading keeps the heading class: the innermost
// significant ancestor wins only when the text is otherwise plain body.
func TestExtractBoldInsideHeadingStaysHeading(t *testing.T) {
	runs, err := Extract(page)
	require.NoError(t, err)

	for _, run := range runs {
		if run.Text == "matter" {
			assert.Equal(t, ClassHeading, run.Class)
			return
		}
	}
	t.Fatal("expected a run for the nested bold text")
}

func TestExtractSkipsScriptAndStyle(t *testing.T) {
	runs, err := Extract(page)
	require.NoError(t, err)

	for _, run := range runs {
		assert.NotContains(t, run.Text, "hidden")
		assert.NotContains(t, run.Text, "color")
	}
}

func TestExtractEmptyDocument(t *testing.T) {
	runs, err := Extract("")
	require.NoError(t, err)
	assert.Empty(t, runs)
}
