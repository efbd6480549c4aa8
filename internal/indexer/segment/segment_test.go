package segment

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webcrawl/webdex/internal/indexer/index"
	pkgerrors "github.com/webcrawl/webdex/pkg/errors"
)

func testEntries() []index.TermEntry {
	return []index.TermEntry{
		{Term: "alpha", DocFreq: 2, Postings: index.PostingList{{DocID: 1, Weight: 6}, {DocID: 3, Weight: 1}}},
		{Term: "beta", DocFreq: 1, Postings: index.PostingList{{DocID: 2, Weight: 4}}},
	}
}

func TestWriteReadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path, err := Write(dir, 1, testEntries())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, Filename(1)), path)

	c, err := Open(path)
	require.NoError(t, err)
	defer c.Close()

	var got []index.TermEntry
	for {
		entry, err := c.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, entry)
	}
	assert.Equal(t, testEntries(), got)
}

func TestWriteRejectsEmptySegment(t *testing.T) {
	_, err := Write(t.TempDir(), 1, nil)
	assert.Error(t, err)
}

func TestWriteLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	_, err := Write(dir, 7, testEntries())
	require.NoError(t, err)

	dirEntries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, dirEntries, 1)
	assert.Equal(t, Filename(7), dirEntries[0].Name())
}

func TestFailedWriteLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	// NaN has no JSON encoding, so the flush fails mid-stream.
	_, err := Write(dir, 1, []index.TermEntry{
		{Term: "alpha", Postings: index.PostingList{{DocID: 1, Weight: math.NaN()}}},
	})
	require.Error(t, err)

	dirEntries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, dirEntries)
}

func TestListReturnsIDOrder(t *testing.T) {
	dir := t.TempDir()
	for _, id := range []uint64{3, 1, 12, 2} {
		_, err := Write(dir, id, testEntries())
		require.NoError(t, err)
	}
	paths, err := List(dir)
	require.NoError(t, err)
	require.Len(t, paths, 4)
	assert.Equal(t, Filename(1), filepath.Base(paths[0]))
	assert.Equal(t, Filename(12), filepath.Base(paths[3]))
}

func TestOpenMissingSegmentIsIOError(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), Filename(9)))
	assert.ErrorIs(t, err, pkgerrors.ErrSegmentIO)
}

func TestTruncatedSegmentIsIOError(t *testing.T) {
	dir := t.TempDir()
	path, err := Write(dir, 1, testEntries())
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()/2))

	c, err := Open(path)
	if err != nil {
		assert.ErrorIs(t, err, pkgerrors.ErrSegmentIO)
		return
	}
	defer c.Close()
	for {
		_, err := c.Next()
		if err != nil {
			assert.NotEqual(t, io.EOF, err, "truncation must not look like a clean end of stream")
			assert.ErrorIs(t, err, pkgerrors.ErrSegmentIO)
			return
		}
	}
}
