package findex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webcrawl/webdex/internal/indexer/index"
	pkgerrors "github.com/webcrawl/webdex/pkg/errors"
)

func writeIndex(t *testing.T, path string, totalDocs int, entries []index.TermEntry) {
	t.Helper()
	w, err := NewWriter(path)
	require.NoError(t, err)
	for _, e := range entries {
		require.NoError(t, w.Append(e))
	}
	require.NoError(t, w.Commit(totalDocs))
}

func testEntries() []index.TermEntry {
	return []index.TermEntry{
		{Term: "alpha", DocFreq: 2, Postings: index.PostingList{{DocID: 1, Weight: 6}, {DocID: 2, Weight: 1}}},
		{Term: "beta", DocFreq: 1, Postings: index.PostingList{{DocID: 2, Weight: 4.5}}},
		{Term: "gamma", DocFreq: 1, Postings: index.PostingList{{DocID: 1, Weight: 2}}},
	}
}

func TestWriterReaderRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "final_index.wdx")
	writeIndex(t, path, 10, testEntries())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 10, r.DocCount())
	assert.Equal(t, 3, r.TermCount())

	postings, err := r.Lookup("alpha")
	require.NoError(t, err)
	assert.Equal(t, testEntries()[0].Postings, postings)

	postings, err = r.Lookup("unknown")
	require.NoError(t, err)
	assert.Nil(t, postings, "unknown term is empty, not an error")

	assert.Equal(t, 2, r.DocFrequency("alpha"))
	assert.Equal(t, 0, r.DocFrequency("unknown"))
}

func TestIterateReturnsTermOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "final_index.wdx")
	writeIndex(t, path, 2, testEntries())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	var got []index.TermEntry
	require.NoError(t, r.Iterate(func(e index.TermEntry) error {
		got = append(got, e)
		return nil
	}))
	assert.Equal(t, testEntries(), got)
}

func TestAppendEnforcesStrictTermOrder(t *testing.T) {
	w, err := NewWriter(filepath.Join(t.TempDir(), "final_index.wdx"))
	require.NoError(t, err)
	defer w.Abort()

	require.NoError(t, w.Append(index.TermEntry{Term: "beta", DocFreq: 1, Postings: index.PostingList{{DocID: 1, Weight: 1}}}))
	assert.Error(t, w.Append(index.TermEntry{Term: "beta", DocFreq: 1, Postings: index.PostingList{{DocID: 2, Weight: 1}}}))
	assert.Error(t, w.Append(index.TermEntry{Term: "alpha", DocFreq: 1, Postings: index.PostingList{{DocID: 3, Weight: 1}}}))
}

func TestOpenMissingIndex(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "final_index.wdx"))
	assert.ErrorIs(t, err, pkgerrors.ErrIndexMissing)
}

func TestOpenRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "final_index.wdx")
	writeIndex(t, path, 1, testEntries())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[0] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err = Open(path)
	assert.ErrorIs(t, err, pkgerrors.ErrIndexCorrupt)
}

func TestOpenDetectsDictionaryCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "final_index.wdx")
	writeIndex(t, path, 1, testEntries())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Flip a bit in the stored dictionary checksum.
	data[len(data)-FooterSize] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err = Open(path)
	assert.ErrorIs(t, err, pkgerrors.ErrIndexCorrupt)
}

func TestAbortLeavesNothingVisible(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "final_index.wdx")
	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(testEntries()[0]))
	w.Abort()

	dirEntries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, dirEntries)
}

func TestEmptyIndexCommits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "final_index.wdx")
	writeIndex(t, path, 0, nil)

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 0, r.TermCount())
	assert.Equal(t, 0, r.DocCount())
}
