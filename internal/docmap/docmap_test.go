package docmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/webcrawl/webdex/pkg/errors"
)

func sampleMap() *Map {
	m := New()
	m.Add(1, "https://a.example/page")
	m.Add(2, "https://b.example/page")
	m.Add(3, "https://c.example/page")
	return m
}

func TestMapResolve(t *testing.T) {
	m := sampleMap()

	url, err := m.Resolve(2)
	require.NoError(t, err)
	assert.Equal(t, "https://b.example/page", url)

	_, err = m.Resolve(99)
	assert.ErrorIs(t, err, pkgerrors.ErrUnknownDoc)

	id, ok := m.ID("https://c.example/page")
	assert.True(t, ok)
	assert.Equal(t, int64(3), id)

	_, ok = m.ID("https://never.example")
	assert.False(t, ok)

	assert.Equal(t, 3, m.Len())
}

func TestStoreRoundtrip(t *testing.T) {
	for _, backend := range []string{"json", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "doc_map."+backend)
			store, err := OpenStore(backend, path)
			require.NoError(t, err)

			want := sampleMap()
			require.NoError(t, store.Save(want))

			got, err := store.Load()
			require.NoError(t, err)
			assert.Equal(t, want.Len(), got.Len())
			for id := int64(1); id <= 3; id++ {
				wantURL, err := want.Resolve(id)
				require.NoError(t, err)
				gotURL, err := got.Resolve(id)
				require.NoError(t, err)
				assert.Equal(t, wantURL, gotURL)
			}
		})
	}
}

func TestStoreSaveOverwrites(t *testing.T) {
	for _, backend := range []string{"json", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "doc_map."+backend)
			store, err := OpenStore(backend, path)
			require.NoError(t, err)

			require.NoError(t, store.Save(sampleMap()))

			small := New()
			small.Add(1, "https://only.example")
			require.NoError(t, store.Save(small))

			got, err := store.Load()
			require.NoError(t, err)
			assert.Equal(t, 1, got.Len())
			_, err = got.Resolve(2)
			assert.ErrorIs(t, err, pkgerrors.ErrUnknownDoc)
		})
	}
}

func TestStoreLoadMissing(t *testing.T) {
	for _, backend := range []string{"json", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			store, err := OpenStore(backend, filepath.Join(t.TempDir(), "absent"))
			require.NoError(t, err)
			_, err = store.Load()
			assert.ErrorIs(t, err, pkgerrors.ErrIndexMissing)
		})
	}
}

func TestOpenStoreUnknownBackend(t *testing.T) {
	_, err := OpenStore("etcd", "x")
	assert.ErrorIs(t, err, pkgerrors.ErrConfig)
}

func TestRebuildReproducesIngestionIDs(t *testing.T) {
	corpusDir := t.TempDir()
	docs := map[string]string{
		"a.json": `{"url":"https://a.example","content":"a"}`,
		"b.json": `{"url":"https://b.example","content":"b"}`,
		"c.json": `{"url":"https://c.example","content":"c"}`,
	}
	for name, body := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(corpusDir, name), []byte(body), 0644))
	}

	first, err := Rebuild(corpusDir)
	require.NoError(t, err)
	second, err := Rebuild(corpusDir)
	require.NoError(t, err)

	assert.Equal(t, 3, first.Len())
	for id := int64(1); id <= 3; id++ {
		firstURL, err := first.Resolve(id)
		require.NoError(t, err)
		secondURL, err := second.Resolve(id)
		require.NoError(t, err)
		assert.Equal(t, firstURL, secondURL)
	}
	url, err := first.Resolve(1)
	require.NoError(t, err)
	assert.Equal(t, "https://a.example", url)
}
