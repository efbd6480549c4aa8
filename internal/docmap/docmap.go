// Package docmap maintains the doc-id <-> URL mapping built during ingestion
// and persists it next to the final index. Two backends are provided: a JSON
// file keyed by integer doc id and an embedded SQLite database.
package docmap

import (
	"github.com/webcrawl/webdex/internal/corpus"
	pkgerrors "github.com/webcrawl/webdex/pkg/errors"
)

// Map is the in-memory doc-id <-> URL mapping. It is populated by the
// single ingestion goroutine during a build and read-only afterwards, so it
// carries no lock.
type Map struct {
	byID  map[int64]string
	byURL map[string]int64
}

func New() *Map {
	return &Map{
		byID:  make(map[int64]string),
		byURL: make(map[string]int64),
	}
}

// Add records the mapping for one ingested document.
func (m *Map) Add(id int64, url string) {
	m.byID[id] = url
	m.byURL[url] = id
}

// Resolve returns the URL for a doc id. An unknown id means the index and
// the doc map are out of sync, which is surfaced as ErrUnknownDoc.
func (m *Map) Resolve(id int64) (string, error) {
	url, ok := m.byID[id]
	if !ok {
		return "", pkgerrors.Newf(pkgerrors.ErrUnknownDoc, "doc id %d has no URL mapping", id)
	}
	return url, nil
}

// ID returns the doc id for a URL, with ok=false if the URL was never
// ingested.
func (m *Map) ID(url string) (int64, bool) {
	id, ok := m.byURL[url]
	return id, ok
}

// Len returns the corpus size N used by idf.
func (m *Map) Len() int {
	return len(m.byID)
}

// Store persists and restores a Map.
type Store interface {
	Save(m *Map) error
	Load() (*Map, error)
}

// OpenStore selects a persistence backend: "json" or "sqlite".
func OpenStore(backend, path string) (Store, error) {
	switch backend {
	case "json":
		return &jsonStore{path: path}, nil
	case "sqlite":
		return openSQLiteStore(path)
	default:
		return nil, pkgerrors.Newf(pkgerrors.ErrConfig, "unknown doc map backend %q", backend)
	}
}

// Rebuild reconstructs the mapping by re-walking the raw corpus in the same
// deterministic order as the original ingestion. It reproduces doc-id
// assignment exactly because corpus.Walk order is lexical and stable.
func Rebuild(corpusDir string) (*Map, error) {
	m := New()
	_, err := corpus.Walk(corpusDir, func(doc corpus.Document) error {
		m.Add(doc.ID, doc.URL)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}
