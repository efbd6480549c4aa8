// Package store exposes read access to a committed final index and its doc
// map. A Store is immutable after Open and safe for arbitrarily many
// concurrent queries.
package store

import (
	"github.com/webcrawl/webdex/internal/docmap"
	"github.com/webcrawl/webdex/internal/indexer/findex"
	"github.com/webcrawl/webdex/internal/indexer/index"
	"github.com/webcrawl/webdex/pkg/config"
	"github.com/webcrawl/webdex/pkg/logger"
)

type Store struct {
	idx  *findex.Reader
	docs *docmap.Map
}

// Open loads the final index and doc map produced by a build. With no
// successful build on disk it returns ErrIndexMissing.
func Open(cfg config.Config) (*Store, error) {
	idx, err := findex.Open(cfg.Indexer.FinalIndexPath())
	if err != nil {
		return nil, err
	}
	dmStore, err := docmap.OpenStore(cfg.DocMap.Backend, cfg.DocMap.ResolvePath(cfg.Indexer.DataDir))
	if err != nil {
		idx.Close()
		return nil, err
	}
	docs, err := dmStore.Load()
	if err != nil {
		idx.Close()
		return nil, err
	}
	if docs.Len() != idx.DocCount() {
		// Postings stay resolvable only while the two artifacts come from
		// the same build.
		logger.WithComponent("store").Warn("doc map and final index disagree on corpus size",
			"doc_map", docs.Len(),
			"index", idx.DocCount(),
		)
	}
	return &Store{idx: idx, docs: docs}, nil
}

// Lookup returns the postings for a term; empty for terms never indexed.
func (s *Store) Lookup(term string) (index.PostingList, error) {
	return s.idx.Lookup(term)
}

// DocFrequency returns how many distinct documents contain the term, 0 if
// unseen.
func (s *Store) DocFrequency(term string) int {
	return s.idx.DocFrequency(term)
}

// TotalDocuments returns the corpus size N used by idf.
func (s *Store) TotalDocuments() int {
	return s.idx.DocCount()
}

// Resolve maps a doc id back to its URL.
func (s *Store) Resolve(docID int64) (string, error) {
	return s.docs.Resolve(docID)
}

func (s *Store) Close() error {
	return s.idx.Close()
}
