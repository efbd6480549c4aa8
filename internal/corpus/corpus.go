// Package corpus reads crawled documents from a directory of JSON envelopes.
//
// The walk is lexical (filepath.WalkDir order) and doc ids are assigned
// sequentially in walk order, so two walks over the same tree always assign
// identical ids. The doc map rebuild path depends on this.
package corpus

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/webcrawl/webdex/pkg/logger"
)

// Document is one crawled page, identified by its ingestion-assigned id.
type Document struct {
	ID      int64
	URL     string
	Content string
}

// envelope is the on-disk JSON shape produced by the crawler.
type envelope struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Stats summarises one walk over the corpus.
type Stats struct {
	Documents int
	Skipped   int
}

// Walk streams every decodable document under dir to fn, assigning doc ids
// from 1 upward in walk order. Files that cannot be read or decoded are
// skipped with a warning and consume no doc id. An error from fn aborts the
// walk.
func Walk(dir string, fn func(Document) error) (Stats, error) {
	log := logger.WithComponent("corpus")
	var stats Stats
	nextID := int64(1)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walking corpus: %w", err)
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("skipping unreadable document", "path", path, "error", err)
			stats.Skipped++
			return nil
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Warn("skipping malformed document", "path", path, "error", err)
			stats.Skipped++
			return nil
		}
		doc := Document{ID: nextID, URL: env.URL, Content: env.Content}
		nextID++
		stats.Documents++
		return fn(doc)
	})
	if err != nil {
		return stats, err
	}
	return stats, nil
}
