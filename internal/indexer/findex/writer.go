package findex

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"

	"github.com/webcrawl/webdex/internal/indexer/index"
)

// Writer streams term entries into a new final index file. Entries must
// arrive in strictly increasing term order; the file becomes visible only on
// Commit, via atomic rename, so an abandoned build never leaves anything a
// query could mistake for a complete index.
type Writer struct {
	f         *os.File
	tmpPath   string
	finalPath string
	dict      []DictEntry
	offset    int64
	lastTerm  string
}

// NewWriter creates the temp file backing the final index at path.
func NewWriter(path string) (*Writer, error) {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("creating temp index file: %w", err)
	}
	if _, err := f.Write(make([]byte, HeaderSize)); err != nil {
		f.Close()
		return nil, fmt.Errorf("reserving index header: %w", err)
	}
	return &Writer{
		f:         f,
		tmpPath:   tmpPath,
		finalPath: path,
		offset:    int64(HeaderSize),
	}, nil
}

// Append writes one merged term entry. The term must be strictly greater
// than the previous one; the merge guarantees this, and the writer enforces
// it so a buggy merge cannot produce duplicate term records.
func (w *Writer) Append(entry index.TermEntry) error {
	if len(w.dict) > 0 && entry.Term <= w.lastTerm {
		return fmt.Errorf("term %q not strictly greater than %q", entry.Term, w.lastTerm)
	}
	blob, err := json.Marshal(entry.Postings)
	if err != nil {
		return fmt.Errorf("marshaling postings for term %q: %w", entry.Term, err)
	}
	if _, err := w.f.Write(blob); err != nil {
		return fmt.Errorf("writing postings for term %q: %w", entry.Term, err)
	}
	w.dict = append(w.dict, DictEntry{
		Term:       entry.Term,
		PostOffset: w.offset - int64(HeaderSize),
		PostLen:    len(blob),
		DocFreq:    entry.DocFreq,
	})
	w.offset += int64(len(blob))
	w.lastTerm = entry.Term
	return nil
}

// Commit writes the dictionary, footer, and header, syncs, and renames the
// temp file into place. totalDocs is the corpus size N recorded for idf.
func (w *Writer) Commit(totalDocs int) error {
	postSize := w.offset - int64(HeaderSize)
	dictData, err := json.Marshal(w.dict)
	if err != nil {
		return fmt.Errorf("marshaling dictionary: %w", err)
	}
	if _, err := w.f.Write(dictData); err != nil {
		return fmt.Errorf("writing dictionary: %w", err)
	}

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(dictData))
	binary.LittleEndian.PutUint64(footer[8:16], uint64(w.offset))
	binary.LittleEndian.PutUint64(footer[16:24], uint64(len(dictData)))
	binary.LittleEndian.PutUint64(footer[24:32], uint64(postSize))
	if _, err := w.f.Write(footer); err != nil {
		return fmt.Errorf("writing footer: %w", err)
	}

	header := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(header[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(w.dict)))
	binary.LittleEndian.PutUint32(header[12:16], uint32(totalDocs))
	binary.LittleEndian.PutUint64(header[16:24], uint64(w.offset))
	binary.LittleEndian.PutUint64(header[24:32], uint64(len(dictData)))
	binary.LittleEndian.PutUint64(header[32:40], uint64(HeaderSize))
	binary.LittleEndian.PutUint64(header[40:48], uint64(postSize))
	if _, err := w.f.WriteAt(header, 0); err != nil {
		return fmt.Errorf("updating index header: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("syncing index file: %w", err)
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("closing index file: %w", err)
	}
	if err := os.Rename(w.tmpPath, w.finalPath); err != nil {
		return fmt.Errorf("renaming index file: %w", err)
	}
	return nil
}

// Abort discards the temp file after a failed merge.
func (w *Writer) Abort() {
	w.f.Close()
	os.Remove(w.tmpPath)
}
