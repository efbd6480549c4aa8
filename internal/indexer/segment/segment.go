// Package segment reads and writes partial index segments.
//
// A segment is an immutable, term-sorted batch of postings spilled to disk
// when the in-memory accumulator exceeds its bound. Segments are written
// once, streamed once by the merge, and never mutated. The on-disk form is a
// gzip-compressed stream of JSON records, one term per record; gzip's
// trailing checksum makes truncation detectable at merge time.
package segment

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/webcrawl/webdex/internal/indexer/index"
	pkgerrors "github.com/webcrawl/webdex/pkg/errors"
)

const fileSuffix = ".seg.gz"

// record is the wire form of one term's batch postings.
type record struct {
	Term     string            `json:"t"`
	Postings index.PostingList `json:"p"`
}

// Filename returns the segment file name for an id. Zero-padding keeps the
// lexical directory order equal to the numeric id order.
func Filename(id uint64) string {
	return fmt.Sprintf("seg_%06d%s", id, fileSuffix)
}

// List returns the paths of all segment files under dir, in id order.
func List(dir string) ([]string, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, pkgerrors.Newf(pkgerrors.ErrSegmentIO, "reading segment directory %s: %v", dir, err)
	}
	var paths []string
	for _, e := range dirEntries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), fileSuffix) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Write atomically creates the segment file for id from term-sorted entries.
// It writes to a .tmp file first and renames on success, so a crashed flush
// never leaves a partial segment behind.
func Write(dir string, id uint64, entries []index.TermEntry) (string, error) {
	if len(entries) == 0 {
		return "", fmt.Errorf("cannot write empty segment")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating segment directory: %w", err)
	}
	finalPath := filepath.Join(dir, Filename(id))
	tmpPath := finalPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp segment file: %w", err)
	}
	// A failed flush must not leave a stray .tmp file behind.
	committed := false
	defer func() {
		f.Close()
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	gz := gzip.NewWriter(f)
	enc := json.NewEncoder(gz)
	for _, entry := range entries {
		if err := enc.Encode(record{Term: entry.Term, Postings: entry.Postings}); err != nil {
			return "", fmt.Errorf("encoding postings for term %q: %w", entry.Term, err)
		}
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("finalising segment stream: %w", err)
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("syncing segment file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing segment file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("renaming segment file: %w", err)
	}
	committed = true
	return finalPath, nil
}

// Cursor streams one segment's term entries in on-disk (term-sorted) order.
type Cursor struct {
	path string
	f    *os.File
	gz   *gzip.Reader
	dec  *json.Decoder
}

// Open positions a cursor at the first term of the segment. A missing or
// unreadable file is a segment I/O error: the merge must not proceed without
// every segment.
func Open(path string) (*Cursor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pkgerrors.Newf(pkgerrors.ErrSegmentIO, "opening segment %s: %v", path, err)
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, pkgerrors.Newf(pkgerrors.ErrSegmentIO, "reading segment %s: %v", path, err)
	}
	return &Cursor{
		path: path,
		f:    f,
		gz:   gz,
		dec:  json.NewDecoder(gz),
	}, nil
}

// Next returns the next term entry, or io.EOF after the last one. Any other
// failure (including a truncated stream) is a segment I/O error.
func (c *Cursor) Next() (index.TermEntry, error) {
	var rec record
	if err := c.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return index.TermEntry{}, io.EOF
		}
		return index.TermEntry{}, pkgerrors.Newf(pkgerrors.ErrSegmentIO, "decoding segment %s: %v", c.path, err)
	}
	return index.TermEntry{
		Term:     rec.Term,
		DocFreq:  len(rec.Postings),
		Postings: rec.Postings,
	}, nil
}

// Path returns the file the cursor reads from.
func (c *Cursor) Path() string {
	return c.path
}

func (c *Cursor) Close() error {
	if err := c.gz.Close(); err != nil {
		c.f.Close()
		return err
	}
	return c.f.Close()
}

// Remove deletes all segment files under dir. Used to clear stale segments
// before a rebuild.
func Remove(dir string) error {
	paths, err := List(dir)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing segment %s: %w", p, err)
		}
	}
	return nil
}
