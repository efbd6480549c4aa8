package findex

import (
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"os"
	"sort"

	"github.com/webcrawl/webdex/internal/indexer/index"
	pkgerrors "github.com/webcrawl/webdex/pkg/errors"
)

// Reader provides random-access term lookup over a committed final index
// file. It is safe for concurrent use: the dictionary is immutable after
// Open and postings reads use ReadAt.
type Reader struct {
	f        *os.File
	path     string
	header   Header
	dict     []DictEntry
	postBase int64
}

// Open validates and maps the final index at path. A missing file reports
// ErrIndexMissing; a damaged one ErrIndexCorrupt.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pkgerrors.Newf(pkgerrors.ErrIndexMissing, "final index %s not found", path)
		}
		return nil, pkgerrors.Newf(pkgerrors.ErrSegmentIO, "opening final index %s: %v", path, err)
	}
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		f.Close()
		return nil, pkgerrors.Newf(pkgerrors.ErrIndexCorrupt, "reading header of %s: %v", path, err)
	}
	header := Header{
		Magic:      binary.LittleEndian.Uint32(headerBytes[0:4]),
		Version:    binary.LittleEndian.Uint32(headerBytes[4:8]),
		TermCount:  binary.LittleEndian.Uint32(headerBytes[8:12]),
		DocCount:   binary.LittleEndian.Uint32(headerBytes[12:16]),
		DictOffset: int64(binary.LittleEndian.Uint64(headerBytes[16:24])),
		DictSize:   int64(binary.LittleEndian.Uint64(headerBytes[24:32])),
		PostOffset: int64(binary.LittleEndian.Uint64(headerBytes[32:40])),
		PostSize:   int64(binary.LittleEndian.Uint64(headerBytes[40:48])),
	}
	if header.Magic != MagicBytes {
		f.Close()
		return nil, pkgerrors.Newf(pkgerrors.ErrIndexCorrupt, "%s: bad magic bytes %x", path, header.Magic)
	}
	if header.Version != FormatVersion {
		f.Close()
		return nil, pkgerrors.Newf(pkgerrors.ErrIndexCorrupt, "%s: unsupported format version %d", path, header.Version)
	}
	dictBytes := make([]byte, header.DictSize)
	if _, err := f.ReadAt(dictBytes, header.DictOffset); err != nil {
		f.Close()
		return nil, pkgerrors.Newf(pkgerrors.ErrIndexCorrupt, "reading dictionary of %s: %v", path, err)
	}
	footerBytes := make([]byte, FooterSize)
	if _, err := f.ReadAt(footerBytes, header.DictOffset+header.DictSize); err != nil {
		f.Close()
		return nil, pkgerrors.Newf(pkgerrors.ErrIndexCorrupt, "reading footer of %s: %v", path, err)
	}
	wantCRC := binary.LittleEndian.Uint32(footerBytes[0:4])
	if got := crc32.ChecksumIEEE(dictBytes); got != wantCRC {
		f.Close()
		return nil, pkgerrors.Newf(pkgerrors.ErrIndexCorrupt, "%s: dictionary checksum mismatch", path)
	}
	var dict []DictEntry
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		f.Close()
		return nil, pkgerrors.Newf(pkgerrors.ErrIndexCorrupt, "parsing dictionary of %s: %v", path, err)
	}
	return &Reader{
		f:        f,
		path:     path,
		header:   header,
		dict:     dict,
		postBase: header.PostOffset,
	}, nil
}

// Lookup returns the postings list for a term, or nil if the term was never
// indexed. An unknown term is not an error.
func (r *Reader) Lookup(term string) (index.PostingList, error) {
	i := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].Term >= term
	})
	if i >= len(r.dict) || r.dict[i].Term != term {
		return nil, nil
	}
	return r.readPostings(r.dict[i])
}

// DocFrequency returns the number of distinct documents containing the term,
// 0 if unseen. It needs only the dictionary, not the postings region.
func (r *Reader) DocFrequency(term string) int {
	i := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].Term >= term
	})
	if i >= len(r.dict) || r.dict[i].Term != term {
		return 0
	}
	return r.dict[i].DocFreq
}

// DocCount returns the corpus size N recorded at commit time.
func (r *Reader) DocCount() int {
	return int(r.header.DocCount)
}

// TermCount returns the number of distinct terms in the index.
func (r *Reader) TermCount() int {
	return len(r.dict)
}

// Iterate streams every term entry in term order. Used by integrity checks
// and tests; query traffic goes through Lookup.
func (r *Reader) Iterate(fn func(index.TermEntry) error) error {
	for _, de := range r.dict {
		postings, err := r.readPostings(de)
		if err != nil {
			return err
		}
		if err := fn(index.TermEntry{Term: de.Term, DocFreq: de.DocFreq, Postings: postings}); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) readPostings(de DictEntry) (index.PostingList, error) {
	blob := make([]byte, de.PostLen)
	if _, err := r.f.ReadAt(blob, r.postBase+de.PostOffset); err != nil {
		return nil, pkgerrors.Newf(pkgerrors.ErrIndexCorrupt, "reading postings for %q: %v", de.Term, err)
	}
	var postings index.PostingList
	if err := json.Unmarshal(blob, &postings); err != nil {
		return nil, pkgerrors.Newf(pkgerrors.ErrIndexCorrupt, "parsing postings for %q: %v", de.Term, err)
	}
	return postings, nil
}

func (r *Reader) Close() error {
	return r.f.Close()
}
