// Package findex reads and writes the final inverted index file.
//
// The format is a single .wdx file: a fixed 64-byte header, a postings
// region holding one JSON blob per term, a term-sorted JSON dictionary
// mapping each term to its postings offset and corpus-wide document
// frequency, and a 32-byte footer carrying a crc32 of the dictionary. The
// dictionary is small enough to hold in memory, and postings are fetched by
// random access, so query-time lookups touch only the terms asked for.
package findex

// MagicBytes identifies a valid .wdx final index file.
const (
	MagicBytes    uint32 = 0x57445831
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
	FooterSize    int    = 32
)

// Header is the fixed-size block at the start of the file. Offsets are
// absolute, sizes in bytes.
type Header struct {
	Magic      uint32
	Version    uint32
	TermCount  uint32
	DocCount   uint32
	DictOffset int64
	DictSize   int64
	PostOffset int64
	PostSize   int64
}

// DictEntry maps a term to its postings blob and document frequency.
type DictEntry struct {
	Term       string `json:"t"`
	PostOffset int64  `json:"o"`
	PostLen    int    `json:"l"`
	DocFreq    int    `json:"d"`
}
