// Package merge combines all partial segments into the single final index
// via an external k-way merge. At most one term entry per segment is held in
// memory at a time, so the merge runs in O(segments) space and
// O(total postings * log segments) time.
package merge

import (
	"container/heap"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/webcrawl/webdex/internal/indexer/findex"
	"github.com/webcrawl/webdex/internal/indexer/index"
	"github.com/webcrawl/webdex/internal/indexer/segment"
	"github.com/webcrawl/webdex/pkg/logger"
)

// Stats summarises a completed merge.
type Stats struct {
	Segments int
	Terms    int
	Postings int64
	Elapsed  time.Duration
}

// Run merges every segment under segmentsDir into a final index at
// finalPath, recording totalDocs as the corpus size. Any unreadable or
// truncated segment aborts the merge with no final index produced or
// overwritten: a silently incomplete index is worse than no index.
func Run(segmentsDir, finalPath string, totalDocs int) (Stats, error) {
	log := logger.WithComponent("merger")
	start := time.Now()

	paths, err := segment.List(segmentsDir)
	if err != nil {
		return Stats{}, err
	}

	cursors := make([]*segment.Cursor, 0, len(paths))
	defer func() {
		for _, c := range cursors {
			c.Close()
		}
	}()
	h := make(cursorHeap, 0, len(paths))
	for _, path := range paths {
		c, err := segment.Open(path)
		if err != nil {
			return Stats{}, err
		}
		cursors = append(cursors, c)
		entry, err := c.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				continue
			}
			return Stats{}, err
		}
		h = append(h, &cursorState{cursor: c, entry: entry})
	}
	heap.Init(&h)

	w, err := findex.NewWriter(finalPath)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Segments: len(paths)}
	for h.Len() > 0 {
		// All cursors presenting the minimum term contribute to this
		// entry, not just the first.
		term := h[0].entry.Term
		merged := make(map[int64]float64)
		for h.Len() > 0 && h[0].entry.Term == term {
			state := h[0]
			for _, p := range state.entry.Postings {
				// A document flushes to exactly one segment, so a
				// duplicate (term, doc) pair across segments should not
				// happen; summing instead of overwriting keeps the mass
				// conserved if it ever does.
				merged[p.DocID] += p.Weight
			}
			entry, err := state.cursor.Next()
			if err != nil {
				if errors.Is(err, io.EOF) {
					heap.Pop(&h)
					continue
				}
				w.Abort()
				return Stats{}, err
			}
			state.entry = entry
			heap.Fix(&h, 0)
		}

		postings := make(index.PostingList, 0, len(merged))
		for docID, weight := range merged {
			postings = append(postings, index.Posting{DocID: docID, Weight: weight})
		}
		sort.Slice(postings, func(i, j int) bool {
			return postings[i].DocID < postings[j].DocID
		})
		if err := w.Append(index.TermEntry{
			Term:     term,
			DocFreq:  len(postings),
			Postings: postings,
		}); err != nil {
			w.Abort()
			return Stats{}, err
		}
		stats.Terms++
		stats.Postings += int64(len(postings))
	}

	if err := w.Commit(totalDocs); err != nil {
		w.Abort()
		return Stats{}, err
	}
	stats.Elapsed = time.Since(start)
	log.Info("merge complete",
		"segments", stats.Segments,
		"terms", stats.Terms,
		"postings", stats.Postings,
		"elapsed", stats.Elapsed,
	)
	return stats, nil
}

// cursorState pairs a segment cursor with its current unconsumed entry.
type cursorState struct {
	cursor *segment.Cursor
	entry  index.TermEntry
}

// cursorHeap orders cursors by current term, then by segment path so merge
// order is deterministic even with equal terms.
type cursorHeap []*cursorState

func (h cursorHeap) Len() int { return len(h) }

func (h cursorHeap) Less(i, j int) bool {
	if h[i].entry.Term != h[j].entry.Term {
		return h[i].entry.Term < h[j].entry.Term
	}
	return h[i].cursor.Path() < h[j].cursor.Path()
}

func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cursorHeap) Push(x interface{}) {
	*h = append(*h, x.(*cursorState))
}

func (h *cursorHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
