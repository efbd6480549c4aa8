package index

import "sort"

// entryOverhead approximates the map and posting bookkeeping cost per
// (term, doc) pair when estimating memory use.
const entryOverhead = 64

// Accumulator collects weighted term frequencies for the current batch of
// documents. Each builder worker owns exactly one Accumulator, so it is not
// synchronised.
type Accumulator struct {
	terms    map[string]map[int64]float64
	docCount int
	size     int64
}

func NewAccumulator() *Accumulator {
	return &Accumulator{
		terms: make(map[string]map[int64]float64),
	}
}

// AddDocument folds one document's term -> weight map into the batch. A
// document is always added whole, so its postings can never span two
// segments.
func (a *Accumulator) AddDocument(docID int64, termWeights map[string]float64) {
	for term, weight := range termWeights {
		docs, ok := a.terms[term]
		if !ok {
			docs = make(map[int64]float64)
			a.terms[term] = docs
			a.size += int64(len(term)) + entryOverhead
		}
		if _, seen := docs[docID]; !seen {
			a.size += 8 + 8 + entryOverhead
		}
		docs[docID] += weight
	}
	a.docCount++
}

// Snapshot returns the batch as term-sorted entries with doc-id-sorted
// postings, ready to be written as one partial segment.
func (a *Accumulator) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(a.terms))
	for term, docs := range a.terms {
		postings := make(PostingList, 0, len(docs))
		for docID, weight := range docs {
			postings = append(postings, Posting{DocID: docID, Weight: weight})
		}
		sort.Slice(postings, func(i, j int) bool {
			return postings[i].DocID < postings[j].DocID
		})
		entries = append(entries, TermEntry{
			Term:     term,
			DocFreq:  len(postings),
			Postings: postings,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// TermCount returns the number of unique terms in the batch.
func (a *Accumulator) TermCount() int {
	return len(a.terms)
}

// DocCount returns the number of documents folded into the batch.
func (a *Accumulator) DocCount() int {
	return a.docCount
}

// Size returns the estimated byte footprint of the batch.
func (a *Accumulator) Size() int64 {
	return a.size
}

// Reset clears all batch state after a flush.
func (a *Accumulator) Reset() {
	a.terms = make(map[string]map[int64]float64)
	a.docCount = 0
	a.size = 0
}
