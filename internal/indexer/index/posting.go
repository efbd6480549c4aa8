// Package index defines the posting data model and the bounded in-memory
// accumulator that backs partial segment flushes.
package index

// Posting links a term to one document with the accumulated structural
// weight of its occurrences there.
type Posting struct {
	DocID  int64   `json:"d"`
	Weight float64 `json:"w"`
}

type PostingList []Posting

// TermEntry is one term with its postings, sorted by doc id. DocFreq is
// populated by the merge when the entry is corpus-global; partial segment
// entries leave it at the batch-local postings length.
type TermEntry struct {
	Term     string
	DocFreq  int
	Postings PostingList
}

// Mass returns the total weighted occurrence mass of the entry. Conservation
// of mass across flush and merge is the pipeline's core invariant.
func (e TermEntry) Mass() float64 {
	var sum float64
	for _, p := range e.Postings {
		sum += p.Weight
	}
	return sum
}
