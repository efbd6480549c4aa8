// Package indexer drives the bounded-memory index build: corpus ingestion,
// weighted accumulation, threshold-triggered segment flushes, and the final
// k-way merge.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/webcrawl/webdex/internal/analyzer"
	"github.com/webcrawl/webdex/internal/corpus"
	"github.com/webcrawl/webdex/internal/docmap"
	"github.com/webcrawl/webdex/internal/indexer/index"
	"github.com/webcrawl/webdex/internal/indexer/merge"
	"github.com/webcrawl/webdex/internal/indexer/segment"
	"github.com/webcrawl/webdex/internal/normalizer"
	"github.com/webcrawl/webdex/pkg/config"
	"github.com/webcrawl/webdex/pkg/logger"
	"github.com/webcrawl/webdex/pkg/metrics"
)

// Builder turns a raw corpus directory into a committed final index plus a
// persisted doc map.
type Builder struct {
	cfg     config.Config
	norm    *normalizer.Normalizer
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Result summarises a completed build.
type Result struct {
	Documents int
	Skipped   int
	Segments  int
	Terms     int
	Postings  int64
	DocMap    *docmap.Map
}

// New creates a Builder. m may be nil when metrics are disabled.
func New(cfg config.Config, m *metrics.Metrics) *Builder {
	return &Builder{
		cfg:     cfg,
		norm:    normalizer.New(cfg.Indexer.Weights),
		logger:  logger.WithComponent("builder"),
		metrics: m,
	}
}

// Run executes the full build. Document ingestion fans out to a worker
// pool; each worker owns its accumulator and flushes its own segments with
// ids from one shared counter, so no posting is ever shared between
// workers. The merge starts only after every worker has finished and
// flushed: all-workers-done is a hard precondition, not best effort.
func (b *Builder) Run(ctx context.Context) (*Result, error) {
	segmentsDir := b.cfg.Indexer.SegmentsDir()
	if err := os.MkdirAll(segmentsDir, 0755); err != nil {
		return nil, fmt.Errorf("creating segments directory: %w", err)
	}
	// Stale segments from an abandoned build would pollute the merge.
	if err := segment.Remove(segmentsDir); err != nil {
		return nil, err
	}

	docMap := docmap.New()
	var (
		segmentID       atomic.Uint64
		segmentsFlushed atomic.Int64
		extractSkips    atomic.Int64
	)

	jobs := make(chan corpus.Document, b.cfg.Indexer.Workers*2)
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < b.cfg.Indexer.Workers; i++ {
		g.Go(func() error {
			acc := index.NewAccumulator()
			for doc := range jobs {
				if err := ctx.Err(); err != nil {
					return err
				}
				b.indexDocument(doc, acc, &extractSkips)
				if !b.shouldFlush(acc) {
					continue
				}
				// A batch can hit the document bound without ever producing
				// a term (stopword-only pages). There is nothing to spill,
				// and an empty segment is invalid; drop the batch instead.
				if acc.TermCount() == 0 {
					acc.Reset()
					continue
				}
				if err := b.flush(segmentsDir, &segmentID, acc); err != nil {
					return err
				}
				segmentsFlushed.Add(1)
			}
			// Whatever remains below the threshold still belongs to the
			// index; losing it would break posting conservation.
			if acc.TermCount() > 0 {
				if err := b.flush(segmentsDir, &segmentID, acc); err != nil {
					return err
				}
				segmentsFlushed.Add(1)
			}
			return nil
		})
	}

	var walkStats corpus.Stats
	g.Go(func() error {
		defer close(jobs)
		stats, err := corpus.Walk(b.cfg.Corpus.Dir, func(doc corpus.Document) error {
			docMap.Add(doc.ID, doc.URL)
			select {
			case jobs <- doc:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		walkStats = stats
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.observeIngestion(walkStats, int(extractSkips.Load()))
	b.logger.Info("ingestion complete",
		"documents", walkStats.Documents,
		"skipped", walkStats.Skipped+int(extractSkips.Load()),
		"segments", segmentsFlushed.Load(),
	)

	mergeStats, err := merge.Run(segmentsDir, b.cfg.Indexer.FinalIndexPath(), docMap.Len())
	if err != nil {
		return nil, err
	}
	if b.metrics != nil {
		b.metrics.MergeDuration.Observe(mergeStats.Elapsed.Seconds())
	}

	store, err := docmap.OpenStore(b.cfg.DocMap.Backend, b.cfg.DocMap.ResolvePath(b.cfg.Indexer.DataDir))
	if err != nil {
		return nil, err
	}
	if err := store.Save(docMap); err != nil {
		return nil, err
	}

	return &Result{
		Documents: walkStats.Documents,
		Skipped:   walkStats.Skipped + int(extractSkips.Load()),
		Segments:  mergeStats.Segments,
		Terms:     mergeStats.Terms,
		Postings:  mergeStats.Postings,
		DocMap:    docMap,
	}, nil
}

// indexDocument extracts, normalizes, and folds one document into the
// worker's accumulator. Extraction failures are recorded and skipped; they
// never abort the build, and the document keeps its id and URL mapping.
func (b *Builder) indexDocument(doc corpus.Document, acc *index.Accumulator, skips *atomic.Int64) {
	runs, err := analyzer.Extract(doc.Content)
	if err != nil {
		b.logger.Warn("skipping document with unparseable content",
			"doc_id", doc.ID,
			"url", doc.URL,
			"error", err,
		)
		skips.Add(1)
		return
	}
	termWeights := make(map[string]float64)
	for _, run := range runs {
		for _, word := range normalizer.SplitWords(run.Text) {
			term, weight, ok := b.norm.Normalize(word, run.Class)
			if !ok {
				continue
			}
			termWeights[term] += weight
		}
	}
	acc.AddDocument(doc.ID, termWeights)
}

// shouldFlush reports whether any configured bound is exceeded. Bounds are
// only checked at document boundaries so a document flushes atomically.
func (b *Builder) shouldFlush(acc *index.Accumulator) bool {
	cfg := b.cfg.Indexer
	if cfg.SegmentMaxBytes > 0 && acc.Size() >= cfg.SegmentMaxBytes {
		return true
	}
	if cfg.SegmentMaxTerms > 0 && acc.TermCount() >= cfg.SegmentMaxTerms {
		return true
	}
	if cfg.SegmentMaxDocs > 0 && acc.DocCount() >= cfg.SegmentMaxDocs {
		return true
	}
	return false
}

func (b *Builder) flush(segmentsDir string, segmentID *atomic.Uint64, acc *index.Accumulator) error {
	id := segmentID.Add(1)
	entries := acc.Snapshot()
	path, err := segment.Write(segmentsDir, id, entries)
	if err != nil {
		if b.metrics != nil {
			b.metrics.SegmentsFlushedTotal.WithLabelValues("error").Inc()
		}
		return fmt.Errorf("flushing segment %d: %w", id, err)
	}
	if b.metrics != nil {
		b.metrics.SegmentsFlushedTotal.WithLabelValues("ok").Inc()
		b.metrics.SegmentTermsFlushed.Observe(float64(len(entries)))
	}
	b.logger.Info("segment flushed",
		"segment", strings.TrimPrefix(path, segmentsDir+"/"),
		"terms", len(entries),
		"docs", acc.DocCount(),
		"bytes_estimated", acc.Size(),
	)
	acc.Reset()
	return nil
}

func (b *Builder) observeIngestion(stats corpus.Stats, extractSkips int) {
	if b.metrics == nil {
		return
	}
	b.metrics.DocsIndexedTotal.Add(float64(stats.Documents - extractSkips))
	b.metrics.DocsSkippedTotal.Add(float64(stats.Skipped + extractSkips))
}
