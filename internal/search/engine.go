// Package search implements the query engine: parse, normalize, fetch,
// boolean combine, TF-IDF score, rank, truncate.
package search

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/webcrawl/webdex/internal/indexer/index"
	"github.com/webcrawl/webdex/internal/search/parser"
	"github.com/webcrawl/webdex/internal/store"
	pkgerrors "github.com/webcrawl/webdex/pkg/errors"
	"github.com/webcrawl/webdex/pkg/logger"
	"github.com/webcrawl/webdex/pkg/metrics"
)

// ScoredResult is one ranked hit.
type ScoredResult struct {
	DocID int64   `json:"doc_id"`
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

// Result is the ranked answer to one query.
type Result struct {
	Query     string         `json:"query"`
	Mode      string         `json:"mode"`
	TotalHits int            `json:"total_hits"`
	Results   []ScoredResult `json:"results"`
}

// Engine evaluates queries against an immutable Store. It holds no mutable
// state besides the optional result cache, so queries may run concurrently.
type Engine struct {
	store   *store.Store
	cache   *resultCache
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates an Engine. cacheSize <= 0 disables the result cache; m may be
// nil when metrics are disabled.
func New(s *store.Store, cacheSize int, m *metrics.Metrics) *Engine {
	e := &Engine{
		store:   s,
		logger:  logger.WithComponent("query-engine"),
		metrics: m,
	}
	if cacheSize > 0 {
		e.cache = newResultCache(cacheSize)
	}
	return e
}

// Execute runs one query. An empty normalized query yields an empty result,
// not an error; topK <= 0 is a configuration error and fails fast.
func (e *Engine) Execute(ctx context.Context, rawQuery string, mode parser.Mode, topK int) (*Result, error) {
	if topK <= 0 {
		return nil, pkgerrors.Newf(pkgerrors.ErrConfig, "top-k must be positive, got %d", topK)
	}
	if e.cache == nil {
		return e.evaluate(ctx, rawQuery, mode, topK)
	}
	return e.cache.get(cacheKey(rawQuery, mode, topK), e.metrics, func() (*Result, error) {
		return e.evaluate(ctx, rawQuery, mode, topK)
	})
}

func (e *Engine) evaluate(ctx context.Context, rawQuery string, mode parser.Mode, topK int) (*Result, error) {
	start := time.Now()
	plan := parser.Parse(rawQuery, mode)
	result := &Result{
		Query:   rawQuery,
		Mode:    plan.Mode.String(),
		Results: []ScoredResult{},
	}
	if len(plan.Terms) == 0 {
		e.observe(result, start, nil)
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	postingsPerTerm := make(map[string]index.PostingList, len(plan.Terms))
	for _, term := range plan.Terms {
		postings, err := e.store.Lookup(term)
		if err != nil {
			e.observe(result, start, err)
			return nil, err
		}
		if len(postings) > 0 {
			postingsPerTerm[term] = postings
		} else if plan.Mode == parser.ModeAND {
			// Conjunction with an empty postings set is empty.
			e.observe(result, start, nil)
			return result, nil
		}
	}

	var candidates map[int64]struct{}
	switch plan.Mode {
	case parser.ModeAND:
		candidates = intersect(plan.Terms, postingsPerTerm)
	case parser.ModeOR:
		candidates = union(postingsPerTerm)
	}
	result.TotalHits = len(candidates)
	if len(candidates) == 0 {
		e.observe(result, start, nil)
		return result, nil
	}

	scores := e.score(plan, postingsPerTerm, candidates)
	ranked := rank(scores, topK)
	for _, sr := range ranked {
		url, err := e.store.Resolve(sr.DocID)
		if err != nil {
			// Postings referencing an unmapped doc id mean the index and
			// doc map are out of sync.
			e.observe(result, start, err)
			return nil, err
		}
		sr.URL = url
		result.Results = append(result.Results, sr)
	}
	e.observe(result, start, nil)
	return result, nil
}

// score computes TF-IDF for every candidate: the sum over query terms
// present in the doc of weighted term frequency times ln(N / df), with each
// term's contribution multiplied by its occurrence count in the query.
func (e *Engine) score(plan *parser.Plan, postingsPerTerm map[string]index.PostingList, candidates map[int64]struct{}) map[int64]float64 {
	totalDocs := e.store.TotalDocuments()
	scores := make(map[int64]float64, len(candidates))
	for term, postings := range postingsPerTerm {
		df := len(postings)
		if df == 0 || totalDocs == 0 {
			continue
		}
		idf := math.Log(float64(totalDocs) / float64(df))
		queryCount := float64(plan.Counts[term])
		for _, p := range postings {
			if _, ok := candidates[p.DocID]; !ok {
				continue
			}
			scores[p.DocID] += queryCount * p.Weight * idf
		}
	}
	return scores
}

// rank orders by score descending with ties broken by ascending doc id, so
// repeated runs of the same query produce byte-identical output.
func rank(scores map[int64]float64, topK int) []ScoredResult {
	ranked := make([]ScoredResult, 0, len(scores))
	for docID, score := range scores {
		ranked = append(ranked, ScoredResult{
			DocID: docID,
			Score: math.Round(score*1e6) / 1e6,
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].DocID < ranked[j].DocID
	})
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

func intersect(terms []string, postingsPerTerm map[string]index.PostingList) map[int64]struct{} {
	if len(postingsPerTerm) < len(terms) {
		// Some query term matched nothing.
		return nil
	}
	var shortest string
	shortestLen := int(^uint(0) >> 1)
	for term, postings := range postingsPerTerm {
		if len(postings) < shortestLen {
			shortestLen = len(postings)
			shortest = term
		}
	}
	candidates := make(map[int64]struct{}, shortestLen)
	for _, p := range postingsPerTerm[shortest] {
		candidates[p.DocID] = struct{}{}
	}
	for term, postings := range postingsPerTerm {
		if term == shortest {
			continue
		}
		docSet := make(map[int64]struct{}, len(postings))
		for _, p := range postings {
			docSet[p.DocID] = struct{}{}
		}
		for docID := range candidates {
			if _, ok := docSet[docID]; !ok {
				delete(candidates, docID)
			}
		}
	}
	return candidates
}

func union(postingsPerTerm map[string]index.PostingList) map[int64]struct{} {
	result := make(map[int64]struct{})
	for _, postings := range postingsPerTerm {
		for _, p := range postings {
			result[p.DocID] = struct{}{}
		}
	}
	return result
}

func (e *Engine) observe(result *Result, start time.Time, err error) {
	elapsed := time.Since(start)
	if e.metrics != nil {
		e.metrics.SearchLatency.Observe(elapsed.Seconds())
		switch {
		case err != nil:
			e.metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
		case result.TotalHits == 0:
			e.metrics.SearchQueriesTotal.WithLabelValues("zero_result").Inc()
		default:
			e.metrics.SearchQueriesTotal.WithLabelValues("hit").Inc()
		}
	}
	if err == nil {
		e.logger.Debug("query executed",
			"query", result.Query,
			"mode", result.Mode,
			"hits", result.TotalHits,
			"elapsed", elapsed,
		)
	}
}
