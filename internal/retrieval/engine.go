// Package retrieval implements the multi-collection retrieval engine:
// concurrent fan-out over the evidence collections, per-collection score
// normalization, cross-collection merge, and deterministic ordering.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/onco-evidence-engine/internal/domain"
)

// Engine fans expanded queries out over the evidence store.
type Engine struct {
	store    domain.EvidenceStore
	embedder domain.Embedder
	cfg      domain.RetrievalConfig
	weights  map[domain.Collection]float64
	log      *logrus.Logger
}

// NewEngine creates a new retrieval engine.
func NewEngine(store domain.EvidenceStore, embedder domain.Embedder, cfg domain.RetrievalConfig, logger *logrus.Logger) *Engine {
	return &Engine{
		store:    store,
		embedder: embedder,
		cfg:      cfg,
		weights:  cfg.Weights(),
		log:      logger,
	}
}

// searchTask is one (query, collection) pair of the fan-out.
type searchTask struct {
	collection domain.Collection
	vector     []float32
	filter     *domain.SearchFilter
}

// searchOutcome carries a task's hits or its failure.
type searchOutcome struct {
	collection domain.Collection
	hits       []domain.SearchHit
	err        error
}

// Retrieve runs the full batch. Individual collection failures degrade the
// result set; only a total failure of every targeted collection aborts it.
func (e *Engine) Retrieve(ctx context.Context, queries []domain.CollectionQuery) (*domain.ResultSet, error) {
	if len(queries) == 0 {
		return nil, domain.NewAnalysisError(domain.ErrInvalidProfile, "no retrieval queries produced", "")
	}

	tasks, searchCount, err := e.buildTasks(ctx, queries)
	if err != nil {
		return nil, err
	}
	if searchCount == 0 {
		return nil, domain.NewAnalysisError(domain.ErrInvalidProfile, "queries target no collections", "")
	}

	outcomes := e.fanOut(ctx, tasks)

	// Group raw hits per collection; a collection is unavailable when every
	// search against it failed.
	hitsByCollection := make(map[domain.Collection][]domain.SearchHit)
	failures := make(map[domain.Collection]int)
	attempts := make(map[domain.Collection]int)
	for _, outcome := range outcomes {
		attempts[outcome.collection]++
		if outcome.err != nil {
			failures[outcome.collection]++
			e.log.WithFields(logrus.Fields{
				"collection": outcome.collection.String(),
				"error":      outcome.err.Error(),
			}).Warn("Collection search failed")
			continue
		}
		hitsByCollection[outcome.collection] = append(hitsByCollection[outcome.collection], outcome.hits...)
	}

	var unavailable []domain.Collection
	for _, col := range domain.AllCollections() {
		if attempts[col] > 0 && failures[col] == attempts[col] {
			unavailable = append(unavailable, col)
		}
	}
	if len(unavailable) == len(attempts) {
		return nil, domain.NewAnalysisError(domain.ErrSourceUnavailable,
			"all evidence collections are unavailable",
			fmt.Sprintf("%d collections failed", len(unavailable)))
	}

	items := e.mergeAndRank(hitsByCollection)
	if len(items) == 0 && len(unavailable) == 0 {
		return nil, domain.NewAnalysisError(domain.ErrNoEvidenceFound,
			"no evidence matched the profile", "")
	}

	if e.cfg.MaxEvidence > 0 && len(items) > e.cfg.MaxEvidence {
		items = items[:e.cfg.MaxEvidence]
	}

	e.log.WithFields(logrus.Fields{
		"queries":     len(queries),
		"searches":    searchCount,
		"items":       len(items),
		"unavailable": len(unavailable),
	}).Info("Retrieval batch complete")

	return &domain.ResultSet{
		Items:              items,
		UnavailableSources: unavailable,
		QueryCount:         len(queries),
		SearchCount:        searchCount,
	}, nil
}

// buildTasks embeds every query and expands it into per-collection search
// tasks. An embedding failure aborts the batch: without vectors there is
// nothing to search.
func (e *Engine) buildTasks(ctx context.Context, queries []domain.CollectionQuery) ([]searchTask, int, error) {
	var tasks []searchTask
	for _, q := range queries {
		vector, err := e.embedder.EmbedQuery(ctx, q.Text)
		if err != nil {
			return nil, 0, fmt.Errorf("embedding query %q: %w", truncate(q.Text, 60), err)
		}
		for _, col := range q.Collections {
			tasks = append(tasks, searchTask{collection: col, vector: vector, filter: q.Filter})
		}
	}
	return tasks, len(tasks), nil
}

// fanOut runs tasks on a bounded worker pool and gathers every outcome.
func (e *Engine) fanOut(ctx context.Context, tasks []searchTask) []searchOutcome {
	workers := e.cfg.MaxParallelism
	if workers <= 0 {
		workers = 8
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	taskCh := make(chan searchTask)
	outcomeCh := make(chan searchOutcome, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskCh {
				outcomeCh <- e.runSearch(ctx, task)
			}
		}()
	}

	for _, task := range tasks {
		taskCh <- task
	}
	close(taskCh)
	wg.Wait()
	close(outcomeCh)

	outcomes := make([]searchOutcome, 0, len(tasks))
	for outcome := range outcomeCh {
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// runSearch executes one search under the per-search timeout.
func (e *Engine) runSearch(ctx context.Context, task searchTask) searchOutcome {
	searchCtx := ctx
	if e.cfg.SearchTimeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, e.cfg.SearchTimeout)
		defer cancel()
	}
	hits, err := e.store.Search(searchCtx, task.collection, task.vector, e.cfg.TopK, task.filter)
	return searchOutcome{collection: task.collection, hits: hits, err: err}
}

// mergeAndRank normalizes scores per collection, merges across collections,
// dedupes by citation identifier, and applies the total ordering.
func (e *Engine) mergeAndRank(hitsByCollection map[domain.Collection][]domain.SearchHit) []domain.EvidenceItem {
	byIdentifier := make(map[string]domain.EvidenceItem)

	// Fixed collection order so dedupe conflicts resolve identically on
	// every run.
	for _, col := range domain.AllCollections() {
		hits := hitsByCollection[col]
		if len(hits) == 0 {
			continue
		}
		normalized := normalizeScores(hits)
		weight := e.weights[col]
		for i, hit := range hits {
			item := domain.NewEvidenceItem(hit.Document, hit.Similarity)
			item.Score = normalized[i] * weight

			key := item.Citation.Identifier
			existing, ok := byIdentifier[key]
			if !ok || betterItem(item, existing) {
				byIdentifier[key] = item
			}
		}
	}

	items := make([]domain.EvidenceItem, 0, len(byIdentifier))
	for _, item := range byIdentifier {
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Tier != b.Tier {
			return a.Tier < b.Tier
		}
		if !a.Citation.PublicationDate.Equal(b.Citation.PublicationDate) {
			return a.Citation.PublicationDate.After(b.Citation.PublicationDate)
		}
		return a.Citation.Identifier < b.Citation.Identifier
	})
	return items
}

// normalizeScores min-max scales a collection's raw similarities onto
// [0,1] within this batch. A batch with no spread normalizes to 1.0.
func normalizeScores(hits []domain.SearchHit) []float64 {
	min, max := hits[0].Similarity, hits[0].Similarity
	for _, hit := range hits[1:] {
		if hit.Similarity < min {
			min = hit.Similarity
		}
		if hit.Similarity > max {
			max = hit.Similarity
		}
	}

	scores := make([]float64, len(hits))
	if max == min {
		for i := range scores {
			scores[i] = 1.0
		}
		return scores
	}
	for i, hit := range hits {
		scores[i] = (hit.Similarity - min) / (max - min)
	}
	return scores
}

// betterItem decides which duplicate survives: higher normalized score,
// then stronger tier, then lexically smaller id to stay deterministic.
func betterItem(a, b domain.EvidenceItem) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Tier != b.Tier {
		return a.Tier < b.Tier
	}
	return a.ID < b.ID
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n]) + "..."
}
