// Package engine orchestrates knowledge routing, tiered storage, retrieval
// and access-pattern optimization over a durable SQLite mirror.
package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/lazypower/stratum/internal/analyzer"
	"github.com/lazypower/stratum/internal/archive"
	"github.com/lazypower/stratum/internal/knowledge"
	"github.com/lazypower/stratum/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Options tune engine behavior. Zero values take defaults.
type Options struct {
	MaxResults      int      // default retrieval result cap
	HotCeiling      int      // max hot-tier entries before LRU eviction
	LinkThreshold   int      // shared tags required to create an edge
	ExpansionFactor int      // graph expansion cap = factor * maxResults
	CriticalSources []string // provenance prefixes that boost importance
}

func (o Options) withDefaults() Options {
	if o.MaxResults <= 0 {
		o.MaxResults = 10
	}
	if o.HotCeiling <= 0 {
		o.HotCeiling = 128
	}
	if o.LinkThreshold <= 0 {
		o.LinkThreshold = 2
	}
	if o.ExpansionFactor <= 0 {
		o.ExpansionFactor = 3
	}
	if len(o.CriticalSources) == 0 {
		o.CriticalSources = []string{"system", "config", "core"}
	}
	return o
}

// Engine is an explicitly constructed instance: no globals, so tests can run
// isolated engines side by side. A single mutex guards all mutating paths —
// routing, retrieval (which writes access counters), and optimization.
type Engine struct {
	mu       sync.Mutex
	db       *store.DB
	analyzer analyzer.Client
	queue    *archive.Queue
	rules    []knowledge.RoutingRule
	log      *zap.SugaredLogger
	opts     Options

	// guarded by mu
	graph *knowledge.Graph
	hot   map[string]struct{}
	warm  map[string]struct{}

	optGroup singleflight.Group
	stopCh   chan struct{}
}

// New creates an engine. The analyzer may be nil; routing and retrieval then
// degrade to empty tag lists.
func New(db *store.DB, an analyzer.Client, q *archive.Queue, logger *zap.SugaredLogger, opts Options) *Engine {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if q == nil {
		q = archive.NewQueue(0, logger)
	}
	return &Engine{
		db:       db,
		analyzer: an,
		queue:    q,
		rules:    knowledge.DefaultRules(),
		log:      logger,
		opts:     opts.withDefaults(),
		graph:    knowledge.NewGraph(),
		hot:      make(map[string]struct{}),
		warm:     make(map[string]struct{}),
		stopCh:   make(chan struct{}),
	}
}

// Queue exposes the sync queue for draining.
func (e *Engine) Queue() *archive.Queue { return e.queue }

// Reload repopulates the in-memory graph and tier structures from the
// durable store. Rows with invalid kind or tier are skipped individually;
// partial availability beats total failure.
func (e *Engine) Reload() error {
	items, rejected, err := e.db.LoadItems()
	if err != nil {
		return err
	}
	for _, id := range rejected {
		e.log.Warnw("skipping invalid durable row", "id", id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, it := range items {
		// sync-pending is transitional: the queue membership did not survive
		// the restart, so requeue and settle the item into warm.
		if it.Tier == knowledge.TierSyncPending {
			e.queue.Enqueue(it)
			it.Tier = knowledge.TierWarm
			if err := e.db.SetTier(it.ID, knowledge.TierWarm); err != nil {
				e.log.Warnw("settle sync-pending tier", "id", it.ID, "error", err)
			}
		}
		e.registerLocked(it)
	}

	edges, err := e.db.LoadEdges()
	if err != nil {
		return err
	}
	for _, edge := range edges {
		// AddEdge ignores endpoints that were rejected or archived.
		e.graph.AddEdge(edge.FromID, edge.ToID)
	}

	e.log.Infow("engine reloaded",
		"items", e.graph.Len(), "hot", len(e.hot), "warm", len(e.warm),
		"rejected", len(rejected))
	return nil
}

// Stats is a point-in-time snapshot of engine state.
type Stats struct {
	Items       int `json:"items"`
	Hot         int `json:"hot"`
	Warm        int `json:"warm"`
	Cold        int `json:"cold"`
	Edges       int `json:"edges"`
	QueueDepth  int `json:"queue_depth"`
	Synced      int `json:"synced"`
	DeadLetters int `json:"dead_letters"`
}

// Stats reports tier membership, graph size and queue depth.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	items := e.graph.Len()
	return Stats{
		Items:       items,
		Hot:         len(e.hot),
		Warm:        len(e.warm),
		Cold:        items - len(e.hot) - len(e.warm),
		Edges:       len(e.graph.EdgePairs()),
		QueueDepth:  e.queue.Depth(),
		Synced:      e.queue.SyncedCount(),
		DeadLetters: len(e.queue.DeadLetters()),
	}
}

// analyze derives tags and complexity, degrading to an empty analysis when
// the external extractor is unavailable. Never fatal.
func (e *Engine) analyze(ctx context.Context, text string) analyzer.Analysis {
	if e.analyzer == nil {
		return analyzer.Analysis{}
	}
	an, err := e.analyzer.Analyze(ctx, text)
	if err != nil {
		e.log.Warnw("analyzer unavailable, degrading to empty tags", "error", err)
		return analyzer.Analysis{}
	}
	an.Tags = normalizeTags(an.Tags)
	return an
}

// normalizeTags lowercases, trims and dedupes tags, preserving order.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
