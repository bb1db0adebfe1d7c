package engine

import (
	"sort"
	"time"

	"github.com/lazypower/stratum/internal/archive"
	"github.com/lazypower/stratum/internal/knowledge"
)

// Report summarizes one optimizer pass.
type Report struct {
	Promoted       int   `json:"promoted"`
	Demoted        int   `json:"demoted"`
	Archived       int   `json:"archived"`
	Evicted        int   `json:"evicted"`
	EdgesPruned    int   `json:"edges_pruned"`
	SyncEnqueued   int   `json:"sync_enqueued"`
	ReclaimedBytes int64 `json:"reclaimed_bytes"`
}

// Optimize is the batch access-pattern pass: applies promotion, demotion and
// archival to every item, re-evaluates sync eligibility, prunes decayed
// edges, and evicts the hot tier down to its ceiling by LRU. It runs under
// the same lock as routing and retrieval; callers are responsible for not
// scheduling overlapping runs (see OptimizeShared).
func (e *Engine) Optimize() (Report, error) {
	now := time.Now()
	var rep Report

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, id := range e.graph.IDs() {
		node := e.graph.Node(id)
		if node == nil {
			continue
		}

		switch {
		case shouldArchive(node, now):
			rep.ReclaimedBytes += int64(len(node.Content))
			delete(e.hot, id)
			delete(e.warm, id)
			e.graph.RemoveNode(id)
			if err := e.db.DeleteEdgesFor(id); err != nil {
				e.log.Warnw("archive: delete edges", "id", id, "error", err)
			}
			if err := e.db.MarkArchived(id); err != nil {
				e.log.Warnw("archive: mark", "id", id, "error", err)
			}
			rep.Archived++
			continue

		case shouldPromote(node, now):
			if err := e.migrateLocked(node, knowledge.TierHot); err != nil {
				e.log.Warnw("promote", "id", id, "error", err)
				continue
			}
			rep.Promoted++

		case shouldDemote(node, now):
			if err := e.migrateLocked(node, knowledge.TierCold); err != nil {
				e.log.Warnw("demote", "id", id, "error", err)
				continue
			}
			rep.Demoted++
		}

		// Post-hoc sync eligibility: frequently accessed items earn a spot
		// in the external archive even if routing skipped them.
		if archive.ShouldSync(node) {
			if e.enqueueLocked(node) {
				rep.SyncEnqueued++
			}
		}
	}

	rep.EdgesPruned = e.pruneEdgesLocked()
	rep.Evicted = e.evictHotLocked(now)

	e.log.Infow("optimize pass",
		"promoted", rep.Promoted, "demoted", rep.Demoted, "archived", rep.Archived,
		"evicted", rep.Evicted, "edges_pruned", rep.EdgesPruned,
		"sync_enqueued", rep.SyncEnqueued, "reclaimed_bytes", rep.ReclaimedBytes)
	return rep, nil
}

// OptimizeShared collapses concurrent optimize triggers into a single run.
func (e *Engine) OptimizeShared() (Report, error) {
	v, err, _ := e.optGroup.Do("optimize", func() (any, error) {
		return e.Optimize()
	})
	if err != nil {
		return Report{}, err
	}
	return v.(Report), nil
}

// enqueueLocked queues an item for sync, rehydrating cold payloads so the
// envelope carries content. Caller holds e.mu.
func (e *Engine) enqueueLocked(node *knowledge.Item) bool {
	it := *node
	if it.Content == "" && it.Tier == knowledge.TierCold {
		stored, err := e.db.GetItem(it.ID)
		if err != nil || stored == nil {
			return false
		}
		it.Content = stored.Content
	}
	return e.queue.Enqueue(&it)
}

// pruneEdgesLocked drops edges whose endpoints no longer share enough tag
// overlap (connection decay). Caller holds e.mu.
func (e *Engine) pruneEdgesLocked() int {
	pruned := 0
	for _, pair := range e.graph.EdgePairs() {
		a := e.graph.Node(pair[0])
		b := e.graph.Node(pair[1])
		if a == nil || b == nil {
			e.graph.RemoveEdge(pair[0], pair[1])
			pruned++
			continue
		}
		if a.SharedTagCount(b.SemanticTags) < e.opts.LinkThreshold {
			e.graph.RemoveEdge(pair[0], pair[1])
			if err := e.db.DeleteEdge(pair[0], pair[1]); err != nil {
				e.log.Warnw("prune edge", "from", pair[0], "to", pair[1], "error", err)
			}
			pruned++
		}
	}
	return pruned
}

// evictHotLocked clears hot-tier entries beyond the configured ceiling,
// least recently used first, demoting them to warm. Caller holds e.mu.
func (e *Engine) evictHotLocked(now time.Time) int {
	if len(e.hot) <= e.opts.HotCeiling {
		return 0
	}

	nodes := make([]*knowledge.Item, 0, len(e.hot))
	for id := range e.hot {
		if n := e.graph.Node(id); n != nil {
			nodes = append(nodes, n)
		}
	}
	// Oldest access first
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].LastAccessedAt.Before(nodes[j].LastAccessedAt)
	})

	evicted := 0
	for _, n := range nodes {
		if len(e.hot) <= e.opts.HotCeiling {
			break
		}
		if err := e.migrateLocked(n, knowledge.TierWarm); err != nil {
			e.log.Warnw("evict", "id", n.ID, "error", err)
			continue
		}
		evicted++
	}
	return evicted
}

// StartTimer runs an optimizer pass now and then on the given interval until
// Stop is called. The serve command owns the single recurring schedule; data
// access is serialized by the engine lock either way.
func (e *Engine) StartTimer(interval time.Duration) {
	if _, err := e.Optimize(); err != nil {
		e.log.Warnw("optimize error", "error", err)
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := e.OptimizeShared(); err != nil {
					e.log.Warnw("optimize error", "error", err)
				}
			case <-e.stopCh:
				return
			}
		}
	}()
}

// Stop shuts down the optimizer timer.
func (e *Engine) Stop() {
	close(e.stopCh)
}
