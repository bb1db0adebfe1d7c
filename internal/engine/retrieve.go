package engine

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/lazypower/stratum/internal/knowledge"
)

// Result is one ranked retrieval hit. Item is a copy taken under the engine
// lock; callers may hold it freely.
type Result struct {
	Item  knowledge.Item
	Score float64
}

// Per-tier relevance floors: the floor rises with tier speed, so only the
// most promising queries justify the expensive cold-store scan.
const (
	hotFloor  = 0.3
	warmFloor = 0.2
	coldFloor = 0.1
)

// Score given to connected-but-not-directly-matched items surfaced through
// the graph, and to the low-confidence fallback set for tagless queries.
const (
	connectionBonus = 0.05
	fallbackScore   = 0.05
)

// Retrieve answers a query: derives query tags, searches tiers in
// increasing-latency order, expands one hop through the graph, ranks by
// relevance and returns up to maxResults items. Every returned item has its
// access counters updated — this read path is also a write path.
func (e *Engine) Retrieve(ctx context.Context, query string, queryCtx map[string]string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = e.opts.MaxResults
	}

	text := query
	if len(queryCtx) > 0 {
		keys := make([]string, 0, len(queryCtx))
		for k := range queryCtx {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			text += " " + queryCtx[k]
		}
	}
	tags := e.analyze(ctx, text).Tags

	now := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(tags) == 0 {
		// Degenerate case: a low-confidence recency set beats failing.
		return e.fallbackLocked(now, maxResults), nil
	}

	candidates := make(map[string]float64)
	full := make(map[string]*knowledge.Item) // cold payloads fetched from store

	scoreSet := func(ids map[string]struct{}, floor float64) {
		for id := range ids {
			node := e.graph.Node(id)
			if node == nil {
				continue
			}
			s := relevance(node.SemanticTags, node.Content, tags)
			if s >= floor {
				candidates[id] = s
			}
		}
	}

	scoreSet(e.hot, hotFloor)
	if len(candidates) < maxResults {
		scoreSet(e.warm, warmFloor)
	}
	if len(candidates) < maxResults {
		cold, err := e.db.SearchCold(tags, maxResults*e.opts.ExpansionFactor)
		if err != nil {
			e.log.Warnw("cold search failed", "error", err)
		}
		for _, it := range cold {
			s := relevance(it.SemanticTags, it.Content, tags)
			if s >= coldFloor {
				candidates[it.ID] = s
				full[it.ID] = it
			}
		}
	}

	e.expandLocked(candidates, full, tags, maxResults)

	results := e.rankLocked(candidates, full, maxResults)

	// Access bookkeeping for every item actually returned.
	for i := range results {
		id := results[i].Item.ID
		if node := e.graph.Node(id); node != nil {
			node.Touch(now)
			results[i].Item.AccessCount = node.AccessCount
			results[i].Item.LastAccessedAt = node.LastAccessedAt
		}
		if err := e.db.TouchItem(id, now); err != nil {
			e.log.Warnw("touch item", "id", id, "error", err)
		}
	}

	return results, nil
}

// expandLocked surfaces connected-but-not-directly-matched items one hop out
// from the current candidates, capped to bound fan-out. Caller holds e.mu.
func (e *Engine) expandLocked(candidates map[string]float64, full map[string]*knowledge.Item, tags []string, maxResults int) {
	budget := e.opts.ExpansionFactor * maxResults
	expanded := 0

	seeds := make([]string, 0, len(candidates))
	for id := range candidates {
		seeds = append(seeds, id)
	}
	sort.Slice(seeds, func(i, j int) bool {
		if candidates[seeds[i]] != candidates[seeds[j]] {
			return candidates[seeds[i]] > candidates[seeds[j]]
		}
		return seeds[i] < seeds[j]
	})

	for _, seed := range seeds {
		for _, nb := range e.graph.Neighbors(seed) {
			if _, ok := candidates[nb]; ok {
				continue
			}
			if expanded >= budget {
				return
			}
			node := e.graph.Node(nb)
			if node == nil {
				continue
			}
			content := node.Content
			if content == "" && node.Tier == knowledge.TierCold {
				stored, err := e.db.GetItem(nb)
				if err != nil || stored == nil {
					continue
				}
				content = stored.Content
				full[nb] = stored
			}
			candidates[nb] = relevance(node.SemanticTags, content, tags) + connectionBonus
			expanded++
		}
	}
}

// rankLocked sorts candidates by score descending and materializes item
// copies, truncated to maxResults. Caller holds e.mu.
func (e *Engine) rankLocked(candidates map[string]float64, full map[string]*knowledge.Item, maxResults int) []Result {
	results := make([]Result, 0, len(candidates))
	for id, score := range candidates {
		node := e.graph.Node(id)
		if node == nil {
			continue
		}
		it := *node
		if stored, ok := full[id]; ok && it.Content == "" {
			it.Content = stored.Content
		}
		results = append(results, Result{Item: it, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Item.ID < results[j].Item.ID
	})
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

// fallbackLocked returns the most recently accessed hot/warm items with a
// uniform low score. Caller holds e.mu.
func (e *Engine) fallbackLocked(now time.Time, maxResults int) []Result {
	var nodes []*knowledge.Item
	for id := range e.hot {
		if n := e.graph.Node(id); n != nil {
			nodes = append(nodes, n)
		}
	}
	for id := range e.warm {
		if n := e.graph.Node(id); n != nil {
			nodes = append(nodes, n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool {
		if !nodes[i].LastAccessedAt.Equal(nodes[j].LastAccessedAt) {
			return nodes[i].LastAccessedAt.After(nodes[j].LastAccessedAt)
		}
		return nodes[i].ID < nodes[j].ID
	})
	if len(nodes) > maxResults {
		nodes = nodes[:maxResults]
	}

	results := make([]Result, 0, len(nodes))
	for _, n := range nodes {
		n.Touch(now)
		if err := e.db.TouchItem(n.ID, now); err != nil {
			e.log.Warnw("touch item", "id", n.ID, "error", err)
		}
		results = append(results, Result{Item: *n, Score: fallbackScore})
	}
	return results
}

// relevance scores an item against query tags: 0.7 weighted on tag overlap
// normalized by query tag count, 0.3 on query tags appearing as literal
// substrings of the content.
func relevance(itemTags []string, content string, queryTags []string) float64 {
	if len(queryTags) == 0 {
		return 0
	}

	tagSet := make(map[string]bool, len(itemTags))
	for _, t := range itemTags {
		tagSet[strings.ToLower(t)] = true
	}

	overlap := 0
	substr := 0
	lower := strings.ToLower(content)
	for _, qt := range queryTags {
		if tagSet[qt] {
			overlap++
		}
		if qt != "" && strings.Contains(lower, qt) {
			substr++
		}
	}

	n := float64(len(queryTags))
	return 0.7*float64(overlap)/n + 0.3*float64(substr)/n
}
