package engine

import (
	"fmt"
	"time"

	"github.com/lazypower/stratum/internal/knowledge"
)

// Tier lifecycle thresholds.
const (
	promoteAccessMin = 10                  // accesses above this promote
	promoteRecency   = 24 * time.Hour      // ...when accessed this recently
	demoteAccessMax  = 3                   // accesses below this demote
	demoteIdle       = 7 * 24 * time.Hour  // ...when idle this long
	archiveIdle      = 30 * 24 * time.Hour // low-importance idle cutoff
)

func shouldPromote(it *knowledge.Item, now time.Time) bool {
	return it.AccessCount > promoteAccessMin &&
		now.Sub(it.LastAccessedAt) < promoteRecency &&
		it.Tier != knowledge.TierHot
}

func shouldDemote(it *knowledge.Item, now time.Time) bool {
	return it.AccessCount < demoteAccessMax &&
		now.Sub(it.LastAccessedAt) > demoteIdle &&
		it.Tier == knowledge.TierWarm
}

func shouldArchive(it *knowledge.Item, now time.Time) bool {
	return now.Sub(it.LastAccessedAt) > archiveIdle &&
		it.Importance == knowledge.ImportanceLow
}

// registerLocked places an item into the graph and its tier structure.
// Cold items keep only id, tags and counters in memory; the payload lives in
// the store. Caller holds e.mu.
func (e *Engine) registerLocked(it *knowledge.Item) {
	if it.Tier == knowledge.TierCold {
		it.Content = ""
	}
	e.graph.AddNode(it)
	switch it.Tier {
	case knowledge.TierHot:
		e.hot[it.ID] = struct{}{}
	case knowledge.TierWarm:
		e.warm[it.ID] = struct{}{}
	}
}

// migrateLocked moves an item between tiers. Removal from the old structure
// and insertion into the new one happen in the same critical section, so a
// concurrent retrieval never observes the item as absent from every tier.
// Caller holds e.mu.
func (e *Engine) migrateLocked(it *knowledge.Item, to knowledge.Tier) error {
	from := it.Tier
	if from == to {
		return nil
	}

	// Rehydrate payload before leaving the cold tier.
	if from == knowledge.TierCold && to != knowledge.TierCold && it.Content == "" {
		stored, err := e.db.GetItem(it.ID)
		if err != nil {
			return fmt.Errorf("rehydrate %s: %w", it.ID, err)
		}
		if stored == nil {
			return fmt.Errorf("rehydrate %s: durable row missing", it.ID)
		}
		it.Content = stored.Content
	}

	switch from {
	case knowledge.TierHot:
		delete(e.hot, it.ID)
	case knowledge.TierWarm:
		delete(e.warm, it.ID)
	}
	switch to {
	case knowledge.TierHot:
		e.hot[it.ID] = struct{}{}
	case knowledge.TierWarm:
		e.warm[it.ID] = struct{}{}
	case knowledge.TierCold:
		it.Content = ""
	}
	it.Tier = to

	if err := e.db.SetTier(it.ID, to); err != nil {
		return fmt.Errorf("persist tier %s: %w", it.ID, err)
	}
	return nil
}
