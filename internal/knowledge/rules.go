package knowledge

import "sort"

// Action names what a routing rule drives.
type Action string

const (
	ActionStore    Action = "store"
	ActionRetrieve Action = "retrieve"
	ActionMigrate  Action = "migrate"
	ActionIndex    Action = "index"
)

// Condition is a conjunction of attribute comparisons against an item.
// Zero-valued fields match everything.
type Condition struct {
	Kinds         []Kind
	MinImportance Importance
	MaxImportance Importance
	MinAccess     int
}

// Matches reports whether all set comparisons hold for the item.
func (c Condition) Matches(it *Item) bool {
	if len(c.Kinds) > 0 {
		found := false
		for _, k := range c.Kinds {
			if it.Kind == k {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if c.MinImportance != 0 && it.Importance < c.MinImportance {
		return false
	}
	if c.MaxImportance != 0 && it.Importance > c.MaxImportance {
		return false
	}
	if c.MinAccess != 0 && it.AccessCount < c.MinAccess {
		return false
	}
	return true
}

// RoutingRule is a declarative predicate-action pair. Rules run in priority
// order (lower first); the first match wins for placement decisions.
type RoutingRule struct {
	Name       string
	Condition  Condition
	TargetTier Tier
	Priority   int
	Action     Action
}

// SelectTier evaluates rules in priority order and returns the target tier
// of the first matching store rule.
func SelectTier(rules []RoutingRule, it *Item) (Tier, bool) {
	sorted := make([]RoutingRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	for _, r := range sorted {
		if r.Action != ActionStore {
			continue
		}
		if r.Condition.Matches(it) {
			return r.TargetTier, true
		}
	}
	return "", false
}

// DefaultRules encodes initial placement: critical importance goes hot,
// high importance or academic kind goes warm, everything else goes cold.
func DefaultRules() []RoutingRule {
	return []RoutingRule{
		{
			Name:       "critical-hot",
			Condition:  Condition{MinImportance: ImportanceCritical},
			TargetTier: TierHot,
			Priority:   10,
			Action:     ActionStore,
		},
		{
			Name:       "high-warm",
			Condition:  Condition{MinImportance: ImportanceHigh},
			TargetTier: TierWarm,
			Priority:   20,
			Action:     ActionStore,
		},
		{
			Name:       "academic-warm",
			Condition:  Condition{Kinds: []Kind{KindAcademic}},
			TargetTier: TierWarm,
			Priority:   21,
			Action:     ActionStore,
		},
		{
			Name:       "default-cold",
			Condition:  Condition{},
			TargetTier: TierCold,
			Priority:   90,
			Action:     ActionStore,
		},
	}
}
