package knowledge

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Kind classifies what a piece of knowledge is.
type Kind string

const (
	KindAcademic       Kind = "academic"
	KindExperiential   Kind = "experiential"
	KindConversational Kind = "conversational"
	KindProcedural     Kind = "procedural"
	KindFactual        Kind = "factual"
	KindContextual     Kind = "contextual"
	KindTemporal       Kind = "temporal"
	KindSemantic       Kind = "semantic"
	KindSynthetic      Kind = "synthetic"
)

var validKinds = map[Kind]bool{
	KindAcademic:       true,
	KindExperiential:   true,
	KindConversational: true,
	KindProcedural:     true,
	KindFactual:        true,
	KindContextual:     true,
	KindTemporal:       true,
	KindSemantic:       true,
	KindSynthetic:      true,
}

// ParseKind validates a string as a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !validKinds[k] {
		return "", fmt.Errorf("unknown kind: %q", s)
	}
	return k, nil
}

// Tier is a storage placement. Tiers trade access latency for capacity:
// hot is the fastest and smallest, cold lives only in the backing store.
// sync-pending marks items queued for the external archive; it is a
// transitional flag accepted on reload, not a placement the router assigns.
type Tier string

const (
	TierHot         Tier = "hot"
	TierWarm        Tier = "warm"
	TierCold        Tier = "cold"
	TierSyncPending Tier = "sync-pending"
)

var validTiers = map[Tier]bool{
	TierHot:         true,
	TierWarm:        true,
	TierCold:        true,
	TierSyncPending: true,
}

// ParseTier validates a string as a Tier.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !validTiers[t] {
		return "", fmt.Errorf("unknown tier: %q", s)
	}
	return t, nil
}

// Importance is an ordinal priority: 1 (archive-only) through 5 (critical,
// immediate retrieval). It biases initial tier placement and sync eligibility.
type Importance int

const (
	ImportanceLow      Importance = 1
	ImportanceMinor    Importance = 2
	ImportanceStandard Importance = 3
	ImportanceHigh     Importance = 4
	ImportanceCritical Importance = 5
)

// Clamp bounds an importance value to the valid ordinal range.
func (i Importance) Clamp() Importance {
	if i < ImportanceLow {
		return ImportanceLow
	}
	if i > ImportanceCritical {
		return ImportanceCritical
	}
	return i
}

// Item is the unit of storage: one piece of learned content plus the
// bookkeeping the router, tier manager and optimizer operate on.
type Item struct {
	ID             string
	Content        string
	Kind           Kind
	Importance     Importance
	CreatedAt      time.Time
	LastAccessedAt time.Time
	AccessCount    int
	Source         string
	Metadata       map[string]string
	SemanticTags   []string
	Tier           Tier
}

// DeriveID computes a purely content-derived identifier: the same
// content/kind/source triple always maps to the same id, so re-routing
// identical content dedups instead of creating a revision.
func DeriveID(content string, kind Kind, source string) string {
	h := sha256.New()
	h.Write([]byte(string(kind)))
	h.Write([]byte{0})
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// Touch records a successful retrieval of the item.
func (it *Item) Touch(now time.Time) {
	it.AccessCount++
	it.LastAccessedAt = now
}

// HasTag reports whether the item carries the given semantic tag.
func (it *Item) HasTag(tag string) bool {
	for _, t := range it.SemanticTags {
		if t == tag {
			return true
		}
	}
	return false
}

// SharedTagCount returns how many of the given tags the item carries.
func (it *Item) SharedTagCount(tags []string) int {
	shared := 0
	for _, t := range tags {
		if it.HasTag(t) {
			shared++
		}
	}
	return shared
}
