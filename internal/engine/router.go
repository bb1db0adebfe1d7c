package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lazypower/stratum/internal/analyzer"
	"github.com/lazypower/stratum/internal/archive"
	"github.com/lazypower/stratum/internal/knowledge"
)

// Base complexity weight per kind: academic and procedural content is
// presumed dense, conversational content light.
var kindWeights = map[knowledge.Kind]float64{
	knowledge.KindAcademic:       3.0,
	knowledge.KindProcedural:     2.5,
	knowledge.KindFactual:        2.0,
	knowledge.KindSemantic:       2.0,
	knowledge.KindExperiential:   1.5,
	knowledge.KindContextual:     1.5,
	knowledge.KindTemporal:       1.5,
	knowledge.KindSynthetic:      1.5,
	knowledge.KindConversational: 1.0,
}

const (
	longContentWords    = 100
	complexityThreshold = 0.6
)

// Route ingests one piece of content: derives tags, scores importance, picks
// a tier, mirrors the item durably, links it into the graph and conditionally
// queues it for sync. The durable write happens before any in-memory
// registration — if it fails, the whole ingestion fails and no id is issued.
func (e *Engine) Route(ctx context.Context, content string, kind knowledge.Kind, source string, metadata map[string]string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("empty content")
	}
	if _, err := knowledge.ParseKind(string(kind)); err != nil {
		return "", err
	}

	an := e.analyze(ctx, content)
	now := time.Now()

	it := &knowledge.Item{
		ID:             knowledge.DeriveID(content, kind, source),
		Content:        content,
		Kind:           kind,
		CreatedAt:      now,
		LastAccessedAt: now,
		Source:         source,
		Metadata:       metadata,
		SemanticTags:   an.Tags,
	}
	it.Importance = importanceFor(e.complexityScore(content, kind, source, an))

	e.mu.Lock()
	defer e.mu.Unlock()

	// Content-derived ids dedup: identical content routes to the same item.
	if existing := e.graph.Node(it.ID); existing != nil {
		e.log.Debugw("route dedup", "id", it.ID)
		return existing.ID, nil
	}

	tier, ok := knowledge.SelectTier(e.rules, it)
	if !ok {
		tier = knowledge.TierCold
	}
	it.Tier = tier

	if err := e.db.UpsertItem(it); err != nil {
		// In-memory-only knowledge is disallowed: fail the whole ingestion.
		return "", fmt.Errorf("durable write: %w", err)
	}

	if archive.ShouldSync(it) {
		e.queue.Enqueue(it)
	}

	e.registerLocked(it)
	e.linkLocked(it)

	e.log.Debugw("routed item",
		"id", it.ID, "kind", it.Kind, "importance", it.Importance, "tier", it.Tier,
		"tags", len(it.SemanticTags))
	return it.ID, nil
}

// linkLocked creates edges to existing items sharing at least LinkThreshold
// semantic tags. Candidates come from the inverted tag index, not a full
// node scan. Caller holds e.mu.
func (e *Engine) linkLocked(it *knowledge.Item) {
	if len(it.SemanticTags) == 0 {
		return
	}
	for id, shared := range e.graph.CandidatesSharingTags(it.SemanticTags) {
		if id == it.ID || shared < e.opts.LinkThreshold {
			continue
		}
		e.graph.AddEdge(it.ID, id)
		if err := e.db.UpsertEdge(it.ID, id, float64(shared)); err != nil {
			e.log.Warnw("persist edge", "from", it.ID, "to", id, "error", err)
		}
	}
}

// complexityScore estimates how dense a piece of content is: base weight by
// kind, a bonus for long, analyzer-confirmed complex text, and a bonus for
// critical provenance.
func (e *Engine) complexityScore(content string, kind knowledge.Kind, source string, an analyzer.Analysis) float64 {
	score := kindWeights[kind]
	if len(strings.Fields(content)) > longContentWords && an.Complexity > complexityThreshold {
		score += 1.0
	}
	if e.isCriticalSource(source) {
		score += 1.0
	}
	return score
}

func (e *Engine) isCriticalSource(source string) bool {
	if source == "" {
		return false
	}
	s := strings.ToLower(source)
	for _, prefix := range e.opts.CriticalSources {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// importanceFor maps a complexity score to the importance ordinal, capped
// at critical.
func importanceFor(score float64) knowledge.Importance {
	return knowledge.Importance(int(score + 0.5)).Clamp()
}
