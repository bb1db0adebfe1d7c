package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lazypower/stratum/internal/analyzer"
	"github.com/lazypower/stratum/internal/archive"
	"github.com/lazypower/stratum/internal/knowledge"
)

// memArchiver collects envelopes in memory for drain assertions.
type memArchiver struct {
	stored []archive.Envelope
}

func (m *memArchiver) Store(env archive.Envelope) error {
	m.stored = append(m.stored, env)
	return nil
}

func TestOptimizePromotesHotCandidates(t *testing.T) {
	mock := &analyzer.Mock{Default: tagged("compilers")}
	e := testEngine(t, mock, Options{})
	ctx := context.Background()

	id, err := e.Route(ctx, "ssa construction notes", knowledge.KindAcademic, "", nil)
	if err != nil {
		t.Fatalf("route: %v", err)
	}

	node := e.graph.Node(id)
	node.AccessCount = 11
	node.LastAccessedAt = time.Now()

	rep, err := e.Optimize()
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if rep.Promoted != 1 {
		t.Errorf("promoted = %d, want 1", rep.Promoted)
	}
	if node.Tier != knowledge.TierHot {
		t.Errorf("tier = %s, want hot", node.Tier)
	}
	if _, ok := e.hot[id]; !ok {
		t.Error("item missing from hot set")
	}

	stored, _ := e.db.GetItem(id)
	if stored.Tier != knowledge.TierHot {
		t.Errorf("durable tier = %s, want hot", stored.Tier)
	}
}

func TestOptimizeDemotesIdleWarmItems(t *testing.T) {
	mock := &analyzer.Mock{Default: tagged("archival")}
	e := testEngine(t, mock, Options{})
	ctx := context.Background()

	id, err := e.Route(ctx, "rarely used reference", knowledge.KindAcademic, "", nil)
	if err != nil {
		t.Fatalf("route: %v", err)
	}

	node := e.graph.Node(id)
	node.AccessCount = 1
	node.LastAccessedAt = time.Now().Add(-10 * 24 * time.Hour)

	rep, err := e.Optimize()
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if rep.Demoted != 1 {
		t.Errorf("demoted = %d, want 1", rep.Demoted)
	}
	if node.Tier != knowledge.TierCold || node.Content != "" {
		t.Errorf("demoted item should be cold with no payload, got tier=%s content=%q",
			node.Tier, node.Content)
	}

	// Demotion drops the in-memory payload, never the durable one.
	stored, _ := e.db.GetItem(id)
	if stored.Content != "rarely used reference" {
		t.Errorf("durable content = %q, want original payload", stored.Content)
	}
	if stored.Tier != knowledge.TierCold {
		t.Errorf("durable tier = %s, want cold", stored.Tier)
	}
}

func TestOptimizeArchivesStaleLowImportance(t *testing.T) {
	mock := &analyzer.Mock{Default: tagged("stale")}
	e := testEngine(t, mock, Options{})
	ctx := context.Background()

	id, err := e.Route(ctx, "stale low-value note", knowledge.KindAcademic, "", nil)
	if err != nil {
		t.Fatalf("route: %v", err)
	}

	node := e.graph.Node(id)
	node.Importance = knowledge.ImportanceLow
	node.LastAccessedAt = time.Now().Add(-31 * 24 * time.Hour)

	rep, err := e.Optimize()
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if rep.Archived != 1 {
		t.Errorf("archived = %d, want 1", rep.Archived)
	}
	if rep.ReclaimedBytes != int64(len("stale low-value note")) {
		t.Errorf("reclaimed = %d, want payload size", rep.ReclaimedBytes)
	}
	if e.graph.Node(id) != nil {
		t.Error("archived item should leave the graph")
	}

	// The durable row survives as archived, invisible to reads and reload.
	stored, _ := e.db.GetItem(id)
	if stored != nil {
		t.Error("archived item should not be readable")
	}
	n, _ := e.db.CountArchived()
	if n != 1 {
		t.Errorf("archived rows = %d, want 1", n)
	}
}

func TestOptimizeReenqueuesFrequentlyAccessed(t *testing.T) {
	mock := &analyzer.Mock{Default: tagged("refreq")}
	e := testEngine(t, mock, Options{})
	ctx := context.Background()

	// Factual standard-importance content routes cold and skips the queue.
	id, err := e.Route(ctx, "frequently revisited fact", knowledge.KindFactual, "", nil)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if e.queue.Depth() != 0 {
		t.Fatalf("queue depth = %d before optimize, want 0", e.queue.Depth())
	}

	node := e.graph.Node(id)
	node.AccessCount = 6
	node.LastAccessedAt = time.Now()

	rep, err := e.Optimize()
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if rep.SyncEnqueued != 1 {
		t.Errorf("sync enqueued = %d, want 1", rep.SyncEnqueued)
	}

	// The envelope for a cold item is rehydrated from the store.
	a := &memArchiver{}
	synced, _ := e.queue.Drain(a)
	if synced != 1 {
		t.Fatalf("synced = %d, want 1", synced)
	}
	if a.stored[0].Content != "frequently revisited fact" {
		t.Errorf("envelope content = %q, want rehydrated payload", a.stored[0].Content)
	}
}

func TestOptimizePrunesDecayedEdges(t *testing.T) {
	mock := &analyzer.Mock{Analyses: map[string]analyzer.Analysis{
		"raft leader election": tagged("raft", "consensus"),
		"raft snapshotting":    tagged("raft", "consensus"),
	}}
	e := testEngine(t, mock, Options{})
	ctx := context.Background()

	idA, _ := e.Route(ctx, "raft leader election", knowledge.KindAcademic, "", nil)
	idB, _ := e.Route(ctx, "raft snapshotting", knowledge.KindAcademic, "", nil)
	if !e.graph.HasEdge(idA, idB) {
		t.Fatal("setup: expected an edge")
	}

	// Simulate connection decay: the overlap that justified the edge is gone.
	e.graph.Node(idB).SemanticTags = []string{"snapshots"}

	rep, err := e.Optimize()
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if rep.EdgesPruned != 1 {
		t.Errorf("edges pruned = %d, want 1", rep.EdgesPruned)
	}
	if e.graph.HasEdge(idA, idB) {
		t.Error("decayed edge should be removed")
	}
	edges, _ := e.db.LoadEdges()
	if len(edges) != 0 {
		t.Errorf("durable edges = %d after prune, want 0", len(edges))
	}
}

func TestOptimizeEvictsHotOverCeiling(t *testing.T) {
	mock := &analyzer.Mock{Default: analyzer.Analysis{Complexity: 0.9}}
	e := testEngine(t, mock, Options{HotCeiling: 2})
	ctx := context.Background()

	// Critical provenance plus long complex content routes hot.
	now := time.Now()
	var ids []string
	for i := 0; i < 4; i++ {
		content := fmt.Sprintf("runbook %d ", i) + strings.Repeat("failover procedure steps ", 40)
		id, err := e.Route(ctx, content, knowledge.KindAcademic, "system", nil)
		if err != nil {
			t.Fatalf("route %d: %v", i, err)
		}
		ids = append(ids, id)
		e.graph.Node(id).LastAccessedAt = now.Add(-time.Duration(i) * time.Hour)
	}
	if len(e.hot) != 4 {
		t.Fatalf("hot = %d before optimize, want 4", len(e.hot))
	}

	rep, err := e.Optimize()
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if rep.Evicted != 2 {
		t.Errorf("evicted = %d, want 2", rep.Evicted)
	}
	if len(e.hot) != 2 {
		t.Errorf("hot = %d after optimize, want 2", len(e.hot))
	}

	// The least recently accessed items moved to warm.
	for _, id := range ids[2:] {
		if e.graph.Node(id).Tier != knowledge.TierWarm {
			t.Errorf("item %s should have been evicted to warm", id)
		}
	}
	for _, id := range ids[:2] {
		if e.graph.Node(id).Tier != knowledge.TierHot {
			t.Errorf("item %s should have stayed hot", id)
		}
	}
}

func TestOptimizeSharedCollapses(t *testing.T) {
	e := testEngine(t, &analyzer.Mock{}, Options{})

	rep, err := e.OptimizeShared()
	if err != nil {
		t.Fatalf("optimize shared: %v", err)
	}
	if rep != (Report{}) {
		t.Errorf("report = %+v, want empty on an empty engine", rep)
	}
}
