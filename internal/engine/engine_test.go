package engine

import (
	"context"
	"reflect"
	"testing"

	"github.com/lazypower/stratum/internal/analyzer"
	"github.com/lazypower/stratum/internal/knowledge"
	"github.com/lazypower/stratum/internal/store"
)

func testEngine(t *testing.T, mock analyzer.Client, opts Options) *Engine {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, mock, nil, nil, opts)
}

func tagged(tags ...string) analyzer.Analysis {
	return analyzer.Analysis{Tags: tags, Complexity: 0.2}
}

func TestNormalizeTags(t *testing.T) {
	got := normalizeTags([]string{" Golang ", "golang", "", "Channels", "ATP"})
	want := []string{"golang", "channels", "atp"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("normalize = %v, want %v", got, want)
	}
}

func TestReloadRestoresState(t *testing.T) {
	mock := &analyzer.Mock{Analyses: map[string]analyzer.Analysis{
		"goroutine scheduling internals": tagged("golang", "scheduler"),
		"scheduler work stealing":        tagged("scheduler", "golang"),
		"grocery list":                   tagged("groceries"),
	}}
	e1 := testEngine(t, mock, Options{})
	ctx := context.Background()

	idA, err := e1.Route(ctx, "goroutine scheduling internals", knowledge.KindAcademic, "", nil)
	if err != nil {
		t.Fatalf("route A: %v", err)
	}
	idB, err := e1.Route(ctx, "scheduler work stealing", knowledge.KindAcademic, "", nil)
	if err != nil {
		t.Fatalf("route B: %v", err)
	}
	idC, err := e1.Route(ctx, "grocery list", knowledge.KindConversational, "", nil)
	if err != nil {
		t.Fatalf("route C: %v", err)
	}

	// Fresh engine over the same store simulates a restart.
	e2 := New(e1.db, mock, nil, nil, Options{})
	if err := e2.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}

	stats := e2.Stats()
	if stats.Items != 3 || stats.Warm != 2 || stats.Cold != 1 {
		t.Errorf("stats = %+v, want 3 items, 2 warm, 1 cold", stats)
	}
	if !e2.graph.HasEdge(idA, idB) {
		t.Error("edge between linked items did not survive reload")
	}

	cold := e2.graph.Node(idC)
	if cold == nil {
		t.Fatal("cold item missing after reload")
	}
	if cold.Content != "" {
		t.Error("cold item should reload without an in-memory payload")
	}
}

func TestReloadSettlesSyncPending(t *testing.T) {
	e := testEngine(t, &analyzer.Mock{}, Options{})

	it := &knowledge.Item{
		ID:         "pend-1",
		Content:    "pending sync content",
		Kind:       knowledge.KindFactual,
		Importance: knowledge.ImportanceHigh,
		Tier:       knowledge.TierSyncPending,
	}
	if err := e.db.UpsertItem(it); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if err := e.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}

	node := e.graph.Node("pend-1")
	if node == nil || node.Tier != knowledge.TierWarm {
		t.Fatalf("sync-pending item should settle into warm, got %+v", node)
	}
	if e.queue.Depth() != 1 {
		t.Errorf("queue depth = %d, want 1 (requeued on reload)", e.queue.Depth())
	}

	stored, _ := e.db.GetItem("pend-1")
	if stored.Tier != knowledge.TierWarm {
		t.Errorf("durable tier = %s, want warm", stored.Tier)
	}
}

func TestReloadSkipsInvalidRows(t *testing.T) {
	e := testEngine(t, &analyzer.Mock{}, Options{})

	if err := e.db.UpsertItem(&knowledge.Item{
		ID: "good", Content: "x", Kind: knowledge.KindFactual,
		Importance: knowledge.ImportanceStandard, Tier: knowledge.TierWarm,
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := e.db.Exec(`
		INSERT INTO items (id, content, kind, importance, created_at, last_accessed_at,
			access_count, source, metadata, semantic_tags, tier, archived)
		VALUES ('bad', 'x', 'nonsense', 3, 0, 0, 0, '', '{}', '[]', 'warm', 0)
	`); err != nil {
		t.Fatalf("insert bad row: %v", err)
	}

	if err := e.Reload(); err != nil {
		t.Fatalf("reload should tolerate bad rows: %v", err)
	}
	if e.graph.Len() != 1 || e.graph.Node("good") == nil {
		t.Errorf("graph should hold only the valid row, len = %d", e.graph.Len())
	}
}
