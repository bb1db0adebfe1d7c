package store

import (
	"testing"

	"github.com/lazypower/stratum/internal/knowledge"
)

func edgeDB(t *testing.T, ids ...string) *DB {
	t.Helper()
	db := testDB(t)
	for _, id := range ids {
		if err := db.UpsertItem(testStoredItem(id, knowledge.TierWarm)); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}
	return db
}

func TestUpsertEdgeBothDirections(t *testing.T) {
	db := edgeDB(t, "a", "b")

	if err := db.UpsertEdge("a", "b", 2); err != nil {
		t.Fatalf("upsert edge: %v", err)
	}

	edges, err := db.LoadEdges()
	if err != nil {
		t.Fatalf("load edges: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("edge rows = %d, want 2 (one per direction)", len(edges))
	}

	forward, err := db.EdgesFor("a")
	if err != nil {
		t.Fatalf("edges for a: %v", err)
	}
	if len(forward) != 1 || forward[0].ToID != "b" || forward[0].Strength != 2 {
		t.Errorf("edges for a = %v, want one edge to b with strength 2", forward)
	}
}

func TestUpsertEdgeUpdatesStrength(t *testing.T) {
	db := edgeDB(t, "a", "b")

	if err := db.UpsertEdge("a", "b", 2); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := db.UpsertEdge("a", "b", 3); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	edges, _ := db.EdgesFor("a")
	if len(edges) != 1 || edges[0].Strength != 3 {
		t.Errorf("edges = %v, want single edge with strength 3", edges)
	}
}

func TestUpsertEdgeIgnoresSelf(t *testing.T) {
	db := edgeDB(t, "a")

	if err := db.UpsertEdge("a", "a", 1); err != nil {
		t.Fatalf("self edge: %v", err)
	}
	edges, _ := db.LoadEdges()
	if len(edges) != 0 {
		t.Errorf("self edge should not be stored, got %v", edges)
	}
}

func TestDeleteEdge(t *testing.T) {
	db := edgeDB(t, "a", "b", "c")
	if err := db.UpsertEdge("a", "b", 2); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := db.UpsertEdge("a", "c", 2); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if err := db.DeleteEdge("a", "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	edges, _ := db.LoadEdges()
	if len(edges) != 2 {
		t.Errorf("edge rows = %d after delete, want 2 (a<->c)", len(edges))
	}
	for _, e := range edges {
		if e.FromID == "b" || e.ToID == "b" {
			t.Errorf("edge %v should have been deleted", e)
		}
	}
}

func TestDeleteEdgesFor(t *testing.T) {
	db := edgeDB(t, "a", "b", "c")
	if err := db.UpsertEdge("a", "b", 2); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := db.UpsertEdge("b", "c", 2); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if err := db.DeleteEdgesFor("b"); err != nil {
		t.Fatalf("delete edges for: %v", err)
	}

	edges, _ := db.LoadEdges()
	if len(edges) != 0 {
		t.Errorf("all edges touched b, want none left, got %v", edges)
	}
}
