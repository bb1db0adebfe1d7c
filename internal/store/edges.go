package store

import (
	"fmt"
	"time"
)

// EdgeRecord is one direction of a symmetric graph connection.
type EdgeRecord struct {
	FromID    string
	ToID      string
	Strength  float64
	CreatedAt int64
}

// UpsertEdge writes both directions of a connection. Strength is the
// shared-tag overlap at creation time.
func (db *DB) UpsertEdge(a, b string, strength float64) error {
	if a == b {
		return nil
	}
	now := time.Now().UnixMilli()
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		_, err := db.Exec(`
			INSERT INTO edges (from_id, to_id, strength, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(from_id, to_id) DO UPDATE SET strength = excluded.strength
		`, pair[0], pair[1], strength, now)
		if err != nil {
			return fmt.Errorf("upsert edge %s->%s: %w", pair[0], pair[1], err)
		}
	}
	return nil
}

// DeleteEdge removes both directions of a connection.
func (db *DB) DeleteEdge(a, b string) error {
	_, err := db.Exec(`
		DELETE FROM edges WHERE (from_id = ? AND to_id = ?) OR (from_id = ? AND to_id = ?)
	`, a, b, b, a)
	if err != nil {
		return fmt.Errorf("delete edge %s<->%s: %w", a, b, err)
	}
	return nil
}

// DeleteEdgesFor removes every edge touching the given item.
func (db *DB) DeleteEdgesFor(id string) error {
	_, err := db.Exec(`DELETE FROM edges WHERE from_id = ? OR to_id = ?`, id, id)
	if err != nil {
		return fmt.Errorf("delete edges for %s: %w", id, err)
	}
	return nil
}

// LoadEdges returns all edge rows for startup reload.
func (db *DB) LoadEdges() ([]EdgeRecord, error) {
	rows, err := db.Query(`SELECT from_id, to_id, strength, created_at FROM edges`)
	if err != nil {
		return nil, fmt.Errorf("load edges: %w", err)
	}
	defer rows.Close()

	var edges []EdgeRecord
	for rows.Next() {
		var e EdgeRecord
		if err := rows.Scan(&e.FromID, &e.ToID, &e.Strength, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// EdgesFor returns outbound edge rows for a single item.
func (db *DB) EdgesFor(id string) ([]EdgeRecord, error) {
	rows, err := db.Query(`
		SELECT from_id, to_id, strength, created_at FROM edges WHERE from_id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("edges for %s: %w", id, err)
	}
	defer rows.Close()

	var edges []EdgeRecord
	for rows.Next() {
		var e EdgeRecord
		if err := rows.Scan(&e.FromID, &e.ToID, &e.Strength, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
