package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "items: durable mirror of every knowledge item",
		SQL: `
CREATE TABLE items (
    id               TEXT PRIMARY KEY,
    content          TEXT NOT NULL,
    kind             TEXT NOT NULL,
    importance       INTEGER NOT NULL,
    created_at       INTEGER NOT NULL,
    last_accessed_at INTEGER NOT NULL,
    access_count     INTEGER NOT NULL DEFAULT 0,
    source           TEXT,
    metadata         TEXT,
    semantic_tags    TEXT,
    tier             TEXT NOT NULL CHECK (tier IN ('hot', 'warm', 'cold', 'sync-pending')),

    -- Archived rows stay durable but are skipped on reload (unindexed)
    archived         INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX idx_items_tier     ON items(tier);
CREATE INDEX idx_items_kind     ON items(kind);
CREATE INDEX idx_items_archived ON items(archived);
`,
	},
	{
		Version:     2,
		Description: "edges: symmetric knowledge graph connections",
		SQL: `
CREATE TABLE edges (
    from_id    TEXT NOT NULL,
    to_id      TEXT NOT NULL,
    strength   REAL NOT NULL DEFAULT 1.0,
    created_at INTEGER NOT NULL,

    PRIMARY KEY (from_id, to_id),
    FOREIGN KEY (from_id) REFERENCES items(id),
    FOREIGN KEY (to_id)   REFERENCES items(id)
);

CREATE INDEX idx_edges_from ON edges(from_id);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
