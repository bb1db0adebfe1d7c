package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lazypower/stratum/internal/knowledge"
)

const itemColumns = `id, content, kind, importance, created_at, last_accessed_at,
	access_count, source, metadata, semantic_tags, tier, archived`

// UpsertItem writes the durable mirror row for an item, keyed by id.
func (db *DB) UpsertItem(it *knowledge.Item) error {
	meta, err := json.Marshal(it.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	tags, err := json.Marshal(it.SemanticTags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO items (id, content, kind, importance, created_at, last_accessed_at,
			access_count, source, metadata, semantic_tags, tier, archived)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			kind = excluded.kind,
			importance = excluded.importance,
			last_accessed_at = excluded.last_accessed_at,
			access_count = excluded.access_count,
			source = excluded.source,
			metadata = excluded.metadata,
			semantic_tags = excluded.semantic_tags,
			tier = excluded.tier,
			archived = 0
	`, it.ID, it.Content, string(it.Kind), int(it.Importance),
		it.CreatedAt.UnixMilli(), it.LastAccessedAt.UnixMilli(),
		it.AccessCount, it.Source, string(meta), string(tags), string(it.Tier))
	if err != nil {
		return fmt.Errorf("upsert item: %w", err)
	}
	return nil
}

// GetItem returns an item by id, or nil if not found or archived.
func (db *DB) GetItem(id string) (*knowledge.Item, error) {
	row := db.QueryRow(`
		SELECT `+itemColumns+` FROM items WHERE id = ? AND archived = 0
	`, id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", id, err)
	}
	return it, nil
}

// LoadItems reloads every non-archived item for startup. Rows whose kind or
// tier fail validation are rejected individually (partial availability over
// total failure); their ids are returned for logging.
func (db *DB) LoadItems() ([]*knowledge.Item, []string, error) {
	rows, err := db.Query(`SELECT ` + itemColumns + ` FROM items WHERE archived = 0`)
	if err != nil {
		return nil, nil, fmt.Errorf("load items: %w", err)
	}
	defer rows.Close()

	var items []*knowledge.Item
	var rejected []string
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			if badID, ok := err.(*invalidRowError); ok {
				rejected = append(rejected, badID.id)
				continue
			}
			return nil, rejected, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rejected, rows.Err()
}

// TouchItem records access bookkeeping on the durable row.
func (db *DB) TouchItem(id string, when time.Time) error {
	_, err := db.Exec(`
		UPDATE items SET access_count = access_count + 1, last_accessed_at = ?
		WHERE id = ?
	`, when.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("touch item %s: %w", id, err)
	}
	return nil
}

// SetTier updates the durable placement of an item.
func (db *DB) SetTier(id string, tier knowledge.Tier) error {
	_, err := db.Exec(`UPDATE items SET tier = ? WHERE id = ?`, string(tier), id)
	if err != nil {
		return fmt.Errorf("set tier %s: %w", id, err)
	}
	return nil
}

// MarkArchived flags an item's durable row as archived. The row is retained
// but excluded from reload and cold search.
func (db *DB) MarkArchived(id string) error {
	_, err := db.Exec(`UPDATE items SET archived = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark archived %s: %w", id, err)
	}
	return nil
}

// SearchCold fetches cold-tier candidate items whose serialized tags or
// content contain any of the query tags. This is the expensive path:
// cold items have no in-memory copy, so retrieval pays a store scan.
func (db *DB) SearchCold(tags []string, limit int) ([]*knowledge.Item, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	var clauses []string
	var args []any
	for _, tag := range tags {
		clauses = append(clauses, "semantic_tags LIKE ? OR content LIKE ?")
		pattern := "%" + tag + "%"
		args = append(args, pattern, pattern)
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT `+itemColumns+` FROM items
		WHERE archived = 0 AND tier = 'cold' AND (%s)
		LIMIT ?
	`, strings.Join(clauses, " OR "))

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search cold: %w", err)
	}
	defer rows.Close()

	var items []*knowledge.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			if _, ok := err.(*invalidRowError); ok {
				continue
			}
			return nil, fmt.Errorf("scan cold item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// CountByTier returns non-archived item counts per durable tier.
func (db *DB) CountByTier() (map[knowledge.Tier]int, error) {
	rows, err := db.Query(`
		SELECT tier, COUNT(*) FROM items WHERE archived = 0 GROUP BY tier
	`)
	if err != nil {
		return nil, fmt.Errorf("count by tier: %w", err)
	}
	defer rows.Close()

	counts := make(map[knowledge.Tier]int)
	for rows.Next() {
		var tier string
		var n int
		if err := rows.Scan(&tier, &n); err != nil {
			return nil, fmt.Errorf("scan tier count: %w", err)
		}
		counts[knowledge.Tier(tier)] = n
	}
	return counts, rows.Err()
}

// CountArchived returns the number of archived durable rows.
func (db *DB) CountArchived() (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM items WHERE archived = 1`).Scan(&n)
	return n, err
}

// invalidRowError marks a row rejected during scanning for enum validation.
type invalidRowError struct {
	id     string
	reason error
}

func (e *invalidRowError) Error() string {
	return fmt.Sprintf("invalid item row %s: %v", e.id, e.reason)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*knowledge.Item, error) {
	var it knowledge.Item
	var kind, tier string
	var importance int
	var createdAt, lastAccessed int64
	var source, meta, tags sql.NullString
	var archived int

	err := row.Scan(&it.ID, &it.Content, &kind, &importance, &createdAt, &lastAccessed,
		&it.AccessCount, &source, &meta, &tags, &tier, &archived)
	if err != nil {
		return nil, err
	}

	k, err := knowledge.ParseKind(kind)
	if err != nil {
		return nil, &invalidRowError{id: it.ID, reason: err}
	}
	t, err := knowledge.ParseTier(tier)
	if err != nil {
		return nil, &invalidRowError{id: it.ID, reason: err}
	}

	it.Kind = k
	it.Tier = t
	it.Importance = knowledge.Importance(importance).Clamp()
	it.CreatedAt = time.UnixMilli(createdAt)
	it.LastAccessedAt = time.UnixMilli(lastAccessed)
	it.Source = source.String

	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &it.Metadata); err != nil {
			return nil, &invalidRowError{id: it.ID, reason: fmt.Errorf("metadata: %w", err)}
		}
	}
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &it.SemanticTags); err != nil {
			return nil, &invalidRowError{id: it.ID, reason: fmt.Errorf("tags: %w", err)}
		}
	}
	return &it, nil
}
