package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DirArchiver writes envelopes to a directory, one JSON file per item id.
// Dead letters land under deadletter/, prefixed with the drain batch id.
type DirArchiver struct {
	dir string
}

// NewDirArchiver creates the archive directory if needed.
func NewDirArchiver(dir string) (*DirArchiver, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &DirArchiver{dir: dir}, nil
}

// Dir returns the archive root.
func (d *DirArchiver) Dir() string { return d.dir }

// Store writes one discrete record named by the envelope's item id.
func (d *DirArchiver) Store(env Envelope) error {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal envelope %s: %w", env.ID, err)
	}
	path := filepath.Join(d.dir, env.ID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write envelope %s: %w", env.ID, err)
	}
	return nil
}

// StoreDeadLetter persists an exhausted envelope under deadletter/.
func (d *DirArchiver) StoreDeadLetter(env Envelope, batch string) error {
	dir := filepath.Join(d.dir, "deadletter")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create deadletter dir: %w", err)
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dead letter %s: %w", env.ID, err)
	}
	path := filepath.Join(dir, batch+"-"+env.ID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write dead letter %s: %w", env.ID, err)
	}
	return nil
}
