// Package store persists the correlation between Asana task ids and
// Google Tasks ids across restarts. The whole record set is loaded at the
// start of a sync cycle and replaced atomically at the end.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Status tracks where a correlation record is in its lifecycle.
type Status string

const (
	// StatusSynced means both ids are set and both anchors reflect the
	// state as of the last successful write to that side.
	StatusSynced Status = "synced"

	// StatusPendingCreateOnAsana means the task exists on Google and the
	// Asana counterpart has not been created yet.
	StatusPendingCreateOnAsana Status = "pending_create_on_asana"

	// StatusPendingCreateOnGoogle means the task exists on Asana and the
	// Google counterpart has not been created yet.
	StatusPendingCreateOnGoogle Status = "pending_create_on_google"

	// StatusDeleted is terminal; a record never leaves it. A later
	// re-creation of a similar task gets a brand-new correlation id.
	StatusDeleted Status = "deleted"
)

// Record links one Asana task to one Google task believed to represent
// the same logical task. At least one id is set at all times except
// transiently during creation, and no id appears in two records.
type Record struct {
	ID            string    `json:"id"`
	AsanaID       string    `json:"asana_id,omitempty"`
	GoogleID      string    `json:"google_id,omitempty"`
	AsanaUpdated  time.Time `json:"asana_updated,omitempty"`
	GoogleUpdated time.Time `json:"google_updated,omitempty"`
	Status        Status    `json:"status"`
}

// NewRecord mints a record with a fresh correlation id.
func NewRecord(status Status) *Record {
	return &Record{ID: uuid.NewString(), Status: status}
}

// Store reads and writes the correlation record set at a fixed path.
type Store struct {
	path string
}

// New returns a Store bound to path. The file does not need to exist yet.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the file the store persists to.
func (s *Store) Path() string { return s.path }

// Load reads the full record set. A missing file is a cold start and
// yields an empty map; an unreadable or corrupt file is an error.
func (s *Store) Load() (map[string]*Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*Record), nil
		}
		return nil, fmt.Errorf("failed to open correlation store: %w", err)
	}
	defer f.Close()

	var records []*Record
	if err := json.NewDecoder(f).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode correlation store %s: %w", s.path, err)
	}

	out := make(map[string]*Record, len(records))
	for _, r := range records {
		out[r.ID] = r
	}
	return out, nil
}

// Save replaces the persisted record set atomically: the records are
// written to a temp file in the same directory and renamed over the old
// file, so a concurrent reader never observes a partial write.
func (s *Store) Save(records map[string]*Record) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	out := make([]*Record, 0, len(records))
	for _, r := range records {
		out = append(out, r)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode correlation store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write correlation store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace correlation store: %w", err)
	}
	return nil
}
