package fixture

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Record is the durable trace of an active fixture. It is written right
// after provisioning and removed right after a successful teardown, so a
// crashed run leaves behind exactly the identifiers `e2ectl clean` needs.
type Record struct {
	UserID  string `json:"user_id"`
	ThingID string `json:"thing_id"`

	// UserEmail is the per-run email the user was actually created under,
	// which teardown needs to log in as that user again.
	UserEmail string `json:"user_email,omitempty"`
}

// RecordStore persists the recovery record as a small JSON file.
type RecordStore struct {
	path string
}

// NewRecordStore creates a store writing to the given path.
func NewRecordStore(path string) *RecordStore {
	return &RecordStore{path: path}
}

// Path returns the file path backing this store.
func (s *RecordStore) Path() string {
	return s.path
}

// Save writes the record, creating parent directories as needed.
func (s *RecordStore) Save(rec Record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating record directory: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	return nil
}

// Load reads the current record. A missing file is returned as the
// underlying fs error so callers can distinguish "nothing to clean".
func (s *RecordStore) Load() (Record, error) {
	var rec Record
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decoding record %s: %w", s.path, err)
	}
	return rec, nil
}

// Remove deletes the record file. A missing file is not an error: teardown
// may run twice.
func (s *RecordStore) Remove() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing record: %w", err)
	}
	return nil
}
