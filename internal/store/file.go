package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

const (
	// UsersFileName is the name of the user records file inside the data directory
	UsersFileName = "users.json"
)

// fileStore keeps all records in a mutex-guarded in-memory map and writes the
// whole map through to a JSON file on every mutation. The single-writer map is
// the source of truth while the process runs; the file is a write-through
// persistence layer, so concurrent mutations cannot lose updates.
type fileStore struct {
	path string

	mu    sync.RWMutex
	users map[string]*UserRecord
}

// NewFileStore creates a file-backed store rooted at dataDir. The existing
// users file, if any, is loaded eagerly; a corrupt file is a fatal error so
// the process never starts against unreadable state.
func NewFileStore(dataDir string) (Store, error) {
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	f := &fileStore{
		path:  filepath.Join(dataDir, UsersFileName),
		users: make(map[string]*UserRecord),
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			// First run
			return f, nil
		}
		return nil, fmt.Errorf("failed to read user records file: %w", err)
	}

	if err := json.Unmarshal(data, &f.users); err != nil {
		return nil, fmt.Errorf("corrupt user records file %s: %w", f.path, err)
	}

	return f, nil
}

func (f *fileStore) Get(_ context.Context, id string) (*UserRecord, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	record, ok := f.users[NormalizeID(id)]
	if !ok {
		return nil, ErrNotFound
	}
	return record.Clone(), nil
}

func (f *fileStore) List(_ context.Context) ([]*UserRecord, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	records := make([]*UserRecord, 0, len(f.users))
	for _, record := range f.users {
		records = append(records, record.Clone())
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (f *fileStore) Upsert(_ context.Context, record *UserRecord) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("record ID is required")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	stored := record.Clone()
	stored.ID = NormalizeID(stored.ID)
	f.users[stored.ID] = stored
	return f.persistLocked()
}

func (f *fileStore) PartialUpdate(_ context.Context, id string, update func(*UserRecord)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	record, ok := f.users[NormalizeID(id)]
	if !ok {
		return ErrNotFound
	}
	update(record)
	return f.persistLocked()
}

func (f *fileStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	normalized := NormalizeID(id)
	if _, ok := f.users[normalized]; !ok {
		return ErrNotFound
	}
	delete(f.users, normalized)
	return f.persistLocked()
}

// persistLocked writes the full record map to disk. Callers must hold f.mu.
func (f *fileStore) persistLocked() error {
	data, err := json.MarshalIndent(f.users, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user records: %w", err)
	}

	// Write to temporary file first for atomic operation
	tempPath := f.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary user records file: %w", err)
	}

	if err := os.Rename(tempPath, f.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename user records file: %w", err)
	}

	return nil
}
