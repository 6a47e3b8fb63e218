package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// memoryStore is an in-memory Store for tests and ephemeral deployments
type memoryStore struct {
	mu    sync.RWMutex
	users map[string]*UserRecord
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() Store {
	return &memoryStore{
		users: make(map[string]*UserRecord),
	}
}

func (m *memoryStore) Get(_ context.Context, id string) (*UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.users[NormalizeID(id)]
	if !ok {
		return nil, ErrNotFound
	}
	return record.Clone(), nil
}

func (m *memoryStore) List(_ context.Context) ([]*UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]*UserRecord, 0, len(m.users))
	for _, record := range m.users {
		records = append(records, record.Clone())
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (m *memoryStore) Upsert(_ context.Context, record *UserRecord) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("record ID is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := record.Clone()
	stored.ID = NormalizeID(stored.ID)
	m.users[stored.ID] = stored
	return nil
}

func (m *memoryStore) PartialUpdate(_ context.Context, id string, update func(*UserRecord)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.users[NormalizeID(id)]
	if !ok {
		return ErrNotFound
	}
	update(record)
	return nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	normalized := NormalizeID(id)
	if _, ok := m.users[normalized]; !ok {
		return ErrNotFound
	}
	delete(m.users, normalized)
	return nil
}
