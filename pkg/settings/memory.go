package settings

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps settings in process memory. It has the same semantics as PostgresStore
// and is used when no database is configured and in tests.
type MemoryStore struct {
	current *Settings
	mu      sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(_ context.Context) (*Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return Defaults(), nil
	}
	return m.current.clone(), nil
}

func (m *MemoryStore) Upsert(_ context.Context, p Patch) (*Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		m.current = Defaults()
		m.current.ID = 1
	} else if p.Empty() {
		return m.current.clone(), nil
	}
	p.Apply(m.current)
	now := time.Now().UTC()
	m.current.UpdatedAt = &now
	return m.current.clone(), nil
}

func (s *Settings) clone() *Settings {
	c := *s
	if s.SequinToken != nil {
		token := *s.SequinToken
		c.SequinToken = &token
	}
	if s.UpdatedAt != nil {
		ts := *s.UpdatedAt
		c.UpdatedAt = &ts
	}
	return &c
}
