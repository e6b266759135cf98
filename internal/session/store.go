// Package session persists workflow state between conversation turns.
package session

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/spigell/navihire/internal/workflow"
)

var ErrSessionNotFound = errors.New("session not found")

type Store interface {
	Load(ctx context.Context, sessionID string) (*workflow.State, error)
	Save(ctx context.Context, sessionID string, state *workflow.State) error
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]string, error)
}

// MemoryStore keeps sessions in process. States are copied through JSON on
// the way in and out, so callers never share a state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]byte)}
}

func (m *MemoryStore) Load(ctx context.Context, sessionID string) (*workflow.State, error) {
	m.mu.RLock()
	data, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return decode(data)
}

func (m *MemoryStore) Save(ctx context.Context, sessionID string, state *workflow.State) error {
	data, err := encode(state)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.sessions[sessionID] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	sort.Strings(ids)
	return ids, nil
}
