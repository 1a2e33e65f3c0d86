package access

import (
	"context"
	"sync"
)

// DemoModeKey is the persisted flag that survives reloads.
const (
	DemoModeKey   = "openair-demo-mode"
	demoModeValue = "true"
)

// FlagStore persists string flags for one client.
type FlagStore interface {
	// Get returns the value and whether it was set.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// FlagBackend hands out flag stores scoped to a client id.
type FlagBackend interface {
	ForClient(clientID string) FlagStore
}

// MemoryFlags is an in-process FlagBackend. Flags are lost on restart.
type MemoryFlags struct {
	mu    sync.RWMutex
	flags map[string]map[string]string
}

// NewMemoryFlags creates an empty backend.
func NewMemoryFlags() *MemoryFlags {
	return &MemoryFlags{flags: make(map[string]map[string]string)}
}

// ForClient implements FlagBackend.
func (m *MemoryFlags) ForClient(clientID string) FlagStore {
	return &memoryScope{parent: m, clientID: clientID}
}

type memoryScope struct {
	parent   *MemoryFlags
	clientID string
}

func (s *memoryScope) Get(_ context.Context, key string) (string, bool, error) {
	s.parent.mu.RLock()
	defer s.parent.mu.RUnlock()
	v, ok := s.parent.flags[s.clientID][key]
	return v, ok, nil
}

func (s *memoryScope) Set(_ context.Context, key, value string) error {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	if s.parent.flags[s.clientID] == nil {
		s.parent.flags[s.clientID] = make(map[string]string)
	}
	s.parent.flags[s.clientID][key] = value
	return nil
}

func (s *memoryScope) Delete(_ context.Context, key string) error {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	delete(s.parent.flags[s.clientID], key)
	return nil
}
