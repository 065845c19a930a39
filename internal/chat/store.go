package chat

import "sync"

// Store maps a transport connection id to its logical session id. The default
// implementation is process-local; a distributed deployment can inject a
// shared store without touching the registry or dispatcher.
type Store interface {
	Get(transportID string) (sessionID string, ok bool)
	Put(transportID, sessionID string)
	Remove(transportID string)
}

type memoryStore struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewMemoryStore() Store {
	return &memoryStore{m: make(map[string]string)}
}

func (s *memoryStore) Get(transportID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.m[transportID]
	return id, ok
}

func (s *memoryStore) Put(transportID, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[transportID] = sessionID
}

func (s *memoryStore) Remove(transportID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, transportID)
}
