package prefs

import "sync"

// MemoryStore is an in-memory Store for tests and ephemeral sessions.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]interface{}
}

// NewMemoryStore creates an empty in-memory preference store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]interface{})}
}

func (s *MemoryStore) GetBool(key string, def bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key].(bool); ok {
		return v
	}
	return def
}

func (s *MemoryStore) SetBool(key string, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStore) GetString(key string, def string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key].(string); ok {
		return v
	}
	return def
}

func (s *MemoryStore) SetString(key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStore) GetStringList(key string, def []string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key].([]string); ok {
		out := make([]string, len(v))
		copy(out, v)
		return out
	}
	return def
}

func (s *MemoryStore) SetStringList(key string, value []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(value))
	copy(out, value)
	s.values[key] = out
	return nil
}
