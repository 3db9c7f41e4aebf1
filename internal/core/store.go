package core

import "sync"

// KVStore is the persistence capability the core depends on for settings
// such as the optional source-host bearer token. The UI shell supplies a
// browser- or file-backed implementation.
type KVStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// TokenKey is the KVStore key under which the source-host bearer token is
// stored.
const TokenKey = "github_token"

// MemoryStore is an in-process KVStore, used as the default and in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// MemoryHistory is an in-process HistoryStore, newest entries first.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []HistoryEntry
	limit   int
}

// NewMemoryHistory creates a history store retaining at most limit entries;
// limit <= 0 keeps everything.
func NewMemoryHistory(limit int) *MemoryHistory {
	return &MemoryHistory{limit: limit}
}

func (h *MemoryHistory) Append(entry HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append([]HistoryEntry{entry}, h.entries...)
	if h.limit > 0 && len(h.entries) > h.limit {
		h.entries = h.entries[:h.limit]
	}
	return nil
}

func (h *MemoryHistory) Entries() ([]HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out, nil
}
