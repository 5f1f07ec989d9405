package catalog

import "sync/atomic"

// Store exposes the current catalog to the recommendation engine and HTTP handlers.
type Store interface {
	Snapshot() *Catalog
	Services() []Service
	FindService(id string) (Service, bool)
}

// MemoryStore holds one catalog snapshot and swaps it atomically on reload.
type MemoryStore struct {
	current atomic.Pointer[Catalog]
}

// NewMemoryStore returns a MemoryStore preloaded with c.
func NewMemoryStore(c *Catalog) *MemoryStore {
	s := &MemoryStore{}
	s.current.Store(c)
	return s
}

// Snapshot returns the catalog in effect. Callers must not mutate it.
func (s *MemoryStore) Snapshot() *Catalog {
	return s.current.Load()
}

// Replace swaps in a new catalog.
func (s *MemoryStore) Replace(c *Catalog) {
	if c == nil {
		return
	}
	s.current.Store(c)
}

// Services lists every service in catalog order.
func (s *MemoryStore) Services() []Service {
	return append([]Service(nil), s.Snapshot().Services...)
}

// FindService looks up a service by identifier.
func (s *MemoryStore) FindService(id string) (Service, bool) {
	return s.Snapshot().FindService(id)
}
