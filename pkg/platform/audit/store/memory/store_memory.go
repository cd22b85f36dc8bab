package memory

import (
	"context"
	"sync"

	audit "smp/pkg/platform/audit"
)

// InMemoryStore keeps records in append order. Used in tests and when no
// external audit sink is configured.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []audit.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, record audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// ListByKey returns the records of one entity key in append order.
func (s *InMemoryStore) ListByKey(_ context.Context, key string) ([]audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Record
	for _, r := range s.records {
		if r.Key == key {
			out = append(out, r)
		}
	}
	return out, nil
}

// ListAll returns every record in append order.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Record{}, s.records...), nil
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
}
