// Package memory is the in-process DocumentStore used by default and in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"smp/pkg/platform/sentinel"
)

// Store keeps documents in nested maps guarded by a RWMutex. Documents are
// copied on the way in and out.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
}

// New constructs an empty store.
func New() *Store {
	return &Store{collections: make(map[string]map[string][]byte)}
}

func (s *Store) Insert(_ context.Context, collection, key string, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.collection(collection)
	if _, ok := docs[key]; ok {
		return sentinel.ErrConflict
	}
	docs[key] = clone(doc)
	return nil
}

func (s *Store) Replace(_ context.Context, collection, key string, doc []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.collection(collection)
	prev := docs[key]
	docs[key] = clone(doc)
	return prev, nil
}

func (s *Store) Delete(_ context.Context, collection, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.collections[collection]
	if _, ok := docs[key]; !ok {
		return 0, nil
	}
	delete(docs, key)
	return 1, nil
}

func (s *Store) Get(_ context.Context, collection, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.collections[collection][key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(doc), nil
}

func (s *Store) List(_ context.Context, collection string) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := s.collections[collection]
	keys := make([]string, 0, len(docs))
	for k := range docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	result := make([][]byte, 0, len(keys))
	for _, k := range keys {
		result = append(result, clone(docs[k]))
	}
	return result, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// collection must be called with the write lock held.
func (s *Store) collection(name string) map[string][]byte {
	docs, ok := s.collections[name]
	if !ok {
		docs = make(map[string][]byte)
		s.collections[name] = docs
	}
	return docs
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
