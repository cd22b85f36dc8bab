// Package storage defines the manager contract every registry persists through
// and adapts it onto interchangeable document backends.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"smp/pkg/platform/sentinel"
)

// DocumentStore persists opaque JSON documents by (collection, key). Each
// call is atomic for its key.
type DocumentStore interface {
	// Insert fails with sentinel.ErrConflict if the key exists.
	Insert(ctx context.Context, collection, key string, doc []byte) error
	// Replace upserts doc and returns the previous document, or nil.
	Replace(ctx context.Context, collection, key string, doc []byte) ([]byte, error)
	// Delete returns the number of removed documents (0 or 1).
	Delete(ctx context.Context, collection, key string) (int, error)
	// Get fails with sentinel.ErrNotFound if the key is absent.
	Get(ctx context.Context, collection, key string) ([]byte, error)
	// List returns all documents of a collection ordered by key.
	List(ctx context.Context, collection string) ([][]byte, error)
	Ping(ctx context.Context) error
	Close() error
}

// Keyed entities know their own storage key.
type Keyed interface {
	StorageKey() string
}

// Predicate selects entities in FindAll and Count. A nil predicate matches all.
type Predicate[T any] func(T) bool

// Collection is the manager contract consumed by the registries.
type Collection[T Keyed] interface {
	Insert(ctx context.Context, entity T) error
	Replace(ctx context.Context, entity T) (*T, error)
	DeleteByKey(ctx context.Context, key string) (int, error)
	FindByKey(ctx context.Context, key string) (*T, error)
	FindAll(ctx context.Context, pred Predicate[T]) ([]T, error)
	Count(ctx context.Context, pred Predicate[T]) (int, error)
}

// documentCollection adapts a DocumentStore to a typed Collection with JSON
// documents.
type documentCollection[T Keyed] struct {
	store DocumentStore
	name  string
}

// NewCollection returns the typed collection name on store.
func NewCollection[T Keyed](store DocumentStore, name string) Collection[T] {
	return &documentCollection[T]{store: store, name: name}
}

func (c *documentCollection[T]) Insert(ctx context.Context, entity T) error {
	doc, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}
	return c.store.Insert(ctx, c.name, entity.StorageKey(), doc)
}

func (c *documentCollection[T]) Replace(ctx context.Context, entity T) (*T, error) {
	doc, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", c.name, err)
	}
	prev, err := c.store.Replace(ctx, c.name, entity.StorageKey(), doc)
	if err != nil || prev == nil {
		return nil, err
	}
	return c.decode(prev)
}

func (c *documentCollection[T]) DeleteByKey(ctx context.Context, key string) (int, error) {
	return c.store.Delete(ctx, c.name, key)
}

func (c *documentCollection[T]) FindByKey(ctx context.Context, key string) (*T, error) {
	doc, err := c.store.Get(ctx, c.name, key)
	if err != nil {
		return nil, err
	}
	return c.decode(doc)
}

func (c *documentCollection[T]) FindAll(ctx context.Context, pred Predicate[T]) ([]T, error) {
	docs, err := c.store.List(ctx, c.name)
	if err != nil {
		return nil, err
	}
	result := make([]T, 0, len(docs))
	for _, doc := range docs {
		entity, err := c.decode(doc)
		if err != nil {
			return nil, err
		}
		if pred == nil || pred(*entity) {
			result = append(result, *entity)
		}
	}
	return result, nil
}

func (c *documentCollection[T]) Count(ctx context.Context, pred Predicate[T]) (int, error) {
	matches, err := c.FindAll(ctx, pred)
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}

func (c *documentCollection[T]) decode(doc []byte) (*T, error) {
	var entity T
	if err := json.Unmarshal(doc, &entity); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.name, err)
	}
	return &entity, nil
}

// IsNotFound reports whether err is the store's not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound)
}
