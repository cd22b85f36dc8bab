// Package redisstream appends audit records to a capped Redis stream.
package redisstream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	audit "smp/pkg/platform/audit"
)

const (
	DefaultStream = "smp:audit"
	defaultMaxLen = 100_000
)

// Store implements audit.Store with XADD.
type Store struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

// Option configures a Store.
type Option func(*Store)

func WithStream(name string) Option {
	return func(s *Store) { s.stream = name }
}

// WithMaxLen caps the stream length (approximate trimming).
func WithMaxLen(n int64) Option {
	return func(s *Store) { s.maxLen = n }
}

func New(client redis.Cmdable, opts ...Option) *Store {
	s := &Store{client: client, stream: DefaultStream, maxLen: defaultMaxLen}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Append(ctx context.Context, r audit.Record) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"entity":  r.EntityType,
			"key":     r.Key,
			"outcome": string(r.Outcome),
			"record":  string(payload),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}
