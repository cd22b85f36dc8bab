// Package eventbus is a synchronous, typed publish/subscribe mechanism used to
// wire side effects between registries without direct dependencies.
//
// One Bus carries the events of one entity type. Handlers run on the
// publisher's goroutine, in subscription order.
package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"smp/pkg/requestcontext"
)

// EventType is the kind of change an event reports.
type EventType string

const (
	CreatedEvent EventType = "created"
	UpdatedEvent EventType = "updated"
	DeletedEvent EventType = "deleted"
)

// Event carries a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Handler observes events. A returned error is handled per FailurePolicy.
type Handler[T any] func(ctx context.Context, event Event[T]) error

// FailurePolicy decides what happens when a handler fails.
type FailurePolicy string

const (
	// FailurePolicyLog logs the failure and keeps notifying later handlers.
	FailurePolicyLog FailurePolicy = "log"
	// FailurePolicyAbort stops at the first failure and returns it to the publisher.
	FailurePolicyAbort FailurePolicy = "abort"
)

// ParseFailurePolicy validates a configured policy name.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case "", FailurePolicyLog:
		return FailurePolicyLog, nil
	case FailurePolicyAbort:
		return FailurePolicyAbort, nil
	default:
		return "", fmt.Errorf("unknown observer failure policy %q", s)
	}
}

// Publisher publishes typed events.
type Publisher[T any] interface {
	Publish(ctx context.Context, eventType EventType, payload T) error
}

// Subscriber registers typed handlers.
type Subscriber[T any] interface {
	Subscribe(name string, handler Handler[T])
}

type subscription[T any] struct {
	name    string
	handler Handler[T]
}

// Bus is an ordered list of handlers for one entity type.
type Bus[T any] struct {
	entity string
	policy FailurePolicy
	logger *slog.Logger

	mu   sync.RWMutex
	subs []subscription[T]
}

// Option configures a Bus.
type Option func(*options)

type options struct {
	policy FailurePolicy
	logger *slog.Logger
}

func WithFailurePolicy(p FailurePolicy) Option {
	return func(o *options) { o.policy = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates a bus for the named entity type.
func New[T any](entity string, opts ...Option) *Bus[T] {
	o := options{policy: FailurePolicyLog, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Bus[T]{entity: entity, policy: o.policy, logger: o.logger}
}

// Subscribe appends a handler. Handlers are notified in subscription order.
func (b *Bus[T]) Subscribe(name string, handler Handler[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscription[T]{name: name, handler: handler})
}

// Publish notifies every handler synchronously. Under FailurePolicyLog it
// always returns nil; under FailurePolicyAbort it returns the first failure
// and skips the remaining handlers.
func (b *Bus[T]) Publish(ctx context.Context, eventType EventType, payload T) error {
	b.mu.RLock()
	subs := make([]subscription[T], len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	event := Event[T]{Type: eventType, Payload: payload, Timestamp: requestcontext.Now(ctx)}
	for _, sub := range subs {
		if err := sub.handler(ctx, event); err != nil {
			if b.policy == FailurePolicyAbort {
				return fmt.Errorf("%s %s observer %q: %w", b.entity, eventType, sub.name, err)
			}
			b.logger.ErrorContext(ctx, "observer failed",
				"entity", b.entity,
				"event", string(eventType),
				"observer", sub.name,
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
	}
	return nil
}

// Len returns the number of subscribed handlers.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
