// Package publisher enriches audit records and hands them to a store, either
// synchronously or through a bounded buffer drained by a worker.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	audit "smp/pkg/platform/audit"
	"smp/pkg/platform/audit/worker"
	"smp/pkg/requestcontext"
)

// ErrBufferFull is returned by Emit when the async buffer cannot take more records.
var ErrBufferFull = errors.New("audit buffer full")

// Publisher implements audit.Emitter.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	buffer int
	inbox  chan audit.Record
	done   chan struct{}
	cancel context.CancelFunc

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous delivery with a buffer of n records.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		p.buffer = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a publisher over store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer > 0 {
		p.inbox = make(chan audit.Record, p.buffer)
		p.done = make(chan struct{})
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		w := worker.NewWorker(store, p.inbox, p.logger)
		go func() {
			defer close(p.done)
			_ = w.Run(ctx)
		}()
	}
	return p
}

// Emit enriches record with request scoped context values, then
// delivers it. In async mode a full buffer drops the record and returns
// ErrBufferFull.
func (p *Publisher) Emit(ctx context.Context, record audit.Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = requestcontext.Now(ctx)
	}
	if record.RequestID == "" {
		record.RequestID = requestcontext.RequestID(ctx)
	}
	if record.ActorID == "" {
		record.ActorID = requestcontext.UserID(ctx)
	}
	if record.ClientIP == "" {
		record.ClientIP = requestcontext.ClientIP(ctx)
	}

	if p.inbox == nil {
		return p.store.Append(ctx, record)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return p.store.Append(ctx, record)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.inbox <- record:
		return nil
	default:
		p.logger.WarnContext(ctx, "audit record dropped",
			"entity", record.EntityType,
			"operation", string(record.Operation),
			"key", record.Key,
		)
		return ErrBufferFull
	}
}

// Close drains buffered records and stops the worker.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.inbox == nil {
			return
		}
		p.mu.Lock()
		p.closed = true
		close(p.inbox)
		p.mu.Unlock()
		<-p.done
		p.cancel()
	})
}
