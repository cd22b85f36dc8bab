package worker

import (
	"context"
	"log/slog"

	audit "smp/pkg/platform/audit"
)

// Worker consumes audit records from a channel and appends them to a store.
// A failing store is logged; the worker keeps consuming.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Record
	logger *slog.Logger
}

func NewWorker(store audit.Store, inbox <-chan audit.Record, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run returns when the inbox is closed (after draining it) or ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case record, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.store.Append(ctx, record); err != nil {
				w.logger.ErrorContext(ctx, "audit append failed",
					"entity", record.EntityType,
					"operation", string(record.Operation),
					"key", record.Key,
					"error", err,
				)
			}
		}
	}
}
