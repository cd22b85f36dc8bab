// Package log writes audit records as structured log lines.
package log

import (
	"context"
	"log/slog"

	audit "smp/pkg/platform/audit"
)

// Store logs every record at INFO, failures at WARN.
type Store struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{logger: logger}
}

func (s *Store) Append(ctx context.Context, r audit.Record) error {
	level := slog.LevelInfo
	if r.Outcome == audit.OutcomeFailure {
		level = slog.LevelWarn
	}
	attrs := []any{
		"audit_id", r.ID,
		"entity", r.EntityType,
		"operation", string(r.Operation),
		"outcome", string(r.Outcome),
		"key", r.Key,
		"request_id", r.RequestID,
		"actor_id", r.ActorID,
		"client_ip", r.ClientIP,
	}
	for k, v := range r.Details {
		attrs = append(attrs, "detail_"+k, v)
	}
	s.logger.Log(ctx, level, "audit", attrs...)
	return nil
}
