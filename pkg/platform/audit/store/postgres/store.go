package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	audit "smp/pkg/platform/audit"
)

// Store appends audit records to the smp_audit table next to the documents
// of the postgres storage backend.
type Store struct {
	db *sql.DB
}

// New creates the store and ensures its table exists.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS smp_audit (
		id UUID PRIMARY KEY,
		occurred_at TIMESTAMPTZ NOT NULL,
		entity_type TEXT NOT NULL,
		operation TEXT NOT NULL,
		outcome TEXT NOT NULL,
		key TEXT NOT NULL,
		request_id TEXT,
		actor_id TEXT,
		client_ip TEXT,
		details JSONB
	)`)
	if err != nil {
		return nil, fmt.Errorf("create smp_audit table: %w", err)
	}
	return &Store{db: db}, nil
}

// Append inserts one record. Records with an already-known id are ignored.
func (s *Store) Append(ctx context.Context, r audit.Record) error {
	details, err := json.Marshal(r.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO smp_audit (id, occurred_at, entity_type, operation, outcome, key, request_id, actor_id, client_ip, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, r.ID, r.Timestamp, r.EntityType, string(r.Operation), string(r.Outcome), r.Key, r.RequestID, r.ActorID, r.ClientIP, string(details))
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}
