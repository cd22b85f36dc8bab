// Package audit carries structured records of every mutating registry
// operation to one or more stores.
package audit

import (
	"context"
	"time"
)

// Operation is the kind of mutation being audited.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Outcome reports whether the audited operation succeeded.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Entity types audited by the registries.
const (
	EntityServiceGroup    = "service_group"
	EntityServiceMetadata = "service_metadata"
	EntityRedirect        = "redirect"
	EntityBusinessCard    = "business_card"
)

// Record is emitted from registry logic. Keep it transport-agnostic so
// stores can fan out.
type Record struct {
	ID         string            `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	EntityType string            `json:"entity_type"`
	Operation  Operation         `json:"operation"`
	Outcome    Outcome           `json:"outcome"`
	Key        string            `json:"key"`
	Details    map[string]string `json:"details,omitempty"`
	// RequestID correlates the record with the HTTP request that caused it.
	RequestID string `json:"request_id,omitempty"`
	// ActorID is the authenticated owner that performed the operation.
	ActorID string `json:"actor_id,omitempty"`
	// ClientIP is the caller address as seen by the HTTP layer.
	ClientIP string `json:"client_ip,omitempty"`
}

// Store persists or forwards audit records.
type Store interface {
	Append(ctx context.Context, record Record) error
}

// Emitter is what registries depend on.
type Emitter interface {
	Emit(ctx context.Context, record Record) error
}

// Success builds a successful record.
func Success(entity string, op Operation, key string, details map[string]string) Record {
	return Record{EntityType: entity, Operation: op, Outcome: OutcomeSuccess, Key: key, Details: details}
}

// Failure builds a failed record with the error in its details.
func Failure(entity string, op Operation, key string, err error) Record {
	details := map[string]string{}
	if err != nil {
		details["error"] = err.Error()
	}
	return Record{EntityType: entity, Operation: op, Outcome: OutcomeFailure, Key: key, Details: details}
}
