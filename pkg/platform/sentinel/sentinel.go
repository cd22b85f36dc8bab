package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and gateways return these
// (optionally wrapped) so services can translate them into domain errors.
//
// - ErrNotFound: no document under the requested key
// - ErrConflict: a document already exists under the key being inserted
// - ErrUnavailable: a remote collaborator (directory, backend) cannot be reached
// - ErrRejected: a remote collaborator answered with a fault
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
	ErrRejected    = errors.New("rejected")
)
