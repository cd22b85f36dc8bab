// Package directory synchronizes participant existence with the external
// directory (SML). Gateways hold no local state.
package directory

//go:generate mockgen -source=gateway.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"smp/internal/identifier"
)

// Gateway is the synchronous directory client. Register and Unregister
// report every failure. The Undo calls are compensations; callers log their
// failures and continue.
type Gateway interface {
	Register(ctx context.Context, participant identifier.ParticipantID) error
	Unregister(ctx context.Context, participant identifier.ParticipantID) error
	UndoRegister(ctx context.Context, participant identifier.ParticipantID) error
	UndoUnregister(ctx context.Context, participant identifier.ParticipantID) error
}

// Noop is used when directory synchronization is disabled.
type Noop struct{}

func (Noop) Register(context.Context, identifier.ParticipantID) error       { return nil }
func (Noop) Unregister(context.Context, identifier.ParticipantID) error     { return nil }
func (Noop) UndoRegister(context.Context, identifier.ParticipantID) error   { return nil }
func (Noop) UndoUnregister(context.Context, identifier.ParticipantID) error { return nil }
