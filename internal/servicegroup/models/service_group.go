package models

import (
	"strings"

	"smp/internal/identifier"
	dErrors "smp/pkg/domain-errors"
)

// ServiceGroup is the root registration of a participant.
//
// Invariants:
//   - Participant is a normalized identifier and never changes
//   - ID equals Participant.Key()
//   - OwnerID is non-empty
type ServiceGroup struct {
	ID          string                   `json:"id"`
	OwnerID     string                   `json:"owner_id"`
	Participant identifier.ParticipantID `json:"participant"`
	Extension   string                   `json:"extension,omitempty"`
}

// StorageKey implements storage.Keyed.
func (g ServiceGroup) StorageKey() string { return g.ID }

// NewServiceGroup validates and builds a service group for an already
// normalized participant.
func NewServiceGroup(ownerID string, participant identifier.ParticipantID, extension string) (*ServiceGroup, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "owner is required")
	}
	if participant.Scheme == "" || participant.Value == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "participant identifier is required")
	}
	return &ServiceGroup{
		ID:          participant.Key(),
		OwnerID:     ownerID,
		Participant: participant,
		Extension:   extension,
	}, nil
}

// With returns a copy carrying the new mutable fields.
func (g ServiceGroup) With(ownerID, extension string) ServiceGroup {
	g.OwnerID = ownerID
	g.Extension = extension
	return g
}

// IsOwnedBy reports whether userID owns the group.
func (g ServiceGroup) IsOwnedBy(userID string) bool {
	return userID != "" && g.OwnerID == userID
}
