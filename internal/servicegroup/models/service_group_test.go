package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smp/internal/identifier"
	dErrors "smp/pkg/domain-errors"
)

func TestNewServiceGroup(t *testing.T) {
	p := identifier.ParticipantID{ID: identifier.ID{Scheme: "iso6523-actorid-upis", Value: "0088:123"}}

	t.Run("derives id from participant", func(t *testing.T) {
		g, err := NewServiceGroup("alice", p, "<ext/>")
		require.NoError(t, err)
		assert.Equal(t, "iso6523-actorid-upis::0088:123", g.ID)
		assert.Equal(t, g.ID, g.StorageKey())
		assert.True(t, g.IsOwnedBy("alice"))
		assert.False(t, g.IsOwnedBy("bob"))
	})

	t.Run("rejects blank owner", func(t *testing.T) {
		_, err := NewServiceGroup("  ", p, "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("rejects missing participant", func(t *testing.T) {
		_, err := NewServiceGroup("alice", identifier.ParticipantID{}, "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("with keeps the participant", func(t *testing.T) {
		g, err := NewServiceGroup("alice", p, "")
		require.NoError(t, err)
		updated := g.With("bob", "x")
		assert.Equal(t, p, updated.Participant)
		assert.Equal(t, "bob", updated.OwnerID)
		assert.Equal(t, "alice", g.OwnerID)
	})
}
