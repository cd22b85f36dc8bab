package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "smp/pkg/domain-errors"
)

func TestNewBusinessCard(t *testing.T) {
	entity := Entity{
		Names:       []Name{{Name: "Acme", LanguageCode: "en"}},
		CountryCode: "at",
		Identifiers: []Identifier{{Scheme: "VAT", Value: "ATU123"}},
		Contacts:    []Contact{{Type: "support", Email: "help@acme.example"}},
	}

	t.Run("derives id and assigns entity ids", func(t *testing.T) {
		card, err := NewBusinessCard("iso6523-actorid-upis::9915:acme", []Entity{entity})
		require.NoError(t, err)
		assert.Equal(t, card.ServiceGroupID, card.ID)
		assert.Equal(t, card.ID, card.StorageKey())

		e := card.Entities[0]
		assert.Equal(t, "AT", e.CountryCode)
		_, err = uuid.Parse(e.ID)
		assert.NoError(t, err)
		assert.NotEmpty(t, e.Identifiers[0].ID)
		assert.NotEmpty(t, e.Contacts[0].ID)
		assert.Empty(t, entity.Identifiers[0].ID, "input is not modified")
	})

	t.Run("keeps existing ids", func(t *testing.T) {
		withID := entity
		withID.ID = "entity-1"
		card, err := NewBusinessCard("g", []Entity{withID})
		require.NoError(t, err)
		assert.Equal(t, "entity-1", card.Entities[0].ID)
	})

	tests := []struct {
		name   string
		mutate func(*Entity)
	}{
		{"no names", func(e *Entity) { e.Names = nil }},
		{"blank name", func(e *Entity) { e.Names = []Name{{Name: " "}} }},
		{"bad country", func(e *Entity) { e.CountryCode = "AUT" }},
		{"bad date", func(e *Entity) { e.RegistrationDate = "01.02.2020" }},
		{"identifier without scheme", func(e *Entity) { e.Identifiers = []Identifier{{Value: "x"}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := entity
			tt.mutate(&e)
			_, err := NewBusinessCard("g", []Entity{e})
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}

	t.Run("requires group", func(t *testing.T) {
		_, err := NewBusinessCard("", nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
