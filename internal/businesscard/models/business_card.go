package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "smp/pkg/domain-errors"
)

// DateLayout is the layout of Entity.RegistrationDate.
const DateLayout = "2006-01-02"

type Name struct {
	Name         string `json:"name"`
	LanguageCode string `json:"language_code,omitempty"`
}

type Identifier struct {
	ID     string `json:"id"`
	Scheme string `json:"scheme"`
	Value  string `json:"value"`
}

type Contact struct {
	ID    string `json:"id"`
	Type  string `json:"type,omitempty"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Entity is one legal entity presented on a business card.
type Entity struct {
	ID                      string       `json:"id"`
	Names                   []Name       `json:"names"`
	CountryCode             string       `json:"country_code"`
	GeographicalInformation string       `json:"geographical_information,omitempty"`
	Identifiers             []Identifier `json:"identifiers,omitempty"`
	WebsiteURIs             []string     `json:"website_uris,omitempty"`
	Contacts                []Contact    `json:"contacts,omitempty"`
	AdditionalInformation   string       `json:"additional_information,omitempty"`
	RegistrationDate        string       `json:"registration_date,omitempty"`
}

// BusinessCard is the public profile of one service group. Its ID is the
// service group ID.
type BusinessCard struct {
	ID             string   `json:"id"`
	ServiceGroupID string   `json:"service_group_id"`
	Entities       []Entity `json:"entities"`
}

// StorageKey implements storage.Keyed.
func (c BusinessCard) StorageKey() string { return c.ID }

// NewBusinessCard validates entities and assigns ids to entities, entity
// identifiers and contacts that have none. Country codes are uppercased.
func NewBusinessCard(serviceGroupID string, entities []Entity) (*BusinessCard, error) {
	if serviceGroupID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "service group id is required")
	}
	normalized := make([]Entity, 0, len(entities))
	for i, e := range entities {
		e, err := normalizeEntity(e)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("entity %d", i))
		}
		normalized = append(normalized, e)
	}
	return &BusinessCard{ID: serviceGroupID, ServiceGroupID: serviceGroupID, Entities: normalized}, nil
}

func normalizeEntity(e Entity) (Entity, error) {
	if len(e.Names) == 0 {
		return e, dErrors.New(dErrors.CodeValidation, "at least one name is required")
	}
	for _, n := range e.Names {
		if strings.TrimSpace(n.Name) == "" {
			return e, dErrors.New(dErrors.CodeValidation, "names must not be blank")
		}
	}
	e.CountryCode = strings.ToUpper(strings.TrimSpace(e.CountryCode))
	if !isCountryCode(e.CountryCode) {
		return e, dErrors.New(dErrors.CodeValidation, "country code must be two letters")
	}
	if e.RegistrationDate != "" {
		if _, err := time.Parse(DateLayout, e.RegistrationDate); err != nil {
			return e, dErrors.New(dErrors.CodeValidation, "registration date must be YYYY-MM-DD")
		}
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	ids := make([]Identifier, len(e.Identifiers))
	for i, id := range e.Identifiers {
		if id.Scheme == "" || id.Value == "" {
			return e, dErrors.New(dErrors.CodeValidation, "identifiers need scheme and value")
		}
		if id.ID == "" {
			id.ID = uuid.NewString()
		}
		ids[i] = id
	}
	e.Identifiers = ids

	contacts := make([]Contact, len(e.Contacts))
	for i, c := range e.Contacts {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		contacts[i] = c
	}
	e.Contacts = contacts
	return e, nil
}

func isCountryCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
