// Package models holds the protocol-agnostic inputs and projections of the
// publisher operations. Serialization dialects map to and from these types.
package models

import (
	bcmodels "smp/internal/businesscard/models"
	"smp/internal/identifier"
	rdmodels "smp/internal/redirect/models"
	smmodels "smp/internal/servicemetadata/models"
)

// ServiceGroupInput is the body of a service group save.
type ServiceGroupInput struct {
	Participant identifier.ID `json:"participant_identifier"`
	Extension   string        `json:"extension,omitempty"`
}

// RegistrationInput is the body of a service registration save. Exactly
// one of Redirect and Metadata must be set.
type RegistrationInput struct {
	Redirect *RedirectInput `json:"redirect,omitempty"`
	Metadata *MetadataInput `json:"service_information,omitempty"`
}

type RedirectInput struct {
	Href                    string `json:"href"`
	SubjectUniqueIdentifier string `json:"subject_unique_identifier"`
	Certificate             string `json:"certificate,omitempty"`
	Extension               string `json:"extension,omitempty"`
}

type MetadataInput struct {
	Participant  identifier.ID  `json:"participant_identifier"`
	DocumentType identifier.ID  `json:"document_identifier"`
	Processes    []ProcessInput `json:"processes"`
	Extension    string         `json:"extension,omitempty"`
}

type ProcessInput struct {
	Process   identifier.ID       `json:"process_identifier"`
	Endpoints []smmodels.Endpoint `json:"endpoints"`
	Extension string              `json:"extension,omitempty"`
}

// BusinessCardInput is the body of a business card save.
type BusinessCardInput struct {
	Participant identifier.ID     `json:"participant_identifier"`
	Entities    []bcmodels.Entity `json:"entities"`
}

// Reference points at one registration of a service group.
type Reference struct {
	DocumentType identifier.DocumentTypeID `json:"document_identifier"`
	Href         string                    `json:"href"`
}

// ServiceGroupView is the projection of a service group.
type ServiceGroupView struct {
	Participant identifier.ParticipantID `json:"participant_identifier"`
	Extension   string                   `json:"extension,omitempty"`
	References  []Reference              `json:"service_metadata_references"`
}

// RegistrationView holds exactly one of Redirect and Metadata.
type RegistrationView struct {
	Redirect *rdmodels.Redirect        `json:"redirect,omitempty"`
	Metadata *smmodels.ServiceMetadata `json:"service_information,omitempty"`
}

// CompleteServiceGroupView is a group together with all its registrations.
type CompleteServiceGroupView struct {
	ServiceGroup ServiceGroupView           `json:"service_group"`
	Metadata     []smmodels.ServiceMetadata `json:"service_metadata"`
	Redirects    []rdmodels.Redirect        `json:"redirects"`
}

// OwnedServiceGroups lists the participants owned by one user.
type OwnedServiceGroups struct {
	UserID       string                     `json:"user_id"`
	Participants []identifier.ParticipantID `json:"participant_identifiers"`
}
