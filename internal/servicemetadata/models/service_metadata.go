package models

import (
	"fmt"
	"time"

	"smp/internal/identifier"
	dErrors "smp/pkg/domain-errors"
)

// Endpoint is one technical address of a process, keyed by TransportProfile.
type Endpoint struct {
	TransportProfile              string     `json:"transport_profile"`
	EndpointReference             string     `json:"endpoint_reference"`
	RequireBusinessLevelSignature bool       `json:"require_business_level_signature"`
	MinimumAuthenticationLevel    string     `json:"minimum_authentication_level,omitempty"`
	ServiceActivation             *time.Time `json:"service_activation,omitempty"`
	ServiceExpiration             *time.Time `json:"service_expiration,omitempty"`
	Certificate                   string     `json:"certificate"`
	ServiceDescription            string     `json:"service_description"`
	TechnicalContactURL           string     `json:"technical_contact_url"`
	TechnicalInformationURL       string     `json:"technical_information_url,omitempty"`
	Extension                     string     `json:"extension,omitempty"`
}

// Equal compares every field, including timestamps by instant.
func (e Endpoint) Equal(o Endpoint) bool {
	return e.TransportProfile == o.TransportProfile &&
		e.EndpointReference == o.EndpointReference &&
		e.RequireBusinessLevelSignature == o.RequireBusinessLevelSignature &&
		e.MinimumAuthenticationLevel == o.MinimumAuthenticationLevel &&
		timeEqual(e.ServiceActivation, o.ServiceActivation) &&
		timeEqual(e.ServiceExpiration, o.ServiceExpiration) &&
		e.Certificate == o.Certificate &&
		e.ServiceDescription == o.ServiceDescription &&
		e.TechnicalContactURL == o.TechnicalContactURL &&
		e.TechnicalInformationURL == o.TechnicalInformationURL &&
		e.Extension == o.Extension
}

// IsActiveAt reports whether t lies in the optional activation window.
func (e Endpoint) IsActiveAt(t time.Time) bool {
	if e.ServiceActivation != nil && t.Before(*e.ServiceActivation) {
		return false
	}
	if e.ServiceExpiration != nil && t.After(*e.ServiceExpiration) {
		return false
	}
	return true
}

func (e Endpoint) validate() error {
	if e.TransportProfile == "" {
		return dErrors.New(dErrors.CodeValidation, "endpoint transport profile is required")
	}
	if e.EndpointReference == "" {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("endpoint %q: reference is required", e.TransportProfile))
	}
	if e.ServiceActivation != nil && e.ServiceExpiration != nil && e.ServiceActivation.After(*e.ServiceExpiration) {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("endpoint %q: activation is after expiration", e.TransportProfile))
	}
	return nil
}

// Process groups the endpoints serving one process identifier. Endpoint
// order is preserved across merges.
type Process struct {
	ProcessID identifier.ProcessID `json:"process_id"`
	Endpoints []Endpoint           `json:"endpoints"`
	Extension string               `json:"extension,omitempty"`
}

// Endpoint returns the endpoint with the given transport profile.
func (p Process) Endpoint(transportProfile string) (Endpoint, bool) {
	for _, e := range p.Endpoints {
		if e.TransportProfile == transportProfile {
			return e, true
		}
	}
	return Endpoint{}, false
}

func (p Process) validate() error {
	if p.ProcessID.Scheme == "" || p.ProcessID.Value == "" {
		return dErrors.New(dErrors.CodeValidation, "process identifier is required")
	}
	if len(p.Endpoints) == 0 {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("process %q has no endpoints", p.ProcessID.Key()))
	}
	seen := make(map[string]struct{}, len(p.Endpoints))
	for _, e := range p.Endpoints {
		if err := e.validate(); err != nil {
			return err
		}
		if _, dup := seen[e.TransportProfile]; dup {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("process %q: duplicate transport profile %q", p.ProcessID.Key(), e.TransportProfile))
		}
		seen[e.TransportProfile] = struct{}{}
	}
	return nil
}

// ServiceMetadata is the process and endpoint tree of one document type of
// one service group.
//
// Invariants:
//   - (ServiceGroupID, DocumentTypeID) is unique and never also backs a redirect
//   - process identifiers are unique within the tree
//   - transport profiles are unique within a process
type ServiceMetadata struct {
	ServiceGroupID string                    `json:"service_group_id"`
	DocumentTypeID identifier.DocumentTypeID `json:"document_type_id"`
	Processes      []Process                 `json:"processes"`
	Extension      string                    `json:"extension,omitempty"`
}

// StorageKey implements storage.Keyed.
func (m ServiceMetadata) StorageKey() string {
	return identifier.RegistrationKey(m.ServiceGroupID, m.DocumentTypeID)
}

// Process returns the process with the given identifier.
func (m ServiceMetadata) Process(id identifier.ProcessID) (Process, bool) {
	for _, p := range m.Processes {
		if p.ProcessID.Key() == id.Key() {
			return p, true
		}
	}
	return Process{}, false
}

// Validate checks the tree invariants.
func (m ServiceMetadata) Validate() error {
	if m.ServiceGroupID == "" {
		return dErrors.New(dErrors.CodeValidation, "service group id is required")
	}
	if m.DocumentTypeID.Scheme == "" || m.DocumentTypeID.Value == "" {
		return dErrors.New(dErrors.CodeValidation, "document type identifier is required")
	}
	if len(m.Processes) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one process is required")
	}
	seen := make(map[string]struct{}, len(m.Processes))
	for _, p := range m.Processes {
		if err := p.validate(); err != nil {
			return err
		}
		key := p.ProcessID.Key()
		if _, dup := seen[key]; dup {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("duplicate process %q", key))
		}
		seen[key] = struct{}{}
	}
	return nil
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
