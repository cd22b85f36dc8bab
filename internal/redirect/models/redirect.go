package models

import (
	"net/url"

	"smp/internal/identifier"
	dErrors "smp/pkg/domain-errors"
)

// Redirect delegates one document type of one service group to another
// publisher.
type Redirect struct {
	ServiceGroupID          string                    `json:"service_group_id"`
	DocumentTypeID          identifier.DocumentTypeID `json:"document_type_id"`
	TargetHref              string                    `json:"target_href"`
	SubjectUniqueIdentifier string                    `json:"subject_unique_identifier"`
	Certificate             string                    `json:"certificate,omitempty"`
	Extension               string                    `json:"extension,omitempty"`
}

// StorageKey implements storage.Keyed.
func (r Redirect) StorageKey() string {
	return identifier.RegistrationKey(r.ServiceGroupID, r.DocumentTypeID)
}

// Validate checks the key and that the target is an absolute http(s) URL.
func (r Redirect) Validate() error {
	if r.ServiceGroupID == "" {
		return dErrors.New(dErrors.CodeValidation, "service group id is required")
	}
	if r.DocumentTypeID.Scheme == "" || r.DocumentTypeID.Value == "" {
		return dErrors.New(dErrors.CodeValidation, "document type identifier is required")
	}
	target, err := url.Parse(r.TargetHref)
	if err != nil || !target.IsAbs() || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return dErrors.New(dErrors.CodeValidation, "redirect target must be an absolute http(s) URL")
	}
	if r.SubjectUniqueIdentifier == "" {
		return dErrors.New(dErrors.CodeValidation, "redirect subject unique identifier is required")
	}
	return nil
}

// Equal reports whether both redirects carry the same values.
func (r Redirect) Equal(o Redirect) bool {
	return r == o
}
