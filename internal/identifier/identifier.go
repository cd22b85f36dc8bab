// Package identifier canonicalizes participant, document type and process
// identifiers. Every lookup key in the registry is derived from the values
// produced here; raw strings are never compared directly.
package identifier

import (
	"strings"

	dErrors "smp/pkg/domain-errors"
)

// Separator joins scheme and value in the URI-encoded form.
const Separator = "::"

// ID is a (scheme, value) pair.
type ID struct {
	Scheme string `json:"scheme"`
	Value  string `json:"value"`
}

// URIEncoded returns the "scheme::value" form.
func (id ID) URIEncoded() string {
	return id.Scheme + Separator + id.Value
}

// IsZero reports whether the identifier is unset.
func (id ID) IsZero() bool {
	return id.Scheme == "" && id.Value == ""
}

func (id ID) String() string {
	return id.URIEncoded()
}

// ParticipantID identifies a business participant. Only values produced by a
// Normalizer are canonical.
type ParticipantID struct{ ID }

// DocumentTypeID identifies a document type.
type DocumentTypeID struct{ ID }

// ProcessID identifies a business process.
type ProcessID struct{ ID }

// Key returns the canonical lookup key.
func (p ParticipantID) Key() string { return p.URIEncoded() }

// Key returns the canonical lookup key.
func (d DocumentTypeID) Key() string { return d.URIEncoded() }

// Key returns the canonical lookup key.
func (p ProcessID) Key() string { return p.URIEncoded() }

// Normalizer canonicalizes identifiers for one identifier policy.
type Normalizer interface {
	Participant(scheme, value string) (ParticipantID, error)
	DocumentType(scheme, value string) (DocumentTypeID, error)
	Process(scheme, value string) (ProcessID, error)
}

// CanonicalKey returns the lookup key of a participant after normalizing it
// again with n. Use it for identifiers whose provenance is unknown.
func CanonicalKey(n Normalizer, p ParticipantID) (string, error) {
	norm, err := n.Participant(p.Scheme, p.Value)
	if err != nil {
		return "", err
	}
	return norm.Key(), nil
}

func split(uri string) (string, string, error) {
	scheme, value, ok := strings.Cut(uri, Separator)
	if !ok {
		return "", "", dErrors.New(dErrors.CodeBadRequest, "identifier must have the form scheme::value")
	}
	return scheme, value, nil
}

// ParseParticipant parses and normalizes a URI-encoded participant identifier.
func ParseParticipant(n Normalizer, uri string) (ParticipantID, error) {
	scheme, value, err := split(uri)
	if err != nil {
		return ParticipantID{}, err
	}
	return n.Participant(scheme, value)
}

// ParseDocumentType parses and normalizes a URI-encoded document type
// identifier. Only the first separator splits; values may contain "::".
func ParseDocumentType(n Normalizer, uri string) (DocumentTypeID, error) {
	scheme, value, err := split(uri)
	if err != nil {
		return DocumentTypeID{}, err
	}
	return n.DocumentType(scheme, value)
}

// ParseProcess parses and normalizes a URI-encoded process identifier.
func ParseProcess(n Normalizer, uri string) (ProcessID, error) {
	scheme, value, err := split(uri)
	if err != nil {
		return ProcessID{}, err
	}
	return n.Process(scheme, value)
}

// New returns the Normalizer for a configured scheme name ("peppol" or "simple").
func New(name string) (Normalizer, error) {
	switch strings.ToLower(name) {
	case "", "peppol":
		return Peppol{}, nil
	case "simple":
		return Simple{}, nil
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "unknown identifier scheme: "+name)
	}
}

// RegistrationKey is the storage key shared by service metadata and
// redirects of one (service group, document type) pair.
func RegistrationKey(groupID string, docType DocumentTypeID) string {
	return groupID + "/services/" + docType.Key()
}
