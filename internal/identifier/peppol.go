package identifier

import (
	"regexp"
	"strings"

	dErrors "smp/pkg/domain-errors"
)

const (
	// ParticipantSchemeISO6523 is the Peppol participant scheme whose values
	// are case-insensitive.
	ParticipantSchemeISO6523 = "iso6523-actorid-upis"

	maxSchemeLength            = 25
	maxParticipantValueLength  = 50
	maxDocumentTypeValueLength = 500
	maxProcessValueLength      = 200
)

var schemePattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

var caseInsensitiveParticipantSchemes = map[string]struct{}{
	ParticipantSchemeISO6523: {},
}

// Peppol applies the Peppol policy: every scheme is lowercased and values of
// case-insensitive participant schemes are lowercased. Document type and
// process values are case-sensitive.
type Peppol struct{}

func (Peppol) Participant(scheme, value string) (ParticipantID, error) {
	scheme = strings.ToLower(scheme)
	if err := checkScheme(scheme); err != nil {
		return ParticipantID{}, err
	}
	if err := checkValue(value, maxParticipantValueLength, "participant"); err != nil {
		return ParticipantID{}, err
	}
	if _, ok := caseInsensitiveParticipantSchemes[scheme]; ok {
		value = strings.ToLower(value)
	}
	return ParticipantID{ID{Scheme: scheme, Value: value}}, nil
}

func (Peppol) DocumentType(scheme, value string) (DocumentTypeID, error) {
	scheme = strings.ToLower(scheme)
	if err := checkScheme(scheme); err != nil {
		return DocumentTypeID{}, err
	}
	if err := checkValue(value, maxDocumentTypeValueLength, "document type"); err != nil {
		return DocumentTypeID{}, err
	}
	return DocumentTypeID{ID{Scheme: scheme, Value: value}}, nil
}

func (Peppol) Process(scheme, value string) (ProcessID, error) {
	scheme = strings.ToLower(scheme)
	if err := checkScheme(scheme); err != nil {
		return ProcessID{}, err
	}
	if err := checkValue(value, maxProcessValueLength, "process"); err != nil {
		return ProcessID{}, err
	}
	return ProcessID{ID{Scheme: scheme, Value: value}}, nil
}

func checkScheme(scheme string) error {
	if scheme == "" {
		return dErrors.New(dErrors.CodeBadRequest, "identifier scheme is required")
	}
	if len(scheme) > maxSchemeLength {
		return dErrors.New(dErrors.CodeBadRequest, "identifier scheme is too long")
	}
	if !schemePattern.MatchString(scheme) {
		return dErrors.New(dErrors.CodeBadRequest, "identifier scheme has an invalid format")
	}
	return nil
}

func checkValue(value string, maxLen int, kind string) error {
	if value == "" {
		return dErrors.New(dErrors.CodeBadRequest, kind+" identifier value is required")
	}
	if len(value) > maxLen {
		return dErrors.New(dErrors.CodeBadRequest, kind+" identifier value is too long")
	}
	if strings.TrimSpace(value) != value {
		return dErrors.New(dErrors.CodeBadRequest, kind+" identifier value has surrounding whitespace")
	}
	return nil
}
