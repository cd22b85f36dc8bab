package identifier

import (
	"strings"

	dErrors "smp/pkg/domain-errors"
)

// Simple accepts any scheme and treats every participant identifier as
// case-insensitive. Document type and process identifiers are kept verbatim.
type Simple struct{}

func (Simple) Participant(scheme, value string) (ParticipantID, error) {
	if value == "" {
		return ParticipantID{}, dErrors.New(dErrors.CodeBadRequest, "participant identifier value is required")
	}
	return ParticipantID{ID{Scheme: strings.ToLower(scheme), Value: strings.ToLower(value)}}, nil
}

func (Simple) DocumentType(scheme, value string) (DocumentTypeID, error) {
	if value == "" {
		return DocumentTypeID{}, dErrors.New(dErrors.CodeBadRequest, "document type identifier value is required")
	}
	return DocumentTypeID{ID{Scheme: scheme, Value: value}}, nil
}

func (Simple) Process(scheme, value string) (ProcessID, error) {
	if value == "" {
		return ProcessID{}, dErrors.New(dErrors.CodeBadRequest, "process identifier value is required")
	}
	return ProcessID{ID{Scheme: scheme, Value: value}}, nil
}
