package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"smp/internal/identifier"
	dErrors "smp/pkg/domain-errors"
)

func TestRedirectValidate(t *testing.T) {
	valid := Redirect{
		ServiceGroupID:          "iso6523-actorid-upis::9915:g",
		DocumentTypeID:          identifier.DocumentTypeID{ID: identifier.ID{Scheme: "busdox-docid-qns", Value: "invoice"}},
		TargetHref:              "https://other-smp.example.com",
		SubjectUniqueIdentifier: "CN=SMP_OTHER",
	}
	assert.NoError(t, valid.Validate())
	assert.Equal(t, "iso6523-actorid-upis::9915:g/services/busdox-docid-qns::invoice", valid.StorageKey())

	tests := []struct {
		name   string
		mutate func(*Redirect)
	}{
		{"relative target", func(r *Redirect) { r.TargetHref = "/other" }},
		{"non http target", func(r *Redirect) { r.TargetHref = "ftp://other" }},
		{"missing subject", func(r *Redirect) { r.SubjectUniqueIdentifier = "" }},
		{"missing group", func(r *Redirect) { r.ServiceGroupID = "" }},
		{"missing document type", func(r *Redirect) { r.DocumentTypeID = identifier.DocumentTypeID{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			assert.True(t, dErrors.HasCode(r.Validate(), dErrors.CodeValidation))
		})
	}
}
