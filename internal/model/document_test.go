package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentInput_Validate(t *testing.T) {
	tests := []struct {
		name      string
		in        DocumentInput
		wantField string
	}{
		{name: "valid", in: DocumentInput{Name: "a.txt", FileType: "text/plain", Content: "foo"}},
		{name: "missing content", in: DocumentInput{Name: "a.txt", FileType: "text/plain"}, wantField: "content"},
		{name: "blank file type", in: DocumentInput{Name: "a.txt", FileType: "  ", Content: "foo"}, wantField: "fileType"},
		{name: "missing name", in: DocumentInput{FileType: "text/plain", Content: "foo"}, wantField: "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.wantField, vErr.Field)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, tt.wantField+" is required", err.Error())
		})
	}
}

func TestValidationError_WithIndex(t *testing.T) {
	err := &ValidationError{Index: 2, Field: "name"}
	assert.Equal(t, "files[2].name is required", err.Error())
}

func TestNewDocument(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("defaults upload date", func(t *testing.T) {
		doc := NewDocument(DocumentInput{Name: "a.txt", FileType: "text/plain", Content: "foo"}, "id-1", now)
		assert.Equal(t, "id-1", doc.ID)
		assert.Equal(t, now, doc.UploadDate)
		assert.Equal(t, "foo", doc.Content)
	})

	t.Run("keeps caller upload date", func(t *testing.T) {
		given := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
		doc := NewDocument(DocumentInput{Name: "a.txt", FileType: "text/plain", Content: "foo", UploadDate: &given}, "id-2", now)
		assert.Equal(t, given, doc.UploadDate)
	})
}

func TestDocument_Metadata(t *testing.T) {
	doc := Document{ID: "1", Name: "a.txt", FileType: "text/plain", Content: "secret", UploadDate: time.Unix(0, 0).UTC()}
	md := doc.Metadata()
	assert.Equal(t, DocumentMetadata{ID: "1", Name: "a.txt", FileType: "text/plain", UploadDate: doc.UploadDate}, md)
}
