package model

import (
	"strings"
	"time"
)

// Document represents a stored text file including its full content.
// This is a pure domain model with no database-specific dependencies or tags.
type Document struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	FileType   string    `json:"fileType"`
	Content    string    `json:"content"`
	UploadDate time.Time `json:"uploadDate"`
}

// DocumentMetadata is a Document without its content. List and search results
// are always built from this type so content can never leak into them.
type DocumentMetadata struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	FileType   string    `json:"fileType"`
	UploadDate time.Time `json:"uploadDate"`
}

// Metadata strips the content from d.
func (d Document) Metadata() DocumentMetadata {
	return DocumentMetadata{
		ID:         d.ID,
		Name:       d.Name,
		FileType:   d.FileType,
		UploadDate: d.UploadDate,
	}
}

// DocumentInput is the caller-supplied shape of a document to create.
// UploadDate is optional; stores default it to the creation time.
type DocumentInput struct {
	Name       string     `json:"name"`
	FileType   string     `json:"fileType"`
	Content    string     `json:"content"`
	UploadDate *time.Time `json:"uploadDate,omitempty"`
}

// Validate reports the first required field that is missing or blank.
func (in DocumentInput) Validate() error {
	switch {
	case in.Content == "":
		return &ValidationError{Index: -1, Field: "content"}
	case strings.TrimSpace(in.FileType) == "":
		return &ValidationError{Index: -1, Field: "fileType"}
	case strings.TrimSpace(in.Name) == "":
		return &ValidationError{Index: -1, Field: "name"}
	}
	return nil
}

// NewDocument builds the record a store persists for in, using id and now
// for the store-assigned fields.
func NewDocument(in DocumentInput, id string, now time.Time) Document {
	uploaded := now
	if in.UploadDate != nil && !in.UploadDate.IsZero() {
		uploaded = *in.UploadDate
	}
	return Document{
		ID:         id,
		Name:       in.Name,
		FileType:   in.FileType,
		Content:    in.Content,
		UploadDate: uploaded.UTC(),
	}
}
